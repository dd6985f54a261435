package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"dibs-service/internal/ports/outbound"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisNotifier implements the change notifier interface using Redis
// pub/sub, one channel per record-store table. Subscribing clients get an
// explicit channel instead of process-wide singleton state, and multiple
// gateway instances sharing the Redis see the same change stream.
type RedisNotifier struct {
	client          *redis.Client
	subscribers     map[string]chan outbound.Change // clientID -> local channel
	pubsubs         map[string]*redis.PubSub        // clientID -> pubsub instance
	clientsToTables map[string]map[outbound.Table]bool
	mu              sync.RWMutex
	ctx             context.Context
	cancel          context.CancelFunc
	logger          zerolog.Logger
}

type RedisNotifierParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

func NewNotifier(params RedisNotifierParams) *RedisNotifier {
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisNotifier{
		client:          params.RedisClient,
		subscribers:     make(map[string]chan outbound.Change),
		pubsubs:         make(map[string]*redis.PubSub),
		clientsToTables: make(map[string]map[outbound.Table]bool),
		ctx:             ctx,
		cancel:          cancel,
		logger:          params.Logger.With().Str("component", "redis_notifier").Logger(),
	}
}

func channelName(table outbound.Table) string {
	return fmt.Sprintf("changes:%s", table)
}

// Subscribe subscribes a client to changes on a table
func (r *RedisNotifier) Subscribe(ctx context.Context, table outbound.Table, clientID string, changeChan chan outbound.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clientsToTables[clientID] != nil && r.clientsToTables[clientID][table] {
		r.logger.Info().
			Str("client_id", clientID).
			Str("table", string(table)).
			Msg("Client already subscribed to table")
		return nil
	}

	// Store the change channel if this is the first subscription
	if r.subscribers[clientID] == nil {
		r.subscribers[clientID] = changeChan
	}

	if r.clientsToTables[clientID] == nil {
		r.clientsToTables[clientID] = make(map[outbound.Table]bool)
	}
	r.clientsToTables[clientID][table] = true

	// Get or create pubsub connection for this client
	var pubsub *redis.PubSub
	if existingPubsub, exists := r.pubsubs[clientID]; exists {
		pubsub = existingPubsub
	} else {
		pubsub = r.client.Subscribe(ctx)
		r.pubsubs[clientID] = pubsub

		// Forward Redis messages to the client's local channel
		go r.listenForRedisMessages(pubsub, clientID, changeChan)
	}

	if err := pubsub.Subscribe(ctx, channelName(table)); err != nil {
		r.logger.Error().Err(err).Str("client_id", clientID).Str("table", string(table)).Msg("Failed to subscribe to Redis channel")
		return err
	}

	r.logger.Info().
		Str("client_id", clientID).
		Str("table", string(table)).
		Msg("Client subscribed to table changes")
	return nil
}

// Unsubscribe unsubscribes a client from changes on a table
func (r *RedisNotifier) Unsubscribe(ctx context.Context, table outbound.Table, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clientTables, exists := r.clientsToTables[clientID]
	if !exists {
		return nil
	}

	delete(clientTables, table)

	if len(clientTables) == 0 {
		r.detachClientLocked(clientID)
	} else {
		if pubsub, exists := r.pubsubs[clientID]; exists {
			if err := pubsub.Unsubscribe(ctx, channelName(table)); err != nil {
				r.logger.Error().Err(err).Str("client_id", clientID).Str("table", string(table)).Msg("Error unsubscribing from Redis channel")
			}
		}
	}

	r.logger.Info().
		Str("client_id", clientID).
		Str("table", string(table)).
		Msg("Client unsubscribed from table changes")
	return nil
}

// Publish publishes a change to all subscribers of its table via Redis
func (r *RedisNotifier) Publish(ctx context.Context, change outbound.Change) error {
	if change.Timestamp == 0 {
		change.Timestamp = time.Now().Unix()
	}

	changeJSON, err := json.Marshal(change)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to marshal change")
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	result := r.client.Publish(ctx, channelName(change.Table), changeJSON)
	if err := result.Err(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to publish to Redis")
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	r.logger.Debug().
		Str("table", string(change.Table)).
		Str("kind", string(change.Kind)).
		Str("record_id", change.RecordID.String()).
		Int64("subscriber_count", result.Val()).
		Msg("Published change notification")

	return nil
}

// RemoveClient drops all of a client's table subscriptions and closes its
// Redis pubsub. The ws handler calls this on disconnect, before it closes
// the client's change channel, so the listener goroutine stops before the
// channel goes away.
func (r *RedisNotifier) RemoveClient(ctx context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clientsToTables[clientID]; !exists {
		return nil
	}

	r.detachClientLocked(clientID)

	r.logger.Info().Str("client_id", clientID).Msg("Client removed from change notifications")
	return nil
}

// detachClientLocked forgets a client entirely. Closing the pubsub ends
// its listener goroutine via the closed message channel. Callers must
// hold the write lock.
func (r *RedisNotifier) detachClientLocked(clientID string) {
	delete(r.clientsToTables, clientID)

	// The change channel belongs to the caller; only the reference
	// is dropped here
	delete(r.subscribers, clientID)

	if pubsub, exists := r.pubsubs[clientID]; exists {
		if err := pubsub.Close(); err != nil {
			r.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
		}
		delete(r.pubsubs, clientID)
	}
}

// IsSubscribed checks if a client is subscribed to a table
func (r *RedisNotifier) IsSubscribed(ctx context.Context, table outbound.Table, clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clientTables, exists := r.clientsToTables[clientID]
	if !exists {
		return false
	}

	return clientTables[table]
}

// listenForRedisMessages forwards Redis messages to the local channel
func (r *RedisNotifier) listenForRedisMessages(pubsub *redis.PubSub, clientID string, localChan chan outbound.Change) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Str("client_id", clientID).Msg("Redis message listener panic for client")
		}
	}()

	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				r.logger.Info().Str("client_id", clientID).Msg("Redis channel closed for client")
				return
			}

			var change outbound.Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				r.logger.Error().Err(err).Str("client_id", clientID).Msg("Failed to unmarshal Redis message for client")
				continue
			}

			select {
			case localChan <- change:
			default:
				r.logger.Warn().Str("client_id", clientID).Msg("Local channel full for client, dropping change")
			}

		case <-r.ctx.Done():
			r.logger.Info().Str("client_id", clientID).Msg("Redis notifier context cancelled for client")
			return
		}
	}
}

func (r *RedisNotifier) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	for clientID := range r.subscribers {
		delete(r.subscribers, clientID)
	}

	for clientID, pubsub := range r.pubsubs {
		if err := pubsub.Close(); err != nil {
			r.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
		}
		delete(r.pubsubs, clientID)
	}

	return r.client.Close()
}
