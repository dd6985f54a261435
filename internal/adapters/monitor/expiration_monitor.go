package monitor

import (
	"context"
	"sync"
	"time"

	"dibs-service/internal/domain/shared"
	"dibs-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ItemResolver is the slice of the resolution engine the monitor needs
type ItemResolver interface {
	Evaluate(ctx context.Context, itemID uuid.UUID) (*shared.ResolutionResult, error)
}

// ExpirationMonitor periodically re-evaluates active items whose claim
// deadline has passed. It runs once at startup and then on a fixed
// interval; one item's failure never blocks the rest, the next tick
// simply retries.
type ExpirationMonitor struct {
	itemRepo outbound.ItemRepository
	resolver ItemResolver
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type ExpirationMonitorParams struct {
	ItemRepo outbound.ItemRepository
	Resolver ItemResolver
	Interval time.Duration
	Now      func() time.Time
	Logger   zerolog.Logger
}

func NewExpirationMonitor(params ExpirationMonitorParams) *ExpirationMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	interval := params.Interval
	if interval == 0 {
		interval = time.Minute
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &ExpirationMonitor{
		itemRepo: params.ItemRepo,
		resolver: params.Resolver,
		interval: interval,
		now:      now,
		logger:   params.Logger.With().Str("component", "expiration_monitor").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the monitor loop
func (m *ExpirationMonitor) Start() {
	m.logger.Info().Dur("interval", m.interval).Msg("Starting expiration monitor")

	m.wg.Add(1)
	go m.monitorLoop()
}

// Stop gracefully stops the monitor
func (m *ExpirationMonitor) Stop() {
	m.logger.Info().Msg("Stopping expiration monitor")
	m.cancel()
	m.wg.Wait()
}

// monitorLoop runs the periodic check, once immediately at startup
func (m *ExpirationMonitor) monitorLoop() {
	defer m.wg.Done()

	m.CheckExpiredItems()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CheckExpiredItems()
		case <-m.ctx.Done():
			m.logger.Info().Msg("Monitor loop stopped")
			return
		}
	}
}

// CheckExpiredItems finds active items past their deadline and evaluates
// each one independently
func (m *ExpirationMonitor) CheckExpiredItems() {
	expired, err := m.itemRepo.ListActiveExpired(m.ctx, m.now())
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to list expired items")
		return
	}

	if len(expired) > 0 {
		m.logger.Debug().Int("count", len(expired)).Msg("Found expired items")
	}

	for _, it := range expired {
		result, err := m.resolver.Evaluate(m.ctx, it.ID)
		if err != nil {
			// Evaluation is idempotent, the next tick retries this item
			m.logger.Error().Err(err).Str("item_id", it.ID.String()).Msg("Failed to evaluate expired item")
			continue
		}

		event := m.logger.Info().
			Str("item_id", it.ID.String()).
			Str("outcome", string(result.Outcome))
		if result.WinnerID != nil {
			event = event.Str("winner_id", result.WinnerID.String())
		}
		if result.NewExpiresAt != nil {
			event = event.Time("new_expires_at", *result.NewExpiresAt)
		}
		event.Msg("Expired item evaluated")
	}
}
