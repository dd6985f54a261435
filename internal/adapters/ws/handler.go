package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"dibs-service/internal/domain/claim"
	"dibs-service/internal/domain/item"
	"dibs-service/internal/domain/shared"
	"dibs-service/internal/ports/inbound"
	"dibs-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WsHandler manages WebSocket connections and message routing
type WsHandler struct {
	clients        map[string]*WsClient // clientID -> Client
	clientsMu      sync.RWMutex
	changeChannels map[string]chan outbound.Change // clientID -> local change channel
	channelsMu     sync.RWMutex
	upgrader       websocket.Upgrader
	itemService    inbound.ItemService
	claimService   inbound.ClaimService
	profileService inbound.ProfileService
	notifier       outbound.ChangeNotifier
	logger         zerolog.Logger
}
type WsHandlerParams struct {
	Upgrader       websocket.Upgrader
	ItemService    inbound.ItemService
	ClaimService   inbound.ClaimService
	ProfileService inbound.ProfileService
	Notifier       outbound.ChangeNotifier
	Logger         zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients:        make(map[string]*WsClient),
		changeChannels: make(map[string]chan outbound.Change),
		upgrader:       params.Upgrader,
		itemService:    params.ItemService,
		claimService:   params.ClaimService,
		profileService: params.ProfileService,
		notifier:       params.Notifier,
		logger:         params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket handles WebSocket connection upgrades
func (handler *WsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userIDStr := r.URL.Query().Get("user_id")
	if userIDStr == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "invalid user_id format", http.StatusBadRequest)
		return
	}

	// Upgrade HTTP connection to WebSocket
	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		handler.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	// Create new client
	client := NewClient(WsClientParams{
		UserID:  userID,
		Conn:    conn,
		Handler: handler,
		Logger:  handler.logger,
	})

	// Register client
	handler.registerClient(client)

	// Create local change channel for this client
	handler.createChangeChannel(client.id)

	// Start client message handling
	client.Start()

	// Start forwarding record changes to this client
	go handler.listenForClientChanges(client)

	// Wait for client to disconnect
	go func() {
		<-client.ctx.Done()
		handler.unregisterClient(client)
	}()

	handler.logger.Info().Str("client_id", client.id).Str("user_id", client.userID.String()).Msg("WebSocket client connected")
}

// createChangeChannel creates a local change channel for a client
func (handler *WsHandler) createChangeChannel(clientID string) chan outbound.Change {
	handler.channelsMu.Lock()
	defer handler.channelsMu.Unlock()

	if changeChan, exists := handler.changeChannels[clientID]; exists {
		return changeChan
	}

	changeChan := make(chan outbound.Change, 100)
	handler.changeChannels[clientID] = changeChan

	handler.logger.Debug().Str("client_id", clientID).Msg("Created local change channel for client")
	return changeChan
}

func (handler *WsHandler) getChangeChannel(clientID string) chan outbound.Change {
	handler.channelsMu.RLock()
	defer handler.channelsMu.RUnlock()

	return handler.changeChannels[clientID]
}

func (handler *WsHandler) removeChangeChannel(clientID string) {
	handler.channelsMu.Lock()
	defer handler.channelsMu.Unlock()

	if changeChan, exists := handler.changeChannels[clientID]; exists {
		close(changeChan)
		delete(handler.changeChannels, clientID)
		handler.logger.Debug().Str("client_id", clientID).Msg("Removed local change channel for client")
	}
}

func (handler *WsHandler) registerClient(client *WsClient) {
	handler.clientsMu.Lock()
	defer handler.clientsMu.Unlock()
	handler.clients[client.id] = client
	handler.logger.Debug().Str("client_id", client.id).Int("total_clients", len(handler.clients)).Msg("Client registered")
}

func (handler *WsHandler) unregisterClient(client *WsClient) {
	handler.clientsMu.Lock()
	defer handler.clientsMu.Unlock()

	// Remove client from registry
	delete(handler.clients, client.id)

	// Detach from the notifier first so nothing publishes into the
	// change channel once it is closed below
	if err := handler.notifier.RemoveClient(context.Background(), client.id); err != nil {
		handler.logger.Error().Err(err).Str("client_id", client.id).Msg("Failed to remove client from notifier")
	}

	// Stop the client
	client.Stop()

	// Remove local change channel
	handler.removeChangeChannel(client.id)

	handler.logger.Info().Str("client_id", client.id).Str("user_id", client.userID.String()).Int("total_clients", len(handler.clients)).Msg("WebSocket client disconnected")
}

// listenForClientChanges forwards record-change notifications to the client
func (handler *WsHandler) listenForClientChanges(client *WsClient) {
	changeChan := handler.getChangeChannel(client.id)
	if changeChan == nil {
		handler.logger.Error().Str("client_id", client.id).Msg("No change channel found for client - this should not happen")
		return
	}

	handler.logger.Debug().Str("client_id", client.id).Msg("Change listener started for client")

	for {
		select {
		case change := <-changeChan:
			wsMessage := NewRecordChangedMessage(change)

			if err := client.Send(wsMessage); err != nil {
				handler.logger.Error().
					Err(err).Str("client_id", client.id).Msg("Failed to send change to WebSocket client")
			}

		case <-client.ctx.Done():
			handler.logger.Debug().Str("client_id", client.id).Msg("Client disconnected, stopping change listener")
			return
		}
	}
}

func (handler *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) error {
	switch msg.Type {
	case MessageTypeSubscribe:
		return handler.handleSubscribe(client, msg)

	case MessageTypeUnsubscribe:
		return handler.handleUnsubscribe(client, msg)

	case MessageTypeSetClaim:
		return handler.handleSetClaim(client, msg)

	case MessageTypeSetBid:
		return handler.handleSetBid(client, msg)

	case MessageTypeCreateItem:
		return handler.handleCreateItem(client, msg)

	case MessageTypeGetItem:
		return handler.handleGetItem(client, msg)

	case MessageTypeListItems:
		return handler.handleListItems(client, msg)

	case MessageTypeListSection:
		return handler.handleListSection(client, msg)

	case MessageTypeCreateProfile:
		return handler.handleCreateProfile(client, msg)

	case MessageTypeListProfiles:
		return handler.handleListProfiles(client, msg)

	default:
		handler.logger.Warn().Str("client_id", client.id).Str("message_type", string(msg.Type)).Msg("Unknown message type from client")
		return shared.ErrUnknownMessageType
	}
}

// GetConnectedClients returns the number of connected clients
func (handler *WsHandler) GetConnectedClients() int {
	handler.clientsMu.RLock()
	defer handler.clientsMu.RUnlock()
	return len(handler.clients)
}

func (handler *WsHandler) handleSubscribe(client *WsClient, msg *ClientMessage) error {
	table := outbound.Table(msg.Data["table"].(string))

	ctx := context.Background()

	changeChan := handler.getChangeChannel(client.id)
	if changeChan == nil {
		handler.logger.Error().Str("client_id", client.id).Msg("No change channel found for client")
		return shared.ErrEventChannelNotFound
	}

	// Subscribe to the notifier with the local change channel
	if err := handler.notifier.Subscribe(ctx, table, client.id, changeChan); err != nil {
		handler.logger.Error().Err(err).Str("client_id", client.id).Str("table", string(table)).Msg("Failed to subscribe to table")
		return err
	}

	// Ack echoes the request type; record_changed is reserved for
	// actual row-change notifications
	response := NewServerMessage(MessageTypeSubscribe)
	response.Data["table"] = string(table)
	response.Data["status"] = "subscribed"

	handler.logger.Info().Str("client_id", client.id).Str("table", string(table)).Msg("Client subscribed to table changes")
	return client.Send(response)
}

// handleUnsubscribe handles unsubscription from table changes
func (handler *WsHandler) handleUnsubscribe(client *WsClient, msg *ClientMessage) error {
	table := outbound.Table(msg.Data["table"].(string))

	ctx := context.Background()

	// Unsubscribe from the notifier
	if err := handler.notifier.Unsubscribe(ctx, table, client.id); err != nil {
		return err
	}

	// Send confirmation
	response := NewServerMessage(MessageTypeUnsubscribe)
	response.Data["table"] = string(table)
	response.Data["status"] = "unsubscribed"

	handler.logger.Info().Str("client_id", client.id).Str("table", string(table)).Msg("Client unsubscribed from table changes")
	return client.Send(response)
}

// handleSetClaim handles a claim toggle (want / pass)
func (handler *WsHandler) handleSetClaim(client *WsClient, msg *ClientMessage) error {
	statusStr, ok := msg.Data["status"].(string)
	if !ok {
		return shared.ErrStatusRequired
	}
	status := claim.Status(statusStr)
	if !status.IsValid() {
		return shared.ErrInvalidClaimStatus
	}

	ctx := context.Background()

	claimRequest := inbound.SetClaimRequest{
		ItemID: *msg.ItemID,
		UserID: client.userID,
		Status: status,
	}

	cl, err := handler.claimService.SetClaim(ctx, claimRequest)
	if err != nil {
		// Send error message back to client
		errorMsg := NewErrorMessage(err.Error(), msg.ItemID)
		return client.Send(errorMsg)
	}

	response := NewServerMessage(MessageTypeClaimUpdated)
	response.ItemID = msg.ItemID
	if cl == nil {
		// Requesting the current status again removed the claim
		response.Data["removed"] = true
	} else {
		response.Data["claim_id"] = cl.ID
		response.Data["status"] = string(cl.Status)
		response.Data["bid_amount"] = cl.BidAmount
	}

	handler.logger.Info().Str("client_id", client.id).Str("item_id", msg.ItemID.String()).Str("status", statusStr).Msg("Claim updated")
	return client.Send(response)
}

// handleSetBid handles a bid amount update on an interested claim
func (handler *WsHandler) handleSetBid(client *WsClient, msg *ClientMessage) error {
	claimIDStr, ok := msg.Data["claim_id"].(string)
	if !ok {
		return shared.ErrClaimIDRequired
	}
	claimID, err := uuid.Parse(claimIDStr)
	if err != nil {
		return shared.ErrClaimIDRequired
	}

	amount, ok := msg.Data["amount"].(float64)
	if !ok {
		return shared.ErrInvalidAmount
	}

	ctx := context.Background()

	bidRequest := inbound.SetBidRequest{
		ClaimID: claimID,
		Amount:  int(amount),
	}

	cl, err := handler.claimService.SetBid(ctx, bidRequest)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), msg.ItemID)
		return client.Send(errorMsg)
	}

	response := NewServerMessage(MessageTypeBidUpdated)
	response.ItemID = &cl.ItemID
	response.Data["claim_id"] = cl.ID
	// The stored amount may be lower than requested when the unit
	// had fewer points available
	response.Data["bid_amount"] = cl.BidAmount

	handler.logger.Info().Str("claim_id", cl.ID.String()).Str("item_id", cl.ItemID.String()).Int("bid_amount", cl.BidAmount).Msg("Bid updated")
	return client.Send(response)
}

// handleCreateItem handles item uploads
func (handler *WsHandler) handleCreateItem(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	name, ok := msg.Data["name"].(string)
	if !ok {
		return shared.ErrItemNameRequired
	}

	description, _ := msg.Data["description"].(string)
	imageURL, _ := msg.Data["image_url"].(string)
	expiresAt, _ := msg.Data["expires_at"].(string)

	itemRequest := inbound.CreateItemRequest{
		Name:        name,
		Description: description,
		ImageURL:    imageURL,
		UploadedBy:  client.userID,
		ExpiresAt:   expiresAt,
	}

	it, err := handler.itemService.CreateItem(ctx, itemRequest)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), nil)
		return client.Send(errorMsg)
	}

	response := handler.createItemResponse(it, MessageTypeItemCreated)

	handler.logger.Info().Str("item_id", it.ID.String()).Str("user_id", client.userID.String()).Msg("Item created")
	return client.Send(response)
}

// handleGetItem handles getting item details
func (handler *WsHandler) handleGetItem(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	it, err := handler.itemService.GetItem(ctx, *msg.ItemID)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), msg.ItemID)
		return client.Send(errorMsg)
	}

	response := handler.createItemResponse(it, MessageTypeItemUpdate)

	return client.Send(response)
}

// handleListItems handles listing items
func (handler *WsHandler) handleListItems(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	limit := 10
	if limitVal, ok := msg.Data["limit"].(float64); ok {
		limit = int(limitVal)
	}

	offset := 0
	if offsetVal, ok := msg.Data["offset"].(float64); ok {
		offset = int(offsetVal)
	}

	var status *item.Status
	if statusStr, ok := msg.Data["status"].(string); ok && statusStr != "" {
		s := item.Status(statusStr)
		status = &s
	}

	itemRequest := inbound.ListItemsRequest{
		Page:     offset/limit + 1, // Convert offset to page
		PageSize: limit,
		Status:   status,
	}

	items, err := handler.itemService.ListItems(ctx, itemRequest)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), nil)
		return client.Send(errorMsg)
	}

	response := NewServerMessage(MessageTypeItemUpdate)
	response.Data["items"] = items
	response.Data["count"] = len(items)

	return client.Send(response)
}

// handleListSection handles the per-user browse sections
func (handler *WsHandler) handleListSection(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	sectionStr, ok := msg.Data["section"].(string)
	if !ok {
		return shared.ErrInvalidRequest
	}

	items, err := handler.itemService.ListSection(ctx, client.userID, inbound.Section(sectionStr))
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), nil)
		return client.Send(errorMsg)
	}

	response := NewServerMessage(MessageTypeItemUpdate)
	response.Data["section"] = sectionStr
	response.Data["items"] = items
	response.Data["count"] = len(items)

	return client.Send(response)
}

// handleCreateProfile handles household member onboarding
func (handler *WsHandler) handleCreateProfile(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	firstName, ok := msg.Data["first_name"].(string)
	if !ok || firstName == "" {
		return shared.ErrFirstNameRequired
	}

	var coupleID *uuid.UUID
	if coupleStr, ok := msg.Data["couple_id"].(string); ok && coupleStr != "" {
		parsed, err := uuid.Parse(coupleStr)
		if err != nil {
			return shared.ErrInvalidRequest
		}
		coupleID = &parsed
	}

	profileRequest := inbound.CreateProfileRequest{
		FirstName: firstName,
		CoupleID:  coupleID,
	}

	profile, err := handler.profileService.CreateProfile(ctx, profileRequest)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), nil)
		return client.Send(errorMsg)
	}

	response := NewServerMessage(MessageTypeProfileCreated)
	response.Data["profile_id"] = profile.ID
	response.Data["first_name"] = profile.FirstName
	response.Data["points"] = profile.Points
	if profile.CoupleID != nil {
		response.Data["couple_id"] = profile.CoupleID
	}

	handler.logger.Info().Str("profile_id", profile.ID.String()).Str("first_name", profile.FirstName).Msg("Profile created")
	return client.Send(response)
}

// handleListProfiles handles listing the household directory
func (handler *WsHandler) handleListProfiles(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	profiles, err := handler.profileService.ListProfiles(ctx)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), nil)
		return client.Send(errorMsg)
	}

	response := NewServerMessage(MessageTypeProfileList)
	response.Data["profiles"] = profiles
	response.Data["count"] = len(profiles)

	return client.Send(response)
}

func (handler *WsHandler) createItemResponse(it *item.Item, msgType MessageType) *ServerMessage {
	response := NewServerMessage(msgType)
	response.ItemID = &it.ID

	response.Data["name"] = it.Name
	response.Data["description"] = it.Description
	response.Data["image_url"] = it.ImageURL
	response.Data["uploaded_by"] = it.UploadedBy
	response.Data["status"] = it.Status
	response.Data["expires_at"] = it.ExpiresAt.Format(time.RFC3339)
	if it.WinnerID != nil {
		response.Data["winner_id"] = it.WinnerID
	}

	return response
}
