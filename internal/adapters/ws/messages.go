package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"dibs-service/internal/domain/claim"
	"dibs-service/internal/domain/item"
	"dibs-service/internal/domain/shared"
	"dibs-service/internal/ports/outbound"

	"github.com/google/uuid"
)

type MessageType string

const (
	// Client to Server message types
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeSetClaim    MessageType = "set_claim"
	MessageTypeSetBid      MessageType = "set_bid"
	MessageTypeCreateItem  MessageType = "create_item"
	MessageTypeGetItem     MessageType = "get_item"
	MessageTypeListItems     MessageType = "list_items"
	MessageTypeListSection   MessageType = "list_section"
	MessageTypeCreateProfile MessageType = "create_profile"
	MessageTypeListProfiles  MessageType = "list_profiles"
	MessageTypePing          MessageType = "ping"

	// Server to Client message types
	MessageTypeClaimUpdated   MessageType = "claim_updated"
	MessageTypeBidUpdated     MessageType = "bid_updated"
	MessageTypeItemCreated    MessageType = "item_created"
	MessageTypeItemUpdate     MessageType = "item_update"
	MessageTypeProfileCreated MessageType = "profile_created"
	MessageTypeProfileList    MessageType = "profile_list"
	MessageTypeRecordChanged  MessageType = "record_changed"
	MessageTypeError          MessageType = "error"
	MessageTypePong           MessageType = "pong"
)

type ClientMessage struct {
	Type      MessageType            `json:"type"`
	ItemID    *uuid.UUID             `json:"item_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// ServerMessage represents a message sent from server to client
type ServerMessage struct {
	Type      MessageType            `json:"type"`
	ItemID    *uuid.UUID             `json:"item_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *string                `json:"error,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// ClaimData represents claim information in messages
type ClaimData struct {
	ClaimID   uuid.UUID    `json:"claim_id"`
	UserID    uuid.UUID    `json:"user_id"`
	Status    claim.Status `json:"status"`
	BidAmount int          `json:"bid_amount"`
	Timestamp time.Time    `json:"timestamp"`
}

type ItemData struct {
	ItemID    uuid.UUID   `json:"item_id"`
	Status    item.Status `json:"status"`
	WinnerID  *uuid.UUID  `json:"winner_id,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now().Unix(),
	}
}

func NewErrorMessage(err string, itemID *uuid.UUID) *ServerMessage {
	return &ServerMessage{
		Type:      MessageTypeError,
		ItemID:    itemID,
		Error:     &err,
		Timestamp: time.Now().Unix(),
	}
}

// NewRecordChangedMessage creates a record change notification message
func NewRecordChangedMessage(change outbound.Change) *ServerMessage {
	msg := NewServerMessage(MessageTypeRecordChanged)
	msg.Data["table"] = string(change.Table)
	msg.Data["kind"] = string(change.Kind)
	msg.Data["record_id"] = change.RecordID
	msg.Timestamp = change.Timestamp
	if change.Table == outbound.TableItems {
		msg.ItemID = &change.RecordID
	}
	return msg
}

func (m *ClientMessage) validateItemID() error {
	if m.ItemID == nil || *m.ItemID == uuid.Nil {
		return shared.ErrItemIDRequired
	}
	return nil
}

func (m *ClientMessage) validateTable() error {
	tableStr, ok := m.Data["table"].(string)
	if !ok || tableStr == "" {
		return shared.ErrTableRequired
	}
	if !outbound.Table(tableStr).IsValid() {
		return shared.ErrUnknownTable
	}
	return nil
}

// ParseClientMessage parses a JSON message from client
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}

	// Validate required fields
	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}

	return &msg, nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		if err := m.validateTable(); err != nil {
			return err
		}
	case MessageTypeSetClaim:
		if err := m.validateItemID(); err != nil {
			return err
		}
		status, ok := m.Data["status"].(string)
		if !ok || status == "" {
			return shared.ErrStatusRequired
		}
	case MessageTypeSetBid:
		if m.Data["claim_id"] == nil {
			return shared.ErrClaimIDRequired
		}
		if _, ok := m.Data["amount"].(float64); !ok {
			return shared.ErrInvalidAmount
		}
	case MessageTypeCreateItem:
		if m.Data["name"] == nil {
			return shared.ErrItemNameRequired
		}
	case MessageTypeGetItem:
		if err := m.validateItemID(); err != nil {
			return err
		}
	case MessageTypeListItems:

	case MessageTypeListSection:
		if m.Data["section"] == nil {
			return shared.ErrInvalidRequest
		}
	case MessageTypeCreateProfile:
		name, ok := m.Data["first_name"].(string)
		if !ok || name == "" {
			return shared.ErrFirstNameRequired
		}
	case MessageTypeListProfiles:

	case MessageTypePing:

	default:
		return shared.ErrUnknownMessageType
	}

	return nil
}
