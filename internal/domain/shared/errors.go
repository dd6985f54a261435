package shared

import "errors"

// Domain-specific errors
var (
	// Item errors
	ErrItemNotFound     = errors.New("item not found")
	ErrItemNotActive    = errors.New("item is no longer active")
	ErrInvalidExpiresAt = errors.New("expiration time cannot be in the past")
	ErrItemNameRequired = errors.New("item name is required")

	// Claim errors
	ErrClaimNotFound      = errors.New("claim not found")
	ErrInvalidClaimStatus = errors.New("claim status must be interested or declined")
	ErrClaimNotInterested = errors.New("bids are only allowed on interested claims")
	ErrBidAmountNegative  = errors.New("bid amount must be non-negative")

	// Profile errors
	ErrProfileNotFound   = errors.New("profile not found")
	ErrFirstNameRequired = errors.New("first name is required")

	// Validation errors
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrInvalidRequest    = errors.New("invalid request")

	// Database errors
	ErrDatabaseConnection  = errors.New("database connection failed")
	ErrDatabaseQuery       = errors.New("database query failed")
	ErrDatabaseTransaction = errors.New("database transaction failed")

	// WebSocket errors
	ErrWebSocketConnection = errors.New("websocket connection failed")
	ErrWebSocketMessage    = errors.New("websocket message error")

	// WebSocket message validation errors
	ErrMessageTypeRequired = errors.New("message type is required")
	ErrItemIDRequired      = errors.New("item_id is required")
	ErrClaimIDRequired     = errors.New("claim_id is required")
	ErrTableRequired       = errors.New("table is required")
	ErrStatusRequired      = errors.New("status is required")
	ErrInvalidAmount       = errors.New("valid amount is required")
	ErrInvalidItemIDFormat = errors.New("invalid item_id format")
	ErrUnknownMessageType  = errors.New("unknown message type")
	ErrUnknownTable        = errors.New("unknown table")

	// Notification errors
	ErrPublishFailed        = errors.New("change publish failed")
	ErrClientNotSubscribed  = errors.New("client not subscribed to table")
	ErrEventChannelNotFound = errors.New("client event channel not found")
)
