package outbound

import (
	"context"

	"github.com/google/uuid"
)

// Table identifies a record-store table changes are reported for
type Table string

const (
	TableItems    Table = "items"
	TableClaims   Table = "claims"
	TableProfiles Table = "profiles"
)

// IsValid returns true for a table changes can be subscribed to
func (t Table) IsValid() bool {
	return t == TableItems || t == TableClaims || t == TableProfiles
}

// ChangeKind represents the kind of row mutation that occurred
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Change represents a row-change notification for one record
type Change struct {
	Table     Table      `json:"table"`
	Kind      ChangeKind `json:"kind"`
	RecordID  uuid.UUID  `json:"record_id"`
	Timestamp int64      `json:"timestamp"`
}

// ChangeNotifier defines the interface for record-store change notifications.
// Subscribers register a callback channel per table; every committed row
// mutation is published with its table and change kind.
type ChangeNotifier interface {
	// Subscribe subscribes a client to changes on a table.
	// When a client subscribes to multiple tables, all changes are delivered to the same channel
	Subscribe(ctx context.Context, table Table, clientID string, changeChan chan Change) error

	// Unsubscribe unsubscribes a client from changes on a table
	Unsubscribe(ctx context.Context, table Table, clientID string) error

	// Publish publishes a change to all subscribers of its table
	Publish(ctx context.Context, change Change) error

	// IsSubscribed checks if a client is subscribed to a table
	IsSubscribed(ctx context.Context, table Table, clientID string) bool

	// RemoveClient drops every subscription a client holds. Callers
	// invoke it when the client disconnects, before tearing down the
	// client's change channel.
	RemoveClient(ctx context.Context, clientID string) error
}
