package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dibs-service/internal/domain/item"
	"dibs-service/internal/domain/shared"

	"github.com/google/uuid"
)

// ItemRepository implements the item repository interface
type ItemRepository struct {
	conn *Connection
}

// NewItemRepository creates a new item repository
func NewItemRepository(conn *Connection) *ItemRepository {
	return &ItemRepository{conn: conn}
}

const itemColumns = `id, name, description, image_url, uploaded_by, status, expires_at, winner_id, resolved_at, created_at, updated_at`

// Create creates a new item
func (r *ItemRepository) Create(ctx context.Context, it *item.Item) error {
	query := `
		INSERT INTO items (id, name, description, image_url, uploaded_by, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		it.ID,
		it.Name,
		it.Description,
		it.ImageURL,
		it.UploadedBy,
		it.Status,
		it.ExpiresAt,
		it.CreatedAt,
		it.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// GetByID retrieves an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE id = $1
	`

	it, err := scanItem(r.conn.GetDB().QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return it, nil
}

// List retrieves a list of items with optional status filter
func (r *ItemRepository) List(ctx context.Context, status *item.Status, page, pageSize int) ([]*item.Item, error) {
	baseQuery := `
		SELECT ` + itemColumns + `
		FROM items
	`

	var whereClause string
	var args []interface{}
	argCount := 1

	if status != nil {
		whereClause = "WHERE status = $1"
		args = append(args, *status)
		argCount++
	}

	// Add pagination
	limitClause := fmt.Sprintf("LIMIT $%d", argCount)
	offsetClause := fmt.Sprintf("OFFSET $%d", argCount+1)
	args = append(args, pageSize, (page-1)*pageSize)

	query := baseQuery + whereClause + " ORDER BY created_at DESC " + limitClause + " " + offsetClause

	rows, err := r.conn.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// ListActiveExpired retrieves active items whose deadline has passed
func (r *ItemRepository) ListActiveExpired(ctx context.Context, now time.Time) ([]*item.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE status = 'active' AND expires_at <= $1
		ORDER BY expires_at ASC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// Resolve transitions an item to a terminal status. The WHERE clause
// requires the item to still be active, so concurrent evaluations commit
// at most one decision; the loser sees rowsAffected == 0.
func (r *ItemRepository) Resolve(ctx context.Context, id uuid.UUID, status item.Status, winnerID *uuid.UUID, resolvedAt time.Time) (bool, error) {
	query := `
		UPDATE items
		SET status = $2, winner_id = $3, resolved_at = $4, updated_at = $4
		WHERE id = $1 AND status = 'active'
	`

	result, err := r.conn.GetDB().ExecContext(ctx, query, id, status, winnerID, resolvedAt)
	if err != nil {
		return false, fmt.Errorf("failed to resolve item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// ExtendDeadline pushes an active item's deadline forward
func (r *ItemRepository) ExtendDeadline(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error) {
	query := `
		UPDATE items
		SET expires_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`

	result, err := r.conn.GetDB().ExecContext(ctx, query, id, expiresAt)
	if err != nil {
		return false, fmt.Errorf("failed to extend item deadline: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// Delete deletes an item
func (r *ItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM items WHERE id = $1`

	result, err := r.conn.GetDB().ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrItemNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*item.Item, error) {
	var it item.Item
	err := row.Scan(
		&it.ID,
		&it.Name,
		&it.Description,
		&it.ImageURL,
		&it.UploadedBy,
		&it.Status,
		&it.ExpiresAt,
		&it.WinnerID,
		&it.ResolvedAt,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func collectItems(rows *sql.Rows) ([]*item.Item, error) {
	var items []*item.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}
