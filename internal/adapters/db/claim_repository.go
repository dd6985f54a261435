package db

import (
	"context"
	"database/sql"
	"fmt"

	"dibs-service/internal/domain/claim"
	"dibs-service/internal/domain/shared"

	"github.com/google/uuid"
)

// ClaimRepository implements the claim repository interface
type ClaimRepository struct {
	conn *Connection
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(conn *Connection) *ClaimRepository {
	return &ClaimRepository{conn: conn}
}

const claimColumns = `id, item_id, user_id, status, bid_amount, created_at, updated_at`

// Create creates a new claim. The unique (item_id, user_id) index
// enforces one claim per member per item.
func (r *ClaimRepository) Create(ctx context.Context, cl *claim.Claim) error {
	query := `
		INSERT INTO claims (id, item_id, user_id, status, bid_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		cl.ID,
		cl.ItemID,
		cl.UserID,
		cl.Status,
		cl.BidAmount,
		cl.CreatedAt,
		cl.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}

	return nil
}

// GetByID retrieves a claim by ID
func (r *ClaimRepository) GetByID(ctx context.Context, id uuid.UUID) (*claim.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE id = $1
	`

	cl, err := scanClaim(r.conn.GetDB().QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	return cl, nil
}

// GetByItemID retrieves all claims for an item, oldest first so grouping
// order follows first appearance
func (r *ClaimRepository) GetByItemID(ctx context.Context, itemID uuid.UUID) ([]*claim.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE item_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get claims: %w", err)
	}
	defer rows.Close()

	return collectClaims(rows)
}

// GetByUserID retrieves all claims made by a user
func (r *ClaimRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*claim.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user claims: %w", err)
	}
	defer rows.Close()

	return collectClaims(rows)
}

// GetByItemAndUser retrieves the claim a user holds on an item
func (r *ClaimRepository) GetByItemAndUser(ctx context.Context, itemID, userID uuid.UUID) (*claim.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE item_id = $1 AND user_id = $2
	`

	cl, err := scanClaim(r.conn.GetDB().QueryRowContext(ctx, query, itemID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	return cl, nil
}

// Update updates a claim
func (r *ClaimRepository) Update(ctx context.Context, cl *claim.Claim) error {
	query := `
		UPDATE claims
		SET status = $2, bid_amount = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.conn.GetDB().ExecContext(ctx, query,
		cl.ID,
		cl.Status,
		cl.BidAmount,
		cl.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update claim: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrClaimNotFound
	}

	return nil
}

// Delete deletes a claim
func (r *ClaimRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM claims WHERE id = $1`

	result, err := r.conn.GetDB().ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete claim: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrClaimNotFound
	}

	return nil
}

func scanClaim(row rowScanner) (*claim.Claim, error) {
	var cl claim.Claim
	err := row.Scan(
		&cl.ID,
		&cl.ItemID,
		&cl.UserID,
		&cl.Status,
		&cl.BidAmount,
		&cl.CreatedAt,
		&cl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

func collectClaims(rows *sql.Rows) ([]*claim.Claim, error) {
	var claims []*claim.Claim
	for rows.Next() {
		cl, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, cl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claims: %w", err)
	}

	return claims, nil
}
