package db

import (
	"context"
	"database/sql"
	"fmt"

	"dibs-service/internal/domain/shared"

	"github.com/google/uuid"
)

// ProfileRepository implements the profile directory interface
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*shared.Profile, error) {
	query := `
		SELECT id, first_name, couple_id, points
		FROM profiles
		WHERE id = $1
	`

	var profile shared.Profile
	err := r.conn.GetDB().QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&profile.FirstName,
		&profile.CoupleID,
		&profile.Points,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

// List retrieves the full profile directory
func (r *ProfileRepository) List(ctx context.Context) ([]*shared.Profile, error) {
	query := `
		SELECT id, first_name, couple_id, points
		FROM profiles
		ORDER BY first_name ASC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*shared.Profile
	for rows.Next() {
		var profile shared.Profile
		err := rows.Scan(
			&profile.ID,
			&profile.FirstName,
			&profile.CoupleID,
			&profile.Points,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, &profile)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}

// Create creates a new profile
func (r *ProfileRepository) Create(ctx context.Context, profile *shared.Profile) error {
	query := `
		INSERT INTO profiles (id, first_name, couple_id, points)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		profile.ID,
		profile.FirstName,
		profile.CoupleID,
		profile.Points,
	)

	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// DeductPoints subtracts the winning bid from the winner's balance and,
// for couples, from the partner's mirrored balance. Both rows change in
// one statement inside one transaction, so partners never drift apart.
func (r *ProfileRepository) DeductPoints(ctx context.Context, winnerID uuid.UUID, coupleID *uuid.UUID, amount int) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		query := `
			UPDATE profiles
			SET points = points - $1
			WHERE id = $2 OR ($3::uuid IS NOT NULL AND couple_id = $3)
		`

		result, err := tx.ExecContext(ctx, query, amount, winnerID, coupleID)
		if err != nil {
			return fmt.Errorf("failed to deduct points: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return shared.ErrProfileNotFound
		}

		return nil
	})
}
