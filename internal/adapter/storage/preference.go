package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/domain"
)

// PreferenceRepository persists the address→ATM cache.
type PreferenceRepository struct {
	db *pgxpool.Pool
}

func NewPreferenceRepository(db *pgxpool.Pool) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// GetTopPreference returns the entry repeat orders should reuse:
// most-used first, most recent on ties.
func (r *PreferenceRepository) GetTopPreference(ctx context.Context, addressID string) (*domain.AddressAtmPreference, error) {
	query := `
		SELECT customer_address_id, atm_id, times_used, last_used_at
		FROM address_atm_preferences
		WHERE customer_address_id = $1
		ORDER BY times_used DESC, last_used_at DESC
		LIMIT 1
	`
	var p domain.AddressAtmPreference
	err := r.db.QueryRow(ctx, query, addressID).Scan(
		&p.CustomerAddressID, &p.AtmID, &p.TimesUsed, &p.LastUsedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read atm preference: %w", err)
	}
	return &p, nil
}

// UpsertPreference inserts a fresh (address, atm) pair or bumps the
// existing one. Concurrent writers collapse to last-write-wins, which
// is fine: nothing depends on an exact use count.
func (r *PreferenceRepository) UpsertPreference(ctx context.Context, addressID, atmID string) error {
	query := `
		INSERT INTO address_atm_preferences (customer_address_id, atm_id, times_used, last_used_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (customer_address_id, atm_id)
		DO UPDATE SET times_used = address_atm_preferences.times_used + 1, last_used_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, addressID, atmID); err != nil {
		return fmt.Errorf("failed to upsert atm preference: %w", err)
	}
	return nil
}

func (r *PreferenceRepository) DeletePreference(ctx context.Context, addressID, atmID string) error {
	query := `DELETE FROM address_atm_preferences WHERE customer_address_id = $1 AND atm_id = $2`
	if _, err := r.db.Exec(ctx, query, addressID, atmID); err != nil {
		return fmt.Errorf("failed to delete atm preference: %w", err)
	}
	return nil
}
