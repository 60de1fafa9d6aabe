package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RunnerRepository struct {
	db *pgxpool.Pool
}

func NewRunnerRepository(db *pgxpool.Pool) *RunnerRepository {
	return &RunnerRepository{db: db}
}

type Runner struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *RunnerRepository) CreateRunner(ctx context.Context, fullName, phone string) (*Runner, error) {
	query := `
		INSERT INTO runners (full_name, phone)
		VALUES ($1, $2)
		RETURNING id, full_name, phone, created_at
	`
	var runner Runner
	err := r.db.QueryRow(ctx, query, fullName, phone).Scan(
		&runner.ID, &runner.FullName, &runner.Phone, &runner.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	return &runner, nil
}

// SaveAPIKey stores the hashed key for the runner. The raw key is never
// persisted.
func (r *RunnerRepository) SaveAPIKey(ctx context.Context, runnerID uuid.UUID, keyHash, keyPrefix string) error {
	query := `INSERT INTO api_keys (runner_id, key_hash, key_prefix) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(ctx, query, runnerID, keyHash, keyPrefix); err != nil {
		return fmt.Errorf("failed to save api key: %w", err)
	}
	return nil
}
