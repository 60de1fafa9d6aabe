package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WebhookQueue enqueues lifecycle events for the background worker.
// Implements the handoff service's EventSink.
type WebhookQueue struct {
	db  *pgxpool.Pool
	url string
}

func NewWebhookQueue(db *pgxpool.Pool, url string) *WebhookQueue {
	return &WebhookQueue{db: db, url: url}
}

func (q *WebhookQueue) Enqueue(ctx context.Context, event string, payload any) error {
	if q.url == "" {
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"event": event,
		"data":  payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `INSERT INTO webhook_jobs (url, payload) VALUES ($1, $2)`
	if _, err := q.db.Exec(ctx, query, q.url, body); err != nil {
		return fmt.Errorf("failed to queue webhook job: %w", err)
	}
	return nil
}
