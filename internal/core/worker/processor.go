package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/notifications"
)

const maxAttempts = 5

// StartWebhookWorker polls the webhook_jobs table and delivers order
// lifecycle events. One job at a time, SKIP LOCKED, so multiple
// instances can share the queue.
func StartWebhookWorker(db *pgxpool.Pool, secret string) {
	go func() {
		slog.Info("webhook worker started")
		for {
			processJobs(db, secret)
			time.Sleep(5 * time.Second)
		}
	}()
}

func processJobs(db *pgxpool.Pool, secret string) {
	ctx := context.Background()

	query := `
		SELECT id, url, payload, attempts
		FROM webhook_jobs
		WHERE status = 'PENDING' AND next_run_at <= NOW()
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var id string
	var url string
	var payloadBytes []byte
	var attempts int

	err := db.QueryRow(ctx, query).Scan(&id, &url, &payloadBytes, &attempts)
	if err != nil {
		return
	}

	var payload interface{}
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		slog.Error("worker: failed to parse payload", "error", err, "job_id", id)
		markJob(ctx, db, id, "UPDATE webhook_jobs SET status = 'FAILED' WHERE id = $1")
		return
	}

	slog.Info("worker: processing job", "url", url, "job_id", id)

	sendErr := notifications.SendWebhook(url, payload, secret)
	if sendErr != nil {
		slog.Error("worker: webhook failed", "error", sendErr, "attempts", attempts)
		nextRun := time.Now().Add(time.Duration(attempts*10+10) * time.Second)

		if attempts >= maxAttempts {
			markJob(ctx, db, id, "UPDATE webhook_jobs SET status = 'FAILED' WHERE id = $1")
			slog.Error("worker: job marked as FAILED, max attempts reached", "job_id", id)
		} else {
			markJob(ctx, db, id, "UPDATE webhook_jobs SET status = 'PENDING', attempts = attempts + 1, next_run_at = $2 WHERE id = $1", nextRun)
			slog.Info("worker: scheduled retry", "next_run", nextRun, "job_id", id)
		}
		return
	}

	slog.Info("worker: webhook delivered", "job_id", id)
	// An unrecorded COMPLETED would redeliver the webhook next poll.
	markJob(ctx, db, id, "UPDATE webhook_jobs SET status = 'COMPLETED' WHERE id = $1")
}

func markJob(ctx context.Context, db *pgxpool.Pool, id string, query string, args ...any) {
	allArgs := append([]any{id}, args...)
	if _, err := db.Exec(ctx, query, allArgs...); err != nil {
		slog.Error("worker: failed to update job status", "error", err, "job_id", id)
	}
}
