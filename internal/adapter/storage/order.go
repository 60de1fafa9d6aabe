package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/domain"
)

// OrderRepository is the pgx OrderStore. Race-sensitive writes are
// single conditional UPDATEs so the database decides every contest.
type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `
	id, customer_id, runner_id, requested_amount, status, delivery_style,
	pickup_atm_id, pickup_lat, pickup_lng, pickup_address,
	customer_address_id, address_snapshot, address_lat, address_lng,
	otp_code, otp_expires_at, otp_attempts, otp_verified_at,
	runner_accepted_at, runner_at_atm_at, cash_withdrawn_at,
	handoff_completed_at, cancelled_at, COALESCE(cancellation_reason, ''),
	created_at`

func (r *OrderRepository) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	var o domain.Order
	err := r.db.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.CustomerID, &o.RunnerID, &o.RequestedAmount, &o.Status, &o.DeliveryStyle,
		&o.PickupAtmID, &o.PickupLat, &o.PickupLng, &o.PickupAddress,
		&o.CustomerAddressID, &o.AddressSnapshot, &o.AddressLat, &o.AddressLng,
		&o.OtpCode, &o.OtpExpiresAt, &o.OtpAttempts, &o.OtpVerifiedAt,
		&o.RunnerAcceptedAt, &o.RunnerAtAtmAt, &o.CashWithdrawnAt,
		&o.HandoffCompletedAt, &o.CancelledAt, &o.CancellationReason,
		&o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (
			id, customer_id, requested_amount, status, delivery_style,
			pickup_atm_id, pickup_lat, pickup_lng, pickup_address,
			customer_address_id, address_snapshot, address_lat, address_lng,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.Exec(ctx, query,
		o.ID, o.CustomerID, o.RequestedAmount, o.Status, o.DeliveryStyle,
		o.PickupAtmID, o.PickupLat, o.PickupLng, o.PickupAddress,
		o.CustomerAddressID, o.AddressSnapshot, o.AddressLat, o.AddressLng,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// AssignRunner implements "first runner to accept wins": the WHERE
// clause only matches an open pending order, so concurrent accepts
// resolve to exactly one affected row.
func (r *OrderRepository) AssignRunner(ctx context.Context, orderID, runnerID uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET runner_id = $2, status = $3, runner_accepted_at = NOW()
		WHERE id = $1 AND runner_id IS NULL AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, orderID, runnerID,
		domain.StatusRunnerAccepted, domain.StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to accept order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateStatus transitions from→to and stamps the matching milestone
// column. Zero rows affected means the order left `from` concurrently.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus, cancellationReason string) (bool, error) {
	milestone := map[domain.OrderStatus]string{
		domain.StatusRunnerAtATM:   "runner_at_atm_at",
		domain.StatusCashWithdrawn: "cash_withdrawn_at",
		domain.StatusCompleted:     "handoff_completed_at",
		domain.StatusCancelled:     "cancelled_at",
	}

	query := `UPDATE orders SET status = $3`
	if col, ok := milestone[to]; ok {
		query += fmt.Sprintf(", %s = NOW()", col)
	}
	args := []any{orderID, from, to}
	if to == domain.StatusCancelled {
		query += ", cancellation_reason = $4"
		args = append(args, cancellationReason)
	}
	query += ` WHERE id = $1 AND status = $2`

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepository) SetOtp(ctx context.Context, orderID uuid.UUID, code string, expiresAt time.Time) error {
	query := `
		UPDATE orders
		SET otp_code = $2, otp_expires_at = $3, otp_attempts = 0, otp_verified_at = NULL
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, orderID, code, expiresAt); err != nil {
		return fmt.Errorf("failed to set otp: %w", err)
	}
	return nil
}

// IncrementOtpAttempts is atomic so concurrent wrong guesses each burn
// an attempt.
func (r *OrderRepository) IncrementOtpAttempts(ctx context.Context, orderID uuid.UUID) (int, error) {
	query := `UPDATE orders SET otp_attempts = otp_attempts + 1 WHERE id = $1 RETURNING otp_attempts`
	var attempts int
	if err := r.db.QueryRow(ctx, query, orderID).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("failed to increment otp attempts: %w", err)
	}
	return attempts, nil
}

func (r *OrderRepository) MarkOtpVerified(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	query := `UPDATE orders SET otp_verified_at = $2 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, orderID, at); err != nil {
		return fmt.Errorf("failed to mark otp verified: %w", err)
	}
	return nil
}

// AppendEvent records a client action at most once per order. Replays
// hit the unique constraint and collapse silently.
func (r *OrderRepository) AppendEvent(ctx context.Context, orderID uuid.UUID, clientActionID string) error {
	query := `
		INSERT INTO order_events (id, order_id, client_action_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id, client_action_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, uuid.New(), orderID, clientActionID); err != nil {
		return fmt.Errorf("failed to append order event: %w", err)
	}
	return nil
}

func (r *OrderRepository) CreateIssue(ctx context.Context, orderID uuid.UUID, reason string) error {
	query := `INSERT INTO order_issues (id, order_id, reason) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(ctx, query, uuid.New(), orderID, reason); err != nil {
		return fmt.Errorf("failed to create order issue: %w", err)
	}
	return nil
}
