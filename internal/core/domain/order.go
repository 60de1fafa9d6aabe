package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusRunnerAccepted OrderStatus = "runner_accepted"
	StatusRunnerAtATM    OrderStatus = "runner_at_atm"
	StatusCashWithdrawn  OrderStatus = "cash_withdrawn"
	StatusPendingHandoff OrderStatus = "pending_handoff"
	StatusCompleted      OrderStatus = "completed"
	StatusCancelled      OrderStatus = "cancelled"
)

// statusRank orders the happy path. Terminal states carry no rank.
var statusRank = map[OrderStatus]int{
	StatusPending:        0,
	StatusRunnerAccepted: 1,
	StatusRunnerAtATM:    2,
	StatusCashWithdrawn:  3,
	StatusPendingHandoff: 4,
	StatusCompleted:      5,
}

// Terminal reports whether no further transition is permitted.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition validates a single step of the order lifecycle:
// forward-only along the happy path, one step at a time, with
// cancellation reachable from any non-terminal state.
func CanTransition(from, to OrderStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank == fromRank+1
}

type DeliveryStyle string

const (
	StyleSpeed   DeliveryStyle = "SPEED"
	StyleCounted DeliveryStyle = "COUNTED"
)

const (
	// Amounts are minor units (cents), same convention as the ledger
	// this grew out of: $100.00 is 10000.
	MinOrderAmount int64 = 100 * 100
	MaxOrderAmount int64 = 1000 * 100
)

// ValidAmount reports whether a requested cash amount is within the
// product's delivery bounds.
func ValidAmount(amount int64) bool {
	return amount >= MinOrderAmount && amount <= MaxOrderAmount
}

// Order is the delivery transaction. The pickup_* fields are a snapshot
// of the selected ATM taken once at creation and never re-resolved.
type Order struct {
	ID              uuid.UUID     `json:"id"`
	CustomerID      uuid.UUID     `json:"customer_id"`
	RunnerID        *uuid.UUID    `json:"runner_id,omitempty"`
	RequestedAmount int64         `json:"requested_amount"`
	Status          OrderStatus   `json:"status"`
	DeliveryStyle   DeliveryStyle `json:"delivery_style"`

	PickupAtmID   string  `json:"pickup_atm_id"`
	PickupLat     float64 `json:"pickup_lat"`
	PickupLng     float64 `json:"pickup_lng"`
	PickupAddress string  `json:"pickup_address"`

	CustomerAddressID string  `json:"customer_address_id"`
	AddressSnapshot   string  `json:"address_snapshot"`
	AddressLat        float64 `json:"address_lat"`
	AddressLng        float64 `json:"address_lng"`

	OtpCode       *string    `json:"-"`
	OtpExpiresAt  *time.Time `json:"otp_expires_at,omitempty"`
	OtpAttempts   int        `json:"otp_attempts"`
	OtpVerifiedAt *time.Time `json:"otp_verified_at,omitempty"`

	RunnerAcceptedAt   *time.Time `json:"runner_accepted_at,omitempty"`
	RunnerAtAtmAt      *time.Time `json:"runner_at_atm_at,omitempty"`
	CashWithdrawnAt    *time.Time `json:"cash_withdrawn_at,omitempty"`
	HandoffCompletedAt *time.Time `json:"handoff_completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// OrderEvent is an append-only audit row. ClientActionID makes replays
// of the same client action (reconnects, reloads) collapse to one row.
type OrderEvent struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	ClientActionID string    `json:"client_action_id"`
	CreatedAt      time.Time `json:"created_at"`
}

const EventRunnerArrived = "runner_arrived"

// OrderIssue is raised when the customer disputes a counted handoff.
// Resolution is manual; the flow stops here for support.
type OrderIssue struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
