// Package handoff drives the order lifecycle from creation through the
// PIN-verified cash handoff. All guards read fresh server state; client
// claims are never trusted for a completing transition.
package handoff

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/atm"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/domain"
)

const (
	OtpTTL         = 10 * time.Minute
	MaxOtpAttempts = 3
	// CountingWindow is the minimum time a COUNTED handoff stays open
	// after PIN verification so the customer can actually count.
	CountingWindow = 20 * time.Second
)

// OrderStore is the persistence the protocol needs. Conditional writes
// (AssignRunner, UpdateStatus) report whether the row matched, which is
// how caller races are decided.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	CreateOrder(ctx context.Context, o *domain.Order) error
	// AssignRunner sets the runner and moves pending→runner_accepted in
	// one conditional update. False means another runner won.
	AssignRunner(ctx context.Context, orderID, runnerID uuid.UUID) (bool, error)
	// UpdateStatus transitions from→to, stamping the milestone column
	// for to. False means the order was no longer in from.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus, cancellationReason string) (bool, error)
	// SetOtp installs a fresh code, resets the attempt counter and
	// clears any prior verification.
	SetOtp(ctx context.Context, orderID uuid.UUID, code string, expiresAt time.Time) error
	// IncrementOtpAttempts bumps the counter atomically and returns the
	// new value.
	IncrementOtpAttempts(ctx context.Context, orderID uuid.UUID) (int, error)
	MarkOtpVerified(ctx context.Context, orderID uuid.UUID, at time.Time) error
	// AppendEvent records (order, clientActionID) at most once.
	AppendEvent(ctx context.Context, orderID uuid.UUID, clientActionID string) error
	CreateIssue(ctx context.Context, orderID uuid.UUID, reason string) error
}

// EventSink queues lifecycle notifications for asynchronous delivery.
type EventSink interface {
	Enqueue(ctx context.Context, event string, payload any) error
}

// VerifyResult is the outcome of a PIN submission. Wrong and expired
// codes are expected outcomes, not errors.
type VerifyResult struct {
	Success                   bool   `json:"success"`
	RequiresCountConfirmation bool   `json:"requires_count_confirmation,omitempty"`
	AttemptsRemaining         int    `json:"attempts_remaining"`
	Error                     string `json:"error,omitempty"`
}

// ActionResult is the outcome of a guarded handoff action.
type ActionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

const (
	ErrCodeInvalidPin        = "invalid_pin"
	ErrCodePinExpired        = "pin_expired"
	ErrCodeAttemptsExhausted = "attempts_exhausted"
	ErrCodeStateMismatch     = "state_mismatch"
	ErrCodeCountingWindow    = "counting_window"
	ErrCodeOrderTaken        = "order_taken"
)

type CreateOrderRequest struct {
	CustomerID    uuid.UUID
	Amount        int64
	DeliveryStyle domain.DeliveryStyle
	AddressID     string
	AddressText   string
	AddressLat    float64
	AddressLng    float64
}

// Service implements the exposed order operations.
type Service struct {
	store    OrderStore
	selector *atm.Selector
	events   EventSink

	now    func() time.Time
	newPin func() (string, error)
}

func NewService(store OrderStore, selector *atm.Selector, events EventSink) *Service {
	return &Service{
		store:    store,
		selector: selector,
		events:   events,
		now:      time.Now,
		newPin:   generatePin,
	}
}

// CreateOrder validates the request, runs ATM selection exactly once and
// inserts the order at pending with the pickup snapshot frozen in.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, domain.ErrInvalidAmount
	}
	style := req.DeliveryStyle
	if style == "" {
		style = domain.StyleSpeed
	}
	if style != domain.StyleSpeed && style != domain.StyleCounted {
		return nil, fmt.Errorf("%w: unknown delivery style %q", domain.ErrStateMismatch, req.DeliveryStyle)
	}

	pickup, err := s.selector.SelectBestForAddress(ctx, atm.SelectionRequest{
		AddressID: req.AddressID,
		Lat:       req.AddressLat,
		Lng:       req.AddressLng,
	})
	if err != nil {
		return nil, err
	}
	if pickup == nil {
		return nil, domain.ErrNoAtmAvailable
	}

	order := &domain.Order{
		ID:                uuid.New(),
		CustomerID:        req.CustomerID,
		RequestedAmount:   req.Amount,
		Status:            domain.StatusPending,
		DeliveryStyle:     style,
		PickupAtmID:       pickup.AtmID,
		PickupLat:         pickup.AtmLat,
		PickupLng:         pickup.AtmLng,
		PickupAddress:     pickup.AtmAddress,
		CustomerAddressID: req.AddressID,
		AddressSnapshot:   req.AddressText,
		AddressLat:        req.AddressLat,
		AddressLng:        req.AddressLng,
		CreatedAt:         s.now(),
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.notify(ctx, "order.created", order)
	slog.Info("order created",
		"order_id", order.ID, "atm_id", pickup.AtmID, "distance_m", pickup.DistanceMeters)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// AcceptOrder races runners for an open order; exactly one wins. The
// decision lives in the store's conditional update, not here.
func (s *Service) AcceptOrder(ctx context.Context, orderID, runnerID uuid.UUID) (ActionResult, error) {
	ok, err := s.store.AssignRunner(ctx, orderID, runnerID)
	if err != nil {
		return ActionResult{}, err
	}
	if !ok {
		o, err := s.store.GetOrder(ctx, orderID)
		if err != nil {
			return ActionResult{}, err
		}
		if o == nil {
			return ActionResult{}, domain.ErrOrderNotFound
		}
		return ActionResult{Error: ErrCodeOrderTaken}, nil
	}

	s.notify(ctx, "order.accepted", map[string]any{"order_id": orderID, "runner_id": runnerID})
	slog.Info("order accepted", "order_id", orderID, "runner_id", runnerID)
	return ActionResult{Success: true}, nil
}

// AdvanceStatus moves the order one step along the happy path. Entering
// cash_withdrawn issues the handoff PIN as a side effect; completion and
// cancellation have their own guarded paths and are rejected here.
func (s *Service) AdvanceStatus(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus) (*domain.Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch target {
	case domain.StatusRunnerAccepted:
		return nil, fmt.Errorf("%w: acceptance goes through the accept endpoint", domain.ErrStateMismatch)
	case domain.StatusCancelled:
		return nil, fmt.Errorf("%w: cancellation goes through the cancel endpoint", domain.ErrStateMismatch)
	case domain.StatusCompleted:
		return nil, fmt.Errorf("%w: completion requires pin verification", domain.ErrStateMismatch)
	}
	if !domain.CanTransition(o.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, target)
	}
	if target == domain.StatusPendingHandoff && o.OtpCode == nil {
		return nil, fmt.Errorf("%w: no pin issued yet", domain.ErrStateMismatch)
	}

	ok, err := s.store.UpdateStatus(ctx, orderID, o.Status, target, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: order moved concurrently", domain.ErrStateMismatch)
	}

	if target == domain.StatusCashWithdrawn {
		if _, err := s.issuePin(ctx, orderID); err != nil {
			return nil, err
		}
	}

	return s.GetOrder(ctx, orderID)
}

// GenerateOTP re-issues the handoff PIN, e.g. after expiry or an
// exhausted attempt budget. The previous code and counter are discarded.
func (s *Service) GenerateOTP(ctx context.Context, orderID uuid.UUID) (string, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if o.Status != domain.StatusCashWithdrawn && o.Status != domain.StatusPendingHandoff {
		return "", fmt.Errorf("%w: pin can only be issued after withdrawal", domain.ErrStateMismatch)
	}
	return s.issuePin(ctx, orderID)
}

func (s *Service) issuePin(ctx context.Context, orderID uuid.UUID) (string, error) {
	code, err := s.newPin()
	if err != nil {
		return "", err
	}
	if err := s.store.SetOtp(ctx, orderID, code, s.now().Add(OtpTTL)); err != nil {
		return "", err
	}
	slog.Info("handoff pin issued", "order_id", orderID, "ttl", OtpTTL)
	return code, nil
}

// VerifyOTP checks a submitted PIN against the fresh server record.
// Expiry and mismatches both consume an attempt; an exhausted budget
// requires re-issuance. SPEED orders complete on the spot, COUNTED
// orders open the counting window.
func (s *Service) VerifyOTP(ctx context.Context, orderID uuid.UUID, code string) (VerifyResult, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return VerifyResult{}, err
	}
	if o.Status != domain.StatusPendingHandoff || o.OtpCode == nil || o.OtpExpiresAt == nil {
		return VerifyResult{}, fmt.Errorf("%w: order is not awaiting handoff verification", domain.ErrStateMismatch)
	}

	if o.OtpAttempts >= MaxOtpAttempts {
		return VerifyResult{Error: ErrCodeAttemptsExhausted}, nil
	}

	if s.now().After(*o.OtpExpiresAt) {
		attempts, err := s.store.IncrementOtpAttempts(ctx, orderID)
		if err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{
			AttemptsRemaining: remaining(attempts),
			Error:             ErrCodePinExpired,
		}, nil
	}

	if code != *o.OtpCode {
		attempts, err := s.store.IncrementOtpAttempts(ctx, orderID)
		if err != nil {
			return VerifyResult{}, err
		}
		slog.Warn("pin mismatch", "order_id", orderID, "attempts", attempts)
		return VerifyResult{
			AttemptsRemaining: remaining(attempts),
			Error:             ErrCodeInvalidPin,
		}, nil
	}

	if err := s.store.MarkOtpVerified(ctx, orderID, s.now()); err != nil {
		return VerifyResult{}, err
	}

	if o.DeliveryStyle == domain.StyleCounted {
		return VerifyResult{Success: true, RequiresCountConfirmation: true}, nil
	}

	ok, err := s.store.UpdateStatus(ctx, orderID, domain.StatusPendingHandoff, domain.StatusCompleted, "")
	if err != nil {
		return VerifyResult{}, err
	}
	if !ok {
		// Lost to a concurrent cancel or verify; same shape as the
		// ConfirmCount conflict.
		return VerifyResult{Error: ErrCodeStateMismatch}, nil
	}
	s.notify(ctx, "order.completed", map[string]any{"order_id": orderID})
	slog.Info("handoff completed", "order_id", orderID, "style", o.DeliveryStyle)
	return VerifyResult{Success: true}, nil
}

// MarkArrived records the runner's arrival at the delivery address. The
// event key makes it idempotent: reconnecting clients can replay it
// freely and the arrival survives page reloads.
func (s *Service) MarkArrived(ctx context.Context, orderID uuid.UUID) (ActionResult, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return ActionResult{}, err
	}
	if o.Status.Terminal() || o.RunnerID == nil {
		return ActionResult{Error: ErrCodeStateMismatch}, nil
	}
	if err := s.store.AppendEvent(ctx, orderID, domain.EventRunnerArrived); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Success: true}, nil
}

// ConfirmCount completes a COUNTED handoff. Every guard re-reads server
// truth: status, verification flag, style and the elapsed counting
// window. Stale client state can never complete a delivery.
func (s *Service) ConfirmCount(ctx context.Context, orderID uuid.UUID) (ActionResult, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return ActionResult{}, err
	}
	if o.Status != domain.StatusPendingHandoff || o.OtpVerifiedAt == nil || o.DeliveryStyle != domain.StyleCounted {
		return ActionResult{Error: ErrCodeStateMismatch}, nil
	}
	if s.now().Sub(*o.OtpVerifiedAt) < CountingWindow {
		return ActionResult{Error: ErrCodeCountingWindow}, nil
	}

	ok, err := s.store.UpdateStatus(ctx, orderID, domain.StatusPendingHandoff, domain.StatusCompleted, "")
	if err != nil {
		return ActionResult{}, err
	}
	if !ok {
		return ActionResult{Error: ErrCodeStateMismatch}, nil
	}
	s.notify(ctx, "order.completed", map[string]any{"order_id": orderID})
	slog.Info("counted handoff confirmed", "order_id", orderID)
	return ActionResult{Success: true}, nil
}

// ReportCountIssue is the escape hatch when the counted amount is
// disputed: the order stays in pending_handoff and support takes over.
func (s *Service) ReportCountIssue(ctx context.Context, orderID uuid.UUID, reason string) (ActionResult, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return ActionResult{}, err
	}
	if o.Status != domain.StatusPendingHandoff || o.OtpVerifiedAt == nil || o.DeliveryStyle != domain.StyleCounted {
		return ActionResult{Error: ErrCodeStateMismatch}, nil
	}
	if err := s.store.CreateIssue(ctx, orderID, reason); err != nil {
		return ActionResult{}, err
	}
	s.notify(ctx, "order.flagged", map[string]any{"order_id": orderID, "reason": reason})
	slog.Warn("count issue reported", "order_id", orderID, "reason", reason)
	return ActionResult{Success: true}, nil
}

// CancelOrder is legal from any non-terminal state.
func (s *Service) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) (*domain.Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(o.Status, domain.StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, domain.StatusCancelled)
	}
	ok, err := s.store.UpdateStatus(ctx, orderID, o.Status, domain.StatusCancelled, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: order moved concurrently", domain.ErrStateMismatch)
	}
	s.notify(ctx, "order.cancelled", map[string]any{"order_id": orderID, "reason": reason})
	return s.GetOrder(ctx, orderID)
}

// notify queues a lifecycle webhook. Delivery is best-effort here; the
// worker owns retries, and a full queue never fails the user action.
func (s *Service) notify(ctx context.Context, event string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Enqueue(ctx, event, payload); err != nil {
		slog.Error("failed to queue lifecycle event", "event", event, "error", err)
	}
}

func remaining(attempts int) int {
	r := MaxOtpAttempts - attempts
	if r < 0 {
		return 0
	}
	return r
}

func generatePin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

