package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/atm"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/domain"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/handoff"
)

// memStore is an in-memory handoff.OrderStore for handler tests.
type memStore struct {
	orders map[uuid.UUID]*domain.Order
}

func (m *memStore) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memStore) AssignRunner(ctx context.Context, orderID, runnerID uuid.UUID) (bool, error) {
	o, ok := m.orders[orderID]
	if !ok || o.RunnerID != nil || o.Status != domain.StatusPending {
		return false, nil
	}
	rid := runnerID
	o.RunnerID = &rid
	o.Status = domain.StatusRunnerAccepted
	return true, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus, reason string) (bool, error) {
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *memStore) SetOtp(ctx context.Context, orderID uuid.UUID, code string, expiresAt time.Time) error {
	o := m.orders[orderID]
	o.OtpCode = &code
	o.OtpExpiresAt = &expiresAt
	o.OtpAttempts = 0
	o.OtpVerifiedAt = nil
	return nil
}

func (m *memStore) IncrementOtpAttempts(ctx context.Context, orderID uuid.UUID) (int, error) {
	o := m.orders[orderID]
	o.OtpAttempts++
	return o.OtpAttempts, nil
}

func (m *memStore) MarkOtpVerified(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	o := m.orders[orderID]
	o.OtpVerifiedAt = &at
	return nil
}

func (m *memStore) AppendEvent(ctx context.Context, orderID uuid.UUID, clientActionID string) error {
	return nil
}

func (m *memStore) CreateIssue(ctx context.Context, orderID uuid.UUID, reason string) error {
	return nil
}

type memDirectory struct {
	atms []domain.AtmLocation
}

func (d *memDirectory) ListActiveAtms(ctx context.Context) ([]domain.AtmLocation, error) {
	return d.atms, nil
}

func (d *memDirectory) GetAtm(ctx context.Context, id string) (*domain.AtmLocation, error) {
	for _, a := range d.atms {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, nil
}

type memPrefs struct{}

func (memPrefs) GetTopPreference(ctx context.Context, addressID string) (*domain.AddressAtmPreference, error) {
	return nil, nil
}
func (memPrefs) UpsertPreference(ctx context.Context, addressID, atmID string) error { return nil }
func (memPrefs) DeletePreference(ctx context.Context, addressID, atmID string) error { return nil }

func newTestApp(store *memStore) *fiber.App {
	dir := &memDirectory{atms: []domain.AtmLocation{
		{ID: "chase-1", Name: "Chase Bank", Address: "100 Biscayne Blvd", Lat: 25.78, Lng: -80.19},
	}}
	selector := atm.NewSelector(dir, memPrefs{}, atm.NewClassifier(atm.DefaultKeywords()))
	service := handoff.NewService(store, selector, nil)
	h := &OrderHandler{Service: service}

	app := fiber.New()
	// Stand-in for the API-key middleware.
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("runner_id", uuid.NewString())
		return c.Next()
	})
	api := app.Group("/v1")
	api.Post("/orders", h.CreateOrder)
	api.Get("/orders/:id", h.GetOrder)
	api.Post("/orders/:id/accept", h.AcceptOrder)
	api.Post("/orders/:id/verify-otp", h.VerifyOTP)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func TestCreateOrderEndpoint(t *testing.T) {
	store := &memStore{orders: make(map[uuid.UUID]*domain.Order)}
	app := newTestApp(store)

	resp, body := doJSON(t, app, http.MethodPost, "/v1/orders", map[string]any{
		"customer_id": uuid.NewString(),
		"amount":      25000,
		"address":     "200 SE 1st St",
		"lat":         25.77,
		"lng":         -80.19,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "pending", body["status"])
	require.Equal(t, "chase-1", body["pickup_atm_id"])
}

func TestCreateOrderEndpointRejectsBadAmount(t *testing.T) {
	store := &memStore{orders: make(map[uuid.UUID]*domain.Order)}
	app := newTestApp(store)

	resp, body := doJSON(t, app, http.MethodPost, "/v1/orders", map[string]any{
		"customer_id": uuid.NewString(),
		"amount":      500,
		"lat":         25.77,
		"lng":         -80.19,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body["error"], "Amount")
}

func TestGetOrderEndpointNotFound(t *testing.T) {
	store := &memStore{orders: make(map[uuid.UUID]*domain.Order)}
	app := newTestApp(store)

	resp, _ := doJSON(t, app, http.MethodGet, "/v1/orders/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/v1/orders/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAcceptOrderEndpointConflictWhenTaken(t *testing.T) {
	store := &memStore{orders: make(map[uuid.UUID]*domain.Order)}
	app := newTestApp(store)

	orderID := uuid.New()
	runnerID := uuid.New()
	store.orders[orderID] = &domain.Order{
		ID: orderID, Status: domain.StatusRunnerAccepted, RunnerID: &runnerID,
	}

	resp, body := doJSON(t, app, http.MethodPost, "/v1/orders/"+orderID.String()+"/accept", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "order_taken", body["error"])
}

func TestVerifyOTPEndpointWrongCode(t *testing.T) {
	store := &memStore{orders: make(map[uuid.UUID]*domain.Order)}
	app := newTestApp(store)

	orderID := uuid.New()
	runnerID := uuid.New()
	code := "4821"
	expires := time.Now().Add(5 * time.Minute)
	store.orders[orderID] = &domain.Order{
		ID: orderID, Status: domain.StatusPendingHandoff, RunnerID: &runnerID,
		DeliveryStyle: domain.StyleSpeed, OtpCode: &code, OtpExpiresAt: &expires,
	}

	resp, body := doJSON(t, app, http.MethodPost, "/v1/orders/"+orderID.String()+"/verify-otp",
		map[string]any{"code": "0000"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "invalid_pin", body["error"])
	require.Equal(t, float64(2), body["attempts_remaining"])

	resp, body = doJSON(t, app, http.MethodPost, "/v1/orders/"+orderID.String()+"/verify-otp",
		map[string]any{"code": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
}
