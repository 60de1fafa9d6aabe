package domain

import "errors"

// Raised errors: the caller did something wrong or a backing system is
// down. These propagate immediately, no retries inside the core.
// Expected outcomes of the handoff flow (wrong pin, lost accept race)
// are not errors; the handoff package reports those as result codes.
var (
	ErrInvalidAddressCoordinates = errors.New("address coordinates are missing or invalid")
	ErrInvalidAmount             = errors.New("requested amount outside delivery bounds")
	ErrNoAtmAvailable            = errors.New("no atm available near this address")
	ErrDirectoryUnavailable      = errors.New("atm directory query failed")
	ErrOrderNotFound             = errors.New("order not found")
	ErrInvalidTransition         = errors.New("illegal order status transition")
	ErrStateMismatch             = errors.New("order state does not allow this action")
)
