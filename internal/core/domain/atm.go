package domain

import "time"

type AtmStatus string

const (
	AtmActive     AtmStatus = "active"
	AtmTempClosed AtmStatus = "temp_closed"
	AtmPermClosed AtmStatus = "perm_closed"
)

// AtmLocation is a row from the externally-maintained ATM directory.
// Nullable columns come through as zero values: an empty Name means the
// operator is unknown, an empty Status means active.
type AtmLocation struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	IsInBranch bool      `json:"is_in_branch"`
	IsInStore  bool      `json:"is_in_store"`
	Open24h    bool      `json:"open_24h"`
	Status     AtmStatus `json:"status"`
}

// Eligible reports whether the ATM may be offered as a pickup point.
func (a AtmLocation) Eligible() bool {
	return a.Status == AtmActive || a.Status == ""
}

// AtmCandidate is an AtmLocation annotated for one selection request.
// Never persisted.
type AtmCandidate struct {
	Atm            AtmLocation
	DistanceMeters float64
	Score          float64
	BankQuality    bool
}

// AtmSelectionResult is the snapshot the order-creation flow copies onto
// the order. DistanceMeters is rounded to whole meters.
type AtmSelectionResult struct {
	AtmID          string  `json:"atm_id"`
	AtmName        string  `json:"atm_name"`
	AtmAddress     string  `json:"atm_address"`
	AtmLat         float64 `json:"atm_lat"`
	AtmLng         float64 `json:"atm_lng"`
	DistanceMeters int     `json:"distance_meters"`
	Score          float64 `json:"score"`
}

// AddressAtmPreference caches the ATM last chosen for a delivery address
// so repeat orders skip the full directory scan.
type AddressAtmPreference struct {
	CustomerAddressID string    `json:"customer_address_id"`
	AtmID             string    `json:"atm_id"`
	TimesUsed         int       `json:"times_used"`
	LastUsedAt        time.Time `json:"last_used_at"`
}
