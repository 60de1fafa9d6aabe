package atm

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/domain"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/geo"
)

// Search bounds. A runner is never routed past MaxReasonableDistance
// when any sane alternative exists.
const (
	MaxSearchRadius       = 10000.0
	MaxBankRadius         = 4000.0
	MaxReasonableDistance = 4000.0
)

// PreferenceStore caches address→ATM choices across orders.
type PreferenceStore interface {
	// GetTopPreference returns the most-used, most-recently-used entry
	// for the address, or nil when there is none.
	GetTopPreference(ctx context.Context, addressID string) (*domain.AddressAtmPreference, error)
	// UpsertPreference inserts with times_used=1 or bumps the existing
	// pair's counter and last-used timestamp.
	UpsertPreference(ctx context.Context, addressID, atmID string) error
	DeletePreference(ctx context.Context, addressID, atmID string) error
}

// SelectionRequest locates the delivery address a pickup ATM is chosen
// for.
type SelectionRequest struct {
	AddressID string
	Lat       float64
	Lng       float64
}

// Selector is the ATM subsystem's entry point: preference fast-path,
// bank-first fresh selection, safety-distance re-check, preference
// persistence.
type Selector struct {
	finder     *Finder
	directory  AtmDirectory
	prefs      PreferenceStore
	classifier *Classifier
}

func NewSelector(directory AtmDirectory, prefs PreferenceStore, classifier *Classifier) *Selector {
	return &Selector{
		finder:     NewFinder(directory, classifier),
		directory:  directory,
		prefs:      prefs,
		classifier: classifier,
	}
}

// SelectBestForAddress picks the pickup ATM for a delivery address.
// Returns nil (no error) when nothing admissible exists within the
// search radius. Invalid coordinates are fatal: a default ATM is never
// silently substituted for bad input.
func (s *Selector) SelectBestForAddress(ctx context.Context, req SelectionRequest) (*domain.AtmSelectionResult, error) {
	if !validCoordinates(req.Lat, req.Lng) {
		return nil, domain.ErrInvalidAddressCoordinates
	}

	if req.AddressID != "" {
		result, err := s.fromPreference(ctx, req)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}

	candidates, err := s.finder.Find(ctx, req.Lat, req.Lng, MaxSearchRadius)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		slog.Warn("no admissible ATM in search radius",
			"address_id", req.AddressID, "radius_m", MaxSearchRadius)
		return nil, nil
	}

	chosen := choose(candidates)
	chosen = applySafetyBound(candidates, chosen)

	if req.AddressID != "" {
		if err := s.prefs.UpsertPreference(ctx, req.AddressID, chosen.Atm.ID); err != nil {
			return nil, err
		}
	}

	return resultFrom(chosen), nil
}

// fromPreference serves the repeat-delivery fast path. A cached ATM that
// went inactive or no longer classifies as bank-quality is evicted so
// the next step recomputes from scratch.
func (s *Selector) fromPreference(ctx context.Context, req SelectionRequest) (*domain.AtmSelectionResult, error) {
	pref, err := s.prefs.GetTopPreference(ctx, req.AddressID)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		return nil, nil
	}

	atm, err := s.directory.GetAtm(ctx, pref.AtmID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDirectoryUnavailable, err)
	}
	if atm == nil || !atm.Eligible() {
		if err := s.prefs.DeletePreference(ctx, req.AddressID, pref.AtmID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if !s.classifier.IsBankQuality(*atm) {
		slog.Info("evicting stale ATM preference",
			"address_id", req.AddressID, "atm_id", pref.AtmID)
		if err := s.prefs.DeletePreference(ctx, req.AddressID, pref.AtmID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	dist := geo.DistanceMeters(req.Lat, req.Lng, atm.Lat, atm.Lng)
	if err := s.prefs.UpsertPreference(ctx, req.AddressID, atm.ID); err != nil {
		return nil, err
	}

	return resultFrom(domain.AtmCandidate{
		Atm:            *atm,
		DistanceMeters: dist,
		Score:          s.classifier.Score(*atm, dist),
		BankQuality:    true,
	}), nil
}

// choose applies the bank-first policy to the score-sorted candidate
// set: a known bank inside MaxBankRadius beats any non-bank regardless
// of score, proximity decides among banks.
func choose(candidates []domain.AtmCandidate) domain.AtmCandidate {
	var nearbyBank, nearbyOther []domain.AtmCandidate
	for _, c := range candidates {
		if c.DistanceMeters > MaxBankRadius {
			continue
		}
		if c.BankQuality {
			nearbyBank = append(nearbyBank, c)
		} else {
			nearbyOther = append(nearbyOther, c)
		}
	}

	if len(nearbyBank) > 0 {
		return nearest(nearbyBank)
	}
	if len(nearbyOther) > 0 {
		// Already score-sorted with distance tie-breaks.
		return nearbyOther[0]
	}

	// Nothing within the bank radius: prefer any bank in the full set,
	// nearest first, before falling back to the best-scored candidate.
	var banks []domain.AtmCandidate
	for _, c := range candidates {
		if c.BankQuality {
			banks = append(banks, c)
		}
	}
	if len(banks) > 0 {
		return nearest(banks)
	}
	return candidates[0]
}

// applySafetyBound re-checks a far choice against the full candidate
// set: substitute a closer bank within the reasonable radius when one
// exists, otherwise accept the nearest-overall candidate only if it is
// strictly closer than the far choice.
func applySafetyBound(candidates []domain.AtmCandidate, chosen domain.AtmCandidate) domain.AtmCandidate {
	if chosen.DistanceMeters <= MaxReasonableDistance {
		return chosen
	}

	var reasonableBanks []domain.AtmCandidate
	for _, c := range candidates {
		if c.BankQuality && c.DistanceMeters <= MaxReasonableDistance {
			reasonableBanks = append(reasonableBanks, c)
		}
	}
	if len(reasonableBanks) > 0 {
		sub := nearest(reasonableBanks)
		slog.Info("substituted far ATM with reasonable bank",
			"from_atm", chosen.Atm.ID, "to_atm", sub.Atm.ID)
		return sub
	}

	closest := nearest(candidates)
	if closest.BankQuality && closest.DistanceMeters <= MaxReasonableDistance {
		return closest
	}
	if closest.DistanceMeters < chosen.DistanceMeters {
		return closest
	}
	return chosen
}

func nearest(candidates []domain.AtmCandidate) domain.AtmCandidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.DistanceMeters < best.DistanceMeters {
			best = c
		}
	}
	return best
}

func resultFrom(c domain.AtmCandidate) *domain.AtmSelectionResult {
	return &domain.AtmSelectionResult{
		AtmID:          c.Atm.ID,
		AtmName:        c.Atm.Name,
		AtmAddress:     c.Atm.Address,
		AtmLat:         c.Atm.Lat,
		AtmLng:         c.Atm.Lng,
		DistanceMeters: int(math.Round(c.DistanceMeters)),
		Score:          c.Score,
	}
}

// validCoordinates rejects NaN/Inf, out-of-range degrees and zero-ish
// values. A missing geocode comes through as the zero value, so a
// near-zero lat or lng individually means the coordinate was never set;
// neither axis passes through the service area.
func validCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return false
	}
	if math.Abs(lat) < 1e-6 || math.Abs(lng) < 1e-6 {
		return false
	}
	return true
}
