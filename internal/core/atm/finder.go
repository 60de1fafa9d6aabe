package atm

import (
	"context"
	"fmt"
	"sort"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/domain"
	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/geo"
)

// AtmDirectory is the read side of the externally-maintained ATM
// dataset.
type AtmDirectory interface {
	ListActiveAtms(ctx context.Context) ([]domain.AtmLocation, error)
	GetAtm(ctx context.Context, id string) (*domain.AtmLocation, error)
}

// scoreTieEpsilon treats scores this close as equal so the nearer
// candidate sorts first.
const scoreTieEpsilon = 0.1

// Finder queries the directory around a point and returns scored,
// admissible candidates.
type Finder struct {
	directory  AtmDirectory
	classifier *Classifier
}

func NewFinder(directory AtmDirectory, classifier *Classifier) *Finder {
	return &Finder{directory: directory, classifier: classifier}
}

// Find returns candidates within radiusMeters sorted best-first: score
// descending, near-equal scores broken by distance. Disallowed venues
// are dropped entirely; a zero-length result means "nothing in radius",
// while a directory failure is an error.
func (f *Finder) Find(ctx context.Context, lat, lng, radiusMeters float64) ([]domain.AtmCandidate, error) {
	atms, err := f.directory.ListActiveAtms(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDirectoryUnavailable, err)
	}

	candidates := make([]domain.AtmCandidate, 0, len(atms))
	for _, a := range atms {
		if !a.Eligible() {
			continue
		}
		dist := geo.DistanceMeters(lat, lng, a.Lat, a.Lng)
		if dist > radiusMeters {
			continue
		}
		bank := f.classifier.IsBankQuality(a)
		if !bank && f.classifier.IsDisallowed(a) {
			continue
		}
		candidates = append(candidates, domain.AtmCandidate{
			Atm:            a,
			DistanceMeters: dist,
			Score:          f.classifier.Score(a, dist),
			BankQuality:    bank,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		di := candidates[i]
		dj := candidates[j]
		if diff := di.Score - dj.Score; diff > scoreTieEpsilon || diff < -scoreTieEpsilon {
			return di.Score > dj.Score
		}
		return di.DistanceMeters < dj.DistanceMeters
	})

	return candidates, nil
}
