package atm

import (
	"strings"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/domain"
)

// Score weights. Quality dominates; distance contributes a few points
// per hundred meters so it only breaks near-ties.
const (
	heavyPenalty   = -200.0
	vicePenalty    = -120.0
	topTierBonus   = 120.0
	midTierBonus   = 110.0
	regionalBonus  = 100.0
	genericBonus   = 60.0
	inBranchBonus  = 40.0
	open24hBonus   = 5.0
	inStorePenalty = -10.0

	distanceDivisor = 50.0
)

// Classifier decides whether an ATM belongs to a recognized bank and
// assigns candidates a ranking score.
type Classifier struct {
	kw Keywords
}

func NewClassifier(kw Keywords) *Classifier {
	return &Classifier{kw: kw}
}

// IsBankQuality reports whether the ATM belongs to a recognized bank or
// credit union. A disallowed match always wins: "Chase ATM at Shell
// Station" is not bank-quality.
func (c *Classifier) IsBankQuality(a domain.AtmLocation) bool {
	name := strings.ToLower(strings.TrimSpace(a.Name))
	if name == "" {
		return false
	}
	if containsAny(name, c.kw.Disallowed) {
		return false
	}
	return containsAny(name, c.kw.TopTierBanks) ||
		containsAny(name, c.kw.MidTierBanks) ||
		containsAny(name, c.kw.RegionalBanks) ||
		matchesGeneric(name, c.kw.GenericBank)
}

// IsDisallowed reports whether the name matches a hard-excluded
// operator. The finder drops these outright.
func (c *Classifier) IsDisallowed(a domain.AtmLocation) bool {
	name := strings.ToLower(strings.TrimSpace(a.Name))
	if name == "" {
		return false
	}
	return containsAny(name, c.kw.Disallowed)
}

// Score ranks a candidate: brand trust first, then placement and
// availability, minus a mild continuous distance penalty.
func (c *Classifier) Score(a domain.AtmLocation, distanceMeters float64) float64 {
	name := strings.ToLower(strings.TrimSpace(a.Name))
	score := 0.0

	switch {
	case containsAny(name, c.kw.HeavyPenalty):
		score += heavyPenalty
	case containsAny(name, c.kw.VicePenalty):
		score += vicePenalty
	case containsAny(name, c.kw.TopTierBanks):
		score += topTierBonus
	case containsAny(name, c.kw.MidTierBanks):
		score += midTierBonus
	case containsAny(name, c.kw.RegionalBanks):
		score += regionalBonus
	case matchesGeneric(name, c.kw.GenericBank):
		score += genericBonus
	}

	if a.IsInBranch {
		score += inBranchBonus
	}
	if a.Open24h {
		score += open24hBonus
	}
	if a.IsInStore {
		score += inStorePenalty
	}

	return score - distanceMeters/distanceDivisor
}

func containsAny(name string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// matchesGeneric matches multi-word terms as substrings but short
// abbreviations ("cu") only as standalone words, so "cuban cafe" does
// not classify as a credit union.
func matchesGeneric(name string, keywords []string) bool {
	words := strings.Fields(name)
	for _, kw := range keywords {
		if len(kw) <= 2 {
			for _, w := range words {
				if strings.Trim(w, ".,-") == kw {
					return true
				}
			}
			continue
		}
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
