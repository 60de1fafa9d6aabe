package atm

// Keywords is the classifier's tagged-list configuration. The lists are
// matched case-insensitively against the ATM operator name. Injected at
// construction so product can retune them without touching scoring code.
type Keywords struct {
	// Disallowed names are never surfaced, not even as a last resort.
	Disallowed []string
	// HeavyPenalty names score -200 (crypto kiosks, white-label operators).
	HeavyPenalty []string
	// VicePenalty names score -120 (smoke shops, liquor, gas brands).
	VicePenalty []string

	// Bank tiers, best first: +120 / +110 / +100.
	TopTierBanks  []string
	MidTierBanks  []string
	RegionalBanks []string
	// Generic bank terms: +60. Short tokens here ("cu") are matched as
	// whole words, not substrings.
	GenericBank []string
}

// DefaultKeywords is the production list, tuned for the South Florida
// launch market.
func DefaultKeywords() Keywords {
	return Keywords{
		Disallowed: []string{
			"bitcoin", "btc", "crypto", "coin cloud", "coinflip",
			"bitstop", "rockitcoin",
			"atm services", "d & b", "d&b",
			"shell", "chevron", "exxon", "mobil", "citgo", "sunoco",
			"valero", "marathon", "racetrac", "wawa",
			"7-eleven", "7 eleven", "circle k",
		},
		HeavyPenalty: []string{
			"bitcoin", "btc", "crypto", "coin cloud", "coinflip",
			"bitstop", "rockitcoin", "atm services", "d & b", "d&b",
		},
		VicePenalty: []string{
			"smoke", "liquor", "laundr", "vape", "tobacco",
			"shell", "chevron", "exxon", "mobil", "citgo", "sunoco",
			"valero", "marathon", "racetrac", "wawa",
		},
		TopTierBanks: []string{
			"chase", "bank of america", "wells fargo", "citibank", "citi",
		},
		MidTierBanks: []string{
			"td bank", "pnc", "truist", "regions", "fifth third",
			"capital one", "santander",
		},
		RegionalBanks: []string{
			"amerant", "ocean bank", "city national", "banesco",
			"pacific national", "first horizon", "synovus",
		},
		GenericBank: []string{
			"bank", "credit union", "cu",
		},
	}
}
