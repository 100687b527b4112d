package chain

import (
	"fmt"
	"strings"

	"github.com/disco-quotidie/send-btc-simplified/pkg/btcunit"
)

// FeeTier selects one of the recommended rates of a FeeEstimate.
type FeeTier uint8

const (
	// FeeTierFastest targets the next block.
	FeeTierFastest FeeTier = iota

	// FeeTierHalfHour targets confirmation within three blocks.
	FeeTierHalfHour

	// FeeTierHour targets confirmation within six blocks.
	FeeTierHour

	// FeeTierEconomy targets confirmation within a day or so.
	FeeTierEconomy

	// FeeTierMinimum is the minimum rate the backend relays.
	FeeTierMinimum
)

// String returns the name of the tier.
func (f FeeTier) String() string {
	switch f {
	case FeeTierFastest:
		return "fastest"

	case FeeTierHalfHour:
		return "halfhour"

	case FeeTierHour:
		return "hour"

	case FeeTierEconomy:
		return "economy"

	case FeeTierMinimum:
		return "minimum"

	default:
		return fmt.Sprintf("FeeTier(%d)", uint8(f))
	}
}

// ParseFeeTier parses a tier name as printed by String.
func ParseFeeTier(name string) (FeeTier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fastest", "":
		return FeeTierFastest, nil

	case "halfhour", "half-hour":
		return FeeTierHalfHour, nil

	case "hour":
		return FeeTierHour, nil

	case "economy":
		return FeeTierEconomy, nil

	case "minimum":
		return FeeTierMinimum, nil

	default:
		return FeeTierFastest, fmt.Errorf("%w: %q", ErrUnknownFeeTier,
			name)
	}
}

// FeeEstimate holds the recommended fee rates of a backend.
type FeeEstimate struct {
	Fastest  btcunit.SatPerVByte
	HalfHour btcunit.SatPerVByte
	Hour     btcunit.SatPerVByte
	Economy  btcunit.SatPerVByte
	Minimum  btcunit.SatPerVByte
}

// Rate returns the rate of the given tier. Unknown tiers map to Fastest.
func (f *FeeEstimate) Rate(tier FeeTier) btcunit.SatPerVByte {
	switch tier {
	case FeeTierHalfHour:
		return f.HalfHour

	case FeeTierHour:
		return f.Hour

	case FeeTierEconomy:
		return f.Economy

	case FeeTierMinimum:
		return f.Minimum

	default:
		return f.Fastest
	}
}

// String returns a human-readable summary of the estimate.
func (f *FeeEstimate) String() string {
	return fmt.Sprintf("fastest=%v halfhour=%v hour=%v economy=%v "+
		"minimum=%v", f.Fastest, f.HalfHour, f.Hour, f.Economy,
		f.Minimum)
}
