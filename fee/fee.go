package fee

import (
	"fmt"
	"strings"

	"github.com/alphabill-org/txplanner/asset"
)

const (
	TierLow FeeTier = iota
	TierMedium
	TierHigh
)

type (
	// Fee is the transaction fee, a value in the fee asset.
	Fee struct {
		asset.Value
	}

	// FeeTier scales the base fee, higher tiers pay more for faster
	// inclusion. The zero value is TierLow.
	FeeTier uint8
)

// tierMultipliers are percentages of the base fee paid by each tier.
var tierMultipliers = [...]uint64{
	TierLow:    105,
	TierMedium: 130,
	TierHigh:   200,
}

var tierNames = [...]string{
	TierLow:    "low",
	TierMedium: "medium",
	TierHigh:   "high",
}

func FromStakingTokenAmount(amount asset.Amount) Fee {
	return Fee{Value: asset.NewValue(asset.StakingTokenID, amount)}
}

// ApplyTier returns the fee multiplied by the tier multiplier, rounded down.
func (f Fee) ApplyTier(tier FeeTier) Fee {
	return Fee{Value: asset.NewValue(f.AssetID, f.Amount.MulDiv(tier.multiplier(), 100))}
}

func (f Fee) String() string {
	return f.Value.String()
}

func (t FeeTier) multiplier() uint64 {
	if int(t) < len(tierMultipliers) {
		return tierMultipliers[t]
	}
	return tierMultipliers[TierLow]
}

func (t FeeTier) String() string {
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return fmt.Sprintf("FeeTier(%d)", uint8(t))
}

// Set implements pflag.Value.
func (t *FeeTier) Set(s string) error {
	for i, name := range tierNames {
		if strings.EqualFold(s, name) {
			*t = FeeTier(i)
			return nil
		}
	}
	return fmt.Errorf("unknown fee tier %q, expected one of %s", s, strings.Join(tierNames[:], ", "))
}

// Type implements pflag.Value.
func (t *FeeTier) Type() string {
	return "feeTier"
}

func (t FeeTier) MarshalText() ([]byte, error) {
	if int(t) >= len(tierNames) {
		return nil, fmt.Errorf("invalid fee tier %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *FeeTier) UnmarshalText(src []byte) error {
	return t.Set(string(src))
}
