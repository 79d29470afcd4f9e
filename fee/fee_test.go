package fee

import (
	"encoding/json"
	"testing"

	"github.com/alphabill-org/txplanner/asset"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestGasPrices_Fee(t *testing.T) {
	tests := []struct {
		name   string
		prices GasPrices
		gas    Gas
		want   uint64
	}{
		{
			name:   "zero prices",
			prices: GasPrices{},
			gas:    Gas{BlockSpace: 1000, CompactBlockSpace: 1000, Verification: 1000, Execution: 1000},
			want:   0,
		},
		{
			name:   "zero gas",
			prices: NewGasPrices(1, 2, 3, 4),
			want:   0,
		},
		{
			name:   "each dimension",
			prices: NewGasPrices(1000, 2000, 3000, 4000),
			gas:    Gas{BlockSpace: 1, CompactBlockSpace: 1, Verification: 1, Execution: 1},
			want:   10,
		},
		{
			name:   "terms are rounded down separately",
			prices: NewGasPrices(1, 1, 1, 1),
			gas:    Gas{BlockSpace: 999, CompactBlockSpace: 999, Verification: 999, Execution: 999},
			want:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.prices.Fee(tt.gas)
			require.Equal(t, asset.StakingTokenID, f.AssetID)
			require.Equal(t, asset.NewAmount(tt.want), f.Amount)
		})
	}
}

func TestGasPrices_FeeDoesNotWrap(t *testing.T) {
	f := NewGasPrices(^uint64(0), 0, 0, 0).Fee(Gas{BlockSpace: ^uint64(0)})
	v, ok := f.Amount.Uint64()
	require.False(t, ok, "expected value above 64 bits, got %d", v)
}

func TestGasPrices_FeeAsset(t *testing.T) {
	other := asset.Denom("uother").ID()
	p := NewGasPrices(1000, 0, 0, 0)
	p.AssetID = other
	f := p.Fee(Gas{BlockSpace: 7})
	require.Equal(t, asset.NewValue(other, asset.NewAmount(7)), f.Value)
}

func TestGas_Add(t *testing.T) {
	g := Gas{BlockSpace: 1, CompactBlockSpace: 2, Verification: 3, Execution: 4}
	require.Equal(t, Gas{BlockSpace: 2, CompactBlockSpace: 4, Verification: 6, Execution: 8}, g.Add(g))
	require.Equal(t, g, ZeroGas().Add(g))
	require.Equal(t, ^uint64(0), Gas{Execution: ^uint64(0)}.Add(Gas{Execution: 1}).Execution)
	require.True(t, ZeroGas().IsZero())
}

func TestFee_ApplyTier(t *testing.T) {
	base := FromStakingTokenAmount(asset.NewAmount(1000))
	require.Equal(t, asset.NewAmount(1050), base.ApplyTier(TierLow).Amount)
	require.Equal(t, asset.NewAmount(1300), base.ApplyTier(TierMedium).Amount)
	require.Equal(t, asset.NewAmount(2000), base.ApplyTier(TierHigh).Amount)

	// rounds down
	require.Equal(t, asset.NewAmount(1), FromStakingTokenAmount(asset.NewAmount(1)).ApplyTier(TierMedium).Amount)
	// default tier is low
	var tier FeeTier
	require.Equal(t, TierLow, tier)
}

func TestFeeTier_Flag(t *testing.T) {
	var tier FeeTier
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(&tier, "fee-tier", "fee tier")

	require.NoError(t, fs.Parse([]string{"--fee-tier", "HIGH"}))
	require.Equal(t, TierHigh, tier)

	err := fs.Parse([]string{"--fee-tier", "ludicrous"})
	require.ErrorContains(t, err, `unknown fee tier "ludicrous", expected one of low, medium, high`)
	require.Equal(t, "feeTier", tier.Type())
}

func TestFeeTier_JSON(t *testing.T) {
	b, err := json.Marshal(struct{ Tier FeeTier }{Tier: TierMedium})
	require.NoError(t, err)
	require.JSONEq(t, `{"Tier":"medium"}`, string(b))

	var v struct{ Tier FeeTier }
	require.NoError(t, json.Unmarshal([]byte(`{"Tier":"low"}`), &v))
	require.Equal(t, TierLow, v.Tier)

	_, err = json.Marshal(FeeTier(9))
	require.ErrorContains(t, err, "invalid fee tier 9")
}
