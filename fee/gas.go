package fee

import (
	"fmt"

	"github.com/alphabill-org/txplanner/asset"
	"github.com/holiman/uint256"
)

// priceDenominator is the implicit denominator of every gas price, prices
// are expressed in thousandths of the fee asset base unit.
const priceDenominator = 1000

type (
	// Gas is the resource usage of an action or transaction along four
	// independent dimensions.
	Gas struct {
		BlockSpace        uint64 `json:"blockSpace"`
		CompactBlockSpace uint64 `json:"compactBlockSpace"`
		Verification      uint64 `json:"verification"`
		Execution         uint64 `json:"execution"`
	}

	// GasPrices are per dimension prices of gas, paid in AssetID.
	GasPrices struct {
		BlockSpacePrice        uint64   `json:"blockSpacePrice"`
		CompactBlockSpacePrice uint64   `json:"compactBlockSpacePrice"`
		VerificationPrice      uint64   `json:"verificationPrice"`
		ExecutionPrice         uint64   `json:"executionPrice"`
		AssetID                asset.ID `json:"assetId"`
	}
)

func ZeroGas() Gas {
	return Gas{}
}

// Add returns the component-wise sum, saturating each dimension.
func (g Gas) Add(other Gas) Gas {
	return Gas{
		BlockSpace:        satAdd(g.BlockSpace, other.BlockSpace),
		CompactBlockSpace: satAdd(g.CompactBlockSpace, other.CompactBlockSpace),
		Verification:      satAdd(g.Verification, other.Verification),
		Execution:         satAdd(g.Execution, other.Execution),
	}
}

func (g Gas) IsZero() bool {
	return g == Gas{}
}

func (g Gas) String() string {
	return fmt.Sprintf("{block_space: %d, compact_block_space: %d, verification: %d, execution: %d}",
		g.BlockSpace, g.CompactBlockSpace, g.Verification, g.Execution)
}

func satAdd(a, b uint64) uint64 {
	if s := a + b; s >= a {
		return s
	}
	return ^uint64(0)
}

// NewGasPrices returns gas prices denominated in the staking token.
func NewGasPrices(blockSpace, compactBlockSpace, verification, execution uint64) GasPrices {
	return GasPrices{
		BlockSpacePrice:        blockSpace,
		CompactBlockSpacePrice: compactBlockSpace,
		VerificationPrice:      verification,
		ExecutionPrice:         execution,
		AssetID:                asset.StakingTokenID,
	}
}

// FeeAssetID returns the asset fees are paid in. Zero value prices are
// assumed to be denominated in the staking token.
func (p GasPrices) FeeAssetID() asset.ID {
	if p.AssetID.IsZero() {
		return asset.StakingTokenID
	}
	return p.AssetID
}

// Fee returns the base fee of the gas usage, ie sum of price*gas/1000 over
// all dimensions, each term rounded down. The result saturates to the
// amount range.
func (p GasPrices) Fee(g Gas) Fee {
	total := new(uint256.Int)
	for _, d := range [...][2]uint64{
		{p.BlockSpacePrice, g.BlockSpace},
		{p.CompactBlockSpacePrice, g.CompactBlockSpace},
		{p.VerificationPrice, g.Verification},
		{p.ExecutionPrice, g.Execution},
	} {
		term := new(uint256.Int).Mul(uint256.NewInt(d[0]), uint256.NewInt(d[1]))
		total.Add(total, term.Div(term, uint256.NewInt(priceDenominator)))
	}
	return Fee{Value: asset.NewValue(p.FeeAssetID(), asset.FromUint256(total))}
}
