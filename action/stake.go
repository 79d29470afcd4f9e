package action

import (
	"fmt"
	"io"

	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// RateScale is the fixed point denominator of exchange rates and penalties.
const RateScale = 1_0000_0000

type (
	// IdentityKey identifies a validator.
	IdentityKey [32]byte

	Epoch struct {
		Index       uint64 `json:"index"`
		StartHeight uint64 `json:"startHeight"`
	}

	// RateData is the exchange rate of the validator's delegation token in
	// an epoch.
	RateData struct {
		IdentityKey           IdentityKey `json:"identityKey"`
		EpochIndex            uint64      `json:"epochIndex"`
		ValidatorRewardRate   uint64      `json:"validatorRewardRate"`
		ValidatorExchangeRate uint64      `json:"validatorExchangeRate"`
	}

	// Penalty is the share of unbonding stake slashed, scaled by RateScale.
	Penalty uint64

	DelegatePlan struct {
		ValidatorIdentity IdentityKey  `json:"validatorIdentity"`
		EpochIndex        uint64       `json:"epochIndex"`
		UnbondedAmount    asset.Amount `json:"unbondedAmount"`
		DelegationAmount  asset.Amount `json:"delegationAmount"`
	}

	UndelegatePlan struct {
		ValidatorIdentity IdentityKey  `json:"validatorIdentity"`
		FromEpoch         Epoch        `json:"fromEpoch"`
		UnbondedAmount    asset.Amount `json:"unbondedAmount"`
		DelegationAmount  asset.Amount `json:"delegationAmount"`
	}

	UndelegateClaimPlan struct {
		ValidatorIdentity    IdentityKey  `json:"validatorIdentity"`
		UnbondingStartHeight uint64       `json:"unbondingStartHeight"`
		Penalty              Penalty      `json:"penalty"`
		UnbondingAmount      asset.Amount `json:"unbondingAmount"`
		BalanceBlinding      Blinding     `json:"balanceBlinding"`
		ProofBlindingR       Blinding     `json:"proofBlindingR"`
		ProofBlindingS       Blinding     `json:"proofBlindingS"`
	}

	FundingStream struct {
		Recipient string `json:"recipient"`
		RateBps   uint16 `json:"rateBps"`
	}

	// ValidatorDefinitionPlan uploads a new or updated validator definition.
	ValidatorDefinitionPlan struct {
		IdentityKey    IdentityKey     `json:"identityKey"`
		ConsensusKey   []byte          `json:"consensusKey"`
		Name           string          `json:"name"`
		Website        string          `json:"website"`
		Description    string          `json:"description"`
		Enabled        bool            `json:"enabled"`
		FundingStreams []FundingStream `json:"fundingStreams"`
		SequenceNumber uint32          `json:"sequenceNumber"`
		Signature      []byte          `json:"signature"`
	}
)

// DelegationDenom is the denomination of the delegation token of the
// validator.
func DelegationDenom(validator IdentityKey) asset.Denom {
	return asset.Denom(fmt.Sprintf("udelegation_%s", validator))
}

// UnbondingDenom is the denomination of the unbonding token of stake
// undelegated from the validator at startHeight.
func UnbondingDenom(validator IdentityKey, startHeight uint64) asset.Denom {
	return asset.Denom(fmt.Sprintf("uunbonding_start_at_%d_%s", startHeight, validator))
}

func (k IdentityKey) String() string {
	return hexutil.Encode(k[:])
}

func (k IdentityKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *IdentityKey) UnmarshalText(src []byte) error {
	return decodeFixed(k[:], src, "identity key")
}

// ParseIdentityKey parses 0x prefixed hex encoded identity key.
func ParseIdentityKey(s string) (IdentityKey, error) {
	var k IdentityKey
	err := k.UnmarshalText([]byte(s))
	return k, err
}

// DelegationAmount returns the amount of delegation tokens worth the
// unbonded amount of stake.
func (r *RateData) DelegationAmount(unbonded asset.Amount) asset.Amount {
	if r.ValidatorExchangeRate == 0 {
		return asset.Amount{}
	}
	return unbonded.MulDiv(RateScale, r.ValidatorExchangeRate)
}

// UnbondedAmount returns the amount of stake the delegation tokens are
// worth.
func (r *RateData) UnbondedAmount(delegation asset.Amount) asset.Amount {
	return delegation.MulDiv(r.ValidatorExchangeRate, RateScale)
}

func (r *RateData) BuildDelegate(epoch Epoch, unbonded asset.Amount) *DelegatePlan {
	return &DelegatePlan{
		ValidatorIdentity: r.IdentityKey,
		EpochIndex:        epoch.Index,
		UnbondedAmount:    unbonded,
		DelegationAmount:  r.DelegationAmount(unbonded),
	}
}

func (r *RateData) BuildUndelegate(epoch Epoch, delegation asset.Amount) *UndelegatePlan {
	return &UndelegatePlan{
		ValidatorIdentity: r.IdentityKey,
		FromEpoch:         epoch,
		UnbondedAmount:    r.UnbondedAmount(delegation),
		DelegationAmount:  delegation,
	}
}

// Apply returns the amount left after the penalty is deducted.
func (p Penalty) Apply(amount asset.Amount) asset.Amount {
	if p >= RateScale {
		return asset.Amount{}
	}
	v := amount.Uint256()
	v.Mul(v, uint256.NewInt(RateScale-uint64(p)))
	return asset.FromUint256(v.Div(v, uint256.NewInt(RateScale)))
}

// Balance consumes stake and produces delegation tokens.
func (p *DelegatePlan) Balance() asset.Balance {
	return balanceOf(
		[]asset.Value{asset.NewValue(DelegationDenom(p.ValidatorIdentity).ID(), p.DelegationAmount)},
		[]asset.Value{asset.NewValue(asset.StakingTokenID, p.UnbondedAmount)},
	)
}

func (p *DelegatePlan) GasCost() fee.Gas { return delegateGas() }
func (p *DelegatePlan) Kind() Kind       { return KindDelegate }
func (p *DelegatePlan) isPlan()          {}

func (p *UndelegatePlan) UnbondingDenom() asset.Denom {
	return UnbondingDenom(p.ValidatorIdentity, p.FromEpoch.StartHeight)
}

// Balance consumes delegation tokens and produces unbonding tokens.
func (p *UndelegatePlan) Balance() asset.Balance {
	return balanceOf(
		[]asset.Value{asset.NewValue(p.UnbondingDenom().ID(), p.UnbondedAmount)},
		[]asset.Value{asset.NewValue(DelegationDenom(p.ValidatorIdentity).ID(), p.DelegationAmount)},
	)
}

func (p *UndelegatePlan) GasCost() fee.Gas { return delegateGas() }
func (p *UndelegatePlan) Kind() Kind       { return KindUndelegate }
func (p *UndelegatePlan) isPlan()          {}

func NewUndelegateClaimPlan(rng io.Reader, validator IdentityKey, startHeight uint64, penalty Penalty, amount asset.Amount) *UndelegateClaimPlan {
	return &UndelegateClaimPlan{
		ValidatorIdentity:    validator,
		UnbondingStartHeight: startHeight,
		Penalty:              penalty,
		UnbondingAmount:      amount,
		BalanceBlinding:      NewBlinding(rng),
		ProofBlindingR:       NewBlinding(rng),
		ProofBlindingS:       NewBlinding(rng),
	}
}

// Balance consumes unbonding tokens and releases the stake left after the
// penalty.
func (p *UndelegateClaimPlan) Balance() asset.Balance {
	return balanceOf(
		[]asset.Value{asset.NewValue(asset.StakingTokenID, p.Penalty.Apply(p.UnbondingAmount))},
		[]asset.Value{asset.NewValue(UnbondingDenom(p.ValidatorIdentity, p.UnbondingStartHeight).ID(), p.UnbondingAmount)},
	)
}

func (p *UndelegateClaimPlan) GasCost() fee.Gas { return undelegateClaimGas() }
func (p *UndelegateClaimPlan) Kind() Kind       { return KindUndelegateClaim }
func (p *UndelegateClaimPlan) isPlan()          {}

func (p *ValidatorDefinitionPlan) Balance() asset.Balance {
	return asset.NewBalance()
}

// GasCost charges block space for the encoded definition.
func (p *ValidatorDefinitionPlan) GasCost() fee.Gas {
	size := 32 + len(p.ConsensusKey) + len(p.Name) + len(p.Website) + len(p.Description) + len(p.Signature) + 8
	for _, fs := range p.FundingStreams {
		size += len(fs.Recipient) + 2
	}
	return fee.Gas{
		BlockSpace:   uint64(size),
		Verification: 200,
		Execution:    defaultExecution,
	}
}

func (p *ValidatorDefinitionPlan) Kind() Kind { return KindValidatorDefinition }
func (p *ValidatorDefinitionPlan) isPlan()    {}
