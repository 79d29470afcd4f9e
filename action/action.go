package action

import (
	"fmt"
	"io"

	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Kind identifies the action variant.
type Kind uint8

const (
	KindSpend Kind = iota + 1
	KindOutput
	KindSwap
	KindSwapClaim
	KindDelegate
	KindUndelegate
	KindUndelegateClaim
	KindValidatorDefinition
	KindProposalSubmit
	KindProposalWithdraw
	KindProposalDepositClaim
	KindDelegatorVote
	KindValidatorVote
	KindPositionOpen
	KindPositionClose
	KindPositionWithdraw
	KindCommunityPoolDeposit
	KindCommunityPoolSpend
	KindCommunityPoolOutput
	KindIcs20Withdrawal
	KindIbcAction
	KindDutchAuctionSchedule
	KindDutchAuctionEnd
	KindDutchAuctionWithdraw

	kindCount = iota
)

var kindNames = map[Kind]string{
	KindSpend:                "spend",
	KindOutput:               "output",
	KindSwap:                 "swap",
	KindSwapClaim:            "swap_claim",
	KindDelegate:             "delegate",
	KindUndelegate:           "undelegate",
	KindUndelegateClaim:      "undelegate_claim",
	KindValidatorDefinition:  "validator_definition",
	KindProposalSubmit:       "proposal_submit",
	KindProposalWithdraw:     "proposal_withdraw",
	KindProposalDepositClaim: "proposal_deposit_claim",
	KindDelegatorVote:        "delegator_vote",
	KindValidatorVote:        "validator_vote",
	KindPositionOpen:         "position_open",
	KindPositionClose:        "position_close",
	KindPositionWithdraw:     "position_withdraw",
	KindCommunityPoolDeposit: "community_pool_deposit",
	KindCommunityPoolSpend:   "community_pool_spend",
	KindCommunityPoolOutput:  "community_pool_output",
	KindIcs20Withdrawal:      "ics20_withdrawal",
	KindIbcAction:            "ibc_action",
	KindDutchAuctionSchedule: "dutch_auction_schedule",
	KindDutchAuctionEnd:      "dutch_auction_end",
	KindDutchAuctionWithdraw: "dutch_auction_withdraw",
}

// Plan is a planned action of a transaction. The set of implementations is
// closed, every variant is defined in this package.
type Plan interface {
	// Balance returns the value the action brings into (positive) or takes
	// out of (negative) the transaction.
	Balance() asset.Balance
	// GasCost returns the estimated resource usage of the action.
	GasCost() fee.Gas
	Kind() Kind

	isPlan()
}

// AllKinds returns every action kind.
func AllKinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := KindSpend; k <= kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown action kind %d", uint8(k))
	}
	return []byte(s), nil
}

func (k *Kind) UnmarshalText(src []byte) error {
	for kind, name := range kindNames {
		if name == string(src) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown action kind %q", src)
}

// Blinding is a random blinding factor of an action.
type Blinding [32]byte

// NewBlinding reads a blinding factor from rng. Failure of the randomness
// source is not recoverable and causes a panic.
func NewBlinding(rng io.Reader) Blinding {
	var b Blinding
	if _, err := io.ReadFull(rng, b[:]); err != nil {
		panic(fmt.Errorf("reading randomness: %w", err))
	}
	return b
}

func (b Blinding) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(b[:])), nil
}

func (b *Blinding) UnmarshalText(src []byte) error {
	return decodeFixed(b[:], src, "blinding")
}

func decodeFixed(dst, src []byte, name string) error {
	v, err := hexutil.Decode(string(src))
	if err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	if len(v) != len(dst) {
		return fmt.Errorf("%s must be %d bytes, got %d", name, len(dst), len(v))
	}
	copy(dst, v)
	return nil
}

func balanceOf(provided []asset.Value, required []asset.Value) asset.Balance {
	b := asset.BalanceOf(provided...)
	for _, v := range required {
		b.Require(v)
	}
	return b
}

// nft returns a single unit of the denomination.
func nft(d asset.Denom) asset.Value {
	return asset.NewValue(d.ID(), asset.NewAmount(1))
}

// New returns an empty plan of the kind, to be decoded into.
func New(kind Kind) (Plan, error) {
	switch kind {
	case KindSpend:
		return &SpendPlan{}, nil
	case KindOutput:
		return &OutputPlan{}, nil
	case KindSwap:
		return &SwapPlan{}, nil
	case KindSwapClaim:
		return &SwapClaimPlan{}, nil
	case KindDelegate:
		return &DelegatePlan{}, nil
	case KindUndelegate:
		return &UndelegatePlan{}, nil
	case KindUndelegateClaim:
		return &UndelegateClaimPlan{}, nil
	case KindValidatorDefinition:
		return &ValidatorDefinitionPlan{}, nil
	case KindProposalSubmit:
		return &ProposalSubmitPlan{}, nil
	case KindProposalWithdraw:
		return &ProposalWithdrawPlan{}, nil
	case KindProposalDepositClaim:
		return &ProposalDepositClaimPlan{}, nil
	case KindDelegatorVote:
		return &DelegatorVotePlan{}, nil
	case KindValidatorVote:
		return &ValidatorVotePlan{}, nil
	case KindPositionOpen:
		return &PositionOpenPlan{}, nil
	case KindPositionClose:
		return &PositionClosePlan{}, nil
	case KindPositionWithdraw:
		return &PositionWithdrawPlan{}, nil
	case KindCommunityPoolDeposit:
		return &CommunityPoolDepositPlan{}, nil
	case KindCommunityPoolSpend:
		return &CommunityPoolSpendPlan{}, nil
	case KindCommunityPoolOutput:
		return &CommunityPoolOutputPlan{}, nil
	case KindIcs20Withdrawal:
		return &Ics20WithdrawalPlan{}, nil
	case KindIbcAction:
		return &IbcActionPlan{}, nil
	case KindDutchAuctionSchedule:
		return &DutchAuctionSchedulePlan{}, nil
	case KindDutchAuctionEnd:
		return &DutchAuctionEndPlan{}, nil
	case KindDutchAuctionWithdraw:
		return &DutchAuctionWithdrawPlan{}, nil
	}
	return nil, fmt.Errorf("unknown action kind %d", uint8(kind))
}
