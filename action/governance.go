package action

import (
	"fmt"
	"io"

	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	"github.com/alphabill-org/txplanner/note"
)

const (
	VoteAbstain Vote = iota
	VoteYes
	VoteNo
)

const (
	OutcomePassed OutcomeKind = iota
	OutcomeFailed
	OutcomeSlashed
)

type (
	Vote uint8

	Proposal struct {
		ID          uint64 `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		// Payload is the encoded proposal payload, opaque to the planner.
		Payload []byte `json:"payload,omitempty"`
	}

	OutcomeKind uint8

	// Outcome of a finished proposal. Withdrawn is meaningful for failed
	// and slashed proposals only.
	Outcome struct {
		Kind      OutcomeKind `json:"kind"`
		Withdrawn bool        `json:"withdrawn"`
	}

	ProposalSubmitPlan struct {
		Proposal      Proposal     `json:"proposal"`
		DepositAmount asset.Amount `json:"depositAmount"`
	}

	ProposalWithdrawPlan struct {
		Proposal uint64 `json:"proposal"`
		Reason   string `json:"reason"`
	}

	ProposalDepositClaimPlan struct {
		Proposal      uint64       `json:"proposal"`
		DepositAmount asset.Amount `json:"depositAmount"`
		Outcome       Outcome      `json:"outcome"`
	}

	// DelegatorVotePlan votes on a proposal with the voting power of a
	// delegation note. The note is not spent.
	DelegatorVotePlan struct {
		Proposal           uint64       `json:"proposal"`
		StartPosition      uint64       `json:"startPosition"`
		Vote               Vote         `json:"vote"`
		StakedNote         note.Note    `json:"stakedNote"`
		StakedNotePosition uint64       `json:"stakedNotePosition"`
		UnbondedAmount     asset.Amount `json:"unbondedAmount"`
		Randomizer         Blinding     `json:"randomizer"`
		ProofBlindingR     Blinding     `json:"proofBlindingR"`
		ProofBlindingS     Blinding     `json:"proofBlindingS"`
	}

	ValidatorVoteBody struct {
		Proposal      uint64      `json:"proposal"`
		Vote          Vote        `json:"vote"`
		IdentityKey   IdentityKey `json:"identityKey"`
		GovernanceKey []byte      `json:"governanceKey"`
		Reason        string      `json:"reason"`
	}

	ValidatorVotePlan struct {
		Body    ValidatorVoteBody `json:"body"`
		AuthSig []byte            `json:"authSig"`
	}
)

func (v Vote) String() string {
	switch v {
	case VoteAbstain:
		return "abstain"
	case VoteYes:
		return "yes"
	case VoteNo:
		return "no"
	}
	return fmt.Sprintf("Vote(%d)", uint8(v))
}

// ParseVote parses the textual form of the vote.
func ParseVote(s string) (Vote, error) {
	for _, v := range []Vote{VoteAbstain, VoteYes, VoteNo} {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("invalid vote %q", s)
}

func ProposalVotingDenom(proposal uint64) asset.Denom {
	return asset.Denom(fmt.Sprintf("proposal_%d_voting", proposal))
}

func ProposalWithdrawnDenom(proposal uint64) asset.Denom {
	return asset.Denom(fmt.Sprintf("proposal_%d_withdrawn", proposal))
}

func ProposalClaimedDenom(proposal uint64) asset.Denom {
	return asset.Denom(fmt.Sprintf("proposal_%d_claimed", proposal))
}

// Balance locks the deposit and mints the voting proposal NFT.
func (p *ProposalSubmitPlan) Balance() asset.Balance {
	return balanceOf(
		[]asset.Value{nft(ProposalVotingDenom(p.Proposal.ID))},
		[]asset.Value{asset.NewValue(asset.StakingTokenID, p.DepositAmount)},
	)
}

func (p *ProposalSubmitPlan) GasCost() fee.Gas {
	return stateChangeGas(uint64(64 + len(p.Proposal.Title) + len(p.Proposal.Description) + len(p.Proposal.Payload)))
}

func (p *ProposalSubmitPlan) Kind() Kind { return KindProposalSubmit }
func (p *ProposalSubmitPlan) isPlan()    {}

// Balance exchanges the voting NFT for the withdrawn NFT.
func (p *ProposalWithdrawPlan) Balance() asset.Balance {
	return balanceOf(
		[]asset.Value{nft(ProposalWithdrawnDenom(p.Proposal))},
		[]asset.Value{nft(ProposalVotingDenom(p.Proposal))},
	)
}

func (p *ProposalWithdrawPlan) GasCost() fee.Gas { return stateChangeGas(uint64(16 + len(p.Reason))) }
func (p *ProposalWithdrawPlan) Kind() Kind       { return KindProposalWithdraw }
func (p *ProposalWithdrawPlan) isPlan()          {}

// Balance burns the proposal NFT and mints the claimed NFT. The deposit is
// returned unless the proposal was slashed.
func (p *ProposalDepositClaimPlan) Balance() asset.Balance {
	burned := ProposalVotingDenom(p.Proposal)
	if p.Outcome.Kind != OutcomePassed && p.Outcome.Withdrawn {
		burned = ProposalWithdrawnDenom(p.Proposal)
	}
	provided := []asset.Value{nft(ProposalClaimedDenom(p.Proposal))}
	if p.Outcome.Kind != OutcomeSlashed {
		provided = append(provided, asset.NewValue(asset.StakingTokenID, p.DepositAmount))
	}
	return balanceOf(provided, []asset.Value{nft(burned)})
}

func (p *ProposalDepositClaimPlan) GasCost() fee.Gas { return stateChangeGas(64) }
func (p *ProposalDepositClaimPlan) Kind() Kind       { return KindProposalDepositClaim }
func (p *ProposalDepositClaimPlan) isPlan()          {}

func NewDelegatorVotePlan(rng io.Reader, proposal, startPosition uint64, vote Vote, staked note.Note, stakedPosition uint64, unbonded asset.Amount) *DelegatorVotePlan {
	return &DelegatorVotePlan{
		Proposal:           proposal,
		StartPosition:      startPosition,
		Vote:               vote,
		StakedNote:         staked,
		StakedNotePosition: stakedPosition,
		UnbondedAmount:     unbonded,
		Randomizer:         NewBlinding(rng),
		ProofBlindingR:     NewBlinding(rng),
		ProofBlindingS:     NewBlinding(rng),
	}
}

func (p *DelegatorVotePlan) Balance() asset.Balance {
	return asset.NewBalance()
}

func (p *DelegatorVotePlan) GasCost() fee.Gas { return delegatorVoteGas() }
func (p *DelegatorVotePlan) Kind() Kind       { return KindDelegatorVote }
func (p *DelegatorVotePlan) isPlan()          {}

func (p *ValidatorVotePlan) Balance() asset.Balance {
	return asset.NewBalance()
}

func (p *ValidatorVotePlan) GasCost() fee.Gas {
	return stateChangeGas(uint64(200 + len(p.Body.Reason) + len(p.Body.GovernanceKey) + len(p.AuthSig)))
}

func (p *ValidatorVotePlan) Kind() Kind { return KindValidatorVote }
func (p *ValidatorVotePlan) isPlan()    {}
