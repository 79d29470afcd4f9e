// Package planner turns a set of desired actions into a balanced
// transaction plan: it selects notes to spend, synthesizes change outputs
// and allocates the fee.
package planner

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/action"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	"github.com/alphabill-org/txplanner/note"
	"github.com/alphabill-org/txplanner/txplan"
	"github.com/alphabill-org/txplanner/view"
	"github.com/rs/zerolog"
)

type (
	// Planner accumulates actions and balances them into a transaction plan.
	// After Plan returns (successfully or not) the planner is empty and can
	// be reused. Planner is not safe for concurrent use.
	Planner struct {
		rng io.Reader
		log zerolog.Logger

		actions       []action.Plan
		changeOutputs map[asset.ID]*action.OutputPlan

		feeTier      fee.FeeTier
		gasPrices    *fee.GasPrices
		minFee       fee.Fee
		expiryHeight uint64
		memo         *txplan.MemoPlaintext

		// err is the first error of a builder method which can't return it.
		err error
	}

	Option func(*Planner)
)

func WithLogger(l zerolog.Logger) Option {
	return func(p *Planner) {
		p.log = l
	}
}

// New creates planner drawing randomness from rng, nil means crypto/rand.
func New(rng io.Reader, opts ...Option) *Planner {
	if rng == nil {
		rng = rand.Reader
	}
	p := &Planner{
		rng:           rng,
		log:           zerolog.Nop(),
		changeOutputs: make(map[asset.ID]*action.OutputPlan),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetGasPrices sets the gas prices used for fee estimation. When not set
// the prices of the chain's app parameters are used.
func (p *Planner) SetGasPrices(prices fee.GasPrices) *Planner {
	p.gasPrices = &prices
	return p
}

func (p *Planner) SetFeeTier(tier fee.FeeTier) *Planner {
	p.feeTier = tier
	return p
}

func (p *Planner) ExpiryHeight(height uint64) *Planner {
	p.expiryHeight = height
	return p
}

// Fee sets the minimum fee of the transaction. The planner never pays less
// than the fee, but pays more when the estimate is higher.
func (p *Planner) Fee(f fee.Fee) *Planner {
	p.minFee = f
	return p
}

// Memo sets the memo of the transaction.
func (p *Planner) Memo(memo txplan.MemoPlaintext) (*Planner, error) {
	if len(memo.Text) > txplan.MaxMemoTextLength {
		return p, fmt.Errorf("%w: %w", ErrInvalidInput, txplan.ErrMemoTooLong)
	}
	p.memo = &memo
	return p, nil
}

// Spend spends a specific positioned note in the transaction.
func (p *Planner) Spend(n note.Note, position uint64) *Planner {
	return p.push(action.NewSpendPlan(p.rng, n, position))
}

// Output adds an output to the transaction. Any unused value is returned to
// the source account as change.
func (p *Planner) Output(value asset.Value, address account.Address) *Planner {
	return p.push(action.NewOutputPlan(p.rng, value, address))
}

// Swap swaps the input value into another asset. The claim fee is pre-paid
// by the swap and released by the swap claim.
func (p *Planner) Swap(input asset.Value, into asset.ID, claimFee fee.Fee, claimAddress account.Address) (*Planner, error) {
	plaintext, err := action.NewSwapPlaintext(p.rng, input, into, claimFee, claimAddress)
	if err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return p.push(action.NewSwapPlan(p.rng, plaintext)), nil
}

// SwapClaim claims a swap output with its pre-paid fee.
func (p *Planner) SwapClaim(plan *action.SwapClaimPlan) *Planner {
	return p.push(plan)
}

func (p *Planner) Delegate(epoch action.Epoch, unbonded asset.Amount, rate action.RateData) *Planner {
	if rate.ValidatorExchangeRate == 0 {
		return p.fail(fmt.Errorf("%w: exchange rate of validator %s is zero", ErrInvalidInput, rate.IdentityKey))
	}
	return p.push(rate.BuildDelegate(epoch, unbonded))
}

func (p *Planner) Undelegate(epoch action.Epoch, delegation asset.Amount, rate action.RateData) *Planner {
	return p.push(rate.BuildUndelegate(epoch, delegation))
}

func (p *Planner) UndelegateClaim(plan *action.UndelegateClaimPlan) *Planner {
	return p.push(plan)
}

func (p *Planner) ValidatorDefinition(def *action.ValidatorDefinitionPlan) *Planner {
	return p.push(def)
}

func (p *Planner) ProposalSubmit(proposal action.Proposal, deposit asset.Amount) *Planner {
	return p.push(&action.ProposalSubmitPlan{Proposal: proposal, DepositAmount: deposit})
}

func (p *Planner) ProposalWithdraw(proposal uint64, reason string) *Planner {
	return p.push(&action.ProposalWithdrawPlan{Proposal: proposal, Reason: reason})
}

func (p *Planner) ProposalDepositClaim(proposal uint64, deposit asset.Amount, outcome action.Outcome) *Planner {
	return p.push(&action.ProposalDepositClaimPlan{Proposal: proposal, DepositAmount: deposit, Outcome: outcome})
}

// DelegatorVote votes on the proposal with all the voting power of the
// source account: one vote per delegation note that was unspent when the
// voting started. startRateData must contain the rate of every validator
// the notes are delegated to.
func (p *Planner) DelegatorVote(
	ctx context.Context,
	v view.Client,
	source account.AddressIndex,
	proposal uint64,
	vote action.Vote,
	startHeight uint64,
	startPosition uint64,
	startRateData map[action.IdentityKey]action.RateData,
) (*Planner, error) {
	notes, err := v.NotesForVoting(ctx, view.NotesForVotingRequest{VotableAtHeight: startHeight, AddressIndex: &source})
	if err != nil {
		return p, fmt.Errorf("fetching notes for voting: %w", err)
	}
	if len(notes) == 0 {
		return p, fmt.Errorf("%w: no notes were found for voting on proposal %d", ErrInvalidInput, proposal)
	}

	votes := make([]action.Plan, 0, len(notes))
	for _, n := range notes {
		rate, ok := startRateData[n.IdentityKey]
		if !ok {
			return p, fmt.Errorf("%w: missing rate data for votable note delegated to %s", ErrInvalidInput, n.IdentityKey)
		}
		power := rate.UnbondedAmount(n.Record.Note.Amount())
		votes = append(votes, action.NewDelegatorVotePlan(p.rng, proposal, startPosition, vote, n.Record.Note, n.Record.Position, power))
	}
	p.actions = append(p.actions, votes...)
	return p, nil
}

// DelegatorVotePrecise votes with a specific positioned note.
func (p *Planner) DelegatorVotePrecise(plan *action.DelegatorVotePlan) *Planner {
	return p.push(plan)
}

func (p *Planner) ValidatorVote(plan *action.ValidatorVotePlan) *Planner {
	return p.push(plan)
}

// PositionOpen opens a liquidity position in the order book.
func (p *Planner) PositionOpen(position action.Position) *Planner {
	if _, err := action.NewTradingPair(position.Phi.Pair.Asset1, position.Phi.Pair.Asset2); err != nil {
		return p.fail(fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}
	position.State = action.PositionOpened
	return p.push(&action.PositionOpenPlan{Position: position})
}

func (p *Planner) PositionClose(id action.PositionID) *Planner {
	return p.push(&action.PositionClosePlan{PositionID: id})
}

// PositionWithdraw withdraws the reserves of a closed position. Only the
// initial withdrawal without rewards is supported.
func (p *Planner) PositionWithdraw(id action.PositionID, reserves action.Reserves, pair action.TradingPair) *Planner {
	return p.push(&action.PositionWithdrawPlan{PositionID: id, Pair: pair, Reserves: reserves})
}

func (p *Planner) CommunityPoolDeposit(value asset.Value) *Planner {
	return p.push(&action.CommunityPoolDepositPlan{Value: value})
}

func (p *Planner) CommunityPoolSpend(value asset.Value) *Planner {
	return p.push(&action.CommunityPoolSpendPlan{Value: value})
}

func (p *Planner) CommunityPoolOutput(value asset.Value, address account.Address) *Planner {
	return p.push(&action.CommunityPoolOutputPlan{Value: value, Address: address})
}

func (p *Planner) Ics20Withdrawal(w *action.Ics20WithdrawalPlan) *Planner {
	if err := w.Validate(); err != nil {
		return p.fail(fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}
	return p.push(w)
}

func (p *Planner) IbcAction(a *action.IbcActionPlan) *Planner {
	return p.push(a)
}

func (p *Planner) DutchAuctionSchedule(d action.DutchAuctionDescription) *Planner {
	if err := d.Validate(); err != nil {
		return p.fail(fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}
	return p.push(&action.DutchAuctionSchedulePlan{Description: d})
}

func (p *Planner) DutchAuctionEnd(id action.AuctionID) *Planner {
	return p.push(&action.DutchAuctionEndPlan{AuctionID: id})
}

func (p *Planner) DutchAuctionWithdraw(id action.AuctionID, seq uint64, reservesInput, reservesOutput asset.Value) *Planner {
	return p.push(&action.DutchAuctionWithdrawPlan{
		AuctionID:      id,
		Seq:            seq,
		ReservesInput:  reservesInput,
		ReservesOutput: reservesOutput,
	})
}

func (p *Planner) push(a action.Plan) *Planner {
	p.actions = append(p.actions, a)
	return p
}

func (p *Planner) fail(err error) *Planner {
	p.err = errors.Join(p.err, err)
	return p
}

// reset clears all state except the randomness source and the logger.
func (p *Planner) reset() {
	*p = Planner{
		rng:           p.rng,
		log:           p.log,
		changeOutputs: make(map[asset.ID]*action.OutputPlan),
	}
}
