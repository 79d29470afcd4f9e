package planner

import (
	"context"
	"fmt"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/action"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	"github.com/alphabill-org/txplanner/logger"
	"github.com/alphabill-org/txplanner/note"
	"github.com/alphabill-org/txplanner/txplan"
	"github.com/alphabill-org/txplanner/view"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"
)

// MaxIterations is the maximum number of notes spent to balance a
// transaction.
const MaxIterations = 100

// Plan adds spends and change outputs required to balance the transaction,
// using notes of the source account. The planner is reset when Plan returns.
func (p *Planner) Plan(ctx context.Context, v view.Client, source account.AddressIndex) (*txplan.TransactionPlan, error) {
	defer p.reset()
	if p.err != nil {
		return nil, p.err
	}

	appParams, err := v.AppParameters(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching app parameters: %w", err)
	}
	fmdParams, err := v.FMDParameters(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching fmd parameters: %w", err)
	}
	changeAddress, err := v.AddressByIndex(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("fetching change address: %w", err)
	}
	if p.gasPrices == nil {
		prices := appParams.GasPrices
		p.gasPrices = &prices
	}
	feeAsset := p.gasPrices.FeeAssetID()
	if !p.minFee.AssetID.IsZero() && p.minFee.AssetID != feeAsset {
		return nil, fmt.Errorf("%w: fee must be paid in asset %s, got %s", ErrInvalidInput, feeAsset, p.minFee.AssetID)
	}

	notes, err := p.fetchNotes(ctx, v, source, p.balanceWithFee().Required())
	if err != nil {
		return nil, err
	}

	// value left over by the user actions goes to change before any spends,
	// the loop only refreshes change after spending a note
	if len(p.balanceWithFee().Provided()) > 0 {
		p.refreshChange(changeAddress)
		p.adjustChangeForFee(p.effectiveFee())
	}

	for iter := 0; ; iter++ {
		required := p.balanceWithFee().Required()
		if len(required) == 0 {
			break
		}
		if iter == MaxIterations {
			return nil, ErrNonConvergence
		}

		next := required[0]
		queue, ok := notes[next.AssetID]
		if !ok {
			if queue, err = p.queryNotes(ctx, v, source, next.AssetID); err != nil {
				return nil, err
			}
			notes[next.AssetID] = queue
		}
		rec := queue.Pop()
		if rec == nil {
			return nil, &InsufficientFundsError{AssetID: next.AssetID, Needed: next.Amount}
		}
		p.log.Debug().
			Stringer(logger.AssetIDKey, next.AssetID).
			Stringer(logger.AmountKey, rec.Note.Amount()).
			Uint64(logger.PositionKey, rec.Position).
			Int(logger.IterationKey, iter).
			Msg("spending note")
		p.actions = append(p.actions, action.NewSpendPlan(p.rng, rec.Note, rec.Position))

		p.refreshChange(changeAddress)
		p.adjustChangeForFee(p.effectiveFee())
	}

	estimate := p.feeEstimate()
	totalFee := p.effectiveFee()
	if totalFee.Amount.Cmp(estimate.Amount) > 0 {
		p.log.Debug().Stringer(logger.FeeKey, estimate).Stringer("surplus", totalFee).Msg("swap claim surplus absorbed into fee")
	}

	plan := &txplan.TransactionPlan{
		Actions: p.allActions(),
		Params: txplan.TransactionParameters{
			ExpiryHeight: p.expiryHeight,
			ChainID:      appParams.ChainID,
			Fee:          totalFee,
		},
	}
	switch {
	case p.memo != nil:
		if plan.Memo, err = txplan.NewMemoPlan(p.rng, *p.memo); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	case len(plan.OutputPlans()) > 0:
		if plan.Memo, err = txplan.NewMemoPlan(p.rng, txplan.MemoPlaintext{ReturnAddress: changeAddress}); err != nil {
			return nil, err
		}
	}
	plan.PopulateDetectionData(p.rng, fmdParams.PrecisionBits)

	if len(plan.Actions) == 0 {
		return nil, fmt.Errorf("%w: the transaction contains no actions", ErrInvariantViolation)
	}
	if final := plan.Balance().Sub(totalFee.Value); !final.IsZero() {
		return nil, fmt.Errorf("%w: the transaction is not balanced: %s", ErrInvariantViolation, final)
	}

	p.log.Info().
		Int("actions", len(plan.Actions)).
		Int("spends", len(plan.SpendPlans())).
		Stringer(logger.FeeKey, totalFee).
		Msg("finished balancing transaction")
	return plan, nil
}

// fetchNotes queries spendable notes of the assets concurrently.
func (p *Planner) fetchNotes(ctx context.Context, v view.Client, source account.AddressIndex, required []asset.Value) (map[asset.ID]*note.Queue, error) {
	queues := make([]*note.Queue, len(required))
	g, ctx := errgroup.WithContext(ctx)
	for i, r := range required {
		i, id := i, r.AssetID
		g.Go(func() (err error) {
			queues[i], err = p.queryNotes(ctx, v, source, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	notes := make(map[asset.ID]*note.Queue, len(required))
	for i, r := range required {
		notes[r.AssetID] = queues[i]
	}
	return notes, nil
}

func (p *Planner) queryNotes(ctx context.Context, v view.Client, source account.AddressIndex, id asset.ID) (*note.Queue, error) {
	records, err := v.Notes(ctx, view.NotesRequest{AssetID: &id, AddressIndex: &source})
	if err != nil {
		return nil, fmt.Errorf("fetching notes of asset %s: %w", id, err)
	}
	q := note.NewQueue(records)
	p.log.Debug().Stringer(logger.AssetIDKey, id).Int("notes", len(records)).Int("spendable", q.Len()).Msg("fetched notes")
	return q, nil
}

// balance is the sum of the user actions and the change outputs.
func (p *Planner) balance() asset.Balance {
	b := asset.NewBalance()
	for _, a := range p.actions {
		b.Add(a.Balance())
	}
	for _, out := range p.changeOutputs {
		b.Add(out.Balance())
	}
	return b
}

func (p *Planner) balanceWithFee() asset.Balance {
	return p.balance().Sub(p.effectiveFee().Value)
}

// gasEstimate does not include the gas of the transaction itself, so the
// estimate always undershoots.
func (p *Planner) gasEstimate() fee.Gas {
	var g fee.Gas
	for _, a := range p.actions {
		g = g.Add(a.GasCost())
	}
	for _, out := range p.changeOutputs {
		g = g.Add(out.GasCost())
	}
	return g
}

// feeEstimate is the gas fee scaled by the fee tier, but not less than the
// fee set by the caller.
func (p *Planner) feeEstimate() fee.Fee {
	f := p.gasPrices.Fee(p.gasEstimate()).ApplyTier(p.feeTier)
	f.Amount = asset.MaxOf(f.Amount, p.minFee.Amount)
	return f
}

// swapClaimSurplus is the sum of the fees pre-paid by the swap claims of
// the transaction. Claim fees in other assets than the fee asset are
// returned as change.
func (p *Planner) swapClaimSurplus() asset.Amount {
	var total asset.Amount
	feeAsset := p.gasPrices.FeeAssetID()
	for _, a := range p.actions {
		if sc, ok := a.(*action.SwapClaimPlan); ok && sc.ClaimFee().AssetID == feeAsset {
			total = total.SaturatingAdd(sc.ClaimFee().Amount)
		}
	}
	return total
}

// effectiveFee is the fee the transaction pays: the estimate, or the swap
// claim surplus when it is bigger. The surplus is not worth a change note.
func (p *Planner) effectiveFee() fee.Fee {
	f := p.feeEstimate()
	f.Amount = asset.MaxOf(f.Amount, p.swapClaimSurplus())
	return f
}

// refreshChange replaces the change outputs with one output per asset the
// user actions provide.
func (p *Planner) refreshChange(address account.Address) {
	maps.Clear(p.changeOutputs)
	for _, v := range p.balance().Provided() {
		p.changeOutputs[v.AssetID] = action.NewOutputPlan(p.rng, v, address)
	}
}

// adjustChangeForFee deducts the fee from the change of the fee asset, if
// there is any.
func (p *Planner) adjustChangeForFee(f fee.Fee) {
	if out, ok := p.changeOutputs[f.AssetID]; ok {
		out.Value.Amount = out.Value.Amount.SaturatingSub(f.Amount)
	}
}

// allActions returns the user actions followed by the change outputs in
// ascending asset ID order.
func (p *Planner) allActions() []action.Plan {
	ids := maps.Keys(p.changeOutputs)
	asset.SortIDs(ids)
	res := make([]action.Plan, 0, len(p.actions)+len(ids))
	res = append(res, p.actions...)
	for _, id := range ids {
		res = append(res, p.changeOutputs[id])
	}
	return res
}
