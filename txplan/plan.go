package txplan

import (
	"fmt"

	"github.com/alphabill-org/txplanner/action"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

var effectHashKey = []byte("txplanner/effect-hash")

type (
	TransactionParameters struct {
		ExpiryHeight uint64  `json:"expiryHeight"`
		ChainID      string  `json:"chainId"`
		Fee          fee.Fee `json:"fee"`
	}

	// TransactionPlan is a fully balanced transaction, ready to be turned
	// into a transaction by generating proofs and signatures.
	TransactionPlan struct {
		Actions       []action.Plan
		Params        TransactionParameters
		Memo          *MemoPlan
		DetectionData *DetectionDataPlan
	}

	EffectHash [64]byte
)

// Balance returns the sum of the balances of all actions.
func (tp *TransactionPlan) Balance() asset.Balance {
	b := asset.NewBalance()
	for _, a := range tp.Actions {
		b.Add(a.Balance())
	}
	return b
}

// GasCost returns the sum of the gas costs of all actions.
func (tp *TransactionPlan) GasCost() fee.Gas {
	var g fee.Gas
	for _, a := range tp.Actions {
		g = g.Add(a.GasCost())
	}
	return g
}

func (tp *TransactionPlan) OutputPlans() []*action.OutputPlan {
	return actionsOf[*action.OutputPlan](tp.Actions)
}

func (tp *TransactionPlan) SpendPlans() []*action.SpendPlan {
	return actionsOf[*action.SpendPlan](tp.Actions)
}

func (tp *TransactionPlan) SwapClaimPlans() []*action.SwapClaimPlan {
	return actionsOf[*action.SwapClaimPlan](tp.Actions)
}

func (tp *TransactionPlan) DelegatorVotePlans() []*action.DelegatorVotePlan {
	return actionsOf[*action.DelegatorVotePlan](tp.Actions)
}

func actionsOf[T action.Plan](actions []action.Plan) []T {
	var res []T
	for _, a := range actions {
		if v, ok := a.(T); ok {
			res = append(res, v)
		}
	}
	return res
}

// CountByKind returns number of actions of each kind.
func (tp *TransactionPlan) CountByKind() map[action.Kind]int {
	res := make(map[action.Kind]int)
	for _, a := range tp.Actions {
		res[a.Kind()]++
	}
	return res
}

// EffectHash is the hash of the effecting data of the plan: the canonical
// CBOR encoding of actions, parameters and memo. Detection data is not
// effecting and does not change the hash.
func (tp *TransactionPlan) EffectHash() (EffectHash, error) {
	body, err := tp.encodeCBOR(false)
	if err != nil {
		return EffectHash{}, fmt.Errorf("encoding plan: %w", err)
	}
	h, err := blake2b.New512(effectHashKey)
	if err != nil {
		return EffectHash{}, err
	}
	h.Write(body)
	var eh EffectHash
	copy(eh[:], h.Sum(nil))
	return eh, nil
}

func (eh EffectHash) String() string {
	return hexutil.Encode(eh[:])
}

func (eh EffectHash) MarshalText() ([]byte, error) {
	return []byte(eh.String()), nil
}
