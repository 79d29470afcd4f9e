package action

import (
	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
)

type (
	// CommunityPoolDepositPlan moves value from the transaction into the
	// community pool.
	CommunityPoolDepositPlan struct {
		Value asset.Value `json:"value"`
	}

	// CommunityPoolSpendPlan releases value from the community pool, only
	// valid in governance proposal transactions.
	CommunityPoolSpendPlan struct {
		Value asset.Value `json:"value"`
	}

	// CommunityPoolOutputPlan creates a transparent output funded by a
	// community pool spend.
	CommunityPoolOutputPlan struct {
		Value   asset.Value     `json:"value"`
		Address account.Address `json:"address"`
	}
)

func (p *CommunityPoolDepositPlan) Balance() asset.Balance {
	return asset.NewBalance().Require(p.Value)
}

func (p *CommunityPoolDepositPlan) GasCost() fee.Gas { return stateChangeGas(valueSize) }
func (p *CommunityPoolDepositPlan) Kind() Kind       { return KindCommunityPoolDeposit }
func (p *CommunityPoolDepositPlan) isPlan()          {}

func (p *CommunityPoolSpendPlan) Balance() asset.Balance {
	return asset.BalanceOf(p.Value)
}

func (p *CommunityPoolSpendPlan) GasCost() fee.Gas { return stateChangeGas(valueSize) }
func (p *CommunityPoolSpendPlan) Kind() Kind       { return KindCommunityPoolSpend }
func (p *CommunityPoolSpendPlan) isPlan()          {}

func (p *CommunityPoolOutputPlan) Balance() asset.Balance {
	return asset.NewBalance().Require(p.Value)
}

func (p *CommunityPoolOutputPlan) GasCost() fee.Gas {
	return stateChangeGas(valueSize + account.AddressLength)
}

func (p *CommunityPoolOutputPlan) Kind() Kind { return KindCommunityPoolOutput }
func (p *CommunityPoolOutputPlan) isPlan()    {}
