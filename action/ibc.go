package action

import (
	"errors"
	"fmt"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
)

type (
	IbcHeight struct {
		RevisionNumber uint64 `json:"revisionNumber"`
		RevisionHeight uint64 `json:"revisionHeight"`
	}

	// Ics20WithdrawalPlan sends value out of the chain over an IBC channel.
	Ics20WithdrawalPlan struct {
		Amount                  asset.Amount    `json:"amount"`
		Denom                   asset.Denom     `json:"denom"`
		DestinationChainAddress string          `json:"destinationChainAddress"`
		ReturnAddress           account.Address `json:"returnAddress"`
		TimeoutHeight           IbcHeight       `json:"timeoutHeight"`
		TimeoutTime             uint64          `json:"timeoutTime"`
		SourceChannel           string          `json:"sourceChannel"`
	}

	// IbcActionPlan relays an encoded IBC message, it moves no value.
	IbcActionPlan struct {
		RawAction []byte `json:"rawAction"`
	}
)

// Validate checks the withdrawal is well formed.
func (p *Ics20WithdrawalPlan) Validate() error {
	var errs []error
	if p.Amount.IsZero() {
		errs = append(errs, errors.New("amount must be positive"))
	}
	if p.Denom == "" {
		errs = append(errs, errors.New("denom is required"))
	}
	if p.DestinationChainAddress == "" {
		errs = append(errs, errors.New("destination chain address is required"))
	}
	if p.SourceChannel == "" {
		errs = append(errs, errors.New("source channel is required"))
	}
	if p.TimeoutTime == 0 && p.TimeoutHeight == (IbcHeight{}) {
		errs = append(errs, errors.New("timeout height or time is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid ics20 withdrawal: %w", err)
	}
	return nil
}

func (p *Ics20WithdrawalPlan) Value() asset.Value {
	return asset.NewValue(p.Denom.ID(), p.Amount)
}

func (p *Ics20WithdrawalPlan) Balance() asset.Balance {
	return asset.NewBalance().Require(p.Value())
}

func (p *Ics20WithdrawalPlan) GasCost() fee.Gas {
	return stateChangeGas(uint64(valueSize + len(p.Denom) + len(p.DestinationChainAddress) + account.AddressLength + len(p.SourceChannel) + 32))
}

func (p *Ics20WithdrawalPlan) Kind() Kind { return KindIcs20Withdrawal }
func (p *Ics20WithdrawalPlan) isPlan()    {}

func (p *IbcActionPlan) Balance() asset.Balance {
	return asset.NewBalance()
}

func (p *IbcActionPlan) GasCost() fee.Gas { return stateChangeGas(uint64(len(p.RawAction))) }
func (p *IbcActionPlan) Kind() Kind       { return KindIbcAction }
func (p *IbcActionPlan) isPlan()          {}
