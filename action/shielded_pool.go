package action

import (
	"io"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	"github.com/alphabill-org/txplanner/note"
)

type (
	// SpendPlan consumes a note, releasing its value into the transaction.
	SpendPlan struct {
		Note           note.Note `json:"note"`
		Position       uint64    `json:"position"`
		Randomizer     Blinding  `json:"randomizer"`
		ValueBlinding  Blinding  `json:"valueBlinding"`
		ProofBlindingR Blinding  `json:"proofBlindingR"`
		ProofBlindingS Blinding  `json:"proofBlindingS"`
	}

	// OutputPlan creates a new note, taking its value out of the
	// transaction.
	OutputPlan struct {
		Value          asset.Value     `json:"value"`
		DestAddress    account.Address `json:"destAddress"`
		Rseed          note.Rseed      `json:"rseed"`
		ValueBlinding  Blinding        `json:"valueBlinding"`
		ProofBlindingR Blinding        `json:"proofBlindingR"`
		ProofBlindingS Blinding        `json:"proofBlindingS"`
	}
)

func NewSpendPlan(rng io.Reader, n note.Note, position uint64) *SpendPlan {
	return &SpendPlan{
		Note:           n,
		Position:       position,
		Randomizer:     NewBlinding(rng),
		ValueBlinding:  NewBlinding(rng),
		ProofBlindingR: NewBlinding(rng),
		ProofBlindingS: NewBlinding(rng),
	}
}

func (p *SpendPlan) Balance() asset.Balance {
	return asset.BalanceOf(p.Note.Value)
}

func (p *SpendPlan) GasCost() fee.Gas { return spendGas() }
func (p *SpendPlan) Kind() Kind       { return KindSpend }
func (p *SpendPlan) isPlan()          {}

func NewOutputPlan(rng io.Reader, value asset.Value, dest account.Address) *OutputPlan {
	return &OutputPlan{
		Value:          value,
		DestAddress:    dest,
		Rseed:          note.Rseed(NewBlinding(rng)),
		ValueBlinding:  NewBlinding(rng),
		ProofBlindingR: NewBlinding(rng),
		ProofBlindingS: NewBlinding(rng),
	}
}

// Output returns the note the plan creates.
func (p *OutputPlan) Output() note.Note {
	return note.NewNote(p.Value, p.DestAddress, p.Rseed)
}

func (p *OutputPlan) Balance() asset.Balance {
	return asset.NewBalance().Require(p.Value)
}

func (p *OutputPlan) GasCost() fee.Gas { return outputGas() }
func (p *OutputPlan) Kind() Kind       { return KindOutput }
func (p *OutputPlan) isPlan()          {}
