package txplan

import (
	"io"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/action"
)

type (
	// CluePlan is the plan of a fuzzy message detection clue for an output.
	CluePlan struct {
		Address       account.Address `json:"address"`
		PrecisionBits uint8           `json:"precisionBits"`
		Rseed         action.Blinding `json:"rseed"`
	}

	DetectionDataPlan struct {
		CluePlans []CluePlan `json:"cluePlans"`
	}
)

func NewCluePlan(rng io.Reader, address account.Address, precisionBits uint8) CluePlan {
	return CluePlan{Address: address, PrecisionBits: precisionBits, Rseed: action.NewBlinding(rng)}
}

// PopulateDetectionData creates one clue per output of the plan. Plans
// without outputs get no detection data.
func (tp *TransactionPlan) PopulateDetectionData(rng io.Reader, precisionBits uint8) {
	var clues []CluePlan
	for _, out := range tp.OutputPlans() {
		clues = append(clues, NewCluePlan(rng, out.DestAddress, precisionBits))
	}
	if len(clues) == 0 {
		tp.DetectionData = nil
		return
	}
	tp.DetectionData = &DetectionDataPlan{CluePlans: clues}
}
