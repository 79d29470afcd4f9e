package action

import "github.com/alphabill-org/txplanner/fee"

// Sizes of encoded action components, in bytes.
const (
	nullifierSize   = 32 + 2
	notePayloadSize = 196
	swapPayloadSize = 304
	zkProofSize     = 192

	valueSize         = 48
	defaultExecution  = 10
	proofVerification = 1000
)

func spendGas() fee.Gas {
	return fee.Gas{
		BlockSpace:        160 + zkProofSize,
		CompactBlockSpace: nullifierSize,
		Verification:      proofVerification,
		Execution:         defaultExecution,
	}
}

func outputGas() fee.Gas {
	return fee.Gas{
		BlockSpace:        448 + zkProofSize,
		CompactBlockSpace: notePayloadSize,
		Verification:      proofVerification,
		Execution:         defaultExecution,
	}
}

func delegateGas() fee.Gas {
	return fee.Gas{
		BlockSpace:   128,
		Verification: proofVerification,
		Execution:    defaultExecution,
	}
}

func undelegateClaimGas() fee.Gas {
	return fee.Gas{
		BlockSpace:   152 + zkProofSize,
		Verification: proofVerification,
		Execution:    defaultExecution,
	}
}

func swapGas() fee.Gas {
	return fee.Gas{
		BlockSpace:        256 + zkProofSize,
		CompactBlockSpace: swapPayloadSize,
		Verification:      proofVerification,
		Execution:         defaultExecution,
	}
}

func swapClaimGas() fee.Gas {
	return fee.Gas{
		BlockSpace: 232 + zkProofSize,
		// a nullifier and two output notes
		CompactBlockSpace: nullifierSize + 2*notePayloadSize,
		Verification:      proofVerification,
		Execution:         defaultExecution,
	}
}

func delegatorVoteGas() fee.Gas {
	return fee.Gas{
		BlockSpace:   356 + zkProofSize,
		Verification: proofVerification,
		Execution:    defaultExecution,
	}
}

// stateChangeGas is the cost of actions without proofs, which only touch
// public state.
func stateChangeGas(blockSpace uint64) fee.Gas {
	return fee.Gas{
		BlockSpace:   blockSpace,
		Verification: 50,
		Execution:    defaultExecution,
	}
}
