package action

import (
	"errors"
	"fmt"
	"io"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrSameAsset   = errors.New("trading pair assets must differ")
	ErrNoSwapInput = errors.New("no input value for swap")
	positionIDTag  = []byte("txplanner/position-id")
	swapCommitTag  = []byte("txplanner/swap-commitment")
)

const (
	PositionOpened    PositionState = "opened"
	PositionClosed    PositionState = "closed"
	PositionWithdrawn PositionState = "withdrawn"
)

type (
	// TradingPair is an unordered pair of assets in canonical order, Asset1
	// is always the smaller ID.
	TradingPair struct {
		Asset1 asset.ID `json:"asset1"`
		Asset2 asset.ID `json:"asset2"`
	}

	// SwapPlaintext describes the swap, it is encrypted to the claim address.
	SwapPlaintext struct {
		TradingPair  TradingPair     `json:"tradingPair"`
		Delta1       asset.Amount    `json:"delta1"`
		Delta2       asset.Amount    `json:"delta2"`
		ClaimFee     fee.Fee         `json:"claimFee"`
		ClaimAddress account.Address `json:"claimAddress"`
		Rseed        Blinding        `json:"rseed"`
	}

	SwapPlan struct {
		SwapPlaintext  SwapPlaintext `json:"swapPlaintext"`
		FeeBlinding    Blinding      `json:"feeBlinding"`
		ProofBlindingR Blinding      `json:"proofBlindingR"`
		ProofBlindingS Blinding      `json:"proofBlindingS"`
	}

	// BatchSwapOutputData are the clearing results of the batch the swap
	// was included in.
	BatchSwapOutputData struct {
		Delta1     asset.Amount `json:"delta1"`
		Delta2     asset.Amount `json:"delta2"`
		Lambda1    asset.Amount `json:"lambda1"`
		Lambda2    asset.Amount `json:"lambda2"`
		Unfilled1  asset.Amount `json:"unfilled1"`
		Unfilled2  asset.Amount `json:"unfilled2"`
		Height     uint64       `json:"height"`
		EpochStart uint64       `json:"epochStartingHeight"`
	}

	// SwapClaimPlan claims the outputs of a swap. The claim fee was paid by
	// the swap and is released into this transaction.
	SwapClaimPlan struct {
		SwapPlaintext  SwapPlaintext       `json:"swapPlaintext"`
		Position       uint64              `json:"position"`
		OutputData     BatchSwapOutputData `json:"outputData"`
		ProofBlindingR Blinding            `json:"proofBlindingR"`
		ProofBlindingS Blinding            `json:"proofBlindingS"`
	}

	PositionID    [32]byte
	PositionState string

	// TradingFunction of a constant sum liquidity position, p and q are the
	// prices of Asset1 and Asset2.
	TradingFunction struct {
		Pair TradingPair  `json:"pair"`
		Fee  uint32       `json:"fee"` // basis points
		P    asset.Amount `json:"p"`
		Q    asset.Amount `json:"q"`
	}

	Reserves struct {
		R1 asset.Amount `json:"r1"`
		R2 asset.Amount `json:"r2"`
	}

	Position struct {
		Phi         TradingFunction `json:"phi"`
		Nonce       [32]byte        `json:"nonce"`
		State       PositionState   `json:"state"`
		Reserves    Reserves        `json:"reserves"`
		CloseOnFill bool            `json:"closeOnFill"`
	}

	PositionOpenPlan struct {
		Position Position `json:"position"`
	}

	PositionClosePlan struct {
		PositionID PositionID `json:"positionId"`
	}

	// PositionWithdrawPlan withdraws the reserves of a closed position.
	// Sequence 0 is the first withdrawal from the closed state.
	PositionWithdrawPlan struct {
		PositionID PositionID    `json:"positionId"`
		Pair       TradingPair   `json:"pair"`
		Reserves   Reserves      `json:"reserves"`
		Sequence   uint64        `json:"sequence"`
		Rewards    []asset.Value `json:"rewards"`
	}
)

// NewTradingPair returns the pair in canonical order.
func NewTradingPair(a, b asset.ID) (TradingPair, error) {
	switch a.Compare(b) {
	case 0:
		return TradingPair{}, ErrSameAsset
	case 1:
		a, b = b, a
	}
	return TradingPair{Asset1: a, Asset2: b}, nil
}

func (tp TradingPair) String() string {
	return fmt.Sprintf("%s:%s", tp.Asset1, tp.Asset2)
}

// NewSwapPlaintext assigns the input to the delta of its side of the
// canonical trading pair.
func NewSwapPlaintext(rng io.Reader, input asset.Value, into asset.ID, claimFee fee.Fee, claimAddress account.Address) (SwapPlaintext, error) {
	pair, err := NewTradingPair(input.AssetID, into)
	if err != nil {
		return SwapPlaintext{}, err
	}
	var delta1, delta2 asset.Amount
	if pair.Asset1 == input.AssetID {
		delta1 = input.Amount
	} else {
		delta2 = input.Amount
	}
	if delta1.IsZero() && delta2.IsZero() {
		return SwapPlaintext{}, ErrNoSwapInput
	}
	return SwapPlaintext{
		TradingPair:  pair,
		Delta1:       delta1,
		Delta2:       delta2,
		ClaimFee:     claimFee,
		ClaimAddress: claimAddress,
		Rseed:        NewBlinding(rng),
	}, nil
}

// Commitment of the swap, it is the leaf of the swap NFT in the commitment
// tree.
func (sp *SwapPlaintext) Commitment() [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write(swapCommitTag)
	h.Write(sp.Rseed[:])
	h.Write(sp.TradingPair.Asset1[:])
	h.Write(sp.TradingPair.Asset2[:])
	for _, a := range []asset.Amount{sp.Delta1, sp.Delta2, sp.ClaimFee.Amount} {
		b, _ := a.MarshalBinary()
		h.Write(b)
	}
	h.Write(sp.ClaimFee.AssetID[:])
	h.Write(sp.ClaimAddress.Bytes())
	var c [32]byte
	copy(c[:], h.Sum(nil))
	return c
}

func NewSwapPlan(rng io.Reader, plaintext SwapPlaintext) *SwapPlan {
	return &SwapPlan{
		SwapPlaintext:  plaintext,
		FeeBlinding:    NewBlinding(rng),
		ProofBlindingR: NewBlinding(rng),
		ProofBlindingS: NewBlinding(rng),
	}
}

// Balance takes both swap inputs and the pre-paid claim fee out of the
// transaction.
func (p *SwapPlan) Balance() asset.Balance {
	sp := p.SwapPlaintext
	return balanceOf(nil, []asset.Value{
		asset.NewValue(sp.TradingPair.Asset1, sp.Delta1),
		asset.NewValue(sp.TradingPair.Asset2, sp.Delta2),
		sp.ClaimFee.Value,
	})
}

func (p *SwapPlan) GasCost() fee.Gas { return swapGas() }
func (p *SwapPlan) Kind() Kind       { return KindSwap }
func (p *SwapPlan) isPlan()          {}

func NewSwapClaimPlan(rng io.Reader, plaintext SwapPlaintext, position uint64, outputData BatchSwapOutputData) *SwapClaimPlan {
	return &SwapClaimPlan{
		SwapPlaintext:  plaintext,
		Position:       position,
		OutputData:     outputData,
		ProofBlindingR: NewBlinding(rng),
		ProofBlindingS: NewBlinding(rng),
	}
}

// ClaimFee is the fee pre-paid by the swap.
func (p *SwapClaimPlan) ClaimFee() fee.Fee {
	return p.SwapPlaintext.ClaimFee
}

// Balance releases the pre-paid claim fee. Swap outputs are minted as new
// notes and do not pass through the transaction balance.
func (p *SwapClaimPlan) Balance() asset.Balance {
	return asset.BalanceOf(p.SwapPlaintext.ClaimFee.Value)
}

func (p *SwapClaimPlan) GasCost() fee.Gas { return swapClaimGas() }
func (p *SwapClaimPlan) Kind() Kind       { return KindSwapClaim }
func (p *SwapClaimPlan) isPlan()          {}

// ID is the hash of the position's immutable parameters.
func (p *Position) ID() PositionID {
	h, _ := blake2b.New256(nil)
	h.Write(positionIDTag)
	h.Write(p.Phi.Pair.Asset1[:])
	h.Write(p.Phi.Pair.Asset2[:])
	h.Write([]byte{byte(p.Phi.Fee >> 24), byte(p.Phi.Fee >> 16), byte(p.Phi.Fee >> 8), byte(p.Phi.Fee)})
	for _, a := range []asset.Amount{p.Phi.P, p.Phi.Q} {
		b, _ := a.MarshalBinary()
		h.Write(b)
	}
	h.Write(p.Nonce[:])
	var id PositionID
	copy(id[:], h.Sum(nil))
	return id
}

func (id PositionID) String() string {
	return hexutil.Encode(id[:])
}

func (id PositionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *PositionID) UnmarshalText(src []byte) error {
	return decodeFixed(id[:], src, "position id")
}

func ParsePositionID(s string) (PositionID, error) {
	var id PositionID
	err := id.UnmarshalText([]byte(s))
	return id, err
}

// LPNFTDenom is the denomination of the NFT representing the position in
// the given state.
func LPNFTDenom(id PositionID, state PositionState) asset.Denom {
	return asset.Denom(fmt.Sprintf("lpnft_%s_%s", state, id))
}

// WithdrawnLPNFTDenom is the denomination of the NFT of a position
// withdrawn sequence times.
func WithdrawnLPNFTDenom(id PositionID, sequence uint64) asset.Denom {
	return asset.Denom(fmt.Sprintf("lpnft_%s_%d_%s", PositionWithdrawn, sequence, id))
}

// Balance deposits the reserves and mints the opened position NFT.
func (p *PositionOpenPlan) Balance() asset.Balance {
	phi := p.Position.Phi
	return balanceOf(
		[]asset.Value{nft(LPNFTDenom(p.Position.ID(), PositionOpened))},
		[]asset.Value{
			asset.NewValue(phi.Pair.Asset1, p.Position.Reserves.R1),
			asset.NewValue(phi.Pair.Asset2, p.Position.Reserves.R2),
		},
	)
}

func (p *PositionOpenPlan) GasCost() fee.Gas { return stateChangeGas(400) }
func (p *PositionOpenPlan) Kind() Kind       { return KindPositionOpen }
func (p *PositionOpenPlan) isPlan()          {}

// Balance exchanges the opened position NFT for the closed one.
func (p *PositionClosePlan) Balance() asset.Balance {
	return balanceOf(
		[]asset.Value{nft(LPNFTDenom(p.PositionID, PositionClosed))},
		[]asset.Value{nft(LPNFTDenom(p.PositionID, PositionOpened))},
	)
}

func (p *PositionClosePlan) GasCost() fee.Gas { return stateChangeGas(64) }
func (p *PositionClosePlan) Kind() Kind       { return KindPositionClose }
func (p *PositionClosePlan) isPlan()          {}

// Balance burns the closed (or previously withdrawn) NFT, mints the next
// withdrawn NFT and releases reserves and rewards.
func (p *PositionWithdrawPlan) Balance() asset.Balance {
	prev := LPNFTDenom(p.PositionID, PositionClosed)
	if p.Sequence > 0 {
		prev = WithdrawnLPNFTDenom(p.PositionID, p.Sequence-1)
	}
	provided := []asset.Value{
		nft(WithdrawnLPNFTDenom(p.PositionID, p.Sequence)),
		asset.NewValue(p.Pair.Asset1, p.Reserves.R1),
		asset.NewValue(p.Pair.Asset2, p.Reserves.R2),
	}
	return balanceOf(append(provided, p.Rewards...), []asset.Value{nft(prev)})
}

func (p *PositionWithdrawPlan) GasCost() fee.Gas { return stateChangeGas(200) }
func (p *PositionWithdrawPlan) Kind() Kind       { return KindPositionWithdraw }
func (p *PositionWithdrawPlan) isPlan()          {}
