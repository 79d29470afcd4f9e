package action

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

var auctionIDTag = []byte("txplanner/auction-id")

type (
	AuctionID [32]byte

	// DutchAuctionDescription describes an auction selling Input for
	// OutputID at a price descending from MaxOutput to MinOutput in
	// StepCount steps between StartHeight and EndHeight.
	DutchAuctionDescription struct {
		Input       asset.Value  `json:"input"`
		OutputID    asset.ID     `json:"outputId"`
		MaxOutput   asset.Amount `json:"maxOutput"`
		MinOutput   asset.Amount `json:"minOutput"`
		StartHeight uint64       `json:"startHeight"`
		EndHeight   uint64       `json:"endHeight"`
		StepCount   uint64       `json:"stepCount"`
		Nonce       [32]byte     `json:"nonce"`
	}

	DutchAuctionSchedulePlan struct {
		Description DutchAuctionDescription `json:"description"`
	}

	DutchAuctionEndPlan struct {
		AuctionID AuctionID `json:"auctionId"`
	}

	// DutchAuctionWithdrawPlan withdraws the reserves of an ended auction.
	// Seq is the sequence number of the auction NFT after the withdrawal.
	DutchAuctionWithdrawPlan struct {
		AuctionID      AuctionID   `json:"auctionId"`
		Seq            uint64      `json:"seq"`
		ReservesInput  asset.Value `json:"reservesInput"`
		ReservesOutput asset.Value `json:"reservesOutput"`
	}
)

// ID is the hash of the auction description.
func (d *DutchAuctionDescription) ID() AuctionID {
	h, _ := blake2b.New256(nil)
	h.Write(auctionIDTag)
	h.Write(d.Input.AssetID[:])
	h.Write(d.OutputID[:])
	for _, a := range []asset.Amount{d.Input.Amount, d.MaxOutput, d.MinOutput} {
		b, _ := a.MarshalBinary()
		h.Write(b)
	}
	for _, n := range []uint64{d.StartHeight, d.EndHeight, d.StepCount} {
		h.Write(binary.BigEndian.AppendUint64(nil, n))
	}
	h.Write(d.Nonce[:])
	var id AuctionID
	copy(id[:], h.Sum(nil))
	return id
}

// Validate checks the auction parameters are consistent.
func (d *DutchAuctionDescription) Validate() error {
	switch {
	case d.Input.Amount.IsZero():
		return errors.New("auction input must be positive")
	case d.Input.AssetID == d.OutputID:
		return errors.New("auction input and output assets must differ")
	case d.MaxOutput.Cmp(d.MinOutput) < 0:
		return fmt.Errorf("max output %s is less than min output %s", d.MaxOutput, d.MinOutput)
	case d.EndHeight <= d.StartHeight:
		return fmt.Errorf("end height %d must be after start height %d", d.EndHeight, d.StartHeight)
	case d.StepCount == 0:
		return errors.New("step count must be positive")
	}
	return nil
}

func (id AuctionID) String() string {
	return hexutil.Encode(id[:])
}

func (id AuctionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *AuctionID) UnmarshalText(src []byte) error {
	return decodeFixed(id[:], src, "auction id")
}

func ParseAuctionID(s string) (AuctionID, error) {
	var id AuctionID
	err := id.UnmarshalText([]byte(s))
	return id, err
}

// AuctionNFTDenom is the denomination of the auction NFT with given
// sequence number: 0 is an active auction, 1 ended, 2+ withdrawn.
func AuctionNFTDenom(id AuctionID, seq uint64) asset.Denom {
	return asset.Denom(fmt.Sprintf("auctionnft_%d_%s", seq, id))
}

// Balance escrows the input and mints the auction NFT.
func (p *DutchAuctionSchedulePlan) Balance() asset.Balance {
	return balanceOf(
		[]asset.Value{nft(AuctionNFTDenom(p.Description.ID(), 0))},
		[]asset.Value{p.Description.Input},
	)
}

func (p *DutchAuctionSchedulePlan) GasCost() fee.Gas { return stateChangeGas(2*valueSize + 32 + 3*8 + 32) }
func (p *DutchAuctionSchedulePlan) Kind() Kind       { return KindDutchAuctionSchedule }
func (p *DutchAuctionSchedulePlan) isPlan()          {}

func (p *DutchAuctionEndPlan) Balance() asset.Balance {
	return balanceOf(
		[]asset.Value{nft(AuctionNFTDenom(p.AuctionID, 1))},
		[]asset.Value{nft(AuctionNFTDenom(p.AuctionID, 0))},
	)
}

func (p *DutchAuctionEndPlan) GasCost() fee.Gas { return stateChangeGas(32) }
func (p *DutchAuctionEndPlan) Kind() Kind       { return KindDutchAuctionEnd }
func (p *DutchAuctionEndPlan) isPlan()          {}

// Balance burns the NFT of the previous sequence, mints the next one and
// releases the reserves.
func (p *DutchAuctionWithdrawPlan) Balance() asset.Balance {
	var prev uint64
	if p.Seq > 0 {
		prev = p.Seq - 1
	}
	return balanceOf(
		[]asset.Value{nft(AuctionNFTDenom(p.AuctionID, p.Seq)), p.ReservesInput, p.ReservesOutput},
		[]asset.Value{nft(AuctionNFTDenom(p.AuctionID, prev))},
	)
}

func (p *DutchAuctionWithdrawPlan) GasCost() fee.Gas { return stateChangeGas(32 + 8 + 2*valueSize) }
func (p *DutchAuctionWithdrawPlan) Kind() Kind       { return KindDutchAuctionWithdraw }
func (p *DutchAuctionWithdrawPlan) isPlan()          {}
