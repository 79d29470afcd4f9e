package asset

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

const IDLength = 32

// StakingTokenDenom is the base denomination of the staking token. Fees
// are always paid in this asset.
const StakingTokenDenom Denom = "ustake"

var (
	StakingTokenID = StakingTokenDenom.ID()

	errInvalidIDLength = fmt.Errorf("asset id must be %d bytes", IDLength)
)

type (
	// ID is an opaque asset identifier.
	ID [IDLength]byte

	// Denom is a human readable base denomination, ie "ustake" or
	// "udelegation_<validator>".
	Denom string

	// Value is an amount of a single asset.
	Value struct {
		AssetID ID     `json:"assetId"`
		Amount  Amount `json:"amount"`
	}
)

// ID derives the asset ID of the denomination.
func (d Denom) ID() ID {
	return blake2b.Sum256([]byte(d))
}

func (d Denom) String() string {
	return string(d)
}

func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

func (id ID) IsZero() bool {
	return id == ID{}
}

func (id ID) String() string {
	return hexutil.Encode(id[:])
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(id[:])), nil
}

func (id *ID) UnmarshalText(src []byte) error {
	b, err := hexutil.Decode(string(src))
	if err != nil {
		return fmt.Errorf("decoding asset id: %w", err)
	}
	if len(b) != IDLength {
		return errInvalidIDLength
	}
	copy(id[:], b)
	return nil
}

// ParseID parses 0x prefixed hex encoded asset ID.
func ParseID(s string) (ID, error) {
	var id ID
	if s == "" {
		return id, errors.New("asset id is empty")
	}
	err := id.UnmarshalText([]byte(s))
	return id, err
}

func NewValue(id ID, amount Amount) Value {
	return Value{AssetID: id, Amount: amount}
}

func (v Value) IsZero() bool {
	return v.Amount.IsZero()
}

func (v Value) String() string {
	return fmt.Sprintf("%s %s", v.Amount, v.AssetID)
}
