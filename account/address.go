package account

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	RandomizerLength      = 12
	DiversifierLength     = 16
	TransmissionKeyLength = 33
	AddressLength         = DiversifierLength + TransmissionKeyLength
)

var ErrInvalidAddress = errors.New("invalid address")

type (
	// AddressIndex identifies an address of the wallet: the account (sub
	// wallet) and the randomizer selecting one of its addresses.
	AddressIndex struct {
		Account    uint32                 `json:"account"`
		Randomizer [RandomizerLength]byte `json:"randomizer"`
	}

	// Address is a payment address, notes sent to it are controlled by the
	// account the address was derived for.
	Address struct {
		Diversifier     [DiversifierLength]byte
		TransmissionKey [TransmissionKeyLength]byte
	}
)

// NewAddressIndex returns the index of the durable address of the account.
func NewAddressIndex(account uint32) AddressIndex {
	return AddressIndex{Account: account}
}

// IsEphemeral returns true for one-time addresses, ie addresses with
// non-zero randomizer.
func (i AddressIndex) IsEphemeral() bool {
	return i.Randomizer != [RandomizerLength]byte{}
}

func (i AddressIndex) Bytes() []byte {
	b := binary.BigEndian.AppendUint32(make([]byte, 0, 4+RandomizerLength), i.Account)
	return append(b, i.Randomizer[:]...)
}

func (i AddressIndex) String() string {
	if !i.IsEphemeral() {
		return fmt.Sprintf("account %d", i.Account)
	}
	return fmt.Sprintf("account %d (ephemeral %x)", i.Account, i.Randomizer)
}

func (a Address) Bytes() []byte {
	b := make([]byte, 0, AddressLength)
	b = append(b, a.Diversifier[:]...)
	return append(b, a.TransmissionKey[:]...)
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) Equal(other Address) bool {
	return bytes.Equal(a.Bytes(), other.Bytes())
}

func (a Address) String() string {
	return hexutil.Encode(a.Bytes())
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(src []byte) error {
	addr, err := ParseAddress(string(src))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// ParseAddress decodes 0x prefixed hex encoded address.
func ParseAddress(s string) (Address, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return AddressFromBytes(b)
}

func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, AddressLength, len(b))
	}
	var a Address
	copy(a.Diversifier[:], b[:DiversifierLength])
	copy(a.TransmissionKey[:], b[DiversifierLength:])
	return a, nil
}
