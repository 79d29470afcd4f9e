package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// amountBits is the width of the Amount range.
const amountBits = 128

var (
	ErrAmountOverflow  = errors.New("amount overflows 128 bits")
	ErrAmountUnderflow = errors.New("amount underflow")

	MaxAmount = Amount{v: *new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), amountBits), uint256.NewInt(1))}
)

// Amount is a non-negative quantity of an asset in the 128-bit range.
// The zero value is a valid zero amount. Amount is immutable, all
// operations return a new value.
type Amount struct {
	v uint256.Int
}

func NewAmount(v uint64) Amount {
	return Amount{v: *uint256.NewInt(v)}
}

// ParseAmount parses base 10 representation of the amount.
func ParseAmount(s string) (Amount, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	if b.Sign() < 0 {
		return Amount{}, fmt.Errorf("invalid amount %q: must not be negative", s)
	}
	if b.BitLen() > amountBits {
		return Amount{}, ErrAmountOverflow
	}
	v, _ := uint256.FromBig(b)
	return Amount{v: *v}, nil
}

func amountFromUint256(v *uint256.Int) (Amount, error) {
	if v.BitLen() > amountBits {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{v: *v}, nil
}

// FromUint256 converts v into an Amount, clamping it to MaxAmount.
func FromUint256(v *uint256.Int) Amount {
	return saturate(v)
}

// saturate clamps v into the Amount range.
func saturate(v *uint256.Int) Amount {
	if v.BitLen() > amountBits {
		return MaxAmount
	}
	return Amount{v: *v}
}

func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

func (a Amount) Add(b Amount) (Amount, error) {
	return amountFromUint256(new(uint256.Int).Add(&a.v, &b.v))
}

func (a Amount) SaturatingAdd(b Amount) Amount {
	return saturate(new(uint256.Int).Add(&a.v, &b.v))
}

func (a Amount) CheckedSub(b Amount) (Amount, error) {
	if a.v.Lt(&b.v) {
		return Amount{}, ErrAmountUnderflow
	}
	return Amount{v: *new(uint256.Int).Sub(&a.v, &b.v)}, nil
}

// SaturatingSub returns a-b or zero when b is greater than a.
func (a Amount) SaturatingSub(b Amount) Amount {
	if a.v.Lt(&b.v) {
		return Amount{}
	}
	return Amount{v: *new(uint256.Int).Sub(&a.v, &b.v)}
}

// MulDiv returns a*num/den rounded down, saturated to the Amount range.
// Panics when den is zero.
func (a Amount) MulDiv(num, den uint64) Amount {
	if den == 0 {
		panic("asset: division by zero")
	}
	v := new(uint256.Int).Mul(&a.v, uint256.NewInt(num))
	return saturate(v.Div(v, uint256.NewInt(den)))
}

// Uint64 returns the amount as uint64, the second return value is false
// when the amount does not fit.
func (a Amount) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

func (a Amount) Uint256() *uint256.Int {
	return new(uint256.Int).Set(&a.v)
}

func (a Amount) String() string {
	return a.v.ToBig().String()
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(src []byte) error {
	v, err := ParseAmount(string(src))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalBinary encodes the amount as 16 byte big-endian integer.
func (a Amount) MarshalBinary() ([]byte, error) {
	b := a.v.Bytes32()
	return b[32-amountBits/8:], nil
}

func (a *Amount) UnmarshalBinary(data []byte) error {
	if len(data) > amountBits/8 {
		return ErrAmountOverflow
	}
	a.v.SetBytes(data)
	return nil
}

func MaxOf(a, b Amount) Amount {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

func MinOf(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Sum adds up the amounts, failing on overflow.
func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	var err error
	for _, a := range amounts {
		if total, err = total.Add(a); err != nil {
			return Amount{}, err
		}
	}
	return total, nil
}
