package asset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"
)

type (
	// Balance is a signed, per asset sum of values. Positive entries are
	// value provided to (entering) the transaction, negative entries are
	// value required by (leaving) the transaction.
	//
	// The zero value is not usable, use NewBalance.
	Balance struct {
		entries map[ID]imbalance
	}

	imbalance struct {
		required bool
		// magnitude is never zero, zero entries are removed from the map.
		// 256 bits leave ample headroom for sums of 128-bit amounts.
		magnitude uint256.Int
	}
)

func NewBalance() Balance {
	return Balance{entries: make(map[ID]imbalance)}
}

// BalanceOf returns balance providing the given values.
func BalanceOf(values ...Value) Balance {
	b := NewBalance()
	for _, v := range values {
		b.Provide(v)
	}
	return b
}

func (b Balance) Clone() Balance {
	c := NewBalance()
	maps.Copy(c.entries, b.entries)
	return c
}

// Provide adds positive value to the balance.
func (b Balance) Provide(v Value) Balance {
	b.add(v.AssetID, false, &v.Amount.v)
	return b
}

// Require adds negative value to the balance.
func (b Balance) Require(v Value) Balance {
	b.add(v.AssetID, true, &v.Amount.v)
	return b
}

// Sub is an alias of Require.
func (b Balance) Sub(v Value) Balance {
	return b.Require(v)
}

// Add adds all entries of the other balance into b.
func (b Balance) Add(other Balance) Balance {
	for id, e := range other.entries {
		b.add(id, e.required, &e.magnitude)
	}
	return b
}

// Negate returns a new balance where provided and required sides are
// swapped.
func (b Balance) Negate() Balance {
	n := NewBalance()
	for id, e := range b.entries {
		n.entries[id] = imbalance{required: !e.required, magnitude: e.magnitude}
	}
	return n
}

func (b Balance) add(id ID, required bool, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	cur, ok := b.entries[id]
	if !ok {
		b.entries[id] = imbalance{required: required, magnitude: *amount}
		return
	}
	if cur.required == required {
		cur.magnitude.Add(&cur.magnitude, amount)
		b.entries[id] = cur
		return
	}
	switch cur.magnitude.Cmp(amount) {
	case 0:
		delete(b.entries, id)
	case 1:
		cur.magnitude.Sub(&cur.magnitude, amount)
		b.entries[id] = cur
	default:
		b.entries[id] = imbalance{required: required, magnitude: *new(uint256.Int).Sub(amount, &cur.magnitude)}
	}
}

func (b Balance) IsZero() bool {
	return len(b.entries) == 0
}

// Required returns the deficit of every asset whose balance is negative,
// ordered by ascending asset ID.
func (b Balance) Required() []Value {
	return b.side(true)
}

// Provided returns the surplus of every asset whose balance is positive,
// ordered by ascending asset ID.
func (b Balance) Provided() []Value {
	return b.side(false)
}

// ProvidedOf returns the surplus of the asset, zero when the asset is
// not in surplus.
func (b Balance) ProvidedOf(id ID) Amount {
	if e, ok := b.entries[id]; ok && !e.required {
		return saturate(&e.magnitude)
	}
	return Amount{}
}

// RequiredOf returns the deficit of the asset, zero when the asset is
// not in deficit.
func (b Balance) RequiredOf(id ID) Amount {
	if e, ok := b.entries[id]; ok && e.required {
		return saturate(&e.magnitude)
	}
	return Amount{}
}

func (b Balance) side(required bool) []Value {
	var values []Value
	for _, id := range b.sortedIDs() {
		e := b.entries[id]
		if e.required != required {
			continue
		}
		values = append(values, Value{AssetID: id, Amount: saturate(&e.magnitude)})
	}
	return values
}

func (b Balance) sortedIDs() []ID {
	ids := maps.Keys(b.entries)
	SortIDs(ids)
	return ids
}

// SortIDs sorts asset IDs in ascending order.
func SortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
}

func (b Balance) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, id := range b.sortedIDs() {
		if i > 0 {
			sb.WriteString(", ")
		}
		e := b.entries[id]
		sign := "+"
		if e.required {
			sign = "-"
		}
		fmt.Fprintf(&sb, "%s: %s%s", id, sign, e.magnitude.ToBig())
	}
	sb.WriteString("}")
	return sb.String()
}
