package asset

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

var (
	idA = Denom("a").ID()
	idB = Denom("b").ID()
)

func TestBalance_ProvideRequire(t *testing.T) {
	b := NewBalance()
	require.True(t, b.IsZero())

	b.Provide(NewValue(idA, NewAmount(10)))
	b.Require(NewValue(idA, NewAmount(4)))
	require.Equal(t, []Value{{AssetID: idA, Amount: NewAmount(6)}}, b.Provided())
	require.Empty(t, b.Required())

	b.Require(NewValue(idA, NewAmount(16)))
	require.Equal(t, []Value{{AssetID: idA, Amount: NewAmount(10)}}, b.Required())
	require.Empty(t, b.Provided())
	require.Equal(t, NewAmount(10), b.RequiredOf(idA))
	require.True(t, b.ProvidedOf(idA).IsZero())

	b.Provide(NewValue(idA, NewAmount(10)))
	require.True(t, b.IsZero())
}

func TestBalance_ZeroValuesAreIgnored(t *testing.T) {
	b := BalanceOf(NewValue(idA, Amount{}))
	require.True(t, b.IsZero())
	b.Require(NewValue(idB, Amount{}))
	require.True(t, b.IsZero())
}

func TestBalance_Add(t *testing.T) {
	b := BalanceOf(NewValue(idA, NewAmount(5)))
	other := NewBalance().Require(NewValue(idA, NewAmount(5))).Require(NewValue(idB, NewAmount(7)))

	b.Add(other)
	require.Empty(t, b.Provided())
	require.Equal(t, []Value{{AssetID: idB, Amount: NewAmount(7)}}, b.Required())
	// other is not modified
	require.Len(t, other.Required(), 2)
}

func TestBalance_Negate(t *testing.T) {
	b := BalanceOf(NewValue(idA, NewAmount(5))).Require(NewValue(idB, NewAmount(2)))
	n := b.Negate()
	require.Equal(t, b.Provided(), n.Required())
	require.Equal(t, b.Required(), n.Provided())
	require.True(t, b.Clone().Add(n).IsZero())
}

func TestBalance_OrderIsAscendingAssetID(t *testing.T) {
	b := NewBalance()
	ids := []ID{Denom("x").ID(), Denom("y").ID(), Denom("z").ID(), idA, idB}
	for _, id := range ids {
		b.Require(NewValue(id, NewAmount(1)))
	}
	req := b.Required()
	require.Len(t, req, len(ids))
	for i := 1; i < len(req); i++ {
		require.Negative(t, req[i-1].AssetID.Compare(req[i].AssetID))
	}
}

func TestBalance_MagnitudeExceeds128Bits(t *testing.T) {
	b := BalanceOf(NewValue(idA, MaxAmount), NewValue(idA, MaxAmount))
	// view saturates but the accumulator keeps exact value
	require.Equal(t, MaxAmount, b.ProvidedOf(idA))
	b.Require(NewValue(idA, MaxAmount))
	b.Require(NewValue(idA, MaxAmount))
	require.True(t, b.IsZero())
}

func TestBalance_String(t *testing.T) {
	b := BalanceOf(NewValue(idA, NewAmount(5)))
	require.Equal(t, "{"+idA.String()+": +5}", b.String())
}

func TestBalance_Conservation(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("providing and requiring the same values nets to zero", prop.ForAll(
		func(amounts []uint64, assets []bool) bool {
			b := NewBalance()
			var values []Value
			for i, a := range amounts {
				id := idA
				if i < len(assets) && assets[i] {
					id = idB
				}
				values = append(values, NewValue(id, NewAmount(a)))
			}
			for _, v := range values {
				b.Provide(v)
			}
			for i := len(values) - 1; i >= 0; i-- {
				b.Require(values[i])
			}
			return b.IsZero()
		},
		gen.SliceOf(gen.UInt64()),
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("provided and required are disjoint", prop.ForAll(
		func(provide, req uint64) bool {
			b := BalanceOf(NewValue(idA, NewAmount(provide))).Require(NewValue(idA, NewAmount(req)))
			return len(b.Provided())+len(b.Required()) <= 1
		},
		gen.UInt64(),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
