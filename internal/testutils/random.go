package test

import (
	"crypto/rand"
	"fmt"
	"io"
	mrand "math/rand"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/asset"
)

// NewRand returns deterministic randomness source for tests.
func NewRand(seed int64) io.Reader {
	return mrand.New(mrand.NewSource(seed)) // #nosec G404
}

func RandomBytes(len int) []byte {
	bytes := make([]byte, len)
	_, err := rand.Read(bytes)
	if err != nil {
		panic(err)
	}
	return bytes
}

func RandomString(len int) string {
	b := RandomBytes(len/2 + 1)
	return fmt.Sprintf("%x", b)[:len]
}

func RandomAssetID() asset.ID {
	var id asset.ID
	copy(id[:], RandomBytes(asset.IDLength))
	return id
}

// RandomAddress returns random address with a transmission key looking
// like compressed public key.
func RandomAddress() account.Address {
	var addr account.Address
	copy(addr.Diversifier[:], RandomBytes(account.DiversifierLength))
	copy(addr.TransmissionKey[:], RandomBytes(account.TransmissionKeyLength))
	addr.TransmissionKey[0] = 0x02
	return addr
}
