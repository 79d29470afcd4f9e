package note

import (
	"encoding/binary"
	"fmt"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

const (
	RseedLength      = 32
	CommitmentLength = 32
	NullifierLength  = 32
)

type (
	// Note is a spendable fragment of value controlled by an address.
	Note struct {
		Value   asset.Value     `json:"value"`
		Address account.Address `json:"address"`
		Rseed   Rseed           `json:"rseed"`
	}

	Rseed      [RseedLength]byte
	Commitment [CommitmentLength]byte
	Nullifier  [NullifierLength]byte

	// Source describes where the note came from.
	Source string

	// SpendableNoteRecord is a note known to the view service together
	// with its location in the note commitment tree.
	SpendableNoteRecord struct {
		NoteCommitment Commitment           `json:"noteCommitment"`
		Note           Note                 `json:"note"`
		AddressIndex   account.AddressIndex `json:"addressIndex"`
		Nullifier      Nullifier            `json:"nullifier"`
		HeightCreated  uint64               `json:"heightCreated"`
		HeightSpent    uint64               `json:"heightSpent,omitempty"`
		Position       uint64               `json:"position"`
		Source         Source               `json:"source,omitempty"`
	}
)

const (
	SourceTransaction Source = "transaction"
	SourceGenesis     Source = "genesis"
	SourceFundingLP   Source = "funding_lp"
)

var commitmentDomain = []byte("txplanner/note-commitment")

func NewNote(value asset.Value, address account.Address, rseed Rseed) Note {
	return Note{Value: value, Address: address, Rseed: rseed}
}

func (n Note) Amount() asset.Amount {
	return n.Value.Amount
}

func (n Note) AssetID() asset.ID {
	return n.Value.AssetID
}

// Commitment binds the note contents, it is the leaf of the note in the
// commitment tree.
func (n Note) Commitment() Commitment {
	h, _ := blake2b.New256(nil)
	h.Write(commitmentDomain)
	h.Write(n.Rseed[:])
	h.Write(n.Value.AssetID[:])
	amount, _ := n.Value.Amount.MarshalBinary()
	h.Write(amount)
	h.Write(n.Address.Bytes())
	var c Commitment
	copy(c[:], h.Sum(nil))
	return c
}

// DeriveNullifier returns the nullifier of the note at the position. The
// nullifier key nk is account specific.
func DeriveNullifier(nk []byte, position uint64, c Commitment) Nullifier {
	h, _ := blake2b.New256(nk)
	h.Write(binary.BigEndian.AppendUint64(nil, position))
	h.Write(c[:])
	var nf Nullifier
	copy(nf[:], h.Sum(nil))
	return nf
}

// IsSpent returns true when the note has been spent by a committed
// transaction.
func (r *SpendableNoteRecord) IsSpent() bool {
	return r.HeightSpent != 0
}

func (r *SpendableNoteRecord) String() string {
	return fmt.Sprintf("note %s at position %d (%s, %s)", r.NoteCommitment, r.Position, r.Note.Value, r.AddressIndex)
}

func (c Commitment) String() string {
	return hexutil.Encode(c[:])
}

func (c Commitment) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Commitment) UnmarshalText(src []byte) error {
	return decodeFixed(c[:], src, "note commitment")
}

func (n Nullifier) String() string {
	return hexutil.Encode(n[:])
}

func (n Nullifier) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *Nullifier) UnmarshalText(src []byte) error {
	return decodeFixed(n[:], src, "nullifier")
}

func (r Rseed) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(r[:])), nil
}

func (r *Rseed) UnmarshalText(src []byte) error {
	return decodeFixed(r[:], src, "rseed")
}

func decodeFixed(dst, src []byte, name string) error {
	b, err := hexutil.Decode(string(src))
	if err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("%s must be %d bytes, got %d", name, len(dst), len(b))
	}
	copy(dst, b)
	return nil
}
