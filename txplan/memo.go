package txplan

import (
	"errors"
	"fmt"
	"io"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/action"
)

// MaxMemoTextLength is the maximum length of the memo text in bytes.
const MaxMemoTextLength = 432

var ErrMemoTooLong = errors.New("memo text is too long")

type (
	// MemoPlaintext is the encrypted memo content, readable by every output
	// recipient of the transaction.
	MemoPlaintext struct {
		ReturnAddress account.Address `json:"returnAddress"`
		Text          string          `json:"text"`
	}

	MemoPlan struct {
		Plaintext MemoPlaintext   `json:"plaintext"`
		Key       action.Blinding `json:"key"`
	}
)

func NewMemoPlaintext(returnAddress account.Address, text string) (MemoPlaintext, error) {
	if len(text) > MaxMemoTextLength {
		return MemoPlaintext{}, fmt.Errorf("%w: %d bytes, max %d", ErrMemoTooLong, len(text), MaxMemoTextLength)
	}
	return MemoPlaintext{ReturnAddress: returnAddress, Text: text}, nil
}

// NewMemoPlan creates memo plan with a random memo key.
func NewMemoPlan(rng io.Reader, plaintext MemoPlaintext) (*MemoPlan, error) {
	if len(plaintext.Text) > MaxMemoTextLength {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrMemoTooLong, len(plaintext.Text), MaxMemoTextLength)
	}
	return &MemoPlan{Plaintext: plaintext, Key: action.NewBlinding(rng)}, nil
}
