// Package view defines the read-only access to a wallet's synchronized
// chain state the planner depends on.
package view

import (
	"context"
	"errors"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/action"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	"github.com/alphabill-org/txplanner/note"
)

var ErrNotFound = errors.New("not found")

type (
	// Client is the view service used to plan transactions.
	Client interface {
		AppParameters(ctx context.Context) (*AppParameters, error)
		FMDParameters(ctx context.Context) (*FMDParameters, error)
		// AddressByIndex returns the payment address of the address index.
		AddressByIndex(ctx context.Context, idx account.AddressIndex) (account.Address, error)
		Notes(ctx context.Context, req NotesRequest) ([]*note.SpendableNoteRecord, error)
		NotesForVoting(ctx context.Context, req NotesForVotingRequest) ([]*VotableNoteRecord, error)
	}

	AppParameters struct {
		ChainID   string        `json:"chainId"`
		GasPrices fee.GasPrices `json:"gasPrices"`
	}

	// FMDParameters are the fuzzy message detection parameters of the chain.
	FMDParameters struct {
		PrecisionBits   uint8  `json:"precisionBits"`
		AsOfBlockHeight uint64 `json:"asOfBlockHeight"`
	}

	NotesRequest struct {
		// AssetID filters notes by asset, nil means all assets.
		AssetID *asset.ID
		// AddressIndex filters notes by the account of the index, nil means
		// all accounts.
		AddressIndex *account.AddressIndex
		IncludeSpent bool
	}

	NotesForVotingRequest struct {
		VotableAtHeight uint64
		AddressIndex    *account.AddressIndex
	}

	// VotableNoteRecord is a delegation note that was unspent at the voting
	// start height of a proposal.
	VotableNoteRecord struct {
		Record      *note.SpendableNoteRecord `json:"record"`
		IdentityKey action.IdentityKey        `json:"identityKey"`
	}
)

// Matches reports whether the record satisfies the request filters.
func (r NotesRequest) Matches(rec *note.SpendableNoteRecord) bool {
	if r.AssetID != nil && rec.Note.AssetID() != *r.AssetID {
		return false
	}
	if r.AddressIndex != nil && rec.AddressIndex.Account != r.AddressIndex.Account {
		return false
	}
	return r.IncludeSpent || !rec.IsSpent()
}

// Matches reports whether the record is votable at the requested height.
func (r NotesForVotingRequest) Matches(rec *note.SpendableNoteRecord) bool {
	if r.AddressIndex != nil && rec.AddressIndex.Account != r.AddressIndex.Account {
		return false
	}
	if rec.HeightCreated >= r.VotableAtHeight {
		return false
	}
	return !rec.IsSpent() || rec.HeightSpent >= r.VotableAtHeight
}
