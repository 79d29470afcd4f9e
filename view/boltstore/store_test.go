package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/action"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	test "github.com/alphabill-org/txplanner/internal/testutils"
	"github.com/alphabill-org/txplanner/note"
	"github.com/alphabill-org/txplanner/view"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "dinosaur simple verify deliver bless ridge monkey design venue six problem lucky"

var (
	stake = asset.StakingTokenID
	gm    = asset.Denom("gm").ID()
)

func createTestStore(t *testing.T) *Store {
	dbFile := filepath.Join(t.TempDir(), StoreFileName)
	store, err := New(dbFile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newRecord(id asset.ID, amount uint64, acc uint32, position uint64) *note.SpendableNoteRecord {
	n := note.NewNote(asset.NewValue(id, asset.NewAmount(amount)), test.RandomAddress(), note.Rseed{byte(position), byte(acc)})
	c := n.Commitment()
	return &note.SpendableNoteRecord{
		NoteCommitment: c,
		Note:           n,
		AddressIndex:   account.NewAddressIndex(acc),
		Nullifier:      note.DeriveNullifier([]byte("nk"), position, c),
		HeightCreated:  10,
		Position:       position,
		Source:         note.SourceTransaction,
	}
}

func TestNotes_PutGetRemove(t *testing.T) {
	s := createTestStore(t)
	rec := newRecord(stake, 100, 0, 1)

	got, err := s.Do().GetNote(rec.NoteCommitment)
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, s.Do().PutNote(rec))
	got, err = s.Do().GetNote(rec.NoteCommitment)
	require.NoError(t, err)
	require.Equal(t, rec, got)

	// put is idempotent
	require.NoError(t, s.Do().PutNote(rec))
	notes, err := s.Notes(context.Background(), view.NotesRequest{})
	require.NoError(t, err)
	require.Len(t, notes, 1)

	require.NoError(t, s.Do().RemoveNote(rec.NoteCommitment))
	got, err = s.Do().GetNote(rec.NoteCommitment)
	require.NoError(t, err)
	require.Nil(t, got)
	notes, err = s.Notes(context.Background(), view.NotesRequest{AssetID: &stake})
	require.NoError(t, err)
	require.Empty(t, notes)

	// removing missing note is not an error
	require.NoError(t, s.Do().RemoveNote(rec.NoteCommitment))
}

func TestNotes_Query(t *testing.T) {
	s := createTestStore(t)
	records := []*note.SpendableNoteRecord{
		newRecord(stake, 100, 0, 3),
		newRecord(stake, 50, 0, 1),
		newRecord(gm, 10, 0, 2),
		newRecord(stake, 70, 1, 4),
	}
	err := s.WithTransaction(func(txc *StoreTx) error {
		for _, rec := range records {
			if err := txc.PutNote(rec); err != nil {
				return err
			}
		}
		return txc.MarkSpent(records[1].Nullifier, 20)
	})
	require.NoError(t, err)

	acc0 := account.NewAddressIndex(0)
	acc1 := account.NewAddressIndex(1)
	tests := []struct {
		name      string
		req       view.NotesRequest
		positions []uint64
	}{
		{name: "all unspent", req: view.NotesRequest{}, positions: []uint64{2, 3, 4}},
		{name: "all", req: view.NotesRequest{IncludeSpent: true}, positions: []uint64{1, 2, 3, 4}},
		{name: "by asset", req: view.NotesRequest{AssetID: &stake}, positions: []uint64{3, 4}},
		{name: "by asset and account", req: view.NotesRequest{AssetID: &stake, AddressIndex: &acc0}, positions: []uint64{3}},
		{name: "by account with spent", req: view.NotesRequest{AddressIndex: &acc0, IncludeSpent: true}, positions: []uint64{1, 2, 3}},
		{name: "by other account", req: view.NotesRequest{AddressIndex: &acc1}, positions: []uint64{4}},
		{name: "unknown asset", req: view.NotesRequest{AssetID: &asset.ID{1}}, positions: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes, err := s.Notes(context.Background(), tt.req)
			require.NoError(t, err)
			var positions []uint64
			for _, n := range notes {
				positions = append(positions, n.Position)
			}
			require.Equal(t, tt.positions, positions)
		})
	}

	spent, err := s.Do().GetNote(records[1].NoteCommitment)
	require.NoError(t, err)
	require.True(t, spent.IsSpent())
	require.EqualValues(t, 20, spent.HeightSpent)

	b, err := s.Balances(context.Background(), &acc0)
	require.NoError(t, err)
	require.Equal(t, asset.NewAmount(100), b.ProvidedOf(stake))
	require.Equal(t, asset.NewAmount(10), b.ProvidedOf(gm))
}

func TestNotes_MarkSpentUnknownNullifier(t *testing.T) {
	s := createTestStore(t)
	err := s.Do().MarkSpent(note.Nullifier{1}, 5)
	require.ErrorIs(t, err, ErrUnknownNullifier)
}

func TestNotes_CancelledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Notes(ctx, view.NotesRequest{})
	require.ErrorIs(t, err, context.Canceled)
	_, err = s.NotesForVoting(ctx, view.NotesForVotingRequest{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNotesForVoting(t *testing.T) {
	s := createTestStore(t)
	validator := action.IdentityKey{7}
	delegation := action.DelegationDenom(validator).ID()

	unspent := newRecord(delegation, 100, 0, 1)
	spentLate := newRecord(delegation, 40, 0, 2)
	spentEarly := newRecord(delegation, 30, 0, 3)
	createdLate := newRecord(delegation, 20, 0, 4)
	createdLate.HeightCreated = 60
	otherAccount := newRecord(delegation, 10, 1, 5)
	notDelegation := newRecord(stake, 1000, 0, 6)

	err := s.WithTransaction(func(txc *StoreTx) error {
		if err := txc.AddValidator(validator); err != nil {
			return err
		}
		for _, rec := range []*note.SpendableNoteRecord{unspent, spentLate, spentEarly, createdLate, otherAccount, notDelegation} {
			if err := txc.PutNote(rec); err != nil {
				return err
			}
		}
		if err := txc.MarkSpent(spentLate.Nullifier, 50); err != nil {
			return err
		}
		return txc.MarkSpent(spentEarly.Nullifier, 49)
	})
	require.NoError(t, err)
	spentLate.HeightSpent = 50

	acc := account.NewAddressIndex(0)
	votable, err := s.NotesForVoting(context.Background(), view.NotesForVotingRequest{VotableAtHeight: 50, AddressIndex: &acc})
	require.NoError(t, err)
	require.Len(t, votable, 2)
	require.Equal(t, unspent, votable[0].Record)
	require.Equal(t, spentLate, votable[1].Record)
	require.Equal(t, validator, votable[0].IdentityKey)

	votable, err = s.NotesForVoting(context.Background(), view.NotesForVotingRequest{VotableAtHeight: 50})
	require.NoError(t, err)
	require.Len(t, votable, 3)
}

func TestAddressByIndex(t *testing.T) {
	s := createTestStore(t)
	_, err := s.AddressByIndex(context.Background(), account.NewAddressIndex(0))
	require.ErrorIs(t, err, view.ErrNotFound)

	keys, err := account.NewKeys(testMnemonic)
	require.NoError(t, err)
	key, err := keys.AccountKey(0)
	require.NoError(t, err)
	require.NoError(t, s.Do().SetAccountKey(key))

	idx := account.AddressIndex{Account: 0, Randomizer: [account.RandomizerLength]byte{1}}
	addr, err := s.AddressByIndex(context.Background(), idx)
	require.NoError(t, err)
	expected, err := keys.AddressByIndex(idx)
	require.NoError(t, err)
	require.Equal(t, expected, addr)
}

func TestParameters(t *testing.T) {
	s := createTestStore(t)
	_, err := s.AppParameters(context.Background())
	require.ErrorIs(t, err, view.ErrNotFound)
	_, err = s.FMDParameters(context.Background())
	require.ErrorIs(t, err, view.ErrNotFound)

	app := &view.AppParameters{ChainID: "test-chain", GasPrices: fee.NewGasPrices(1, 2, 3, 4)}
	fmd := &view.FMDParameters{PrecisionBits: 12, AsOfBlockHeight: 100}
	require.NoError(t, s.Do().SetAppParameters(app))
	require.NoError(t, s.Do().SetFMDParameters(fmd))

	gotApp, err := s.AppParameters(context.Background())
	require.NoError(t, err)
	require.Equal(t, app, gotApp)
	gotFMD, err := s.FMDParameters(context.Background())
	require.NoError(t, err)
	require.Equal(t, fmd, gotFMD)
}

func TestHeight(t *testing.T) {
	s := createTestStore(t)
	height, err := s.Do().GetHeight()
	require.NoError(t, err)
	require.EqualValues(t, 0, height)

	require.NoError(t, s.Do().SetHeight(42))
	height, err = s.Do().GetHeight()
	require.NoError(t, err)
	require.EqualValues(t, 42, height)
}

func TestStore_Persistence(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), StoreFileName)
	s, err := New(dbFile)
	require.NoError(t, err)
	rec := newRecord(gm, 5, 0, 9)
	require.NoError(t, s.Do().PutNote(rec))
	require.NoError(t, s.Close())

	s, err = New(dbFile)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Do().GetNote(rec.NoteCommitment)
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestStore_TransactionRollback(t *testing.T) {
	s := createTestStore(t)
	rec := newRecord(gm, 5, 0, 9)
	err := s.WithTransaction(func(txc *StoreTx) error {
		if err := txc.PutNote(rec); err != nil {
			return err
		}
		return txc.MarkSpent(note.Nullifier{1}, 1)
	})
	require.ErrorIs(t, err, ErrUnknownNullifier)

	got, err := s.Do().GetNote(rec.NoteCommitment)
	require.NoError(t, err)
	require.Nil(t, got)
}
