package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/action"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	test "github.com/alphabill-org/txplanner/internal/testutils"
	testlogger "github.com/alphabill-org/txplanner/internal/testutils/logger"
	"github.com/alphabill-org/txplanner/note"
	"github.com/alphabill-org/txplanner/planner"
	"github.com/alphabill-org/txplanner/view"
	"github.com/alphabill-org/txplanner/view/backend"
	"github.com/alphabill-org/txplanner/view/boltstore"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "dinosaur simple verify deliver bless ridge monkey design venue six problem lucky"

func startBackend(t *testing.T) (*boltstore.Store, *ViewClient) {
	store, err := boltstore.New(filepath.Join(t.TempDir(), boltstore.StoreFileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv := httptest.NewServer(backend.NewHandler(store, testlogger.New(t)))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	require.NoError(t, err)
	return store, c
}

func newRecord(id asset.ID, amount uint64, acc uint32, position uint64) *note.SpendableNoteRecord {
	n := note.NewNote(asset.NewValue(id, asset.NewAmount(amount)), test.RandomAddress(), note.Rseed{byte(position)})
	c := n.Commitment()
	return &note.SpendableNoteRecord{
		NoteCommitment: c,
		Note:           n,
		AddressIndex:   account.NewAddressIndex(acc),
		Nullifier:      note.DeriveNullifier([]byte("nk"), position, c),
		HeightCreated:  1,
		Position:       position,
		Source:         note.SourceGenesis,
	}
}

func TestNew(t *testing.T) {
	c, err := New("localhost:1234")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:1234/api/v1/notes", c.notesURL.String())

	c, err = New("https://example.com/view/")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/view/api/v1/app-params", c.appParamsURL.String())

	_, err = New("http://[::1")
	require.ErrorContains(t, err, "error parsing view client base URL")
}

func TestParameters(t *testing.T) {
	store, c := startBackend(t)
	ctx := context.Background()

	_, err := c.AppParameters(ctx)
	require.ErrorIs(t, err, view.ErrNotFound)
	_, err = c.FMDParameters(ctx)
	require.ErrorIs(t, err, view.ErrNotFound)

	app := &view.AppParameters{ChainID: "chain-1", GasPrices: fee.NewGasPrices(5, 6, 7, 8)}
	fmd := &view.FMDParameters{PrecisionBits: 3, AsOfBlockHeight: 9}
	require.NoError(t, store.Do().SetAppParameters(app))
	require.NoError(t, store.Do().SetFMDParameters(fmd))

	gotApp, err := c.AppParameters(ctx)
	require.NoError(t, err)
	require.Equal(t, app, gotApp)
	gotFMD, err := c.FMDParameters(ctx)
	require.NoError(t, err)
	require.Equal(t, fmd, gotFMD)

	info, err := c.GetInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, "chain-1", info.ChainID)
}

func TestAddressByIndex(t *testing.T) {
	store, c := startBackend(t)
	ctx := context.Background()

	_, err := c.AddressByIndex(ctx, account.NewAddressIndex(3))
	require.ErrorIs(t, err, view.ErrNotFound)

	keys, err := account.NewKeys(testMnemonic)
	require.NoError(t, err)
	key, err := keys.AccountKey(3)
	require.NoError(t, err)
	require.NoError(t, store.Do().SetAccountKey(key))

	for _, idx := range []account.AddressIndex{
		account.NewAddressIndex(3),
		{Account: 3, Randomizer: [account.RandomizerLength]byte{9, 8, 7}},
	} {
		addr, err := c.AddressByIndex(ctx, idx)
		require.NoError(t, err)
		expected, err := keys.AddressByIndex(idx)
		require.NoError(t, err)
		require.Equal(t, expected, addr)
	}
}

func TestNotes(t *testing.T) {
	store, c := startBackend(t)
	ctx := context.Background()
	gm := asset.Denom("gm").ID()
	r1 := newRecord(asset.StakingTokenID, 10, 0, 1)
	r2 := newRecord(gm, 20, 0, 2)
	r3 := newRecord(gm, 30, 1, 3)
	for _, rec := range []*note.SpendableNoteRecord{r1, r2, r3} {
		require.NoError(t, store.Do().PutNote(rec))
	}
	require.NoError(t, store.Do().MarkSpent(r1.Nullifier, 2))
	r1.HeightSpent = 2

	notes, err := c.Notes(ctx, view.NotesRequest{})
	require.NoError(t, err)
	require.Equal(t, []*note.SpendableNoteRecord{r2, r3}, notes)

	acc := account.NewAddressIndex(0)
	notes, err = c.Notes(ctx, view.NotesRequest{AddressIndex: &acc, IncludeSpent: true})
	require.NoError(t, err)
	require.Equal(t, []*note.SpendableNoteRecord{r1, r2}, notes)

	notes, err = c.Notes(ctx, view.NotesRequest{AssetID: &gm, AddressIndex: &acc})
	require.NoError(t, err)
	require.Equal(t, []*note.SpendableNoteRecord{r2}, notes)
}

func TestNotesForVoting(t *testing.T) {
	store, c := startBackend(t)
	validator := action.IdentityKey{42}
	rec := newRecord(action.DelegationDenom(validator).ID(), 100, 0, 1)
	require.NoError(t, store.Do().AddValidator(validator))
	require.NoError(t, store.Do().PutNote(rec))

	acc := account.NewAddressIndex(0)
	notes, err := c.NotesForVoting(context.Background(), view.NotesForVotingRequest{VotableAtHeight: 5, AddressIndex: &acc})
	require.NoError(t, err)
	require.Equal(t, []*view.VotableNoteRecord{{Record: rec, IdentityKey: validator}}, notes)
}

func TestServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Notes(context.Background(), view.NotesRequest{})
	require.ErrorContains(t, err, "backend responded 502 Bad Gateway: upstream unavailable")
	require.NotErrorIs(t, err, view.ErrNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.AppParameters(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPlanOverREST(t *testing.T) {
	store, c := startBackend(t)
	keys, err := account.NewKeys(testMnemonic)
	require.NoError(t, err)
	key, err := keys.AccountKey(0)
	require.NoError(t, err)
	require.NoError(t, store.Do().SetAccountKey(key))
	require.NoError(t, store.Do().SetAppParameters(&view.AppParameters{ChainID: "chain-1", GasPrices: fee.NewGasPrices(0, 0, 1, 0)}))
	require.NoError(t, store.Do().SetFMDParameters(&view.FMDParameters{PrecisionBits: 2}))
	require.NoError(t, store.Do().PutNote(newRecord(asset.StakingTokenID, 60, 0, 1)))
	require.NoError(t, store.Do().PutNote(newRecord(asset.StakingTokenID, 70, 0, 2)))

	plan, err := planner.New(test.NewRand(1)).
		Output(asset.NewValue(asset.StakingTokenID, asset.NewAmount(100)), test.RandomAddress()).
		Plan(context.Background(), c, account.NewAddressIndex(0))
	require.NoError(t, err)
	require.Equal(t, "chain-1", plan.Params.ChainID)
	require.Len(t, plan.SpendPlans(), 2)
	require.True(t, plan.Balance().Sub(plan.Params.Fee.Value).IsZero())

	changeAddr, err := keys.AddressByIndex(account.NewAddressIndex(0))
	require.NoError(t, err)
	require.Equal(t, changeAddr, plan.Memo.Plaintext.ReturnAddress)
}
