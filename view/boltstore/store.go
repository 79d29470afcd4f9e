// Package boltstore is a local view service keeping notes, account keys and
// chain parameters in a bolt database.
package boltstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/action"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/note"
	"github.com/alphabill-org/txplanner/view"
	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
)

const StoreFileName = "view.db"

var (
	notesBucket      = []byte("notesBucket")      // commitment => note record cbor
	assetIndexBucket = []byte("assetIndexBucket") // asset id => bucket[commitment]nil
	nullifierBucket  = []byte("nullifierBucket")  // nullifier => commitment
	accountsBucket   = []byte("accountsBucket")   // account => account key cbor
	validatorsBucket = []byte("validatorsBucket") // delegation asset id => identity key
	metaBucket       = []byte("metaBucket")       // key => cbor
)

var (
	appParamsKey = []byte("appParamsKey")
	fmdParamsKey = []byte("fmdParamsKey")
	heightKey    = []byte("heightKey")
)

var ErrUnknownNullifier = errors.New("unknown nullifier")

type (
	Store struct {
		db *bolt.DB
	}

	// StoreTx executes store operations either in the transaction it was
	// created with or in a transaction of its own.
	StoreTx struct {
		db *Store
		tx *bolt.Tx
	}
)

// New opens the store in dbFile. If the file does not exist then it will be
// created, however, parent directories must exist beforehand.
func New(dbFile string) (*Store, error) {
	db, err := bolt.Open(dbFile, 0600, &bolt.Options{Timeout: 3 * time.Second}) // -rw-------
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt DB: %w", err)
	}
	s := &Store{db: db}
	if err := s.createBuckets(); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create db buckets: %w", err), db.Close())
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) WithTransaction(fn func(txc *StoreTx) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&StoreTx{db: s, tx: tx})
	})
}

func (s *Store) Do() *StoreTx {
	return &StoreTx{db: s}
}

// PutNote adds the note record or replaces the record with the same
// commitment.
func (s *StoreTx) PutNote(rec *note.SpendableNoteRecord) error {
	return s.withTx(s.tx, func(tx *bolt.Tx) error {
		if err := s.removeNote(tx, rec.NoteCommitment); err != nil {
			return err
		}
		recBytes, err := cbor.Marshal(rec)
		if err != nil {
			return err
		}
		if err := tx.Bucket(notesBucket).Put(rec.NoteCommitment[:], recBytes); err != nil {
			return err
		}
		assetID := rec.Note.AssetID()
		idx, err := tx.Bucket(assetIndexBucket).CreateBucketIfNotExists(assetID[:])
		if err != nil {
			return err
		}
		if err := idx.Put(rec.NoteCommitment[:], nil); err != nil {
			return err
		}
		return tx.Bucket(nullifierBucket).Put(rec.Nullifier[:], rec.NoteCommitment[:])
	}, true)
}

func (s *StoreTx) RemoveNote(c note.Commitment) error {
	return s.withTx(s.tx, func(tx *bolt.Tx) error {
		return s.removeNote(tx, c)
	}, true)
}

// GetNote returns nil when the note is not found.
func (s *StoreTx) GetNote(c note.Commitment) (*note.SpendableNoteRecord, error) {
	var rec *note.SpendableNoteRecord
	err := s.withTx(s.tx, func(tx *bolt.Tx) (err error) {
		rec, err = s.getNote(tx, c[:])
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// MarkSpent marks the note of the nullifier spent at the height.
func (s *StoreTx) MarkSpent(nf note.Nullifier, height uint64) error {
	return s.withTx(s.tx, func(tx *bolt.Tx) error {
		c := tx.Bucket(nullifierBucket).Get(nf[:])
		if c == nil {
			return fmt.Errorf("%w %s", ErrUnknownNullifier, nf)
		}
		rec, err := s.getNote(tx, c)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("note in nullifier index not found in notes bucket commitment=%x", c)
		}
		rec.HeightSpent = height
		recBytes, err := cbor.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket(notesBucket).Put(c, recBytes)
	}, true)
}

// GetNotes returns the notes matching the request ordered by position.
func (s *StoreTx) GetNotes(req view.NotesRequest) ([]*note.SpendableNoteRecord, error) {
	var res []*note.SpendableNoteRecord
	collect := func(tx *bolt.Tx) func(k, _ []byte) error {
		return func(k, _ []byte) error {
			rec, err := s.getNote(tx, k)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("note in asset index not found in notes bucket commitment=%x", k)
			}
			if req.Matches(rec) {
				res = append(res, rec)
			}
			return nil
		}
	}
	err := s.withTx(s.tx, func(tx *bolt.Tx) error {
		if req.AssetID == nil {
			return tx.Bucket(notesBucket).ForEach(collect(tx))
		}
		idx := tx.Bucket(assetIndexBucket).Bucket(req.AssetID[:])
		if idx == nil {
			return nil
		}
		return idx.ForEach(collect(tx))
	}, false)
	if err != nil {
		return nil, err
	}
	sortByPosition(res)
	return res, nil
}

// GetNotesForVoting returns the delegation notes votable at the requested
// height together with the validator they are delegated to.
func (s *StoreTx) GetNotesForVoting(req view.NotesForVotingRequest) ([]*view.VotableNoteRecord, error) {
	var res []*view.VotableNoteRecord
	err := s.withTx(s.tx, func(tx *bolt.Tx) error {
		return tx.Bucket(validatorsBucket).ForEach(func(assetID, identity []byte) error {
			idx := tx.Bucket(assetIndexBucket).Bucket(assetID)
			if idx == nil {
				return nil
			}
			var ik action.IdentityKey
			copy(ik[:], identity)
			return idx.ForEach(func(k, _ []byte) error {
				rec, err := s.getNote(tx, k)
				if err != nil {
					return err
				}
				if rec != nil && req.Matches(rec) {
					res = append(res, &view.VotableNoteRecord{Record: rec, IdentityKey: ik})
				}
				return nil
			})
		})
	}, false)
	if err != nil {
		return nil, err
	}
	sortVotableByPosition(res)
	return res, nil
}

// AddValidator registers the delegation token of the validator so its notes
// are found for voting.
func (s *StoreTx) AddValidator(ik action.IdentityKey) error {
	return s.withTx(s.tx, func(tx *bolt.Tx) error {
		id := action.DelegationDenom(ik).ID()
		return tx.Bucket(validatorsBucket).Put(id[:], ik[:])
	}, true)
}

func (s *StoreTx) SetAccountKey(key *account.AccountKey) error {
	return s.withTx(s.tx, func(tx *bolt.Tx) error {
		b, err := cbor.Marshal(key)
		if err != nil {
			return err
		}
		return tx.Bucket(accountsBucket).Put(accountKey(key.Account), b)
	}, true)
}

// GetAccountKey returns nil when the account is not found.
func (s *StoreTx) GetAccountKey(acc uint32) (*account.AccountKey, error) {
	var key *account.AccountKey
	err := s.withTx(s.tx, func(tx *bolt.Tx) error {
		b := tx.Bucket(accountsBucket).Get(accountKey(acc))
		if b == nil {
			return nil
		}
		return cbor.Unmarshal(b, &key)
	}, false)
	if err != nil {
		return nil, err
	}
	return key, nil
}

func (s *StoreTx) SetAppParameters(p *view.AppParameters) error {
	return s.setMeta(appParamsKey, p)
}

func (s *StoreTx) GetAppParameters() (*view.AppParameters, error) {
	var p *view.AppParameters
	if err := s.getMeta(appParamsKey, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *StoreTx) SetFMDParameters(p *view.FMDParameters) error {
	return s.setMeta(fmdParamsKey, p)
}

func (s *StoreTx) GetFMDParameters() (*view.FMDParameters, error) {
	var p *view.FMDParameters
	if err := s.getMeta(fmdParamsKey, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetHeight stores the height the notes are synchronized to.
func (s *StoreTx) SetHeight(height uint64) error {
	return s.setMeta(heightKey, height)
}

func (s *StoreTx) GetHeight() (uint64, error) {
	var height uint64
	if err := s.getMeta(heightKey, &height); err != nil {
		return 0, err
	}
	return height, nil
}

func (s *StoreTx) setMeta(key []byte, v any) error {
	return s.withTx(s.tx, func(tx *bolt.Tx) error {
		b, err := cbor.Marshal(v)
		if err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put(key, b)
	}, true)
}

// getMeta leaves v untouched when the key is not set.
func (s *StoreTx) getMeta(key []byte, v any) error {
	return s.withTx(s.tx, func(tx *bolt.Tx) error {
		b := tx.Bucket(metaBucket).Get(key)
		if b == nil {
			return nil
		}
		return cbor.Unmarshal(b, v)
	}, false)
}

func (s *StoreTx) removeNote(tx *bolt.Tx, c note.Commitment) error {
	rec, err := s.getNote(tx, c[:])
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	assetID := rec.Note.AssetID()
	if idx := tx.Bucket(assetIndexBucket).Bucket(assetID[:]); idx != nil {
		if err := idx.Delete(c[:]); err != nil {
			return err
		}
	}
	if err := tx.Bucket(nullifierBucket).Delete(rec.Nullifier[:]); err != nil {
		return err
	}
	return tx.Bucket(notesBucket).Delete(c[:])
}

func (s *StoreTx) getNote(tx *bolt.Tx, c []byte) (*note.SpendableNoteRecord, error) {
	recBytes := tx.Bucket(notesBucket).Get(c)
	if len(recBytes) == 0 {
		return nil, nil
	}
	var rec *note.SpendableNoteRecord
	if err := cbor.Unmarshal(recBytes, &rec); err != nil {
		return nil, fmt.Errorf("decoding note record %x: %w", c, err)
	}
	return rec, nil
}

func (s *StoreTx) withTx(dbTx *bolt.Tx, myFunc func(tx *bolt.Tx) error, writeTx bool) error {
	if dbTx != nil {
		return myFunc(dbTx)
	} else if writeTx {
		return s.db.db.Update(myFunc)
	} else {
		return s.db.db.View(myFunc)
	}
}

func (s *Store) createBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{notesBucket, assetIndexBucket, nullifierBucket, accountsBucket, validatorsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
}

func accountKey(acc uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, acc)
}

// AppParameters returns view.ErrNotFound until the parameters are set.
func (s *Store) AppParameters(ctx context.Context) (*view.AppParameters, error) {
	p, err := s.Do().GetAppParameters()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("app parameters: %w", view.ErrNotFound)
	}
	return p, nil
}

// FMDParameters returns view.ErrNotFound until the parameters are set.
func (s *Store) FMDParameters(ctx context.Context) (*view.FMDParameters, error) {
	p, err := s.Do().GetFMDParameters()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("fmd parameters: %w", view.ErrNotFound)
	}
	return p, nil
}

func (s *Store) AddressByIndex(ctx context.Context, idx account.AddressIndex) (account.Address, error) {
	key, err := s.Do().GetAccountKey(idx.Account)
	if err != nil {
		return account.Address{}, err
	}
	if key == nil {
		return account.Address{}, fmt.Errorf("account %d: %w", idx.Account, view.ErrNotFound)
	}
	return key.Address(idx.Randomizer)
}

func (s *Store) Notes(ctx context.Context, req view.NotesRequest) ([]*note.SpendableNoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Do().GetNotes(req)
}

func (s *Store) NotesForVoting(ctx context.Context, req view.NotesForVotingRequest) ([]*view.VotableNoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Do().GetNotesForVoting(req)
}

// Balances sums the unspent notes of the account per asset.
func (s *Store) Balances(ctx context.Context, acc *account.AddressIndex) (asset.Balance, error) {
	notes, err := s.Notes(ctx, view.NotesRequest{AddressIndex: acc})
	if err != nil {
		return asset.Balance{}, err
	}
	b := asset.NewBalance()
	for _, n := range notes {
		b.Provide(n.Note.Value)
	}
	return b, nil
}

func sortByPosition(records []*note.SpendableNoteRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Position < records[j].Position })
}

func sortVotableByPosition(records []*view.VotableNoteRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Record.Position < records[j].Record.Position })
}
