//go:generate go run go.uber.org/mock/mockgen -source=identity.go -destination=../mocks/mock_identity_repository.go -package=mocks
package repositories

import (
	"chat-desk/domain"
	"chat-desk/errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

type IIdentityRepository interface {
	GetOrCreate(anonymousKey, clientAddress string) (domain.Identity, bool, error)
	Get(id uint64) (domain.Identity, error)
	List() ([]domain.Identity, error)
}

type IdentityRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
	now func() time.Time
}

func NewIdentityRepository(db *badger.DB, log *slog.Logger) (*IdentityRepository, error) {
	seq, err := db.GetSequence([]byte(identitySeqKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("identity sequence: %w", err)
	}
	return &IdentityRepository{db: db, log: log, seq: seq, now: utcNow}, nil
}

// Close hands the unused part of the leased id range back to Badger.
func (r *IdentityRepository) Close() error {
	return r.seq.Release()
}

// GetOrCreate returns the Identity owning anonymousKey, creating it with the next id when absent.
// The boolean reports whether this call created it.
// An existing identity only gets its client address refreshed, and only when it changed,
// so concurrent lookups of a known key never write.
// Only the anonymous key is read in the transaction: creations of different keys never
// conflict. A caller losing a same-key race leaves its leased id unused.
func (r *IdentityRepository) GetOrCreate(anonymousKey, clientAddress string) (domain.Identity, bool, error) {
	var (
		identity domain.Identity
		created  bool
		id       uint64
	)
	err := withConflictRetry(r.db, r.log, func(txn *badger.Txn) error {
		created = false
		item, err := txn.Get(identityKey(anonymousKey))
		switch {
		case err == nil:
			var record diskIdentity
			if err = item.Value(func(val []byte) error {
				return cbor.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			identity = toIdentity(record)
			if clientAddress == "" || identity.ClientAddress == clientAddress {
				return nil
			}
			identity.ClientAddress = clientAddress
			return putIdentity(txn, identity)

		case errors.Is(err, badger.ErrKeyNotFound):
			if id == 0 {
				next, err := r.seq.Next()
				if err != nil {
					return err
				}
				id = next + 1
			}
			identity = domain.Identity{
				ID:            id,
				AnonymousKey:  anonymousKey,
				ClientAddress: clientAddress,
				CreatedAt:     r.now(),
			}
			if err = putIdentity(txn, identity); err != nil {
				return err
			}
			created = true
			return txn.Set(identityIDKey(id), []byte(anonymousKey))

		default:
			return err
		}
	})
	if err != nil {
		return domain.Identity{}, false, errors.Storage(err)
	}
	if created {
		r.log.Debug("Identity created", "identity_id", identity.ID)
	}
	return identity, created, nil
}

// Get resolves an identity by its numeric id.
func (r *IdentityRepository) Get(id uint64) (domain.Identity, error) {
	var record diskIdentity
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(identityIDKey(id))
		if err != nil {
			return err
		}
		anonymousKey, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(identityKey(string(anonymousKey)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Identity{}, errors.ErrIdentityNotFound
	}
	if err != nil {
		return domain.Identity{}, errors.Storage(err)
	}
	return toIdentity(record), nil
}

// List returns every identity ordered by id.
func (r *IdentityRepository) List() ([]domain.Identity, error) {
	identities := []domain.Identity{}
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(identityKeyPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record diskIdentity
			if err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			identities = append(identities, toIdentity(record))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage(err)
	}
	slices.SortFunc(identities, func(a, b domain.Identity) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return identities, nil
}

func putIdentity(txn *badger.Txn, identity domain.Identity) error {
	data, err := cbor.Marshal(fromIdentity(identity))
	if err != nil {
		return err
	}
	return txn.Set(identityKey(identity.AnonymousKey), data)
}
