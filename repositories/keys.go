package repositories

import (
	"chat-desk/domain"
	"chat-desk/errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key layout. Every numeric part is zero padded to 19 digits so that lexicographical
// order in Badger matches numeric order.
//
//	identity:key:{anonymous_key}                     -> diskIdentity
//	identity:id:{id}                                 -> anonymous_key
//	identity:seq                                     -> badger.Sequence
//	msg:owner:{owner_id}:{created_at_ns}:{msg_id}    -> diskMessage
//	msg:feed:{created_at_ns}:{msg_id}                -> diskMessage
//	msg:seq                                          -> badger.Sequence
const (
	identityKeyPrefix = "identity:key:"
	identityIDPrefix  = "identity:id:"
	identitySeqKey    = "identity:seq"
	ownerPrefix       = "msg:owner:"
	feedPrefix        = "msg:feed:"
	messageSeqKey     = "msg:seq"
)

// maxConflictRetries bounds how many times a transaction is replayed after badger.ErrConflict.
const maxConflictRetries = 16

func identityKey(anonymousKey string) []byte {
	return []byte(identityKeyPrefix + anonymousKey)
}

// IdentityPrefix is the key prefix every identity record lives under.
func IdentityPrefix() []byte {
	return []byte(identityKeyPrefix)
}

func identityIDKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%019d", identityIDPrefix, id))
}

func ownerMessagesPrefix(ownerID uint64) []byte {
	return []byte(fmt.Sprintf("%s%019d:", ownerPrefix, ownerID))
}

// MessagePrefix is the key prefix of one owner's messages, or of the whole feed when ownerID is nil.
func MessagePrefix(ownerID *uint64) []byte {
	if ownerID == nil {
		return []byte(feedPrefix)
	}
	return ownerMessagesPrefix(*ownerID)
}

func ownerMessageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%019d:%019d", ownerPrefix, m.OwnerID, m.CreatedAt.UnixNano(), m.ID))
}

func feedMessageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%019d", feedPrefix, m.CreatedAt.UnixNano(), m.ID))
}

// withConflictRetry replays an Update transaction when Badger detects that another
// transaction committed a key this one read. The unique key then becomes visible
// to the replay, which is what makes insert-if-absent atomic.
func withConflictRetry(db *badger.DB, log *slog.Logger, fn func(txn *badger.Txn) error) error {
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err := db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		log.Debug("Transaction conflict, replaying", "attempt", attempt)
	}
	return errors.ErrTooManyConflict
}

func utcNow() time.Time {
	return time.Now().UTC()
}
