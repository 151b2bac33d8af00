//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
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

// DefaultLimitMessages is the largest window List hands back when none is configured.
const DefaultLimitMessages = 50

const sequenceBandwidth = 100

type IMessageRepository interface {
	Append(message domain.Message) (domain.Message, error)
	List(ownerID *uint64, limit int) ([]domain.Message, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	seq           *badger.Sequence
	limitMessages int
	now           func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages int) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSeqKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	if limitMessages <= 0 {
		limitMessages = DefaultLimitMessages
	}
	return &MessageRepository{
		db:            db,
		log:           log,
		seq:           seq,
		limitMessages: limitMessages,
		now:           utcNow,
	}, nil
}

// Close hands the unused part of the leased id range back to Badger.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

// Append stores a message and returns it as stored. Id and timestamp are assigned here.
// The message is written under two keys in the same transaction:
//  1. "msg:owner:{owner}:{ts}:{id}" for the per-conversation view,
//  2. "msg:feed:{ts}:{id}" for the operator feed across every conversation.
//
// The padded timestamp followed by the id makes key order equal (created_at, id) order.
func (m *MessageRepository) Append(message domain.Message) (domain.Message, error) {
	if err := message.Validate(); err != nil {
		return domain.Message{}, err
	}
	next, err := m.seq.Next()
	if err != nil {
		return domain.Message{}, errors.Storage(err)
	}
	message.ID = next + 1
	message.CreatedAt = m.now()

	data, err := cbor.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, errors.Storage(err)
	}

	err = withConflictRetry(m.db, m.log, func(txn *badger.Txn) error {
		if _, err := txn.Get(identityIDKey(message.OwnerID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return errors.ErrOwnerNotFound
			}
			return err
		}
		if err := txn.Set(ownerMessageKey(message), data); err != nil {
			return err
		}
		return txn.Set(feedMessageKey(message), data)
	})
	if err != nil {
		return domain.Message{}, errors.Storage(err)
	}
	return message, nil
}

// List returns the most recent messages of one owner, or of every owner when ownerID is nil,
// in chronological order. limit <= 0 gives an empty slice and limit is clamped to the
// configured maximum. The log is walked backwards from its newest key so only the window
// is read.
func (m *MessageRepository) List(ownerID *uint64, limit int) ([]domain.Message, error) {
	messages := []domain.Message{}
	if limit <= 0 {
		return messages, nil
	}
	if limit > m.limitMessages {
		m.log.Debug("Limit clamped", "limit", limit, "max", m.limitMessages)
		limit = m.limitMessages
	}

	prefix := MessagePrefix(ownerID)

	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// 0xFF sorts after every digit, so this lands on the newest key of the prefix.
		seekKey := append(slices.Clone(prefix), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(messages) < limit; it.Next() {
			var record diskMessage
			if err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			messages = append(messages, toMessage(record))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage(err)
	}
	slices.Reverse(messages)
	return messages, nil
}
