//go:generate go run go.uber.org/mock/mockgen -source=index.go -destination=../mocks/mock_search.go -package=mocks

// Package search keeps a full-text index of the message log for the operator desk.
// The index is derived data: it can always be rebuilt from the log and is fed asynchronously.
package search

import (
	"chat-desk/domain"
	"chat-desk/errors"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/blugelabs/bluge"
)

const (
	fieldID        = "_id"
	fieldContent   = "content"
	fieldOwner     = "owner_id"
	fieldRole      = "sender_role"
	fieldCreatedAt = "created_at"
)

// Hit is one message matching a Query, with its relevance score.
type Hit struct {
	MessageID  uint64
	OwnerID    uint64
	SenderRole domain.SenderRole
	Content    string
	CreatedAt  time.Time
	Score      float64
}

type ISearcher interface {
	Search(ctx context.Context, query Query) ([]Hit, error)
}

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

// Index writes the messages in a single batch. Messages without text are skipped.
// Re-indexing a message replaces its document.
func (i *Index) Index(messages ...domain.Message) error {
	batch := bluge.NewBatch()
	count := 0
	for _, m := range messages {
		text := m.Content
		if text == "" {
			text = m.AttachmentRef
		}
		if text == "" {
			continue
		}
		doc := bluge.NewDocument(strconv.FormatUint(m.ID, 10)).
			AddField(bluge.NewTextField(fieldContent, text).StoreValue()).
			AddField(bluge.NewKeywordField(fieldOwner, strconv.FormatUint(m.OwnerID, 10)).StoreValue()).
			AddField(bluge.NewKeywordField(fieldRole, string(m.SenderRole)).StoreValue()).
			AddField(bluge.NewDateTimeField(fieldCreatedAt, m.CreatedAt).StoreValue())
		batch.Update(doc.ID(), doc)
		count++
	}
	if count == 0 {
		return nil
	}
	if err := i.writer.Batch(batch); err != nil {
		return fmt.Errorf("index batch of %d: %w", count, err)
	}
	i.log.Debug("Messages indexed", "count", count)
	return nil
}

// Search returns the best matching messages, highest score first.
func (i *Index) Search(ctx context.Context, query Query) ([]Hit, error) {
	if query.Terms == "" {
		return nil, errors.ErrEmptySearch
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query.Terms).SetField(fieldContent))
	if query.OwnerID != nil {
		q.AddMust(bluge.NewTermQuery(strconv.FormatUint(*query.OwnerID, 10)).SetField(fieldOwner))
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, errors.Storage(err)
	}
	defer func() {
		_ = reader.Close()
	}()

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, errors.Storage(err)
	}

	hits := []Hit{}
	match, err := iterator.Next()
	for err == nil && match != nil {
		hit := Hit{Score: match.Score}
		var visitErr error
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case fieldID:
				hit.MessageID, visitErr = strconv.ParseUint(string(value), 10, 64)
			case fieldOwner:
				hit.OwnerID, visitErr = strconv.ParseUint(string(value), 10, 64)
			case fieldRole:
				hit.SenderRole = domain.SenderRole(value)
			case fieldContent:
				hit.Content = string(value)
			case fieldCreatedAt:
				hit.CreatedAt, visitErr = bluge.DecodeDateTime(value)
			}
			return visitErr == nil
		})
		if err == nil {
			err = visitErr
		}
		if err != nil {
			break
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, errors.Storage(err)
	}
	return hits, nil
}
