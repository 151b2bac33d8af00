package workers

import (
	"chat-desk/contract"
	"chat-desk/domain"
	"context"
	"log/slog"
)

const defaultIndexBatchSize = 64

// IndexWorker drains the message feed into the search index.
// Whatever is already queued when a message arrives is indexed in the same batch.
// An indexing failure is logged and the batch dropped: the index can be rebuilt from the log.
type IndexWorker struct {
	indexer   contract.IMessageIndexer
	messages  <-chan domain.Message
	log       *slog.Logger
	batchSize int
}

func NewIndexWorker(indexer contract.IMessageIndexer, messages <-chan domain.Message, log *slog.Logger) *IndexWorker {
	return &IndexWorker{indexer: indexer, messages: messages, log: log, batchSize: defaultIndexBatchSize}
}

func (w *IndexWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping index worker")
			return nil
		case m, ok := <-w.messages:
			if !ok {
				w.log.Debug("Message feed closed, stopping index worker")
				return nil
			}
			batch := w.drain([]domain.Message{m})
			if err := w.indexer.Index(batch...); err != nil {
				w.log.Error("Indexing failed, batch dropped", "size", len(batch), "error", err)
			}
		}
	}
}

func (w *IndexWorker) drain(batch []domain.Message) []domain.Message {
	for len(batch) < w.batchSize {
		select {
		case m, ok := <-w.messages:
			if !ok {
				return batch
			}
			batch = append(batch, m)
		default:
			return batch
		}
	}
	return batch
}
