// Package runtime handles the asynchronous side of the desk: the message feed and its workers.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"chat-desk/contract"
	"chat-desk/domain"
	"chat-desk/runtime/workers"
	"context"
	"log/slog"
)

// Orchestrator fans appended messages out to the supervised workers.
// It implements contract.IMessagePublisher.
type Orchestrator struct {
	log        *slog.Logger
	supervisor contract.ISupervisor
	indexer    contract.IMessageIndexer
	messages   chan domain.Message
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	indexer contract.IMessageIndexer, bufferSize int) *Orchestrator {
	return &Orchestrator{
		log:        log,
		supervisor: supervisor,
		indexer:    indexer,
		messages:   make(chan domain.Message, bufferSize),
	}
}

// Publish hands a stored message to the feed. It never blocks: when the feed is full
// the message is dropped from the index, never from the log.
func (o *Orchestrator) Publish(message domain.Message) {
	select {
	case o.messages <- message:
	default:
		o.log.Warn("Message feed full, message not indexed", "message_id", message.ID, "capacity", cap(o.messages))
	}
}

// Start registers the index worker with the supervisor and blocks until the context is
// canceled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.supervisor.Add(workers.NewIndexWorker(o.indexer, o.messages, o.log))

	o.log.Info("Starting orchestrator and the supervised index worker")
	o.supervisor.Run(ctx)
	return nil
}

// Stop cancels the supervised context. Messages still queued are not indexed.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
