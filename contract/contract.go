//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-desk/domain"
	"context"
	"reflect"
)

// ICompletionService is the automated side of the assistant channel.
// One prompt in, one reply out; no streaming, no retries.
type ICompletionService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// IAttachmentStore keeps uploaded bytes somewhere and hands back an opaque reference.
// The core only persists that reference and never opens the bytes again.
type IAttachmentStore interface {
	Store(ctx context.Context, tag domain.AttachmentTag, filename string, data []byte) (domain.Attachment, error)
}

// IMessagePublisher receives every message once it is in the log.
// Publishing never blocks the caller.
type IMessagePublisher interface {
	Publish(message domain.Message)
}

// IMessageIndexer makes messages searchable. It is fed from a worker, never from a request.
type IMessageIndexer interface {
	Index(messages ...domain.Message) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
