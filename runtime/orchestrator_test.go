package runtime_test

import (
	"chat-desk/contract"
	"chat-desk/domain"
	"chat-desk/mocks"
	"chat-desk/runtime"
	"chat-desk/runtime/workers"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestOrchestrator_PublishedMessagesReachTheIndexer(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	indexer := mocks.NewMockIMessageIndexer(ctrl)

	indexed := make(chan domain.Message, 1)
	indexer.EXPECT().
		Index(gomock.Any()).
		DoAndReturn(func(batch ...domain.Message) error {
			for _, m := range batch {
				indexed <- m
			}
			return nil
		}).
		Times(1)

	log := slog.Default()
	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log, 0), indexer, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = orchestrator.Start(ctx)
		close(done)
	}()

	orchestrator.Publish(domain.Message{ID: 7, OwnerID: 1, Content: "hello"})

	select {
	case m := <-indexed:
		req.Equal(uint64(7), m.ID)
	case <-time.After(time.Second):
		req.Fail("message never reached the indexer")
	}

	cancel()
	<-done
}

func TestOrchestrator_PublishNeverBlocks(t *testing.T) {
	ctrl := gomock.NewController(t)
	indexer := mocks.NewMockIMessageIndexer(ctrl)
	supervisor := mocks.NewMockISupervisor(ctrl)

	orchestrator := runtime.NewOrchestrator(slog.Default(), supervisor, indexer, 1)

	// Nothing consumes the feed: the second message is dropped.
	done := make(chan struct{})
	go func() {
		orchestrator.Publish(domain.Message{ID: 1})
		orchestrator.Publish(domain.Message{ID: 2})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Publish blocked on a full feed")
	}
}

func TestOrchestrator_StopDelegatesToSupervisor(t *testing.T) {
	ctrl := gomock.NewController(t)
	supervisor := mocks.NewMockISupervisor(ctrl)
	supervisor.EXPECT().Stop().Times(1)

	runtime.NewOrchestrator(slog.Default(), supervisor, mocks.NewMockIMessageIndexer(ctrl), 1).Stop()
}

func TestOrchestrator_StartSupervisesOnlyTheIndexWorker(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	supervisor := mocks.NewMockISupervisor(ctrl)

	var registered []contract.Worker
	gomock.InOrder(
		supervisor.EXPECT().
			Add(gomock.Any()).
			DoAndReturn(func(w ...contract.Worker) contract.ISupervisor {
				registered = append(registered, w...)
				return supervisor
			}).
			Times(1),
		supervisor.EXPECT().Run(gomock.Any()).Times(1),
	)

	orchestrator := runtime.NewOrchestrator(slog.Default(), supervisor, mocks.NewMockIMessageIndexer(ctrl), 1)
	req.NoError(orchestrator.Start(context.Background()))

	req.Len(registered, 1)
	req.Equal("IndexWorker", contract.GetWorkerName(registered[0]))
}
