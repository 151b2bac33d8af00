package workers

import (
	"chat-desk/contract"
	"chat-desk/errors"
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	DefaultRestartInterval = 200 * time.Millisecond
	// MaxRestartInterval caps the backoff of a worker that keeps crashing.
	MaxRestartInterval = 10 * time.Second
)

// Supervisor runs each worker in a goroutine, recovers panics and restarts crashed
// workers with a doubling delay, and stops everything when the parent context is canceled.
// A worker that ran for longer than the cap before crashing starts over at the base delay.
type Supervisor struct {
	mu              sync.Mutex
	cancel          context.CancelFunc
	wg              *sync.WaitGroup
	log             *slog.Logger
	workers         []contract.Worker
	restartInterval time.Duration
	maxInterval     time.Duration
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	if restartInterval <= 0 {
		restartInterval = DefaultRestartInterval
	}
	return &Supervisor{
		wg:              &sync.WaitGroup{},
		log:             log,
		restartInterval: restartInterval,
		maxInterval:     max(restartInterval, MaxRestartInterval),
	}
}

// Run starts every added worker and blocks until all of them returned.
// Canceling the parent stops the workers; so does Stop, without touching the parent.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs a worker under supervision.
// A worker returning nil is finished and never restarted.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		backoff := s.restartInterval
		for restarts := 0; ; restarts++ {
			if ctx.Err() != nil {
				s.log.Info("Worker stopping", "worker", name)
				return
			}

			started := time.Now()
			err := s.runOnce(ctx, name, worker)
			if err == nil {
				s.log.Info("Worker finished", "worker", name, "restarts", restarts)
				return
			}
			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "worker", name)
				return
			}

			if time.Since(started) > s.maxInterval {
				backoff = s.restartInterval
			}
			s.log.Warn("Worker crashed, restarting", "worker", name, "error", err,
				"restarts", restarts+1, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = nextBackoff(backoff, s.maxInterval)
		}
	}()
}

func (s *Supervisor) runOnce(ctx context.Context, name string, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Worker panicked", "worker", name, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

// Stop cancels every supervised worker. Run returns once they all exited.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	return min(current*2, limit)
}
