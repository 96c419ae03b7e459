package conversation

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/wolfman30/muelita-bot/internal/observability/metrics"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

// ErrWorkerStopped is returned by Submit once Stop has been called.
var ErrWorkerStopped = errors.New("conversation: worker stopped")

const (
	defaultWorkerCount  = 4
	defaultLaneBuffer   = 64
	defaultEventTimeout = 45 * time.Second
)

// EventHandler processes one inbound event to completion.
type EventHandler interface {
	HandleEvent(ctx context.Context, evt InboundEvent) error
}

// Worker processes inbound events off the webhook request path. Events from
// the same sender always land on the same lane and are handled in arrival
// order; different senders are handled in parallel.
type Worker struct {
	handler EventHandler
	lanes   []chan InboundEvent
	logger  *logging.Logger
	metrics *metrics.BotMetrics
	timeout time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	mu        sync.RWMutex
	stopped   bool
	wg        sync.WaitGroup
}

type workerConfig struct {
	workers      int
	laneBuffer   int
	eventTimeout time.Duration
	logger       *logging.Logger
	metrics      *metrics.BotMetrics
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of lanes, one goroutine each.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithLaneBuffer sets how many events each lane queues before Submit blocks.
func WithLaneBuffer(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size >= 0 {
			cfg.laneBuffer = size
		}
	}
}

// WithEventTimeout bounds the handling of a single event.
func WithEventTimeout(d time.Duration) WorkerOption {
	return func(cfg *workerConfig) {
		if d > 0 {
			cfg.eventTimeout = d
		}
	}
}

func WithWorkerLogger(logger *logging.Logger) WorkerOption {
	return func(cfg *workerConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

func WithWorkerMetrics(m *metrics.BotMetrics) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.metrics = m
	}
}

func NewWorker(handler EventHandler, opts ...WorkerOption) *Worker {
	if handler == nil {
		panic("conversation: event handler cannot be nil")
	}
	cfg := workerConfig{
		workers:      defaultWorkerCount,
		laneBuffer:   defaultLaneBuffer,
		eventTimeout: defaultEventTimeout,
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	lanes := make([]chan InboundEvent, cfg.workers)
	for i := range lanes {
		lanes[i] = make(chan InboundEvent, cfg.laneBuffer)
	}
	return &Worker{
		handler: handler,
		lanes:   lanes,
		logger:  cfg.logger,
		metrics: cfg.metrics,
		timeout: cfg.eventTimeout,
		done:    make(chan struct{}),
	}
}

// Start launches one goroutine per lane. ctx is the parent of every
// per-event context. Calling Start more than once has no effect.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		for i, lane := range w.lanes {
			w.wg.Add(1)
			go w.run(ctx, i+1, lane)
		}
	})
}

// Submit queues evt on its sender's lane, blocking while the lane is full.
func (w *Worker) Submit(ctx context.Context, evt InboundEvent) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrWorkerStopped
	}

	select {
	case w.lanes[w.laneFor(evt.From)] <- evt:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("conversation: submit event: %w", ctx.Err())
	case <-w.done:
		return ErrWorkerStopped
	}
}

// Stop rejects new events, lets queued events finish and waits for the lanes to exit.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		w.stopped = true
		for _, lane := range w.lanes {
			close(lane)
		}
		w.mu.Unlock()
	})
	w.wg.Wait()
}

func (w *Worker) laneFor(senderID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(senderID))
	return int(h.Sum32() % uint32(len(w.lanes)))
}

func (w *Worker) run(ctx context.Context, laneID int, lane <-chan InboundEvent) {
	defer w.wg.Done()
	w.logger.Debug("conversation lane started", "lane", laneID)

	for evt := range lane {
		w.process(ctx, laneID, evt)
	}
	w.logger.Debug("conversation lane stopped", "lane", laneID)
}

func (w *Worker) process(ctx context.Context, laneID int, evt InboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			w.metrics.ObserveInbound(evt.Type, "panic")
			w.logger.Error("panic while handling event", "lane", laneID, "message_id", evt.ID, "panic", fmt.Sprint(r))
		}
	}()

	evtCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	err := w.handler.HandleEvent(evtCtx, evt)
	w.metrics.ObserveEventLatency(evt.Type, time.Since(start).Seconds())
	if err != nil {
		w.metrics.ObserveInbound(evt.Type, "failed")
		w.logger.Error("failed to handle inbound event",
			"lane", laneID,
			"sender", evt.From,
			"message_id", evt.ID,
			"error", err,
		)
		return
	}
	w.metrics.ObserveInbound(evt.Type, "processed")
}
