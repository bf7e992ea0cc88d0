package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/session"
)

// Queue defaults
const (
	DefaultQueueSize      = 1024
	DefaultPublishTimeout = 2 * time.Second
)

var (
	// ErrQueueFull is returned when the mirror has fallen behind and the event was dropped
	ErrQueueFull = errors.New("mirror queue full")
	// ErrQueueClosed is returned for events published after Close
	ErrQueueClosed = errors.New("mirror queue closed")
)

type job struct {
	code    model.RoomCode
	event   model.EventName
	payload any
}

// Queue hands events to a downstream Mirror from a single background
// goroutine. Publish never waits on the downstream's I/O.
type Queue struct {
	next    session.Mirror
	timeout time.Duration
	logger  *slog.Logger

	jobs      chan job
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

var _ session.Mirror = (*Queue)(nil)

// NewQueue starts a Queue in front of next. Non-positive size or timeout
// fall back to the defaults.
func NewQueue(next session.Mirror, size int, timeout time.Duration, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}

	q := &Queue{
		next:    next,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "mirror")),
		jobs:    make(chan job, size),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

// Publish enqueues the event, or drops it when the queue is full or closed
func (q *Queue) Publish(ctx context.Context, code model.RoomCode, event model.EventName, payload any) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.jobs <- job{code: code, event: event, payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and flushes what is queued, giving the
// flush at most one publish timeout in total
func (q *Queue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	<-q.stopped
	return nil
}

func (q *Queue) run() {
	defer close(q.stopped)
	for {
		select {
		case j := <-q.jobs:
			ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
			q.publish(ctx, j)
			cancel()

		case <-q.done:
			q.flush()
			return
		}
	}
}

func (q *Queue) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	dropped := 0
	for {
		select {
		case j := <-q.jobs:
			if ctx.Err() != nil {
				dropped++
				continue
			}
			q.publish(ctx, j)
		default:
			if dropped > 0 {
				q.logger.Warn("mirror events dropped on shutdown", slog.Int("dropped", dropped))
			}
			return
		}
	}
}

func (q *Queue) publish(ctx context.Context, j job) {
	if err := q.next.Publish(ctx, j.code, j.event, j.payload); err != nil {
		q.logger.Warn("failed to publish mirrored event",
			slog.String("room", string(j.code)),
			slog.String("event", string(j.event)),
			slog.Any("error", err))
	}
}
