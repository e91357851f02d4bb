package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
)

// Dispatcher hands a notification off for delivery. Implementations write
// the fallback log themselves when the handoff fails, so callers only log
// the returned error.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

type Handler interface {
	Deliver(ctx context.Context, n Notification) error
	Fallback(n Notification) error
}

// Inline delivers on the caller's goroutine, blocking the request until the
// mail server answers or the timeout expires.
type Inline struct {
	handler Handler
	timeout time.Duration
}

func NewInline(handler Handler, timeout time.Duration) *Inline {
	return &Inline{handler: handler, timeout: timeout}
}

func (i *Inline) Dispatch(ctx context.Context, n Notification) error {
	// A customer closing the tab must not cancel the operator email.
	ctx = context.WithoutCancel(ctx)
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}
	return i.handler.Deliver(ctx, n)
}

type QueueConfig struct {
	Workers     int
	Size        int
	SendTimeout time.Duration
}

// Queue decouples requests from mail latency with a bounded buffer and a
// fixed worker pool.
type Queue struct {
	handler Handler
	jobs    chan Notification
	timeout time.Duration
	logger  *logrus.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(handler Handler, config QueueConfig, logger *logrus.Logger) *Queue {
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.Size <= 0 {
		config.Size = 100
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 15 * time.Second
	}

	q := &Queue{
		handler: handler,
		jobs:    make(chan Notification, config.Size),
		timeout: config.SendTimeout,
		logger:  logger,
	}

	for i := 0; i < config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	logger.WithFields(logrus.Fields{
		"workers":    config.Workers,
		"queue_size": config.Size,
		"timeout":    config.SendTimeout.String(),
	}).Info("Notification queue started")

	return q
}

// Dispatch never blocks. When the notification cannot be queued it is
// written to the fallback log before returning.
func (q *Queue) Dispatch(ctx context.Context, n Notification) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.reject(n, ErrQueueClosed)
		return ErrQueueClosed
	}

	select {
	case q.jobs <- n:
		return nil
	default:
		q.reject(n, ErrQueueFull)
		return ErrQueueFull
	}
}

func (q *Queue) reject(n Notification, reason error) {
	q.logger.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"kind":            n.Kind,
	}).WithError(reason).Warn("Notification not queued, writing fallback log")
	q.handler.Fallback(n)
}

func (q *Queue) Pending() int {
	return len(q.jobs)
}

// Close stops accepting notifications and waits for queued ones to finish.
// When ctx expires first, whatever is still queued goes to the fallback log.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("Notification queue drained")
		return nil
	case <-ctx.Done():
		q.logger.WithField("pending", len(q.jobs)).Warn("Notification queue shutdown timed out, writing pending notifications to fallback log")
		// jobs is closed, so this stops once the buffer is empty. Workers may
		// still take items concurrently; each item is received exactly once.
		for n := range q.jobs {
			q.handler.Fallback(n)
		}
		return ctx.Err()
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	for n := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := q.handler.Deliver(ctx, n); err != nil {
			q.logger.WithField("worker", id).WithError(err).Debug("Notification delivered to fallback log")
		}
		cancel()
	}
}
