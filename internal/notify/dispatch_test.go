package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// blockingMailer holds every send until release is closed.
type blockingMailer struct {
	release chan struct{}
	mu      sync.Mutex
	sent    int
}

func (m *blockingMailer) Send(ctx context.Context, msg Message) error {
	select {
	case <-m.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.mu.Lock()
	m.sent++
	m.mu.Unlock()
	return nil
}

func TestInlineDispatchFallsBack(t *testing.T) {
	fb := &recordingFallback{}
	inline := NewInline(newTestDeliverer(&fakeMailer{err: errTransport}, fb), time.Second)

	err := inline.Dispatch(context.Background(), NewOrderNotification(annaOrder()))
	require.Error(t, err)

	orders, _ := fb.counts()
	assert.Equal(t, 1, orders)
}

func TestInlineDispatchIgnoresCallerCancellation(t *testing.T) {
	mailer := &fakeMailer{}
	inline := NewInline(newTestDeliverer(mailer, &recordingFallback{}), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, inline.Dispatch(ctx, NewOrderNotification(annaOrder())))
	assert.Equal(t, 1, mailer.count())
}

func TestQueueDeliversAndDrains(t *testing.T) {
	defer goleak.VerifyNone(t)

	mailer := &fakeMailer{}
	q := NewQueue(newTestDeliverer(mailer, &recordingFallback{}), QueueConfig{Workers: 3, Size: 10}, quietLogger())

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Dispatch(context.Background(), NewOrderNotification(annaOrder())))
	}

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, 10, mailer.count())
}

func TestQueueFailedSendWritesFallback(t *testing.T) {
	defer goleak.VerifyNone(t)

	fb := &recordingFallback{}
	q := NewQueue(newTestDeliverer(&fakeMailer{err: errTransport}, fb), QueueConfig{Workers: 1, Size: 4}, quietLogger())

	require.NoError(t, q.Dispatch(context.Background(), NewOrderNotification(annaOrder())))
	require.NoError(t, q.Close(context.Background()))

	orders, _ := fb.counts()
	assert.Equal(t, 1, orders)
}

func TestQueueFullWritesFallbackImmediately(t *testing.T) {
	defer goleak.VerifyNone(t)

	mailer := &blockingMailer{release: make(chan struct{})}
	fb := &recordingFallback{}
	q := NewQueue(newTestDeliverer(mailer, fb), QueueConfig{Workers: 1, Size: 1, SendTimeout: time.Minute}, quietLogger())

	// The first notification occupies the worker, the second fills the buffer.
	require.NoError(t, q.Dispatch(context.Background(), NewOrderNotification(annaOrder())))
	require.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Dispatch(context.Background(), NewOrderNotification(annaOrder())))

	err := q.Dispatch(context.Background(), NewOrderNotification(annaOrder()))
	assert.ErrorIs(t, err, ErrQueueFull)

	orders, _ := fb.counts()
	assert.Equal(t, 1, orders)

	close(mailer.release)
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, 2, mailer.sent)
}

func TestQueueSendTimeoutFallsBack(t *testing.T) {
	defer goleak.VerifyNone(t)

	mailer := &blockingMailer{release: make(chan struct{})}
	fb := &recordingFallback{}
	q := NewQueue(newTestDeliverer(mailer, fb), QueueConfig{Workers: 1, Size: 1, SendTimeout: 20 * time.Millisecond}, quietLogger())

	require.NoError(t, q.Dispatch(context.Background(), NewOrderNotification(annaOrder())))
	require.NoError(t, q.Close(context.Background()))

	orders, _ := fb.counts()
	assert.Equal(t, 1, orders)
}

func TestCloseTimeoutWritesPendingToFallback(t *testing.T) {
	defer goleak.VerifyNone(t)

	mailer := &blockingMailer{release: make(chan struct{})}
	fb := &recordingFallback{}
	q := NewQueue(newTestDeliverer(mailer, fb), QueueConfig{Workers: 1, Size: 10, SendTimeout: 300 * time.Millisecond}, quietLogger())

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Dispatch(context.Background(), NewOrderNotification(annaOrder())))
	}
	require.Eventually(t, func() bool { return q.Pending() == 4 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := q.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The four waiting notifications are logged before Close returns.
	orders, _ := fb.counts()
	assert.Equal(t, 4, orders)
	assert.Zero(t, q.Pending())

	// The one in flight falls back once its send times out.
	require.Eventually(t, func() bool {
		orders, _ := fb.counts()
		return orders == 5
	}, 2*time.Second, 10*time.Millisecond)

	mailer.mu.Lock()
	assert.Zero(t, mailer.sent)
	mailer.mu.Unlock()
}

func TestDispatchAfterCloseWritesFallback(t *testing.T) {
	defer goleak.VerifyNone(t)

	fb := &recordingFallback{}
	q := NewQueue(newTestDeliverer(&fakeMailer{}, fb), QueueConfig{}, quietLogger())
	require.NoError(t, q.Close(context.Background()))
	require.NoError(t, q.Close(context.Background()))

	err := q.Dispatch(context.Background(), NewContactNotification(testContact(), false))
	assert.ErrorIs(t, err, ErrQueueClosed)

	_, contacts := fb.counts()
	assert.Equal(t, 1, contacts)
}
