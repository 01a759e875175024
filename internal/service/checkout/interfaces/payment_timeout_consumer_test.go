package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"storefront/internal/service/checkout/domain"
)

type fakeReader struct {
	msgs      chan kafka.Message
	mu        sync.Mutex
	committed []int64
	closed    bool
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{msgs: make(chan kafka.Message, len(msgs))}
	for i, m := range msgs {
		m.Offset = int64(i)
		r.msgs <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type fakeCanceller struct {
	mu        sync.Mutex
	errs      []error
	cancelled []string
	calls     int
}

func (f *fakeCanceller) CancelOrder(_ context.Context, userID, orderID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.cancelled = append(f.cancelled, userID+"/"+orderID)
	return &domain.Order{ID: orderID, UserID: userID, State: domain.StateCancelled}, nil
}

func (f *fakeCanceller) snapshot() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]string(nil), f.cancelled...)
}

func orderEvent(t *testing.T, eventType, orderID string, at time.Time) kafka.Message {
	t.Helper()
	body, err := json.Marshal(domain.OrderEvent{Type: eventType, OrderID: orderID, UserID: "u1", At: at})
	require.NoError(t, err)
	return kafka.Message{Value: body, Time: at}
}

func TestPaymentTimeoutConsumer(t *testing.T) {
	defer goleak.VerifyNone(t)

	past := time.Now().Add(-time.Hour)
	reader := newFakeReader(
		orderEvent(t, domain.EventOrderPlaced, "o1", past),
		orderEvent(t, domain.EventOrderPaid, "o1", past),
		kafka.Message{Value: []byte("not json")},
		orderEvent(t, domain.EventOrderPlaced, "o2", past),
	)
	orders := &fakeCanceller{errs: []error{nil, errors.Wrap(domain.ErrInvalidOrderState, "paid")}}
	consumer := NewPaymentTimeoutConsumer(reader, orders, 15*time.Minute)
	consumer.Start(context.Background())

	require.Eventually(t, func() bool { return reader.committedCount() == 4 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, consumer.Stop())

	calls, cancelled := orders.snapshot()
	assert.Equal(t, 2, calls, "only OrderPlaced events trigger a check")
	assert.Equal(t, []string{"u1/o1"}, cancelled, "already settled order is skipped")
	assert.True(t, reader.closed)
}

func TestPaymentTimeoutConsumer_WaitsForDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	placed := time.Now()
	reader := newFakeReader(orderEvent(t, domain.EventOrderPlaced, "o1", placed))
	orders := &fakeCanceller{}
	consumer := NewPaymentTimeoutConsumer(reader, orders, 100*time.Millisecond)
	consumer.Start(context.Background())

	require.Eventually(t, func() bool { return reader.committedCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, consumer.Stop())
	assert.GreaterOrEqual(t, time.Since(placed), 100*time.Millisecond)
	_, cancelled := orders.snapshot()
	assert.Equal(t, []string{"u1/o1"}, cancelled)
}

func TestPaymentTimeoutConsumer_StopWhileWaiting(t *testing.T) {
	defer goleak.VerifyNone(t)

	reader := newFakeReader(orderEvent(t, domain.EventOrderPlaced, "o1", time.Now()))
	orders := &fakeCanceller{}
	consumer := NewPaymentTimeoutConsumer(reader, orders, time.Hour)
	consumer.Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, consumer.Stop())

	calls, _ := orders.snapshot()
	assert.Zero(t, calls)
	assert.Zero(t, reader.committedCount(), "pending check is left for the next run")
}

func TestPaymentTimeoutConsumer_Retries(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := map[string]struct {
		errs      []error
		wantCalls int
		wantDone  int
	}{
		"transient then success": {errs: []error{errors.New("db down")}, wantCalls: 2, wantDone: 1},
		"gives up after retries": {errs: []error{errors.New("a"), errors.New("b"), errors.New("c")}, wantCalls: 3},
		"missing order":          {errs: []error{domain.ErrOrderNotFound}, wantCalls: 1},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			reader := newFakeReader(orderEvent(t, domain.EventOrderPlaced, "o1", time.Now().Add(-time.Hour)))
			orders := &fakeCanceller{errs: tc.errs}
			consumer := NewPaymentTimeoutConsumer(reader, orders, time.Minute)
			consumer.backoff = time.Millisecond
			consumer.Start(context.Background())

			require.Eventually(t, func() bool { return reader.committedCount() == 1 }, 2*time.Second, 5*time.Millisecond)
			require.NoError(t, consumer.Stop())

			calls, cancelled := orders.snapshot()
			assert.Equal(t, tc.wantCalls, calls)
			assert.Len(t, cancelled, tc.wantDone)
		})
	}
}
