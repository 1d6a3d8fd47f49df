package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"roomly/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu      sync.Mutex
	fail    error
	written []kafka.Message
	closed  bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail != nil {
		return w.fail
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		r.cancel()
		return kafka.Message{}, context.Canceled
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("user-1").
		WithValue(map[string]string{"kind": "created"}).
		WithEventType("booking.notification").
		WithCorrelationID("req-1").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "user-1", msg.Key)
	assert.NotEmpty(t, msg.GetEventID())
	assert.Equal(t, "req-1", msg.GetCorrelationID())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])

	var decoded map[string]string
	require.NoError(t, msg.DecodeValue(&decoded))
	assert.Equal(t, "created", decoded["kind"])
}

func TestMessageBuilder_EncodeError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}

func TestRetryCount(t *testing.T) {
	msg := Message{Headers: map[string]string{}}
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrorTypeTransient, ClassifyError(errors.New("dial tcp: Connection Refused")))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(context.DeadlineExceeded))
	assert.Equal(t, ErrorTypePermanent, ClassifyError(errors.New("json: cannot unmarshal")))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(NewTransientError("store", errors.New("x"))))

	assert.False(t, ShouldRetry(errors.New("timeout"), 3, 3))
	assert.True(t, ShouldRetry(errors.New("timeout"), 0, 3))
}

func TestProducer_PublishRunsMiddlewareAndValidates(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "booking.notifications", "", logger.Discard())

	var seen []string
	p.Use(func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error {
		seen = append(seen, "outer")
		return next(ctx, msg)
	})
	p.Use(func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error {
		seen = append(seen, "inner:"+msg.Topic)
		return next(ctx, msg)
	})

	msg, err := NewMessage().WithKey("u1").WithValue("hi").Build()
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), msg))

	assert.Equal(t, []string{"outer", "inner:booking.notifications"}, seen)
	require.Len(t, w.written, 1)
	assert.Equal(t, "u1", string(w.written[0].Key))

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(context.Background(), msg), ErrProducerClosed)
	assert.True(t, w.closed)
}

func TestProducer_FailedWriteGoesToDLQ(t *testing.T) {
	brokerErr := errors.New("leader not available")
	w := &fakeWriter{fail: brokerErr}
	dlq := &fakeWriter{}
	p := newProducer(w, dlq, "booking.notifications", "dlq-booking-notifications", logger.Discard())

	msg, err := NewMessage().WithKey("u1").WithValue("hi").Build()
	require.NoError(t, err)

	err = p.Publish(context.Background(), msg)
	assert.ErrorIs(t, err, brokerErr)
	require.Len(t, dlq.written, 1)
	assert.Equal(t, "booking.notifications", headerValue(dlq.written[0], HeaderOriginalTopic))
	assert.Equal(t, brokerErr.Error(), headerValue(dlq.written[0], HeaderDLQError))
	assert.Empty(t, msg.Headers[HeaderOriginalTopic], "caller's headers must not be mutated")
}

func TestConsumer_RetriesTransientThenDLQsPermanent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		cancel: cancel,
		queue: []kafka.Message{
			{Offset: 1, Key: []byte("flaky")},
			{Offset: 2, Key: []byte("poison")},
		},
	}
	dlq := &fakeWriter{}

	attempts := map[string]int{}
	handler := func(ctx context.Context, msg Message) error {
		attempts[msg.Key]++
		switch msg.Key {
		case "flaky":
			if attempts[msg.Key] < 3 {
				return errors.New("i/o timeout")
			}
			return nil
		default:
			return NewPermanentError("bad payload", nil)
		}
	}

	c := newConsumer(reader, dlq, "booking.notifications", "roomly-notifier", 3, handler, logger.Discard())
	c.retryBackoff = time.Millisecond

	err := c.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 3, attempts["flaky"])
	assert.Equal(t, 1, attempts["poison"])
	assert.Equal(t, []int64{1, 2}, reader.committed)
	require.Len(t, dlq.written, 1)
	assert.Equal(t, "poison", string(dlq.written[0].Key))
	assert.Equal(t, "roomly-notifier", headerValue(dlq.written[0], HeaderDLQGroup))
}
