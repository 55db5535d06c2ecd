package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type fakeAcknowledger struct {
	acks    int
	nacks   int
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error { f.acks++; return nil }

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.nacks++
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error { return nil }

type fakeRetryTracker struct {
	counts map[string]int64
	err    error
	resets int
}

func (f *fakeRetryTracker) IncrementAndGet(_ context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = make(map[string]int64)
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRetryTracker) Reset(_ context.Context, key string) error {
	f.resets++
	delete(f.counts, key)
	return nil
}

type fakeDLQ struct {
	parked [][]byte
	reason []string
	err    error
}

func (f *fakeDLQ) PublishToDLQ(routingKey string, payload []byte, originalError string) error {
	if f.err != nil {
		return f.err
	}
	f.parked = append(f.parked, payload)
	f.reason = append(f.reason, originalError)
	return nil
}

func newTestConsumer(handler MessageHandler) *Consumer {
	return &Consumer{
		queue:      amqp091.Queue{Name: "digest.sent.q"},
		routingKey: "digest.sent",
		handler:    handler,
		logger:     zap.NewNop(),
		stopped:    make(chan struct{}),
	}
}

func failingHandler(_ context.Context, _ json.RawMessage) error {
	return errors.New("insert failed")
}

func delivery(ack amqp091.Acknowledger, body string) amqp091.Delivery {
	return amqp091.Delivery{Acknowledger: ack, Body: []byte(body)}
}

func TestConsumeOne_PoisonMessageParkedAfterRetryBudget(t *testing.T) {
	c := newTestConsumer(failingHandler)
	tracker := &fakeRetryTracker{}
	dlq := &fakeDLQ{}
	c.SetRetryPolicy(tracker, dlq, 5)

	ack := &fakeAcknowledger{}

	// The first maxRetries deliveries requeue.
	for i := 0; i < 5; i++ {
		c.consumeOne(delivery(ack, `{"task_id":1}`))
	}
	if ack.nacks != 5 || !ack.requeue {
		t.Fatalf("expected 5 nack-with-requeue, got nacks=%d requeue=%v", ack.nacks, ack.requeue)
	}
	if len(dlq.parked) != 0 {
		t.Fatalf("message parked before retry budget was spent")
	}

	// The next delivery is parked and acked, not requeued again.
	c.consumeOne(delivery(ack, `{"task_id":1}`))
	if len(dlq.parked) != 1 {
		t.Fatalf("expected 1 parked message, got %d", len(dlq.parked))
	}
	if dlq.reason[0] != "insert failed" {
		t.Errorf("parked message carries reason %q, want handler error", dlq.reason[0])
	}
	if ack.acks != 1 {
		t.Errorf("parked message not acked, acks=%d", ack.acks)
	}
	if ack.nacks != 5 {
		t.Errorf("parked message was also requeued, nacks=%d", ack.nacks)
	}
	if tracker.resets != 1 {
		t.Errorf("retry count not reset after parking, resets=%d", tracker.resets)
	}
}

func TestConsumeOne_RetryCountsAreIndependentPerMessage(t *testing.T) {
	c := newTestConsumer(failingHandler)
	tracker := &fakeRetryTracker{}
	dlq := &fakeDLQ{}
	c.SetRetryPolicy(tracker, dlq, 2)

	ack := &fakeAcknowledger{}
	for i := 0; i < 2; i++ {
		c.consumeOne(delivery(ack, `{"task_id":1}`))
		c.consumeOne(delivery(ack, `{"task_id":2}`))
	}

	if len(dlq.parked) != 0 {
		t.Fatalf("distinct messages shared a retry count, parked=%d", len(dlq.parked))
	}
}

func TestConsumeOne_SuccessResetsRetryCount(t *testing.T) {
	calls := 0
	flaky := func(_ context.Context, _ json.RawMessage) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	}

	c := newTestConsumer(flaky)
	tracker := &fakeRetryTracker{}
	c.SetRetryPolicy(tracker, &fakeDLQ{}, 5)

	ack := &fakeAcknowledger{}
	c.consumeOne(delivery(ack, `{"user_id":7}`))
	c.consumeOne(delivery(ack, `{"user_id":7}`))

	if ack.acks != 1 || ack.nacks != 1 {
		t.Fatalf("expected one requeue then one ack, got nacks=%d acks=%d", ack.nacks, ack.acks)
	}
	if len(tracker.counts) != 0 {
		t.Errorf("retry count survived a successful delivery: %v", tracker.counts)
	}
}

func TestConsumeOne_DLQPublishFailureRequeues(t *testing.T) {
	c := newTestConsumer(failingHandler)
	tracker := &fakeRetryTracker{counts: map[string]int64{}}
	dlq := &fakeDLQ{err: errors.New("channel closed")}
	c.SetRetryPolicy(tracker, dlq, 0)

	ack := &fakeAcknowledger{}
	c.consumeOne(delivery(ack, `{"invoice_id":3}`))

	if ack.acks != 0 {
		t.Error("message acked even though parking failed")
	}
	if ack.nacks != 1 || !ack.requeue {
		t.Errorf("expected requeue when DLQ publish fails, nacks=%d requeue=%v", ack.nacks, ack.requeue)
	}
}

func TestConsumeOne_TrackerErrorStillRequeues(t *testing.T) {
	c := newTestConsumer(failingHandler)
	tracker := &fakeRetryTracker{err: errors.New("redis down")}
	c.SetRetryPolicy(tracker, &fakeDLQ{}, 5)

	ack := &fakeAcknowledger{}
	c.consumeOne(delivery(ack, `{"task_id":9}`))

	if ack.nacks != 1 || !ack.requeue {
		t.Errorf("expected requeue when retry tracking fails, nacks=%d requeue=%v", ack.nacks, ack.requeue)
	}
}

func TestConsumeOne_NoPolicyKeepsRequeueing(t *testing.T) {
	c := newTestConsumer(failingHandler)

	ack := &fakeAcknowledger{}
	for i := 0; i < 3; i++ {
		c.consumeOne(delivery(ack, `{"task_id":1}`))
	}

	if ack.nacks != 3 || !ack.requeue {
		t.Errorf("expected unbounded requeue without a policy, nacks=%d requeue=%v", ack.nacks, ack.requeue)
	}
}
