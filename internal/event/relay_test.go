package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	pkgkafka "github.com/Palak111111/Scrapify-server/pkg/kafka"
)

var createdAt = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func outboxRecord(id, eventID, productID string) domain.OutboxRecord {
	payload, _ := json.Marshal(domain.ProductCreatedPayload{ProductName: "Widget " + productID})
	return domain.OutboxRecord{
		ID:          id,
		EventID:     eventID,
		EventType:   domain.EventProductCreated,
		AggregateID: productID,
		Payload:     payload,
		CreatedAt:   createdAt,
	}
}

func newTestRelay(outbox *fakeOutbox, pub Publisher, breaker BreakerConfig) (*Relay, *RelayMetrics) {
	metrics := newTestRelayMetrics()
	relay := NewRelay(outbox, pub, RelayConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
		Breaker:      breaker,
	}, metrics, newTestLogger())
	return relay, metrics
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "ecommerce.product.created", TopicFor(domain.EventProductCreated))
	assert.Equal(t, TopicProductCreated, TopicFor("product.created"))
	assert.Equal(t, "ecommerce.heartbeat", TopicFor("heartbeat"))
}

func TestRelay_DispatchPending_PublishesAndMarks(t *testing.T) {
	outbox := newFakeOutbox(outboxRecord("o1", "evt-1", "p1"), outboxRecord("o2", "evt-2", "p2"))
	pub := &fakePublisher{}
	relay, metrics := newTestRelay(outbox, pub, DefaultBreakerConfig("test"))

	n, err := relay.DispatchPending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"o1", "o2"}, outbox.dispatched)
	assert.Equal(t, []string{TopicProductCreated, TopicProductCreated}, pub.topics)

	evt := pub.events[0]
	assert.Equal(t, "evt-1", evt.EventID)
	assert.Equal(t, "p1", evt.AggregateID)
	assert.Equal(t, "product", evt.AggregateType)
	assert.Equal(t, Source, evt.Source)
	assert.Equal(t, "1", evt.Metadata["outbox_attempt"])

	var payload domain.ProductCreatedPayload
	require.NoError(t, evt.UnmarshalData(&payload))
	assert.Equal(t, "Widget p1", payload.ProductName)

	assert.Equal(t, 2.0, metricValue(t, metrics.Dispatched.WithLabelValues(domain.EventProductCreated)))
	assert.Equal(t, 2.0, metricValue(t, metrics.Pending))

	n, err = relay.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelay_DispatchPending_FailureKeepsRecordPending(t *testing.T) {
	outbox := newFakeOutbox(outboxRecord("o1", "evt-1", "p1"))
	pub := &fakePublisher{err: errors.New("leader not available")}
	relay, metrics := newTestRelay(outbox, pub, DefaultBreakerConfig("test"))

	n, err := relay.DispatchPending(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, outbox.dispatched)
	assert.Contains(t, outbox.failed["o1"], "leader not available")
	assert.Equal(t, 1, outbox.records[0].Attempts)
	assert.Equal(t, 1.0, metricValue(t, metrics.Failed.WithLabelValues(domain.EventProductCreated)))
	assert.Equal(t, 0.0, metricValue(t, metrics.Parked.WithLabelValues(domain.EventProductCreated)))

	pub.err = nil
	n, err = relay.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRelay_DispatchPending_ParksRecordAfterMaxAttempts(t *testing.T) {
	outbox := newFakeOutbox(outboxRecord("o1", "evt-1", "p1"))
	outbox.maxAttempts = 2
	pub := &fakePublisher{err: errors.New("message too large")}
	metrics := newTestRelayMetrics()
	relay := NewRelay(outbox, pub, RelayConfig{
		BatchSize:   10,
		MaxAttempts: 2,
		Breaker:     DefaultBreakerConfig("test"),
	}, metrics, newTestLogger())

	for i := 0; i < 3; i++ {
		n, err := relay.DispatchPending(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	assert.Equal(t, 2, outbox.records[0].Attempts, "a parked record is not polled again")
	assert.Len(t, pub.events, 0)
	assert.Equal(t, 2.0, metricValue(t, metrics.Failed.WithLabelValues(domain.EventProductCreated)))
	assert.Equal(t, 1.0, metricValue(t, metrics.Parked.WithLabelValues(domain.EventProductCreated)))
	assert.Equal(t, 0.0, metricValue(t, metrics.Pending))
}

func TestRelay_DispatchPending_OpenBreakerStopsBatch(t *testing.T) {
	records := []domain.OutboxRecord{
		outboxRecord("o1", "evt-1", "p1"),
		outboxRecord("o2", "evt-2", "p2"),
		outboxRecord("o3", "evt-3", "p3"),
		outboxRecord("o4", "evt-4", "p4"),
	}
	outbox := newFakeOutbox(records...)
	pub := &fakePublisher{err: errors.New("broker down")}
	breaker := BreakerConfig{Name: "test", MaxRequests: 1, Timeout: time.Minute, FailureRatio: 0.5, MinRequests: 2}
	relay, metrics := newTestRelay(outbox, pub, breaker)

	_, err := relay.DispatchPending(context.Background())

	require.NoError(t, err)
	assert.Len(t, outbox.failed, 2, "only attempts before the breaker opened are recorded")
	assert.Equal(t, 1.0, metricValue(t, metrics.Rejected))
	assert.Equal(t, 2.0, metricValue(t, metrics.BreakerState))
}

func TestRelay_DispatchPending_ListError(t *testing.T) {
	outbox := newFakeOutbox()
	outbox.listErr = errors.New("no primary")
	relay, _ := newTestRelay(outbox, &fakePublisher{}, DefaultBreakerConfig("test"))

	_, err := relay.DispatchPending(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "list pending outbox records")
}

func TestRelay_DispatchPending_MarkErrorStillCounts(t *testing.T) {
	outbox := newFakeOutbox(outboxRecord("o1", "evt-1", "p1"))
	outbox.markErr = errors.New("write conflict")
	pub := &fakePublisher{}
	relay, _ := newTestRelay(outbox, pub, DefaultBreakerConfig("test"))

	n, err := relay.DispatchPending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, pub.calls())
}

func TestRelay_Run_StopsOnCancel(t *testing.T) {
	outbox := newFakeOutbox(outboxRecord("o1", "evt-1", "p1"))
	pub := &fakePublisher{}
	relay, _ := newTestRelay(outbox, pub, DefaultBreakerConfig("test"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool { return pub.calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRelay_WithKafkaProducer(t *testing.T) {
	outbox := newFakeOutbox(outboxRecord("o1", "evt-1", "p1"))
	writer := &memoryWriter{}
	producer := pkgkafka.NewProducer(writer, nil, pkgkafka.NewMetrics(prometheus.NewRegistry()), newTestLogger())
	relay, _ := newTestRelay(outbox, producer, DefaultBreakerConfig("test"))

	n, err := relay.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, writer.msgs, 1)
	msg := writer.msgs[0]
	assert.Equal(t, TopicProductCreated, msg.Topic)
	assert.Equal(t, "p1", string(msg.Key))

	evt, err := pkgkafka.UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", evt.EventID)
	assert.Equal(t, domain.EventProductCreated, evt.EventType)
}
