package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	pkgkafka "github.com/Palak111111/Scrapify-server/pkg/kafka"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeOutbox keeps records in memory.
type fakeOutbox struct {
	mu          sync.Mutex
	records     []domain.OutboxRecord
	maxAttempts int
	listErr     error
	markErr     error
	dispatched  []string
	failed      map[string]string
}

func newFakeOutbox(records ...domain.OutboxRecord) *fakeOutbox {
	return &fakeOutbox{records: records, failed: map[string]string{}}
}

func (o *fakeOutbox) ListPending(_ context.Context, limit int) ([]domain.OutboxRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.listErr != nil {
		return nil, o.listErr
	}
	out := make([]domain.OutboxRecord, 0, limit)
	for _, r := range o.records {
		if o.maxAttempts > 0 && r.Attempts >= o.maxAttempts {
			continue
		}
		if r.DispatchedAt == nil && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (o *fakeOutbox) MarkDispatched(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.markErr != nil {
		return o.markErr
	}
	o.dispatched = append(o.dispatched, id)
	for i := range o.records {
		if o.records[i].ID == id {
			now := o.records[i].CreatedAt
			o.records[i].DispatchedAt = &now
		}
	}
	return nil
}

func (o *fakeOutbox) MarkFailed(_ context.Context, id string, cause string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed[id] = cause
	for i := range o.records {
		if o.records[i].ID == id {
			o.records[i].Attempts++
			o.records[i].LastError = cause
		}
	}
	return nil
}

// fakePublisher records published events or fails with err.
type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// memoryWriter captures messages written by a pkgkafka.Producer.
type memoryWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *memoryWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memoryWriter) Close() error { return nil }

// queueReader serves queued messages, then blocks until ctx ends. done is
// closed once every queued message has been committed.
type queueReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed int
	total     int
	done      chan struct{}
}

func newQueueReader(msgs ...kafka.Message) *queueReader {
	return &queueReader{queue: msgs, total: len(msgs), done: make(chan struct{})}
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *queueReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed += len(msgs)
	if r.committed == r.total {
		close(r.done)
	}
	return nil
}

func (r *queueReader) Close() error { return nil }

// fakeNotifier counts fan-out calls per event.
type fakeNotifier struct {
	mu      sync.Mutex
	calls   map[string]int
	names   map[string]string
	failFor int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{calls: map[string]int{}, names: map[string]string{}}
}

func (n *fakeNotifier) NotifyNewProduct(_ context.Context, eventID, productID, productName string) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[eventID]++
	if n.failFor > 0 {
		n.failFor--
		return 0, errors.New("notification store unavailable")
	}
	n.names[productID] = productName
	return 1, nil
}

func newTestRelayMetrics() *RelayMetrics {
	return NewRelayMetrics(prometheus.NewRegistry())
}

// metricValue reads the single sample of a counter or gauge.
func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}
