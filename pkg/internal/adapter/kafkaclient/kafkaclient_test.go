package kafkaclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed int
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	w.closed++
	w.mu.Unlock()
	return nil
}

func sampleEvent() types.SessionEvent {
	rating := 3
	return types.SessionEvent{
		Kind:       types.SessionCompleted,
		SessionID:  "3f1c",
		Subject:    "SteveRogers",
		Flow:       "collection",
		Experiment: 7,
		Rating:     &rating,
		At:         time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderKeyFromTemplateField(t *testing.T) {
	key := renderKeyFromTemplate("{subject}", sampleEvent())
	if string(key) != "SteveRogers" {
		t.Fatalf("expected key to render from field, got %q", string(key))
	}
}

func TestRenderKeyFromTemplateLiteral(t *testing.T) {
	key := renderKeyFromTemplate("static-key", sampleEvent())
	if string(key) != "static-key" {
		t.Fatalf("expected literal key, got %q", string(key))
	}
}

func TestRenderFieldFromValueRejectsInvalidPlaceholder(t *testing.T) {
	if _, ok := renderFieldFromValue(sampleEvent(), "subject"); ok {
		t.Fatalf("expected invalid placeholder to return false")
	}
}

func TestPublishWritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(withWriter(w), WithHeader("source", "lab"))

	if err := p.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "3f1c" {
		t.Fatalf("expected session id key, got %q", msg.Key)
	}

	var got types.SessionEvent
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Experiment != 7 || got.Rating == nil || *got.Rating != 3 {
		t.Fatalf("unexpected payload %+v", got)
	}

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["kind"] != "session_completed" || headers["flow"] != "collection" || headers["source"] != "lab" {
		t.Fatalf("unexpected headers %v", headers)
	}
}

func TestPublishFailureIsTransportError(t *testing.T) {
	p := NewPublisher(withWriter(&fakeWriter{err: errors.New("leader not available")}))
	err := p.Publish(context.Background(), sampleEvent())
	if !errors.Is(err, types.ErrTransport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestPublishWithoutBrokers(t *testing.T) {
	p := NewPublisher()
	err := p.Publish(context.Background(), sampleEvent())
	if !errors.Is(err, ErrNoBrokers) || !errors.Is(err, types.ErrTransport) {
		t.Fatalf("expected ErrNoBrokers transport error, got %v", err)
	}
}

func TestNewKafkaWriterConfig(t *testing.T) {
	p := NewPublisher(WithBrokers("127.0.0.1:19092"), WithTopic("tastings"), WithCompression("zstd"), WithRequiredAcks("one"))
	w, err := p.newKafkaWriter()
	if err != nil {
		t.Fatalf("newKafkaWriter: %v", err)
	}
	if w.Topic != "tastings" || w.Compression != kafka.Zstd || w.RequiredAcks != kafka.RequireOne {
		t.Fatalf("unexpected writer config: topic=%s compression=%v acks=%v", w.Topic, w.Compression, w.RequiredAcks)
	}
	if _, ok := w.Balancer.(*kafka.Hash); !ok {
		t.Fatalf("expected hash balancer, got %T", w.Balancer)
	}

	if _, err := NewPublisher(WithBrokers("b:9092"), WithCompression("brotli")).newKafkaWriter(); err == nil {
		t.Fatal("expected unknown compression to fail")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(withWriter(w))
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if w.closed != 1 {
		t.Fatalf("expected the writer closed once, got %d", w.closed)
	}
	if err := p.Publish(context.Background(), sampleEvent()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}
