package kafkaclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/segmentio/kafka-go"
)

var (
	ErrNoBrokers = errors.New("kafkaclient: no brokers configured")
	ErrClosed    = errors.New("kafkaclient: publisher closed")
)

// Publish writes ev as one JSON message. Errors are TransportErrors.
func (p *Publisher) Publish(ctx context.Context, ev types.SessionEvent) error {
	w, err := p.getOrCreateWriter()
	if err != nil {
		return types.NewError(types.KindTransport, "Publish", err)
	}

	val, err := p.encoder.Marshal(ev)
	if err != nil {
		return types.NewError(types.KindTransport, "Publish", fmt.Errorf("encode session event: %w", err))
	}
	msg := kafka.Message{
		Key:     renderKeyFromTemplate(p.keyTemplate, ev),
		Value:   val,
		Headers: renderHeadersFromTemplates(p.headers, ev),
	}

	if err := w.WriteMessages(ctx, msg); err != nil {
		p.NotifyLoggers(types.ErrorLevel, "Kafka produce failed",
			"component", p.componentMetadata, "event", "Produce", "result", "FAILURE",
			"topic", p.topic, "session_id", ev.SessionID, "error", err)
		return types.NewError(types.KindTransport, "Publish", err)
	}
	p.NotifyLoggers(types.DebugLevel, "Kafka produce",
		"component", p.componentMetadata, "event", "Produce", "result", "SUCCESS",
		"topic", p.topic, "session_id", ev.SessionID, "kind", string(ev.Kind), "bytes", len(val))
	return nil
}

// Close flushes and closes the writer. Safe to call more than once.
func (p *Publisher) Close() error {
	p.writerLock.Lock()
	defer p.writerLock.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}

func (p *Publisher) getOrCreateWriter() (messageWriter, error) {
	p.writerLock.Lock()
	defer p.writerLock.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if p.writer != nil {
		return p.writer, nil
	}
	w, err := p.newKafkaWriter()
	if err != nil {
		return nil, err
	}
	p.writer = w
	p.NotifyLoggers(types.InfoLevel, "Kafka writer created",
		"component", p.componentMetadata, "event", "WriterStart", "result", "SUCCESS",
		"topic", p.topic, "brokers", p.brokers, "compression", p.compression)
	return w, nil
}

func (p *Publisher) newKafkaWriter() (*kafka.Writer, error) {
	if len(p.brokers) == 0 {
		return nil, ErrNoBrokers
	}
	comp, err := parseCompression(p.compression)
	if err != nil {
		return nil, err
	}
	acks, err := parseAcks(p.acks)
	if err != nil {
		return nil, err
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Topic:                  p.topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           acks,
		Compression:            comp,
		BatchTimeout:           p.batchTimeout,
		WriteTimeout:           p.writeTimeout,
		AllowAutoTopicCreation: true,
	}, nil
}

func parseCompression(name string) (kafka.Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return 0, nil
	case "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	default:
		return 0, fmt.Errorf("kafkaclient: unknown compression %q", name)
	}
}

func parseAcks(s string) (kafka.RequiredAcks, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "-1":
		return kafka.RequireAll, nil
	case "one", "1":
		return kafka.RequireOne, nil
	case "none", "0":
		return kafka.RequireNone, nil
	default:
		return kafka.RequireAll, fmt.Errorf("kafkaclient: unknown acks %q", s)
	}
}
