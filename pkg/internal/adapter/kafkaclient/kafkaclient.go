// Package kafkaclient publishes session outcomes to Kafka with segmentio/kafka-go.
//
// Every SessionEvent becomes one JSON message. The message key is rendered
// from a template (default "{session_id}") so a hash balancer keeps all
// events of one session on one partition.
package kafkaclient

import (
	"context"
	"sync"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic        = "foodback.sessions"
	DefaultKeyTemplate  = "{session_id}"
	DefaultBatchTimeout = 50 * time.Millisecond
	DefaultWriteTimeout = 10 * time.Second
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes session events to one topic.
type Publisher struct {
	componentMetadata types.ComponentMetadata

	brokers      []string
	topic        string
	keyTemplate  string
	headers      map[string]string
	compression  string
	acks         string
	batchTimeout time.Duration
	writeTimeout time.Duration

	encoder *codec.JSONEncoder[types.SessionEvent]

	writerLock sync.Mutex
	writer     messageWriter
	closed     bool

	loggers     []types.Logger
	loggersLock sync.Mutex
}

// NewPublisher builds a publisher. The kafka.Writer is created lazily on the first Publish.
func NewPublisher(options ...types.Option[*Publisher]) *Publisher {
	p := &Publisher{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "KAFKA_PUBLISHER",
		},
		topic:        DefaultTopic,
		keyTemplate:  DefaultKeyTemplate,
		headers:      map[string]string{"kind": "{kind}", "flow": "{flow}"},
		acks:         "all",
		batchTimeout: DefaultBatchTimeout,
		writeTimeout: DefaultWriteTimeout,
		encoder:      codec.NewJSONEncoder[types.SessionEvent](),
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// GetComponentMetadata returns the publisher's metadata.
func (p *Publisher) GetComponentMetadata() types.ComponentMetadata {
	return p.componentMetadata
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string { return p.topic }

// NotifyLoggers emits a log entry to all configured loggers.
func (p *Publisher) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	p.loggersLock.Lock()
	loggers := append([]types.Logger(nil), p.loggers...)
	p.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
