package kafkaclient

import (
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// WithLogger attaches loggers.
func WithLogger(loggers ...types.Logger) types.Option[*Publisher] {
	return func(p *Publisher) {
		p.loggersLock.Lock()
		for _, l := range loggers {
			if l != nil {
				p.loggers = append(p.loggers, l)
			}
		}
		p.loggersLock.Unlock()
	}
}

// WithComponentMetadata sets the publisher's name and id.
func WithComponentMetadata(name, id string) types.Option[*Publisher] {
	return func(p *Publisher) {
		p.componentMetadata.Name = name
		if id != "" {
			p.componentMetadata.ID = id
		}
	}
}

// WithBrokers sets the bootstrap brokers (host:port).
func WithBrokers(brokers ...string) types.Option[*Publisher] {
	return func(p *Publisher) { p.brokers = append(p.brokers, brokers...) }
}

// WithTopic sets the destination topic.
func WithTopic(topic string) types.Option[*Publisher] {
	return func(p *Publisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

// WithKeyTemplate sets the key template, e.g. "{subject}". A template without
// braces is used literally.
func WithKeyTemplate(tmpl string) types.Option[*Publisher] {
	return func(p *Publisher) { p.keyTemplate = tmpl }
}

// WithHeader adds a header whose value may be a "{field}" template.
func WithHeader(key, tmpl string) types.Option[*Publisher] {
	return func(p *Publisher) { p.headers[key] = tmpl }
}

// WithCompression selects gzip, snappy, lz4 or zstd. Empty means none.
func WithCompression(name string) types.Option[*Publisher] {
	return func(p *Publisher) { p.compression = name }
}

// WithRequiredAcks selects "all", "one" or "none".
func WithRequiredAcks(acks string) types.Option[*Publisher] {
	return func(p *Publisher) { p.acks = acks }
}

// WithBatchTimeout bounds how long the writer waits to fill a batch.
func WithBatchTimeout(d time.Duration) types.Option[*Publisher] {
	return func(p *Publisher) {
		if d > 0 {
			p.batchTimeout = d
		}
	}
}

// WithWriteTimeout bounds a single write.
func WithWriteTimeout(d time.Duration) types.Option[*Publisher] {
	return func(p *Publisher) {
		if d > 0 {
			p.writeTimeout = d
		}
	}
}

// withWriter injects a writer; used by tests.
func withWriter(w messageWriter) types.Option[*Publisher] {
	return func(p *Publisher) { p.writer = w }
}
