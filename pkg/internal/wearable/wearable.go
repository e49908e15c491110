// Package wearable is the phone side of the smartwatch message channel. It
// sends sampling and health commands and queues the sensor batches and
// health acknowledgements the watch sends back.
package wearable

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/circuitbreaker"
	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

// Endpoint paths shared with the watch application.
const (
	PathStartSampling = "/start_sampling"
	PathCheckHealth   = "/check_health"
	PathSensorSeries  = "/sensor_series"
)

const (
	DefaultSeriesQueue    = 8
	DefaultBreakerErrors  = 3
	DefaultBreakerWindow  = 10 * time.Second
	DefaultPublishTimeout = 3 * time.Second
)

// StartSamplingCommand is the payload sent on PathStartSampling.
type StartSamplingCommand struct {
	Start       bool `json:"start"`
	IsInference bool `json:"isInference"`
}

// Link wraps a Transport with the wearable's endpoint semantics.
type Link struct {
	componentMetadata types.ComponentMetadata
	transport         Transport
	breaker           *circuitbreaker.CircuitBreaker
	meter             *meter.Meter
	publishTimeout    time.Duration
	seriesQueue       int

	series     chan types.SensorSeries
	acks       chan struct{}
	seriesLock sync.Mutex

	decoder *codec.JSONDecoder[types.SensorSeries]
	encoder *codec.JSONEncoder[StartSamplingCommand]

	dropped   atomic.Uint64
	malformed atomic.Uint64

	closeOnce sync.Once
	closed    atomic.Bool

	loggers     []types.Logger
	loggersLock sync.Mutex
}

// NewLink subscribes to the inbound endpoints of transport. The transport
// must already be usable for Subscribe.
func NewLink(transport Transport, options ...types.Option[*Link]) (*Link, error) {
	l := &Link{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "WEARABLE_LINK",
		},
		transport:      transport,
		publishTimeout: DefaultPublishTimeout,
		seriesQueue:    DefaultSeriesQueue,
		acks:           make(chan struct{}, 1),
		decoder:        codec.NewJSONDecoder[types.SensorSeries](),
		encoder:        codec.NewJSONEncoder[StartSamplingCommand](),
	}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	if l.breaker == nil {
		l.breaker = circuitbreaker.NewCircuitBreaker(DefaultBreakerErrors, DefaultBreakerWindow)
	}
	l.series = make(chan types.SensorSeries, l.seriesQueue)

	if err := transport.Subscribe(PathSensorSeries, l.onSeries); err != nil {
		return nil, types.NewError(types.KindTransport, "subscribe "+PathSensorSeries, err)
	}
	if err := transport.Subscribe(PathCheckHealth, l.onHealthAck); err != nil {
		return nil, types.NewError(types.KindTransport, "subscribe "+PathCheckHealth, err)
	}
	return l, nil
}

// GetComponentMetadata returns the link's metadata.
func (l *Link) GetComponentMetadata() types.ComponentMetadata {
	return l.componentMetadata
}

// Dropped is the number of sensor batches discarded because the queue was full.
func (l *Link) Dropped() uint64 { return l.dropped.Load() }

// Malformed is the number of sensor batches discarded because they did not decode.
func (l *Link) Malformed() uint64 { return l.malformed.Load() }

// NotifyLoggers emits a log entry to all configured loggers.
func (l *Link) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	l.loggersLock.Lock()
	loggers := append([]types.Logger(nil), l.loggers...)
	l.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
