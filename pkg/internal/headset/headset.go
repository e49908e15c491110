// Package headset runs the EEG producer: it keeps a streaming session with
// the headset open and pushes every decoded record into a bounded queue.
package headset

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/adapter/websocketclient"
	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

const (
	DefaultQueueSize      = 2048
	DefaultReconnectDelay = time.Second
	DefaultSampleRate     = 500
)

// Source streams raw frames from the headset until ctx ends or the session drops.
type Source interface {
	Serve(ctx context.Context, handle websocketclient.FrameHandler) error
}

// Headset is the EEG link channel.
type Headset struct {
	componentMetadata types.ComponentMetadata
	source            Source
	frames            codec.FrameCodec
	meter             *meter.Meter
	reconnectDelay    time.Duration
	queueSize         int

	samples   chan types.EEGSample
	dropped   atomic.Uint64
	malformed atomic.Uint64

	runLock sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started atomic.Bool

	loggers     []types.Logger
	loggersLock sync.Mutex
}

// NewHeadset builds a headset link reading frames from source.
func NewHeadset(source Source, frames codec.FrameCodec, options ...types.Option[*Headset]) *Headset {
	h := &Headset{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "EEG_HEADSET",
		},
		source:         source,
		frames:         frames,
		reconnectDelay: DefaultReconnectDelay,
		queueSize:      DefaultQueueSize,
	}
	if h.frames == nil {
		h.frames = codec.JSONFrames{}
	}
	for _, opt := range options {
		if opt != nil {
			opt(h)
		}
	}
	h.samples = make(chan types.EEGSample, h.queueSize)
	return h
}

// GetComponentMetadata returns the headset's metadata.
func (h *Headset) GetComponentMetadata() types.ComponentMetadata {
	return h.componentMetadata
}

// Samples delivers records in arrival order. When the queue is full new records are dropped.
func (h *Headset) Samples() <-chan types.EEGSample { return h.samples }

// Dropped is the number of records discarded on a full queue.
func (h *Headset) Dropped() uint64 { return h.dropped.Load() }

// Malformed is the number of frames that failed to decode.
func (h *Headset) Malformed() uint64 { return h.malformed.Load() }

// IsStarted reports whether the producer is running.
func (h *Headset) IsStarted() bool { return h.started.Load() }

// NotifyLoggers emits a log entry to all configured loggers.
func (h *Headset) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	h.loggersLock.Lock()
	loggers := append([]types.Logger(nil), h.loggers...)
	h.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
