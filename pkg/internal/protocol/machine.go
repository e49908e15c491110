// Package protocol sequences a tasting run: connectivity and subject guards,
// a timed preparation, a recording window that gates all three acquisition
// buffers, and either rating plus persistence (collection) or a single
// classification (inference).
//
// Stage timers run on their own goroutine; device producers are drained by
// two consumer goroutines. All failures become error events.
package protocol

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/acquisition"
	"github.com/joeydtaylor/foodback/pkg/internal/classifier"
	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/persistence"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

// EEGSource is the headset producer.
type EEGSource interface {
	Samples() <-chan types.EEGSample
}

// Wearable is the part of the wearable link the machine drives.
type Wearable interface {
	SendStartSampling(ctx context.Context, isInference bool) error
	Series() <-chan types.SensorSeries
}

// Connectivity is the health monitor as seen by the machine.
type Connectivity interface {
	State() types.ConnectivityState
	MarkEEGSample(seq int64)
}

// Persister stores a completed collection window.
type Persister interface {
	SaveSession(ctx context.Context, rec persistence.Record) (persistence.Result, error)
}

// Publisher forwards session outcomes, e.g. to a message bus.
type Publisher interface {
	Publish(ctx context.Context, ev types.SessionEvent) error
}

// session is the mutable record of the current run. Guarded by Machine.mu.
type session struct {
	id         string
	stage      types.Stage
	rating     *int
	prediction *types.Prediction
	frozenEEG  []types.EEGSample
	startedAt  time.Time
}

// Machine is the protocol state machine. One run at a time.
type Machine struct {
	componentMetadata types.ComponentMetadata
	cfg               Config
	subjectRule       *regexp.Regexp

	headset    EEGSource
	wearable   Wearable
	health     Connectivity
	classifier classifier.Classifier
	persister  Persister
	publisher  Publisher
	meter      *meter.Meter

	eeg       *acquisition.Buffer[types.EEGSample]
	hr        *acquisition.Buffer[types.TimestampedSample]
	eda       *acquisition.Buffer[types.TimestampedSample]
	countdown acquisition.Countdown

	mu         sync.Mutex
	subject    string
	sess       session
	gen        uint64
	runCancel  context.CancelFunc
	submitting bool

	events        chan Event
	droppedEvents atomic.Uint64
	subsLock      sync.Mutex
	subscribers   []chan types.ProtocolSnapshot

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	loggers     []types.Logger
	loggersLock sync.Mutex
}

// NewMachine builds a machine and starts its device consumers. They run
// until ctx ends or Close is called.
func NewMachine(ctx context.Context, cfg Config, options ...types.Option[*Machine]) *Machine {
	ctx, cancel := context.WithCancel(ctx)
	m := &Machine{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "PROTOCOL_MACHINE",
		},
		cfg:         cfg.withDefaults(),
		subjectRule: regexp.MustCompile(SubjectPattern),
		eeg:         acquisition.NewBuffer[types.EEGSample](),
		hr:          acquisition.NewBuffer[types.TimestampedSample](),
		eda:         acquisition.NewBuffer[types.TimestampedSample](),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	m.events = make(chan Event, m.cfg.EventBuffer)
	if m.classifier == nil {
		guard := classifier.NewShapeGuard(classifier.NewSpectral(float64(m.cfg.EEGHz)))
		guard.AuxSamples = m.cfg.Align.Samples()
		m.classifier = guard
	}

	if m.headset != nil {
		m.wg.Add(1)
		go m.consumeEEG()
	}
	if m.wearable != nil {
		m.wg.Add(1)
		go m.consumeSeries()
	}
	return m
}

// GetComponentMetadata returns the machine's metadata.
func (m *Machine) GetComponentMetadata() types.ComponentMetadata {
	return m.componentMetadata
}

// Config returns the effective configuration.
func (m *Machine) Config() Config { return m.cfg }

// Events delivers user-facing events. When nobody reads, new events are dropped.
func (m *Machine) Events() <-chan Event { return m.events }

// DroppedEvents is the number of events lost to a full queue.
func (m *Machine) DroppedEvents() uint64 { return m.droppedEvents.Load() }

// Subscribe returns a channel that always holds the latest snapshot after a stage change.
func (m *Machine) Subscribe() <-chan types.ProtocolSnapshot {
	ch := make(chan types.ProtocolSnapshot, 1)
	m.subsLock.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.subsLock.Unlock()
	return ch
}

// Snapshot returns a copy of the current session state.
func (m *Machine) Snapshot() types.ProtocolSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() types.ProtocolSnapshot {
	snap := types.ProtocolSnapshot{
		SessionID: m.sess.id,
		Subject:   m.subject,
		Stage:     m.sess.stage,
		Flow:      m.cfg.Flow,
		Buffered: map[types.Stream]int{
			types.StreamEEG:       m.eeg.Len() + len(m.sess.frozenEEG),
			types.StreamHeartRate: m.hr.Len(),
			types.StreamEDA:       m.eda.Len(),
		},
	}
	if m.sess.rating != nil {
		r := *m.sess.rating
		snap.Rating = &r
	}
	if m.sess.prediction != nil {
		p := *m.sess.prediction
		p.Scores = append([]float64(nil), p.Scores...)
		snap.Prediction = &p
	}
	if m.health != nil {
		snap.Connectivity = m.health.State()
	}
	return snap
}

// setStageLocked changes the stage and fans the new snapshot out.
// Callers hold m.mu.
func (m *Machine) setStageLocked(stage types.Stage) {
	if m.sess.stage == stage {
		return
	}
	m.sess.stage = stage
	snap := m.snapshotLocked()

	m.subsLock.Lock()
	for _, ch := range m.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
	m.subsLock.Unlock()

	m.emit(Event{Type: EventStageChanged, SessionID: m.sess.id, Stage: stage})
	m.NotifyLoggers(types.InfoLevel, "Stage changed",
		"component", m.GetComponentMetadata(), "event", "Stage", "session_id", m.sess.id, "stage", stage)
}

// Close abandons any run and stops the consumers. Safe to call more than once.
func (m *Machine) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.abandonLocked()
		m.mu.Unlock()
		m.cancel()
		m.wg.Wait()
	})
	return nil
}

// NotifyLoggers emits a log entry to all configured loggers.
func (m *Machine) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	m.loggersLock.Lock()
	loggers := append([]types.Logger(nil), m.loggers...)
	m.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
