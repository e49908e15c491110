package simulator

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
	"github.com/joeydtaylor/foodback/pkg/internal/wearable"
)

const (
	DefaultCollectionWindow = 10 * time.Second
	DefaultInferenceWindow  = 2 * time.Second
)

// Watch is a synthetic smartwatch. It acknowledges health checks and, after
// a start command, records for its window and sends one sensor batch.
type Watch struct {
	componentMetadata types.ComponentMetadata
	transport         wearable.Transport

	collectionWindow time.Duration
	inferenceWindow  time.Duration
	hrHz             int
	edaHz            int
	muteHealth       atomic.Bool
	batches          atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	loggers     []types.Logger
	loggersLock sync.Mutex
}

// NewWatch attaches a watch to the watch end of a transport.
func NewWatch(ctx context.Context, transport wearable.Transport, options ...types.Option[*Watch]) (*Watch, error) {
	ctx, cancel := context.WithCancel(ctx)
	w := &Watch{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "WATCH_SIMULATOR",
		},
		transport:        transport,
		collectionWindow: DefaultCollectionWindow,
		inferenceWindow:  DefaultInferenceWindow,
		hrHz:             DefaultHeartRateHz,
		edaHz:            DefaultEDAHz,
		ctx:              ctx,
		cancel:           cancel,
	}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}
	if err := transport.Subscribe(wearable.PathCheckHealth, w.onHealthCheck); err != nil {
		cancel()
		return nil, err
	}
	if err := transport.Subscribe(wearable.PathStartSampling, w.onStartSampling); err != nil {
		cancel()
		return nil, err
	}
	return w, nil
}

// SetHealthMuted stops health acknowledgements while true.
func (w *Watch) SetHealthMuted(muted bool) { w.muteHealth.Store(muted) }

// Batches is the number of sensor batches sent.
func (w *Watch) Batches() int64 { return w.batches.Load() }

// Close cancels pending recordings and waits for them.
func (w *Watch) Close() error {
	w.cancel()
	w.wg.Wait()
	return nil
}

func (w *Watch) onHealthCheck([]byte) {
	if w.muteHealth.Load() {
		return
	}
	// Loopback delivers synchronously; reply off the caller's stack.
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.transport.Publish(w.ctx, wearable.PathCheckHealth, nil); err != nil {
			w.NotifyLoggers(types.DebugLevel, "Health ack failed",
				"component", w.componentMetadata, "event", "HealthAck", "result", "FAILURE", "error", err)
		}
	}()
}

func (w *Watch) onStartSampling(payload []byte) {
	var cmd wearable.StartSamplingCommand
	if err := json.Unmarshal(payload, &cmd); err != nil || !cmd.Start {
		w.NotifyLoggers(types.WarnLevel, "Ignoring start command",
			"component", w.componentMetadata, "event", "StartSampling", "bytes", len(payload))
		return
	}
	window := w.collectionWindow
	if cmd.IsInference {
		window = w.inferenceWindow
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		t := time.NewTimer(window)
		defer t.Stop()
		select {
		case <-w.ctx.Done():
			return
		case <-t.C:
		}
		w.sendSeries(window)
	}()
}

func (w *Watch) sendSeries(window time.Duration) {
	batch := SensorSeries(time.Now(), window, w.hrHz, w.edaHz)
	payload, err := json.Marshal(batch)
	if err != nil {
		return
	}
	if err := w.transport.Publish(w.ctx, wearable.PathSensorSeries, payload); err != nil {
		w.NotifyLoggers(types.WarnLevel, "Sensor batch not delivered",
			"component", w.componentMetadata, "event", "SensorSeries", "result", "FAILURE", "error", err)
		return
	}
	w.batches.Add(1)
	w.NotifyLoggers(types.DebugLevel, "Sensor batch sent",
		"component", w.componentMetadata, "event", "SensorSeries", "result", "SUCCESS",
		"heart_rate", len(batch.HeartRate), "eda", len(batch.EDA))
}

// NotifyLoggers emits a log entry to all configured loggers.
func (w *Watch) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	w.loggersLock.Lock()
	loggers := append([]types.Logger(nil), w.loggers...)
	w.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
