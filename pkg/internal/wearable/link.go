package wearable

import (
	"context"
	"errors"

	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// ErrBreakerOpen is wrapped in the TransportError returned while sends are suspended.
var ErrBreakerOpen = errors.New("wearable: circuit breaker open")

// ErrClosed is wrapped in the TransportError returned after Close.
var ErrClosed = errors.New("wearable: link closed")

// SendStartSampling tells the watch to begin a sampling window.
func (l *Link) SendStartSampling(ctx context.Context, isInference bool) error {
	payload, err := l.encoder.Marshal(StartSamplingCommand{Start: true, IsInference: isInference})
	if err != nil {
		return types.NewError(types.KindTransport, "encode start_sampling", err)
	}
	return l.send(ctx, PathStartSampling, payload)
}

// SendHealthCheck asks the watch to acknowledge on PathCheckHealth.
func (l *Link) SendHealthCheck(ctx context.Context) error {
	return l.send(ctx, PathCheckHealth, nil)
}

func (l *Link) send(ctx context.Context, path string, payload []byte) error {
	if l.closed.Load() {
		return types.NewError(types.KindTransport, "send "+path, ErrClosed)
	}
	if !l.breaker.Allow() {
		return types.NewError(types.KindTransport, "send "+path, ErrBreakerOpen)
	}

	sendCtx, cancel := context.WithTimeout(ctx, l.publishTimeout)
	defer cancel()

	if err := l.transport.Publish(sendCtx, path, payload); err != nil {
		l.breaker.RecordError()
		l.NotifyLoggers(types.WarnLevel, "Wearable send failed",
			"component", l.GetComponentMetadata(), "event", "Send", "result", "FAILURE", "path", path, "error", err)
		return types.NewError(types.KindTransport, "send "+path, err)
	}
	l.breaker.RecordSuccess()
	l.NotifyLoggers(types.DebugLevel, "Wearable command sent",
		"component", l.GetComponentMetadata(), "event", "Send", "result", "SUCCESS", "path", path)
	return nil
}

// Series delivers decoded sensor batches. The queue keeps the newest batches.
func (l *Link) Series() <-chan types.SensorSeries { return l.series }

// HealthAcks signals health acknowledgements. Pending acks coalesce into one.
func (l *Link) HealthAcks() <-chan struct{} { return l.acks }

// DrainHealthAcks discards a pending ack so the next wait only sees fresh ones.
func (l *Link) DrainHealthAcks() {
	select {
	case <-l.acks:
	default:
	}
}

// Reachable reports how many wearable nodes the transport can currently reach.
func (l *Link) Reachable(ctx context.Context) (int, error) {
	if l.closed.Load() {
		return 0, nil
	}
	n, err := l.transport.Reachable(ctx)
	if err != nil {
		return 0, types.NewError(types.KindTransport, "reachable", err)
	}
	return n, nil
}

// Close closes the transport. Safe to call more than once.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		err = l.transport.Close()
		l.NotifyLoggers(types.InfoLevel, "Wearable link closed",
			"component", l.GetComponentMetadata(), "event", "Close")
	})
	return err
}

func (l *Link) onSeries(payload []byte) {
	if l.closed.Load() {
		return
	}
	series, err := l.decoder.Unmarshal(payload)
	if err != nil {
		l.malformed.Add(1)
		l.meter.IncrementCount(meter.MetricWearableMalformed)
		l.NotifyLoggers(types.WarnLevel, "Dropping malformed sensor batch",
			"component", l.GetComponentMetadata(), "event", "Receive", "result", "FAILURE",
			"stream", PathSensorSeries, "bytes", len(payload), "error", err)
		return
	}

	// Senders are serialised so the drop-oldest step cannot race another push.
	l.seriesLock.Lock()
	defer l.seriesLock.Unlock()
	for {
		select {
		case l.series <- series:
			l.meter.IncrementCount(meter.MetricWearableBatches)
			l.NotifyLoggers(types.DebugLevel, "Sensor batch received",
				"component", l.GetComponentMetadata(), "event", "Receive", "result", "SUCCESS",
				"heart_rate", len(series.HeartRate), "eda", len(series.EDA))
			return
		default:
		}
		select {
		case <-l.series:
			l.dropped.Add(1)
			l.meter.IncrementCount(meter.MetricWearableBatchesDropped)
		default:
		}
	}
}

func (l *Link) onHealthAck([]byte) {
	select {
	case l.acks <- struct{}{}:
	default:
	}
}
