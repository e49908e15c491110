package headset

import (
	"context"
	"errors"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// Start launches the producer and returns immediately. Starting a running
// headset is a no-op.
func (h *Headset) Start(ctx context.Context) error {
	if h.source == nil {
		return types.NewError(types.KindConnectivity, "headset start", errors.New("no source configured"))
	}

	h.runLock.Lock()
	defer h.runLock.Unlock()
	if h.started.Load() {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})
	h.started.Store(true)

	go h.run(runCtx, h.done)

	h.NotifyLoggers(types.InfoLevel, "EEG producer started",
		"component", h.GetComponentMetadata(), "event", "Start", "format", h.frames.Name())
	return nil
}

// Stop cancels the producer and waits for it to exit. Safe to call more than once.
func (h *Headset) Stop() error {
	h.runLock.Lock()
	defer h.runLock.Unlock()
	if h.cancel == nil {
		return nil
	}
	h.cancel()
	<-h.done
	h.cancel, h.done = nil, nil
	h.started.Store(false)

	h.NotifyLoggers(types.InfoLevel, "EEG producer stopped",
		"component", h.GetComponentMetadata(), "event", "Stop",
		"dropped", h.Dropped(), "malformed", h.Malformed())
	return nil
}

func (h *Headset) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		err := h.source.Serve(ctx, h.handleFrame)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			h.NotifyLoggers(types.WarnLevel, "EEG session dropped",
				"component", h.GetComponentMetadata(), "event", "Serve", "result", "FAILURE", "error", err)
		}

		timer := time.NewTimer(h.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (h *Headset) handleFrame(_ context.Context, frame []byte) error {
	records, err := h.frames.DecodeFrame(frame)
	if err != nil {
		h.malformed.Add(1)
		h.meter.IncrementCount(meter.MetricEEGFramesMalformed)
		return err
	}
	for _, rec := range records {
		h.enqueue(rec)
	}
	return nil
}

func (h *Headset) enqueue(rec types.EEGSample) {
	select {
	case h.samples <- rec:
	default:
		h.dropped.Add(1)
		h.meter.IncrementCount(meter.MetricEEGSamplesDropped)
	}
}
