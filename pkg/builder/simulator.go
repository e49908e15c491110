package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/simulator"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

type (
	EEGSimulator   = simulator.EEGServer
	WatchSimulator = simulator.Watch
)

// NewEEGSimulator builds an http.Handler streaming synthetic EEG frames in
// format ("json" or "binary") at hz samples per second.
func NewEEGSimulator(format string, hz int, frameInterval time.Duration, loggers ...Logger) (*EEGSimulator, error) {
	frames, err := codec.FrameCodecFor(format)
	if err != nil {
		return nil, fmt.Errorf("eeg simulator: %w", err)
	}
	opts := []types.Option[*simulator.EEGServer]{
		simulator.WithFrameCodec(frames),
		simulator.WithEEGLogger(loggers...),
	}
	if hz > 0 {
		opts = append(opts, simulator.WithSampleRate(hz))
	}
	if frameInterval > 0 {
		opts = append(opts, simulator.WithFrameInterval(frameInterval))
	}
	return simulator.NewEEGServer(opts...), nil
}

// NewWatchSimulator answers health checks and sampling commands on the watch
// end of a wearable transport. Zero windows keep the simulator defaults.
func NewWatchSimulator(ctx context.Context, transport WearableTransport, collection, inference time.Duration, loggers ...Logger) (*WatchSimulator, error) {
	return simulator.NewWatch(ctx, transport,
		simulator.WithWatchLogger(loggers...),
		simulator.WithWindows(collection, inference),
	)
}
