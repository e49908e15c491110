package session

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/adapter/websocketclient"
	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/headset"
	"github.com/joeydtaylor/foodback/pkg/internal/health"
	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/protocol"
	"github.com/joeydtaylor/foodback/pkg/internal/simulator"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/wearable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCloser struct{ n atomic.Int32 }

func (c *countingCloser) Close() error {
	c.n.Add(1)
	return nil
}

type failingProducer struct{ stops atomic.Int32 }

func (p *failingProducer) Start(context.Context) error { return errors.New("no headset") }
func (p *failingProducer) Stop() error {
	p.stops.Add(1)
	return nil
}

type rig struct {
	parts  Parts
	server *httptest.Server
	watch  *simulator.Watch
	health *health.Monitor
}

func newRig(t *testing.T, ctx context.Context) *rig {
	t.Helper()
	srv := simulator.NewEEGServer(simulator.WithSampleRate(500), simulator.WithFrameInterval(10*time.Millisecond))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	client := websocketclient.NewWebSocketClientAdapter(
		websocketclient.WithURL("ws" + strings.TrimPrefix(ts.URL, "http")),
	)
	h := headset.NewHeadset(client, codec.JSONFrames{})

	phone, watchEnd := wearable.NewLoopbackPair()
	watch, err := simulator.NewWatch(ctx, watchEnd, simulator.WithWindows(time.Second, 400*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { watch.Close() })

	link, err := wearable.NewLink(phone)
	require.NoError(t, err)

	mon := health.NewMonitor(link, health.WithInterval(50*time.Millisecond))
	m := meter.NewMeter()

	cfg := protocol.DefaultConfig(types.FlowInference)
	cfg.Preparation = 20 * time.Millisecond
	cfg.Recording = 400 * time.Millisecond
	cfg.SettleDelay = 300 * time.Millisecond
	machine := protocol.NewMachine(ctx, cfg,
		protocol.WithHeadset(h),
		protocol.WithWearable(link),
		protocol.WithConnectivity(mon),
		protocol.WithMeter(m),
	)

	return &rig{
		parts: Parts{
			EEG:      h,
			Wearable: link,
			Health:   mon,
			Machine:  machine,
			Meter:    m,
		},
		server: ts,
		watch:  watch,
		health: mon,
	}
}

func waitConnected(t *testing.T, mon *health.Monitor) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if mon.State().Ready() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("devices never reported connected: %+v", mon.State())
}

func TestSessionRunsInferenceEndToEnd(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, ctx)

	s, err := Open(ctx, r.parts)
	require.NoError(t, err)
	defer s.Close()

	waitConnected(t, r.health)
	require.NoError(t, s.Machine().Start(ctx))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-s.Machine().Events():
			switch ev.Type {
			case protocol.EventError:
				t.Fatalf("unexpected error event: %s (%v)", ev.Message, ev.Err)
			case protocol.EventPrediction:
				require.NotNil(t, ev.Prediction)
				assert.Len(t, ev.Prediction.Scores, 5)
				assert.Equal(t, types.StageDone, s.Machine().Snapshot().Stage)
				assert.Equal(t, int64(1), r.watch.Batches())
				return
			}
		case <-timeout:
			t.Fatalf("no prediction; last snapshot %+v", s.Machine().Snapshot())
		}
	}
}

func TestSessionCloseReleasesEverything(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, ctx)
	extra := &countingCloser{}
	r.parts.Closers = []io.Closer{extra}

	s, err := Open(ctx, r.parts)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, int32(1), extra.n.Load())
	assert.False(t, r.parts.EEG.(*headset.Headset).IsStarted())
	assert.ErrorIs(t, s.Machine().Start(ctx), protocol.ErrClosed)
	n, err := r.parts.Wearable.(*wearable.Link).Reachable(ctx)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenReleasesOnProducerFailure(t *testing.T) {
	ctx := context.Background()
	machine := protocol.NewMachine(ctx, protocol.DefaultConfig(types.FlowCollection))
	p := &failingProducer{}
	extra := &countingCloser{}

	_, err := Open(ctx, Parts{EEG: p, Machine: machine, Closers: []io.Closer{extra}})
	require.Error(t, err)
	assert.Equal(t, int32(1), p.stops.Load())
	assert.Equal(t, int32(1), extra.n.Load())
}

func TestOpenRequiresMachine(t *testing.T) {
	_, err := Open(context.Background(), Parts{})
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}
