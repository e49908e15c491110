package simulator

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/adapter/websocketclient"
	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/headset"
	"github.com/joeydtaylor/foodback/pkg/internal/wearable"
)

func TestEEGSamplesAreDeterministic(t *testing.T) {
	a := EEGSamples(1, 100, 500, 10)
	b := EEGSamples(1, 100, 500, 10)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs between runs", i)
		}
		if a[i].Sequence != int64(i+1) {
			t.Fatalf("expected sequence %d, got %d", i+1, a[i].Sequence)
		}
	}
	if a[0].Channels[0] != 0 {
		t.Fatalf("expected the first sample at phase zero, got %f", a[0].Channels[0])
	}
}

func TestSensorSeriesCoversWindow(t *testing.T) {
	end := time.UnixMilli(1_700_000_010_000)
	s := SensorSeries(end, 2*time.Second, 5, 5)
	if len(s.HeartRate) != 10 || len(s.EDA) != 10 {
		t.Fatalf("expected 10 samples per stream, got %d/%d", len(s.HeartRate), len(s.EDA))
	}
	first, last := s.HeartRate[0].Timestamp, s.HeartRate[9].Timestamp
	if last != end.UnixMilli() || first <= end.Add(-2*time.Second).UnixMilli() {
		t.Fatalf("timestamps outside the window: %d..%d", first, last)
	}
	if len(SensorSeries(end, 100*time.Millisecond, 1, 1).HeartRate) != 0 {
		t.Fatal("expected no samples for a window shorter than one period")
	}
}

func TestEEGServerFeedsHeadset(t *testing.T) {
	srv := NewEEGServer(WithSampleRate(500), WithFrameInterval(10*time.Millisecond), WithFrameCodec(codec.BinaryFrames{}))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := websocketclient.NewWebSocketClientAdapter(
		websocketclient.WithURL("ws" + strings.TrimPrefix(ts.URL, "http")),
	)
	h := headset.NewHeadset(client, codec.BinaryFrames{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := h.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Stop()

	timeout := time.After(3 * time.Second)
	for want := int64(1); want <= 50; want++ {
		select {
		case s := <-h.Samples():
			if s.Sequence != want {
				t.Fatalf("expected sequence %d, got %d", want, s.Sequence)
			}
		case <-timeout:
			t.Fatalf("timed out at sequence %d", want)
		}
	}
	if srv.Connections() != 1 {
		t.Fatalf("expected one streaming client, got %d", srv.Connections())
	}
}

func TestWatchAnswersHealthAndSampling(t *testing.T) {
	phone, watchEnd := wearable.NewLoopbackPair()
	w, err := NewWatch(context.Background(), watchEnd,
		WithWindows(time.Second, 30*time.Millisecond), WithSensorRates(500, 250))
	if err != nil {
		t.Fatalf("NewWatch: %v", err)
	}
	defer w.Close()

	link, err := wearable.NewLink(phone)
	if err != nil {
		t.Fatalf("NewLink: %v", err)
	}
	defer link.Close()

	if err := link.SendHealthCheck(context.Background()); err != nil {
		t.Fatalf("SendHealthCheck: %v", err)
	}
	select {
	case <-link.HealthAcks():
	case <-time.After(time.Second):
		t.Fatal("no health ack")
	}

	if err := link.SendStartSampling(context.Background(), true); err != nil {
		t.Fatalf("SendStartSampling: %v", err)
	}
	select {
	case batch := <-link.Series():
		if len(batch.HeartRate) != 15 || len(batch.EDA) != 7 {
			t.Fatalf("unexpected batch sizes %d/%d", len(batch.HeartRate), len(batch.EDA))
		}
	case <-time.After(time.Second):
		t.Fatal("no sensor batch")
	}
	if w.Batches() != 1 {
		t.Fatalf("expected one batch sent, got %d", w.Batches())
	}
}

func TestMutedWatchDoesNotAck(t *testing.T) {
	phone, watchEnd := wearable.NewLoopbackPair()
	w, err := NewWatch(context.Background(), watchEnd)
	if err != nil {
		t.Fatalf("NewWatch: %v", err)
	}
	defer w.Close()
	w.SetHealthMuted(true)

	link, err := wearable.NewLink(phone)
	if err != nil {
		t.Fatalf("NewLink: %v", err)
	}
	defer link.Close()

	if err := link.SendHealthCheck(context.Background()); err != nil {
		t.Fatalf("SendHealthCheck: %v", err)
	}
	select {
	case <-link.HealthAcks():
		t.Fatal("muted watch must not acknowledge")
	case <-time.After(50 * time.Millisecond):
	}
}
