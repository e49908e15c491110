package protocol

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/classifier"
	"github.com/joeydtaylor/foodback/pkg/internal/persistence"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"gonum.org/v1/gonum/mat"
)

type fakeHeadset struct {
	ch chan types.EEGSample
}

func newFakeHeadset() *fakeHeadset {
	return &fakeHeadset{ch: make(chan types.EEGSample, 4096)}
}

func (h *fakeHeadset) Samples() <-chan types.EEGSample { return h.ch }

func (h *fakeHeadset) push(n int) {
	for i := 0; i < n; i++ {
		var s types.EEGSample
		s.Sequence = int64(i + 1)
		for c := range s.Channels {
			s.Channels[c] = float64(i%50) + float64(c)
		}
		h.ch <- s
	}
}

type fakeWearable struct {
	series chan types.SensorSeries
	batch  *types.SensorSeries
	err    error
	starts atomic.Int32
	mu     sync.Mutex
	infer  []bool
}

func newFakeWearable(batch *types.SensorSeries) *fakeWearable {
	return &fakeWearable{series: make(chan types.SensorSeries, 4), batch: batch}
}

func (w *fakeWearable) SendStartSampling(ctx context.Context, isInference bool) error {
	w.starts.Add(1)
	w.mu.Lock()
	w.infer = append(w.infer, isInference)
	w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if w.batch != nil {
		w.series <- *w.batch
	}
	return nil
}

func (w *fakeWearable) Series() <-chan types.SensorSeries { return w.series }

type fakeHealth struct {
	ready atomic.Bool
	marks atomic.Int64
}

func (h *fakeHealth) State() types.ConnectivityState {
	r := h.ready.Load()
	return types.ConnectivityState{EEGConnected: r, WatchConnected: r}
}

func (h *fakeHealth) MarkEEGSample(seq int64) { h.marks.Add(1) }

type fakePersister struct {
	mu      sync.Mutex
	fail    int
	records []persistence.Record
}

func (p *fakePersister) SaveSession(ctx context.Context, rec persistence.Record) (persistence.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	if p.fail > 0 {
		p.fail--
		return persistence.Result{}, types.NewError(types.KindPersistence, "SaveSession", errors.New("disk full"))
	}
	return persistence.Result{Experiment: len(p.records), EEGRows: len(rec.EEG)}, nil
}

func (p *fakePersister) calls() []persistence.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]persistence.Record(nil), p.records...)
}

func testConfig(flow types.Flow) Config {
	cfg := DefaultConfig(flow)
	cfg.Preparation = 10 * time.Millisecond
	cfg.Recording = 500 * time.Millisecond
	cfg.SettleDelay = 50 * time.Millisecond
	cfg.EEGHz = 1000
	return cfg
}

func auxBatch(n int, spanMs int64) *types.SensorSeries {
	start := int64(1_700_000_000_000)
	batch := &types.SensorSeries{}
	for i := 0; i < n; i++ {
		ts := start + int64(i)*spanMs/int64(n-1)
		batch.HeartRate = append(batch.HeartRate, types.TimestampedSample{Timestamp: ts, Value: 70 + float64(i)})
		batch.EDA = append(batch.EDA, types.TimestampedSample{Timestamp: ts, Value: 0.5 + float64(i)/100})
	}
	return batch
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitStage(t *testing.T, m *Machine, stage types.Stage) {
	t.Helper()
	waitFor(t, 3*time.Second, "stage "+stage.String(), func() bool {
		return m.Snapshot().Stage == stage
	})
}

func waitEvent(t *testing.T, m *Machine, typ EventType) Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-m.Events():
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", typ)
			return Event{}
		}
	}
}

func TestStartRejectsInvalidSubject(t *testing.T) {
	m := NewMachine(context.Background(), testConfig(types.FlowCollection))
	defer m.Close()

	for _, name := range []string{"", "bob", "Bob Smith", "B", "Bob!"} {
		m.SetSubject(name)
		err := m.Start(context.Background())
		if !errors.Is(err, ErrInvalidSubject) || !errors.Is(err, types.ErrValidation) {
			t.Fatalf("subject %q: expected invalid subject validation error, got %v", name, err)
		}
		if got := m.Snapshot().Stage; got != types.StageIdle {
			t.Fatalf("subject %q: expected Idle, got %s", name, got)
		}
	}
	ev := waitEvent(t, m, EventError)
	if ev.Kind != types.KindValidation {
		t.Fatalf("expected validation event, got %s", ev.Kind)
	}
}

func TestStartAcceptsCamelCaseSubject(t *testing.T) {
	m := NewMachine(context.Background(), testConfig(types.FlowCollection))
	defer m.Close()

	m.SetSubject("Bob2")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := m.Snapshot().Stage; got != types.StagePreparation && got != types.StageRecording {
		t.Fatalf("expected the run to be under way, got %s", got)
	}
}

func TestInferenceIgnoresSubject(t *testing.T) {
	m := NewMachine(context.Background(), testConfig(types.FlowInference))
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("inference Start without subject: %v", err)
	}
}

func TestStartRequiresConnectivity(t *testing.T) {
	health := &fakeHealth{}
	m := NewMachine(context.Background(), testConfig(types.FlowCollection), WithConnectivity(health))
	defer m.Close()

	m.SetSubject("SteveRogers")
	err := m.Start(context.Background())
	if !errors.Is(err, types.ErrConnectivity) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
	if got := m.Snapshot().Stage; got != types.StageIdle {
		t.Fatalf("expected Idle, got %s", got)
	}

	health.ready.Store(true)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start with devices ready: %v", err)
	}
}

func TestConnectivityCheckedBeforeSubject(t *testing.T) {
	m := NewMachine(context.Background(), testConfig(types.FlowCollection), WithConnectivity(&fakeHealth{}))
	defer m.Close()

	m.SetSubject("bob")
	err := m.Start(context.Background())
	if !errors.Is(err, types.ErrConnectivity) || errors.Is(err, ErrInvalidSubject) {
		t.Fatalf("expected the connectivity error first, got %v", err)
	}
}

func TestStartIsSingleFlight(t *testing.T) {
	m := NewMachine(context.Background(), testConfig(types.FlowCollection))
	defer m.Close()

	m.SetSubject("SteveRogers")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(context.Background()); !errors.Is(err, ErrSessionRunning) {
		t.Fatalf("expected ErrSessionRunning, got %v", err)
	}
}

func TestBuffersOnlyAcceptDuringRecording(t *testing.T) {
	headset := newFakeHeadset()
	health := &fakeHealth{}
	health.ready.Store(true)
	wearable := newFakeWearable(nil)
	m := NewMachine(context.Background(), testConfig(types.FlowCollection),
		WithHeadset(headset), WithWearable(wearable), WithConnectivity(health))
	defer m.Close()

	headset.push(50)
	wearable.series <- *auxBatch(5, 1000)
	waitFor(t, time.Second, "liveness marks", func() bool { return health.marks.Load() == 50 })
	time.Sleep(20 * time.Millisecond)

	snap := m.Snapshot()
	for stream, n := range snap.Buffered {
		if n != 0 {
			t.Fatalf("expected no %s samples while Idle, got %d", stream, n)
		}
	}

	m.SetSubject("SteveRogers")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStage(t, m, types.StageRecording)
	headset.push(700)
	waitFor(t, time.Second, "eeg budget", func() bool { return m.Snapshot().Buffered[types.StreamEEG] == 500 })

	waitStage(t, m, types.StageAskingRating)
	headset.push(10)
	time.Sleep(20 * time.Millisecond)
	if got := m.Snapshot().Buffered[types.StreamEEG]; got != 500 {
		t.Fatalf("expected the EEG window to stay at 500 after Finished, got %d", got)
	}
}

func TestInferenceEndToEnd(t *testing.T) {
	headset := newFakeHeadset()
	wearable := newFakeWearable(auxBatch(10, 2000))

	var calls atomic.Int32
	var mu sync.Mutex
	var dims [3][2]int
	model := classifier.Func(func(ctx context.Context, eeg, hr, eda *mat.Dense) ([]float64, error) {
		calls.Add(1)
		mu.Lock()
		defer mu.Unlock()
		dims[0][0], dims[0][1] = eeg.Dims()
		dims[1][0], dims[1][1] = hr.Dims()
		dims[2][0], dims[2][1] = eda.Dims()
		return []float64{0.1, 0.7, 0.2}, nil
	})

	m := NewMachine(context.Background(), testConfig(types.FlowInference),
		WithHeadset(headset), WithWearable(wearable), WithClassifier(model))
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStage(t, m, types.StageRecording)
	headset.push(500)

	ev := waitEvent(t, m, EventPrediction)
	if ev.Prediction == nil || ev.Prediction.Class != 1 {
		t.Fatalf("expected class 1, got %+v", ev.Prediction)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected the classifier to run once, ran %d times", calls.Load())
	}
	mu.Lock()
	got := dims
	mu.Unlock()
	want := [3][2]int{{6, 500}, {1, 250}, {1, 250}}
	if got != want {
		t.Fatalf("tensor shapes: got %v, want %v", got, want)
	}
	if wearable.starts.Load() != 1 || !wearable.infer[0] {
		t.Fatalf("expected one inference start command, got %d", wearable.starts.Load())
	}

	snap := m.Snapshot()
	if snap.Stage != types.StageDone || snap.Prediction == nil {
		t.Fatalf("expected Done with a prediction, got %s", snap.Stage)
	}
	if snap.Buffered[types.StreamEEG] != 0 || snap.Buffered[types.StreamHeartRate] != 0 {
		t.Fatalf("expected buffers cleared after inference, got %v", snap.Buffered)
	}
}

func TestInferenceWithoutWearableBatchFails(t *testing.T) {
	headset := newFakeHeadset()
	var calls atomic.Int32
	model := classifier.Func(func(ctx context.Context, eeg, hr, eda *mat.Dense) ([]float64, error) {
		calls.Add(1)
		return []float64{1, 0, 0}, nil
	})
	m := NewMachine(context.Background(), testConfig(types.FlowInference),
		WithHeadset(headset), WithWearable(newFakeWearable(nil)), WithClassifier(model))
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStage(t, m, types.StageRecording)
	headset.push(100)

	ev := waitEvent(t, m, EventError)
	if ev.Kind != types.KindEmptyBuffer {
		t.Fatalf("expected EmptyBufferError, got %s (%s)", ev.Kind, ev.Message)
	}
	waitStage(t, m, types.StageIdle)
	if calls.Load() != 0 {
		t.Fatal("classifier must not run on an incomplete window")
	}
}

func TestClassifierPanicBecomesEvent(t *testing.T) {
	headset := newFakeHeadset()
	model := classifier.Func(func(ctx context.Context, eeg, hr, eda *mat.Dense) ([]float64, error) {
		panic("model exploded")
	})
	m := NewMachine(context.Background(), testConfig(types.FlowInference),
		WithHeadset(headset), WithWearable(newFakeWearable(auxBatch(10, 2000))), WithClassifier(model))
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStage(t, m, types.StageRecording)
	headset.push(100)

	ev := waitEvent(t, m, EventError)
	if ev.Kind != types.KindClassification || !errors.Is(ev.Err, types.ErrClassification) {
		t.Fatalf("expected ClassificationError, got %s", ev.Kind)
	}
	waitStage(t, m, types.StageIdle)
}

func TestCollectionSavesRatedWindow(t *testing.T) {
	dir := t.TempDir()
	headset := newFakeHeadset()
	wearable := newFakeWearable(auxBatch(10, 500))
	m := NewMachine(context.Background(), testConfig(types.FlowCollection),
		WithHeadset(headset), WithWearable(wearable), WithPersister(persistence.NewStore(dir)))
	defer m.Close()

	m.SetSubject("SteveRogers")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStage(t, m, types.StageRecording)
	headset.push(200)
	waitStage(t, m, types.StageAskingRating)

	if err := m.SetRating("3"); err != nil {
		t.Fatalf("SetRating: %v", err)
	}
	if err := m.SubmitRating(context.Background()); err != nil {
		t.Fatalf("SubmitRating: %v", err)
	}

	ev := waitEvent(t, m, EventSaved)
	if ev.Saved == nil || ev.Saved.Experiment != 1 || ev.Saved.EEGRows != 200 || ev.Saved.HeartRateRows != 10 {
		t.Fatalf("unexpected save result %+v", ev.Saved)
	}
	snap := m.Snapshot()
	if snap.Stage != types.StageDone || snap.Subject != "" || snap.Rating != nil {
		t.Fatalf("expected Done with subject and rating reset, got %+v", snap)
	}
	for _, name := range []string{persistence.EEGFile, persistence.HeartRateFile, persistence.EDAFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	if !errors.Is(m.Start(context.Background()), ErrInvalidSubject) {
		t.Fatal("expected a new subject to be required after a saved session")
	}
}

func TestSubmitRatingWithEmptyEEG(t *testing.T) {
	store := &fakePersister{}
	m := NewMachine(context.Background(), testConfig(types.FlowCollection),
		WithHeadset(newFakeHeadset()), WithPersister(store))
	defer m.Close()

	m.SetSubject("SteveRogers")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStage(t, m, types.StageAskingRating)
	if err := m.SetRating("2"); err != nil {
		t.Fatalf("SetRating: %v", err)
	}

	err := m.SubmitRating(context.Background())
	if !errors.Is(err, types.ErrEmptyBuffer) {
		t.Fatalf("expected EmptyBufferError, got %v", err)
	}
	snap := m.Snapshot()
	if snap.Stage != types.StageIdle || snap.Rating != nil {
		t.Fatalf("expected Idle with the rating discarded, got %s", snap.Stage)
	}
	if len(store.calls()) != 0 {
		t.Fatal("nothing should be persisted for an empty recording")
	}
}

func TestPersistenceFailureAllowsRetry(t *testing.T) {
	headset := newFakeHeadset()
	store := &fakePersister{fail: 1}
	m := NewMachine(context.Background(), testConfig(types.FlowCollection),
		WithHeadset(headset), WithWearable(newFakeWearable(auxBatch(10, 500))), WithPersister(store))
	defer m.Close()

	m.SetSubject("SteveRogers")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStage(t, m, types.StageRecording)
	headset.push(120)
	waitStage(t, m, types.StageAskingRating)
	if err := m.SetRating("4"); err != nil {
		t.Fatalf("SetRating: %v", err)
	}

	if err := m.SubmitRating(context.Background()); !errors.Is(err, types.ErrPersistence) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if got := m.Snapshot().Stage; got != types.StageAskingRating {
		t.Fatalf("expected to stay in AskingRating, got %s", got)
	}

	if err := m.SubmitRating(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	calls := store.calls()
	if len(calls) != 2 {
		t.Fatalf("expected two save attempts, got %d", len(calls))
	}
	for i, rec := range calls {
		if len(rec.EEG) != 120 || len(rec.HeartRate) != 10 || len(rec.EDA) != 10 || rec.Rating != 4 {
			t.Fatalf("attempt %d: eeg=%d hr=%d eda=%d rating=%d", i, len(rec.EEG), len(rec.HeartRate), len(rec.EDA), rec.Rating)
		}
	}
	if calls[1].AlignedHz != 125 || len(calls[1].AlignedHeartRate) == 0 {
		t.Fatalf("expected aligned aux streams on the record, got %d Hz", calls[1].AlignedHz)
	}
}

func TestSetRatingValidation(t *testing.T) {
	m := NewMachine(context.Background(), testConfig(types.FlowCollection))
	defer m.Close()

	tests := []struct {
		in      string
		wantErr bool
	}{
		{"0", false},
		{" 4 ", false},
		{"5", true},
		{"-1", true},
		{"three", true},
		{"", true},
	}
	for _, tt := range tests {
		err := m.SetRating(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("SetRating(%q): err=%v, wantErr=%v", tt.in, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("SetRating(%q): expected ErrInvalidRating, got %v", tt.in, err)
		}
	}
}

func TestSubmitRatingOutsideAskingRating(t *testing.T) {
	m := NewMachine(context.Background(), testConfig(types.FlowCollection))
	defer m.Close()

	if err := m.SubmitRating(context.Background()); !errors.Is(err, ErrNotAskingRating) {
		t.Fatalf("expected ErrNotAskingRating, got %v", err)
	}
}

func TestSetSubjectAbandonsRun(t *testing.T) {
	headset := newFakeHeadset()
	store := &fakePersister{}
	m := NewMachine(context.Background(), testConfig(types.FlowCollection),
		WithHeadset(headset), WithPersister(store))
	defer m.Close()

	m.SetSubject("SteveRogers")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStage(t, m, types.StageRecording)
	headset.push(50)

	m.SetSubject("TonyStark")
	snap := m.Snapshot()
	if snap.Stage != types.StageIdle || snap.Subject != "TonyStark" {
		t.Fatalf("expected Idle with the new subject, got %s %q", snap.Stage, snap.Subject)
	}

	time.Sleep(600 * time.Millisecond)
	if got := m.Snapshot().Stage; got != types.StageIdle {
		t.Fatalf("abandoned run must not advance, got %s", got)
	}
	if len(store.calls()) != 0 {
		t.Fatal("abandoned run must not persist")
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start after abandon: %v", err)
	}
}

type blockingPersister struct {
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPersister) SaveSession(ctx context.Context, rec persistence.Record) (persistence.Result, error) {
	close(p.entered)
	<-p.release
	return persistence.Result{Experiment: 1, EEGRows: len(rec.EEG)}, nil
}

func TestSetSubjectRejectedWhileSaving(t *testing.T) {
	headset := newFakeHeadset()
	store := &blockingPersister{entered: make(chan struct{}), release: make(chan struct{})}
	m := NewMachine(context.Background(), testConfig(types.FlowCollection),
		WithHeadset(headset), WithWearable(newFakeWearable(auxBatch(10, 500))), WithPersister(store))
	defer m.Close()

	m.SetSubject("SteveRogers")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStage(t, m, types.StageRecording)
	headset.push(100)
	waitStage(t, m, types.StageAskingRating)
	if err := m.SetRating("2"); err != nil {
		t.Fatalf("SetRating: %v", err)
	}

	submitted := make(chan error, 1)
	go func() { submitted <- m.SubmitRating(context.Background()) }()
	select {
	case <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("save never started")
	}

	if err := m.SetSubject("TonyStark"); !errors.Is(err, ErrSubmitInProgress) || !errors.Is(err, types.ErrValidation) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	if got := m.Subject(); got != "SteveRogers" {
		t.Fatalf("subject changed during save: %q", got)
	}

	close(store.release)
	if err := <-submitted; err != nil {
		t.Fatalf("SubmitRating: %v", err)
	}
	waitEvent(t, m, EventSaved)
	if got := m.Snapshot().Stage; got != types.StageDone {
		t.Fatalf("expected Done, got %s", got)
	}
}

func TestStartSamplingFailureKeepsRecording(t *testing.T) {
	wearable := newFakeWearable(nil)
	wearable.err = types.NewError(types.KindTransport, "SendStartSampling", errors.New("no route"))
	m := NewMachine(context.Background(), testConfig(types.FlowCollection), WithWearable(wearable))
	defer m.Close()

	m.SetSubject("SteveRogers")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ev := waitEvent(t, m, EventError)
	if ev.Kind != types.KindTransport {
		t.Fatalf("expected TransportError, got %s", ev.Kind)
	}
	waitStage(t, m, types.StageAskingRating)
}

func TestSubscribeReceivesLatestSnapshot(t *testing.T) {
	m := NewMachine(context.Background(), testConfig(types.FlowCollection))
	defer m.Close()

	sub := m.Subscribe()
	m.SetSubject("SteveRogers")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStage(t, m, types.StageAskingRating)

	select {
	case snap := <-sub:
		if snap.Stage != types.StageAskingRating {
			t.Fatalf("expected the latest snapshot, got %s", snap.Stage)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	m := NewMachine(context.Background(), testConfig(types.FlowCollection), WithHeadset(newFakeHeadset()))
	m.SetSubject("SteveRogers")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := m.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
