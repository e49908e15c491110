package protocol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/classifier"
	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/spectral"
	"github.com/joeydtaylor/foodback/pkg/internal/tensor"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

var (
	ErrSessionRunning   = errors.New("protocol: a session is already running")
	ErrInvalidSubject   = errors.New("protocol: subject must be CamelCase letters and digits, e.g. SteveRogers")
	ErrInvalidRating    = errors.New("protocol: rating out of range")
	ErrNotAskingRating  = errors.New("protocol: no recording is waiting for a rating")
	ErrSubmitInProgress = errors.New("protocol: rating submission in progress")
	ErrClosed           = errors.New("protocol: machine closed")
)

// Start runs the guards and, if they pass, launches the timed stage sequence.
// A rejected start surfaces an error event and leaves the stage unchanged.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.startGuardLocked(ctx); err != nil {
		m.fail(m.sess.id, m.sess.stage, err)
		return err
	}

	m.gen++
	gen := m.gen
	runCtx, cancel := context.WithCancel(m.ctx)
	m.runCancel = cancel
	m.sess = session{id: utils.NewSessionID(), stage: types.StageIdle}
	m.hr.Reset()
	m.eda.Reset()
	m.eeg.Reset()

	m.NotifyLoggers(types.InfoLevel, "Starting tasting protocol",
		"component", m.GetComponentMetadata(), "event", "Start", "result", "SUCCESS",
		"session_id", m.sess.id, "subject", m.subject, "flow", m.cfg.Flow.String())
	m.setStageLocked(types.StagePreparation)

	m.wg.Add(1)
	go m.run(runCtx, gen, m.sess.id)
	return nil
}

// startGuardLocked rejects a start while a run is active, then when either
// device is down, then when a collection run has no valid subject.
func (m *Machine) startGuardLocked(ctx context.Context) error {
	if m.ctx.Err() != nil {
		return types.NewError(types.KindValidation, "Start", ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return types.NewError(types.KindValidation, "Start", err)
	}
	if m.runCancel != nil || m.submitting || m.sess.stage == types.StageAskingRating {
		return types.NewError(types.KindValidation, "Start", ErrSessionRunning)
	}
	if m.health != nil {
		st := m.health.State()
		if !st.Ready() {
			return types.NewError(types.KindConnectivity, "Start",
				fmt.Errorf("%w: eeg=%t watch=%t", types.ErrConnectivity, st.EEGConnected, st.WatchConnected))
		}
	}
	if m.cfg.Flow == types.FlowCollection && !m.subjectRule.MatchString(m.subject) {
		return types.NewError(types.KindValidation, "Start", fmt.Errorf("%w: %q", ErrInvalidSubject, m.subject))
	}
	return nil
}

// run is the stage task of one session.
func (m *Machine) run(ctx context.Context, gen uint64, id string) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.abort(gen, id, types.NewError(types.KindInternal, "run", fmt.Errorf("panic: %v", r)))
		}
	}()

	if !sleep(ctx, m.cfg.Preparation) {
		return
	}
	if !m.enterRecording(ctx, gen, id) {
		return
	}
	if !sleep(ctx, m.cfg.Recording) {
		return
	}
	if !m.finishRecording(gen) {
		return
	}
	if m.cfg.Flow == types.FlowCollection {
		return
	}

	// The watch sends its batch once its own window ends.
	if !sleep(ctx, m.cfg.SettleDelay) {
		return
	}
	m.infer(ctx, gen, id)
}

func (m *Machine) enterRecording(ctx context.Context, gen uint64, id string) bool {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return false
	}
	m.eeg.Open()
	m.hr.Open()
	m.eda.Open()
	m.countdown.Reset(m.cfg.EEGBudget())
	m.sess.startedAt = time.Now()
	m.setStageLocked(types.StageRecording)
	m.mu.Unlock()

	if m.wearable == nil {
		return true
	}
	if err := m.wearable.SendStartSampling(ctx, m.cfg.Flow == types.FlowInference); err != nil {
		// The EEG window still runs; the aux buffers simply stay empty.
		m.fail(id, types.StageRecording, err)
	}
	return true
}

// finishRecording closes the EEG gate and moves to Finished. The collection
// flow continues to AskingRating and clears the stage task.
func (m *Machine) finishRecording(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return false
	}
	m.sess.frozenEEG = m.eeg.Close()
	m.setStageLocked(types.StageFinished)
	m.emit(Event{Type: EventFinished, SessionID: m.sess.id, Stage: types.StageFinished})
	m.NotifyLoggers(types.InfoLevel, "Recording finished",
		"component", m.GetComponentMetadata(), "event", "Finish", "session_id", m.sess.id,
		"eeg_samples", len(m.sess.frozenEEG), "eeg_rejected", m.eeg.Rejected())

	if m.cfg.Flow == types.FlowCollection {
		m.clearRunLocked()
		m.setStageLocked(types.StageAskingRating)
	}
	return true
}

// infer closes the aux gates, aligns, classifies once and publishes the prediction.
func (m *Machine) infer(ctx context.Context, gen uint64, id string) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	eeg := m.sess.frozenEEG
	m.sess.frozenEEG = nil
	hr := m.hr.Close()
	eda := m.eda.Close()
	m.mu.Unlock()

	empty := emptyStreams(eeg, hr, eda)
	if len(empty) > 0 {
		m.abort(gen, id, types.NewError(types.KindEmptyBuffer, "Infer",
			fmt.Errorf("%w: %v", types.ErrEmptyBuffer, empty)))
		return
	}

	window, err := tensor.Build(eeg, m.cfg.Align.Align(hr), m.cfg.Align.Align(eda))
	if err != nil {
		m.abort(gen, id, types.NewError(types.KindValidation, "Infer", err))
		return
	}

	scores, err := classifier.SafeClassify(ctx, m.classifier, window.EEG, window.HeartRate, window.EDA)
	if err != nil {
		m.abort(gen, id, types.NewError(types.KindClassification, "Infer", err))
		return
	}
	m.meter.IncrementCount(meter.MetricClassifications)

	pred := types.Prediction{
		Class:      classifier.Argmax(scores),
		Scores:     scores,
		BandPowers: spectral.BandPowers(window.EEG, float64(m.cfg.EEGHz)),
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.sess.prediction = &pred
	m.clearRunLocked()
	m.setStageLocked(types.StageDone)
	m.emit(Event{Type: EventPrediction, SessionID: id, Stage: types.StageDone, Prediction: &pred})
	subject := m.subject
	m.mu.Unlock()

	m.NotifyLoggers(types.InfoLevel, "Prediction ready",
		"component", m.GetComponentMetadata(), "event", "Infer", "result", "SUCCESS",
		"session_id", id, "class", pred.Class, "scores", pred.Scores)
	m.meter.IncrementCount(meter.MetricSessionsCompleted)
	m.publish(types.SessionEvent{
		Kind:       types.SessionPrediction,
		SessionID:  id,
		Subject:    subject,
		Flow:       m.cfg.Flow.String(),
		Prediction: &pred,
		Samples:    sampleCounts(len(eeg), len(hr), len(eda)),
	})
}

// abort surfaces err and returns the session to Idle, discarding buffers.
func (m *Machine) abort(gen uint64, id string, err error) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	stage := m.sess.stage
	m.discardLocked()
	m.setStageLocked(types.StageIdle)
	m.mu.Unlock()

	m.fail(id, stage, err)
	m.meter.IncrementCount(meter.MetricSessionsFailed)
	m.publish(types.SessionEvent{
		Kind:      types.SessionFailed,
		SessionID: id,
		Flow:      m.cfg.Flow.String(),
		Error:     err.Error(),
	})
}

// abandonLocked cancels any run without persisting. Caller holds m.mu.
func (m *Machine) abandonLocked() {
	if m.runCancel == nil && m.sess.stage == types.StageIdle {
		return
	}
	m.gen++
	m.discardLocked()
	m.setStageLocked(types.StageIdle)
}

// discardLocked stops the stage task and empties every buffer.
func (m *Machine) discardLocked() {
	m.clearRunLocked()
	m.eeg.Close()
	m.hr.Close()
	m.eda.Close()
	m.countdown.Reset(0)
	m.sess.frozenEEG = nil
	m.sess.rating = nil
	m.sess.prediction = nil
}

func (m *Machine) clearRunLocked() {
	if m.runCancel != nil {
		m.runCancel()
		m.runCancel = nil
	}
}

func emptyStreams(eeg []types.EEGSample, hr, eda []types.TimestampedSample) []types.Stream {
	var empty []types.Stream
	if len(eeg) == 0 {
		empty = append(empty, types.StreamEEG)
	}
	if len(hr) == 0 {
		empty = append(empty, types.StreamHeartRate)
	}
	if len(eda) == 0 {
		empty = append(empty, types.StreamEDA)
	}
	return empty
}

func sampleCounts(eeg, hr, eda int) map[types.Stream]int {
	return map[types.Stream]int{
		types.StreamEEG:       eeg,
		types.StreamHeartRate: hr,
		types.StreamEDA:       eda,
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
