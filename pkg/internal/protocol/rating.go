package protocol

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/persistence"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// SetSubject changes the subject. Any run in progress is abandoned
// without persisting and the stage returns to Idle. While a rating submit
// is being saved the subject cannot change and ErrSubmitInProgress is returned.
func (m *Machine) SetSubject(name string) error {
	m.mu.Lock()
	if m.submitting {
		id, stage := m.sess.id, m.sess.stage
		m.mu.Unlock()
		err := types.NewError(types.KindValidation, "SetSubject", ErrSubmitInProgress)
		m.fail(id, stage, err)
		return err
	}
	defer m.mu.Unlock()
	m.subject = strings.TrimSpace(name)
	m.abandonLocked()
	return nil
}

// Subject returns the current subject name.
func (m *Machine) Subject() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subject
}

// SetRating parses and stores the subject's rating for the current recording.
func (m *Machine) SetRating(text string) error {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err == nil && (v < 0 || v > m.cfg.MaxRating) {
		err = fmt.Errorf("%d not in 0..%d", v, m.cfg.MaxRating)
	}
	if err != nil {
		verr := types.NewError(types.KindValidation, "SetRating", fmt.Errorf("%w: %v", ErrInvalidRating, err))
		snap := m.Snapshot()
		m.fail(snap.SessionID, snap.Stage, verr)
		return verr
	}

	m.mu.Lock()
	m.sess.rating = &v
	m.mu.Unlock()
	return nil
}

// SubmitRating persists the finished collection window with the stored rating.
//
// An empty EEG recording is discarded and the machine returns to Idle. A
// persistence failure keeps the recording so the submit can be retried.
func (m *Machine) SubmitRating(ctx context.Context) error {
	m.mu.Lock()
	id := m.sess.id
	if m.sess.stage != types.StageAskingRating {
		stage := m.sess.stage
		m.mu.Unlock()
		err := types.NewError(types.KindValidation, "SubmitRating", ErrNotAskingRating)
		m.fail(id, stage, err)
		return err
	}
	if m.submitting {
		m.mu.Unlock()
		return types.NewError(types.KindValidation, "SubmitRating", ErrSubmitInProgress)
	}
	if m.sess.rating == nil || *m.sess.rating < 0 || *m.sess.rating > m.cfg.MaxRating {
		m.mu.Unlock()
		err := types.NewError(types.KindValidation, "SubmitRating", fmt.Errorf("%w: no rating set", ErrInvalidRating))
		m.fail(id, types.StageAskingRating, err)
		return err
	}

	eeg := m.sess.frozenEEG
	if len(eeg) == 0 {
		m.gen++
		m.discardLocked()
		m.setStageLocked(types.StageIdle)
		m.mu.Unlock()

		err := types.NewError(types.KindEmptyBuffer, "SubmitRating",
			fmt.Errorf("%w: no EEG samples recorded", types.ErrEmptyBuffer))
		m.fail(id, types.StageAskingRating, err)
		m.meter.IncrementCount(meter.MetricSessionsFailed)
		m.publish(types.SessionEvent{Kind: types.SessionFailed, SessionID: id, Flow: m.cfg.Flow.String(), Error: err.Error()})
		return err
	}

	hr := m.hr.Close()
	eda := m.eda.Close()
	rating := *m.sess.rating
	align := m.cfg.collectionAlign()
	rec := persistence.Record{
		SessionID:        id,
		Subject:          m.subject,
		Rating:           rating,
		SampleRate:       float64(m.cfg.EEGHz),
		StartedAt:        m.sess.startedAt,
		EEG:              eeg,
		HeartRate:        hr,
		EDA:              eda,
		AlignedHz:        align.TargetHz,
		AlignedHeartRate: align.Align(hr),
		AlignedEDA:       align.Align(eda),
	}
	gen := m.gen
	m.submitting = true
	m.mu.Unlock()

	res, err := m.save(ctx, rec)

	m.mu.Lock()
	m.submitting = false
	if m.gen != gen {
		m.mu.Unlock()
		return err
	}
	if err != nil {
		m.hr.Restore(hr)
		m.eda.Restore(eda)
		m.mu.Unlock()
		m.fail(id, types.StageAskingRating, err)
		return err
	}
	m.sess.frozenEEG = nil
	m.sess.rating = nil
	m.subject = ""
	m.setStageLocked(types.StageDone)
	m.emit(Event{Type: EventSaved, SessionID: id, Stage: types.StageDone, Saved: &res})
	m.mu.Unlock()

	m.NotifyLoggers(types.InfoLevel, "Session saved",
		"component", m.GetComponentMetadata(), "event", "SubmitRating", "result", "SUCCESS",
		"session_id", id, "experiment", res.Experiment, "eeg_rows", res.EEGRows, "rating", rating)
	m.meter.IncrementCount(meter.MetricSessionsCompleted)
	m.publish(types.SessionEvent{
		Kind:       types.SessionCompleted,
		SessionID:  id,
		Subject:    rec.Subject,
		Flow:       m.cfg.Flow.String(),
		Experiment: res.Experiment,
		Rating:     &rating,
		Samples:    sampleCounts(len(eeg), len(hr), len(eda)),
	})
	return nil
}

// save persists rec. Without a persister the run is a dry run.
func (m *Machine) save(ctx context.Context, rec persistence.Record) (persistence.Result, error) {
	if m.persister == nil {
		m.NotifyLoggers(types.InfoLevel, "Dry run, recording not saved",
			"component", m.GetComponentMetadata(), "event", "SubmitRating", "session_id", rec.SessionID)
		return persistence.Result{EEGRows: len(rec.EEG), HeartRateRows: len(rec.HeartRate), EDARows: len(rec.EDA)}, nil
	}
	res, err := m.persister.SaveSession(ctx, rec)
	if err != nil && types.KindOf(err) == "" {
		err = types.NewError(types.KindPersistence, "SubmitRating", err)
	}
	return res, err
}
