package types

import "time"

// SessionEventKind labels a published session outcome.
type SessionEventKind string

const (
	SessionCompleted  SessionEventKind = "session_completed"
	SessionPrediction SessionEventKind = "prediction"
	SessionFailed     SessionEventKind = "session_failed"
)

// SessionEvent is the outcome record published once per finished run.
type SessionEvent struct {
	Kind       SessionEventKind `json:"kind"`
	SessionID  string           `json:"session_id"`
	Subject    string           `json:"subject,omitempty"`
	Flow       string           `json:"flow"`
	Experiment int              `json:"experiment,omitempty"`
	Rating     *int             `json:"rating,omitempty"`
	Prediction *Prediction      `json:"prediction,omitempty"`
	Error      string           `json:"error,omitempty"`
	Samples    map[Stream]int   `json:"samples,omitempty"`
	At         time.Time        `json:"at"`
}
