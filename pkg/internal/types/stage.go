package types

import "time"

// Stage is a step of the tasting protocol.
type Stage int

const (
	StageIdle Stage = iota
	StagePreparation
	StageRecording
	StageFinished
	StageAskingRating
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "IDLE"
	case StagePreparation:
		return "PREPARATION"
	case StageRecording:
		return "RECORDING"
	case StageFinished:
		return "FINISHED"
	case StageAskingRating:
		return "ASKING_RATING"
	case StageDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Flow selects what happens to a completed recording window.
type Flow int

const (
	// FlowCollection persists the window together with a subject rating.
	FlowCollection Flow = iota
	// FlowInference classifies the window and publishes the predicted class.
	FlowInference
)

func (f Flow) String() string {
	if f == FlowInference {
		return "inference"
	}
	return "collection"
}

// ParseFlow maps "inference"/"home" to FlowInference; anything else is FlowCollection.
func ParseFlow(s string) Flow {
	switch s {
	case "inference", "home", "evaluation":
		return FlowInference
	default:
		return FlowCollection
	}
}

// ConnectivityState is the device availability published by the health monitor.
type ConnectivityState struct {
	EEGConnected   bool      `json:"eeg_connected"`
	WatchConnected bool      `json:"watch_connected"`
	CheckedAt      time.Time `json:"checked_at"`
}

// Ready reports whether both devices are available.
func (c ConnectivityState) Ready() bool {
	return c.EEGConnected && c.WatchConnected
}

// ProtocolSnapshot is a read-only view of the protocol state machine.
type ProtocolSnapshot struct {
	SessionID    string
	Subject      string
	Stage        Stage
	Flow         Flow
	Rating       *int
	Prediction   *Prediction
	Connectivity ConnectivityState
	Buffered     map[Stream]int
}
