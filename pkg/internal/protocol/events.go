package protocol

import (
	"github.com/joeydtaylor/foodback/pkg/internal/persistence"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// EventType labels a user-facing protocol event.
type EventType int

const (
	EventError EventType = iota
	EventStageChanged
	EventFinished
	EventSaved
	EventPrediction
)

func (t EventType) String() string {
	switch t {
	case EventError:
		return "error"
	case EventStageChanged:
		return "stage_changed"
	case EventFinished:
		return "finished"
	case EventSaved:
		return "saved"
	case EventPrediction:
		return "prediction"
	default:
		return "unknown"
	}
}

// Event is delivered on Machine.Events.
type Event struct {
	Type       EventType
	SessionID  string
	Stage      types.Stage
	Kind       types.ErrorKind
	Message    string
	Err        error
	Prediction *types.Prediction
	Saved      *persistence.Result
}

func (m *Machine) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.droppedEvents.Add(1)
		m.NotifyLoggers(types.WarnLevel, "Event queue full, dropping event",
			"component", m.GetComponentMetadata(), "event", "Emit", "type", ev.Type.String())
	}
}

// fail surfaces err as an error event and logs it.
func (m *Machine) fail(sessionID string, stage types.Stage, err error) {
	kind := types.KindOf(err)
	m.NotifyLoggers(types.ErrorLevel, "Protocol error",
		"component", m.GetComponentMetadata(), "event", "Error", "result", "FAILURE",
		"session_id", sessionID, "stage", stage, "kind", string(kind), "error", err)
	m.emit(Event{Type: EventError, SessionID: sessionID, Stage: stage, Kind: kind, Message: err.Error(), Err: err})
}
