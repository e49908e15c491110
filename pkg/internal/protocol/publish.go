package protocol

import (
	"context"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// publishTimeout bounds one outcome publish.
const publishTimeout = 5 * time.Second

// publish hands ev to the publisher off the caller's goroutine. Failures are logged only.
func (m *Machine) publish(ev types.SessionEvent) {
	if m.publisher == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), publishTimeout)
		defer cancel()
		if err := m.publisher.Publish(ctx, ev); err != nil {
			m.NotifyLoggers(types.WarnLevel, "Failed to publish session event",
				"component", m.GetComponentMetadata(), "event", "Publish", "result", "FAILURE",
				"session_id", ev.SessionID, "kind", string(ev.Kind), "error", err)
			return
		}
		m.NotifyLoggers(types.DebugLevel, "Session event published",
			"component", m.GetComponentMetadata(), "event", "Publish", "result", "SUCCESS",
			"session_id", ev.SessionID, "kind", string(ev.Kind))
	}()
}
