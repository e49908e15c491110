package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

const maxBodyBytes = 4 << 10

type snapshotResponse struct {
	SessionID    string                  `json:"session_id,omitempty"`
	Subject      string                  `json:"subject,omitempty"`
	Stage        string                  `json:"stage"`
	Flow         string                  `json:"flow"`
	Rating       *int                    `json:"rating,omitempty"`
	Prediction   *types.Prediction       `json:"prediction,omitempty"`
	Connectivity types.ConnectivityState `json:"connectivity"`
	Buffered     map[types.Stream]int    `json:"buffered,omitempty"`
}

type subjectRequest struct {
	Subject string `json:"subject"`
}

type ratingRequest struct {
	Rating json.RawMessage `json:"rating"`
}

type errorResponse struct {
	Error string          `json:"error"`
	Kind  types.ErrorKind `json:"kind,omitempty"`
}

func toResponse(snap types.ProtocolSnapshot) snapshotResponse {
	return snapshotResponse{
		SessionID:    snap.SessionID,
		Subject:      snap.Subject,
		Stage:        snap.Stage.String(),
		Flow:         snap.Flow.String(),
		Rating:       snap.Rating,
		Prediction:   snap.Prediction,
		Connectivity: snap.Connectivity,
		Buffered:     snap.Buffered,
	}
}

func (s *ControlServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.controller.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"uptime_s":     int(time.Since(s.started).Seconds()),
		"ready":        snap.Connectivity.Ready(),
		"connectivity": snap.Connectivity,
	})
}

func (s *ControlServer) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, toResponse(s.controller.Snapshot()))
}

func (s *ControlServer) handleSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.controller.SetSubject(req.Subject); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(s.controller.Snapshot()))
}

func (s *ControlServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Start(r.Context()); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, toResponse(s.controller.Snapshot()))
}

// handleRating accepts the rating as a JSON string or number.
func (s *ControlServer) handleRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	text := string(req.Rating)
	var quoted string
	if json.Unmarshal(req.Rating, &quoted) == nil {
		text = quoted
	}
	if err := s.controller.SetRating(text); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(s.controller.Snapshot()))
}

func (s *ControlServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.SubmitRating(r.Context()); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(s.controller.Snapshot()))
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func statusFor(err error) int {
	switch types.KindOf(err) {
	case types.KindValidation:
		return http.StatusConflict
	case types.KindConnectivity:
		return http.StatusServiceUnavailable
	case types.KindEmptyBuffer:
		return http.StatusUnprocessableEntity
	case types.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *ControlServer) defaultHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for key, val := range s.headers {
			w.Header().Set(key, val)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *ControlServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.NotifyLoggers(types.WarnLevel, "Response encoding failed",
			"component", s.componentMetadata, "event", "WriteJSON", "result", "FAILURE", "error", err)
	}
}

func (s *ControlServer) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Kind: types.KindOf(err)})
}

func (s *ControlServer) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	level := types.DebugLevel
	if p.StatusCode >= http.StatusInternalServerError {
		level = types.WarnLevel
	}
	s.NotifyLoggers(level, "Control request",
		"component", s.componentMetadata, "event", "Request",
		"method", p.Request.Method, "path", p.URL.Path, "status", p.StatusCode, "bytes", p.Size)
}
