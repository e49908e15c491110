// Package httpserver exposes the protocol machine to an operator console
// over a small JSON API.
package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

const (
	DefaultAddress = ":8088"
	DefaultTimeout = 30 * time.Second
)

// Controller is the slice of the protocol machine driven over HTTP.
type Controller interface {
	Snapshot() types.ProtocolSnapshot
	SetSubject(name string) error
	Start(ctx context.Context) error
	SetRating(text string) error
	SubmitRating(ctx context.Context) error
}

// ControlServer serves the control API for one Controller.
type ControlServer struct {
	componentMetadata types.ComponentMetadata
	controller        Controller

	address   string
	headers   map[string]string
	timeout   time.Duration
	tlsConfig *tls.Config
	started   time.Time

	server   *http.Server
	serverMu sync.Mutex

	loggers     []types.Logger
	loggersLock sync.Mutex
}

// NewControlServer builds a server for controller with defaults applied.
func NewControlServer(controller Controller, options ...types.Option[*ControlServer]) *ControlServer {
	s := &ControlServer{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "HTTP_SERVER",
		},
		controller: controller,
		address:    DefaultAddress,
		headers:    make(map[string]string),
		timeout:    DefaultTimeout,
		started:    time.Now(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// GetComponentMetadata returns the server's metadata.
func (s *ControlServer) GetComponentMetadata() types.ComponentMetadata {
	return s.componentMetadata
}

// Address is the configured listen address.
func (s *ControlServer) Address() string { return s.address }

// Handler returns the routed API wrapped in access logging and panic recovery.
func (s *ControlServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/session", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/session/subject", s.handleSubject).Methods(http.MethodPut)
	r.HandleFunc("/session/start", s.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/session/rating", s.handleRating).Methods(http.MethodPut)
	r.HandleFunc("/session/submit", s.handleSubmit).Methods(http.MethodPost)
	r.Use(s.defaultHeaders)

	recovered := handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(r)
	return handlers.CustomLoggingHandler(io.Discard, recovered, s.logRequest)
}

// Serve listens until ctx ends or the server fails.
func (s *ControlServer) Serve(ctx context.Context) error {
	s.serverMu.Lock()
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.Handler(),
		ReadTimeout:  s.timeout,
		WriteTimeout: s.timeout,
		TLSConfig:    s.tlsConfig,
	}
	srv := s.server
	s.serverMu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.NotifyLoggers(types.InfoLevel, "Control server listening",
			"component", s.componentMetadata, "event", "Serve", "address", s.address, "tls", s.tlsConfig != nil)
		if s.tlsConfig != nil {
			errChan <- srv.ListenAndServeTLS("", "")
			return
		}
		errChan <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.NotifyLoggers(types.InfoLevel, "Control server stopped",
			"component", s.componentMetadata, "event", "Serve")
		return ctx.Err()
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.NotifyLoggers(types.ErrorLevel, "Control server failed",
				"component", s.componentMetadata, "event", "Serve", "result", "FAILURE", "error", err)
			return err
		}
		return nil
	}
}

// NotifyLoggers emits a log entry to all configured loggers.
func (s *ControlServer) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	s.loggersLock.Lock()
	loggers := append([]types.Logger(nil), s.loggers...)
	s.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
