// Package session owns the lifetime of one acquisition setup: the EEG
// producer, the wearable link, the health monitor and the protocol machine
// are started together by Open and released together by Close.
package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/protocol"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

// Producer is a background producer with explicit start and stop, e.g. the headset.
type Producer interface {
	Start(ctx context.Context) error
	Stop() error
}

// Runner blocks until ctx ends, e.g. the health monitor.
type Runner interface {
	Run(ctx context.Context)
}

// Parts are the components a session owns. Nil parts are skipped.
type Parts struct {
	EEG            Producer
	Wearable       io.Closer
	Health         Runner
	Machine        *protocol.Machine
	Meter          *meter.Meter
	ReportInterval time.Duration
	// Closers are released last, in order (publishers, classifiers).
	Closers []io.Closer
}

// Session is an opened set of Parts.
type Session struct {
	componentMetadata types.ComponentMetadata
	parts             Parts

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error

	loggers     []types.Logger
	loggersLock sync.Mutex
}

// Open starts the producers and background loops. On error everything
// already started is released.
func Open(ctx context.Context, parts Parts, options ...types.Option[*Session]) (*Session, error) {
	if parts.Machine == nil {
		return nil, types.NewError(types.KindValidation, "Open", errors.New("session: a protocol machine is required"))
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "SESSION",
		},
		parts:  parts,
		cancel: cancel,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	if parts.EEG != nil {
		if err := parts.EEG.Start(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}
	if parts.Health != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			parts.Health.Run(ctx)
		}()
	}
	if parts.Meter != nil && parts.ReportInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			parts.Meter.Monitor(ctx, parts.ReportInterval)
		}()
	}

	s.NotifyLoggers(types.InfoLevel, "Session opened",
		"component", s.componentMetadata, "event", "Open", "result", "SUCCESS",
		"flow", parts.Machine.Config().Flow.String())
	return s, nil
}

// Machine returns the protocol machine.
func (s *Session) Machine() *protocol.Machine { return s.parts.Machine }

// GetComponentMetadata returns the session's metadata.
func (s *Session) GetComponentMetadata() types.ComponentMetadata { return s.componentMetadata }

// Close cancels the stage task and the monitor, stops the EEG producer and
// closes the wearable transport. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		s.cancel()
		if s.parts.Machine != nil {
			errs = append(errs, s.parts.Machine.Close())
		}
		if s.parts.EEG != nil {
			errs = append(errs, s.parts.EEG.Stop())
		}
		if s.parts.Wearable != nil {
			errs = append(errs, s.parts.Wearable.Close())
		}
		s.wg.Wait()
		for _, c := range s.parts.Closers {
			if c != nil {
				errs = append(errs, c.Close())
			}
		}
		s.closeErr = errors.Join(errs...)

		if s.parts.Meter != nil {
			s.parts.Meter.Report(context.Background())
		}
		s.NotifyLoggers(types.InfoLevel, "Session closed",
			"component", s.componentMetadata, "event", "Close", "error", s.closeErr)
	})
	return s.closeErr
}

// NotifyLoggers emits a log entry to all configured loggers.
func (s *Session) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	s.loggersLock.Lock()
	loggers := append([]types.Logger(nil), s.loggers...)
	s.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}

// WithLogger attaches loggers.
func WithLogger(loggers ...types.Logger) types.Option[*Session] {
	return func(s *Session) {
		s.loggersLock.Lock()
		s.loggers = append(s.loggers, loggers...)
		s.loggersLock.Unlock()
	}
}
