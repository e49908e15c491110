package httpserver

import (
	"crypto/tls"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// WithLogger attaches loggers.
func WithLogger(loggers ...types.Logger) types.Option[*ControlServer] {
	return func(s *ControlServer) {
		s.loggersLock.Lock()
		s.loggers = append(s.loggers, loggers...)
		s.loggersLock.Unlock()
	}
}

// WithComponentMetadata sets the name and, when non-empty, the ID.
func WithComponentMetadata(name, id string) types.Option[*ControlServer] {
	return func(s *ControlServer) {
		s.componentMetadata.Name = name
		if id != "" {
			s.componentMetadata.ID = id
		}
	}
}

// WithAddress sets the listen address, e.g. ":8088".
func WithAddress(address string) types.Option[*ControlServer] {
	return func(s *ControlServer) {
		if address != "" {
			s.address = address
		}
	}
}

// WithHeader adds a response header to every reply.
func WithHeader(key, value string) types.Option[*ControlServer] {
	return func(s *ControlServer) {
		s.headers[key] = value
	}
}

// WithTimeout sets the read and write timeouts.
func WithTimeout(timeout time.Duration) types.Option[*ControlServer] {
	return func(s *ControlServer) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithTLSConfig serves HTTPS using the certificates in cfg.
func WithTLSConfig(cfg *tls.Config) types.Option[*ControlServer] {
	return func(s *ControlServer) {
		s.tlsConfig = cfg
	}
}
