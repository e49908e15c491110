package simulator

import (
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// WithEEGLogger attaches loggers to an EEGServer.
func WithEEGLogger(loggers ...types.Logger) types.Option[*EEGServer] {
	return func(s *EEGServer) {
		s.loggersLock.Lock()
		s.loggers = append(s.loggers, loggers...)
		s.loggersLock.Unlock()
	}
}

// WithSampleRate sets the EEG rate in Hz.
func WithSampleRate(hz int) types.Option[*EEGServer] {
	return func(s *EEGServer) {
		if hz > 0 {
			s.rate = hz
		}
	}
}

// WithFrameInterval sets how often a frame is written.
func WithFrameInterval(d time.Duration) types.Option[*EEGServer] {
	return func(s *EEGServer) {
		if d > 0 {
			s.frameInterval = d
		}
	}
}

// WithAmplitude sets the sinusoid amplitude in microvolts.
func WithAmplitude(a float64) types.Option[*EEGServer] {
	return func(s *EEGServer) { s.amplitude = a }
}

// WithFrameCodec selects the wire format.
func WithFrameCodec(c codec.FrameCodec) types.Option[*EEGServer] {
	return func(s *EEGServer) {
		if c != nil {
			s.frames = c
		}
	}
}

// WithWatchLogger attaches loggers to a Watch.
func WithWatchLogger(loggers ...types.Logger) types.Option[*Watch] {
	return func(w *Watch) {
		w.loggersLock.Lock()
		w.loggers = append(w.loggers, loggers...)
		w.loggersLock.Unlock()
	}
}

// WithWindows sets how long the watch records per start command.
func WithWindows(collection, inference time.Duration) types.Option[*Watch] {
	return func(w *Watch) {
		if collection > 0 {
			w.collectionWindow = collection
		}
		if inference > 0 {
			w.inferenceWindow = inference
		}
	}
}

// WithSensorRates sets the heart rate and EDA sampling rates in Hz.
func WithSensorRates(hrHz, edaHz int) types.Option[*Watch] {
	return func(w *Watch) {
		if hrHz > 0 {
			w.hrHz = hrHz
		}
		if edaHz > 0 {
			w.edaHz = edaHz
		}
	}
}
