// Package persistence appends finished tasting sessions to the three CSV
// files read by the analysis tooling, then hands the session to optional
// exporters.
package persistence

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

// File names inside the data directory.
const (
	EEGFile       = "eeg_tasting_data.csv"
	HeartRateFile = "heart_rate_data.csv"
	EDAFile       = "eda_data.csv"
)

var (
	eegHeader = []string{"sample", "ch1", "ch2", "ch3", "ch4", "ch5", "ch6", "experiment", "subject", "rating"}
	auxHeader = []string{"experiment", "timestamp", "value", "subject", "rating"}
)

const (
	eegSampleColumn     = 0
	eegExperimentColumn = 7
)

// Record is one completed collection window.
type Record struct {
	SessionID  string
	Subject    string
	Rating     int
	SampleRate float64
	StartedAt  time.Time
	EEG        []types.EEGSample
	HeartRate  []types.TimestampedSample
	EDA        []types.TimestampedSample

	// Aligned streams are optional and only consumed by exporters.
	AlignedHz        int
	AlignedHeartRate []types.TimestampedSample
	AlignedEDA       []types.TimestampedSample
}

// Result describes what SaveSession appended.
type Result struct {
	Experiment    int
	FirstSample   int64
	LastSample    int64
	EEGRows       int
	HeartRateRows int
	EDARows       int
	Exports       []string
}

// Exporter writes a secondary artifact for a saved session.
type Exporter interface {
	Name() string
	Export(ctx context.Context, rec Record, res Result) (string, error)
}

// Store owns the data directory.
type Store struct {
	componentMetadata types.ComponentMetadata
	dir               string
	exporters         []Exporter
	meter             *meter.Meter

	// mu serialises numbering and appends.
	mu sync.Mutex

	loggers     []types.Logger
	loggersLock sync.Mutex
}

// NewStore returns a store rooted at dir. The directory is created on first save.
func NewStore(dir string, options ...types.Option[*Store]) *Store {
	s := &Store{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "CSV_STORE",
		},
		dir: dir,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Files lists the managed file names.
func (s *Store) Files() []string {
	return []string{EEGFile, HeartRateFile, EDAFile}
}

// Path returns the absolute location of a managed file.
func (s *Store) Path(name string) (string, error) {
	if !utils.Contains(s.Files(), name) {
		return "", types.NewError(types.KindValidation, "path", errUnknownFile(name))
	}
	return filepath.Join(s.dir, name), nil
}

// GetComponentMetadata returns the store's metadata.
func (s *Store) GetComponentMetadata() types.ComponentMetadata {
	return s.componentMetadata
}

// NotifyLoggers emits a log entry to all configured loggers.
func (s *Store) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	s.loggersLock.Lock()
	loggers := append([]types.Logger(nil), s.loggers...)
	s.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
