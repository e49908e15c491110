package protocol

import (
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/resample"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

const (
	DefaultPreparation         = 5 * time.Second
	DefaultCollectionRecording = 10 * time.Second
	DefaultInferenceRecording  = 2 * time.Second
	DefaultSettleDelay         = time.Second
	DefaultEEGHz               = 500
	DefaultMaxRating           = 4
	DefaultEventBuffer         = 32

	// SubjectPattern is the accepted subject name format, e.g. SteveRogers.
	SubjectPattern = `^[A-Z][A-Za-z0-9]+$`
)

// Config holds the timings and limits of one protocol flow.
type Config struct {
	Flow        types.Flow
	Preparation time.Duration
	Recording   time.Duration
	// SettleDelay is how long the inference flow waits for the wearable batch after Recording.
	SettleDelay time.Duration
	EEGHz       int
	// Align is the grid the wearable streams are resampled onto for inference.
	// Collection aligns over its whole recording instead.
	Align       resample.Config
	MaxRating   int
	EventBuffer int
}

// DefaultConfig returns the observed protocol timings for flow.
func DefaultConfig(flow types.Flow) Config {
	cfg := Config{
		Flow:        flow,
		Preparation: DefaultPreparation,
		Recording:   DefaultCollectionRecording,
		SettleDelay: DefaultSettleDelay,
		EEGHz:       DefaultEEGHz,
		Align:       resample.DefaultConfig(),
		MaxRating:   DefaultMaxRating,
		EventBuffer: DefaultEventBuffer,
	}
	if flow == types.FlowInference {
		cfg.Recording = DefaultInferenceRecording
	}
	return cfg
}

// EEGBudget is the number of EEG records one recording window accepts.
func (c Config) EEGBudget() int64 {
	return int64(c.Recording.Seconds() * float64(c.EEGHz))
}

// collectionAlign is the grid used for the aligned export of a collection window.
func (c Config) collectionAlign() resample.Config {
	return resample.Config{TargetHz: c.Align.TargetHz, Duration: c.Recording}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig(c.Flow)
	if c.Preparation < 0 {
		c.Preparation = 0
	}
	if c.Recording <= 0 {
		c.Recording = d.Recording
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.EEGHz <= 0 {
		c.EEGHz = d.EEGHz
	}
	if c.Align.TargetHz <= 0 || c.Align.Duration <= 0 {
		c.Align = d.Align
	}
	if c.MaxRating <= 0 {
		c.MaxRating = d.MaxRating
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = d.EventBuffer
	}
	return c
}
