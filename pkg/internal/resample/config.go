package resample

import (
	"math"
	"time"
)

const (
	// DefaultTargetHz is the rate the wearable streams are aligned to.
	DefaultTargetHz = 125
	// DefaultDuration is the length of one inference window.
	DefaultDuration = 2 * time.Second
)

// Config describes a target grid: TargetHz samples per second over Duration.
type Config struct {
	TargetHz int
	Duration time.Duration
}

// DefaultConfig returns the 125 Hz × 2 s grid.
func DefaultConfig() Config {
	return Config{TargetHz: DefaultTargetHz, Duration: DefaultDuration}
}

// Samples returns M = TargetHz × seconds, rounded to the nearest integer.
func (c Config) Samples() int {
	return gridSize(c.TargetHz, c.Duration)
}

// Align resamples in onto the grid described by c.
func (c Config) Align(in []TimestampedSample) []TimestampedSample {
	return Align(in, c.TargetHz, c.Duration)
}

func gridSize(targetHz int, duration time.Duration) int {
	if targetHz <= 0 || duration <= 0 {
		return 0
	}
	return int(math.Round(float64(targetHz) * duration.Seconds()))
}
