package timecheck

import (
	"errors"
	"time"
)

var (
	ErrFutureTimestamp = errors.New("timestamp is ahead of local clock")
	ErrStaleTimestamp  = errors.New("timestamp is too old")
)

// Config of the acceptance window for observed timestamps.
type Config struct {
	// MaxDrift is how far ahead of the local clock a timestamp may be.
	MaxDrift time.Duration
	// MaxAge is how far behind the local clock a timestamp may be.
	MaxAge time.Duration
}

// DefaultConfig returns the production window.
func DefaultConfig() Config {
	return Config{
		MaxDrift: 10 * time.Minute,
		MaxAge:   24 * time.Hour,
	}
}

// Checker validates timestamps against the local clock.
type Checker struct {
	config Config
}

// New validator which checks timestamp drift and staleness.
func New(config Config) *Checker {
	return &Checker{
		config: config,
	}
}

// Validate returns an error if the timestamp at (unix seconds) falls outside
// the acceptance window around now.
func (v *Checker) Validate(at, now int64) error {
	if at > now+int64(v.config.MaxDrift/time.Second) {
		return ErrFutureTimestamp
	}
	if at < now-int64(v.config.MaxAge/time.Second) {
		return ErrStaleTimestamp
	}
	return nil
}
