// Package retry provides bounded exponential backoff for startup
// dependencies such as Postgres and the Kafka brokers.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrContextCanceled    = errors.New("context canceled during retry")
)

// Config bounds the backoff schedule. MaxRetries counts retries after the
// initial attempt, so MaxRetries=0 runs the operation exactly once.
type Config struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// JitterFactor in [0,1] randomizes each interval by +-factor
	JitterFactor float64
}

// DefaultConfig backs off 1s, 2s, 4s, 8s, 16s, capped at 30s.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      5,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Operation is the retried function. It must be safe to call repeatedly.
type Operation func(ctx context.Context) error

// PermanentError stops the retry loop. Wrap errors that will not heal with
// more attempts, such as a bad DSN or bad credentials.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not retryable. Nil passes through unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Result reports how the retry loop ended. Err is nil on success;
// LastError always carries the most recent operation error.
type Result struct {
	Err           error
	Attempts      int
	TotalDuration time.Duration
	LastError     error
}

// Retrier runs operations under one backoff schedule.
type Retrier struct {
	config *Config
}

// New normalizes cfg and returns a Retrier. Nil cfg means DefaultConfig;
// zero intervals and factors fall back to the defaults as well.
func New(cfg *Config) *Retrier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 1 * time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFactor < 0 {
		cfg.JitterFactor = 0
	}
	if cfg.JitterFactor > 1 {
		cfg.JitterFactor = 1
	}
	return &Retrier{config: cfg}
}

// Do runs op until it succeeds, returns a permanent error, exhausts the
// schedule, or the context ends. The context is checked before every attempt
// and while waiting between attempts.
func (r *Retrier) Do(ctx context.Context, op Operation) *Result {
	started := time.Now()
	res := &Result{}

	finish := func(err error) *Result {
		res.Err = err
		res.TotalDuration = time.Since(started)
		return res
	}

	for attempt := 0; ; attempt++ {
		res.Attempts = attempt + 1

		if ctx.Err() != nil {
			return finish(ErrContextCanceled)
		}

		err := op(ctx)
		if err == nil {
			return finish(nil)
		}
		res.LastError = err

		var perm *PermanentError
		if errors.As(err, &perm) {
			res.LastError = perm.Err
			return finish(perm.Err)
		}

		if attempt == r.config.MaxRetries {
			return finish(ErrMaxRetriesExceeded)
		}

		select {
		case <-ctx.Done():
			return finish(ErrContextCanceled)
		case <-time.After(r.calculateInterval(attempt)):
		}
	}
}

// calculateInterval grows the wait geometrically, jitters it, and caps it
// at MaxInterval.
func (r *Retrier) calculateInterval(attempt int) time.Duration {
	wait := float64(r.config.InitialInterval) * math.Pow(r.config.Multiplier, float64(attempt))

	if f := r.config.JitterFactor; f > 0 {
		wait += wait * f * (rand.Float64()*2 - 1)
	}
	if wait > float64(r.config.MaxInterval) {
		wait = float64(r.config.MaxInterval)
	}
	if wait < 0 {
		wait = float64(r.config.InitialInterval)
	}
	return time.Duration(wait)
}

// Do runs op under a one-off Retrier built from cfg.
func Do(ctx context.Context, cfg *Config, op Operation) *Result {
	return New(cfg).Do(ctx, op)
}
