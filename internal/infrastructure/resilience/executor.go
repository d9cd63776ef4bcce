package resilience

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrorClassification tells the executor what a failed attempt means.
// Retryable errors get another attempt; RecordFailure counts against the
// breaker.
type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// StateListener is told about breaker transitions, e.g. to export a gauge.
type StateListener func(operation string, from, to gobreaker.State)

// Executor wraps calls to one dependency. Breakers are created lazily, one
// per operation name, and shared by every caller of that operation.
type Executor struct {
	cfg      Config
	logger   *slog.Logger
	listener StateListener

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

type Option func(*Executor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithStateListener(listener StateListener) Option {
	return func(e *Executor) {
		e.listener = listener
	}
}

func NewExecutor(cfg Config, opts ...Option) *Executor {
	e := &Executor{
		cfg:      cfg.withDefaults(),
		logger:   slog.Default(),
		breakers: map[string]*gobreaker.CircuitBreaker[struct{}]{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs fn with bounded retries. With the breaker enabled the whole
// retry sequence counts as one breaker request, so a single flaky call does
// not trip it.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classify ErrorClassifier) error {
	if fn == nil {
		return errors.New("resilience: operation callback is nil")
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	if classify == nil {
		classify = recordAll
	}

	if !e.cfg.BreakerEnabled {
		return e.retry(ctx, operation, fn, classify)
	}
	_, err := e.breaker(operation).Execute(func() (struct{}, error) {
		err := e.retry(ctx, operation, fn, classify)
		if err != nil && !classify(err).RecordFailure {
			return struct{}{}, unrecordedError{err}
		}
		return struct{}{}, err
	})
	var unrecorded unrecordedError
	if errors.As(err, &unrecorded) {
		return unrecorded.err
	}
	return err
}

// unrecordedError carries a failure the breaker must count as a success. The
// decision is made per call, so breakers never hold on to a caller's
// classifier.
type unrecordedError struct {
	err error
}

func (e unrecordedError) Error() string { return e.err.Error() }

func (e unrecordedError) Unwrap() error { return e.err }

func (e *Executor) retry(ctx context.Context, operation string, fn func(context.Context) error, classify ErrorClassifier) error {
	delays := e.backoff()
	var lastErr error

	for attempt := 1; attempt <= e.cfg.RetryMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = e.once(ctx, fn)
		if lastErr == nil {
			return nil
		}
		// A failure after the caller gave up is never retried.
		if attempt == e.cfg.RetryMaxAttempts || ctx.Err() != nil || !classify(lastErr).Retryable {
			break
		}

		wait := delays()
		e.logger.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", e.cfg.RetryMaxAttempts,
			"backoff_ms", wait.Milliseconds(),
			"error", lastErr,
		)
		if !sleep(ctx, wait) {
			break
		}
	}
	return lastErr
}

// backoff returns a generator of exponentially growing, capped delays.
func (e *Executor) backoff() func() time.Duration {
	next := e.cfg.RetryInitialBackoff
	return func() time.Duration {
		current := min(next, e.cfg.RetryMaxBackoff)
		next = time.Duration(float64(next) * e.cfg.RetryMultiplier)
		return current
	}
}

func (e *Executor) once(ctx context.Context, fn func(context.Context) error) error {
	if e.cfg.AttemptTimeout == 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

// sleep waits for d and reports false when ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Executor) breaker(operation string) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[operation]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](e.breakerSettings(operation))
	e.breakers[operation] = cb
	return cb
}

func (e *Executor) breakerSettings(operation string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= e.cfg.BreakerMinRequests &&
				float64(counts.TotalFailures) >= e.cfg.BreakerFailureRatio*float64(counts.Requests)
		},
		IsSuccessful: func(err error) bool {
			var unrecorded unrecordedError
			return err == nil || errors.As(err, &unrecorded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("circuit_breaker_state_change",
				"operation", name,
				"from", from.String(),
				"to", to.String(),
			)
			if e.listener != nil {
				e.listener(name, from, to)
			}
		},
	}
}

// IsCircuitOpen reports whether err came from a breaker refusing the call.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func recordAll(error) ErrorClassification {
	return ErrorClassification{RecordFailure: true}
}
