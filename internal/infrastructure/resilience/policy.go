package resilience

import "time"

// Config bounds retries and the circuit breaker around one outbound dependency.
// AttemptTimeout, when positive, caps every single attempt.
type Config struct {
	AttemptTimeout time.Duration

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// DefaultConfig is tuned for a hosted chat-completion endpoint: a minute per
// call, three attempts, and a breaker that opens when most recent calls fail.
func DefaultConfig() Config {
	return Config{
		AttemptTimeout:          60 * time.Second,
		RetryMaxAttempts:        3,
		RetryInitialBackoff:     500 * time.Millisecond,
		RetryMaxBackoff:         4 * time.Second,
		RetryMultiplier:         2.0,
		BreakerEnabled:          true,
		BreakerMinRequests:      5,
		BreakerFailureRatio:     0.6,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 1,
	}
}

// withDefaults fills unset or out-of-range fields from DefaultConfig.
// BreakerEnabled and a zero AttemptTimeout are taken as given.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	c.AttemptTimeout = max(c.AttemptTimeout, 0)
	c.RetryMaxAttempts = positiveOr(c.RetryMaxAttempts, def.RetryMaxAttempts)
	c.RetryInitialBackoff = positiveOr(c.RetryInitialBackoff, def.RetryInitialBackoff)
	c.RetryMaxBackoff = max(positiveOr(c.RetryMaxBackoff, def.RetryMaxBackoff), c.RetryInitialBackoff)
	if c.RetryMultiplier < 1 {
		c.RetryMultiplier = def.RetryMultiplier
	}

	c.BreakerMinRequests = positiveOr(c.BreakerMinRequests, def.BreakerMinRequests)
	c.BreakerOpenTimeout = positiveOr(c.BreakerOpenTimeout, def.BreakerOpenTimeout)
	c.BreakerHalfOpenMaxCalls = positiveOr(c.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls)
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	return c
}

func positiveOr[T int | uint32 | time.Duration](value, fallback T) T {
	if value > 0 {
		return value
	}
	return fallback
}
