package worker

import (
	"math"
	"time"

	"bikeservice/internal/config"
)

const (
	defaultLookupDelay   = time.Second
	defaultLookupBackoff = 2
)

// RetryPolicy spaces out gateway lookups for a payment that is still pending.
// Each unresolved lookup multiplies the wait by BackoffFactor until MaxDelay.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// RetryPolicyFromConfig builds the lookup schedule from the worker settings.
func RetryPolicyFromConfig(cfg config.WorkerConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:   cfg.MaxRetries,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
	}
}

// GivesUp reports whether a payment task should be failed after this attempt.
func (r RetryPolicy) GivesUp(attempt int) bool {
	return attempt >= r.MaxRetries
}

// NextDelay returns how long to wait before the next lookup after the given
// failed attempt (1-based).
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	attempt = max(attempt, 1)
	base := r.InitialDelay
	if base <= 0 {
		base = defaultLookupDelay
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = defaultLookupBackoff
	}

	wait := time.Duration(float64(base) * math.Pow(factor, float64(attempt-1)))
	switch {
	case r.MaxDelay > 0 && wait > r.MaxDelay:
		return r.MaxDelay
	case wait <= 0:
		return defaultLookupDelay
	}
	return wait
}
