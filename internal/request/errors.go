package request

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound means the remote confirmed the id is invalid or expired.
	ErrNotFound = errors.New("not found")

	ErrNoRankedPlayers = errors.New("no ranked players")
)

// RateLimitedError asks the caller to retry the identical unit after RetryAfter.
type RateLimitedError struct {
	RetryAfter time.Duration
	// Scope is the limit that was hit, as reported by the remote ("application", "method", "service").
	Scope string
}

func (e *RateLimitedError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("rate limited (%s), retry after %s", e.Scope, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// TransientError wraps failures that may succeed when retried: timeouts,
// dropped connections and 5xx responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeRateLimited
	OutcomeTransient
	OutcomeNoRankedPlayers
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeRateLimited:
		return "rate-limited"
	case OutcomeTransient:
		return "transient"
	case OutcomeNoRankedPlayers:
		return "no-ranked-players"
	default:
		return "fatal"
	}
}

// Classify maps the error returned by Execute to the action the collector takes.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var rl *RateLimitedError
	var te *TransientError
	switch {
	case errors.As(err, &rl):
		return OutcomeRateLimited
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.As(err, &te):
		return OutcomeTransient
	case errors.Is(err, ErrNoRankedPlayers):
		return OutcomeNoRankedPlayers
	default:
		return OutcomeFatal
	}
}
