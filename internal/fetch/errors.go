package fetch

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoFlightData means the search produced no usable result at all.
	ErrNoFlightData = errors.New("no flight data")
	// ErrNoMatchingFlights means flights were found but none satisfy the
	// user's time constraint.
	ErrNoMatchingFlights = errors.New("no flights match the time constraint")
	ErrRetriesExhausted  = errors.New("fetch retries exhausted")
	ErrPoolStopped       = errors.New("fetch pool stopped")
)

// TransientError marks a failure worth retrying: network errors, timeouts,
// upstream 5xx answers and empty pages.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient fetch error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func Transient(err error) error {
	return &TransientError{Err: err}
}

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTransient
	OutcomeNoFlightData
	OutcomeNoMatchingFlights
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTransient:
		return "transient"
	case OutcomeNoFlightData:
		return "no_flight_data"
	case OutcomeNoMatchingFlights:
		return "no_matching_flights"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether a retry cannot change the outcome.
func (o Outcome) Terminal() bool {
	return o == OutcomeNoFlightData || o == OutcomeNoMatchingFlights || o == OutcomeCancelled
}

// Classify maps an error returned by a Fetcher to an Outcome. Errors that
// carry no classification are treated as transient.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNoFlightData):
		return OutcomeNoFlightData
	case errors.Is(err, ErrNoMatchingFlights):
		return OutcomeNoMatchingFlights
	case errors.Is(err, context.Canceled):
		return OutcomeCancelled
	}
	return OutcomeTransient
}
