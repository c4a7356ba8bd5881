package ownerdetails

import (
	"errors"
	"fmt"
	"time"
)

// ErrLocatorTimeout is matched by errors.Is for every *LocatorTimeoutError.
var ErrLocatorTimeout = errors.New("locator timeout")

// ErrPetNotFound is returned by row-scoped operations when no pet row has the requested name.
var ErrPetNotFound = errors.New("pet not found")

// LocatorTimeoutError is returned when an element never reached the required state.
type LocatorTimeoutError struct {
	Locator string
	Timeout time.Duration

	// Err is the last error seen while resolving the locator, if any.
	Err error
}

func (e *LocatorTimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("locator %s: timed out after %v: %v", e.Locator, e.Timeout, e.Err)
	}
	return fmt.Sprintf("locator %s: timed out after %v", e.Locator, e.Timeout)
}

func (e *LocatorTimeoutError) Is(target error) bool {
	return target == ErrLocatorTimeout
}

func (e *LocatorTimeoutError) Unwrap() error {
	return e.Err
}

// AssertionError is returned by the Verify and Expect methods when an observed value differs from the expected one.
type AssertionError struct {
	Check    string
	Expected any
	Actual   any

	Err error
}

func (e *AssertionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: expected %v, got %v: %v", e.Check, e.Expected, e.Actual, e.Err)
	}
	return fmt.Sprintf("%s: expected %v, got %v", e.Check, e.Expected, e.Actual)
}

func (e *AssertionError) Unwrap() error {
	return e.Err
}
