package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure class. Every typed error below satisfies
// errors.Is against exactly one of these.
var (
	ErrNoExpectationFound = errors.New("no expectation found")
	ErrArgumentMismatch   = errors.New("argument mismatch")
	ErrOverCalled         = errors.New("called more times than expected")
	ErrExplicitFailure    = errors.New("configured failure")
	ErrUnderCalled        = errors.New("called fewer times than expected")
	ErrResultType         = errors.New("unexpected result type")
)

// ExplicitFailureError is returned when the matched expectation was configured
// to fail. It unwraps to both ErrExplicitFailure and the configured cause.
type ExplicitFailureError struct {
	Target string
	Method string
	Site   Site
	Cause  error
}

func (e *ExplicitFailureError) Error() string {
	return fmt.Sprintf("Expectation failure for %s::%s at %s: %v", e.Target, e.Method, e.Site, e.Cause)
}

func (e *ExplicitFailureError) Unwrap() []error {
	return []error{ErrExplicitFailure, e.Cause}
}

// MismatchError reports that the head expectation rejected the call's arguments.
type MismatchError struct {
	Target   string
	Method   string
	Site     Site
	Expected string
	Got      string
	// Diff is a unified diff of expected and actual values. Empty when the
	// matcher is not value-shaped.
	Diff string
}

func (e *MismatchError) Error() string {
	msg := fmt.Sprintf("Expectation argument mismatch for %s::%s at %s\nExpected: %s\nGot: %s",
		e.Target, e.Method, e.Site, e.Expected, e.Got)
	if e.Diff != "" {
		msg += "\nDiff:\n" + e.Diff
	}

	return msg
}

func (e *MismatchError) Unwrap() error {
	return ErrArgumentMismatch
}

// NoExpectationError reports a call for which nothing is queued.
type NoExpectationError struct {
	Target string
	Method string
	Args   string
}

func (e *NoExpectationError) Error() string {
	return fmt.Sprintf("No expectation found for %s::%s with args: %s", e.Target, e.Method, e.Args)
}

func (e *NoExpectationError) Unwrap() error {
	return ErrNoExpectationFound
}

// OverCalledError reports a call past an Exactly(n) ceiling.
type OverCalledError struct {
	Target   string
	Method   string
	Site     Site
	Expected int
	Actual   int
}

func (e *OverCalledError) Error() string {
	return fmt.Sprintf("Expectation for %s::%s at %s called more times than expected.\nExpected times: %d\nActual times: %d",
		e.Target, e.Method, e.Site, e.Expected, e.Actual)
}

func (e *OverCalledError) Unwrap() error {
	return ErrOverCalled
}

// UnderCalledError is the verification failure for an unmet count policy.
type UnderCalledError struct {
	Target string
	Method string
	Site   Site
	// AtLeast is true when the policy was a minimum rather than an exact count.
	AtLeast  bool
	Expected int
	Actual   int
}

func (e *UnderCalledError) Error() string {
	if e.AtLeast {
		return fmt.Sprintf("Expectation was not called at least %d times: %s::%s at %s\nActual times: %d",
			e.Expected, e.Target, e.Method, e.Site, e.Actual)
	}

	return fmt.Sprintf("Expectation was not called the expected number of times: %s::%s at %s\nExpected times: %d\nActual times: %d",
		e.Target, e.Method, e.Site, e.Expected, e.Actual)
}

func (e *UnderCalledError) Unwrap() error {
	return ErrUnderCalled
}
