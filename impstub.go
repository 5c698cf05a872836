// Package impstub provides programmable stand-ins for methods in Go tests.
// A test declares expectations (matcher, response, call count) in a Session,
// hands the system under test a double that dispatches into that Session, and
// verifies at teardown that every declared count was met.
//
// This is the public API entry point. Implementation lives in internal/core.
package impstub

import (
	"github.com/toejough/impstub/internal/core"
	"go.uber.org/zap"
)

// Sentinel errors, re-exported from internal/core.
var (
	ErrArgumentMismatch   = core.ErrArgumentMismatch
	ErrExplicitFailure    = core.ErrExplicitFailure
	ErrNoExpectationFound = core.ErrNoExpectationFound
	ErrOverCalled         = core.ErrOverCalled
	ErrResultType         = core.ErrResultType
	ErrUnderCalled        = core.ErrUnderCalled
)

// NoValue is what Dispatch returns when the matched expectation has no
// configured return value.
//
//nolint:gochecknoglobals // re-exported sentinel
var NoValue = core.NoValue

// ArgMatcher is a predicate over a call's argument list. See package match.
type ArgMatcher = core.ArgMatcher

// CountPolicy is how many calls an expectation demands.
type CountPolicy = core.CountPolicy

// Expectation is one declared stand-in for a method.
type Expectation = core.Expectation

// ExplicitFailureError is returned when a matched expectation was configured to fail.
type ExplicitFailureError = core.ExplicitFailureError

// Hook is whatever routes calls on a target into a Session.
type Hook = core.Hook

// HookFunc adapts a function to Hook.
type HookFunc = core.HookFunc

// Matcher defines the gomega-compatible interface for flexible value matching.
type Matcher = core.Matcher

// MismatchError reports that the head expectation rejected a call's arguments.
type MismatchError = core.MismatchError

// NoExpectationError reports a call for which nothing is queued.
type NoExpectationError = core.NoExpectationError

// Option configures a Session.
type Option = core.Option

// OverCalledError reports a call past an Exactly(n) ceiling.
type OverCalledError = core.OverCalledError

// Session holds expectation queues for one test.
type Session = core.Session

// Site is a declaration location.
type Site = core.Site

// TestReporter is the minimal interface impstub needs from test frameworks.
type TestReporter = core.TestReporter

// UnderCalledError is the verification failure for an unmet count policy.
type UnderCalledError = core.UnderCalledError

// AnyTimes returns the policy accepting any number of calls.
func AnyTimes() CountPolicy {
	return core.AnyTimes()
}

// AtLeast returns the policy requiring n or more calls.
func AtLeast(n int) CountPolicy {
	return core.AtLeast(n)
}

// Exactly returns the policy requiring exactly n calls.
func Exactly(n int) CountPolicy {
	return core.Exactly(n)
}

// ForTest returns the Session for t, creating it on first use. When t supports
// Cleanup, the session is verified and cleared when the test ends.
func ForTest(t TestReporter, opts ...Option) *Session {
	return core.ForTest(t, opts...)
}

// NewExpectation creates an expectation for target's method, expected once.
func NewExpectation(target, method string) *Expectation {
	return core.NewExpectation(target, method)
}

// NewSession creates an empty Session.
func NewSession(opts ...Option) *Session {
	return core.NewSession(opts...)
}

// Verify fails t with the first unmet expectation in s.
func Verify(t TestReporter, s *Session) {
	t.Helper()
	core.Verify(t, s)
}

// WithHook attaches h so that ClearAll detaches it.
func WithHook(h Hook) Option {
	return core.WithHook(h)
}

// WithLogger sets the logger for session events.
func WithLogger(logger *zap.Logger) Option {
	return core.WithLogger(logger)
}

// WithMismatchCountsAsCall controls whether a mismatched call still counts
// toward the head expectation's policy. Defaults to true.
func WithMismatchCountsAsCall(counts bool) Option {
	return core.WithMismatchCountsAsCall(counts)
}
