package core

import (
	"fmt"
	"runtime"
	"strings"
)

// NoValue is what Consume returns when an expectation matched but no return
// value was configured. It is distinct from a configured nil.
//
//nolint:gochecknoglobals // sentinel value
var NoValue any = noValue{}

// CountPolicy is how many calls an expectation demands. Exactly one of
// Exactly(n), AtLeast(n) and AnyTimes() is in effect.
type CountPolicy struct {
	kind policyKind
	n    int
}

// AnyTimes returns the policy accepting any number of calls, including zero.
func AnyTimes() CountPolicy {
	return CountPolicy{kind: policyUnbounded}
}

// AtLeast returns the policy requiring n or more calls.
func AtLeast(n int) CountPolicy {
	return CountPolicy{kind: policyAtLeast, n: n}
}

// Exactly returns the policy requiring exactly n calls.
func Exactly(n int) CountPolicy {
	return CountPolicy{kind: policyExact, n: n}
}

// Exact reports the ceiling of an Exactly(n) policy.
func (p CountPolicy) Exact() (int, bool) {
	return p.n, p.kind == policyExact
}

// Minimum reports the threshold of an AtLeast(n) policy.
func (p CountPolicy) Minimum() (int, bool) {
	return p.n, p.kind == policyAtLeast
}

func (p CountPolicy) String() string {
	switch p.kind {
	case policyExact:
		return fmt.Sprintf("exactly %d", p.n)
	case policyAtLeast:
		return fmt.Sprintf("at least %d", p.n)
	default:
		return "any times"
	}
}

// Unbounded reports whether the policy is AnyTimes.
func (p CountPolicy) Unbounded() bool {
	return p.kind == policyUnbounded
}

// Expectation is one declared stand-in for a method: an optional argument
// matcher, a response, and a count policy with a live call counter.
//
// Mutators are meant for configuration before the first dispatch. Once the
// expectation is registered with a Session, the session's lock guards it.
type Expectation struct {
	target  string
	method  string
	site    Site
	matcher ArgMatcher

	value    any
	hasValue bool
	failure  error

	policy       CountPolicy
	timesInvoked int
}

// NewExpectation creates an expectation expected once, stamped with the first
// caller outside this module as its declaration site.
func NewExpectation(target, method string) *Expectation {
	return NewExpectationAt(target, method, callerSite())
}

// NewExpectationAt creates an expectation expected once with an explicit
// declaration site.
func NewExpectationAt(target, method string, site Site) *Expectation {
	return &Expectation{
		target: target,
		method: method,
		site:   site,
		policy: Exactly(1),
	}
}

// AttachMatcher sets the argument matcher. A nil matcher matches everything.
func (e *Expectation) AttachMatcher(m ArgMatcher) {
	e.matcher = m
}

// Consume runs the dispatch-time contract for one call, counting a mismatched
// call toward the policy.
func (e *Expectation) Consume(args []any) (any, error) {
	return e.consume(args, true)
}

// IsSatisfied reports whether the count policy is currently met.
func (e *Expectation) IsSatisfied() bool {
	switch e.policy.kind {
	case policyExact:
		return e.timesInvoked == e.policy.n
	case policyAtLeast:
		return e.timesInvoked >= e.policy.n
	default:
		return true
	}
}

// Matcher returns the attached matcher, or nil.
func (e *Expectation) Matcher() ArgMatcher {
	return e.matcher
}

// Method returns the method name the expectation stands in for.
func (e *Expectation) Method() string {
	return e.method
}

// Policy returns the count policy.
func (e *Expectation) Policy() CountPolicy {
	return e.policy
}

// SetCountPolicy replaces the count policy.
func (e *Expectation) SetCountPolicy(p CountPolicy) {
	e.policy = p
}

// SetFailure makes matching calls fail with err, replacing any return value.
func (e *Expectation) SetFailure(err error) {
	e.failure = err
	e.value = nil
	e.hasValue = false
}

// SetResponse makes matching calls return value, replacing any failure.
func (e *Expectation) SetResponse(value any) {
	e.value = value
	e.hasValue = true
	e.failure = nil
}

// Site returns where the expectation was declared.
func (e *Expectation) Site() Site {
	return e.site
}

// Target returns the identity of the type the expectation stands in for.
func (e *Expectation) Target() string {
	return e.target
}

// TimesInvoked returns how many calls the expectation has counted.
func (e *Expectation) TimesInvoked() int {
	return e.timesInvoked
}

// Verify returns an *UnderCalledError if the count policy is unmet.
func (e *Expectation) Verify() error {
	if e.IsSatisfied() {
		return nil
	}

	return &UnderCalledError{
		Target:   e.target,
		Method:   e.method,
		Site:     e.site,
		AtLeast:  e.policy.kind == policyAtLeast,
		Expected: e.policy.n,
		Actual:   e.timesInvoked,
	}
}

// consume checks the ceiling before anything else, so an excess call never
// reaches argument matching. When mismatchCounts is false the matcher runs
// before the counter moves.
func (e *Expectation) consume(args []any, mismatchCounts bool) (any, error) {
	if e.policy.kind == policyExact && e.timesInvoked >= e.policy.n {
		return nil, &OverCalledError{
			Target:   e.target,
			Method:   e.method,
			Site:     e.site,
			Expected: e.policy.n,
			Actual:   e.timesInvoked + 1,
		}
	}

	if mismatchCounts {
		e.timesInvoked++
	}

	if e.matcher != nil && !Evaluate(e.matcher, args) {
		return nil, &MismatchError{
			Target:   e.target,
			Method:   e.method,
			Site:     e.site,
			Expected: Describe(e.matcher),
			Got:      RenderArgs(args),
			Diff:     diffArgs(e.matcher, args),
		}
	}

	if !mismatchCounts {
		e.timesInvoked++
	}

	if e.failure != nil {
		return nil, &ExplicitFailureError{Target: e.target, Method: e.method, Site: e.site, Cause: e.failure}
	}

	if !e.hasValue {
		return NoValue, nil
	}

	return e.value, nil
}

// retireable reports whether dispatch should pop this expectation off its queue.
func (e *Expectation) retireable() bool {
	return e.policy.kind == policyExact && e.timesInvoked == e.policy.n
}

// Site is a declaration location.
type Site struct {
	File string
	Line int
}

func (s Site) String() string {
	if s.File == "" {
		return "unknown site"
	}

	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

type noValue struct{}

func (noValue) String() string {
	return "<no value configured>"
}

type policyKind int

const (
	policyExact policyKind = iota
	policyAtLeast
	policyUnbounded
)

// modulePath prefixes every function in this module; frames under it are
// skipped when looking for a declaration site. Test packages end in "_test"
// and so are not skipped.
const modulePath = "github.com/toejough/impstub"

func callerSite() Site {
	pcs := make([]uintptr, 32) //nolint:mnd // deep enough for builder chains

	n := runtime.Callers(2, pcs) //nolint:mnd // skip runtime.Callers and callerSite
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !isModuleFrame(frame.Function) {
			return Site{File: frame.File, Line: frame.Line}
		}

		if !more {
			return Site{}
		}
	}
}

func isModuleFrame(function string) bool {
	rest, ok := strings.CutPrefix(function, modulePath)
	if !ok {
		return false
	}

	// "github.com/toejough/impstub.Fn" or ".../internal/core.Fn", but not
	// "github.com/toejough/impstub_test.TestFn".
	pkg, _, _ := strings.Cut(rest, ".")

	return !strings.HasSuffix(pkg, "_test")
}
