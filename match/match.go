// Package match provides argument matchers for impstub's Builder.With and
// for property constraints inside Object. Gomega matchers plug in through
// That, or directly as Object props:
//
//	import (
//	    . "github.com/onsi/gomega"
//	    "github.com/toejough/impstub/match"
//	)
//
//	impstub.Stub(s, "Store").Method("Put").With(match.Object(nil, match.Props{"ID": BeNumerically(">", 0)}))
//
// Satisfy shares its name with gomega's, so dot-import at most one of them.
package match

import (
	"errors"
	"fmt"

	"github.com/toejough/impstub/internal/core"
)

// errTypeMismatch is a sentinel error for type assertion failures.
var errTypeMismatch = errors.New("type mismatch")

// ArgMatcher is a predicate over a call's argument list.
type ArgMatcher = core.ArgMatcher

// Matcher defines the interface for flexible value matching.
// Compatible with gomega.GomegaMatcher via duck typing - any type
// implementing Match and FailureMessage will work.
type Matcher = core.Matcher

// Props lists property constraints for Object. Values may be an ArgMatcher, a
// Matcher, or a plain value compared with reflect.DeepEqual.
type Props = map[string]any

// Any matches any arguments.
func Any() ArgMatcher {
	return core.MatchAny()
}

// Array matches when the first argument deep-equals value.
func Array(value any) ArgMatcher {
	return core.MatchArray(value)
}

// Callback matches when predicate accepts the full argument list.
func Callback(predicate func(args ...any) bool) ArgMatcher {
	return core.MatchCallback(func(args []any) bool {
		return predicate(args...)
	})
}

// Exact matches when the arguments equal args element-wise. Builder.With uses
// it implicitly for plain values.
func Exact(args ...any) ArgMatcher {
	return core.MatchExact(args)
}

// Object matches a struct, struct pointer or string-keyed map. With nil or
// empty props the first argument must deep-equal template; otherwise only the
// listed properties are checked.
func Object(template any, props Props) ArgMatcher {
	return core.MatchObject(template, props)
}

// Regex matches when the first argument is string-like and matches pattern.
// It panics if pattern does not compile.
func Regex(pattern string) ArgMatcher {
	return core.MatchRegex(pattern)
}

// Satisfy matches when the first argument is a T accepted by predicate.
// The predicate should return nil if the value matches, or an error describing
// the mismatch if it does not.
//
// Example:
//
//	With(Satisfy(func(x int) error {
//	    if x < 0 { return fmt.Errorf("expected positive, got %d", x) }
//	    return nil
//	}))
func Satisfy[T any](predicate func(T) error) ArgMatcher {
	return That(&satisfyMatcher[T]{predicate: predicate})
}

// Text matches when the first argument is string-like and contains text.
func Text(text string) ArgMatcher {
	return core.MatchSubstring(text)
}

// That matches when the first argument satisfies a gomega-compatible matcher.
// An error from the matcher counts as a mismatch.
func That(m Matcher) ArgMatcher {
	return core.MatchCallback(func(args []any) bool {
		if len(args) == 0 {
			return false
		}

		ok, _ := core.MatchValue(args[0], m)

		return ok
	})
}

type satisfyMatcher[T any] struct {
	predicate func(T) error
	lastErr   error
}

func (m *satisfyMatcher[T]) FailureMessage(actual any) string {
	if m.lastErr != nil {
		return fmt.Sprintf("value %v does not satisfy predicate: %v", actual, m.lastErr)
	}

	return fmt.Sprintf("value %v does not satisfy predicate", actual)
}

func (m *satisfyMatcher[T]) Match(actual any) (bool, error) {
	val, ok := actual.(T)

	if !ok {
		return false, fmt.Errorf("%w: expected %T, got %T", errTypeMismatch, *new(T), actual)
	}

	m.lastErr = m.predicate(val)

	return m.lastErr == nil, nil
}
