package core

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/akedrou/textdiff"
)

// ArgMatcher is a predicate over a call's argument list.
//
// The set of implementations is closed: AnyArgs, Substring, Regex,
// ArrayEqual, ObjectMatch, Callback and ExactArgs. Values are immutable once
// constructed; use the Match* constructors.
type ArgMatcher interface {
	argMatcher()
}

// AnyArgs matches every argument list.
type AnyArgs struct{}

// ArrayEqual matches when the first argument deep-equals a value, or loosely
// equals it when the value is a Loose.
type ArrayEqual struct {
	value any
}

// Callback matches when its predicate accepts the full argument list.
type Callback struct {
	predicate func(args []any) bool
}

// ExactArgs matches an argument list element-wise.
type ExactArgs struct {
	args []any
}

// Args returns a copy of the expected argument list.
func (m ExactArgs) Args() []any {
	return append([]any(nil), m.args...)
}

// Loose holds a value decoded from a document, such as a YAML fixture. It
// compares by shape rather than by Go type: numbers by value, sequences
// element-wise against slices or arrays, and string-keyed mappings against
// structs or maps field by field. Anything else falls back to
// reflect.DeepEqual.
type Loose struct {
	value any
}

// Loosely wraps value so that matchers compare it by shape.
func Loosely(value any) Loose {
	return Loose{value: value}
}

// Value returns the wrapped value.
func (l Loose) Value() any {
	return l.value
}

// Matcher defines the interface for flexible value matching.
// Compatible with gomega.GomegaMatcher via duck typing.
type Matcher interface {
	Match(actual any) (success bool, err error)
	FailureMessage(actual any) string
}

// ObjectMatch matches a record (struct, pointer to struct, or string-keyed
// map) either as a whole or by a set of property constraints.
type ObjectMatch struct {
	template any
	props    map[string]any
}

// Regex matches when the first argument is string-like and matches a pattern.
type Regex struct {
	re *regexp.Regexp
}

// Substring matches when the first argument is string-like and contains a text.
type Substring struct {
	text string
}

// Describe renders a matcher for diagnostics. A nil matcher describes the
// implicit always-match default.
func Describe(m ArgMatcher) string {
	switch m := m.(type) {
	case nil:
		return "any arguments"
	case AnyArgs:
		return "any value"
	case Substring:
		return fmt.Sprintf("string containing %q", m.text)
	case Regex:
		return fmt.Sprintf("string matching /%s/", m.re)
	case ArrayEqual:
		return "value equal to " + render(m.value)
	case ObjectMatch:
		if len(m.props) == 0 {
			return "object equal to " + render(m.template)
		}

		keys := make([]string, 0, len(m.props))
		for key := range m.props {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%q: %s", key, describeConstraint(m.props[key])))
		}

		return "object with props: {" + strings.Join(parts, ", ") + "}"
	case Callback:
		return "arguments satisfying callback"
	case ExactArgs:
		return RenderArgs(m.args)
	}

	return fmt.Sprintf("%#v", m)
}

// Evaluate reports whether args satisfy m. It never panics: a panic raised
// while inspecting an argument or running a callback counts as no match.
func Evaluate(m ArgMatcher, args []any) (matched bool) {
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()

	switch m := m.(type) {
	case AnyArgs:
		return true
	case Substring:
		s, ok := firstString(args)

		return ok && strings.Contains(s, m.text)
	case Regex:
		s, ok := firstString(args)

		return ok && m.re.MatchString(s)
	case ArrayEqual:
		return len(args) > 0 && equal(args[0], m.value)
	case ObjectMatch:
		return len(args) > 0 && m.matches(args[0])
	case Callback:
		return m.predicate != nil && m.predicate(args)
	case ExactArgs:
		if len(args) != len(m.args) {
			return false
		}

		for i := range args {
			if !equal(args[i], m.args[i]) {
				return false
			}
		}

		return true
	}

	return false
}

// MatchAny returns the matcher that accepts any arguments.
func MatchAny() ArgMatcher {
	return AnyArgs{}
}

// MatchArray returns a matcher requiring the first argument to deep-equal value.
func MatchArray(value any) ArgMatcher {
	return ArrayEqual{value: value}
}

// MatchCallback returns a matcher that delegates to predicate.
func MatchCallback(predicate func(args []any) bool) ArgMatcher {
	return Callback{predicate: predicate}
}

// MatchExact returns a matcher requiring the argument list to equal args element-wise.
func MatchExact(args []any) ArgMatcher {
	return ExactArgs{args: append([]any(nil), args...)}
}

// MatchObject returns a record matcher. With no props, the first argument must
// deep-equal template. Otherwise each listed property must exist and satisfy
// its constraint, which may be an ArgMatcher, a gomega-compatible Matcher, or a
// plain value compared with reflect.DeepEqual.
func MatchObject(template any, props map[string]any) ArgMatcher {
	var copied map[string]any

	if len(props) > 0 {
		copied = make(map[string]any, len(props))
		for key, value := range props {
			copied[key] = value
		}
	}

	return ObjectMatch{template: template, props: copied}
}

// MatchRegex returns a matcher for string-like first arguments matching
// pattern. It panics if pattern does not compile.
func MatchRegex(pattern string) ArgMatcher {
	return Regex{re: regexp.MustCompile(pattern)}
}

// MatchSubstring returns a matcher for string-like first arguments containing text.
func MatchSubstring(text string) ArgMatcher {
	return Substring{text: text}
}

// MatchValue checks if actual matches expected.
// If expected implements the Matcher interface, uses its Match method.
// Otherwise, uses reflect.DeepEqual for comparison.
// Returns (success, errorMessage). If success is true, errorMessage is empty.
func MatchValue(actual, expected any) (bool, string) {
	if matcher, ok := expected.(Matcher); ok {
		success, err := matcher.Match(actual)
		if err != nil {
			return false, err.Error()
		}

		if !success {
			return false, matcher.FailureMessage(actual)
		}

		return true, ""
	}

	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

// RenderArgs renders an argument list for diagnostics.
func RenderArgs(args []any) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, render(arg))
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

func (AnyArgs) argMatcher()     {}
func (ArrayEqual) argMatcher()  {}
func (Callback) argMatcher()    {}
func (ExactArgs) argMatcher()   {}
func (ObjectMatch) argMatcher() {}
func (Regex) argMatcher()       {}
func (Substring) argMatcher()   {}

func (m ObjectMatch) matches(actual any) bool {
	record := reflect.ValueOf(actual)
	for record.Kind() == reflect.Pointer || record.Kind() == reflect.Interface {
		if record.IsNil() {
			return false
		}

		record = record.Elem()
	}

	if !isRecord(record) {
		return false
	}

	if len(m.props) == 0 {
		return equal(actual, m.template)
	}

	for key, want := range m.props {
		got, ok := property(record, key)
		if !ok || !propertyMatches(got, want) {
			return false
		}
	}

	return true
}

func describeConstraint(constraint any) string {
	switch c := constraint.(type) {
	case ArgMatcher:
		return Describe(c)
	case Matcher:
		return fmt.Sprintf("value satisfying %T", c)
	}

	return render(constraint)
}

// diffArgs returns a unified diff between the values a value-shaped matcher
// expects and the values the call carried, or "" for other matchers.
func diffArgs(m ArgMatcher, args []any) string {
	var expected, got []string

	switch m := m.(type) {
	case ExactArgs:
		for _, arg := range m.args {
			expected = append(expected, render(arg))
		}

		for _, arg := range args {
			got = append(got, render(arg))
		}
	case ArrayEqual:
		expected = []string{render(m.value)}
		got = []string{renderFirst(args)}
	case ObjectMatch:
		if len(m.props) > 0 {
			return ""
		}

		expected = []string{render(m.template)}
		got = []string{renderFirst(args)}
	default:
		return ""
	}

	return textdiff.Unified("expected", "got", joinLines(expected), joinLines(got))
}

func equal(got, want any) bool {
	if loose, ok := want.(Loose); ok {
		return looseEqual(got, loose.value)
	}

	return reflect.DeepEqual(got, want)
}

func exportedFields(typ reflect.Type) int {
	count := 0

	for i := range typ.NumField() {
		if typ.Field(i).IsExported() {
			count++
		}
	}

	return count
}

func firstString(args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}

	switch arg := args[0].(type) {
	case string:
		return arg, true
	case []byte:
		return string(arg), true
	case fmt.Stringer:
		return arg.String(), true
	}

	value := reflect.ValueOf(args[0])
	if value.Kind() == reflect.String {
		return value.String(), true
	}

	return "", false
}

func floatEqual(value reflect.Value, want float64) bool {
	switch {
	case value.CanInt():
		return float64(value.Int()) == want
	case value.CanUint():
		return float64(value.Uint()) == want
	case value.CanFloat():
		return value.Float() == want
	default:
		return false
	}
}

func intEqual(value reflect.Value, want int64) bool {
	switch {
	case value.CanInt():
		return value.Int() == want
	case value.CanUint():
		return want >= 0 && value.Uint() == uint64(want)
	case value.CanFloat():
		return value.Float() == float64(want)
	default:
		return false
	}
}

func isRecord(value reflect.Value) bool {
	switch value.Kind() {
	case reflect.Struct:
		return true
	case reflect.Map:
		return value.Type().Key().Kind() == reflect.String
	default:
		return false
	}
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	return strings.Join(lines, "\n") + "\n"
}

func looseEqual(got, want any) bool {
	value := reflect.ValueOf(got)
	for value.Kind() == reflect.Pointer || value.Kind() == reflect.Interface {
		if value.IsNil() {
			return want == nil
		}

		value = value.Elem()
	}

	switch want := want.(type) {
	case nil:
		switch value.Kind() {
		case reflect.Invalid:
			return true
		case reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return value.IsNil()
		default:
			return false
		}
	case bool:
		return value.Kind() == reflect.Bool && value.Bool() == want
	case string:
		return value.Kind() == reflect.String && value.String() == want
	case int:
		return intEqual(value, int64(want))
	case int64:
		return intEqual(value, want)
	case uint64:
		return uintEqual(value, want)
	case float64:
		return floatEqual(value, want)
	case []any:
		if value.Kind() != reflect.Slice && value.Kind() != reflect.Array || value.Len() != len(want) {
			return false
		}

		for i := range want {
			if !looseEqual(value.Index(i).Interface(), want[i]) {
				return false
			}
		}

		return true
	case map[string]any:
		return recordEqual(value, want)
	}

	return reflect.DeepEqual(got, want)
}

func property(record reflect.Value, key string) (any, bool) {
	if record.Kind() == reflect.Struct {
		field := record.FieldByName(key)
		if !field.IsValid() || !field.CanInterface() {
			return nil, false
		}

		return field.Interface(), true
	}

	value := record.MapIndex(reflect.ValueOf(key).Convert(record.Type().Key()))
	if !value.IsValid() {
		return nil, false
	}

	return value.Interface(), true
}

func propertyMatches(got, want any) bool {
	switch w := want.(type) {
	case ArgMatcher:
		return Evaluate(w, []any{got})
	case Matcher:
		ok, _ := MatchValue(got, w)

		return ok
	}

	return equal(got, want)
}

// recordEqual requires the same set of keys on both sides. Struct records
// count only their exported fields.
func recordEqual(record reflect.Value, want map[string]any) bool {
	switch record.Kind() {
	case reflect.Struct:
		if exportedFields(record.Type()) != len(want) {
			return false
		}
	case reflect.Map:
		if record.Type().Key().Kind() != reflect.String || record.Len() != len(want) {
			return false
		}
	default:
		return false
	}

	for key, field := range want {
		got, ok := property(record, key)
		if !ok || !looseEqual(got, field) {
			return false
		}
	}

	return true
}

// render quotes strings and spells out composites, but prints numbers plainly
// so unsigned values do not come out in hex.
func render(value any) string {
	if loose, ok := value.(Loose); ok {
		return render(loose.value)
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return fmt.Sprintf("%v", value)
	default:
		return fmt.Sprintf("%#v", value)
	}
}

func renderFirst(args []any) string {
	if len(args) == 0 {
		return "<no argument>"
	}

	return render(args[0])
}

func uintEqual(value reflect.Value, want uint64) bool {
	switch {
	case value.CanInt():
		return value.Int() >= 0 && uint64(value.Int()) == want
	case value.CanUint():
		return value.Uint() == want
	case value.CanFloat():
		return value.Float() == float64(want)
	default:
		return false
	}
}
