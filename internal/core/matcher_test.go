package core_test

import (
	"errors"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/toejough/impstub/internal/core"
	"pgregory.net/rapid"
)

type point struct {
	X int
	Y int
	z int
}

type label string

type stringer struct{ s string }

func (s stringer) String() string { return s.s }

func TestEvaluate_Any(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(core.Evaluate(core.MatchAny(), nil)).To(BeTrue())
	g.Expect(core.Evaluate(core.MatchAny(), []any{1, "two", nil})).To(BeTrue())
}

func TestEvaluate_Substring(t *testing.T) {
	t.Parallel()

	m := core.MatchSubstring("needle")

	for name, tc := range map[string]struct {
		args []any
		want bool
	}{
		"contains":      {[]any{"find the needle here"}, true},
		"missing":       {[]any{"haystack"}, false},
		"bytes":         {[]any{[]byte("a needle")}, true},
		"stringer":      {[]any{stringer{"needlepoint"}}, true},
		"named string":  {[]any{label("needle")}, true},
		"not a string":  {[]any{42}, false},
		"no first arg":  {nil, false},
		"only first":    {[]any{"hay", "needle"}, false},
		"nil first arg": {[]any{nil}, false},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			NewWithT(t).Expect(core.Evaluate(m, tc.args)).To(Equal(tc.want))
		})
	}
}

func TestEvaluate_Regex(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	m := core.MatchRegex(`^user-\d+$`)

	g.Expect(core.Evaluate(m, []any{"user-42"})).To(BeTrue())
	g.Expect(core.Evaluate(m, []any{"user-x"})).To(BeFalse())
	g.Expect(core.Evaluate(m, []any{42})).To(BeFalse())
	g.Expect(core.Evaluate(m, nil)).To(BeFalse())
}

func TestMatchRegex_PanicsOnBadPattern(t *testing.T) {
	t.Parallel()

	NewWithT(t).Expect(func() { core.MatchRegex("(") }).To(Panic())
}

func TestEvaluate_ArrayEqual(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	m := core.MatchArray([]int{1, 2, 3})

	g.Expect(core.Evaluate(m, []any{[]int{1, 2, 3}})).To(BeTrue())
	g.Expect(core.Evaluate(m, []any{[]int{1, 2}})).To(BeFalse())
	g.Expect(core.Evaluate(m, []any{[]int64{1, 2, 3}})).To(BeFalse())
	g.Expect(core.Evaluate(m, nil)).To(BeFalse())
}

func TestEvaluate_ObjectWholeRecord(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	m := core.MatchObject(point{X: 1, Y: 2}, nil)

	g.Expect(core.Evaluate(m, []any{point{X: 1, Y: 2}})).To(BeTrue())
	g.Expect(core.Evaluate(m, []any{point{X: 1, Y: 3}})).To(BeFalse())
	g.Expect(core.Evaluate(m, []any{"point"})).To(BeFalse(), "not a record")
	g.Expect(core.Evaluate(m, []any{(*point)(nil)})).To(BeFalse())
}

func TestEvaluate_ObjectProps(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	m := core.MatchObject(nil, map[string]any{"X": core.MatchAny(), "Y": 2})

	g.Expect(core.Evaluate(m, []any{point{X: 123, Y: 2}})).To(BeTrue())
	g.Expect(core.Evaluate(m, []any{&point{X: 0, Y: 2, z: 9}})).To(BeTrue(), "pointers and unlisted fields")
	g.Expect(core.Evaluate(m, []any{point{X: 123, Y: 3}})).To(BeFalse())

	byMap := core.MatchObject(nil, map[string]any{"name": core.MatchSubstring("bo")})

	g.Expect(core.Evaluate(byMap, []any{map[string]any{"name": "bob", "age": 3}})).To(BeTrue())
	g.Expect(core.Evaluate(byMap, []any{map[string]any{"age": 3}})).To(BeFalse(), "missing key")
	g.Expect(core.Evaluate(byMap, []any{map[int]any{1: "bob"}})).To(BeFalse(), "non-string keys")
}

func TestEvaluate_ObjectPropsRejectUnexportedAndUnknown(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(core.Evaluate(core.MatchObject(nil, map[string]any{"z": 0}), []any{point{}})).To(BeFalse())
	g.Expect(core.Evaluate(core.MatchObject(nil, map[string]any{"W": 0}), []any{point{}})).To(BeFalse())
}

func TestEvaluate_ObjectPropsWithGomegaMatcher(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	m := core.MatchObject(nil, map[string]any{"X": BeNumerically(">", 10)})

	g.Expect(core.Evaluate(m, []any{point{X: 11}})).To(BeTrue())
	g.Expect(core.Evaluate(m, []any{point{X: 10}})).To(BeFalse())
}

func TestEvaluate_Callback(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var seen []any

	m := core.MatchCallback(func(args []any) bool {
		seen = args

		return len(args) == 2
	})

	g.Expect(core.Evaluate(m, []any{"a", "b"})).To(BeTrue())
	g.Expect(seen).To(Equal([]any{"a", "b"}))
	g.Expect(core.Evaluate(m, []any{"a"})).To(BeFalse())
}

func TestEvaluate_NeverPanics(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	panicky := core.MatchCallback(func([]any) bool { panic("boom") })
	g.Expect(core.Evaluate(panicky, []any{1})).To(BeFalse())

	var nilStringer *ptrStringer
	g.Expect(core.Evaluate(core.MatchSubstring("x"), []any{nilStringer})).To(BeFalse())

	g.Expect(core.Evaluate(core.MatchCallback(nil), nil)).To(BeFalse())
	g.Expect(core.Evaluate(nil, nil)).To(BeFalse())
}

func TestEvaluate_ExactArgs(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	m := core.MatchExact([]any{"a", 1, []string{"x"}})

	g.Expect(core.Evaluate(m, []any{"a", 1, []string{"x"}})).To(BeTrue())
	g.Expect(core.Evaluate(m, []any{"a", 1})).To(BeFalse())
	g.Expect(core.Evaluate(m, []any{"a", int64(1), []string{"x"}})).To(BeFalse())
	g.Expect(core.Evaluate(core.MatchExact(nil), nil)).To(BeTrue())
}

func TestMatchExact_IsImmutable(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	args := []any{"a"}
	m := core.MatchExact(args)
	args[0] = "b"

	g.Expect(core.Evaluate(m, []any{"a"})).To(BeTrue())

	exact, ok := m.(core.ExactArgs)
	g.Expect(ok).To(BeTrue())

	copied := exact.Args()
	copied[0] = "c"
	g.Expect(exact.Args()).To(Equal([]any{"a"}))
}

func TestMatchObject_IsImmutable(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	props := map[string]any{"X": 1}
	m := core.MatchObject(nil, props)
	props["X"] = 2

	g.Expect(core.Evaluate(m, []any{point{X: 1}})).To(BeTrue())
}

func TestDescribe(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(core.Describe(nil)).To(Equal("any arguments"))
	g.Expect(core.Describe(core.MatchAny())).To(Equal("any value"))
	g.Expect(core.Describe(core.MatchSubstring("needle"))).To(Equal(`string containing "needle"`))
	g.Expect(core.Describe(core.MatchRegex(`a+`))).To(Equal(`string matching /a+/`))
	g.Expect(core.Describe(core.MatchArray([]int{1}))).To(Equal(`value equal to []int{1}`))
	g.Expect(core.Describe(core.MatchExact([]any{"a", 2}))).To(Equal(`["a", 2]`))
	g.Expect(core.Describe(core.MatchCallback(nil))).To(ContainSubstring("callback"))
	g.Expect(core.Describe(core.MatchObject(point{X: 1}, nil))).To(HavePrefix("object equal to core_test.point{"))

	props := core.Describe(core.MatchObject(nil, map[string]any{
		"y": 2,
		"x": core.MatchAny(),
		"n": BeNil(),
	}))
	g.Expect(props).To(HavePrefix("object with props: {"))
	g.Expect(props).To(ContainSubstring(`"x": any value`))
	g.Expect(props).To(ContainSubstring(`"y": 2`))
	g.Expect(props).To(ContainSubstring(`"n": value satisfying`))
	g.Expect(strings.Index(props, `"n"`)).To(BeNumerically("<", strings.Index(props, `"x"`)), "sorted keys")
}

func TestRenderArgs(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(core.RenderArgs(nil)).To(Equal("[]"))
	g.Expect(core.RenderArgs([]any{"no match", 3, nil})).To(Equal(`["no match", 3, <nil>]`))
	g.Expect(core.RenderArgs([]any{uint(7), uint8(255), 1.5, true})).To(Equal(`[7, 255, 1.5, true]`), "no hex")
	g.Expect(core.RenderArgs([]any{[]uint{7}})).To(Equal(`[[]uint{0x7}]`), "composites keep their Go syntax")
	g.Expect(core.RenderArgs([]any{core.Loosely([]any{"a"})})).To(Equal(`[[]interface {}{"a"}]`))
}

func TestEvaluate_LooseValues(t *testing.T) {
	t.Parallel()

	type row struct {
		ID   int64
		Name string
		Tags []string
		note string
	}

	for name, tc := range map[string]struct {
		m    core.ArgMatcher
		args []any
		want bool
	}{
		"sequence vs typed slice":     {core.MatchArray(core.Loosely([]any{"a", "b"})), []any{[]string{"a", "b"}}, true},
		"sequence vs array":           {core.MatchArray(core.Loosely([]any{1, 2})), []any{[2]uint8{1, 2}}, true},
		"sequence order matters":      {core.MatchArray(core.Loosely([]any{"a", "b"})), []any{[]string{"b", "a"}}, false},
		"sequence length matters":     {core.MatchArray(core.Loosely([]any{"a"})), []any{[]string{"a", "b"}}, false},
		"int vs uint":                 {core.MatchExact([]any{core.Loosely(7)}), []any{uint(7)}, true},
		"int vs int64":                {core.MatchExact([]any{core.Loosely(7)}), []any{int64(7)}, true},
		"int vs float":                {core.MatchExact([]any{core.Loosely(7)}), []any{7.0}, true},
		"negative int vs uint":        {core.MatchExact([]any{core.Loosely(-1)}), []any{uint(1)}, false},
		"float vs int":                {core.MatchExact([]any{core.Loosely(1.5)}), []any{1}, false},
		"number vs string":            {core.MatchExact([]any{core.Loosely(7)}), []any{"7"}, false},
		"string vs named string":      {core.MatchExact([]any{core.Loosely("x")}), []any{label("x")}, true},
		"null vs nil slice":           {core.MatchExact([]any{core.Loosely(nil)}), []any{[]string(nil)}, true},
		"null vs zero":                {core.MatchExact([]any{core.Loosely(nil)}), []any{0}, false},
		"pointer is followed":         {core.MatchExact([]any{core.Loosely(7)}), []any{ptr(int32(7))}, true},
		"props vs int64 field":        {core.MatchObject(nil, map[string]any{"ID": core.Loosely(7)}), []any{row{ID: 7}}, true},
		"props vs nested slice field": {core.MatchObject(nil, map[string]any{"Tags": core.Loosely([]any{"x"})}), []any{row{Tags: []string{"x"}}}, true},
		"whole mapping vs struct": {
			core.MatchObject(core.Loosely(map[string]any{"ID": 7, "Name": "w", "Tags": nil}), nil),
			[]any{row{ID: 7, Name: "w", note: "ignored"}},
			true,
		},
		"whole mapping missing a field": {
			core.MatchObject(core.Loosely(map[string]any{"ID": 7, "Name": "w"}), nil),
			[]any{row{ID: 7, Name: "w"}},
			false,
		},
		"whole mapping vs map": {
			core.MatchObject(core.Loosely(map[string]any{"n": 1}), nil),
			[]any{map[string]uint{"n": 1}},
			true,
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			NewWithT(t).Expect(core.Evaluate(tc.m, tc.args)).To(Equal(tc.want))
		})
	}
}

func TestEvaluate_PlainValuesStayStrict(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(core.Evaluate(core.MatchArray([]any{"a", "b"}), []any{[]string{"a", "b"}})).To(BeFalse())
	g.Expect(core.Evaluate(core.MatchExact([]any{7}), []any{int64(7)})).To(BeFalse())
}

func TestMatchValue(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ok, msg := core.MatchValue(3, 3)
	g.Expect(ok).To(BeTrue())
	g.Expect(msg).To(BeEmpty())

	ok, msg = core.MatchValue(3, 4)
	g.Expect(ok).To(BeFalse())
	g.Expect(msg).To(Equal("expected 4, got 3"))

	ok, msg = core.MatchValue(3, BeNumerically(">", 5))
	g.Expect(ok).To(BeFalse())
	g.Expect(msg).NotTo(BeEmpty())

	ok, msg = core.MatchValue("x", erroringMatcher{})
	g.Expect(ok).To(BeFalse())
	g.Expect(msg).To(Equal("matcher broke"))
}

// TestEvaluate_ExactArgsReflexive_Rapid checks that an argument list always
// matches an ExactArgs built from itself and never one built from a list of
// a different length.
func TestEvaluate_ExactArgsReflexive_Rapid(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		strs := rapid.SliceOf(rapid.String()).Draw(rt, "args")
		args := make([]any, len(strs))

		for i, s := range strs {
			args[i] = s
		}

		if !core.Evaluate(core.MatchExact(args), args) {
			rt.Fatalf("args %v do not match themselves", args)
		}

		if core.Evaluate(core.MatchExact(append(args, "extra")), args) {
			rt.Fatalf("args %v matched a longer list", args)
		}
	})
}

// TestEvaluate_Substring_Rapid checks substring matching against strings.Contains.
func TestEvaluate_Substring_Rapid(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		prefix := rapid.String().Draw(rt, "prefix")
		needle := rapid.String().Draw(rt, "needle")
		suffix := rapid.String().Draw(rt, "suffix")

		if !core.Evaluate(core.MatchSubstring(needle), []any{prefix + needle + suffix}) {
			rt.Fatalf("%q not found in %q", needle, prefix+needle+suffix)
		}
	})
}

type erroringMatcher struct{}

func (erroringMatcher) FailureMessage(any) string { return "unused" }

func (erroringMatcher) Match(any) (bool, error) { return false, errors.New("matcher broke") }

type ptrStringer struct{ s string }

func (n *ptrStringer) String() string { return n.s }

func ptr[T any](v T) *T {
	return &v
}
