package impstub

import (
	"github.com/toejough/impstub/internal/core"
)

// Builder declares expectations for one target. Each Method call starts a new
// expectation; the other methods configure the current one. Configuration
// calls made before the first Method are ignored.
//
//	impstub.Stub(s, "Mailer").Method("Send").With(match.Text("@example.com")).Returns(nil).Twice()
type Builder struct {
	session *Session
	target  string
	current *Expectation
}

// Stub starts declaring expectations for target in s.
func Stub(s *Session, target string) *Builder {
	return &Builder{session: s, target: target}
}

// AnyTimes lets the current expectation be called any number of times.
func (b *Builder) AnyTimes() *Builder {
	return b.policy(core.AnyTimes())
}

// AtLeast requires the current expectation to be called n or more times.
func (b *Builder) AtLeast(n int) *Builder {
	return b.policy(core.AtLeast(n))
}

// Exactly requires the current expectation to be called exactly n times.
func (b *Builder) Exactly(n int) *Builder {
	return b.Times(n)
}

// Expectation returns the current expectation, or nil before the first Method.
func (b *Builder) Expectation() *Expectation {
	return b.current
}

// Method declares and registers a new expectation for name, expected once
// with any arguments.
func (b *Builder) Method(name string) *Builder {
	b.current = core.NewExpectation(b.target, name)
	b.session.Register(b.current)

	return b
}

// Once is Times(1).
func (b *Builder) Once() *Builder {
	return b.Times(1)
}

// Raises makes the current expectation fail with err when matched.
func (b *Builder) Raises(err error) *Builder {
	if b.current != nil {
		b.current.SetFailure(err)
	}

	return b
}

// Returns makes the current expectation return value when matched.
func (b *Builder) Returns(value any) *Builder {
	if b.current != nil {
		b.current.SetResponse(value)
	}

	return b
}

// Times requires the current expectation to be called exactly n times.
func (b *Builder) Times(n int) *Builder {
	return b.policy(core.Exactly(n))
}

// Twice is Times(2).
func (b *Builder) Twice() *Builder {
	return b.Times(2) //nolint:mnd // it's the name
}

// With sets the current expectation's matcher. A single ArgMatcher is used as
// is; anything else must equal the call's arguments exactly.
func (b *Builder) With(args ...any) *Builder {
	if b.current == nil {
		return b
	}

	if len(args) == 1 {
		if m, ok := args[0].(ArgMatcher); ok {
			b.current.AttachMatcher(m)

			return b
		}
	}

	b.current.AttachMatcher(core.MatchExact(args))

	return b
}

func (b *Builder) policy(p CountPolicy) *Builder {
	if b.current != nil {
		b.current.SetCountPolicy(p)
	}

	return b
}
