package core

import (
	"sync"

	"go.uber.org/zap"
)

// Hook is whatever routes calls on a target into a Session. ClearAll detaches
// every attached hook.
type Hook interface {
	Detach()
}

// HookFunc adapts a function to Hook.
type HookFunc func()

// Detach calls f.
func (f HookFunc) Detach() {
	f()
}

// Key identifies a queue: a target identity and one of its methods.
// Instances of the same target are indistinguishable.
type Key struct {
	Target string
	Method string
}

func (k Key) String() string {
	return k.Target + "::" + k.Method
}

// Option configures a Session.
type Option func(*Session)

// WithHook attaches h so that ClearAll detaches it.
func WithHook(h Hook) Option {
	return func(s *Session) {
		s.hooks = append(s.hooks, h)
	}
}

// WithLogger sets the logger for session events. The default discards them.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithMismatchCountsAsCall controls whether a call rejected by the head
// expectation's matcher still counts toward its policy. The default is true,
// so a mismatched call uses up a slot of an Exactly(n) expectation.
func WithMismatchCountsAsCall(counts bool) Option {
	return func(s *Session) {
		s.mismatchCounts = counts
	}
}

// Session holds the expectation queues and the list of every expectation
// declared since the last ClearAll.
//
// Callers pass the same Session to whatever declares expectations and to the
// doubles that dispatch into it. A Session is safe for concurrent use, but
// matcher callbacks run while it is locked and must not call back into it.
type Session struct {
	mu       sync.Mutex
	queues   map[Key][]*Expectation
	declared []*Expectation
	hooks    []Hook

	logger         *zap.Logger
	mismatchCounts bool
}

// NewSession creates an empty Session.
func NewSession(opts ...Option) *Session {
	session := &Session{
		queues:         make(map[Key][]*Expectation),
		logger:         zap.NewNop(),
		mismatchCounts: true,
	}

	for _, opt := range opts {
		opt(session)
	}

	return session
}

// AttachHook adds h to the hooks detached by the next ClearAll.
func (s *Session) AttachHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, h)
}

// ClearAll forgets every queue and declared expectation, then detaches and
// drops all hooks.
func (s *Session) ClearAll() {
	s.mu.Lock()
	hooks := s.hooks
	dropped := len(s.declared)
	s.queues = make(map[Key][]*Expectation)
	s.declared = nil
	s.hooks = nil
	s.mu.Unlock()

	s.logger.Debug("session cleared",
		zap.Int("expectations", dropped),
		zap.Int("hooks", len(hooks)),
	)

	for _, hook := range hooks {
		hook.Detach()
	}
}

// Declared returns the expectations registered since the last ClearAll, in
// declaration order.
func (s *Session) Declared() []*Expectation {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*Expectation(nil), s.declared...)
}

// Dispatch routes one call to the head expectation for (target, method).
//
// A failure from the head propagates unchanged and leaves the head in place.
// On success an Exactly(n) head that has now seen n calls is retired, making
// the next expectation for the key authoritative. AtLeast and AnyTimes heads
// are never retired.
func (s *Session) Dispatch(target, method string, args ...any) (any, error) {
	key := Key{Target: target, Method: method}

	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.queues[key]
	if len(queue) == 0 {
		s.logger.Debug("no expectation", zap.Stringer("key", key))

		return nil, &NoExpectationError{Target: target, Method: method, Args: RenderArgs(args)}
	}

	head := queue[0]

	result, err := head.consume(args, s.mismatchCounts)
	if err != nil {
		s.logger.Debug("dispatch failed",
			zap.Stringer("key", key),
			zap.Stringer("site", head.Site()),
			zap.Int("timesInvoked", head.TimesInvoked()),
			zap.Error(err),
		)

		return nil, err
	}

	s.logger.Debug("dispatched",
		zap.Stringer("key", key),
		zap.Stringer("site", head.Site()),
		zap.Int("timesInvoked", head.TimesInvoked()),
	)

	if head.retireable() {
		s.queues[key] = queue[1:]
		s.logger.Debug("retired", zap.Stringer("key", key), zap.Int("remaining", len(queue)-1))
	}

	return result, nil
}

// Pending returns how many expectations are queued for (target, method).
func (s *Session) Pending(target, method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queues[Key{Target: target, Method: method}])
}

// Register appends e to the tail of its key's queue and to the declared list.
func (s *Session) Register(e *Expectation) {
	key := Key{Target: e.Target(), Method: e.Method()}

	s.mu.Lock()
	s.queues[key] = append(s.queues[key], e)
	s.declared = append(s.declared, e)
	depth := len(s.queues[key])
	s.mu.Unlock()

	s.logger.Debug("registered",
		zap.Stringer("key", key),
		zap.Stringer("site", e.Site()),
		zap.Stringer("policy", e.Policy()),
		zap.Int("depth", depth),
	)
}

// VerifyAll checks every declared expectation in declaration order and returns
// the first unmet count policy. It does not change any state.
func (s *Session) VerifyAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.declared {
		if err := e.Verify(); err != nil {
			return err
		}
	}

	return nil
}

// VerifyEach is VerifyAll reporting every unmet policy instead of the first.
func (s *Session) VerifyEach() []error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	for _, e := range s.declared {
		if err := e.Verify(); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}
