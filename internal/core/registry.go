package core

import (
	"sync"
)

// ForTest returns the Session for the given test, creating one if needed.
// Multiple calls with the same TestReporter return the same Session, so
// doubles and declarations spread across helpers share state.
//
// If the TestReporter supports Cleanup (like *testing.T), the cleanup
// verifies the session, clears it, and removes it from the registry. Options
// apply only when the session is created.
func ForTest(t TestReporter, opts ...Option) *Session {
	registryMu.Lock()
	defer registryMu.Unlock()

	if session, ok := registry[t]; ok {
		return session
	}

	session := NewSession(opts...)
	registry[t] = session

	if cr, ok := t.(cleanupRegistrar); ok {
		cr.Cleanup(func() {
			registryMu.Lock()
			delete(registry, t)
			registryMu.Unlock()

			defer session.ClearAll()

			Verify(t, session)
		})
	}

	return session
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Package-level registry is intentional for test coordination
	registry = make(map[TestReporter]*Session)
	//nolint:gochecknoglobals // Mutex for registry
	registryMu sync.Mutex
)

// cleanupRegistrar is the interface needed for registering cleanup functions.
// This is satisfied by *testing.T and *testing.B.
type cleanupRegistrar interface {
	Cleanup(cleanupFunc func())
}
