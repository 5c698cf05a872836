package core

// TestReporter is the minimal interface impstub needs from test frameworks.
type TestReporter interface {
	Helper()
	Fatalf(format string, args ...any)
}

// Verify fails t with the first unmet expectation in s. It is safe to call
// repeatedly: verification never changes call counts.
func Verify(t TestReporter, s *Session) {
	t.Helper()

	if err := s.VerifyAll(); err != nil {
		t.Fatalf("%v", err)
	}
}
