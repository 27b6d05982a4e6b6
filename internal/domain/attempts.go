package domain

// DefaultAttemptCap bounds how many times a single activation transition may
// be retried within one flow instance.
const DefaultAttemptCap = 3

// AttemptState is the bounded retry counter for one activation flow
// instance. It is a value passed into and returned from every transition
// rather than ambient state, so the policy is testable in isolation and the
// caller may hold it wherever it likes (page state, server session, ...).
type AttemptState struct {
	Used int
	Cap  int
}

// NewAttemptState returns a fresh counter with the given cap; a
// non-positive cap falls back to DefaultAttemptCap.
func NewAttemptState(cap int) AttemptState {
	if cap <= 0 {
		cap = DefaultAttemptCap
	}
	return AttemptState{Cap: cap}
}

// Remaining reports how many attempts are left before the flow short-circuits.
func (a AttemptState) Remaining() int {
	if a.Used >= a.Cap {
		return 0
	}
	return a.Cap - a.Used
}

// Exhausted reports whether the counter has reached its cap.
func (a AttemptState) Exhausted() bool {
	return a.Used >= a.Cap
}
