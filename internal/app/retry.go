package app

import "github.com/pbellini/ingresso/internal/domain"

// RetryPolicy bounds how often a transition may be attempted within one flow
// instance. The counter is a value handed in and out, not ambient state; the
// policy itself is stateless and safe to share.
type RetryPolicy struct {
	Cap int
}

// Run guards fn with the bounded attempt counter.
//
// When the counter is already exhausted, fn is not invoked at all and
// domain.ErrAttemptsExhausted is returned. A successful fn resets the
// counter. A goal-reached failure (see domain.GoalReached) also resets it:
// the transition's goal state is in place, so nothing is left to retry. Any
// other failure consumes one attempt.
func (p RetryPolicy) Run(attempts domain.AttemptState, fn func() error) (domain.AttemptState, error) {
	cap := attempts.Cap
	if cap <= 0 {
		cap = p.Cap
	}
	if cap <= 0 {
		cap = domain.DefaultAttemptCap
	}
	attempts.Cap = cap

	if attempts.Exhausted() {
		return attempts, domain.ErrAttemptsExhausted
	}

	err := fn()
	if err == nil || domain.GoalReached(err) {
		return domain.AttemptState{Cap: cap}, err
	}

	attempts.Used++
	return attempts, err
}
