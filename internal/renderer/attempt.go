package renderer

// attemptState tracks one scene's render-retry loop: which attempt is
// running and the code/error pair that seeds a regeneration.
type attemptState struct {
	attempt  int
	lastCode string
	lastErr  string
}

// outcome is the result of one render attempt.
type outcome struct {
	ok     bool
	errMsg string
}

// nextAttempt advances the per-scene state machine. It returns the state
// for the following attempt and whether the loop is done. The transition
// is pure so the retry contract is testable without a renderer: success
// terminates, failure with retries left carries the failing code and
// error forward, failure at the bound terminates.
func nextAttempt(s attemptState, o outcome, maxRetries int) (attemptState, bool) {
	if o.ok {
		return s, true
	}
	if s.attempt >= maxRetries {
		return s, true
	}
	return attemptState{
		attempt:  s.attempt + 1,
		lastCode: s.lastCode,
		lastErr:  o.errMsg,
	}, false
}
