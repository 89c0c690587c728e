package mafia

import "errors"

var (
	ErrGameOver      = errors.New("game already over")
	ErrUnknownPlayer = errors.New("unknown player")
)

// InvalidActionError rejects a submission that names a dead actor, a dead or
// unknown target, a role that cannot perform the action, or the wrong phase.
// The submission is not applied; the caller retries or treats it as abstain.
type InvalidActionError string

func (e InvalidActionError) Error() string { return "invalid action: " + string(e) }

func ErrInvalidAction(msg string) error { return InvalidActionError(msg) }

// StateInvariantViolation signals a core logic bug (for example mutating a
// dead player). It is fatal: the run must halt rather than continue silently.
type StateInvariantViolation string

func (e StateInvariantViolation) Error() string { return "state invariant violation: " + string(e) }

func ErrInvariant(msg string) error { return StateInvariantViolation(msg) }

// IsInvariantViolation reports whether err is fatal to the run.
func IsInvariantViolation(err error) bool {
	var v StateInvariantViolation
	return errors.As(err, &v)
}
