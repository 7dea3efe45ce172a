package query

import "strings"

// State is the lifecycle of one query execution as seen by the resolver.
// Values are ordered: a lower state never follows a higher one.
type State int

const (
	StateQueued State = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateCancelled
	StateTimedOut
)

var stateNames = [...]string{"QUEUED", "RUNNING", "SUCCEEDED", "FAILED", "CANCELLED", "TIMED_OUT"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Terminal reports whether polling should stop in this state.
func (s State) Terminal() bool {
	return s >= StateSucceeded
}

// ParseState maps a backend state string. Unknown values are treated as
// FAILED so that polling cannot spin on garbage.
func ParseState(s string) State {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "QUEUED":
		return StateQueued
	case "RUNNING":
		return StateRunning
	case "SUCCEEDED":
		return StateSucceeded
	case "FAILED":
		return StateFailed
	case "CANCELLED":
		return StateCancelled
	default:
		return StateFailed
	}
}

// Transition computes the next resolver state from the current one, the
// state observed on poll number attempt (1-based), and the poll budget.
// Terminal states are absorbing, observations never move the state
// backwards, and a non-terminal state on the last poll becomes TimedOut.
func Transition(current, observed State, attempt, maxAttempts int) State {
	if current.Terminal() {
		return current
	}
	next := current
	if observed > current && observed != StateTimedOut {
		next = observed
	}
	if !next.Terminal() && attempt >= maxAttempts {
		return StateTimedOut
	}
	return next
}
