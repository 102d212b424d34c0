package bench

import (
	"fmt"
)

// State is a benchmark case lifecycle state
type State int

const (
	Constructed State = iota
	SetUp
	Ran
	Verified
	Failed
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "Constructed"
	case SetUp:
		return "SetUp"
	case Ran:
		return "Ran"
	case Verified:
		return "Verified"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Lifecycle enforces the order of Setup, Run and Verify. Any failed
// transition leaves the case in Failed.
type Lifecycle struct {
	name  string
	state State
}

// State returns the current state
func (l *Lifecycle) State() State {
	return l.state
}

// begin checks that op may run from the current state
func (l *Lifecycle) begin(op string, from State) error {
	if l.state != from {
		prev := l.state
		l.state = Failed
		return fmt.Errorf("%s: %w: %s requires state %v, case is %v",
			l.name, ErrInvalidState, op, from, prev)
	}
	return nil
}

// finish records the outcome of an operation started with begin
func (l *Lifecycle) finish(to State, err error) error {
	if err != nil {
		l.state = Failed
		return err
	}
	l.state = to
	return nil
}
