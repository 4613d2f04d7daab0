package session

import (
	"errors"
	"fmt"
)

// Event drives a Status transition.
type Event int

const (
	EventLoad Event = iota
	EventSucceed
	EventUnauthenticated
	EventFail
	EventSignOut
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventLoad:
		return "load"
	case EventSucceed:
		return "succeed"
	case EventUnauthenticated:
		return "unauthenticated"
	case EventFail:
		return "fail"
	case EventSignOut:
		return "sign-out"
	case EventReset:
		return "reset"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// ErrInvalidTransition is returned by Next when ev is not accepted in from.
var ErrInvalidTransition = errors.New("invalid session transition")

// transitions is the complete state machine. Sign-out and reset are accepted
// from every state; load only from unresolved; the three outcomes only from
// loading.
var transitions = map[Status]map[Event]Status{
	StatusUnresolved: {
		EventLoad:    StatusLoading,
		EventSignOut: StatusAnonymous,
		EventReset:   StatusUnresolved,
	},
	StatusLoading: {
		EventSucceed:         StatusAuthenticated,
		EventUnauthenticated: StatusAnonymous,
		EventFail:            StatusError,
		EventSignOut:         StatusAnonymous,
		EventReset:           StatusUnresolved,
	},
	StatusAuthenticated: {
		EventSignOut: StatusAnonymous,
		EventReset:   StatusUnresolved,
	},
	StatusAnonymous: {
		EventSignOut: StatusAnonymous,
		EventReset:   StatusUnresolved,
	},
	StatusError: {
		EventSignOut: StatusAnonymous,
		EventReset:   StatusUnresolved,
	},
}

// Next returns the status reached from "from" on ev.
func Next(from Status, ev Event) (Status, error) {
	to, ok := transitions[from][ev]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, ev)
	}
	return to, nil
}
