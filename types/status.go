package types

import (
	"fmt"
	"time"
)

// Action is the transition a worker just went through inside the controller.
type Action int

const (
	ActionEntered Action = iota
	ActionExited
)

func (a Action) String() string {

	if a == ActionEntered {
		return "ENTERED"
	}
	return "EXITED"
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {

	switch string(b) {
	case "ENTERED":
		*a = ActionEntered
	case "EXITED":
		*a = ActionExited
	default:
		return fmt.Errorf("unknown action %q", string(b))
	}
	return nil
}

// Status is a read-only snapshot of the controller's counters, indexed by Group.Index().
type Status struct {
	Active  [2]int `json:"active"`
	Waiting [2]int `json:"waiting"`
	Turn    Group  `json:"turn"`

	// cumulative counters since the controller was created.
	Admitted [2]uint64 `json:"admitted"`
	Released [2]uint64 `json:"released"`
}

func (s Status) ActiveOf(g Group) int {
	return s.Active[g.Index()]
}

func (s Status) WaitingOf(g Group) int {
	return s.Waiting[g.Index()]
}

// StatusEvent is handed to observers after every ENTERED/EXITED transition.
type StatusEvent struct {
	RunId  string    `json:"runId,omitempty"`
	Group  Group     `json:"group"`
	Action Action    `json:"action"`
	Status Status    `json:"status"`
	Time   time.Time `json:"time"`
}

/*
StatusObserver receives transitions from the controller.
OnTransition is called while the controller lock is held, so events arrive in the order they happened.
Implementations only get copies of the state and must not call back into the controller.
*/
type StatusObserver interface {
	OnTransition(event StatusEvent)
}

type StatusObserverFunc func(event StatusEvent)

func (f StatusObserverFunc) OnTransition(event StatusEvent) {
	f(event)
}

// HealthCheckResponse is the body returned by the /healthCheck endpoint.
type HealthCheckResponse struct {
	Status int    `json:"Status"`
	RunId  string `json:"RunId"`
}
