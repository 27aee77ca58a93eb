package session

// Status is the lifecycle state of a ride session.
type Status string

const (
	StatusSetup     Status = "setup"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusEmergency Status = "emergency"
	StatusCancelled Status = "cancelled"
)

// transitions lists the allowed next states. Completed and cancelled are
// terminal; emergency can only be closed out.
var transitions = map[Status][]Status{
	StatusSetup:     {StatusActive, StatusCancelled},
	StatusActive:    {StatusCompleted, StatusEmergency, StatusCancelled},
	StatusEmergency: {StatusCompleted},
	StatusCompleted: nil,
	StatusCancelled: nil,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Monitored reports whether location updates are evaluated in this state.
func (s Status) Monitored() bool {
	switch s {
	case StatusActive, StatusEmergency:
		return true
	case StatusSetup, StatusCompleted, StatusCancelled:
		return false
	}
	return false
}
