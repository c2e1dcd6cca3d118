package entity

import "fmt"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusPending             Status = "pending"
	StatusConfirmed           Status = "confirmed"
	StatusPreparing           Status = "preparing"
	StatusReady               Status = "ready"
	StatusCompleted           Status = "completed"
	StatusCancelled           Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPendingVerification: {StatusPending, StatusConfirmed, StatusPreparing, StatusCancelled},
	StatusPending:             {StatusConfirmed, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled},
	StatusConfirmed:           {StatusPreparing, StatusReady, StatusCompleted, StatusCancelled},
	StatusPreparing:           {StatusReady, StatusCompleted, StatusCancelled},
	StatusReady:               {StatusPreparing, StatusCompleted, StatusCancelled},
	StatusCompleted:           nil,
	StatusCancelled:           nil,
}

// ParseStatus converts a raw tag into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transitions leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether an order in from may move to to.
// Staying in the same state is not a transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition when from → to is not allowed.
func ValidateTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
