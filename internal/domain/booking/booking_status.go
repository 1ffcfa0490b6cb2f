package booking

import "fmt"

// BookingStatus represents the current state of a booking in its approval workflow.
type BookingStatus string

const (
	StatusRequested BookingStatus = "REQUESTED"
	StatusInReview  BookingStatus = "IN_REVIEW"
	StatusReserved  BookingStatus = "RESERVED"
	StatusApproved  BookingStatus = "APPROVED"
	StatusRejected  BookingStatus = "REJECTED"
)

// validTransitions defines the state machine for booking status transitions.
// It is built once and only read afterwards.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusRequested: {StatusInReview},
	StatusInReview:  {StatusReserved, StatusRejected, StatusApproved},
	StatusReserved:  {StatusApproved, StatusRejected, StatusInReview},
	StatusApproved:  {StatusInReview},
	StatusRejected:  {},
}

// AllStatuses lists every recognized status in workflow order.
func AllStatuses() []BookingStatus {
	return []BookingStatus{StatusRequested, StatusInReview, StatusReserved, StatusApproved, StatusRejected}
}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses reachable in one step. The slice is a copy.
func (s BookingStatus) AllowedTargets() []BookingStatus {
	allowed := validTransitions[s]
	out := make([]BookingStatus, len(allowed))
	copy(out, allowed)
	return out
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsBlocking reports whether a booking in this status holds its resource and
// is counted by conflict detection.
func (s BookingStatus) IsBlocking() bool {
	return s == StatusReserved || s == StatusApproved
}

// BlockingStatuses returns the statuses that represent a committed allocation.
func BlockingStatuses() []BookingStatus {
	return []BookingStatus{StatusReserved, StatusApproved}
}

// String returns the string representation of the status.
func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus converts a string to a BookingStatus, returning an error if invalid.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}
