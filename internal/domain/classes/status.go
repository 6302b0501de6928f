package classes

import "time"

const (
	StatusScheduled = "scheduled"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var transitions = map[string][]string{
	StatusScheduled: {StatusOngoing, StatusCancelled},
	StatusOngoing:   {StatusCompleted, StatusCancelled},
}

func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a class may move from one status to another.
// Staying in the same status is allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusAt is the status the clock implies for c at now. Cancelled and
// completed classes never move.
func StatusAt(c *Class, now time.Time) string {
	switch c.Status {
	case StatusScheduled, StatusOngoing:
	default:
		return c.Status
	}
	if !now.Before(c.EndsAt()) {
		return StatusCompleted
	}
	if !now.Before(c.ScheduledAt) {
		return StatusOngoing
	}
	return c.Status
}
