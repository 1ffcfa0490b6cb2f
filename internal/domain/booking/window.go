package booking

import (
	"fmt"
	"time"

	"github.com/roomline/service-booking/pkg/domain"
)

// MaxBufferMinutes is the largest buffer accepted on either side of a window.
const MaxBufferMinutes = 240

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04"
	minutesPerDay  = 24 * 60
)

// TimeOfDay is a wall-clock time with minute precision, stored as minutes
// after midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, domain.NewValidationError(fmt.Sprintf("invalid time %q, expected HH:MM", s))
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// String renders the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// ParseDate parses "YYYY-MM-DD" into a UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, domain.NewValidationError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
	}
	return d, nil
}

// NormalizeDate drops the clock part of t, keeping its calendar date.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a booking date as "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Window is a half-open interval in minutes relative to midnight of a
// booking date. Buffered windows may start before 0 or end after 24:00.
type Window struct {
	Start int
	End   int
}

// EffectiveWindow applies buffers to [start, end].
func EffectiveWindow(start, end TimeOfDay, bufferBefore, bufferAfter int) Window {
	return Window{
		Start: int(start) - bufferBefore,
		End:   int(end) + bufferAfter,
	}
}

// Overlaps reports whether the two windows intersect. Touching endpoints do
// not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start < other.End && other.Start < w.End
}

// Format renders both ends as local date-times on date, rolling into the
// neighbouring day when a buffer crosses midnight.
func (w Window) Format(date time.Time) (string, string) {
	base := NormalizeDate(date)
	start := base.Add(time.Duration(w.Start) * time.Minute)
	end := base.Add(time.Duration(w.End) * time.Minute)
	return start.Format(dateTimeLayout), end.Format(dateTimeLayout)
}

// ValidateSchedule checks the ordering and buffer invariants of a window.
func ValidateSchedule(start, end TimeOfDay, bufferBefore, bufferAfter int) error {
	if start < 0 || int(end) > minutesPerDay {
		return domain.NewValidationError("times must fall within the booking date")
	}
	if start >= end {
		return domain.NewValidationError("start time must be before end time")
	}
	if bufferBefore < 0 || bufferBefore > MaxBufferMinutes {
		return domain.NewValidationError(fmt.Sprintf("buffer before must be between 0 and %d minutes", MaxBufferMinutes))
	}
	if bufferAfter < 0 || bufferAfter > MaxBufferMinutes {
		return domain.NewValidationError(fmt.Sprintf("buffer after must be between 0 and %d minutes", MaxBufferMinutes))
	}
	return nil
}
