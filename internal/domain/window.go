package domain

import "time"

// Window is an event's active-window predicate. Days are "MM-DD" in Location.
// The engine only reads it; the calendar owns the transitions.
type Window struct {
	Day      string
	CloseDay string
	// Force makes the event active regardless of the date (debug).
	Force    bool
	Location *time.Location
}

func (w Window) local(now time.Time) string {
	if w.Location != nil {
		now = now.In(w.Location)
	}
	return now.Format("01-02")
}

// Active reports whether today is the event day.
func (w Window) Active(now time.Time) bool {
	if w.Force {
		return true
	}
	return w.Day != "" && w.local(now) == w.Day
}

// Closing reports whether today is the day the results are announced.
func (w Window) Closing(now time.Time) bool {
	return w.CloseDay != "" && w.local(now) == w.CloseDay
}
