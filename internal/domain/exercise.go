package domain

import "time"

// User is an account that owns exercise log entries. Users are never
// updated or deleted once created.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Exercise is a single logged workout entry, always owned by exactly one user.
type Exercise struct {
	ID          string
	UserID      string
	Description string
	Duration    int       // minutes
	Date        time.Time // UTC midnight, time-of-day discarded
	CreatedAt   time.Time
}

// TruncateToDay drops the time-of-day component, keeping the UTC calendar date.
// Storing dates at midnight makes the inclusive from/to range filter exact.
func TruncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
