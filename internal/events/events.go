// Package events publishes notifications about accepted exercise entries.
package events

import "time"

// Topic carrying exercise notifications.
const Topic = "exercise_events"

// ExerciseLogged is emitted after an exercise entry is persisted.
type ExerciseLogged struct {
	ExerciseID  string    `json:"exercise_id"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Description string    `json:"description"`
	DurationMin int       `json:"duration_min"`
	Date        time.Time `json:"date"`
	OccurredAt  time.Time `json:"occurred_at"`
}
