package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	usersCreatedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "exercise_tracker",
		Subsystem: "store",
		Name:      "users_created_total",
		Help:      "Number of users created.",
	})
	exercisesLoggedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "exercise_tracker",
		Subsystem: "store",
		Name:      "exercises_logged_total",
		Help:      "Number of exercise entries persisted.",
	})
	exercisePersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "exercise_tracker",
		Subsystem: "store",
		Name:      "last_exercise_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent exercise persisted to the store.",
	})
)

func init() {
	prometheus.MustRegister(usersCreatedCounter, exercisesLoggedCounter, exercisePersistGauge)
}

// RecordUserCreated increments the user creation counter.
func RecordUserCreated() {
	usersCreatedCounter.Inc()
}

// RecordExerciseLogged updates the exercise counter and the persistence watermark.
func RecordExerciseLogged(ts time.Time) {
	exercisesLoggedCounter.Inc()
	if ts.IsZero() {
		return
	}
	exercisePersistGauge.Set(float64(ts.Unix()))
}
