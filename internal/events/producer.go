package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/tracker/internal/domain"
)

// publishTimeout bounds each delivery attempt.
const publishTimeout = 5 * time.Second

// KafkaPublisher delivers ExerciseLogged events to Kafka.
type KafkaPublisher struct {
	writer *kafka.Writer
	logs   *zap.SugaredLogger
}

// NewKafkaPublisher creates a publisher for the given brokers.
func NewKafkaPublisher(brokers []string, logs *zap.SugaredLogger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        Topic,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}
	return &KafkaPublisher{writer: writer, logs: logs}
}

// ExerciseLogged publishes the event without blocking the request path.
// Delivery is detached from the request context so an in-flight publish
// survives the response being written; failures are logged and dropped.
func (p *KafkaPublisher) ExerciseLogged(_ context.Context, user domain.User, exercise domain.Exercise) {
	event := ExerciseLogged{
		ExerciseID:  exercise.ID,
		UserID:      user.ID,
		Username:    user.Username,
		Description: exercise.Description,
		DurationMin: exercise.Duration,
		Date:        exercise.Date,
		OccurredAt:  exercise.CreatedAt,
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logs.Errorw("failed to encode exercise event", "error", err, "exercise_id", exercise.ID)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		msg := kafka.Message{Key: []byte(user.ID), Value: body}
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.logs.Errorw("failed to publish exercise event", "error", err, "exercise_id", exercise.ID)
		}
	}()
}

// Close releases the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events; used when no brokers are configured.
type NopPublisher struct{}

// ExerciseLogged implements domain.EventPublisher.
func (NopPublisher) ExerciseLogged(context.Context, domain.User, domain.Exercise) {}
