// Package domain defines the business logic for the exercise tracker.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken indicates a username collides with an existing user.
	ErrUsernameTaken = errors.New("username already taken")
)

// Field bounds enforced on writes.
const (
	MaxUsernameLength    = 50
	MaxDescriptionLength = 100
)

// Repository captures persistence operations for users and exercises.
type Repository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, userID string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateExercise(ctx context.Context, exercise Exercise) error
	ListExercises(ctx context.Context, userID string, filter LogFilter) ([]Exercise, error)
}

// EventPublisher emits notifications after successful writes. Publishing is
// best effort and must never fail the request path.
type EventPublisher interface {
	ExerciseLogged(ctx context.Context, user User, exercise Exercise)
}

// LogFilter bounds a log query. Nil bounds are open ends of the inclusive
// date range; a Limit of zero or less means no cap.
type LogFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

// Service orchestrates user and exercise workflows.
type Service struct {
	repo   Repository
	events EventPublisher
}

// NewService constructs a Service. A nil publisher disables eventing.
func NewService(repo Repository, events EventPublisher) *Service {
	return &Service{repo: repo, events: events}
}

// CreateUser registers a new user with a generated ID. The username is
// trimmed before storage; uniqueness is enforced by the repository.
func (s *Service) CreateUser(ctx context.Context, username string) (*User, error) {
	user := User{
		ID:        uuid.NewString(),
		Username:  strings.TrimSpace(username),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every registered user.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// AddExerciseInput captures the payload from the API layer.
type AddExerciseInput struct {
	UserID      string
	Description string
	Duration    int
	Date        *time.Time // nil means "today"
}

// AddExercise persists a new exercise entry for an existing user. The owning
// user must exist at insert time; the date falls back to the current day and
// is stored at UTC midnight.
func (s *Service) AddExercise(ctx context.Context, input AddExerciseInput) (*User, *Exercise, error) {
	user, err := s.repo.GetUser(ctx, input.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	date := time.Now().UTC()
	if input.Date != nil {
		date = *input.Date
	}

	exercise := Exercise{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Description: strings.TrimSpace(input.Description),
		Duration:    input.Duration,
		Date:        TruncateToDay(date),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateExercise(ctx, exercise); err != nil {
		return nil, nil, err
	}

	if s.events != nil {
		s.events.ExerciseLogged(ctx, *user, exercise)
	}
	return user, &exercise, nil
}

// GetLog returns a user's exercises inside the filter bounds, ascending by date.
func (s *Service) GetLog(ctx context.Context, userID string, filter LogFilter) (*User, []Exercise, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	exercises, err := s.repo.ListExercises(ctx, user.ID, filter)
	if err != nil {
		return nil, nil, err
	}
	return user, exercises, nil
}
