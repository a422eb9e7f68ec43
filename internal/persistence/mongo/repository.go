// Package mongo provides MongoDB-backed persistence for users and exercises.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"example.com/tracker/internal/domain"
	"example.com/tracker/internal/observability"
)

const (
	usersCollection     = "users"
	exercisesCollection = "exercises"
)

// Repository stores users and exercises in two collections.
type Repository struct {
	users     *mongo.Collection
	exercises *mongo.Collection
}

// NewRepository constructs a Repository over the given database.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		users:     db.Collection(usersCollection),
		exercises: db.Collection(exercisesCollection),
	}
}

// EnsureIndexes builds the unique username index and the log query index.
// Called once at startup before the server accepts traffic.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create username index: %w", err)
	}

	_, err = r.exercises.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create exercise log index: %w", err)
	}
	return nil
}

type userDocument struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d userDocument) toDomain() domain.User {
	return domain.User{ID: d.ID, Username: d.Username, CreatedAt: d.CreatedAt}
}

type exerciseDocument struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	Description string    `bson:"description"`
	Duration    int       `bson:"duration"`
	Date        time.Time `bson:"date"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (d exerciseDocument) toDomain() domain.Exercise {
	return domain.Exercise{
		ID:          d.ID,
		UserID:      d.UserID,
		Description: d.Description,
		Duration:    d.Duration,
		Date:        d.Date.UTC(),
		CreatedAt:   d.CreatedAt,
	}
}

// CreateUser inserts a new user, mapping duplicate usernames to ErrUsernameTaken.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) error {
	doc := userDocument{ID: user.ID, Username: user.Username, CreatedAt: user.CreatedAt}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUsernameTaken
		}
		return err
	}
	observability.RecordUserCreated()
	return nil
}

// GetUser fetches a user by ID; a missing user yields (nil, nil).
func (r *Repository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user := doc.toDomain()
	return &user, nil
}

// ListUsers returns every user in storage order.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	cursor, err := r.users.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []domain.User
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		users = append(users, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateExercise persists a new exercise entry.
func (r *Repository) CreateExercise(ctx context.Context, exercise domain.Exercise) error {
	doc := exerciseDocument{
		ID:          exercise.ID,
		UserID:      exercise.UserID,
		Description: exercise.Description,
		Duration:    exercise.Duration,
		Date:        exercise.Date,
		CreatedAt:   exercise.CreatedAt,
	}
	if _, err := r.exercises.InsertOne(ctx, doc); err != nil {
		return err
	}
	observability.RecordExerciseLogged(exercise.CreatedAt)
	return nil
}

// ListExercises returns a user's entries inside the filter bounds, sorted
// ascending by date. Both bounds are inclusive; entries on the same day are
// ordered by insertion time.
func (r *Repository) ListExercises(ctx context.Context, userID string, filter domain.LogFilter) ([]domain.Exercise, error) {
	query := bson.M{"user_id": userID}
	dateRange := bson.M{}
	if filter.From != nil {
		dateRange["$gte"] = *filter.From
	}
	if filter.To != nil {
		dateRange["$lte"] = *filter.To
	}
	if len(dateRange) > 0 {
		query["date"] = dateRange
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "created_at", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.exercises.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var exercises []domain.Exercise
	for cursor.Next(ctx) {
		var doc exerciseDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		exercises = append(exercises, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return exercises, nil
}
