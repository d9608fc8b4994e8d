// internal/repository/mongo/workout_repo.go
package mongo

import (
	"alcyxob/strength-tracker/internal/domain"
	"alcyxob/strength-tracker/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const workoutCollectionName = "workouts"

// mongoWorkoutRepository implements repository.WorkoutRepository
type mongoWorkoutRepository struct {
	collection   *mongo.Collection
	pollInterval time.Duration
}

// NewMongoWorkoutRepository creates a new Workout repository.
// pollInterval is only used when the deployment does not support change streams.
func NewMongoWorkoutRepository(db *mongo.Database, pollInterval time.Duration) repository.WorkoutRepository {
	return &mongoWorkoutRepository{
		collection:   db.Collection(workoutCollectionName),
		pollInterval: pollInterval,
	}
}

// Create inserts a new workout session.
func (r *mongoWorkoutRepository) Create(ctx context.Context, session *domain.WorkoutSession) error {
	if session.ID == "" || session.DayID == "" || session.Date == "" {
		return errors.New("workout session requires id, dayId and date")
	}
	doc := *session
	if doc.Exercises == nil {
		doc.Exercises = []domain.ExerciseProgress{}
	}

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a single workout session straight from the collection.
func (r *mongoWorkoutRepository) GetByID(ctx context.Context, id string) (*domain.WorkoutSession, error) {
	var session domain.WorkoutSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// List retrieves every session, newest date first.
func (r *mongoWorkoutRepository) List(ctx context.Context) ([]domain.WorkoutSession, error) {
	return r.find(ctx, bson.M{})
}

// FindByDayAndDate retrieves all sessions recorded for a training day on a date.
// More than one result means the duplicate-session race happened.
func (r *mongoWorkoutRepository) FindByDayAndDate(ctx context.Context, dayID, date string) ([]domain.WorkoutSession, error) {
	return r.find(ctx, bson.M{"dayId": dayID, "date": date})
}

func (r *mongoWorkoutRepository) find(ctx context.Context, filter bson.M) ([]domain.WorkoutSession, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sessions := []domain.WorkoutSession{}
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ReplaceExercises writes the whole exercises array if nobody else wrote the
// document since expectedVersion was read.
func (r *mongoWorkoutRepository) ReplaceExercises(ctx context.Context, id string, expectedVersion int64, exercises []domain.ExerciseProgress) error {
	if exercises == nil {
		exercises = []domain.ExerciseProgress{}
	}

	filter := bson.M{"_id": id}
	if expectedVersion == 0 {
		// documents created before versioning carry no version field
		filter["$or"] = bson.A{
			bson.M{"version": int64(0)},
			bson.M{"version": bson.M{"$exists": false}},
		}
	} else {
		filter["version"] = expectedVersion
	}
	update := bson.M{
		"$set": bson.M{"exercises": exercises},
		"$inc": bson.M{"version": int64(1)},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *mongoWorkoutRepository) missOrConflict(ctx context.Context, id string) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrVersionConflict
}

// SetCompleted marks the session as completed. Setting it again is harmless.
func (r *mongoWorkoutRepository) SetCompleted(ctx context.Context, id string) error {
	update := bson.M{
		"$set": bson.M{"completed": true},
		"$inc": bson.M{"version": int64(1)},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Upsert creates or replaces the session document by id.
func (r *mongoWorkoutRepository) Upsert(ctx context.Context, session *domain.WorkoutSession) error {
	if session.ID == "" {
		return errors.New("workout session ID is required for upsert")
	}
	doc := *session
	if doc.Exercises == nil {
		doc.Exercises = []domain.ExerciseProgress{}
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// Delete removes a session by id.
func (r *mongoWorkoutRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Changes signals every change to the workouts collection.
func (r *mongoWorkoutRepository) Changes(ctx context.Context) (<-chan struct{}, error) {
	return watchCollection(ctx, r.collection, r.pollInterval), nil
}

const (
	dayDateIndex       = "dayId_date"
	dayDateUniqueIndex = "dayId_date_unique"
)

// Server codes for dropping an index or collection that does not exist.
const (
	codeNamespaceNotFound = 26
	codeIndexNotFound     = 27
)

// EnsureWorkoutIndexes creates necessary indexes. Call during startup.
// With uniqueDaySessions the store itself rejects a second session for the
// same (dayId, date); creation fails while old duplicates are still stored.
// The (dayId, date) index of the other variant is dropped first, since the
// server refuses two indexes on the same keys.
func EnsureWorkoutIndexes(ctx context.Context, collection *mongo.Collection, uniqueDaySessions bool) error {
	dayDate := options.Index().SetName(dayDateIndex)
	stale := dayDateUniqueIndex
	if uniqueDaySessions {
		dayDate = options.Index().SetName(dayDateUniqueIndex).SetUnique(true)
		stale = dayDateIndex
	}

	if _, err := collection.Indexes().DropOne(ctx, stale); err != nil && !isMissingIndex(err) {
		log.WithError(err).Warnf("failed to drop index %s on %s", stale, collection.Name())
		return fmt.Errorf("drop index %s: %w", stale, err)
	}

	indexes := []mongo.IndexModel{
		{
			// Listing is always newest first
			Keys:    bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "dayId", Value: 1}, {Key: "date", Value: 1}},
			Options: dayDate,
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.WithError(err).Warnf("failed to create indexes for collection %s", collection.Name())
		return fmt.Errorf("create indexes for %s: %w", collection.Name(), err)
	}
	return nil
}

func isMissingIndex(err error) bool {
	var cmdErr mongo.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	return cmdErr.Code == codeIndexNotFound || cmdErr.Code == codeNamespaceNotFound
}
