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

const measurementCollectionName = "measurements"

// mongoMeasurementRepository implements repository.MeasurementRepository
type mongoMeasurementRepository struct {
	collection   *mongo.Collection
	pollInterval time.Duration
}

// NewMongoMeasurementRepository creates a new measurement repository backed by MongoDB.
func NewMongoMeasurementRepository(db *mongo.Database, pollInterval time.Duration) repository.MeasurementRepository {
	return &mongoMeasurementRepository{
		collection:   db.Collection(measurementCollectionName),
		pollInterval: pollInterval,
	}
}

// Create appends a measurement. Existing measurements are never updated.
func (r *mongoMeasurementRepository) Create(ctx context.Context, m *domain.BodyMeasurement) error {
	if m.ID == "" || m.Date == "" {
		return errors.New("measurement requires id and date")
	}
	_, err := r.collection.InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// List retrieves all measurements, newest date first.
func (r *mongoMeasurementRepository) List(ctx context.Context) ([]domain.BodyMeasurement, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	measurements := []domain.BodyMeasurement{}
	if err = cursor.All(ctx, &measurements); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return measurements, nil
}

// Upsert writes the measurement by id; used by imports.
func (r *mongoMeasurementRepository) Upsert(ctx context.Context, m *domain.BodyMeasurement) error {
	if m.ID == "" {
		return errors.New("measurement ID is required for upsert")
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": m.ID}, m, options.Replace().SetUpsert(true))
	return err
}

// Changes signals every change to the measurements collection.
func (r *mongoMeasurementRepository) Changes(ctx context.Context) (<-chan struct{}, error) {
	return watchCollection(ctx, r.collection, r.pollInterval), nil
}

// EnsureMeasurementIndexes creates necessary indexes for the measurements collection.
func EnsureMeasurementIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.WithError(err).Warnf("failed to create indexes for collection %s", collection.Name())
		return fmt.Errorf("create indexes for %s: %w", collection.Name(), err)
	}
	return nil
}
