package mongo

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"alcyxob/strength-tracker/internal/domain"
	"alcyxob/strength-tracker/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const workoutNS = "test.workouts"

func workoutDoc(id, dayID, date string, version int64) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "dayId", Value: dayID},
		{Key: "date", Value: date},
		{Key: "exercises", Value: bson.A{
			bson.D{
				{Key: "exerciseId", Value: "ex-1-1"},
				{Key: "sets", Value: bson.A{
					bson.D{{Key: "reps", Value: int32(6)}, {Key: "weight", Value: 45.0}, {Key: "completed", Value: true}},
				}},
			},
		}},
		{Key: "completed", Value: false},
		{Key: "version", Value: version},
	}
}

func TestMongoWorkoutRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create", func(mt *mtest.T) {
		repo := NewMongoWorkoutRepository(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.Create(context.Background(), &domain.WorkoutSession{ID: "workout-1", DayID: "day-1", Date: "2026-01-05"})
		assert.NoError(mt, err)
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		repo := NewMongoWorkoutRepository(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Create(context.Background(), &domain.WorkoutSession{ID: "workout-1", DayID: "day-1", Date: "2026-01-05"})
		assert.ErrorIs(mt, err, repository.ErrDuplicate)
	})

	mt.Run("create rejects incomplete session", func(mt *mtest.T) {
		repo := NewMongoWorkoutRepository(mt.DB, time.Second)
		err := repo.Create(context.Background(), &domain.WorkoutSession{ID: "workout-1"})
		assert.Error(mt, err)
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewMongoWorkoutRepository(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, workoutNS, mtest.FirstBatch, workoutDoc("workout-1", "day-1", "2026-01-05", 3)))

		got, err := repo.GetByID(context.Background(), "workout-1")
		require.NoError(mt, err)
		assert.Equal(mt, "day-1", got.DayID)
		assert.EqualValues(mt, 3, got.Version)
		require.Len(mt, got.Exercises, 1)
		assert.Equal(mt, 45.0, got.Exercises[0].Sets[0].Weight)
		assert.Nil(mt, got.Exercises[0].Sets[0].IsWarmup)
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := NewMongoWorkoutRepository(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, workoutNS, mtest.FirstBatch))

		_, err := repo.GetByID(context.Background(), "missing")
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := NewMongoWorkoutRepository(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, workoutNS, mtest.FirstBatch,
			workoutDoc("workout-2", "day-2", "2026-01-07", 1),
			workoutDoc("workout-1", "day-1", "2026-01-05", 0),
		))

		list, err := repo.List(context.Background())
		require.NoError(mt, err)
		require.Len(mt, list, 2)
		assert.Equal(mt, "workout-2", list[0].ID)
	})

	mt.Run("replace exercises", func(mt *mtest.T) {
		repo := NewMongoWorkoutRepository(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := repo.ReplaceExercises(context.Background(), "workout-1", 2, nil)
		assert.NoError(mt, err)
	})

	mt.Run("replace exercises version conflict", func(mt *mtest.T) {
		repo := NewMongoWorkoutRepository(mt.DB, time.Second)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, workoutNS, mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: int32(1)}}),
		)

		err := repo.ReplaceExercises(context.Background(), "workout-1", 2, nil)
		assert.ErrorIs(mt, err, repository.ErrVersionConflict)
	})

	mt.Run("replace exercises missing session", func(mt *mtest.T) {
		repo := NewMongoWorkoutRepository(mt.DB, time.Second)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, workoutNS, mtest.FirstBatch),
		)

		err := repo.ReplaceExercises(context.Background(), "workout-1", 0, nil)
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("set completed not found", func(mt *mtest.T) {
		repo := NewMongoWorkoutRepository(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := repo.SetCompleted(context.Background(), "missing")
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewMongoWorkoutRepository(mt.DB, time.Second)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		assert.NoError(mt, repo.Delete(context.Background(), "workout-1"))
		assert.ErrorIs(mt, repo.Delete(context.Background(), "workout-1"), repository.ErrNotFound)
	})
}

func TestMongoMeasurementRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create and list", func(mt *mtest.T) {
		repo := NewMongoMeasurementRepository(mt.DB, time.Second)
		w := 80.5
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, "test.measurements", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "measurement-1"},
				{Key: "date", Value: "2026-01-05"},
				{Key: "weight", Value: 80.5},
			}),
		)

		require.NoError(mt, repo.Create(context.Background(), &domain.BodyMeasurement{ID: "measurement-1", Date: "2026-01-05", Weight: &w}))
		list, err := repo.List(context.Background())
		require.NoError(mt, err)
		require.Len(mt, list, 1)
		require.NotNil(mt, list[0].Weight)
		assert.Equal(mt, 80.5, *list[0].Weight)
		assert.Nil(mt, list[0].Waist)
	})
}

func TestEnsureWorkoutIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	indexNotFound := mtest.CommandError{Code: 27, Name: "IndexNotFound", Message: "index not found with name [dayId_date_unique]"}

	mt.Run("fresh collection", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(indexNotFound),
			mtest.CreateSuccessResponse(),
		)
		assert.NoError(mt, EnsureWorkoutIndexes(context.Background(), mt.Coll, false))
	})

	mt.Run("unique replaces the plain index", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)
		assert.NoError(mt, EnsureWorkoutIndexes(context.Background(), mt.Coll, true))
	})

	mt.Run("unique index rejected", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    11000,
				Name:    "DuplicateKey",
				Message: "E11000 duplicate key error",
			}),
		)
		err := EnsureWorkoutIndexes(context.Background(), mt.Coll, true)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "duplicate key")
	})

	mt.Run("drop failure is returned", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized",
		}))
		assert.Error(mt, EnsureWorkoutIndexes(context.Background(), mt.Coll, true))
	})
}

func TestPollSignalsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var hits atomic.Int32
	done := make(chan struct{})
	go func() {
		poll(ctx, 5*time.Millisecond, func() { hits.Add(1) })
		close(done)
	}()

	assert.Eventually(t, func() bool { return hits.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poll did not stop")
	}
}
