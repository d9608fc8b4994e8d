package repository

import (
	"alcyxob/strength-tracker/internal/domain"
	"context"
)

// Error constants for repository layer
var (
	ErrNotFound        = RepositoryError("not found")
	ErrVersionConflict = RepositoryError("version conflict")
	ErrDuplicate       = RepositoryError("duplicate document")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// WorkoutRepository defines the interface for interacting with workout sessions.
// There are no transactions; consistency relies on the version field checked
// by ReplaceExercises.
type WorkoutRepository interface {
	// Create inserts a new session. Returns ErrDuplicate when the optional
	// (dayId, date) uniqueness constraint is enabled and violated.
	Create(ctx context.Context, session *domain.WorkoutSession) error
	GetByID(ctx context.Context, id string) (*domain.WorkoutSession, error)
	// List returns every session ordered by date descending, then id descending.
	List(ctx context.Context) ([]domain.WorkoutSession, error)
	FindByDayAndDate(ctx context.Context, dayID, date string) ([]domain.WorkoutSession, error)
	// ReplaceExercises overwrites the whole exercises array if the stored
	// version still equals expectedVersion, and bumps the version.
	ReplaceExercises(ctx context.Context, id string, expectedVersion int64, exercises []domain.ExerciseProgress) error
	SetCompleted(ctx context.Context, id string) error
	// Upsert creates or replaces the session by id.
	Upsert(ctx context.Context, session *domain.WorkoutSession) error
	Delete(ctx context.Context, id string) error
	// Changes delivers a signal after every change to the collection until ctx ends.
	Changes(ctx context.Context) (<-chan struct{}, error)
}

// MeasurementRepository defines the interface for body measurements.
// Measurements are append-only; Upsert exists for imports.
type MeasurementRepository interface {
	Create(ctx context.Context, m *domain.BodyMeasurement) error
	// List returns every measurement ordered by date descending, then id descending.
	List(ctx context.Context) ([]domain.BodyMeasurement, error)
	Upsert(ctx context.Context, m *domain.BodyMeasurement) error
	Changes(ctx context.Context) (<-chan struct{}, error)
}
