package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"alcyxob/strength-tracker/internal/domain"
	"alcyxob/strength-tracker/internal/repository"
)

// WorkoutRepository implements repository.WorkoutRepository in memory.
type WorkoutRepository struct {
	mu        sync.RWMutex
	docs      map[string]domain.WorkoutSession
	uniqueDay bool
	changes   broadcaster
}

var _ repository.WorkoutRepository = (*WorkoutRepository)(nil)

// NewWorkoutRepository creates an empty repository. With uniqueDaySessions set
// it rejects a second session for the same (dayId, date), like the optional
// Mongo unique index.
func NewWorkoutRepository(uniqueDaySessions bool) *WorkoutRepository {
	return &WorkoutRepository{
		docs:      make(map[string]domain.WorkoutSession),
		uniqueDay: uniqueDaySessions,
	}
}

func (r *WorkoutRepository) Create(_ context.Context, session *domain.WorkoutSession) error {
	if session == nil || session.ID == "" {
		return errors.New("workout session requires an id")
	}
	r.mu.Lock()
	if _, exists := r.docs[session.ID]; exists {
		r.mu.Unlock()
		return repository.ErrDuplicate
	}
	if r.violatesUniqueDay(session) {
		r.mu.Unlock()
		return repository.ErrDuplicate
	}
	r.docs[session.ID] = session.Clone()
	r.mu.Unlock()

	r.changes.notify()
	return nil
}

// violatesUniqueDay must be called with r.mu held.
func (r *WorkoutRepository) violatesUniqueDay(session *domain.WorkoutSession) bool {
	if !r.uniqueDay {
		return false
	}
	for id, doc := range r.docs {
		if id != session.ID && doc.DayID == session.DayID && doc.Date == session.Date {
			return true
		}
	}
	return false
}

func (r *WorkoutRepository) GetByID(_ context.Context, id string) (*domain.WorkoutSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := doc.Clone()
	return &out, nil
}

func (r *WorkoutRepository) List(_ context.Context) ([]domain.WorkoutSession, error) {
	r.mu.RLock()
	out := make([]domain.WorkoutSession, 0, len(r.docs))
	for _, doc := range r.docs {
		out = append(out, doc.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *WorkoutRepository) FindByDayAndDate(ctx context.Context, dayID, date string) ([]domain.WorkoutSession, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.WorkoutSession
	for _, doc := range all {
		if doc.DayID == dayID && doc.Date == date {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *WorkoutRepository) ReplaceExercises(_ context.Context, id string, expectedVersion int64, exercises []domain.ExerciseProgress) error {
	r.mu.Lock()
	doc, ok := r.docs[id]
	if !ok {
		r.mu.Unlock()
		return repository.ErrNotFound
	}
	if doc.Version != expectedVersion {
		r.mu.Unlock()
		return repository.ErrVersionConflict
	}
	doc.Exercises = domain.WorkoutSession{Exercises: exercises}.Clone().Exercises
	doc.Version++
	r.docs[id] = doc
	r.mu.Unlock()

	r.changes.notify()
	return nil
}

func (r *WorkoutRepository) SetCompleted(_ context.Context, id string) error {
	r.mu.Lock()
	doc, ok := r.docs[id]
	if !ok {
		r.mu.Unlock()
		return repository.ErrNotFound
	}
	doc.Completed = true
	doc.Version++
	r.docs[id] = doc
	r.mu.Unlock()

	r.changes.notify()
	return nil
}

func (r *WorkoutRepository) Upsert(_ context.Context, session *domain.WorkoutSession) error {
	if session == nil || session.ID == "" {
		return errors.New("workout session requires an id")
	}
	r.mu.Lock()
	if r.violatesUniqueDay(session) {
		r.mu.Unlock()
		return repository.ErrDuplicate
	}
	r.docs[session.ID] = session.Clone()
	r.mu.Unlock()

	r.changes.notify()
	return nil
}

func (r *WorkoutRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.docs[id]; !ok {
		r.mu.Unlock()
		return repository.ErrNotFound
	}
	delete(r.docs, id)
	r.mu.Unlock()

	r.changes.notify()
	return nil
}

func (r *WorkoutRepository) Changes(ctx context.Context) (<-chan struct{}, error) {
	return r.changes.subscribe(ctx), nil
}
