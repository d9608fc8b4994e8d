package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"alcyxob/strength-tracker/internal/domain"
	"alcyxob/strength-tracker/internal/repository"
)

// MeasurementRepository implements repository.MeasurementRepository in memory.
type MeasurementRepository struct {
	mu      sync.RWMutex
	docs    map[string]domain.BodyMeasurement
	changes broadcaster
}

var _ repository.MeasurementRepository = (*MeasurementRepository)(nil)

func NewMeasurementRepository() *MeasurementRepository {
	return &MeasurementRepository{docs: make(map[string]domain.BodyMeasurement)}
}

func (r *MeasurementRepository) Create(_ context.Context, m *domain.BodyMeasurement) error {
	if m == nil || m.ID == "" {
		return errors.New("measurement requires an id")
	}
	r.mu.Lock()
	if _, exists := r.docs[m.ID]; exists {
		r.mu.Unlock()
		return repository.ErrDuplicate
	}
	r.docs[m.ID] = *m
	r.mu.Unlock()

	r.changes.notify()
	return nil
}

func (r *MeasurementRepository) List(_ context.Context) ([]domain.BodyMeasurement, error) {
	r.mu.RLock()
	out := make([]domain.BodyMeasurement, 0, len(r.docs))
	for _, doc := range r.docs {
		out = append(out, doc)
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

func (r *MeasurementRepository) Upsert(_ context.Context, m *domain.BodyMeasurement) error {
	if m == nil || m.ID == "" {
		return errors.New("measurement requires an id")
	}
	r.mu.Lock()
	r.docs[m.ID] = *m
	r.mu.Unlock()

	r.changes.notify()
	return nil
}

func (r *MeasurementRepository) Changes(ctx context.Context) (<-chan struct{}, error) {
	return r.changes.subscribe(ctx), nil
}
