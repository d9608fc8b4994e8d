package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"alcyxob/strength-tracker/internal/domain"
	"alcyxob/strength-tracker/internal/live"
	"alcyxob/strength-tracker/internal/metrics"
	"alcyxob/strength-tracker/internal/plan"
	"alcyxob/strength-tracker/internal/repository"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNoMeasurements     = errors.New("no measurements recorded")
	ErrInvalidMeasurement = errors.New("measurement values must be non-negative numbers")
)

// MeasurementService records body measurements. Measurements are only ever
// appended, never changed or removed.
type MeasurementService interface {
	Start()
	Close()
	AddMeasurement(ctx context.Context, m domain.BodyMeasurement) (*domain.BodyMeasurement, error)
	Measurements(ctx context.Context) ([]domain.BodyMeasurement, error)
	LatestMeasurement(ctx context.Context) (*domain.BodyMeasurement, error)
}

type measurementService struct {
	measurementRepo repository.MeasurementRepository
	feed            *live.Feed[domain.BodyMeasurement]
	metrics         *metrics.Manager
	loc             *time.Location
	now             func() time.Time

	startMu sync.Mutex
	release func()
}

// NewMeasurementService creates a new instance of measurementService.
// Only the clock, location and metrics of cfg are used.
func NewMeasurementService(measurementRepo repository.MeasurementRepository, cfg WorkoutServiceConfig) MeasurementService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewTestManager()
	}
	return &measurementService{
		measurementRepo: measurementRepo,
		feed:            live.NewFeed[domain.BodyMeasurement]("measurements", measurementRepo.List, measurementRepo.Changes),
		metrics:         cfg.Metrics,
		loc:             cfg.Location,
		now:             cfg.Now,
	}
}

func (s *measurementService) Start() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.release == nil {
		s.release = s.feed.Acquire()
	}
}

func (s *measurementService) Close() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

// AddMeasurement stores a new measurement with a fresh id. An empty date
// means today.
func (s *measurementService) AddMeasurement(ctx context.Context, m domain.BodyMeasurement) (*domain.BodyMeasurement, error) {
	if m.Date == "" {
		m.Date = plan.FormatDate(s.now().In(s.loc))
	}
	if _, err := plan.ParseDate(m.Date, s.loc); err != nil {
		return nil, ErrInvalidDate
	}
	for _, v := range m.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, ErrInvalidMeasurement
		}
	}

	id, err := newDocumentID("measurement", s.now())
	if err != nil {
		return nil, err
	}
	m.ID = id

	err = s.measurementRepo.Create(ctx, &m)
	s.metrics.RemoteWrite("add_measurement", err)
	if err != nil {
		return nil, fmt.Errorf("add measurement: %w", err)
	}
	s.feed.Refresh(ctx)
	log.WithFields(log.Fields{"measurement": m.ID, "date": m.Date}).Info("measurement added")
	return &m, nil
}

// Measurements lists every measurement, newest date first.
func (s *measurementService) Measurements(ctx context.Context) ([]domain.BodyMeasurement, error) {
	return s.feed.Snapshot(ctx)
}

// LatestMeasurement returns the measurement with the greatest date. On equal
// dates the one listed first by the store wins.
func (s *measurementService) LatestMeasurement(ctx context.Context) (*domain.BodyMeasurement, error) {
	all, err := s.Measurements(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNoMeasurements
	}
	latest := all[0]
	for _, m := range all[1:] {
		if m.Date > latest.Date {
			latest = m
		}
	}
	return &latest, nil
}
