package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"alcyxob/strength-tracker/internal/domain"
	"alcyxob/strength-tracker/internal/metrics"
	"alcyxob/strength-tracker/internal/repository"
	"alcyxob/strength-tracker/internal/storage"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

var (
	ErrMalformedImport = errors.New("malformed import file")
	ErrArchiveDisabled = errors.New("export archive storage is not configured")
	ErrInvalidArchive  = errors.New("archive key must name an export under the archive prefix")
)

const exportContentType = "application/json"

// ExportDocument is the file format of a full backup.
type ExportDocument struct {
	Workouts     []domain.WorkoutSession  `json:"workouts"`
	Measurements []domain.BodyMeasurement `json:"measurements"`
	ExportedAt   time.Time                `json:"exportedAt"`
}

// ImportReport counts what an import wrote.
type ImportReport struct {
	Workouts     int      `json:"workouts"`
	Measurements int      `json:"measurements"`
	Failed       []string `json:"failed,omitempty"`
}

// ArchiveResult names a stored export and where to download it.
type ArchiveResult struct {
	Key         string `json:"key"`
	DownloadURL string `json:"downloadUrl"`
}

// TransferService moves all tracker data in and out as one JSON document.
type TransferService interface {
	Export(ctx context.Context) (*ExportDocument, error)
	WriteExport(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, r io.Reader) (*ImportReport, error)
	ArchiveExport(ctx context.Context) (*ArchiveResult, error)
	ImportArchive(ctx context.Context, key string) (*ImportReport, error)
	DeleteArchive(ctx context.Context, key string) error
}

type transferService struct {
	workoutRepo     repository.WorkoutRepository
	measurementRepo repository.MeasurementRepository
	archive         storage.ArchiveStorage // nil when archiving is off
	exportPrefix    string
	metrics         *metrics.Manager
	now             func() time.Time
}

// NewTransferService creates a new instance of transferService. archive may be nil.
func NewTransferService(workoutRepo repository.WorkoutRepository, measurementRepo repository.MeasurementRepository, archive storage.ArchiveStorage, exportPrefix string, m *metrics.Manager) TransferService {
	if m == nil {
		m = metrics.NewTestManager()
	}
	return &transferService{
		workoutRepo:     workoutRepo,
		measurementRepo: measurementRepo,
		archive:         archive,
		exportPrefix:    exportPrefix,
		metrics:         m,
		now:             time.Now,
	}
}

// Export reads everything straight from the store.
func (s *transferService) Export(ctx context.Context) (*ExportDocument, error) {
	workouts, err := s.workoutRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("export workouts: %w", err)
	}
	measurements, err := s.measurementRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("export measurements: %w", err)
	}
	if workouts == nil {
		workouts = []domain.WorkoutSession{}
	}
	if measurements == nil {
		measurements = []domain.BodyMeasurement{}
	}
	return &ExportDocument{
		Workouts:     workouts,
		Measurements: measurements,
		ExportedAt:   s.now().UTC(),
	}, nil
}

func (s *transferService) WriteExport(ctx context.Context, w io.Writer) error {
	doc, err := s.Export(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Import validates the whole document before writing anything, then upserts
// each record by id. Failed writes do not stop the others.
func (s *transferService) Import(ctx context.Context, r io.Reader) (*ImportReport, error) {
	// 1. Parse and validate
	doc, err := parseImport(r)
	if err != nil {
		return nil, err
	}

	// 2. Write sequentially
	report := &ImportReport{}
	var errs error
	for i := range doc.Workouts {
		w := doc.Workouts[i]
		for j := range w.Exercises {
			w.Exercises[j].Sets = SanitizeSets(w.Exercises[j].Sets)
		}
		if w.Exercises == nil {
			w.Exercises = []domain.ExerciseProgress{}
		}
		err := s.workoutRepo.Upsert(ctx, &w)
		s.metrics.RemoteWrite("import_workout", err)
		if err != nil {
			report.Failed = append(report.Failed, w.ID)
			errs = multierr.Append(errs, fmt.Errorf("workout %s: %w", w.ID, err))
			continue
		}
		report.Workouts++
	}
	for i := range doc.Measurements {
		m := doc.Measurements[i]
		err := s.measurementRepo.Upsert(ctx, &m)
		s.metrics.RemoteWrite("import_measurement", err)
		if err != nil {
			report.Failed = append(report.Failed, m.ID)
			errs = multierr.Append(errs, fmt.Errorf("measurement %s: %w", m.ID, err))
			continue
		}
		report.Measurements++
	}

	log.WithFields(log.Fields{
		"workouts":     report.Workouts,
		"measurements": report.Measurements,
		"failed":       len(report.Failed),
	}).Info("import finished")
	return report, errs
}

// importDocument is the accepted import shape. Either array may be missing or null.
type importDocument struct {
	Workouts     []domain.WorkoutSession  `json:"workouts"`
	Measurements []domain.BodyMeasurement `json:"measurements"`
}

func parseImport(r io.Reader) (*importDocument, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedImport)
	}

	doc := &importDocument{}
	if msg, ok := raw["workouts"]; ok {
		if err := json.Unmarshal(msg, &doc.Workouts); err != nil {
			return nil, fmt.Errorf("%w: workouts: %v", ErrMalformedImport, err)
		}
	}
	if msg, ok := raw["measurements"]; ok {
		if err := json.Unmarshal(msg, &doc.Measurements); err != nil {
			return nil, fmt.Errorf("%w: measurements: %v", ErrMalformedImport, err)
		}
	}

	for i, w := range doc.Workouts {
		if w.ID == "" || w.DayID == "" || w.Date == "" {
			return nil, fmt.Errorf("%w: workout #%d needs id, dayId and date", ErrMalformedImport, i)
		}
	}
	for i, m := range doc.Measurements {
		if m.ID == "" || m.Date == "" {
			return nil, fmt.Errorf("%w: measurement #%d needs id and date", ErrMalformedImport, i)
		}
	}
	return doc, nil
}

// ArchiveExport stores a fresh export in object storage and returns a
// presigned link to it.
func (s *transferService) ArchiveExport(ctx context.Context) (*ArchiveResult, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	var buf bytes.Buffer
	if err := s.WriteExport(ctx, &buf); err != nil {
		return nil, err
	}

	key := path.Join(s.exportPrefix, fmt.Sprintf("strength-tracker-%s.json", s.now().UTC().Format("20060102T150405Z")))
	err := s.archive.PutObject(ctx, key, exportContentType, buf.Bytes())
	s.metrics.RemoteWrite("archive_export", err)
	if err != nil {
		return nil, fmt.Errorf("store export archive: %w", err)
	}
	url, err := s.archive.GeneratePresignedDownloadURL(ctx, key, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign export archive: %w", err)
	}
	log.WithField("key", key).Info("export archived")
	return &ArchiveResult{Key: key, DownloadURL: url}, nil
}

func (s *transferService) ImportArchive(ctx context.Context, key string) (*ImportReport, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	if key == "" {
		return nil, fmt.Errorf("%w: archive key is required", ErrMalformedImport)
	}
	body, err := s.archive.GetObject(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read export archive %s: %w", key, err)
	}
	return s.Import(ctx, bytes.NewReader(body))
}

// DeleteArchive removes a stored export. Only keys under the export prefix
// are accepted, so other objects in a shared bucket stay untouched.
func (s *transferService) DeleteArchive(ctx context.Context, key string) error {
	if s.archive == nil {
		return ErrArchiveDisabled
	}
	if !s.isArchiveKey(key) {
		return ErrInvalidArchive
	}
	err := s.archive.DeleteObject(ctx, key)
	s.metrics.RemoteWrite("archive_delete", err)
	if err != nil {
		return fmt.Errorf("delete export archive %s: %w", key, err)
	}
	log.WithField("key", key).Info("export archive deleted")
	return nil
}

func (s *transferService) isArchiveKey(key string) bool {
	if key == "" || path.Clean(key) != key || strings.HasSuffix(key, "/") {
		return false
	}
	prefix := strings.Trim(s.exportPrefix, "/")
	if prefix == "" {
		return !strings.HasPrefix(key, "/") && !strings.HasPrefix(key, "..")
	}
	return strings.HasPrefix(key, prefix+"/")
}
