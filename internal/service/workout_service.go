package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"alcyxob/strength-tracker/internal/domain"
	"alcyxob/strength-tracker/internal/live"
	"alcyxob/strength-tracker/internal/metrics"
	"alcyxob/strength-tracker/internal/plan"
	"alcyxob/strength-tracker/internal/repository"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// --- Error Definitions ---
var (
	ErrMissingSessionID = errors.New("missing workout session id")
	ErrSessionNotFound  = errors.New("workout session not found")
	ErrInvalidDay       = errors.New("invalid training day")
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrReadOnlyDate     = errors.New("past dates are read-only")
	ErrUnknownExercise  = errors.New("unknown exercise")
	ErrWriteConflict    = errors.New("workout session kept changing, write abandoned")
)

const defaultMaxWriteAttempts = 3

// WorkoutService is the synchronization core for workout sessions. Reads go
// through a live mirror of the workouts collection; exercise writes read the
// stored document and replace its exercises with a version check.
type WorkoutService interface {
	// Start holds the live mirror open until Close.
	Start()
	Close()
	Subscribe(fn func([]domain.WorkoutSession)) (unsubscribe func())
	Workouts(ctx context.Context) ([]domain.WorkoutSession, error)
	Today() string

	CreateSession(ctx context.Context, dayID, date string) (session *domain.WorkoutSession, created bool, err error)
	GetSession(ctx context.Context, sessionID string) (*domain.WorkoutSession, error)
	UpdateExerciseProgress(ctx context.Context, sessionID, exerciseID string, sets []domain.SetData, notes *string) (*domain.WorkoutSession, error)
	CompleteWorkout(ctx context.Context, sessionID string) error

	GetTodaysWorkout(ctx context.Context, dayID string) (*domain.WorkoutSession, error)
	GetWorkoutForDate(ctx context.Context, dayID, date string) (*domain.WorkoutSession, error)
	GetWorkoutsByDay(ctx context.Context, dayID string) ([]domain.WorkoutSession, error)
	GetLatestWorkout(ctx context.Context, dayID string) (*domain.WorkoutSession, error)
	CleanupDuplicateSessions(ctx context.Context) (deleted int, err error)
}

// WorkoutServiceConfig tunes the workout service. Zero values pick defaults.
type WorkoutServiceConfig struct {
	MaxWriteAttempts int
	Location         *time.Location
	Now              func() time.Time
	Metrics          *metrics.Manager
}

// workoutService implements the WorkoutService interface.
type workoutService struct {
	workoutRepo repository.WorkoutRepository
	feed        *live.Feed[domain.WorkoutSession]
	metrics     *metrics.Manager

	maxAttempts int
	loc         *time.Location
	now         func() time.Time

	// serializes the dedup check and insert of CreateSession within this process
	createMu sync.Mutex

	startMu sync.Mutex
	release func()
}

// NewWorkoutService creates a new instance of workoutService.
func NewWorkoutService(workoutRepo repository.WorkoutRepository, cfg WorkoutServiceConfig) WorkoutService {
	if cfg.MaxWriteAttempts <= 0 {
		cfg.MaxWriteAttempts = defaultMaxWriteAttempts
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewTestManager()
	}
	return &workoutService{
		workoutRepo: workoutRepo,
		feed:        live.NewFeed[domain.WorkoutSession]("workouts", workoutRepo.List, workoutRepo.Changes),
		metrics:     cfg.Metrics,
		maxAttempts: cfg.MaxWriteAttempts,
		loc:         cfg.Location,
		now:         cfg.Now,
	}
}

// === Subscription ===

func (s *workoutService) Start() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.release == nil {
		s.release = s.feed.Acquire()
	}
}

func (s *workoutService) Close() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

func (s *workoutService) Subscribe(fn func([]domain.WorkoutSession)) func() {
	return s.feed.Subscribe(fn)
}

// Workouts returns every session, newest date first.
func (s *workoutService) Workouts(ctx context.Context) ([]domain.WorkoutSession, error) {
	return s.feed.Snapshot(ctx)
}

// Today is the current date on the local wall clock.
func (s *workoutService) Today() string {
	return plan.FormatDate(s.now().In(s.loc))
}

// === Writes ===

// CreateSession starts a session for dayID on date (today when empty). When
// the mirror already holds one for that day and date it is returned with
// created=false. Another process can still insert a duplicate between the
// check and the write; CleanupDuplicateSessions removes those afterwards.
func (s *workoutService) CreateSession(ctx context.Context, dayID, date string) (*domain.WorkoutSession, bool, error) {
	// 1. Validate Input
	if !plan.ValidDay(dayID) {
		return nil, false, ErrInvalidDay
	}
	today := s.Today()
	if date == "" {
		date = today
	}
	if _, err := plan.ParseDate(date, s.loc); err != nil {
		return nil, false, ErrInvalidDate
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	// 2. Dedup against the mirror
	existing, err := s.sessionsFor(ctx, dayID, date)
	if err != nil {
		return nil, false, err
	}
	if found, ok := preferred(existing); ok {
		return &found, false, nil
	}
	if date < today {
		// past days can be viewed and edited, never started
		return nil, false, ErrReadOnlyDate
	}

	// 3. Write a fresh session
	id, err := newDocumentID("workout", s.now())
	if err != nil {
		return nil, false, err
	}
	session := &domain.WorkoutSession{
		ID:        id,
		DayID:     dayID,
		Date:      date,
		Exercises: []domain.ExerciseProgress{},
		Completed: false,
	}
	err = s.workoutRepo.Create(ctx, session)
	s.metrics.RemoteWrite("create_session", err)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// the store enforces one session per day and date
			stored, findErr := s.workoutRepo.FindByDayAndDate(ctx, dayID, date)
			if findErr == nil {
				if found, ok := preferred(stored); ok {
					return &found, false, nil
				}
			}
		}
		return nil, false, fmt.Errorf("create workout session: %w", err)
	}

	s.feed.Refresh(ctx)
	log.WithFields(log.Fields{"session": session.ID, "day": dayID, "date": date}).Info("workout session created")
	return session, true, nil
}

// GetSession reads a session straight from the store.
func (s *workoutService) GetSession(ctx context.Context, sessionID string) (*domain.WorkoutSession, error) {
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}
	session, err := s.workoutRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("fetch workout session: %w", err)
	}
	return session, nil
}

// UpdateExerciseProgress merges one exercise into the stored session and
// writes the whole exercises array back. The write only lands if nobody
// changed the session since it was read; otherwise it is re-read and retried.
func (s *workoutService) UpdateExerciseProgress(ctx context.Context, sessionID, exerciseID string, sets []domain.SetData, notes *string) (*domain.WorkoutSession, error) {
	// 1. Validate Input before any I/O
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}
	if _, _, ok := plan.LookupExercise(exerciseID); !ok {
		return nil, ErrUnknownExercise
	}

	entry := domain.ExerciseProgress{ExerciseID: exerciseID, Sets: SanitizeSets(sets)}
	if notes != nil {
		n := *notes
		entry.Notes = &n
	}

	logger := log.WithFields(log.Fields{"session": sessionID, "exercise": exerciseID})
	for attempt := 1; ; attempt++ {
		// 2. Read the stored document, not the mirror
		current, err := s.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		// 3. Merge and write with the version we read
		merged := MergeExercise(current.Exercises, entry)
		for i := range merged {
			merged[i].Sets = SanitizeSets(merged[i].Sets)
		}
		err = s.workoutRepo.ReplaceExercises(ctx, sessionID, current.Version, merged)
		switch {
		case err == nil:
			s.metrics.RemoteWrite("replace_exercises", nil)
			current.Exercises = merged
			current.Version++
			return current, nil
		case errors.Is(err, repository.ErrVersionConflict):
			s.metrics.CounterVersionConflicts.Inc()
			s.metrics.CounterRemoteWrites.WithLabelValues("replace_exercises", metrics.OutcomeConflict).Inc()
			if attempt >= s.maxAttempts {
				logger.Warnf("giving up after %d conflicting writes", attempt)
				return nil, ErrWriteConflict
			}
			logger.Debugf("version conflict on attempt %d, retrying", attempt)
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrSessionNotFound
		default:
			s.metrics.RemoteWrite("replace_exercises", err)
			return nil, fmt.Errorf("write exercise progress: %w", err)
		}
	}
}

// CompleteWorkout marks the session completed. Completing twice is harmless.
// The mirror picks the change up from the store like any other write.
func (s *workoutService) CompleteWorkout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrMissingSessionID
	}
	err := s.workoutRepo.SetCompleted(ctx, sessionID)
	s.metrics.RemoteWrite("complete", err)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("complete workout: %w", err)
	}
	log.WithField("session", sessionID).Info("workout completed")
	return nil
}

// === Reads from the mirror ===

func (s *workoutService) GetTodaysWorkout(ctx context.Context, dayID string) (*domain.WorkoutSession, error) {
	return s.GetWorkoutForDate(ctx, dayID, s.Today())
}

// GetWorkoutForDate returns the preferred session among those recorded for
// dayID on date. Repeated calls over the same collection return the same one.
func (s *workoutService) GetWorkoutForDate(ctx context.Context, dayID, date string) (*domain.WorkoutSession, error) {
	if !plan.ValidDay(dayID) {
		return nil, ErrInvalidDay
	}
	if date == "" {
		date = s.Today()
	}
	matches, err := s.sessionsFor(ctx, dayID, date)
	if err != nil {
		return nil, err
	}
	found, ok := preferred(matches)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &found, nil
}

// GetWorkoutsByDay lists every session of a training day, newest date first.
func (s *workoutService) GetWorkoutsByDay(ctx context.Context, dayID string) ([]domain.WorkoutSession, error) {
	if !plan.ValidDay(dayID) {
		return nil, ErrInvalidDay
	}
	all, err := s.Workouts(ctx)
	if err != nil {
		return nil, err
	}
	out := []domain.WorkoutSession{}
	for _, w := range all {
		if w.DayID == dayID {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// GetLatestWorkout returns the most recent session of a training day,
// resolving same-date duplicates the same way GetWorkoutForDate does.
func (s *workoutService) GetLatestWorkout(ctx context.Context, dayID string) (*domain.WorkoutSession, error) {
	byDay, err := s.GetWorkoutsByDay(ctx, dayID)
	if err != nil {
		return nil, err
	}
	if len(byDay) == 0 {
		return nil, ErrSessionNotFound
	}
	latestDate := byDay[0].Date
	var sameDate []domain.WorkoutSession
	for _, w := range byDay {
		if w.Date == latestDate {
			sameDate = append(sameDate, w)
		}
	}
	found, _ := preferred(sameDate)
	return &found, nil
}

// CleanupDuplicateSessions keeps the preferred session of every
// (date, dayId) group and deletes the rest one by one. Failed deletions do
// not stop the run; they are returned together with the number deleted.
func (s *workoutService) CleanupDuplicateSessions(ctx context.Context) (int, error) {
	all, err := s.Workouts(ctx)
	if err != nil {
		return 0, err
	}

	type key struct{ date, dayID string }
	groups := make(map[key][]domain.WorkoutSession)
	var order []key
	for _, w := range all {
		k := key{w.Date, w.DayID}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], w)
	}

	deleted := 0
	var errs error
	for _, k := range order {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		keep, _ := preferred(group)
		for _, w := range group {
			if w.ID == keep.ID {
				continue
			}
			delErr := s.workoutRepo.Delete(ctx, w.ID)
			s.metrics.RemoteWrite("delete_duplicate", delErr)
			if delErr != nil {
				errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", w.ID, delErr))
				continue
			}
			deleted++
			s.metrics.CounterDuplicatesDeleted.Inc()
			log.WithFields(log.Fields{"deleted": w.ID, "kept": keep.ID, "date": k.date, "day": k.dayID}).Info("duplicate session removed")
		}
	}

	if deleted > 0 {
		s.feed.Refresh(ctx)
	}
	return deleted, errs
}

func (s *workoutService) sessionsFor(ctx context.Context, dayID, date string) ([]domain.WorkoutSession, error) {
	all, err := s.Workouts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workout sessions: %w", err)
	}
	var out []domain.WorkoutSession
	for _, w := range all {
		if w.DayID == dayID && w.Date == date {
			out = append(out, w)
		}
	}
	return out, nil
}
