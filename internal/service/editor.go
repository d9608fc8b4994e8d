package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"alcyxob/strength-tracker/internal/debounce"
	"alcyxob/strength-tracker/internal/domain"
	"alcyxob/strength-tracker/internal/metrics"
	"alcyxob/strength-tracker/internal/plan"
	"alcyxob/strength-tracker/internal/stats"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

var (
	ErrEditorClosed  = errors.New("session editor is closed")
	ErrInvalidMode   = errors.New("invalid editor mode")
	ErrNoEditorFound = errors.New("no editor open for this session")
)

// EditorMode decides when local edits reach the store.
type EditorMode string

const (
	// ModeAutoSave writes each exercise shortly after its last edit.
	ModeAutoSave EditorMode = "autosave"
	// ModeEdit keeps edits local until SaveChanges.
	ModeEdit EditorMode = "edit"
)

const (
	defaultDebounceDelay   = 400 * time.Millisecond
	defaultCompletionGrace = 600 * time.Millisecond
	backgroundWriteTimeout = 15 * time.Second
)

// ParseEditorMode accepts "autosave", "edit" or "" (pick by session state).
func ParseEditorMode(s string) (EditorMode, error) {
	switch EditorMode(s) {
	case ModeAutoSave, ModeEdit, "":
		return EditorMode(s), nil
	default:
		return "", ErrInvalidMode
	}
}

type EditorConfig struct {
	DebounceDelay   time.Duration
	CompletionGrace time.Duration
	Metrics         *metrics.Manager
}

// EditorRegistry holds at most one editor per session.
type EditorRegistry struct {
	workouts WorkoutService
	cfg      EditorConfig

	mu      sync.Mutex
	editors map[string]*SessionEditor
}

func NewEditorRegistry(workouts WorkoutService, cfg EditorConfig) *EditorRegistry {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = defaultDebounceDelay
	}
	if cfg.CompletionGrace < 0 {
		cfg.CompletionGrace = defaultCompletionGrace
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewTestManager()
	}
	return &EditorRegistry{
		workouts: workouts,
		cfg:      cfg,
		editors:  make(map[string]*SessionEditor),
	}
}

// Open returns the session's editor, creating it from the stored session when
// none is open. An empty mode picks edit for completed sessions and auto-save
// otherwise. Opening an existing editor with another mode switches it.
func (r *EditorRegistry) Open(ctx context.Context, sessionID string, mode EditorMode) (*SessionEditor, error) {
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}

	r.mu.Lock()
	existing, ok := r.editors[sessionID]
	r.mu.Unlock()
	if ok {
		if mode != "" {
			existing.SetMode(mode)
		}
		return existing, nil
	}

	session, err := r.workouts.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ModeAutoSave
		if session.Completed {
			mode = ModeEdit
		}
	}
	editor := newSessionEditor(session, mode, r.workouts, r.cfg)

	r.mu.Lock()
	defer r.mu.Unlock()
	if raced, ok := r.editors[sessionID]; ok {
		editor.Close()
		return raced, nil
	}
	r.editors[sessionID] = editor
	r.cfg.Metrics.GaugeOpenEditors.Set(float64(len(r.editors)))
	return editor, nil
}

func (r *EditorRegistry) Get(sessionID string) (*SessionEditor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.editors[sessionID]
	return e, ok
}

// Close closes the session's editor. Pending auto-saves are dropped.
func (r *EditorRegistry) Close(sessionID string) bool {
	r.mu.Lock()
	e, ok := r.editors[sessionID]
	delete(r.editors, sessionID)
	r.cfg.Metrics.GaugeOpenEditors.Set(float64(len(r.editors)))
	r.mu.Unlock()

	if ok {
		e.Close()
	}
	return ok
}

// CloseAll closes every editor; used on shutdown.
func (r *EditorRegistry) CloseAll() {
	r.mu.Lock()
	editors := r.editors
	r.editors = make(map[string]*SessionEditor)
	r.cfg.Metrics.GaugeOpenEditors.Set(0)
	r.mu.Unlock()

	for _, e := range editors {
		e.Close()
	}
}

// SessionEditor holds the local, not yet stored state of one session.
// Local state is updated immediately and never rolled back when a write fails.
type SessionEditor struct {
	sessionID string
	workouts  WorkoutService
	debouncer *debounce.Debouncer
	grace     time.Duration
	metrics   *metrics.Manager

	mu        sync.Mutex
	mode      EditorMode
	exercises map[string]domain.ExerciseProgress
	order     []string
	dirty     map[string]bool
	edits     map[string]uint64
	writeErrs map[string]error
	completed bool
	closed    bool

	// one write per exercise at a time
	locksMu    sync.Mutex
	writeLocks map[string]*sync.Mutex
}

func newSessionEditor(session *domain.WorkoutSession, mode EditorMode, workouts WorkoutService, cfg EditorConfig) *SessionEditor {
	e := &SessionEditor{
		sessionID:  session.ID,
		workouts:   workouts,
		debouncer:  debounce.New(cfg.DebounceDelay),
		grace:      cfg.CompletionGrace,
		metrics:    cfg.Metrics,
		mode:       mode,
		exercises:  make(map[string]domain.ExerciseProgress),
		dirty:      make(map[string]bool),
		edits:      make(map[string]uint64),
		writeErrs:  make(map[string]error),
		completed:  session.Completed,
		writeLocks: make(map[string]*sync.Mutex),
	}
	for _, ex := range session.Exercises {
		if _, seen := e.exercises[ex.ExerciseID]; seen {
			continue
		}
		e.exercises[ex.ExerciseID] = ex.Clone()
		e.order = append(e.order, ex.ExerciseID)
	}
	return e
}

func (e *SessionEditor) SessionID() string { return e.sessionID }

func (e *SessionEditor) Mode() EditorMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SetMode switches between auto-save and edit mode. Entering edit mode keeps
// pending edits dirty instead of writing them; entering auto-save schedules
// every dirty exercise.
func (e *SessionEditor) SetMode(mode EditorMode) {
	e.mu.Lock()
	if e.closed || e.mode == mode {
		e.mu.Unlock()
		return
	}
	e.mode = mode
	dirty := e.dirtyLocked()
	e.mu.Unlock()

	for _, id := range dirty {
		if mode == ModeEdit {
			e.debouncer.Cancel(id)
		} else {
			e.schedule(id)
		}
	}
}

// SetExercise replaces the local state of one exercise. In auto-save mode it
// also (re)starts that exercise's save timer; other exercises are unaffected.
func (e *SessionEditor) SetExercise(exerciseID string, sets []domain.SetData, notes *string) error {
	if _, _, ok := plan.LookupExercise(exerciseID); !ok {
		return ErrUnknownExercise
	}
	entry := domain.ExerciseProgress{ExerciseID: exerciseID, Sets: SanitizeSets(sets)}
	if notes != nil {
		n := *notes
		entry.Notes = &n
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEditorClosed
	}
	if _, seen := e.exercises[exerciseID]; !seen {
		e.order = append(e.order, exerciseID)
	}
	e.exercises[exerciseID] = entry
	e.dirty[exerciseID] = true
	e.edits[exerciseID]++
	autoSave := e.mode == ModeAutoSave
	e.mu.Unlock()

	if autoSave {
		e.schedule(exerciseID)
	}
	return nil
}

func (e *SessionEditor) schedule(exerciseID string) {
	if e.debouncer.Schedule(exerciseID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundWriteTimeout)
		defer cancel()
		_ = e.flush(ctx, exerciseID)
	}) {
		e.metrics.CounterDebouncedEdits.Inc()
	}
}

// flush writes the newest local state of an exercise if it is dirty.
func (e *SessionEditor) flush(ctx context.Context, exerciseID string) error {
	lock := e.writeLock(exerciseID)
	lock.Lock()
	defer lock.Unlock()

	e.mu.Lock()
	if !e.dirty[exerciseID] {
		e.mu.Unlock()
		return nil
	}
	entry := e.exercises[exerciseID].Clone()
	edit := e.edits[exerciseID]
	e.mu.Unlock()

	_, err := e.workouts.UpdateExerciseProgress(ctx, e.sessionID, exerciseID, entry.Sets, entry.Notes)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.writeErrs[exerciseID] = err
		log.WithFields(log.Fields{"session": e.sessionID, "exercise": exerciseID}).WithError(err).Warn("exercise save failed, keeping local state")
		return err
	}
	delete(e.writeErrs, exerciseID)
	// a newer edit arrived while writing; it stays dirty for its own save
	if e.edits[exerciseID] == edit {
		delete(e.dirty, exerciseID)
	}
	return nil
}

func (e *SessionEditor) writeLock(exerciseID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	l, ok := e.writeLocks[exerciseID]
	if !ok {
		l = &sync.Mutex{}
		e.writeLocks[exerciseID] = l
	}
	return l
}

// SaveReport lists the outcome of a bulk save per exercise.
type SaveReport struct {
	Saved  []string          `json:"saved"`
	Failed map[string]string `json:"failed,omitempty"`
}

// SaveChanges writes every dirty exercise one after another. A failure does
// not stop the remaining writes; all failures come back in one error.
func (e *SessionEditor) SaveChanges(ctx context.Context) (SaveReport, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return SaveReport{}, ErrEditorClosed
	}
	dirty := e.dirtyLocked()
	e.mu.Unlock()

	report := SaveReport{Saved: []string{}}
	var errs error
	for _, id := range dirty {
		e.debouncer.Cancel(id)
		if err := e.flush(ctx, id); err != nil {
			if report.Failed == nil {
				report.Failed = make(map[string]string)
			}
			report.Failed[id] = err.Error()
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		report.Saved = append(report.Saved, id)
	}
	return report, errs
}

// Finish ends the session. In auto-save mode it waits the completion grace
// period so trailing saves can land, then marks the workout completed; it
// does not wait for those saves to finish. In edit mode it saves every
// dirty exercise.
func (e *SessionEditor) Finish(ctx context.Context) (*SaveReport, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEditorClosed
	}
	mode := e.mode
	e.mu.Unlock()

	if mode == ModeEdit {
		report, err := e.SaveChanges(ctx)
		return &report, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(e.grace):
	}

	if err := e.workouts.CompleteWorkout(ctx, e.sessionID); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.completed = true
	e.mu.Unlock()
	return nil, nil
}

// WriteErrors returns the last failed background write per exercise.
func (e *SessionEditor) WriteErrors() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.writeErrs))
	for id, err := range e.writeErrs {
		out[id] = err.Error()
	}
	return out
}

// EditorState is a copy of an editor's local state.
type EditorState struct {
	SessionID   string                    `json:"sessionId"`
	Mode        EditorMode                `json:"mode"`
	Completed   bool                      `json:"completed"`
	Exercises   []domain.ExerciseProgress `json:"exercises"`
	Dirty       []string                  `json:"dirty"`
	Pending     []string                  `json:"pending"`
	WriteErrors map[string]string         `json:"writeErrors,omitempty"`
	// Progress counts working sets per exercise; warm-ups are left out.
	Progress map[string]WorkingSets `json:"progress"`
}

// WorkingSets is the completed/total working-set counter of one exercise.
type WorkingSets struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

func (e *SessionEditor) State() EditorState {
	e.mu.Lock()
	state := EditorState{
		SessionID: e.sessionID,
		Mode:      e.mode,
		Completed: e.completed,
		Exercises: make([]domain.ExerciseProgress, 0, len(e.order)),
		Dirty:     e.dirtyLocked(),
		Progress:  make(map[string]WorkingSets, len(e.order)),
	}
	for _, id := range e.order {
		ex := e.exercises[id]
		state.Exercises = append(state.Exercises, ex.Clone())
		completed, total := stats.WorkingSetRatio(ex)
		state.Progress[id] = WorkingSets{Completed: completed, Total: total}
	}
	e.mu.Unlock()

	state.Pending = e.debouncer.PendingKeys()
	if errs := e.WriteErrors(); len(errs) > 0 {
		state.WriteErrors = errs
	}
	return state
}

// Close drops pending auto-saves without writing them and waits for writes
// already under way.
func (e *SessionEditor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	dropped := e.debouncer.PendingKeys()
	e.mu.Unlock()

	e.debouncer.Stop()
	if len(dropped) > 0 {
		log.WithFields(log.Fields{"session": e.sessionID, "dropped": dropped}).Info("editor closed with unsaved edits")
	}
}

// dirtyLocked lists dirty exercises in display order. e.mu must be held.
func (e *SessionEditor) dirtyLocked() []string {
	out := []string{}
	for _, id := range e.order {
		if e.dirty[id] {
			out = append(out, id)
		}
	}
	return out
}
