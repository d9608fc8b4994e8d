package domain

// SetData is one logged set of an exercise.
type SetData struct {
	Reps      int     `bson:"reps" json:"reps"`
	Weight    float64 `bson:"weight" json:"weight"` // kilograms, 0.5 granularity in the client
	Completed bool    `bson:"completed" json:"completed"`
	IsWarmup  *bool   `bson:"isWarmup,omitempty" json:"isWarmup,omitempty"` // only present on a flagged warm-up set
}

// Warmup reports whether the set carries a true warm-up flag.
func (s SetData) Warmup() bool {
	return s.IsWarmup != nil && *s.IsWarmup
}

// SetInput is a set as received from a client; any field may be absent.
type SetInput struct {
	Reps      *int     `json:"reps,omitempty"`
	Weight    *float64 `json:"weight,omitempty"`
	Completed *bool    `json:"completed,omitempty"`
	IsWarmup  *bool    `json:"isWarmup,omitempty"`
}

// ExerciseProgress holds the sets logged for one exercise within a session.
type ExerciseProgress struct {
	ExerciseID string    `bson:"exerciseId" json:"exerciseId"`
	Sets       []SetData `bson:"sets" json:"sets"`
	Notes      *string   `bson:"notes,omitempty" json:"notes,omitempty"` // omitted entirely when the user wrote nothing
}

// WorkoutSession represents one workout attempt for a training day on a given date.
type WorkoutSession struct {
	ID        string             `bson:"_id" json:"id"`
	DayID     string             `bson:"dayId" json:"dayId"`
	Date      string             `bson:"date" json:"date"` // YYYY-MM-DD, local wall clock
	Exercises []ExerciseProgress `bson:"exercises" json:"exercises"`
	Completed bool               `bson:"completed" json:"completed"`
	// Version is bumped on every write and checked by exercise updates.
	// Documents written before versioning decode as 0.
	Version int64 `bson:"version" json:"version,omitempty"`
}

// Exercise returns the progress entry for exerciseID, if logged.
func (w *WorkoutSession) Exercise(exerciseID string) (ExerciseProgress, bool) {
	for _, ex := range w.Exercises {
		if ex.ExerciseID == exerciseID {
			return ex, true
		}
	}
	return ExerciseProgress{}, false
}

// Clone returns a deep copy so callers can mutate without touching shared snapshots.
func (w WorkoutSession) Clone() WorkoutSession {
	out := w
	if w.Exercises != nil {
		out.Exercises = make([]ExerciseProgress, len(w.Exercises))
		for i, ex := range w.Exercises {
			out.Exercises[i] = ex.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the exercise progress.
func (e ExerciseProgress) Clone() ExerciseProgress {
	out := e
	if e.Sets != nil {
		out.Sets = make([]SetData, len(e.Sets))
		for i, s := range e.Sets {
			out.Sets[i] = s
			if s.IsWarmup != nil {
				v := *s.IsWarmup
				out.Sets[i].IsWarmup = &v
			}
		}
	}
	if e.Notes != nil {
		n := *e.Notes
		out.Notes = &n
	}
	return out
}
