package service

import (
	"math"

	"alcyxob/strength-tracker/internal/domain"
)

// SetsFromInput turns client input into concrete sets. Absent reps, weight
// and completed default to 0, 0 and false; isWarmup stays absent unless given.
func SetsFromInput(inputs []domain.SetInput) []domain.SetData {
	sets := make([]domain.SetData, 0, len(inputs))
	for _, in := range inputs {
		var set domain.SetData
		if in.Reps != nil {
			set.Reps = *in.Reps
		}
		if in.Weight != nil {
			set.Weight = *in.Weight
		}
		if in.Completed != nil {
			set.Completed = *in.Completed
		}
		if in.IsWarmup != nil {
			w := *in.IsWarmup
			set.IsWarmup = &w
		}
		sets = append(sets, set)
	}
	return SanitizeSets(sets)
}

// SanitizeSets returns a copy safe to store: negative or non-finite numbers
// become 0 and only the first set flagged as warm-up keeps a true flag.
// Applying it twice gives the same result as applying it once.
func SanitizeSets(sets []domain.SetData) []domain.SetData {
	out := make([]domain.SetData, 0, len(sets))
	seenWarmup := false
	for _, set := range sets {
		clean := domain.SetData{
			Reps:      set.Reps,
			Weight:    set.Weight,
			Completed: set.Completed,
		}
		if clean.Reps < 0 {
			clean.Reps = 0
		}
		if math.IsNaN(clean.Weight) || math.IsInf(clean.Weight, 0) || clean.Weight < 0 {
			clean.Weight = 0
		}
		if set.IsWarmup != nil {
			warmup := *set.IsWarmup
			if warmup && seenWarmup {
				warmup = false
			}
			seenWarmup = seenWarmup || warmup
			clean.IsWarmup = &warmup
		}
		out = append(out, clean)
	}
	return out
}

// MergeExercise replaces the entry for entry.ExerciseID, or appends it when
// the exercise was not logged yet. Stray duplicate entries for the same
// exercise are dropped so the result holds at most one per exercise.
func MergeExercise(existing []domain.ExerciseProgress, entry domain.ExerciseProgress) []domain.ExerciseProgress {
	out := make([]domain.ExerciseProgress, 0, len(existing)+1)
	replaced := false
	for _, ex := range existing {
		if ex.ExerciseID != entry.ExerciseID {
			out = append(out, ex)
			continue
		}
		if !replaced {
			out = append(out, entry)
			replaced = true
		}
	}
	if !replaced {
		out = append(out, entry)
	}
	return out
}

// PreferSession reports whether a should be kept over b when both record the
// same training day on the same date: logged exercises win, then completion,
// then the greater id.
func PreferSession(a, b domain.WorkoutSession) bool {
	aLogged, bLogged := len(a.Exercises) > 0, len(b.Exercises) > 0
	if aLogged != bLogged {
		return aLogged
	}
	if a.Completed != b.Completed {
		return a.Completed
	}
	return a.ID > b.ID
}

// preferred picks the session to show out of same-day duplicates and returns
// a private copy of it. The choice does not depend on the order of sessions.
func preferred(sessions []domain.WorkoutSession) (domain.WorkoutSession, bool) {
	if len(sessions) == 0 {
		return domain.WorkoutSession{}, false
	}
	best := sessions[0]
	for _, s := range sessions[1:] {
		if PreferSession(s, best) {
			best = s
		}
	}
	return best.Clone(), true
}
