// Package stats derives totals, streaks and records from workout sessions.
// Everything is recomputed from the full collection on each call.
package stats

import (
	"math"
	"sort"
	"time"

	"alcyxob/strength-tracker/internal/domain"
	"alcyxob/strength-tracker/internal/plan"
)

// TotalTonnage sums reps × weight over every completed set of every session.
func TotalTonnage(sessions []domain.WorkoutSession) float64 {
	var total float64
	for _, s := range sessions {
		for _, ex := range s.Exercises {
			for _, set := range ex.Sets {
				if set.Completed {
					total += float64(set.Reps) * set.Weight
				}
			}
		}
	}
	return total
}

// CompletedCount counts finished sessions.
func CompletedCount(sessions []domain.WorkoutSession) int {
	n := 0
	for _, s := range sessions {
		if s.Completed {
			n++
		}
	}
	return n
}

// TrainingStreak counts consecutive calendar days with a completed session,
// walking back from today. Today without a session does not end the walk;
// any earlier gap does.
func TrainingStreak(sessions []domain.WorkoutSession, today time.Time) int {
	done := make(map[string]bool)
	for _, s := range sessions {
		if s.Completed {
			done[s.Date] = true
		}
	}
	if len(done) == 0 {
		return 0
	}

	streak := 0
	for i := 0; ; i++ {
		date := plan.FormatDate(today.AddDate(0, 0, -i))
		if done[date] {
			streak++
			continue
		}
		if i > 0 {
			return streak
		}
	}
}

// LoggedSet is one completed working set as shown in record history.
type LoggedSet struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

// DateHistory groups the sets logged for an exercise on one date.
type DateHistory struct {
	Date string      `json:"date"`
	Sets []LoggedSet `json:"sets"`
}

// PersonalRecord is the heaviest completed working set of an exercise and
// its history in chronological order.
type PersonalRecord struct {
	ExerciseID string        `json:"exerciseId"`
	Name       string        `json:"name"`
	MaxWeight  float64       `json:"maxWeight"`
	History    []DateHistory `json:"history"`
}

// PersonalRecords builds a record for every exercise with at least one
// completed working set. Warm-up sets never count.
func PersonalRecords(sessions []domain.WorkoutSession) map[string]PersonalRecord {
	records := make(map[string]PersonalRecord)
	for _, s := range chronological(sessions) {
		for _, ex := range s.Exercises {
			for _, set := range ex.Sets {
				if !set.Completed || set.Warmup() {
					continue
				}
				rec, ok := records[ex.ExerciseID]
				if !ok {
					rec = PersonalRecord{ExerciseID: ex.ExerciseID, Name: plan.ExerciseName(ex.ExerciseID)}
				}
				if set.Weight > rec.MaxWeight {
					rec.MaxWeight = set.Weight
				}
				logged := LoggedSet{Weight: set.Weight, Reps: set.Reps}
				if n := len(rec.History); n > 0 && rec.History[n-1].Date == s.Date {
					rec.History[n-1].Sets = append(rec.History[n-1].Sets, logged)
				} else {
					rec.History = append(rec.History, DateHistory{Date: s.Date, Sets: []LoggedSet{logged}})
				}
				records[ex.ExerciseID] = rec
			}
		}
	}
	return records
}

// BestLift is the single heaviest completed working set across all exercises.
type BestLift struct {
	ExerciseID string  `json:"exerciseId"`
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
}

// FindBestLift returns the heaviest completed working set; the earliest one
// wins a tie. ok is false when nothing has been lifted yet.
func FindBestLift(sessions []domain.WorkoutSession) (best BestLift, ok bool) {
	for _, s := range chronological(sessions) {
		for _, ex := range s.Exercises {
			for _, set := range ex.Sets {
				if set.Completed && !set.Warmup() && set.Weight > best.Weight {
					best = BestLift{ExerciseID: ex.ExerciseID, Name: plan.ExerciseName(ex.ExerciseID), Weight: set.Weight}
					ok = true
				}
			}
		}
	}
	return best, ok
}

// Progress is the share of the whole program already completed.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// PlanProgress measures completed sessions against the 12-week plan.
func PlanProgress(sessions []domain.WorkoutSession) Progress {
	total := plan.Weeks * plan.SessionsPerWeek
	completed := CompletedCount(sessions)
	percent := int(math.Round(float64(completed) / float64(total) * 100))
	if percent > 100 {
		percent = 100
	}
	return Progress{Completed: completed, Total: total, Percent: percent}
}

// WorkingSetRatio counts completed and total working sets of an exercise.
func WorkingSetRatio(ex domain.ExerciseProgress) (completed, total int) {
	for _, set := range ex.Sets {
		if set.Warmup() {
			continue
		}
		total++
		if set.Completed {
			completed++
		}
	}
	return completed, total
}

// Summary feeds the dashboard.
type Summary struct {
	TotalSessions     int                     `json:"totalSessions"`
	CompletedWorkouts int                     `json:"completedWorkouts"`
	TotalTonnage      float64                 `json:"totalTonnage"`
	Streak            int                     `json:"streak"`
	Progress          Progress                `json:"progress"`
	BestLift          *BestLift               `json:"bestLift,omitempty"`
	LatestMeasurement *domain.BodyMeasurement `json:"latestMeasurement,omitempty"`
}

// Summarize computes every dashboard figure.
func Summarize(sessions []domain.WorkoutSession, latest *domain.BodyMeasurement, today time.Time) Summary {
	summary := Summary{
		TotalSessions:     len(sessions),
		CompletedWorkouts: CompletedCount(sessions),
		TotalTonnage:      TotalTonnage(sessions),
		Streak:            TrainingStreak(sessions, today),
		Progress:          PlanProgress(sessions),
		LatestMeasurement: latest,
	}
	if best, ok := FindBestLift(sessions); ok {
		summary.BestLift = &best
	}
	return summary
}

// chronological orders sessions by date, then id, without touching the input.
func chronological(sessions []domain.WorkoutSession) []domain.WorkoutSession {
	out := make([]domain.WorkoutSession, len(sessions))
	copy(out, sessions)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}
