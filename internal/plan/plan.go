// Package plan holds the static 3-day, 12-week strength program.
// It is read-only reference data; nothing here touches storage.
package plan

import (
	"regexp"
	"strconv"

	"alcyxob/strength-tracker/internal/domain"
)

// Day identifiers. Monday, Wednesday and Friday map to these in order.
const (
	DayOne   = "day-1"
	DayTwo   = "day-2"
	DayThree = "day-3"
)

// Instruction is one coaching cue shown with an exercise.
type Instruction struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Exercise describes one movement of a training day.
type Exercise struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	TargetSets    string        `json:"sets"` // e.g. "3 x 6-8"
	Instructions  []Instruction `json:"instructions"`
	IsSuperset    bool          `json:"isSuperset,omitempty"`
	SupersetGroup string        `json:"supersetGroup,omitempty"`
}

// Day is one training day of the week.
type Day struct {
	ID        string     `json:"id"`
	DayName   string     `json:"dayName"`
	Focus     string     `json:"focus"`
	Exercises []Exercise `json:"exercises"`
}

var setCountPattern = regexp.MustCompile(`^(\d+)`)

// SetCount is the number of working sets prescribed, parsed from the leading
// number of TargetSets. Defaults to 3 when the target does not start with one.
func (e Exercise) SetCount() int {
	m := setCountPattern.FindStringSubmatch(e.TargetSets)
	if m == nil {
		return 3
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 3
	}
	return n
}

// EmptySets returns SetCount zeroed, uncompleted sets.
func (e Exercise) EmptySets() []domain.SetData {
	sets := make([]domain.SetData, e.SetCount())
	return sets
}

var days = []Day{
	{
		ID:      DayOne,
		DayName: "Monday",
		Focus:   "Chest / Squat / Mid Back",
		Exercises: []Exercise{
			{
				ID:         "ex-1-1",
				Name:       "Dumbbell Press (Low Incline)",
				TargetSets: "3 x 6-8",
				Instructions: []Instruction{
					{Title: "Setup (Phone Test)", Content: "Lay your phone flat on your sternum. If it slides toward your face, your sternum is steep: raise the bench a notch."},
					{Title: "Execution (Arrow Shape)", Content: "Do not flare the elbows into a T. Tuck them slightly toward the torso into an arrow shape."},
				},
			},
			{
				ID:         "ex-1-2",
				Name:       "Barbell Squat (High Bar)",
				TargetSets: "3 x 6-8",
				Instructions: []Instruction{
					{Title: "Build", Content: "Long femurs mean more forward lean. Put small plates under your heels."},
					{Title: "Stance", Content: "Jump in place and land stable. That is your natural squat stance."},
				},
			},
			{
				ID:         "ex-1-3",
				Name:       "Chest-Supported Dumbbell Row",
				TargetSets: "3 x 6-8",
				Instructions: []Instruction{
					{Title: "Setup", Content: "Bench at 30-45 degrees, chest on the pad. This removes torso swing."},
					{Title: "Movement (Upper Back)", Content: "Drive the elbows wide and squeeze the shoulder blades together at the top."},
				},
			},
			{
				ID:         "ex-1-4",
				Name:       "Seated Leg Curl",
				TargetSets: "3 x 8-12",
				Instructions: []Instruction{
					{Title: "Why seated?", Content: "It stretches the hamstrings more than the lying version."},
					{Title: "Pro tip", Content: "Lean the torso slightly forward to load the posterior chain harder."},
				},
			},
			{
				ID:            "ex-1-5a",
				Name:          "Incline Supinated Dumbbell Curl",
				TargetSets:    "3 x 10-12",
				IsSuperset:    true,
				SupersetGroup: "5",
				Instructions: []Instruction{
					{Title: "Superset: Biceps + Triceps", Content: "Keep the elbows behind the torso line. Stretch the biceps at the bottom."},
				},
			},
			{
				ID:            "ex-1-5b",
				Name:          "Overhead Triceps Extension",
				TargetSets:    "3 x 10-12",
				IsSuperset:    true,
				SupersetGroup: "5",
				Instructions: []Instruction{
					{Title: "Triceps", Content: "Elbows by the ears. Lower the weight deep behind the head."},
				},
			},
		},
	},
	{
		ID:      DayTwo,
		DayName: "Wednesday",
		Focus:   "Wide Back / Hamstrings",
		Exercises: []Exercise{
			{
				ID:         "ex-2-1",
				Name:       "Flat Barbell/Dumbbell Press",
				TargetSets: "3 x 6-8",
				Instructions: []Instruction{
					{Title: "Stability", Content: "Pull the shoulder blades down and back. Drive the feet into the floor."},
					{Title: "Bar path", Content: "Lower the bar to nipple line or slightly below."},
				},
			},
			{
				ID:         "ex-2-2",
				Name:       "Romanian Deadlift (RDL)",
				TargetSets: "3 x 6-8",
				Instructions: []Instruction{
					{Title: "Hinge", Content: "Imagine closing a car door with your glutes. Knees slightly bent."},
					{Title: "Range", Content: "Lower only until the hips stop travelling back."},
				},
			},
			{
				ID:         "ex-2-3",
				Name:       "Wide-Grip Lat Pulldown",
				TargetSets: "3 x 8-10",
				Instructions: []Instruction{
					{Title: "Hands as hooks", Content: "Treat the hands as hooks and pull with the elbows."},
					{Title: "Target", Content: "Pull the bar to the upper chest, toward the collarbones."},
				},
			},
			{
				ID:         "ex-2-4",
				Name:       "Walking Lunges",
				TargetSets: "3 x 10/leg",
				Instructions: []Instruction{
					{Title: "Glute focus", Content: "Lean the torso slightly forward to bias the glutes."},
					{Title: "Safety", Content: "Stop the back knee a centimetre above the floor."},
				},
			},
			{
				ID:            "ex-2-5a",
				Name:          "Prone Y-Raise",
				TargetSets:    "3 x 10-15",
				IsSuperset:    true,
				SupersetGroup: "5",
				Instructions: []Instruction{
					{Title: "Superset: Shoulders + Core", Content: "Raise the dumbbells wide, forming a Y."},
				},
			},
			{
				ID:            "ex-2-5b",
				Name:          "Dead Bug",
				TargetSets:    "3 x MAX",
				IsSuperset:    true,
				SupersetGroup: "5",
				Instructions: []Instruction{
					{Title: "Core", Content: "Press the lower back into the mat. Lower opposite arm and leg alternately."},
				},
			},
		},
	},
	{
		ID:      DayThree,
		DayName: "Friday",
		Focus:   "Shoulders / Single Leg / Details",
		Exercises: []Exercise{
			{
				ID:         "ex-3-1",
				Name:       "Seated Dumbbell Overhead Press",
				TargetSets: "3 x 6-8",
				Instructions: []Instruction{
					{Title: "Bench angle", Content: "Do not set the back rest fully upright. Drop it one notch (about 75-80 degrees)."},
					{Title: "Elbow position", Content: "Elbows slightly in front of the body, not straight out to the sides."},
				},
			},
			{
				ID:         "ex-3-2",
				Name:       "Single-Arm Dumbbell Row (Lats)",
				TargetSets: "3 x 6-8",
				Instructions: []Instruction{
					{Title: "Sweep", Content: "Pull the dumbbell in an arc toward the hip."},
					{Title: "Isolation", Content: "Do not rotate the torso. Shoulders parallel to the floor."},
				},
			},
			{
				ID:         "ex-3-3",
				Name:       "Hip Thrust",
				TargetSets: "3 x 8-10",
				Instructions: []Instruction{
					{Title: "Lockout", Content: "Squeeze the glutes at the top."},
					{Title: "Stability", Content: "Upper back on the bench at shoulder-blade height."},
				},
			},
			{
				ID:         "ex-3-4",
				Name:       "Bulgarian Split Squat",
				TargetSets: "3 x 8/leg",
				Instructions: []Instruction{
					{Title: "Setup", Content: "Back foot on the bench, front foot planted on the floor."},
					{Title: "Focus", Content: "Keep the torso upright for the whole rep."},
				},
			},
			{
				ID:            "ex-3-5a",
				Name:          "Standing Lateral Raise",
				TargetSets:    "3 x 12-15",
				IsSuperset:    true,
				SupersetGroup: "5",
				Instructions: []Instruction{
					{Title: "Superset: Shoulders + Calves", Content: "Controlled reps, no momentum."},
				},
			},
			{
				ID:            "ex-3-5b",
				Name:          "Standing Calf Raise",
				TargetSets:    "3 x 15-20",
				IsSuperset:    true,
				SupersetGroup: "5",
				Instructions: []Instruction{
					{Title: "Calves", Content: "Full range: from a deep stretch to a hard squeeze."},
				},
			},
		},
	},
}

// Days returns the training days in weekly order.
func Days() []Day {
	out := make([]Day, len(days))
	copy(out, days)
	return out
}

// ValidDay reports whether id is one of the three training days.
func ValidDay(id string) bool {
	_, ok := LookupDay(id)
	return ok
}

// LookupDay returns the day with the given id.
func LookupDay(id string) (Day, bool) {
	for _, d := range days {
		if d.ID == id {
			return d, true
		}
	}
	return Day{}, false
}

// LookupExercise finds an exercise by id and reports the day it belongs to.
func LookupExercise(id string) (Exercise, string, bool) {
	for _, d := range days {
		for _, ex := range d.Exercises {
			if ex.ID == id {
				return ex, d.ID, true
			}
		}
	}
	return Exercise{}, "", false
}

// ExerciseName returns the display name of an exercise, or "Unknown".
func ExerciseName(id string) string {
	if ex, _, ok := LookupExercise(id); ok {
		return ex.Name
	}
	return "Unknown"
}
