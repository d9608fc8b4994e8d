package service

import (
	"testing"

	"alcyxob/strength-tracker/internal/domain"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func TestSetsFromInput_Defaults(t *testing.T) {
	sets := SetsFromInput([]domain.SetInput{
		{},
		{Reps: intPtr(8), IsWarmup: boolPtr(true)},
		{Weight: floatPtr(42.5), Completed: boolPtr(true)},
	})

	assert.Equal(t, []domain.SetData{
		{},
		{Reps: 8, IsWarmup: boolPtr(true)},
		{Weight: 42.5, Completed: true},
	}, sets)
}

func TestSanitizeSets_Idempotent(t *testing.T) {
	faker := gofakeit.New(5)
	for round := 0; round < 200; round++ {
		var sets []domain.SetData
		for i := 0; i < faker.IntRange(0, 8); i++ {
			set := domain.SetData{
				Reps:      faker.IntRange(-5, 20),
				Weight:    faker.Float64Range(-50, 200),
				Completed: faker.Bool(),
			}
			if faker.Bool() {
				set.IsWarmup = boolPtr(faker.Bool())
			}
			sets = append(sets, set)
		}

		once := SanitizeSets(sets)
		assert.Equal(t, once, SanitizeSets(once))

		warmups := 0
		for i, s := range once {
			assert.GreaterOrEqual(t, s.Reps, 0)
			assert.GreaterOrEqual(t, s.Weight, 0.0)
			assert.Equal(t, sets[i].IsWarmup == nil, s.IsWarmup == nil)
			if s.Warmup() {
				warmups++
			}
		}
		assert.LessOrEqual(t, warmups, 1)
	}
}

func TestMergeExercise(t *testing.T) {
	existing := []domain.ExerciseProgress{
		{ExerciseID: "ex-1-1", Sets: []domain.SetData{{Reps: 1}}},
		{ExerciseID: "ex-1-2"},
		{ExerciseID: "ex-1-1", Sets: []domain.SetData{{Reps: 2}}},
	}

	merged := MergeExercise(existing, domain.ExerciseProgress{ExerciseID: "ex-1-1", Sets: []domain.SetData{{Reps: 9}}})
	assert.Equal(t, []domain.ExerciseProgress{
		{ExerciseID: "ex-1-1", Sets: []domain.SetData{{Reps: 9}}},
		{ExerciseID: "ex-1-2"},
	}, merged)

	appended := MergeExercise(existing[:2], domain.ExerciseProgress{ExerciseID: "ex-1-3"})
	assert.Len(t, appended, 3)
	assert.Equal(t, "ex-1-3", appended[2].ExerciseID)
}

func TestPreferSession(t *testing.T) {
	empty := domain.WorkoutSession{ID: "workout-z", Completed: true}
	loggedOpen := domain.WorkoutSession{ID: "workout-a", Exercises: logged("ex-1-1")}
	loggedDone := domain.WorkoutSession{ID: "workout-b", Exercises: logged("ex-1-1"), Completed: true}

	assert.True(t, PreferSession(loggedOpen, empty))
	assert.True(t, PreferSession(loggedDone, loggedOpen))
	assert.True(t, PreferSession(domain.WorkoutSession{ID: "workout-b"}, domain.WorkoutSession{ID: "workout-a"}))
	assert.False(t, PreferSession(empty, empty))
}
