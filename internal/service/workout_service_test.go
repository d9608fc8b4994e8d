package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"alcyxob/strength-tracker/internal/domain"
	"alcyxob/strength-tracker/internal/repository/memory"
	"alcyxob/strength-tracker/internal/stats"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession_ReturnsExistingForSameDay(t *testing.T) {
	svc, repo := newTestWorkoutService(t)
	ctx := context.Background()

	first, created, err := svc.CreateSession(ctx, "day-1", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "2026-01-05", first.Date)
	assert.Regexp(t, `^workout-[0-9a-f-]{36}$`, first.ID)
	assert.Empty(t, first.Exercises)
	assert.False(t, first.Completed)

	second, created, err := svc.CreateSession(ctx, "day-1", "2026-01-05")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateSession_Validation(t *testing.T) {
	svc, repo := newTestWorkoutService(t)
	ctx := context.Background()

	_, _, err := svc.CreateSession(ctx, "day-9", "")
	assert.ErrorIs(t, err, ErrInvalidDay)

	_, _, err = svc.CreateSession(ctx, "day-1", "05/01/2026")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, _, err = svc.CreateSession(ctx, "day-1", "2026-01-02")
	assert.ErrorIs(t, err, ErrReadOnlyDate)

	// an existing past session is still handed back
	require.NoError(t, repo.Upsert(ctx, &domain.WorkoutSession{ID: "workout-old", DayID: "day-3", Date: "2026-01-02", Exercises: []domain.ExerciseProgress{}}))
	old, created, err := svc.CreateSession(ctx, "day-3", "2026-01-02")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "workout-old", old.ID)

	future, created, err := svc.CreateSession(ctx, "day-2", "2026-01-07")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "2026-01-07", future.Date)
}

func TestCreateSession_ConcurrentCallsInOneProcess(t *testing.T) {
	svc, repo := newTestWorkoutService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.CreateSession(ctx, "day-2", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateExerciseProgress_MergesAndSanitizes(t *testing.T) {
	svc, _ := newTestWorkoutService(t)
	ctx := context.Background()
	session, _, err := svc.CreateSession(ctx, "day-1", "")
	require.NoError(t, err)

	_, err = svc.UpdateExerciseProgress(ctx, session.ID, "ex-1-1", []domain.SetData{
		{Reps: 8, Weight: 20, Completed: true, IsWarmup: boolPtr(true)},
		{Reps: -3, Weight: 40, Completed: true, IsWarmup: boolPtr(true)},
		{Reps: 6, Weight: -1},
	}, nil)
	require.NoError(t, err)

	_, err = svc.UpdateExerciseProgress(ctx, session.ID, "ex-1-2", []domain.SetData{{Reps: 10, Weight: 60}}, strPtr("felt heavy"))
	require.NoError(t, err)

	updated, err := svc.UpdateExerciseProgress(ctx, session.ID, "ex-1-1", []domain.SetData{{Reps: 5, Weight: 50, Completed: true}}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.Version)

	stored, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, stored.Exercises, 2)
	assert.Equal(t, "ex-1-1", stored.Exercises[0].ExerciseID)
	assert.Equal(t, []domain.SetData{{Reps: 5, Weight: 50, Completed: true}}, stored.Exercises[0].Sets)
	assert.Nil(t, stored.Exercises[0].Notes)
	assert.Equal(t, "ex-1-2", stored.Exercises[1].ExerciseID)
	require.NotNil(t, stored.Exercises[1].Notes)
	assert.Equal(t, "felt heavy", *stored.Exercises[1].Notes)
}

func TestUpdateExerciseProgress_SanitizesFirstWrite(t *testing.T) {
	svc, _ := newTestWorkoutService(t)
	ctx := context.Background()
	session, _, err := svc.CreateSession(ctx, "day-1", "")
	require.NoError(t, err)

	updated, err := svc.UpdateExerciseProgress(ctx, session.ID, "ex-1-1", []domain.SetData{
		{Reps: 8, Weight: 20, IsWarmup: boolPtr(true)},
		{Reps: -3, Weight: 40, IsWarmup: boolPtr(true)},
		{Reps: 6, Weight: -1},
	}, nil)
	require.NoError(t, err)

	sets := updated.Exercises[0].Sets
	require.Len(t, sets, 3)
	assert.True(t, sets[0].Warmup())
	require.NotNil(t, sets[1].IsWarmup)
	assert.False(t, *sets[1].IsWarmup)
	assert.Equal(t, 0, sets[1].Reps)
	assert.Nil(t, sets[2].IsWarmup)
	assert.Equal(t, 0.0, sets[2].Weight)
}

func TestUpdateExerciseProgress_Preconditions(t *testing.T) {
	svc, _ := newTestWorkoutService(t)
	ctx := context.Background()

	_, err := svc.UpdateExerciseProgress(ctx, "", "ex-1-1", nil, nil)
	assert.ErrorIs(t, err, ErrMissingSessionID)

	_, err = svc.UpdateExerciseProgress(ctx, "workout-x", "ex-9-9", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownExercise)

	_, err = svc.UpdateExerciseProgress(ctx, "workout-missing", "ex-1-1", nil, nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUpdateExerciseProgress_RetriesVersionConflicts(t *testing.T) {
	repo := newScriptedRepo()
	repo.conflicts[1] = true
	repo.conflicts[2] = true
	svc := NewWorkoutService(repo, testConfig())
	ctx := context.Background()

	session, _, err := svc.CreateSession(ctx, "day-1", "")
	require.NoError(t, err)

	updated, err := svc.UpdateExerciseProgress(ctx, session.ID, "ex-1-1", []domain.SetData{{Reps: 5, Weight: 50}}, nil)
	require.NoError(t, err)
	assert.Len(t, updated.Exercises, 1)
	assert.Equal(t, 3, repo.Calls())
}

func TestUpdateExerciseProgress_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := newScriptedRepo()
	for i := 1; i <= 10; i++ {
		repo.conflicts[i] = true
	}
	cfg := testConfig()
	cfg.MaxWriteAttempts = 4
	svc := NewWorkoutService(repo, cfg)
	ctx := context.Background()

	session, _, err := svc.CreateSession(ctx, "day-1", "")
	require.NoError(t, err)

	_, err = svc.UpdateExerciseProgress(ctx, session.ID, "ex-1-1", []domain.SetData{{Reps: 5}}, nil)
	assert.ErrorIs(t, err, ErrWriteConflict)
	assert.Equal(t, 4, repo.Calls())
}

func TestUpdateExerciseProgress_SurfacesRemoteFailure(t *testing.T) {
	repo := newScriptedRepo()
	repo.failures[1] = true
	svc := NewWorkoutService(repo, testConfig())
	ctx := context.Background()

	session, _, err := svc.CreateSession(ctx, "day-1", "")
	require.NoError(t, err)

	_, err = svc.UpdateExerciseProgress(ctx, session.ID, "ex-1-1", []domain.SetData{{Reps: 5}}, nil)
	assert.ErrorIs(t, err, errRemoteDown)
}

func TestUpdateExerciseProgress_ConcurrentExercisesBothLand(t *testing.T) {
	// enough attempts that contention between the writers cannot exhaust them
	cfg := testConfig()
	cfg.MaxWriteAttempts = 50
	svc := NewWorkoutService(memory.NewWorkoutRepository(false), cfg)
	ctx := context.Background()
	session, _, err := svc.CreateSession(ctx, "day-1", "")
	require.NoError(t, err)

	ids := []string{"ex-1-1", "ex-1-2", "ex-1-3", "ex-1-4"}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.UpdateExerciseProgress(ctx, session.ID, id, []domain.SetData{{Reps: 5, Weight: 10}}, nil)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	stored, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Exercises, len(ids))
	assert.Equal(t, int64(len(ids)), stored.Version)
}

func TestCompleteWorkout_Idempotent(t *testing.T) {
	svc, _ := newTestWorkoutService(t)
	ctx := context.Background()
	session, _, err := svc.CreateSession(ctx, "day-1", "")
	require.NoError(t, err)

	require.NoError(t, svc.CompleteWorkout(ctx, session.ID))
	require.NoError(t, svc.CompleteWorkout(ctx, session.ID))

	stored, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)

	assert.ErrorIs(t, svc.CompleteWorkout(ctx, ""), ErrMissingSessionID)
	assert.ErrorIs(t, svc.CompleteWorkout(ctx, "workout-missing"), ErrSessionNotFound)
}

func seedSessions(t *testing.T, repo *memory.WorkoutRepository, sessions ...domain.WorkoutSession) {
	t.Helper()
	for i := range sessions {
		require.NoError(t, repo.Upsert(context.Background(), &sessions[i]))
	}
}

func logged(id string) []domain.ExerciseProgress {
	return []domain.ExerciseProgress{{ExerciseID: id, Sets: []domain.SetData{{Reps: 5, Weight: 40, Completed: true}}}}
}

func TestGetWorkoutForDate_TieBreak(t *testing.T) {
	svc, repo := newTestWorkoutService(t)
	ctx := context.Background()
	seedSessions(t, repo,
		domain.WorkoutSession{ID: "workout-c", DayID: "day-1", Date: "2026-01-05"},
		domain.WorkoutSession{ID: "workout-a", DayID: "day-1", Date: "2026-01-05", Exercises: logged("ex-1-1")},
		domain.WorkoutSession{ID: "workout-b", DayID: "day-1", Date: "2026-01-05", Exercises: logged("ex-1-1"), Completed: true},
		domain.WorkoutSession{ID: "workout-d", DayID: "day-2", Date: "2026-01-05"},
	)

	for i := 0; i < 3; i++ {
		got, err := svc.GetTodaysWorkout(ctx, "day-1")
		require.NoError(t, err)
		assert.Equal(t, "workout-b", got.ID)
	}

	_, err := svc.GetWorkoutForDate(ctx, "day-3", "2026-01-05")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.GetWorkoutForDate(ctx, "nope", "2026-01-05")
	assert.ErrorIs(t, err, ErrInvalidDay)
}

func TestPreferred_IndependentOfOrder(t *testing.T) {
	faker := gofakeit.New(11)
	for round := 0; round < 100; round++ {
		var group []domain.WorkoutSession
		for i := 0; i < faker.IntRange(1, 6); i++ {
			s := domain.WorkoutSession{
				ID:        fmt.Sprintf("workout-%03d", faker.IntRange(0, 999)),
				DayID:     "day-1",
				Date:      "2026-01-05",
				Completed: faker.Bool(),
			}
			if faker.Bool() {
				s.Exercises = logged("ex-1-1")
			}
			group = append(group, s)
		}

		want, ok := preferred(group)
		require.True(t, ok)
		for shuffle := 0; shuffle < 5; shuffle++ {
			shuffled := append([]domain.WorkoutSession(nil), group...)
			faker.ShuffleAnySlice(shuffled)
			got, _ := preferred(shuffled)
			assert.Equal(t, want.ID, got.ID)
			assert.Equal(t, want.Completed, got.Completed)
		}
	}
}

func TestGetWorkoutsByDayAndLatest(t *testing.T) {
	svc, repo := newTestWorkoutService(t)
	ctx := context.Background()
	seedSessions(t, repo,
		domain.WorkoutSession{ID: "workout-1", DayID: "day-2", Date: "2025-12-24"},
		domain.WorkoutSession{ID: "workout-2", DayID: "day-2", Date: "2025-12-31", Exercises: logged("ex-2-1")},
		domain.WorkoutSession{ID: "workout-3", DayID: "day-2", Date: "2025-12-31"},
		domain.WorkoutSession{ID: "workout-4", DayID: "day-1", Date: "2026-01-05"},
	)

	byDay, err := svc.GetWorkoutsByDay(ctx, "day-2")
	require.NoError(t, err)
	require.Len(t, byDay, 3)
	assert.Equal(t, "2025-12-31", byDay[0].Date)
	assert.Equal(t, "2025-12-24", byDay[2].Date)

	latest, err := svc.GetLatestWorkout(ctx, "day-2")
	require.NoError(t, err)
	assert.Equal(t, "workout-2", latest.ID)

	_, err = svc.GetLatestWorkout(ctx, "day-3")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCleanupDuplicateSessions_CountsAndKeepsPreferred(t *testing.T) {
	faker := gofakeit.New(3)
	for round := 0; round < 20; round++ {
		svc, repo := newTestWorkoutService(t)
		ctx := context.Background()

		wantDeleted := 0
		wantKept := map[string]string{}
		var n int
		for g := 0; g < faker.IntRange(1, 6); g++ {
			date := fmt.Sprintf("2026-01-%02d", g+1)
			dayID := fmt.Sprintf("day-%d", faker.IntRange(1, 3))
			key := date + "/" + dayID
			if _, dup := wantKept[key]; dup {
				continue
			}
			size := faker.IntRange(1, 4)
			var group []domain.WorkoutSession
			for i := 0; i < size; i++ {
				n++
				s := domain.WorkoutSession{ID: fmt.Sprintf("workout-%04d", n), DayID: dayID, Date: date, Completed: faker.Bool()}
				if faker.Bool() {
					s.Exercises = logged("ex-1-1")
				}
				group = append(group, s)
			}
			seedSessions(t, repo, group...)
			keep, _ := preferred(group)
			wantKept[key] = keep.ID
			wantDeleted += size - 1
		}

		deleted, err := svc.CleanupDuplicateSessions(ctx)
		require.NoError(t, err)
		assert.Equal(t, wantDeleted, deleted)

		remaining, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, remaining, len(wantKept))
		for _, s := range remaining {
			assert.Equal(t, wantKept[s.Date+"/"+s.DayID], s.ID)
		}

		again, err := svc.CleanupDuplicateSessions(ctx)
		require.NoError(t, err)
		assert.Zero(t, again)
	}
}

func TestCleanupDuplicateSessions_KeepsGoingAfterFailedDelete(t *testing.T) {
	repo := &failingDeleteRepo{
		WorkoutRepository: memory.NewWorkoutRepository(false),
		failIDs:           map[string]bool{"workout-1": true},
	}
	seedSessions(t, repo.WorkoutRepository,
		domain.WorkoutSession{ID: "workout-1", DayID: "day-1", Date: "2026-01-05"},
		domain.WorkoutSession{ID: "workout-2", DayID: "day-1", Date: "2026-01-05"},
		domain.WorkoutSession{ID: "workout-3", DayID: "day-1", Date: "2026-01-05"},
		domain.WorkoutSession{ID: "workout-4", DayID: "day-2", Date: "2026-01-07"},
		domain.WorkoutSession{ID: "workout-5", DayID: "day-2", Date: "2026-01-07"},
	)
	svc := NewWorkoutService(repo, testConfig())
	ctx := context.Background()

	deleted, err := svc.CleanupDuplicateSessions(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errRemoteDown)
	assert.Contains(t, err.Error(), "workout-1")
	assert.Equal(t, 2, deleted)

	remaining, err := repo.List(ctx)
	require.NoError(t, err)
	var ids []string
	for _, s := range remaining {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{"workout-1", "workout-3", "workout-5"}, ids)
}

func TestCreateSession_UniqueIndexResolvesToStoredSession(t *testing.T) {
	repo := &staleListRepo{WorkoutRepository: memory.NewWorkoutRepository(true)}
	seedSessions(t, repo.WorkoutRepository,
		domain.WorkoutSession{ID: "workout-x", DayID: "day-1", Date: "2026-01-05", Exercises: logged("ex-1-1")},
	)
	svc := NewWorkoutService(repo, testConfig())

	session, created, err := svc.CreateSession(context.Background(), "day-1", "2026-01-05")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "workout-x", session.ID)

	stored, err := repo.FindByDayAndDate(context.Background(), "day-1", "2026-01-05")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestNewSessionsOutrankLegacyIDs(t *testing.T) {
	svc, repo := newTestWorkoutService(t)
	ctx := context.Background()

	// ids written by the previous client were "workout-<unix millis>"
	legacy := fmt.Sprintf("workout-%d", testNow.Add(-time.Hour).UnixMilli())
	session, created, err := svc.CreateSession(ctx, "day-1", "")
	require.NoError(t, err)
	require.True(t, created)
	seedSessions(t, repo, domain.WorkoutSession{ID: legacy, DayID: "day-1", Date: session.Date})

	got, err := svc.GetWorkoutForDate(ctx, "day-1", session.Date)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestSubscribe_DeliversChanges(t *testing.T) {
	svc, _ := newTestWorkoutService(t)
	svc.Start()
	defer svc.Close()

	var mu sync.Mutex
	var latest []domain.WorkoutSession
	unsubscribe := svc.Subscribe(func(sessions []domain.WorkoutSession) {
		mu.Lock()
		latest = sessions
		mu.Unlock()
	})
	defer unsubscribe()

	_, _, err := svc.CreateSession(context.Background(), "day-1", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latest) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestExampleScenario_EndToEnd(t *testing.T) {
	svc, _ := newTestWorkoutService(t)
	ctx := context.Background()

	session, created, err := svc.CreateSession(ctx, "day-1", "2026-01-05")
	require.NoError(t, err)
	require.True(t, created)

	_, err = svc.UpdateExerciseProgress(ctx, session.ID, "ex-1-1", SetsFromInput([]domain.SetInput{
		{Reps: intPtr(6), Weight: floatPtr(45), Completed: boolPtr(true)},
	}), nil)
	require.NoError(t, err)
	require.NoError(t, svc.CompleteWorkout(ctx, session.ID))

	all, err := svc.Workouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 270.0, stats.TotalTonnage(all))
	assert.Equal(t, 1, stats.CompletedCount(all))
	assert.Equal(t, 45.0, stats.PersonalRecords(all)["ex-1-1"].MaxWeight)
	assert.Equal(t, 1, stats.TrainingStreak(all, testNow))
}
