package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func workoutWithLogs(t *testing.T) *WorkoutLog {
	t.Helper()
	return &WorkoutLog{
		ID:      1,
		OwnerID: 7,
		ExerciseLogs: []ExerciseLog{
			{ID: 11, WorkoutLogID: 1, ExerciseID: 100, Position: 1, SetLogs: []SetLog{
				{ID: 111, ExerciseLogID: 11, Position: 1, Weight: 60, Kind: SetKindReps, Reps: 8},
				{ID: 112, ExerciseLogID: 11, Position: 2, Weight: 60, Kind: SetKindReps, Reps: 6},
			}},
			{ID: 12, WorkoutLogID: 1, ExerciseID: 101, Position: 2, SetLogs: []SetLog{
				{ID: 121, ExerciseLogID: 12, Position: 1, Weight: 0, Kind: SetKindTime, Seconds: 45},
			}},
			{ID: 13, WorkoutLogID: 1, ExerciseID: 102, Position: 3},
		},
	}
}

func TestAddExerciseLogAppendsAtNextPosition(t *testing.T) {
	w := workoutWithLogs(t)
	added := w.AddExerciseLog(ExerciseLog{ExerciseID: 103})
	require.Equal(t, 4, added.Position)
	require.Equal(t, w.ID, added.WorkoutLogID)
	require.Len(t, w.ExerciseLogs, 4)
}

func TestRemoveExerciseLogLeavesPositionGap(t *testing.T) {
	w := workoutWithLogs(t)
	require.NoError(t, w.RemoveExerciseLog(12))

	positions := make([]int, 0, len(w.ExerciseLogs))
	for _, entry := range w.ExerciseLogs {
		positions = append(positions, entry.Position)
	}
	// Survivors keep their positions: the gap stays until an explicit reorder.
	require.Equal(t, []int{1, 3}, positions)
	require.False(t, ContiguousPositions(positions))
}

func TestAddExerciseLogAfterRemoveSkipsGap(t *testing.T) {
	w := workoutWithLogs(t)
	require.NoError(t, w.RemoveExerciseLog(12))

	added := w.AddExerciseLog(ExerciseLog{ExerciseID: 103})
	// The gap at position 2 is not reused: appending past the highest
	// survivor keeps positions unique.
	require.Equal(t, 4, added.Position)

	seen := make(map[int]bool)
	for _, entry := range w.ExerciseLogs {
		require.False(t, seen[entry.Position])
		seen[entry.Position] = true
	}
}

func TestRemoveExerciseLogUnknownID(t *testing.T) {
	w := workoutWithLogs(t)
	require.ErrorIs(t, w.RemoveExerciseLog(99), ErrNotInAggregate)
	require.Len(t, w.ExerciseLogs, 3)
}

func TestReorderExerciseLogsAppliesAndSorts(t *testing.T) {
	w := workoutWithLogs(t)
	require.NoError(t, w.ReorderExerciseLogs(map[int64]int{11: 3, 12: 1, 13: 2}))

	require.Equal(t, int64(12), w.ExerciseLogs[0].ID)
	require.Equal(t, int64(13), w.ExerciseLogs[1].ID)
	require.Equal(t, int64(11), w.ExerciseLogs[2].ID)
	for i, entry := range w.ExerciseLogs {
		require.Equal(t, i+1, entry.Position)
	}
}

func TestReorderExerciseLogsRejectionLeavesOrderIntact(t *testing.T) {
	w := workoutWithLogs(t)
	err := w.ReorderExerciseLogs(map[int64]int{11: 1, 12: 2})
	require.Error(t, err)

	require.Equal(t, int64(11), w.ExerciseLogs[0].ID)
	require.Equal(t, 1, w.ExerciseLogs[0].Position)
	require.Equal(t, int64(13), w.ExerciseLogs[2].ID)
	require.Equal(t, 3, w.ExerciseLogs[2].Position)
}

func TestRemoveSetLogFromDifferentExerciseLog(t *testing.T) {
	w := workoutWithLogs(t)
	// Set 121 exists, but belongs to exercise log 12, not 11.
	entry := w.FindExerciseLog(11)
	require.NotNil(t, entry)
	require.ErrorIs(t, entry.RemoveSetLog(121), ErrNotInAggregate)

	require.Len(t, w.FindExerciseLog(11).SetLogs, 2)
	require.Len(t, w.FindExerciseLog(12).SetLogs, 1)
}

func TestUpdateSetLogKeepsIDAndPosition(t *testing.T) {
	w := workoutWithLogs(t)
	entry := w.FindExerciseLog(11)
	require.NoError(t, entry.UpdateSetLog(SetLog{ID: 112, Weight: 65, Kind: SetKindReps, Reps: 5}))

	updated := entry.SetLogs[1]
	require.Equal(t, int64(112), updated.ID)
	require.Equal(t, 2, updated.Position)
	require.Equal(t, 65.0, updated.Weight)
	require.Equal(t, 5, updated.Reps)
	require.Equal(t, entry.ID, updated.ExerciseLogID)
}

func TestReorderSetLogs(t *testing.T) {
	w := workoutWithLogs(t)
	entry := w.FindExerciseLog(11)
	require.NoError(t, entry.ReorderSetLogs(map[int64]int{111: 2, 112: 1}))
	require.Equal(t, int64(112), entry.SetLogs[0].ID)
	require.Equal(t, int64(111), entry.SetLogs[1].ID)
}

func TestAddSetLogAppendsAtNextPosition(t *testing.T) {
	w := workoutWithLogs(t)
	entry := w.FindExerciseLog(12)
	added := entry.AddSetLog(SetLog{Weight: 20, Kind: SetKindReps, Reps: 12})
	require.Equal(t, 2, added.Position)
	require.Equal(t, entry.ID, added.ExerciseLogID)
}

func TestAddSetLogAfterRemoveSkipsGap(t *testing.T) {
	w := workoutWithLogs(t)
	entry := w.FindExerciseLog(11)
	require.NoError(t, entry.RemoveSetLog(111))

	added := entry.AddSetLog(SetLog{Weight: 60, Kind: SetKindReps, Reps: 4})
	require.Equal(t, 3, added.Position)
	require.Equal(t, []int{2, 3}, setPositions(entry.SetLogs))
}
