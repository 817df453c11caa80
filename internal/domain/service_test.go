package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/witness-org/witness-sub000/internal/auth"
	"github.com/witness-org/witness-sub000/internal/domain"
	"github.com/witness-org/witness-sub000/internal/persistence/memory"
)

func newServiceFixture(t *testing.T) (*domain.Service, domain.Requester, *domain.WorkoutLog, int64) {
	t.Helper()
	ctx := context.Background()
	repo := memory.NewRepository()
	svc := domain.NewService(repo)

	owner, err := repo.CreateUser(ctx, domain.User{ExternalID: "sub-owner", Username: "owner"})
	require.NoError(t, err)
	requester := domain.Requester{UserID: owner.ID}

	bench, err := repo.CreateExercise(ctx, domain.Exercise{Name: "Bench Press", MuscleGroup: "CHEST"})
	require.NoError(t, err)

	workout, err := svc.CreateWorkout(ctx, requester, domain.NewWorkoutInput{LoggedOn: time.Now().UTC()})
	require.NoError(t, err)

	workout, err = svc.AddExerciseLog(ctx, requester, workout.ID, domain.NewExerciseLogInput{ExerciseID: bench.ID})
	require.NoError(t, err)
	workout, err = svc.AddExerciseLog(ctx, requester, workout.ID, domain.NewExerciseLogInput{ExerciseID: bench.ID})
	require.NoError(t, err)
	workout, err = svc.AddExerciseLog(ctx, requester, workout.ID, domain.NewExerciseLogInput{ExerciseID: bench.ID})
	require.NoError(t, err)

	return svc, requester, workout, bench.ID
}

func TestServiceAddExerciseLogAssignsSequentialPositions(t *testing.T) {
	svc, requester, workout, _ := newServiceFixture(t)

	got, err := svc.GetWorkout(context.Background(), requester, workout.ID)
	require.NoError(t, err)
	require.Len(t, got.ExerciseLogs, 3)
	for i, entry := range got.ExerciseLogs {
		require.Equal(t, i+1, entry.Position)
		require.Equal(t, workout.ID, entry.WorkoutLogID)
		require.NotZero(t, entry.ID)
	}
}

func TestServiceAddExerciseLogUnknownExercise(t *testing.T) {
	svc, requester, workout, _ := newServiceFixture(t)

	_, err := svc.AddExerciseLog(context.Background(), requester, workout.ID, domain.NewExerciseLogInput{ExerciseID: 9999})
	require.ErrorIs(t, err, domain.ErrExerciseNotFound)
}

func TestServiceRemoveExerciseLogLeavesPositionGap(t *testing.T) {
	svc, requester, workout, _ := newServiceFixture(t)
	ctx := context.Background()

	middle := workout.ExerciseLogs[1]
	updated, err := svc.RemoveExerciseLog(ctx, requester, workout.ID, middle.ID)
	require.NoError(t, err)

	positions := make([]int, 0, len(updated.ExerciseLogs))
	for _, entry := range updated.ExerciseLogs {
		positions = append(positions, entry.Position)
	}
	require.Equal(t, []int{1, 3}, positions)

	// The gap survives the round trip through storage.
	got, err := svc.GetWorkout(ctx, requester, workout.ID)
	require.NoError(t, err)
	require.Len(t, got.ExerciseLogs, 2)
	require.Equal(t, 3, got.ExerciseLogs[1].Position)
}

func TestServiceAddExerciseLogAfterRemoveAvoidsPositionCollision(t *testing.T) {
	svc, requester, workout, exerciseID := newServiceFixture(t)
	ctx := context.Background()

	middle := workout.ExerciseLogs[1]
	_, err := svc.RemoveExerciseLog(ctx, requester, workout.ID, middle.ID)
	require.NoError(t, err)

	updated, err := svc.AddExerciseLog(ctx, requester, workout.ID, domain.NewExerciseLogInput{ExerciseID: exerciseID})
	require.NoError(t, err)

	positions := make([]int, 0, len(updated.ExerciseLogs))
	for _, entry := range updated.ExerciseLogs {
		positions = append(positions, entry.Position)
	}
	// The append lands past the gap left by the removal instead of
	// colliding with the surviving position 3.
	require.Equal(t, []int{1, 3, 4}, positions)

	got, err := svc.GetWorkout(ctx, requester, workout.ID)
	require.NoError(t, err)
	stored := make([]int, 0, len(got.ExerciseLogs))
	for _, entry := range got.ExerciseLogs {
		stored = append(stored, entry.Position)
	}
	require.Equal(t, []int{1, 3, 4}, stored)
}

func TestServiceRejectedReorderLeavesStoredStateUnchanged(t *testing.T) {
	svc, requester, workout, _ := newServiceFixture(t)
	ctx := context.Background()

	first, second, third := workout.ExerciseLogs[0], workout.ExerciseLogs[1], workout.ExerciseLogs[2]

	// Incomplete map: third entry is missing.
	_, err := svc.ReorderExerciseLogs(ctx, requester, workout.ID, map[int64]int{
		first.ID:  2,
		second.ID: 1,
	})
	var reorderErr *domain.ReorderError
	require.ErrorAs(t, err, &reorderErr)
	require.Equal(t, domain.ReorderIncomplete, reorderErr.Rule)

	got, err := svc.GetWorkout(ctx, requester, workout.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{first.ID, second.ID, third.ID}, exerciseLogIDs(got))
	for i, entry := range got.ExerciseLogs {
		require.Equal(t, i+1, entry.Position)
	}
}

func TestServiceReorderExerciseLogsAppliesMoves(t *testing.T) {
	svc, requester, workout, _ := newServiceFixture(t)
	ctx := context.Background()

	first, second, third := workout.ExerciseLogs[0], workout.ExerciseLogs[1], workout.ExerciseLogs[2]
	updated, err := svc.ReorderExerciseLogs(ctx, requester, workout.ID, map[int64]int{
		first.ID:  3,
		second.ID: 1,
		third.ID:  2,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{second.ID, third.ID, first.ID}, exerciseLogIDs(updated))

	got, err := svc.GetWorkout(ctx, requester, workout.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{second.ID, third.ID, first.ID}, exerciseLogIDs(got))
}

func TestServiceRemoveSetLogCrossAggregateRejection(t *testing.T) {
	svc, requester, workout, _ := newServiceFixture(t)
	ctx := context.Background()

	firstLog := workout.ExerciseLogs[0].ID
	secondLog := workout.ExerciseLogs[1].ID

	updated, err := svc.AddSetLog(ctx, requester, workout.ID, secondLog, domain.SetLogInput{
		Weight: 60, Kind: domain.SetKindReps, Reps: 8,
	})
	require.NoError(t, err)
	strayedSet := updated.ExerciseLogs[1].SetLogs[0].ID

	// Addressing the set through the wrong parent must not remove it.
	_, err = svc.RemoveSetLog(ctx, requester, workout.ID, firstLog, strayedSet)
	require.ErrorIs(t, err, domain.ErrNotInAggregate)

	got, err := svc.GetWorkout(ctx, requester, workout.ID)
	require.NoError(t, err)
	require.Len(t, got.ExerciseLogs[1].SetLogs, 1)
	require.Equal(t, strayedSet, got.ExerciseLogs[1].SetLogs[0].ID)
}

func TestServiceSetLogLifecycle(t *testing.T) {
	svc, requester, workout, _ := newServiceFixture(t)
	ctx := context.Background()

	logID := workout.ExerciseLogs[0].ID
	updated, err := svc.AddSetLog(ctx, requester, workout.ID, logID, domain.SetLogInput{
		Weight: 100, Kind: domain.SetKindReps, Reps: 5,
	})
	require.NoError(t, err)
	updated, err = svc.AddSetLog(ctx, requester, workout.ID, logID, domain.SetLogInput{
		Weight: 20, Kind: domain.SetKindTime, Seconds: 45,
	})
	require.NoError(t, err)

	sets := updated.ExerciseLogs[0].SetLogs
	require.Len(t, sets, 2)
	require.Equal(t, 1, sets[0].Position)
	require.Equal(t, 2, sets[1].Position)

	updated, err = svc.UpdateSetLog(ctx, requester, workout.ID, logID, sets[0].ID, domain.SetLogInput{
		Weight: 105, Kind: domain.SetKindReps, Reps: 3,
	})
	require.NoError(t, err)
	first := updated.ExerciseLogs[0].SetLogs[0]
	require.Equal(t, sets[0].ID, first.ID)
	require.Equal(t, 1, first.Position)
	require.Equal(t, 105.0, first.Weight)
	require.Equal(t, 3, first.Reps)

	updated, err = svc.RemoveSetLog(ctx, requester, workout.ID, logID, sets[0].ID)
	require.NoError(t, err)
	require.Len(t, updated.ExerciseLogs[0].SetLogs, 1)
	require.Equal(t, 2, updated.ExerciseLogs[0].SetLogs[0].Position)
}

func TestServiceOwnershipGateOnMutations(t *testing.T) {
	svc, owner, workout, exerciseID := newServiceFixture(t)
	ctx := context.Background()

	stranger := domain.Requester{UserID: owner.UserID + 100}
	logID := workout.ExerciseLogs[0].ID

	_, err := svc.GetWorkout(ctx, stranger, workout.ID)
	require.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = svc.AddExerciseLog(ctx, stranger, workout.ID, domain.NewExerciseLogInput{ExerciseID: exerciseID})
	require.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = svc.RemoveExerciseLog(ctx, stranger, workout.ID, logID)
	require.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = svc.AddSetLog(ctx, stranger, workout.ID, logID, domain.SetLogInput{Weight: 50, Kind: domain.SetKindReps, Reps: 5})
	require.ErrorIs(t, err, domain.ErrNotOwner)

	err = svc.DeleteWorkout(ctx, stranger, workout.ID)
	require.ErrorIs(t, err, domain.ErrNotOwner)

	// Nothing leaked through the denied calls.
	got, err := svc.GetWorkout(ctx, owner, workout.ID)
	require.NoError(t, err)
	require.Len(t, got.ExerciseLogs, 3)
}

func TestServiceAdminBypassesOwnership(t *testing.T) {
	svc, owner, workout, _ := newServiceFixture(t)
	ctx := context.Background()

	admin := domain.Requester{UserID: owner.UserID + 100, Roles: auth.RoleSet{auth.RoleAdmin: {}}}
	got, err := svc.GetWorkout(ctx, admin, workout.ID)
	require.NoError(t, err)
	require.Equal(t, workout.ID, got.ID)

	_, err = svc.RemoveExerciseLog(ctx, admin, workout.ID, workout.ExerciseLogs[0].ID)
	require.NoError(t, err)
}

func TestServiceMissingWorkout(t *testing.T) {
	svc, requester, _, _ := newServiceFixture(t)
	ctx := context.Background()

	_, err := svc.GetWorkout(ctx, requester, 9999)
	require.ErrorIs(t, err, domain.ErrWorkoutNotFound)

	_, err = svc.ReorderExerciseLogs(ctx, requester, 9999, map[int64]int{1: 1})
	require.ErrorIs(t, err, domain.ErrWorkoutNotFound)
}

func TestServiceAdminGatedCatalog(t *testing.T) {
	svc, requester, _, exerciseID := newServiceFixture(t)
	ctx := context.Background()

	_, err := svc.CreateExercise(ctx, requester, domain.Exercise{Name: "Squat"})
	require.ErrorIs(t, err, domain.ErrInsufficientRole)

	admin := domain.Requester{UserID: requester.UserID, Roles: auth.RoleSet{auth.RoleAdmin: {}}}
	created, err := svc.CreateExercise(ctx, admin, domain.Exercise{Name: "Squat", MuscleGroup: "LEGS"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	err = svc.DeleteExercise(ctx, requester, exerciseID)
	require.ErrorIs(t, err, domain.ErrInsufficientRole)
	require.NoError(t, svc.DeleteExercise(ctx, admin, exerciseID))
}

func TestServiceRegisterUserRejectsDuplicateSubject(t *testing.T) {
	ctx := context.Background()
	svc := domain.NewService(memory.NewRepository())

	created, err := svc.RegisterUser(ctx, "sub-1", "a@example.com", "alice")
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	_, err = svc.RegisterUser(ctx, "sub-1", "a@example.com", "alice2")
	require.ErrorIs(t, err, domain.ErrUserExists)
}

func TestServiceAssignRole(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	svc := domain.NewService(repo)

	user, err := repo.CreateUser(ctx, domain.User{ExternalID: "sub-2", Username: "bob"})
	require.NoError(t, err)

	admin := domain.Requester{UserID: 99, Roles: auth.RoleSet{auth.RoleAdmin: {}}}
	updated, err := svc.AssignRole(ctx, admin, user.ID, auth.RolePremium)
	require.NoError(t, err)
	require.NotNil(t, updated.Role)
	require.Equal(t, auth.RolePremium, *updated.Role)

	_, err = svc.AssignRole(ctx, domain.Requester{UserID: user.ID}, user.ID, auth.RolePremium)
	require.ErrorIs(t, err, domain.ErrInsufficientRole)

	_, err = svc.AssignRole(ctx, admin, 9999, auth.RolePremium)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func exerciseLogIDs(workout *domain.WorkoutLog) []int64 {
	ids := make([]int64, 0, len(workout.ExerciseLogs))
	for _, entry := range workout.ExerciseLogs {
		ids = append(ids, entry.ID)
	}
	return ids
}
