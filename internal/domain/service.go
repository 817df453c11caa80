package domain

import (
	"context"
	"errors"
	"time"

	"github.com/witness-org/witness-sub000/internal/auth"
	"github.com/witness-org/witness-sub000/internal/observability"
)

// Repository captures persistence operations. Absent records are reported
// as (nil, nil); MutateWorkout runs its callback and the resulting persist
// inside a single transaction so edits are all-or-nothing.
type Repository interface {
	CreateUser(ctx context.Context, user User) (*User, error)
	UserByExternalID(ctx context.Context, externalID string) (*User, error)
	UserByID(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUserRole(ctx context.Context, id int64, role *auth.Role) (*User, error)

	CreateExercise(ctx context.Context, exercise Exercise) (*Exercise, error)
	Exercise(ctx context.Context, id int64) (*Exercise, error)
	ListExercises(ctx context.Context) ([]Exercise, error)
	UpdateExercise(ctx context.Context, exercise Exercise) (*Exercise, error)
	DeleteExercise(ctx context.Context, id int64) error

	CreateWorkout(ctx context.Context, workout WorkoutLog) (*WorkoutLog, error)
	Workout(ctx context.Context, id int64) (*WorkoutLog, error)
	ListWorkoutsByOwner(ctx context.Context, ownerID int64, cursor *Cursor, limit int) ([]WorkoutLog, *Cursor, error)
	MutateWorkout(ctx context.Context, id int64, fn func(*WorkoutLog) error) (*WorkoutLog, error)
	DeleteWorkout(ctx context.Context, id int64) error
}

// Requester is the resolved internal identity acting on a request.
type Requester struct {
	UserID int64
	Roles  auth.RoleSet
}

// Service orchestrates workout workflows: every resource-scoped operation
// resolves the aggregate, passes the ownership gate, and applies editor
// mutations inside one transaction.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterUser creates the internal record for an authenticated subject.
func (s *Service) RegisterUser(ctx context.Context, externalID, email, username string) (*User, error) {
	existing, err := s.repo.UserByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}
	return s.repo.CreateUser(ctx, User{ExternalID: externalID, Email: email, Username: username})
}

// UserBySubject resolves the internal user for an external subject id.
func (s *Service) UserBySubject(ctx context.Context, externalID string) (*User, error) {
	user, err := s.repo.UserByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns all users. Elevated role required.
func (s *Service) ListUsers(ctx context.Context, requester Requester) ([]User, error) {
	if !requester.Roles.Has(auth.RoleAdmin) {
		return nil, ErrInsufficientRole
	}
	return s.repo.ListUsers(ctx)
}

// AssignRole sets a user's active role. Elevated role required.
func (s *Service) AssignRole(ctx context.Context, requester Requester, userID int64, role auth.Role) (*User, error) {
	if !requester.Roles.Has(auth.RoleAdmin) {
		return nil, ErrInsufficientRole
	}
	updated, err := s.repo.UpdateUserRole(ctx, userID, &role)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}
	return updated, nil
}

// CreateExercise adds a catalog entry. Elevated role required.
func (s *Service) CreateExercise(ctx context.Context, requester Requester, exercise Exercise) (*Exercise, error) {
	if !requester.Roles.Has(auth.RoleAdmin) {
		return nil, ErrInsufficientRole
	}
	return s.repo.CreateExercise(ctx, exercise)
}

// GetExercise fetches a catalog entry.
func (s *Service) GetExercise(ctx context.Context, id int64) (*Exercise, error) {
	exercise, err := s.repo.Exercise(ctx, id)
	if err != nil {
		return nil, err
	}
	if exercise == nil {
		return nil, ErrExerciseNotFound
	}
	return exercise, nil
}

// ListExercises returns the whole catalog.
func (s *Service) ListExercises(ctx context.Context) ([]Exercise, error) {
	return s.repo.ListExercises(ctx)
}

// UpdateExercise replaces a catalog entry. Elevated role required.
func (s *Service) UpdateExercise(ctx context.Context, requester Requester, exercise Exercise) (*Exercise, error) {
	if !requester.Roles.Has(auth.RoleAdmin) {
		return nil, ErrInsufficientRole
	}
	updated, err := s.repo.UpdateExercise(ctx, exercise)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrExerciseNotFound
	}
	return updated, nil
}

// DeleteExercise removes a catalog entry. Elevated role required.
func (s *Service) DeleteExercise(ctx context.Context, requester Requester, id int64) error {
	if !requester.Roles.Has(auth.RoleAdmin) {
		return ErrInsufficientRole
	}
	return s.repo.DeleteExercise(ctx, id)
}

// NewWorkoutInput captures the payload for creating a workout log.
type NewWorkoutInput struct {
	LoggedOn        time.Time
	DurationMinutes *int
}

// CreateWorkout creates an empty workout log owned by the requester.
func (s *Service) CreateWorkout(ctx context.Context, requester Requester, input NewWorkoutInput) (*WorkoutLog, error) {
	now := time.Now().UTC()
	workout, err := s.repo.CreateWorkout(ctx, WorkoutLog{
		OwnerID:         requester.UserID,
		LoggedOn:        input.LoggedOn,
		DurationMinutes: input.DurationMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, err
	}
	observability.RecordWorkoutMutation("create")
	return workout, nil
}

// GetWorkout fetches the full aggregate after the ownership gate.
func (s *Service) GetWorkout(ctx context.Context, requester Requester, id int64) (*WorkoutLog, error) {
	workout, err := s.repo.Workout(ctx, id)
	if err != nil {
		return nil, err
	}
	if workout == nil {
		return nil, ErrWorkoutNotFound
	}
	if err := AuthorizeOwner(requester.UserID, workout.OwnerID, requester.Roles); err != nil {
		return nil, err
	}
	return workout, nil
}

// ListWorkouts returns a page of the requester's own workout logs, newest
// first. A nil cursor starts from the top; the returned cursor is nil on the
// last page.
func (s *Service) ListWorkouts(ctx context.Context, requester Requester, cursor *Cursor, limit int) ([]WorkoutLog, *Cursor, error) {
	return s.repo.ListWorkoutsByOwner(ctx, requester.UserID, cursor, limit)
}

// DeleteWorkout removes the aggregate and its descendants.
func (s *Service) DeleteWorkout(ctx context.Context, requester Requester, id int64) error {
	workout, err := s.repo.Workout(ctx, id)
	if err != nil {
		return err
	}
	if workout == nil {
		return ErrWorkoutNotFound
	}
	if err := AuthorizeOwner(requester.UserID, workout.OwnerID, requester.Roles); err != nil {
		return err
	}
	if err := s.repo.DeleteWorkout(ctx, id); err != nil {
		return err
	}
	observability.RecordWorkoutMutation("delete")
	return nil
}

// NewExerciseLogInput captures the payload for adding an exercise log.
type NewExerciseLogInput struct {
	ExerciseID int64
	Comment    string
}

// AddExerciseLog appends an exercise log to the workout.
func (s *Service) AddExerciseLog(ctx context.Context, requester Requester, workoutID int64, input NewExerciseLogInput) (*WorkoutLog, error) {
	exercise, err := s.repo.Exercise(ctx, input.ExerciseID)
	if err != nil {
		return nil, err
	}
	if exercise == nil {
		return nil, ErrExerciseNotFound
	}

	workout, err := s.mutate(ctx, requester, workoutID, func(w *WorkoutLog) error {
		w.AddExerciseLog(ExerciseLog{ExerciseID: input.ExerciseID, Comment: input.Comment})
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.RecordWorkoutMutation("add_exercise_log")
	return workout, nil
}

// RemoveExerciseLog removes an exercise log. Surviving siblings keep their
// positions; the gap persists until an explicit reorder.
func (s *Service) RemoveExerciseLog(ctx context.Context, requester Requester, workoutID, exerciseLogID int64) (*WorkoutLog, error) {
	workout, err := s.mutate(ctx, requester, workoutID, func(w *WorkoutLog) error {
		return w.RemoveExerciseLog(exerciseLogID)
	})
	if err != nil {
		return nil, err
	}
	observability.RecordWorkoutMutation("remove_exercise_log")
	return workout, nil
}

// ReorderExerciseLogs applies a complete reorder map to the workout's
// exercise logs.
func (s *Service) ReorderExerciseLogs(ctx context.Context, requester Requester, workoutID int64, moves map[int64]int) (*WorkoutLog, error) {
	workout, err := s.mutate(ctx, requester, workoutID, func(w *WorkoutLog) error {
		return w.ReorderExerciseLogs(moves)
	})
	if err != nil {
		return nil, recordReorderFailure(err)
	}
	observability.RecordWorkoutMutation("reorder_exercise_logs")
	return workout, nil
}

// SetLogInput captures the payload for adding or updating a set log.
type SetLogInput struct {
	Weight          float64
	RPE             *float64
	ResistanceBands int
	Kind            SetKind
	Reps            int
	Seconds         int
}

// AddSetLog appends a set log to the addressed exercise log.
func (s *Service) AddSetLog(ctx context.Context, requester Requester, workoutID, exerciseLogID int64, input SetLogInput) (*WorkoutLog, error) {
	workout, err := s.mutate(ctx, requester, workoutID, func(w *WorkoutLog) error {
		entry := w.FindExerciseLog(exerciseLogID)
		if entry == nil {
			return ErrExerciseLogNotFound
		}
		entry.AddSetLog(setLogFromInput(input))
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.RecordWorkoutMutation("add_set_log")
	return workout, nil
}

// UpdateSetLog replaces the payload of an existing set log.
func (s *Service) UpdateSetLog(ctx context.Context, requester Requester, workoutID, exerciseLogID, setLogID int64, input SetLogInput) (*WorkoutLog, error) {
	workout, err := s.mutate(ctx, requester, workoutID, func(w *WorkoutLog) error {
		entry := w.FindExerciseLog(exerciseLogID)
		if entry == nil {
			return ErrExerciseLogNotFound
		}
		updated := setLogFromInput(input)
		updated.ID = setLogID
		return entry.UpdateSetLog(updated)
	})
	if err != nil {
		return nil, err
	}
	observability.RecordWorkoutMutation("update_set_log")
	return workout, nil
}

// RemoveSetLog removes a set log from the addressed exercise log. A set-log
// id that belongs to a different exercise log is rejected without touching
// either aggregate.
func (s *Service) RemoveSetLog(ctx context.Context, requester Requester, workoutID, exerciseLogID, setLogID int64) (*WorkoutLog, error) {
	workout, err := s.mutate(ctx, requester, workoutID, func(w *WorkoutLog) error {
		entry := w.FindExerciseLog(exerciseLogID)
		if entry == nil {
			return ErrExerciseLogNotFound
		}
		return entry.RemoveSetLog(setLogID)
	})
	if err != nil {
		return nil, err
	}
	observability.RecordWorkoutMutation("remove_set_log")
	return workout, nil
}

// ReorderSetLogs applies a complete reorder map to an exercise log's sets.
func (s *Service) ReorderSetLogs(ctx context.Context, requester Requester, workoutID, exerciseLogID int64, moves map[int64]int) (*WorkoutLog, error) {
	workout, err := s.mutate(ctx, requester, workoutID, func(w *WorkoutLog) error {
		entry := w.FindExerciseLog(exerciseLogID)
		if entry == nil {
			return ErrExerciseLogNotFound
		}
		return entry.ReorderSetLogs(moves)
	})
	if err != nil {
		return nil, recordReorderFailure(err)
	}
	observability.RecordWorkoutMutation("reorder_set_logs")
	return workout, nil
}

// mutate runs fn against the loaded aggregate inside one transaction,
// after the ownership gate. Authorization strictly precedes any edit.
func (s *Service) mutate(ctx context.Context, requester Requester, workoutID int64, fn func(*WorkoutLog) error) (*WorkoutLog, error) {
	return s.repo.MutateWorkout(ctx, workoutID, func(w *WorkoutLog) error {
		if err := AuthorizeOwner(requester.UserID, w.OwnerID, requester.Roles); err != nil {
			return err
		}
		return fn(w)
	})
}

func setLogFromInput(input SetLogInput) SetLog {
	return SetLog{
		Weight:          input.Weight,
		RPE:             input.RPE,
		ResistanceBands: input.ResistanceBands,
		Kind:            input.Kind,
		Reps:            input.Reps,
		Seconds:         input.Seconds,
	}
}

func recordReorderFailure(err error) error {
	var reorderErr *ReorderError
	if errors.As(err, &reorderErr) {
		observability.RecordReorderRejection(string(reorderErr.Rule))
	}
	return err
}
