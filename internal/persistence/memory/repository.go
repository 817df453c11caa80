// Package memory provides an in-memory Repository for local development
// and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/witness-org/witness-sub000/internal/auth"
	"github.com/witness-org/witness-sub000/internal/domain"
)

// Repository stores all entities in process memory. Mutations operate on a
// copy of the aggregate and swap it in only on success, mirroring the
// transactional all-or-nothing semantics of the Postgres repository.
type Repository struct {
	mu        sync.RWMutex
	nextID    int64
	users     map[int64]domain.User
	exercises map[int64]domain.Exercise
	workouts  map[int64]domain.WorkoutLog
}

// NewRepository constructs an empty repository.
func NewRepository() *Repository {
	return &Repository{
		nextID:    1,
		users:     make(map[int64]domain.User),
		exercises: make(map[int64]domain.Exercise),
		workouts:  make(map[int64]domain.WorkoutLog),
	}
}

func (r *Repository) allocateID() int64 {
	id := r.nextID
	r.nextID++
	return id
}

// CreateUser implements domain.Repository.
func (r *Repository) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.allocateID()
	r.users[user.ID] = user
	return &user, nil
}

// UserByExternalID implements domain.Repository.
func (r *Repository) UserByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.ExternalID == externalID {
			found := user
			return &found, nil
		}
	}
	return nil, nil
}

// UserByID implements domain.Repository.
func (r *Repository) UserByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// ListUsers implements domain.Repository.
func (r *Repository) ListUsers(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateUserRole implements domain.Repository.
func (r *Repository) UpdateUserRole(_ context.Context, id int64, role *auth.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	user.Role = role
	r.users[id] = user
	return &user, nil
}

// CreateExercise implements domain.Repository.
func (r *Repository) CreateExercise(_ context.Context, exercise domain.Exercise) (*domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exercise.ID = r.allocateID()
	r.exercises[exercise.ID] = exercise
	return &exercise, nil
}

// Exercise implements domain.Repository.
func (r *Repository) Exercise(_ context.Context, id int64) (*domain.Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exercise, ok := r.exercises[id]
	if !ok {
		return nil, nil
	}
	return &exercise, nil
}

// ListExercises implements domain.Repository.
func (r *Repository) ListExercises(_ context.Context) ([]domain.Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Exercise, 0, len(r.exercises))
	for _, exercise := range r.exercises {
		out = append(out, exercise)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateExercise implements domain.Repository.
func (r *Repository) UpdateExercise(_ context.Context, exercise domain.Exercise) (*domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exercises[exercise.ID]; !ok {
		return nil, nil
	}
	r.exercises[exercise.ID] = exercise
	return &exercise, nil
}

// DeleteExercise implements domain.Repository.
func (r *Repository) DeleteExercise(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exercises[id]; !ok {
		return domain.ErrExerciseNotFound
	}
	delete(r.exercises, id)
	return nil
}

// CreateWorkout implements domain.Repository.
func (r *Repository) CreateWorkout(_ context.Context, workout domain.WorkoutLog) (*domain.WorkoutLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	workout.ID = r.allocateID()
	r.workouts[workout.ID] = workout
	cloned := cloneWorkout(workout)
	return &cloned, nil
}

// Workout implements domain.Repository.
func (r *Repository) Workout(_ context.Context, id int64) (*domain.WorkoutLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	workout, ok := r.workouts[id]
	if !ok {
		return nil, nil
	}
	cloned := cloneWorkout(workout)
	return &cloned, nil
}

// ListWorkoutsByOwner implements domain.Repository. Results are ordered
// newest first; the returned cursor is nil when no further page exists.
func (r *Repository) ListWorkoutsByOwner(_ context.Context, ownerID int64, cursor *domain.Cursor, limit int) ([]domain.WorkoutLog, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.WorkoutLog, 0)
	for _, workout := range r.workouts {
		if workout.OwnerID != ownerID {
			continue
		}
		if cursor != nil && !beforeCursor(workout, cursor) {
			continue
		}
		out = append(out, cloneWorkout(workout))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LoggedOn.Equal(out[j].LoggedOn) {
			return out[i].LoggedOn.After(out[j].LoggedOn)
		}
		return out[i].ID > out[j].ID
	})

	var next *domain.Cursor
	if limit > 0 && len(out) > limit {
		out = out[:limit]
		last := out[len(out)-1]
		next = &domain.Cursor{LoggedOn: last.LoggedOn, ID: last.ID}
	}
	return out, next, nil
}

func beforeCursor(workout domain.WorkoutLog, cursor *domain.Cursor) bool {
	if workout.LoggedOn.Equal(cursor.LoggedOn) {
		return workout.ID < cursor.ID
	}
	return workout.LoggedOn.Before(cursor.LoggedOn)
}

// MutateWorkout implements domain.Repository. fn runs against a copy; the
// stored aggregate is replaced only when fn succeeds.
func (r *Repository) MutateWorkout(_ context.Context, id int64, fn func(*domain.WorkoutLog) error) (*domain.WorkoutLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.workouts[id]
	if !ok {
		return nil, domain.ErrWorkoutNotFound
	}

	working := cloneWorkout(stored)
	if err := fn(&working); err != nil {
		return nil, err
	}

	r.assignChildIDs(&working)
	r.workouts[id] = cloneWorkout(working)
	return &working, nil
}

// DeleteWorkout implements domain.Repository.
func (r *Repository) DeleteWorkout(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workouts[id]; !ok {
		return domain.ErrWorkoutNotFound
	}
	delete(r.workouts, id)
	return nil
}

// assignChildIDs gives database-style ids to children added by the editor.
func (r *Repository) assignChildIDs(workout *domain.WorkoutLog) {
	for i := range workout.ExerciseLogs {
		entry := &workout.ExerciseLogs[i]
		if entry.ID == 0 {
			entry.ID = r.allocateID()
		}
		entry.WorkoutLogID = workout.ID
		for j := range entry.SetLogs {
			set := &entry.SetLogs[j]
			if set.ID == 0 {
				set.ID = r.allocateID()
			}
			set.ExerciseLogID = entry.ID
		}
	}
}

func cloneWorkout(workout domain.WorkoutLog) domain.WorkoutLog {
	cloned := workout
	cloned.ExerciseLogs = make([]domain.ExerciseLog, len(workout.ExerciseLogs))
	for i, entry := range workout.ExerciseLogs {
		clonedEntry := entry
		clonedEntry.SetLogs = make([]domain.SetLog, len(entry.SetLogs))
		copy(clonedEntry.SetLogs, entry.SetLogs)
		cloned.ExerciseLogs[i] = clonedEntry
	}
	return cloned
}
