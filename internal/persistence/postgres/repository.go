// Package postgres provides pgx-backed persistence for users, exercises,
// and workout aggregates, plus transactional outbox recording.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/witness-org/witness-sub000/internal/auth"
	"github.com/witness-org/witness-sub000/internal/domain"
	"github.com/witness-org/witness-sub000/internal/observability"
	"github.com/witness-org/witness-sub000/internal/outbox"
)

// Repository implements domain.Repository against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser inserts a user record.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	const stmt = `INSERT INTO users (external_id, role, email, username)
        VALUES ($1,$2,$3,$4) RETURNING user_id`
	row := r.pool.QueryRow(ctx, stmt, user.ExternalID, roleValue(user.Role), user.Email, user.Username)
	if err := row.Scan(&user.ID); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserByExternalID looks a user up by the identity provider's subject id.
func (r *Repository) UserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	return r.userBy(ctx, `SELECT user_id, external_id, role, email, username FROM users WHERE external_id=$1`, externalID)
}

// UserByID looks a user up by internal id.
func (r *Repository) UserByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.userBy(ctx, `SELECT user_id, external_id, role, email, username FROM users WHERE user_id=$1`, id)
}

func (r *Repository) userBy(ctx context.Context, query string, arg any) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns all users ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, external_id, role, email, username FROM users ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateUserRole sets the active role, nil clearing it.
func (r *Repository) UpdateUserRole(ctx context.Context, id int64, role *auth.Role) (*domain.User, error) {
	const stmt = `UPDATE users SET role=$2 WHERE user_id=$1
        RETURNING user_id, external_id, role, email, username`
	row := r.pool.QueryRow(ctx, stmt, id, roleValue(role))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CreateExercise inserts a catalog entry.
func (r *Repository) CreateExercise(ctx context.Context, exercise domain.Exercise) (*domain.Exercise, error) {
	const stmt = `INSERT INTO exercises (name, description, muscle_group)
        VALUES ($1,$2,$3) RETURNING exercise_id`
	row := r.pool.QueryRow(ctx, stmt, exercise.Name, exercise.Description, exercise.MuscleGroup)
	if err := row.Scan(&exercise.ID); err != nil {
		return nil, err
	}
	return &exercise, nil
}

// Exercise fetches a catalog entry by id.
func (r *Repository) Exercise(ctx context.Context, id int64) (*domain.Exercise, error) {
	const query = `SELECT exercise_id, name, description, muscle_group FROM exercises WHERE exercise_id=$1`
	var exercise domain.Exercise
	err := r.pool.QueryRow(ctx, query, id).Scan(&exercise.ID, &exercise.Name, &exercise.Description, &exercise.MuscleGroup)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &exercise, nil
}

// ListExercises returns the catalog ordered by name.
func (r *Repository) ListExercises(ctx context.Context) ([]domain.Exercise, error) {
	rows, err := r.pool.Query(ctx, `SELECT exercise_id, name, description, muscle_group FROM exercises ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exercises := make([]domain.Exercise, 0)
	for rows.Next() {
		var exercise domain.Exercise
		if err := rows.Scan(&exercise.ID, &exercise.Name, &exercise.Description, &exercise.MuscleGroup); err != nil {
			return nil, err
		}
		exercises = append(exercises, exercise)
	}
	return exercises, rows.Err()
}

// UpdateExercise replaces a catalog entry.
func (r *Repository) UpdateExercise(ctx context.Context, exercise domain.Exercise) (*domain.Exercise, error) {
	const stmt = `UPDATE exercises SET name=$2, description=$3, muscle_group=$4 WHERE exercise_id=$1`
	tag, err := r.pool.Exec(ctx, stmt, exercise.ID, exercise.Name, exercise.Description, exercise.MuscleGroup)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return &exercise, nil
}

// DeleteExercise removes a catalog entry.
func (r *Repository) DeleteExercise(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exercises WHERE exercise_id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExerciseNotFound
	}
	return nil
}

// CreateWorkout inserts an empty aggregate and records the created event in
// the same transaction.
func (r *Repository) CreateWorkout(ctx context.Context, workout domain.WorkoutLog) (*domain.WorkoutLog, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const stmt = `INSERT INTO workout_logs (owner_id, logged_on, duration_min, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5) RETURNING workout_id`
	if err := tx.QueryRow(ctx, stmt, workout.OwnerID, workout.LoggedOn, workout.DurationMinutes, workout.CreatedAt, workout.UpdatedAt).Scan(&workout.ID); err != nil {
		return nil, err
	}

	event := outbox.WorkoutCreated{
		WorkoutID:  workout.ID,
		OwnerID:    workout.OwnerID,
		LoggedOn:   workout.LoggedOn,
		OccurredAt: workout.CreatedAt,
	}
	dedupe := fmt.Sprintf("%d:%s", workout.ID, outbox.EventWorkoutCreated)
	if err := insertOutbox(ctx, tx, workout, outbox.EventWorkoutCreated, dedupe, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	observability.RecordWorkoutPersisted(workout.UpdatedAt)
	workout.ExerciseLogs = make([]domain.ExerciseLog, 0)
	return &workout, nil
}

// Workout loads the full aggregate, children ordered by position.
func (r *Repository) Workout(ctx context.Context, id int64) (*domain.WorkoutLog, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	workout, err := loadAggregate(ctx, tx, id, false)
	if err != nil {
		return nil, err
	}
	if workout == nil {
		return nil, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return workout, nil
}

// ListWorkoutsByOwner returns a page of the owner's aggregates, newest
// first. One extra row is fetched to decide whether a next page exists.
func (r *Repository) ListWorkoutsByOwner(ctx context.Context, ownerID int64, cursor *domain.Cursor, limit int) ([]domain.WorkoutLog, *domain.Cursor, error) {
	query := `SELECT workout_id FROM workout_logs WHERE owner_id=$1`
	args := []any{ownerID}
	if cursor != nil {
		query += ` AND (logged_on, workout_id) < ($2,$3)`
		args = append(args, cursor.LoggedOn, cursor.ID)
	}
	query += ` ORDER BY logged_on DESC, workout_id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit+1)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	hasMore := limit > 0 && len(ids) > limit
	if hasMore {
		ids = ids[:limit]
	}

	workouts := make([]domain.WorkoutLog, 0, len(ids))
	for _, id := range ids {
		workout, err := r.Workout(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if workout != nil {
			workouts = append(workouts, *workout)
		}
	}

	var next *domain.Cursor
	if hasMore && len(workouts) > 0 {
		last := workouts[len(workouts)-1]
		next = &domain.Cursor{LoggedOn: last.LoggedOn, ID: last.ID}
	}
	return workouts, next, nil
}

// MutateWorkout loads the aggregate under a row lock, applies fn, and
// persists the result. Everything runs in one transaction: a failing fn or
// a failed persist leaves the stored aggregate untouched.
func (r *Repository) MutateWorkout(ctx context.Context, id int64, fn func(*domain.WorkoutLog) error) (*domain.WorkoutLog, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	workout, err := loadAggregate(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if workout == nil {
		return nil, domain.ErrWorkoutNotFound
	}

	original := snapshotChildIDs(workout)

	if err := fn(workout); err != nil {
		return nil, err
	}

	workout.UpdatedAt = time.Now().UTC()
	if err := persistAggregate(ctx, tx, workout, original); err != nil {
		return nil, err
	}

	event := outbox.WorkoutUpdated{
		WorkoutID:  workout.ID,
		OwnerID:    workout.OwnerID,
		OccurredAt: workout.UpdatedAt,
	}
	if err := insertOutbox(ctx, tx, *workout, outbox.EventWorkoutUpdated, uuid.NewString(), event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	observability.RecordWorkoutPersisted(workout.UpdatedAt)
	return workout, nil
}

// DeleteWorkout removes the aggregate; children go with it via cascade.
func (r *Repository) DeleteWorkout(ctx context.Context, id int64) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var ownerID int64
	if err := tx.QueryRow(ctx, `SELECT owner_id FROM workout_logs WHERE workout_id=$1`, id).Scan(&ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrWorkoutNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM workout_logs WHERE workout_id=$1`, id); err != nil {
		return err
	}

	event := outbox.WorkoutDeleted{
		WorkoutID:  id,
		OwnerID:    ownerID,
		OccurredAt: time.Now().UTC(),
	}
	dedupe := fmt.Sprintf("%d:%s", id, outbox.EventWorkoutDeleted)
	if err := insertOutbox(ctx, tx, domain.WorkoutLog{ID: id, OwnerID: ownerID}, outbox.EventWorkoutDeleted, dedupe, event); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// childIDs tracks the children present when the aggregate was loaded, so
// the persist step can tell inserts from updates and find removals.
type childIDs struct {
	exerciseLogs []int64
	setLogs      map[int64][]int64
}

func snapshotChildIDs(workout *domain.WorkoutLog) childIDs {
	snapshot := childIDs{setLogs: make(map[int64][]int64)}
	for _, entry := range workout.ExerciseLogs {
		snapshot.exerciseLogs = append(snapshot.exerciseLogs, entry.ID)
		ids := make([]int64, 0, len(entry.SetLogs))
		for _, set := range entry.SetLogs {
			ids = append(ids, set.ID)
		}
		snapshot.setLogs[entry.ID] = ids
	}
	return snapshot
}

func loadAggregate(ctx context.Context, tx pgx.Tx, id int64, forUpdate bool) (*domain.WorkoutLog, error) {
	query := `SELECT workout_id, owner_id, logged_on, duration_min, created_at, updated_at
        FROM workout_logs WHERE workout_id=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var workout domain.WorkoutLog
	err := tx.QueryRow(ctx, query, id).Scan(&workout.ID, &workout.OwnerID, &workout.LoggedOn, &workout.DurationMinutes, &workout.CreatedAt, &workout.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	const logsQuery = `SELECT exercise_log_id, workout_id, exercise_id, position, comment
        FROM exercise_logs WHERE workout_id=$1 ORDER BY position, exercise_log_id`
	rows, err := tx.Query(ctx, logsQuery, id)
	if err != nil {
		return nil, err
	}
	workout.ExerciseLogs = make([]domain.ExerciseLog, 0)
	for rows.Next() {
		var entry domain.ExerciseLog
		if err := rows.Scan(&entry.ID, &entry.WorkoutLogID, &entry.ExerciseID, &entry.Position, &entry.Comment); err != nil {
			rows.Close()
			return nil, err
		}
		entry.SetLogs = make([]domain.SetLog, 0)
		workout.ExerciseLogs = append(workout.ExerciseLogs, entry)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const setsQuery = `SELECT s.set_log_id, s.exercise_log_id, s.position, s.weight, s.rpe, s.resistance_bands, s.kind, s.reps, s.seconds
        FROM set_logs s
        JOIN exercise_logs e ON e.exercise_log_id = s.exercise_log_id
        WHERE e.workout_id=$1 ORDER BY s.position, s.set_log_id`
	setRows, err := tx.Query(ctx, setsQuery, id)
	if err != nil {
		return nil, err
	}
	defer setRows.Close()

	byParent := make(map[int64][]domain.SetLog)
	for setRows.Next() {
		var set domain.SetLog
		if err := setRows.Scan(&set.ID, &set.ExerciseLogID, &set.Position, &set.Weight, &set.RPE, &set.ResistanceBands, &set.Kind, &set.Reps, &set.Seconds); err != nil {
			return nil, err
		}
		byParent[set.ExerciseLogID] = append(byParent[set.ExerciseLogID], set)
	}
	if err := setRows.Err(); err != nil {
		return nil, err
	}

	for i := range workout.ExerciseLogs {
		if sets, ok := byParent[workout.ExerciseLogs[i].ID]; ok {
			workout.ExerciseLogs[i].SetLogs = sets
		}
	}

	return &workout, nil
}

func persistAggregate(ctx context.Context, tx pgx.Tx, workout *domain.WorkoutLog, original childIDs) error {
	const updateWorkout = `UPDATE workout_logs SET logged_on=$2, duration_min=$3, updated_at=$4 WHERE workout_id=$1`
	if _, err := tx.Exec(ctx, updateWorkout, workout.ID, workout.LoggedOn, workout.DurationMinutes, workout.UpdatedAt); err != nil {
		return err
	}

	surviving := make(map[int64]struct{})
	for i := range workout.ExerciseLogs {
		entry := &workout.ExerciseLogs[i]
		if entry.ID == 0 {
			const insertLog = `INSERT INTO exercise_logs (workout_id, exercise_id, position, comment)
                VALUES ($1,$2,$3,$4) RETURNING exercise_log_id`
			if err := tx.QueryRow(ctx, insertLog, workout.ID, entry.ExerciseID, entry.Position, entry.Comment).Scan(&entry.ID); err != nil {
				return err
			}
			entry.WorkoutLogID = workout.ID
		} else {
			const updateLog = `UPDATE exercise_logs SET exercise_id=$2, position=$3, comment=$4 WHERE exercise_log_id=$1`
			if _, err := tx.Exec(ctx, updateLog, entry.ID, entry.ExerciseID, entry.Position, entry.Comment); err != nil {
				return err
			}
		}
		surviving[entry.ID] = struct{}{}

		if err := persistSetLogs(ctx, tx, entry, original.setLogs[entry.ID]); err != nil {
			return err
		}
	}

	for _, id := range original.exerciseLogs {
		if _, ok := surviving[id]; ok {
			continue
		}
		if _, err := tx.Exec(ctx, `DELETE FROM exercise_logs WHERE exercise_log_id=$1`, id); err != nil {
			return err
		}
	}

	return nil
}

func persistSetLogs(ctx context.Context, tx pgx.Tx, entry *domain.ExerciseLog, originalIDs []int64) error {
	surviving := make(map[int64]struct{})
	for i := range entry.SetLogs {
		set := &entry.SetLogs[i]
		if set.ID == 0 {
			const insertSet = `INSERT INTO set_logs (exercise_log_id, position, weight, rpe, resistance_bands, kind, reps, seconds)
                VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING set_log_id`
			if err := tx.QueryRow(ctx, insertSet, entry.ID, set.Position, set.Weight, set.RPE, set.ResistanceBands, set.Kind, set.Reps, set.Seconds).Scan(&set.ID); err != nil {
				return err
			}
			set.ExerciseLogID = entry.ID
		} else {
			const updateSet = `UPDATE set_logs SET position=$2, weight=$3, rpe=$4, resistance_bands=$5, kind=$6, reps=$7, seconds=$8 WHERE set_log_id=$1`
			if _, err := tx.Exec(ctx, updateSet, set.ID, set.Position, set.Weight, set.RPE, set.ResistanceBands, set.Kind, set.Reps, set.Seconds); err != nil {
				return err
			}
		}
		surviving[set.ID] = struct{}{}
	}

	for _, id := range originalIDs {
		if _, ok := surviving[id]; ok {
			continue
		}
		if _, err := tx.Exec(ctx, `DELETE FROM set_logs WHERE set_log_id=$1`, id); err != nil {
			return err
		}
	}

	return nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, workout domain.WorkoutLog, eventType, dedupeKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	partitionKey := fmt.Sprintf("%d", workout.OwnerID)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err = tx.Exec(ctx, stmt,
		"workout_log",
		fmt.Sprintf("%d", workout.ID),
		eventType,
		outbox.TopicWorkoutEvents,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

func roleValue(role *auth.Role) any {
	if role == nil {
		return nil
	}
	return string(*role)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var role *string
	if err := row.Scan(&user.ID, &user.ExternalID, &role, &user.Email, &user.Username); err != nil {
		return nil, err
	}
	if role != nil {
		parsed := auth.Role(*role)
		user.Role = &parsed
	}
	return &user, nil
}
