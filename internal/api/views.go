package api

import (
	"time"

	"github.com/witness-org/witness-sub000/internal/domain"
)

// UserView exposes a user record.
type UserView struct {
	ID         int64   `json:"id"`
	ExternalID string  `json:"external_id"`
	Role       *string `json:"role"`
	Email      string  `json:"email"`
	Username   string  `json:"username"`
}

// ExerciseView exposes a catalog entry.
type ExerciseView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MuscleGroup string `json:"muscle_group"`
}

// SetLogView exposes a set log. The one-rep-max estimate is present only
// for rep-based sets within the reliable range.
type SetLogView struct {
	ID              int64    `json:"id"`
	Position        int      `json:"position"`
	Weight          float64  `json:"weight"`
	RPE             *float64 `json:"rpe,omitempty"`
	ResistanceBands int      `json:"resistance_bands"`
	Kind            string   `json:"type"`
	Reps            *int     `json:"reps,omitempty"`
	Seconds         *int     `json:"seconds,omitempty"`
	OneRepMax       *float64 `json:"estimated_one_rep_max,omitempty"`
}

// ExerciseLogView exposes an exercise log with its sets.
type ExerciseLogView struct {
	ID         int64        `json:"id"`
	ExerciseID int64        `json:"exercise_id"`
	Position   int          `json:"position"`
	Comment    string       `json:"comment,omitempty"`
	SetLogs    []SetLogView `json:"set_logs"`
}

// WorkoutView exposes the full aggregate.
type WorkoutView struct {
	ID              int64             `json:"id"`
	OwnerID         int64             `json:"owner_id"`
	LoggedOn        time.Time         `json:"logged_on"`
	DurationMinutes *int              `json:"duration_minutes,omitempty"`
	ExerciseLogs    []ExerciseLogView `json:"exercise_logs"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ListWorkoutsResponse packages one page of list results. NextCursor is
// empty on the last page.
type ListWorkoutsResponse struct {
	Items      []WorkoutView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func toUserView(user domain.User) UserView {
	view := UserView{
		ID:         user.ID,
		ExternalID: user.ExternalID,
		Email:      user.Email,
		Username:   user.Username,
	}
	if user.Role != nil {
		role := string(*user.Role)
		view.Role = &role
	}
	return view
}

func toExerciseView(exercise domain.Exercise) ExerciseView {
	return ExerciseView{
		ID:          exercise.ID,
		Name:        exercise.Name,
		Description: exercise.Description,
		MuscleGroup: exercise.MuscleGroup,
	}
}

func toSetLogView(set domain.SetLog) SetLogView {
	view := SetLogView{
		ID:              set.ID,
		Position:        set.Position,
		Weight:          set.Weight,
		RPE:             set.RPE,
		ResistanceBands: set.ResistanceBands,
		Kind:            string(set.Kind),
	}
	switch set.Kind {
	case domain.SetKindReps:
		reps := set.Reps
		view.Reps = &reps
		if estimate, ok := domain.EstimateOneRepMax(set.Weight, set.Reps); ok {
			view.OneRepMax = &estimate
		}
	case domain.SetKindTime:
		seconds := set.Seconds
		view.Seconds = &seconds
	}
	return view
}

func toExerciseLogView(entry domain.ExerciseLog) ExerciseLogView {
	view := ExerciseLogView{
		ID:         entry.ID,
		ExerciseID: entry.ExerciseID,
		Position:   entry.Position,
		Comment:    entry.Comment,
		SetLogs:    make([]SetLogView, 0, len(entry.SetLogs)),
	}
	for _, set := range entry.SetLogs {
		view.SetLogs = append(view.SetLogs, toSetLogView(set))
	}
	return view
}

func toWorkoutView(workout domain.WorkoutLog) WorkoutView {
	view := WorkoutView{
		ID:              workout.ID,
		OwnerID:         workout.OwnerID,
		LoggedOn:        workout.LoggedOn,
		DurationMinutes: workout.DurationMinutes,
		ExerciseLogs:    make([]ExerciseLogView, 0, len(workout.ExerciseLogs)),
		CreatedAt:       workout.CreatedAt,
		UpdatedAt:       workout.UpdatedAt,
	}
	for _, entry := range workout.ExerciseLogs {
		view.ExerciseLogs = append(view.ExerciseLogs, toExerciseLogView(entry))
	}
	return view
}
