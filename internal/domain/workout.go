// Package domain defines the workout aggregate and the business logic that
// mutates it.
package domain

import "time"

// SetKind discriminates the two set-log variants. It is resolved once at
// the JSON boundary; the core never type-switches on payloads.
type SetKind string

const (
	// SetKindReps counts repetitions.
	SetKindReps SetKind = "reps"
	// SetKindTime measures a hold or carry in seconds.
	SetKindTime SetKind = "time"
)

// SetLog is a child of exactly one ExerciseLog.
type SetLog struct {
	ID              int64
	ExerciseLogID   int64
	Position        int
	Weight          float64
	RPE             *float64
	ResistanceBands int
	Kind            SetKind
	Reps            int // meaningful when Kind == SetKindReps
	Seconds         int // meaningful when Kind == SetKindTime
}

// ExerciseLog is a child of exactly one WorkoutLog. Positions of sibling
// exercise logs form a contiguous permutation of 1..N, except for gaps
// left by removals that have not yet been reordered.
type ExerciseLog struct {
	ID           int64
	WorkoutLogID int64
	ExerciseID   int64
	Position     int
	Comment      string
	SetLogs      []SetLog
}

// WorkoutLog is the aggregate root. The owner is immutable once created;
// structural changes go through the editor methods only.
type WorkoutLog struct {
	ID              int64
	OwnerID         int64
	LoggedOn        time.Time
	DurationMinutes *int
	ExerciseLogs    []ExerciseLog
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Cursor marks a position in the newest-first workout listing.
type Cursor struct {
	LoggedOn time.Time
	ID       int64
}
