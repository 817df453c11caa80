package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when a user cannot be located.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when the subject is already registered.
	ErrUserExists = errors.New("user already registered")
	// ErrExerciseNotFound is returned when a catalog exercise cannot be located.
	ErrExerciseNotFound = errors.New("exercise not found")
	// ErrWorkoutNotFound is returned when a workout aggregate cannot be located.
	ErrWorkoutNotFound = errors.New("workout log not found")
	// ErrExerciseLogNotFound is returned when the addressed exercise log is
	// not part of the workout.
	ErrExerciseLogNotFound = errors.New("exercise log not found")
	// ErrNotOwner is returned when the requester neither owns the aggregate
	// nor holds the elevated role.
	ErrNotOwner = errors.New("workout log belongs to a different user")
	// ErrNotInAggregate is returned when a child id resolves to an entity
	// outside the addressed parent collection.
	ErrNotInAggregate = errors.New("entity is not part of the addressed aggregate")
	// ErrInsufficientRole is returned when an operation requires a role the
	// requester does not hold.
	ErrInsufficientRole = errors.New("insufficient role")
)

// ReorderRule identifies which validation rule a reorder map violated.
type ReorderRule string

const (
	// ReorderIncomplete: an existing child is missing from the map.
	ReorderIncomplete ReorderRule = "incomplete"
	// ReorderOverdefined: the map names a child that is not in the collection.
	ReorderOverdefined ReorderRule = "overdefined"
	// ReorderAmbiguous: target positions collide, leave gaps, or fall
	// outside 1..N.
	ReorderAmbiguous ReorderRule = "ambiguous"
)

// ReorderError reports a rejected reorder map. The aggregate is left
// untouched whenever it is returned.
type ReorderError struct {
	Rule   ReorderRule
	Detail string
}

func (e *ReorderError) Error() string {
	return fmt.Sprintf("invalid reorder map (%s): %s", e.Rule, e.Detail)
}
