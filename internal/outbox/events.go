package outbox

import "time"

// Event types recorded by the repositories and delivered by the Dispatcher.
const (
	EventWorkoutCreated = "workout.created"
	EventWorkoutUpdated = "workout.updated"
	EventWorkoutDeleted = "workout.deleted"
)

// TopicWorkoutEvents carries every workout lifecycle event.
const TopicWorkoutEvents = "workout_events"

// WorkoutCreated is published when a workout log is created.
type WorkoutCreated struct {
	WorkoutID  int64     `json:"workout_id"`
	OwnerID    int64     `json:"owner_id"`
	LoggedOn   time.Time `json:"logged_on"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WorkoutUpdated is published after a structural mutation commits.
type WorkoutUpdated struct {
	WorkoutID  int64     `json:"workout_id"`
	OwnerID    int64     `json:"owner_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WorkoutDeleted is published when a workout log is removed.
type WorkoutDeleted struct {
	WorkoutID  int64     `json:"workout_id"`
	OwnerID    int64     `json:"owner_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
