package domain

import "sort"

// Editor methods are the only way to change the structure of a workout
// aggregate. They maintain positional and referential invariants in memory;
// the repository persists the result atomically.
//
// Removals do not renumber surviving siblings: the gap stays until the
// client issues an explicit reorder.

// AddExerciseLog appends a new exercise log past the highest occupied
// position.
func (w *WorkoutLog) AddExerciseLog(entry ExerciseLog) *ExerciseLog {
	entry.WorkoutLogID = w.ID
	entry.Position = NextPosition(exercisePositions(w.ExerciseLogs))
	w.ExerciseLogs = append(w.ExerciseLogs, entry)
	return &w.ExerciseLogs[len(w.ExerciseLogs)-1]
}

// FindExerciseLog returns the member with the given id, or nil.
func (w *WorkoutLog) FindExerciseLog(id int64) *ExerciseLog {
	for i := range w.ExerciseLogs {
		if w.ExerciseLogs[i].ID == id {
			return &w.ExerciseLogs[i]
		}
	}
	return nil
}

// RemoveExerciseLog removes the member with the given id. A child that is
// not in the collection, or whose back-reference points at a different
// workout, yields ErrNotInAggregate.
func (w *WorkoutLog) RemoveExerciseLog(id int64) error {
	for i := range w.ExerciseLogs {
		if w.ExerciseLogs[i].ID != id {
			continue
		}
		if w.ExerciseLogs[i].WorkoutLogID != w.ID {
			return ErrNotInAggregate
		}
		w.ExerciseLogs = append(w.ExerciseLogs[:i], w.ExerciseLogs[i+1:]...)
		return nil
	}
	return ErrNotInAggregate
}

// ReorderExerciseLogs applies a complete reorder map to the exercise logs.
// Any validation failure leaves the aggregate untouched.
func (w *WorkoutLog) ReorderExerciseLogs(moves map[int64]int) error {
	ids := make([]int64, len(w.ExerciseLogs))
	for i := range w.ExerciseLogs {
		ids[i] = w.ExerciseLogs[i].ID
	}
	if err := PlanReorder(ids, moves); err != nil {
		return err
	}
	for i := range w.ExerciseLogs {
		w.ExerciseLogs[i].Position = moves[w.ExerciseLogs[i].ID]
	}
	sort.Slice(w.ExerciseLogs, func(i, j int) bool {
		return w.ExerciseLogs[i].Position < w.ExerciseLogs[j].Position
	})
	return nil
}

// AddSetLog appends a new set log past the highest occupied position.
func (e *ExerciseLog) AddSetLog(entry SetLog) *SetLog {
	entry.ExerciseLogID = e.ID
	entry.Position = NextPosition(setPositions(e.SetLogs))
	e.SetLogs = append(e.SetLogs, entry)
	return &e.SetLogs[len(e.SetLogs)-1]
}

// RemoveSetLog removes the member with the given id. A valid set-log id
// that belongs to a different exercise log is rejected, defending against
// cross-aggregate id confusion.
func (e *ExerciseLog) RemoveSetLog(id int64) error {
	for i := range e.SetLogs {
		if e.SetLogs[i].ID != id {
			continue
		}
		if e.SetLogs[i].ExerciseLogID != e.ID {
			return ErrNotInAggregate
		}
		e.SetLogs = append(e.SetLogs[:i], e.SetLogs[i+1:]...)
		return nil
	}
	return ErrNotInAggregate
}

// UpdateSetLog replaces the payload of an existing set log, keeping its id
// and position.
func (e *ExerciseLog) UpdateSetLog(entry SetLog) error {
	for i := range e.SetLogs {
		if e.SetLogs[i].ID != entry.ID {
			continue
		}
		if e.SetLogs[i].ExerciseLogID != e.ID {
			return ErrNotInAggregate
		}
		entry.ExerciseLogID = e.ID
		entry.Position = e.SetLogs[i].Position
		e.SetLogs[i] = entry
		return nil
	}
	return ErrNotInAggregate
}

// ReorderSetLogs applies a complete reorder map to the set logs.
func (e *ExerciseLog) ReorderSetLogs(moves map[int64]int) error {
	ids := make([]int64, len(e.SetLogs))
	for i := range e.SetLogs {
		ids[i] = e.SetLogs[i].ID
	}
	if err := PlanReorder(ids, moves); err != nil {
		return err
	}
	for i := range e.SetLogs {
		e.SetLogs[i].Position = moves[e.SetLogs[i].ID]
	}
	sort.Slice(e.SetLogs, func(i, j int) bool {
		return e.SetLogs[i].Position < e.SetLogs[j].Position
	})
	return nil
}
