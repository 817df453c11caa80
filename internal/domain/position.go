package domain

import (
	"fmt"
	"sort"
)

// NextPosition returns the 1-based position for a child appended to a
// collection with the given sibling positions. Gaps left by removals are
// not reused: the new child lands past the highest survivor, so an append
// never collides with an existing position.
func NextPosition(positions []int) int {
	next := 1
	for _, pos := range positions {
		if pos >= next {
			next = pos + 1
		}
	}
	return next
}

func exercisePositions(logs []ExerciseLog) []int {
	positions := make([]int, len(logs))
	for i := range logs {
		positions[i] = logs[i].Position
	}
	return positions
}

func setPositions(sets []SetLog) []int {
	positions := make([]int, len(sets))
	for i := range sets {
		positions[i] = sets[i].Position
	}
	return positions
}

// PlanReorder validates a caller-supplied reorder map against the current
// child ids. The map must be a complete bijection: every existing child
// present exactly once, no unknown children, and the target positions must
// form a contiguous 1..N sequence. Validation failures identify the
// violated rule and leave nothing mutated.
func PlanReorder(existing []int64, moves map[int64]int) error {
	known := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}

	for id := range moves {
		if _, ok := known[id]; !ok {
			return &ReorderError{Rule: ReorderOverdefined, Detail: fmt.Sprintf("child %d is not part of the collection", id)}
		}
	}
	for _, id := range existing {
		if _, ok := moves[id]; !ok {
			return &ReorderError{Rule: ReorderIncomplete, Detail: fmt.Sprintf("child %d is missing from the map", id)}
		}
	}

	positions := make([]int, 0, len(moves))
	for _, pos := range moves {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	for i, pos := range positions {
		if pos != i+1 {
			if i > 0 && pos == positions[i-1] {
				return &ReorderError{Rule: ReorderAmbiguous, Detail: fmt.Sprintf("position %d is assigned more than once", pos)}
			}
			return &ReorderError{Rule: ReorderAmbiguous, Detail: fmt.Sprintf("positions must form a contiguous 1..%d sequence", len(moves))}
		}
	}

	return nil
}

// ContiguousPositions reports whether positions form a permutation of 1..N.
func ContiguousPositions(positions []int) bool {
	sorted := make([]int, len(positions))
	copy(sorted, positions)
	sort.Ints(sorted)
	for i, pos := range sorted {
		if pos != i+1 {
			return false
		}
	}
	return true
}
