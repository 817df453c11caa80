package domain

import "math"

// EstimateOneRepMax computes the Epley one-rep-max estimate for a set of
// reps at weight. The formula is only considered reliable for 1..10 reps;
// outside that range ok is false and no estimate is produced. A single rep
// is its own maximum.
func EstimateOneRepMax(weight float64, reps int) (estimate float64, ok bool) {
	if reps < 1 || reps > 10 {
		return 0, false
	}
	if reps == 1 {
		return weight, true
	}
	return math.Round(weight * (1 + float64(reps)/30)), true
}
