package domain

// Severity and probability are graded 1..3; criticity is their product (1..9).
type (
	Severity    int
	Probability int
	Criticity   int
)

// Priority buckets criticity for display ordering. Values sort lexically with
// the highest priority first, which is why high is "01".
type Priority string

const (
	PriorityHigh   Priority = "01"
	PriorityMedium Priority = "02"
	PriorityLow    Priority = "03"
)

// ComputeCriticity multiplies severity by probability.
func ComputeCriticity(s Severity, p Probability) Criticity {
	return Criticity(int(s) * int(p))
}

// PriorityFromCriticity maps criticity to a priority bucket:
// c <= 3 low, 3 < c <= 6 medium, c > 6 high. The thresholds partition the
// full 1..9 domain with no gaps or overlaps.
func PriorityFromCriticity(c Criticity) Priority {
	switch {
	case c <= 3:
		return PriorityLow
	case c <= 6:
		return PriorityMedium
	default:
		return PriorityHigh
	}
}

// ValidGrade reports whether a severity or probability value is on the 1..3 scale.
func ValidGrade(v int) bool { return v >= 1 && v <= 3 }
