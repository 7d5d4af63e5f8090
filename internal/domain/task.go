package domain

import "time"

// Priority levels. Anything outside this range is coerced to PriorityLow
// during validation, so persisted rows always hold one of these.
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// Task is the business entity. Independent of Gin, Postgres, Redis.
type Task struct {
	ID          int64
	Title       string
	Description string
	Completed   bool
	Priority    int
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	// UserID is reserved for future auth integration; no code path sets it.
	UserID *int64
}

// NormalizePriority coerces p into the valid range: omitted (0) or
// out-of-range values become PriorityLow.
func NormalizePriority(p int) int {
	if p < PriorityLow || p > PriorityHigh {
		return PriorityLow
	}
	return p
}

// ValidPriority reports whether p is an exact priority level. Used for
// filter parameters, which are rejected rather than coerced.
func ValidPriority(p int) bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// TaskFilter narrows a list query. Nil/empty fields impose no constraint.
type TaskFilter struct {
	Search    string
	Completed *bool
	Priority  *int
}

// Stats are the raw counts aggregated from the store. Derived figures
// (pending, completion rate) are computed by the stats service.
type Stats struct {
	Total        int64
	Completed    int64
	ByPriority   map[int]int64
	CreatedToday int64
	GeneratedAt  time.Time
}
