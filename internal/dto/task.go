package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DueDate parses due_date from JSON as either date-only ("2006-01-02") or RFC3339.
// Date-only is stored as start of that day in UTC.
type DueDate struct{ t *time.Time }

func (d *DueDate) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.t = nil
		return nil
	}
	s := strings.TrimSpace(*raw)
	layouts := []string{
		"2006-01-02",     // date only
		time.RFC3339,     // 2006-01-02T15:04:05Z07:00
		time.RFC3339Nano, // with nanoseconds
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			// If it was date-only (no time component), use start of day UTC
			if layout == "2006-01-02" {
				parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			}
			d.t = &parsed
			return nil
		}
	}
	return fmt.Errorf("due_date: use date (YYYY-MM-DD) or RFC3339 datetime")
}

// Ptr returns *time.Time for use in service/domain.
func (d DueDate) Ptr() *time.Time { return d.t }

type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=200"`
	Description string  `json:"description" binding:"max=2000"`
	Priority    int     `json:"priority"` // 1..3; anything else is coerced to 1
	DueDate     DueDate `json:"due_date"` // optional: "2026-02-19" or RFC3339
}

// UpdateTaskRequest is a full replacement (PUT): every field is applied,
// absent optional fields reset to their zero values.
type UpdateTaskRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=200"`
	Description string  `json:"description" binding:"max=2000"`
	Priority    int     `json:"priority"`
	Completed   bool    `json:"completed"`
	DueDate     DueDate `json:"due_date"`
}

type BatchCreateRequest struct {
	Tasks []CreateTaskRequest `json:"tasks" binding:"required,min=1,dive"`
}

type TaskResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

type StatsResponse struct {
	TotalTasks        int64            `json:"total_tasks"`
	CompletedTasks    int64            `json:"completed_tasks"`
	PendingTasks      int64            `json:"pending_tasks"`
	CompletionRate    float64          `json:"completion_rate"`
	PriorityBreakdown map[string]int64 `json:"priority_breakdown"`
	TasksCreatedToday int64            `json:"tasks_created_today"`
	Timestamp         time.Time        `json:"timestamp"`
}

// ErrorResponse is the single error shape for every non-2xx response:
// a stable machine-readable kind plus a human-readable message.
type ErrorResponse struct {
	Kind    string            `json:"kind"`
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

const (
	KindValidation  = "validation"
	KindNotFound    = "not_found"
	KindRateLimited = "rate_limited"
	KindInternal    = "internal"
)

func Error(kind, msg string) ErrorResponse {
	return ErrorResponse{Kind: kind, Message: msg}
}
