package store

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISOLayout matches the shape produced by JavaScript's Date.toISOString so
// timestamps in exported documents round-trip unchanged.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// ISOTimestamp formats t in UTC using ISOLayout.
func ISOTimestamp(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities high < medium < low. Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

func (p Priority) Valid() bool { return p.Rank() < 3 }

// ParsePriority accepts the three priority names case-insensitively.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q (want high, medium or low)", s)
	}
	return p, nil
}

// Category is a user-defined label. Todos and reports embed a copy of it
// taken at assignment time; later edits to the category do not reach them.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Todo struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    *string   `json:"description,omitempty"`
	Category       *Category `json:"category,omitempty"`
	EstimatedTime  *string   `json:"estimatedTime,omitempty"` // minutes
	IsCompleted    bool      `json:"isCompleted"`
	Priority       Priority  `json:"priority"`
	CreatedAt      string    `json:"createdAt"`
	CompletedAt    *string   `json:"completedAt,omitempty"`
	DueDate        string    `json:"dueDate,omitempty"`
	LinkedReportID *string   `json:"linkedReportId"`
}

// Report is a time-boxed activity log entry within a single day.
type Report struct {
	ID           string    `json:"id"`
	StartTime    string    `json:"startTime"` // HH:MM
	EndTime      string    `json:"endTime"`   // HH:MM
	Content      string    `json:"content"`
	Category     *Category `json:"category,omitempty"`
	LinkedTodoID *string   `json:"linkedTodoId"`
	IsFromTodo   bool      `json:"isFromTodo"`
}

var (
	errMissingID = errors.New("id is required")
	clockRe      = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errMissingID
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("category name is required")
	}
	return nil
}

func (t Todo) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errMissingID
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("title is required")
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	if t.IsCompleted && t.CompletedAt == nil {
		return errors.New("completed todo needs completedAt")
	}
	if !t.IsCompleted && t.CompletedAt != nil {
		return errors.New("completedAt set on an incomplete todo")
	}
	return nil
}

func (r Report) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errMissingID
	}
	if !clockRe.MatchString(r.StartTime) {
		return fmt.Errorf("invalid startTime %q (want HH:MM)", r.StartTime)
	}
	if !clockRe.MatchString(r.EndTime) {
		return fmt.Errorf("invalid endTime %q (want HH:MM)", r.EndTime)
	}
	return nil
}

// ValidClock reports whether s is a wall-clock HH:MM string. A single-digit
// hour is accepted.
func ValidClock(s string) bool { return clockRe.MatchString(s) }

// ClockMinutes converts an HH:MM string to minutes past midnight. Invalid
// input returns -1.
func ClockMinutes(s string) int {
	if !clockRe.MatchString(s) {
		return -1
	}
	h, m, _ := strings.Cut(s, ":")
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	return hh*60 + mm
}
