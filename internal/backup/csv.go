package backup

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/sadopc/reportory/internal/store"
)

func WriteTodosCSV(out io.Writer, todos []store.Todo) error {
	w := csv.NewWriter(out)

	if err := w.Write([]string{"ID", "Title", "Priority", "Category", "Created", "Due", "Completed", "Completed At", "Estimate (min)", "Description"}); err != nil {
		return err
	}

	for _, t := range todos {
		row := []string{
			t.ID,
			t.Title,
			string(t.Priority),
			categoryName(t.Category),
			t.CreatedAt,
			t.DueDate,
			strconv.FormatBool(t.IsCompleted),
			deref(t.CompletedAt),
			deref(t.EstimatedTime),
			deref(t.Description),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func WriteReportsCSV(out io.Writer, reports []store.Report) error {
	w := csv.NewWriter(out)

	if err := w.Write([]string{"ID", "Start", "End", "Duration", "Category", "Content", "From Todo", "Linked Todo"}); err != nil {
		return err
	}

	for _, r := range reports {
		row := []string{
			r.ID,
			r.StartTime,
			r.EndTime,
			span(r.StartTime, r.EndTime),
			categoryName(r.Category),
			r.Content,
			strconv.FormatBool(r.IsFromTodo),
			deref(r.LinkedTodoID),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// span renders the time between two HH:MM clocks as HH:MM. Invalid or
// inverted ranges render empty.
func span(start, end string) string {
	s, e := store.ClockMinutes(start), store.ClockMinutes(end)
	if s < 0 || e < s {
		return ""
	}
	return formatDuration(e - s)
}

func formatDuration(mins int) string {
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

func categoryName(c *store.Category) string {
	if c == nil {
		return ""
	}
	return c.Name
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
