package backup

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/sadopc/reportory/internal/store"
)

func strp(s string) *string { return &s }

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	return records
}

// ============================================================
// Todos
// ============================================================

func TestWriteTodosCSV(t *testing.T) {
	todos := []store.Todo{
		{
			ID: "t1", Title: "Buy milk", Priority: store.PriorityMedium,
			CreatedAt: "2024-01-01T00:00:00Z", DueDate: "2024-01-01",
			Category: &store.Category{ID: "c1", Name: "Errands", Color: "#00C853"},
		},
		{
			ID: "t2", Title: "File taxes", Priority: store.PriorityHigh,
			CreatedAt: "2024-01-02T00:00:00Z", IsCompleted: true,
			CompletedAt: strp("2024-01-03T10:00:00.000Z"), EstimatedTime: strp("90"),
		},
	}

	var buf bytes.Buffer
	if err := WriteTodosCSV(&buf, todos); err != nil {
		t.Fatalf("WriteTodosCSV: %v", err)
	}
	records := readCSV(t, &buf)

	if len(records) != 3 {
		t.Fatalf("expected 3 rows (1 header + 2 data), got %d", len(records))
	}
	if records[0][1] != "Title" || records[0][6] != "Completed" {
		t.Fatalf("unexpected header %v", records[0])
	}
	if records[1][3] != "Errands" {
		t.Fatalf("Category = %q, want Errands", records[1][3])
	}
	if records[1][6] != "false" || records[1][7] != "" {
		t.Fatalf("open todo row = %v", records[1])
	}
	if records[2][7] != "2024-01-03T10:00:00.000Z" || records[2][8] != "90" {
		t.Fatalf("completed todo row = %v", records[2])
	}
}

func TestWriteTodosCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTodosCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if records := readCSV(t, &buf); len(records) != 1 {
		t.Fatalf("expected header only, got %d rows", len(records))
	}
}

func TestWriteTodosCSVSpecialCharacters(t *testing.T) {
	todos := []store.Todo{{
		ID: "t1", Title: `call "Mom", then dad`, Priority: store.PriorityLow,
		Description: strp("line one\nline two"),
	}}
	var buf bytes.Buffer
	if err := WriteTodosCSV(&buf, todos); err != nil {
		t.Fatal(err)
	}
	records := readCSV(t, &buf)
	if records[1][1] != `call "Mom", then dad` {
		t.Fatalf("title mangled: %q", records[1][1])
	}
	if records[1][9] != "line one\nline two" {
		t.Fatalf("description mangled: %q", records[1][9])
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteTodosCSVWriterError(t *testing.T) {
	if err := WriteTodosCSV(failWriter{}, nil); err == nil {
		t.Fatal("expected error from failing writer")
	}
}

// ============================================================
// Reports
// ============================================================

func TestWriteReportsCSV(t *testing.T) {
	reports := []store.Report{
		{ID: "r1", StartTime: "09:00", EndTime: "10:30", Content: "standup", IsFromTodo: true, LinkedTodoID: strp("t1")},
		{ID: "r2", StartTime: "14:00", EndTime: "13:00", Content: "inverted"},
		{ID: "r3", StartTime: "8:05", EndTime: "8:50", Content: "mail"},
	}
	var buf bytes.Buffer
	if err := WriteReportsCSV(&buf, reports); err != nil {
		t.Fatal(err)
	}
	records := readCSV(t, &buf)

	if len(records) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(records))
	}
	if records[1][3] != "01:30" {
		t.Fatalf("Duration = %q, want 01:30", records[1][3])
	}
	if records[1][6] != "true" || records[1][7] != "t1" {
		t.Fatalf("link columns = %v", records[1][6:])
	}
	if records[2][3] != "" {
		t.Fatalf("inverted range should have empty duration, got %q", records[2][3])
	}
	if records[3][3] != "00:45" {
		t.Fatalf("Duration = %q, want 00:45", records[3][3])
	}
}
