package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/reportory/internal/backup"
	"github.com/sadopc/reportory/internal/store"
)

var testNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) Confirm(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type harness struct {
	t       *testing.T
	dir     string
	ids     int
	confirm backup.Confirmer
}

type result struct {
	out  string
	err  error
	said string // what Execute would print for err
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{t: t, dir: t.TempDir()}
}

func (h *harness) run(args ...string) result {
	h.t.Helper()
	app := newApp()
	app.now = func() time.Time { return testNow }
	app.newID = func() string {
		h.ids++
		return fmt.Sprintf("id-%d", h.ids)
	}
	app.confirm = func(string, io.Reader, io.Writer) backup.Confirmer {
		if h.confirm == nil {
			h.t.Fatalf("unexpected confirmation prompt for %v", args)
		}
		return h.confirm
	}

	cmd := newRootCmd(app)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(bytes.NewReader(nil))
	cmd.SetArgs(append([]string{"--config-dir", h.dir, "--lang", "en"}, args...))

	err := cmd.Execute()
	r := result{out: out.String(), err: err}
	if err != nil {
		r.said = app.describe(err)
	}
	return r
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	r := h.run(args...)
	require.NoError(h.t, r.err, "reportory %v\n%s", args, r.said)
	return r.out
}

func (h *harness) todos() []store.Todo {
	h.t.Helper()
	var todos []store.Todo
	require.NoError(h.t, json.Unmarshal([]byte(h.mustRun("--json", "todo", "list")), &todos))
	return todos
}

func TestTodoLifecycle(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("todo", "add", "Write", "weekly", "report", "--priority", "high")
	assert.Contains(t, out, "Todo added.")
	assert.Contains(t, out, "id-1")

	todos := h.todos()
	require.Len(t, todos, 1)
	assert.Equal(t, "Write weekly report", todos[0].Title)
	assert.Equal(t, store.PriorityHigh, todos[0].Priority)
	assert.Equal(t, "2024-03-01T09:30:00.000Z", todos[0].CreatedAt)
	assert.Equal(t, "2024-03-01", todos[0].DueDate)
	assert.Nil(t, todos[0].LinkedReportID)

	assert.Contains(t, h.mustRun("todo", "done", "id-1"), "Done!")
	var got store.Todo
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "todo", "show", "id-1")), &got))
	assert.True(t, got.IsCompleted)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, "2024-03-01T09:30:00.000Z", *got.CompletedAt)

	assert.Contains(t, h.mustRun("todo", "done", "id-1"), "Marked as not done.")

	assert.Contains(t, h.mustRun("todo", "rm", "id-1"), "Todo deleted.")
	assert.Empty(t, h.todos())
}

func TestTodoEditOnlyChangesGivenFlags(t *testing.T) {
	h := newHarness(t)
	h.mustRun("todo", "add", "Draft", "--priority", "low", "--due", "2024-03-05", "--estimate", "45")

	h.mustRun("todo", "edit", "id-1", "--title", "Final draft")

	todos := h.todos()
	require.Len(t, todos, 1)
	assert.Equal(t, "Final draft", todos[0].Title)
	assert.Equal(t, store.PriorityLow, todos[0].Priority)
	assert.Equal(t, "2024-03-05", todos[0].DueDate)
	require.NotNil(t, todos[0].EstimatedTime)
	assert.Equal(t, "45", *todos[0].EstimatedTime)
}

func TestTodoErrorsAreLocalized(t *testing.T) {
	h := newHarness(t)

	r := h.run("todo", "done", "ghost")
	require.Error(t, r.err)
	assert.ErrorIs(t, r.err, store.ErrNotFound)
	assert.Contains(t, r.said, "Todo not found.")

	r = h.run("todo", "add", "X", "--estimate", "soon")
	require.Error(t, r.err)
	assert.Contains(t, r.said, "whole minutes")
}

func TestTodoListOrder(t *testing.T) {
	h := newHarness(t)
	h.mustRun("todo", "add", "low one", "-p", "low")
	h.mustRun("todo", "add", "high one", "-p", "high")
	h.mustRun("todo", "add", "done one", "-p", "high")
	h.mustRun("todo", "done", "id-3")

	todos := h.todos()
	require.Len(t, todos, 3)
	assert.Equal(t, []string{"id-2", "id-1", "id-3"}, []string{todos[0].ID, todos[1].ID, todos[2].ID})

	var open []store.Todo
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "todo", "list", "--open")), &open))
	assert.Len(t, open, 2)
}

func TestCategorySnapshotIsNotCascaded(t *testing.T) {
	h := newHarness(t)
	h.mustRun("category", "add", "Work", "--color", "#3B82F6")
	h.mustRun("todo", "add", "Plan", "--category", "work")

	assert.Contains(t, h.mustRun("category", "edit", "id-1", "--name", "Office"), "Category updated.")

	todos := h.todos()
	require.Len(t, todos, 1)
	require.NotNil(t, todos[0].Category)
	assert.Equal(t, "Work", todos[0].Category.Name)

	r := h.run("todo", "add", "Other", "--category", "nope")
	require.Error(t, r.err)
}

var ansiRe = regexp.MustCompile("\x1b\\[[0-9;]*m")

// column returns the display column where needle starts in the first line
// of out containing it.
func column(t *testing.T, out, line, needle string) int {
	t.Helper()
	for _, l := range strings.Split(ansiRe.ReplaceAllString(out, ""), "\n") {
		if !strings.Contains(l, line) {
			continue
		}
		i := strings.Index(l, needle)
		require.GreaterOrEqual(t, i, 0, "%q not in %q", needle, l)
		return utf8.RuneCountInString(l[:i])
	}
	t.Fatalf("no line containing %q in:\n%s", line, out)
	return -1
}

func TestListHeadersLineUpWithColumns(t *testing.T) {
	h := newHarness(t)
	h.mustRun("category", "add", "Errands", "--color", "#00C853")
	h.mustRun("todo", "add", "Buy milk", "-c", "id-1")
	h.mustRun("report", "add", "-s", "09:00", "-e", "10:00", "standup")

	out := h.mustRun("category", "list")
	assert.Equal(t, column(t, out, "COLOR", "COLOR"), column(t, out, "Errands", "#00C853"))
	assert.Equal(t, column(t, out, "COLOR", "ID"), column(t, out, "Errands", "id-1"))

	out = h.mustRun("todo", "list")
	assert.Equal(t, column(t, out, "PRIORITY", "TITLE"), column(t, out, "Buy milk", "Buy milk"))
	assert.Equal(t, column(t, out, "PRIORITY", "DUE"), column(t, out, "Buy milk", "2024-03-01"))

	out = h.mustRun("report", "list")
	assert.Equal(t, column(t, out, "CONTENT", "CONTENT"), column(t, out, "standup", "standup"))
	assert.Equal(t, column(t, out, "CONTENT", "ID"), column(t, out, "standup", "id-3"))
}

func TestReportFromTodoLinksBothWays(t *testing.T) {
	h := newHarness(t)
	h.mustRun("todo", "add", "Review PR")
	out := h.mustRun("report", "add", "--start", "13:00", "--end", "14:00", "--from-todo", "id-1")
	assert.Contains(t, out, "Added.")

	var reports []store.Report
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "report", "list")), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "Review PR", reports[0].Content)
	assert.True(t, reports[0].IsFromTodo)
	require.NotNil(t, reports[0].LinkedTodoID)
	assert.Equal(t, "id-1", *reports[0].LinkedTodoID)

	todos := h.todos()
	require.NotNil(t, todos[0].LinkedReportID)
	assert.Equal(t, "id-2", *todos[0].LinkedReportID)
}

type mockReports struct{ mock.Mock }

func (m *mockReports) Create(ctx context.Context, r store.Report) (store.Outcome, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(store.Outcome), args.Error(1)
}

func (m *mockReports) Delete(ctx context.Context, id string) (store.Outcome, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(store.Outcome), args.Error(1)
}

type mockTodos struct{ mock.Mock }

func (m *mockTodos) Update(ctx context.Context, td store.Todo) (store.Outcome, error) {
	args := m.Called(ctx, td)
	return args.Get(0).(store.Outcome), args.Error(1)
}

func TestCreateLinkedReportRemovesReportWhenTodoUpdateFails(t *testing.T) {
	ctx := context.Background()
	rep := store.Report{ID: "r1", StartTime: "09:00", EndTime: "10:00", Content: "Review PR"}
	todo := store.Todo{ID: "t1", Title: "Review PR"}
	failed := &store.Error{Kind: store.KindTransaction, Op: "update todo", Err: errors.New("disk full")}

	reports := &mockReports{}
	reports.On("Create", ctx, rep).Return(store.OutcomeReportAdded, nil)
	reports.On("Delete", ctx, "r1").Return(store.OutcomeReportDeleted, nil)
	todos := &mockTodos{}
	todos.On("Update", ctx, mock.MatchedBy(func(td store.Todo) bool {
		return td.LinkedReportID != nil && *td.LinkedReportID == "r1"
	})).Return(store.Outcome(""), failed)

	_, err := createLinkedReport(ctx, reports, todos, rep, todo)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrTransaction)
	reports.AssertExpectations(t)
	todos.AssertExpectations(t)
}

func TestCreateLinkedReportKeepsBothOnSuccess(t *testing.T) {
	ctx := context.Background()
	rep := store.Report{ID: "r1", StartTime: "09:00", EndTime: "10:00", Content: "Review PR"}

	reports := &mockReports{}
	reports.On("Create", ctx, rep).Return(store.OutcomeReportAdded, nil)
	todos := &mockTodos{}
	todos.On("Update", ctx, mock.Anything).Return(store.OutcomeTodoUpdated, nil)

	out, err := createLinkedReport(ctx, reports, todos, rep, store.Todo{ID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, store.OutcomeReportAdded, out)
	reports.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestReportValidationAndOrder(t *testing.T) {
	h := newHarness(t)

	r := h.run("report", "add", "--start", "25:00", "--end", "26:00", "bad")
	require.Error(t, r.err)
	assert.ErrorIs(t, r.err, store.ErrValidation)
	assert.Contains(t, r.said, "Please check your input.")

	h.mustRun("report", "add", "-s", "13:00", "-e", "14:00", "afternoon")
	h.mustRun("report", "add", "-s", "9:00", "-e", "10:00", "morning")

	var reports []store.Report
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "report", "list")), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "morning", reports[0].Content)

	h.mustRun("report", "edit", reports[0].ID, "--content", "standup")
	h.mustRun("report", "rm", reports[1].ID)
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "report", "list")), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "standup", reports[0].Content)
}

func TestExportImportRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.mustRun("category", "add", "Work")
	h.mustRun("todo", "add", "Keep me", "-c", "id-1")
	h.mustRun("report", "add", "-s", "09:00", "-e", "10:00", "log")
	h.mustRun("settings", "set", "--theme", "dark")

	file := filepath.Join(t.TempDir(), "backup.json")
	assert.Contains(t, h.mustRun("export", "--out", file), "Data exported successfully.")

	h.mustRun("todo", "add", "Added later")
	h.mustRun("settings", "set", "--theme", "light")

	out := h.mustRun("import", file, "--yes")
	assert.Contains(t, out, "Imported 1 todos, 1 reports and 1 categories. 0 failed.")

	todos := h.todos()
	require.Len(t, todos, 1)
	assert.Equal(t, "Keep me", todos[0].Title)
	assert.Contains(t, h.mustRun("settings", "show"), "dark")
}

func TestImportRejectsMalformedFile(t *testing.T) {
	h := newHarness(t)
	h.mustRun("todo", "add", "Survivor")

	file := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"hello":"world"}`), 0o644))

	r := h.run("import", file, "--yes")
	require.Error(t, r.err)
	assert.ErrorIs(t, r.err, backup.ErrMalformed)
	assert.Contains(t, r.said, "Invalid backup file format.")
	assert.Len(t, h.todos(), 1)
}

func TestExportCSV(t *testing.T) {
	h := newHarness(t)
	h.mustRun("todo", "add", "CSV me")

	out := h.mustRun("export", "csv", "todos")
	assert.Contains(t, out, "ID,Title,Priority")
	assert.Contains(t, out, "CSV me")

	r := h.run("export", "csv", "pets")
	assert.Error(t, r.err)
}

func TestResetDeclinedKeepsData(t *testing.T) {
	h := newHarness(t)
	h.mustRun("todo", "add", "Precious")

	c := new(mockConfirmer)
	c.On("Confirm", mock.Anything).Return(false, nil).Once()
	h.confirm = c

	assert.Contains(t, h.mustRun("reset"), "Cancelled by user.")
	assert.Len(t, h.todos(), 1)
	c.AssertExpectations(t)
}

func TestResetConfirmedWipesEverything(t *testing.T) {
	h := newHarness(t)
	h.mustRun("todo", "add", "Gone soon")
	h.mustRun("settings", "set", "--primary-color", "#FF0000")

	c := new(mockConfirmer)
	c.On("Confirm", mock.Anything).Return(true, nil).Once()
	h.confirm = c

	assert.Contains(t, h.mustRun("reset"), "All data has been deleted.")
	assert.Empty(t, h.todos())
	assert.Contains(t, h.mustRun("settings", "show"), "#14B8A6")
	c.AssertExpectations(t)
}

func TestSettingsSetValidates(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.mustRun("settings", "set", "--primary-color", "#123ABC"), "Settings saved.")

	r := h.run("settings", "set", "--theme", "neon")
	require.Error(t, r.err)
	assert.Contains(t, r.said, "Those settings are not valid.")

	assert.Error(t, h.run("settings", "set").err)
}

func TestDBInfoAndDestroy(t *testing.T) {
	h := newHarness(t)
	h.mustRun("todo", "add", "Count me")

	var info dbInfo
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "db", "info")), &info))
	assert.Equal(t, store.SchemaVersion, info.Version)
	assert.Equal(t, filepath.Join(h.dir, "reportoryDB.db"), info.Path)
	require.Len(t, info.Stores, 3)
	for _, s := range info.Stores {
		if s.Name == store.StoreTodos {
			assert.Equal(t, 1, s.Records)
			assert.Contains(t, s.Indexes, "linkedReportId")
		}
	}

	assert.Contains(t, h.mustRun("db", "destroy", "--yes"), "Database deleted.")
	assert.NoFileExists(t, info.Path)
	assert.Empty(t, h.todos())
}

func TestConfigInit(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("config", "init")
	assert.Contains(t, out, "config.yaml")
	assert.FileExists(t, filepath.Join(h.dir, "config.yaml"))
	assert.Contains(t, h.mustRun("config", "init"), "exists")
}

func TestDataDirFlag(t *testing.T) {
	h := newHarness(t)
	data := t.TempDir()
	h.mustRun("--data-dir", data, "todo", "add", "Elsewhere")
	assert.FileExists(t, filepath.Join(data, "reportoryDB.db"))
	assert.NoFileExists(t, filepath.Join(h.dir, "reportoryDB.db"))
}

func TestKoreanIsDefault(t *testing.T) {
	h := newHarness(t)
	app := newApp()
	app.now = func() time.Time { return testNow }
	cmd := newRootCmd(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config-dir", h.dir, "todo", "add", "안녕"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "할일을 추가했어요.")
}
