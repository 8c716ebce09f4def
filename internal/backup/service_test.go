package backup

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sadopc/reportory/internal/settings"
	"github.com/sadopc/reportory/internal/store"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

type env struct {
	gw       *store.Gateway
	settings *settings.Service
	svc      *Service
	logs     *observer.ObservedLogs
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	clock := func() time.Time { return fixedNow }
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	gw := store.NewGateway(filepath.Join(dir, "reportoryDB.db"), store.WithClock(clock))
	st := settings.NewService(settings.FileNamespace{Dir: filepath.Join(dir, "settings")}, logger)
	return &env{
		gw:       gw,
		settings: st,
		svc:      New(gw, st, WithLogger(logger), WithClock(clock)),
		logs:     logs,
	}
}

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) Confirm(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type failingRecords[T any] struct{}

func (failingRecords[T]) List(context.Context) ([]T, error) {
	return nil, errors.New("store offline")
}

func (failingRecords[T]) Create(context.Context, T) (store.Outcome, error) {
	return "", errors.New("store offline")
}

var (
	milk = store.Todo{
		ID: "t1", Title: "Buy milk", IsCompleted: false, Priority: store.PriorityMedium,
		CreatedAt: "2024-01-01T00:00:00Z", DueDate: "2024-01-01",
	}
	errands = store.Category{ID: "c1", Name: "Errands", Color: "#00C853"}
	standup = store.Report{ID: "r1", StartTime: "09:00", EndTime: "09:15", Content: "standup"}
)

func seed(t *testing.T, e *env) {
	t.Helper()
	ctx := context.Background()
	_, err := store.NewTodoRepo(e.gw).Create(ctx, milk)
	require.NoError(t, err)
	_, err = store.NewCategoryRepo(e.gw).Create(ctx, errands)
	require.NoError(t, err)
	_, err = store.NewReportRepo(e.gw).Create(ctx, standup)
	require.NoError(t, err)
	require.NoError(t, e.settings.Save(settings.Settings{Theme: settings.ThemeDark, PrimaryColor: "#FF5722"}))
}

func TestExportDocumentShape(t *testing.T) {
	e := newEnv(t)
	seed(t, e)

	data, err := e.svc.Export(context.Background())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "1.0", doc["version"])
	assert.Equal(t, "2024-05-06T07:08:09.000Z", doc["exportDate"])

	// Sections are JSON strings holding JSON.
	todosStr, ok := doc["todos"].(string)
	require.True(t, ok, "todos should be a string")
	var todos []store.Todo
	require.NoError(t, json.Unmarshal([]byte(todosStr), &todos))
	assert.Equal(t, []store.Todo{milk}, todos)

	catStr, ok := doc["categories"].(string)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"c1","name":"Errands","color":"#00C853"}]`, catStr)

	settingsStr, ok := doc["settings"].(string)
	require.True(t, ok)
	assert.JSONEq(t, `{"theme":"dark","primaryColor":"#FF5722"}`, settingsStr)
}

func TestExportEmptyDatabase(t *testing.T) {
	e := newEnv(t)
	data, err := e.svc.Export(context.Background())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "[]", doc["todos"])
	assert.Equal(t, "[]", doc["categories"])
	assert.Equal(t, "[]", doc["reports"])
	assert.Equal(t, "{}", doc["settings"])
}

func TestExportToleratesFailedStore(t *testing.T) {
	e := newEnv(t)
	seed(t, e)
	e.svc.todos = failingRecords[store.Todo]{}

	data, err := e.svc.Export(context.Background())
	require.NoError(t, err)

	b, err := ParseDocument(data)
	require.NoError(t, err)
	assert.Empty(t, b.Todos)
	assert.Equal(t, []store.Category{errands}, b.Categories)
	assert.Equal(t, 1, e.logs.FilterMessageSnippet("store unreadable").Len())
}

func TestConcurrentExportsKeepEveryStore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Export(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, e.logs.FilterLevelExact(zapcore.WarnLevel).Len(), "no store should be exported empty because of a failed read")
}

func TestExportImportRoundTrip(t *testing.T) {
	e := newEnv(t)
	seed(t, e)
	ctx := context.Background()

	data, err := e.svc.Export(ctx)
	require.NoError(t, err)

	status, err := e.gw.Destroy(ctx)
	require.NoError(t, err)
	require.Equal(t, store.DestroySuccess, status)
	require.NoError(t, e.settings.Clear())

	sum, err := e.svc.Import(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Todos: 1, Categories: 1, Reports: 1, SettingsRestored: true}, sum)

	todos, err := store.NewTodoRepo(e.gw).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []store.Todo{milk}, todos)

	cats, err := store.NewCategoryRepo(e.gw).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []store.Category{errands}, cats)

	reports, err := store.NewReportRepo(e.gw).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []store.Report{standup}, reports)

	got, err := e.settings.Load()
	require.NoError(t, err)
	assert.Equal(t, settings.Settings{Theme: settings.ThemeDark, PrimaryColor: "#FF5722"}, got)
}

func TestImportReplacesExistingData(t *testing.T) {
	e := newEnv(t)
	seed(t, e)
	ctx := context.Background()

	doc := `{"todos": "[{\"id\":\"t9\",\"title\":\"Fresh\",\"isCompleted\":false,\"priority\":\"low\",\"createdAt\":\"2024-02-01T00:00:00Z\"}]"}`
	sum, err := e.svc.Import(ctx, []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Todos)
	assert.False(t, sum.SettingsRestored)

	todos, _ := store.NewTodoRepo(e.gw).List(ctx)
	require.Len(t, todos, 1)
	assert.Equal(t, "t9", todos[0].ID)

	cats, _ := store.NewCategoryRepo(e.gw).List(ctx)
	assert.Empty(t, cats, "categories are wiped even when the backup has none")
}

func TestImportNormalizesLegacyTodos(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	doc := map[string]any{
		"todos": []map[string]any{
			{"id": "done", "title": "old done", "isCompleted": true, "priority": "high", "createdAt": "2023-01-01T00:00:00Z"},
			{"id": "open", "title": "old open", "isCompleted": false, "priority": "low", "createdAt": "2023-01-02T00:00:00Z", "completedAt": "2023-01-03T00:00:00Z"},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	sum, err := e.svc.Import(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Todos)

	repo := store.NewTodoRepo(e.gw)
	done, err := repo.Get(ctx, "done")
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, "2024-05-06T07:08:09.000Z", *done.CompletedAt)

	open, err := repo.Get(ctx, "open")
	require.NoError(t, err)
	assert.Nil(t, open.CompletedAt)
}

func TestImportToleratesBadRecords(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	doc := `{
	  "todos": "[{\"id\":\"ok\",\"title\":\"fine\",\"isCompleted\":false,\"priority\":\"low\",\"createdAt\":\"2024-01-01T00:00:00Z\"},{\"id\":\"bad\",\"title\":\"\",\"isCompleted\":false,\"priority\":\"low\"},{\"id\":\"dup\",\"title\":\"a\",\"isCompleted\":false,\"priority\":\"low\"},{\"id\":\"dup\",\"title\":\"b\",\"isCompleted\":false,\"priority\":\"low\"},42]",
	  "categories": "[{\"id\":\"c1\",\"name\":\"Errands\",\"color\":\"#00C853\"}]"
	}`
	sum, err := e.svc.Import(ctx, []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Todos)
	assert.Equal(t, 1, sum.Categories)
	assert.Equal(t, 3, sum.Failed)
	assert.Equal(t, 2, e.logs.FilterMessageSnippet("record not restored").Len())

	todos, _ := store.NewTodoRepo(e.gw).List(ctx)
	ids := []string{}
	for _, td := range todos {
		ids = append(ids, td.ID)
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"dup", "ok"}, ids)
}

func TestImportRejectsMalformedBeforeWiping(t *testing.T) {
	e := newEnv(t)
	seed(t, e)
	ctx := context.Background()

	cases := map[string]string{
		"not json":       `{{{`,
		"no sections":    `{"exportDate":"2024-01-01T00:00:00.000Z","version":"1.0"}`,
		"todos not list": `{"todos":"{\"id\":\"t1\"}"}`,
		"inner garbage":  `{"todos":"[oops"}`,
	}
	for name, doc := range cases {
		_, err := e.svc.Import(ctx, []byte(doc))
		require.Error(t, err, name)
		assert.ErrorIs(t, err, ErrMalformed, name)
		assert.ErrorIs(t, err, store.ErrValidation, name)
	}

	todos, err := store.NewTodoRepo(e.gw).List(ctx)
	require.NoError(t, err)
	assert.Len(t, todos, 1, "existing data must survive a rejected import")
}

func TestImportSettingsOnly(t *testing.T) {
	e := newEnv(t)
	sum, err := e.svc.Import(context.Background(), []byte(`{"settings":"{\"theme\":\"auto\",\"primaryColor\":\"#000000\"}"}`))
	require.NoError(t, err)
	assert.True(t, sum.SettingsRestored)

	raw, ok, err := e.settings.Raw()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"theme":"auto","primaryColor":"#000000"}`, raw)
}

func TestResetConfirmed(t *testing.T) {
	e := newEnv(t)
	seed(t, e)
	ctx := context.Background()

	c := new(mockConfirmer)
	c.On("Confirm", ctx).Return(true, nil).Once()

	status, err := e.svc.Reset(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, store.DestroySuccess, status)
	c.AssertExpectations(t)

	todos, err := store.NewTodoRepo(e.gw).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, todos)
	_, ok, err := e.settings.Raw()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResetDeclined(t *testing.T) {
	e := newEnv(t)
	seed(t, e)
	ctx := context.Background()

	c := new(mockConfirmer)
	c.On("Confirm", mock.Anything).Return(false, nil).Once()

	_, err := e.svc.Reset(ctx, c)
	assert.ErrorIs(t, err, ErrCancelled)
	c.AssertExpectations(t)

	todos, err := store.NewTodoRepo(e.gw).List(ctx)
	require.NoError(t, err)
	assert.Len(t, todos, 1)
}

func TestResetConfirmError(t *testing.T) {
	e := newEnv(t)
	c := new(mockConfirmer)
	c.On("Confirm", mock.Anything).Return(false, errors.New("no tty"))

	_, err := e.svc.Reset(context.Background(), c)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCancelled)
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "daily-report-backup-2024-05-06.json", ExportFileName(fixedNow))
}
