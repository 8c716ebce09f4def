// Package backup exports the whole database to a single JSON document,
// restores it, and wipes everything on request.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/reportory/internal/store"
)

// ErrCancelled is returned by Reset when the user declines.
var ErrCancelled = errors.New("cancelled by user")

// Records is the part of a repository the backup service drives.
type Records[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, rec T) (store.Outcome, error)
}

type Database interface {
	Destroy(ctx context.Context) (store.DestroyStatus, error)
}

type SettingsStore interface {
	Raw() (string, bool, error)
	Restore(raw string) error
	Clear() error
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context) (bool, error)
}

type ImportSummary struct {
	Todos            int
	Categories       int
	Reports          int
	Failed           int
	SettingsRestored bool
}

type Service struct {
	db         Database
	todos      Records[store.Todo]
	categories Records[store.Category]
	reports    Records[store.Report]
	settings   SettingsStore
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New wires the service to the repositories of g.
func New(g *store.Gateway, st SettingsStore, opts ...Option) *Service {
	s := &Service{
		db:         g,
		todos:      store.NewTodoRepo(g),
		categories: store.NewCategoryRepo(g),
		reports:    store.NewReportRepo(g),
		settings:   st,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export serialises every store plus the settings blob. A store that cannot
// be read is exported as an empty list and logged; the export itself only
// fails when the document cannot be encoded or ctx is done.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	var (
		todos      = []store.Todo{}
		categories = []store.Category{}
		reports    = []store.Report{}
		settings   = "{}"
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		todos = fetch(gctx, s.logger, "todos", s.todos)
		return nil
	})
	g.Go(func() error {
		categories = fetch(gctx, s.logger, "categories", s.categories)
		return nil
	})
	g.Go(func() error {
		reports = fetch(gctx, s.logger, "reports", s.reports)
		return nil
	})
	g.Go(func() error {
		raw, ok, err := s.settings.Raw()
		switch {
		case err != nil:
			s.logger.Warn("export: settings unreadable, exporting {}", zap.Error(err))
		case ok:
			settings = raw
		}
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	doc := Document{
		ExportDate: store.ISOTimestamp(s.now()),
		Version:    FormatVersion,
	}
	var err error
	if doc.Todos, err = encodeSection(todos); err != nil {
		return nil, fmt.Errorf("encode todos: %w", err)
	}
	if doc.Categories, err = encodeSection(categories); err != nil {
		return nil, fmt.Errorf("encode categories: %w", err)
	}
	if doc.Reports, err = encodeSection(reports); err != nil {
		return nil, fmt.Errorf("encode reports: %w", err)
	}
	if doc.Settings, err = json.Marshal(settings); err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return data, nil
}

func fetch[T any](ctx context.Context, logger *zap.Logger, name string, r Records[T]) []T {
	recs, err := r.List(ctx)
	if err != nil {
		logger.Warn("export: store unreadable, exporting []", zap.String("store", name), zap.Error(err))
		return []T{}
	}
	return recs
}

// Import replaces the database with the contents of a backup. The document
// is fully validated before anything is deleted. Records are then written
// one at a time; a record that fails is logged and counted, not fatal.
func (s *Service) Import(ctx context.Context, data []byte) (ImportSummary, error) {
	var sum ImportSummary

	b, err := ParseDocument(data)
	if err != nil {
		return sum, err
	}
	sum.Failed = b.Undecodable
	if b.Undecodable > 0 {
		s.logger.Warn("import: skipped records with an unexpected shape", zap.Int("count", b.Undecodable))
	}

	status, err := s.db.Destroy(ctx)
	if err != nil {
		return sum, fmt.Errorf("wipe database: %w", err)
	}
	if status == store.DestroyBlocked {
		s.logger.Warn("import: database wipe blocked by open connections")
	}

	for _, t := range b.Todos {
		sum.Todos += restore(ctx, s.logger, "todo", t.ID, s.todos, normalizeTodo(t, s.now), &sum.Failed)
	}
	for _, c := range b.Categories {
		sum.Categories += restore(ctx, s.logger, "category", c.ID, s.categories, c, &sum.Failed)
	}
	for _, r := range b.Reports {
		sum.Reports += restore(ctx, s.logger, "report", r.ID, s.reports, r, &sum.Failed)
	}

	if b.Settings != nil {
		if err := s.settings.Restore(*b.Settings); err != nil {
			return sum, err
		}
		sum.SettingsRestored = true
	}

	s.logger.Info("import finished",
		zap.Int("todos", sum.Todos),
		zap.Int("categories", sum.Categories),
		zap.Int("reports", sum.Reports),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

func restore[T any](ctx context.Context, logger *zap.Logger, kind, id string, r Records[T], rec T, failed *int) int {
	if _, err := r.Create(ctx, rec); err != nil {
		logger.Warn("import: record not restored", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
		*failed++
		return 0
	}
	return 1
}

// normalizeTodo repairs todos written before completion timestamps existed:
// a completed todo without one gets now, an open todo loses a stray one.
func normalizeTodo(t store.Todo, now func() time.Time) store.Todo {
	switch {
	case t.IsCompleted && t.CompletedAt == nil:
		ts := store.ISOTimestamp(now())
		t.CompletedAt = &ts
	case !t.IsCompleted && t.CompletedAt != nil:
		t.CompletedAt = nil
	}
	return t
}

// Reset deletes the database and the stored settings after c approves.
func (s *Service) Reset(ctx context.Context, c Confirmer) (store.DestroyStatus, error) {
	ok, err := c.Confirm(ctx)
	if err != nil {
		return "", fmt.Errorf("confirm reset: %w", err)
	}
	if !ok {
		return "", ErrCancelled
	}

	status, err := s.db.Destroy(ctx)
	if err != nil {
		return status, fmt.Errorf("reset database: %w", err)
	}
	if err := s.settings.Clear(); err != nil {
		return status, err
	}
	s.logger.Info("all data reset", zap.String("status", string(status)))
	return status, nil
}
