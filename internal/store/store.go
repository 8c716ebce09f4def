package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Store names. Each store is one table keyed by id.
const (
	StoreTodos      = "todos"
	StoreReports    = "reports"
	StoreCategories = "categories"
)

// DestroyStatus is the result of Gateway.Destroy.
type DestroyStatus string

const (
	DestroySuccess DestroyStatus = "success"
	DestroyError   DestroyStatus = "error"
	// DestroyBlocked means other connections were still open. The files are
	// already unlinked and the space is reclaimed once those connections close.
	DestroyBlocked DestroyStatus = "blocked"
)

// pragmas run on every new connection, in order. busy_timeout comes first so
// the journal_mode switch waits for other openers instead of failing.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

// dsn appends pragmas to path in the driver's _pragma query form.
func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// Gateway owns the lifecycle of the named database file. It hands out
// short-lived connections; nothing is pooled across calls.
type Gateway struct {
	path   string
	logger *zap.Logger
	now    func() time.Time
	live   atomic.Int64
}

type Option func(*Gateway)

func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock replaces time.Now for completion timestamps and backfills.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

func NewGateway(path string, opts ...Option) *Gateway {
	g := &Gateway{
		path:   path,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Path() string { return g.path }

// Open connects to the database, upgrading the schema first when the stored
// version is behind SchemaVersion. The caller must Close the returned Conn.
func (g *Gateway) Open(ctx context.Context) (*Conn, error) {
	const op = "open"
	if err := os.MkdirAll(filepath.Dir(g.path), 0o755); err != nil {
		return nil, newError(KindUnavailable, op, fmt.Errorf("create db directory: %w", err))
	}

	db, err := sqlx.Open("sqlite", dsn(g.path))
	if err != nil {
		return nil, newError(KindUnavailable, op, fmt.Errorf("open database: %w", err))
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, classify(op, KindUnavailable, fmt.Errorf("connect: %w", err))
	}

	m := Migrator{Logger: g.logger, Now: g.now}
	report, err := m.Migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, classify(op, KindUnavailable, fmt.Errorf("migrate: %w", err))
	}
	if len(report.Applied) > 0 {
		g.logger.Info("database upgraded",
			zap.String("path", g.path),
			zap.Int("from", report.From),
			zap.Int("to", report.To),
			zap.Any("backfilled", report.Backfilled),
		)
	}

	g.live.Add(1)
	return &Conn{db: db, gw: g}, nil
}

// Destroy deletes the database file and its WAL companions.
func (g *Gateway) Destroy(ctx context.Context) (DestroyStatus, error) {
	if err := ctx.Err(); err != nil {
		return DestroyError, newError(KindUnavailable, "destroy", err)
	}

	live := g.live.Load()
	var errs []error
	for _, p := range []string{g.path, g.path + "-wal", g.path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)

	if err != nil {
		g.logger.Error("database destroy failed", zap.String("path", g.path), zap.Error(err))
		return DestroyError, newError(KindUnavailable, "destroy", err)
	}
	if live > 0 {
		g.logger.Warn("database destroy blocked by open connections",
			zap.String("path", g.path),
			zap.Int64("connections", live),
		)
		return DestroyBlocked, nil
	}

	g.logger.Info("database destroyed", zap.String("path", g.path))
	return DestroySuccess, nil
}

// withTx runs fn in a transaction on a fresh connection and closes the
// connection on every path.
func (g *Gateway) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) (err error) {
	conn, err := g.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = newError(KindTransaction, op, fmt.Errorf("close: %w", cerr))
		}
	}()

	tx, err := conn.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(op, KindTransaction, fmt.Errorf("begin tx: %w", err))
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return classify(op, KindTransaction, err)
	}
	if err := tx.Commit(); err != nil {
		return classify(op, KindTransaction, fmt.Errorf("commit tx: %w", err))
	}
	committed = true
	return nil
}

// Conn is an open handle on the database.
type Conn struct {
	db     *sqlx.DB
	gw     *Gateway
	closed atomic.Bool
}

// Close releases the handle. Repeated calls are no-ops.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.gw.live.Add(-1)
	return c.db.Close()
}

// Version returns the schema version stored in the file.
func (c *Conn) Version(ctx context.Context) (int, error) {
	v, err := readVersion(ctx, c.db)
	if err != nil {
		return 0, classify("version", KindTransaction, err)
	}
	return v, nil
}

// Stores lists the store tables present in the database.
func (c *Conn) Stores(ctx context.Context) ([]string, error) {
	var names []string
	err := c.db.SelectContext(ctx, &names,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, classify("list stores", KindTransaction, err)
	}
	return names, nil
}

// Indexes lists the secondary indexes of a store by indexed field name.
func (c *Conn) Indexes(ctx context.Context, store string) ([]string, error) {
	var names []string
	err := c.db.SelectContext(ctx, &names,
		`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name LIKE 'idx_%' ORDER BY name`, store)
	if err != nil {
		return nil, classify("list indexes", KindTransaction, err)
	}
	fields := make([]string, 0, len(names))
	prefix := indexName(store, "")
	for _, n := range names {
		fields = append(fields, n[len(prefix):])
	}
	return fields, nil
}

// Count returns the number of records in a store.
func (c *Conn) Count(ctx context.Context, store string) (int, error) {
	if !knownStore(store) {
		return 0, newError(KindValidation, "count", fmt.Errorf("unknown store %q", store))
	}
	var n int
	if err := c.db.GetContext(ctx, &n, fmt.Sprintf(`SELECT COUNT(1) FROM %s`, store)); err != nil {
		return 0, classify("count", KindTransaction, err)
	}
	return n, nil
}

func knownStore(name string) bool {
	switch name {
	case StoreTodos, StoreReports, StoreCategories:
		return true
	}
	return false
}
