package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SchemaVersion is the schema version Open upgrades every database to.
const SchemaVersion = 6

// Migrator brings a database from its stored user_version up to
// SchemaVersion. Every step checks for existing stores and indexes before
// creating them, so replaying a step is harmless.
type Migrator struct {
	Logger *zap.Logger
	Now    func() time.Time
}

// MigrationReport describes one Migrate call.
type MigrationReport struct {
	From    int
	To      int
	Applied []int
	// Backfilled counts records touched per "store.field".
	Backfilled map[string]int
}

type migration struct {
	version int
	name    string
	apply   func(ctx context.Context, u *upgrade) error
}

var migrations = []migration{
	{1, "reports store", func(ctx context.Context, u *upgrade) error {
		if err := u.ensureStore(ctx, StoreReports); err != nil {
			return err
		}
		return u.ensureIndex(ctx, StoreReports, "startTime")
	}},
	{2, "categories store", func(ctx context.Context, u *upgrade) error {
		return u.ensureStore(ctx, StoreCategories)
	}},
	{3, "todos store", func(ctx context.Context, u *upgrade) error {
		if err := u.ensureStore(ctx, StoreTodos); err != nil {
			return err
		}
		for _, f := range []string{"createdAt", "priority", "isCompleted"} {
			if err := u.ensureIndex(ctx, StoreTodos, f); err != nil {
				return err
			}
		}
		return nil
	}},
	{4, "report links", func(ctx context.Context, u *upgrade) error {
		if err := u.ensureIndex(ctx, StoreReports, "linkedTodoId"); err != nil {
			return err
		}
		if err := u.ensureIndex(ctx, StoreReports, "isFromTodo"); err != nil {
			return err
		}
		if err := u.backfill(ctx, StoreReports, "linkedTodoId", fillWith("null")); err != nil {
			return err
		}
		return u.backfill(ctx, StoreReports, "isFromTodo", fillWith("false"))
	}},
	{5, "todo links", func(ctx context.Context, u *upgrade) error {
		if err := u.ensureIndex(ctx, StoreTodos, "linkedReportId"); err != nil {
			return err
		}
		return u.backfill(ctx, StoreTodos, "linkedReportId", fillWith("null"))
	}},
	{6, "completion timestamps", func(ctx context.Context, u *upgrade) error {
		return u.backfill(ctx, StoreTodos, "completedAt", u.fillCompletedAt)
	}},
}

func (m Migrator) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

func (m Migrator) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// Migrate runs every step above the stored version inside one exclusive
// transaction. On failure nothing is applied and the stored version is
// unchanged.
func (m Migrator) Migrate(ctx context.Context, db *sqlx.DB) (MigrationReport, error) {
	const op = "migrate"

	from, err := readVersion(ctx, db)
	if err != nil {
		return MigrationReport{}, classify(op, KindUnavailable, fmt.Errorf("read user_version: %w", err))
	}
	report := MigrationReport{From: from, To: from}
	if from >= SchemaVersion {
		return report, nil
	}

	conn, err := db.Connx(ctx)
	if err != nil {
		return report, classify(op, KindUnavailable, fmt.Errorf("acquire conn: %w", err))
	}
	defer conn.Close()

	// IMMEDIATE takes the write lock up front so a second process opening the
	// same file waits (or reports busy) instead of racing the upgrade.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return report, classify(op, KindUnavailable, fmt.Errorf("begin upgrade: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		}
	}()

	current, err := readVersion(ctx, conn)
	if err != nil {
		return report, classify(op, KindUnavailable, fmt.Errorf("read user_version: %w", err))
	}
	report.From, report.To = current, current

	u := &upgrade{q: conn, now: m.now(), backfilled: map[string]int{}}
	for _, mig := range migrations {
		if mig.version <= current {
			continue
		}
		if err := mig.apply(ctx, u); err != nil {
			return report, classify(op, KindUnavailable, fmt.Errorf("schema v%d (%s): %w", mig.version, mig.name, err))
		}
		report.Applied = append(report.Applied, mig.version)
		m.logger().Debug("applied schema step", zap.Int("version", mig.version), zap.String("name", mig.name))
	}

	if current < SchemaVersion {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return report, classify(op, KindUnavailable, fmt.Errorf("set user_version: %w", err))
		}
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return report, classify(op, KindUnavailable, fmt.Errorf("commit upgrade: %w", err))
	}
	committed = true

	if current < SchemaVersion {
		report.To = SchemaVersion
	}
	report.Backfilled = u.backfilled
	return report, nil
}

type getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

func readVersion(ctx context.Context, q getter) (int, error) {
	var v int
	if err := q.GetContext(ctx, &v, "PRAGMA user_version"); err != nil {
		return 0, err
	}
	return v, nil
}

func indexName(store, field string) string {
	return "idx_" + store + "_" + field
}

// upgrade carries the state of one Migrate call across its steps.
type upgrade struct {
	q          *sqlx.Conn
	now        time.Time
	backfilled map[string]int
}

func (u *upgrade) exists(ctx context.Context, typ, name string) (bool, error) {
	var n int
	err := u.q.GetContext(ctx, &n, `SELECT COUNT(1) FROM sqlite_master WHERE type = ? AND name = ?`, typ, name)
	if err != nil {
		return false, fmt.Errorf("look up %s %q: %w", typ, name, err)
	}
	return n > 0, nil
}

func (u *upgrade) ensureStore(ctx context.Context, store string) error {
	ok, err := u.exists(ctx, "table", store)
	if err != nil || ok {
		return err
	}
	_, err = u.q.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %s (
		id    TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`, store))
	if err != nil {
		return fmt.Errorf("create store %s: %w", store, err)
	}
	return nil
}

func (u *upgrade) ensureIndex(ctx context.Context, store, field string) error {
	name := indexName(store, field)
	ok, err := u.exists(ctx, "index", name)
	if err != nil || ok {
		return err
	}
	_, err = u.q.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX %s ON %s (json_extract(value, '$.%s'))`, name, store, field))
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// filler decides the value for a record that lacks the field being
// backfilled. ok=false leaves the record alone.
type filler func(rec map[string]json.RawMessage) (v json.RawMessage, ok bool)

func fillWith(raw string) filler {
	return func(map[string]json.RawMessage) (json.RawMessage, bool) {
		return json.RawMessage(raw), true
	}
}

func (u *upgrade) fillCompletedAt(rec map[string]json.RawMessage) (json.RawMessage, bool) {
	var done bool
	if raw, ok := rec["isCompleted"]; !ok || json.Unmarshal(raw, &done) != nil || !done {
		return nil, false
	}
	ts, _ := json.Marshal(ISOTimestamp(u.now))
	return ts, true
}

// backfill rewrites, one record at a time, every record of store whose JSON
// object has no key named field. Records that already carry the key keep
// their value, including an explicit null.
func (u *upgrade) backfill(ctx context.Context, store, field string, fill filler) error {
	var rows []storedRow
	if err := u.q.SelectContext(ctx, &rows, fmt.Sprintf(`SELECT id, value FROM %s ORDER BY id`, store)); err != nil {
		return fmt.Errorf("scan %s: %w", store, err)
	}

	n := 0
	for _, row := range rows {
		var rec map[string]json.RawMessage
		if err := json.Unmarshal([]byte(row.Value), &rec); err != nil {
			return fmt.Errorf("decode %s/%s: %w", store, row.ID, err)
		}
		if _, ok := rec[field]; ok {
			continue
		}
		v, ok := fill(rec)
		if !ok {
			continue
		}
		rec[field] = v
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", store, row.ID, err)
		}
		if _, err := u.q.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET value = ? WHERE id = ?`, store), string(raw), row.ID); err != nil {
			return fmt.Errorf("update %s/%s: %w", store, row.ID, err)
		}
		n++
	}
	if n > 0 {
		u.backfilled[store+"."+field] += n
	}
	return nil
}
