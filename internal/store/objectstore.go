package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type storedRow struct {
	ID    string `db:"id"`
	Value string `db:"value"`
}

// objectStore is the typed view of one store table. Records are kept as
// JSON so fields the current model does not know about survive a rewrite
// only through the migrator; repositories always write the full model.
type objectStore[T any] struct {
	gw      *Gateway
	name    string
	orderBy string
}

func orderByIndex(field string) string {
	return fmt.Sprintf("json_extract(value, '$.%s'), id", field)
}

func (s objectStore[T]) encode(id string, rec T) (string, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode %s/%s: %w", s.name, id, err)
	}
	return string(raw), nil
}

func (s objectStore[T]) decode(row storedRow) (T, error) {
	var rec T
	if err := json.Unmarshal([]byte(row.Value), &rec); err != nil {
		return rec, fmt.Errorf("decode %s/%s: %w", s.name, row.ID, err)
	}
	return rec, nil
}

// add inserts a new record. An existing key fails the transaction.
func (s objectStore[T]) add(ctx context.Context, op, id string, rec T) error {
	raw, err := s.encode(id, rec)
	if err != nil {
		return newError(KindValidation, op, err)
	}
	return s.gw.withTx(ctx, op, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (id, value) VALUES (?, ?)`, s.name), id, raw)
		if err != nil && isConstraint(err) {
			return fmt.Errorf("key %q already exists in %s: %w", id, s.name, err)
		}
		return err
	})
}

// put inserts or replaces the record under id.
func (s objectStore[T]) put(ctx context.Context, op, id string, rec T) error {
	return s.gw.withTx(ctx, op, func(tx *sqlx.Tx) error {
		return s.putTx(ctx, tx, id, rec)
	})
}

func (s objectStore[T]) putTx(ctx context.Context, tx *sqlx.Tx, id string, rec T) error {
	raw, err := s.encode(id, rec)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, value) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET value = excluded.value`, s.name),
		id, raw,
	)
	return err
}

// remove deletes the record under id. A missing key is not an error.
func (s objectStore[T]) remove(ctx context.Context, op, id string) error {
	return s.gw.withTx(ctx, op, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.name), id)
		return err
	})
}

func (s objectStore[T]) clear(ctx context.Context, op string) error {
	return s.gw.withTx(ctx, op, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.name))
		return err
	})
}

func (s objectStore[T]) getTx(ctx context.Context, tx *sqlx.Tx, id string) (T, bool, error) {
	var row storedRow
	err := tx.GetContext(ctx, &row, fmt.Sprintf(`SELECT id, value FROM %s WHERE id = ?`, s.name), id)
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, err
	}
	rec, err := s.decode(row)
	return rec, err == nil, err
}

// get loads one record; a missing key is KindNotFound.
func (s objectStore[T]) get(ctx context.Context, op, id string) (T, error) {
	var rec T
	err := s.gw.withTx(ctx, op, func(tx *sqlx.Tx) error {
		r, ok, err := s.getTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return newError(KindNotFound, op, fmt.Errorf("%s/%s", s.name, id))
		}
		rec = r
		return nil
	})
	return rec, err
}

// getAll returns every record in index order. The slice is never nil.
func (s objectStore[T]) getAll(ctx context.Context, op string) ([]T, error) {
	out := []T{}
	err := s.gw.withTx(ctx, op, func(tx *sqlx.Tx) error {
		var rows []storedRow
		if err := tx.SelectContext(ctx, &rows, fmt.Sprintf(`SELECT id, value FROM %s ORDER BY %s`, s.name, s.orderBy)); err != nil {
			return err
		}
		out = make([]T, 0, len(rows))
		for _, row := range rows {
			rec, err := s.decode(row)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return []T{}, err
	}
	return out, nil
}
