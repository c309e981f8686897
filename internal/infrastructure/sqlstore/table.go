package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"finsync/internal/domain/cache"
	"finsync/internal/models"
)

// maxBindParams keeps IN lists under SQLite's default host parameter limit.
const maxBindParams = 500

// Table is a cache.Store backed by one SQL table.
type Table[K comparable, T any] struct {
	db     *DB
	schema cache.Schema[K, T]

	// writes to the same table are serialized; readers go straight to the pool
	writeMu sync.Mutex

	selectCols string
	upsertSQL  string
}

// NewTable returns the store for schema. Migrate must have created the table.
func NewTable[K comparable, T any](db *DB, schema cache.Schema[K, T]) *Table[K, T] {
	t := &Table[K, T]{db: db, schema: schema}
	t.selectCols = strings.Join(schema.ColumnNames(), ", ")
	t.upsertSQL = t.buildUpsert()
	return t
}

var _ cache.IDStore[models.Account] = (*Table[models.ID, models.Account])(nil)

func (t *Table[K, T]) buildUpsert() string {
	names := t.schema.ColumnNames()
	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = t.db.placeholder(i + 1)
	}
	updates := make([]string, 0, len(names)-1)
	for _, name := range names[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", name, name))
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		t.schema.Table, strings.Join(names, ", "), strings.Join(placeholders, ", "),
		t.schema.KeyColumn(), strings.Join(updates, ", "),
	)
}

func (t *Table[K, T]) Type() models.EntityType { return t.schema.Type }

func (t *Table[K, T]) Get(ctx context.Context, key K) (T, bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		t.selectCols, t.schema.Table, t.schema.KeyColumn(), t.db.placeholder(1))

	item, err := t.schema.Scan(t.db.QueryRowContext(ctx, query, key))
	if err == sql.ErrNoRows {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("failed to get %s: %w", t.schema.Type, err)
	}
	return item, true, nil
}

func (t *Table[K, T]) Upsert(ctx context.Context, item T) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.db.ExecContext(ctx, t.upsertSQL, t.schema.Values(item)...); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", t.schema.Type, err)
	}
	return nil
}

func (t *Table[K, T]) UpsertMany(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	ctx, span := t.db.startSpan(ctx, "db.UpsertMany", t.upsertSQL)
	defer span.End()

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, t.upsertSQL)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, t.schema.Values(item)...); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to upsert %s: %w", t.schema.Type, err)
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

func (t *Table[K, T]) DeleteMany(ctx context.Context, keys []K) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	deleted := 0
	for start := 0; start < len(keys); start += maxBindParams {
		end := min(start+maxBindParams, len(keys))
		chunk := keys[start:end]

		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}
		query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
			t.schema.Table, t.schema.KeyColumn(), t.placeholders(1, len(chunk)))

		result, err := t.db.ExecContext(ctx, query, args...)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", t.schema.Type, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("failed to count deleted %s: %w", t.schema.Type, err)
		}
		deleted += int(n)
	}
	return deleted, nil
}

func (t *Table[K, T]) AllKeys(ctx context.Context) ([]K, error) {
	return t.KeysMatching(ctx, cache.Predicate{})
}

func (t *Table[K, T]) KeysMatching(ctx context.Context, p cache.Predicate) ([]K, error) {
	var keys []K
	err := t.query(ctx, p, t.schema.KeyColumn(), func(rows *sql.Rows) error {
		var k K
		if err := rows.Scan(&k); err != nil {
			return err
		}
		keys = append(keys, k)
		return nil
	})
	return keys, err
}

func (t *Table[K, T]) QueryMatching(ctx context.Context, p cache.Predicate) ([]T, error) {
	var items []T
	err := t.query(ctx, p, t.selectCols, func(rows *sql.Rows) error {
		item, err := t.schema.Scan(rows)
		if err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

// query runs SELECT cols for p. An oversized IN condition on an unwindowed
// predicate is split into several statements.
func (t *Table[K, T]) query(ctx context.Context, p cache.Predicate, cols string, scan func(*sql.Rows) error) error {
	if err := t.schema.Validate(p); err != nil {
		return err
	}
	if p.MatchesNothing() {
		return nil
	}

	split := -1
	if p.Limit == 0 && p.Offset == 0 && p.OrderBy == "" {
		for i, c := range p.Conditions {
			if c.Op == cache.OpIn && len(c.Values) > maxBindParams {
				split = i
				break
			}
		}
	}
	if split < 0 {
		return t.queryOnce(ctx, p, cols, scan)
	}

	values := p.Conditions[split].Values
	for start := 0; start < len(values); start += maxBindParams {
		end := min(start+maxBindParams, len(values))
		chunk := p
		chunk.Conditions = make([]cache.Condition, len(p.Conditions))
		copy(chunk.Conditions, p.Conditions)
		chunk.Conditions[split].Values = values[start:end]
		if err := t.queryOnce(ctx, chunk, cols, scan); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table[K, T]) queryOnce(ctx context.Context, p cache.Predicate, cols string, scan func(*sql.Rows) error) error {
	where, args := t.whereClause(p)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, t.schema.Table)
	b.WriteString(where)
	if p.OrderBy != "" && p.OrderBy != t.schema.KeyColumn() {
		fmt.Fprintf(&b, " ORDER BY %s, %s", p.OrderBy, t.schema.KeyColumn())
	} else {
		fmt.Fprintf(&b, " ORDER BY %s", t.schema.KeyColumn())
	}
	if p.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", p.Limit)
	} else if p.Offset > 0 && t.db.dialect == DialectSQLite {
		// SQLite requires LIMIT before OFFSET
		b.WriteString(" LIMIT -1")
	}
	if p.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", p.Offset)
	}

	rows, err := t.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", t.schema.Type, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan %s: %w", t.schema.Type, err)
		}
	}
	return rows.Err()
}

func (t *Table[K, T]) whereClause(p cache.Predicate) (string, []any) {
	if len(p.Conditions) == 0 {
		return "", nil
	}

	var args []any
	clauses := make([]string, 0, len(p.Conditions))
	for _, c := range p.Conditions {
		switch c.Op {
		case cache.OpIn:
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", c.Column, t.placeholders(len(args)+1, len(c.Values))))
			args = append(args, c.Values...)
		case cache.OpGreater:
			args = append(args, c.Values[0])
			clauses = append(clauses, fmt.Sprintf("%s > %s", c.Column, t.db.placeholder(len(args))))
		case cache.OpLessOrEqual:
			args = append(args, c.Values[0])
			clauses = append(clauses, fmt.Sprintf("%s <= %s", c.Column, t.db.placeholder(len(args))))
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (t *Table[K, T]) placeholders(first, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = t.db.placeholder(first + i)
	}
	return strings.Join(ph, ", ")
}
