package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"finsync/internal/domain/cache"
)

type tableDef struct {
	name    string
	columns []cache.Column
}

func defOf[K comparable, T any](s cache.Schema[K, T]) tableDef {
	return tableDef{name: s.Table, columns: s.Columns}
}

// tableDefs lists every cache table. Ownership columns are indexed but not
// declared as foreign keys: the cache tolerates children whose parent has
// not been fetched yet.
func tableDefs() []tableDef {
	return []tableDef{
		defOf(cache.ProviderSchema),
		defOf(cache.ProviderAccountSchema),
		defOf(cache.AccountSchema),
		defOf(cache.GoalSchema),
		defOf(cache.GoalPeriodSchema),
		defOf(cache.CardSchema),
		defOf(cache.MerchantSchema),
		defOf(cache.TransactionSchema),
		defOf(cache.TransactionCategorySchema),
		defOf(cache.UserTagSchema),
	}
}

// Migrate creates the cache tables and their indexes when missing.
func Migrate(ctx context.Context, db *DB) error {
	for _, def := range tableDefs() {
		if _, err := db.ExecContext(ctx, createTableSQL(db.dialect, def)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", def.name, err)
		}
		for _, col := range def.columns {
			if !col.Indexed {
				continue
			}
			stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)",
				def.name, col.Name, def.name, col.Name)
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create index on %s.%s: %w", def.name, col.Name, err)
			}
		}
	}
	return nil
}

func createTableSQL(dialect Dialect, def tableDef) string {
	lines := make([]string, len(def.columns))
	for i, col := range def.columns {
		line := col.Name + " " + columnType(dialect, col.Kind)
		switch {
		case i == 0:
			line += " PRIMARY KEY"
		case !col.Nullable:
			line += " NOT NULL"
		}
		lines[i] = line
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", def.name, strings.Join(lines, ",\n\t"))
}

func columnType(dialect Dialect, kind cache.Kind) string {
	switch kind {
	case cache.KindInt:
		if dialect == DialectPostgres {
			return "BIGINT"
		}
		return "INTEGER"
	case cache.KindBool:
		if dialect == DialectPostgres {
			return "BOOLEAN"
		}
		return "INTEGER"
	case cache.KindDecimal:
		if dialect == DialectPostgres {
			return "NUMERIC"
		}
		return "TEXT"
	default:
		return "TEXT"
	}
}
