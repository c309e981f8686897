package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"finsync/internal/models"
)

// Kind is the portable storage class of a column.
type Kind int

const (
	KindInt Kind = iota
	KindText
	KindBool
	KindDecimal
)

// Column describes a single stored attribute.
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
	Indexed  bool
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Schema maps an entity type onto a table.
//
// Values must return one value per column in Columns order, using nil for
// NULL, int64 for integers and string for text, decimal and list columns.
// Scan must read the same columns in the same order.
type Schema[K comparable, T any] struct {
	Type    models.EntityType
	Table   string
	Columns []Column
	Key     func(T) K
	Values  func(T) []any
	Scan    func(Scanner) (T, error)
}

// KeyColumn returns the primary key column, always the first column.
func (s Schema[K, T]) KeyColumn() string {
	return s.Columns[0].Name
}

// ColumnNames returns the column names in storage order.
func (s Schema[K, T]) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of name, or -1.
func (s Schema[K, T]) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks that every column named by p exists.
func (s Schema[K, T]) Validate(p Predicate) error {
	for _, c := range p.Conditions {
		if s.ColumnIndex(c.Column) < 0 {
			return fmt.Errorf("%w %q on %s", ErrUnknownColumn, c.Column, s.Table)
		}
	}
	if p.OrderBy != "" && s.ColumnIndex(p.OrderBy) < 0 {
		return fmt.Errorf("%w %q on %s", ErrUnknownColumn, p.OrderBy, s.Table)
	}
	return nil
}

func nullID(id models.ID) any {
	if id == 0 {
		return nil
	}
	return id
}

func idFromNull(n sql.NullInt64) models.ID {
	if n.Valid {
		return n.Int64
	}
	return 0
}

func nullText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func textFromNull(n sql.NullString) string {
	if n.Valid {
		return n.String
	}
	return ""
}

func listText[E any](v []E) any {
	if len(v) == 0 {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

func fromJSONText(n sql.NullString, dst any) error {
	if !n.Valid || n.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(n.String), dst); err != nil {
		return fmt.Errorf("failed to decode list column: %w", err)
	}
	return nil
}
