package cache

import "finsync/internal/models"

// Op is a comparison operator of a Condition.
type Op int

const (
	OpIn Op = iota
	OpGreater
	OpLessOrEqual
)

// Condition restricts a single column.
type Condition struct {
	Column string
	Op     Op
	Values []any
}

// Predicate is a conjunction of conditions with optional ordering and window.
// The zero Predicate matches every row.
type Predicate struct {
	Conditions []Condition
	OrderBy    string
	Limit      int
	Offset     int
}

// Where returns a predicate matching rows whose column is one of values.
// A Where with no values matches nothing.
func Where(column string, values ...any) Predicate {
	return Predicate{}.And(column, values...)
}

// WhereIDs is Where for ID-valued columns.
func WhereIDs(column string, ids []models.ID) Predicate {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return Where(column, values...)
}

// And adds an IN condition.
func (p Predicate) And(column string, values ...any) Predicate {
	p.Conditions = append(cloneConditions(p.Conditions), Condition{Column: column, Op: OpIn, Values: values})
	return p
}

// Above adds column > value.
func (p Predicate) Above(column string, value any) Predicate {
	p.Conditions = append(cloneConditions(p.Conditions), Condition{Column: column, Op: OpGreater, Values: []any{value}})
	return p
}

// AtMost adds column <= value.
func (p Predicate) AtMost(column string, value any) Predicate {
	p.Conditions = append(cloneConditions(p.Conditions), Condition{Column: column, Op: OpLessOrEqual, Values: []any{value}})
	return p
}

// Window orders by column and restricts the result to limit rows after offset.
func (p Predicate) Window(orderBy string, offset, limit int) Predicate {
	p.OrderBy = orderBy
	p.Offset = offset
	p.Limit = limit
	return p
}

// MatchesNothing reports whether an IN condition has no values.
func (p Predicate) MatchesNothing() bool {
	for _, c := range p.Conditions {
		if c.Op == OpIn && len(c.Values) == 0 {
			return true
		}
	}
	return false
}

func cloneConditions(c []Condition) []Condition {
	out := make([]Condition, len(c), len(c)+1)
	copy(out, c)
	return out
}
