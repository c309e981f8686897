// Package memstore provides an in-memory cache.Store used by tests and by
// processes that do not persist their cache between runs.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"finsync/internal/domain/cache"
	"finsync/internal/models"
)

// Store keeps rows of one entity type in a map guarded by a RWMutex.
// Readers run concurrently; writers are serialized.
type Store[K cmp.Ordered, T any] struct {
	schema cache.Schema[K, T]
	mu     sync.RWMutex
	rows   map[K]T
}

// New creates an empty store for schema.
func New[K cmp.Ordered, T any](schema cache.Schema[K, T]) *Store[K, T] {
	return &Store[K, T]{
		schema: schema,
		rows:   make(map[K]T),
	}
}

// Ensure Store implements cache.Store
var _ cache.Store[models.ID, models.Merchant] = (*Store[models.ID, models.Merchant])(nil)

func (s *Store[K, T]) Type() models.EntityType { return s.schema.Type }

func (s *Store[K, T]) Get(ctx context.Context, key K) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.rows[key]
	return item, ok, nil
}

func (s *Store[K, T]) Upsert(ctx context.Context, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[s.schema.Key(item)] = item
	return nil
}

func (s *Store[K, T]) UpsertMany(ctx context.Context, items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.rows[s.schema.Key(item)] = item
	}
	return nil
}

func (s *Store[K, T]) DeleteMany(ctx context.Context, keys []K) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for _, k := range keys {
		if _, ok := s.rows[k]; ok {
			delete(s.rows, k)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store[K, T]) AllKeys(ctx context.Context) ([]K, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]K, 0, len(s.rows))
	for k := range s.rows {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *Store[K, T]) KeysMatching(ctx context.Context, p cache.Predicate) ([]K, error) {
	items, err := s.QueryMatching(ctx, p)
	if err != nil {
		return nil, err
	}
	keys := make([]K, len(items))
	for i, item := range items {
		keys[i] = s.schema.Key(item)
	}
	return keys, nil
}

func (s *Store[K, T]) QueryMatching(ctx context.Context, p cache.Predicate) ([]T, error) {
	if err := s.schema.Validate(p); err != nil {
		return nil, err
	}
	if p.MatchesNothing() {
		return nil, nil
	}

	s.mu.RLock()
	type row struct {
		key    K
		item   T
		values []any
	}
	matched := make([]row, 0)
	for k, item := range s.rows {
		values := s.schema.Values(item)
		if s.matches(values, p) {
			matched = append(matched, row{key: k, item: item, values: values})
		}
	}
	s.mu.RUnlock()

	orderIdx := -1
	if p.OrderBy != "" {
		orderIdx = s.schema.ColumnIndex(p.OrderBy)
	}
	slices.SortFunc(matched, func(a, b row) int {
		// column 0 is the key, which is already the tie-break
		if orderIdx > 0 {
			if c := compareValues(a.values[orderIdx], b.values[orderIdx]); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.key, b.key)
	})

	if p.Offset > 0 {
		if p.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[p.Offset:]
	}
	if p.Limit > 0 && len(matched) > p.Limit {
		matched = matched[:p.Limit]
	}

	items := make([]T, len(matched))
	for i, r := range matched {
		items[i] = r.item
	}
	return items, nil
}

// Len returns the number of cached rows.
func (s *Store[K, T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *Store[K, T]) matches(values []any, p cache.Predicate) bool {
	for _, c := range p.Conditions {
		v := values[s.schema.ColumnIndex(c.Column)]
		switch c.Op {
		case cache.OpIn:
			found := false
			for _, want := range c.Values {
				if compareValues(v, want) == 0 && v != nil {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case cache.OpGreater:
			if v == nil || compareValues(v, c.Values[0]) <= 0 {
				return false
			}
		case cache.OpLessOrEqual:
			if v == nil || compareValues(v, c.Values[0]) > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compareValues orders column values the way the SQL store would: NULL
// first, then integers, then text.
func compareValues(a, b any) int {
	a, b = normalize(a), normalize(b)
	switch av := a.(type) {
	case nil:
		if b == nil {
			return 0
		}
		return -1
	case int64:
		switch bv := b.(type) {
		case int64:
			return cmp.Compare(av, bv)
		case nil:
			return 1
		default:
			return -1
		}
	case string:
		switch bv := b.(type) {
		case string:
			return cmp.Compare(av, bv)
		case nil, int64:
			return 1
		default:
			return -1
		}
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
		}
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	default:
		return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func normalize(v any) any {
	if v == nil {
		return nil
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint())
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}
