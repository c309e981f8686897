// Package cache defines the local cache contract shared by the in-memory and
// relational stores.
package cache

import (
	"context"
	"errors"

	"finsync/internal/models"
)

// ErrUnknownColumn is returned when a predicate names a column the table
// does not have.
var ErrUnknownColumn = errors.New("unknown column")

// Store is the per-entity-type local cache.
//
// Implementations allow concurrent readers and serialize writers of the same
// entity type. Foreign key columns are stored but never enforced.
type Store[K comparable, T any] interface {
	// Type returns the entity type held by the store.
	Type() models.EntityType

	// Get returns the row stored under key.
	Get(ctx context.Context, key K) (T, bool, error)

	// Upsert inserts or replaces a row by primary key.
	Upsert(ctx context.Context, item T) error

	// UpsertMany inserts or replaces rows by primary key.
	UpsertMany(ctx context.Context, items []T) error

	// DeleteMany removes the rows stored under keys and returns how many existed.
	DeleteMany(ctx context.Context, keys []K) (int, error)

	// AllKeys returns every cached key.
	AllKeys(ctx context.Context) ([]K, error)

	// KeysMatching returns the keys of rows matching p.
	KeysMatching(ctx context.Context, p Predicate) ([]K, error)

	// QueryMatching returns the rows matching p.
	QueryMatching(ctx context.Context, p Predicate) ([]T, error)
}

// IDStore is a Store keyed by remote IDs.
type IDStore[T any] interface {
	Store[models.ID, T]
}

// KeySet converts keys into a set.
func KeySet[K comparable](keys []K) map[K]struct{} {
	set := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
