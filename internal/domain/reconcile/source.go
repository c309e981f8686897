package reconcile

import (
	"context"

	"finsync/internal/models"
)

// Query carries the paging and filter parameters of a remote request.
type Query struct {
	Before  *int64
	After   *int64
	Size    int
	Filters map[string]string
}

// WithFilter returns a copy of q with key set to value.
func (q Query) WithFilter(key, value string) Query {
	filters := make(map[string]string, len(q.Filters)+1)
	for k, v := range q.Filters {
		filters[k] = v
	}
	filters[key] = value
	q.Filters = filters
	return q
}

// Page is one page of a cursor-paginated response. A nil Items slice means
// the remote returned no data; an empty slice is an authoritative empty page.
type Page[T any] struct {
	Items  []T
	Before *int64
	After  *int64
	Total  *int64
}

// PageCursors are handed back to callers driving pagination themselves.
type PageCursors struct {
	Before *int64
	After  *int64
}

// Source is the remote collection of one entity type.
type Source[T any] interface {
	// FetchAll returns the whole collection, or the part selected by q.Filters.
	FetchAll(ctx context.Context, q Query) ([]T, error)

	// FetchPage returns the page after q.After.
	FetchPage(ctx context.Context, q Query) (Page[T], error)

	// FetchByIDs returns a page of the entities in ids.
	FetchByIDs(ctx context.Context, ids []models.ID, q Query) (Page[T], error)

	// FetchOne returns a single entity, or nil when the remote returned no data.
	FetchOne(ctx context.Context, id models.ID) (*T, error)
}

// Int64 returns a pointer to v, for building cursors.
func Int64(v int64) *int64 { return &v }

// RemoteCollection is a Source that also accepts mutations.
type RemoteCollection[T any] interface {
	Source[T]

	// Create returns the created entity, or nil when the remote returned no data.
	Create(ctx context.Context, payload any) (*T, error)

	// Update returns the updated entity, or nil when the remote returned no data.
	Update(ctx context.Context, id models.ID, payload any) (*T, error)

	Delete(ctx context.Context, id models.ID) error
}
