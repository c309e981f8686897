package openfinance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finsync/internal/domain/reconcile"
	"finsync/internal/models"
)

// Collection is the remote endpoint of one entity type.
type Collection[T any] struct {
	client   *Client
	name     string
	path     string
	idsParam string
}

// Ensure Collection implements reconcile.Source
var _ reconcile.Source[models.Merchant] = (*Collection[models.Merchant])(nil)

// NewCollection returns the collection served at path. idsParam names the
// query parameter carrying ID batches.
func NewCollection[T any](c *Client, name, path, idsParam string) *Collection[T] {
	return &Collection[T]{client: c, name: name, path: path, idsParam: idsParam}
}

type paging struct {
	Cursors struct {
		Before *int64 `json:"before"`
		After  *int64 `json:"after"`
	} `json:"cursors"`
	Total *int64 `json:"total"`
}

type listEnvelope[T any] struct {
	Data   []T     `json:"data"`
	Paging *paging `json:"paging"`
}

// decodePage accepts either an envelope or a bare JSON array. A nil body,
// JSON null and an envelope without data decode to a nil Items slice.
func decodePage[T any](body []byte) (reconcile.Page[T], error) {
	var page reconcile.Page[T]
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return page, nil
	}

	if body[0] == '[' {
		if err := json.Unmarshal(body, &page.Items); err != nil {
			return page, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return page, nil
	}

	var env listEnvelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return page, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	page.Items = env.Data
	if env.Paging != nil {
		page.Before = env.Paging.Cursors.Before
		page.After = env.Paging.Cursors.After
		page.Total = env.Paging.Total
	}
	return page, nil
}

func decodeOne[T any](body []byte) (*T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(env.Data) > 0 {
		body = env.Data
		if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
			return nil, nil
		}
	}

	var item T
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &item, nil
}

func queryValues(q reconcile.Query, paged bool) url.Values {
	v := url.Values{}
	for k, val := range q.Filters {
		v.Set(k, val)
	}
	if !paged {
		return v
	}
	if q.Before != nil {
		v.Set("before", strconv.FormatInt(*q.Before, 10))
	}
	if q.After != nil {
		v.Set("after", strconv.FormatInt(*q.After, 10))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	return v
}

func joinIDs(ids []models.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func (c *Collection[T]) op(action string) string {
	return c.name + "." + action
}

func (c *Collection[T]) list(ctx context.Context, op string, v url.Values) (reconcile.Page[T], error) {
	body, err := c.client.do(ctx, op, http.MethodGet, c.path, v, nil)
	if err != nil {
		return reconcile.Page[T]{}, err
	}
	page, err := decodePage[T](body)
	if err != nil {
		return page, &reconcile.Error{Kind: reconcile.KindRemoteRejected, Op: op, Err: err}
	}
	return page, nil
}

func (c *Collection[T]) FetchAll(ctx context.Context, q reconcile.Query) ([]T, error) {
	page, err := c.list(ctx, c.op("list"), queryValues(q, false))
	return page.Items, err
}

func (c *Collection[T]) FetchPage(ctx context.Context, q reconcile.Query) (reconcile.Page[T], error) {
	return c.list(ctx, c.op("page"), queryValues(q, true))
}

func (c *Collection[T]) FetchByIDs(ctx context.Context, ids []models.ID, q reconcile.Query) (reconcile.Page[T], error) {
	v := queryValues(q, true)
	v.Set(c.idsParam, joinIDs(ids))
	return c.list(ctx, c.op("batch"), v)
}

func (c *Collection[T]) FetchOne(ctx context.Context, id models.ID) (*T, error) {
	return c.send(ctx, c.op("get"), http.MethodGet, c.itemPath(id), nil)
}

// Create posts payload and returns the created entity.
func (c *Collection[T]) Create(ctx context.Context, payload any) (*T, error) {
	return c.send(ctx, c.op("create"), http.MethodPost, c.path, payload)
}

// Update puts payload to the entity and returns the updated entity, or nil
// when the remote answered without content.
func (c *Collection[T]) Update(ctx context.Context, id models.ID, payload any) (*T, error) {
	return c.send(ctx, c.op("update"), http.MethodPut, c.itemPath(id), payload)
}

// Delete removes the entity remotely.
func (c *Collection[T]) Delete(ctx context.Context, id models.ID) error {
	_, err := c.client.do(ctx, c.op("delete"), http.MethodDelete, c.itemPath(id), nil, nil)
	return err
}

func (c *Collection[T]) itemPath(id models.ID) string {
	return c.path + "/" + strconv.FormatInt(id, 10)
}

func (c *Collection[T]) send(ctx context.Context, op, method, path string, payload any) (*T, error) {
	body, err := c.client.do(ctx, op, method, path, nil, payload)
	if err != nil {
		return nil, err
	}
	item, err := decodeOne[T](body)
	if err != nil {
		return nil, &reconcile.Error{Kind: reconcile.KindRemoteRejected, Op: op, Err: err}
	}
	return item, nil
}
