package aggregation

import "errors"

var (
	ErrNotFound     = errors.New("entity not found in cache")
	ErrInvalidPatch = errors.New("invalid patch")
	ErrNoAccounts   = errors.New("at least one account ID is required")
)
