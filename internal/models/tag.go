package models

// UserTag is a free-form label the user attaches to transactions.
// Tags are keyed by name.
type UserTag struct {
	Name       string `json:"name"`
	Count      int64  `json:"count"`
	LastUsedAt string `json:"last_used_at,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// Key returns the cache key.
func (t UserTag) Key() string { return t.Name }
