package models

import "github.com/shopspring/decimal"

// Transaction is a single movement of money on an account.
type Transaction struct {
	ID              ID              `json:"id"`
	AccountID       ID              `json:"account_id"`
	MerchantID      ID              `json:"merchant_id,omitempty"`
	CategoryID      ID              `json:"category_id,omitempty"`
	Status          string          `json:"status"`
	BaseType        string          `json:"base_type"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	TransactionDate string          `json:"transaction_date"`
	Included        bool            `json:"included"`
	Memo            string          `json:"memo,omitempty"`
	UserTags        []string        `json:"user_tags,omitempty"`
}

// Key returns the cache key.
func (t Transaction) Key() ID { return t.ID }

// TransactionPatch holds user-editable transaction attributes.
type TransactionPatch struct {
	CategoryID *ID     `json:"category_id,omitempty"`
	Included   *bool   `json:"included,omitempty"`
	Memo       *string `json:"memo,omitempty"`
}

// TransactionCategory classifies transactions for budgeting.
type TransactionCategory struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	CategoryType string `json:"category_type"`
	IconURL      string `json:"icon_url,omitempty"`
	UserDefined  bool   `json:"user_defined"`
}

// Key returns the cache key.
func (c TransactionCategory) Key() ID { return c.ID }

// MerchantIDs returns the distinct merchant references of txs.
func MerchantIDs(txs []Transaction) []ID {
	ids := make([]ID, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.MerchantID)
	}
	return UniqueIDs(ids)
}

// CategoryIDs returns the distinct category references of txs.
func CategoryIDs(txs []Transaction) []ID {
	ids := make([]ID, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.CategoryID)
	}
	return UniqueIDs(ids)
}

// Apply returns a copy of t with the patch applied.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Included != nil {
		t.Included = *p.Included
	}
	if p.Memo != nil {
		t.Memo = *p.Memo
	}
	return t
}
