package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrConflictingVisibility is returned when a patch asks for an account to be
// both hidden and included in budgets.
var ErrConflictingVisibility = errors.New("account cannot be hidden and included at the same time")

// Account is a single financial account held at a provider account.
type Account struct {
	ID                ID              `json:"id"`
	ProviderAccountID ID              `json:"provider_account_id"`
	Name              string          `json:"account_name"`
	NickName          string          `json:"nick_name,omitempty"`
	AccountType       string          `json:"account_type"`
	SubType           string          `json:"account_sub_type,omitempty"`
	Status            string          `json:"account_status"`
	Currency          string          `json:"currency"`
	Balance           decimal.Decimal `json:"current_balance"`
	Hidden            bool            `json:"hidden"`
	Included          bool            `json:"included"`
	Favourite         bool            `json:"favourite"`
	Features          []string        `json:"features,omitempty"`
	RelatedAccounts   []ID            `json:"related_accounts,omitempty"`
}

// Key returns the cache key.
func (a Account) Key() ID { return a.ID }

// AccountPatch holds user-editable account attributes. Nil fields are left
// unchanged.
type AccountPatch struct {
	NickName  *string `json:"nick_name,omitempty"`
	Hidden    *bool   `json:"hidden,omitempty"`
	Included  *bool   `json:"included,omitempty"`
	Favourite *bool   `json:"favourite,omitempty"`
}

// Apply returns a copy of a with the patch applied.
func (p AccountPatch) Apply(a Account) Account {
	if p.NickName != nil {
		a.NickName = *p.NickName
	}
	if p.Hidden != nil {
		a.Hidden = *p.Hidden
	}
	if p.Included != nil {
		a.Included = *p.Included
	}
	if p.Favourite != nil {
		a.Favourite = *p.Favourite
	}
	return a
}

// Validate rejects patches that set mutually exclusive flags.
func (p AccountPatch) Validate() error {
	if p.Hidden != nil && p.Included != nil && *p.Hidden && *p.Included {
		return ErrConflictingVisibility
	}
	return nil
}
