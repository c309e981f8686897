package openfinance

import "finsync/internal/models"

// Endpoints groups the remote collections of every cached entity type.
type Endpoints struct {
	Providers        *Collection[models.Provider]
	ProviderAccounts *Collection[models.ProviderAccount]
	Accounts         *Collection[models.Account]
	Transactions     *Collection[models.Transaction]
	Merchants        *Collection[models.Merchant]
	Categories       *Collection[models.TransactionCategory]
	Goals            *Collection[models.Goal]
	GoalPeriods      *Collection[models.GoalPeriod]
	Cards            *Collection[models.Card]
	UserTags         *Collection[models.UserTag]
}

func NewEndpoints(c *Client) *Endpoints {
	return &Endpoints{
		Providers:        NewCollection[models.Provider](c, "providers", "/aggregation/providers", "provider_ids"),
		ProviderAccounts: NewCollection[models.ProviderAccount](c, "provider_accounts", "/aggregation/provideraccounts", "provider_account_ids"),
		Accounts:         NewCollection[models.Account](c, "accounts", "/aggregation/accounts", "account_ids"),
		Transactions:     NewCollection[models.Transaction](c, "transactions", "/aggregation/transactions", "transaction_ids"),
		Merchants:        NewCollection[models.Merchant](c, "merchants", "/aggregation/merchants", "merchant_ids"),
		Categories:       NewCollection[models.TransactionCategory](c, "transaction_categories", "/aggregation/transactions/categories", "transaction_category_ids"),
		Goals:            NewCollection[models.Goal](c, "goals", "/budget/goals", "goal_ids"),
		GoalPeriods:      NewCollection[models.GoalPeriod](c, "goal_periods", "/budget/goals/periods", "goal_period_ids"),
		Cards:            NewCollection[models.Card](c, "cards", "/cards", "card_ids"),
		UserTags:         NewCollection[models.UserTag](c, "user_tags", "/user/tags", "names"),
	}
}
