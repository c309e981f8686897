package sqlstore

import (
	"finsync/internal/domain/cache"
)

// NewStores returns table-backed stores for every cached entity type.
func NewStores(db *DB) *cache.Stores {
	return &cache.Stores{
		Providers:        NewTable(db, cache.ProviderSchema),
		ProviderAccounts: NewTable(db, cache.ProviderAccountSchema),
		Accounts:         NewTable(db, cache.AccountSchema),
		Goals:            NewTable(db, cache.GoalSchema),
		GoalPeriods:      NewTable(db, cache.GoalPeriodSchema),
		Cards:            NewTable(db, cache.CardSchema),
		Merchants:        NewTable(db, cache.MerchantSchema),
		Transactions:     NewTable(db, cache.TransactionSchema),
		Categories:       NewTable(db, cache.TransactionCategorySchema),
		UserTags:         NewTable(db, cache.UserTagSchema),
	}
}
