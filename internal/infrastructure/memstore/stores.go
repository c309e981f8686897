package memstore

import "finsync/internal/domain/cache"

// NewStores returns an empty in-memory store for every entity type.
func NewStores() *cache.Stores {
	return &cache.Stores{
		Providers:        New(cache.ProviderSchema),
		ProviderAccounts: New(cache.ProviderAccountSchema),
		Accounts:         New(cache.AccountSchema),
		Goals:            New(cache.GoalSchema),
		GoalPeriods:      New(cache.GoalPeriodSchema),
		Cards:            New(cache.CardSchema),
		Merchants:        New(cache.MerchantSchema),
		Transactions:     New(cache.TransactionSchema),
		Categories:       New(cache.TransactionCategorySchema),
		UserTags:         New(cache.UserTagSchema),
	}
}
