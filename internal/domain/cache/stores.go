package cache

import "finsync/internal/models"

// Stores bundles one store per cached entity type.
type Stores struct {
	Providers        IDStore[models.Provider]
	ProviderAccounts IDStore[models.ProviderAccount]
	Accounts         IDStore[models.Account]
	Goals            IDStore[models.Goal]
	GoalPeriods      IDStore[models.GoalPeriod]
	Cards            IDStore[models.Card]
	Merchants        IDStore[models.Merchant]
	Transactions     IDStore[models.Transaction]
	Categories       IDStore[models.TransactionCategory]
	UserTags         Store[string, models.UserTag]
}
