package cache

import (
	"database/sql"

	"finsync/internal/models"
)

// Column names shared by cascade lookups and scoped refreshes.
const (
	ColProviderID          = "provider_id"
	ColProviderAccountID   = "provider_account_id"
	ColAccountID           = "account_id"
	ColGoalID              = "goal_id"
	ColGoalPeriodID        = "goal_period_id"
	ColCardID              = "card_id"
	ColMerchantID          = "merchant_id"
	ColTransactionID       = "transaction_id"
	ColCategoryID          = "category_id"
	ColTransactionCategory = "transaction_category_id"
	ColTagName             = "name"
	ColStatus              = "status"
)

// ProviderSchema maps providers.
var ProviderSchema = Schema[models.ID, models.Provider]{
	Type:  models.TypeProvider,
	Table: "providers",
	Columns: []Column{
		{Name: ColProviderID, Kind: KindInt},
		{Name: "name", Kind: KindText},
		{Name: "small_logo_url", Kind: KindText, Nullable: true},
		{Name: "large_logo_url", Kind: KindText, Nullable: true},
		{Name: ColStatus, Kind: KindText, Indexed: true},
		{Name: "popular", Kind: KindBool},
		{Name: "container_names", Kind: KindText, Nullable: true},
		{Name: "aggregator_type", Kind: KindText},
		{Name: "base_url", Kind: KindText, Nullable: true},
		{Name: "login_url", Kind: KindText, Nullable: true},
		{Name: "auth_type", Kind: KindText, Nullable: true},
		{Name: "login_form", Kind: KindText, Nullable: true},
		{Name: "associated_provider_ids", Kind: KindText, Nullable: true},
	},
	Key: func(p models.Provider) models.ID { return p.ID },
	Values: func(p models.Provider) []any {
		return []any{
			p.ID, p.Name, nullText(p.SmallLogoURL), nullText(p.LargeLogoURL), string(p.Status),
			p.Popular, listText(p.ContainerNames), p.AggregatorType, nullText(p.BaseURL),
			nullText(p.LoginURL), nullText(p.AuthType), nullText(p.LoginForm),
			listText(p.AssociatedProviderIDs),
		}
	},
	Scan: func(s Scanner) (models.Provider, error) {
		var p models.Provider
		var status string
		var small, large, containers, base, login, auth, form, associated sql.NullString
		err := s.Scan(&p.ID, &p.Name, &small, &large, &status, &p.Popular, &containers,
			&p.AggregatorType, &base, &login, &auth, &form, &associated)
		if err != nil {
			return p, err
		}
		p.Status = models.ProviderStatus(status)
		p.SmallLogoURL = textFromNull(small)
		p.LargeLogoURL = textFromNull(large)
		p.BaseURL = textFromNull(base)
		p.LoginURL = textFromNull(login)
		p.AuthType = textFromNull(auth)
		p.LoginForm = textFromNull(form)
		if err := fromJSONText(containers, &p.ContainerNames); err != nil {
			return p, err
		}
		return p, fromJSONText(associated, &p.AssociatedProviderIDs)
	},
}

// ProviderAccountSchema maps provider accounts.
var ProviderAccountSchema = Schema[models.ID, models.ProviderAccount]{
	Type:  models.TypeProviderAccount,
	Table: "provider_accounts",
	Columns: []Column{
		{Name: ColProviderAccountID, Kind: KindInt},
		{Name: ColProviderID, Kind: KindInt, Indexed: true},
		{Name: "external_id", Kind: KindText, Nullable: true},
		{Name: "editable", Kind: KindBool},
		{Name: "refresh_status", Kind: KindText, Nullable: true},
		{Name: "refresh_sub_status", Kind: KindText, Nullable: true},
		{Name: "refresh_additional_status", Kind: KindText, Nullable: true},
		{Name: "last_refreshed", Kind: KindText, Nullable: true},
	},
	Key: func(p models.ProviderAccount) models.ID { return p.ID },
	Values: func(p models.ProviderAccount) []any {
		return []any{
			p.ID, p.ProviderID, nullText(p.ExternalID), p.Editable,
			nullText(p.RefreshStatus.Status), nullText(p.RefreshStatus.SubStatus),
			nullText(p.RefreshStatus.AdditionalInfo), nullText(p.RefreshStatus.LastRefreshed),
		}
	},
	Scan: func(s Scanner) (models.ProviderAccount, error) {
		var p models.ProviderAccount
		var external, status, sub, additional, last sql.NullString
		if err := s.Scan(&p.ID, &p.ProviderID, &external, &p.Editable, &status, &sub, &additional, &last); err != nil {
			return p, err
		}
		p.ExternalID = textFromNull(external)
		p.RefreshStatus = models.RefreshStatus{
			Status:         textFromNull(status),
			SubStatus:      textFromNull(sub),
			AdditionalInfo: textFromNull(additional),
			LastRefreshed:  textFromNull(last),
		}
		return p, nil
	},
}

// AccountSchema maps accounts.
var AccountSchema = Schema[models.ID, models.Account]{
	Type:  models.TypeAccount,
	Table: "accounts",
	Columns: []Column{
		{Name: ColAccountID, Kind: KindInt},
		{Name: ColProviderAccountID, Kind: KindInt, Indexed: true},
		{Name: "account_name", Kind: KindText},
		{Name: "nick_name", Kind: KindText, Nullable: true},
		{Name: "account_type", Kind: KindText},
		{Name: "account_sub_type", Kind: KindText, Nullable: true},
		{Name: "account_status", Kind: KindText},
		{Name: "currency", Kind: KindText},
		{Name: "current_balance", Kind: KindDecimal},
		{Name: "hidden", Kind: KindBool},
		{Name: "included", Kind: KindBool},
		{Name: "favourite", Kind: KindBool},
		{Name: "features", Kind: KindText, Nullable: true},
		{Name: "related_accounts", Kind: KindText, Nullable: true},
	},
	Key: func(a models.Account) models.ID { return a.ID },
	Values: func(a models.Account) []any {
		return []any{
			a.ID, a.ProviderAccountID, a.Name, nullText(a.NickName), a.AccountType,
			nullText(a.SubType), a.Status, a.Currency, a.Balance.String(), a.Hidden,
			a.Included, a.Favourite, listText(a.Features), listText(a.RelatedAccounts),
		}
	},
	Scan: func(s Scanner) (models.Account, error) {
		var a models.Account
		var nick, sub, features, related sql.NullString
		err := s.Scan(&a.ID, &a.ProviderAccountID, &a.Name, &nick, &a.AccountType, &sub,
			&a.Status, &a.Currency, &a.Balance, &a.Hidden, &a.Included, &a.Favourite,
			&features, &related)
		if err != nil {
			return a, err
		}
		a.NickName = textFromNull(nick)
		a.SubType = textFromNull(sub)
		if err := fromJSONText(features, &a.Features); err != nil {
			return a, err
		}
		return a, fromJSONText(related, &a.RelatedAccounts)
	},
}

// GoalSchema maps goals.
var GoalSchema = Schema[models.ID, models.Goal]{
	Type:  models.TypeGoal,
	Table: "goals",
	Columns: []Column{
		{Name: ColGoalID, Kind: KindInt},
		{Name: ColAccountID, Kind: KindInt, Nullable: true, Indexed: true},
		{Name: "name", Kind: KindText},
		{Name: "description", Kind: KindText, Nullable: true},
		{Name: ColStatus, Kind: KindText},
		{Name: "tracking_status", Kind: KindText},
		{Name: "tracking_type", Kind: KindText},
		{Name: "frequency", Kind: KindText},
		{Name: "current_amount", Kind: KindDecimal},
		{Name: "target_amount", Kind: KindDecimal},
		{Name: "start_date", Kind: KindText},
		{Name: "end_date", Kind: KindText, Nullable: true},
	},
	Key: func(g models.Goal) models.ID { return g.ID },
	Values: func(g models.Goal) []any {
		return []any{
			g.ID, nullID(g.AccountID), g.Name, nullText(g.Description), g.Status,
			g.TrackingStatus, g.TrackingType, g.Frequency, g.CurrentAmount.String(),
			g.TargetAmount.String(), g.StartDate, nullText(g.EndDate),
		}
	},
	Scan: func(s Scanner) (models.Goal, error) {
		var g models.Goal
		var account sql.NullInt64
		var description, end sql.NullString
		err := s.Scan(&g.ID, &account, &g.Name, &description, &g.Status, &g.TrackingStatus,
			&g.TrackingType, &g.Frequency, &g.CurrentAmount, &g.TargetAmount, &g.StartDate, &end)
		if err != nil {
			return g, err
		}
		g.AccountID = idFromNull(account)
		g.Description = textFromNull(description)
		g.EndDate = textFromNull(end)
		return g, nil
	},
}

// GoalPeriodSchema maps goal periods.
var GoalPeriodSchema = Schema[models.ID, models.GoalPeriod]{
	Type:  models.TypeGoalPeriod,
	Table: "goal_periods",
	Columns: []Column{
		{Name: ColGoalPeriodID, Kind: KindInt},
		{Name: ColGoalID, Kind: KindInt, Indexed: true},
		{Name: "start_date", Kind: KindText},
		{Name: "end_date", Kind: KindText},
		{Name: "tracking_status", Kind: KindText},
		{Name: "current_amount", Kind: KindDecimal},
		{Name: "target_amount", Kind: KindDecimal},
	},
	Key: func(p models.GoalPeriod) models.ID { return p.ID },
	Values: func(p models.GoalPeriod) []any {
		return []any{
			p.ID, p.GoalID, p.StartDate, p.EndDate, p.TrackingStatus,
			p.CurrentAmount.String(), p.TargetAmount.String(),
		}
	},
	Scan: func(s Scanner) (models.GoalPeriod, error) {
		var p models.GoalPeriod
		err := s.Scan(&p.ID, &p.GoalID, &p.StartDate, &p.EndDate, &p.TrackingStatus,
			&p.CurrentAmount, &p.TargetAmount)
		return p, err
	},
}

// CardSchema maps cards.
var CardSchema = Schema[models.ID, models.Card]{
	Type:  models.TypeCard,
	Table: "cards",
	Columns: []Column{
		{Name: ColCardID, Kind: KindInt},
		{Name: ColAccountID, Kind: KindInt, Indexed: true},
		{Name: ColStatus, Kind: KindText},
		{Name: "nick_name", Kind: KindText, Nullable: true},
		{Name: "pan_last_digits", Kind: KindText, Nullable: true},
		{Name: "design_type", Kind: KindText, Nullable: true},
		{Name: "cardholder_name", Kind: KindText, Nullable: true},
	},
	Key: func(c models.Card) models.ID { return c.ID },
	Values: func(c models.Card) []any {
		return []any{
			c.ID, c.AccountID, c.Status, nullText(c.Nickname), nullText(c.PANLastDigits),
			nullText(c.DesignType), nullText(c.CardholderName),
		}
	},
	Scan: func(s Scanner) (models.Card, error) {
		var c models.Card
		var nick, pan, design, holder sql.NullString
		if err := s.Scan(&c.ID, &c.AccountID, &c.Status, &nick, &pan, &design, &holder); err != nil {
			return c, err
		}
		c.Nickname = textFromNull(nick)
		c.PANLastDigits = textFromNull(pan)
		c.DesignType = textFromNull(design)
		c.CardholderName = textFromNull(holder)
		return c, nil
	},
}

// MerchantSchema maps merchants.
var MerchantSchema = Schema[models.ID, models.Merchant]{
	Type:  models.TypeMerchant,
	Table: "merchants",
	Columns: []Column{
		{Name: ColMerchantID, Kind: KindInt},
		{Name: "name", Kind: KindText},
		{Name: "merchant_type", Kind: KindText},
		{Name: "small_logo_url", Kind: KindText, Nullable: true},
	},
	Key: func(m models.Merchant) models.ID { return m.ID },
	Values: func(m models.Merchant) []any {
		return []any{m.ID, m.Name, m.MerchantType, nullText(m.SmallLogoURL)}
	},
	Scan: func(s Scanner) (models.Merchant, error) {
		var m models.Merchant
		var logo sql.NullString
		if err := s.Scan(&m.ID, &m.Name, &m.MerchantType, &logo); err != nil {
			return m, err
		}
		m.SmallLogoURL = textFromNull(logo)
		return m, nil
	},
}

// TransactionSchema maps transactions.
var TransactionSchema = Schema[models.ID, models.Transaction]{
	Type:  models.TypeTransaction,
	Table: "transactions",
	Columns: []Column{
		{Name: ColTransactionID, Kind: KindInt},
		{Name: ColAccountID, Kind: KindInt, Indexed: true},
		{Name: ColMerchantID, Kind: KindInt, Nullable: true, Indexed: true},
		{Name: ColCategoryID, Kind: KindInt, Nullable: true},
		{Name: ColStatus, Kind: KindText},
		{Name: "base_type", Kind: KindText},
		{Name: "amount", Kind: KindDecimal},
		{Name: "currency", Kind: KindText},
		{Name: "description", Kind: KindText},
		{Name: "transaction_date", Kind: KindText, Indexed: true},
		{Name: "included", Kind: KindBool},
		{Name: "memo", Kind: KindText, Nullable: true},
		{Name: "user_tags", Kind: KindText, Nullable: true},
	},
	Key: func(t models.Transaction) models.ID { return t.ID },
	Values: func(t models.Transaction) []any {
		return []any{
			t.ID, t.AccountID, nullID(t.MerchantID), nullID(t.CategoryID), t.Status,
			t.BaseType, t.Amount.String(), t.Currency, t.Description, t.TransactionDate,
			t.Included, nullText(t.Memo), listText(t.UserTags),
		}
	},
	Scan: func(s Scanner) (models.Transaction, error) {
		var t models.Transaction
		var merchant, category sql.NullInt64
		var memo, tags sql.NullString
		err := s.Scan(&t.ID, &t.AccountID, &merchant, &category, &t.Status, &t.BaseType,
			&t.Amount, &t.Currency, &t.Description, &t.TransactionDate, &t.Included, &memo, &tags)
		if err != nil {
			return t, err
		}
		t.MerchantID = idFromNull(merchant)
		t.CategoryID = idFromNull(category)
		t.Memo = textFromNull(memo)
		return t, fromJSONText(tags, &t.UserTags)
	},
}

// TransactionCategorySchema maps transaction categories.
var TransactionCategorySchema = Schema[models.ID, models.TransactionCategory]{
	Type:  models.TypeTransactionCategory,
	Table: "transaction_categories",
	Columns: []Column{
		{Name: ColTransactionCategory, Kind: KindInt},
		{Name: "name", Kind: KindText},
		{Name: "category_type", Kind: KindText},
		{Name: "icon_url", Kind: KindText, Nullable: true},
		{Name: "user_defined", Kind: KindBool},
	},
	Key: func(c models.TransactionCategory) models.ID { return c.ID },
	Values: func(c models.TransactionCategory) []any {
		return []any{c.ID, c.Name, c.CategoryType, nullText(c.IconURL), c.UserDefined}
	},
	Scan: func(s Scanner) (models.TransactionCategory, error) {
		var c models.TransactionCategory
		var icon sql.NullString
		if err := s.Scan(&c.ID, &c.Name, &c.CategoryType, &icon, &c.UserDefined); err != nil {
			return c, err
		}
		c.IconURL = textFromNull(icon)
		return c, nil
	},
}

// UserTagSchema maps user tags, keyed by name.
var UserTagSchema = Schema[string, models.UserTag]{
	Type:  models.TypeUserTag,
	Table: "user_tags",
	Columns: []Column{
		{Name: ColTagName, Kind: KindText},
		{Name: "count", Kind: KindInt},
		{Name: "last_used_at", Kind: KindText, Nullable: true},
		{Name: "created_at", Kind: KindText, Nullable: true},
	},
	Key: func(t models.UserTag) string { return t.Name },
	Values: func(t models.UserTag) []any {
		return []any{t.Name, t.Count, nullText(t.LastUsedAt), nullText(t.CreatedAt)}
	},
	Scan: func(s Scanner) (models.UserTag, error) {
		var t models.UserTag
		var last, created sql.NullString
		if err := s.Scan(&t.Name, &t.Count, &last, &created); err != nil {
			return t, err
		}
		t.LastUsedAt = textFromNull(last)
		t.CreatedAt = textFromNull(created)
		return t, nil
	},
}
