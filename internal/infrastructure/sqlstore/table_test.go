package sqlstore

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsync/internal/domain/cache"
	"finsync/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func TestTable_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	stores := NewStores(openTestDB(t))

	account := models.Account{
		ID:                7,
		ProviderAccountID: 3,
		Name:              "Everyday",
		AccountType:       "BANK",
		Status:            "ACTIVE",
		Currency:          "AUD",
		Balance:           decimal.RequireFromString("1520.75"),
		Included:          true,
		Features:          []string{"PAYMENTS"},
	}

	require.NoError(t, stores.Accounts.Upsert(ctx, account))
	require.NoError(t, stores.Accounts.Upsert(ctx, account))

	keys, err := stores.Accounts.AllKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.ID{7}, keys)

	got, ok, err := stores.Accounts.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, account.Name, got.Name)
	assert.True(t, account.Balance.Equal(got.Balance))
	assert.Equal(t, []string{"PAYMENTS"}, got.Features)
	assert.True(t, got.Included)
	assert.False(t, got.Hidden)
}

func TestTable_GetMissing(t *testing.T) {
	stores := NewStores(openTestDB(t))

	_, ok, err := stores.Merchants.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTable_NullableOwnerRoundTrip(t *testing.T) {
	ctx := context.Background()
	stores := NewStores(openTestDB(t))

	require.NoError(t, stores.Goals.Upsert(ctx, models.Goal{
		ID:            1,
		Name:          "Holiday",
		Status:        "ACTIVE",
		CurrentAmount: decimal.Zero,
		TargetAmount:  decimal.NewFromInt(3000),
		StartDate:     "2024-01-01",
	}))

	got, ok, err := stores.Goals.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, got.AccountID)
	assert.Empty(t, got.EndDate)

	keys, err := stores.Goals.KeysMatching(ctx, cache.WhereIDs(cache.ColAccountID, []models.ID{0}))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestTable_PredicateQueries(t *testing.T) {
	ctx := context.Background()
	stores := NewStores(openTestDB(t))

	var merchants []models.Merchant
	for id := models.ID(1); id <= 10; id++ {
		merchants = append(merchants, models.Merchant{ID: id, Name: "m", MerchantType: "RETAILER"})
	}
	require.NoError(t, stores.Merchants.UpsertMany(ctx, merchants))

	t.Run("range", func(t *testing.T) {
		keys, err := stores.Merchants.KeysMatching(ctx, cache.Predicate{}.Above(cache.ColMerchantID, int64(3)).AtMost(cache.ColMerchantID, int64(6)))
		require.NoError(t, err)
		assert.Equal(t, []models.ID{4, 5, 6}, keys)
	})

	t.Run("window", func(t *testing.T) {
		keys, err := stores.Merchants.KeysMatching(ctx, cache.Predicate{}.Window(cache.ColMerchantID, 2, 3))
		require.NoError(t, err)
		assert.Equal(t, []models.ID{3, 4, 5}, keys)
	})

	t.Run("offset without limit", func(t *testing.T) {
		keys, err := stores.Merchants.KeysMatching(ctx, cache.Predicate{}.Window(cache.ColMerchantID, 8, 0))
		require.NoError(t, err)
		assert.Equal(t, []models.ID{9, 10}, keys)
	})

	t.Run("empty IN matches nothing", func(t *testing.T) {
		keys, err := stores.Merchants.KeysMatching(ctx, cache.Where(cache.ColMerchantID))
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := stores.Merchants.KeysMatching(ctx, cache.Where("nope", 1))
		assert.ErrorIs(t, err, cache.ErrUnknownColumn)
	})
}

func TestTable_LargeInListsAreChunked(t *testing.T) {
	ctx := context.Background()
	stores := NewStores(openTestDB(t))

	ids := make([]models.ID, 0, 1200)
	var txs []models.Transaction
	for id := models.ID(1); id <= 1200; id++ {
		ids = append(ids, id)
		txs = append(txs, models.Transaction{
			ID:              id,
			AccountID:       id%3 + 1,
			Status:          "POSTED",
			BaseType:        "DEBIT",
			Amount:          decimal.NewFromInt(id),
			Currency:        "AUD",
			Description:     "coffee",
			TransactionDate: "2024-05-01",
		})
	}
	require.NoError(t, stores.Transactions.UpsertMany(ctx, txs))

	keys, err := stores.Transactions.KeysMatching(ctx, cache.WhereIDs(cache.ColTransactionID, ids))
	require.NoError(t, err)
	assert.Len(t, keys, 1200)

	deleted, err := stores.Transactions.DeleteMany(ctx, ids[:1100])
	require.NoError(t, err)
	assert.Equal(t, 1100, deleted)

	remaining, err := stores.Transactions.AllKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 100)
}

func TestTable_StringKeys(t *testing.T) {
	ctx := context.Background()
	stores := NewStores(openTestDB(t))

	require.NoError(t, stores.UserTags.UpsertMany(ctx, []models.UserTag{
		{Name: "travel", Count: 2},
		{Name: "groceries", Count: 5},
	}))

	keys, err := stores.UserTags.AllKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"groceries", "travel"}, keys)

	deleted, err := stores.UserTags.DeleteMany(ctx, []string{"travel", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestCreateTableSQL(t *testing.T) {
	def := defOf(cache.MerchantSchema)

	sqlite := createTableSQL(DialectSQLite, def)
	assert.Contains(t, sqlite, "merchant_id INTEGER PRIMARY KEY")
	assert.Contains(t, sqlite, "name TEXT NOT NULL")
	assert.NotContains(t, sqlite, "small_logo_url TEXT NOT NULL")

	pg := createTableSQL(DialectPostgres, defOf(cache.AccountSchema))
	assert.Contains(t, pg, "account_id BIGINT PRIMARY KEY")
	assert.Contains(t, pg, "current_balance NUMERIC NOT NULL")
	assert.Contains(t, pg, "hidden BOOLEAN NOT NULL")
	assert.NotContains(t, pg, "REFERENCES")
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bind params kept", "SELECT a FROM t WHERE id = $1", "SELECT a FROM t WHERE id = $1"},
		{"question marks kept", "DELETE FROM t WHERE id IN (?, ?)", "DELETE FROM t WHERE id IN (?, ?)"},
		{"string literal", "SELECT a FROM t WHERE name = 'bob'", "SELECT a FROM t WHERE name = '?'"},
		{"numeric literal", "SELECT a FROM t LIMIT 50 OFFSET 10", "SELECT a FROM t LIMIT ? OFFSET ?"},
		{"identifier digits", "CREATE INDEX idx_t2 ON t2 (a)", "CREATE INDEX idx_t2 ON t2 (a)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeQuery(tt.in))
		})
	}
}

func TestExtractSQLVerb(t *testing.T) {
	assert.Equal(t, "INSERT", extractSQLVerb("  insert into t values (1)"))
	assert.Equal(t, "SELECT", extractSQLVerb("select\n*"))
}
