package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-duel/internal/catalog"
	"trivia-duel/internal/domain"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), DriverLibSQL, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, EnsureSchema(context.Background(), db))
	return db
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, EnsureSchema(context.Background(), db))

	for _, table := range []string{"categories", "questions", "coupons", "documents"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestCouponsTableStoresValue(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	_, err := db.ExecContext(ctx, `INSERT INTO coupons (code, value) VALUES (?, ?)`, "BONUS", 250)
	require.NoError(t, err)

	value, err := NewLedger(db).Lookup(ctx, "BONUS")
	require.NoError(t, err)
	assert.Equal(t, 250, value)
}

func TestOpenLocalFileConfiguresConnection(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trivia.db")

	for i := 0; i < 3; i++ {
		db, err := Open(ctx, DriverLibSQL, path)
		require.NoError(t, err, "open %d", i)
		assert.Equal(t, 1, db.Stats().MaxOpenConnections)

		var timeout int
		require.NoError(t, db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 5000, timeout)

		require.NoError(t, EnsureSchema(ctx, db))
		require.NoError(t, NewDocumentStore(db).Save(ctx, "trivia-settings", domain.EconomyState{Tokens: i}))
		require.NoError(t, db.Close())
	}
}

func TestDocumentStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore(openMemory(t))

	var g domain.GameSession
	found, err := store.Load(ctx, "trivia-game", &g)
	require.NoError(t, err)
	assert.False(t, found)

	saved := domain.NewGameSession()
	saved.Teams = []domain.Team{{ID: "a", Name: "Alpha", Score: 400}}
	require.NoError(t, store.Save(ctx, "trivia-game", saved))
	saved.Teams[0].Score = -200
	require.NoError(t, store.Save(ctx, "trivia-game", saved))

	found, err = store.Load(ctx, "trivia-game", &g)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, g.Teams, 1)
	assert.Equal(t, -200, g.Teams[0].Score)
}

func TestLedgerCouponsAndCatalog(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(openMemory(t))

	_, err := ledger.Lookup(ctx, "TEST1234")
	assert.ErrorIs(t, err, domain.ErrCouponNotFound)

	seeded, err := ledger.SeedIfEmpty(ctx, domain.DefaultCoupons)
	require.NoError(t, err)
	assert.True(t, seeded)
	seeded, err = ledger.SeedIfEmpty(ctx, []domain.Coupon{{Code: "OTHER", Value: 5}})
	require.NoError(t, err)
	assert.False(t, seeded)

	value, err := ledger.Lookup(ctx, "TEST1234")
	require.NoError(t, err)
	assert.Equal(t, 100, value)

	static, err := catalog.Default()
	require.NoError(t, err)
	categories, _ := static.LoadCategories(ctx)
	require.NoError(t, ledger.AddQuestions(ctx, categories, static.AllQuestions()))
	require.NoError(t, ledger.AddQuestions(ctx, categories, static.AllQuestions()))

	count, err := ledger.CountQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 72, count)

	loaded, err := ledger.LoadCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, categories, loaded)

	want, _ := static.LoadQuestions(ctx, "cat7")
	got, err := ledger.LoadQuestions(ctx, "cat7")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ledger.LoadQuestions(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestLedgerLookupFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM coupons WHERE code = \\?").
		WithArgs("TEST1234").
		WillReturnError(errors.New("connection reset"))

	_, err = NewLedger(db).Lookup(context.Background(), "TEST1234")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCouponNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerSeedRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM coupons").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO coupons").
		WithArgs("TEST1234", 100).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	seeded, err := NewLedger(db).SeedIfEmpty(context.Background(), domain.DefaultCoupons)
	require.Error(t, err)
	assert.False(t, seeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStoreSaveFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("REPLACE INTO documents").
		WithArgs("trivia-settings", sqlmock.AnyArg()).
		WillReturnError(errors.New("read-only database"))

	err = NewDocumentStore(db).Save(context.Background(), "trivia-settings", domain.NewEconomyState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only database")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x")
	assert.Error(t, err)
}
