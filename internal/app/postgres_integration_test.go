//go:build integration

package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"stockledger/internal/app"
	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/contact"
	"stockledger/internal/domain/catalogs/group"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/warehouse"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/domain/documents/inward"
	"stockledger/internal/domain/documents/opening"
	"stockledger/internal/domain/documents/outward"
	"stockledger/internal/domain/documents/transfer"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/pgstore"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type pgEnv struct {
	ctx     context.Context
	svc     *app.Services
	item    id.ID
	main    id.ID
	shop    id.ID
	contact id.ID
}

func startPostgres(t *testing.T) *pgEnv {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("stockledger_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, app.Migrate(ctx, dsn))

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store, err := pgstore.New(postgres.NewTxManager(pool))
	require.NoError(t, err)
	svc, err := app.Build(app.PostgresBackend(store), app.Options{})
	require.NoError(t, err)

	_, err = svc.Periods.SetActive(ctx, day(2024, 4, 1), day(2026, 3, 31))
	require.NoError(t, err)

	g := group.NewGroup("HW", "Hardware")
	require.NoError(t, svc.Groups.Create(ctx, g))
	it := item.NewItem("BOLT", "Bolt M8", "pcs", g.ID)
	it.Barcodes = []string{"4006381333931"}
	require.NoError(t, svc.Items.Create(ctx, it))
	mainWH := warehouse.NewWarehouse("MAIN", "Main store")
	require.NoError(t, svc.Warehouses.Create(ctx, mainWH))
	shop := warehouse.NewWarehouse("SHOP", "Shop floor")
	require.NoError(t, svc.Warehouses.Create(ctx, shop))
	c := contact.NewContact("Site crew", contact.TypeCustomer)
	require.NoError(t, svc.Contacts.Create(ctx, c))

	return &pgEnv{ctx: ctx, svc: svc, item: it.ID, main: mainWH.ID, shop: shop.ID, contact: c.ID}
}

func (e *pgEnv) stockAt(t *testing.T, whID id.ID, asOf *time.Time) types.Quantity {
	t.Helper()
	q, err := e.svc.Stock.ComputeStock(e.ctx, e.item, whID, asOf)
	require.NoError(t, err)
	return q
}

func TestPostgres_LedgerProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	env := startPostgres(t)
	ctx := env.ctx

	t.Run("balance follows dated movements", func(t *testing.T) {
		op := opening.New(day(2024, 4, 1))
		op.AddLine(env.item, env.main, types.Units(100))
		require.NoError(t, env.svc.Openings.Create(ctx, op))

		in := inward.New(day(2024, 5, 1), inward.TypePurchase, "INV-1")
		in.AddLine(env.item, env.main, types.Units(50))
		require.NoError(t, env.svc.Inwards.Create(ctx, in))

		out := outward.New(day(2024, 6, 1), outward.TypeSale, "SO-1")
		out.AddLine(env.item, env.main, types.Units(30))
		require.NoError(t, env.svc.Outwards.Create(ctx, out))

		assert.Equal(t, types.Units(120), env.stockAt(t, env.main, nil))
		asOf := day(2024, 5, 15)
		assert.Equal(t, types.Units(150), env.stockAt(t, env.main, &asOf))

		entries, err := env.svc.Stock.ComputeStockLedger(ctx, env.item, env.main)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, types.Units(120), entries[2].Balance)
	})

	t.Run("one opening per financial year", func(t *testing.T) {
		again := opening.New(day(2024, 9, 1))
		again.AddLine(env.item, env.main, types.Units(5))
		err := env.svc.Openings.Create(ctx, again)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		require.NotEmpty(t, appErr.Fields)
		assert.Equal(t, apperror.CodeDuplicate, appErr.Fields[0].Code)
	})

	t.Run("transfer conserves the total", func(t *testing.T) {
		before := env.stockAt(t, env.main, nil) + env.stockAt(t, env.shop, nil)

		tr := transfer.New(day(2024, 6, 1), "TR-1")
		tr.AddLine(env.item, env.main, env.shop, types.Units(20))
		require.NoError(t, env.svc.Transfers.Create(ctx, tr))

		assert.Equal(t, types.Units(20), env.stockAt(t, env.shop, nil))
		assert.Equal(t, before, env.stockAt(t, env.main, nil)+env.stockAt(t, env.shop, nil))
	})

	t.Run("returns never exceed the issue", func(t *testing.T) {
		issue := delivery.NewIssue(day(2024, 7, 1), env.contact)
		issue.AddLine(env.item, env.main, types.Units(10))
		require.NoError(t, env.svc.Delivery.Issue(ctx, issue))
		lineID := issue.Lines[0].LineID

		_, err := env.svc.Delivery.ReturnLine(ctx, lineID, types.Units(10), env.main, day(2024, 7, 5))
		require.NoError(t, err)

		_, err = env.svc.Delivery.ReturnLine(ctx, lineID, types.Units(1), env.main, day(2024, 7, 6))
		require.Error(t, err)
		assert.True(t, apperror.IsOverReturn(err))

		pending, err := env.svc.Delivery.FindPending(ctx, delivery.PendingFilter{ContactID: &env.contact})
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("parallel returns never exceed the issue", func(t *testing.T) {
		issue := delivery.NewIssue(day(2024, 7, 10), env.contact)
		issue.AddLine(env.item, env.main, types.Units(5))
		require.NoError(t, env.svc.Delivery.Issue(ctx, issue))
		lineID := issue.Lines[0].LineID

		const clerks = 12
		errs := make([]error, clerks)
		var wg sync.WaitGroup
		for i := range clerks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = env.svc.Delivery.ReturnLine(ctx, lineID, types.Units(1), env.main, day(2024, 7, 12))
			}()
		}
		wg.Wait()

		var accepted int
		for _, err := range errs {
			if err == nil {
				accepted++
				continue
			}
			assert.True(t, apperror.IsOverReturn(err) || apperror.IsTransient(err), "unexpected error: %v", err)
		}
		assert.LessOrEqual(t, accepted, 5)

		stored, err := env.svc.Issues.Get(ctx, issue.ID)
		require.NoError(t, err)
		assert.Equal(t, types.Units(int64(accepted)), stored.Lines[0].ReturnedQuantity)

		pending, err := env.svc.Delivery.FindPending(ctx, delivery.PendingFilter{ContactID: &env.contact})
		require.NoError(t, err)
		var open types.Quantity
		for _, p := range pending {
			if p.LineID == lineID {
				open += p.Pending()
			}
		}
		assert.Equal(t, types.Units(int64(5-accepted)), open)
	})

	t.Run("out of period persists nothing", func(t *testing.T) {
		before := env.stockAt(t, env.main, nil)

		late := inward.New(day(2027, 1, 1), inward.TypePurchase, "INV-LATE")
		late.AddLine(env.item, env.main, types.Units(999))
		err := env.svc.Inwards.Create(ctx, late)
		require.Error(t, err)
		assert.True(t, apperror.IsOutOfPeriod(err))

		_, err = env.svc.Inwards.Get(ctx, late.ID)
		assert.True(t, apperror.IsNotFound(err))
		assert.Equal(t, before, env.stockAt(t, env.main, nil))

		entries, err := env.svc.Stock.ComputeStockLedger(ctx, env.item, env.main)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotEqual(t, late.ID, e.RecorderID)
		}
	})
}
