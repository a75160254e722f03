package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/apperr"
	"github.com/mmeshcher/drinkbar-ledger/internal/metrics"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	svc     *Service
	store   *memStore
	metrics *metrics.Metrics
	account model.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	m := metrics.New()
	svc := NewService(store, store, m, zap.NewNop(), Options{Currency: "EUR", DefaultCeiling: dec("30")})

	acc, err := svc.EnsureAccount(context.Background(), "subject-1")
	require.NoError(t, err)

	return &fixture{svc: svc, store: store, metrics: m, account: *acc}
}

func (f *fixture) product(t *testing.T, price string, restricted bool) *model.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(context.Background(), model.Product{
		Name:          "item " + price,
		Type:          model.ProductTypeDrink,
		Price:         dec(price),
		Currency:      "EUR",
		AgeRestricted: restricted,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) order(p *model.Product, qty int) []model.OrderItemRequest {
	return []model.OrderItemRequest{{ProductID: p.ID, Quantity: qty}}
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	b, err := f.svc.GetBalance(context.Background(), f.account)
	require.NoError(t, err)
	return b.Current
}

func TestLedgerScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	big := f.product(t, "25", false)
	small := f.product(t, "10", false)

	_, err := f.svc.CreateOrder(ctx, f.account, f.order(big, 1))
	require.NoError(t, err)
	assert.True(t, dec("-25").Equal(f.balance(t)))

	_, err = f.svc.CreateOrder(ctx, f.account, f.order(small, 1))
	var funds *apperr.InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	assert.ErrorIs(t, err, apperr.ErrPolicyDenied)
	assert.True(t, dec("5").Equal(funds.Shortfall()))

	p, err := f.svc.CreatePayment(ctx, f.account.ID, dec("20"))
	require.NoError(t, err)
	assert.True(t, dec("-25").Equal(f.balance(t)), "pending payment must not change balance")

	_, err = f.svc.ProcessPayment(ctx, p.ID, true, mo.None[string]())
	require.NoError(t, err)
	assert.True(t, dec("-5").Equal(f.balance(t)))

	_, err = f.svc.CreateOrder(ctx, f.account, f.order(small, 1))
	require.NoError(t, err)
	assert.True(t, dec("-15").Equal(f.balance(t)))

	b, err := f.svc.GetBalance(ctx, f.account)
	require.NoError(t, err)
	assert.True(t, dec("15").Equal(b.Available))
	assert.Equal(t, "EUR", b.Currency)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.OrderAdmissions.WithLabelValues(metrics.OutcomeAdmitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OrderAdmissions.WithLabelValues(metrics.OutcomeInsufficientFunds)))
}

func TestCreateOrder_BoundaryIsInclusive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	exact := f.product(t, "30", false)
	_, err := f.svc.CreateOrder(ctx, f.account, f.order(exact, 1))
	require.NoError(t, err)

	cent := f.product(t, "0.01", false)
	_, err = f.svc.CreateOrder(ctx, f.account, f.order(cent, 1))
	assert.ErrorIs(t, err, apperr.ErrPolicyDenied)
}

func TestCreateOrder_ProductNotFoundPersistsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "2", false)

	_, err := f.svc.CreateOrder(ctx, f.account, []model.OrderItemRequest{
		{ProductID: p.ID, Quantity: 1},
		{ProductID: 9999, Quantity: 1},
	})

	var nf *apperr.ProductNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(9999), nf.ProductID)

	orders, err := f.svc.ListOrders(ctx, f.account.ID, true)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrder_CheckOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	beer := f.product(t, "100", true)

	_, err := f.svc.UpdateAccount(ctx, f.account.ID, model.AccountUpdate{AgeRestricted: mo.Some(true)})
	require.NoError(t, err)
	f.account.AgeRestricted = true

	// отсутствующий товар сообщается раньше возрастного ограничения
	_, err = f.svc.CreateOrder(ctx, f.account, []model.OrderItemRequest{
		{ProductID: beer.ID, Quantity: 1},
		{ProductID: 424242, Quantity: 1},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// возрастное ограничение сообщается раньше нехватки средств
	_, err = f.svc.CreateOrder(ctx, f.account, f.order(beer, 1))
	var restricted *apperr.AgeRestrictedError
	require.ErrorAs(t, err, &restricted)
	assert.Equal(t, []int64{beer.ID}, restricted.ProductIDs)
}

func TestCreateOrder_AgeFlagReadUnderLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	beer := f.product(t, "3", true)

	stale := f.account
	_, err := f.svc.UpdateAccount(ctx, f.account.ID, model.AccountUpdate{AgeRestricted: mo.Some(true)})
	require.NoError(t, err)

	_, err = f.svc.CreateOrder(ctx, stale, f.order(beer, 1))
	assert.ErrorIs(t, err, apperr.ErrPolicyDenied)
}

func TestCreateOrder_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "1", false)

	_, err := f.svc.CreateOrder(ctx, f.account, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.CreateOrder(ctx, f.account, f.order(p, 0))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	usd, err := f.svc.CreateProduct(ctx, model.Product{Name: "import", Type: model.ProductTypeSnack, Price: dec("1"), Currency: "USD"})
	require.NoError(t, err)
	_, err = f.svc.CreateOrder(ctx, f.account, f.order(usd, 1))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.OrderAdmissions.WithLabelValues(metrics.OutcomeInvalid)))
}

func TestCreateOrder_SnapshotSurvivesPriceChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "4.50", false)

	o, err := f.svc.CreateOrder(ctx, f.account, []model.OrderItemRequest{{ProductID: p.ID, Quantity: 2}, {ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)
	assert.True(t, dec("13.50").Equal(o.Total()))

	p.Price = dec("9")
	_, err = f.svc.UpdateProduct(ctx, *p)
	require.NoError(t, err)

	got, err := f.svc.GetOrder(ctx, o.ID, f.account, false)
	require.NoError(t, err)
	assert.True(t, dec("13.50").Equal(got.Total()))
	assert.True(t, dec("-13.50").Equal(f.balance(t)))
}

func TestCreateOrder_ConcurrentAdmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "20", false)

	const workers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateOrder(ctx, f.account, f.order(p, 1))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, apperr.ErrPolicyDenied):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, workers-1, rejected)
	assert.True(t, dec("-20").Equal(f.balance(t)))
}

func TestProcessPayment_ExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.svc.CreatePayment(ctx, f.account.ID, dec("12.34"))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, p.State.Status())

	done, err := f.svc.ProcessPayment(ctx, p.ID, true, mo.Some("cash"))
	require.NoError(t, err)
	confirmed, ok := done.State.(model.PaymentConfirmed)
	require.True(t, ok)
	assert.Equal(t, "cash", confirmed.Note.OrEmpty())

	_, err = f.svc.ProcessPayment(ctx, p.ID, false, mo.None[string]())
	assert.ErrorIs(t, err, apperr.ErrAlreadyProcessed)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	assert.True(t, dec("12.34").Equal(f.balance(t)))

	_, err = f.svc.ProcessPayment(ctx, 777, true, mo.None[string]())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestProcessPayment_DeclinedDoesNotCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.svc.CreatePayment(ctx, f.account.ID, dec("50"))
	require.NoError(t, err)
	_, err = f.svc.ProcessPayment(ctx, p.ID, false, mo.Some("bounced"))
	require.NoError(t, err)

	assert.True(t, f.balance(t).IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PaymentTransitions.WithLabelValues("declined")))

	pending, err := f.svc.ListAllPayments(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCreatePayment_Validation(t *testing.T) {
	f := newFixture(t)
	for _, amount := range []string{"0", "-1", "0.001"} {
		_, err := f.svc.CreatePayment(context.Background(), f.account.ID, dec(amount))
		assert.ErrorIs(t, err, apperr.ErrValidation, amount)
	}
}

func TestDeleteOrder_RestoresBalanceOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "7.25", false)

	o, err := f.svc.CreateOrder(ctx, f.account, f.order(p, 2))
	require.NoError(t, err)
	assert.True(t, dec("-14.50").Equal(f.balance(t)))

	deleted, err := f.svc.DeleteOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted())
	assert.True(t, f.balance(t).IsZero())

	_, err = f.svc.DeleteOrder(ctx, o.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyDeleted)
	assert.True(t, f.balance(t).IsZero())

	active, err := f.svc.ListOrders(ctx, f.account.ID, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := f.svc.ListAllOrders(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OrderDeletions))
}

func TestGetOrder_Ownership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "1", false)

	o, err := f.svc.CreateOrder(ctx, f.account, f.order(p, 1))
	require.NoError(t, err)

	other, err := f.svc.EnsureAccount(ctx, "subject-2")
	require.NoError(t, err)

	_, err = f.svc.GetOrder(ctx, o.ID, *other, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.svc.GetOrder(ctx, o.ID, *other, true)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestEnsureAccount_Idempotent(t *testing.T) {
	f := newFixture(t)

	again, err := f.svc.EnsureAccount(context.Background(), "subject-1")
	require.NoError(t, err)
	assert.Equal(t, f.account.ID, again.ID)
	assert.True(t, dec("30").Equal(again.OverdraftCeiling))
}

func TestUpdateAccount_Ceiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.UpdateAccount(ctx, f.account.ID, model.AccountUpdate{OverdraftCeiling: mo.Some(dec("-1"))})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	acc, err := f.svc.UpdateAccount(ctx, f.account.ID, model.AccountUpdate{OverdraftCeiling: mo.Some(dec("0"))})
	require.NoError(t, err)
	assert.True(t, acc.OverdraftCeiling.IsZero())

	p := f.product(t, "0.50", false)
	_, err = f.svc.CreateOrder(ctx, *acc, f.order(p, 1))
	assert.ErrorIs(t, err, apperr.ErrPolicyDenied)
}

type recordingOracle struct {
	*memStore
	invalidated []int64
	err         error
}

func (r *recordingOracle) Invalidate(_ context.Context, id int64) error {
	r.invalidated = append(r.invalidated, id)
	return r.err
}

func TestProducts_InvalidateCache(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	oracle := &recordingOracle{memStore: store, err: errors.New("redis down")}
	svc := NewService(store, oracle, metrics.New(), zap.NewNop(), Options{Currency: "EUR", DefaultCeiling: dec("30")})

	p, err := svc.CreateProduct(ctx, model.Product{Name: "Mate", Type: model.ProductTypeDrink, Price: dec("2"), Currency: "EUR"})
	require.NoError(t, err)

	p.Price = dec("2.20")
	_, err = svc.UpdateProduct(ctx, *p)
	require.NoError(t, err, "cache failures must not fail catalog writes")

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	assert.Equal(t, []int64{p.ID, p.ID}, oracle.invalidated)

	_, err = svc.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteProduct_Ordered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "1", false)

	ord, err := f.svc.CreateOrder(ctx, f.account, f.order(p, 2))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteProduct(ctx, p.ID))

	_, err = f.svc.CreateOrder(ctx, f.account, f.order(p, 1))
	var nf *apperr.ProductNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, p.ID, nf.ProductID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.svc.GetOrder(ctx, ord.ID, f.account, false)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(got.Total()))

	assert.ErrorIs(t, f.svc.DeleteProduct(ctx, p.ID), apperr.ErrNotFound)
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "€", LookupCurrency("EUR").Symbol)
	assert.Equal(t, Currency{Code: "SEK", Symbol: "SEK", Name: "SEK"}, LookupCurrency("SEK"))

	f := newFixture(t)
	assert.Equal(t, "Euro", f.svc.Currency().Name)
}
