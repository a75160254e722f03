package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/drinkbar-ledger/internal/apperr"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

// memStore хранилище в памяти с той же семантикой, что и PostgresRepository:
// AdmitOrder проверяет баланс и сохраняет заказ под одной блокировкой,
// переходы платежей и удаление заказов условные.
type memStore struct {
	mu       sync.Mutex
	seq      int64
	accounts map[int64]model.Account
	products map[int64]model.Product
	orders   map[int64]model.Order
	payments map[int64]model.Payment

	pingErr error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[int64]model.Account{},
		products: map[int64]model.Product{},
		orders:   map[int64]model.Order{},
		payments: map[int64]model.Payment{},
	}
}

func (m *memStore) next() int64 {
	m.seq++
	return m.seq
}

func (m *memStore) Close() error { return nil }

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) EnsureAccount(_ context.Context, subject string, ceiling decimal.Decimal) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Subject == subject {
			return &a, nil
		}
	}
	a := model.Account{ID: m.next(), Subject: subject, OverdraftCeiling: ceiling, CreatedAt: time.Now()}
	m.accounts[a.ID] = a
	return &a, nil
}

func (m *memStore) GetAccount(_ context.Context, id int64) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, apperr.ErrNotFound)
	}
	return &a, nil
}

func (m *memStore) ListAccounts(context.Context) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]model.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		res = append(res, a)
	}
	slices.SortFunc(res, func(a, b model.Account) int { return int(a.ID - b.ID) })
	return res, nil
}

func (m *memStore) UpdateAccount(_ context.Context, id int64, upd model.AccountUpdate) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, apperr.ErrNotFound)
	}
	a.AgeRestricted = upd.AgeRestricted.OrElse(a.AgeRestricted)
	a.OverdraftCeiling = upd.OverdraftCeiling.OrElse(a.OverdraftCeiling)
	m.accounts[id] = a
	return &a, nil
}

func (m *memStore) balanceLocked(accountID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.AccountID == accountID && model.Counted(p.State) {
			sum = sum.Add(p.Amount)
		}
	}
	for _, o := range m.orders {
		if o.AccountID == accountID && !o.Deleted() {
			sum = sum.Sub(o.Total())
		}
	}
	return sum
}

func (m *memStore) GetBalance(_ context.Context, accountID int64) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(accountID), nil
}

func (m *memStore) AdmitOrder(_ context.Context, accountID int64, items []model.OrderItem, restrictedIDs []int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", accountID, apperr.ErrNotFound)
	}
	if a.AgeRestricted && len(restrictedIDs) > 0 {
		return nil, &apperr.AgeRestrictedError{ProductIDs: restrictedIDs}
	}

	o := model.Order{AccountID: accountID, State: model.OrderActive{}, Items: slices.Clone(items)}
	current := m.balanceLocked(accountID)
	if current.Sub(o.Total()).Add(a.OverdraftCeiling).IsNegative() {
		return nil, &apperr.InsufficientFundsError{Balance: current, Total: o.Total(), Ceiling: a.OverdraftCeiling}
	}

	o.ID = m.next()
	o.CreatedAt = time.Now()
	m.orders[o.ID] = o
	return &o, nil
}

func (m *memStore) GetOrder(_ context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, apperr.ErrNotFound)
	}
	return &o, nil
}

func (m *memStore) ListOrders(_ context.Context, accountID int64, includeDeleted bool) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Order
	for _, o := range m.orders {
		if (accountID == 0 || o.AccountID == accountID) && (includeDeleted || !o.Deleted()) {
			res = append(res, o)
		}
	}
	slices.SortFunc(res, func(a, b model.Order) int { return int(b.ID - a.ID) })
	return res, nil
}

func (m *memStore) DeleteOrder(_ context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, apperr.ErrNotFound)
	}
	if o.Deleted() {
		return nil, fmt.Errorf("order %d: %w", id, apperr.ErrAlreadyDeleted)
	}
	o.State = model.OrderDeleted{At: time.Now()}
	m.orders[id] = o
	return &o, nil
}

func (m *memStore) CreatePayment(_ context.Context, accountID int64, amount decimal.Decimal) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := model.Payment{ID: m.next(), AccountID: accountID, Amount: amount, CreatedAt: time.Now(), State: model.PaymentPending{}}
	m.payments[p.ID] = p
	return &p, nil
}

func (m *memStore) ListPayments(_ context.Context, accountID int64, pendingOnly bool) ([]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Payment
	for _, p := range m.payments {
		if (accountID == 0 || p.AccountID == accountID) && (!pendingOnly || p.State.Status() == model.PaymentStatusPending) {
			res = append(res, p)
		}
	}
	slices.SortFunc(res, func(a, b model.Payment) int { return int(b.ID - a.ID) })
	return res, nil
}

func (m *memStore) ProcessPayment(_ context.Context, id int64, confirmed bool, note mo.Option[string]) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %d: %w", id, apperr.ErrNotFound)
	}
	if _, pending := p.State.(model.PaymentPending); !pending {
		return nil, fmt.Errorf("payment %d: %w", id, apperr.ErrAlreadyProcessed)
	}
	if confirmed {
		p.State = model.PaymentConfirmed{At: time.Now(), Note: note}
	} else {
		p.State = model.PaymentDeclined{At: time.Now(), Note: note}
	}
	m.payments[id] = p
	return &p, nil
}

func (m *memStore) CreateProduct(_ context.Context, p model.Product) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.next()
	p.CreatedAt = time.Now()
	m.products[p.ID] = p
	return &p, nil
}

func (m *memStore) UpdateProduct(_ context.Context, p model.Product) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.products[p.ID]
	if !ok {
		return nil, &apperr.ProductNotFoundError{ProductID: p.ID}
	}
	p.CreatedAt = old.CreatedAt
	m.products[p.ID] = p
	return &p, nil
}

func (m *memStore) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return &apperr.ProductNotFoundError{ProductID: id}
	}
	// позиции заказов хранят копию товара
	delete(m.products, id)
	return nil
}

func (m *memStore) GetProduct(_ context.Context, id int64) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, &apperr.ProductNotFoundError{ProductID: id}
	}
	return &p, nil
}

func (m *memStore) ListProducts(_ context.Context, limit int) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]model.Product, 0, len(m.products))
	for _, p := range m.products {
		res = append(res, p)
	}
	slices.SortFunc(res, func(a, b model.Product) int { return int(a.ID - b.ID) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}
