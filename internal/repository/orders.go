package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/drinkbar-ledger/internal/apperr"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

// AdmitOrder атомарно проверяет лимит овердрафта и сохраняет заказ.
//
// Строка аккаунта блокируется (SELECT ... FOR UPDATE) до конца транзакции, поэтому
// параллельные заказы одного аккаунта проходят проверку баланса строго по очереди и
// каждый следующий видит сумму уже зафиксированных. Флаг возрастного ограничения и
// лимит перечитываются под блокировкой; restrictedIDs перечисляет товары заказа с
// возрастным ограничением.
func (r *PostgresRepository) AdmitOrder(ctx context.Context, accountID int64, items []model.OrderItem, restrictedIDs []int64) (*model.Order, error) {
	var order *model.Order

	err := r.withRetry(ctx, func() error {
		var err error
		order, err = r.admitOrderTx(ctx, accountID, items, restrictedIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PostgresRepository) admitOrderTx(ctx context.Context, accountID int64, items []model.OrderItem, restrictedIDs []int64) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, wrap("begin tx", err)
	}
	defer tx.Rollback(ctx)

	var (
		ageRestricted bool
		ceiling       decimal.Decimal
	)
	err = tx.QueryRow(ctx,
		`SELECT age_restricted, overdraft_ceiling FROM accounts WHERE id = $1 FOR UPDATE`,
		accountID,
	).Scan(&ageRestricted, &ceiling)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %d: %w", accountID, apperr.ErrNotFound)
		}
		return nil, wrap("lock account for update", err)
	}

	if ageRestricted && len(restrictedIDs) > 0 {
		return nil, &apperr.AgeRestrictedError{ProductIDs: restrictedIDs}
	}

	current, err := balanceOf(ctx, tx, accountID)
	if err != nil {
		return nil, wrap("balance under lock", err)
	}

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total())
	}

	if current.Sub(total).Add(ceiling).IsNegative() {
		return nil, &apperr.InsufficientFundsError{Balance: current, Total: total, Ceiling: ceiling}
	}

	order := &model.Order{
		AccountID: accountID,
		State:     model.OrderActive{},
		Items:     items,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (account_id) VALUES ($1) RETURNING id, created_at`,
		accountID,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, wrap("insert order", err)
	}

	batch := &pgx.Batch{}
	for pos, it := range items {
		batch.Queue(
			`INSERT INTO order_items (order_id, position, product_id, quantity, unit_price, currency)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, pos, it.ProductID, it.Quantity, it.UnitPrice, it.Currency,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, wrap("insert order items", err)
	}

	if err := commit(ctx, tx); err != nil {
		return nil, err
	}

	return order, nil
}

const orderColumns = `id, account_id, created_at, deleted_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o         model.Order
		deletedAt *time.Time
	)
	if err := row.Scan(&o.ID, &o.AccountID, &o.CreatedAt, &deletedAt); err != nil {
		return nil, err
	}
	o.State = model.OrderStateFrom(deletedAt)
	return &o, nil
}

// GetOrder возвращает заказ с позициями.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, apperr.ErrNotFound)
		}
		return nil, wrap("get order", err)
	}

	orders := []*model.Order{o}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders возвращает заказы аккаунта (или всех аккаунтов при accountID == 0), новые первыми.
func (r *PostgresRepository) ListOrders(ctx context.Context, accountID int64, includeDeleted bool) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		   FROM orders
		  WHERE ($1::bigint = 0 OR account_id = $1)
		    AND ($2::boolean OR deleted_at IS NULL)
		  ORDER BY id DESC`,
		accountID, includeDeleted,
	)
	if err != nil {
		return nil, wrap("select orders", err)
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("rows error", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	res := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		res = append(res, *o)
	}
	return res, nil
}

func (r *PostgresRepository) loadItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*model.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT i.order_id, i.product_id, p.name, i.quantity, i.unit_price, i.currency
		   FROM order_items i
		   JOIN products p ON p.id = i.product_id
		  WHERE i.order_id = ANY($1)
		  ORDER BY i.order_id, i.position`,
		ids,
	)
	if err != nil {
		return wrap("select order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			it      model.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Currency); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return wrap("rows error", err)
	}
	return nil
}

// DeleteOrder мягко удаляет заказ. Переход выполняется условным UPDATE, поэтому из
// двух параллельных удалений успешным будет только одно.
func (r *PostgresRepository) DeleteOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`UPDATE orders SET deleted_at = now()
		  WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+orderColumns,
		id,
	))
	if err == nil {
		if err := r.loadItems(ctx, []*model.Order{o}); err != nil {
			return nil, err
		}
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrap("delete order", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, wrap("probe order", err)
	}
	if !exists {
		return nil, fmt.Errorf("order %d: %w", id, apperr.ErrNotFound)
	}
	return nil, fmt.Errorf("order %d: %w", id, apperr.ErrAlreadyDeleted)
}
