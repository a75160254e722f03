package repository

import (
	"context"

	"github.com/shopspring/decimal"
)

// Баланс считается одним выражением, поэтому обе суммы берутся из одного снимка данных.
const balanceSQL = `
SELECT
	(SELECT COALESCE(SUM(p.amount), 0)
	   FROM payments p
	  WHERE p.account_id = $1 AND p.processed_at IS NOT NULL AND p.confirmed)
	-
	(SELECT COALESCE(SUM(i.unit_price * i.quantity), 0)
	   FROM order_items i
	   JOIN orders o ON o.id = i.order_id
	  WHERE o.account_id = $1 AND o.deleted_at IS NULL)`

func balanceOf(ctx context.Context, q querier, accountID int64) (decimal.Decimal, error) {
	var current decimal.Decimal
	if err := q.QueryRow(ctx, balanceSQL, accountID).Scan(&current); err != nil {
		return decimal.Zero, err
	}
	return current, nil
}

// GetBalance возвращает текущий баланс аккаунта: подтверждённые платежи минус неудалённые заказы.
func (r *PostgresRepository) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	current, err := balanceOf(ctx, r.pool, accountID)
	if err != nil {
		return decimal.Zero, wrap("get balance", err)
	}
	return current, nil
}
