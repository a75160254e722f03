package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/mo"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/drinkbar-ledger/internal/apperr"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

const paymentColumns = `id, account_id, amount, created_at, processed_at, confirmed, note`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var (
		p           model.Payment
		processedAt *time.Time
		confirmed   bool
		note        *string
	)
	if err := row.Scan(&p.ID, &p.AccountID, &p.Amount, &p.CreatedAt, &processedAt, &confirmed, &note); err != nil {
		return nil, err
	}
	p.State = model.PaymentStateFrom(processedAt, confirmed, note)
	return &p, nil
}

// CreatePayment сохраняет платёж в состоянии ожидания.
func (r *PostgresRepository) CreatePayment(ctx context.Context, accountID int64, amount decimal.Decimal) (*model.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`INSERT INTO payments (account_id, amount) VALUES ($1, $2) RETURNING `+paymentColumns,
		accountID, amount,
	))
	if err != nil {
		return nil, wrap("insert payment", err)
	}
	return p, nil
}

// ListPayments возвращает платежи аккаунта (или всех аккаунтов при accountID == 0), новые первыми.
func (r *PostgresRepository) ListPayments(ctx context.Context, accountID int64, pendingOnly bool) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+`
		   FROM payments
		  WHERE ($1::bigint = 0 OR account_id = $1)
		    AND (NOT $2::boolean OR processed_at IS NULL)
		  ORDER BY created_at DESC, id DESC`,
		accountID, pendingOnly,
	)
	if err != nil {
		return nil, wrap("select payments", err)
	}
	defer rows.Close()

	var res []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		res = append(res, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("rows error", err)
	}
	return res, nil
}

// ProcessPayment подтверждает или отклоняет платёж. Условие processed_at IS NULL
// проверяется в самом UPDATE, поэтому платёж обрабатывается ровно один раз.
func (r *PostgresRepository) ProcessPayment(ctx context.Context, id int64, confirmed bool, note mo.Option[string]) (*model.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`UPDATE payments
		    SET processed_at = now(), confirmed = $2, note = $3
		  WHERE id = $1 AND processed_at IS NULL
		 RETURNING `+paymentColumns,
		id, confirmed, note.ToPointer(),
	))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrap("process payment", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, wrap("probe payment", err)
	}
	if !exists {
		return nil, fmt.Errorf("payment %d: %w", id, apperr.ErrNotFound)
	}
	return nil, fmt.Errorf("payment %d: %w", id, apperr.ErrAlreadyProcessed)
}
