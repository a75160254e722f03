package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/drinkbar-ledger/internal/apperr"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

const accountColumns = `id, subject, age_restricted, overdraft_ceiling, created_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Subject, &a.AgeRestricted, &a.OverdraftCeiling, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// EnsureAccount возвращает аккаунт субъекта, создавая его при первом обращении.
// Существующая строка только читается и не ждёт блокировок FOR UPDATE.
func (r *PostgresRepository) EnsureAccount(ctx context.Context, subject string, ceiling decimal.Decimal) (*model.Account, error) {
	a, err := r.accountBySubject(ctx, subject)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrap("select account", err)
	}

	a, err = scanAccount(r.pool.QueryRow(ctx,
		`INSERT INTO accounts (subject, overdraft_ceiling) VALUES ($1, $2)
		 ON CONFLICT (subject) DO NOTHING
		 RETURNING `+accountColumns,
		subject, ceiling,
	))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrap("insert account", err)
	}

	// строку вставил параллельный запрос
	a, err = r.accountBySubject(ctx, subject)
	if err != nil {
		return nil, wrap("select account", err)
	}
	return a, nil
}

func (r *PostgresRepository) accountBySubject(ctx context.Context, subject string) (*model.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE subject = $1`, subject))
}

// GetAccount возвращает аккаунт по идентификатору.
func (r *PostgresRepository) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %d: %w", id, apperr.ErrNotFound)
		}
		return nil, wrap("get account", err)
	}
	return a, nil
}

// ListAccounts возвращает все аккаунты.
func (r *PostgresRepository) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, wrap("select accounts", err)
	}
	defer rows.Close()

	var res []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		res = append(res, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("rows error", err)
	}
	return res, nil
}

// UpdateAccount меняет флаг возрастного ограничения и лимит овердрафта.
func (r *PostgresRepository) UpdateAccount(ctx context.Context, id int64, upd model.AccountUpdate) (*model.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`UPDATE accounts
		    SET age_restricted = COALESCE($2::boolean, age_restricted),
		        overdraft_ceiling = COALESCE($3::numeric, overdraft_ceiling)
		  WHERE id = $1
		 RETURNING `+accountColumns,
		id, upd.AgeRestricted.ToPointer(), upd.OverdraftCeiling.ToPointer(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %d: %w", id, apperr.ErrNotFound)
		}
		return nil, wrap("update account", err)
	}
	return a, nil
}
