package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/drinkbar-ledger/internal/apperr"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

const productColumns = `id, name, type, price, currency, age_restricted, created_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p   model.Product
		typ string
	)
	if err := row.Scan(&p.ID, &p.Name, &typ, &p.Price, &p.Currency, &p.AgeRestricted, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Type = model.ProductType(typ)
	return &p, nil
}

// CreateProduct добавляет товар в каталог.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	created, err := scanProduct(r.pool.QueryRow(ctx,
		`INSERT INTO products (name, type, price, currency, age_restricted)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+productColumns,
		p.Name, string(p.Type), p.Price, p.Currency, p.AgeRestricted,
	))
	if err != nil {
		return nil, wrap("insert product", err)
	}
	return created, nil
}

// UpdateProduct заменяет данные товара. Заказы хранят свою копию цены и не меняются.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	updated, err := scanProduct(r.pool.QueryRow(ctx,
		`UPDATE products
		    SET name = $2, type = $3, price = $4, currency = $5, age_restricted = $6
		  WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+productColumns,
		p.ID, p.Name, string(p.Type), p.Price, p.Currency, p.AgeRestricted,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.ProductNotFoundError{ProductID: p.ID}
		}
		return nil, wrap("update product", err)
	}
	return updated, nil
}

// DeleteProduct мягко удаляет товар. Позиции оформленных заказов хранят свою
// копию цены и продолжают ссылаться на строку товара.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return wrap("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return &apperr.ProductNotFoundError{ProductID: id}
	}
	return nil
}

// GetProduct возвращает товар по идентификатору. Удалённый товар не находится.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.ProductNotFoundError{ProductID: id}
		}
		return nil, wrap("get product", err)
	}
	return p, nil
}

// ListProducts возвращает каталог, ограниченный limit позициями, если limit > 0.
func (r *PostgresRepository) ListProducts(ctx context.Context, limit int) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE deleted_at IS NULL ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("select products", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("rows error", err)
	}
	return res, nil
}
