package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/model"
	"github.com/mmeshcher/drinkbar-ledger/internal/validation"
)

// DefaultProductsLimit ограничивает размер выдачи каталога.
const DefaultProductsLimit = 500

// ListProducts возвращает товары каталога.
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListProducts(ctx, DefaultProductsLimit)
}

// GetProduct возвращает товар через источник цен.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.oracle.GetProduct(ctx, id)
}

// CreateProduct добавляет товар в каталог.
func (s *Service) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	if err := validation.Product(p); err != nil {
		return nil, err
	}
	return s.repo.CreateProduct(ctx, p)
}

// UpdateProduct изменяет товар. Уже оформленные заказы сохраняют прежнюю цену.
func (s *Service) UpdateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	if err := validation.Product(p); err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, p.ID)
	return updated, nil
}

// DeleteProduct удаляет товар, если на него не ссылается ни один заказ.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	inv, ok := s.oracle.(invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, id); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err), zap.Int64("productID", id))
	}
}
