package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/apperr"
	"github.com/mmeshcher/drinkbar-ledger/internal/metrics"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
	"github.com/mmeshcher/drinkbar-ledger/internal/validation"
)

// CreateOrder оформляет заказ аккаунта. Проверки выполняются в порядке:
// существование товаров, возрастное ограничение, достаточность средств.
// Заказ либо сохраняется целиком, либо не сохраняется вовсе.
func (s *Service) CreateOrder(ctx context.Context, account model.Account, reqs []model.OrderItemRequest) (*model.Order, error) {
	order, err := s.admit(ctx, account, reqs)
	outcome := admissionOutcome(err)
	s.metrics.OrderAdmissions.WithLabelValues(outcome).Inc()

	if err != nil {
		var funds *apperr.InsufficientFundsError
		if errors.As(err, &funds) {
			s.logger.Info("order rejected",
				zapAccount(account.ID),
				zap.String("reason", outcome),
				zapDecimal("balance", funds.Balance),
				zapDecimal("total", funds.Total),
				zapDecimal("ceiling", funds.Ceiling),
			)
		} else if outcome != metrics.OutcomeError {
			s.logger.Info("order rejected", zapAccount(account.ID), zap.String("reason", outcome), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("order admitted",
		zapAccount(account.ID),
		zap.Int64("orderID", order.ID),
		zapDecimal("total", order.Total()),
	)
	return order, nil
}

func (s *Service) admit(ctx context.Context, account model.Account, reqs []model.OrderItemRequest) (*model.Order, error) {
	if err := validation.OrderItems(reqs); err != nil {
		return nil, err
	}

	products, err := s.resolve(ctx, reqs)
	if err != nil {
		return nil, err
	}

	for i, r := range reqs {
		if p := products[r.ProductID]; p.Currency != s.currency.Code {
			return nil, apperr.Invalid(
				fmt.Sprintf("items[%d].productId", i),
				fmt.Sprintf("product %d is priced in %s, ledger currency is %s", p.ID, p.Currency, s.currency.Code),
			)
		}
	}

	restricted := lo.Uniq(lo.FilterMap(reqs, func(r model.OrderItemRequest, _ int) (int64, bool) {
		return r.ProductID, products[r.ProductID].AgeRestricted
	}))
	if account.AgeRestricted && len(restricted) > 0 {
		return nil, &apperr.AgeRestrictedError{ProductIDs: restricted}
	}

	items := lo.Map(reqs, func(r model.OrderItemRequest, _ int) model.OrderItem {
		p := products[r.ProductID]
		return model.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    r.Quantity,
			UnitPrice:   p.Price,
			Currency:    p.Currency,
		}
	})

	// флаг и лимит аккаунта перечитываются репозиторием под блокировкой
	return s.repo.AdmitOrder(ctx, account.ID, items, restricted)
}

// resolve запрашивает каждый товар заказа один раз, в порядке появления в заказе.
// Первый отсутствующий товар прерывает оформление.
func (s *Service) resolve(ctx context.Context, reqs []model.OrderItemRequest) (map[int64]*model.Product, error) {
	ids := lo.Uniq(lo.Map(reqs, func(r model.OrderItemRequest, _ int) int64 { return r.ProductID }))

	products := make(map[int64]*model.Product, len(ids))
	for _, id := range ids {
		p, err := s.oracle.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, &apperr.ProductNotFoundError{ProductID: id}
			}
			return nil, fmt.Errorf("resolve product %d: %w", id, err)
		}
		products[id] = p
	}
	return products, nil
}

func admissionOutcome(err error) string {
	var (
		notFound   *apperr.ProductNotFoundError
		restricted *apperr.AgeRestrictedError
		funds      *apperr.InsufficientFundsError
	)
	switch {
	case err == nil:
		return metrics.OutcomeAdmitted
	case errors.As(err, &notFound):
		return metrics.OutcomeProductNotFound
	case errors.As(err, &restricted):
		return metrics.OutcomeAgeRestricted
	case errors.As(err, &funds):
		return metrics.OutcomeInsufficientFunds
	case errors.Is(err, apperr.ErrValidation):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

// ListOrders возвращает заказы аккаунта, новые первыми.
func (s *Service) ListOrders(ctx context.Context, accountID int64, includeDeleted bool) ([]model.Order, error) {
	return s.repo.ListOrders(ctx, accountID, includeDeleted)
}

// ListAllOrders возвращает заказы всех аккаунтов.
func (s *Service) ListAllOrders(ctx context.Context, includeDeleted bool) ([]model.Order, error) {
	return s.repo.ListOrders(ctx, 0, includeDeleted)
}

// GetOrder возвращает заказ. Чужой заказ для не-администратора неотличим от отсутствующего.
func (s *Service) GetOrder(ctx context.Context, id int64, requester model.Account, admin bool) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && o.AccountID != requester.ID {
		return nil, fmt.Errorf("order %d: %w", id, apperr.ErrNotFound)
	}
	return o, nil
}

// DeleteOrder мягко удаляет заказ, возвращая его сумму на баланс владельца.
func (s *Service) DeleteOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := s.repo.DeleteOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.OrderDeletions.Inc()
	s.logger.Info("order deleted",
		zap.Int64("orderID", o.ID),
		zapAccount(o.AccountID),
		zapDecimal("refunded", o.Total()),
	)
	return o, nil
}
