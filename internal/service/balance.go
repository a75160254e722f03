package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

// GetBalance возвращает баланс аккаунта: подтверждённые платежи минус
// неудалённые заказы, а также остаток до лимита овердрафта.
func (s *Service) GetBalance(ctx context.Context, account model.Account) (*model.Balance, error) {
	current, err := s.repo.GetBalance(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return &model.Balance{
		Current:   current,
		Ceiling:   account.OverdraftCeiling,
		Available: current.Add(account.OverdraftCeiling),
		Currency:  s.currency.Code,
	}, nil
}

func zapAccount(id int64) zap.Field {
	return zap.Int64("accountID", id)
}

func zapDecimal(key string, d decimal.Decimal) zap.Field {
	return zap.String(key, d.StringFixed(2))
}
