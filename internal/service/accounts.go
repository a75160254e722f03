package service

import (
	"context"

	"github.com/mmeshcher/drinkbar-ledger/internal/model"
	"github.com/mmeshcher/drinkbar-ledger/internal/validation"
)

// EnsureAccount возвращает аккаунт субъекта, создавая его при первом обращении
// с лимитом овердрафта по умолчанию.
func (s *Service) EnsureAccount(ctx context.Context, subject string) (*model.Account, error) {
	return s.repo.EnsureAccount(ctx, subject, s.ceiling)
}

// ListAccounts возвращает все аккаунты.
func (s *Service) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return s.repo.ListAccounts(ctx)
}

// UpdateAccount меняет возрастное ограничение и лимит овердрафта аккаунта.
func (s *Service) UpdateAccount(ctx context.Context, id int64, upd model.AccountUpdate) (*model.Account, error) {
	if ceiling, ok := upd.OverdraftCeiling.Get(); ok {
		if err := validation.NonNegativeAmount("overdraftCeiling", ceiling); err != nil {
			return nil, err
		}
	}
	if upd.AgeRestricted.IsAbsent() && upd.OverdraftCeiling.IsAbsent() {
		return s.repo.GetAccount(ctx, id)
	}

	acc, err := s.repo.UpdateAccount(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.logger.Info("account updated",
		zapAccount(acc.ID),
		zapDecimal("overdraftCeiling", acc.OverdraftCeiling),
	)
	return acc, nil
}
