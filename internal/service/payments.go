package service

import (
	"context"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/model"
	"github.com/mmeshcher/drinkbar-ledger/internal/validation"
)

// CreatePayment регистрирует пополнение в статусе pending. Баланс не меняется
// до подтверждения администратором.
func (s *Service) CreatePayment(ctx context.Context, accountID int64, amount decimal.Decimal) (*model.Payment, error) {
	if err := validation.PositiveAmount("amount", amount); err != nil {
		return nil, err
	}
	p, err := s.repo.CreatePayment(ctx, accountID, amount)
	if err != nil {
		return nil, err
	}
	s.metrics.PaymentTransitions.WithLabelValues(string(model.PaymentStatusPending)).Inc()
	return p, nil
}

// ListPayments возвращает платежи аккаунта, новые первыми.
func (s *Service) ListPayments(ctx context.Context, accountID int64) ([]model.Payment, error) {
	return s.repo.ListPayments(ctx, accountID, false)
}

// ListAllPayments возвращает платежи всех аккаунтов, при pendingOnly только необработанные.
func (s *Service) ListAllPayments(ctx context.Context, pendingOnly bool) ([]model.Payment, error) {
	return s.repo.ListPayments(ctx, 0, pendingOnly)
}

// ProcessPayment подтверждает или отклоняет платёж. Обработка выполняется ровно
// один раз: повторная попытка возвращает apperr.ErrAlreadyProcessed.
func (s *Service) ProcessPayment(ctx context.Context, id int64, confirmed bool, note mo.Option[string]) (*model.Payment, error) {
	p, err := s.repo.ProcessPayment(ctx, id, confirmed, note)
	if err != nil {
		return nil, err
	}

	status := p.State.Status()
	s.metrics.PaymentTransitions.WithLabelValues(string(status)).Inc()
	s.logger.Info("payment processed",
		zap.Int64("paymentID", p.ID),
		zapAccount(p.AccountID),
		zap.String("status", string(status)),
		zapDecimal("amount", p.Amount),
	)
	return p, nil
}
