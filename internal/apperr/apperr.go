// Package apperr описывает классификацию ошибок сервиса учёта заказов.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Базовые виды ошибок. Конкретные ошибки оборачивают один из них,
// поэтому транспортный слой проверяет только вид через errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrValidation          = errors.New("validation failed")
	ErrPolicyDenied        = errors.New("policy denied")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUnauthenticated     = errors.New("unauthenticated")
)

var (
	// ErrAlreadyProcessed возвращается при повторной обработке платежа.
	ErrAlreadyProcessed = fmt.Errorf("%w: payment already processed", ErrConflict)
	// ErrAlreadyDeleted возвращается при повторном удалении заказа.
	ErrAlreadyDeleted = fmt.Errorf("%w: order already deleted", ErrConflict)
)

// ProductNotFoundError сообщает, какой товар из заказа отсутствует в каталоге.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrNotFound }

// AgeRestrictedError перечисляет товары, которые запрещено заказывать аккаунту.
type AgeRestrictedError struct {
	ProductIDs []int64
}

func (e *AgeRestrictedError) Error() string {
	ids := make([]string, 0, len(e.ProductIDs))
	for _, id := range e.ProductIDs {
		ids = append(ids, fmt.Sprint(id))
	}
	return "age restricted products: " + strings.Join(ids, ", ")
}

func (e *AgeRestrictedError) Unwrap() error { return ErrPolicyDenied }

// InsufficientFundsError содержит данные, достаточные для понимания отказа:
// текущий баланс, сумму заказа и лимит овердрафта.
type InsufficientFundsError struct {
	Balance decimal.Decimal
	Total   decimal.Decimal
	Ceiling decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %s, order total %s, overdraft ceiling %s",
		e.Balance.StringFixed(2), e.Total.StringFixed(2), e.Ceiling.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrPolicyDenied }

// Shortfall возвращает сумму, которой не хватает для оформления заказа.
func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Total.Sub(e.Balance.Add(e.Ceiling))
}

// ValidationError описывает некорректное поле запроса.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid создаёт ValidationError для указанного поля.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Unavailable помечает ошибку как недоступность внешней зависимости.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}
