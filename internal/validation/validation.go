// Package validation содержит функции валидации входных данных.
package validation

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/drinkbar-ledger/internal/apperr"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

// MaxOrderItems ограничивает число позиций в одном заказе.
const MaxOrderItems = 100

// MaxQuantity ограничивает количество в позиции размером колонки order_items.quantity.
const MaxQuantity = math.MaxInt32

const moneyPlaces = 2

// maxMoney наибольшая сумма, помещающаяся в NUMERIC(12,2).
var maxMoney = decimal.RequireFromString("9999999999.99")

// OrderItems проверяет состав заказа: непустой список, положительные количества и идентификаторы.
func OrderItems(items []model.OrderItemRequest) error {
	if len(items) == 0 {
		return apperr.Invalid("items", "order must contain at least one item")
	}
	if len(items) > MaxOrderItems {
		return apperr.Invalid("items", fmt.Sprintf("order must contain at most %d items", MaxOrderItems))
	}
	for i, it := range items {
		if it.ProductID <= 0 {
			return apperr.Invalid(fmt.Sprintf("items[%d].productId", i), "must be positive")
		}
		if it.Quantity <= 0 {
			return apperr.Invalid(fmt.Sprintf("items[%d].count", i), "must be greater than zero")
		}
		if it.Quantity > MaxQuantity {
			return apperr.Invalid(fmt.Sprintf("items[%d].count", i), fmt.Sprintf("must be at most %d", MaxQuantity))
		}
	}
	return nil
}

// PositiveAmount проверяет сумму платежа: больше нуля и не больше двух знаков после запятой.
func PositiveAmount(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return apperr.Invalid(field, "must be greater than zero")
	}
	return money(field, d)
}

// NonNegativeAmount проверяет цену или лимит: не меньше нуля и не больше двух знаков после запятой.
func NonNegativeAmount(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return apperr.Invalid(field, "must not be negative")
	}
	return money(field, d)
}

func money(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(moneyPlaces)) {
		return apperr.Invalid(field, fmt.Sprintf("must have at most %d decimal places", moneyPlaces))
	}
	if d.GreaterThan(maxMoney) {
		return apperr.Invalid(field, "must be at most "+maxMoney.StringFixed(moneyPlaces))
	}
	return nil
}

// Currency проверяет трёхбуквенный код валюты в верхнем регистре.
func Currency(code string) error {
	if len(code) != 3 {
		return apperr.Invalid("currency", "must be a 3-letter code")
	}
	for _, ch := range code {
		if !unicode.IsUpper(ch) || ch > unicode.MaxASCII {
			return apperr.Invalid("currency", "must be a 3-letter upper-case code")
		}
	}
	return nil
}

// Product проверяет карточку товара перед сохранением.
func Product(p model.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Invalid("name", "must not be empty")
	}
	if !p.Type.Valid() {
		return apperr.Invalid("type", fmt.Sprintf("unknown product type %q", p.Type))
	}
	if err := NonNegativeAmount("price", p.Price); err != nil {
		return err
	}
	return Currency(p.Currency)
}
