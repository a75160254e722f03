package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/drinkbar-ledger/internal/apperr"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

func TestOrderItems(t *testing.T) {
	tests := []struct {
		name    string
		items   []model.OrderItemRequest
		wantErr bool
	}{
		{name: "single item", items: []model.OrderItemRequest{{ProductID: 1, Quantity: 1}}},
		{name: "duplicate products allowed", items: []model.OrderItemRequest{{ProductID: 1, Quantity: 1}, {ProductID: 1, Quantity: 3}}},
		{name: "empty", items: nil, wantErr: true},
		{name: "zero quantity", items: []model.OrderItemRequest{{ProductID: 1, Quantity: 0}}, wantErr: true},
		{name: "negative quantity", items: []model.OrderItemRequest{{ProductID: 1, Quantity: -2}}, wantErr: true},
		{name: "bad product id", items: []model.OrderItemRequest{{ProductID: 0, Quantity: 1}}, wantErr: true},
		{name: "too many", items: make([]model.OrderItemRequest, MaxOrderItems+1), wantErr: true},
		{name: "max quantity", items: []model.OrderItemRequest{{ProductID: 1, Quantity: MaxQuantity}}},
		{name: "quantity above column range", items: []model.OrderItemRequest{{ProductID: 1, Quantity: MaxQuantity + 1}}, wantErr: true},
		{name: "huge quantity", items: []model.OrderItemRequest{{ProductID: 1, Quantity: 3000000000}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := OrderItems(tt.items)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAmounts(t *testing.T) {
	d := decimal.RequireFromString

	assert.NoError(t, PositiveAmount("amount", d("0.01")))
	assert.NoError(t, PositiveAmount("amount", d("20")))
	assert.ErrorIs(t, PositiveAmount("amount", d("0")), apperr.ErrValidation)
	assert.ErrorIs(t, PositiveAmount("amount", d("-5")), apperr.ErrValidation)
	assert.ErrorIs(t, PositiveAmount("amount", d("1.005")), apperr.ErrValidation)
	assert.NoError(t, PositiveAmount("amount", d("9999999999.99")))
	assert.ErrorIs(t, PositiveAmount("amount", d("10000000000")), apperr.ErrValidation)
	assert.ErrorIs(t, PositiveAmount("amount", d("1e12")), apperr.ErrValidation)

	assert.NoError(t, NonNegativeAmount("price", d("0")))
	assert.ErrorIs(t, NonNegativeAmount("price", d("-0.01")), apperr.ErrValidation)
	assert.ErrorIs(t, NonNegativeAmount("ceiling", d("12345678901.00")), apperr.ErrValidation)
}

func TestCurrency(t *testing.T) {
	assert.NoError(t, Currency("EUR"))
	assert.Error(t, Currency("eur"))
	assert.Error(t, Currency("EURO"))
	assert.Error(t, Currency("E1R"))
}

func TestProduct(t *testing.T) {
	ok := model.Product{Name: "Club-Mate", Type: model.ProductTypeDrink, Price: decimal.RequireFromString("1.50"), Currency: "EUR"}
	assert.NoError(t, Product(ok))

	bad := ok
	bad.Type = "gadget"
	assert.ErrorIs(t, Product(bad), apperr.ErrValidation)

	bad = ok
	bad.Name = "  "
	assert.ErrorIs(t, Product(bad), apperr.ErrValidation)
}
