// Package model содержит доменные сущности сервиса учёта заказов.
package model

import (
	"time"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"
)

// Account связывает внешнего субъекта аутентификации с лицевым счётом.
type Account struct {
	ID               int64
	Subject          string
	AgeRestricted    bool
	OverdraftCeiling decimal.Decimal
	CreatedAt        time.Time
}

// AccountUpdate описывает изменение флагов аккаунта администратором.
type AccountUpdate struct {
	AgeRestricted    mo.Option[bool]
	OverdraftCeiling mo.Option[decimal.Decimal]
}

// ProductType описывает категорию товара.
type ProductType string

const (
	ProductTypeDrink ProductType = "drink"
	ProductTypeSnack ProductType = "snack"
	ProductTypeFood  ProductType = "food"
)

// Valid сообщает, является ли тип товара известным.
func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeDrink, ProductTypeSnack, ProductTypeFood:
		return true
	}
	return false
}

// Product описывает позицию каталога.
type Product struct {
	ID            int64
	Name          string
	Type          ProductType
	Price         decimal.Decimal
	Currency      string
	AgeRestricted bool
	CreatedAt     time.Time
}

// OrderItemRequest описывает запрошенную позицию заказа.
type OrderItemRequest struct {
	ProductID int64
	Quantity  int
}

// OrderItem описывает позицию заказа с ценой, зафиксированной при оформлении.
type OrderItem struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Currency    string
}

// Total возвращает стоимость позиции.
func (i OrderItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order описывает оформленный заказ. Состав заказа не меняется после оформления.
type Order struct {
	ID        int64
	AccountID int64
	CreatedAt time.Time
	State     OrderState
	Items     []OrderItem
}

// Total возвращает сумму заказа по зафиксированным ценам.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Total())
	}
	return total
}

// Deleted сообщает, удалён ли заказ.
func (o Order) Deleted() bool {
	_, ok := o.State.(OrderDeleted)
	return ok
}

// Payment описывает пополнение счёта.
type Payment struct {
	ID        int64
	AccountID int64
	Amount    decimal.Decimal
	CreatedAt time.Time
	State     PaymentState
}

// Balance содержит текущий баланс аккаунта и лимит овердрафта.
type Balance struct {
	Current   decimal.Decimal
	Ceiling   decimal.Decimal
	Available decimal.Decimal
	Currency  string
}
