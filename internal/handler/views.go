package handler

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/drinkbar-ledger/internal/identity"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

type moneyView struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func money(d decimal.Decimal, currency string) *moneyView {
	return &moneyView{Amount: d.StringFixed(2), Currency: currency}
}

type currencyView struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

type balanceView struct {
	Balance   *moneyView `json:"balance"`
	Ceiling   *moneyView `json:"overdraftCeiling"`
	Available *moneyView `json:"available"`
}

func newBalanceView(b *model.Balance) balanceView {
	return balanceView{
		Balance:   money(b.Current, b.Currency),
		Ceiling:   money(b.Ceiling, b.Currency),
		Available: money(b.Available, b.Currency),
	}
}

type accountView struct {
	ID               int64      `json:"id"`
	Subject          string     `json:"subject"`
	AgeRestricted    bool       `json:"ageRestricted"`
	OverdraftCeiling *moneyView `json:"overdraftCeiling"`
	CreatedAt        string     `json:"createdAt"`
	Scopes           []string   `json:"scopes,omitempty"`
}

func newAccountView(a model.Account, currency string) accountView {
	return accountView{
		ID:               a.ID,
		Subject:          a.Subject,
		AgeRestricted:    a.AgeRestricted,
		OverdraftCeiling: money(a.OverdraftCeiling, currency),
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
	}
}

func scopeStrings(p *identity.Principal) []string {
	return lo.Map(p.Scopes, func(s identity.Scope, _ int) string { return string(s) })
}

type productView struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Price         *moneyView `json:"price"`
	AgeRestricted bool       `json:"ageRestricted"`
	CreatedAt     string     `json:"createdAt"`
}

func newProductView(p model.Product) productView {
	return productView{
		ID:            p.ID,
		Name:          p.Name,
		Type:          string(p.Type),
		Price:         money(p.Price, p.Currency),
		AgeRestricted: p.AgeRestricted,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

type orderItemView struct {
	ProductID int64      `json:"productId"`
	Name      string     `json:"name"`
	Count     int        `json:"count"`
	UnitPrice *moneyView `json:"unitPrice"`
	Total     *moneyView `json:"total"`
}

type orderView struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"accountId"`
	CreatedAt string          `json:"createdAt"`
	DeletedAt *string         `json:"deletedAt,omitempty"`
	Items     []orderItemView `json:"items"`
	Total     *moneyView      `json:"total"`
}

func newOrderView(o model.Order, currency string) orderView {
	v := orderView{
		ID:        o.ID,
		AccountID: o.AccountID,
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
		Total:     money(o.Total(), currency),
		Items: lo.Map(o.Items, func(it model.OrderItem, _ int) orderItemView {
			return orderItemView{
				ProductID: it.ProductID,
				Name:      it.ProductName,
				Count:     it.Quantity,
				UnitPrice: money(it.UnitPrice, it.Currency),
				Total:     money(it.Total(), it.Currency),
			}
		}),
	}
	switch s := o.State.(type) {
	case model.OrderDeleted:
		v.DeletedAt = lo.ToPtr(s.At.Format(time.RFC3339))
	case model.OrderActive:
	}
	return v
}

type paymentView struct {
	ID          int64      `json:"id"`
	AccountID   int64      `json:"accountId"`
	Amount      *moneyView `json:"amount"`
	Status      string     `json:"status"`
	CreatedAt   string     `json:"createdAt"`
	ProcessedAt *string    `json:"processedAt,omitempty"`
	Note        *string    `json:"note,omitempty"`
}

func newPaymentView(p model.Payment, currency string) paymentView {
	v := paymentView{
		ID:        p.ID,
		AccountID: p.AccountID,
		Amount:    money(p.Amount, currency),
		Status:    string(p.State.Status()),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
	switch s := p.State.(type) {
	case model.PaymentConfirmed:
		v.ProcessedAt = lo.ToPtr(s.At.Format(time.RFC3339))
		v.Note = s.Note.ToPointer()
	case model.PaymentDeclined:
		v.ProcessedAt = lo.ToPtr(s.At.Format(time.RFC3339))
		v.Note = s.Note.ToPointer()
	case model.PaymentPending:
	}
	return v
}
