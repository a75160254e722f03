package model

import (
	"time"

	"github.com/samber/mo"
)

// OrderState закрытый набор состояний заказа: OrderActive или OrderDeleted.
type OrderState interface {
	orderState()
}

// OrderActive заказ учитывается в балансе.
type OrderActive struct{}

// OrderDeleted заказ мягко удалён и в балансе не учитывается.
type OrderDeleted struct {
	At time.Time
}

func (OrderActive) orderState()  {}
func (OrderDeleted) orderState() {}

// OrderStateFrom строит состояние заказа из nullable-колонки deleted_at.
func OrderStateFrom(deletedAt *time.Time) OrderState {
	if deletedAt == nil {
		return OrderActive{}
	}
	return OrderDeleted{At: *deletedAt}
}

// PaymentStatus текстовое представление состояния платежа.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusDeclined  PaymentStatus = "declined"
)

// PaymentState закрытый набор состояний платежа.
// Переходы: PaymentPending -> PaymentConfirmed | PaymentDeclined, оба конечные.
type PaymentState interface {
	Status() PaymentStatus
}

// PaymentPending платёж ожидает решения администратора.
type PaymentPending struct{}

// PaymentConfirmed платёж подтверждён и увеличивает баланс.
type PaymentConfirmed struct {
	At   time.Time
	Note mo.Option[string]
}

// PaymentDeclined платёж отклонён.
type PaymentDeclined struct {
	At   time.Time
	Note mo.Option[string]
}

func (PaymentPending) Status() PaymentStatus   { return PaymentStatusPending }
func (PaymentConfirmed) Status() PaymentStatus { return PaymentStatusConfirmed }
func (PaymentDeclined) Status() PaymentStatus  { return PaymentStatusDeclined }

// PaymentStateFrom строит состояние платежа из колонок processed_at, confirmed и note.
func PaymentStateFrom(processedAt *time.Time, confirmed bool, note *string) PaymentState {
	if processedAt == nil {
		return PaymentPending{}
	}
	n := mo.PointerToOption(note)
	if confirmed {
		return PaymentConfirmed{At: *processedAt, Note: n}
	}
	return PaymentDeclined{At: *processedAt, Note: n}
}

// Counted сообщает, учитывается ли платёж в балансе.
func Counted(s PaymentState) bool {
	_, ok := s.(PaymentConfirmed)
	return ok
}
