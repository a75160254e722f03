package handler

import (
	"net/http"
	"strconv"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

type createPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type processPaymentRequest struct {
	Note *string `json:"note"`
}

// CreatePayment регистрирует пополнение счёта текущего аккаунта.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeStatus(w, http.StatusBadRequest, "bad_request")
		return
	}

	p, err := h.service.CreatePayment(r.Context(), acc.ID, req.Amount)
	if err != nil {
		h.writeError(w, err, zap.Int64("accountID", acc.ID))
		return
	}
	h.writeJSON(w, http.StatusCreated, newPaymentView(*p, h.service.Currency().Code))
}

// GetPayments возвращает платежи текущего аккаунта.
func (h *Handler) GetPayments(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), acc.ID)
	if err != nil {
		h.writeError(w, err, zap.Int64("accountID", acc.ID))
		return
	}
	h.writePayments(w, payments)
}

// AdminGetPayments возвращает платежи всех аккаунтов.
func (h *Handler) AdminGetPayments(w http.ResponseWriter, r *http.Request) {
	pending, _ := strconv.ParseBool(r.URL.Query().Get("pending"))

	payments, err := h.service.ListAllPayments(r.Context(), pending)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writePayments(w, payments)
}

// AdminConfirmPayment подтверждает платёж.
func (h *Handler) AdminConfirmPayment(w http.ResponseWriter, r *http.Request) {
	h.processPayment(w, r, true)
}

// AdminDeclinePayment отклоняет платёж.
func (h *Handler) AdminDeclinePayment(w http.ResponseWriter, r *http.Request) {
	h.processPayment(w, r, false)
}

func (h *Handler) processPayment(w http.ResponseWriter, r *http.Request, confirmed bool) {
	id, ok := pathID(r)
	if !ok {
		h.writeStatus(w, http.StatusBadRequest, "bad_request")
		return
	}

	var req processPaymentRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		h.writeStatus(w, http.StatusBadRequest, "bad_request")
		return
	}

	p, err := h.service.ProcessPayment(r.Context(), id, confirmed, mo.PointerToOption(req.Note))
	if err != nil {
		h.writeError(w, err, zap.Int64("paymentID", id))
		return
	}
	h.writeJSON(w, http.StatusOK, newPaymentView(*p, h.service.Currency().Code))
}

func (h *Handler) writePayments(w http.ResponseWriter, payments []model.Payment) {
	if len(payments) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	cur := h.service.Currency().Code
	h.writeJSON(w, http.StatusOK, lo.Map(payments, func(p model.Payment, _ int) paymentView {
		return newPaymentView(p, cur)
	}))
}
