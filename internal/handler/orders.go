package handler

import (
	"net/http"
	"strconv"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/identity"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

type orderItemRequest struct {
	ProductID int64 `json:"productId"`
	Count     int   `json:"count"`
}

type createOrderRequest struct {
	Items []orderItemRequest `json:"items"`
}

// CreateOrder оформляет заказ текущего аккаунта.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeStatus(w, http.StatusBadRequest, "bad_request")
		return
	}

	items := lo.Map(req.Items, func(it orderItemRequest, _ int) model.OrderItemRequest {
		return model.OrderItemRequest{ProductID: it.ProductID, Quantity: it.Count}
	})

	order, err := h.service.CreateOrder(r.Context(), *acc, items)
	if err != nil {
		h.writeError(w, err, zap.Int64("accountID", acc.ID))
		return
	}

	h.writeJSON(w, http.StatusCreated, newOrderView(*order, h.service.Currency().Code))
}

// GetOrders возвращает неудалённые заказы текущего аккаунта.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(r.Context(), acc.ID, false)
	if err != nil {
		h.writeError(w, err, zap.Int64("accountID", acc.ID))
		return
	}
	h.writeOrders(w, orders)
}

// GetOrder возвращает заказ текущего аккаунта. Администратор видит любой заказ.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.writeStatus(w, http.StatusBadRequest, "bad_request")
		return
	}

	p, _ := identity.FromContext(r.Context())
	admin := p != nil && p.Has(identity.ScopeAdmin)

	order, err := h.service.GetOrder(r.Context(), id, *acc, admin)
	if err != nil {
		h.writeError(w, err, zap.Int64("orderID", id))
		return
	}
	h.writeJSON(w, http.StatusOK, newOrderView(*order, h.service.Currency().Code))
}

// AdminGetOrders возвращает заказы всех аккаунтов.
func (h *Handler) AdminGetOrders(w http.ResponseWriter, r *http.Request) {
	includeDeleted, _ := strconv.ParseBool(r.URL.Query().Get("includeDeleted"))

	orders, err := h.service.ListAllOrders(r.Context(), includeDeleted)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOrders(w, orders)
}

// AdminDeleteOrder мягко удаляет заказ.
func (h *Handler) AdminDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeStatus(w, http.StatusBadRequest, "bad_request")
		return
	}

	order, err := h.service.DeleteOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, err, zap.Int64("orderID", id))
		return
	}
	h.writeJSON(w, http.StatusOK, newOrderView(*order, h.service.Currency().Code))
}

func (h *Handler) writeOrders(w http.ResponseWriter, orders []model.Order) {
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	cur := h.service.Currency().Code
	h.writeJSON(w, http.StatusOK, lo.Map(orders, func(o model.Order, _ int) orderView {
		return newOrderView(o, cur)
	}))
}
