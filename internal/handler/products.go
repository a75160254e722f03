package handler

import (
	"net/http"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

type productRequest struct {
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	AgeRestricted bool            `json:"ageRestricted"`
}

func (h *Handler) productFromRequest(req productRequest) model.Product {
	cur := req.Currency
	if cur == "" {
		cur = h.service.Currency().Code
	}
	return model.Product{
		Name:          req.Name,
		Type:          model.ProductType(req.Type),
		Price:         req.Price,
		Currency:      cur,
		AgeRestricted: req.AgeRestricted,
	}
}

// GetProducts возвращает каталог.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, lo.Map(products, func(p model.Product, _ int) productView {
		return newProductView(p)
	}))
}

// GetProduct возвращает товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeStatus(w, http.StatusBadRequest, "bad_request")
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, err, zap.Int64("productID", id))
		return
	}
	h.writeJSON(w, http.StatusOK, newProductView(*p))
}

// AdminCreateProduct добавляет товар в каталог.
func (h *Handler) AdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeStatus(w, http.StatusBadRequest, "bad_request")
		return
	}

	p, err := h.service.CreateProduct(r.Context(), h.productFromRequest(req))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newProductView(*p))
}

// AdminUpdateProduct изменяет товар.
func (h *Handler) AdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeStatus(w, http.StatusBadRequest, "bad_request")
		return
	}

	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeStatus(w, http.StatusBadRequest, "bad_request")
		return
	}

	product := h.productFromRequest(req)
	product.ID = id

	p, err := h.service.UpdateProduct(r.Context(), product)
	if err != nil {
		h.writeError(w, err, zap.Int64("productID", id))
		return
	}
	h.writeJSON(w, http.StatusOK, newProductView(*p))
}

// AdminDeleteProduct удаляет товар.
func (h *Handler) AdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeStatus(w, http.StatusBadRequest, "bad_request")
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, err, zap.Int64("productID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
