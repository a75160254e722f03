// Package handler содержит HTTP-обработчики API сервиса учёта заказов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/apperr"
	"github.com/mmeshcher/drinkbar-ledger/internal/metrics"
	"github.com/mmeshcher/drinkbar-ledger/internal/middleware"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
	"github.com/mmeshcher/drinkbar-ledger/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error
	Currency() service.Currency

	EnsureAccount(ctx context.Context, subject string) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	UpdateAccount(ctx context.Context, id int64, upd model.AccountUpdate) (*model.Account, error)
	GetBalance(ctx context.Context, account model.Account) (*model.Balance, error)

	CreateOrder(ctx context.Context, account model.Account, items []model.OrderItemRequest) (*model.Order, error)
	ListOrders(ctx context.Context, accountID int64, includeDeleted bool) ([]model.Order, error)
	ListAllOrders(ctx context.Context, includeDeleted bool) ([]model.Order, error)
	GetOrder(ctx context.Context, id int64, requester model.Account, admin bool) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) (*model.Order, error)

	CreatePayment(ctx context.Context, accountID int64, amount decimal.Decimal) (*model.Payment, error)
	ListPayments(ctx context.Context, accountID int64) ([]model.Payment, error)
	ListAllPayments(ctx context.Context, pendingOnly bool) ([]model.Payment, error)
	ProcessPayment(ctx context.Context, id int64, confirmed bool, note mo.Option[string]) (*model.Payment, error)

	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// Handler реализует HTTP-обработчики API сервиса учёта заказов.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	metrics        *metrics.Metrics
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, m *metrics.Metrics) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		metrics:        m,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`

	ProductID  int64   `json:"productId,omitempty"`
	ProductIDs []int64 `json:"productIds,omitempty"`

	Balance   *moneyView `json:"balance,omitempty"`
	Total     *moneyView `json:"total,omitempty"`
	Ceiling   *moneyView `json:"ceiling,omitempty"`
	Shortfall *moneyView `json:"shortfall,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}

func (h *Handler) writeStatus(w http.ResponseWriter, status int, code string) {
	h.writeJSON(w, status, errorResponse{Error: code, Message: http.StatusText(status)})
}

// writeError переводит ошибку сервиса в HTTP-ответ. Ожидаемые отказы (4xx)
// не логируются как ошибки.
func (h *Handler) writeError(w http.ResponseWriter, err error, fields ...zap.Field) {
	var (
		funds      *apperr.InsufficientFundsError
		restricted *apperr.AgeRestrictedError
		missing    *apperr.ProductNotFoundError
		invalid    *apperr.ValidationError
	)

	switch {
	case errors.As(err, &funds):
		cur := h.service.Currency().Code
		h.writeJSON(w, http.StatusPaymentRequired, errorResponse{
			Error:     "insufficient_funds",
			Message:   err.Error(),
			Balance:   money(funds.Balance, cur),
			Total:     money(funds.Total, cur),
			Ceiling:   money(funds.Ceiling, cur),
			Shortfall: money(funds.Shortfall(), cur),
		})
	case errors.As(err, &restricted):
		h.writeJSON(w, http.StatusForbidden, errorResponse{
			Error:      "age_restricted",
			Message:    err.Error(),
			ProductIDs: restricted.ProductIDs,
		})
	case errors.As(err, &missing):
		h.writeJSON(w, http.StatusNotFound, errorResponse{
			Error:     "product_not_found",
			Message:   err.Error(),
			ProductID: missing.ProductID,
		})
	case errors.As(err, &invalid):
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "validation",
			Message: invalid.Reason,
			Field:   invalid.Field,
		})
	case errors.Is(err, apperr.ErrNotFound):
		h.writeStatus(w, http.StatusNotFound, "not_found")
	case errors.Is(err, apperr.ErrAlreadyProcessed):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: "already_processed", Message: err.Error()})
	case errors.Is(err, apperr.ErrAlreadyDeleted):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: "already_deleted", Message: err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		h.writeStatus(w, http.StatusConflict, "conflict")
	case errors.Is(err, apperr.ErrUpstreamUnavailable), errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("upstream unavailable", append(fields, zap.Error(err))...)
		h.writeStatus(w, http.StatusServiceUnavailable, "upstream_unavailable")
	default:
		h.logger.Error("request failed", append(fields, zap.Error(err))...)
		h.writeStatus(w, http.StatusInternalServerError, "internal")
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// decodeOptionalJSON допускает пустое тело запроса.
func decodeOptionalJSON(r *http.Request, v any) error {
	err := decodeJSON(r, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) account(w http.ResponseWriter, r *http.Request) (*model.Account, bool) {
	acc, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		h.writeStatus(w, http.StatusUnauthorized, "unauthenticated")
		return nil, false
	}
	return acc, true
}

// Health проверяет доступность хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetCurrency возвращает валюту учёта.
func (h *Handler) GetCurrency(w http.ResponseWriter, r *http.Request) {
	c := h.service.Currency()
	h.writeJSON(w, http.StatusOK, currencyView{Code: c.Code, Symbol: c.Symbol, Name: c.Name})
}
