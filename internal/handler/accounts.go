package handler

import (
	"net/http"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/identity"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

// GetMe возвращает аккаунт и права текущего субъекта.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	v := newAccountView(*acc, h.service.Currency().Code)
	if p, ok := identity.FromContext(r.Context()); ok {
		v.Scopes = scopeStrings(p)
	}
	h.writeJSON(w, http.StatusOK, v)
}

// GetBalance возвращает баланс текущего аккаунта.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	b, err := h.service.GetBalance(r.Context(), *acc)
	if err != nil {
		h.writeError(w, err, zap.Int64("accountID", acc.ID))
		return
	}
	h.writeJSON(w, http.StatusOK, newBalanceView(b))
}

// AdminGetAccounts возвращает все аккаунты.
func (h *Handler) AdminGetAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	cur := h.service.Currency().Code
	h.writeJSON(w, http.StatusOK, lo.Map(accounts, func(a model.Account, _ int) accountView {
		return newAccountView(a, cur)
	}))
}

type updateAccountRequest struct {
	AgeRestricted    *bool            `json:"ageRestricted"`
	OverdraftCeiling *decimal.Decimal `json:"overdraftCeiling"`
}

// AdminUpdateAccount меняет возрастное ограничение и лимит овердрафта аккаунта.
func (h *Handler) AdminUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeStatus(w, http.StatusBadRequest, "bad_request")
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeStatus(w, http.StatusBadRequest, "bad_request")
		return
	}

	acc, err := h.service.UpdateAccount(r.Context(), id, model.AccountUpdate{
		AgeRestricted:    mo.PointerToOption(req.AgeRestricted),
		OverdraftCeiling: mo.PointerToOption(req.OverdraftCeiling),
	})
	if err != nil {
		h.writeError(w, err, zap.Int64("accountID", id))
		return
	}
	h.writeJSON(w, http.StatusOK, newAccountView(*acc, h.service.Currency().Code))
}
