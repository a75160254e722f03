// Package middleware содержит HTTP middleware сервиса учёта заказов.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/apperr"
	"github.com/mmeshcher/drinkbar-ledger/internal/identity"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

const bearerPrefix = "Bearer "

// AuthMiddleware проверяет bearer-токен через провайдера идентификации.
type AuthMiddleware struct {
	resolver identity.Resolver
	logger   *zap.Logger
}

// NewAuthMiddleware создаёт AuthMiddleware поверх указанного резолвера.
func NewAuthMiddleware(resolver identity.Resolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		logger:   logger,
	}
}

// Middleware разрешает токен и добавляет субъекта в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		p, err := a.resolver.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, apperr.ErrUpstreamUnavailable) {
				a.logger.Warn("identity provider unavailable", zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, "upstream_unavailable", "identity provider unavailable")
				return
			}
			writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
	})
}

// RequireScope пропускает запрос, если субъекту выдано хотя бы одно из прав.
func RequireScope(scopes ...identity.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := identity.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "missing principal")
				return
			}
			if !p.HasAny(scopes...) {
				writeError(w, http.StatusForbidden, "forbidden", "missing required scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccountProvider создаёт или возвращает аккаунт субъекта.
type AccountProvider interface {
	EnsureAccount(ctx context.Context, subject string) (*model.Account, error)
}

type accountKey struct{}

// Account обеспечивает наличие аккаунта субъекта и кладёт его в контекст запроса.
func Account(provider AccountProvider, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := identity.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "missing principal")
				return
			}

			acc, err := provider.EnsureAccount(r.Context(), p.Subject)
			if err != nil {
				if errors.Is(err, apperr.ErrUpstreamUnavailable) {
					logger.Warn("ensure account: storage unavailable", zap.Error(err))
					writeError(w, http.StatusServiceUnavailable, "upstream_unavailable", "storage unavailable")
					return
				}
				logger.Error("ensure account error", zap.Error(err), zap.String("subject", p.Subject))
				writeError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acc)))
		})
	}
}

// AccountFromContext извлекает аккаунт из контекста запроса.
func AccountFromContext(ctx context.Context) (*model.Account, bool) {
	acc, ok := ctx.Value(accountKey{}).(*model.Account)
	return acc, ok && acc != nil
}

// WithAccount кладёт аккаунт в контекст. Используется в тестах обработчиков.
func WithAccount(ctx context.Context, acc *model.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, acc)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
