// Package identity разрешает bearer-токены в субъекта и набор прав.
package identity

import (
	"context"
	"strings"

	"github.com/samber/lo"
)

// Scope право доступа, выданное провайдером идентификации.
type Scope string

const (
	ScopeAdmin    Scope = "admin"
	ScopeCustomer Scope = "customer"
	ScopeKiosk    Scope = "kiosk"
)

// Principal аутентифицированный субъект.
type Principal struct {
	Subject  string
	Username string
	Scopes   []Scope
}

// Has сообщает, выдано ли субъекту право s.
func (p Principal) Has(s Scope) bool {
	return lo.Contains(p.Scopes, s)
}

// HasAny сообщает, выдано ли субъекту хотя бы одно из прав.
func (p Principal) HasAny(scopes ...Scope) bool {
	return lo.Some(p.Scopes, scopes)
}

// Resolver проверяет токен. Ошибки: apperr.ErrUnauthenticated для просроченного
// или некорректного токена, apperr.ErrUpstreamUnavailable при недоступности провайдера.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Principal, error)
}

// ParseScopes разбирает строку прав, разделённых пробелами.
func ParseScopes(raw string) []Scope {
	return lo.Map(strings.Fields(raw), func(s string, _ int) Scope { return Scope(s) })
}

type principalKey struct{}

// WithPrincipal сохраняет субъекта в контексте запроса.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext извлекает субъекта из контекста запроса.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
