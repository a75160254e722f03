package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"github.com/mmeshcher/drinkbar-ledger/internal/apperr"
)

// Claims поля токена, используемые сервисом.
type Claims struct {
	jwt.RegisteredClaims
	Scope             string `json:"scope"`
	PreferredUsername string `json:"preferred_username,omitempty"`
}

// JWTResolver проверяет HMAC-подписанные токены локально.
type JWTResolver struct {
	secret []byte
}

// NewJWTResolver создаёт резолвер с общим секретом.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

// Resolve проверяет подпись и срок действия токена.
func (r *JWTResolver) Resolve(_ context.Context, token string) (*Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, fmt.Errorf("%w: token expired", apperr.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", apperr.ErrUnauthenticated)
	}

	return &Principal{
		Subject:  claims.Subject,
		Username: claims.PreferredUsername,
		Scopes:   ParseScopes(claims.Scope),
	}, nil
}

// Sign выпускает токен. Используется в тестах и для сервисных токенов киоска.
func (r *JWTResolver) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}
