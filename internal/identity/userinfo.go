package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/apperr"
)

type userInfo struct {
	Subject           string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	Scope             string `json:"scope"`
}

// UserInfoResolver разрешает токен через userinfo-эндпоинт OIDC-провайдера.
// Запросы идут через circuit breaker, чтобы при недоступности провайдера
// сервис быстро отвечал ошибкой вместо ожидания таймаутов.
type UserInfoResolver struct {
	client  *resty.Client
	url     string
	breaker *gobreaker.CircuitBreaker
}

// NewUserInfoResolver создаёт резолвер для указанного userinfo URL.
func NewUserInfoResolver(url string, logger *zap.Logger) *UserInfoResolver {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetHeader("Accept", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "identity-userinfo",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, apperr.ErrUnauthenticated)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &UserInfoResolver{
		client:  client,
		url:     url,
		breaker: breaker,
	}
}

// Resolve запрашивает данные субъекта у провайдера идентификации.
func (r *UserInfoResolver) Resolve(ctx context.Context, token string) (*Principal, error) {
	res, err := r.breaker.Execute(func() (any, error) {
		return r.fetch(ctx, token)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperr.Unavailable("identity provider", err)
		}
		return nil, err
	}
	return res.(*Principal), nil
}

func (r *UserInfoResolver) fetch(ctx context.Context, token string) (*Principal, error) {
	var info userInfo
	resp, err := r.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&info).
		Get(r.url)
	if err != nil {
		return nil, apperr.Unavailable("identity provider", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: rejected by identity provider", apperr.ErrUnauthenticated)
	default:
		return nil, apperr.Unavailable("identity provider", fmt.Errorf("unexpected status: %d", resp.StatusCode()))
	}

	if info.Subject == "" {
		return nil, fmt.Errorf("%w: userinfo has no subject", apperr.ErrUnauthenticated)
	}

	return &Principal{
		Subject:  info.Subject,
		Username: info.PreferredUsername,
		Scopes:   ParseScopes(info.Scope),
	}, nil
}
