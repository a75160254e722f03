// Package service реализует бизнес-логику учёта заказов и платежей.
package service

import (
	"context"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/catalog"
	"github.com/mmeshcher/drinkbar-ledger/internal/metrics"
	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
// AdmitOrder обязан выполнять проверку баланса и вставку заказа атомарно
// и последовательно для одного аккаунта.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error

	EnsureAccount(ctx context.Context, subject string, ceiling decimal.Decimal) (*model.Account, error)
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	UpdateAccount(ctx context.Context, id int64, upd model.AccountUpdate) (*model.Account, error)

	GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)

	AdmitOrder(ctx context.Context, accountID int64, items []model.OrderItem, restrictedIDs []int64) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrders(ctx context.Context, accountID int64, includeDeleted bool) ([]model.Order, error)
	DeleteOrder(ctx context.Context, id int64) (*model.Order, error)

	CreatePayment(ctx context.Context, accountID int64, amount decimal.Decimal) (*model.Payment, error)
	ListPayments(ctx context.Context, accountID int64, pendingOnly bool) ([]model.Payment, error)
	ProcessPayment(ctx context.Context, id int64, confirmed bool, note mo.Option[string]) (*model.Payment, error)

	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, limit int) ([]model.Product, error)
}

// invalidator реализуется кэширующими источниками цен.
type invalidator interface {
	Invalidate(ctx context.Context, id int64) error
}

// Options параметры сервиса, не зависящие от хранилища.
type Options struct {
	Currency       string
	DefaultCeiling decimal.Decimal
}

// Service содержит бизнес-логику сервиса учёта заказов.
type Service struct {
	repo     Repository
	oracle   catalog.Oracle
	metrics  *metrics.Metrics
	logger   *zap.Logger
	currency Currency
	ceiling  decimal.Decimal
}

// NewService создаёт сервис. Цены при оформлении заказа берутся из oracle.
func NewService(repo Repository, oracle catalog.Oracle, m *metrics.Metrics, logger *zap.Logger, opts Options) *Service {
	return &Service{
		repo:     repo,
		oracle:   oracle,
		metrics:  m,
		logger:   logger,
		currency: LookupCurrency(opts.Currency),
		ceiling:  opts.DefaultCeiling,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
