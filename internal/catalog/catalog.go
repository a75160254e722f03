// Package catalog предоставляет источник цен товаров для оформления заказов.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mmeshcher/drinkbar-ledger/internal/model"
)

// Oracle возвращает актуальные цену, валюту и возрастное ограничение товара.
// Отсутствующий товар возвращается как *apperr.ProductNotFoundError.
type Oracle interface {
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
}

const (
	keyPrefix = "catalog:product:"
	genPrefix = "catalog:gen:"
)

// errStale означает, что товар изменился, пока его читали из исходного Oracle.
var errStale = errors.New("catalog entry changed during read")

// CachedOracle кэширует ответы Oracle в Redis. Кэш не является источником истины:
// любая ошибка Redis приводит к обращению в исходный Oracle.
type CachedOracle struct {
	next   Oracle
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedOracle создаёт кэширующую обёртку над next.
func NewCachedOracle(next Oracle, rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CachedOracle {
	return &CachedOracle{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// genKey хранит номер поколения товара, который растёт при каждой инвалидации.
func genKey(id int64) string {
	return genPrefix + strconv.FormatInt(id, 10)
}

func (c *CachedOracle) generation(ctx context.Context, id int64) (int64, error) {
	gen, err := c.rdb.Get(ctx, genKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetProduct возвращает товар из кэша или из исходного Oracle.
func (c *CachedOracle) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	raw, err := c.rdb.Get(ctx, key(id)).Bytes()
	switch {
	case err == nil:
		var p model.Product
		if uerr := json.Unmarshal(raw, &p); uerr == nil {
			return &p, nil
		}
		c.logger.Warn("drop corrupted catalog cache entry", zap.Int64("productID", id))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("catalog cache read failed", zap.Error(err), zap.Int64("productID", id))
	}

	gen, genErr := c.generation(ctx, id)

	p, err := c.next.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if genErr != nil {
		c.logger.Warn("catalog cache read failed", zap.Error(genErr), zap.Int64("productID", id))
		return p, nil
	}
	if err := c.store(ctx, id, p, gen); err != nil && !errors.Is(err, errStale) && !errors.Is(err, redis.TxFailedErr) {
		c.logger.Warn("catalog cache write failed", zap.Error(err), zap.Int64("productID", id))
	}
	return p, nil
}

// store записывает товар в кэш, только если его поколение не изменилось с момента gen.
func (c *CachedOracle) store(ctx context.Context, id int64, p *model.Product, gen int64) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}

	return c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey(id)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(id), raw, c.ttl)
			return nil
		})
		return err
	}, genKey(id))
}

// Invalidate удаляет товар из кэша после изменения каталога и сдвигает его поколение,
// чтобы чтение, начатое до изменения, не вернуло старую запись в кэш.
func (c *CachedOracle) Invalidate(ctx context.Context, id int64) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(id))
		pipe.Del(ctx, key(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate product %d: %w", id, err)
	}
	return nil
}
