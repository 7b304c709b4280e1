package redis

import (
	"context"
	"encoding/json"

	"github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/internal/metrics"
	"github.com/DRSN-tech/visual-recommender/internal/repository/redis/converter"
	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/clients"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const productCacheName = "product"

// CacheRepo кэширует карточки продуктов, которые клиенты запрашивают по ID из рекомендаций.
// Ошибки записи и удаления только логируются: кэш не должен ломать чтение из БД.
type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.ProductInfoConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.ProductInfoConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetProducts возвращает найденные в кэше карточки. Отсутствующие ID просто не попадают в результат.
func (c *CacheRepo) GetProducts(ctx context.Context, ids []int64) (map[int64]usecase.ProductInfo, error) {
	found := make(map[int64]usecase.ProductInfo, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	keys := withPrefix(productCacheName, ids)
	values, err := c.client.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var stale []string
	for i, val := range values {
		model, ok, err := decodeJSON[converter.ProductInfoRedisModel](val, keys[i])
		switch {
		case err != nil:
			c.logger.Warnf("Dropping unreadable cache entry: %v", err)
			stale = append(stale, keys[i])
		case !ok:
		case model.ID != ids[i]:
			c.logger.Warnf("Cache entry %s holds product %d", keys[i], model.ID)
			stale = append(stale, keys[i])
		default:
			found[ids[i]] = *c.conv.ToUseCase(&model)
		}
	}

	metrics.CacheHits.WithLabelValues(productCacheName).Add(float64(len(found)))
	metrics.CacheMisses.WithLabelValues(productCacheName).Add(float64(len(ids) - len(found)))

	if len(stale) > 0 {
		if err := c.client.Client.Del(context.WithoutCancel(ctx), stale...).Err(); err != nil {
			c.logger.Warnf("Redis DEL of stale entries failed: %v", err)
		}
	}

	return found, nil
}

// SetProducts пишет карточки одним pipeline с TTL из конфигурации.
func (c *CacheRepo) SetProducts(ctx context.Context, products []usecase.ProductInfo) error {
	if len(products) == 0 {
		return nil
	}

	models := c.conv.ToArrRedisModel(products)
	ids := make([]int64, len(models))
	for i := range models {
		ids[i] = models[i].ID
	}
	keys := withPrefix(productCacheName, ids)

	_, err := c.client.Client.Pipelined(ctx, func(p r.Pipeliner) error {
		for i := range models {
			data, err := json.Marshal(models[i])
			if err != nil {
				c.logger.Warnf("Skipping product %d in cache: %v", models[i].ID, err)
				continue
			}
			p.Set(ctx, keys[i], data, c.cfg.ProductTTL)
		}
		return nil
	})
	if err != nil {
		c.logger.Warnf("Cache pipeline failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}

	return nil
}

// DeleteProducts сбрасывает карточки после изменения продуктов.
func (c *CacheRepo) DeleteProducts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	if err := c.client.Client.Del(ctx, withPrefix(productCacheName, ids)...).Err(); err != nil {
		c.logger.Warnf("Redis DEL failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}

	return nil
}
