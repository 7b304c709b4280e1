package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/DRSN-tech/visual-recommender/internal/metrics"
	"github.com/DRSN-tech/visual-recommender/pkg/clients"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const recommendationCacheName = "recommendation"

// RecommendationCache хранит выдачу для уже виденных изображений.
// Ключ строит вызывающая сторона (модель, размер каталога, хэш изображения).
type RecommendationCache struct {
	client *clients.RedisClient
	ttl    time.Duration
}

func NewRecommendationCache(client *clients.RedisClient, ttl time.Duration) *RecommendationCache {
	return &RecommendationCache{client: client, ttl: ttl}
}

func (c *RecommendationCache) Get(ctx context.Context, key string) ([]int64, bool, error) {
	key = recommendationKey(key)
	val, err := c.client.Client.Get(ctx, key).Result()
	if errors.Is(err, r.Nil) {
		metrics.CacheMisses.WithLabelValues(recommendationCacheName).Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	ids, _, err := decodeJSON[[]int64](val, key)
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	metrics.CacheHits.WithLabelValues(recommendationCacheName).Inc()
	return ids, true, nil
}

func (c *RecommendationCache) Set(ctx context.Context, key string, ids []int64) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := c.client.Client.Set(ctx, recommendationKey(key), data, c.ttl).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func recommendationKey(key string) string {
	return "recommend:" + key
}
