package redis

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/internal/repository/redis/converter"
	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/clients"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *clients.RedisClient, *cfg.RedisCfg) {
	t.Helper()
	mr := miniredis.RunT(t)

	c := &cfg.RedisCfg{
		Addr:        mr.Addr(),
		DialTimeout: time.Second,
		Timeout:     time.Second,
		ProductTTL:  time.Minute,
	}
	client := clients.NewRedisClient(c)
	t.Cleanup(func() { _ = client.Client.Close() })

	return mr, client, c
}

func TestCacheRepo_SetGetDelete(t *testing.T) {
	mr, client, c := newTestClient(t)
	repo := NewCacheRepo(client, converter.ProductInfoConv{}, c, logger.Nop())
	ctx := context.Background()

	require.NoError(t, repo.SetProducts(ctx, []usecase.ProductInfo{
		{ID: 15970, Name: "Turtle Check Men Navy Blue Shirt", CategoryName: "Shirts", Price: 99500, Gender: "Men"},
		{ID: 39386, Name: "Peter England Men Party Blue Jeans", CategoryName: "Jeans", Price: 149900},
	}))
	require.True(t, mr.Exists("product:15970"))
	require.Equal(t, time.Minute, mr.TTL("product:15970"))

	got, err := repo.GetProducts(ctx, []int64{15970, 1, 39386})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Shirts", got[15970].CategoryName)
	require.Equal(t, "Men", got[15970].Gender)

	require.NoError(t, repo.DeleteProducts(ctx, []int64{15970}))
	got, err = repo.GetProducts(ctx, []int64{15970})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestCacheRepo_IDMismatchIsMiss(t *testing.T) {
	mr, client, c := newTestClient(t)
	repo := NewCacheRepo(client, converter.ProductInfoConv{}, c, logger.Nop())

	require.NoError(t, mr.Set("product:7", `{"id":8,"name":"wrong"}`))

	got, err := repo.GetProducts(context.Background(), []int64{7})
	require.NoError(t, err)
	require.Empty(t, got)
	require.False(t, mr.Exists("product:7"))
}

func TestCacheRepo_RedisDown(t *testing.T) {
	mr, client, c := newTestClient(t)
	repo := NewCacheRepo(client, converter.ProductInfoConv{}, c, logger.Nop())
	mr.SetError("LOADING redis is loading the dataset in memory")

	_, err := repo.GetProducts(context.Background(), []int64{1})
	require.Error(t, err)
}

func TestRecommendationCache(t *testing.T) {
	mr, client, _ := newTestClient(t)
	cache := NewRecommendationCache(client, 10*time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "v1:7:abc")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Set(ctx, "v1:7:abc", []int64{1, 2, 3}))
	require.Equal(t, 10*time.Minute, mr.TTL("recommend:v1:7:abc"))

	ids, ok, err := cache.Get(ctx, "v1:7:abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int64{1, 2, 3}, ids)

	mr.FastForward(11 * time.Minute)
	_, ok, err = cache.Get(ctx, "v1:7:abc")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCacheRepo_BrokenEntryIsDropped(t *testing.T) {
	mr, client, c := newTestClient(t)
	repo := NewCacheRepo(client, converter.ProductInfoConv{}, c, logger.Nop())

	require.NoError(t, mr.Set("product:3", "{not json"))
	require.NoError(t, repo.SetProducts(context.Background(), []usecase.ProductInfo{{ID: 4, Name: "Cap"}}))

	got, err := repo.GetProducts(context.Background(), []int64{3, 4})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Cap", got[4].Name)
	require.False(t, mr.Exists("product:3"))
}
