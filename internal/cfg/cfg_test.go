package cfg

import (
	"testing"
	"time"

	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"MINIO_ENDPOINT", "QDRANT_HOST", "REDIS_ADDR", "KAFKA_BROKERS", "POSTGRES_USER", "CATALOG_SOURCE", "INDEX_BACKEND"} {
		t.Setenv(key, "")
	}

	c, err := Load(logger.Nop())
	require.NoError(t, err)

	require.Equal(t, "8000", c.Http.Port)
	require.Equal(t, []string{"http://localhost:5173"}, c.Http.CORSAllowedOrigins)
	require.Equal(t, CatalogSourceFS, c.Catalog.Source)
	require.Equal(t, "images_features.npy", c.Catalog.FeaturesFile)
	require.Equal(t, 6, c.Recommend.Neighbors)
	require.Equal(t, 5, c.Recommend.Results)
	require.True(t, c.Recommend.SkipSelf)
	require.Equal(t, 224, c.Recommend.ImageSize)
	require.Equal(t, IndexBackendMemory, c.Recommend.IndexBackend)
	require.Equal(t, "ml-service:50051", c.Ml.Addr)

	require.Nil(t, c.Minio)
	require.Nil(t, c.Qdrant)
	require.Nil(t, c.Redis)
	require.Nil(t, c.Kafka)
	require.Nil(t, c.Db)
}

func TestLoad_OptionalBackends(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("CATALOG_SOURCE", "minio")
	t.Setenv("QDRANT_HOST", "qdrant")
	t.Setenv("INDEX_BACKEND", "qdrant")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("READ_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "4s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("POSTGRES_USER", "")

	c, err := Load(logger.Nop())
	require.NoError(t, err)

	require.Equal(t, "catalog", c.Minio.BucketName)
	require.Equal(t, 6334, c.Qdrant.Port)
	require.Equal(t, 4*time.Second, c.Redis.Timeout)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	require.Equal(t, "recommendation.served", c.Kafka.Topic)
}

func TestLoad_RejectsInconsistentBackends(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "")
	t.Setenv("CATALOG_SOURCE", "minio")

	_, err := Load(logger.Nop())
	require.ErrorIs(t, err, e.ErrIncorrectEnvVariable)
}

func TestLoad_RejectsBadInt(t *testing.T) {
	t.Setenv("RECOMMEND_NEIGHBORS", "six")

	_, err := Load(logger.Nop())
	require.ErrorIs(t, err, e.ErrIncorrectEnvVariable)
}

func TestSplitList(t *testing.T) {
	require.Nil(t, splitList(""))
	require.Equal(t, []string{"a", "b"}, splitList(" a ,, b "))
}
