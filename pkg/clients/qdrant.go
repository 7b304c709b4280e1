package clients

import (
	"context"
	"fmt"

	config "github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

type QdrantClient struct {
	Client *qdrant.Client
	cfg    *config.QdrantCfg
}

func NewQdrantClient(cfg *config.QdrantCfg) (*QdrantClient, error) {
	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.ApiKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &QdrantClient{
		Client: qdrantClient,
		cfg:    cfg,
	}, nil
}

// EnsureCollection создает коллекцию с евклидовой метрикой, если ее нет.
// Существующая коллекция другой размерности считается ошибкой.
func EnsureCollection(ctx context.Context, client *QdrantClient, dim int) error {
	name := client.cfg.QdrantCollectionName

	exists, err := client.Client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		if err := client.Client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Euclid,
			}),
		}); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		return nil
	}

	info, err := client.Client.GetCollectionInfo(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	if params := info.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil && params.GetSize() != uint64(dim) {
		return fmt.Errorf("collection %s has dim %d, catalog has %d: %w", name, params.GetSize(), dim, e.ErrDimensionMismatch)
	}

	return nil
}

func (c *QdrantClient) CollectionName() string {
	return c.cfg.QdrantCollectionName
}

func (c *QdrantClient) Close() error {
	return c.Client.Close()
}
