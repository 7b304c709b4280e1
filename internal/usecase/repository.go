package usecase

import (
	"context"
	"io"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
)

// CatalogLoader читает таблицу эмбеддингов каталога и список файлов.
type CatalogLoader interface {
	Load(ctx context.Context) (*domain.Catalog, error)
}

// SimilarityIndex — неизменяемый индекс ближайших соседей по евклидову расстоянию.
type SimilarityIndex interface {
	Search(ctx context.Context, query domain.Vector, k int) ([]domain.Neighbor, error)
	Len() int
}

// IndexBuilder строит индекс по загруженному каталогу.
type IndexBuilder interface {
	Build(ctx context.Context, catalog *domain.Catalog) (SimilarityIndex, error)
}

// VectorStore — внешнее векторное хранилище, в которое синхронизируется каталог.
type VectorStore interface {
	EnsureCollection(ctx context.Context, dim int) error
	UpsertCatalog(ctx context.Context, catalog *domain.Catalog) (int, error)
}

// CatalogObjectStore хранит файлы каталога в объектном хранилище.
type CatalogObjectStore interface {
	PutFile(ctx context.Context, key string, path string) error
	CleanupFiles(keys []string)
}

// ObjectRepository — объектное хранилище (MinIO).
type ObjectRepository interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type RecommendationCache interface {
	Get(ctx context.Context, key string) ([]int64, bool, error)
	Set(ctx context.Context, key string, ids []int64) error
}

type ProductRepository interface {
	Upsert(ctx context.Context, product *domain.Product) (*UpsertProductRes, error)
	GetProductsInfo(ctx context.Context, ids []int64) ([]ProductInfo, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) (*domain.Category, error)
}

type CacheRepository interface {
	GetProducts(ctx context.Context, ids []int64) (map[int64]ProductInfo, error)
	SetProducts(ctx context.Context, products []ProductInfo) error
	DeleteProducts(ctx context.Context, ids []int64) error
}
