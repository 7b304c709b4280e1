package usecase

import (
	"context"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
)

type RecommendUC interface {
	Recommend(ctx context.Context, req *RecommendReq) (*RecommendRes, error)
	EnsureReady(ctx context.Context) error
	State() domain.ReadinessState
}

type ProductUC interface {
	GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error)
	ImportProducts(ctx context.Context, req *ImportProductsReq) (*ImportProductsRes, error)
}

type CatalogUC interface {
	SyncVectorStore(ctx context.Context) (int, error)
	Publish(ctx context.Context, req *PublishCatalogReq) error
}
