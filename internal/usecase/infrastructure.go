package usecase

import (
	"context"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
)

// ImageDecoder декодирует загруженные байты в массив пикселей входного размера сети.
type ImageDecoder interface {
	Decode(data []byte) (*domain.PixelArray, error)
}

// FeatureExtractor превращает изображение в эмбеддинг с единичной нормой.
type FeatureExtractor interface {
	Extract(ctx context.Context, pixels *domain.PixelArray) (domain.Vector, error)
	Describe(ctx context.Context) (*ModelInfo, error)
}

// EventPublisher публикует события аудита выдачи рекомендаций.
type EventPublisher interface {
	PublishRecommendation(ctx context.Context, event *domain.RecommendationServed) error
}
