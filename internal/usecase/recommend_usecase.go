package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/internal/metrics"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const loadKey = "catalog"

// readySnapshot — всё, что нужно для обслуживания запроса. После публикации не меняется.
type readySnapshot struct {
	catalog  *domain.Catalog
	index    SimilarityIndex
	model    *ModelInfo
	loadedAt time.Time
}

// RecommendUseCase владеет загруженными каталогом, индексом и описанием модели.
// Загрузка ленивая: пока сервис не готов, каждый запрос пытается загрузиться заново,
// одновременные попытки схлопываются в одну.
type RecommendUseCase struct {
	loader    CatalogLoader
	builder   IndexBuilder
	decoder   ImageDecoder
	extractor FeatureExtractor
	cache     RecommendationCache
	publisher EventPublisher
	opts      RecommendOptions
	logger    logger.Logger

	group    singleflight.Group
	snapshot atomic.Pointer[readySnapshot]
	state    atomic.Int32
}

func NewRecommendUC(
	loader CatalogLoader,
	builder IndexBuilder,
	decoder ImageDecoder,
	extractor FeatureExtractor,
	cache RecommendationCache,
	publisher EventPublisher,
	opts RecommendOptions,
	logger logger.Logger,
) *RecommendUseCase {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = time.Minute
	}

	return &RecommendUseCase{
		loader:    loader,
		builder:   builder,
		decoder:   decoder,
		extractor: extractor,
		cache:     cache,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// State возвращает текущее состояние шлюза.
func (r *RecommendUseCase) State() domain.ReadinessState {
	return domain.ReadinessState(r.state.Load())
}

// EnsureReady загружает каталог, проверяет модель и строит индекс, если это еще не сделано.
func (r *RecommendUseCase) EnsureReady(ctx context.Context) error {
	_, err := r.ready(ctx)
	return err
}

func (r *RecommendUseCase) ready(ctx context.Context) (*readySnapshot, error) {
	const op = "RecommendUseCase.ready"

	if snap := r.snapshot.Load(); snap != nil {
		return snap, nil
	}

	v, err, _ := r.group.Do(loadKey, func() (any, error) {
		if snap := r.snapshot.Load(); snap != nil {
			return snap, nil
		}

		// Загрузка не должна обрываться из-за отмены запроса, который ее начал.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.LoadTimeout)
		defer cancel()

		snap, err := r.load(loadCtx)
		if err != nil {
			r.state.Store(int32(domain.StateUnavailable))
			metrics.ServiceReady.Set(0)
			return nil, err
		}

		r.snapshot.Store(snap)
		r.state.Store(int32(domain.StateReady))
		metrics.ServiceReady.Set(1)
		return snap, nil
	})
	if err != nil {
		r.logger.Errorf(err, "%s: recommendation service not ready", op)
		return nil, e.Join(e.ErrServiceUnavailable, err)
	}

	return v.(*readySnapshot), nil
}

func (r *RecommendUseCase) load(ctx context.Context) (*readySnapshot, error) {
	const op = "RecommendUseCase.load"
	r.logger.Infof("Loading catalog, feature model and index...")

	catalog, err := r.loader.Load(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	model, err := r.extractor.Describe(ctx)
	if err != nil {
		return nil, e.Wrap(op, e.Join(e.ErrBackboneUnavailable, err))
	}

	if model.FeatureDim != 0 && model.FeatureDim != catalog.Dim() {
		return nil, e.Wrap(op, fmt.Errorf("model %s emits %d features, catalog has %d: %w",
			model.Name, model.FeatureDim, catalog.Dim(), e.ErrDimensionMismatch))
	}

	index, err := r.builder.Build(ctx, catalog)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	r.logger.Infof("Recommendation service ready: %d catalog images, dim=%d, model=%s",
		catalog.Len(), catalog.Dim(), model.Version)

	return &readySnapshot{
		catalog:  catalog,
		index:    index,
		model:    model,
		loadedAt: time.Now(),
	}, nil
}

// Recommend выполняет цепочку decode → extract → query → map для одного изображения.
func (r *RecommendUseCase) Recommend(ctx context.Context, req *RecommendReq) (*RecommendRes, error) {
	const op = "RecommendUseCase.Recommend"

	snap, err := r.ready(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	digest := sha256.Sum256(req.ImageData)
	imageHash := hex.EncodeToString(digest[:])
	cacheKey := r.cacheKey(snap, imageHash)

	if ids, ok := r.cachedResult(ctx, cacheKey); ok {
		r.publish(ctx, req, imageHash, snap, ids, true)
		return NewRecommendRes(ids, true), nil
	}

	pixels, err := r.decoder.Decode(req.ImageData)
	if err != nil {
		r.logger.Warnf("%s: invalid image %q: %v", op, req.Filename, err)
		return nil, e.Wrap(op, e.Join(e.ErrInvalidImage, err))
	}

	query, err := r.extractor.Extract(ctx, pixels)
	if err != nil {
		if errors.Is(err, e.ErrInvalidImage) {
			return nil, e.Wrap(op, err)
		}
		r.logger.Errorf(err, "%s: feature extraction failed", op)
		return nil, e.Wrap(op, e.Join(e.ErrProcessing, err))
	}

	neighbors, err := snap.index.Search(ctx, query, r.opts.Neighbors)
	if err != nil {
		r.logger.Errorf(err, "%s: nearest neighbor search failed", op)
		return nil, e.Wrap(op, e.Join(e.ErrProcessing, err))
	}

	ids := r.mapToProductIDs(snap.catalog, neighbors)
	if len(ids) == 0 {
		return nil, e.Wrap(op, e.ErrNoRecommendations)
	}

	r.logger.Debugf("Recommended product IDs for %q: %v", req.Filename, ids)

	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey, ids); err != nil {
			r.logger.Warnf("%s: failed to cache recommendations: %v", op, err)
		}
	}
	r.publish(ctx, req, imageHash, snap, ids, false)

	return NewRecommendRes(ids, false), nil
}

// mapToProductIDs отбрасывает ближайшего соседа (если включено) и переводит позиции каталога
// в ID продуктов. Нечисловые имена файлов пропускаются без замены.
func (r *RecommendUseCase) mapToProductIDs(catalog *domain.Catalog, neighbors []domain.Neighbor) []int64 {
	start := 0
	if r.opts.SkipSelf {
		start = 1
	}

	ids := make([]int64, 0, r.opts.Results)
	for i := start; i < start+r.opts.Results && i < len(neighbors); i++ {
		id, err := catalog.ProductID(neighbors[i].Position)
		if err != nil {
			r.logger.Warnf("Error processing catalog position %d: %v", neighbors[i].Position, err)
			continue
		}
		ids = append(ids, id)
	}

	return ids
}

func (r *RecommendUseCase) cacheKey(snap *readySnapshot, imageHash string) string {
	return fmt.Sprintf("%s:%d:%t:%s", snap.model.Version, snap.catalog.Len(), r.opts.SkipSelf, imageHash)
}

func (r *RecommendUseCase) cachedResult(ctx context.Context, key string) ([]int64, bool) {
	if r.cache == nil {
		return nil, false
	}

	ids, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warnf("Recommendation cache lookup failed: %v", err)
		return nil, false
	}

	return ids, ok && len(ids) > 0
}

func (r *RecommendUseCase) publish(ctx context.Context, req *RecommendReq, imageHash string, snap *readySnapshot, ids []int64, cached bool) {
	if r.publisher == nil {
		return
	}

	event := &domain.RecommendationServed{
		EventID:      uuid.NewString(),
		RequestID:    req.RequestID,
		ImageSHA256:  imageHash,
		ProductIDs:   ids,
		ModelVersion: snap.model.Version,
		Cached:       cached,
		ServedAt:     time.Now().UTC(),
	}

	if err := r.publisher.PublishRecommendation(ctx, event); err != nil {
		r.logger.Warnf("Failed to publish recommendation event: %v", err)
	}
}
