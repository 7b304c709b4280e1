package qdrant

import (
	"context"
	"fmt"
	"sort"

	"github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/clients"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

// catalogKey — поле payload с отпечатком каталога, к которому относится точка.
const catalogKey = "catalog"

// pointsAPI — часть клиента Qdrant, которой пользуется репозиторий.
type pointsAPI interface {
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Delete(ctx context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Count(ctx context.Context, req *qdrant.CountPoints) (uint64, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

// VectorRepo хранит эмбеддинги каталога в Qdrant. ID точки равен позиции в каталоге,
// в payload каждой точки лежит отпечаток каталога.
type VectorRepo struct {
	points     pointsAPI
	ensure     func(ctx context.Context, dim int) error
	collection string
	batch      int
	logger     logger.Logger
}

func NewVectorRepo(client *clients.QdrantClient, cfg *cfg.QdrantCfg, logger logger.Logger) *VectorRepo {
	return &VectorRepo{
		points: client.Client,
		ensure: func(ctx context.Context, dim int) error {
			return clients.EnsureCollection(ctx, client, dim)
		},
		collection: cfg.QdrantCollectionName,
		batch:      max(cfg.UpsertBatchSize, 1),
		logger:     logger,
	}
}

func (q *VectorRepo) EnsureCollection(ctx context.Context, dim int) error {
	if err := q.ensure(ctx, dim); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

// UpsertCatalog записывает все позиции каталога пачками и ждет применения каждой пачки,
// затем удаляет точки прежних каталогов.
func (q *VectorRepo) UpsertCatalog(ctx context.Context, catalog *domain.Catalog) (int, error) {
	fp := catalog.Fingerprint()

	written := 0
	for start := 0; start < catalog.Len(); start += q.batch {
		end := min(start+q.batch, catalog.Len())

		_, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         toPoints(catalog, start, end),
		})
		if err != nil {
			return written, e.Wrap(whereami.WhereAmI(), err)
		}

		written = end
		q.logger.Debugf("Upserted catalog points %d-%d", start, end-1)
	}

	_, err := q.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			MustNot: []*qdrant.Condition{qdrant.NewMatch(catalogKey, fp)},
		}),
	})
	if err != nil {
		return written, e.Wrap(whereami.WhereAmI(), err)
	}

	return written, nil
}

// Count возвращает точное число точек в коллекции. Непустой fingerprint
// ограничивает подсчет точками этого каталога.
func (q *VectorRepo) Count(ctx context.Context, fingerprint string) (int, error) {
	n, err := q.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Filter:         catalogFilter(fingerprint),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}
	return int(n), nil
}

// Search выполняет точный (без HNSW) поиск k ближайших по евклидову расстоянию
// среди точек каталога fingerprint.
func (q *VectorRepo) Search(ctx context.Context, fingerprint string, query domain.Vector, k int) ([]domain.Neighbor, error) {
	points, err := q.points.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(query.Float32()...),
		Filter:         catalogFilter(fingerprint),
		Limit:          qdrant.PtrOf(uint64(k)),
		Params:         &qdrant.SearchParams{Exact: qdrant.PtrOf(true)},
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return toNeighbors(points), nil
}

func catalogFilter(fingerprint string) *qdrant.Filter {
	if fingerprint == "" {
		return nil
	}
	return &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(catalogKey, fingerprint)}}
}

func toPoints(catalog *domain.Catalog, start, end int) []*qdrant.PointStruct {
	points := make([]*qdrant.PointStruct, 0, end-start)
	for i := start; i < end; i++ {
		payload := map[string]any{
			"filename": catalog.Filename(i),
			catalogKey: catalog.Fingerprint(),
		}
		if id, err := catalog.ProductID(i); err == nil {
			payload["product_id"] = id
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(i)),
			Vectors: qdrant.NewVectors(catalog.Vector(i).Float32()...),
			Payload: qdrant.NewValueMap(payload),
		})
	}
	return points
}

// toNeighbors упорядочивает выдачу по расстоянию, равные расстояния — по позиции.
func toNeighbors(points []*qdrant.ScoredPoint) []domain.Neighbor {
	out := make([]domain.Neighbor, 0, len(points))
	for _, p := range points {
		out = append(out, domain.Neighbor{
			Position: int(p.GetId().GetNum()),
			Distance: float64(p.GetScore()),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// Index — индекс поверх коллекции Qdrant, синхронизированной с каталогом.
type Index struct {
	repo        *VectorRepo
	fingerprint string
	size        int
	dim         int
}

func (i *Index) Len() int {
	return i.size
}

func (i *Index) Search(ctx context.Context, query domain.Vector, k int) ([]domain.Neighbor, error) {
	if len(query) != i.dim {
		return nil, fmt.Errorf("query dim %d, collection dim %d: %w", len(query), i.dim, e.ErrDimensionMismatch)
	}
	return i.repo.Search(ctx, i.fingerprint, query, k)
}

// IndexBuilder проверяет, что коллекция содержит ровно текущий каталог, и пересинхронизирует ее иначе.
type IndexBuilder struct {
	repo   *VectorRepo
	logger logger.Logger
}

func NewIndexBuilder(repo *VectorRepo, logger logger.Logger) *IndexBuilder {
	return &IndexBuilder{repo: repo, logger: logger}
}

func (b *IndexBuilder) Build(ctx context.Context, catalog *domain.Catalog) (usecase.SimilarityIndex, error) {
	const op = "qdrant.IndexBuilder.Build"

	if err := b.repo.EnsureCollection(ctx, catalog.Dim()); err != nil {
		return nil, e.Wrap(op, err)
	}

	fp := catalog.Fingerprint()
	total, err := b.repo.Count(ctx, "")
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	current, err := b.repo.Count(ctx, fp)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if total != catalog.Len() || current != catalog.Len() {
		b.logger.Warnf("Qdrant collection has %d points (%d of current catalog), catalog has %d; syncing",
			total, current, catalog.Len())
		if _, err := b.repo.UpsertCatalog(ctx, catalog); err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	return &Index{repo: b.repo, fingerprint: fp, size: catalog.Len(), dim: catalog.Dim()}, nil
}
