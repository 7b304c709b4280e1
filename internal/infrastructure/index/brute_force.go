// Package index реализует точный поиск ближайших соседей полным перебором.
package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
)

// BruteForce хранит ссылку на неизменяемый каталог и на каждый запрос считает
// расстояние до всех его векторов.
type BruteForce struct {
	catalog *domain.Catalog
}

func NewBruteForce(catalog *domain.Catalog) *BruteForce {
	return &BruteForce{catalog: catalog}
}

func (b *BruteForce) Len() int {
	return b.catalog.Len()
}

// Search возвращает min(k, N) соседей по возрастанию евклидова расстояния.
// При равных расстояниях первой идет меньшая позиция каталога.
func (b *BruteForce) Search(ctx context.Context, query domain.Vector, k int) ([]domain.Neighbor, error) {
	const op = "BruteForce.Search"

	if len(query) != b.catalog.Dim() {
		return nil, e.Wrap(op, fmt.Errorf("query dim %d, catalog dim %d: %w", len(query), b.catalog.Dim(), e.ErrDimensionMismatch))
	}
	if k <= 0 {
		return []domain.Neighbor{}, nil
	}

	neighbors := make([]domain.Neighbor, b.catalog.Len())
	for i := range neighbors {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, e.Wrap(op, err)
			}
		}

		d, err := domain.EuclideanDistance(query, b.catalog.Vector(i))
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		neighbors[i] = domain.Neighbor{Position: i, Distance: d}
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})

	return neighbors[:min(k, len(neighbors))], nil
}

// Builder строит BruteForce поверх загруженного каталога.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

func (Builder) Build(_ context.Context, catalog *domain.Catalog) (usecase.SimilarityIndex, error) {
	return NewBruteForce(catalog), nil
}
