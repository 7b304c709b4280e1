package index

import (
	"context"
	"math/rand"
	"strconv"
	"testing"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomCatalog(t *testing.T, n, dim int, seed int64) *domain.Catalog {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	data := make([]float64, 0, n*dim)
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		row := make(domain.Vector, dim)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		unit, err := row.Normalized()
		require.NoError(t, err)
		data = append(data, unit...)
		names = append(names, strconv.Itoa(1000+i)+".jpg")
	}

	c, err := domain.NewCatalog(mat.NewDense(n, dim, data), names)
	require.NoError(t, err)
	return c
}

func TestSearch_SortedAndBounded(t *testing.T) {
	c := randomCatalog(t, 50, 16, 1)
	idx := NewBruteForce(c)

	got, err := idx.Search(context.Background(), c.Vector(7), 6)
	require.NoError(t, err)
	require.Len(t, got, 6)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}
}

func TestSearch_SelfIsFirst(t *testing.T) {
	c := randomCatalog(t, 30, 8, 2)
	idx := NewBruteForce(c)

	for _, p := range []int{0, 13, 29} {
		q := append(domain.Vector(nil), c.Vector(p)...)
		got, err := idx.Search(context.Background(), q, 6)
		require.NoError(t, err)
		require.Equal(t, p, got[0].Position)
		require.Zero(t, got[0].Distance)
	}
}

func TestSearch_SmallCatalogAndTies(t *testing.T) {
	features := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		1, 0,
	})
	c, err := domain.NewCatalog(features, []string{"1.jpg", "2.jpg", "3.jpg"})
	require.NoError(t, err)

	got, err := NewBruteForce(c).Search(context.Background(), domain.Vector{1, 0}, 6)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, 0, got[0].Position)
	require.Equal(t, 2, got[1].Position)
	require.Equal(t, 1, got[2].Position)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	c := randomCatalog(t, 5, 4, 3)

	_, err := NewBruteForce(c).Search(context.Background(), domain.Vector{1, 2}, 6)
	require.ErrorIs(t, err, e.ErrDimensionMismatch)
}

func TestBuilder(t *testing.T) {
	c := randomCatalog(t, 5, 4, 4)

	idx, err := NewBuilder().Build(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, 5, idx.Len())
}
