package converter

import (
	"testing"
	"time"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestProductConv_CopiesUpdatedAt(t *testing.T) {
	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	model := &ProductModel{ID: 15970, Name: "Turtle Check Men Navy Blue Shirt", Price: 89500, UpdatedAt: &updated}

	entity := ProductConv{}.ToEntity(model)
	require.Equal(t, int64(15970), entity.ID)
	require.Equal(t, int64(89500), entity.Price)
	require.NotSame(t, model.UpdatedAt, entity.UpdatedAt)
	require.True(t, updated.Equal(*entity.UpdatedAt))

	require.Nil(t, ProductConv{}.ToEntity(nil))
}

func TestCategoryConv_ToModel(t *testing.T) {
	model := CategoryConv{}.ToModel(domain.NewCategory("Apparel"))
	require.Equal(t, "Apparel", model.Name)
	require.Nil(t, model.UpdatedAt)
}
