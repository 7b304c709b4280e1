package converter

import (
	"time"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
)

// ProductConv преобразует Product между domain и моделью PostgreSQL.
type ProductConv struct{}

func (ProductConv) ToModel(entity *domain.Product) *ProductModel {
	if entity == nil {
		return nil
	}
	return &ProductModel{
		ID:          entity.ID,
		Name:        entity.Name,
		Price:       entity.Price,
		CategoryID:  entity.CategoryID,
		Gender:      entity.Gender,
		Season:      entity.Season,
		Usage:       entity.Usage,
		BaseColour:  entity.BaseColour,
		ArticleType: entity.ArticleType,
		CreatedAt:   entity.CreatedAt,
		UpdatedAt:   copyTime(entity.UpdatedAt),
		IsArchived:  entity.IsArchived,
	}
}

func (ProductConv) ToEntity(model *ProductModel) *domain.Product {
	if model == nil {
		return nil
	}
	return &domain.Product{
		ID:          model.ID,
		Name:        model.Name,
		Price:       model.Price,
		CategoryID:  model.CategoryID,
		Gender:      model.Gender,
		Season:      model.Season,
		Usage:       model.Usage,
		BaseColour:  model.BaseColour,
		ArticleType: model.ArticleType,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   copyTime(model.UpdatedAt),
		IsArchived:  model.IsArchived,
	}
}

// CategoryConv преобразует Category между domain и моделью PostgreSQL.
type CategoryConv struct{}

func (CategoryConv) ToModel(entity *domain.Category) *CategoryModel {
	if entity == nil {
		return nil
	}
	return &CategoryModel{
		ID:        entity.ID,
		Name:      entity.Name,
		CreatedAt: entity.CreatedAt,
		UpdatedAt: copyTime(entity.UpdatedAt),
	}
}

func (CategoryConv) ToEntity(model *CategoryModel) *domain.Category {
	if model == nil {
		return nil
	}
	return &domain.Category{
		ID:        model.ID,
		Name:      model.Name,
		CreatedAt: model.CreatedAt,
		UpdatedAt: copyTime(model.UpdatedAt),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
