package converter

import "github.com/DRSN-tech/visual-recommender/internal/usecase"

// ProductInfoConverter переводит карточки продуктов между use case и кэшем.
type ProductInfoConverter interface {
	ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel
	ToUseCase(model *ProductInfoRedisModel) *usecase.ProductInfo
	ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel
}

type ProductInfoConv struct{}

func (ProductInfoConv) ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel {
	if entity == nil {
		return nil
	}
	return &ProductInfoRedisModel{
		ID:           entity.ID,
		Name:         entity.Name,
		CategoryName: entity.CategoryName,
		Price:        entity.Price,
		Gender:       entity.Gender,
		Season:       entity.Season,
		Usage:        entity.Usage,
		BaseColour:   entity.BaseColour,
	}
}

func (ProductInfoConv) ToUseCase(model *ProductInfoRedisModel) *usecase.ProductInfo {
	if model == nil {
		return nil
	}
	return &usecase.ProductInfo{
		ID:           model.ID,
		Name:         model.Name,
		CategoryName: model.CategoryName,
		Price:        model.Price,
		Gender:       model.Gender,
		Season:       model.Season,
		Usage:        model.Usage,
		BaseColour:   model.BaseColour,
	}
}

func (c ProductInfoConv) ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel {
	out := make([]ProductInfoRedisModel, 0, len(entities))
	for i := range entities {
		out = append(out, *c.ToRedisModel(&entities[i]))
	}
	return out
}
