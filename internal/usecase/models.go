package usecase

import (
	"time"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
)

// RECOMMENDATIONS

// RecommendReq — запрос рекомендаций по загруженному изображению.
type RecommendReq struct {
	ImageData []byte
	Filename  string // оригинальное имя файла (для логов)
	RequestID string
}

// RecommendRes — ID похожих продуктов, ближайшие первыми.
type RecommendRes struct {
	ProductIDs []int64
	Cached     bool
}

// RecommendOptions — параметры выдачи рекомендаций.
type RecommendOptions struct {
	Neighbors   int
	Results     int
	SkipSelf    bool
	LoadTimeout time.Duration
}

// ModelInfo описывает замороженную сеть, которой считаются эмбеддинги.
type ModelInfo struct {
	Name       string
	Version    string
	FeatureDim int
	InputSize  int
}

// PRODUCTS

// GetProductsReq запрос информации о продуктах по их идентификаторам.
type GetProductsReq struct {
	IDs []int64
}

// GetProductsRes — ответ с данными запрошенных продуктов.
type GetProductsRes struct {
	Products         []ProductInfo
	NotFoundProducts []int64
}

// ProductInfo — DTO с информацией о продукте для внешнего использования.
type ProductInfo struct {
	ID           int64
	Name         string
	CategoryName string
	Price        int64
	Gender       string
	Season       string
	Usage        string
	BaseColour   string
}

// ProductRecord — запись датасета, подготовленная к импорту.
type ProductRecord struct {
	ID           int64
	Name         string
	CategoryName string
	Price        int64
	Gender       string
	Season       string
	Usage        string
	BaseColour   string
	ArticleType  string
}

type ImportProductsReq struct {
	Records   []ProductRecord
	BatchSize int
}

type ImportProductsRes struct {
	Inserted  int
	Unchanged int
	Failed    int
}

type UpsertProductRes struct {
	Product   *domain.Product
	NoChanges bool
}

// CATALOG

type PublishCatalogReq struct {
	FeaturesPath  string
	FilenamesPath string
	Prefix        string
}

// MAPPERS

func NewRecommendReq(data []byte, filename string, requestID string) *RecommendReq {
	return &RecommendReq{
		ImageData: data,
		Filename:  filename,
		RequestID: requestID,
	}
}

func NewRecommendRes(ids []int64, cached bool) *RecommendRes {
	return &RecommendRes{
		ProductIDs: ids,
		Cached:     cached,
	}
}

func NewUpsertProductRes(product *domain.Product, noChanges bool) *UpsertProductRes {
	return &UpsertProductRes{
		Product:   product,
		NoChanges: noChanges,
	}
}

func NewGetProductsRes(pr []ProductInfo, notFoundProducts []int64) *GetProductsRes {
	return &GetProductsRes{
		Products:         pr,
		NotFoundProducts: notFoundProducts,
	}
}

func NewGetProductsReq(ids []int64) *GetProductsReq {
	return &GetProductsReq{ids}
}

func (r ProductRecord) ToDomain(categoryID int64) *domain.Product {
	return &domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Price:       r.Price,
		CategoryID:  categoryID,
		Gender:      r.Gender,
		Season:      r.Season,
		Usage:       r.Usage,
		BaseColour:  r.BaseColour,
		ArticleType: r.ArticleType,
	}
}
