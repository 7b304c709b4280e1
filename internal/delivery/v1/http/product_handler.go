package http

import (
	"net/http"

	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
)

type ProductHandler struct {
	productUsecase usecase.ProductUC
	logger         logger.Logger
}

func NewProductHandler(productUsecase usecase.ProductUC, logger logger.Logger) *ProductHandler {
	return &ProductHandler{productUsecase: productUsecase, logger: logger}
}

type ProductResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CategoryName string `json:"category"`
	Price        int64  `json:"price"` // в копейках
	Gender       string `json:"gender,omitempty"`
	Season       string `json:"season,omitempty"`
	Usage        string `json:"usage,omitempty"`
	BaseColour   string `json:"base_colour,omitempty"`
}

type GetProductsResponse struct {
	Products []ProductResponse `json:"products"`
	NotFound []int64           `json:"not_found"`
}

// getProducts
//
//	@Summary		Информация о товарах
//	@Description	Возвращает карточки товаров по списку ID, например для отрисовки рекомендаций
//	@Tags			products
//	@Produce		json
//	@Param			ids	query		string				true	"ID через запятую"
//	@Success		200	{object}	GetProductsResponse	"Найденные товары"
//	@Failure		400	{object}	ErrorResponse		"Некорректный список ID"
//	@Failure		500	{object}	ErrorResponse		"Внутренняя ошибка"
//	@Router			/v1/products [get]
func (p *ProductHandler) getProducts(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		p.logger.Warnf("%d get products: %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	res, err := p.productUsecase.GetProductsInfo(r.Context(), usecase.NewGetProductsReq(ids))
	if err != nil {
		p.logger.Errorf(err, "get products failed")
		WriteError(w, err)
		return
	}

	out := GetProductsResponse{
		Products: make([]ProductResponse, 0, len(res.Products)),
		NotFound: res.NotFoundProducts,
	}
	if out.NotFound == nil {
		out.NotFound = []int64{}
	}
	for _, pr := range res.Products {
		out.Products = append(out.Products, ProductResponse{
			ID:           pr.ID,
			Name:         pr.Name,
			CategoryName: pr.CategoryName,
			Price:        pr.Price,
			Gender:       pr.Gender,
			Season:       pr.Season,
			Usage:        pr.Usage,
			BaseColour:   pr.BaseColour,
		})
	}

	WriteSuccess(w, http.StatusOK, out)
}
