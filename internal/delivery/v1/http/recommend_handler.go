package http

import (
	"net/http"
	"strconv"

	"github.com/DRSN-tech/visual-recommender/internal/metrics"
	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

const recommendFileField = "file"

type RecommendHandler struct {
	recommendUsecase usecase.RecommendUC
	maxUploadSize    int64
	logger           logger.Logger
}

func NewRecommendHandler(recommendUsecase usecase.RecommendUC, maxUploadSize int64, logger logger.Logger) *RecommendHandler {
	return &RecommendHandler{
		recommendUsecase: recommendUsecase,
		maxUploadSize:    maxUploadSize,
		logger:           logger,
	}
}

// recommend
//
//	@Summary		Рекомендации по изображению
//	@Description	Принимает фото одежды и возвращает ID визуально похожих товаров, ближайшие первыми
//	@Tags			recommendations
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file			true	"Изображение (jpeg, png, gif, webp)"
//	@Success		200		{array}		integer			"ID похожих товаров"
//	@Failure		400		{object}	ErrorResponse	"Файл не передан или не является изображением"
//	@Failure		500		{object}	ErrorResponse	"Сервис недоступен или ошибка обработки"
//	@Router			/recommend [post]
func (h *RecommendHandler) recommend(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 32 << 20

	// запас на служебные части multipart
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+(1<<20))

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		h.fail(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fh, err := formFile(r, recommendFileField)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data, mimeType, err := readFile(fh, h.maxUploadSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Debugf("recommend: file=%s mime=%s size=%d", fh.Filename, mimeType, len(data))

	res, err := h.recommendUsecase.Recommend(r.Context(), usecase.NewRecommendReq(data, fh.Filename, middleware.GetReqID(r.Context())))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	metrics.RecommendationsServed.WithLabelValues(strconv.FormatBool(res.Cached)).Inc()
	WriteSuccess(w, http.StatusOK, res.ProductIDs)
}

func (h *RecommendHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := ToHTTPResponse(err)
	metrics.RecommendationErrors.WithLabelValues(errorKind(err)).Inc()

	if status >= http.StatusInternalServerError {
		h.logger.Errorf(err, "recommend failed: request_id=%s", middleware.GetReqID(r.Context()))
	} else {
		h.logger.Warnf("%d recommend rejected: %s", status, err.Error())
	}

	WriteError(w, err)
}
