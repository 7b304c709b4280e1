package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/visual-recommender/internal/infrastructure"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/jimlawless/whereami"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// ToHTTPResponse переводит ошибку в код ответа и общее сообщение. Подробности остаются в логе.
func ToHTTPResponse(err error) (int, string) {
	switch {
	// 400
	case errors.Is(err, e.ErrExpectedMultipart):
		return http.StatusBadRequest, e.ErrExpectedMultipart.Error()
	case errors.Is(err, e.ErrMissingFile):
		return http.StatusBadRequest, e.ErrMissingFile.Error()
	case errors.Is(err, e.ErrFileTooLarge):
		return http.StatusBadRequest, e.ErrFileTooLarge.Error()
	case errors.Is(err, e.ErrUnsupportedMediaType):
		return http.StatusBadRequest, e.ErrInvalidImage.Error()
	case errors.Is(err, e.ErrInvalidImage):
		return http.StatusBadRequest, e.ErrInvalidImage.Error()
	case errors.Is(err, e.ErrInvalidProductIDs):
		return http.StatusBadRequest, e.ErrInvalidProductIDs.Error()
	case errors.Is(err, e.ErrNoProducts):
		return http.StatusBadRequest, e.ErrNoProducts.Error()

	// 429
	case errors.Is(err, e.ErrTooManyRequests):
		return http.StatusTooManyRequests, e.ErrTooManyRequests.Error()

	// 500
	case errors.Is(err, e.ErrServiceUnavailable):
		return http.StatusInternalServerError, e.ErrServiceUnavailable.Error()
	case errors.Is(err, e.ErrNoRecommendations):
		return http.StatusInternalServerError, e.ErrNoRecommendations.Error()
	case errors.Is(err, e.ErrProcessing):
		return http.StatusInternalServerError, e.ErrProcessing.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

// errorKind — метка метрики ошибок рекомендаций.
func errorKind(err error) string {
	status, _ := ToHTTPResponse(err)
	switch {
	case status < http.StatusInternalServerError:
		return "invalid_input"
	case errors.Is(err, e.ErrServiceUnavailable):
		return "unavailable"
	default:
		return "processing"
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return e.Wrap(whereami.WhereAmI(), e.ErrFileTooLarge)
		}
		return e.Join(e.ErrExpectedMultipart, err)
	}

	return nil
}

// formFile возвращает первый файл из поля field.
func formFile(r *http.Request, field string) (*multipart.FileHeader, error) {
	if r.MultipartForm == nil {
		return nil, e.ErrMissingFile
	}

	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, e.ErrMissingFile
	}

	return files[0], nil
}

// readFile читает загруженный файл целиком и проверяет, что это поддерживаемое изображение.
func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if fh.Size > maxSize {
		return nil, "", e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, "", e.Wrap(whereami.WhereAmI(), err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		return nil, "", e.Wrap(whereami.WhereAmI(), err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}
	if len(data) == 0 {
		return nil, "", e.Wrap(fh.Filename, e.ErrInvalidImage)
	}

	mimeType := infrastructure.DetectImageMIME(data)
	if _, err := infrastructure.GetExtensionFromMIME(mimeType); err != nil {
		return nil, "", e.Wrap(fh.Filename+": "+mimeType, e.ErrUnsupportedMediaType)
	}

	return data, mimeType, nil
}

// parseIDs разбирает список идентификаторов вида "1,2,3".
func parseIDs(raw string) ([]int64, error) {
	const maxIDs = 100

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, e.ErrNoProducts
	}

	parts := strings.Split(raw, ",")
	if len(parts) > maxIDs {
		return nil, e.Wrap("too many ids", e.ErrInvalidProductIDs)
	}

	ids := make([]int64, 0, len(parts))
	seen := make(map[int64]struct{}, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, e.Wrap(p, e.ErrInvalidProductIDs)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids, nil
}
