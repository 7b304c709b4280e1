package e

import (
	"errors"
	"fmt"
)

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = errors.New("transaction not found")

	// Сервис рекомендаций недоступен (каталог или модель не загружены)
	ErrServiceUnavailable  = errors.New("recommendation service unavailable")
	ErrCatalogNotFound     = errors.New("catalog files not found")
	ErrCatalogMismatch     = errors.New("catalog features and filenames length mismatch")
	ErrCatalogEmpty        = errors.New("catalog is empty")
	ErrCatalogNonFinite    = errors.New("catalog features contain non-finite values")
	ErrBackboneUnavailable = errors.New("feature backbone unavailable")

	// 400 Bad Request
	ErrInvalidImage         = errors.New("invalid image file")
	ErrUnsupportedChannels  = fmt.Errorf("unsupported channel layout: %w", ErrInvalidImage)
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrExpectedMultipart    = errors.New("expected multipart/form-data")
	ErrMissingFile          = errors.New("file is required")
	ErrFileTooLarge         = errors.New("file too large")
	ErrInvalidProductIDs    = errors.New("invalid product ids")
	ErrNoProducts           = errors.New("no product ids provided")
	ErrInvalidProductRecord = errors.New("invalid product record")

	// 429 Too Many Requests
	ErrTooManyRequests = errors.New("too many requests")

	// 500 Internal Server Error
	ErrProcessing          = errors.New("error processing image features")
	ErrDimensionMismatch   = errors.New("vector dimension mismatch")
	ErrZeroNorm            = errors.New("feature vector has zero norm")
	ErrMalformedTensor     = errors.New("malformed tensor")
	ErrNoRecommendations   = errors.New("no valid recommendations found")
	ErrInternalServerError = errors.New("internal server error")

	// Ошибки импорта датасета
	ErrInvalidPrice   = errors.New("invalid price")
	ErrPricePrecision = errors.New("price must have at most 2 decimal places")

	// Опциональный бэкенд не настроен
	ErrVectorStoreDisabled = errors.New("vector store is not configured")
	ErrObjectStoreDisabled = errors.New("object store is not configured")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = errors.New("incorrect environment variable")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// Join оборачивает cause в sentinel-ошибку так, что errors.Is срабатывает на обе.
func Join(sentinel error, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
