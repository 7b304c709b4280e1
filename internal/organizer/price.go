package organizer

import (
	"strings"

	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/shopspring/decimal"
)

// maxPrice — 1 млрд рублей.
var maxPrice = decimal.NewFromInt(1_000_000_000)

// ParsePriceToCents переводит строку вида "599.99" или "600" в копейки.
func ParsePriceToCents(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, e.ErrInvalidPrice
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, e.ErrInvalidPrice
	}

	return PriceToCents(d)
}

// PriceToCents проверяет цену и переводит ее в копейки.
// Отрицательные цены, больше двух знаков после запятой и значения выше maxPrice отклоняются.
func PriceToCents(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, e.ErrInvalidPrice
	}

	if d.GreaterThan(maxPrice) {
		return 0, e.ErrInvalidPrice
	}

	// "1099.50" и "1099.5" одинаково допустимы, "1.999" нет
	if !d.Equal(d.Truncate(2)) {
		return 0, e.ErrPricePrecision
	}

	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}
