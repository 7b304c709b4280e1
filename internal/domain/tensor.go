package domain

import (
	"fmt"

	"github.com/DRSN-tech/visual-recommender/pkg/e"
)

// Tensor — плотный float32 тензор в row-major порядке.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Validate проверяет, что произведение размерностей совпадает с длиной данных.
func (t *Tensor) Validate() error {
	if len(t.Shape) == 0 {
		return fmt.Errorf("empty shape: %w", e.ErrMalformedTensor)
	}

	size := 1
	for _, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("non-positive dimension in %v: %w", t.Shape, e.ErrMalformedTensor)
		}
		size *= d
	}

	if size != len(t.Data) {
		return fmt.Errorf("shape %v wants %d values, got %d: %w", t.Shape, size, len(t.Data), e.ErrMalformedTensor)
	}

	return nil
}
