package domain

import (
	"math"

	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"gonum.org/v1/gonum/floats"
)

// Vector — эмбеддинг изображения.
type Vector []float64

// Norm возвращает евклидову норму вектора.
func (v Vector) Norm() float64 {
	return floats.Norm(v, 2)
}

// Normalized возвращает копию вектора с единичной нормой.
func (v Vector) Normalized() (Vector, error) {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, e.ErrZeroNorm
	}

	out := make(Vector, len(v))
	copy(out, v)
	floats.Scale(1/n, out)
	return out, nil
}

// Float32 конвертирует вектор для хранилищ, работающих с float32 (Qdrant).
func (v Vector) Float32() []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// EuclideanDistance считает расстояние между векторами одинаковой длины.
func EuclideanDistance(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, e.ErrDimensionMismatch
	}
	return floats.Distance(a, b, 2), nil
}

// Neighbor — результат k-NN запроса: позиция в каталоге и расстояние до запроса.
type Neighbor struct {
	Position int
	Distance float64
}
