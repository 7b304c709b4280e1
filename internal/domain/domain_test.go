package domain

import (
	"math"
	"testing"

	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestVectorNormalized(t *testing.T) {
	v := Vector{3, 4}

	n, err := v.Normalized()
	require.NoError(t, err)
	require.InDelta(t, 1.0, n.Norm(), 1e-12)
	require.InDeltaSlice(t, []float64{0.6, 0.8}, []float64(n), 1e-12)
	require.Equal(t, Vector{3, 4}, v, "source vector must stay untouched")
}

func TestVectorNormalized_ZeroAndNaN(t *testing.T) {
	_, err := Vector{0, 0, 0}.Normalized()
	require.ErrorIs(t, err, e.ErrZeroNorm)

	_, err = Vector{math.NaN(), 1}.Normalized()
	require.ErrorIs(t, err, e.ErrZeroNorm)
}

func TestEuclideanDistance(t *testing.T) {
	d, err := EuclideanDistance(Vector{0, 0}, Vector{3, 4})
	require.NoError(t, err)
	require.InDelta(t, 5.0, d, 1e-12)

	_, err = EuclideanDistance(Vector{1}, Vector{1, 2})
	require.ErrorIs(t, err, e.ErrDimensionMismatch)
}

func TestParseProductID(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "15970.jpg", want: 15970},
		{in: "images/39386.jpg", want: 39386},
		{in: `C:\data\images\59263.png`, want: 59263},
		{in: "1163", want: 1163},
		{in: "images/abc.jpg", wantErr: true},
		{in: "images/12a.jpg", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseProductID(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNewCatalog_LengthMismatch(t *testing.T) {
	features := mat.NewDense(2, 3, []float64{1, 0, 0, 0, 1, 0})

	_, err := NewCatalog(features, []string{"1.jpg"})
	require.ErrorIs(t, err, e.ErrCatalogMismatch)

	_, err = NewCatalog(nil, nil)
	require.ErrorIs(t, err, e.ErrCatalogEmpty)

	c, err := NewCatalog(features, []string{"1.jpg", "2.jpg"})
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	require.Equal(t, 3, c.Dim())
	require.Equal(t, Vector{0, 1, 0}, c.Vector(1))

	id, err := c.ProductID(1)
	require.NoError(t, err)
	require.Equal(t, int64(2), id)

	_, err = c.ProductID(5)
	require.Error(t, err)
}

func TestTensorValidate(t *testing.T) {
	ok := Tensor{Shape: []int{1, 2, 2}, Data: make([]float32, 4)}
	require.NoError(t, ok.Validate())

	bad := Tensor{Shape: []int{2, 2}, Data: make([]float32, 3)}
	require.ErrorIs(t, bad.Validate(), e.ErrMalformedTensor)

	empty := Tensor{}
	require.ErrorIs(t, empty.Validate(), e.ErrMalformedTensor)
}

func TestNewCatalog_RejectsNonFinite(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		features := mat.NewDense(3, 1, []float64{5, bad, 0})
		_, err := NewCatalog(features, []string{"1.jpg", "2.jpg", "3.jpg"})
		require.ErrorIs(t, err, e.ErrCatalogNonFinite)
	}
}

func TestCatalogFingerprint(t *testing.T) {
	newCatalog := func(values []float64, names ...string) *Catalog {
		c, err := NewCatalog(mat.NewDense(len(names), 2, values), names)
		require.NoError(t, err)
		return c
	}

	base := newCatalog([]float64{1, 0, 0, 1}, "1.jpg", "2.jpg")
	require.Len(t, base.Fingerprint(), 64)
	require.Equal(t, base.Fingerprint(), newCatalog([]float64{1, 0, 0, 1}, "1.jpg", "2.jpg").Fingerprint())

	require.NotEqual(t, base.Fingerprint(), newCatalog([]float64{1, 0, 0, 1}, "2.jpg", "1.jpg").Fingerprint(), "reordered filenames")
	require.NotEqual(t, base.Fingerprint(), newCatalog([]float64{0, 1, 1, 0}, "1.jpg", "2.jpg").Fingerprint(), "same names, new vectors")
}
