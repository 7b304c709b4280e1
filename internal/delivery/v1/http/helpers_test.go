package http

import (
	"testing"

	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/stretchr/testify/require"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 3, 1 ,2,3 ")
	require.NoError(t, err)
	require.Equal(t, []int64{3, 1, 2}, ids)

	_, err = parseIDs("")
	require.ErrorIs(t, err, e.ErrNoProducts)

	_, err = parseIDs("1,x")
	require.ErrorIs(t, err, e.ErrInvalidProductIDs)

	_, err = parseIDs("0")
	require.ErrorIs(t, err, e.ErrInvalidProductIDs)
}

func TestErrorKind(t *testing.T) {
	require.Equal(t, "invalid_input", errorKind(e.ErrUnsupportedChannels))
	require.Equal(t, "unavailable", errorKind(e.Join(e.ErrServiceUnavailable, e.ErrBackboneUnavailable)))
	require.Equal(t, "processing", errorKind(e.ErrNoRecommendations))
}
