package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode_RGBJPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))

	px, err := NewDecoder(224).Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 224, px.Width)
	require.Equal(t, 224, px.Height)
	require.Equal(t, 3, px.Channels)
	require.Len(t, px.Pix, 224*224*3)
	require.InDelta(t, 200, int(px.At(100, 100, 0)), 6)
	require.InDelta(t, 10, int(px.At(100, 100, 2)), 6)
}

func TestDecode_GrayscaleKeepsOneChannel(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 128
	}

	px, err := NewDecoder(8).Decode(encodePNG(t, img))
	require.NoError(t, err)
	require.Equal(t, 1, px.Channels)
	require.InDelta(t, 128, int(px.At(3, 3, 0)), 1)
}

func TestDecode_AlphaGivesFourChannels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 10, 20, 30, 128
	}

	px, err := NewDecoder(4).Decode(encodePNG(t, img))
	require.NoError(t, err)
	require.Equal(t, 4, px.Channels)
	require.InDelta(t, 20, int(px.At(1, 1, 1)), 1)
	require.InDelta(t, 128, int(px.At(1, 1, 3)), 1)
}

func TestDecode_NotAnImage(t *testing.T) {
	_, err := NewDecoder(224).Decode([]byte("definitely not an image, just text"))
	require.ErrorIs(t, err, e.ErrInvalidImage)

	_, err = NewDecoder(224).Decode(nil)
	require.ErrorIs(t, err, e.ErrInvalidImage)

	// Правильная сигнатура PNG, но битые данные
	broken := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	_, err = NewDecoder(224).Decode(broken)
	require.ErrorIs(t, err, e.ErrInvalidImage)
}
