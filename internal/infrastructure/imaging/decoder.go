// Package imaging декодирует загруженные изображения в массив пикселей входного размера сети.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/internal/infrastructure"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Decoder проверяет формат, декодирует и масштабирует изображение до size×size.
// Число каналов результата отражает исходное изображение: 1 для оттенков серого,
// 4 при наличии альфа-канала, иначе 3.
type Decoder struct {
	size int
}

func NewDecoder(size int) *Decoder {
	return &Decoder{size: size}
}

// Decode возвращает ошибку, оборачивающую e.ErrInvalidImage, если данные не являются поддерживаемым изображением.
func (d *Decoder) Decode(data []byte) (*domain.PixelArray, error) {
	const op = "Decoder.Decode"

	if len(data) == 0 {
		return nil, e.Wrap(op, e.ErrInvalidImage)
	}

	mime := infrastructure.DetectImageMIME(data)
	if _, err := infrastructure.GetExtensionFromMIME(mime); err != nil {
		return nil, e.Wrap(op, e.Join(e.ErrInvalidImage, fmt.Errorf("%s: %w", mime, err)))
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, e.Wrap(op, e.Join(e.ErrInvalidImage, err))
	}

	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidImage)
	}

	return d.toPixels(src, channelsOf(src)), nil
}

// toPixels масштабирует изображение бикубическим (Catmull-Rom) фильтром и раскладывает его в HWC.
func (d *Decoder) toPixels(src image.Image, channels int) *domain.PixelArray {
	dst := image.NewNRGBA(image.Rect(0, 0, d.size, d.size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := domain.NewPixelArray(d.size, d.size, channels)
	for y := 0; y < d.size; y++ {
		for x := 0; x < d.size; x++ {
			px := dst.NRGBAAt(x, y)
			switch channels {
			case 1:
				out.Set(x, y, 0, px.R)
			case 3:
				out.Set(x, y, 0, px.R)
				out.Set(x, y, 1, px.G)
				out.Set(x, y, 2, px.B)
			default:
				out.Set(x, y, 0, px.R)
				out.Set(x, y, 1, px.G)
				out.Set(x, y, 2, px.B)
				out.Set(x, y, 3, px.A)
			}
		}
	}

	return out
}

func channelsOf(img image.Image) int {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.NRGBAModel, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model:
		return 4
	}

	if p, ok := img.(*image.Paletted); ok {
		for _, c := range p.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return 4
			}
		}
	}

	return 3
}
