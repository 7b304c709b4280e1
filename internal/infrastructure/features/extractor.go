// Package features превращает пиксели изображения в нормированный эмбеддинг:
// предобработка в стиле caffe, прямой проход замороженной сети и global max pooling.
package features

import (
	"context"
	"fmt"
	"math"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
)

// Средние значения ImageNet по каналам в порядке BGR.
var imagenetMeanBGR = [3]float32{103.939, 116.779, 123.68}

// Backbone — сеть без классификационной головы. Forward принимает NHWC тензор
// и возвращает карту признаков.
type Backbone interface {
	Forward(ctx context.Context, input *domain.Tensor) (*domain.Tensor, error)
	Describe(ctx context.Context) (*usecase.ModelInfo, error)
}

type Extractor struct {
	backbone Backbone
	logger   logger.Logger
}

func NewExtractor(backbone Backbone, logger logger.Logger) *Extractor {
	return &Extractor{backbone: backbone, logger: logger}
}

// Extract возвращает эмбеддинг с единичной евклидовой нормой.
func (x *Extractor) Extract(ctx context.Context, pixels *domain.PixelArray) (domain.Vector, error) {
	const op = "Extractor.Extract"

	input, err := Preprocess(pixels)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	out, err := x.backbone.Forward(ctx, input)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	pooled, err := GlobalMaxPool(out)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	vec, err := pooled.Normalized()
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	x.logger.Debugf("Extracted %d-dim embedding from %dx%dx%d image", len(vec), pixels.Width, pixels.Height, pixels.Channels)
	return vec, nil
}

func (x *Extractor) Describe(ctx context.Context) (*usecase.ModelInfo, error) {
	return x.backbone.Describe(ctx)
}

// Preprocess приводит изображение к трем каналам и строит тензор [1,H,W,3]:
// RGB→BGR и вычитание среднего ImageNet без масштабирования.
func Preprocess(p *domain.PixelArray) (*domain.Tensor, error) {
	if p == nil || p.Width <= 0 || p.Height <= 0 || len(p.Pix) != p.Width*p.Height*p.Channels {
		return nil, e.Join(e.ErrInvalidImage, fmt.Errorf("bad pixel buffer"))
	}

	switch p.Channels {
	case 1, 3, 4:
	default:
		return nil, fmt.Errorf("%d channels: %w", p.Channels, e.ErrUnsupportedChannels)
	}

	data := make([]float32, 0, p.Width*p.Height*3)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			var r, g, b uint8
			if p.Channels == 1 {
				v := p.At(x, y, 0)
				r, g, b = v, v, v
			} else {
				// Четвертый канал (альфа) отбрасывается
				r, g, b = p.At(x, y, 0), p.At(x, y, 1), p.At(x, y, 2)
			}

			data = append(data,
				float32(b)-imagenetMeanBGR[0],
				float32(g)-imagenetMeanBGR[1],
				float32(r)-imagenetMeanBGR[2],
			)
		}
	}

	return &domain.Tensor{Shape: []int{1, p.Height, p.Width, 3}, Data: data}, nil
}

// GlobalMaxPool сворачивает карту признаков [H,W,C] или [1,H,W,C] в вектор длины C.
// Уже свернутый выход [C] или [1,C] возвращается как есть.
func GlobalMaxPool(t *domain.Tensor) (domain.Vector, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	shape := t.Shape
	if len(shape) > 1 && shape[0] == 1 {
		shape = shape[1:]
	}

	var (
		spatial  int
		channels int
	)
	switch len(shape) {
	case 1:
		spatial, channels = 1, shape[0]
	case 3:
		spatial, channels = shape[0]*shape[1], shape[2]
	default:
		return nil, fmt.Errorf("unexpected feature map shape %v: %w", t.Shape, e.ErrMalformedTensor)
	}

	out := make(domain.Vector, channels)
	for c := range out {
		out[c] = math.Inf(-1)
	}

	for s := 0; s < spatial; s++ {
		row := t.Data[s*channels : (s+1)*channels]
		for c, v := range row {
			fv := float64(v)
			if math.IsNaN(fv) || math.IsInf(fv, 0) {
				return nil, fmt.Errorf("non-finite activation at %d: %w", s*channels+c, e.ErrMalformedTensor)
			}
			if fv > out[c] {
				out[c] = fv
			}
		}
	}

	return out, nil
}
