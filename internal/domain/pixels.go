package domain

// PixelArray — декодированное изображение в формате HWC (uint8 на канал).
type PixelArray struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

func NewPixelArray(width, height, channels int) *PixelArray {
	return &PixelArray{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// At возвращает значение канала c пикселя (x, y).
func (p *PixelArray) At(x, y, c int) uint8 {
	return p.Pix[(y*p.Width+x)*p.Channels+c]
}

func (p *PixelArray) Set(x, y, c int, v uint8) {
	p.Pix[(y*p.Width+x)*p.Channels+c] = v
}
