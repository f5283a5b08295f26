package rasterview

import (
	"fmt"
	"image"
)

// ChannelMask tells a display how channels are packed in a pixel.
type ChannelMask struct {
	Red, Green, Blue, Alpha uint32
	BitsPerPixel            int
}

// RGBMask is the mask of every composed image: red in the low byte, green
// in the middle byte and blue in the high byte of a 24-bit pixel.
var RGBMask = ChannelMask{
	Red:          0x000000ff,
	Green:        0x0000ff00,
	Blue:         0x00ff0000,
	Alpha:        0,
	BitsPerPixel: 24,
}

const channels = 3

// ImageBuffer is a row-major, band-interleaved 24-bit image.
type ImageBuffer struct {
	Pix    []byte
	Width  int
	Height int
	Mask   ChannelMask
}

func newImageBuffer(width, height int) (*ImageBuffer, error) {
	if err := checkAllocation(width, height); err != nil {
		return nil, err
	}
	return &ImageBuffer{
		Pix:    make([]byte, width*height*channels),
		Width:  width,
		Height: height,
		Mask:   RGBMask,
	}, nil
}

// Index returns the offset in Pix of a channel of the pixel at row, col.
func (b *ImageBuffer) Index(row, col, channel int) int {
	if row < 0 || row >= b.Height || col < 0 || col >= b.Width || channel < 0 || channel >= channels {
		panic(fmt.Sprintf("pixel (%d, %d, %d) outside %d x %d image", row, col, channel, b.Width, b.Height))
	}
	return (row*b.Width+col)*channels + channel
}

// At returns a channel of the pixel at row, col.
func (b *ImageBuffer) At(row, col, channel int) byte {
	return b.Pix[b.Index(row, col, channel)]
}

// Set writes a channel of the pixel at row, col.
func (b *ImageBuffer) Set(row, col, channel int, v byte) {
	b.Pix[b.Index(row, col, channel)] = v
}

// RGBA converts the buffer to an opaque image for encoders.
func (b *ImageBuffer) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for row := 0; row < b.Height; row++ {
		for col := 0; col < b.Width; col++ {
			o := img.PixOffset(col, row)
			img.Pix[o] = b.At(row, col, 0)
			img.Pix[o+1] = b.At(row, col, 1)
			img.Pix[o+2] = b.At(row, col, 2)
			img.Pix[o+3] = 0xff
		}
	}
	return img
}

// cellIndex returns the offset of a cell in a width x height band buffer.
func cellIndex(row, col, width, height int) int {
	if row < 0 || row >= height || col < 0 || col >= width {
		panic(fmt.Sprintf("cell (%d, %d) outside %d x %d band", row, col, width, height))
	}
	return row*width + col
}

func toByte(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v)
}

// Compose builds the display image from stretched bands, given in the
// order of rule.DisplayBands(), each win.DestWidth x win.DestHeight. Only
// the usable part of win is drawn; cells outside it stay black. rat is the
// colour table band's attribute table and is only used in ColorTable mode.
func Compose(rule StretchRule, bands [][]float32, win ReadWindow, rat *AttributeTable) (*ImageBuffer, error) {
	switch rule.Mode {
	case RGB, Greyscale, ColorTable:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDisplayMode, rule.Mode)
	}

	width, height := win.DestWidth, win.DestHeight
	want := len(rule.DisplayBands())
	if len(bands) != want {
		return nil, fmt.Errorf("%s mode needs %d bands, got %d", rule.Mode, want, len(bands))
	}
	for i, band := range bands {
		if len(band) != width*height {
			return nil, fmt.Errorf("band %d holds %d cells, want %d", i+1, len(band), width*height)
		}
	}

	var pixel func(img *ImageBuffer, row, col, i int)
	switch rule.Mode {
	case RGB:
		pixel = func(img *ImageBuffer, row, col, i int) {
			for ch := 0; ch < channels; ch++ {
				img.Set(row, col, ch, toByte(bands[ch][i]))
			}
		}

	case Greyscale:
		pixel = func(img *ImageBuffer, row, col, i int) {
			v := toByte(bands[0][i])
			for ch := 0; ch < channels; ch++ {
				img.Set(row, col, ch, v)
			}
		}

	case ColorTable:
		var lookup [channels]*AttributeColumn
		for ch, usage := range []ColumnUsage{UsageRed, UsageGreen, UsageBlue} {
			col, ok := rat.Column(usage)
			if !ok {
				return nil, ErrMissingAttributeColumns
			}
			lookup[ch] = col
		}
		pixel = func(img *ImageBuffer, row, col, i int) {
			entry := int(bands[0][i])
			for ch := 0; ch < channels; ch++ {
				v, ok := lookup[ch].Int(entry)
				if !ok {
					continue
				}
				img.Set(row, col, ch, toByte(float32(v)))
			}
		}
	}

	img, err := newImageBuffer(width, height)
	if err != nil {
		return nil, err
	}
	for row := win.DestY; row < win.DestY+win.DestUsableHeight; row++ {
		for col := win.DestX; col < win.DestX+win.DestUsableWidth; col++ {
			pixel(img, row, col, cellIndex(row, col, width, height))
		}
	}
	return img, nil
}
