package rasterview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Compose_RGB(t *testing.T) {
	rule := mustRule("equal,3,-1,rgb,none,,1|2|3")
	bands := [][]float32{
		{10, 20},
		{30, 40},
		{50, 300},
	}

	img, err := Compose(rule, bands, fullWindow(2, 1), nil)
	require.NoError(t, err)

	assert.Equal(t, []byte{10, 30, 50, 20, 40, 255}, img.Pix)
	assert.Equal(t, RGBMask, img.Mask)
	assert.Equal(t, 24, img.Mask.BitsPerPixel)
	assert.Equal(t, byte(40), img.At(0, 1, 1))
}

func Test_Compose_Greyscale(t *testing.T) {
	rule := mustRule("equal,1,-1,greyscale,none,,1")
	bands := [][]float32{{7, -3, 127.9, 1000}}

	img, err := Compose(rule, bands, fullWindow(2, 2), nil)
	require.NoError(t, err)

	assert.Equal(t, []byte{
		7, 7, 7, 0, 0, 0,
		127, 127, 127, 255, 255, 255,
	}, img.Pix)
}

func Test_Compose_ColorTable(t *testing.T) {
	rule := mustRule("equal,1,1,colortable,none,,1")
	rat := colourTable(
		[3]float64{0, 0, 0},
		[3]float64{255, 0, 0},
		[3]float64{0, 128, 255},
	)
	bands := [][]float32{{1, 2, 7, 0}}

	img, err := Compose(rule, bands, fullWindow(4, 1), rat)
	require.NoError(t, err)

	assert.Equal(t, []byte{
		255, 0, 0,
		0, 128, 255,
		0, 0, 0, // beyond the table
		0, 0, 0,
	}, img.Pix)
}

func Test_Compose_ColorTable_missingColumns(t *testing.T) {
	rule := mustRule("equal,1,1,colortable,none,,1")
	rat := &AttributeTable{Columns: []AttributeColumn{
		{Name: "Red", Usage: UsageRed, Values: []float64{1}},
		{Name: "Green", Usage: UsageGreen, Values: []float64{1}},
	}}

	_, err := Compose(rule, [][]float32{{0}}, fullWindow(1, 1), rat)
	assert.ErrorIs(t, err, ErrMissingAttributeColumns)

	_, err = Compose(rule, [][]float32{{0}}, fullWindow(1, 1), nil)
	assert.ErrorIs(t, err, ErrMissingAttributeColumns)
}

func Test_Compose_errors(t *testing.T) {
	rule := mustRule("equal,3,-1,rgb,none,,1|2|3")

	_, err := Compose(rule, [][]float32{{1}, {1}}, fullWindow(1, 1), nil)
	assert.Error(t, err)

	_, err = Compose(rule, [][]float32{{1}, {1}, {1, 2}}, fullWindow(1, 1), nil)
	assert.Error(t, err)

	rule.Mode = PseudoColor
	_, err = Compose(rule, [][]float32{{1}}, fullWindow(1, 1), nil)
	assert.ErrorIs(t, err, ErrUnsupportedDisplayMode)
}

func Test_Compose_margin(t *testing.T) {
	// 4 x 2 view with the raster covering only columns 1 and 2 of row 1
	win := ReadWindow{
		DestWidth: 4, DestHeight: 2,
		DestX: 1, DestY: 1,
		DestUsableWidth: 2, DestUsableHeight: 1,
	}
	rat := colourTable(
		[3]float64{200, 50, 50},
		[3]float64{0, 0, 255},
	)

	img, err := Compose(mustRule("equal,1,1,colortable,none,,1"), [][]float32{{
		0, 0, 0, 0,
		0, 1, 1, 0,
	}}, win, rat)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 255, 0, 0, 255, 0, 0, 0,
	}, img.Pix)

	img, err = Compose(mustRule("equal,1,-1,greyscale,none,,1"), [][]float32{{
		9, 9, 9, 9,
		9, 5, 6, 9,
	}}, win, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 5, 5, 5, 6, 6, 6, 0, 0, 0,
	}, img.Pix)

	img, err = Compose(mustRule("equal,1,1,colortable,none,,1"), [][]float32{make([]float32, 8)}, ReadWindow{DestWidth: 4, DestHeight: 2}, rat)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 24), img.Pix)
}

// fullWindow is a window whose every cell is backed by raster data.
func fullWindow(width, height int) ReadWindow {
	return ReadWindow{
		DestWidth: width, DestHeight: height,
		DestUsableWidth: width, DestUsableHeight: height,
	}
}

func Test_ImageBuffer(t *testing.T) {
	img, err := newImageBuffer(3, 2)
	require.NoError(t, err)
	require.Len(t, img.Pix, 18)

	assert.Equal(t, 0, img.Index(0, 0, 0))
	assert.Equal(t, 5, img.Index(0, 1, 2))
	assert.Equal(t, 9, img.Index(1, 0, 0))
	assert.Equal(t, 17, img.Index(1, 2, 2))

	assert.Panics(t, func() { img.Index(2, 0, 0) })
	assert.Panics(t, func() { img.Index(0, 3, 0) })
	assert.Panics(t, func() { img.Index(0, 0, 3) })
	assert.Panics(t, func() { img.Set(-1, 0, 0, 1) })

	img.Set(1, 2, 0, 200)
	img.Set(1, 2, 1, 100)
	img.Set(1, 2, 2, 50)

	rgba := img.RGBA()
	assert.Equal(t, 3, rgba.Bounds().Dx())
	assert.Equal(t, 2, rgba.Bounds().Dy())
	r, g, b, a := rgba.At(2, 1).RGBA()
	assert.Equal(t, uint32(200), r>>8)
	assert.Equal(t, uint32(100), g>>8)
	assert.Equal(t, uint32(50), b>>8)
	assert.Equal(t, uint32(255), a>>8)

	_, err = newImageBuffer(0, 2)
	assert.ErrorIs(t, err, ErrAllocation)
}

func Test_cellIndex(t *testing.T) {
	assert.Equal(t, 7, cellIndex(1, 3, 4, 2))
	assert.Panics(t, func() { cellIndex(2, 0, 4, 2) })
}
