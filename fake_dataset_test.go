package rasterview

import (
	"fmt"
	"strconv"
)

// fakeBand computes pixels from a function and records its reads.
type fakeBand struct {
	ds        *fakeDataset
	value     func(level, x, y int) float32
	metadata  map[string]string
	rat       *AttributeTable
	histogram []uint64

	reads []fakeRead
}

type fakeRead struct {
	level      int
	src        Window
	bufWidth   int
	bufHeight  int
	lineStride int
}

func (b *fakeBand) Metadata(key string) (string, bool) {
	v, ok := b.metadata[key]
	return v, ok
}

func (b *fakeBand) AttributeTable() *AttributeTable {
	return b.rat
}

func (b *fakeBand) Histogram() ([]uint64, bool) {
	return b.histogram, len(b.histogram) > 0
}

func (b *fakeBand) Read(level int, src Window, buf []float32, bufWidth, bufHeight, lineStride int) error {
	b.reads = append(b.reads, fakeRead{level, src, bufWidth, bufHeight, lineStride})
	if b.ds.readErr != nil {
		return b.ds.readErr
	}
	size := levelSize(b.ds, level)
	if src.X < 0 || src.Y < 0 || src.X+src.Width > size.Width || src.Y+src.Height > size.Height {
		return fmt.Errorf("window %+v outside %+v", src, size)
	}
	f := src.sampling()
	for r := 0; r < bufHeight; r++ {
		sy := nearest(r, bufHeight, f.Y, f.Height, src.Y, src.Height)
		for c := 0; c < bufWidth; c++ {
			sx := nearest(c, bufWidth, f.X, f.Width, src.X, src.Width)
			buf[r*lineStride+c] = b.value(level, sx, sy)
		}
	}
	return nil
}

type fakeDataset struct {
	size      Size
	overviews []Size
	gt        GeoTransform
	hasGT     bool
	bands     []*fakeBand
	readErr   error
	closed    int
}

// newFakeDataset builds a north-up dataset of bandCount bands at 10 units
// per pixel with its top-left corner at (1000, 2000).
func newFakeDataset(width, height, bandCount int, overviews ...Size) *fakeDataset {
	ds := &fakeDataset{
		size:      Size{Width: width, Height: height},
		overviews: overviews,
		gt:        GeoTransform{1000, 10, 0, 2000, 0, -10},
		hasGT:     true,
	}
	for i := 0; i < bandCount; i++ {
		band := i + 1
		ds.bands = append(ds.bands, &fakeBand{
			ds:       ds,
			metadata: make(map[string]string),
			value: func(level, x, y int) float32 {
				return float32(band*100 + x + y)
			},
		})
	}
	return ds
}

func (d *fakeDataset) withStats(min, max, mean, stdDev float64) *fakeDataset {
	for _, b := range d.bands {
		b.metadata[MetadataMinimum] = strconv.FormatFloat(min, 'f', -1, 64)
		b.metadata[MetadataMaximum] = strconv.FormatFloat(max, 'f', -1, 64)
		b.metadata[MetadataMean] = strconv.FormatFloat(mean, 'f', -1, 64)
		b.metadata[MetadataStdDev] = strconv.FormatFloat(stdDev, 'f', -1, 64)
	}
	return d
}

func (d *fakeDataset) BandCount() int {
	return len(d.bands)
}

func (d *fakeDataset) Band(n int) (Band, error) {
	if n < 1 || n > len(d.bands) {
		return nil, fmt.Errorf("%w: band %d", ErrBandOutOfRange, n)
	}
	return d.bands[n-1], nil
}

func (d *fakeDataset) Size() Size {
	return d.size
}

func (d *fakeDataset) Overviews() []Size {
	return d.overviews
}

func (d *fakeDataset) GeoTransform() (GeoTransform, bool) {
	return d.gt, d.hasGT
}

func (d *fakeDataset) Close() error {
	d.closed++
	return nil
}

// colourTable returns an attribute table with one row per colour.
func colourTable(colours ...[3]float64) *AttributeTable {
	columns := []AttributeColumn{
		{Name: "Red", Usage: UsageRed},
		{Name: "Green", Usage: UsageGreen},
		{Name: "Blue", Usage: UsageBlue},
		{Name: "Alpha", Usage: UsageAlpha},
	}
	for _, c := range colours {
		for ch := 0; ch < 3; ch++ {
			columns[ch].Values = append(columns[ch].Values, c[ch])
		}
		columns[3].Values = append(columns[3].Values, 255)
	}
	return &AttributeTable{Columns: columns}
}

func mustRule(s string) StretchRule {
	rule, err := ParseStretchRule(s)
	if err != nil {
		panic(err)
	}
	return rule
}
