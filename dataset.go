package rasterview

import (
	"math"
)

// Dataset is an open raster. Bands are numbered from 1.
type Dataset interface {
	BandCount() int
	Band(n int) (Band, error)
	// Size is the full-resolution raster size in pixels.
	Size() Size
	// Overviews lists reduced-resolution levels, finest first.
	Overviews() []Size
	GeoTransform() (GeoTransform, bool)
	Close() error
}

// Band is a single raster band of a Dataset.
type Band interface {
	// Metadata returns a band metadata item such as STATISTICS_MEAN.
	Metadata(key string) (string, bool)
	// AttributeTable returns the band's raster attribute table, or nil.
	AttributeTable() *AttributeTable
	// Histogram returns ordered bin counts, if stored.
	Histogram() ([]uint64, bool)
	// Read copies the source window src at the given level (0 = full
	// resolution, k = overview k-1) into buf as a bufWidth x bufHeight
	// block with rows lineStride values apart, using nearest-neighbour
	// sampling.
	Read(level int, src Window, buf []float32, bufWidth, bufHeight, lineStride int) error
}

// Size is a raster size in pixels.
type Size struct {
	Width, Height int
}

// Window is a rectangle of source pixels. Frac, when set, is the
// fractional rectangle inside it that output cells are spread over; a zero
// Frac spreads them over the whole window.
type Window struct {
	X, Y, Width, Height int
	Frac                FracWindow
}

// FracWindow is a source rectangle in fractional pixel coordinates.
type FracWindow struct {
	X, Y, Width, Height float64
}

// sampling returns the rectangle output cells sample.
func (w Window) sampling() FracWindow {
	if w.Frac.Width > 0 && w.Frac.Height > 0 {
		return w.Frac
	}
	return FracWindow{X: float64(w.X), Y: float64(w.Y), Width: float64(w.Width), Height: float64(w.Height)}
}

// nearest maps output cell i of n onto the fractional span [start,
// start+span) and clamps the pick to the pixels [first, first+count).
func nearest(i, n int, start, span float64, first, count int) int {
	s := int(math.Floor(start + (float64(i)+0.5)*span/float64(n)))
	return max(first, min(s, first+count-1))
}

// Metadata keys read from bands.
const (
	MetadataLayerType = "LAYER_TYPE"
	MetadataMinimum   = "STATISTICS_MINIMUM"
	MetadataMaximum   = "STATISTICS_MAXIMUM"
	MetadataMean      = "STATISTICS_MEAN"
	MetadataStdDev    = "STATISTICS_STDDEV"

	LayerTypeThematic = "thematic"
)

// ColumnUsage is the role of an attribute table column, numbered as GDAL
// numbers GDALRATFieldUsage.
type ColumnUsage int

const (
	UsageGeneric    ColumnUsage = 0
	UsagePixelCount ColumnUsage = 1
	UsageName       ColumnUsage = 2
	UsageMin        ColumnUsage = 3
	UsageMax        ColumnUsage = 4
	UsageMinMax     ColumnUsage = 5
	UsageRed        ColumnUsage = 6
	UsageGreen      ColumnUsage = 7
	UsageBlue       ColumnUsage = 8
	UsageAlpha      ColumnUsage = 9
)

// AttributeColumn is one column of a raster attribute table. Numeric
// columns fill Values and text columns fill Strings.
type AttributeColumn struct {
	Name    string
	Usage   ColumnUsage
	Values  []float64
	Strings []string
}

// AttributeTable associates each integer pixel value (the row index) with
// column values.
type AttributeTable struct {
	Columns []AttributeColumn
}

// RowCount is the length of the longest column.
func (t *AttributeTable) RowCount() int {
	n := 0
	for _, c := range t.Columns {
		n = max(n, len(c.Values), len(c.Strings))
	}
	return n
}

// Usages lists the usage of every column, in column order.
func (t *AttributeTable) Usages() []ColumnUsage {
	if t == nil {
		return nil
	}
	usages := make([]ColumnUsage, len(t.Columns))
	for i, c := range t.Columns {
		usages[i] = c.Usage
	}
	return usages
}

// Column returns the first column with the given usage.
func (t *AttributeTable) Column(usage ColumnUsage) (*AttributeColumn, bool) {
	if t == nil {
		return nil, false
	}
	for i := range t.Columns {
		if t.Columns[i].Usage == usage {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Int returns the value at row as an integer. Rows outside the column
// report false.
func (c *AttributeColumn) Int(row int) (int, bool) {
	if row < 0 || row >= len(c.Values) || math.IsNaN(c.Values[row]) {
		return 0, false
	}
	return int(math.Round(c.Values[row])), true
}

// levelSize returns the raster size of a resolution level.
func levelSize(ds Dataset, level int) Size {
	if level == 0 {
		return ds.Size()
	}
	return ds.Overviews()[level-1]
}

// levelFactors returns how many full-resolution pixels one pixel of the
// level spans in each direction.
func levelFactors(ds Dataset, level int) (float64, float64) {
	full := ds.Size()
	size := levelSize(ds, level)
	if size.Width == 0 || size.Height == 0 {
		return 1, 1
	}
	return float64(full.Width) / float64(size.Width), float64(full.Height) / float64(size.Height)
}
