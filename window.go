package rasterview

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ReadWindow is the source rectangle a render reads and where it lands in
// the destination buffer. Destination cells outside the usable region stay
// blank.
type ReadWindow struct {
	SourceX, SourceY          int
	SourceWidth, SourceHeight int
	// SourceFrac is the fractional source rectangle the usable cells
	// cover. It lies within the integer source window.
	SourceFrac FracWindow

	DestWidth, DestHeight int
	DestX, DestY          int
	DestUsableWidth       int
	DestUsableHeight      int
}

// Source returns the source rectangle.
func (w ReadWindow) Source() Window {
	return Window{X: w.SourceX, Y: w.SourceY, Width: w.SourceWidth, Height: w.SourceHeight, Frac: w.SourceFrac}
}

// DestOffset is the index of the first usable destination cell.
func (w ReadWindow) DestOffset() int {
	return w.DestY*w.DestWidth + w.DestX
}

// Empty reports whether the view misses the raster, in which case nothing
// is read.
func (w ReadWindow) Empty() bool {
	return w.SourceWidth <= 0 || w.SourceHeight <= 0 ||
		w.DestUsableWidth <= 0 || w.DestUsableHeight <= 0
}

// ComputeWindow maps extent, displayed in a destWidth x destHeight buffer,
// onto source pixels of the given level. The source window is clipped to
// the level's raster and the clipped share of the view becomes a
// destination margin.
func ComputeWindow(destWidth, destHeight int, ds Dataset, level int, extent ViewExtent) (ReadWindow, error) {
	win := ReadWindow{DestWidth: destWidth, DestHeight: destHeight}

	gt, ok := ds.GeoTransform()
	if !ok {
		return ReadWindow{}, ErrNoGeoTransform
	}
	if level < 0 || level > len(ds.Overviews()) {
		return ReadWindow{}, fmt.Errorf("resolution level %d out of range", level)
	}

	factorX, factorY := levelFactors(ds, level)
	inv, err := gt.Scaled(factorX, factorY).Invert()
	if err != nil {
		return ReadWindow{}, err
	}

	view := extent.Bound(destWidth, destHeight)
	if !view.Intersects(gt.Bounds(ds.Size())) {
		return win, nil
	}

	corners := []orb.Point{
		view.LeftTop(),
		{view.Right(), view.Top()},
		{view.Left(), view.Bottom()},
		view.RightBottom(),
	}
	x1, y1 := math.Inf(1), math.Inf(1)
	x2, y2 := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		p := inv.Apply(c[0], c[1])
		x1, x2 = math.Min(x1, p[0]), math.Max(x2, p[0])
		y1, y2 = math.Min(y1, p[1]), math.Max(y2, p[1])
	}

	size := levelSize(ds, level)
	ax := clipAxis(x1, x2, size.Width, destWidth)
	ay := clipAxis(y1, y2, size.Height, destHeight)
	if ax.length <= 0 || ay.length <= 0 || ax.destUsable <= 0 || ay.destUsable <= 0 {
		return win, nil
	}

	win.SourceX, win.SourceWidth = ax.offset, ax.length
	win.SourceY, win.SourceHeight = ay.offset, ay.length
	win.SourceFrac = FracWindow{X: ax.fracStart, Y: ay.fracStart, Width: ax.fracSpan, Height: ay.fracSpan}
	win.DestX, win.DestUsableWidth = ax.destStart, ax.destUsable
	win.DestY, win.DestUsableHeight = ay.destStart, ay.destUsable
	return win, nil
}

// axisClip is one axis of a clipped window.
type axisClip struct {
	offset, length        int
	fracStart, fracSpan   float64
	destStart, destUsable int
}

// clipAxis clips the fractional source span [lo, hi] to [0, limit] and
// converts the parts cut off each end into destination cells. The integer
// window covers every pixel the clipped span touches; the fractional span
// is the part of [lo, hi] under the usable destination cells.
func clipAxis(lo, hi float64, limit, dest int) axisClip {
	span := hi - lo
	if span <= 0 || limit <= 0 || dest <= 0 {
		return axisClip{}
	}

	lowExtra := math.Max(0, -lo)
	highExtra := math.Max(0, hi-float64(limit))

	clippedLo := math.Max(lo, 0)
	clippedHi := math.Min(hi, float64(limit))
	if clippedHi <= clippedLo {
		return axisClip{}
	}

	var a axisClip
	a.offset = int(math.Floor(clippedLo))
	a.length = int(math.Ceil(clippedHi)) - a.offset
	if a.offset+a.length > limit {
		a.length = limit - a.offset
	}

	a.destStart = int(math.Round(lowExtra / span * float64(dest)))
	destEnd := int(math.Round(highExtra / span * float64(dest)))
	if a.destStart > dest {
		a.destStart = dest
	}
	a.destUsable = max(0, dest-a.destStart-destEnd)

	cell := span / float64(dest)
	a.fracStart = lo + float64(a.destStart)*cell
	a.fracSpan = float64(a.destUsable) * cell
	return a
}
