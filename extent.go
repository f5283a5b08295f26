package rasterview

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const (
	// ZoomFactor is the scale change of one zoom step.
	ZoomFactor = 1.08
	// MaxZoom bounds zoom steps in either direction.
	MaxZoom = 70
	// PanStep is the share of the view span moved by one pan step.
	PanStep = 0.15
)

// ViewExtent is the requested view: a georeferenced centre and the ground
// distance covered by one display cell.
type ViewExtent struct {
	CenterX       float64
	CenterY       float64
	MetersPerCell float64
}

// Center returns the view centre.
func (e ViewExtent) Center() orb.Point {
	return orb.Point{e.CenterX, e.CenterY}
}

// Bound returns the georeferenced area a width x height display covers.
func (e ViewExtent) Bound(width, height int) orb.Bound {
	halfW := float64(width) / 2 * e.MetersPerCell
	halfH := float64(height) / 2 * e.MetersPerCell
	return orb.Bound{
		Min: orb.Point{e.CenterX - halfW, e.CenterY - halfH},
		Max: orb.Point{e.CenterX + halfW, e.CenterY + halfH},
	}
}

// ZoomScale is the magnification of a zoom level, clamped to MaxZoom.
func ZoomScale(zoom int) float64 {
	if zoom > MaxZoom {
		zoom = MaxZoom
	}
	if zoom < -MaxZoom {
		zoom = -MaxZoom
	}
	return math.Pow(ZoomFactor, float64(zoom))
}

// WithZoom keeps the centre of e and sets the cell size to that of full
// magnified by zoom steps. Positive zoom shows more detail.
func (e ViewExtent) WithZoom(full ViewExtent, zoom int) ViewExtent {
	e.MetersPerCell = full.MetersPerCell / ZoomScale(zoom)
	return e
}

// Pan moves the centre by whole pan steps of a width x height view. dx is
// positive eastwards and dy positive northwards.
func (e ViewExtent) Pan(dx, dy float64, width, height int) ViewExtent {
	e.CenterX += dx * PanStep * float64(width) * e.MetersPerCell
	e.CenterY += dy * PanStep * float64(height) * e.MetersPerCell
	return e
}

// ExtentForBound fits bound into a width x height display, using the
// coarser of the two axis resolutions so the whole bound is visible.
func ExtentForBound(bound orb.Bound, width, height int) ViewExtent {
	center := bound.Center()
	mpc := math.Max(
		(bound.Max[0]-bound.Min[0])/float64(width),
		(bound.Max[1]-bound.Min[1])/float64(height),
	)
	return ViewExtent{CenterX: center[0], CenterY: center[1], MetersPerCell: mpc}
}

// TileExtent returns the square view covering a slippy-map tile rendered at
// tileSize cells a side, in the units of crs (EPSG:4326 or EPSG:3857).
func TileExtent(tile maptile.Tile, tileSize int, crs string) (ViewExtent, error) {
	if tileSize <= 0 {
		tileSize = 256
	}

	code, err := ParseEPSGCode(crs)
	if err != nil {
		return ViewExtent{}, err
	}

	// tile.Bound() is in WGS84
	bound := tile.Bound()
	switch code {
	case 4326:
	case 3857:
		bound = wgs84ToMercator(bound)
	default:
		return ViewExtent{}, fmt.Errorf("unsupported CRS for tiles: %q (only EPSG:4326 and EPSG:3857 are supported)", crs)
	}
	return ExtentForBound(bound, tileSize, tileSize), nil
}

// wgs84ToMercator converts WGS84 (EPSG:4326) bounds to Web Mercator (EPSG:3857) bounds
func wgs84ToMercator(bound orb.Bound) orb.Bound {
	const maxMercator = 20037508.342789244

	project := func(p orb.Point) orb.Point {
		x := p[0] / 180.0 * maxMercator
		y := math.Log(math.Tan((90.0+p[1])*math.Pi/360.0)) / math.Pi * maxMercator
		return orb.Point{x, y}
	}
	return orb.Bound{Min: project(bound.Min), Max: project(bound.Max)}
}
