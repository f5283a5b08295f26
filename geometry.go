package rasterview

import (
	"github.com/paulmach/orb"
)

// PolygonFromBounds creates a polygon from a bounding box
func PolygonFromBounds(bound orb.Bound) orb.Polygon {
	if bound.IsEmpty() {
		return orb.Polygon{}
	}

	ring := orb.Ring{
		{bound.Min[0], bound.Min[1]}, // Bottom-left
		{bound.Max[0], bound.Min[1]}, // Bottom-right
		{bound.Max[0], bound.Max[1]}, // Top-right
		{bound.Min[0], bound.Max[1]}, // Top-left
		{bound.Min[0], bound.Min[1]}, // Close ring
	}

	return orb.Polygon{ring}
}

// Footprint returns the georeferenced outline of a dataset. Unlike its
// bounding box it follows rotated geotransforms.
func Footprint(ds Dataset) (orb.Polygon, bool) {
	gt, ok := ds.GeoTransform()
	if !ok {
		return nil, false
	}

	size := ds.Size()
	w, h := float64(size.Width), float64(size.Height)
	ring := orb.Ring{
		gt.Apply(0, 0), // Top-left
		gt.Apply(w, 0), // Top-right
		gt.Apply(w, h), // Bottom-right
		gt.Apply(0, h), // Bottom-left
		gt.Apply(0, 0), // Close ring
	}
	return orb.Polygon{ring}, true
}

// ViewPolygon is the area a width x height display of extent covers
func ViewPolygon(extent ViewExtent, width, height int) orb.Polygon {
	return PolygonFromBounds(extent.Bound(width, height))
}
