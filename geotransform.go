package rasterview

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
)

// GeoTransform holds the six affine coefficients mapping pixel/line to
// georeferenced coordinates:
//
//	X = gt[0] + px*gt[1] + py*gt[2]
//	Y = gt[3] + px*gt[4] + py*gt[5]
type GeoTransform [6]float64

// Apply maps a pixel/line position to georeferenced coordinates.
func (gt GeoTransform) Apply(px, py float64) orb.Point {
	return orb.Point{
		gt[0] + px*gt[1] + py*gt[2],
		gt[3] + px*gt[4] + py*gt[5],
	}
}

// PixelSize is the ground length of one full resolution pixel along a row.
func (gt GeoTransform) PixelSize() float64 {
	return math.Hypot(gt[1], gt[4])
}

// Scaled returns the transform for a level whose pixels span factorX by
// factorY full resolution pixels.
func (gt GeoTransform) Scaled(factorX, factorY float64) GeoTransform {
	return GeoTransform{
		gt[0], gt[1] * factorX, gt[2] * factorY,
		gt[3], gt[4] * factorX, gt[5] * factorY,
	}
}

// Invert returns the transform mapping georeferenced coordinates back to
// pixel/line.
func (gt GeoTransform) Invert() (GeoTransform, error) {
	m := mat.NewDense(3, 3, []float64{
		gt[1], gt[2], gt[0],
		gt[4], gt[5], gt[3],
		0, 0, 1,
	})

	// An ill-conditioned but finite inverse is still usable.
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 0) {
			return GeoTransform{}, fmt.Errorf("%w: %v", ErrSingularTransform, err)
		}
	}

	return GeoTransform{
		inv.At(0, 2), inv.At(0, 0), inv.At(0, 1),
		inv.At(1, 2), inv.At(1, 0), inv.At(1, 1),
	}, nil
}

// Bounds returns the georeferenced bounding box of a raster of the given size.
func (gt GeoTransform) Bounds(size Size) orb.Bound {
	w, h := float64(size.Width), float64(size.Height)
	b := orb.Bound{Min: gt.Apply(0, 0), Max: gt.Apply(0, 0)}
	for _, p := range []orb.Point{gt.Apply(w, 0), gt.Apply(0, h), gt.Apply(w, h)} {
		b = b.Extend(p)
	}
	return b
}
