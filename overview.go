package rasterview

import "fmt"

// TargetPixelsPerCell is the source pixel density per display cell a
// level must exceed to be chosen over full resolution.
const TargetPixelsPerCell = 1.0

// SelectLevel picks the resolution level to read for extent. Level 0 is
// full resolution and level k is overview k-1. Among the overviews dense
// enough to oversample the display, the one closest to the target wins;
// when none qualifies full resolution is used.
func SelectLevel(ds Dataset, extent ViewExtent) (int, error) {
	overviews := ds.Overviews()
	if len(overviews) == 0 {
		return 0, nil
	}

	gt, ok := ds.GeoTransform()
	if !ok {
		return 0, ErrNoGeoTransform
	}
	nativePixelSize := gt.PixelSize()
	if nativePixelSize == 0 {
		return 0, fmt.Errorf("%w: zero pixel size", ErrSingularTransform)
	}

	full := ds.Size()
	best := 0
	bestDensity := extent.MetersPerCell / nativePixelSize
	for i, ov := range overviews {
		if ov.Width <= 0 {
			continue
		}
		reduction := float64(full.Width) / float64(ov.Width)
		density := extent.MetersPerCell / (nativePixelSize * reduction)
		if density > TargetPixelsPerCell && density < bestDensity {
			best = i + 1
			bestDensity = density
		}
	}
	return best, nil
}
