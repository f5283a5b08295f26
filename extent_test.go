package rasterview

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ViewExtent_Bound(t *testing.T) {
	e := ViewExtent{CenterX: 100, CenterY: 50, MetersPerCell: 2}

	assert.Equal(t, orb.Point{100, 50}, e.Center())
	assert.Equal(t, orb.Bound{
		Min: orb.Point{80, 40},
		Max: orb.Point{120, 60},
	}, e.Bound(20, 10))
}

func Test_ViewExtent_WithZoom(t *testing.T) {
	full := ViewExtent{CenterX: 0, CenterY: 0, MetersPerCell: 100}
	view := ViewExtent{CenterX: 10, CenterY: 20, MetersPerCell: 3}

	zoomed := view.WithZoom(full, 1)
	assert.Equal(t, 10.0, zoomed.CenterX)
	assert.Equal(t, 20.0, zoomed.CenterY)
	assert.InDelta(t, 100/1.08, zoomed.MetersPerCell, 1e-9)

	assert.InDelta(t, 100*1.08*1.08, view.WithZoom(full, -2).MetersPerCell, 1e-9)
	assert.Equal(t, full.MetersPerCell, view.WithZoom(full, 0).MetersPerCell)

	// clamped
	assert.Equal(t, view.WithZoom(full, MaxZoom), view.WithZoom(full, MaxZoom+30))
	assert.Equal(t, view.WithZoom(full, -MaxZoom), view.WithZoom(full, -MaxZoom-1))
}

func Test_ZoomScale(t *testing.T) {
	assert.Equal(t, 1.0, ZoomScale(0))
	assert.InDelta(t, math.Pow(1.08, 70), ZoomScale(100), 1e-6)
	assert.InDelta(t, math.Pow(1.08, -70), ZoomScale(-100), 1e-12)
}

func Test_ViewExtent_Pan(t *testing.T) {
	e := ViewExtent{CenterX: 0, CenterY: 0, MetersPerCell: 10}

	panned := e.Pan(1, -2, 100, 50)
	assert.InDelta(t, 150, panned.CenterX, 1e-9)
	assert.InDelta(t, -150, panned.CenterY, 1e-9)
	assert.Equal(t, e.MetersPerCell, panned.MetersPerCell)
}

func Test_ExtentForBound(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{400, 100}}

	assert.Equal(t, ViewExtent{CenterX: 200, CenterY: 50, MetersPerCell: 2}, ExtentForBound(bound, 200, 200))
	assert.Equal(t, ViewExtent{CenterX: 200, CenterY: 50, MetersPerCell: 4}, ExtentForBound(bound, 100, 100))
}

func Test_TileExtent(t *testing.T) {
	tile := maptile.New(0, 0, 0)

	geographic, err := TileExtent(tile, 256, "EPSG:4326")
	require.NoError(t, err)
	assert.InDelta(t, 0, geographic.CenterX, 1e-9)
	assert.InDelta(t, 360.0/256, geographic.MetersPerCell, 1e-6)

	mercator, err := TileExtent(tile, 256, "EPSG:3857")
	require.NoError(t, err)
	assert.InDelta(t, 0, mercator.CenterX, 1e-6)
	assert.InDelta(t, 0, mercator.CenterY, 1e-3)
	assert.InDelta(t, 2*20037508.342789244/256, mercator.MetersPerCell, 1e-3)

	_, err = TileExtent(tile, 256, "EPSG:32633")
	assert.Error(t, err)

	_, err = TileExtent(tile, 256, "")
	assert.Error(t, err)
}
