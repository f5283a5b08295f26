package rasterview

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jamesrr39/goutil/logpkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openerFor(ds Dataset) Option {
	return WithOpener(func(string) (Dataset, error) {
		return ds, nil
	})
}

func Test_Session_renderRGB(t *testing.T) {
	ds := newFakeDataset(20, 10, 4).withStats(0, 500, 250, 100)

	var logs bytes.Buffer
	session, err := OpenFile("four.tif", DefaultStretchRules(), nil,
		openerFor(ds),
		WithLogger(logpkg.NewLogger(&logs, logpkg.LogLevelDebug)),
	)
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, StateOpen, session.State())
	assert.Equal(t, "RGB 4 3 2 Standard Deviation 2.00", session.Status())
	assert.Contains(t, logs.String(), "four.tif: 4 bands")

	extent, err := session.FullExtent(20, 10)
	require.NoError(t, err)
	assert.Equal(t, ViewExtent{CenterX: 1100, CenterY: 1950, MetersPerCell: 10}, extent)

	img, err := session.Render(extent, 20, 10)
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, session.State())
	assert.Same(t, img, session.Image())
	assert.Empty(t, session.ErrorMessage())

	// red is band 4, green band 3 and blue band 2 at pixel (0, 0)
	assert.Equal(t, byte(223), img.At(0, 0, 0))
	assert.Equal(t, byte(159), img.At(0, 0, 1))
	assert.Equal(t, byte(95), img.At(0, 0, 2))

	assert.Empty(t, ds.bands[0].reads)
	assert.Len(t, ds.bands[1].reads, 1)
}

func Test_Session_renderColorTable(t *testing.T) {
	ds := newFakeDataset(4, 4, 1)
	band := ds.bands[0]
	band.metadata[MetadataLayerType] = LayerTypeThematic
	band.rat = colourTable(
		[3]float64{255, 0, 0},
		[3]float64{0, 255, 0},
		[3]float64{0, 0, 255},
	)
	band.value = func(level, x, y int) float32 {
		return float32(x % 3)
	}

	session, err := OpenFile("classes.tif", DefaultStretchRules(), nil, openerFor(ds))
	require.NoError(t, err)
	defer session.Close()
	assert.Equal(t, "Color Table 1 No Stretch", session.Status())

	extent, err := session.FullExtent(4, 4)
	require.NoError(t, err)
	img, err := session.Render(extent, 4, 4)
	require.NoError(t, err)

	row := img.Pix[:4*channels]
	assert.Equal(t, []byte{
		255, 0, 0,
		0, 255, 0,
		0, 0, 255,
		255, 0, 0,
	}, row)
}

func Test_Session_renderColorTable_margin(t *testing.T) {
	ds := newFakeDataset(10, 10, 1)
	band := ds.bands[0]
	band.metadata[MetadataLayerType] = LayerTypeThematic
	band.rat = colourTable(
		[3]float64{200, 50, 50},
		[3]float64{0, 0, 255},
	)
	band.value = func(level, x, y int) float32 {
		return 1
	}

	session, err := OpenFile("classes.tif", DefaultStretchRules(), nil, openerFor(ds))
	require.NoError(t, err)
	defer session.Close()

	// centred on the west edge so the left half of the view is off the raster
	img, err := session.Render(ViewExtent{CenterX: 1000, CenterY: 1950, MetersPerCell: 10}, 10, 10)
	require.NoError(t, err)

	for row := 0; row < 10; row++ {
		for col := 0; col < 10; col++ {
			want := []byte{0, 0, 255}
			if col < 5 {
				want = []byte{0, 0, 0}
			}
			i := img.Index(row, col, 0)
			require.Equal(t, want, img.Pix[i:i+channels], "cell %d,%d", row, col)
		}
	}
}

func Test_Session_renderFailure(t *testing.T) {
	// stddev stretch without statistics
	ds := newFakeDataset(10, 10, 4)

	session, err := OpenFile("nostats.tif", DefaultStretchRules(), nil, openerFor(ds))
	require.NoError(t, err)
	defer session.Close()

	extent, err := session.FullExtent(10, 10)
	require.NoError(t, err)

	_, err = session.Render(extent, 10, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingStatistics)
	assert.Equal(t, StateFailed, session.State())
	assert.Nil(t, session.Image())
	assert.Contains(t, session.ErrorMessage(), "gdalcalcstats")

	// a later successful render recovers
	ds.withStats(0, 500, 250, 100)
	_, err = session.Render(extent, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, session.State())
	assert.Empty(t, session.ErrorMessage())
}

func Test_Session_previousImageDropped(t *testing.T) {
	ds := newFakeDataset(10, 10, 1)

	session, err := OpenFile("grey.tif", DefaultStretchRules(), nil, openerFor(ds))
	require.NoError(t, err)
	defer session.Close()

	extent, err := session.FullExtent(10, 10)
	require.NoError(t, err)
	_, err = session.Render(extent, 10, 10)
	require.NoError(t, err)
	require.NotNil(t, session.Image())

	ds.readErr = errors.New("read failed")
	_, err = session.Render(extent, 10, 10)
	require.Error(t, err)
	assert.Nil(t, session.Image())
}

func Test_Session_errorMessageBounded(t *testing.T) {
	ds := newFakeDataset(10, 10, 1)
	ds.readErr = errors.New(strings.Repeat("x", 5000))

	session, err := OpenFile("grey.tif", DefaultStretchRules(), nil, openerFor(ds))
	require.NoError(t, err)
	defer session.Close()

	extent, err := session.FullExtent(10, 10)
	require.NoError(t, err)
	_, err = session.Render(extent, 10, 10)
	require.Error(t, err)
	assert.Len(t, session.ErrorMessage(), maxErrorMessage)
}

func Test_Session_render_allocation(t *testing.T) {
	ds := newFakeDataset(10, 10, 1)

	session, err := OpenFile("grey.tif", DefaultStretchRules(), nil, openerFor(ds))
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Render(ViewExtent{CenterX: 1050, CenterY: 1950, MetersPerCell: 1}, MaxBufferPixels, 2)
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, StateFailed, session.State())
}

func Test_OpenFile_errors(t *testing.T) {
	openErr := errors.New("no such file")
	_, err := OpenFile("missing.tif", DefaultStretchRules(), nil, WithOpener(func(string) (Dataset, error) {
		return nil, openErr
	}))
	assert.ErrorIs(t, err, ErrDatasetOpen)
	assert.ErrorIs(t, err, openErr)
	assert.Contains(t, err.Error(), "missing.tif")

	ds := newFakeDataset(10, 10, 1)
	_, err = OpenFile("one.tif", StretchRuleList{mustRule("equal,3,-1,rgb,none,,1|2|3")}, nil, openerFor(ds))
	assert.ErrorIs(t, err, ErrNoStretchMatch)
	assert.Equal(t, 1, ds.closed)

	ds = newFakeDataset(10, 10, 3)
	override := mustRule("equal,3,-1,rgb,none,,5|2|1")
	_, err = OpenFile("three.tif", nil, &override, openerFor(ds))
	assert.ErrorIs(t, err, ErrBandOutOfRange)
	assert.Equal(t, 1, ds.closed)

	ds = newFakeDataset(10, 10, 1)
	override = mustRule("equal,1,-1,colortable,none,,1")
	_, err = OpenFile("grey.tif", nil, &override, openerFor(ds))
	assert.ErrorIs(t, err, ErrMissingAttributeColumns)

	ds = newFakeDataset(10, 10, 1)
	override = StretchRule{Mode: RGB, ColorTable: NoColorTableBand}
	_, err = OpenFile("grey.tif", nil, &override, openerFor(ds))
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func Test_OpenFile_override(t *testing.T) {
	ds := newFakeDataset(10, 10, 3).withStats(0, 255, 0, 0)
	override := mustRule("equal,3,-1,greyscale,linear,,2")

	session, err := OpenFile("three.tif", DefaultStretchRules(), &override, openerFor(ds))
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, override, session.Rule())
	assert.Equal(t, "GreyScale 2 Linear Stretch 0.00 - 0.00", session.Status())
}

func Test_Session_Close(t *testing.T) {
	ds := newFakeDataset(10, 10, 1)

	session, err := OpenFile("grey.tif", DefaultStretchRules(), nil, openerFor(ds))
	require.NoError(t, err)

	require.NoError(t, session.Close())
	assert.Equal(t, StateClosed, session.State())
	assert.Nil(t, session.Dataset())
	assert.Equal(t, 1, ds.closed)

	require.NoError(t, session.Close())
	assert.Equal(t, 1, ds.closed)

	_, err = session.Render(ViewExtent{MetersPerCell: 1}, 10, 10)
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, err = session.FullExtent(10, 10)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func Test_Session_FullExtent(t *testing.T) {
	ds := newFakeDataset(100, 100, 1)

	session, err := OpenFile("grey.tif", DefaultStretchRules(), nil, openerFor(ds))
	require.NoError(t, err)
	defer session.Close()

	extent, err := session.FullExtent(200, 100)
	require.NoError(t, err)
	assert.Equal(t, ViewExtent{CenterX: 1500, CenterY: 1500, MetersPerCell: 10}, extent)

	_, err = session.FullExtent(0, 100)
	assert.ErrorIs(t, err, ErrAllocation)

	ds.hasGT = false
	_, err = session.FullExtent(200, 100)
	assert.ErrorIs(t, err, ErrNoGeoTransform)
}

func Test_SessionState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "failed", StateFailed.String())
}
