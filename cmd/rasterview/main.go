package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/goutil/userextra"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/maptile"
	"github.com/tingold/rasterview"
	"github.com/valyala/fasthttp"
	"golang.org/x/image/tiff"
	"gopkg.in/alecthomas/kingpin.v2"
)

const (
	DEFAULT_WIDTH  = 800
	DEFAULT_HEIGHT = 600
)

var (
	logger     *logpkg.Logger
	configPath *string
	httpClient = &fasthttp.Client{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
)

func main() {
	verbose := kingpin.Flag("v", "verbose logging").Bool()
	configPath = kingpin.Flag("config", "configuration file").Default("~/" + rasterview.ConfigFileName).String()

	setupRender()
	setupInfo()

	kingpin.CommandLine.PreAction(func(*kingpin.ParseContext) error {
		logLevel := logpkg.LogLevelInfo
		if *verbose {
			logLevel = logpkg.LogLevelDebug
		}
		logger = logpkg.NewLogger(os.Stderr, logLevel)
		return nil
	})

	kingpin.Parse()
}

func loadConfig() (*rasterview.Config, errorsx.Error) {
	path, err := userextra.ExpandUser(*configPath)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	conf, cerr := rasterview.LoadConfig(path)
	if cerr != nil {
		return nil, cerr
	}
	logger.Debug("config %q: %d rules, driver %q", path, len(conf.Rules), conf.Driver)
	return conf, nil
}

func openSession(path string, conf *rasterview.Config, ruleOverride string) (*rasterview.Session, errorsx.Error) {
	var override *rasterview.StretchRule
	if ruleOverride != "" {
		rule, err := rasterview.ParseStretchRule(ruleOverride)
		if err != nil {
			return nil, errorsx.Wrap(err, "rule", ruleOverride)
		}
		override = &rule
	}

	session, err := rasterview.OpenFile(
		path,
		conf.Rules,
		override,
		rasterview.WithLogger(logger),
		rasterview.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, errorsx.Wrap(err, "path", path)
	}
	return session, nil
}

func setupRender() {
	cmd := kingpin.Command("render", "render a view of each raster to an image file")
	files := cmd.Arg("files", "GeoTIFF files or http(s) URLs").Required().Strings()
	width := cmd.Flag("width", "image width in cells").Default(strconv.Itoa(DEFAULT_WIDTH)).Int()
	height := cmd.Flag("height", "image height in cells").Default(strconv.Itoa(DEFAULT_HEIGHT)).Int()
	outDir := cmd.Flag("out", "output directory").Default(".").String()
	ruleOverride := cmd.Flag("rule", "stretch rule to use instead of the configured rules").String()
	zoom := cmd.Flag("zoom", "zoom steps in from the full extent (negative zooms out)").Int()
	panX := cmd.Flag("pan-x", "pan steps east (negative pans west)").Float64()
	panY := cmd.Flag("pan-y", "pan steps north (negative pans south)").Float64()
	tileFlag := cmd.Flag("tile", "render the slippy map tile z/x/y instead of the full extent; width is used as the tile size").String()
	cmd.Action(func(ctx *kingpin.ParseContext) (err error) {
		defer func() {
			errorx, ok := err.(errorsx.Error)
			if ok {
				log.Printf("%s\n%s\n", errorx.Error(), errorx.Stack())
			}
		}()

		conf, cerr := loadConfig()
		if cerr != nil {
			return cerr
		}
		encode, cerr := encoderForDriver(conf.Driver)
		if cerr != nil {
			return cerr
		}

		var tile *maptile.Tile
		if *tileFlag != "" {
			t, cerr := parseTile(*tileFlag)
			if cerr != nil {
				return cerr
			}
			tile = &t
			*height = *width
		}

		failed := 0
		for _, file := range *files {
			view := viewParams{
				width:  *width,
				height: *height,
				zoom:   *zoom,
				panX:   *panX,
				panY:   *panY,
				tile:   tile,
			}
			outPath := filepath.Join(*outDir, outputName(file, conf.Driver))
			if cerr := renderFile(file, outPath, conf, *ruleOverride, view, encode); cerr != nil {
				// keep going with the remaining files
				logger.Error("%s: %s", file, cerr.Error())
				failed++
				continue
			}
			logger.Info("wrote %s", outPath)
		}
		if failed > 0 {
			return errorsx.Errorf("%d of %d files failed to render", failed, len(*files))
		}
		return nil
	})
}

type viewParams struct {
	width, height int
	zoom          int
	panX, panY    float64
	tile          *maptile.Tile
}

func renderFile(path, outPath string, conf *rasterview.Config, ruleOverride string, view viewParams, encode encodeFunc) errorsx.Error {
	session, cerr := openSession(path, conf, ruleOverride)
	if cerr != nil {
		return cerr
	}
	defer session.Close()

	extent, cerr := viewExtent(session, view)
	if cerr != nil {
		return cerr
	}

	logger.Debug("%s: view %s", path, wkt.MarshalString(rasterview.ViewPolygon(extent, view.width, view.height)))

	startTime := time.Now()
	img, err := session.Render(extent, view.width, view.height)
	if err != nil {
		return errorsx.Wrap(err, "path", path)
	}
	logger.Debug("%s: rendered %dx%d with %s in %s", path, view.width, view.height, session.Status(), time.Since(startTime))

	file, err := os.Create(outPath)
	if err != nil {
		return errorsx.Wrap(err)
	}
	defer file.Close()

	if err := encode(file, img.RGBA()); err != nil {
		return errorsx.Wrap(err, "outPath", outPath)
	}
	return nil
}

func viewExtent(session *rasterview.Session, view viewParams) (rasterview.ViewExtent, errorsx.Error) {
	if view.tile != nil {
		crs := ""
		if ds, ok := session.Dataset().(interface{ CRS() string }); ok {
			crs = ds.CRS()
		}
		extent, err := rasterview.TileExtent(*view.tile, view.width, crs)
		if err != nil {
			return rasterview.ViewExtent{}, errorsx.Wrap(err, "tile", fmt.Sprintf("%d/%d/%d", view.tile.Z, view.tile.X, view.tile.Y))
		}
		return extent, nil
	}

	full, err := session.FullExtent(view.width, view.height)
	if err != nil {
		return rasterview.ViewExtent{}, errorsx.Wrap(err)
	}
	return full.WithZoom(full, view.zoom).Pan(view.panX, view.panY, view.width, view.height), nil
}

type encodeFunc func(w io.Writer, img image.Image) error

// encoderForDriver maps the configured Driver to an image encoder.
func encoderForDriver(driver string) (encodeFunc, errorsx.Error) {
	switch strings.ToLower(driver) {
	case "", "png":
		return png.Encode, nil
	case "tiff", "gtiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	}
	return nil, errorsx.Errorf("unsupported driver %q, expected png or tiff", driver)
}

func outputName(path, driver string) string {
	ext := ".png"
	switch strings.ToLower(driver) {
	case "tiff", "gtiff":
		ext = ".tif"
	}
	base := filepath.Base(path)
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

// parseTile parses z/x/y
func parseTile(s string) (maptile.Tile, errorsx.Error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return maptile.Tile{}, errorsx.Errorf("tile %q is not z/x/y", s)
	}
	var values [3]uint64
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return maptile.Tile{}, errorsx.Wrap(err, "tile", s)
		}
		values[i] = v
	}
	return maptile.New(uint32(values[1]), uint32(values[2]), maptile.Zoom(values[0])), nil
}

func setupInfo() {
	cmd := kingpin.Command("info", "print size, overviews, georeferencing and the matched stretch of each raster")
	files := cmd.Arg("files", "GeoTIFF files or http(s) URLs").Required().Strings()
	cmd.Action(func(ctx *kingpin.ParseContext) error {
		conf, err := loadConfig()
		errorsx.ExitIfErr(err)

		for _, file := range *files {
			err = printInfo(os.Stdout, file, conf)
			errorsx.ExitIfErr(err)
		}
		return nil
	})
}

func printInfo(w io.Writer, path string, conf *rasterview.Config) errorsx.Error {
	session, err := openSession(path, conf, "")
	if err != nil {
		return err
	}
	defer session.Close()

	ds := session.Dataset()
	size := ds.Size()
	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  size:      %d x %d, %d bands\n", size.Width, size.Height, ds.BandCount())
	for i, ov := range ds.Overviews() {
		fmt.Fprintf(w, "  overview %d: %d x %d\n", i+1, ov.Width, ov.Height)
	}
	if withCRS, ok := ds.(interface{ CRS() string }); ok && withCRS.CRS() != "" {
		fmt.Fprintf(w, "  crs:       %s\n", withCRS.CRS())
	}
	if footprint, ok := rasterview.Footprint(ds); ok {
		fmt.Fprintf(w, "  footprint: %s\n", wkt.MarshalString(footprint))
	}
	fmt.Fprintf(w, "  stretch:   %s\n", session.Status())
	return nil
}
