package rasterview

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"io/fs"
	"math"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/valyala/fasthttp"
	"golang.org/x/image/tiff/lzw"
)

// Photometric interpretations
const (
	photometricWhiteIsZero = 0
	photometricBlackIsZero = 1
	photometricRGB         = 2
	photometricPalette     = 3
	photometricYCbCr       = 6
)

// SampleFormat values
const (
	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

const predictorHorizontal = 2

// imageLevel is one resolution level: the full resolution image or a
// reduced-resolution IFD
type imageLevel struct {
	ifd *IFD

	width, height   int
	samplesPerPixel int
	bitsPerSample   int
	sampleFormat    int
	planar          bool
	compression     int
	predictor       int
	photometric     int

	// Strips are treated as chunks one image row wide
	tiled                   bool
	chunkWidth, chunkHeight int
	offsets, byteCounts     []uint64
	jpegTables              []byte
}

func (lv *imageLevel) bytesPerSample() int {
	return lv.bitsPerSample / 8
}

// samplesPerChunkPixel is the number of interleaved samples in a chunk
func (lv *imageLevel) samplesPerChunkPixel() int {
	if lv.planar {
		return 1
	}
	return lv.samplesPerPixel
}

func (lv *imageLevel) chunksAcross() int {
	return (lv.width + lv.chunkWidth - 1) / lv.chunkWidth
}

func (lv *imageLevel) chunksDown() int {
	return (lv.height + lv.chunkHeight - 1) / lv.chunkHeight
}

// chunkRows is the number of rows stored in the chunks of a chunk row.
// Tiles are always full size; the last strip may be short.
func (lv *imageLevel) chunkRows(chunkRow int) int {
	if lv.tiled {
		return lv.chunkHeight
	}
	return min(lv.chunkHeight, lv.height-chunkRow*lv.chunkHeight)
}

// GeoTIFF is a Dataset backed by a GeoTIFF or Cloud Optimized GeoTIFF,
// local or over HTTP. Level 0 is the first full resolution IFD; reduced
// resolution IFDs are its overviews, finest first.
type GeoTIFF struct {
	closer   io.Closer
	tr       *TIFFReader
	levels   []*imageLevel
	geo      *GeoInfo
	metadata map[string]string
	bands    []*geotiffBand
	closed   bool
}

// OpenGeoTIFF opens a local file or an http(s) URL. A "<path>.aux.xml"
// sidecar is read when present.
func OpenGeoTIFF(pathOrURL string, client *fasthttp.Client) (*GeoTIFF, error) {
	if isRemote(pathOrURL) {
		rr, err := NewHTTPRangeReader(pathOrURL, client)
		if err != nil {
			return nil, err
		}
		sidecar, _, err := fetchURL(client, pathOrURL+PAMSuffix)
		if err != nil {
			return nil, err
		}
		return ReadGeoTIFF(rr, sidecar)
	}

	f, err := os.Open(pathOrURL)
	if err != nil {
		return nil, err
	}
	sidecar, err := os.ReadFile(pathOrURL + PAMSuffix)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.Close()
		return nil, err
	}

	g, err := ReadGeoTIFF(f, sidecar)
	if err != nil {
		f.Close()
		return nil, err
	}
	g.closer = f
	return g, nil
}

// ReadGeoTIFF reads a GeoTIFF from r. sidecar holds the PAM document, or
// nil.
func ReadGeoTIFF(r io.ReadSeeker, sidecar []byte) (*GeoTIFF, error) {
	tr, err := NewTIFFReader(r)
	if err != nil {
		return nil, err
	}

	g := &GeoTIFF{tr: tr, metadata: make(map[string]string)}
	if err := g.readLevels(); err != nil {
		return nil, err
	}

	full := g.levels[0]
	if g.geo, err = readGeoInfo(tr, full.ifd); err != nil {
		return nil, err
	}

	if err := g.readBands(sidecar); err != nil {
		return nil, err
	}
	return g, nil
}

// readLevels classifies IFDs: the first image that is neither a mask nor
// reduced is full resolution, reduced images matching its band layout are
// overviews
func (g *GeoTIFF) readLevels() error {
	var overviews []*imageLevel
	for i := 0; i < g.tr.IFDCount(); i++ {
		ifd := g.tr.GetIFD(i)
		subfile, err := g.tr.Uint(ifd, TagNewSubfileType, 0)
		if err != nil {
			return err
		}
		if subfile&subfileMask != 0 {
			continue
		}

		lv, err := g.readLevel(ifd)
		if err != nil {
			return fmt.Errorf("IFD %d: %w", i, err)
		}

		switch {
		case len(g.levels) == 0 && subfile&subfileReducedImage == 0:
			g.levels = append(g.levels, lv)
		case subfile&subfileReducedImage != 0:
			overviews = append(overviews, lv)
		}
	}
	if len(g.levels) == 0 {
		return fmt.Errorf("no full resolution image found")
	}

	full := g.levels[0]
	sort.SliceStable(overviews, func(i, j int) bool {
		return overviews[i].width > overviews[j].width
	})
	for _, ov := range overviews {
		if ov.samplesPerPixel != full.samplesPerPixel || ov.width >= full.width {
			continue
		}
		g.levels = append(g.levels, ov)
	}
	return nil
}

func (g *GeoTIFF) readLevel(ifd *IFD) (*imageLevel, error) {
	tr := g.tr
	lv := &imageLevel{ifd: ifd}

	fields := []struct {
		id  uint16
		def uint64
		dst *int
	}{
		{TagImageWidth, 0, &lv.width},
		{TagImageLength, 0, &lv.height},
		{TagSamplesPerPixel, 1, &lv.samplesPerPixel},
		{TagSampleFormat, sampleFormatUint, &lv.sampleFormat},
		{TagCompression, CompressionNone, &lv.compression},
		{TagPredictor, 1, &lv.predictor},
		{TagPhotometricInterpretation, photometricBlackIsZero, &lv.photometric},
	}
	for _, f := range fields {
		v, err := tr.Uint(ifd, f.id, f.def)
		if err != nil {
			return nil, err
		}
		*f.dst = int(v)
	}
	if lv.width <= 0 || lv.height <= 0 {
		return nil, fmt.Errorf("invalid image size %d x %d", lv.width, lv.height)
	}
	if lv.samplesPerPixel <= 0 {
		return nil, fmt.Errorf("invalid samples per pixel %d", lv.samplesPerPixel)
	}

	bits, err := tr.Uints(ifd, TagBitsPerSample)
	if err != nil {
		return nil, err
	}
	lv.bitsPerSample = 1
	if len(bits) > 0 {
		lv.bitsPerSample = int(bits[0])
	}
	for _, b := range bits {
		if int(b) != lv.bitsPerSample {
			return nil, fmt.Errorf("mixed bits per sample %v", bits)
		}
	}
	if err := checkSampleType(lv.bitsPerSample, lv.sampleFormat); err != nil {
		return nil, err
	}

	planar, err := tr.Uint(ifd, TagPlanarConfiguration, 1)
	if err != nil {
		return nil, err
	}
	lv.planar = planar == 2 && lv.samplesPerPixel > 1

	if lv.predictor != 1 && lv.predictor != predictorHorizontal {
		return nil, fmt.Errorf("unsupported predictor %d", lv.predictor)
	}
	if lv.predictor == predictorHorizontal && lv.sampleFormat == sampleFormatFloat {
		return nil, fmt.Errorf("horizontal predictor on floating point samples is not supported")
	}

	if _, ok := ifd.Tags[TagTileWidth]; ok {
		lv.tiled = true
		tw, err := tr.Uint(ifd, TagTileWidth, 0)
		if err != nil {
			return nil, err
		}
		th, err := tr.Uint(ifd, TagTileLength, 0)
		if err != nil {
			return nil, err
		}
		lv.chunkWidth, lv.chunkHeight = int(tw), int(th)
	} else {
		rows, err := tr.Uint(ifd, TagRowsPerStrip, uint64(lv.height))
		if err != nil {
			return nil, err
		}
		lv.chunkWidth = lv.width
		lv.chunkHeight = int(min(rows, uint64(lv.height)))
	}
	if lv.chunkWidth <= 0 || lv.chunkHeight <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d x %d", lv.chunkWidth, lv.chunkHeight)
	}

	if lv.compression == CompressionJPEG {
		if lv.bitsPerSample != 8 || lv.planar {
			return nil, fmt.Errorf("JPEG compression needs 8-bit interleaved samples")
		}
		if _, ok := ifd.Tags[TagJPEGTables]; ok {
			tables, err := tr.Uints(ifd, TagJPEGTables)
			if err != nil {
				return nil, err
			}
			lv.jpegTables = make([]byte, len(tables))
			for i, b := range tables {
				lv.jpegTables[i] = byte(b)
			}
		}
	}

	return lv, nil
}

func checkSampleType(bits, format int) error {
	ok := false
	switch format {
	case sampleFormatUint, sampleFormatInt:
		ok = bits == 8 || bits == 16 || bits == 32
	case sampleFormatFloat:
		ok = bits == 32 || bits == 64
	}
	if !ok {
		return fmt.Errorf("unsupported sample type: %d bits, format %d", bits, format)
	}
	return nil
}

// readBands gathers per band metadata from GDAL_METADATA and the sidecar
func (g *GeoTIFF) readBands(sidecar []byte) error {
	full := g.levels[0]
	count := full.samplesPerPixel

	aux := make([]*bandAux, count)
	for i := range aux {
		aux[i] = newBandAux()
	}

	doc, ok, err := g.tr.ASCII(full.ifd, TagGDALMetadata)
	if err != nil {
		return err
	}
	if ok {
		dataset, bands, err := parseGDALMetadata(doc, count)
		if err != nil {
			return err
		}
		for k, v := range dataset {
			g.metadata[k] = v
		}
		for i := range aux {
			aux[i].merge(bands[i])
		}
	}

	if len(sidecar) > 0 {
		dataset, bands, err := parsePAM(sidecar, count)
		if err != nil {
			return err
		}
		for k, v := range dataset {
			g.metadata[k] = v
		}
		for i := range aux {
			aux[i].merge(bands[i])
		}
	}

	if full.photometric == photometricPalette && aux[0].rat == nil {
		rat, err := g.colorMapTable(full)
		if err != nil {
			return err
		}
		if rat != nil {
			aux[0].rat = rat
			if _, ok := aux[0].metadata[MetadataLayerType]; !ok {
				aux[0].metadata[MetadataLayerType] = LayerTypeThematic
			}
		}
	}

	g.bands = make([]*geotiffBand, count)
	for i := range g.bands {
		g.bands[i] = &geotiffBand{g: g, index: i, aux: aux[i]}
	}
	return nil
}

// colorMapTable exposes a palette image's ColorMap as an attribute table
// with 8-bit Red, Green, Blue and Alpha columns
func (g *GeoTIFF) colorMapTable(lv *imageLevel) (*AttributeTable, error) {
	cmap, err := g.tr.Uints(lv.ifd, TagColorMap)
	if err != nil || cmap == nil {
		return nil, err
	}
	entries := len(cmap) / 3
	if entries == 0 {
		return nil, nil
	}

	columns := []AttributeColumn{
		{Name: "Red", Usage: UsageRed},
		{Name: "Green", Usage: UsageGreen},
		{Name: "Blue", Usage: UsageBlue},
		{Name: "Alpha", Usage: UsageAlpha},
	}
	for c := 0; c < 3; c++ {
		values := make([]float64, entries)
		for i := range values {
			values[i] = math.Round(float64(cmap[c*entries+i]) * 255 / 65535)
		}
		columns[c].Values = values
	}
	alpha := make([]float64, entries)
	for i := range alpha {
		alpha[i] = 255
	}
	columns[3].Values = alpha

	return &AttributeTable{Columns: columns}, nil
}

func (g *GeoTIFF) BandCount() int {
	return len(g.bands)
}

// Band returns band n, numbered from 1
func (g *GeoTIFF) Band(n int) (Band, error) {
	if n < 1 || n > len(g.bands) {
		return nil, fmt.Errorf("%w: band %d of %d", ErrBandOutOfRange, n, len(g.bands))
	}
	return g.bands[n-1], nil
}

func (g *GeoTIFF) Size() Size {
	return Size{Width: g.levels[0].width, Height: g.levels[0].height}
}

func (g *GeoTIFF) Overviews() []Size {
	sizes := make([]Size, 0, len(g.levels)-1)
	for _, lv := range g.levels[1:] {
		sizes = append(sizes, Size{Width: lv.width, Height: lv.height})
	}
	return sizes
}

func (g *GeoTIFF) GeoTransform() (GeoTransform, bool) {
	return g.geo.Transform, g.geo.HasTransform
}

// CRS returns the EPSG code of the dataset, e.g. "EPSG:32633", or "" when
// it is not an EPSG system
func (g *GeoTIFF) CRS() string {
	return g.geo.CRS
}

// Bounds returns the georeferenced bounding box
func (g *GeoTIFF) Bounds() orb.Bound {
	if !g.geo.HasTransform {
		return orb.Bound{}
	}
	return g.geo.Transform.Bounds(g.Size())
}

// Metadata returns a dataset level metadata item
func (g *GeoTIFF) Metadata(key string) (string, bool) {
	v, ok := g.metadata[key]
	return v, ok
}

func (g *GeoTIFF) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	if g.closer != nil {
		return g.closer.Close()
	}
	return nil
}

// loadChunkIndex reads the strip or tile offsets of a level on first use
func (g *GeoTIFF) loadChunkIndex(lv *imageLevel) error {
	if lv.offsets != nil {
		return nil
	}

	offsetTag, countTag := uint16(TagStripOffsets), uint16(TagStripByteCounts)
	if lv.tiled {
		offsetTag, countTag = TagTileOffsets, TagTileByteCounts
	}
	offsets, err := g.tr.Uints(lv.ifd, offsetTag)
	if err != nil {
		return fmt.Errorf("failed to read chunk offsets: %w", err)
	}
	counts, err := g.tr.Uints(lv.ifd, countTag)
	if err != nil {
		return fmt.Errorf("failed to read chunk byte counts: %w", err)
	}

	want := lv.chunksAcross() * lv.chunksDown()
	if lv.planar {
		want *= lv.samplesPerPixel
	}
	if len(offsets) < want || len(counts) < want {
		return fmt.Errorf("image has %d chunk offsets and %d byte counts, want %d", len(offsets), len(counts), want)
	}
	lv.offsets, lv.byteCounts = offsets, counts
	return nil
}

// readChunk reads and decodes one strip or tile
func (g *GeoTIFF) readChunk(lv *imageLevel, index, rows int) ([]byte, error) {
	spp := lv.samplesPerChunkPixel()
	size := lv.chunkWidth * rows * spp * lv.bytesPerSample()

	n := int(lv.byteCounts[index])
	if n == 0 {
		// Sparse chunk
		return make([]byte, size), nil
	}

	var raw []byte
	if lv.compression == CompressionNone {
		raw = make([]byte, n)
	} else {
		raw = getChunkBuffer(n)
		defer putChunkBuffer(raw)
	}
	if err := g.tr.ReadAt(raw, int64(lv.offsets[index])); err != nil {
		return nil, fmt.Errorf("failed to read chunk %d: %w", index, err)
	}

	data, err := decompressChunk(lv, raw, size, rows)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", index, err)
	}

	if lv.predictor == predictorHorizontal {
		undoHorizontalPredictor(data, lv.chunkWidth, spp, lv.bytesPerSample(), g.tr.ByteOrder())
	}
	return data, nil
}

// decompressChunk returns exactly size decoded bytes
func decompressChunk(lv *imageLevel, raw []byte, size, rows int) ([]byte, error) {
	switch lv.compression {
	case CompressionNone:
		if len(raw) < size {
			return nil, fmt.Errorf("uncompressed chunk holds %d bytes, expected %d", len(raw), size)
		}
		return raw[:size], nil

	case CompressionLZW:
		r := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
		defer r.Close()
		return readDecoded(r, size, "LZW")

	case CompressionAdobeDeflate, CompressionDeflate:
		r, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress Deflate chunk: %w", err)
		}
		defer r.Close()
		return readDecoded(r, size, "Deflate")

	case CompressionPackBits:
		return unpackBits(raw, size)

	case CompressionJPEG:
		return decodeJPEGChunk(lv, raw, size, rows)
	}
	return nil, fmt.Errorf("unsupported compression type: %d", lv.compression)
}

func readDecoded(r io.Reader, size int, name string) ([]byte, error) {
	out := make([]byte, size)
	n, err := io.ReadFull(r, out)
	if err != nil {
		return nil, fmt.Errorf("%s decompression produced insufficient data: got %d bytes, expected %d: %w", name, n, size, err)
	}
	return out, nil
}

// unpackBits decodes Macintosh PackBits run-length encoding
func unpackBits(src []byte, size int) ([]byte, error) {
	out := make([]byte, 0, size)
	for i := 0; i < len(src) && len(out) < size; {
		n := int(int8(src[i]))
		i++
		switch {
		case n >= 0:
			end := i + n + 1
			if end > len(src) {
				return nil, fmt.Errorf("PackBits literal run overflows input")
			}
			out = append(out, src[i:end]...)
			i = end
		case n > -128:
			if i >= len(src) {
				return nil, fmt.Errorf("PackBits repeat run overflows input")
			}
			for k := 0; k < 1-n; k++ {
				out = append(out, src[i])
			}
			i++
		}
	}
	if len(out) < size {
		return nil, fmt.Errorf("PackBits decompression produced insufficient data: got %d bytes, expected %d", len(out), size)
	}
	return out[:size], nil
}

// decodeJPEGChunk decodes a JPEG strip or tile to interleaved 8-bit
// samples. Shared tables from JPEGTables are spliced in front of the chunk
// stream.
func decodeJPEGChunk(lv *imageLevel, raw []byte, size, rows int) ([]byte, error) {
	stream := raw
	if len(lv.jpegTables) > 4 && len(raw) > 2 {
		// tables end with EOI, the chunk starts with SOI
		stream = make([]byte, 0, len(lv.jpegTables)+len(raw))
		stream = append(stream, lv.jpegTables[:len(lv.jpegTables)-2]...)
		stream = append(stream, raw[2:]...)
	}

	img, err := jpeg.Decode(bytes.NewReader(stream))
	if err != nil {
		return nil, fmt.Errorf("failed to decode JPEG chunk: %w", err)
	}

	spp := lv.samplesPerPixel
	out := make([]byte, size)
	bounds := img.Bounds()
	for y := 0; y < rows && y < bounds.Dy(); y++ {
		for x := 0; x < lv.chunkWidth && x < bounds.Dx(); x++ {
			o := (y*lv.chunkWidth + x) * spp
			if gray, ok := img.(*image.Gray); ok {
				out[o] = gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y
				continue
			}
			r, gr, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if spp < 3 {
				out[o] = uint8(r >> 8)
				continue
			}
			out[o], out[o+1], out[o+2] = uint8(r>>8), uint8(gr>>8), uint8(b>>8)
		}
	}
	return out, nil
}

// undoHorizontalPredictor reverses TIFF predictor 2, which stores each
// sample as the difference from the same sample of the previous pixel
func undoHorizontalPredictor(data []byte, width, spp, bytesPerSample int, bo binary.ByteOrder) {
	rowBytes := width * spp * bytesPerSample
	for start := 0; start+rowBytes <= len(data); start += rowBytes {
		row := data[start : start+rowBytes]
		switch bytesPerSample {
		case 1:
			for i := spp; i < len(row); i++ {
				row[i] += row[i-spp]
			}
		case 2:
			for i := spp * 2; i < len(row); i += 2 {
				bo.PutUint16(row[i:], bo.Uint16(row[i:])+bo.Uint16(row[i-spp*2:]))
			}
		case 4:
			for i := spp * 4; i < len(row); i += 4 {
				bo.PutUint32(row[i:], bo.Uint32(row[i:])+bo.Uint32(row[i-spp*4:]))
			}
		}
	}
}

// sample decodes one sample of a decoded chunk as float32
func (lv *imageLevel) sample(data []byte, x, y, band int, bo binary.ByteOrder) float32 {
	spp := lv.samplesPerChunkPixel()
	if lv.planar {
		band = 0
	}
	i := ((y*lv.chunkWidth+x)*spp + band) * lv.bytesPerSample()

	var v float32
	switch lv.bitsPerSample {
	case 8:
		if lv.sampleFormat == sampleFormatInt {
			v = float32(int8(data[i]))
		} else {
			v = float32(data[i])
		}
	case 16:
		if lv.sampleFormat == sampleFormatInt {
			v = float32(int16(bo.Uint16(data[i:])))
		} else {
			v = float32(bo.Uint16(data[i:]))
		}
	case 32:
		switch lv.sampleFormat {
		case sampleFormatInt:
			v = float32(int32(bo.Uint32(data[i:])))
		case sampleFormatFloat:
			v = math.Float32frombits(bo.Uint32(data[i:]))
		default:
			v = float32(bo.Uint32(data[i:]))
		}
	case 64:
		v = float32(math.Float64frombits(bo.Uint64(data[i:])))
	}

	if lv.photometric == photometricWhiteIsZero && lv.sampleFormat == sampleFormatUint {
		v = float32(uint64(1)<<lv.bitsPerSample-1) - v
	}
	return v
}

// geotiffBand is one sample plane of a GeoTIFF
type geotiffBand struct {
	g     *GeoTIFF
	index int
	aux   *bandAux
}

func (b *geotiffBand) Metadata(key string) (string, bool) {
	v, ok := b.aux.metadata[key]
	return v, ok
}

func (b *geotiffBand) AttributeTable() *AttributeTable {
	return b.aux.rat
}

func (b *geotiffBand) Histogram() ([]uint64, bool) {
	return b.aux.histogram, len(b.aux.histogram) > 0
}

// Read samples src at the given level into buf by nearest neighbour.
// Decoded chunks are kept only while the output rows fall in the same
// chunk row.
func (b *geotiffBand) Read(level int, src Window, buf []float32, bufWidth, bufHeight, lineStride int) error {
	g := b.g
	if g.closed {
		return ErrSessionClosed
	}
	if level < 0 || level >= len(g.levels) {
		return fmt.Errorf("resolution level %d out of range", level)
	}
	lv := g.levels[level]
	if src.X < 0 || src.Y < 0 || src.Width <= 0 || src.Height <= 0 ||
		src.X+src.Width > lv.width || src.Y+src.Height > lv.height {
		return fmt.Errorf("window %+v outside %d x %d image", src, lv.width, lv.height)
	}
	if bufWidth <= 0 || bufHeight <= 0 || lineStride < bufWidth || len(buf) < (bufHeight-1)*lineStride+bufWidth {
		return fmt.Errorf("buffer of %d values too small for %d x %d with stride %d", len(buf), bufWidth, bufHeight, lineStride)
	}
	if err := g.loadChunkIndex(lv); err != nil {
		return err
	}

	f := src.sampling()
	cols := make([]int, bufWidth)
	for c := range cols {
		cols[c] = nearest(c, bufWidth, f.X, f.Width, src.X, src.Width)
	}

	across := lv.chunksAcross()
	planeOffset := 0
	if lv.planar {
		planeOffset = b.index * across * lv.chunksDown()
	}
	bo := g.tr.ByteOrder()

	cache := make(map[int][]byte)
	cachedRow := -1
	for r := 0; r < bufHeight; r++ {
		sy := nearest(r, bufHeight, f.Y, f.Height, src.Y, src.Height)
		chunkRow := sy / lv.chunkHeight
		if chunkRow != cachedRow {
			clear(cache)
			cachedRow = chunkRow
		}
		rows := lv.chunkRows(chunkRow)
		inY := sy - chunkRow*lv.chunkHeight

		line := buf[r*lineStride : r*lineStride+bufWidth]
		for c, sx := range cols {
			chunkCol := sx / lv.chunkWidth
			index := planeOffset + chunkRow*across + chunkCol
			data, ok := cache[index]
			if !ok {
				var err error
				if data, err = g.readChunk(lv, index, rows); err != nil {
					return err
				}
				cache[index] = data
			}
			line[c] = lv.sample(data, sx-chunkCol*lv.chunkWidth, inY, b.index, bo)
		}
	}
	return nil
}
