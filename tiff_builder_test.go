package rasterview

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"sort"
)

// tiffEntry is one tag of a test image. Values are []uint16 (SHORT),
// []uint32 (LONG), []float64 (DOUBLE), []byte (BYTE) or string (ASCII).
type tiffEntry struct {
	id     uint16
	values interface{}
}

// tiffImage is one IFD of a test file. Chunks are the strips or tiles;
// their offsets and byte counts are filled in by buildTIFF.
type tiffImage struct {
	entries []tiffEntry
	chunks  [][]byte
	tiled   bool
}

func (img tiffImage) with(entries ...tiffEntry) tiffImage {
	img.entries = append(append([]tiffEntry(nil), img.entries...), entries...)
	return img
}

func encodeEntry(e tiffEntry, bo binary.ByteOrder) (FieldType, uint32, []byte) {
	var buf bytes.Buffer
	switch v := e.values.(type) {
	case []uint16:
		binary.Write(&buf, bo, v)
		return FTShort, uint32(len(v)), buf.Bytes()
	case []uint32:
		binary.Write(&buf, bo, v)
		return FTLong, uint32(len(v)), buf.Bytes()
	case []float64:
		binary.Write(&buf, bo, v)
		return FTDouble, uint32(len(v)), buf.Bytes()
	case []byte:
		return FTByte, uint32(len(v)), v
	case string:
		return FTASCII, uint32(len(v) + 1), append([]byte(v), 0)
	}
	panic("unsupported tag value type")
}

// buildTIFF lays out a classic TIFF: header, then per image its chunk
// data, its IFD and the IFD's out-of-line values.
func buildTIFF(bo binary.ByteOrder, images ...tiffImage) []byte {
	var buf bytes.Buffer
	if bo == binary.ByteOrder(binary.BigEndian) {
		buf.WriteString("MM")
	} else {
		buf.WriteString("II")
	}
	binary.Write(&buf, bo, uint16(tiffVersion))
	binary.Write(&buf, bo, uint32(0))
	nextOffsetAt := 4

	for _, img := range images {
		offsets := make([]uint32, len(img.chunks))
		counts := make([]uint32, len(img.chunks))
		for i, c := range img.chunks {
			offsets[i] = uint32(buf.Len())
			counts[i] = uint32(len(c))
			buf.Write(c)
		}

		entries := append([]tiffEntry(nil), img.entries...)
		offsetTag, countTag := uint16(TagStripOffsets), uint16(TagStripByteCounts)
		if img.tiled {
			offsetTag, countTag = TagTileOffsets, TagTileByteCounts
		}
		if len(img.chunks) > 0 {
			entries = append(entries, tiffEntry{offsetTag, offsets}, tiffEntry{countTag, counts})
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].id < entries[j].id
		})

		if buf.Len()%2 == 1 {
			buf.WriteByte(0)
		}
		ifdOffset := buf.Len()
		bo.PutUint32(buf.Bytes()[nextOffsetAt:], uint32(ifdOffset))

		valuesStart := ifdOffset + 2 + 12*len(entries) + 4
		var ifd, values bytes.Buffer
		binary.Write(&ifd, bo, uint16(len(entries)))
		for _, e := range entries {
			ft, count, data := encodeEntry(e, bo)
			binary.Write(&ifd, bo, e.id)
			binary.Write(&ifd, bo, uint16(ft))
			binary.Write(&ifd, bo, count)
			if len(data) <= 4 {
				inline := make([]byte, 4)
				copy(inline, data)
				ifd.Write(inline)
				continue
			}
			binary.Write(&ifd, bo, uint32(valuesStart+values.Len()))
			values.Write(data)
			if values.Len()%2 == 1 {
				values.WriteByte(0)
			}
		}
		nextOffsetAt = ifdOffset + ifd.Len()
		binary.Write(&ifd, bo, uint32(0))

		buf.Write(ifd.Bytes())
		buf.Write(values.Bytes())
	}
	return buf.Bytes()
}

// stripImage describes a chunky, uncompressed image with one strip per
// rowsPerStrip rows.
func stripImage(width, height, spp, bitsPerSample, rowsPerStrip int, pix []byte) tiffImage {
	rowBytes := width * spp * bitsPerSample / 8
	var chunks [][]byte
	for y := 0; y < height; y += rowsPerStrip {
		end := min(y+rowsPerStrip, height)
		chunks = append(chunks, pix[y*rowBytes:end*rowBytes])
	}

	bits := make([]uint16, spp)
	for i := range bits {
		bits[i] = uint16(bitsPerSample)
	}
	photometric := uint16(photometricBlackIsZero)
	if spp >= 3 {
		photometric = photometricRGB
	}
	return tiffImage{
		entries: []tiffEntry{
			{TagImageWidth, []uint32{uint32(width)}},
			{TagImageLength, []uint32{uint32(height)}},
			{TagBitsPerSample, bits},
			{TagCompression, []uint16{CompressionNone}},
			{TagPhotometricInterpretation, []uint16{photometric}},
			{TagSamplesPerPixel, []uint16{uint16(spp)}},
			{TagRowsPerStrip, []uint32{uint32(rowsPerStrip)}},
		},
		chunks: chunks,
	}
}

// georeferenced adds a north-up tie point and pixel scale.
func georeferenced(img tiffImage, originX, originY, pixelSize float64, epsg uint16) tiffImage {
	return img.with(
		tiffEntry{TagModelPixelScale, []float64{pixelSize, pixelSize, 0}},
		tiffEntry{TagModelTiepoint, []float64{0, 0, 0, originX, originY, 0}},
		tiffEntry{TagGeoKeyDirectory, []uint16{
			1, 1, 0, 2,
			GTModelTypeGeoKey, 0, 1, GTModelTypeProjected,
			ProjectedCSTypeGeoKey, 0, 1, epsg,
		}},
	)
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// packBits encodes data as literal runs of up to 128 bytes.
func packBits(data []byte) []byte {
	var out []byte
	for len(data) > 0 {
		n := min(len(data), 128)
		out = append(out, byte(n-1))
		out = append(out, data[:n]...)
		data = data[n:]
	}
	return out
}

func float32Bytes(bo binary.ByteOrder, values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		bo.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
