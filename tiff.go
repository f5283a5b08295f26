package rasterview

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// TIFF constants
const (
	tiffMagicLE = 0x4949 // "II" little-endian
	tiffMagicBE = 0x4D4D // "MM" big-endian
	tiffVersion = 42
	bigTIFF     = 43
)

// Baseline and extension tag IDs read by the GeoTIFF provider.
const (
	TagNewSubfileType            = 254
	TagImageWidth                = 256
	TagImageLength               = 257
	TagBitsPerSample             = 258
	TagCompression               = 259
	TagPhotometricInterpretation = 262
	TagStripOffsets              = 273
	TagSamplesPerPixel           = 277
	TagRowsPerStrip              = 278
	TagStripByteCounts           = 279
	TagPlanarConfiguration       = 284
	TagPredictor                 = 317
	TagColorMap                  = 320
	TagTileWidth                 = 322
	TagTileLength                = 323
	TagTileOffsets               = 324
	TagTileByteCounts            = 325
	TagJPEGTables                = 347
	TagSampleFormat              = 339
	TagGDALMetadata              = 42112
	TagGDALNoData                = 42113
)

// Compression types
const (
	CompressionNone         = 1
	CompressionLZW          = 5
	CompressionJPEG         = 6
	CompressionAdobeDeflate = 8
	CompressionPackBits     = 32773
	CompressionDeflate      = 32946
)

// NewSubfileType bits
const (
	subfileReducedImage = 1
	subfileMask         = 4
)

// FieldType is the TIFF type code of a tag's values.
type FieldType uint16

const (
	FTByte      FieldType = 1  // 8-bit unsigned integer
	FTASCII     FieldType = 2  // 8-bit ASCII
	FTShort     FieldType = 3  // 16-bit unsigned integer
	FTLong      FieldType = 4  // 32-bit unsigned integer
	FTRational  FieldType = 5  // Two longs: numerator, denominator
	FTSByte     FieldType = 6  // 8-bit signed integer
	FTUndefined FieldType = 7  // 8-bit undefined
	FTSShort    FieldType = 8  // 16-bit signed integer
	FTSLong     FieldType = 9  // 32-bit signed integer
	FTSRational FieldType = 10 // Two signed longs
	FTFloat     FieldType = 11 // 32-bit IEEE floating point
	FTDouble    FieldType = 12 // 64-bit IEEE floating point
)

// size returns the size in bytes of one value of the type
func (t FieldType) size() uint32 {
	switch t {
	case FTByte, FTASCII, FTSByte, FTUndefined:
		return 1
	case FTShort, FTSShort:
		return 2
	case FTLong, FTSLong, FTFloat:
		return 4
	case FTRational, FTSRational, FTDouble:
		return 8
	default:
		return 1
	}
}

// Tag represents a TIFF tag. Values wider than the 4-byte entry field stay
// on disk until first read.
type Tag struct {
	ID     uint16
	Type   FieldType
	Count  uint32
	Offset uint32

	data []byte
}

func (t *Tag) byteLen() uint32 {
	return t.Type.size() * t.Count
}

// IFD represents an Image File Directory
type IFD struct {
	Offset  uint32
	Tags    map[uint16]*Tag
	NextIFD uint32
}

// TIFFReader reads TIFF directories and tag values
type TIFFReader struct {
	r         io.ReadSeeker
	byteOrder binary.ByteOrder
	ifds      []*IFD
}

// NewTIFFReader reads the header and the whole IFD chain
func NewTIFFReader(r io.ReadSeeker) (*TIFFReader, error) {
	tr := &TIFFReader{r: r}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to TIFF header: %w", err)
	}

	// Header: magic + version + first IFD offset
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("failed to read TIFF header: %w", err)
	}

	switch binary.LittleEndian.Uint16(header[0:2]) {
	case tiffMagicLE:
		tr.byteOrder = binary.LittleEndian
	case tiffMagicBE:
		tr.byteOrder = binary.BigEndian
	default:
		return nil, fmt.Errorf("invalid TIFF magic: 0x%04x", binary.LittleEndian.Uint16(header[0:2]))
	}

	version := tr.byteOrder.Uint16(header[2:4])
	if version == bigTIFF {
		return nil, fmt.Errorf("BigTIFF is not supported")
	}
	if version != tiffVersion {
		return nil, fmt.Errorf("invalid TIFF version: %d", version)
	}

	seen := make(map[uint32]bool)
	for offset := tr.byteOrder.Uint32(header[4:8]); offset != 0; {
		if seen[offset] {
			return nil, fmt.Errorf("IFD chain loops at offset %d", offset)
		}
		seen[offset] = true

		ifd, err := tr.readIFD(offset)
		if err != nil {
			return nil, fmt.Errorf("failed to read IFD at %d: %w", offset, err)
		}
		tr.ifds = append(tr.ifds, ifd)
		offset = ifd.NextIFD
	}
	if len(tr.ifds) == 0 {
		return nil, fmt.Errorf("TIFF has no image directories")
	}

	return tr, nil
}

// readIFD reads a directory's entries in one read: tag count, 12-byte
// entries, next IFD offset
func (tr *TIFFReader) readIFD(offset uint32) (*IFD, error) {
	if _, err := tr.r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to IFD: %w", err)
	}

	var tagCount uint16
	if err := binary.Read(tr.r, tr.byteOrder, &tagCount); err != nil {
		return nil, fmt.Errorf("failed to read tag count: %w", err)
	}

	buf := make([]byte, int(tagCount)*12+4)
	if _, err := io.ReadFull(tr.r, buf); err != nil {
		return nil, fmt.Errorf("failed to read IFD entries: %w", err)
	}

	ifd := &IFD{
		Offset: offset,
		Tags:   make(map[uint16]*Tag, tagCount),
	}
	for i := 0; i < int(tagCount); i++ {
		entry := buf[i*12 : i*12+12]
		tag := &Tag{
			ID:     tr.byteOrder.Uint16(entry[0:2]),
			Type:   FieldType(tr.byteOrder.Uint16(entry[2:4])),
			Count:  tr.byteOrder.Uint32(entry[4:8]),
			Offset: tr.byteOrder.Uint32(entry[8:12]),
		}
		if tag.byteLen() <= 4 {
			tag.data = append([]byte(nil), entry[8:8+tag.byteLen()]...)
		}
		ifd.Tags[tag.ID] = tag
	}
	ifd.NextIFD = tr.byteOrder.Uint32(buf[len(buf)-4:])

	return ifd, nil
}

// load reads a tag's out-of-line value bytes
func (tr *TIFFReader) load(tag *Tag) ([]byte, error) {
	if tag.data != nil {
		return tag.data, nil
	}

	data := make([]byte, tag.byteLen())
	if _, err := tr.r.Seek(int64(tag.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to tag %d value: %w", tag.ID, err)
	}
	if _, err := io.ReadFull(tr.r, data); err != nil {
		return nil, fmt.Errorf("failed to read tag %d value: %w", tag.ID, err)
	}
	tag.data = data
	return data, nil
}

// Uints returns an integer tag's values, or nil when the tag is absent
func (tr *TIFFReader) Uints(ifd *IFD, id uint16) ([]uint64, error) {
	tag, ok := ifd.Tags[id]
	if !ok {
		return nil, nil
	}
	data, err := tr.load(tag)
	if err != nil {
		return nil, err
	}

	values := make([]uint64, tag.Count)
	for i := range values {
		switch tag.Type {
		case FTByte, FTUndefined:
			values[i] = uint64(data[i])
		case FTShort:
			values[i] = uint64(tr.byteOrder.Uint16(data[i*2:]))
		case FTLong:
			values[i] = uint64(tr.byteOrder.Uint32(data[i*4:]))
		default:
			return nil, fmt.Errorf("tag %d has type %d, want an unsigned integer", id, tag.Type)
		}
	}
	return values, nil
}

// Uint returns the first value of an integer tag, or def when absent
func (tr *TIFFReader) Uint(ifd *IFD, id uint16, def uint64) (uint64, error) {
	values, err := tr.Uints(ifd, id)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return def, nil
	}
	return values[0], nil
}

// Floats returns a numeric tag's values converted to float64
func (tr *TIFFReader) Floats(ifd *IFD, id uint16) ([]float64, error) {
	tag, ok := ifd.Tags[id]
	if !ok {
		return nil, nil
	}
	data, err := tr.load(tag)
	if err != nil {
		return nil, err
	}

	bo := tr.byteOrder
	values := make([]float64, tag.Count)
	for i := range values {
		switch tag.Type {
		case FTByte, FTUndefined:
			values[i] = float64(data[i])
		case FTSByte:
			values[i] = float64(int8(data[i]))
		case FTShort:
			values[i] = float64(bo.Uint16(data[i*2:]))
		case FTSShort:
			values[i] = float64(int16(bo.Uint16(data[i*2:])))
		case FTLong:
			values[i] = float64(bo.Uint32(data[i*4:]))
		case FTSLong:
			values[i] = float64(int32(bo.Uint32(data[i*4:])))
		case FTFloat:
			values[i] = float64(math.Float32frombits(bo.Uint32(data[i*4:])))
		case FTDouble:
			values[i] = math.Float64frombits(bo.Uint64(data[i*8:]))
		case FTRational:
			values[i] = float64(bo.Uint32(data[i*8:])) / float64(bo.Uint32(data[i*8+4:]))
		case FTSRational:
			values[i] = float64(int32(bo.Uint32(data[i*8:]))) / float64(int32(bo.Uint32(data[i*8+4:])))
		default:
			return nil, fmt.Errorf("tag %d has type %d, want a number", id, tag.Type)
		}
	}
	return values, nil
}

// ASCII returns a text tag without its terminating NUL
func (tr *TIFFReader) ASCII(ifd *IFD, id uint16) (string, bool, error) {
	tag, ok := ifd.Tags[id]
	if !ok {
		return "", false, nil
	}
	data, err := tr.load(tag)
	if err != nil {
		return "", false, err
	}
	for len(data) > 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	return string(data), true, nil
}

// ByteOrder is the byte order of the file and its sample data
func (tr *TIFFReader) ByteOrder() binary.ByteOrder {
	return tr.byteOrder
}

// ReadAt reads len(p) bytes at off
func (tr *TIFFReader) ReadAt(p []byte, off int64) error {
	if _, err := tr.r.Seek(off, io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(tr.r, p)
	return err
}

// GetIFD returns the IFD at the specified index
func (tr *TIFFReader) GetIFD(index int) *IFD {
	if index < 0 || index >= len(tr.ifds) {
		return nil
	}
	return tr.ifds[index]
}

// IFDCount returns the number of IFDs
func (tr *TIFFReader) IFDCount() int {
	return len(tr.ifds)
}
