package rasterview

import (
	"fmt"
	"strconv"
	"strings"
)

// GeoTIFF tag IDs
const (
	TagModelPixelScale     = 33550
	TagModelTiepoint       = 33922
	TagModelTransformation = 34264
	TagGeoKeyDirectory     = 34735
	TagGeoDoubleParams     = 34736
	TagGeoAsciiParams      = 34737
)

// GeoKeys
const (
	GTModelTypeGeoKey     = 1024
	GTModelTypeGeographic = 1
	GTModelTypeProjected  = 2

	GTRasterTypeGeoKey       = 1025
	GTRasterTypePixelIsArea  = 1
	GTRasterTypePixelIsPoint = 2

	GTCitationGeoKey     = 1026
	GeographicTypeGeoKey = 2048
	GeogCitationGeoKey   = 2049

	ProjectedCSTypeGeoKey = 3072
	PCSCitationGeoKey     = 3073
	ProjLinearUnitsGeoKey = 3076
)

// userDefined marks a GeoKey code that is not an EPSG code
const userDefined = 32767

// GeoInfo is the georeferencing of a GeoTIFF image
type GeoInfo struct {
	GeoKeys      map[uint16]interface{}
	CRS          string
	Transform    GeoTransform
	HasTransform bool
	PixelIsPoint bool
}

// readGeoInfo reads GeoKeys and the affine transform from an IFD
func readGeoInfo(tr *TIFFReader, ifd *IFD) (*GeoInfo, error) {
	info := &GeoInfo{GeoKeys: make(map[uint16]interface{})}

	if err := readGeoKeys(tr, ifd, info.GeoKeys); err != nil {
		return nil, fmt.Errorf("failed to read GeoKeys: %w", err)
	}
	info.CRS = determineCRS(info.GeoKeys)
	if v, ok := info.GeoKeys[GTRasterTypeGeoKey].(uint16); ok && v == GTRasterTypePixelIsPoint {
		info.PixelIsPoint = true
	}

	gt, ok, err := readTransform(tr, ifd)
	if err != nil {
		return nil, err
	}
	if ok && info.PixelIsPoint {
		// Tie points name pixel centres; shift to the corner
		gt[0] -= 0.5*gt[1] + 0.5*gt[2]
		gt[3] -= 0.5*gt[4] + 0.5*gt[5]
	}
	info.Transform, info.HasTransform = gt, ok
	return info, nil
}

// readTransform builds the geotransform from ModelTransformation, or from
// the first tie point and the pixel scale
func readTransform(tr *TIFFReader, ifd *IFD) (GeoTransform, bool, error) {
	matrix, err := tr.Floats(ifd, TagModelTransformation)
	if err != nil {
		return GeoTransform{}, false, err
	}
	if len(matrix) >= 16 {
		// Row-major 4x4; only the 2D affine part is used
		return GeoTransform{matrix[3], matrix[0], matrix[1], matrix[7], matrix[4], matrix[5]}, true, nil
	}

	tiepoints, err := tr.Floats(ifd, TagModelTiepoint)
	if err != nil {
		return GeoTransform{}, false, err
	}
	scale, err := tr.Floats(ifd, TagModelPixelScale)
	if err != nil {
		return GeoTransform{}, false, err
	}
	if len(tiepoints) < 6 || len(scale) < 2 || scale[0] == 0 || scale[1] == 0 {
		return GeoTransform{}, false, nil
	}

	pixelX, pixelY := tiepoints[0], tiepoints[1]
	geoX, geoY := tiepoints[3], tiepoints[4]
	return GeoTransform{
		geoX - pixelX*scale[0], scale[0], 0,
		geoY + pixelY*scale[1], 0, -scale[1],
	}, true, nil
}

// readGeoKeys reads the GeoKey directory
func readGeoKeys(tr *TIFFReader, ifd *IFD, keys map[uint16]interface{}) error {
	dir, err := tr.Uints(ifd, TagGeoKeyDirectory)
	if err != nil {
		return err
	}
	if dir == nil {
		return nil // No GeoKeys
	}
	if len(dir) < 4 {
		return fmt.Errorf("GeoKeyDirectory too short")
	}

	doubles, err := tr.Floats(ifd, TagGeoDoubleParams)
	if err != nil {
		return err
	}
	ascii, _, err := tr.ASCII(ifd, TagGeoAsciiParams)
	if err != nil {
		return err
	}

	// Header: version, revision, minor revision, number of keys. Each key
	// is 4 SHORTs: keyID, location, count, value/offset
	numKeys := int(dir[3])
	for i := 0; i < numKeys && 4+i*4+3 < len(dir); i++ {
		entry := dir[4+i*4 : 8+i*4]
		keyID, location, count, value := uint16(entry[0]), entry[1], int(entry[2]), int(entry[3])

		switch location {
		case 0: // Value stored directly
			keys[keyID] = uint16(value)
		case TagGeoDoubleParams:
			if value+count <= len(doubles) {
				if count == 1 {
					keys[keyID] = doubles[value]
				} else {
					keys[keyID] = doubles[value : value+count]
				}
			}
		case TagGeoAsciiParams:
			if value < len(ascii) {
				end := value + count
				if end > len(ascii) {
					end = len(ascii)
				}
				keys[keyID] = strings.TrimRight(ascii[value:end], "|\x00")
			}
		}
	}

	return nil
}

// determineCRS determines the CRS from GeoKeys
func determineCRS(keys map[uint16]interface{}) string {
	for _, id := range []uint16{ProjectedCSTypeGeoKey, GeographicTypeGeoKey} {
		if code, ok := keys[id].(uint16); ok && code != 0 && code != userDefined {
			return fmt.Sprintf("EPSG:%d", code)
		}
	}
	return ""
}

// ParseEPSGCode extracts EPSG code from CRS string
func ParseEPSGCode(crs string) (int, error) {
	if strings.HasPrefix(crs, "EPSG:") {
		code, err := strconv.Atoi(crs[5:])
		if err != nil {
			return 0, err
		}
		return code, nil
	}
	return 0, fmt.Errorf("invalid CRS format: %s", crs)
}
