package rasterview

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GDAL stores band statistics, histograms and attribute tables either in
// the GDAL_METADATA TIFF tag or in a "<file>.aux.xml" sidecar (PAM). Both
// are read here; the sidecar takes precedence.

// PAMSuffix is appended to a dataset path to find its sidecar
const PAMSuffix = ".aux.xml"

// bandAux is the auxiliary information of one band
type bandAux struct {
	metadata  map[string]string
	histogram []uint64
	rat       *AttributeTable
}

func newBandAux() *bandAux {
	return &bandAux{metadata: make(map[string]string)}
}

// merge overlays o onto a; values present in o win
func (a *bandAux) merge(o *bandAux) {
	for k, v := range o.metadata {
		a.metadata[k] = v
	}
	if o.histogram != nil {
		a.histogram = o.histogram
	}
	if o.rat != nil {
		a.rat = o.rat
	}
}

type gdalMetadataXML struct {
	XMLName xml.Name `xml:"GDALMetadata"`
	Items   []struct {
		Name   string `xml:"name,attr"`
		Sample string `xml:"sample,attr"`
		Domain string `xml:"domain,attr"`
		Value  string `xml:",chardata"`
	} `xml:"Item"`
}

// parseGDALMetadata reads the GDAL_METADATA tag. Items with a sample
// attribute belong to that 0-based band; the others to the dataset.
func parseGDALMetadata(doc string, bandCount int) (map[string]string, []*bandAux, error) {
	var md gdalMetadataXML
	if err := xml.Unmarshal([]byte(doc), &md); err != nil {
		return nil, nil, fmt.Errorf("failed to parse GDAL_METADATA: %w", err)
	}

	dataset := make(map[string]string)
	bands := make([]*bandAux, bandCount)
	for i := range bands {
		bands[i] = newBandAux()
	}

	for _, item := range md.Items {
		if item.Domain != "" {
			continue
		}
		value := strings.TrimSpace(item.Value)
		if item.Sample == "" {
			dataset[item.Name] = value
			continue
		}
		sample, err := strconv.Atoi(item.Sample)
		if err != nil || sample < 0 || sample >= bandCount {
			continue
		}
		bands[sample].metadata[item.Name] = value
	}
	return dataset, bands, nil
}

type pamMetadataXML struct {
	Domain string `xml:"domain,attr"`
	Items  []struct {
		Key   string `xml:"key,attr"`
		Value string `xml:",chardata"`
	} `xml:"MDI"`
}

type pamHistItemXML struct {
	BucketCount int    `xml:"BucketCount"`
	HistCounts  string `xml:"HistCounts"`
}

type pamFieldXML struct {
	Index int    `xml:"index,attr"`
	Name  string `xml:"Name"`
	Type  int    `xml:"Type"`
	Usage int    `xml:"Usage"`
}

type pamRowXML struct {
	Index  int      `xml:"index,attr"`
	Fields []string `xml:"F"`
}

type pamRATXML struct {
	TableType string        `xml:"tableType,attr"`
	Fields    []pamFieldXML `xml:"FieldDefn"`
	Rows      []pamRowXML   `xml:"Row"`
}

type pamBandXML struct {
	Band       int              `xml:"band,attr"`
	Metadata   []pamMetadataXML `xml:"Metadata"`
	Histograms []pamHistItemXML `xml:"Histograms>HistItem"`
	RAT        *pamRATXML       `xml:"GDALRasterAttributeTable"`
}

type pamDatasetXML struct {
	XMLName  xml.Name         `xml:"PAMDataset"`
	Metadata []pamMetadataXML `xml:"Metadata"`
	Bands    []pamBandXML     `xml:"PAMRasterBand"`
}

// parsePAM reads a GDAL PAM sidecar. Bands are numbered from 1 in the
// document and returned 0-based.
func parsePAM(data []byte, bandCount int) (map[string]string, []*bandAux, error) {
	var doc pamDatasetXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse PAM sidecar: %w", err)
	}

	dataset := make(map[string]string)
	collectMDI(doc.Metadata, dataset)

	bands := make([]*bandAux, bandCount)
	for i := range bands {
		bands[i] = newBandAux()
	}

	for _, b := range doc.Bands {
		if b.Band < 1 || b.Band > bandCount {
			continue
		}
		aux := bands[b.Band-1]
		collectMDI(b.Metadata, aux.metadata)

		if len(b.Histograms) > 0 {
			item := b.Histograms[0]
			counts, err := parseHistCounts(item.HistCounts)
			if err != nil {
				return nil, nil, fmt.Errorf("band %d: %w", b.Band, err)
			}
			if item.BucketCount > 0 && item.BucketCount != len(counts) {
				return nil, nil, fmt.Errorf("band %d: histogram has %d counts, expected %d buckets", b.Band, len(counts), item.BucketCount)
			}
			aux.histogram = counts
		}

		if b.RAT != nil {
			rat, err := b.RAT.table()
			if err != nil {
				return nil, nil, fmt.Errorf("band %d: %w", b.Band, err)
			}
			aux.rat = rat
			if b.RAT.TableType == LayerTypeThematic {
				if _, ok := aux.metadata[MetadataLayerType]; !ok {
					aux.metadata[MetadataLayerType] = LayerTypeThematic
				}
			}
		}
	}
	return dataset, bands, nil
}

func collectMDI(blocks []pamMetadataXML, into map[string]string) {
	for _, block := range blocks {
		if block.Domain != "" {
			continue
		}
		for _, item := range block.Items {
			into[item.Key] = strings.TrimSpace(item.Value)
		}
	}
}

// parseHistCounts parses "12|0|7|..." bucket counts
func parseHistCounts(s string) ([]uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "|")
	counts := make([]uint64, len(parts))
	for i, p := range parts {
		c, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid histogram count %q", p)
		}
		counts[i] = c
	}
	return counts, nil
}

// GDALRATFieldType codes
const (
	ratFieldInteger = 0
	ratFieldReal    = 1
	ratFieldString  = 2
)

// maxAttributeRows bounds the rows allocated for one attribute table.
const maxAttributeRows = 1 << 24

func (r *pamRATXML) table() (*AttributeTable, error) {
	rowCount := 0
	for _, row := range r.Rows {
		if row.Index < 0 {
			return nil, fmt.Errorf("negative attribute table row %d", row.Index)
		}
		if row.Index >= maxAttributeRows {
			return nil, fmt.Errorf("attribute table row %d exceeds %d rows", row.Index, maxAttributeRows)
		}
		if row.Index+1 > rowCount {
			rowCount = row.Index + 1
		}
	}

	t := &AttributeTable{Columns: make([]AttributeColumn, len(r.Fields))}
	for i, f := range r.Fields {
		col := AttributeColumn{Name: f.Name, Usage: ColumnUsage(f.Usage)}
		if f.Type == ratFieldString {
			col.Strings = make([]string, rowCount)
		} else {
			col.Values = make([]float64, rowCount)
		}
		t.Columns[i] = col
	}

	for _, row := range r.Rows {
		for i, field := range row.Fields {
			if i >= len(t.Columns) {
				break
			}
			col := &t.Columns[i]
			if col.Strings != nil {
				col.Strings[row.Index] = field
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				v = math.NaN()
			}
			col.Values[row.Index] = v
		}
	}
	return t, nil
}
