package rasterview

// DatasetInfo is the read-only view of a dataset the rule matcher needs.
type DatasetInfo interface {
	BandCount() int
	// IsThematic reports whether band holds class indices.
	IsThematic(band int) bool
	// ColumnUsages lists the attribute table column usages of band.
	ColumnUsages(band int) []ColumnUsage
}

// colourTableUsages must all be present on a colour table band.
var colourTableUsages = []ColumnUsage{UsageRed, UsageGreen, UsageBlue, UsageAlpha}

// MatchStretch returns the first rule that matches info.
func MatchStretch(rules StretchRuleList, info DatasetInfo) (StretchRule, bool) {
	count := info.BandCount()
	for _, rule := range rules {
		if !rule.Comparator.Holds(count, rule.BandCount) {
			continue
		}
		if rule.HasColorTableBand() && !hasColourTable(info, rule.ColorTable) {
			continue
		}
		return rule, true
	}
	return StretchRule{}, false
}

func hasColourTable(info DatasetInfo, band int) bool {
	if band < 1 || band > info.BandCount() {
		return false
	}
	if !info.IsThematic(band) {
		return false
	}

	present := make(map[ColumnUsage]bool)
	for _, usage := range info.ColumnUsages(band) {
		present[usage] = true
	}
	for _, usage := range colourTableUsages {
		if !present[usage] {
			return false
		}
	}
	return true
}

// datasetInfo adapts a Dataset for matching.
type datasetInfo struct {
	ds Dataset
}

// InfoFor exposes ds to MatchStretch.
func InfoFor(ds Dataset) DatasetInfo {
	return datasetInfo{ds: ds}
}

func (d datasetInfo) BandCount() int {
	return d.ds.BandCount()
}

func (d datasetInfo) IsThematic(band int) bool {
	b, err := d.ds.Band(band)
	if err != nil {
		return false
	}
	layerType, ok := b.Metadata(MetadataLayerType)
	return ok && layerType == LayerTypeThematic
}

func (d datasetInfo) ColumnUsages(band int) []ColumnUsage {
	b, err := d.ds.Band(band)
	if err != nil {
		return nil
	}
	return b.AttributeTable().Usages()
}
