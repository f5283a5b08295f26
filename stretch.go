package rasterview

import (
	"fmt"
	"strconv"
	"strings"
)

// Comparator decides how a rule's band count is compared with a dataset's.
type Comparator int

const (
	LessThan Comparator = iota
	GreaterThan
	Equal
)

// Holds reports whether bandCount compares to threshold as c requires.
func (c Comparator) Holds(bandCount, threshold int) bool {
	switch c {
	case LessThan:
		return bandCount < threshold
	case GreaterThan:
		return bandCount > threshold
	case Equal:
		return bandCount == threshold
	}
	return false
}

func (c Comparator) String() string {
	switch c {
	case LessThan:
		return "less"
	case GreaterThan:
		return "greater"
	case Equal:
		return "equal"
	}
	return fmt.Sprintf("Comparator(%d)", int(c))
}

// DisplayMode is how the stretched bands become colours.
type DisplayMode int

const (
	ColorTable DisplayMode = iota
	Greyscale
	RGB
	// PseudoColor is not produced by the rule parser and Compose rejects it.
	PseudoColor
)

func (m DisplayMode) String() string {
	switch m {
	case ColorTable:
		return "colortable"
	case Greyscale:
		return "greyscale"
	case RGB:
		return "rgb"
	case PseudoColor:
		return "pseudocolor"
	}
	return fmt.Sprintf("DisplayMode(%d)", int(m))
}

// StretchMode selects the radiometric rescale applied to each band.
type StretchMode int

const (
	StretchNone StretchMode = iota
	StretchLinear
	StretchStdDev
	StretchHistogram
)

func (m StretchMode) String() string {
	switch m {
	case StretchNone:
		return "none"
	case StretchLinear:
		return "linear"
	case StretchStdDev:
		return "stddev"
	case StretchHistogram:
		return "histogram"
	}
	return fmt.Sprintf("StretchMode(%d)", int(m))
}

// NoColorTableBand marks a rule without a colour table band.
const NoColorTableBand = -1

// StretchRule matches a band layout to a display mode and stretch. Band
// numbers are 1-based; zero means unused.
type StretchRule struct {
	Comparator    Comparator
	BandCount     int
	ColorTable    int // band holding the attribute table, or NoColorTableBand
	Mode          DisplayMode
	Stretch       StretchMode
	StretchParams [2]float64
	Bands         [3]int
}

// HasColorTableBand reports whether the rule requires a thematic band.
func (r StretchRule) HasColorTableBand() bool {
	return r.ColorTable != NoColorTableBand
}

// DisplayBands returns the bands read for the rule's display mode.
func (r StretchRule) DisplayBands() []int {
	if r.Mode == RGB {
		return r.Bands[:]
	}
	return r.Bands[:1]
}

// String describes the rule for a status line.
func (r StretchRule) String() string {
	var mode string
	switch r.Mode {
	case ColorTable:
		mode = fmt.Sprintf("Color Table %d", r.Bands[0])
	case Greyscale:
		mode = fmt.Sprintf("GreyScale %d", r.Bands[0])
	case RGB:
		mode = fmt.Sprintf("RGB %d %d %d", r.Bands[0], r.Bands[1], r.Bands[2])
	case PseudoColor:
		mode = fmt.Sprintf("PseudoColor %d", r.Bands[0])
	}

	switch r.Stretch {
	case StretchNone:
		return mode + " No Stretch"
	case StretchLinear:
		return fmt.Sprintf("%s Linear Stretch %.2f - %.2f", mode, r.StretchParams[0], r.StretchParams[1])
	case StretchStdDev:
		return fmt.Sprintf("%s Standard Deviation %.2f", mode, r.StretchParams[0])
	case StretchHistogram:
		return fmt.Sprintf("%s Histogram Stretch %.2f - %.2f", mode, r.StretchParams[0], r.StretchParams[1])
	}
	return mode
}

// Validate checks the rule is internally consistent.
func (r StretchRule) Validate() error {
	switch r.Mode {
	case RGB:
		for i, b := range r.Bands {
			if b < 1 {
				return fmt.Errorf("%w: rgb needs three bands, band %d is %d", ErrInvalidRule, i+1, b)
			}
		}
	case ColorTable:
		if r.Stretch != StretchNone {
			return fmt.Errorf("%w: colortable mode takes no stretch, got %s", ErrInvalidRule, r.Stretch)
		}
		if r.StretchParams != [2]float64{} {
			return fmt.Errorf("%w: colortable mode takes no stretch parameters", ErrInvalidRule)
		}
		fallthrough
	default:
		if r.Bands[0] < 1 {
			return fmt.Errorf("%w: %s needs a band, got %d", ErrInvalidRule, r.Mode, r.Bands[0])
		}
	}

	if r.ColorTable != NoColorTableBand && r.ColorTable < 1 {
		return fmt.Errorf("%w: colour table band %d", ErrInvalidRule, r.ColorTable)
	}

	if r.Stretch == StretchStdDev && r.StretchParams[0] <= 0 {
		return fmt.Errorf("%w: stddev needs a positive number of deviations, got %g", ErrInvalidRule, r.StretchParams[0])
	}

	if r.Stretch == StretchHistogram {
		for _, p := range r.StretchParams {
			if p < 0 || p > 1 {
				return fmt.Errorf("%w: histogram parameters must be within 0 and 1, got %g", ErrInvalidRule, p)
			}
		}
	}
	return nil
}

// StretchRuleList is evaluated in order; the first matching rule wins.
type StretchRuleList []StretchRule

var defaultRuleStrings = []string{
	"equal,1,1,colortable,none,,1",
	"equal,1,-1,greyscale,none,,1",
	"equal,2,-1,greyscale,none,,1",
	"equal,3,-1,rgb,none,,1|2|3",
	"less,6,-1,rgb,stddev,2.0,4|3|2",
	"greater,5,-1,rgb,stddev,2.0,5|4|2",
}

// DefaultStretchRules returns the rules used when none are configured.
func DefaultStretchRules() StretchRuleList {
	rules, err := ParseStretchRules(defaultRuleStrings)
	if err != nil {
		panic(err)
	}
	return rules
}

// ParseStretchRules parses each line in order.
func ParseStretchRules(lines []string) (StretchRuleList, error) {
	rules := make(StretchRuleList, 0, len(lines))
	for _, line := range lines {
		rule, err := ParseStretchRule(line)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ParseStretchRule parses a rule of the form
//
//	comparator,count,ctband,mode,stretchmode,param1|param2,band1|band2|band3
//
// Spaces around tokens are ignored and an empty stretch mode means none.
func ParseStretchRule(s string) (StretchRule, error) {
	tokens := strings.Split(s, ",")
	for i := range tokens {
		tokens[i] = strings.TrimSpace(tokens[i])
	}
	if len(tokens) < 7 {
		return StretchRule{}, fmt.Errorf("%w: missing value in rule string %q", ErrInvalidRule, s)
	}
	if len(tokens) > 7 {
		return StretchRule{}, fmt.Errorf("%w: unexpected values after bands in %q", ErrInvalidRule, s)
	}

	var rule StretchRule
	var err error

	switch tokens[0] {
	case "less":
		rule.Comparator = LessThan
	case "greater":
		rule.Comparator = GreaterThan
	case "equal":
		rule.Comparator = Equal
	default:
		return StretchRule{}, fmt.Errorf("%w: unable to understand comparison %q", ErrInvalidRule, tokens[0])
	}

	if rule.BandCount, err = strconv.Atoi(tokens[1]); err != nil {
		return StretchRule{}, fmt.Errorf("%w: band count %q", ErrInvalidRule, tokens[1])
	}
	if rule.ColorTable, err = strconv.Atoi(tokens[2]); err != nil {
		return StretchRule{}, fmt.Errorf("%w: colour table band %q", ErrInvalidRule, tokens[2])
	}

	switch tokens[3] {
	case "colortable":
		rule.Mode = ColorTable
	case "greyscale":
		rule.Mode = Greyscale
	case "rgb":
		rule.Mode = RGB
	default:
		return StretchRule{}, fmt.Errorf("%w: unable to understand mode %q", ErrInvalidRule, tokens[3])
	}

	switch tokens[4] {
	case "none", "":
		rule.Stretch = StretchNone
	case "linear":
		rule.Stretch = StretchLinear
	case "stddev":
		rule.Stretch = StretchStdDev
	case "histogram":
		rule.Stretch = StretchHistogram
	default:
		return StretchRule{}, fmt.Errorf("%w: unable to understand stretch mode %q", ErrInvalidRule, tokens[4])
	}

	params := splitList(tokens[5])
	if len(params) > len(rule.StretchParams) {
		return StretchRule{}, fmt.Errorf("%w: too many stretch parameters in %q", ErrInvalidRule, tokens[5])
	}
	for i, p := range params {
		if rule.StretchParams[i], err = strconv.ParseFloat(p, 64); err != nil {
			return StretchRule{}, fmt.Errorf("%w: stretch parameter %q", ErrInvalidRule, p)
		}
	}

	bands := splitList(tokens[6])
	if len(bands) > len(rule.Bands) {
		return StretchRule{}, fmt.Errorf("%w: too many bands in %q", ErrInvalidRule, tokens[6])
	}
	for i, b := range bands {
		if rule.Bands[i], err = strconv.Atoi(b); err != nil {
			return StretchRule{}, fmt.Errorf("%w: band %q", ErrInvalidRule, b)
		}
	}

	if err := rule.Validate(); err != nil {
		return StretchRule{}, err
	}
	return rule, nil
}

// splitList splits a '|' separated token, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
