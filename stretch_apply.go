package rasterview

import (
	"fmt"
	"strconv"
)

// stretcher rescales a raw sample into 0..255.
type stretcher interface {
	apply(v float32) float32
}

type noStretch struct{}

func (noStretch) apply(v float32) float32 { return v }

// linearStretch maps [min, max] onto [0, 255].
type linearStretch struct {
	min, max float64
}

func (s linearStretch) apply(v float32) float32 {
	if s.max <= s.min {
		if float64(v) <= s.min {
			return 0
		}
		return 255
	}
	return clampByte((float64(v) - s.min) * 255 / (s.max - s.min))
}

// stdDevStretch maps mean +/- k standard deviations onto [0, 255]. Zero is
// no-data and stays zero.
type stdDevStretch struct {
	mean, stdDev, k float64
}

func (s stdDevStretch) apply(v float32) float32 {
	if v == 0 {
		return 0
	}
	span := 2 * s.stdDev * s.k
	if span <= 0 {
		if float64(v) <= s.mean {
			return 0
		}
		return 255
	}
	return clampByte((float64(v) - s.mean + s.stdDev*s.k) * 255 / span)
}

func clampByte(v float64) float32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return float32(v)
}

// newStretcher resolves the statistics mode needs from band.
func newStretcher(band Band, mode StretchMode, params [2]float64) (stretcher, error) {
	switch mode {
	case StretchNone:
		return noStretch{}, nil
	case StretchLinear:
		min, max, err := minMax(band)
		if err != nil {
			return nil, err
		}
		return linearStretch{min: min, max: max}, nil
	case StretchStdDev:
		mean, err := statistic(band, MetadataMean)
		if err != nil {
			return nil, err
		}
		stdDev, err := statistic(band, MetadataStdDev)
		if err != nil {
			return nil, err
		}
		return stdDevStretch{mean: mean, stdDev: stdDev, k: params[0]}, nil
	case StretchHistogram:
		min, max, err := minMax(band)
		if err != nil {
			return nil, err
		}
		counts, ok := band.Histogram()
		if !ok || len(counts) == 0 {
			return nil, ErrMissingHistogram
		}
		lo, hi, err := histogramBounds(counts, min, max, params)
		if err != nil {
			return nil, err
		}
		return linearStretch{min: lo, max: hi}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedStretchMode, mode)
}

func minMax(band Band) (float64, float64, error) {
	min, err := statistic(band, MetadataMinimum)
	if err != nil {
		return 0, 0, err
	}
	max, err := statistic(band, MetadataMaximum)
	if err != nil {
		return 0, 0, err
	}
	return min, max, nil
}

func statistic(band Band, key string) (float64, error) {
	s, ok := band.Metadata(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s missing", ErrMissingStatistics, key)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is %q", ErrMissingStatistics, key, s)
	}
	return v, nil
}

// histogramBounds finds the values clipping params[0] of the samples from
// the bottom and 1-params[1] from the top. Bins evenly divide [min, max].
// The lower bound is the start of its bin and the upper bound the end of
// its bin, so params of 0 and 1 return min and max exactly.
func histogramBounds(counts []uint64, min, max float64, params [2]float64) (float64, float64, error) {
	var total uint64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0, 0, fmt.Errorf("%w: histogram is empty", ErrMissingHistogram)
	}

	n := len(counts)
	binWidth := (max - min) / float64(n)

	lowTarget := float64(total) * params[0]
	lowBin := n - 1
	var cum uint64
	for i := 0; i < n; i++ {
		cum += counts[i]
		if float64(cum) >= lowTarget {
			lowBin = i
			break
		}
	}

	highTarget := float64(total) * (1 - params[1])
	highBin := 0
	cum = 0
	for i := n - 1; i >= 0; i-- {
		cum += counts[i]
		if float64(cum) >= highTarget {
			highBin = i
			break
		}
	}

	stretchMin := min + float64(lowBin)*binWidth
	stretchMax := min + float64(highBin+1)*binWidth
	if highBin == n-1 {
		stretchMax = max
	}
	if stretchMax < stretchMin {
		stretchMax = stretchMin
	}
	return stretchMin, stretchMax, nil
}

// ReadAndStretch reads win from band at level into a buffer of the
// window's destination size and rescales the read cells to 0..255.
// Cells outside the usable region are zero.
func ReadAndStretch(band Band, level int, win ReadWindow, mode StretchMode, params [2]float64) ([]float32, error) {
	if err := checkAllocation(win.DestWidth, win.DestHeight); err != nil {
		return nil, err
	}
	s, err := newStretcher(band, mode, params)
	if err != nil {
		return nil, err
	}

	buf := make([]float32, win.DestWidth*win.DestHeight)
	if win.Empty() {
		return buf, nil
	}

	err = band.Read(level, win.Source(), buf[win.DestOffset():], win.DestUsableWidth, win.DestUsableHeight, win.DestWidth)
	if err != nil {
		return nil, err
	}

	if _, ok := s.(noStretch); ok {
		return buf, nil
	}
	for row := win.DestY; row < win.DestY+win.DestUsableHeight; row++ {
		line := buf[row*win.DestWidth+win.DestX : row*win.DestWidth+win.DestX+win.DestUsableWidth]
		for i, v := range line {
			line[i] = s.apply(v)
		}
	}
	return buf, nil
}

