package rasterview

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by the engine. Stage errors wrap one of these, so
// callers classify with errors.Is.
var (
	ErrDatasetOpen             = errors.New("could not open dataset")
	ErrNoStretchMatch          = errors.New("no stretch found for dataset")
	ErrNoGeoTransform          = errors.New("dataset has no geotransform")
	ErrSingularTransform       = errors.New("geotransform is not invertible")
	ErrMissingStatistics       = errors.New("statistics not available, run gdalcalcstats first")
	ErrMissingHistogram        = errors.New("histogram not available, run gdalcalcstats first")
	ErrMissingAttributeColumns = errors.New("attribute table lacks red, green and blue columns")
	ErrUnsupportedStretchMode  = errors.New("stretch not currently supported")
	ErrUnsupportedDisplayMode  = errors.New("display mode not currently supported")
	ErrAllocation              = errors.New("unable to allocate image")
	ErrBandOutOfRange          = errors.New("stretch references a band the dataset does not have")
	ErrInvalidRule             = errors.New("invalid stretch rule")
	ErrSessionClosed           = errors.New("session is closed")
)

// MaxBufferPixels bounds the destination buffers a single render may
// allocate. Larger requests fail with ErrAllocation.
const MaxBufferPixels = 64 * 1024 * 1024

// maxErrorMessage is the longest error text kept for display.
const maxErrorMessage = 1024

func checkAllocation(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid %d x %d image", ErrAllocation, width, height)
	}
	if width > MaxBufferPixels/height {
		return fmt.Errorf("%w: %d x %d image is too large", ErrAllocation, width, height)
	}
	return nil
}

// boundedMessage trims an error message to the display limit.
func boundedMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage]
	}
	return msg
}
