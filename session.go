package rasterview

import (
	"fmt"
	"io"

	"github.com/jamesrr39/goutil/logpkg"
	"github.com/valyala/fasthttp"
)

// SessionState is the lifecycle position of a Session.
type SessionState int

const (
	StateClosed SessionState = iota
	StateOpen
	StateLoaded
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Opener opens a dataset by path or URL.
type Opener func(pathOrURL string) (Dataset, error)

type sessionOptions struct {
	opener Opener
	logger *logpkg.Logger
	client *fasthttp.Client
}

// Option configures OpenFile.
type Option func(*sessionOptions)

// WithOpener replaces the GeoTIFF opener.
func WithOpener(opener Opener) Option {
	return func(o *sessionOptions) {
		o.opener = opener
	}
}

// WithLogger sets the logger for render diagnostics.
func WithLogger(logger *logpkg.Logger) Option {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

// WithHTTPClient sets the client used for remote datasets.
func WithHTTPClient(client *fasthttp.Client) Option {
	return func(o *sessionOptions) {
		o.client = client
	}
}

// Session renders views of one open dataset. A Session is not safe for
// concurrent use.
type Session struct {
	path   string
	ds     Dataset
	rule   StretchRule
	logger *logpkg.Logger

	state  SessionState
	image  *ImageBuffer
	errMsg string
}

// OpenFile opens the dataset at path and settles its stretch: override
// when given, else the first matching rule.
func OpenFile(path string, rules StretchRuleList, override *StretchRule, opts ...Option) (*Session, error) {
	o := sessionOptions{
		logger: logpkg.NewLogger(io.Discard, logpkg.LogLevelError),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.opener == nil {
		client := o.client
		o.opener = func(p string) (Dataset, error) {
			return OpenGeoTIFF(p, client)
		}
	}

	ds, err := o.opener(path)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open %s: %w", ErrDatasetOpen, path, err)
	}

	rule, err := resolveStretch(ds, rules, override)
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	o.logger.Debug("%s: %d bands, using %s", path, ds.BandCount(), rule)

	return &Session{
		path:   path,
		ds:     ds,
		rule:   rule,
		logger: o.logger,
		state:  StateOpen,
	}, nil
}

func resolveStretch(ds Dataset, rules StretchRuleList, override *StretchRule) (StretchRule, error) {
	var rule StretchRule
	if override != nil {
		rule = *override
	} else {
		matched, ok := MatchStretch(rules, InfoFor(ds))
		if !ok {
			return StretchRule{}, ErrNoStretchMatch
		}
		rule = matched
	}

	if err := rule.Validate(); err != nil {
		return StretchRule{}, err
	}

	count := ds.BandCount()
	for _, b := range rule.DisplayBands() {
		if b > count {
			return StretchRule{}, fmt.Errorf("%w: band %d of %d", ErrBandOutOfRange, b, count)
		}
	}
	if rule.HasColorTableBand() && rule.ColorTable > count {
		return StretchRule{}, fmt.Errorf("%w: colour table band %d of %d", ErrBandOutOfRange, rule.ColorTable, count)
	}

	if rule.Mode == ColorTable {
		info := InfoFor(ds)
		if !info.IsThematic(rule.Bands[0]) {
			return StretchRule{}, fmt.Errorf("%w: band %d is not thematic", ErrMissingAttributeColumns, rule.Bands[0])
		}
	}
	return rule, nil
}

// Rule returns the stretch in effect.
func (s *Session) Rule() StretchRule {
	return s.rule
}

// Dataset returns the open dataset, or nil once closed.
func (s *Session) Dataset() Dataset {
	return s.ds
}

// State returns the lifecycle state.
func (s *Session) State() SessionState {
	return s.state
}

// Status is the one-line description of the active stretch.
func (s *Session) Status() string {
	return s.rule.String()
}

// ErrorMessage returns the message of the last failed render.
func (s *Session) ErrorMessage() string {
	return s.errMsg
}

// Image returns the last rendered image, or nil after a failure.
func (s *Session) Image() *ImageBuffer {
	return s.image
}

// FullExtent is the view showing the whole dataset in a width x height
// display.
func (s *Session) FullExtent(width, height int) (ViewExtent, error) {
	if s.state == StateClosed {
		return ViewExtent{}, ErrSessionClosed
	}
	gt, ok := s.ds.GeoTransform()
	if !ok {
		return ViewExtent{}, ErrNoGeoTransform
	}
	if width <= 0 || height <= 0 {
		return ViewExtent{}, fmt.Errorf("%w: invalid %d x %d display", ErrAllocation, width, height)
	}
	return ExtentForBound(gt.Bounds(s.ds.Size()), width, height), nil
}

// Render draws extent into a width x height image. The previous image is
// dropped first, so a failed render leaves none.
func (s *Session) Render(extent ViewExtent, width, height int) (*ImageBuffer, error) {
	if s.state == StateClosed {
		return nil, ErrSessionClosed
	}
	s.image = nil
	s.errMsg = ""

	img, err := s.render(extent, width, height)
	if err != nil {
		s.state = StateFailed
		s.errMsg = boundedMessage(err)
		s.logger.Warn("render %s failed: %s", s.path, s.errMsg)
		return nil, err
	}

	s.state = StateLoaded
	s.image = img
	return img, nil
}

func (s *Session) render(extent ViewExtent, width, height int) (*ImageBuffer, error) {
	if err := checkAllocation(width, height); err != nil {
		return nil, err
	}

	level, err := SelectLevel(s.ds, extent)
	if err != nil {
		return nil, err
	}
	win, err := ComputeWindow(width, height, s.ds, level, extent)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("level %d, source %d,%d %dx%d, dest %d,%d %dx%d",
		level, win.SourceX, win.SourceY, win.SourceWidth, win.SourceHeight,
		win.DestX, win.DestY, win.DestUsableWidth, win.DestUsableHeight)

	bandNumbers := s.rule.DisplayBands()
	stretched := make([][]float32, 0, len(bandNumbers))
	for _, n := range bandNumbers {
		band, err := s.ds.Band(n)
		if err != nil {
			return nil, err
		}
		data, err := ReadAndStretch(band, level, win, s.rule.Stretch, s.rule.StretchParams)
		if err != nil {
			return nil, fmt.Errorf("band %d: %w", n, err)
		}
		stretched = append(stretched, data)
	}

	var rat *AttributeTable
	if s.rule.Mode == ColorTable {
		ctBand := s.rule.Bands[0]
		if s.rule.HasColorTableBand() {
			ctBand = s.rule.ColorTable
		}
		band, err := s.ds.Band(ctBand)
		if err != nil {
			return nil, err
		}
		rat = band.AttributeTable()
	}

	return Compose(s.rule, stretched, win, rat)
}

// Close releases the dataset. It is valid in every state.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	s.image = nil

	ds := s.ds
	s.ds = nil
	return ds.Close()
}
