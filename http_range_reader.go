package rasterview

import (
	"fmt"
	"io"
	"strings"

	"github.com/valyala/fasthttp"
)

// Default read-ahead size for sequential header and chunk reads
const defaultReadAheadSize = 64 * 1024

// HTTPRangeReader implements io.ReadSeeker over HTTP range requests. It
// keeps one read-ahead block so small sequential reads share a request.
// It is not safe for concurrent use.
type HTTPRangeReader struct {
	url    string
	client *fasthttp.Client
	size   int64
	pos    int64

	block      []byte
	blockStart int64

	readAheadSize int
}

// isRemote reports whether pathOrURL names an HTTP resource
func isRemote(pathOrURL string) bool {
	return strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://")
}

// NewHTTPRangeReader sizes the resource with a HEAD request
func NewHTTPRangeReader(url string, client *fasthttp.Client) (*HTTPRangeReader, error) {
	if client == nil {
		client = &fasthttp.Client{}
	}

	rr := &HTTPRangeReader{
		url:           url,
		client:        client,
		blockStart:    -1,
		readAheadSize: defaultReadAheadSize,
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodHead)
	if err := client.Do(req, resp); err != nil {
		return nil, fmt.Errorf("HEAD %s: %w", url, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("HEAD %s: unexpected status code: %d", url, resp.StatusCode())
	}
	rr.size = int64(resp.Header.ContentLength())
	if rr.size <= 0 {
		return nil, fmt.Errorf("HEAD %s: unknown content length", url)
	}

	return rr, nil
}

// Read reads from the current position, serving from the read-ahead block
// when it covers the position
func (rr *HTTPRangeReader) Read(p []byte) (int, error) {
	if rr.pos >= rr.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	if !rr.buffered(rr.pos) {
		want := int64(len(p))
		if want < int64(rr.readAheadSize) {
			want = int64(rr.readAheadSize)
		}
		end := rr.pos + want - 1
		if end >= rr.size {
			end = rr.size - 1
		}
		data, err := rr.fetchRange(rr.pos, end)
		if err != nil {
			return 0, err
		}
		if len(data) == 0 {
			return 0, io.EOF
		}
		rr.block = data
		rr.blockStart = rr.pos
	}

	n := copy(p, rr.block[rr.pos-rr.blockStart:])
	rr.pos += int64(n)
	return n, nil
}

func (rr *HTTPRangeReader) buffered(pos int64) bool {
	return rr.blockStart >= 0 && pos >= rr.blockStart && pos < rr.blockStart+int64(len(rr.block))
}

// fetchRange fetches the inclusive byte range [start, end]
func (rr *HTTPRangeReader) fetchRange(start, end int64) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rr.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	if err := rr.client.Do(req, resp); err != nil {
		return nil, err
	}

	body := resp.Body()
	switch resp.StatusCode() {
	case fasthttp.StatusPartialContent:
	case fasthttp.StatusOK:
		// Server ignored the range and sent the whole resource
		if int64(len(body)) <= start {
			return nil, nil
		}
		if int64(len(body)) > end+1 {
			body = body[:end+1]
		}
		body = body[start:]
	default:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	// Copy body since response will be released
	return append([]byte(nil), body...), nil
}

// Seek sets the offset for the next Read
func (rr *HTTPRangeReader) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = rr.pos + offset
	case io.SeekEnd:
		newPos = rr.size + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}

	if newPos < 0 {
		return 0, fmt.Errorf("negative position: %d", newPos)
	}

	rr.pos = newPos
	return rr.pos, nil
}

// Size returns the resource size
func (rr *HTTPRangeReader) Size() int64 {
	return rr.size
}

// fetchURL downloads a whole resource. A 404 reports found as false.
func fetchURL(client *fasthttp.Client, url string) (body []byte, found bool, err error) {
	if client == nil {
		client = &fasthttp.Client{}
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	if err := client.Do(req, resp); err != nil {
		return nil, false, fmt.Errorf("GET %s: %w", url, err)
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
		return append([]byte(nil), resp.Body()...), true, nil
	case fasthttp.StatusNotFound:
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("GET %s: unexpected status code: %d", url, resp.StatusCode())
}
