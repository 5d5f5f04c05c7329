package gharchive

import (
	"context"
	stderrs "errors"
	"io"
	"net/http"
	"time"

	perr "lakefill/internal/platform/errors"
)

// Collector fetches one archive payload per call
// Implementations issue exactly one retrieval and never retry internally
type Collector interface {
	Collect(ctx context.Context, sourceURL string) (io.ReadCloser, error)
}

// ErrHourMissing reports that the archive has not published the requested hour
// Callers can treat it as a clean skip rather than a transport fault
var ErrHourMissing = perr.New(perr.ErrorCodeNotFound, "gharchive: hour not published")

// HTTPCollector retrieves archive hours straight from the source URL
type HTTPCollector struct {
	Client *http.Client
}

// NewHTTPCollector builds a collector whose client times out after d
// Zero disables the client side timeout
func NewHTTPCollector(d time.Duration) *HTTPCollector {
	return &HTTPCollector{Client: &http.Client{Timeout: d}}
}

// Collect issues a single GET and hands back the raw body on success
func (c *HTTPCollector) Collect(ctx context.Context, sourceURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeCollect, "gharchive: collect %s", sourceURL)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, transportError(err, sourceURL)
	}
	if resp.StatusCode/100 != 2 {
		_ = resp.Body.Close()
		return nil, statusError(sourceURL, resp.StatusCode)
	}
	if resp.ContentLength >= 0 {
		return &httpBody{rc: resp.Body, size: resp.ContentLength}, nil
	}
	return resp.Body, nil
}

// transportError classifies a failed round trip
// Local cancellations stay terminal, everything else is treated as transient
func transportError(err error, sourceURL string) error {
	cause := err
	if !stderrs.Is(err, context.Canceled) && !stderrs.Is(err, context.DeadlineExceeded) {
		cause = perr.Wrap(err, perr.ErrorCodeUnavailable, "transport")
	}
	return perr.Wrapf(cause, perr.ErrorCodeCollect, "gharchive: collect %s", sourceURL)
}

// statusError classifies a non 2xx response
// 404 means the hour is absent upstream, 429 and 5xx are transient
func statusError(sourceURL string, code int) error {
	switch {
	case code == http.StatusNotFound:
		return perr.Wrapf(ErrHourMissing, perr.ErrorCodeCollect, "gharchive: collect %s", sourceURL)
	case code == http.StatusTooManyRequests:
		return perr.Wrapf(
			perr.TooManyRequestsf("status %d", code),
			perr.ErrorCodeCollect, "gharchive: collect %s", sourceURL,
		)
	case code >= 500:
		return perr.Wrapf(
			perr.Unavailablef("status %d", code),
			perr.ErrorCodeCollect, "gharchive: collect %s", sourceURL,
		)
	default:
		return perr.Collectf("gharchive: collect %s: status %d", sourceURL, code)
	}
}

// httpBody carries a response body plus the advertised length
type httpBody struct {
	rc   io.ReadCloser
	size int64
}

func (b *httpBody) Read(p []byte) (int, error) { return b.rc.Read(p) }
func (b *httpBody) Close() error               { return b.rc.Close() }

// Size reports the advertised content length so sinks can do sized writes
func (b *httpBody) Size() int64 { return b.size }
