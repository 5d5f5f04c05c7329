package gharchive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	perr "lakefill/internal/platform/errors"
)

// CachedCollector keeps fetched hours on local disk
// The cache dir holds one payload file per hour plus a .meta sidecar
// Recent hours may be revalidated upstream with a conditional GET
// Optional retention caps the cache by age and by total bytes
type CachedCollector struct {
	dir             string
	client          *http.Client
	refreshRecent   time.Duration
	retainMaxAge    time.Duration
	retainMaxBytes  int64
	lastCleanupUnix atomic.Int64
}

// cacheMeta is the sidecar json, only the fields the cache acts on
type cacheMeta struct {
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Size         int64     `json:"size,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	LastChecked  time.Time `json:"last_checked"`
}

// CachedOption configures the cached collector
type CachedOption func(*CachedCollector)

// WithRefreshRecent enables conditional GET for hours within d of now
func WithRefreshRecent(d time.Duration) CachedOption {
	return func(c *CachedCollector) { c.refreshRecent = d }
}

// WithRetention caps cached hours by age and by total bytes
// Zero disables either dimension
func WithRetention(maxAge time.Duration, maxBytes int64) CachedOption {
	return func(c *CachedCollector) {
		c.retainMaxAge = maxAge
		c.retainMaxBytes = maxBytes
	}
}

// NewCachedCollector builds a disk backed collector rooted at dir
// base may be nil; its client is reused when present
func NewCachedCollector(dir string, base *HTTPCollector, opts ...CachedOption) *CachedCollector {
	_ = os.MkdirAll(dir, 0o755)
	c := &CachedCollector{
		dir:    dir,
		client: &http.Client{},
	}
	if base != nil && base.Client != nil {
		c.client = base.Client
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Collect serves the payload from disk when present, downloading it otherwise
// Recent hours may be revalidated upstream before the local copy is served
func (c *CachedCollector) Collect(ctx context.Context, sourceURL string) (io.ReadCloser, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeCollect, "gharchive: cache: parse %s", sourceURL)
	}
	filename := path.Base(u.Path)
	if filename == "" || filename == "." || filename == "/" {
		return nil, perr.Collectf("gharchive: cache: source %q has no filename", sourceURL)
	}
	local := filepath.Join(c.dir, filename)
	metaPath := local + ".meta"

	if fi, err := os.Stat(local); err == nil && fi.Mode().IsRegular() {
		if c.shouldRevalidate(filename) {
			rc, err := c.revalidate(ctx, sourceURL, local, metaPath)
			if err == nil && rc != nil {
				c.maybeCleanup()
				return rc, nil
			}
			// revalidation is best effort, fall through to the local copy
		}
		rc, err := openCached(local)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeCollect, "gharchive: cache open %s", filename)
		}
		c.maybeCleanup()
		return rc, nil
	}

	rc, err := c.download(ctx, sourceURL, local, metaPath)
	if err != nil {
		return nil, err
	}
	c.maybeCleanup()
	return rc, nil
}

func (c *CachedCollector) shouldRevalidate(filename string) bool {
	if c.refreshRecent <= 0 {
		return false
	}
	hr, ok := ParseFilename(filename)
	if !ok {
		return false
	}
	return time.Since(hr.UTC()) <= c.refreshRecent
}

// revalidate issues a GET with If-None-Match and If-Modified-Since when known
// 304 touches the sidecar and serves the local copy, 200 rewrites the cache
func (c *CachedCollector) revalidate(
	ctx context.Context,
	sourceURL string,
	local string,
	metaPath string,
) (io.ReadCloser, error) {
	meta, _ := loadMeta(metaPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusNotModified:
		_ = resp.Body.Close()
		if meta == nil {
			meta = &cacheMeta{}
		}
		meta.LastChecked = time.Now().UTC()
		_ = saveMeta(metaPath, meta)
		return openCached(local)

	case http.StatusOK:
		return c.writeToCache(resp, local, metaPath)

	default:
		_ = resp.Body.Close()
		return nil, statusError(sourceURL, resp.StatusCode)
	}
}

// download fills a cache miss and returns a reader over the stored bytes
func (c *CachedCollector) download(
	ctx context.Context,
	sourceURL string,
	local string,
	metaPath string,
) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeCollect, "gharchive: collect %s", sourceURL)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(err, sourceURL)
	}
	if resp.StatusCode/100 != 2 {
		_ = resp.Body.Close()
		return nil, statusError(sourceURL, resp.StatusCode)
	}
	rc, err := c.writeToCache(resp, local, metaPath)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeCollect, "gharchive: cache %s", path.Base(local))
	}
	return rc, nil
}

// writeToCache saves the body atomically, writes the sidecar, then reopens
// The returned body hides Name so fresh bytes never count as cache hits
func (c *CachedCollector) writeToCache(resp *http.Response, local, metaPath string) (io.ReadCloser, error) {
	tmp := local + ".part"
	defer func() { _ = os.Remove(tmp) }()

	_ = os.MkdirAll(filepath.Dir(local), 0o755)

	out, err := os.Create(tmp)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	n, werr := io.Copy(out, resp.Body)
	cerr := out.Close()
	_ = resp.Body.Close()
	if werr != nil {
		return nil, werr
	}
	if cerr != nil {
		return nil, cerr
	}
	if err := os.Rename(tmp, local); err != nil {
		return nil, err
	}

	meta := &cacheMeta{
		ETag:         strings.TrimSpace(resp.Header.Get("ETag")),
		LastModified: strings.TrimSpace(resp.Header.Get("Last-Modified")),
		Size:         n,
		FetchedAt:    time.Now().UTC(),
		LastChecked:  time.Now().UTC(),
	}
	_ = saveMeta(metaPath, meta)

	f, err := os.Open(local)
	if err != nil {
		return nil, err
	}
	return &fileBody{f: f, size: n}, nil
}

// openCached serves a cache hit
// The returned body keeps *os.File's Name so callers can spot hits
func openCached(local string) (io.ReadCloser, error) {
	f, err := os.Open(local)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &cachedBody{File: f, size: fi.Size()}, nil
}

// cachedBody serves bytes already on disk, Name included
type cachedBody struct {
	*os.File
	size int64
}

// Size reports the stored payload size so sinks can do sized writes
func (b *cachedBody) Size() int64 { return b.size }

// fileBody wraps a freshly written cache file but hides the Name method
type fileBody struct {
	f    *os.File
	size int64
}

func (b *fileBody) Read(p []byte) (int, error) { return b.f.Read(p) }
func (b *fileBody) Close() error               { return b.f.Close() }

// Size reports the stored payload size so sinks can do sized writes
func (b *fileBody) Size() int64 { return b.size }

// loadMeta reads a sidecar json file
func loadMeta(path string) (*cacheMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var m cacheMeta
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// saveMeta writes the sidecar json atomically
func saveMeta(path string, m *cacheMeta) error {
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(m); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// maybeCleanup throttles retention cleanup to once per ten minutes
func (c *CachedCollector) maybeCleanup() {
	now := time.Now().Unix()
	last := c.lastCleanupUnix.Load()
	if last != 0 && now-last < 600 {
		return
	}
	if c.retainMaxAge <= 0 && c.retainMaxBytes <= 0 {
		return
	}
	if !c.lastCleanupUnix.CompareAndSwap(last, now) {
		return
	}
	_ = c.cleanupOnce()
}

// cleanupOnce applies age retention then size retention, oldest hours first
func (c *CachedCollector) cleanupOnce() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	type item struct {
		Path   string
		Size   int64
		HourTS time.Time
	}
	var items []item
	var total int64
	cutoff := time.Now().Add(-c.retainMaxAge)

	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".json.gz") {
			continue
		}
		full := filepath.Join(c.dir, name)
		fi, err := os.Stat(full)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		hr, ok := ParseFilename(name)
		if !ok {
			continue
		}
		ts := hr.UTC()
		if c.retainMaxAge > 0 && ts.Before(cutoff) {
			_ = os.Remove(full)
			_ = os.Remove(full + ".meta")
			continue
		}
		items = append(items, item{Path: full, Size: fi.Size(), HourTS: ts})
		total += fi.Size()
	}

	if c.retainMaxBytes > 0 && total > c.retainMaxBytes {
		sort.Slice(items, func(i, j int) bool { return items[i].HourTS.Before(items[j].HourTS) })
		for _, it := range items {
			if total <= c.retainMaxBytes {
				break
			}
			_ = os.Remove(it.Path)
			_ = os.Remove(it.Path + ".meta")
			total -= it.Size
		}
	}
	return nil
}
