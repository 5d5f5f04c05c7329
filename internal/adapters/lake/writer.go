package lake

import (
	"context"
	stderrs "errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	perr "lakefill/internal/platform/errors"
	"lakefill/internal/platform/logger"
)

// payloadContentType is stamped on every stored object
const payloadContentType = "application/gzip"

// s3API is the slice of the minio client the writer touches
type s3API interface {
	PutObject(
		ctx context.Context,
		bucket string,
		key string,
		r io.Reader,
		size int64,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// Options configures the writer
// Endpoint is an optional URL for non AWS backends; empty selects AWS S3
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// Writer stores payloads into a single bucket
type Writer struct {
	client s3API
	bucket string
}

// NewWriter builds a writer from Options
// Credentials and bucket are required; endpoint and region may be empty
func NewWriter(opts Options) (*Writer, error) {
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, perr.Storef("lake: credentials are required")
	}
	if opts.Bucket == "" {
		return nil, perr.Storef("lake: bucket is required")
	}
	host, secure, err := parseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStore, "lake: endpoint %q", opts.Endpoint)
	}
	cli, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStore, "lake: client for %s", host)
	}
	return &Writer{client: cli, bucket: opts.Bucket}, nil
}

// Bucket returns the bucket this writer lands objects in
func (w *Writer) Bucket() string { return w.bucket }

// Store writes the payload at key, overwriting any previous object there
// Payloads exposing Size are uploaded sized, the rest stream chunked
func (w *Writer) Store(ctx context.Context, payload io.Reader, key string) error {
	size := int64(-1)
	if s, ok := payload.(interface{ Size() int64 }); ok {
		size = s.Size()
	}
	info, err := w.client.PutObject(ctx, w.bucket, key, payload, size, minio.PutObjectOptions{
		ContentType: payloadContentType,
	})
	if err != nil {
		return storeError(err, w.bucket, key)
	}
	logger.C(ctx).Debug().
		Str("bucket", w.bucket).
		Str("key", key).
		Int64("bytes", info.Size).
		Msg("lake: stored object")
	return nil
}

// Check verifies the bucket is reachable and exists
// CLIs call it once at startup so a bad destination fails before any fetch
func (w *Writer) Check(ctx context.Context) error {
	ok, err := w.client.BucketExists(ctx, w.bucket)
	if err != nil {
		return storeError(err, w.bucket, "")
	}
	if !ok {
		return perr.Storef("lake: bucket %q not found", w.bucket)
	}
	return nil
}

// parseEndpoint splits an optional endpoint URL into a minio host plus secure flag
// Empty input selects AWS S3 over TLS; a bare host is taken as TLS too
func parseEndpoint(raw string) (host string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "s3.amazonaws.com", true, nil
	}
	if !strings.Contains(raw, "://") {
		return raw, true, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, err
	}
	switch u.Scheme {
	case "https":
		secure = true
	case "http":
		secure = false
	default:
		return "", false, perr.Storef("lake: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", false, perr.Storef("lake: endpoint %q has no host", raw)
	}
	return u.Host, secure, nil
}

// storeError classifies a failed write
// Upstream 5xx and throttling stay transient, local cancellations are terminal
func storeError(err error, bucket, key string) error {
	cause := err
	var resp minio.ErrorResponse
	switch {
	case stderrs.As(err, &resp):
		if resp.StatusCode == http.StatusTooManyRequests {
			cause = perr.Wrapf(err, perr.ErrorCodeTooManyRequests, "status %d", resp.StatusCode)
		} else if resp.StatusCode >= 500 {
			cause = perr.Wrapf(err, perr.ErrorCodeUnavailable, "status %d", resp.StatusCode)
		}
	case stderrs.Is(err, context.Canceled), stderrs.Is(err, context.DeadlineExceeded):
		// keep the cause as is
	default:
		cause = perr.Wrap(err, perr.ErrorCodeUnavailable, "transport")
	}
	if key == "" {
		return perr.Wrapf(cause, perr.ErrorCodeStore, "lake: bucket %s", bucket)
	}
	return perr.Wrapf(cause, perr.ErrorCodeStore, "lake: put s3://%s/%s", bucket, key)
}
