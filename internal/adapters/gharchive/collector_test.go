package gharchive_test

import (
	"context"
	stderrs "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lakefill/internal/adapters/gharchive"
	perr "lakefill/internal/platform/errors"
)

func TestHTTPCollector_ReturnsBodyOnOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET got %s", r.Method)
		}
		_, _ = w.Write([]byte("abc"))
	}))
	defer srv.Close()

	c := gharchive.NewHTTPCollector(5 * time.Second)
	rc, err := c.Collect(context.Background(), srv.URL+"/2023-01-01-12.json.gz")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	defer func() { _ = rc.Close() }()

	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("expected readable body got %v", err)
	}
	if string(b) != "abc" {
		t.Fatalf("expected abc got %q", b)
	}
}

func TestHTTPCollector_ExposesSizeWhenKnown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("abc"))
	}))
	defer srv.Close()

	c := gharchive.NewHTTPCollector(0)
	rc, err := c.Collect(context.Background(), srv.URL+"/2023-01-01-12.json.gz")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	defer func() { _ = rc.Close() }()

	sized, ok := rc.(interface{ Size() int64 })
	if !ok {
		t.Fatal("expected body to expose Size when content length is known")
	}
	if got := sized.Size(); got != 3 {
		t.Fatalf("expected size 3 got %d", got)
	}
}

func TestHTTPCollector_NotFoundIsCleanMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := gharchive.NewHTTPCollector(0)
	_, err := c.Collect(context.Background(), srv.URL+"/2023-01-01-12.json.gz")
	if err == nil {
		t.Fatal("expected error")
	}
	if !perr.IsCollect(err) {
		t.Fatalf("expected collect class got code %d", perr.CodeOf(err))
	}
	if !stderrs.Is(err, gharchive.ErrHourMissing) {
		t.Fatalf("expected ErrHourMissing in chain got %v", err)
	}
	if perr.Retryable(err) {
		t.Fatalf("expected a missing hour to be terminal got %v", err)
	}
}

func TestHTTPCollector_ClassifiesStatuses(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"server error", http.StatusServiceUnavailable, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"forbidden", http.StatusForbidden, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := gharchive.NewHTTPCollector(0)
			_, err := c.Collect(context.Background(), srv.URL+"/2023-01-01-1.json.gz")
			if err == nil {
				t.Fatal("expected error")
			}
			if !perr.IsCollect(err) {
				t.Fatalf("expected collect class got code %d", perr.CodeOf(err))
			}
			if got := perr.Retryable(err); got != tc.retryable {
				t.Fatalf("expected retryable=%v got %v for status %d", tc.retryable, got, tc.status)
			}
		})
	}
}

func TestHTTPCollector_TransportFailureIsRetryableCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL + "/2023-01-01-2.json.gz"
	srv.Close()

	c := gharchive.NewHTTPCollector(time.Second)
	_, err := c.Collect(context.Background(), url)
	if err == nil {
		t.Fatal("expected error")
	}
	if !perr.IsCollect(err) {
		t.Fatalf("expected collect class got code %d", perr.CodeOf(err))
	}
	if !perr.Retryable(err) {
		t.Fatalf("expected transport failure to be retryable got %v", err)
	}
}

func TestHTTPCollector_CanceledContextIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("never read"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := gharchive.NewHTTPCollector(0)
	_, err := c.Collect(ctx, srv.URL+"/2023-01-01-3.json.gz")
	if err == nil {
		t.Fatal("expected error")
	}
	if !perr.IsCollect(err) {
		t.Fatalf("expected collect class got code %d", perr.CodeOf(err))
	}
	if !stderrs.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain got %v", err)
	}
	if perr.Retryable(err) {
		t.Fatalf("expected cancellation to be terminal got %v", err)
	}
}
