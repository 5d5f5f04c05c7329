package gharchive_test

import (
	"context"
	stderrs "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"lakefill/internal/adapters/gharchive"
	perr "lakefill/internal/platform/errors"
)

func TestCachedCollector_DownloadsOnceThenServesFromDisk(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("hour-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := gharchive.NewCachedCollector(dir, gharchive.NewHTTPCollector(0))
	url := srv.URL + "/2023-01-01-12.json.gz"

	rc, err := c.Collect(context.Background(), url)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "hour-bytes" {
		t.Fatalf("expected hour-bytes got %q", b)
	}
	if _, ok := rc.(interface{ Name() string }); ok {
		t.Fatal("expected fresh download to hide Name")
	}
	if sized, ok := rc.(interface{ Size() int64 }); !ok || sized.Size() != int64(len("hour-bytes")) {
		t.Fatalf("expected sized body of %d bytes", len("hour-bytes"))
	}
	if _, err := os.Stat(filepath.Join(dir, "2023-01-01-12.json.gz.meta")); err != nil {
		t.Fatalf("expected meta sidecar got %v", err)
	}

	rc2, err := c.Collect(context.Background(), url)
	if err != nil {
		t.Fatalf("expected cached success got %v", err)
	}
	b2, _ := io.ReadAll(rc2)
	_ = rc2.Close()
	if string(b2) != "hour-bytes" {
		t.Fatalf("expected cached hour-bytes got %q", b2)
	}
	if _, ok := rc2.(interface{ Name() string }); !ok {
		t.Fatal("expected cache hit to expose Name")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one upstream request got %d", got)
	}
}

func TestCachedCollector_RevalidateNotModifiedServesLocal(t *testing.T) {
	hour := gharchive.NewHourRef(time.Now().UTC())
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write([]byte("first"))
			return
		}
		if got := r.Header.Get("If-None-Match"); got != `"v1"` {
			t.Errorf("expected conditional header got %q", got)
		}
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	c := gharchive.NewCachedCollector(
		t.TempDir(),
		gharchive.NewHTTPCollector(0),
		gharchive.WithRefreshRecent(48*time.Hour),
	)
	url := srv.URL + "/" + hour.Filename()

	rc, err := c.Collect(context.Background(), url)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	_, _ = io.ReadAll(rc)
	_ = rc.Close()

	rc2, err := c.Collect(context.Background(), url)
	if err != nil {
		t.Fatalf("expected revalidated success got %v", err)
	}
	b2, _ := io.ReadAll(rc2)
	_ = rc2.Close()
	if string(b2) != "first" {
		t.Fatalf("expected unchanged bytes got %q", b2)
	}
	if _, ok := rc2.(interface{ Name() string }); !ok {
		t.Fatal("expected 304 to serve the local copy")
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected two upstream requests got %d", got)
	}
}

func TestCachedCollector_RevalidateRefetchesOnChange(t *testing.T) {
	hour := gharchive.NewHourRef(time.Now().UTC())
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write([]byte("first"))
			return
		}
		w.Header().Set("ETag", `"v2"`)
		_, _ = w.Write([]byte("second"))
	}))
	defer srv.Close()

	c := gharchive.NewCachedCollector(
		t.TempDir(),
		gharchive.NewHTTPCollector(0),
		gharchive.WithRefreshRecent(48*time.Hour),
	)
	url := srv.URL + "/" + hour.Filename()

	rc, err := c.Collect(context.Background(), url)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	_, _ = io.ReadAll(rc)
	_ = rc.Close()

	rc2, err := c.Collect(context.Background(), url)
	if err != nil {
		t.Fatalf("expected refreshed success got %v", err)
	}
	b2, _ := io.ReadAll(rc2)
	_ = rc2.Close()
	if string(b2) != "second" {
		t.Fatalf("expected refreshed bytes got %q", b2)
	}
	if _, ok := rc2.(interface{ Name() string }); ok {
		t.Fatal("expected refetched bytes to hide Name")
	}
}

func TestCachedCollector_FallsBackToLocalWhenRevalidateFails(t *testing.T) {
	hour := gharchive.NewHourRef(time.Now().UTC())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("kept"))
	}))

	c := gharchive.NewCachedCollector(
		t.TempDir(),
		gharchive.NewHTTPCollector(time.Second),
		gharchive.WithRefreshRecent(48*time.Hour),
	)
	url := srv.URL + "/" + hour.Filename()

	rc, err := c.Collect(context.Background(), url)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	_, _ = io.ReadAll(rc)
	_ = rc.Close()

	srv.Close()

	rc2, err := c.Collect(context.Background(), url)
	if err != nil {
		t.Fatalf("expected local fallback got %v", err)
	}
	b2, _ := io.ReadAll(rc2)
	_ = rc2.Close()
	if string(b2) != "kept" {
		t.Fatalf("expected kept got %q", b2)
	}
}

func TestCachedCollector_MissingHourPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := gharchive.NewCachedCollector(dir, gharchive.NewHTTPCollector(0))

	_, err := c.Collect(context.Background(), srv.URL+"/2023-01-01-4.json.gz")
	if err == nil {
		t.Fatal("expected error")
	}
	if !perr.IsCollect(err) {
		t.Fatalf("expected collect class got code %d", perr.CodeOf(err))
	}
	if !stderrs.Is(err, gharchive.ErrHourMissing) {
		t.Fatalf("expected ErrHourMissing in chain got %v", err)
	}
	if _, serr := os.Stat(filepath.Join(dir, "2023-01-01-4.json.gz")); !os.IsNotExist(serr) {
		t.Fatalf("expected no cache entry for a missing hour got %v", serr)
	}
}

func TestCachedCollector_RejectsSourceWithoutFilename(t *testing.T) {
	c := gharchive.NewCachedCollector(t.TempDir(), nil)
	_, err := c.Collect(context.Background(), "https://data.gharchive.org/")
	if err == nil {
		t.Fatal("expected error")
	}
	if !perr.IsCollect(err) {
		t.Fatalf("expected collect class got code %d", perr.CodeOf(err))
	}
}
