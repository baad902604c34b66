package reader

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"believescreener/config"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

const page = "<html><body><h1>Launch Coin</h1></body></html>"

func testSource(url string) config.SourceConfig {
	src := config.Default().Source
	src.BaseURL = url
	src.Timeout = 2 * time.Second
	src.RateLimit = config.RateLimitConfig{}
	return src
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(page))
	}))
	defer srv.Close()

	r := NewPageReader(testSource(srv.URL))
	body, err := r.FetchListing(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != page {
		t.Fatalf("unexpected body: %q", body)
	}
	if got.Get("User-Agent") != config.DefaultUserAgent {
		t.Errorf("unexpected user agent: %q", got.Get("User-Agent"))
	}
	for k, v := range browserHeaders {
		if k == "Connection" {
			continue // consumed by the transport
		}
		if got.Get(k) != v {
			t.Errorf("header %s = %q, want %q", k, got.Get(k), v)
		}
	}
}

func TestFetchTokenPath(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(page))
	}))
	defer srv.Close()

	r := NewPageReader(testSource(srv.URL))
	if _, err := r.FetchToken(context.Background(), "Ey59PH7Z4BFU4HjyKnyMdWt5GGN76KazTAwQihoUXRnk"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if path != "/token/Ey59PH7Z4BFU4HjyKnyMdWt5GGN76KazTAwQihoUXRnk" {
		t.Fatalf("unexpected path %q", path)
	}
}

func encode(t *testing.T, encoding string) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch encoding {
	case "gzip":
		w := gzip.NewWriter(&buf)
		w.Write([]byte(page))
		w.Close()
	case "br":
		w := brotli.NewWriter(&buf)
		w.Write([]byte(page))
		w.Close()
	case "deflate":
		w := zlib.NewWriter(&buf)
		w.Write([]byte(page))
		w.Close()
	default:
		buf.WriteString(page)
	}
	return buf.Bytes()
}

func TestFetchDecodesContentEncoding(t *testing.T) {
	for _, enc := range []string{"", "gzip", "br", "deflate"} {
		payload := encode(t, enc)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if enc != "" {
				w.Header().Set("Content-Encoding", enc)
			}
			w.Write(payload)
		}))

		r := NewPageReader(testSource(srv.URL))
		body, err := r.FetchListing(context.Background())
		srv.Close()
		if err != nil {
			t.Fatalf("%q: fetch: %v", enc, err)
		}
		if string(body) != page {
			t.Fatalf("%q: unexpected body %q", enc, body)
		}
	}
}

func TestFetchUnsupportedEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "zstd-custom")
		w.Write([]byte("???"))
	}))
	defer srv.Close()

	r := NewPageReader(testSource(srv.URL))
	if _, err := r.FetchListing(context.Background()); err == nil {
		t.Fatal("expected error for unsupported encoding")
	}
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	old := maxBodyBytes
	maxBodyBytes = int64(len(page))
	t.Cleanup(func() { maxBodyBytes = old })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/exact" {
			w.Write([]byte(page))
			return
		}
		w.Write([]byte(page + strings.Repeat("<p>tail</p>", 10)))
	}))
	defer srv.Close()

	r := NewPageReader(testSource(srv.URL))
	if _, err := r.FetchListing(context.Background()); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}

	body, err := r.FetchToken(context.Background(), "exact")
	if err != nil {
		t.Fatalf("page at the limit should be accepted: %v", err)
	}
	if string(body) != page {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestFetchRejectsOversizedDecodedBody(t *testing.T) {
	old := maxBodyBytes
	maxBodyBytes = 64
	t.Cleanup(func() { maxBodyBytes = old })

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(strings.Repeat("a", 4096)))
	zw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	r := NewPageReader(testSource(srv.URL))
	if _, err := r.FetchListing(context.Background()); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	r := NewPageReader(testSource(srv.URL))
	_, err := r.FetchListing(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode() != http.StatusForbidden {
		t.Fatalf("unexpected status %d", se.StatusCode())
	}
}

func TestFetchCachesSuccessfulPages(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(page))
	}))
	defer srv.Close()

	r := NewPageReader(testSource(srv.URL))
	for i := 0; i < 3; i++ {
		if _, err := r.FetchListing(context.Background()); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected 1 upstream hit, got %d", n)
	}

	r.Purge()
	if _, err := r.FetchListing(context.Background()); err != nil {
		t.Fatalf("fetch after purge: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected 2 upstream hits after purge, got %d", n)
	}
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(page))
	}))
	defer srv.Close()

	r := NewPageReader(testSource(srv.URL))
	if _, err := r.FetchListing(context.Background()); err == nil {
		t.Fatal("expected first fetch to fail")
	}
	if _, err := r.FetchListing(context.Background()); err != nil {
		t.Fatalf("second fetch should reach upstream again: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected 2 upstream hits, got %d", n)
	}
}

func TestFetchCacheDisabled(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(page))
	}))
	defer srv.Close()

	src := testSource(srv.URL)
	src.Cache.Enabled = false
	src.Cache.Coalesce = false
	r := NewPageReader(src)
	r.FetchListing(context.Background())
	r.FetchListing(context.Background())
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected 2 upstream hits with cache disabled, got %d", n)
	}
}

func TestFetchCoalescesConcurrentRequests(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		w.Write([]byte(page))
	}))
	defer srv.Close()

	src := testSource(srv.URL)
	src.Cache.Enabled = false
	src.Cache.Coalesce = true
	r := NewPageReader(src)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.FetchListing(context.Background())
			errs <- err
		}()
	}
	// give every caller time to join the in-flight request
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected 1 upstream hit, got %d", n)
	}
}

func TestFetchHonoursContextCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	r := NewPageReader(testSource(srv.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := r.FetchListing(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
