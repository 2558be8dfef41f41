package geocode_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
	"github.com/geomap-tools/shareholder-import/internal/infrastructure/geocode"
)

func newTestClient(baseURL string) *geocode.Client {
	return geocode.NewClient(geocode.Config{
		BaseURL:           baseURL,
		RequestsPerSecond: 1000,
		ReadyTimeout:      200 * time.Millisecond,
		ReadyPollInterval: 10 * time.Millisecond,
	})
}

func TestResolveOK(t *testing.T) {
	t.Parallel()

	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`[{"lat":"35.676192","lon":"139.650311"}]`))
	}))
	defer srv.Close()

	result := newTestClient(srv.URL).Resolve(context.Background(), "Tokyo Tower")

	if result.Status != domain.GeocodeOK {
		t.Fatalf("expected ok, got %s", result.Status)
	}
	if result.Lat != "35.676192" || result.Lng != "139.650311" {
		t.Fatalf("coordinates must stay the returned strings, got %s / %s", result.Lat, result.Lng)
	}
	if gotQuery != "Tokyo Tower" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if gotUA != "shareholder-import/1.0" {
		t.Fatalf("unexpected user agent %q", gotUA)
	}
}

func TestResolveNoMatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	result := newTestClient(srv.URL).Resolve(context.Background(), "nowhere")
	if result.Status != domain.GeocodeNoMatch {
		t.Fatalf("expected no_match, got %s", result.Status)
	}
}

func TestResolveHitWithoutCoordinatesIsNoMatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat":"","lon":""}]`))
	}))
	defer srv.Close()

	result := newTestClient(srv.URL).Resolve(context.Background(), "x")
	if result.Status != domain.GeocodeNoMatch {
		t.Fatalf("expected no_match, got %s", result.Status)
	}
}

func TestResolveServiceErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"rate limited", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not":"an array"`))
		}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			result := newTestClient(srv.URL).Resolve(context.Background(), "x")
			if result.Status != domain.GeocodeServiceError {
				t.Fatalf("expected service_error, got %s", result.Status)
			}
		})
	}
}

func TestResolveUnreachableHost(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	result := newTestClient(srv.URL).Resolve(context.Background(), "x")
	if result.Status != domain.GeocodeServiceError {
		t.Fatalf("expected service_error, got %s", result.Status)
	}
}

func TestReadySucceedsOnce(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL).Ready(context.Background()); err != nil {
		t.Fatalf("ready: %v", err)
	}
}

func TestReadyRecoversWhileWaiting(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL).Ready(context.Background()); err != nil {
		t.Fatalf("ready should succeed after recovery: %v", err)
	}
	if got := hits.Load(); got < 3 {
		t.Fatalf("expected at least 3 polls, got %d", got)
	}
}

func TestReadyTimesOut(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Ready(context.Background())
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestReadyTimeoutBoundsHangingEndpoint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// never answer; the poll's own deadline has to cut the request
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := geocode.NewClient(geocode.Config{
		BaseURL:           srv.URL,
		ReadyTimeout:      100 * time.Millisecond,
		ReadyPollInterval: 10 * time.Millisecond,
	})

	start := time.Now()
	err := client.Ready(context.Background())
	elapsed := time.Since(start)

	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if elapsed > time.Second {
		t.Fatalf("readiness check overran its timeout, took %s", elapsed)
	}
}

func TestReadyHonorsContextCancel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := geocode.NewClient(geocode.Config{
		BaseURL:           srv.URL,
		ReadyTimeout:      5 * time.Second,
		ReadyPollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Ready(ctx)
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable on cancel, got %v", err)
	}
}
