package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/autopeer-io/cellrelay/internal/pkg/metrics"
	"github.com/autopeer-io/cellrelay/pkg/options"
)

func TestRoutes(t *testing.T) {
	ready := false
	h := NewRouter(func() (bool, string) {
		if !ready {
			return false, "link down"
		}
		return true, ""
	})
	metrics.HeartbeatsTotal.Inc()

	tests := []struct {
		name     string
		method   string
		path     string
		ready    bool
		wantCode int
		wantBody string
	}{
		{"healthz", http.MethodGet, "/healthz", false, http.StatusOK, "ok"},
		{"readyz down", http.MethodGet, "/readyz", false, http.StatusServiceUnavailable, "link down"},
		{"readyz up", http.MethodGet, "/readyz", true, http.StatusOK, "ok"},
		{"metrics", http.MethodGet, "/metrics", false, http.StatusOK, "cpeer_heartbeats_total"},
		{"wrong method", http.MethodPost, "/healthz", false, http.StatusMethodNotAllowed, ""},
		{"unknown", http.MethodGet, "/nope", false, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ready = tt.ready
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestStartDisabled(t *testing.T) {
	opts := options.NewHttpOptions()
	opts.Addr = ""
	s := NewServer(opts, func() (bool, string) { return true, "" })
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestStartAndShutdown(t *testing.T) {
	opts := options.NewHttpOptions()
	opts.Addr = "127.0.0.1:0"
	s := NewServer(opts, func() (bool, string) { return true, "" })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStartServes(t *testing.T) {
	ts := httptest.NewServer(NewRouter(func() (bool, string) { return true, "" }))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("got %d %q", resp.StatusCode, body)
	}
}
