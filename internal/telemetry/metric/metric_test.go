package metric

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fixedCount struct {
	base string
	n    int64
	err  error
}

func (f fixedCount) BaseName() string                     { return f.base }
func (f fixedCount) Count(context.Context) (int64, error) { return f.n, f.err }

func TestHandlerServesCollectors(t *testing.T) {
	r := NewRegistry()
	c := NewCollector(nil,
		fixedCount{base: "reports", n: 2},
		fixedCount{base: "broken", err: errors.New("store down")},
	)
	if err := r.Registerer().Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	out := string(body)
	if !strings.Contains(out, `collsnap_records{base_name="reports"} 2`) {
		t.Errorf("records gauge missing:\n%s", out)
	}
	if strings.Contains(out, `base_name="broken"`) {
		t.Errorf("failed counter was exported:\n%s", out)
	}
	if !strings.Contains(out, "go_goroutines") {
		t.Error("go collector missing")
	}
}

func TestServer(t *testing.T) {
	r := NewRegistry()
	srv, err := r.Listen("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve() = %v, want nil after Shutdown", err)
	}
}
