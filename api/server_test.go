package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/goleak"

	"github.com/gurukul-labs/gurukul/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewServer_RequiresContentService(t *testing.T) {
	if _, err := NewServer(ServerConfig{Logger: log.NewNop()}); err == nil {
		t.Fatal("expected an error without a content service")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeContent{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/search", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, &fakeContent{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeContent{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestReadiness(t *testing.T) {
	tests := []struct {
		name         string
		db           Pinger
		degraded     func() bool
		wantStatus   int
		wantDegraded bool
	}{
		{"db healthy", fakePinger{}, nil, http.StatusOK, false},
		{"db down", fakePinger{err: errors.New("refused")}, nil, http.StatusServiceUnavailable, false},
		{"no db configured", nil, nil, http.StatusServiceUnavailable, false},
		{"degraded index", fakePinger{}, func() bool { return true }, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewServer(ServerConfig{
				Logger:   log.NewNop(),
				Content:  &fakeContent{},
				DB:       tt.db,
				Degraded: tt.degraded,
			})
			if err != nil {
				t.Fatalf("NewServer() error = %v", err)
			}

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				var body map[string]any
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("decoding body: %v", err)
				}
				_, degraded := body["degraded"]
				if degraded != tt.wantDegraded {
					t.Errorf("degraded flag = %v, want %v", degraded, tt.wantDegraded)
				}
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	srv, err := NewServer(ServerConfig{
		Logger:  log.NewNop(),
		Content: &fakeContent{},
		RateRPS: 0.001, // effectively no refill during the test
		Burst:   2,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	body := `{"query":"q","class_no":9,"subject":"Physics"}`
	var last int
	for range 3 {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/content/search", body)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}

	// Health probes bypass the limiter.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health after limiting = %d, want 200", rec.Code)
	}
}
