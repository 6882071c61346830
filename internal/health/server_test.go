package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/speedwagon-io/flexlab/internal/config"
	"github.com/speedwagon-io/flexlab/internal/lib/logger/sl"
)

func TestHealthAggregation(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []HealthChecker
		wantStatus Status
		wantCode   int
	}{
		{
			name:       "all healthy",
			checkers:   []HealthChecker{NewFuncChecker("testbed", func(context.Context) error { return nil })},
			wantStatus: StatusHealthy,
			wantCode:   http.StatusOK,
		},
		{
			name: "testbed down degrades",
			checkers: []HealthChecker{
				NewFuncChecker("testbed", func(context.Context) error { return errors.New("refused") }),
			},
			wantStatus: StatusDegraded,
			wantCode:   http.StatusOK,
		},
		{
			name: "journal failure is unhealthy",
			checkers: []HealthChecker{
				NewFuncChecker("testbed", func(context.Context) error { return errors.New("refused") }),
				NewJournalHealthChecker(func(context.Context) (int64, error) { return 0, errors.New("database is locked") }),
			},
			wantStatus: StatusUnhealthy,
			wantCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(sl.Discard(), &config.HTTPConfig{Address: "127.0.0.1:0"})
			for _, c := range tt.checkers {
				srv.AddChecker(c)
			}

			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected status code %d, got %d", tt.wantCode, rec.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("expected status %s, got %s", tt.wantStatus, resp.Status)
			}
			if len(resp.Components) != len(tt.checkers) {
				t.Errorf("expected %d components, got %d", len(tt.checkers), len(resp.Components))
			}
		})
	}
}

func TestMount(t *testing.T) {
	srv := NewServer(sl.Discard(), &config.HTTPConfig{Address: "127.0.0.1:0"})
	srv.Mount("/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/anything", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected mounted handler to answer, got %d", rec.Code)
	}
}

func TestTestbedReachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()

	if err := TestbedReachable(addr)(context.Background()); err != nil {
		t.Errorf("expected reachable listener, got %v", err)
	}

	ln.Close()
	if err := TestbedReachable(addr)(context.Background()); err == nil {
		t.Error("expected error after listener closed")
	}
}
