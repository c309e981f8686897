package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandler(t *testing.T) {
	failing := func(ctx context.Context) error { return errors.New("database is locked") }
	healthy := func(ctx context.Context) error { return nil }

	tests := []struct {
		name       string
		ready      ReadyFunc
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "liveness ignores readiness", ready: failing, path: "/healthz", wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "ready", ready: healthy, path: "/readyz", wantStatus: http.StatusOK, wantBody: "ready"},
		{name: "nil ready func", ready: nil, path: "/readyz", wantStatus: http.StatusOK, wantBody: "ready"},
		{name: "not ready", ready: failing, path: "/readyz", wantStatus: http.StatusServiceUnavailable, wantBody: "database is locked"},
		{name: "metrics", ready: nil, path: "/metrics", wantStatus: http.StatusOK, wantBody: "go_goroutines"},
		{name: "unknown path", ready: nil, path: "/debug", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Handler(tt.ready).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{ratio: 1, want: "AlwaysOnSampler"},
		{ratio: 2, want: "AlwaysOnSampler"},
		{ratio: 0, want: "AlwaysOffSampler"},
		{ratio: 0.25, want: "TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		desc := sampler(tt.ratio).Description()
		assert.Contains(t, desc, "ParentBased")
		assert.Contains(t, desc, tt.want)
	}
}
