package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"imagestream/internal/database"
	"imagestream/internal/handlers"
	"imagestream/internal/mediatypes"
	"imagestream/internal/metrics"
	"imagestream/internal/session"
	"imagestream/internal/startup"
	"imagestream/internal/transcoder"

	"github.com/gorilla/mux"
)

type stubStore struct{}

func (stubStore) Ping(context.Context) error { return nil }

func (stubStore) RecentSessions(context.Context, int) ([]database.SessionRecord, error) {
	return nil, nil
}

func (stubStore) SessionStats(context.Context) ([]metrics.HistoryCount, error) {
	return nil, nil
}

type stubKeys struct{ configured bool }

func (k stubKeys) HasAPIKey(context.Context) bool { return k.configured }

func (stubKeys) ValidateAPIKey(_ context.Context, key string) error {
	if key != "0123456789abcdef" {
		return database.ErrInvalidAPIKey
	}
	return nil
}

func newTestRouter(configured bool) *mux.Router {
	controller := session.NewController(session.Config{})
	h := handlers.New(controller, stubStore{}, transcoder.New("/nonexistent/ffmpeg"), nil)
	return setupRouter(h, stubKeys{configured: configured})
}

func TestSessionRecord(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		in   session.Outcome
		want database.SessionRecord
	}{
		{
			name: "delivered",
			in: session.Outcome{
				SessionID: "s1", URI: "/media/a.png", MimeType: "image/png",
				Route: mediatypes.RoutePassThrough, Routed: true,
				Chunks: 2, Bytes: 300, StartedAt: started, Duration: time.Second,
			},
			want: database.SessionRecord{
				ID: "s1", URI: "/media/a.png", MimeType: "image/png",
				Route: "passthrough", Outcome: "delivered",
				Chunks: 2, Bytes: 300, StartedAt: started, Duration: time.Second,
			},
		},
		{
			name: "argument error before routing",
			in: session.Outcome{
				SessionID: "s2", ErrorCode: session.CodeArgs, StartedAt: started,
			},
			want: database.SessionRecord{
				ID: "s2", Route: "none", Outcome: session.CodeArgs, ErrorCode: session.CodeArgs, StartedAt: started,
			},
		},
		{
			name: "decode failure keeps detail",
			in: session.Outcome{
				SessionID: "s3", URI: "/media/b.heic", MimeType: "image/heic",
				Route: mediatypes.RouteImageTranscode, Routed: true,
				ErrorCode: "streamImage-image-decode-exception", Detail: "vips: bad header", StartedAt: started,
			},
			want: database.SessionRecord{
				ID: "s3", URI: "/media/b.heic", MimeType: "image/heic",
				Route: "image_transcode", Outcome: "streamImage-image-decode-exception",
				ErrorCode: "streamImage-image-decode-exception", ErrorDetail: "vips: bad header", StartedAt: started,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sessionRecord(tt.in); got != tt.want {
				t.Errorf("sessionRecord() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSetupRouterRoutes(t *testing.T) {
	routes, err := startup.GetRoutes(newTestRouter(false))
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}

	got := make(map[string]bool)
	for _, r := range routes {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health", "GET /healthz", "GET /livez", "HEAD /livez", "GET /readyz", "GET /version",
		"GET /api/stream", "GET /api/ws", "GET /api/sessions", "GET /api/stats",
	} {
		if !got[want] {
			t.Errorf("route %q not registered", want)
		}
	}
}

func TestRouterRequiresAPIKeyWhenConfigured(t *testing.T) {
	tests := []struct {
		name       string
		configured bool
		path       string
		key        string
		wantStatus int
	}{
		{"probe stays open", true, "/livez", "", http.StatusOK},
		{"version stays open", true, "/version", "", http.StatusOK},
		{"api without key", true, "/api/sessions", "", http.StatusUnauthorized},
		{"api with wrong key", true, "/api/sessions", "wrong-key-wrong-key", http.StatusUnauthorized},
		{"api with key", true, "/api/sessions", "0123456789abcdef", http.StatusOK},
		{"api open without configured key", false, "/api/stats", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.configured)
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.key != "" {
				req.Header.Set("Authorization", "Bearer "+tt.key)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouterStreamArgumentError(t *testing.T) {
	router := newTestRouter(false)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stream?uri=/media/a.png", http.NoBody))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if code := w.Header().Get("X-Stream-Error-Code"); code != session.CodeArgs {
		t.Errorf("error code = %q", code)
	}
}
