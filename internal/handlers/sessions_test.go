package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"imagestream/internal/database"
	"imagestream/internal/metrics"
	"imagestream/internal/startup"
)

func TestListSessions(t *testing.T) {
	records := []database.SessionRecord{
		{ID: "b", URI: "/media/b.png", Route: "passthrough", Outcome: "delivered", Chunks: 2, Bytes: 10, StartedAt: time.Unix(200, 0).UTC()},
		{ID: "a", URI: "/media/a.png", Route: "image_transcode", Outcome: "streamImage-image-decode-null", ErrorCode: "streamImage-image-decode-null", StartedAt: time.Unix(100, 0).UTC()},
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"default limit", "", http.StatusOK, defaultSessionLimit},
		{"explicit limit", "?limit=5", http.StatusOK, 5},
		{"limit is capped", "?limit=999999", http.StatusOK, database.MaxRecentSessions},
		{"zero", "?limit=0", http.StatusBadRequest, 0},
		{"not a number", "?limit=all", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{records: records}
			h, _ := newTestHandlers(store)
			w := httptest.NewRecorder()

			h.ListSessions(w, httptest.NewRequest(http.MethodGet, "/api/sessions"+tt.query, http.NoBody))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if store.gotLimit != tt.wantLimit {
				t.Errorf("limit passed to store = %d, want %d", store.gotLimit, tt.wantLimit)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var got []database.SessionRecord
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if len(got) != 2 || got[0].ID != "b" || got[1].ErrorCode != "streamImage-image-decode-null" {
				t.Errorf("sessions = %+v", got)
			}
		})
	}
}

func TestListSessionsEmptyIsArray(t *testing.T) {
	h, _ := newTestHandlers(&fakeStore{})
	w := httptest.NewRecorder()

	h.ListSessions(w, httptest.NewRequest(http.MethodGet, "/api/sessions", http.NoBody))

	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestListSessionsStoreError(t *testing.T) {
	h, _ := newTestHandlers(&fakeStore{err: errStore})
	w := httptest.NewRecorder()

	h.ListSessions(w, httptest.NewRequest(http.MethodGet, "/api/sessions", http.NoBody))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}

func TestGetStats(t *testing.T) {
	store := &fakeStore{stats: []metrics.HistoryCount{
		{Route: "passthrough", Outcome: "delivered", Count: 3, Bytes: 300},
		{Route: "video_thumbnail", Outcome: "streamImage-video-null", Count: 1},
	}}
	h, _ := newTestHandlers(store)
	w := httptest.NewRecorder()

	h.GetStats(w, httptest.NewRequest(http.MethodGet, "/api/stats", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got []StatsEntry
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	want := []StatsEntry{
		{Route: "passthrough", Outcome: "delivered", Count: 3, Bytes: 300},
		{Route: "video_thumbnail", Outcome: "streamImage-video-null", Count: 1},
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("stats = %+v, want %+v", got, want)
	}

	store.err = errStore
	w = httptest.NewRecorder()
	h.GetStats(w, httptest.NewRequest(http.MethodGet, "/api/stats", http.NoBody))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status on store error = %d", w.Code)
	}
}

func TestGetVersion(t *testing.T) {
	h := &Handlers{}
	w := httptest.NewRecorder()

	h.GetVersion(w, httptest.NewRequest(http.MethodGet, "/version", http.NoBody))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q", cc)
	}
	var info startup.BuildInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if info.Version != startup.Version {
		t.Errorf("version = %q, want %q", info.Version, startup.Version)
	}
}

func TestNewAppliesStreamTimeouts(t *testing.T) {
	h := New(nil, &fakeStore{}, nil, &startup.Config{StreamWriteTimeout: time.Second, StreamIdleTimeout: 2 * time.Second})
	if h.streamCfg.WriteTimeout != time.Second || h.streamCfg.IdleTimeout != 2*time.Second {
		t.Errorf("stream config = %+v", h.streamCfg)
	}
	if h.streamCfg.ChunkSize == 0 {
		t.Error("Expected the default chunk size to be kept")
	}
}
