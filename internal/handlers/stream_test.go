package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"

	"imagestream/internal/streaming"
)

func TestQueryArgs(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  map[string]any
	}{
		{"empty", "", map[string]any{}},
		{"strings", "uri=/media/a.png&mimeType=image/png", map[string]any{"uri": "/media/a.png", "mimeType": "image/png"}},
		{"typed values", "rotationDegrees=-90&isFlipped=true", map[string]any{"rotationDegrees": -90, "isFlipped": true}},
		{"unparseable values stay strings", "rotationDegrees=ninety&isFlipped=maybe", map[string]any{"rotationDegrees": "ninety", "isFlipped": "maybe"}},
		{"blank uri kept", "uri=", map[string]any{"uri": ""}},
		{"unknown keys dropped", "foo=bar", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			if got := queryArgs(q); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("queryArgs(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestStreamImage_PassThrough(t *testing.T) {
	h, _ := newTestHandlers(nil)
	srv := httptest.NewServer(http.HandlerFunc(h.StreamImage))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/stream?uri=/media/a.png&mimeType=image/png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if want := string(pngHeader) + "rest-of-file"; string(body) != want {
		t.Errorf("body = %q, want %q", body, want)
	}
	if code := resp.Trailer.Get(streaming.HeaderErrorCode); code != "" {
		t.Errorf("unexpected error trailer %q", code)
	}
}

func TestStreamImage_FailureAfterChunksUsesTrailers(t *testing.T) {
	h, _ := newTestHandlers(nil)
	srv := httptest.NewServer(http.HandlerFunc(h.StreamImage))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/stream?uri=/media/broken.png&mimeType=image/png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if string(body) != string(pngHeader) {
		t.Errorf("body = %q", body)
	}
	if code := resp.Trailer.Get(streaming.HeaderErrorCode); code != "streamImage-image-read-exception" {
		t.Errorf("error code trailer = %q", code)
	}
	if msg := resp.Trailer.Get(streaming.HeaderErrorMessage); msg != "failed to get image from uri=/media/broken.png" {
		t.Errorf("error message trailer = %q", msg)
	}
	if d := resp.Trailer.Get(streaming.HeaderErrorDetail); d != "unexpected EOF" {
		t.Errorf("error detail trailer = %q", d)
	}
}

func TestStreamImage_ErrorsBeforeFirstChunk(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails any
	}{
		{
			name:        "missing uri",
			query:       "mimeType=image/png",
			wantStatus:  http.StatusBadRequest,
			wantCode:    "streamImage-args",
			wantMessage: "failed because of missing arguments",
		},
		{
			name:        "bad rotation",
			query:       "uri=/media/a.png&mimeType=image/png&rotationDegrees=ninety",
			wantStatus:  http.StatusBadRequest,
			wantCode:    "streamImage-args",
			wantMessage: "failed because of missing arguments",
		},
		{
			name:        "missing file",
			query:       "uri=/media/none.png&mimeType=image/png",
			wantStatus:  http.StatusNotFound,
			wantCode:    "streamImage-image-read-exception",
			wantMessage: "failed to get image from uri=/media/none.png",
			wantDetails: "open /media/none.png: no such file or directory",
		},
		{
			name:        "undecodable custom type",
			query:       "uri=/media/x.bin&mimeType=image/vnd.custom",
			wantStatus:  http.StatusUnprocessableEntity,
			wantCode:    "streamImage-image-decode-null",
			wantMessage: "failed to get image from uri=/media/x.bin",
		},
		{
			name:        "video without frames",
			query:       "uri=/media/v.mp4&mimeType=video/mp4",
			wantStatus:  http.StatusUnprocessableEntity,
			wantCode:    "streamImage-video-null",
			wantMessage: "failed to get image from uri=/media/v.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandlers(nil)
			req := httptest.NewRequest(http.MethodGet, "/api/stream?"+tt.query, http.NoBody)
			w := httptest.NewRecorder()

			h.StreamImage(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get(streaming.HeaderErrorCode); got != tt.wantCode {
				t.Errorf("%s = %q, want %q", streaming.HeaderErrorCode, got, tt.wantCode)
			}

			var body streaming.ErrorBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if body.Code != tt.wantCode || body.Message != tt.wantMessage {
				t.Errorf("body = %+v", body)
			}
			if !reflect.DeepEqual(body.Details, tt.wantDetails) {
				t.Errorf("details = %#v, want %#v", body.Details, tt.wantDetails)
			}
		})
	}
}

func TestStreamImage_TranscodeRequest(t *testing.T) {
	h, images := newTestHandlers(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/stream?uri=/media/a.heic&mimeType=image/heic&rotationDegrees=270&isFlipped=1", http.NoBody)
	w := httptest.NewRecorder()

	h.StreamImage(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", w.Code, w.Body.String())
	}
	if w.Body.String() != string(pngHeader) {
		t.Errorf("body = %q", w.Body.String())
	}
	if images.last.RotationDegrees != 270 || !images.last.IsFlipped || images.last.MimeType != "image/heic" {
		t.Errorf("transcode request = %+v", images.last)
	}
}
