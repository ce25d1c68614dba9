package handlers

import (
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func decodeChunkFrame(frame []byte) (id string, chunk []byte, ok bool) {
	if len(frame) < 2 {
		return "", nil, false
	}
	n := int(binary.BigEndian.Uint16(frame))
	if len(frame) < 2+n {
		return "", nil, false
	}
	return string(frame[2 : 2+n]), frame[2+n:], true
}

type wsEvent struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

// wsResult is what a client saw for one request id.
type wsResult struct {
	chunks []string
	errors []wsEvent
	ended  bool
}

func dialWS(t *testing.T, h *Handlers) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.StreamWebSocket))
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

// readUntilEnded reads events until every id in ids has ended.
func readUntilEnded(t *testing.T, conn *websocket.Conn, ids ...string) map[string]*wsResult {
	t.Helper()
	results := make(map[string]*wsResult)
	get := func(id string) *wsResult {
		if results[id] == nil {
			results[id] = &wsResult{}
		}
		return results[id]
	}
	pending := len(ids)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for pending > 0 {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed with %d streams pending: %v", pending, err)
		}
		if mt == websocket.BinaryMessage {
			id, chunk, ok := decodeChunkFrame(data)
			if !ok {
				t.Fatalf("malformed chunk frame %q", data)
			}
			r := get(id)
			if r.ended || len(r.errors) > 0 {
				t.Errorf("chunk for %q after error or end", id)
			}
			r.chunks = append(r.chunks, string(chunk))
			continue
		}

		var ev wsEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("bad event %q: %v", data, err)
		}
		r := get(ev.ID)
		switch ev.Event {
		case "error":
			if r.ended {
				t.Errorf("error for %q after end", ev.ID)
			}
			r.errors = append(r.errors, ev)
		case "endOfStream":
			if r.ended {
				t.Errorf("second endOfStream for %q", ev.ID)
			}
			r.ended = true
			pending--
		default:
			t.Fatalf("unknown event %q", ev.Event)
		}
	}
	return results
}

func TestEncodeChunkFrame(t *testing.T) {
	frame := encodeChunkFrame("req-1", []byte("payload"))
	id, chunk, ok := decodeChunkFrame(frame)
	if !ok || id != "req-1" || string(chunk) != "payload" {
		t.Errorf("decoded (%q, %q, %v)", id, chunk, ok)
	}

	empty := encodeChunkFrame("x", nil)
	if len(empty) != 3 {
		t.Errorf("frame length = %d, want 3", len(empty))
	}
}

func TestStreamWebSocket_ConcurrentRequests(t *testing.T) {
	h, _ := newTestHandlers(nil)
	conn := dialWS(t, h)

	sendJSON(t, conn, map[string]any{"id": "one", "uri": "/media/a.png", "mimeType": "image/png"})
	sendJSON(t, conn, map[string]any{"id": "two", "uri": "/media/none.png", "mimeType": "image/png"})
	sendJSON(t, conn, map[string]any{"id": "three", "uri": "/media/a.heic", "mimeType": "image/heic", "rotationDegrees": 90})

	results := readUntilEnded(t, conn, "one", "two", "three")

	if got := strings.Join(results["one"].chunks, ""); got != string(pngHeader)+"rest-of-file" {
		t.Errorf("one: body = %q", got)
	}
	if len(results["one"].errors) != 0 {
		t.Errorf("one: errors = %+v", results["one"].errors)
	}

	two := results["two"]
	if len(two.chunks) != 0 || len(two.errors) != 1 {
		t.Fatalf("two: %+v", two)
	}
	if two.errors[0].Code != "streamImage-image-read-exception" {
		t.Errorf("two: code = %q", two.errors[0].Code)
	}
	if two.errors[0].Details != "open /media/none.png: no such file or directory" {
		t.Errorf("two: details = %v", two.errors[0].Details)
	}

	if got := strings.Join(results["three"].chunks, ""); got != string(pngHeader) {
		t.Errorf("three: body = %q", got)
	}
}

func TestStreamWebSocket_ArgumentErrors(t *testing.T) {
	h, _ := newTestHandlers(nil)
	conn := dialWS(t, h)

	sendJSON(t, conn, map[string]any{"id": "bad", "uri": "/media/a.png"})
	results := readUntilEnded(t, conn, "bad")

	bad := results["bad"]
	if len(bad.errors) != 1 || bad.errors[0].Code != "streamImage-args" {
		t.Fatalf("bad: %+v", bad)
	}
	if bad.errors[0].Message != "failed because of missing arguments" || bad.errors[0].Details != nil {
		t.Errorf("bad: error = %+v", bad.errors[0])
	}
}

func TestStreamWebSocket_RejectsMalformedRequests(t *testing.T) {
	h, _ := newTestHandlers(nil)
	conn := dialWS(t, h)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	results := readUntilEnded(t, conn, "")
	if r := results[""]; len(r.errors) != 1 || r.errors[0].Code != "streamImage-args" {
		t.Fatalf("malformed: %+v", r)
	}

	sendJSON(t, conn, map[string]any{"uri": "/media/a.png", "mimeType": "image/png"})
	results = readUntilEnded(t, conn, "")
	if r := results[""]; len(r.errors) != 1 || !strings.Contains(r.errors[0].Details.(string), "id") {
		t.Fatalf("missing id: %+v", r)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	results = readUntilEnded(t, conn, "")
	if r := results[""]; len(r.errors) != 1 {
		t.Fatalf("binary request: %+v", r)
	}
}

func TestStreamWebSocket_Cancel(t *testing.T) {
	h, _ := newTestHandlers(nil)
	conn := dialWS(t, h)

	sendJSON(t, conn, map[string]any{"id": "slow", "uri": "/media/slow.png", "mimeType": "image/png"})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if id, _, ok := decodeChunkFrame(data); mt != websocket.BinaryMessage || !ok || id != "slow" {
		t.Fatalf("expected the first chunk of slow, got type %d %q", mt, data)
	}

	sendJSON(t, conn, map[string]any{"id": "slow", "action": "cancel"})
	results := readUntilEnded(t, conn, "slow")

	slow := results["slow"]
	if len(slow.errors) != 1 || slow.errors[0].Code != "streamImage-image-read-exception" {
		t.Fatalf("slow: %+v", slow)
	}

	// The id is free again once the stream has ended.
	sendJSON(t, conn, map[string]any{"id": "slow", "uri": "/media/a.png", "mimeType": "image/png"})
	results = readUntilEnded(t, conn, "slow")
	if len(results["slow"].errors) != 0 {
		t.Errorf("reused id: %+v", results["slow"])
	}
}

func TestStreamWebSocket_ClientDisconnectCancelsSessions(t *testing.T) {
	h, _ := newTestHandlers(nil)
	conn := dialWS(t, h)

	sendJSON(t, conn, map[string]any{"id": "slow", "uri": "/media/slow.png", "mimeType": "image/png"})
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatal(err)
	}
	conn.Close()

	done := make(chan struct{})
	go func() {
		h.controller.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session still running after the client disconnected")
	}
}
