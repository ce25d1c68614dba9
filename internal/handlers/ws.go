package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"imagestream/internal/logging"
	"imagestream/internal/session"

	"github.com/gorilla/websocket"
)

// WebSocket framing.
//
// Requests are JSON text messages carrying an "id" and the stream
// arguments. A request with "action":"cancel" cancels the stream with that id.
// Chunks go out as binary messages: a big-endian uint16 id length, the id,
// then the chunk. Errors and end-of-stream go out as JSON text messages.
const (
	wsMaxMessageSize = 64 * 1024
	wsWriteWait      = 10 * time.Second
	wsMaxIDLength    = 256

	wsEventError       = "error"
	wsEventEndOfStream = "endOfStream"
	wsActionCancel     = "cancel"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 64 * 1024,
}

type wsErrorEvent struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

type wsEndEvent struct {
	ID    string `json:"id"`
	Event string `json:"event"`
}

// wsConn multiplexes stream sessions over one connection. All writes happen
// on the goroutine of its dispatcher.
type wsConn struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	d      *session.Dispatcher
	log    *logging.Logger

	mu     sync.Mutex
	active map[string]*session.Session
	wg     sync.WaitGroup
}

// StreamWebSocket serves stream sessions over a WebSocket connection.
//
//	GET /api/ws
func (h *Handlers) StreamWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		logging.Debug("websocket upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &wsConn{
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		d:      session.NewDispatcher(session.DefaultMailboxSize),
		log:    logging.With("ws", conn.RemoteAddr().String()),
		active: make(map[string]*session.Session),
	}
	defer c.shutdown()

	conn.SetReadLimit(wsMaxMessageSize)
	c.log.Debug("connection opened")

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("connection closed unexpectedly: %v", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			c.reject("", "requests must be JSON text messages")
			continue
		}
		h.handleWSRequest(c, data)
	}
}

func (h *Handlers) handleWSRequest(c *wsConn, data []byte) {
	var msg map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&msg); err != nil {
		c.reject("", "malformed request: "+err.Error())
		return
	}

	id, _ := msg["id"].(string)
	if id == "" || len(id) > wsMaxIDLength {
		c.reject(id, "id must be a non-empty string of at most 256 bytes")
		return
	}

	if action, _ := msg["action"].(string); action == wsActionCancel {
		c.mu.Lock()
		s := c.active[id]
		c.mu.Unlock()
		if s != nil {
			s.Cancel()
		}
		return
	}

	c.mu.Lock()
	if _, busy := c.active[id]; busy {
		c.mu.Unlock()
		c.reject(id, "a stream with this id is already running")
		return
	}
	delete(msg, "id")
	s := h.controller.Start(c.ctx, msg, c.d, &wsSink{c: c, id: id})
	c.active[id] = s
	c.mu.Unlock()

	c.log.Debug("stream %s started as session %s", id, s.ID)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-s.Done()
	}()
}

// reject answers a request that never became a session.
func (c *wsConn) reject(id, reason string) {
	err := c.d.Post(func() {
		c.writeJSON(wsErrorEvent{ID: id, Event: wsEventError, Code: session.CodeArgs, Message: session.MessageArgs, Details: reason})
		c.writeJSON(wsEndEvent{ID: id, Event: wsEventEndOfStream})
	})
	if err != nil {
		c.log.Debug("dropped rejection of %q: %v", id, err)
	}
}

func (c *wsConn) write(messageType int, data []byte) {
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		c.cancel()
		return
	}
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.log.Debug("write failed: %v", err)
		c.cancel()
	}
}

func (c *wsConn) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error("failed to encode event: %v", err)
		return
	}
	c.write(websocket.TextMessage, data)
}

func (c *wsConn) finished(id string) {
	c.mu.Lock()
	delete(c.active, id)
	c.mu.Unlock()
}

// shutdown cancels running sessions and waits for their events to be
// written before closing the connection.
func (c *wsConn) shutdown() {
	c.cancel()
	c.wg.Wait()
	c.d.Close()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if err := c.conn.Close(); err != nil {
		c.log.Debug("close failed: %v", err)
	}
	c.log.Debug("connection closed")
}

// wsSink frames the events of one session on a shared connection.
type wsSink struct {
	c  *wsConn
	id string
}

func (s *wsSink) Success(chunk []byte) {
	s.c.write(websocket.BinaryMessage, encodeChunkFrame(s.id, chunk))
}

func (s *wsSink) Error(code, message string, details any) {
	s.c.writeJSON(wsErrorEvent{ID: s.id, Event: wsEventError, Code: code, Message: message, Details: details})
}

func (s *wsSink) EndOfStream() {
	s.c.finished(s.id)
	s.c.writeJSON(wsEndEvent{ID: s.id, Event: wsEventEndOfStream})
}

func encodeChunkFrame(id string, chunk []byte) []byte {
	frame := make([]byte, 2+len(id)+len(chunk))
	binary.BigEndian.PutUint16(frame, uint16(len(id)))
	copy(frame[2:], id)
	copy(frame[2+len(id):], chunk)
	return frame
}
