// Package stream broadcasts animator snapshots to browsers over websockets
// and feeds their scroll position and viewport back to the animator.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
)

// Config holds the websocket endpoint settings.
type Config struct {
	// Addr is the listen address. Empty disables the stream.
	Addr string `yaml:"addr" json:"addr"`

	// Path is the websocket route.
	Path string `yaml:"path" json:"path"`

	// SendBuffer is the number of frames queued per subscriber before it
	// is considered slow and dropped.
	SendBuffer int `yaml:"send_buffer" json:"send_buffer"`

	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// DefaultConfig returns the stream defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:9878",
		Path:         "/ws",
		SendBuffer:   16,
		WriteTimeout: 5 * time.Second,
	}
}

// Validate reports the first unusable field.
func (c Config) Validate() error {
	switch {
	case c.Path == "" || c.Path[0] != '/':
		return fmt.Errorf("stream: path must start with '/', got %q", c.Path)
	case c.SendBuffer < 1:
		return fmt.Errorf("stream: send_buffer must be >= 1, got %d", c.SendBuffer)
	case c.WriteTimeout <= 0:
		return fmt.Errorf("stream: write_timeout must be > 0, got %s", c.WriteTimeout)
	}
	return nil
}

// Stats counts hub traffic.
type Stats struct {
	Subscribers int   `json:"subscribers"`
	Published   int64 `json:"published"`
	Dropped     int64 `json:"dropped"`
	Updates     int64 `json:"viewport_updates"`
}

type subscriber struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	code   int
	reason string
}

// Hub fans snapshots out to every connected subscriber. Publish never
// blocks: a subscriber whose queue is full is disconnected.
type Hub struct {
	cfg      Config
	host     *RemoteHost
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	last   []byte
	closed bool
	wg     sync.WaitGroup

	published atomic.Int64
	dropped   atomic.Int64
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHub creates a hub. host may be nil, in which case client viewport
// messages are ignored.
func NewHub(cfg Config, host *RemoteHost, opts ...Option) *Hub {
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = DefaultConfig().SendBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	h := &Hub{
		cfg:  cfg,
		host: host,
		log:  zap.NewNop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		subs: make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish encodes s once and queues it for every subscriber.
func (h *Hub) Publish(s gridtrace.Snapshot) {
	data, err := json.Marshal(frameMessage{Type: "frame", Snapshot: s})
	if err != nil {
		h.log.Error("encoding snapshot", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last = data
	h.published.Add(1)
	for sub := range h.subs {
		select {
		case sub.send <- data:
		default:
			h.dropped.Add(1)
			h.log.Warn("dropping slow subscriber", zap.String("remote", remoteAddr(sub)))
			h.removeLocked(sub, websocket.CloseTryAgainLater, "too slow")
		}
	}
}

// Subscribers is the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Stats returns the current counters.
func (h *Hub) Stats() Stats {
	st := Stats{
		Subscribers: h.Subscribers(),
		Published:   h.published.Load(),
		Dropped:     h.dropped.Load(),
	}
	if h.host != nil {
		st.Updates = h.host.Updates()
	}
	return st
}

// ServeHTTP upgrades the request and serves the subscriber until either
// side closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, h.cfg.SendBuffer),
		done: make(chan struct{}),
	}
	if !h.add(sub, 2) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}
	defer h.wg.Done()

	h.log.Debug("subscriber connected", zap.String("remote", r.RemoteAddr))
	go h.writePump(sub)
	h.readPump(sub)
	h.log.Debug("subscriber disconnected", zap.String("remote", r.RemoteAddr))
}

// add registers sub and reserves a wait group slot for each of its pumps.
func (h *Hub) add(sub *subscriber, pumps int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subs[sub] = struct{}{}
	h.wg.Add(pumps)
	if h.last != nil {
		sub.send <- h.last
	}
	return true
}

func (h *Hub) remove(sub *subscriber, code int, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub, code, reason)
}

func (h *Hub) removeLocked(sub *subscriber, code int, reason string) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	sub.code, sub.reason = code, reason
	close(sub.done)
}

func (h *Hub) writePump(sub *subscriber) {
	defer h.wg.Done()
	defer sub.conn.Close()

	for {
		select {
		case data := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(sub, websocket.CloseAbnormalClosure, "")
				return
			}
		case <-sub.done:
			if sub.code != websocket.CloseAbnormalClosure {
				sub.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(sub.code, sub.reason),
					time.Now().Add(h.cfg.WriteTimeout))
			}
			return
		}
	}
}

// readPump applies client messages until the connection fails. A client
// close is answered by the connection's default close handler.
func (h *Hub) readPump(sub *subscriber) {
	defer h.remove(sub, websocket.CloseAbnormalClosure, "")
	sub.conn.SetReadLimit(4096)

	for {
		_, payload, err := sub.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.log.Debug("discarding malformed message", zap.String("remote", remoteAddr(sub)), zap.Error(err))
			continue
		}
		switch msg.Type {
		case "viewport":
			if h.host != nil {
				h.host.Update(msg.ScrollY, msg.Width, msg.Height)
			}
		default:
			h.log.Debug("unknown message type", zap.String("type", msg.Type))
		}
	}
}

// Close disconnects every subscriber and waits for their goroutines.
// Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for sub := range h.subs {
		h.removeLocked(sub, websocket.CloseGoingAway, "shutting down")
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// Run listens on cfg.Addr and serves until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.cfg.Addr, err)
	}
	return h.Serve(ctx, ln)
}

// Serve serves the websocket route on ln until ctx is done, then closes
// all subscribers.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle(h.cfg.Path, h)
	mux.HandleFunc("/api/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(h.Stats())
	})
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
		h.Close()
	}()

	h.log.Info("stream listening", zap.String("url", "ws://"+ln.Addr().String()+h.cfg.Path))
	err := server.Serve(ln)
	cancel()
	<-stopped
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("stream server: %w", err)
	}
	return nil
}

func remoteAddr(sub *subscriber) string {
	if sub.conn == nil {
		return ""
	}
	return sub.conn.RemoteAddr().String()
}

type frameMessage struct {
	Type string `json:"type"`
	gridtrace.Snapshot
}

type clientMessage struct {
	Type    string  `json:"type"`
	ScrollY float64 `json:"scrollY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}
