// Package inspect streams snapshots of the running scene to websocket
// clients, for editors and debugging tools.
package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fussion/engine/internal/core/observability/log"
	"github.com/fussion/engine/internal/core/scene"
	"github.com/fussion/engine/internal/core/serialization"
	"github.com/fussion/engine/pkg/generic"
)

const (
	sendBuffer   = 8
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server broadcasts the latest snapshot to every client connected on /ws.
// New clients receive the most recent snapshot right away. A client that
// cannot keep up misses snapshots instead of slowing the frame loop.
type Server struct {
	addr   string
	logger log.Log

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte

	http     *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

func NewServer(addr string, logger log.Log) *Server {
	if logger == nil {
		logger = log.Nop()
	}
	return &Server{
		addr:    addr,
		logger:  logger.With(log.String("component", "inspector")),
		clients: make(map[*client]struct{}),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.http = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("inspector stopped", log.Error(err))
		}
	}()
	s.logger.Info("inspector listening", log.String("address", ln.Addr().String()))
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	if s.last != nil {
		c.send <- s.last
	}
	count := len(s.clients)
	s.mu.Unlock()
	s.logger.Debug("inspector client connected",
		log.String("remote", conn.RemoteAddr().String()),
		log.Int("clients", count))

	go s.writeLoop(c)
	s.readLoop(c)
}

// readLoop discards client messages and notices disconnects.
func (s *Server) readLoop(c *client) {
	defer s.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.logger.Debug("inspector write failed", log.Error(err))
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// Publish hands a snapshot to every client without blocking.
func (s *Server) Publish(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = data
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.logger.Debug("inspector client is slow, snapshot dropped")
		}
	}
}

func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Stop closes every client and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	if s.http == nil {
		return nil
	}
	err := s.http.Shutdown(ctx)
	s.wg.Wait()
	return err
}

type snapshot struct {
	Frame uint64         `json:"frame"`
	Scene map[string]any `json:"scene"`
}

var buffers = generic.NewHotPool(func() *bytes.Buffer { return new(bytes.Buffer) }, 2)

// Snapshot serializes s as JSON tagged with the frame number. It must run
// on the main thread.
func Snapshot(s *scene.Scene, frame uint64) ([]byte, error) {
	w := serialization.NewWriter()
	s.Serialize(w)
	tree, err := w.Root()
	if err != nil {
		return nil, err
	}

	buf := buffers.Get()
	defer func() {
		buf.Reset()
		buffers.Put(buf)
	}()
	if err := json.NewEncoder(buf).Encode(snapshot{Frame: frame, Scene: tree}); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}
