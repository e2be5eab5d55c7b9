// Package observer streams simulation frames to local viewers: the latest
// frame over plain HTTP and every frame over a websocket.
package observer

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/pthm-cable/ecotile/game"
)

// FrameSchema is the JSON schema every published frame satisfies.
//
//go:embed frame.schema.json
var FrameSchema string

const writeTimeout = 5 * time.Second

// Frame is one tick as seen by observers.
type Frame struct {
	Type   string        `json:"type"`
	RunID  string        `json:"run_id,omitempty"`
	Tick   int32         `json:"tick"`
	Arena  float64       `json:"arena,omitempty"`
	Prey   int           `json:"prey"`
	Pred   int           `json:"pred"`
	Plants int           `json:"plants"`
	Agents []game.Sprite `json:"agents"`
}

// FromGame captures the state after the game's last completed tick.
func FromGame(g *game.Game) Frame {
	prey, pred, plants := g.Counts()
	return Frame{
		Tick:   g.Tick(),
		Prey:   prey,
		Pred:   pred,
		Plants: plants,
		Agents: g.Frame(),
	}
}

type subscriber struct {
	conn   *websocket.Conn
	frames chan []byte
}

// Server fans frames out to websocket subscribers. Only loopback clients
// are accepted.
type Server struct {
	runID  string
	arena  float64
	buffer int

	upgrader websocket.Upgrader

	mu     sync.Mutex
	latest []byte
	subs   map[uint64]*subscriber
	nextID uint64

	dropped atomic.Uint64
}

// NewServer creates a server. buffer is the number of frames queued per
// subscriber before new frames are dropped for it.
func NewServer(runID string, arena float64, buffer int) *Server {
	if buffer < 1 {
		buffer = 1
	}
	return &Server{
		runID:  runID,
		arena:  arena,
		buffer: buffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subs: make(map[uint64]*subscriber),
	}
}

// Handler routes GET /frame and GET /ws.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(loopbackOnly)
	r.HandleFunc("/frame", s.handleFrame).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	return r
}

// Publish encodes f and queues it for every subscriber. A subscriber whose
// queue is full misses the frame.
func (s *Server) Publish(f Frame) error {
	f.Type = "FRAME"
	f.RunID = s.runID
	f.Arena = s.arena
	if f.Agents == nil {
		f.Agents = []game.Sprite{}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = b
	for _, sub := range s.subs {
		select {
		case sub.frames <- b:
		default:
			s.dropped.Add(1)
		}
	}
	return nil
}

// Dropped returns how many frames were skipped for slow subscribers.
func (s *Server) Dropped() uint64 {
	return s.dropped.Load()
}

// Subscribers returns the number of connected websocket clients.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("observer listen: %w", err)
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	slog.Info("observer listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Close()
		return err
	case err := <-errc:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close disconnects every subscriber.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		_ = sub.conn.Close()
	}
}

func (s *Server) handleFrame(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	b := s.latest
	s.mu.Unlock()

	if b == nil {
		rw.WriteHeader(http.StatusNoContent)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_, _ = rw.Write(b)
}

func (s *Server) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		slog.Debug("observer upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, sub := s.subscribe(conn)
	defer s.unsubscribe(id)
	slog.Debug("observer connected", "id", id, "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writeErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				writeErr <- ctx.Err()
				return
			case b := <-sub.frames:
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
		}
	}()

	// Observers send nothing; reading only notices the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

	select {
	case <-writeErr:
	case <-time.After(500 * time.Millisecond):
	}
}

// subscribe registers conn and queues the latest frame, so a new client
// sees the current state before the next tick.
func (s *Server) subscribe(conn *websocket.Conn) (uint64, *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub := &subscriber{conn: conn, frames: make(chan []byte, s.buffer)}
	if s.latest != nil {
		sub.frames <- s.latest
	}
	s.subs[s.nextID] = sub
	return s.nextID, sub
}

func (s *Server) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(rw, r)
	})
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
