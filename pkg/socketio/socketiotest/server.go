// Package socketiotest provides an in-process Socket.IO server for tests.
package socketiotest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Server accepts websocket Socket.IO clients on any path.
type Server struct {
	*httptest.Server

	refuseConnect string

	upgrader  websocket.Upgrader
	mu        sync.Mutex
	clients   map[*client]struct{}
	connected chan struct{}
	received  chan string
	handshake chan http.Header
}

type client struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *client) write(frame string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(frame))
}

// Option configures a Server before it starts.
type Option func(*Server)

// WithRefuseConnect makes every namespace CONNECT fail with message.
func WithRefuseConnect(message string) Option {
	return func(s *Server) { s.refuseConnect = message }
}

// NewServer starts a server. Close it when done.
func NewServer(opts ...Option) *Server {
	s := &Server{
		clients:   make(map[*client]struct{}),
		connected: make(chan struct{}, 16),
		received:  make(chan string, 64),
		handshake: make(chan http.Header, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{ws: ws}
	defer ws.Close()

	select {
	case s.handshake <- r.Header.Clone():
	default:
	}

	if err := c.write(`0{"sid":"test-sid","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`); err != nil {
		return
	}
	_, frame, err := ws.ReadMessage()
	if err != nil || len(frame) < 2 || string(frame[:2]) != "40" {
		return
	}
	if s.refuseConnect != "" {
		msg, _ := json.Marshal(map[string]string{"message": s.refuseConnect})
		_ = c.write("44" + string(msg))
		return
	}
	if err := c.write(`40{"sid":"test-ns-sid"}`); err != nil {
		return
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	select {
	case s.connected <- struct{}{}:
	default:
	}

	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			return
		}
		select {
		case s.received <- string(frame):
		default:
		}
		if string(frame) == "41" {
			return
		}
	}
}

// WaitConnected blocks until a client completes the namespace connect.
func (s *Server) WaitConnected(timeout time.Duration) bool {
	select {
	case <-s.connected:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Handshake returns the headers of the next websocket handshake.
func (s *Server) Handshake(timeout time.Duration) (http.Header, bool) {
	select {
	case h := <-s.handshake:
		return h, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Received returns the next frame sent by any client, pongs included.
func (s *Server) Received(timeout time.Duration) (string, bool) {
	select {
	case f := <-s.received:
		return f, true
	case <-time.After(timeout):
		return "", false
	}
}

// Emit sends an event with one JSON argument to every connected client.
func (s *Server) Emit(name string, payload any) error {
	body, err := json.Marshal([]any{name, payload})
	if err != nil {
		return err
	}
	return s.broadcast("42" + string(body))
}

// Ping sends an Engine.IO ping to every client.
func (s *Server) Ping() error {
	return s.broadcast("2")
}

// Raw sends frame verbatim to every client.
func (s *Server) Raw(frame string) error {
	return s.broadcast(frame)
}

// DropClients closes every client websocket without a close handshake.
func (s *Server) DropClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		_ = c.ws.Close()
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) broadcast(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) == 0 {
		return fmt.Errorf("socketiotest: no connected clients")
	}
	for c := range s.clients {
		if err := c.write(frame); err != nil {
			return err
		}
	}
	return nil
}
