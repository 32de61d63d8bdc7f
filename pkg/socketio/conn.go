// Package socketio is a small Socket.IO v4 client (Engine.IO protocol 4)
// that only speaks the websocket transport. It supports what a dashboard
// needs: connecting to the default namespace, receiving events, emitting
// events and answering heartbeats.
package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrDisconnected is returned when the server ends the namespace session.
	ErrDisconnected = errors.New("socketio: disconnected by server")
	// ErrClosed is returned when the Engine.IO connection is closed.
	ErrClosed = errors.New("socketio: connection closed")
)

const defaultPath = "/socket.io/"

// Config describes how to reach a Socket.IO server.
type Config struct {
	// URL is the server origin. http, https, ws and wss are accepted.
	URL string
	// Path defaults to /socket.io/.
	Path string
	// Header is sent with the websocket handshake.
	Header http.Header
	// Auth is sent as the CONNECT payload when non-nil.
	Auth map[string]any
	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Conn is an established namespace connection. ReadEvent must be called from a
// single goroutine; Emit and Close may be called concurrently with it.
type Conn struct {
	ws  *websocket.Conn
	sid string

	pingInterval time.Duration
	pingTimeout  time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// EndpointURL returns the websocket URL for cfg.
func EndpointURL(rawURL, path string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("socketio: unsupported scheme %q", u.Scheme)
	}
	if path == "" {
		path = defaultPath
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	u.Path = path

	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial opens the websocket, completes the Engine.IO handshake and connects to
// the default namespace.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	endpoint, err := EndpointURL(cfg.URL, cfg.Path)
	if err != nil {
		return nil, err
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	ws, resp, err := dialer.DialContext(ctx, endpoint, cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("socketio: dial %s: %w", endpoint, err)
	}

	c := &Conn{ws: ws}
	if deadline, ok := ctx.Deadline(); ok {
		_ = ws.SetReadDeadline(deadline)
	}
	if err := c.handshake(cfg.Auth); err != nil {
		_ = ws.Close()
		return nil, err
	}
	_ = ws.SetReadDeadline(time.Time{})
	return c, nil
}

func (c *Conn) handshake(auth map[string]any) error {
	frame, err := c.readFrame()
	if err != nil {
		return fmt.Errorf("socketio: read open packet: %w", err)
	}
	if len(frame) == 0 || frame[0] != engineOpen {
		return fmt.Errorf("%w: expected open packet, got %q", ErrMalformed, frame)
	}

	var open openPacket
	if err := json.Unmarshal(frame[1:], &open); err != nil {
		return fmt.Errorf("%w: open packet: %v", ErrMalformed, err)
	}
	c.sid = open.SID
	c.pingInterval = time.Duration(open.PingInterval) * time.Millisecond
	c.pingTimeout = time.Duration(open.PingTimeout) * time.Millisecond

	connect := []byte{engineMessage, packetConnect}
	if auth != nil {
		body, err := json.Marshal(auth)
		if err != nil {
			return err
		}
		connect = append(connect, body...)
	}
	if err := c.write(connect); err != nil {
		return err
	}

	for {
		frame, err := c.readFrame()
		if err != nil {
			return fmt.Errorf("socketio: await connect: %w", err)
		}
		switch {
		case len(frame) == 1 && frame[0] == enginePing:
			if err := c.write([]byte{enginePong}); err != nil {
				return err
			}
		case len(frame) >= 2 && frame[0] == engineMessage && frame[1] == packetConnect:
			return nil
		case len(frame) >= 2 && frame[0] == engineMessage && frame[1] == packetConnectError:
			var ce connectError
			_, data := splitPacket(string(frame[2:]))
			_ = json.Unmarshal([]byte(data), &ce)
			return fmt.Errorf("socketio: connect refused: %s", ce.Message)
		}
	}
}

// SID is the Engine.IO session id assigned by the server.
func (c *Conn) SID() string { return c.sid }

// ReadEvent blocks until the next event arrives, answering pings meanwhile.
// A missed heartbeat surfaces as a read timeout error. An undecodable event
// returns an error wrapping ErrMalformed; the frame is consumed and the next
// call continues with the following packet.
func (c *Conn) ReadEvent() (Event, error) {
	for {
		if c.pingInterval > 0 {
			_ = c.ws.SetReadDeadline(time.Now().Add(c.pingInterval + c.pingTimeout))
		}
		frame, err := c.readFrame()
		if err != nil {
			return Event{}, err
		}
		if len(frame) == 0 {
			continue
		}

		switch frame[0] {
		case enginePing:
			if err := c.write([]byte{enginePong}); err != nil {
				return Event{}, err
			}
		case engineClose:
			return Event{}, ErrClosed
		case engineNoop, enginePong:
		case engineMessage:
			if len(frame) < 2 {
				continue
			}
			switch frame[1] {
			case packetEvent:
				return parseEvent(string(frame[2:]))
			case packetDisconnect:
				return Event{}, ErrDisconnected
			case packetAck, packetConnect:
			}
		}
	}
}

// Emit sends an event to the server.
func (c *Conn) Emit(name string, args ...any) error {
	frame, err := encodeEvent(name, args...)
	if err != nil {
		return err
	}
	return c.write(frame)
}

// Close leaves the namespace and closes the websocket.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.write([]byte{engineMessage, packetDisconnect})
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readFrame() ([]byte, error) {
	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrClosed
			}
			return nil, err
		}
		// Binary frames carry attachments, which fleet events never use.
		if typ == websocket.TextMessage {
			return data, nil
		}
	}
}

func (c *Conn) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}
