package events

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/fleetcore-io/fleetcore/pkg/socketio"
)

var _ Transport = (*SocketIOTransport)(nil)

// SocketIOTransport receives events from a Socket.IO server and reconnects
// with exponential backoff when the connection drops.
type SocketIOTransport struct {
	cfg       socketio.Config
	backoff   wait.Backoff
	header    func() http.Header
	log       logr.Logger
	connected atomic.Bool
}

// NewSocketIOTransport dials cfg. header, when set, is evaluated on every
// connection attempt so a refreshed session token is picked up.
func NewSocketIOTransport(cfg socketio.Config, initial, maxDelay time.Duration, header func() http.Header, log logr.Logger) *SocketIOTransport {
	return &SocketIOTransport{
		cfg: cfg,
		backoff: wait.Backoff{
			Duration: initial,
			Factor:   2,
			Jitter:   0.2,
			Steps:    math.MaxInt32,
			Cap:      maxDelay,
		},
		header: header,
		log:    log,
	}
}

func (t *SocketIOTransport) Name() string { return "socketio" }

func (t *SocketIOTransport) Connected() bool { return t.connected.Load() }

func (t *SocketIOTransport) Run(ctx context.Context, emit func(context.Context, Event)) error {
	backoff := t.backoff
	connectedBefore := false
	for {
		cfg := t.cfg
		if t.header != nil {
			cfg.Header = t.header()
		}

		conn, err := socketio.Dial(ctx, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			delay := backoff.Step()
			t.log.Info("Event service unreachable, retrying", "err", err.Error(), "delay", delay)
			if !sleep(ctx, delay) {
				return nil
			}
			continue
		}

		backoff = t.backoff
		t.connected.Store(true)
		t.log.Info("Connected to event service", "sid", conn.SID())
		if connectedBefore {
			// Changes made while disconnected produced no events.
			emit(ctx, Event{Name: Reconnected})
		}
		connectedBefore = true

		err = t.consume(ctx, conn, emit)
		t.connected.Store(false)
		if ctx.Err() != nil {
			return nil
		}
		t.log.Info("Event connection lost", "err", err.Error())
		if !sleep(ctx, backoff.Step()) {
			return nil
		}
	}
}

func (t *SocketIOTransport) consume(ctx context.Context, conn *socketio.Conn, emit func(context.Context, Event)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()

	for {
		ev, err := conn.ReadEvent()
		if errors.Is(err, socketio.ErrMalformed) {
			t.log.V(1).Info("Skipping malformed event packet", "err", err.Error())
			continue
		}
		if err != nil {
			if errors.Is(err, socketio.ErrDisconnected) || errors.Is(err, socketio.ErrClosed) {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		emit(ctx, Event{Name: ev.Name, Payload: ev.Payload()})
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
