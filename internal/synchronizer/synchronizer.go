// Package synchronizer keeps a view's snapshot of server data current. A
// Synchronizer fetches on mount, re-fetches whenever a trigger event arrives
// or Refresh is called, and exposes the result of the most recently completed
// fetch. A fetch that is overtaken by a newer trigger is cancelled and its
// result discarded, so snapshots are never merged or shown out of order.
package synchronizer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/looplab/fsm"

	"github.com/fleetcore-io/fleetcore/internal/pkg/metrics"
	fsmutil "github.com/fleetcore-io/fleetcore/internal/pkg/util/fsm"
	"github.com/fleetcore-io/fleetcore/pkg/events"
)

// State is the lifecycle phase of a synchronizer.
type State string

const (
	// StateIdle means nothing has been fetched yet.
	StateIdle State = "idle"
	// StateLoading means a fetch is in flight. A previous snapshot, if any,
	// is still served.
	StateLoading State = "loading"
	StateReady   State = "ready"
	// StateError means the last fetch failed. The previous snapshot is kept.
	StateError  State = "error"
	StateClosed State = "closed"
)

const (
	eventFetch   = "fetch"
	eventSucceed = "succeed"
	eventFail    = "fail"
	eventClose   = "close"
)

const (
	resultSuccess    = "success"
	resultError      = "error"
	resultSuperseded = "superseded"
)

// ErrClosed is returned by Sync once the synchronizer is closed.
var ErrClosed = errors.New("synchronizer closed")

// Fetcher loads a full snapshot. It must honour ctx cancellation.
type Fetcher[S any] func(ctx context.Context) (S, error)

// Status describes what a view should render.
type Status struct {
	State State
	// Err is the failure of the last completed fetch, nil after a success.
	Err error
	// UpdatedAt is when the current snapshot was fetched.
	UpdatedAt time.Time
	HasData   bool
	// Generation counts triggers. It grows by one per Refresh.
	Generation uint64
}

// Loading reports whether a fetch is in flight.
func (s Status) Loading() bool { return s.State == StateLoading }

type Option func(*config)

type config struct {
	log logr.Logger
	now func() time.Time
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logr.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithClock overrides time.Now for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// Synchronizer holds the last completed snapshot of type S.
type Synchronizer[S any] struct {
	name  string
	fetch Fetcher[S]
	log   logr.Logger
	now   func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	fsm       *fsm.FSM
	snapshot  S
	hasData   bool
	err       error
	updatedAt time.Time
	gen       uint64
	settled   uint64
	inflight  context.CancelFunc
	started   map[uint64]time.Time
	changed   chan struct{}
	group     *events.Group
	listeners map[int]func(Status)
	nextID    int
}

// New returns an idle synchronizer. name labels logs and metrics.
func New[S any](name string, fetch Fetcher[S], opts ...Option) *Synchronizer[S] {
	cfg := config{log: logr.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer[S]{
		name:      name,
		fetch:     fetch,
		log:       cfg.log.WithValues("view", name),
		now:       cfg.now,
		ctx:       ctx,
		cancel:    cancel,
		started:   make(map[uint64]time.Time),
		changed:   make(chan struct{}),
		listeners: make(map[int]func(Status)),
	}

	s.fsm = fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: eventFetch, Src: []string{string(StateIdle), string(StateReady), string(StateError), string(StateLoading)}, Dst: string(StateLoading)},
			{Name: eventSucceed, Src: []string{string(StateLoading)}, Dst: string(StateReady)},
			{Name: eventFail, Src: []string{string(StateLoading)}, Dst: string(StateError)},
			{Name: eventClose, Src: []string{string(StateIdle), string(StateLoading), string(StateReady), string(StateError)}, Dst: string(StateClosed)},
		},
		fsm.Callbacks{
			"enter_" + string(StateReady): fsmutil.WrapEvent(s.enterReady),
			"enter_" + string(StateError): fsmutil.WrapEvent(s.enterError),
		},
	)
	return s
}

// Name returns the label given to New.
func (s *Synchronizer[S]) Name() string { return s.name }

// Mount subscribes to triggers on sub and starts the initial fetch. Every
// trigger event causes a full re-fetch. Mount is a no-op after the first call
// or after Close.
func (s *Synchronizer[S]) Mount(sub events.Subscriber, triggers ...string) {
	s.mu.Lock()
	if s.closed() || s.group != nil {
		s.mu.Unlock()
		return
	}
	group := events.NewGroup(sub)
	s.group = group
	s.mu.Unlock()

	for _, name := range triggers {
		group.On(name, func(_ context.Context, e events.Event) {
			s.log.V(2).Info("Refetch triggered", "event", e.Name)
			s.Refresh()
		})
	}
	s.Refresh()
}

// Refresh starts a new fetch, cancelling any fetch still in flight. It
// returns the generation of the new fetch, or 0 once closed.
func (s *Synchronizer[S]) Refresh() uint64 {
	s.mu.Lock()
	if s.closed() {
		s.mu.Unlock()
		return 0
	}

	if s.inflight != nil {
		s.inflight()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(s.ctx)
	s.inflight = cancel
	s.started[gen] = s.now()

	if err := s.fsm.Event(context.Background(), eventFetch); fsmutil.IsRealError(err) {
		s.log.Error(err, "Unexpected transition", "event", eventFetch)
	}
	s.wg.Add(1)
	st, ls := s.changedLocked()
	s.mu.Unlock()

	notify(ls, st)
	go s.run(ctx, cancel, gen)
	return gen
}

func (s *Synchronizer[S]) run(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer s.wg.Done()
	defer cancel()

	snap, err := s.fetch(ctx)
	s.complete(gen, snap, err)
}

func (s *Synchronizer[S]) complete(gen uint64, snap S, fetchErr error) {
	s.mu.Lock()
	started := s.started[gen]
	delete(s.started, gen)

	if gen != s.gen || s.closed() {
		s.mu.Unlock()
		metrics.SyncFetchTotal.WithLabelValues(s.name, resultSuperseded).Inc()
		s.log.V(2).Info("Discarding superseded fetch", "generation", gen)
		return
	}

	s.inflight = nil
	s.settled = gen
	metrics.SyncFetchDuration.WithLabelValues(s.name).Observe(s.now().Sub(started).Seconds())

	var err error
	if fetchErr != nil {
		metrics.SyncFetchTotal.WithLabelValues(s.name, resultError).Inc()
		s.log.Error(fetchErr, "Fetch failed", "generation", gen)
		err = s.fsm.Event(context.Background(), eventFail, fetchErr)
	} else {
		metrics.SyncFetchTotal.WithLabelValues(s.name, resultSuccess).Inc()
		err = s.fsm.Event(context.Background(), eventSucceed, snap)
	}
	if fsmutil.IsRealError(err) {
		s.log.Error(err, "Unexpected transition", "generation", gen)
	}

	st, ls := s.changedLocked()
	s.mu.Unlock()
	notify(ls, st)
}

// enterReady runs inside fsm.Event, with s.mu held.
func (s *Synchronizer[S]) enterReady(_ context.Context, e *fsm.Event) error {
	snap, _ := e.Args[0].(S)
	s.snapshot = snap
	s.hasData = true
	s.err = nil
	s.updatedAt = s.now()
	return nil
}

// enterError runs inside fsm.Event, with s.mu held.
func (s *Synchronizer[S]) enterError(_ context.Context, e *fsm.Event) error {
	err, _ := e.Args[0].(error)
	s.err = err
	return nil
}

// Snapshot returns the last successfully fetched value and whether there is
// one at all.
func (s *Synchronizer[S]) Snapshot() (S, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, s.hasData
}

func (s *Synchronizer[S]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Synchronizer[S]) statusLocked() Status {
	return Status{
		State:      State(s.fsm.Current()),
		Err:        s.err,
		UpdatedAt:  s.updatedAt,
		HasData:    s.hasData,
		Generation: s.gen,
	}
}

// Sync blocks until every trigger issued before the call has been settled by
// a completed fetch, then returns the resulting status.
func (s *Synchronizer[S]) Sync(ctx context.Context) (Status, error) {
	s.mu.Lock()
	target := s.gen
	for {
		if s.closed() {
			st := s.statusLocked()
			s.mu.Unlock()
			return st, ErrClosed
		}
		if s.settled >= target {
			st := s.statusLocked()
			s.mu.Unlock()
			return st, nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return s.Status(), ctx.Err()
		}
		s.mu.Lock()
	}
}

// OnChange registers fn to be called after every state change. fn runs on
// the goroutine that caused the change and must not block. The returned func
// removes the listener.
func (s *Synchronizer[S]) OnChange(fn func(Status)) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Close unsubscribes from events, cancels the in-flight fetch and waits for
// it to return. The last snapshot stays readable.
func (s *Synchronizer[S]) Close() {
	s.mu.Lock()
	if s.closed() {
		s.mu.Unlock()
		return
	}
	if err := s.fsm.Event(context.Background(), eventClose); fsmutil.IsRealError(err) {
		s.log.Error(err, "Unexpected transition", "event", eventClose)
	}
	group := s.group
	st, ls := s.changedLocked()
	s.mu.Unlock()

	if group != nil {
		group.Close()
	}
	s.cancel()
	s.wg.Wait()
	notify(ls, st)
}

func (s *Synchronizer[S]) closed() bool {
	return s.fsm.Current() == string(StateClosed)
}

// changedLocked wakes Sync waiters and returns what listeners should see.
func (s *Synchronizer[S]) changedLocked() (Status, []func(Status)) {
	close(s.changed)
	s.changed = make(chan struct{})

	ls := make([]func(Status), 0, len(s.listeners))
	for _, fn := range s.listeners {
		ls = append(ls, fn)
	}
	return s.statusLocked(), ls
}

func notify(ls []func(Status), st Status) {
	for _, fn := range ls {
		fn(st)
	}
}
