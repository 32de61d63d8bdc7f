// Package views holds the state behind each fleet screen. A view owns a
// synchronizer for its data, the user's query and the role rules deciding
// what the user may see and do. Views are renderer agnostic: both the CLI and
// the TUI drive them.
package views

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/go-logr/logr"

	"github.com/fleetcore-io/fleetcore/internal/model"
	"github.com/fleetcore-io/fleetcore/internal/projection"
	"github.com/fleetcore-io/fleetcore/internal/synchronizer"
	"github.com/fleetcore-io/fleetcore/pkg/events"
)

// API is the part of the backend client the views call.
type API interface {
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)
	CreateVehicle(ctx context.Context, in model.VehicleInput) error
	UpdateVehicle(ctx context.Context, id model.ID, in model.VehicleInput) error
	DeleteVehicle(ctx context.Context, id model.ID) error
	ListCommands(ctx context.Context) ([]model.Command, error)
	CreateCommand(ctx context.Context, in model.CommandInput) error
	ReplyCommand(ctx context.Context, id model.ID, in model.ReplyInput) error
}

// List is a searchable, sortable, exportable list of T kept in sync with the
// server.
type List[T any] struct {
	sync     *synchronizer.Synchronizer[[]T]
	desc     *projection.Descriptor[T]
	columns  []projection.Column[T]
	scope    func(T) bool
	triggers []string

	mu    sync.RWMutex
	query projection.Query
}

type listConfig[T any] struct {
	name     string
	desc     *projection.Descriptor[T]
	fetch    synchronizer.Fetcher[[]T]
	columns  []projection.Column[T]
	scope    func(T) bool
	triggers []string
	log      logr.Logger
}

func newList[T any](cfg listConfig[T]) *List[T] {
	columns := cfg.columns
	if columns == nil {
		columns = cfg.desc.Columns
	}
	return &List[T]{
		sync:     synchronizer.New(cfg.name, cfg.fetch, synchronizer.WithLogger(cfg.log)),
		desc:     cfg.desc,
		columns:  columns,
		scope:    cfg.scope,
		triggers: append(slices.Clone(cfg.triggers), events.Reconnected),
		query:    cfg.desc.DefaultQuery(),
	}
}

// Mount subscribes to the list's events and starts the first fetch.
func (l *List[T]) Mount(sub events.Subscriber) { l.sync.Mount(sub, l.triggers...) }

// Unmount drops every subscription and abandons the in-flight fetch. The
// list cannot be mounted again.
func (l *List[T]) Unmount() { l.sync.Close() }

// Refresh re-fetches now, superseding any fetch in flight.
func (l *List[T]) Refresh() { l.sync.Refresh() }

// Sync waits for pending fetches to settle.
func (l *List[T]) Sync(ctx context.Context) (synchronizer.Status, error) { return l.sync.Sync(ctx) }

func (l *List[T]) Status() synchronizer.Status { return l.sync.Status() }

// OnChange registers a listener for synchronizer state changes.
func (l *List[T]) OnChange(fn func(synchronizer.Status)) func() { return l.sync.OnChange(fn) }

func (l *List[T]) Query() projection.Query {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.query
}

// SetQuery replaces search, sort and order at once.
func (l *List[T]) SetQuery(q projection.Query) error {
	if err := l.desc.ValidateQuery(q); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = q
	return nil
}

func (l *List[T]) SetSearch(term string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query.Search = term
}

// SetSort selects the sort field, keeping the current order.
func (l *List[T]) SetSort(field string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	q := l.query
	q.Sort = field
	if err := l.desc.ValidateQuery(q); err != nil {
		return err
	}
	l.query = q
	return nil
}

// CycleSort moves to the next sort field and returns its name.
func (l *List[T]) CycleSort() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := l.desc.SortFields()
	i := slices.Index(fields, l.query.Sort)
	l.query.Sort = fields[(i+1)%len(fields)]
	return l.query.Sort
}

func (l *List[T]) ToggleOrder() projection.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query.Order = l.query.Order.Toggle()
	return l.query.Order
}

// Rows is the current projection: the last completed snapshot scoped to the
// user, filtered and sorted.
func (l *List[T]) Rows() []T {
	snap, _ := l.sync.Snapshot()
	var scope []func(T) bool
	if l.scope != nil {
		scope = append(scope, l.scope)
	}
	return projection.Project(l.desc, snap, l.Query(), scope...)
}

// Headers are the table headers visible to the user.
func (l *List[T]) Headers() []string {
	hs := make([]string, len(l.columns))
	for i, c := range l.columns {
		hs[i] = c.Header
	}
	return hs
}

// Table renders Rows with the visible columns.
func (l *List[T]) Table() [][]string {
	rows := l.Rows()
	out := make([][]string, len(rows))
	for i, r := range rows {
		cells := make([]string, len(l.columns))
		for j, c := range l.columns {
			cells[j] = c.Value(r)
		}
		out[i] = cells
	}
	return out
}

// Export writes Rows as CSV using the fixed export layout.
func (l *List[T]) Export(w io.Writer) error {
	return projection.WriteCSV(w, l.desc, l.Rows())
}

// find returns the first snapshot item matching pred, ignoring the query.
func (l *List[T]) find(pred func(T) bool) (T, bool) {
	snap, _ := l.sync.Snapshot()
	for _, it := range snap {
		if pred(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}
