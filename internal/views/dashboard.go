package views

import (
	"context"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/fleetcore-io/fleetcore/internal/model"
	"github.com/fleetcore-io/fleetcore/internal/synchronizer"
	"github.com/fleetcore-io/fleetcore/pkg/events"
)

// DashboardView holds the overview counters. Any vehicle or command event
// recomputes them from fresh lists, as does a transport reconnect.
type DashboardView struct {
	sync *synchronizer.Synchronizer[model.Stats]
}

func NewDashboardView(api API, log logr.Logger) *DashboardView {
	fetch := func(ctx context.Context) (model.Stats, error) {
		var (
			vehicles []model.Vehicle
			commands []model.Command
		)
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			vehicles, err = api.ListVehicles(ctx)
			return err
		})
		g.Go(func() (err error) {
			commands, err = api.ListCommands(ctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return model.Stats{}, err
		}
		return model.ComputeStats(vehicles, commands), nil
	}

	return &DashboardView{
		sync: synchronizer.New("stats", fetch, synchronizer.WithLogger(log.WithName("stats"))),
	}
}

func (d *DashboardView) Mount(sub events.Subscriber) {
	d.sync.Mount(sub, append(events.All(), events.Reconnected)...)
}

func (d *DashboardView) Unmount() { d.sync.Close() }

func (d *DashboardView) Refresh() { d.sync.Refresh() }

func (d *DashboardView) Sync(ctx context.Context) (synchronizer.Status, error) {
	return d.sync.Sync(ctx)
}

func (d *DashboardView) Status() synchronizer.Status { return d.sync.Status() }

func (d *DashboardView) OnChange(fn func(synchronizer.Status)) func() { return d.sync.OnChange(fn) }

// Stats returns the last computed counters and whether there are any yet.
func (d *DashboardView) Stats() (model.Stats, bool) { return d.sync.Snapshot() }
