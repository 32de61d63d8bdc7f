package views_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/fleetcore-io/fleetcore/internal/apiclient"
	"github.com/fleetcore-io/fleetcore/internal/apiclient/apitest"
	"github.com/fleetcore-io/fleetcore/internal/model"
	"github.com/fleetcore-io/fleetcore/internal/projection"
	"github.com/fleetcore-io/fleetcore/internal/session"
	"github.com/fleetcore-io/fleetcore/internal/synchronizer"
	"github.com/fleetcore-io/fleetcore/internal/views"
	"github.com/fleetcore-io/fleetcore/pkg/events"
	"github.com/fleetcore-io/fleetcore/pkg/options"
)

type fixture struct {
	backend *apitest.Backend
	bus     *events.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{backend: apitest.NewBackend(), bus: events.NewBus()}
	t.Cleanup(f.backend.Close)
	f.backend.AddUser("alice", "pw", model.RoleUser)
	f.backend.AddUser("bob", "pw", model.RoleUser)
	f.backend.OnMutation(func(name string) {
		f.bus.Dispatch(context.Background(), events.Event{Name: name})
	})
	return f
}

// as returns an API client and session for name.
func (f *fixture) as(t *testing.T, name string, role model.Role) (*apiclient.Client, *session.Session) {
	t.Helper()
	token := f.backend.Token(name, role)
	opts := options.NewAPIOptions()
	opts.Server = f.backend.URL
	c, err := apiclient.New(opts, apiclient.StaticToken(token))
	require.NoError(t, err)
	sess, err := session.FromToken(token, "")
	require.NoError(t, err)
	return c, sess
}

type syncer interface {
	Sync(ctx context.Context) (synchronizer.Status, error)
}

func settle(t *testing.T, v syncer) synchronizer.Status {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := v.Sync(ctx)
	require.NoError(t, err)
	return st
}

func TestCommandsScopedToRequester(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedCommands(
		model.Command{RequesterName: "alice", Message: "ping", Status: model.CommandStatusQueued},
		model.Command{RequesterName: "carol", Message: "other", Status: model.CommandStatusQueued},
	)

	aliceAPI, aliceSess := f.as(t, "alice", model.RoleUser)
	bobAPI, bobSess := f.as(t, "bob", model.RoleUser)
	adminAPI, adminSess := f.as(t, "admin", model.RoleAdmin)

	alice := views.NewCommandsView(aliceAPI, aliceSess, logr.Discard())
	bob := views.NewCommandsView(bobAPI, bobSess, logr.Discard())
	admin := views.NewCommandsView(adminAPI, adminSess, logr.Discard())
	for _, v := range []*views.CommandsView{alice, bob, admin} {
		v.Mount(f.bus)
		t.Cleanup(v.Unmount)
		settle(t, v)
	}

	rows := alice.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "ping", rows[0].Message)
	assert.Empty(t, bob.Rows())
	assert.Len(t, admin.Rows(), 2)

	assert.NotContains(t, alice.Headers(), "Requester")
	assert.Contains(t, admin.Headers(), "Requester")
	assert.False(t, alice.CanReply(rows[0]))
	assert.True(t, admin.CanReply(rows[0]))
	assert.False(t, alice.CanSendOnBehalf())
}

func TestSendReachesOtherViewsThroughEvents(t *testing.T) {
	f := newFixture(t)
	aliceAPI, aliceSess := f.as(t, "alice", model.RoleUser)
	adminAPI, adminSess := f.as(t, "admin", model.RoleAdmin)

	alice := views.NewCommandsView(aliceAPI, aliceSess, logr.Discard())
	admin := views.NewCommandsView(adminAPI, adminSess, logr.Discard())
	alice.Mount(f.bus)
	admin.Mount(f.bus)
	defer alice.Unmount()
	defer admin.Unmount()
	settle(t, alice)
	settle(t, admin)

	require.NoError(t, alice.Send(context.Background(), "  need a jack  "))
	settle(t, alice)
	require.Len(t, alice.Rows(), 1)
	assert.Equal(t, "need a jack", alice.Rows()[0].Message)

	assert.Eventually(t, func() bool { return len(admin.Rows()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestAdminReplyThenRefetch(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedCommands(model.Command{RequesterName: "alice", Message: "ping", Status: model.CommandStatusQueued})

	api, sess := f.as(t, "admin", model.RoleAdmin)
	v := views.NewCommandsView(api, sess, logr.Discard())
	v.Mount(nil)
	defer v.Unmount()
	settle(t, v)

	id := v.Rows()[0].ID
	err := v.Reply(context.Background(), id, "")
	assert.True(t, views.IsValidationError(err))

	require.NoError(t, v.Reply(context.Background(), id, "pong"))
	settle(t, v)

	c, ok := v.Command(id)
	require.True(t, ok)
	assert.False(t, c.Queued())
	assert.Equal(t, "pong", c.ResponseText())
	assert.False(t, v.CanReply(c))

	err = v.Reply(context.Background(), id, "again")
	var ve *views.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "id", ve.Field)
}

func TestCommandValidation(t *testing.T) {
	f := newFixture(t)
	userAPI, userSess := f.as(t, "alice", model.RoleUser)
	adminAPI, adminSess := f.as(t, "admin", model.RoleAdmin)
	user := views.NewCommandsView(userAPI, userSess, logr.Discard())
	admin := views.NewCommandsView(adminAPI, adminSess, logr.Discard())
	ctx := context.Background()

	var ve *views.ValidationError
	require.ErrorAs(t, user.Send(ctx, "   "), &ve)
	assert.Equal(t, "message: Command required", ve.Error())

	require.ErrorAs(t, admin.SendOnBehalf(ctx, "bob", ""), &ve)
	assert.Equal(t, "Requester and Command required", ve.Error())

	assert.ErrorIs(t, user.SendOnBehalf(ctx, "bob", "x"), views.ErrAdminOnly)
	assert.ErrorIs(t, user.Reply(ctx, "1", "x"), views.ErrAdminOnly)
	assert.Empty(t, f.backend.Requests())

	require.NoError(t, admin.SendOnBehalf(ctx, "bob", "tyres"))
	assert.Equal(t, "bob", f.backend.Commands()[0].RequesterName)
}

func TestVehicleMutations(t *testing.T) {
	f := newFixture(t)
	api, sess := f.as(t, "admin", model.RoleAdmin)
	v := views.NewVehiclesView(api, sess, logr.Discard())
	v.Mount(f.bus)
	defer v.Unmount()
	settle(t, v)
	ctx := context.Background()

	require.True(t, v.CanEdit())
	require.NoError(t, v.Add(ctx, model.VehicleInput{PlateNo: " AB-1 ", Model: "Van", Status: model.VehicleStatusActive, FuelLevel: ptr.To(80.0)}))
	settle(t, v)
	veh, ok := v.FindByPlate("ab-1")
	require.True(t, ok)
	assert.Equal(t, "AB-1", veh.PlateNo)

	in := veh.Input()
	in.Status = model.VehicleStatusOffline
	require.NoError(t, v.Save(ctx, veh.ID, in))
	settle(t, v)
	veh, _ = v.Vehicle(veh.ID)
	assert.Equal(t, model.VehicleStatusOffline, veh.Status)

	require.NoError(t, v.Delete(ctx, veh.ID))
	settle(t, v)
	assert.Empty(t, v.Rows())
}

func TestVehicleValidation(t *testing.T) {
	valid := model.VehicleInput{PlateNo: "P", Model: "M", Status: model.VehicleStatusActive}
	tests := []struct {
		name  string
		edit  func(*model.VehicleInput)
		field string
	}{
		{"ok", func(*model.VehicleInput) {}, ""},
		{"plate", func(in *model.VehicleInput) { in.PlateNo = " " }, "plate_no"},
		{"model", func(in *model.VehicleInput) { in.Model = "" }, "model"},
		{"status", func(in *model.VehicleInput) { in.Status = "parked" }, "status"},
		{"fuel high", func(in *model.VehicleInput) { in.FuelLevel = ptr.To(100.5) }, "fuel_level"},
		{"fuel low", func(in *model.VehicleInput) { in.FuelLevel = ptr.To(-1.0) }, "fuel_level"},
		{"odometer", func(in *model.VehicleInput) { in.Odometer = ptr.To(-3.0) }, "odometer"},
		{"fuel bounds", func(in *model.VehicleInput) { in.FuelLevel = ptr.To(100.0); in.Odometer = ptr.To(0.0) }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.edit(&in)
			err := views.ValidateVehicle(in)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *views.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestNonAdminCannotEditVehicles(t *testing.T) {
	f := newFixture(t)
	api, sess := f.as(t, "alice", model.RoleUser)
	v := views.NewVehiclesView(api, sess, logr.Discard())

	assert.False(t, v.CanEdit())
	assert.ErrorIs(t, v.Add(context.Background(), model.NewVehicleInput()), views.ErrAdminOnly)
	assert.ErrorIs(t, v.Delete(context.Background(), "1"), views.ErrAdminOnly)
	assert.Empty(t, f.backend.Requests())
}

func TestListQueryAndExport(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedVehicles(
		model.Vehicle{PlateNo: "B-2", Model: "Truck, heavy", Status: model.VehicleStatusActive, FuelLevel: ptr.To(10.0)},
		model.Vehicle{PlateNo: "A-1", Model: `Van "XL"`, Status: model.VehicleStatusMaintenance},
		model.Vehicle{PlateNo: "C-3", Model: "Car", Status: model.VehicleStatusOffline, FuelLevel: ptr.To(55.5)},
	)
	api, sess := f.as(t, "alice", model.RoleUser)
	v := views.NewVehiclesView(api, sess, logr.Discard())
	v.Mount(nil)
	defer v.Unmount()
	settle(t, v)

	plates := func() []string {
		var out []string
		for _, r := range v.Rows() {
			out = append(out, r.PlateNo)
		}
		return out
	}
	assert.Equal(t, []string{"A-1", "B-2", "C-3"}, plates())

	require.NoError(t, v.SetSort(projection.VehicleFuelLevel))
	assert.Equal(t, projection.Desc, v.ToggleOrder())
	assert.Equal(t, []string{"C-3", "B-2", "A-1"}, plates())
	assert.Error(t, v.SetSort("colour"))
	assert.Equal(t, projection.VehicleFuelLevel, v.Query().Sort)

	v.SetSearch("MAINT")
	assert.Equal(t, []string{"A-1"}, plates())

	v.SetSearch("")
	require.NoError(t, v.SetQuery(projection.Query{Sort: projection.VehiclePlateNo, Order: projection.Asc}))
	var sb strings.Builder
	require.NoError(t, v.Export(&sb))
	assert.Equal(t, strings.Join([]string{
		`"Plate No","Model","Status","Fuel Level","Odometer"`,
		`"A-1","Van ""XL""","maintenance","",""`,
		`"B-2","Truck, heavy","active","10",""`,
		`"C-3","Car","offline","55.5",""`,
	}, "\n")+"\n", sb.String())

	assert.Equal(t, projection.VehicleModel, v.CycleSort())
}

func TestDashboardCounts(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedVehicles(
		model.Vehicle{PlateNo: "A", Status: model.VehicleStatusActive},
		model.Vehicle{PlateNo: "B", Status: model.VehicleStatusOffline},
	)
	f.backend.SeedCommands(model.Command{RequesterName: "alice", Message: "x", Status: model.CommandStatusQueued})

	api, sess := f.as(t, "admin", model.RoleAdmin)
	d := views.NewDashboardView(api, logr.Discard())
	d.Mount(f.bus)
	defer d.Unmount()
	settle(t, d)

	stats, ok := d.Stats()
	require.True(t, ok)
	assert.Equal(t, model.Stats{Total: 2, Active: 1, Offline: 1, Queued: 1}, stats)

	vehicles := views.NewVehiclesView(api, sess, logr.Discard())
	require.NoError(t, vehicles.Add(context.Background(), model.VehicleInput{PlateNo: "C", Model: "M", Status: model.VehicleStatusMaintenance}))
	vehicles.Unmount()

	assert.Eventually(t, func() bool {
		s, _ := d.Stats()
		return s.Total == 3 && s.Maintenance == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDashboardErrorKeepsStats(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedVehicles(model.Vehicle{PlateNo: "A", Status: model.VehicleStatusActive})
	api, _ := f.as(t, "admin", model.RoleAdmin)
	d := views.NewDashboardView(api, logr.Discard())
	d.Mount(nil)
	defer d.Unmount()
	settle(t, d)

	f.backend.Fail("GET", "/api/commands", 500)
	d.Refresh()
	st := settle(t, d)
	assert.Equal(t, synchronizer.StateError, st.State)
	assert.Equal(t, 500, apiclient.StatusCode(st.Err))
	stats, ok := d.Stats()
	assert.True(t, ok)
	assert.Equal(t, 1, stats.Total)
}

func TestReconnectRefetchesEveryView(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedVehicles(model.Vehicle{PlateNo: "A", Model: "M", Status: model.VehicleStatusActive})

	api, sess := f.as(t, "admin", model.RoleAdmin)
	vehicles := views.NewVehiclesView(api, sess, logr.Discard())
	d := views.NewDashboardView(api, logr.Discard())
	vehicles.Mount(f.bus)
	d.Mount(f.bus)
	defer vehicles.Unmount()
	defer d.Unmount()
	settle(t, vehicles)
	settle(t, d)

	// Seeding publishes no event, like a change made while disconnected.
	f.backend.SeedVehicles(
		model.Vehicle{PlateNo: "A", Model: "M", Status: model.VehicleStatusActive},
		model.Vehicle{PlateNo: "B", Model: "M", Status: model.VehicleStatusOffline},
	)
	require.Len(t, vehicles.Rows(), 1)

	f.bus.Dispatch(context.Background(), events.Event{Name: events.Reconnected})

	assert.Eventually(t, func() bool {
		s, _ := d.Stats()
		return len(vehicles.Rows()) == 2 && s.Total == 2 && s.Offline == 1
	}, 2*time.Second, 10*time.Millisecond)
}
