package views

import (
	"context"
	"strings"

	"github.com/go-logr/logr"

	"github.com/fleetcore-io/fleetcore/internal/model"
	"github.com/fleetcore-io/fleetcore/internal/projection"
	"github.com/fleetcore-io/fleetcore/internal/session"
	"github.com/fleetcore-io/fleetcore/pkg/events"
)

// VehiclesView is the vehicle list. Everyone can read it; only admins edit.
type VehiclesView struct {
	*List[model.Vehicle]

	api     API
	session *session.Session
}

func NewVehiclesView(api API, sess *session.Session, log logr.Logger) *VehiclesView {
	return &VehiclesView{
		List: newList(listConfig[model.Vehicle]{
			name:     "vehicles",
			desc:     projection.Vehicles,
			fetch:    api.ListVehicles,
			triggers: events.VehicleEvents,
			log:      log.WithName("vehicles"),
		}),
		api:     api,
		session: sess,
	}
}

// CanEdit reports whether add, edit and delete actions are offered.
func (v *VehiclesView) CanEdit() bool { return v.session.IsAdmin() }

// Vehicle looks up a vehicle in the current snapshot.
func (v *VehiclesView) Vehicle(id model.ID) (model.Vehicle, bool) {
	return v.find(func(x model.Vehicle) bool { return x.ID == id })
}

// FindByPlate looks up a vehicle by plate number, ignoring case.
func (v *VehiclesView) FindByPlate(plate string) (model.Vehicle, bool) {
	return v.find(func(x model.Vehicle) bool { return strings.EqualFold(x.PlateNo, plate) })
}

func (v *VehiclesView) Add(ctx context.Context, in model.VehicleInput) error {
	if err := v.mutable(in); err != nil {
		return err
	}
	if err := v.api.CreateVehicle(ctx, normalizeVehicle(in)); err != nil {
		return err
	}
	v.Refresh()
	return nil
}

func (v *VehiclesView) Save(ctx context.Context, id model.ID, in model.VehicleInput) error {
	if err := v.mutable(in); err != nil {
		return err
	}
	if err := v.api.UpdateVehicle(ctx, id, normalizeVehicle(in)); err != nil {
		return err
	}
	v.Refresh()
	return nil
}

func (v *VehiclesView) Delete(ctx context.Context, id model.ID) error {
	if !v.CanEdit() {
		return ErrAdminOnly
	}
	if err := v.api.DeleteVehicle(ctx, id); err != nil {
		return err
	}
	v.Refresh()
	return nil
}

func (v *VehiclesView) mutable(in model.VehicleInput) error {
	if !v.CanEdit() {
		return ErrAdminOnly
	}
	return ValidateVehicle(in)
}

// ValidateVehicle checks a vehicle form before it is sent.
func ValidateVehicle(in model.VehicleInput) error {
	switch {
	case strings.TrimSpace(in.PlateNo) == "":
		return invalid("plate_no", "Plate number required")
	case strings.TrimSpace(in.Model) == "":
		return invalid("model", "Model required")
	case !in.Status.Valid():
		return invalid("status", "Status must be one of active, maintenance, offline")
	case in.FuelLevel != nil && (*in.FuelLevel < 0 || *in.FuelLevel > 100):
		return invalid("fuel_level", "Fuel level must be between 0 and 100")
	case in.Odometer != nil && *in.Odometer < 0:
		return invalid("odometer", "Odometer cannot be negative")
	}
	return nil
}

func normalizeVehicle(in model.VehicleInput) model.VehicleInput {
	in.PlateNo = strings.TrimSpace(in.PlateNo)
	in.Model = strings.TrimSpace(in.Model)
	return in
}
