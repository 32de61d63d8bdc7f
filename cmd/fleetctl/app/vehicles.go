package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/utils/ptr"

	"github.com/fleetcore-io/fleetcore/internal/export"
	"github.com/fleetcore-io/fleetcore/internal/model"
	"github.com/fleetcore-io/fleetcore/internal/projection"
	"github.com/fleetcore-io/fleetcore/internal/views"
	"github.com/fleetcore-io/fleetcore/pkg/log"
)

func newVehiclesCommand(f *factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vehicles",
		Aliases: []string{"vehicle", "v"},
		Short:   "List and manage fleet vehicles",
	}
	cmd.AddCommand(
		newVehiclesListCommand(f),
		newVehiclesAddCommand(f),
		newVehiclesUpdateCommand(f),
		newVehiclesDeleteCommand(f),
		newVehiclesExportCommand(f),
	)
	return cmd
}

// vehiclesView returns an unmounted vehicles view for the current session.
func (f *factory) vehiclesView() (*views.VehiclesView, error) {
	sess, api, err := f.authenticated()
	if err != nil {
		return nil, err
	}
	return views.NewVehiclesView(api, sess, log.WithName("views").Logr()), nil
}

func newVehiclesListCommand(f *factory) *cobra.Command {
	var lf listFlags

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List vehicles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := f.vehiclesView()
			if err != nil {
				return err
			}
			defer v.Unmount()

			if err := loadList(cmd.Context(), v.List, &lf); err != nil {
				return err
			}
			return printList(cmd.OutOrStdout(), v.List, lf.output)
		},
	}

	lf.addQueryFlags(cmd, projection.Vehicles.SortFields(), projection.Vehicles.DefaultQuery())
	lf.addOutputFlag(cmd)
	return cmd
}

// vehicleFlags binds the vehicle form. Only flags that were set are applied
// to an existing vehicle.
type vehicleFlags struct {
	plate    string
	model    string
	status   string
	fuel     float64
	odometer float64
}

func (vf *vehicleFlags) addFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&vf.plate, "plate", "", "Plate number.")
	fs.StringVar(&vf.model, "model", "", "Vehicle model.")
	fs.StringVar(&vf.status, "status", string(model.VehicleStatusActive), "One of active, maintenance or offline.")
	fs.Float64Var(&vf.fuel, "fuel", 0, "Fuel level in percent.")
	fs.Float64Var(&vf.odometer, "odometer", 0, "Odometer reading in kilometres.")
}

func (vf *vehicleFlags) apply(cmd *cobra.Command, in model.VehicleInput) model.VehicleInput {
	fs := cmd.Flags()
	if fs.Changed("plate") {
		in.PlateNo = vf.plate
	}
	if fs.Changed("model") {
		in.Model = vf.model
	}
	if fs.Changed("status") {
		in.Status = model.VehicleStatus(vf.status)
	}
	if fs.Changed("fuel") {
		in.FuelLevel = ptr.To(vf.fuel)
	}
	if fs.Changed("odometer") {
		in.Odometer = ptr.To(vf.odometer)
	}
	return in
}

func newVehiclesAddCommand(f *factory) *cobra.Command {
	var vf vehicleFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a vehicle (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := f.vehiclesView()
			if err != nil {
				return err
			}
			defer v.Unmount()

			in := vf.apply(cmd, model.NewVehicleInput())
			if err := v.Add(cmd.Context(), in); err != nil {
				return err
			}
			success(cmd, "Vehicle %s added", in.PlateNo)
			return nil
		},
	}

	vf.addFlags(cmd)
	return cmd
}

func newVehiclesUpdateCommand(f *factory) *cobra.Command {
	var vf vehicleFlags

	cmd := &cobra.Command{
		Use:   "update PLATE|ID",
		Short: "Change a vehicle (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := f.vehiclesView()
			if err != nil {
				return err
			}
			defer v.Unmount()

			cur, err := resolveVehicle(cmd.Context(), v, args[0])
			if err != nil {
				return err
			}
			in := vf.apply(cmd, cur.Input())
			if err := v.Save(cmd.Context(), cur.ID, in); err != nil {
				return err
			}
			success(cmd, "Vehicle %s updated", in.PlateNo)
			return nil
		},
	}

	vf.addFlags(cmd)
	return cmd
}

func newVehiclesDeleteCommand(f *factory) *cobra.Command {
	return &cobra.Command{
		Use:     "delete PLATE|ID",
		Aliases: []string{"rm"},
		Short:   "Remove a vehicle (admin)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := f.vehiclesView()
			if err != nil {
				return err
			}
			defer v.Unmount()

			if !v.CanEdit() {
				return views.ErrAdminOnly
			}
			cur, err := resolveVehicle(cmd.Context(), v, args[0])
			if err != nil {
				return err
			}
			if err := v.Delete(cmd.Context(), cur.ID); err != nil {
				return err
			}
			success(cmd, "Vehicle %s deleted", cur.PlateNo)
			return nil
		},
	}
}

// resolveVehicle loads the vehicle list and finds ref by plate, then by id.
func resolveVehicle(ctx context.Context, v *views.VehiclesView, ref string) (model.Vehicle, error) {
	v.Mount(nil)
	if err := settle(ctx, v); err != nil {
		return model.Vehicle{}, err
	}
	if x, ok := v.FindByPlate(ref); ok {
		return x, nil
	}
	if x, ok := v.Vehicle(model.ID(ref)); ok {
		return x, nil
	}
	return model.Vehicle{}, fmt.Errorf("vehicle %q not found", ref)
}

func newVehiclesExportCommand(f *factory) *cobra.Command {
	var (
		lf listFlags
		ef exportFlags
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the vehicle list as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := f.vehiclesView()
			if err != nil {
				return err
			}
			defer v.Unmount()

			if err := loadList(cmd.Context(), v.List, &lf); err != nil {
				return err
			}
			return ef.run(cmd, f, v.Export)
		},
	}

	lf.addQueryFlags(cmd, projection.Vehicles.SortFields(), projection.Vehicles.DefaultQuery())
	ef.addFlags(cmd, "vehicles.csv")
	return cmd
}

// exportFlags pick where a CSV export goes.
type exportFlags struct {
	file    string
	upload  bool
	presign time.Duration
}

func (ef *exportFlags) addFlags(cmd *cobra.Command, defaultFile string) {
	fs := cmd.Flags()
	fs.StringVarP(&ef.file, "file", "f", defaultFile, "Export file name. '-' writes to stdout.")
	fs.BoolVar(&ef.upload, "upload", false, "Upload the export to the configured object store instead of writing a file.")
	fs.DurationVar(&ef.presign, "presign", 0, "With --upload, also print a download link valid for this long.")
}

func (ef *exportFlags) run(cmd *cobra.Command, f *factory, render func(io.Writer) error) error {
	if ef.file == "-" && !ef.upload {
		return render(cmd.OutOrStdout())
	}

	ctx := cmd.Context()
	sink, err := f.Sink(ctx, ef.upload)
	if err != nil {
		return err
	}
	location, err := export.Write(ctx, sink, ef.file, render)
	if err != nil {
		return err
	}
	success(cmd, "Exported to %s", location)

	if s3, ok := sink.(*export.S3Sink); ok && ef.presign > 0 {
		url, err := s3.PresignedURL(ctx, location, ef.presign)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
	}
	return nil
}
