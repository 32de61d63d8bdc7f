package projection

import (
	"strconv"
	"time"

	"k8s.io/utils/ptr"

	"github.com/fleetcore-io/fleetcore/internal/model"
)

// Vehicle sort fields.
const (
	VehiclePlateNo   = "plate_no"
	VehicleModel     = "model"
	VehicleStatus    = "status"
	VehicleFuelLevel = "fuel_level"
	VehicleOdometer  = "odometer"
)

// Command sort fields.
const (
	CommandCreatedAt     = "created_at"
	CommandStatus        = "status"
	CommandRequesterName = "requester_name"
	CommandMessage       = "message"
)

// CreatedAtLayout renders command times in exports and tables.
const CreatedAtLayout = "2006-01-02 15:04:05"

// Vehicles describes model.Vehicle.
var Vehicles = &Descriptor[model.Vehicle]{
	Searchable: []func(model.Vehicle) string{
		func(v model.Vehicle) string { return v.PlateNo },
		func(v model.Vehicle) string { return v.Model },
		func(v model.Vehicle) string { return string(v.Status) },
	},
	Fields: []Field[model.Vehicle]{
		{Name: VehiclePlateNo, Kind: KindText, Text: func(v model.Vehicle) string { return v.PlateNo }},
		{Name: VehicleModel, Kind: KindText, Text: func(v model.Vehicle) string { return v.Model }},
		{Name: VehicleStatus, Kind: KindText, Text: func(v model.Vehicle) string { return string(v.Status) }},
		{Name: VehicleFuelLevel, Kind: KindNumber, Number: func(v model.Vehicle) float64 { return ptr.Deref(v.FuelLevel, 0) }},
		{Name: VehicleOdometer, Kind: KindNumber, Number: func(v model.Vehicle) float64 { return ptr.Deref(v.Odometer, 0) }},
	},
	Columns: []Column[model.Vehicle]{
		{Header: "Plate No", Value: func(v model.Vehicle) string { return v.PlateNo }},
		{Header: "Model", Value: func(v model.Vehicle) string { return v.Model }},
		{Header: "Status", Value: func(v model.Vehicle) string { return string(v.Status) }},
		{Header: "Fuel Level", Value: func(v model.Vehicle) string { return FormatNumber(v.FuelLevel) }},
		{Header: "Odometer", Value: func(v model.Vehicle) string { return FormatNumber(v.Odometer) }},
	},
	DefaultSort:  VehiclePlateNo,
	DefaultOrder: Asc,
}

// Commands describes model.Command.
var Commands = &Descriptor[model.Command]{
	Searchable: []func(model.Command) string{
		func(c model.Command) string { return c.Message },
		func(c model.Command) string { return c.ResponseText() },
		func(c model.Command) string { return c.RequesterName },
	},
	Fields: []Field[model.Command]{
		{Name: CommandCreatedAt, Kind: KindTime, Time: func(c model.Command) time.Time { return c.CreatedAt.Time }},
		{Name: CommandStatus, Kind: KindText, Text: func(c model.Command) string { return string(c.Status) }},
		{Name: CommandRequesterName, Kind: KindText, Text: func(c model.Command) string { return c.RequesterName }},
		{Name: CommandMessage, Kind: KindText, Text: func(c model.Command) string { return c.Message }},
	},
	Columns: []Column[model.Command]{
		{Header: "Requester", Value: func(c model.Command) string { return c.RequesterName }},
		{Header: "Message", Value: func(c model.Command) string { return c.Message }},
		{Header: "Response", Value: func(c model.Command) string { return c.ResponseText() }},
		{Header: "Status", Value: func(c model.Command) string { return string(c.Status) }},
		{Header: "Created At", Value: func(c model.Command) string { return FormatTime(c.CreatedAt.Time) }},
	},
	DefaultSort:  CommandCreatedAt,
	DefaultOrder: Desc,
}

// OwnCommands scopes commands to those filed by username. It is how a
// non-admin sees the queue; the server must still enforce it.
func OwnCommands(username string) func(model.Command) bool {
	return func(c model.Command) bool { return c.RequesterName == username }
}

// FormatNumber renders an optional number, "" when missing.
func FormatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// FormatTime renders t in local time, "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(CreatedAtLayout)
}
