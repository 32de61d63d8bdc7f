package model

// VehicleStatus is the operational state of a vehicle.
type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
	VehicleStatusOffline     VehicleStatus = "offline"
)

// VehicleStatuses lists the statuses a vehicle form accepts.
var VehicleStatuses = []VehicleStatus{VehicleStatusActive, VehicleStatusMaintenance, VehicleStatusOffline}

// Valid reports whether s is one of VehicleStatuses.
func (s VehicleStatus) Valid() bool {
	for _, v := range VehicleStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Vehicle is a fleet vehicle as served by GET /vehicles.
type Vehicle struct {
	ID      ID            `json:"id"`
	PlateNo string        `json:"plate_no"`
	Model   string        `json:"model"`
	Status  VehicleStatus `json:"status"`

	// FuelLevel is a percentage. Nil when the backend has no reading.
	FuelLevel *float64 `json:"fuel_level,omitempty"`

	// Odometer is in kilometres. Nil when unknown.
	Odometer *float64 `json:"odometer,omitempty"`
}

// VehicleInput is the body of POST /vehicles and PUT /vehicles/:id.
type VehicleInput struct {
	PlateNo   string        `json:"plate_no"`
	Model     string        `json:"model"`
	Status    VehicleStatus `json:"status"`
	FuelLevel *float64      `json:"fuel_level,omitempty"`
	Odometer  *float64      `json:"odometer,omitempty"`
}

// NewVehicleInput returns the defaults of an empty vehicle form.
func NewVehicleInput() VehicleInput {
	return VehicleInput{Status: VehicleStatusActive}
}

// Input returns the editable fields of v, the starting point of an edit form.
func (v Vehicle) Input() VehicleInput {
	return VehicleInput{
		PlateNo:   v.PlateNo,
		Model:     v.Model,
		Status:    v.Status,
		FuelLevel: v.FuelLevel,
		Odometer:  v.Odometer,
	}
}
