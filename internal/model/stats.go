package model

// Stats are the dashboard overview counters.
type Stats struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Maintenance int `json:"maintenance"`
	Offline     int `json:"offline"`
	Queued      int `json:"queued"`
}

// ComputeStats counts vehicles by status and queued commands.
func ComputeStats(vehicles []Vehicle, commands []Command) Stats {
	s := Stats{Total: len(vehicles)}
	for _, v := range vehicles {
		switch v.Status {
		case VehicleStatusActive:
			s.Active++
		case VehicleStatusMaintenance:
			s.Maintenance++
		case VehicleStatusOffline:
			s.Offline++
		}
	}
	for _, c := range commands {
		if c.Queued() {
			s.Queued++
		}
	}
	return s
}
