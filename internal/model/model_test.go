package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVehicleDecodesNumericAndStringIDs(t *testing.T) {
	var vs []Vehicle
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id": 7, "plate_no": "AB-123", "model": "Sprinter", "status": "active", "fuel_level": 55.5},
		{"id": "b9f1", "plate_no": "CD-456", "model": "Transit", "status": "offline", "odometer": null}
	]`), &vs))

	require.Len(t, vs, 2)
	assert.Equal(t, ID("7"), vs[0].ID)
	assert.Equal(t, ID("b9f1"), vs[1].ID)
	require.NotNil(t, vs[0].FuelLevel)
	assert.InDelta(t, 55.5, *vs[0].FuelLevel, 0.001)
	assert.Nil(t, vs[1].Odometer)
}

func TestCommandTimestamps(t *testing.T) {
	var cs []Command
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id": 1, "requester_name": "alice", "message": "m", "status": "queued", "created_at": "2024-03-01T10:00:00.000Z"},
		{"id": 2, "requester_name": "bob", "message": "m", "status": "answered", "response": "ok", "created_at": "2024-03-01 09:30:00"},
		{"id": 3, "requester_name": "bob", "message": "m", "status": "queued", "created_at": "yesterday"},
		{"id": 4, "requester_name": "bob", "message": "m", "status": "queued", "created_at": null}
	]`), &cs))

	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), cs[0].CreatedAt.UTC())
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), cs[1].CreatedAt.Time)
	assert.True(t, cs[2].CreatedAt.IsZero())
	assert.True(t, cs[3].CreatedAt.IsZero())

	assert.True(t, cs[0].Queued())
	assert.Equal(t, "", cs[0].ResponseText())
	assert.Equal(t, "ok", cs[1].ResponseText())
}

func TestComputeStats(t *testing.T) {
	vehicles := []Vehicle{
		{Status: VehicleStatusActive}, {Status: VehicleStatusActive},
		{Status: VehicleStatusMaintenance}, {Status: VehicleStatusOffline}, {Status: "retired"},
	}
	commands := []Command{{Status: CommandStatusQueued}, {Status: CommandStatusAnswered}, {Status: CommandStatusQueued}}

	assert.Equal(t, Stats{Total: 5, Active: 2, Maintenance: 1, Offline: 1, Queued: 2}, ComputeStats(vehicles, commands))
}

func TestVehicleStatusValid(t *testing.T) {
	assert.True(t, VehicleStatusMaintenance.Valid())
	assert.False(t, VehicleStatus("retired").Valid())
	assert.Equal(t, VehicleStatusActive, NewVehicleInput().Status)
}
