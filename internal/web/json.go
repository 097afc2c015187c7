package web

import (
	"time"

	"github.com/sweeney/home-controller/internal/control"
	"github.com/sweeney/home-controller/internal/device"
	"github.com/sweeney/home-controller/internal/logbook"
	"github.com/sweeney/home-controller/internal/sensor"
	"github.com/sweeney/home-controller/internal/status"
)

// SetStateRequest is the body of POST /api/v1/devices/:id/state.
type SetStateRequest struct {
	State string `json:"state" binding:"required"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Bus       string `json:"bus"`
	Timestamp string `json:"timestamp"`
}

// DeviceJSON is the JSON representation of a device.
type DeviceJSON struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address int    `json:"address"`
	Icon    string `json:"icon,omitempty"`
	Class   string `json:"class"`
	State   string `json:"state"`
	Label   string `json:"label"`
}

// ListDevicesResponse is returned from GET /api/v1/devices.
type ListDevicesResponse struct {
	Devices []DeviceJSON `json:"devices"`
	Count   int          `json:"count"`
}

// StateResponse is returned from the state and toggle endpoints.
type StateResponse struct {
	Device  DeviceJSON `json:"device"`
	Changed bool       `json:"changed"`
}

// ReadingJSON is the JSON representation of a sensor reading.
type ReadingJSON struct {
	Timestamp   string  `json:"timestamp"`
	Temperature float64 `json:"temperature"`
}

// ReadingsResponse is returned from GET /api/v1/readings.
type ReadingsResponse struct {
	Readings   []ReadingJSON `json:"readings"`
	Count      int           `json:"count"`
	LastUpdate string        `json:"last_update"`
}

// ActionJSON is the JSON representation of a logged action.
type ActionJSON struct {
	Timestamp string `json:"timestamp"`
	Device    string `json:"device"`
	Action    string `json:"action"`
	Origin    string `json:"origin,omitempty"`
}

// ActionsResponse is returned from GET /api/v1/actions.
type ActionsResponse struct {
	Actions []ActionJSON `json:"actions"`
	Count   int          `json:"count"`
}

// StatusJSON is the full observer snapshot.
type StatusJSON struct {
	Devices       []DeviceJSON            `json:"devices"`
	Latest        *ReadingJSON            `json:"latest_reading"`
	History       []ReadingJSON           `json:"history"`
	LastUpdate    string                  `json:"last_update"`
	Connection    status.ConnectivityJSON `json:"connection"`
	MockMode      bool                    `json:"mock_mode"`
	RecentActions []ActionJSON            `json:"recent_actions"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	StartTime     string                  `json:"start_time"`
	Timestamp     string                  `json:"timestamp"`
}

func formatDevice(d device.Device) DeviceJSON {
	return DeviceJSON{
		ID:      d.ID,
		Name:    d.Name,
		Address: d.Address,
		Icon:    d.Icon,
		Class:   string(d.Class),
		State:   string(d.State),
		Label:   d.Label(),
	}
}

func formatReading(r sensor.Reading) ReadingJSON {
	return ReadingJSON{Timestamp: r.Timestamp(), Temperature: r.Value}
}

func formatAction(a logbook.ActionEntry) ActionJSON {
	return ActionJSON{
		Timestamp: a.Timestamp(),
		Device:    a.DeviceID,
		Action:    string(a.Action),
		Origin:    string(a.Origin),
	}
}

func formatStatus(snap control.Snapshot) StatusJSON {
	sj := StatusJSON{
		Devices:       make([]DeviceJSON, 0, len(snap.Devices)),
		History:       make([]ReadingJSON, 0, len(snap.History)),
		LastUpdate:    snap.LastUpdate,
		Connection:    snap.Connectivity.JSON(),
		MockMode:      snap.Connectivity.MockMode,
		RecentActions: make([]ActionJSON, 0, len(snap.RecentActions)),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
	}
	for _, d := range snap.Devices {
		sj.Devices = append(sj.Devices, formatDevice(d))
	}
	if snap.HasReading {
		latest := formatReading(snap.Latest)
		sj.Latest = &latest
	}
	for _, r := range snap.History {
		sj.History = append(sj.History, formatReading(r))
	}
	for _, a := range snap.RecentActions {
		sj.RecentActions = append(sj.RecentActions, formatAction(a))
	}
	return sj
}
