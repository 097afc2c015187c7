package control

import (
	"time"

	"github.com/sweeney/home-controller/internal/device"
	"github.com/sweeney/home-controller/internal/logbook"
	"github.com/sweeney/home-controller/internal/sensor"
	"github.com/sweeney/home-controller/internal/status"
)

// Snapshot is a point-in-time copy of everything an observer renders.
// It is a value type, safe to use after it is returned.
type Snapshot struct {
	Devices       []device.Device
	Latest        sensor.Reading
	HasReading    bool
	History       []sensor.Reading
	LastUpdate    string
	Connectivity  status.Connectivity
	RecentActions []logbook.ActionEntry
	StartTime     time.Time
	Now           time.Time
}

// Uptime returns the duration since the controller was created.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Snapshot gathers the current state. It does not take the apply lock, so
// observers never block a state change; each part is individually consistent.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		Devices:      c.registry.List(),
		LastUpdate:   "N/A",
		Connectivity: c.monitor.Snapshot(),
		StartTime:    c.start,
		Now:          c.now(),
	}

	if c.sampler != nil {
		snap.Latest, snap.HasReading = c.sampler.Latest()
		snap.History = c.sampler.History()
		snap.LastUpdate = c.sampler.LastUpdate()
	}

	if actions, err := c.RecentActions(DefaultRecentActions); err != nil {
		c.log.Warn().Err(err).Msg("recent actions unavailable")
	} else {
		snap.RecentActions = actions
	}

	return snap
}
