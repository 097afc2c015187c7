// Package control implements the controller's apply path: the single place
// where device state changes, outputs are driven, actions are logged and
// local requests are reflected on the bus.
//
// There are two entry points. HandleMessage is the inbound path for bus
// messages; it never republishes, which keeps controllers sharing a topic
// from echoing each other. Request and Toggle are the local path; an
// effective change is published on the control topic.
package control

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/home-controller/internal/device"
	"github.com/sweeney/home-controller/internal/gpio"
	"github.com/sweeney/home-controller/internal/logbook"
	"github.com/sweeney/home-controller/internal/mqtt"
	"github.com/sweeney/home-controller/internal/sensor"
	"github.com/sweeney/home-controller/internal/status"
)

// DefaultRecentActions is how many actions a Snapshot carries.
const DefaultRecentActions = 10

// Publisher sends a payload on a bus topic. *mqtt.Bus satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Options wires a Controller. Registry and Monitor are required; the rest
// may be nil.
type Options struct {
	Registry     *device.Registry
	Driver       gpio.Driver
	Actions      logbook.ActionSink
	History      logbook.ActionReader
	Publisher    Publisher
	ControlTopic string
	Sampler      *sensor.Sampler
	Monitor      *status.Monitor
	Logger       zerolog.Logger
	Now          func() time.Time
}

// Controller serializes every state change through one mutex, so the
// inbound listener and local requests never interleave.
type Controller struct {
	registry *device.Registry
	driver   gpio.Driver
	actions  logbook.ActionSink
	history  logbook.ActionReader
	pub      Publisher
	topic    string
	sampler  *sensor.Sampler
	monitor  *status.Monitor
	log      zerolog.Logger
	now      func() time.Time
	start    time.Time

	mu sync.Mutex
}

// New creates a Controller and configures every device pin as an output.
// A pin that fails to configure is logged; its state is still tracked.
func New(opts Options) (*Controller, error) {
	if opts.Registry == nil {
		return nil, errors.New("control: registry is required")
	}
	if opts.Monitor == nil {
		return nil, errors.New("control: monitor is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		registry: opts.Registry,
		driver:   opts.Driver,
		actions:  opts.Actions,
		history:  opts.History,
		pub:      opts.Publisher,
		topic:    opts.ControlTopic,
		sampler:  opts.Sampler,
		monitor:  opts.Monitor,
		log:      opts.Logger.With().Str("component", "control").Logger(),
		now:      now,
		start:    now(),
	}

	if c.driver != nil {
		for _, d := range c.registry.List() {
			if err := c.driver.Setup(d.Address); err != nil {
				c.log.Warn().Err(err).Str("device", d.ID).Int("pin", d.Address).Msg("pin setup failed")
			}
		}
	}
	return c, nil
}

// HandleMessage is the inbound bus handler. It parses "<id>:<ON|OFF>" and
// applies it without republishing. Unparseable payloads and unknown devices
// return an error wrapping mqtt.ErrMalformedMessage; nothing changes.
func (c *Controller) HandleMessage(topic string, payload []byte) error {
	cmd, err := mqtt.ParseCommand(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.applyLocked(cmd.DeviceID, cmd.State, logbook.OriginBus)
	if errors.Is(err, device.ErrNotFound) {
		return fmt.Errorf("%w: unknown device %q", mqtt.ErrMalformedMessage, cmd.DeviceID)
	}
	return err
}

// Request sets a device from the local side. It reports whether the state
// changed; an unchanged request has no side effects.
func (c *Controller) Request(id string, state device.State) (bool, error) {
	if !state.Valid() {
		return false, fmt.Errorf("%w: %q", device.ErrInvalidState, state)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(id, state, logbook.OriginLocal)
}

// Toggle flips a device from the local side and returns its new state.
func (c *Controller) Toggle(id string) (device.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.registry.Get(id)
	if err != nil {
		return "", err
	}
	next := d.State.Toggle()
	if _, err := c.applyLocked(id, next, logbook.OriginLocal); err != nil {
		return "", err
	}
	return next, nil
}

// applyLocked is the shared apply path. c.mu must be held.
//
// The registry transition is the commit point. Driver, log and publish
// failures after it are logged and do not undo the change.
func (c *Controller) applyLocked(id string, state device.State, origin logbook.Origin) (bool, error) {
	changed, err := c.registry.SetState(id, state)
	if err != nil {
		return false, err
	}
	if !changed {
		c.log.Debug().Str("device", id).Str("state", string(state)).Str("origin", string(origin)).Msg("no change")
		return false, nil
	}

	d, err := c.registry.Get(id)
	if err != nil {
		return true, err
	}

	if c.driver != nil {
		if err := c.driver.Set(d.Address, state.On()); err != nil {
			c.log.Error().Err(err).Str("device", id).Int("pin", d.Address).Msg("drive output failed")
		}
	}

	entry := logbook.ActionEntry{
		Time:     c.now().Truncate(time.Second),
		DeviceID: id,
		Action:   state,
		Origin:   origin,
	}
	if c.actions != nil {
		if err := c.actions.AppendAction(entry); err != nil {
			c.log.Error().Err(err).Str("device", id).Msg("action log append failed")
		}
	}

	if origin == logbook.OriginLocal && c.pub != nil {
		if err := c.pub.Publish(c.topic, mqtt.FormatCommand(id, state)); err != nil {
			c.log.Warn().Err(err).Str("device", id).Msg("publish failed")
		}
	}

	c.log.Info().
		Str("device", id).
		Str("state", string(state)).
		Str("origin", string(origin)).
		Msg("device state changed")
	return true, nil
}

// Device returns a copy of one device.
func (c *Controller) Device(id string) (device.Device, error) {
	return c.registry.Get(id)
}

// Devices returns copies of all devices in configuration order.
func (c *Controller) Devices() []device.Device {
	return c.registry.List()
}

// Sample forces a sensor tick outside the periodic schedule.
func (c *Controller) Sample() (sensor.Reading, error) {
	if c.sampler == nil {
		return sensor.Reading{}, errors.New("control: no sampler configured")
	}
	return c.sampler.Tick()
}

// RecentActions returns up to limit logged actions, oldest first.
// Without an action reader it returns nothing.
func (c *Controller) RecentActions(limit int) ([]logbook.ActionEntry, error) {
	if c.history == nil {
		return nil, nil
	}
	return c.history.RecentActions(limit)
}

// Connectivity returns the current bus connectivity.
func (c *Controller) Connectivity() status.Connectivity {
	return c.monitor.Snapshot()
}
