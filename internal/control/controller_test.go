package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/home-controller/internal/device"
	"github.com/sweeney/home-controller/internal/gpio"
	"github.com/sweeney/home-controller/internal/logbook"
	"github.com/sweeney/home-controller/internal/mqtt"
	"github.com/sweeney/home-controller/internal/sensor"
	"github.com/sweeney/home-controller/internal/status"
)

const controlTopic = "smart_home/control"

type harness struct {
	ctrl      *Controller
	registry  *device.Registry
	driver    *gpio.FakeDriver
	log       *logbook.MemoryLog
	transport *mqtt.FakeTransport
	monitor   *status.Monitor
	bus       *mqtt.Bus
}

func newHarness(t *testing.T, reachable bool) *harness {
	t.Helper()

	reg, err := device.NewRegistry([]device.Spec{
		{ID: "led1", Address: 18, Name: "Living Room Light"},
		{ID: "led2", Address: 19, Name: "Bedroom Light"},
		{ID: "fan", Address: 23, Name: "Ceiling Fan"},
		{ID: "door", Address: 24, Name: "Front Door Sensor", Class: device.ClassSensor},
	})
	require.NoError(t, err)

	h := &harness{
		registry:  reg,
		driver:    gpio.NewFakeDriver(),
		log:       logbook.NewMemoryLog(),
		transport: mqtt.NewFakeTransport(),
		monitor:   status.NewMonitor(),
	}
	h.bus = mqtt.NewBus(h.transport, &mqtt.FakeProber{Reachable: reachable}, h.monitor, mqtt.BusConfig{
		Endpoint: "broker.example:1883",
		Topics:   mqtt.NewTopics(""),
	}, zerolog.Nop())

	sampler := sensor.NewSampler(sensor.SamplerConfig{
		Sensor:    sensor.NewFakeSensor(24.5, 25.5),
		Sink:      h.log,
		Publisher: h.bus,
		Topic:     "smart_home/sensor",
		Logger:    zerolog.Nop(),
	})

	h.ctrl, err = New(Options{
		Registry:     reg,
		Driver:       h.driver,
		Actions:      h.log,
		History:      h.log,
		Publisher:    h.bus,
		ControlTopic: controlTopic,
		Sampler:      sampler,
		Monitor:      h.monitor,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)

	_ = h.bus.Start(context.Background(), h.ctrl.HandleMessage)
	return h
}

func (h *harness) state(t *testing.T, id string) device.State {
	t.Helper()
	d, err := h.registry.Get(id)
	require.NoError(t, err)
	return d.State
}

func TestNewConfiguresPins(t *testing.T) {
	h := newHarness(t, true)
	assert.Equal(t, []int{18, 19, 23, 24}, h.driver.SetupPins)
}

func TestNewRequiresRegistryAndMonitor(t *testing.T) {
	_, err := New(Options{Monitor: status.NewMonitor()})
	assert.Error(t, err)

	reg, _ := device.NewRegistry(nil)
	_, err = New(Options{Registry: reg})
	assert.Error(t, err)
}

func TestRequestTwiceLogsAndPublishesOnce(t *testing.T) {
	h := newHarness(t, true)

	changed, err := h.ctrl.Request("led1", device.StateOn)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = h.ctrl.Request("led1", device.StateOn)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Len(t, h.log.Actions(), 1)
	assert.Equal(t, []string{"led1:ON"}, h.transport.PublishedOn(controlTopic))
	assert.Equal(t, []gpio.Call{{Pin: 18, On: true}}, h.driver.Calls)
}

func TestRequestRecordsLocalOrigin(t *testing.T) {
	h := newHarness(t, true)

	_, err := h.ctrl.Request("fan", device.StateOn)
	require.NoError(t, err)

	actions := h.log.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, "fan", actions[0].DeviceID)
	assert.Equal(t, device.StateOn, actions[0].Action)
	assert.Equal(t, logbook.OriginLocal, actions[0].Origin)
	assert.Zero(t, actions[0].Time.Nanosecond(), "second resolution")
}

func TestRequestErrors(t *testing.T) {
	h := newHarness(t, true)

	_, err := h.ctrl.Request("garage", device.StateOn)
	assert.ErrorIs(t, err, device.ErrNotFound)

	_, err = h.ctrl.Request("led1", device.State("DIM"))
	assert.ErrorIs(t, err, device.ErrInvalidState)

	assert.Empty(t, h.log.Actions())
	assert.Empty(t, h.transport.Published())
}

func TestInboundCommandAppliesWithoutRepublish(t *testing.T) {
	h := newHarness(t, true)

	require.True(t, h.transport.Deliver(controlTopic, []byte("led2:ON")))

	assert.Equal(t, device.StateOn, h.state(t, "led2"))
	actions := h.log.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, logbook.OriginBus, actions[0].Origin)
	assert.Equal(t, []gpio.Call{{Pin: 19, On: true}}, h.driver.Calls)
	assert.Empty(t, h.transport.Published(), "inbound commands are never echoed")
}

func TestInboundMatchingStateIsNoop(t *testing.T) {
	h := newHarness(t, true)

	for _, payload := range []string{"led1:OFF", "fan:OFF", "led1:ON", "led1:ON", "led1:ON"} {
		h.transport.Deliver(controlTopic, []byte(payload))
	}

	assert.Len(t, h.log.Actions(), 1, "only OFF->ON on led1 is a change")
	assert.Equal(t, 1, h.driver.CallCount())
	assert.Empty(t, h.transport.Published())
}

func TestInboundUnknownDeviceDropped(t *testing.T) {
	h := newHarness(t, true)

	err := h.ctrl.HandleMessage(controlTopic, []byte("unknown_device:ON"))
	assert.ErrorIs(t, err, mqtt.ErrMalformedMessage)

	for _, d := range h.registry.List() {
		assert.Equal(t, device.StateOff, d.State, d.ID)
	}
	assert.Empty(t, h.log.Actions())
	assert.Zero(t, h.driver.CallCount())
}

func TestInboundMalformedDoesNotStopListener(t *testing.T) {
	h := newHarness(t, true)

	h.transport.Deliver(controlTopic, []byte("garbage"))
	h.transport.Deliver(controlTopic, []byte("fan:SPIN"))
	h.transport.Deliver(controlTopic, []byte("fan:ON"))

	assert.Equal(t, device.StateOn, h.state(t, "fan"))
	assert.Len(t, h.log.Actions(), 1)
}

func TestMockModeSuppressesPublishButKeepsLocalControl(t *testing.T) {
	h := newHarness(t, false)
	require.True(t, h.monitor.MockMode())

	changed, err := h.ctrl.Request("fan", device.StateOn)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, device.StateOn, h.state(t, "fan"))
	assert.Len(t, h.log.Actions(), 1)
	assert.Empty(t, h.transport.Published())
}

func TestPublishResumesAfterReconnect(t *testing.T) {
	h := newHarness(t, true)

	h.transport.DropConnection(errors.New("EOF"))
	_, err := h.ctrl.Request("led1", device.StateOn)
	require.NoError(t, err)
	assert.Empty(t, h.transport.Published())

	h.transport.Reconnect()
	_, err = h.ctrl.Request("led1", device.StateOff)
	require.NoError(t, err)
	assert.Equal(t, []string{"led1:OFF"}, h.transport.PublishedOn(controlTopic))
}

func TestPersistenceFailureDoesNotBlockChange(t *testing.T) {
	h := newHarness(t, true)
	h.log.Err = logbook.ErrPersistence

	changed, err := h.ctrl.Request("led2", device.StateOn)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, device.StateOn, h.state(t, "led2"))
	assert.Equal(t, []string{"led2:ON"}, h.transport.PublishedOn(controlTopic))
}

func TestDriverFailureDoesNotBlockChange(t *testing.T) {
	h := newHarness(t, true)
	h.driver.SetError = errors.New("line busy")

	changed, err := h.ctrl.Request("led1", device.StateOn)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, h.log.Actions(), 1)
}

func TestToggle(t *testing.T) {
	h := newHarness(t, true)

	next, err := h.ctrl.Toggle("door")
	require.NoError(t, err)
	assert.Equal(t, device.StateOn, next)

	next, err = h.ctrl.Toggle("door")
	require.NoError(t, err)
	assert.Equal(t, device.StateOff, next)

	assert.Equal(t, []string{"door:ON", "door:OFF"}, h.transport.PublishedOn(controlTopic))

	_, err = h.ctrl.Toggle("garage")
	assert.ErrorIs(t, err, device.ErrNotFound)
}

func TestConcurrentInboundAndLocal(t *testing.T) {
	h := newHarness(t, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.transport.Deliver(controlTopic, []byte("fan:ON"))
		}()
		go func() {
			defer wg.Done()
			_, _ = h.ctrl.Request("fan", device.StateOn)
		}()
	}
	wg.Wait()

	assert.Equal(t, device.StateOn, h.state(t, "fan"))
	assert.Len(t, h.log.Actions(), 1, "exactly one transition is logged")
	assert.Equal(t, 1, h.driver.CallCount())
}

func TestSampleAndSnapshot(t *testing.T) {
	h := newHarness(t, true)

	snap := h.ctrl.Snapshot()
	assert.False(t, snap.HasReading)
	assert.Equal(t, "N/A", snap.LastUpdate)
	assert.Len(t, snap.Devices, 4)
	assert.Equal(t, "Connected", snap.Connectivity.Label())

	r, err := h.ctrl.Sample()
	require.NoError(t, err)
	assert.InDelta(t, 24.5, r.Value, 1e-9)
	assert.Equal(t, []string{"Temperature:24.50"}, h.transport.PublishedOn("smart_home/sensor"))

	_, err = h.ctrl.Request("led1", device.StateOn)
	require.NoError(t, err)

	snap = h.ctrl.Snapshot()
	assert.True(t, snap.HasReading)
	assert.Equal(t, r.Timestamp(), snap.LastUpdate)
	assert.Len(t, snap.History, 1)
	require.Len(t, snap.RecentActions, 1)
	assert.Equal(t, "led1", snap.RecentActions[0].DeviceID)
	assert.Equal(t, device.StateOn, snap.Devices[0].State)
	assert.GreaterOrEqual(t, snap.Uptime(), time.Duration(0))
}

func TestSnapshotRecentActionsCapped(t *testing.T) {
	h := newHarness(t, true)

	for i := 0; i < 15; i++ {
		_, err := h.ctrl.Toggle("led1")
		require.NoError(t, err)
	}

	snap := h.ctrl.Snapshot()
	assert.Len(t, snap.RecentActions, DefaultRecentActions)
}

func TestSampleWithoutSampler(t *testing.T) {
	reg, _ := device.NewRegistry([]device.Spec{{ID: "led1", Address: 18}})
	ctrl, err := New(Options{Registry: reg, Monitor: status.NewMonitor(), Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = ctrl.Sample()
	assert.Error(t, err)

	snap := ctrl.Snapshot()
	assert.Equal(t, "N/A", snap.LastUpdate)
	assert.Nil(t, snap.RecentActions)
}
