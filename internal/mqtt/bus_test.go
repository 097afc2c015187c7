package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/home-controller/internal/status"
)

func newTestBus(reachable bool) (*Bus, *FakeTransport, *FakeProber, *status.Monitor) {
	tr := NewFakeTransport()
	pr := &FakeProber{Reachable: reachable}
	mon := status.NewMonitor()
	bus := NewBus(tr, pr, mon, BusConfig{
		Endpoint: "broker.example:1883",
		Topics:   NewTopics(""),
	}, zerolog.Nop())
	return bus, tr, pr, mon
}

func noopHandler(string, []byte) error { return nil }

func TestBusStartConnected(t *testing.T) {
	bus, tr, pr, mon := newTestBus(true)

	err := bus.Start(context.Background(), noopHandler)
	require.NoError(t, err)

	assert.True(t, mon.IsConnected())
	assert.False(t, mon.MockMode())
	assert.True(t, tr.Subscribed("smart_home/control"))
	assert.Equal(t, 1, pr.Calls)
	assert.Equal(t, "broker.example:1883", pr.LastEndpoint)
	assert.Equal(t, DefaultProbeTimeout, pr.LastTimeout)
}

func TestBusStartProbeFailureEntersMockMode(t *testing.T) {
	bus, tr, _, mon := newTestBus(false)

	err := bus.Start(context.Background(), noopHandler)
	assert.ErrorIs(t, err, ErrConnection)

	assert.False(t, mon.IsConnected())
	assert.True(t, mon.MockMode())
	assert.False(t, tr.IsConnected(), "no session attempted after a failed probe")
	assert.False(t, tr.Subscribed("smart_home/control"))
}

func TestBusStartConnectFailureEntersMockMode(t *testing.T) {
	bus, tr, _, mon := newTestBus(true)
	tr.ConnectError = errors.New("not authorized")

	err := bus.Start(context.Background(), noopHandler)
	assert.ErrorIs(t, err, ErrConnection)
	assert.True(t, mon.MockMode())
}

func TestBusStartSubscribeFailureEntersMockMode(t *testing.T) {
	bus, tr, _, mon := newTestBus(true)
	tr.SubscribeError = errors.New("denied")

	err := bus.Start(context.Background(), noopHandler)
	assert.ErrorIs(t, err, ErrConnection)
	assert.True(t, mon.MockMode())
}

func TestBusPublishConnected(t *testing.T) {
	bus, tr, _, _ := newTestBus(true)
	require.NoError(t, bus.Start(context.Background(), noopHandler))

	require.NoError(t, bus.Publish("smart_home/control", []byte("led1:ON")))
	assert.Equal(t, []string{"led1:ON"}, tr.PublishedOn("smart_home/control"))
}

func TestBusPublishSuppressedInMockMode(t *testing.T) {
	bus, tr, _, _ := newTestBus(false)
	_ = bus.Start(context.Background(), noopHandler)

	assert.NoError(t, bus.Publish("smart_home/control", []byte("fan:ON")))
	assert.Empty(t, tr.Published())
}

func TestBusPublishErrorWrapsTopic(t *testing.T) {
	bus, tr, _, _ := newTestBus(true)
	require.NoError(t, bus.Start(context.Background(), noopHandler))
	tr.PublishError = ErrTimeout

	err := bus.Publish("smart_home/sensor", []byte("Temperature:25.00"))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "smart_home/sensor")
}

func TestBusLostConnectionAndReconnect(t *testing.T) {
	bus, tr, _, mon := newTestBus(true)
	require.NoError(t, bus.Start(context.Background(), noopHandler))

	tr.DropConnection(errors.New("EOF"))
	assert.True(t, mon.MockMode())
	assert.NoError(t, bus.Publish("smart_home/control", []byte("led1:ON")))
	assert.Empty(t, tr.Published(), "publishes are suppressed while disconnected")

	tr.Reconnect()
	assert.True(t, mon.IsConnected())
	require.NoError(t, bus.Publish("smart_home/control", []byte("led1:OFF")))
	assert.Equal(t, []string{"led1:OFF"}, tr.PublishedOn("smart_home/control"))
}

func TestBusHandlerReceivesMessages(t *testing.T) {
	bus, tr, _, _ := newTestBus(true)

	var got []string
	require.NoError(t, bus.Start(context.Background(), func(topic string, payload []byte) error {
		got = append(got, topic+"="+string(payload))
		return nil
	}))

	assert.True(t, tr.Deliver("smart_home/control", []byte("led2:ON")))
	assert.Equal(t, []string{"smart_home/control=led2:ON"}, got)
}

func TestBusMalformedMessageDoesNotStopListener(t *testing.T) {
	bus, tr, _, _ := newTestBus(true)

	calls := 0
	require.NoError(t, bus.Start(context.Background(), func(_ string, payload []byte) error {
		calls++
		_, err := ParseCommand(payload)
		return err
	}))

	tr.Deliver("smart_home/control", []byte("garbage"))
	tr.Deliver("smart_home/control", []byte("led1:ON"))
	assert.Equal(t, 2, calls)
}

func TestBusHandlerPanicRecovered(t *testing.T) {
	bus, tr, _, _ := newTestBus(true)

	calls := 0
	require.NoError(t, bus.Start(context.Background(), func(string, []byte) error {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return nil
	}))

	assert.NotPanics(t, func() {
		tr.Deliver("smart_home/control", []byte("led1:ON"))
	})
	tr.Deliver("smart_home/control", []byte("led1:OFF"))
	assert.Equal(t, 2, calls)
}

func TestBusStartIsIdempotent(t *testing.T) {
	bus, _, pr, _ := newTestBus(true)
	require.NoError(t, bus.Start(context.Background(), noopHandler))
	require.NoError(t, bus.Start(context.Background(), noopHandler))
	assert.Equal(t, 1, pr.Calls)
}

func TestBusCustomProbeTimeout(t *testing.T) {
	tr := NewFakeTransport()
	pr := &FakeProber{Reachable: true}
	bus := NewBus(tr, pr, status.NewMonitor(), BusConfig{
		Endpoint:     "localhost:1883",
		ProbeTimeout: 250 * time.Millisecond,
		Topics:       NewTopics(""),
	}, zerolog.Nop())

	require.NoError(t, bus.Start(context.Background(), noopHandler))
	assert.Equal(t, 250*time.Millisecond, pr.LastTimeout)
	require.NoError(t, bus.Close())
	assert.True(t, tr.Closed())
}
