package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/home-controller/internal/config"
	"github.com/sweeney/home-controller/internal/gpio"
	"github.com/sweeney/home-controller/internal/logbook"
	"github.com/sweeney/home-controller/internal/mqtt"
	"github.com/sweeney/home-controller/internal/sensor"
	"github.com/sweeney/home-controller/internal/status"
)

// countingSampler records Tick calls and fails when told to.
type countingSampler struct {
	mu    sync.Mutex
	ticks int
	fail  bool
}

func (c *countingSampler) Tick() (sensor.Reading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	if c.fail {
		return sensor.Reading{}, errors.New("sensor offline")
	}
	return sensor.Reading{Time: time.Now(), Value: 25}, nil
}

func (c *countingSampler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

func TestRunLoopTicksUntilSignal(t *testing.T) {
	s := &countingSampler{}
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(s, tick, sig, nil, zerolog.Nop())
	}()

	for i := 0; i < 3; i++ {
		tick <- time.Now()
	}
	sig <- syscall.SIGTERM

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("runLoop returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runLoop did not exit on signal")
	}

	if s.count() != 3 {
		t.Errorf("ticks: got %d, want 3", s.count())
	}
}

func TestRunLoopContinuesAfterFailedTick(t *testing.T) {
	s := &countingSampler{fail: true}
	tick := make(chan time.Time)
	done := make(chan struct{})

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(s, tick, nil, done, zerolog.Nop())
	}()

	tick <- time.Now()
	tick <- time.Now()
	close(done)

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("runLoop returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runLoop did not exit when done closed")
	}

	if s.count() != 2 {
		t.Errorf("a failed tick must not stop sampling: got %d ticks", s.count())
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	applyFlags(cfg, flags{
		broker:   "localhost:1883",
		httpAddr: ":9090",
		dataDir:  "/tmp/hc",
		logLevel: "debug",
		gpioMode: "auto",
	})

	if cfg.MQTT.Broker != "localhost:1883" {
		t.Errorf("broker: got %q", cfg.MQTT.Broker)
	}
	if !cfg.HTTP.Enabled || cfg.HTTP.Addr != ":9090" {
		t.Errorf("http: got enabled=%v addr=%q", cfg.HTTP.Enabled, cfg.HTTP.Addr)
	}
	if cfg.Storage.DataDir != "/tmp/hc" {
		t.Errorf("data dir: got %q", cfg.Storage.DataDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level: got %q", cfg.Logging.Level)
	}
	if cfg.GPIO.Mode != "auto" {
		t.Errorf("gpio mode: got %q", cfg.GPIO.Mode)
	}

	applyFlags(cfg, flags{httpAddr: "off"})
	if cfg.HTTP.Enabled {
		t.Error(`-http off should disable the API`)
	}
}

func TestApplyFlagsEmptyKeepsConfig(t *testing.T) {
	cfg := config.Default()
	applyFlags(cfg, flags{})
	if cfg.MQTT.Broker != config.Default().MQTT.Broker {
		t.Errorf("broker changed: %q", cfg.MQTT.Broker)
	}
	if !cfg.HTTP.Enabled {
		t.Error("http should stay enabled")
	}
}

func TestLoadConfigRejectsBadFlag(t *testing.T) {
	_, err := loadConfig(flags{broker: "no-port"})
	if err == nil {
		t.Fatal("expected validation error for broker without port")
	}
}

func TestNewDriverSimulated(t *testing.T) {
	cfg := config.Default()
	if _, ok := newDriver(cfg, zerolog.Nop()).(*gpio.SimulatedDriver); !ok {
		t.Error("simulated mode should return SimulatedDriver")
	}
}

func TestOpenSinks(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()

	s := openSinks(cfg, zerolog.Nop())
	defer s.Close()

	if _, ok := s.history.(*logbook.SQLiteStore); !ok {
		t.Errorf("history reader: got %T, want *logbook.SQLiteStore", s.history)
	}

	entry := logbook.ActionEntry{Time: time.Now(), DeviceID: "led1", Action: "ON", Origin: logbook.OriginLocal}
	if err := s.actions.AppendAction(entry); err != nil {
		t.Fatalf("AppendAction: %v", err)
	}

	recent, err := s.history.RecentActions(10)
	if err != nil {
		t.Fatalf("RecentActions: %v", err)
	}
	if len(recent) != 1 || recent[0].Origin != logbook.OriginLocal {
		t.Errorf("recent: got %+v", recent)
	}

	csv, err := logbook.NewActionCSV(filepath.Join(cfg.Storage.DataDir, "device_logs.csv")).RecentActions(10)
	if err != nil {
		t.Fatalf("csv RecentActions: %v", err)
	}
	if len(csv) != 1 {
		t.Errorf("csv rows: got %d, want 1", len(csv))
	}
}

func TestOpenSinksWithoutSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.SQLite = false

	s := openSinks(cfg, zerolog.Nop())
	defer s.Close()

	if _, ok := s.history.(*logbook.ActionCSV); !ok {
		t.Errorf("history reader: got %T, want *logbook.ActionCSV", s.history)
	}
}

func TestSwapWriter(t *testing.T) {
	var a, b bytes.Buffer
	w := &swapWriter{w: &a}

	w.Write([]byte("first\n"))
	w.Set(&b)
	w.Write([]byte("second\n"))

	if a.String() != "first\n" {
		t.Errorf("a: got %q", a.String())
	}
	if b.String() != "second\n" {
		t.Errorf("b: got %q", b.String())
	}
}

// TestMockModeStartupPath wires the same components as run with a prober
// that always fails, and checks sampling carries on without publishing.
func TestMockModeStartupPath(t *testing.T) {
	var logs bytes.Buffer
	log := zerolog.New(&logs)

	monitor := status.NewMonitor()
	transport := mqtt.NewFakeTransport()
	bus := mqtt.NewBus(transport, &mqtt.FakeProber{Reachable: false}, monitor, mqtt.BusConfig{
		Endpoint: "broker.hivemq.com:1883",
		Topics:   mqtt.NewTopics(""),
	}, log)

	s := sensor.NewSampler(sensor.SamplerConfig{
		Sensor:    sensor.NewSimulatedSensor(1),
		Publisher: bus,
		Topic:     "smart_home/sensor",
		Logger:    log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := bus.Start(ctx, func(string, []byte) error { return nil }); !errors.Is(err, mqtt.ErrConnection) {
		t.Fatalf("Start: got %v, want ErrConnection", err)
	}

	tick := make(chan time.Time)
	done := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(s, tick, nil, done, log)
	}()

	tick <- time.Now()
	tick <- time.Now()
	close(done)

	if err := <-errCh; err != nil {
		t.Fatalf("runLoop: %v", err)
	}

	if len(s.History()) != 2 {
		t.Errorf("history: got %d readings, want 2", len(s.History()))
	}
	if n := len(transport.Published()); n != 0 {
		t.Errorf("mock mode should suppress publishes, got %d", n)
	}
	if !strings.Contains(logs.String(), "mock mode") {
		t.Error("expected mock mode to be logged")
	}
}
