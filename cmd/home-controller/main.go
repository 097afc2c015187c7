// Command home-controller drives lights, a fan and a door sensor, samples a
// temperature sensor and keeps device state in sync over MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/home-controller/internal/config"
	"github.com/sweeney/home-controller/internal/console"
	"github.com/sweeney/home-controller/internal/control"
	"github.com/sweeney/home-controller/internal/device"
	"github.com/sweeney/home-controller/internal/gpio"
	"github.com/sweeney/home-controller/internal/logbook"
	"github.com/sweeney/home-controller/internal/logging"
	"github.com/sweeney/home-controller/internal/mqtt"
	"github.com/sweeney/home-controller/internal/sensor"
	"github.com/sweeney/home-controller/internal/status"
	"github.com/sweeney/home-controller/internal/web"
)

// flags holds command-line overrides. Empty values leave the config alone.
type flags struct {
	configPath  string
	broker      string
	httpAddr    string
	dataDir     string
	logLevel    string
	gpioMode    string
	interactive bool
	probe       bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to YAML config file (default: built-in defaults)")
	flag.StringVar(&f.broker, "broker", "", "MQTT broker host:port")
	flag.StringVar(&f.httpAddr, "http", "", `HTTP API address ("off" disables)`)
	flag.StringVar(&f.dataDir, "data", "", "Directory for CSV logs and the history database")
	flag.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&f.gpioMode, "gpio", "", "GPIO driver: simulated, hardware, auto")
	flag.BoolVar(&f.interactive, "i", false, "Start the interactive console")
	flag.BoolVar(&f.probe, "probe", false, "Check broker reachability and exit")
	flag.Parse()

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, f); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides on top.
func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, f)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating flags: %w", err)
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, f flags) {
	if f.broker != "" {
		cfg.MQTT.Broker = f.broker
	}
	switch f.httpAddr {
	case "":
	case "off":
		cfg.HTTP.Enabled = false
	default:
		cfg.HTTP.Enabled = true
		cfg.HTTP.Addr = f.httpAddr
	}
	if f.dataDir != "" {
		cfg.Storage.DataDir = f.dataDir
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.gpioMode != "" {
		cfg.GPIO.Mode = f.gpioMode
	}
}

func run(cfg *config.Config, f flags) error {
	logOut := &swapWriter{w: os.Stderr}
	log, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, logOut)
	if err != nil {
		return err
	}

	if f.probe {
		ok := mqtt.TCPProber{}.Probe(context.Background(), cfg.MQTT.Broker, cfg.ProbeTimeout())
		fmt.Printf("broker %s reachable: %v\n", cfg.MQTT.Broker, ok)
		return nil
	}

	registry, err := device.NewRegistry(cfg.DeviceSpecs())
	if err != nil {
		return fmt.Errorf("init devices: %w", err)
	}

	driver := newDriver(cfg, log)
	defer driver.Close()

	sinks := openSinks(cfg, log)
	defer sinks.Close()

	monitor := status.NewMonitor()
	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)

	transport := mqtt.NewPahoTransport(mqtt.PahoConfig{
		BrokerURL:      cfg.BrokerURL(),
		ClientID:       cfg.MQTT.ClientID,
		Username:       cfg.MQTT.Username,
		Password:       cfg.MQTT.Password,
		QoS:            byte(cfg.MQTT.QoS),
		ConnectTimeout: cfg.ConnectTimeout(),
		StatusTopic:    topics.Status,
		Logger:         log,
	})
	bus := mqtt.NewBus(transport, mqtt.TCPProber{}, monitor, mqtt.BusConfig{
		Endpoint:     cfg.MQTT.Broker,
		ProbeTimeout: cfg.ProbeTimeout(),
		Topics:       topics,
	}, log)

	seed := cfg.Sensor.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sampler := sensor.NewSampler(sensor.SamplerConfig{
		Sensor:     sensor.NewSimulatedSensor(seed),
		WindowSize: cfg.Sensor.Window,
		Sink:       sinks.readings,
		Publisher:  bus,
		Topic:      topics.Sensor,
		Logger:     log,
	})

	ctrl, err := control.New(control.Options{
		Registry:     registry,
		Driver:       driver,
		Actions:      sinks.actions,
		History:      sinks.history,
		Publisher:    bus,
		ControlTopic: topics.Control,
		Sampler:      sampler,
		Monitor:      monitor,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A failed start leaves the bus in mock mode; the controller keeps running.
	if err := bus.Start(ctx, ctrl.HandleMessage); err != nil {
		log.Warn().Err(err).Msg("bus unavailable, continuing in mock mode")
	}
	defer bus.Close()

	if cfg.HTTP.Enabled {
		srv := web.New(web.Config{
			Addr:       cfg.HTTP.Addr,
			Origins:    cfg.HTTP.Origins,
			ReadingLog: cfg.ReadingLogPath(),
			ActionLog:  cfg.ActionLogPath(),
			Logger:     log,
		}, ctrl)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http api listening")
	}

	if f.interactive {
		con, err := console.New(ctrl)
		if err != nil {
			return err
		}
		logOut.Set(con.Stdout())
		go con.Run(ctx, cancel)
	}

	log.Info().
		Str("broker", cfg.MQTT.Broker).
		Str("bus", monitor.Snapshot().Label()).
		Dur("interval", cfg.SampleInterval()).
		Int("devices", registry.Len()).
		Msg("started")

	if _, err := sampler.Tick(); err != nil {
		log.Warn().Err(err).Msg("initial sample incomplete")
	}

	ticker := time.NewTicker(cfg.SampleInterval())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(sampler, ticker.C, sigCh, ctx.Done(), log)
}

// tickSource is the sampler's periodic entry point.
type tickSource interface {
	Tick() (sensor.Reading, error)
}

// runLoop drives the sampler from tick until a signal arrives or done is
// closed. A failed tick is logged and sampling continues.
func runLoop(sampler tickSource, tick <-chan time.Time, sig <-chan os.Signal, done <-chan struct{}, log zerolog.Logger) error {
	for {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			return nil

		case <-done:
			log.Info().Msg("shutting down")
			return nil

		case <-tick:
			if _, err := sampler.Tick(); err != nil {
				log.Warn().Err(err).Msg("sample tick incomplete")
			}
		}
	}
}

// newDriver picks the GPIO driver for the configured mode.
func newDriver(cfg *config.Config, log zerolog.Logger) gpio.Driver {
	if cfg.GPIO.Mode == config.GPIOModeSimulated {
		return gpio.NewSimulatedDriver(log)
	}

	d, err := gpio.NewLineDriver(cfg.GPIO.Chip)
	if err == nil {
		log.Info().Str("chip", cfg.GPIO.Chip).Msg("using gpio hardware")
		return d
	}
	log.Warn().Err(err).Str("chip", cfg.GPIO.Chip).Msg("gpio unavailable, using simulated outputs")
	return gpio.NewSimulatedDriver(log)
}

// sinks groups the configured log sinks.
type sinks struct {
	actions  *logbook.MultiActionSink
	readings *logbook.MultiReadingSink
	history  logbook.ActionReader
	closers  []io.Closer
}

// openSinks opens the CSV logs and, when configured, SQLite and InfluxDB.
// Optional sinks that fail to open are logged and skipped.
func openSinks(cfg *config.Config, log zerolog.Logger) *sinks {
	actionCSV := logbook.NewActionCSV(cfg.ActionLogPath())
	readingCSV := logbook.NewReadingCSV(cfg.ReadingLogPath())
	for _, l := range []interface{ Init() error }{actionCSV, readingCSV} {
		if err := l.Init(); err != nil {
			log.Error().Err(err).Msg("log file init failed")
		}
	}

	s := &sinks{
		actions:  logbook.NewMultiActionSink(actionCSV),
		readings: logbook.NewMultiReadingSink(readingCSV),
		history:  actionCSV,
	}

	if cfg.Storage.SQLite {
		store, err := logbook.OpenSQLite(cfg.SQLitePath())
		if err != nil {
			log.Warn().Err(err).Msg("history database unavailable")
		} else {
			s.actions.Add(store)
			s.readings.Add(store)
			s.history = store
			s.closers = append(s.closers, store)
			log.Info().Str("path", store.Path()).Msg("history database opened")
		}
	}

	if cfg.InfluxDB.Enabled {
		w, err := logbook.ConnectInflux(logbook.InfluxConfig{
			URL:           cfg.InfluxDB.URL,
			Token:         cfg.InfluxDB.Token,
			Org:           cfg.InfluxDB.Org,
			Bucket:        cfg.InfluxDB.Bucket,
			BatchSize:     cfg.InfluxDB.BatchSize,
			FlushInterval: cfg.InfluxDB.FlushInterval,
		}, log)
		if err != nil {
			log.Warn().Err(err).Msg("influxdb unavailable")
		} else {
			s.actions.Add(w)
			s.readings.Add(w)
			s.closers = append(s.closers, w)
		}
	}

	return s
}

// Close closes the optional sinks in reverse order.
func (s *sinks) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}

// swapWriter lets the log destination move to the console once it exists.
type swapWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *swapWriter) Set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}
