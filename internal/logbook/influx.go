package logbook

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/sweeney/home-controller/internal/sensor"
)

const (
	influxConnectTimeout = 10 * time.Second

	// millisecondsPerSecond converts seconds to milliseconds for the InfluxDB API.
	millisecondsPerSecond = 1000

	measurementTemperature = "temperature"
	measurementAction      = "device_action"
)

// InfluxConfig configures the optional InfluxDB sink.
type InfluxConfig struct {
	URL           string
	Token         string
	Org           string
	Bucket        string
	BatchSize     int
	FlushInterval int // seconds
}

// InfluxWriter mirrors readings and actions into InfluxDB. Writes are
// non-blocking and batched; errors arrive asynchronously and are logged.
type InfluxWriter struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	log      zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// ConnectInflux creates a writer and verifies the server with a ping.
func ConnectInflux(cfg InfluxConfig, log zerolog.Logger) (*InfluxWriter, error) {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	// #nosec G115 -- values validated above to be positive
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), influxConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: influxdb ping: %w", ErrUnavailable, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: influxdb not healthy", ErrUnavailable)
	}

	w := &InfluxWriter{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		log:      log.With().Str("component", "influxdb").Logger(),
	}
	go w.handleWriteErrors(w.writeAPI.Errors())
	return w, nil
}

func (w *InfluxWriter) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		w.log.Error().Err(err).Msg("async write failed")
	}
}

// AppendReading queues a temperature point.
func (w *InfluxWriter) AppendReading(r sensor.Reading) error {
	if w.isClosed() {
		return fmt.Errorf("%w: influxdb writer closed", ErrPersistence)
	}
	w.writeAPI.WritePoint(write.NewPoint(
		measurementTemperature,
		map[string]string{"sensor": "ambient"},
		map[string]interface{}{"celsius": r.Value},
		r.Time,
	))
	return nil
}

// AppendAction queues a device state point (1 for ON, 0 for OFF).
func (w *InfluxWriter) AppendAction(e ActionEntry) error {
	if w.isClosed() {
		return fmt.Errorf("%w: influxdb writer closed", ErrPersistence)
	}
	value := 0
	if e.Action.On() {
		value = 1
	}
	w.writeAPI.WritePoint(write.NewPoint(
		measurementAction,
		map[string]string{"device_id": e.DeviceID, "origin": string(e.Origin)},
		map[string]interface{}{"state": value},
		e.Time,
	))
	return nil
}

// Flush sends all buffered points.
func (w *InfluxWriter) Flush() {
	if w.isClosed() {
		return
	}
	w.writeAPI.Flush()
}

// Close flushes pending writes and closes the client.
func (w *InfluxWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.writeAPI.Flush()
	w.client.Close()
	return nil
}

func (w *InfluxWriter) isClosed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.closed
}
