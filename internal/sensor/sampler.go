package sensor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/home-controller/internal/mqtt"
)

// ReadingSink persists readings (CSV file, database, time-series store).
type ReadingSink interface {
	AppendReading(r Reading) error
}

// Publisher sends a payload on a bus topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// SamplerConfig wires a Sampler. Sink and Publisher are optional.
type SamplerConfig struct {
	Sensor     Sensor
	WindowSize int
	Sink       ReadingSink
	Publisher  Publisher
	Topic      string
	Now        func() time.Time
	Logger     zerolog.Logger
}

// Sampler takes one reading per Tick. Ticks never overlap: a forced tick
// waits for a periodic one in progress and vice versa.
type Sampler struct {
	sensor Sensor
	window *Window
	sink   ReadingSink
	pub    Publisher
	topic  string
	now    func() time.Time
	log    zerolog.Logger

	tickMu sync.Mutex
}

// NewSampler creates a Sampler from cfg.
func NewSampler(cfg SamplerConfig) *Sampler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Sampler{
		sensor: cfg.Sensor,
		window: NewWindow(cfg.WindowSize),
		sink:   cfg.Sink,
		pub:    cfg.Publisher,
		topic:  cfg.Topic,
		now:    now,
		log:    cfg.Logger.With().Str("component", "sampler").Logger(),
	}
}

// Tick reads the sensor, appends the reading to the window and the sink,
// and publishes it. A sink or publish failure is logged and returned, but
// the reading is still kept in the window. Only a sensor failure drops the
// reading.
func (s *Sampler) Tick() (Reading, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	v, err := s.sensor.Read()
	if err != nil {
		s.log.Error().Err(err).Msg("sensor read failed")
		return Reading{}, fmt.Errorf("read sensor: %w", err)
	}

	r := Reading{Time: s.now().Truncate(time.Second), Value: v}
	s.window.Push(r)
	s.log.Debug().Str("at", r.Timestamp()).Float64("temperature", v).Msg("sensor reading")

	var sinkErr, pubErr error
	if s.sink != nil {
		if sinkErr = s.sink.AppendReading(r); sinkErr != nil {
			s.log.Error().Err(sinkErr).Msg("reading log append failed")
		}
	}
	if s.pub != nil {
		if pubErr = s.pub.Publish(s.topic, mqtt.FormatReading(v)); pubErr != nil {
			s.log.Warn().Err(pubErr).Str("topic", s.topic).Msg("reading publish failed")
		}
	}

	return r, errors.Join(sinkErr, pubErr)
}

// Latest returns the most recent reading, if any.
func (s *Sampler) Latest() (Reading, bool) {
	return s.window.Latest()
}

// History returns the bounded window, oldest first.
func (s *Sampler) History() []Reading {
	return s.window.Readings()
}

// LastUpdate returns the timestamp of the latest reading, or "N/A".
func (s *Sampler) LastUpdate() string {
	r, ok := s.window.Latest()
	if !ok {
		return "N/A"
	}
	return r.Timestamp()
}
