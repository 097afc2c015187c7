package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/home-controller/internal/status"
)

// BusConfig configures a Bus.
type BusConfig struct {
	// Endpoint is the broker "host:port" used for the reachability probe.
	Endpoint string
	// ProbeTimeout bounds the probe; zero uses DefaultProbeTimeout.
	ProbeTimeout time.Duration
	// Topics are the topic names; the control topic is subscribed on Start.
	Topics Topics
}

// Bus is the controller's view of the message bus. It decides mock mode
// up front with a probe, keeps the status.Monitor in step with the
// transport's connection lifecycle, and suppresses publishes in mock mode.
type Bus struct {
	transport Transport
	prober    Prober
	monitor   *status.Monitor
	cfg       BusConfig
	log       zerolog.Logger

	mu      sync.Mutex
	started bool
}

// NewBus creates a Bus. The monitor is shared with observers.
func NewBus(t Transport, p Prober, m *status.Monitor, cfg BusConfig, log zerolog.Logger) *Bus {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	return &Bus{
		transport: t,
		prober:    p,
		monitor:   m,
		cfg:       cfg,
		log:       log.With().Str("component", "bus").Logger(),
	}
}

// Start probes the broker, connects and subscribes handler to the control
// topic. Any failure puts the bus into mock mode and returns an error
// wrapping ErrConnection; the caller should log it and carry on.
func (b *Bus) Start(ctx context.Context, handler MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}

	b.transport.SetConnectionHandlers(b.handleConnect, b.handleLost)

	if !b.prober.Probe(ctx, b.cfg.Endpoint, b.cfg.ProbeTimeout) {
		b.monitor.MarkUnreachable()
		b.log.Warn().Str("endpoint", b.cfg.Endpoint).Msg("broker unreachable; using mock mode")
		return fmt.Errorf("%w: %s unreachable within %v", ErrConnection, b.cfg.Endpoint, b.cfg.ProbeTimeout)
	}

	if err := b.transport.Connect(ctx); err != nil {
		b.monitor.MarkUnreachable()
		b.log.Warn().Err(err).Str("endpoint", b.cfg.Endpoint).Msg("broker connect failed; using mock mode")
		if errors.Is(err, ErrConnection) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	if err := b.transport.Subscribe(b.cfg.Topics.Control, b.wrap(handler)); err != nil {
		b.monitor.MarkUnreachable()
		b.log.Warn().Err(err).Str("topic", b.cfg.Topics.Control).Msg("subscribe failed; using mock mode")
		return fmt.Errorf("%w: subscribe %s: %w", ErrConnection, b.cfg.Topics.Control, err)
	}

	b.monitor.MarkConnected()
	b.started = true
	b.log.Info().
		Str("endpoint", b.cfg.Endpoint).
		Str("topic", b.cfg.Topics.Control).
		Msg("connected to broker")
	return nil
}

// handleConnect runs on every (re)connect reported by the transport.
func (b *Bus) handleConnect() {
	b.monitor.MarkConnected()
	b.log.Info().Msg("broker session up")
}

// handleLost runs when an established session drops.
func (b *Bus) handleLost(err error) {
	b.monitor.MarkUnreachable()
	b.log.Warn().Err(err).Msg("broker connection lost; using mock mode")
}

// wrap adds panic recovery and logging so one bad message never stops
// the listener.
func (b *Bus) wrap(handler MessageHandler) MessageHandler {
	return func(topic string, payload []byte) (err error) {
		defer func() {
			if r := recover(); r != nil {
				b.log.Error().
					Str("topic", topic).
					Interface("panic", r).
					Msg("message handler panic recovered")
				err = nil
			}
		}()

		if herr := handler(topic, payload); herr != nil {
			ev := b.log.Error()
			if errors.Is(herr, ErrMalformedMessage) {
				ev = b.log.Warn()
			}
			ev.Err(herr).Str("topic", topic).Str("payload", string(payload)).Msg("inbound message dropped")
		}
		return nil
	}
}

// Publish sends payload on topic. In mock mode it is silently skipped.
func (b *Bus) Publish(topic string, payload []byte) error {
	if b.monitor.MockMode() {
		b.log.Debug().Str("topic", topic).Msg("mock mode: publish skipped")
		return nil
	}
	if err := b.transport.Publish(topic, payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Topics returns the configured topic names.
func (b *Bus) Topics() Topics {
	return b.cfg.Topics
}

// Close disconnects the transport.
func (b *Bus) Close() error {
	return b.transport.Close()
}
