package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// PahoConfig configures a PahoTransport.
type PahoConfig struct {
	BrokerURL      string // e.g. "tcp://broker.hivemq.com:1883"
	ClientID       string // empty generates one with NewClientID
	Username       string
	Password       string
	QoS            byte
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	StatusTopic    string // retained online/offline marker; empty disables
	Logger         zerolog.Logger
}

// PahoTransport is a Transport backed by an actual MQTT broker.
//
// Inbound messages are delivered on paho's single router goroutine in
// arrival order. Handlers must not block and must not publish synchronously.
type PahoTransport struct {
	client paho.Client
	cfg    PahoConfig
	log    zerolog.Logger

	// subs tracks subscriptions for restoration after reconnect.
	subs  map[string]MessageHandler
	subMu sync.RWMutex

	onConnect func()
	onLost    func(error)
	cbMu      sync.RWMutex
}

// NewPahoTransport creates an unconnected transport.
func NewPahoTransport(cfg PahoConfig) *PahoTransport {
	if cfg.ClientID == "" {
		cfg.ClientID = NewClientID()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = defaultKeepAlive
	}

	t := &PahoTransport{
		cfg:  cfg,
		log:  cfg.Logger.With().Str("component", "paho").Str("client_id", cfg.ClientID).Logger(),
		subs: make(map[string]MessageHandler),
	}

	opts := buildClientOptions(cfg)
	opts.SetOnConnectHandler(func(_ paho.Client) {
		t.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		t.handleLost(err)
	})
	t.client = paho.NewClient(opts)
	return t
}

// ClientID returns the MQTT client identifier.
func (t *PahoTransport) ClientID() string {
	return t.cfg.ClientID
}

// Connect establishes the session, giving up after the connect timeout or
// when ctx is done.
func (t *PahoTransport) Connect(ctx context.Context) error {
	token := t.client.Connect()

	timer := time.NewTimer(t.cfg.ConnectTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		t.client.Disconnect(0)
		return fmt.Errorf("%w: %w", ErrConnection, ctx.Err())
	case <-timer.C:
		t.client.Disconnect(0)
		return fmt.Errorf("%w: %w after %v", ErrConnection, ErrTimeout, t.cfg.ConnectTimeout)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return nil
}

// handleConnect is called by paho on every successful (re)connect.
func (t *PahoTransport) handleConnect() {
	t.restoreSubscriptions()

	if t.cfg.StatusTopic != "" {
		t.client.Publish(t.cfg.StatusTopic, 1, true, buildStatusPayload(t.cfg.ClientID, "online", ""))
	}

	t.cbMu.RLock()
	cb := t.onConnect
	t.cbMu.RUnlock()
	if cb != nil {
		cb()
	}
}

// handleLost is called by paho when an established session drops.
func (t *PahoTransport) handleLost(err error) {
	t.cbMu.RLock()
	cb := t.onLost
	t.cbMu.RUnlock()
	if cb != nil {
		cb(err)
	}
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
// The session is clean, so the broker has forgotten them.
func (t *PahoTransport) restoreSubscriptions() {
	t.subMu.RLock()
	defer t.subMu.RUnlock()

	for topic, handler := range t.subs {
		// Do not wait on the token here: this runs on paho's connect path.
		t.client.Subscribe(topic, t.cfg.QoS, t.deliver(handler))
	}
}

// SetConnectionHandlers registers lifecycle callbacks.
func (t *PahoTransport) SetConnectionHandlers(onConnect func(), onLost func(error)) {
	t.cbMu.Lock()
	t.onConnect = onConnect
	t.onLost = onLost
	t.cbMu.Unlock()
}

// Subscribe registers handler for topic and tracks it for reconnects.
func (t *PahoTransport) Subscribe(topic string, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !t.client.IsConnected() {
		return ErrNotConnected
	}

	t.subMu.Lock()
	t.subs[topic] = handler
	t.subMu.Unlock()

	token := t.client.Subscribe(topic, t.cfg.QoS, t.deliver(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		t.forget(topic)
		return fmt.Errorf("subscribe %s: %w", topic, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		t.forget(topic)
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func (t *PahoTransport) forget(topic string) {
	t.subMu.Lock()
	delete(t.subs, topic)
	t.subMu.Unlock()
}

func (t *PahoTransport) deliver(handler MessageHandler) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			t.log.Warn().Err(err).Str("topic", msg.Topic()).Msg("handler returned error")
		}
	}
}

// Publish sends payload at the configured QoS, not retained.
func (t *PahoTransport) Publish(topic string, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !t.client.IsConnected() {
		return ErrNotConnected
	}

	token := t.client.Publish(topic, t.cfg.QoS, false, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("publish: %w", ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// IsConnected reports whether the session is up.
func (t *PahoTransport) IsConnected() bool {
	return t.client.IsConnected()
}

// Close publishes the graceful offline marker and disconnects.
func (t *PahoTransport) Close() error {
	if t.client.IsConnected() && t.cfg.StatusTopic != "" {
		token := t.client.Publish(t.cfg.StatusTopic, 1, true, buildStatusPayload(t.cfg.ClientID, "offline", "graceful_shutdown"))
		token.WaitTimeout(defaultPublishTimeout)
	}
	t.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}
