// Package mqtt provides the publish/subscribe bus with abstraction for testing.
//
// A Bus wraps a Transport (the paho client in production, FakeTransport in
// tests) with a reachability probe and mock-mode handling: when the broker
// cannot be reached the Bus records that in a status.Monitor and silently
// skips every publish until a session is (re)established.
package mqtt

import (
	"context"
	"time"
)

// Default topic names.
const (
	DefaultTopicPrefix = "smart_home"

	topicControl = "control"
	topicSensor  = "sensor"
	topicStatus  = "status"
)

// Topics holds the topic names the controller uses.
type Topics struct {
	// Control carries "<deviceId>:<ON|OFF>" commands in both directions.
	Control string
	// Sensor carries "Temperature:<value>" readings.
	Sensor string
	// Status carries the retained online/offline marker.
	Status string
}

// NewTopics derives topic names from a prefix, e.g. "smart_home/control".
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Control: prefix + "/" + topicControl,
		Sensor:  prefix + "/" + topicSensor,
		Status:  prefix + "/" + topicStatus,
	}
}

// MessageHandler is the callback for inbound messages. It runs on the
// transport's delivery goroutine, never on the caller of Publish.
// A returned error is logged; it never stops delivery.
type MessageHandler func(topic string, payload []byte) error

// Transport is a broker session.
type Transport interface {
	// Connect establishes the session. It must not retry indefinitely.
	Connect(ctx context.Context) error

	// Subscribe registers handler for topic. Subscriptions survive reconnects.
	Subscribe(topic string, handler MessageHandler) error

	// Publish sends payload on topic.
	Publish(topic string, payload []byte) error

	// SetConnectionHandlers registers lifecycle callbacks. onConnect runs on
	// every (re)connect, onLost when an established session drops.
	SetConnectionHandlers(onConnect func(), onLost func(error))

	// IsConnected reports whether the session is up.
	IsConnected() bool

	// Close disconnects from the broker.
	Close() error
}

// Prober performs a lightweight reachability check before a full session
// is attempted.
type Prober interface {
	Probe(ctx context.Context, endpoint string, timeout time.Duration) bool
}
