package mqtt

import (
	"context"
	"sync"
	"time"
)

// Message is a published message recorded by FakeTransport.
type Message struct {
	Topic   string
	Payload []byte
}

// FakeTransport is an in-memory Transport for tests. Deliver, DropConnection
// and Reconnect simulate broker-side events.
type FakeTransport struct {
	mu sync.Mutex

	// ConnectError, if set, is returned by Connect.
	ConnectError error

	// SubscribeError, if set, is returned by Subscribe.
	SubscribeError error

	// PublishError, if set, is returned by Publish.
	PublishError error

	published []Message
	handlers  map[string]MessageHandler
	connected bool
	closed    bool
	connects  int

	onConnect func()
	onLost    func(error)
}

// NewFakeTransport creates a disconnected FakeTransport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{handlers: make(map[string]MessageHandler)}
}

// Connect marks the transport connected and fires onConnect.
func (f *FakeTransport) Connect(_ context.Context) error {
	f.mu.Lock()
	if f.ConnectError != nil {
		err := f.ConnectError
		f.mu.Unlock()
		return err
	}
	f.connected = true
	f.connects++
	cb := f.onConnect
	f.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// Subscribe records handler for topic.
func (f *FakeTransport) Subscribe(topic string, handler MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	if topic == "" {
		return ErrInvalidTopic
	}
	f.handlers[topic] = handler
	return nil
}

// Publish records the message.
func (f *FakeTransport) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	if !f.connected {
		return ErrNotConnected
	}
	f.published = append(f.published, Message{Topic: topic, Payload: append([]byte(nil), payload...)})
	return nil
}

// SetConnectionHandlers records the lifecycle callbacks.
func (f *FakeTransport) SetConnectionHandlers(onConnect func(), onLost func(error)) {
	f.mu.Lock()
	f.onConnect = onConnect
	f.onLost = onLost
	f.mu.Unlock()
}

// IsConnected reports the simulated session state.
func (f *FakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Close marks the transport closed.
func (f *FakeTransport) Close() error {
	f.mu.Lock()
	f.connected = false
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Deliver simulates an inbound message. It returns false if nothing is
// subscribed to topic.
func (f *FakeTransport) Deliver(topic string, payload []byte) bool {
	f.mu.Lock()
	h, ok := f.handlers[topic]
	f.mu.Unlock()
	if !ok {
		return false
	}
	_ = h(topic, payload)
	return true
}

// DropConnection simulates the broker going away.
func (f *FakeTransport) DropConnection(err error) {
	f.mu.Lock()
	f.connected = false
	cb := f.onLost
	f.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// Reconnect simulates an automatic reconnect.
func (f *FakeTransport) Reconnect() {
	f.mu.Lock()
	f.connected = true
	f.connects++
	cb := f.onConnect
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Published returns a copy of all recorded messages.
func (f *FakeTransport) Published() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.published))
	copy(out, f.published)
	return out
}

// PublishedOn returns the payloads recorded for topic as strings.
func (f *FakeTransport) PublishedOn(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.published {
		if m.Topic == topic {
			out = append(out, string(m.Payload))
		}
	}
	return out
}

// Subscribed reports whether a handler is registered for topic.
func (f *FakeTransport) Subscribed(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[topic]
	return ok
}

// Closed reports whether Close was called.
func (f *FakeTransport) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset clears recorded messages.
func (f *FakeTransport) Reset() {
	f.mu.Lock()
	f.published = nil
	f.mu.Unlock()
}

// FakeProber returns a fixed reachability answer and records calls.
type FakeProber struct {
	mu sync.Mutex

	Reachable    bool
	Calls        int
	LastEndpoint string
	LastTimeout  time.Duration
}

// Probe records the call and returns Reachable.
func (p *FakeProber) Probe(_ context.Context, endpoint string, timeout time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls++
	p.LastEndpoint = endpoint
	p.LastTimeout = timeout
	return p.Reachable
}
