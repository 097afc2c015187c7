package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for the initial session.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxReconnectInterval caps paho's reconnect backoff after a lost session.
	maxReconnectInterval = 60 * time.Second

	clientIDPrefix = "home-controller"
)

// NewClientID returns a client ID with a short random suffix, so two
// controllers on a shared public broker do not kick each other off.
func NewClientID() string {
	return clientIDPrefix + "-" + uuid.New().String()[:8]
}

// buildClientOptions creates paho options from cfg.
//
// The initial connect does not retry: a failed first attempt must fall
// into mock mode deterministically. Once a session has been established,
// paho reconnects on its own.
func buildClientOptions(cfg PahoConfig) *paho.ClientOptions {
	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetMaxReconnectInterval(maxReconnectInterval).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetKeepAlive(cfg.KeepAlive)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	if cfg.StatusTopic != "" {
		// Published by the broker if we vanish without a clean disconnect.
		opts.SetWill(cfg.StatusTopic, buildStatusPayload(cfg.ClientID, "offline", "unexpected_disconnect"), 1, true)
	}

	return opts
}

// buildStatusPayload creates the JSON payload for the retained status topic.
func buildStatusPayload(clientID, state, reason string) string {
	ts := time.Now().UTC().Format(time.RFC3339)
	if reason == "" {
		return fmt.Sprintf(`{"status":%q,"client_id":%q,"timestamp":%q}`, state, clientID, ts)
	}
	return fmt.Sprintf(`{"status":%q,"client_id":%q,"reason":%q,"timestamp":%q}`, state, clientID, reason, ts)
}
