package mqtt

import (
	"context"
	"net"
	"time"
)

// DefaultProbeTimeout bounds the reachability check.
const DefaultProbeTimeout = 5 * time.Second

// TCPProber checks reachability by opening and closing a TCP connection.
type TCPProber struct{}

// Probe reports whether endpoint ("host:port") accepts a TCP connection
// within timeout.
func (TCPProber) Probe(ctx context.Context, endpoint string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
