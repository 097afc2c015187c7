package mqtt

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestTCPProberReachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	if !(TCPProber{}).Probe(context.Background(), ln.Addr().String(), time.Second) {
		t.Error("expected listener to be reachable")
	}
}

func TestTCPProberUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if (TCPProber{}).Probe(context.Background(), addr, time.Second) {
		t.Error("expected closed port to be unreachable")
	}
}

func TestTCPProberCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if (TCPProber{}).Probe(ctx, "127.0.0.1:1", time.Second) {
		t.Error("expected cancelled probe to fail")
	}
}
