// Package netcheck answers "is the network reachable" with a TCP probe.
package netcheck

import (
	"context"
	"net"
	"time"
)

const (
	// DefaultAddr is probed when no address is configured.
	DefaultAddr = "clients3.google.com:80"

	// DefaultTimeout bounds a single probe.
	DefaultTimeout = 3 * time.Second
)

// Prober implements location.Connectivity by dialing a well-known address.
type Prober struct {
	addr    string
	timeout time.Duration
}

// New creates a prober for addr ("host:port").
func New(addr string, timeout time.Duration) *Prober {
	if addr == "" {
		addr = DefaultAddr
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{addr: addr, timeout: timeout}
}

// IsConnected reports whether addr accepted a connection. A refused or timed
// out dial means offline, not an error; only cancellation of ctx is returned.
func (p *Prober) IsConnected(ctx context.Context) (bool, error) {
	d := net.Dialer{Timeout: p.timeout}
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	_ = conn.Close()
	return true, nil
}
