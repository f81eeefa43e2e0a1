// Package netprobe reports whether a data connection is available.
package netprobe

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

// DefaultAddress is dialled when no address is configured.
const DefaultAddress = "1.1.1.1:53"

var (
	_ domain.ConnectivityProbe = (*TCPProbe)(nil)
	_ domain.ConnectivityProbe = (*Static)(nil)
)

// Option configures a TCPProbe.
type Option func(*TCPProbe)

// WithTimeout sets the dial timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *TCPProbe) { p.timeout = d }
}

// WithTTL sets how long a result is reused before dialling again.
func WithTTL(d time.Duration) Option {
	return func(p *TCPProbe) { p.ttl = d }
}

// TCPProbe considers the network up when a TCP connection to address
// succeeds within the timeout.
type TCPProbe struct {
	address string
	timeout time.Duration
	ttl     time.Duration
	dial    func(ctx context.Context, network, address string) (net.Conn, error)
	log     *logger.Logger

	mu      sync.Mutex
	checked time.Time
	online  bool
}

// NewTCPProbe creates a probe for address ("host:port").
func NewTCPProbe(address string, log *logger.Logger, opts ...Option) *TCPProbe {
	if address == "" {
		address = DefaultAddress
	}
	p := &TCPProbe{
		address: address,
		timeout: 300 * time.Millisecond,
		ttl:     5 * time.Second,
		log:     log,
	}
	p.dial = (&net.Dialer{}).DialContext
	for _, o := range opts {
		o(p)
	}
	return p
}

// Online dials the configured address, reusing a recent result.
func (p *TCPProbe) Online(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.checked.IsZero() && time.Since(p.checked) < p.ttl {
		return p.online
	}

	dctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	conn, err := p.dial(dctx, "tcp", p.address)
	if err == nil {
		conn.Close()
	}

	online := err == nil
	if online != p.online || p.checked.IsZero() {
		p.log.Debug("netprobe: %s online=%v (err=%v)", p.address, online, err)
	}
	p.online = online
	p.checked = time.Now()
	return online
}

// Static is a fixed probe, used for --offline and in tests.
type Static struct {
	mu     sync.Mutex
	online bool
}

// NewStatic creates a probe reporting the given state.
func NewStatic(online bool) *Static {
	return &Static{online: online}
}

// Online returns the fixed state.
func (s *Static) Online(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Set changes the reported state.
func (s *Static) Set(online bool) {
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()
}
