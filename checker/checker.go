// Package checker performs the external proof-of-control probes for domain
// verification. It is purely observational: probes read from the network and
// report results, and all state mutation happens in the coordinator.
package checker

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Default bound on each individual network probe.
const defaultTimeout = 5 * time.Second

// Request identifies one proof to look for: the domain under test, the
// well-known file name for the HTTP channel, and the token value expected
// through any channel.
type Request struct {
	Domain       string
	ResourceName string
	Token        string
}

// Checker probes a domain for its verification token over an ordered list of
// channels: the HTTP proof file first, then DNS TXT, then DNS CNAME. The
// zero value is usable.
type Checker struct {
	// Timeout bounds each individual probe. Defaults to 5 seconds.
	Timeout time.Duration

	// Overrides for tests. When nil, real network lookups are used.
	client      *http.Client
	lookupTXT   func(ctx context.Context, host string) ([]string, error)
	lookupCNAME func(ctx context.Context, host string) (string, error)
}

type probeFunc func(ctx context.Context, req Request) ProbeResult

// Channels in priority order. The HTTP file channel is primary; the DNS
// channels cover tenants who can't serve files from the apex domain.
func (c *Checker) probes() []probeFunc {
	return []probeFunc{c.checkHTTPFile, c.checkDNSTXT, c.checkDNSCNAME}
}

// Verify reports whether the domain currently presents the expected token on
// any supported channel. Channels are tried in order until one gives a
// definitive answer. When every channel comes back inconclusive, the primary
// channel's result is returned so the failure reason talks about the proof
// file the tenant was instructed to deploy.
func (c *Checker) Verify(ctx context.Context, req Request) ProbeResult {
	var primary ProbeResult
	for i, probe := range c.probes() {
		result := probe(ctx, req)
		if result.Match || result.Definitive {
			return result
		}
		if i == 0 {
			primary = result
		}
	}
	return primary
}

func (c *Checker) timeout() time.Duration {
	if c.Timeout != 0 {
		return c.Timeout
	}
	return defaultTimeout
}

func (c *Checker) txtLookup() func(ctx context.Context, host string) ([]string, error) {
	if c.lookupTXT != nil {
		return c.lookupTXT
	}
	var r net.Resolver
	return r.LookupTXT
}

func (c *Checker) cnameLookup() func(ctx context.Context, host string) (string, error) {
	if c.lookupCNAME != nil {
		return c.lookupCNAME
	}
	var r net.Resolver
	return r.LookupCNAME
}
