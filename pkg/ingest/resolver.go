package ingest

import (
	"context"
	"fmt"
	"net"

	"github.com/peekapi-dev/telemetry-go/pkg/dnscache"
	"github.com/peekapi-dev/telemetry-go/pkg/metrics"
)

// resolvingDialer wraps the system resolver with a per-host TTL cache and a
// post-resolution private-address check. It is installed as the DialContext
// hook on the submitter's http.Transport so that every connection attempt —
// not just the first one — is re-validated against the private-address
// table, closing the DNS-rebinding window between construction-time
// validation and the actual TCP dial.
type resolvingDialer struct {
	resolver *net.Resolver
	cache    *dnscache.Cache
	dialer   *net.Dialer
}

func newResolvingDialer(dialer *net.Dialer) *resolvingDialer {
	return &resolvingDialer{
		resolver: net.DefaultResolver,
		cache:    dnscache.New(dnscache.DefaultTTL, 0),
		dialer:   dialer,
	}
}

// DialContext resolves host, rejects it if any resolved address is private,
// and dials the resolved addresses in order on the original port, returning
// the first connection that succeeds.
func (d *resolvingDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port := splitHostPort(addr)

	addrs, err := d.resolveHost(ctx, host)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, a := range addrs {
		conn, err := d.dialer.DialContext(ctx, network, net.JoinHostPort(a.IP.String(), port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("ingest: no addresses resolved for %s", host)
	}
	return nil, lastErr
}

func (d *resolvingDialer) resolveHost(ctx context.Context, host string) ([]net.IPAddr, error) {
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateAddr(ip) {
			metrics.Get().SSRFBlockedTotal.Inc()
			return nil, fmt.Errorf("ingest: refusing to dial private address %s", host)
		}
		return []net.IPAddr{{IP: ip}}, nil
	}

	if cached, ok := d.cache.Get(host); ok {
		return cached, nil
	}

	addrs, err := d.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("ingest: dns lookup failed for %s: %w", host, err)
	}

	for _, a := range addrs {
		if isPrivateAddr(a.IP) {
			metrics.Get().SSRFBlockedTotal.Inc()
			return nil, fmt.Errorf("ingest: refusing to dial private address %s (resolved from %s)", a.IP, host)
		}
	}

	d.cache.Set(host, addrs)
	return addrs, nil
}

// Close releases the dialer's DNS cache resources.
func (d *resolvingDialer) Close() {
	d.cache.Close()
}
