package ingest

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvingDialer_RejectsPrivateIPLiteral(t *testing.T) {
	d := newResolvingDialer(&net.Dialer{})
	defer d.Close()

	_, err := d.resolveHost(context.Background(), "10.0.0.5")
	assert.Error(t, err)
}

func TestResolvingDialer_AllowsPublicIPLiteral(t *testing.T) {
	d := newResolvingDialer(&net.Dialer{})
	defer d.Close()

	addrs, err := d.resolveHost(context.Background(), "1.1.1.1")
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, "1.1.1.1", addrs[0].IP.String())
}

func TestResolvingDialer_IPLiteralBypassesCache(t *testing.T) {
	d := newResolvingDialer(&net.Dialer{})
	defer d.Close()

	_, _ = d.resolveHost(context.Background(), "8.8.8.8")
	cached, ok := d.cache.Get("8.8.8.8")
	assert.False(t, ok, "IP literals bypass the cache entirely")
	_ = cached
}

func TestResolvingDialer_DialContext_UnreachableAddressFails(t *testing.T) {
	d := newResolvingDialer(&net.Dialer{})
	defer d.Close()

	_, err := d.DialContext(context.Background(), "tcp", "192.0.2.1:443")
	assert.Error(t, err, "TEST-NET-1 address has no route and should fail to dial")
}
