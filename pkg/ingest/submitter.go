package ingest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http2"

	"github.com/peekapi-dev/telemetry-go/pkg/apperror"
)

const (
	maxErrorBodyBytes  = 1024
	submitterKeepAlive = 30 * time.Second
)

// retryableStatusCodes are the remote status codes the flush engine should
// retry rather than give up on immediately.
var retryableStatusCodes = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// submitter performs the single HTTPS POST per flush attempt. It owns the
// transport's connection pool for the lifetime of the client.
type submitter struct {
	endpoint   *url.URL
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	dialer     *resolvingDialer
}

func newSubmitter(endpoint *url.URL, apiKey string, timeout time.Duration, tlsConfig *tls.Config) *submitter {
	dialer := newResolvingDialer(&net.Dialer{Timeout: 10 * time.Second, KeepAlive: submitterKeepAlive})

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig:     tlsConfig,
	}

	if !isLocalhostEndpoint(endpoint) {
		transport.DialContext = dialer.DialContext
	}

	// Configure HTTP/2 explicitly rather than relying on the implicit
	// upgrade so the connection pool behaves predictably under the
	// MaxIdleConnsPerHost cap above.
	_ = http2.ConfigureTransport(transport)

	return &submitter{
		endpoint:   endpoint,
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: &http.Client{Transport: transport},
		dialer:     dialer,
	}
}

// Submit POSTs batch to the endpoint under a total deadline derived from ctx
// and s.timeout. The deadline covers DNS, connect, TLS, upload, and
// response wait uniformly, since it cancels the whole round trip rather
// than just an idle-read timeout.
func (s *submitter) Submit(ctx context.Context, batch []RequestEvent) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeTransport, "failed to encode batch").WithRetryable(false)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return apperror.Wrap(err, apperror.CodeTransport, "failed to build request").WithRetryable(false)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Length", fmt.Sprintf("%d", len(body)))
	req.Header.Set("x-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeTransport, err.Error()).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	limited := io.LimitReader(resp.Body, maxErrorBodyBytes)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		respBody = nil
	}

	msg := fmt.Sprintf("remote returned status %d: %s", resp.StatusCode, string(respBody))
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		msg = fmt.Sprintf("%s (retry-after: %s)", msg, ra)
	}

	return apperror.New(apperror.CodeRemote, msg).
		WithStatusCode(resp.StatusCode).
		WithRetryable(retryableStatusCodes[resp.StatusCode])
}

// Close releases pooled connections and the resolver's DNS cache.
func (s *submitter) Close() {
	s.httpClient.CloseIdleConnections()
	s.dialer.Close()
}
