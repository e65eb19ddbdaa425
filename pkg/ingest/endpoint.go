package ingest

import (
	"net"
	"net/url"
	"strings"

	"github.com/peekapi-dev/telemetry-go/pkg/apperror"
	"github.com/peekapi-dev/telemetry-go/pkg/logger"
)

// isLocalhostHost reports whether host (already stripped of brackets and
// port) is the narrow localhost exception the validator allows over plain
// HTTP: exactly "localhost" or "127.0.0.1". Note that "[::1]" is bracket-
// stripped to "::1", which does NOT match either literal and is therefore
// correctly rejected.
func isLocalhostHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1"
}

func stripBrackets(host string) string {
	return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
}

// validateEndpoint parses rawEndpoint, enforces the HTTPS/localhost and
// private-address rules, and returns the parsed URL with any embedded
// userinfo stripped. debug, when true, logs the credential-stripping step.
func validateEndpoint(rawEndpoint string, debug bool) (*url.URL, error) {
	u, err := url.Parse(rawEndpoint)
	if err != nil || u.Host == "" {
		return nil, apperror.Wrap(err, apperror.CodeConfiguration, "endpoint is not a valid url").
			WithField("endpoint")
	}

	host := stripBrackets(u.Hostname())

	if u.Scheme != "https" {
		if !isLocalhostHost(host) {
			return nil, apperror.New(apperror.CodeConfiguration,
				"endpoint must use https unless host is localhost or 127.0.0.1").
				WithField("endpoint")
		}
	} else if !isLocalhostHost(host) {
		if isPrivateHost(host) {
			return nil, apperror.New(apperror.CodeConfiguration,
				"endpoint resolves to a private address").
				WithField("endpoint")
		}
	}

	if u.User != nil {
		u.User = nil
		if debug {
			logger.Debug("ingest: stripped embedded credentials from endpoint")
		}
	}

	return u, nil
}

// validateAPIKey rejects empty keys and keys containing CR, LF, or NUL,
// which would otherwise corrupt the x-api-key request header.
func validateAPIKey(apiKey string) error {
	if apiKey == "" {
		return apperror.ErrMissingAPIKey
	}
	if strings.ContainsAny(apiKey, "\r\n\x00") {
		return apperror.ErrInvalidAPIKey
	}
	return nil
}

// endpointHost returns the bracket-stripped hostname of u, used by the
// resolving dialer to decide whether to skip resolution for the localhost
// exception.
func endpointHost(u *url.URL) string {
	return stripBrackets(u.Hostname())
}

// isLocalhostEndpoint reports whether u is the localhost exception.
func isLocalhostEndpoint(u *url.URL) bool {
	return isLocalhostHost(endpointHost(u))
}

// splitHostPort is a small wrapper the resolver uses around net.SplitHostPort
// that tolerates a bare host with no port (net/http callers of DialContext
// always provide one, but tests sometimes don't).
func splitHostPort(hostport string) (host, port string) {
	h, p, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, ""
	}
	return h, p
}
