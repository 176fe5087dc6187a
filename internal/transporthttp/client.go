// Package transporthttp provides the shared, tuned HTTP client and a
// generic retry-with-backoff executor used by the upload dispatcher.
package transporthttp

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"os"

	"golang.org/x/net/http2"
	"golang.org/x/net/http/httpproxy"

	"github.com/rescale-labs/wa-media-core/internal/config"
	"github.com/rescale-labs/wa-media-core/internal/constants"
)

// NewClient builds an *http.Client tuned for media upload/download: large
// connection pool, HTTP/2 forced, generous timeouts for big objects, and
// system-proxy awareness. Authenticated proxy modes are not supported.
func NewClient(cfg *config.Config) *http.Client {
	dialer := &net.Dialer{
		Timeout:   constants.HTTPDialTimeout,
		KeepAlive: constants.HTTPDialKeepAlive,
	}

	tr := &http.Transport{
		Proxy:                 proxyFromConfig(cfg),
		DialContext:           dialer.DialContext,
		MaxIdleConns:          constants.HTTPMaxIdleConns,
		MaxIdleConnsPerHost:   constants.HTTPMaxIdleConnsPerHost,
		MaxConnsPerHost:       constants.HTTPMaxConnsPerHost,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
	}

	_ = http2.ConfigureTransport(tr)

	if os.Getenv("DISABLE_HTTP2") == "true" {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) http.RoundTripper)
	}

	return &http.Client{
		Transport: tr,
		Timeout:   0,
	}
}

// proxyFromConfig returns a Proxy func honoring cfg.ProxyMode: "no-proxy"
// disables proxying entirely, anything else (including the default
// "system") defers to the process environment (HTTP_PROXY/HTTPS_PROXY/
// NO_PROXY), matching httpproxy.FromEnvironment's bypass-list semantics.
func proxyFromConfig(cfg *config.Config) func(*http.Request) (*url.URL, error) {
	if cfg != nil && cfg.ProxyMode == "no-proxy" {
		return nil
	}

	cfgEnv := httpproxy.FromEnvironment()
	return func(req *http.Request) (*url.URL, error) {
		return cfgEnv.ProxyFunc()(req.URL)
	}
}
