package rest

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/gostdlib/base/values/sizes"
)

// config holds configuration for the REST client.
type config struct {
	// TLS configuration for HTTPS connections.
	tlsConfig *tls.Config

	// HTTP client for making requests. Replaces the transport this package builds.
	httpClient *http.Client

	// Custom headers to include in requests, such as an API key.
	headers http.Header

	// timeout bounds a single request.
	timeout time.Duration

	// maxBody is the largest response body read.
	maxBody int

	// gzip requests compressed responses.
	gzip bool

	// h2c speaks HTTP/2 without TLS to http:// nodes.
	h2c bool

	// ledgerVersion pins reads to a ledger version when set.
	ledgerVersion uint64
	pinned        bool
}

func defaultConfig() *config {
	return &config{
		headers: make(http.Header),
		timeout: 30 * time.Second,
		maxBody: 64 * sizes.MiB,
		gzip:    true,
	}
}

// Option configures a Client.
type Option func(*config)

// WithTLSConfig sets the TLS configuration for HTTPS connections.
// If not set, the default TLS configuration is used for HTTPS URLs.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *config) {
		c.tlsConfig = cfg
	}
}

// WithHTTPClient sets a custom HTTP client for making requests.
// The TLS, gzip and h2c options are ignored when this is set.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *config) {
		c.headers.Set(key, value)
	}
}

// WithTimeout sets the timeout of a single request. Default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithMaxBodySize sets the largest response body the client reads. Default is 64 MiB.
func WithMaxBodySize(n int) Option {
	return func(c *config) {
		c.maxBody = n
	}
}

// WithGzip sets if responses are requested gzip compressed. Default is true.
func WithGzip(enabled bool) Option {
	return func(c *config) {
		c.gzip = enabled
	}
}

// WithH2C makes http:// URLs use HTTP/2 cleartext instead of HTTP/1.1.
func WithH2C() Option {
	return func(c *config) {
		c.h2c = true
	}
}

// WithLedgerVersion pins every read to version, so a set of reads sees one consistent state.
func WithLedgerVersion(version uint64) Option {
	return func(c *config) {
		c.ledgerVersion = version
		c.pinned = true
	}
}
