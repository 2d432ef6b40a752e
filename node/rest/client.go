// Package rest implements node.Client against a node's REST API.
//
// Example:
//
//	c, err := rest.New("https://fullnode.mainnet.aptoslabs.com/v1", rest.WithTimeout(10*time.Second))
//	if err != nil {
//	    return err
//	}
//	l, err := loader.New(c, reg)
package rest

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/gostdlib/base/context"
	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/net/http2"

	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/internal/conversions"
	"github.com/bearlytools/chainstate/node"
	"github.com/bearlytools/chainstate/value"
)

// Client reads resources and table items over HTTP. It is safe for concurrent use.
type Client struct {
	base       string
	httpClient *http.Client
	config     *config
}

var _ node.Client = (*Client)(nil)

// New creates a Client for the node at rawURL. A URL without the "/v1" API prefix gets it added.
func New(rawURL string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q, use http or https", parsedURL.Scheme)
	}
	parsedURL.Path = strings.TrimSuffix(parsedURL.Path, "/")
	if !strings.HasSuffix(parsedURL.Path, "/v1") {
		parsedURL.Path += "/v1"
	}
	parsedURL.RawQuery, parsedURL.Fragment = "", ""

	httpClient := cfg.httpClient
	if httpClient == nil {
		rt, err := cfg.transport(parsedURL.Scheme)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Transport: rt}
	}

	return &Client{
		base:       parsedURL.String(),
		httpClient: httpClient,
		config:     cfg,
	}, nil
}

func (c *config) transport(scheme string) (http.RoundTripper, error) {
	var rt http.RoundTripper

	switch {
	case scheme == "http" && c.h2c:
		// HTTP/2 cleartext: dial without TLS.
		rt = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
			DisableCompression: true,
		}
	default:
		tlsConfig := c.tlsConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		}
		t := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     tlsConfig,
			DisableCompression:  true,
			MaxIdleConnsPerHost: 32,
			IdleConnTimeout:     90 * time.Second,
		}
		if scheme == "https" {
			if err := http2.ConfigureTransport(t); err != nil {
				return nil, fmt.Errorf("configuring http2: %w", err)
			}
		}
		rt = t
	}

	if c.gzip {
		rt = gzhttp.Transport(rt)
	}
	return rt, nil
}

// apiError is the body the node sends with a non 2xx status.
type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// Resource implements node.Client.Resource.
func (c *Client) Resource(ctx context.Context, addr value.Address, resourceType string) (jsontext.Value, error) {
	u := c.base + "/accounts/" + addr.Long() + "/resource/" + url.PathEscape(resourceType) + c.query()

	body, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("resource %s at %s: %w", resourceType, addr, err)
	}

	var resp struct {
		Type string         `json:"type"`
		Data jsontext.Value `json:"data"`
	}
	if err := jsonv2.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("resource %s at %s: bad response body: %w", resourceType, addr, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("resource %s at %s: response has no data", resourceType, addr)
	}
	return resp.Data, nil
}

// TableItem implements node.Client.TableItem.
func (c *Client) TableItem(ctx context.Context, handle value.Address, keyType, valueType string, key jsontext.Value) (jsontext.Value, error) {
	u := c.base + "/tables/" + handle.Long() + "/item" + c.query()

	req := struct {
		KeyType   string         `json:"key_type"`
		ValueType string         `json:"value_type"`
		Key       jsontext.Value `json:"key"`
	}{keyType, valueType, key}
	b, err := jsonv2.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("table %s: encoding request: %w", handle, err)
	}

	body, err := c.do(ctx, http.MethodPost, u, b)
	if err != nil {
		return nil, fmt.Errorf("table %s item %s: %w", handle, key, err)
	}
	return jsontext.Value(body), nil
}

func (c *Client) query() string {
	if !c.config.pinned {
		return ""
	}
	return "?ledger_version=" + strconv.FormatUint(c.config.ledgerVersion, 10)
}

// do sends a request and returns the body of a 200 response. 404 maps to node.ErrNotFound,
// 429 and 5xx and network failures to errors.ErrNodeUnavailable.
func (c *Client) do(ctx context.Context, method, u string, reqBody []byte) ([]byte, error) {
	if c.config.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.timeout)
		defer cancel()
	}

	var r io.Reader
	if reqBody != nil {
		r = bytes.NewReader(reqBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.config.headers {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrNodeUnavailable, ctxErr)
		}
		return nil, fmt.Errorf("%w: %w", errors.ErrNodeUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(c.config.maxBody)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", errors.ErrNodeUnavailable, err)
	}
	if len(body) > c.config.maxBody {
		return nil, fmt.Errorf("response body larger than %d bytes", c.config.maxBody)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", describe(body), node.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, fmt.Errorf("status %d: %s: %w", resp.StatusCode, describe(body), errors.ErrNodeUnavailable)
	}
	return nil, fmt.Errorf("status %d: %s", resp.StatusCode, describe(body))
}

// describe renders an error body for messages.
func describe(body []byte) string {
	var e apiError
	if err := jsonv2.Unmarshal(body, &e); err == nil && (e.Message != "" || e.ErrorCode != "") {
		if e.ErrorCode == "" {
			return e.Message
		}
		return e.ErrorCode + ": " + e.Message
	}
	const limit = 256
	if len(body) > limit {
		body = body[:limit]
	}
	return strings.TrimSpace(conversions.ByteSlice2String(body))
}
