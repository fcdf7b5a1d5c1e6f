package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/muurk/wanctl/internal/logging"
	"github.com/muurk/wanctl/internal/metrics"
)

const (
	// DefaultBaseURL is the router's LAN address
	DefaultBaseURL = "http://192.168.0.1/"

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// maxBodySize caps how much of a router response is read
	maxBodySize = 1 << 20
)

// Operation names used in logs, metrics and RouterError.Op
const (
	OpLogin     = "login"
	OpWANStatus = "wan_status"
	OpChangeWAN = "change_wan_status"
)

// Client talks to the router's JSON API. Every call is a single POST and the
// client keeps no session state: each sequence starts with Login and the
// returned token is passed explicitly.
type Client struct {
	// BaseURL is the router's base URL (e.g., "http://192.168.0.1/")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Metrics receives per-call counters; nil disables recording
	Metrics *metrics.Registry
}

// NewClient creates a router client for baseURL. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		Metrics:    metrics.Get(),
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// Login authenticates with the admin password and returns a fresh session
// token (stok).
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	req := loginRequest{
		Method: "do",
		Login:  loginParams{Password: password},
	}

	var resp loginResponse
	if err := c.post(ctx, OpLogin, c.BaseURL, req, &resp); err != nil {
		return "", err
	}
	return *resp.Stok, nil
}

// WANIP returns the router's current WAN IPv4 address.
func (c *Client) WANIP(ctx context.Context, stok string) (string, error) {
	target, err := c.AuthURL(stok)
	if err != nil {
		return "", c.failed(newTransportError(OpWANStatus, err))
	}

	req := wanStatusRequest{
		Method:  "get",
		Network: wanStatusNetwork{Name: []string{"wan_status"}},
	}

	var resp wanStatusResponse
	if err := c.post(ctx, OpWANStatus, target, req, &resp); err != nil {
		return "", err
	}
	return *resp.Network.WANStatus.IPAddr, nil
}

// SetWANState asks the router to connect or disconnect its PPPoE WAN link.
// Any 2xx status is success; the body is not inspected.
func (c *Client) SetWANState(ctx context.Context, stok string, op Operation) error {
	target, err := c.AuthURL(stok)
	if err != nil {
		return c.failed(newTransportError(OpChangeWAN, err))
	}

	req := changeWANRequest{
		Method: "do",
		Network: changeWANNetwork{
			ChangeWANStatus: changeWANStatus{Proto: WANProto, Operate: op},
		},
	}
	return c.post(ctx, OpChangeWAN, target, req, nil)
}

// CurrentIP logs in and reads the WAN address.
func (c *Client) CurrentIP(ctx context.Context, password string) (string, error) {
	stok, err := c.Login(ctx, password)
	if err != nil {
		return "", err
	}
	return c.WANIP(ctx, stok)
}

// AuthURL returns the authenticated endpoint for stok: the base URL joined
// with "/stok=<stok>/ds". The token is inserted verbatim.
func (c *Client) AuthURL(stok string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	ref, err := url.Parse(fmt.Sprintf("/stok=%s/ds", stok))
	if err != nil {
		return "", fmt.Errorf("invalid session token path: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// post sends body as JSON to target and decodes the response into out
// unless out is nil.
func (c *Client) post(ctx context.Context, op, target string, body, out any) error {
	start := time.Now()

	payload, err := json.Marshal(body)
	if err != nil {
		return c.observe(op, start, 0, newTransportError(op, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return c.observe(op, start, 0, newTransportError(op, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return c.observe(op, start, 0, newTransportError(op, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.observe(op, start, resp.StatusCode, newStatusError(op, resp.StatusCode, resp.Status))
	}

	if out == nil {
		return c.observe(op, start, resp.StatusCode, nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return c.observe(op, start, resp.StatusCode, newTransportError(op, err))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return c.observe(op, start, resp.StatusCode, newDecodeError(op, err))
	}
	if v, ok := out.(validator); ok {
		if err := v.validate(); err != nil {
			return c.observe(op, start, resp.StatusCode, newDecodeError(op, err))
		}
	}

	return c.observe(op, start, resp.StatusCode, nil)
}

// observe logs and records the outcome of a call, returning rerr unchanged
// (as a plain nil error when the call succeeded).
func (c *Client) observe(op string, start time.Time, status int, rerr *RouterError) error {
	outcome := "ok"
	if rerr != nil {
		outcome = rerr.Kind.String()
	}
	if c.Metrics != nil {
		c.Metrics.RecordRouterRequest(op, outcome, time.Since(start).Seconds())
	}
	if rerr == nil {
		logging.LogRouterCall(op, status, nil)
		return nil
	}
	logging.LogRouterCall(op, status, rerr)
	return rerr
}

func (c *Client) failed(rerr *RouterError) error {
	logging.LogRouterCall(rerr.Op, 0, rerr)
	if c.Metrics != nil {
		c.Metrics.RouterRequests.WithLabelValues(rerr.Op, rerr.Kind.String()).Inc()
	}
	return rerr
}
