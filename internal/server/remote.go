package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrJobNotFound is returned by Remote.Echo when the server does not know
// the job, or it was already delivered to another poller.
var ErrJobNotFound = errors.New("job not found")

// maxRemoteBody caps how much of a reply is read. Job messages are short.
const maxRemoteBody = 64 << 10

// Remote drives a running wanctl server over HTTP.
type Remote struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewRemote creates a client for the server at baseURL, e.g.
// "http://wanctl.local:8000". The HTTP client has no timeout: Echo blocks
// for the whole reconnect.
func NewRemote(baseURL string) *Remote {
	return &Remote{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
}

// StartReconnect asks the server to start a reconnect job and returns its
// identifier.
func (r *Remote) StartReconnect(ctx context.Context) (string, error) {
	status, body, err := r.get(ctx, "/api/reconnect")
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("server returned %d: %s", status, body)
	}
	return strings.TrimSpace(body), nil
}

// Echo blocks until job id finishes and returns its message: "Done" or the
// error text of the failed step.
func (r *Remote) Echo(ctx context.Context, id string) (string, error) {
	status, body, err := r.get(ctx, "/api/echo/"+url.PathEscape(id))
	if err != nil {
		return "", err
	}
	switch status {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return "", ErrJobNotFound
	default:
		return "", fmt.Errorf("server returned %d: %s", status, body)
	}
}

// Reconnect starts a job and waits for its message.
func (r *Remote) Reconnect(ctx context.Context) (id, msg string, err error) {
	id, err = r.StartReconnect(ctx)
	if err != nil {
		return "", "", err
	}
	msg, err = r.Echo(ctx, id)
	return id, msg, err
}

func (r *Remote) get(ctx context.Context, path string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+path, nil)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request to %s failed: %w", r.BaseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return 0, "", fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, string(body), nil
}
