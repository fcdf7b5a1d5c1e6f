package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/muurk/wanctl/internal/metrics"
	"github.com/muurk/wanctl/internal/router/routertest"
)

func newTestClient(baseURL string) *Client {
	c := NewClient(baseURL)
	c.Metrics = metrics.NewRegistry(prometheus.NewRegistry())
	return c
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("")

	if client.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", client.BaseURL, DefaultBaseURL)
	}
	if client.HTTPClient == nil {
		t.Fatal("HTTPClient should not be nil")
	}
	if client.HTTPClient.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", client.HTTPClient.Timeout, DefaultTimeout)
	}
}

func TestSetTimeout(t *testing.T) {
	client := NewClient("")
	client.SetTimeout(5 * time.Second)

	if client.HTTPClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.HTTPClient.Timeout)
	}
}

func TestAuthURL(t *testing.T) {
	tests := []struct {
		base string
		stok string
		want string
	}{
		{"http://192.168.0.1/", "abc", "http://192.168.0.1/stok=abc/ds"},
		{"http://192.168.0.1", "abc", "http://192.168.0.1/stok=abc/ds"},
		{"http://192.168.0.1/webpages/index.html", "abc", "http://192.168.0.1/stok=abc/ds"},
		{"http://router.lan:8080/", "f00d", "http://router.lan:8080/stok=f00d/ds"},
	}

	for _, tt := range tests {
		client := NewClient(tt.base)
		got, err := client.AuthURL(tt.stok)
		if err != nil {
			t.Errorf("AuthURL(%q) on %s error = %v", tt.stok, tt.base, err)
			continue
		}
		if got != tt.want {
			t.Errorf("AuthURL(%q) on %s = %s, want %s", tt.stok, tt.base, got, tt.want)
		}
	}
}

func TestLogin_RequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Request method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/" {
			t.Errorf("Request path = %s, want /", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}

		body, _ := io.ReadAll(r.Body)
		var got map[string]any
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("request body is not JSON: %v", err)
		}
		if got["method"] != "do" {
			t.Errorf("method = %v, want do", got["method"])
		}
		login, _ := got["login"].(map[string]any)
		if login["password"] != "pw" {
			t.Errorf("login.password = %v, want pw", login["password"])
		}

		w.Write([]byte(`{"stok":"abc"}`))
	}))
	defer server.Close()

	stok, err := newTestClient(server.URL + "/").Login(context.Background(), "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if stok != "abc" {
		t.Errorf("stok = %s, want abc", stok)
	}
}

func TestLogin_BadPassword(t *testing.T) {
	fake := routertest.NewServer(t, "secret", "abc", "203.0.113.5")

	_, err := newTestClient(fake.URL()).Login(context.Background(), "wrong")
	if err == nil {
		t.Fatal("Login() should fail with wrong password")
	}
	if !IsStatusError(err) {
		t.Errorf("error should be status error, got %T: %v", err, err)
	}
	if err.Error() != "HTTP status 401 Unauthorized" {
		t.Errorf("Error() = %q, want %q", err.Error(), "HTTP status 401 Unauthorized")
	}
}

func TestLogin_MissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error_code":-40401}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Login(context.Background(), "pw")
	if !IsDecodeError(err) {
		t.Fatalf("error should be decode error, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "stok") {
		t.Errorf("Error() = %q, should mention stok", err.Error())
	}
}

func TestLogin_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>login</html>`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Login(context.Background(), "pw")
	if !IsDecodeError(err) {
		t.Fatalf("error should be decode error, got %T: %v", err, err)
	}
	if !strings.HasPrefix(err.Error(), "error decoding response body: ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestLogin_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Login(context.Background(), "pw")
	if !IsTransportError(err) {
		t.Fatalf("error should be transport error, got %T: %v", err, err)
	}
	if !strings.HasPrefix(err.Error(), "error sending request: ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWANIP_Success(t *testing.T) {
	fake := routertest.NewServer(t, "pw", "abc", "203.0.113.5")
	client := newTestClient(fake.URL())

	ip, err := client.WANIP(context.Background(), "abc")
	if err != nil {
		t.Fatalf("WANIP() error = %v", err)
	}
	if ip != "203.0.113.5" {
		t.Errorf("ip = %s, want 203.0.113.5", ip)
	}
}

func TestWANIP_WrongToken(t *testing.T) {
	fake := routertest.NewServer(t, "pw", "abc", "203.0.113.5")

	_, err := newTestClient(fake.URL()).WANIP(context.Background(), "stale")
	if !IsStatusError(err) {
		t.Fatalf("error should be status error, got %T: %v", err, err)
	}
}

func TestWANIP_MissingAddress(t *testing.T) {
	fake := routertest.NewServer(t, "pw", "abc", "203.0.113.5")
	fake.MalformedStatus = true

	_, err := newTestClient(fake.URL()).WANIP(context.Background(), "abc")
	if !IsDecodeError(err) {
		t.Fatalf("error should be decode error, got %T: %v", err, err)
	}
	if err.Error() != "error decoding response body: missing field `ipaddr`" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestSetWANState(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stok=abc/ds" {
			t.Errorf("Request path = %s, want /stok=abc/ds", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		// Body is not parsed by the client
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := newTestClient(server.URL + "/")
	if err := client.SetWANState(context.Background(), "abc", Disconnect); err != nil {
		t.Fatalf("SetWANState(disconnect) error = %v", err)
	}
	if err := client.SetWANState(context.Background(), "abc", Connect); err != nil {
		t.Fatalf("SetWANState(connect) error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("got %d requests, want 2", len(bodies))
	}
	for i, want := range []string{"disconnect", "connect"} {
		network := bodies[i]["network"].(map[string]any)
		change := network["change_wan_status"].(map[string]any)
		if change["proto"] != "pppoe" {
			t.Errorf("request %d proto = %v, want pppoe", i, change["proto"])
		}
		if change["operate"] != want {
			t.Errorf("request %d operate = %v, want %s", i, change["operate"], want)
		}
		if bodies[i]["method"] != "do" {
			t.Errorf("request %d method = %v, want do", i, bodies[i]["method"])
		}
	}
}

func TestSetWANState_ServerError(t *testing.T) {
	fake := routertest.NewServer(t, "pw", "abc", "203.0.113.5")
	fake.FailDisconnect = http.StatusInternalServerError
	client := newTestClient(fake.URL())

	err := client.SetWANState(context.Background(), "abc", Disconnect)
	if !IsStatusError(err) {
		t.Fatalf("error should be status error, got %T: %v", err, err)
	}
	if got := Message(err); got != "HTTP status 500 Internal Server Error" {
		t.Errorf("Message() = %q", got)
	}
	if v := testutil.ToFloat64(client.Metrics.RouterRequests.WithLabelValues(OpChangeWAN, "status")); v != 1 {
		t.Errorf("status outcome count = %v, want 1", v)
	}
}

func TestCurrentIP(t *testing.T) {
	fake := routertest.NewServer(t, "pw", "abc", "203.0.113.5")

	ip, err := newTestClient(fake.URL()).CurrentIP(context.Background(), "pw")
	if err != nil {
		t.Fatalf("CurrentIP() error = %v", err)
	}
	if ip != "203.0.113.5" {
		t.Errorf("ip = %s, want 203.0.113.5", ip)
	}

	calls := fake.Calls()
	if len(calls) != 2 || calls[0] != "login" || calls[1] != "wan_status" {
		t.Errorf("calls = %v, want [login wan_status]", calls)
	}
}

func TestCurrentIP_LoginFailureSkipsQuery(t *testing.T) {
	fake := routertest.NewServer(t, "pw", "abc", "203.0.113.5")

	if _, err := newTestClient(fake.URL()).CurrentIP(context.Background(), "nope"); err == nil {
		t.Fatal("CurrentIP() should fail with wrong password")
	}
	if calls := fake.Calls(); len(calls) != 1 {
		t.Errorf("calls = %v, want only login", calls)
	}
}

func TestContextCancelled(t *testing.T) {
	fake := routertest.NewServer(t, "pw", "abc", "203.0.113.5")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(fake.URL()).Login(ctx, "pw")
	if !IsTransportError(err) {
		t.Fatalf("error should be transport error, got %T: %v", err, err)
	}
}
