// Package routertest provides an in-process fake of the router JSON API for
// tests.
package routertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Server is a fake router. Zero-valued failure fields mean "succeed".
type Server struct {
	*httptest.Server

	Password string // Accepted admin password
	Stok     string // Token returned on successful login
	WANIP    string // Address reported by wan_status

	mu sync.Mutex
	// FailLogin, FailStatus, FailDisconnect and FailConnect make the
	// corresponding call answer with the given HTTP status.
	FailLogin      int
	FailStatus     int
	FailDisconnect int
	FailConnect    int
	// MalformedStatus makes wan_status answer 200 with a body lacking ipaddr.
	MalformedStatus bool

	calls []string
}

// NewServer starts a fake router that accepts password and hands out stok.
// It is closed when the test ends.
func NewServer(t testing.TB, password, stok, wanIP string) *Server {
	t.Helper()
	s := &Server{Password: password, Stok: stok, WANIP: wanIP}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// URL returns the base URL with a trailing slash, like the real router's.
func (s *Server) URL() string {
	return s.Server.URL + "/"
}

// Calls returns the sequence of calls received, e.g. ["login", "disconnect"].
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// SetFailure configures a failure status for a call name ("login",
// "wan_status", "disconnect", "connect") while the server is running.
func (s *Server) SetFailure(call string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch call {
	case "login":
		s.FailLogin = status
	case "wan_status":
		s.FailStatus = status
	case "disconnect":
		s.FailDisconnect = status
	case "connect":
		s.FailConnect = status
	}
}

type request struct {
	Method string `json:"method"`
	Login  *struct {
		Password string `json:"password"`
	} `json:"login"`
	Network *struct {
		Name            []string `json:"name"`
		ChangeWANStatus *struct {
			Proto   string `json:"proto"`
			Operate string `json:"operate"`
		} `json:"change_wan_status"`
	} `json:"network"`
}

func (s *Server) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *Server) failure(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch call {
	case "login":
		return s.FailLogin
	case "wan_status":
		return s.FailStatus
	case "disconnect":
		return s.FailDisconnect
	case "connect":
		return s.FailConnect
	}
	return 0
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch {
	case r.URL.Path == "/" && req.Method == "do" && req.Login != nil:
		s.record("login")
		if code := s.failure("login"); code != 0 {
			w.WriteHeader(code)
			return
		}
		if req.Login.Password != s.Password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"stok": s.Stok})

	case !s.authorized(r.URL.Path):
		s.record("unauthorized")
		w.WriteHeader(http.StatusForbidden)

	case req.Method == "get" && req.Network != nil && len(req.Network.Name) == 1 && req.Network.Name[0] == "wan_status":
		s.record("wan_status")
		if code := s.failure("wan_status"); code != 0 {
			w.WriteHeader(code)
			return
		}
		s.mu.Lock()
		malformed := s.MalformedStatus
		s.mu.Unlock()
		if malformed {
			writeJSON(w, map[string]any{"network": map[string]any{"wan_status": map[string]any{}}})
			return
		}
		writeJSON(w, map[string]any{
			"network": map[string]any{
				"wan_status": map[string]any{"ipaddr": s.WANIP},
			},
		})

	case req.Method == "do" && req.Network != nil && req.Network.ChangeWANStatus != nil:
		op := req.Network.ChangeWANStatus.Operate
		if req.Network.ChangeWANStatus.Proto != "pppoe" || (op != "connect" && op != "disconnect") {
			s.record("bad_change")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.record(op)
		if code := s.failure(op); code != 0 {
			w.WriteHeader(code)
			return
		}
		writeJSON(w, map[string]any{"error_code": 0})

	default:
		s.record("unknown")
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (s *Server) authorized(path string) bool {
	return strings.HasPrefix(path, "/stok=") &&
		strings.TrimSuffix(strings.TrimPrefix(path, "/stok="), "/ds") == s.Stok &&
		strings.HasSuffix(path, "/ds")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
