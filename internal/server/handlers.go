package server

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/wanctl/internal/logging"
	"github.com/muurk/wanctl/internal/router"
	"github.com/muurk/wanctl/internal/version"
)

//go:embed templates/index.html
var templateFS embed.FS

const (
	notFoundBody = "not found"
	wsWriteWait  = 10 * time.Second
)

type indexPage struct {
	IP      string
	Version string
}

// StatusResponse is the body of /api/status.
type StatusResponse struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	PendingJobs int    `json:"pending_jobs"`
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/reconnect", s.handleReconnect)
	mux.HandleFunc("GET /api/echo/{id}", s.handleEcho)
	mux.HandleFunc("GET /api/ws/echo/{id}", s.handleWebSocketEcho)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// handleIndex logs in and reads the WAN address synchronously, then renders
// the page. Any router failure becomes a 500 carrying the flattened error.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ip, err := s.device.CurrentIP(r.Context(), s.config.Password)
	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		if kind, ok := router.KindOf(err); ok {
			fields = append(fields, zap.Stringer("kind", kind))
		}
		logging.Warn("Failed to read WAN address", fields...)
		writeText(w, http.StatusInternalServerError, router.Message(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, indexPage{IP: ip, Version: version.Version}); err != nil {
		logging.Error("Failed to render index page", zap.Error(err))
	}
}

// handleReconnect starts a reconnect job and returns its identifier
// immediately.
func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	id := s.runner.StartReconnect()
	writeText(w, http.StatusOK, id)
}

// handleEcho blocks until the job finishes and returns its message once.
func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	msg, found, err := s.registry.Poll(r.Context(), id)
	if !found {
		writeText(w, http.StatusNotFound, notFoundBody)
		return
	}
	if err != nil {
		// Client went away; the entry is back in the registry.
		logging.LogJobEvent(id, "poll_abandoned", zap.Error(err))
		return
	}

	logging.LogJobEvent(id, "delivered")
	writeText(w, http.StatusOK, msg)
}

// handleWebSocketEcho delivers the job message as a single text frame and
// closes the connection.
func (s *Server) handleWebSocketEcho(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	res, ok := s.registry.Take(id)
	if !ok {
		writeText(w, http.StatusNotFound, notFoundBody)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.registry.Release(id, res)
		logging.Warn("WebSocket upgrade failed", zap.String("job_id", id), zap.Error(err))
		return
	}
	defer conn.Close()

	// The peer sends nothing; reading only notices when it disconnects.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	msg, err := res.Wait(ctx)
	if err != nil {
		s.registry.Release(id, res)
		logging.LogJobEvent(id, "poll_abandoned", zap.Error(err))
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		logging.Warn("WebSocket write failed", zap.String("job_id", id), zap.Error(err))
		return
	}
	logging.LogJobEvent(id, "delivered", zap.String("transport", "websocket"))

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteWait))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(StatusResponse{
		Version:     version.Version,
		Commit:      version.Commit,
		PendingJobs: s.registry.Len(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
