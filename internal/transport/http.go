// Package transport is the thin HTTP front door: bearer-auth middleware,
// health/info/metrics endpoints, and a single dispatch route that decodes an
// RPCRequest and hands it to the rpc.Dispatcher. Modeled on
// internal/server.Server — mux.NewRouter, a middleware chain applied with
// router.Use, and a plain http.Server — trimmed to the one route this
// kernel actually needs instead of a large REST surface.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/orbitalmind/kernel/internal/rpc"
	"github.com/orbitalmind/kernel/internal/types"
)

// Info is the static /info payload: embedding provider identity, store
// location, and whether the schema migration left indexes in place.
type Info struct {
	Embedding string
	DB        string
	IndexesOK bool
}

// Server wraps the dispatch route and the process-level bookkeeping behind
// /health, /info, and /metrics.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	dispatcher *rpc.Dispatcher
	authToken  string
	startTime  time.Time
	version    string
	info       Info
	metrics    *requestMetrics
}

// New builds a Server bound to addr. An empty authToken disables the
// bearer check entirely, which is what a local/dev config leaves it as.
func New(addr string, d *rpc.Dispatcher, authToken, version string, info Info) *Server {
	s := &Server{
		dispatcher: d,
		authToken:  authToken,
		startTime:  time.Now(),
		version:    version,
		info:       info,
		metrics:    &requestMetrics{},
	}
	s.router = mux.NewRouter()
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.securityHeaders)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	rpcRoute := s.router.NewRoute().Subrouter()
	rpcRoute.Use(s.bearerAuth)
	rpcRoute.HandleFunc("/rpc", s.handleDispatch).Methods(http.MethodPost)
}

// securityHeaders strips the default Go server header, without version
// disclosure.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "kernel")
		next.ServeHTTP(w, r)
	})
}

// bearerAuth requires "Authorization: Bearer <token>" on the dispatch route
// when a token is configured. No token configured means no check, which
// keeps local development and tests working without a config file.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) || header[len(prefix):] != s.authToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":             "invalid_token",
				"error_description": "Unauthorized",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"uptime_sec": int(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"embedding":  s.info.Embedding,
		"db":         s.info.DB,
		"indexes_ok": s.info.IndexesOK,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.snapshot())
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req types.RPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.record(time.Since(started), true)
		writeJSON(w, http.StatusBadRequest, types.RPCResult{
			Error: &types.RPCError{Code: string(types.KindInvalidParams), Message: "malformed request body: " + err.Error()},
		})
		return
	}
	result := s.dispatcher.Dispatch(r.Context(), req)
	s.metrics.record(time.Since(started), result.Error != nil)
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Start blocks serving until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
