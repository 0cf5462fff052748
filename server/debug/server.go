// Package debug exposes a read-mostly HTTP surface over a running engine, for
// local inspection and scripting against a process without a full client
// (§6: the debug surface is explicitly a development aid, not a production
// control plane).
package debug

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/procflow/engine/actorsys"
	"github.com/procflow/engine/engine"
	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/log"
)

// Server wraps an *engine.Engine with an HTTP handler. The zero value is not
// usable; construct with New.
type Server struct {
	engine  *engine.Engine
	router  *mux.Router
	handler http.Handler
}

// New builds a Server routing requests against eng. opts customize the
// CORS policy before routes are registered.
func New(eng *engine.Engine, opts ...Option) *Server {
	s := &Server{engine: eng, router: mux.NewRouter()}
	cfg := &options{allowedOrigins: []string{"*"}}
	for _, opt := range opts {
		opt(cfg)
	}
	s.registerRoutes()
	s.handler = cors.New(cors.Options{
		AllowedOrigins: cfg.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(s.router)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/graphs/{graphID}/boot", s.handleBoot).Methods(http.MethodPost)
	s.router.HandleFunc("/instances/{instanceID}/pins/{pinID}/input", s.handleSetInput).Methods(http.MethodPost)
	s.router.HandleFunc("/instances/{instanceID}/pins/{pinID}/output", s.handleComputeOutput).Methods(http.MethodGet)
	s.router.HandleFunc("/instances/{instanceID}/pins/{pinID}/receive", s.handleSendValue).Methods(http.MethodPost)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type bootRequest struct {
	Version uint64 `json:"version"`
}

type bootResponse struct {
	InstanceID identifier.ID `json:"instance_id"`
	Booted     bool          `json:"booted"`
}

func (s *Server) handleBoot(w http.ResponseWriter, r *http.Request) {
	graphID, err := identifier.Parse(mux.Vars(r)["graphID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid graph id")
		return
	}
	var req bootRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	instanceID, _, ok := s.engine.Facade.BootGraph(graphID, req.Version)
	writeJSON(w, http.StatusOK, bootResponse{InstanceID: instanceID, Booted: ok})
}

type setInputRequest struct {
	Value    any    `json:"value"`
	Datatype string `json:"datatype"`
}

func (s *Server) handleSetInput(w http.ResponseWriter, r *http.Request) {
	addr, pinID, ok := s.resolveInstancePin(w, r)
	if !ok {
		return
	}
	var req setInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.engine.Facade.SetInputPinValue(addr, pinID, req.Value, req.Datatype)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleComputeOutput(w http.ResponseWriter, r *http.Request) {
	addr, pinID, ok := s.resolveInstancePin(w, r)
	if !ok {
		return
	}
	value := s.engine.Facade.ComputeOutputPinValue(addr, pinID, nil)
	writeJSON(w, http.StatusOK, map[string]any{"value": value})
}

type sendValueRequest struct {
	Value any `json:"value"`
}

func (s *Server) handleSendValue(w http.ResponseWriter, r *http.Request) {
	addr, pinID, ok := s.resolveInstancePin(w, r)
	if !ok {
		return
	}
	var req sendValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.engine.Facade.SendValue(addr, pinID, req.Value)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolveInstancePin parses and resolves the {instanceID} and {pinID} path
// variables shared by every per-instance route, writing an error response
// and returning ok=false on any failure.
func (s *Server) resolveInstancePin(w http.ResponseWriter, r *http.Request) (addr actorsys.Address, pinID identifier.ID, ok bool) {
	vars := mux.Vars(r)
	instanceID, err := identifier.Parse(vars["instanceID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid instance id")
		return addr, pinID, false
	}
	pinID, err = identifier.Parse(vars["pinID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pin id")
		return addr, pinID, false
	}
	addr, found := s.engine.Controller.Instance(instanceID)
	if !found {
		writeError(w, http.StatusNotFound, "unknown instance")
		return addr, pinID, false
	}
	return addr, pinID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("debug: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
