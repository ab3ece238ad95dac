package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/winetrace/winetracego/internal/buildinfo"
	"github.com/winetrace/winetracego/internal/config"
	"github.com/winetrace/winetracego/internal/database"
	"github.com/winetrace/winetracego/internal/ipfs"
	"github.com/winetrace/winetracego/internal/middleware"
	"github.com/winetrace/winetracego/internal/session"
	ws "github.com/winetrace/winetracego/internal/websocket"
)

// Router wraps the mux router with everything the handlers compose: the read
// model, the wallet session, the IPFS client and the push hub.
type Router struct {
	*mux.Router
	db      *database.DB
	cfg     *config.Config
	session *session.Session
	ipfs    *ipfs.Client
	hub     *ws.Hub
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, cfg *config.Config, sess *session.Session, ipfsClient *ipfs.Client, hub *ws.Hub) *Router {
	r := &Router{
		Router:  mux.NewRouter(),
		db:      db,
		cfg:     cfg,
		session: sess,
		ipfs:    ipfsClient,
		hub:     hub,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", r.getStatus).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", r.register).Methods("POST")
	auth.HandleFunc("/login", r.login).Methods("POST")

	// Read model (public)
	api.HandleFunc("/vineyards", r.listVineyards).Methods("GET")
	api.HandleFunc("/vineyards/{id:[0-9]+}", r.getVineyard).Methods("GET")
	api.HandleFunc("/vineyards/{id:[0-9]+}/qr", r.vineyardQR).Methods("GET")
	api.HandleFunc("/processes", r.listProcesses).Methods("GET")
	api.HandleFunc("/processes/{id:[0-9]+}", r.getProcess).Methods("GET")
	api.HandleFunc("/processes/vineyard/{vineyardId:[0-9]+}", r.processesByVineyard).Methods("GET")
	api.HandleFunc("/trace/{vineyardId:[0-9]+}", r.getTrace).Methods("GET")
	api.HandleFunc("/trace/{vineyardId:[0-9]+}/report.pdf", r.traceReport).Methods("GET")

	// Chain writes (protected)
	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Auth(cfg.JWTSecret))
	protected.HandleFunc("/session/connect", r.connectSession).Methods("POST")
	protected.HandleFunc("/session/disconnect", r.disconnectSession).Methods("POST")
	protected.HandleFunc("/vineyards", r.createVineyard).Methods("POST")
	protected.HandleFunc("/processes/upload", r.uploadProcess).Methods("POST")

	// Live record push
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWS(hub, w, req)
	})

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// getStatus reports session and connectivity state
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	status := map[string]interface{}{
		"status":     "running",
		"started_at": buildinfo.StartTime,
		"session":    r.session.State().String(),
		"ws_clients": r.hub.ClientCount(),
	}
	if r.session.State() == session.Connected {
		status["account"] = r.session.Account().Hex()
		status["chain_id"] = r.session.ChainID().String()
	}
	if info, err := r.ipfs.Version(req.Context()); err == nil {
		status["ipfs_version"] = info.Version
	} else {
		status["ipfs_version"] = nil
	}
	respondJSON(w, http.StatusOK, status)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
