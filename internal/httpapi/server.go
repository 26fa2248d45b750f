package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opencanbus/canlink/internal/gateway"
)

// Server represents the HTTP API server
type Server struct {
	gateway    *gateway.Gateway
	jwtAuth    *JWTAuth
	handlers   *Handlers
	middleware *Middleware
	server     *http.Server
	secretKey  string
	log        *logrus.Entry
}

// Config holds server configuration
type Config struct {
	Port      string
	SecretKey string
	TokenTTL  time.Duration // Lifetime of issued JWT tokens
	NoAuth    bool          // Development mode: bypass authentication
}

// SetDefaults fills in default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.Port == "" {
		c.Port = "8081"
	}
	if c.SecretKey == "" {
		c.SecretKey = "canlink-mvp-secret-key-change-in-production"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = DefaultTokenTTL
	}
}

// NewServer creates a new HTTP API server
func NewServer(gw *gateway.Gateway, config Config, log *logrus.Entry) *Server {
	config.SetDefaults()
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	jwtAuth := NewJWTAuth(config.SecretKey, gw.NodeID(), config.TokenTTL)
	handlers := NewHandlers(gw, jwtAuth, log)
	middleware := NewMiddleware(jwtAuth, config.NoAuth, log)

	server := &Server{
		gateway:    gw,
		jwtAuth:    jwtAuth,
		handlers:   handlers,
		middleware: middleware,
		secretKey:  config.SecretKey,
		log:        log,
	}

	// Setup HTTP server
	mux := server.setupRoutes()
	httpServer := &http.Server{
		Addr:           ":" + config.Port,
		Handler:        mux,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	server.server = httpServer
	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Serve serves HTTP on an existing listener
func (s *Server) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the configured route handler, primarily for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Apply global middleware
	withMiddleware := func(handler http.HandlerFunc) http.Handler {
		return s.middleware.Recovery(
			s.middleware.Logging(
				s.middleware.CORS(
					s.middleware.ContentType(handler))))
	}

	// Authentication endpoints (no auth required)
	mux.Handle("/api/v1/auth/login", withMiddleware(s.handlers.Login))

	// Frame endpoints (auth required)
	mux.Handle("/api/v1/frames", withMiddleware(s.middleware.AuthRequired(s.handleFrames)))
	mux.Handle("/api/v1/frames/stream", withMiddleware(s.middleware.AuthRequired(s.handlers.StreamFrames)))
	mux.Handle("/api/v1/frames/", withMiddleware(s.middleware.AuthRequired(s.handleFrameByID)))

	// Route endpoints (auth required)
	mux.Handle("/api/v1/routes", withMiddleware(s.middleware.AuthRequired(s.handleRoutes)))

	// Admin endpoints (admin auth required)
	mux.Handle("/api/v1/admin/stats", withMiddleware(s.middleware.AdminRequired(s.handlers.AdminGetStats)))

	// Health endpoint (no auth required)
	mux.Handle("/api/v1/health", withMiddleware(s.handlers.Health))

	// Root endpoint with API info
	mux.Handle("/", withMiddleware(s.handleRoot))

	return mux
}

// Route handlers that dispatch based on HTTP method

// handleFrames routes frame transmission requests based on HTTP method
func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlers.SendFrame(w, r)
	default:
		s.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleFrameByID handles reads of captured frames for one identifier
func (s *Server) handleFrameByID(w http.ResponseWriter, r *http.Request) {
	// Extract message identifier from path: /api/v1/frames/{id}
	path := r.URL.Path
	if !strings.HasPrefix(path, "/api/v1/frames/") {
		s.writeError(w, "Invalid frames path", http.StatusNotFound)
		return
	}

	rawID := strings.TrimPrefix(path, "/api/v1/frames/")
	if rawID == "" {
		s.writeError(w, "Message identifier required", http.StatusBadRequest)
		return
	}

	// Accepts decimal or prefixed hex ("0x123")
	id, err := strconv.ParseUint(rawID, 0, 32)
	if err != nil {
		s.writeError(w, "Invalid message identifier", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		ctx := context.WithValue(r.Context(), FrameIDKey, uint32(id))
		s.handlers.ReadFrames(w, r.WithContext(ctx))
	default:
		s.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRoutes routes route-table requests based on HTTP method
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handlers.ListRoutes(w, r)
	case http.MethodPost:
		s.handlers.CreateRoute(w, r)
	default:
		s.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRoot provides API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, "Not found", http.StatusNotFound)
		return
	}

	info := map[string]interface{}{
		"service":     "canlink HTTP API",
		"version":     "1.0.0",
		"description": "RESTful HTTP API for the canlink bus gateway",
		"endpoints": map[string]interface{}{
			"auth": map[string]string{
				"login": "POST /api/v1/auth/login",
			},
			"frames": map[string]string{
				"send":   "POST /api/v1/frames",
				"read":   "GET /api/v1/frames/{id}?offset={offset}&limit={limit}",
				"stream": "GET /api/v1/frames/stream?id={id} (Server-Sent Events)",
			},
			"routes": map[string]string{
				"list":   "GET /api/v1/routes",
				"create": "POST /api/v1/routes",
			},
			"admin": map[string]string{
				"stats": "GET /api/v1/admin/stats",
			},
			"health": "GET /api/v1/health",
		},
		"authentication": "Bearer JWT token required for most endpoints",
	}

	s.writeJSON(w, info, http.StatusOK)
}

// Helper methods

// writeError writes an error response as JSON
func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	errorResp := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	s.writeJSON(w, errorResp, statusCode)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Status line is already on the wire; nothing to salvage here
		s.log.WithError(err).Error("Failed to encode JSON response")
	}
}
