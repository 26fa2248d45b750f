package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opencanbus/canlink/internal/gateway"
	"github.com/opencanbus/canlink/pkg/can"
)

// streamKeepaliveInterval is how often an SSE comment is written to
// keep idle streaming connections from being reaped by proxies.
const streamKeepaliveInterval = 15 * time.Second

// Handlers contains the HTTP request handlers for the canlink API
type Handlers struct {
	gateway *gateway.Gateway
	jwtAuth *JWTAuth
	log     *logrus.Entry
}

// NewHandlers creates a new handlers instance
func NewHandlers(gw *gateway.Gateway, jwtAuth *JWTAuth, log *logrus.Entry) *Handlers {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handlers{
		gateway: gw,
		jwtAuth: jwtAuth,
		log:     log,
	}
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.ClientID == "" {
		h.writeError(w, "clientId is required", http.StatusBadRequest)
		return
	}

	// MVP admin determination: the "admin" client gets admin privileges
	isAdmin := req.ClientID == "admin"

	token, expiresAt, err := h.jwtAuth.GenerateToken(req.ClientID, isAdmin)
	if err != nil {
		h.log.WithError(err).WithField("clientId", req.ClientID).Error("failed to generate token")
		h.writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, AuthResponse{
		Token:     token,
		ClientID:  req.ClientID,
		IsAdmin:   isAdmin,
		ExpiresAt: expiresAt,
	}, http.StatusOK)
}

// SendFrame handles POST /api/v1/frames
func (h *Handlers) SendFrame(w http.ResponseWriter, r *http.Request) {
	var req SendFrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := can.NewMessage(req.ID, req.Data)
	if err != nil {
		h.writeError(w, "Invalid frame: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.gateway.Send(msg); err != nil {
		h.log.WithError(err).WithField("id", req.ID).Warn("frame transmission failed")
		h.writeError(w, "Transmission failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, SendFrameResponse{
		ID:        msg.ID,
		Length:    msg.Length,
		Timestamp: time.Now(),
	}, http.StatusCreated)
}

// ListRoutes handles GET /api/v1/routes
func (h *Handlers) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes := h.gateway.Routes()

	resp := RoutesResponse{Routes: make([]RouteResponse, 0, len(routes))}
	for _, route := range routes {
		resp.Routes = append(resp.Routes, RouteResponse{ID: route.ID()})
	}
	resp.Count = len(resp.Routes)

	h.writeJSON(w, resp, http.StatusOK)
}

// CreateRoute handles POST /api/v1/routes. The new route captures
// matching frames into the frame log, readable via /api/v1/frames/{id}.
func (h *Handlers) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	route, err := h.gateway.Watch(req.ID)
	if err != nil {
		h.writeError(w, "Failed to create route: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.log.WithFields(logrus.Fields{
		"id":     route.ID(),
		"client": GetClientID(r),
	}).Info("route created")

	h.writeJSON(w, RouteResponse{ID: route.ID()}, http.StatusCreated)
}

// ReadFrames handles GET /api/v1/frames/{id}?offset={offset}&limit={limit}
func (h *Handlers) ReadFrames(w http.ResponseWriter, r *http.Request) {
	id, ok := GetFrameID(r)
	if !ok {
		h.writeError(w, "Message identifier required", http.StatusBadRequest)
		return
	}

	offset := int64(0)
	if v := r.URL.Query().Get("offset"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			h.writeError(w, "Invalid offset parameter", http.StatusBadRequest)
			return
		}
		offset = parsed
	}

	limit := 0 // unlimited
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			h.writeError(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.gateway.ReadFrames(id, offset, limit)
	if err != nil {
		h.writeError(w, "Failed to read frames: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := FramesResponse{ID: id, Frames: make([]FrameRecord, 0, len(entries))}
	for _, entry := range entries {
		resp.Frames = append(resp.Frames, FrameRecord{
			ID:        entry.Message.ID,
			Data:      entry.Message.Data(),
			Length:    entry.Message.Length,
			Offset:    entry.Offset,
			Timestamp: entry.Timestamp,
		})
		resp.EndOffset = entry.Offset + 1
	}
	resp.Count = len(resp.Frames)

	h.writeJSON(w, resp, http.StatusOK)
}

// StreamFrames handles GET /api/v1/frames/stream?id={id}. It installs
// a route for the identifier if none exists and tails matching frames
// to the client as Server-Sent Events until the client disconnects.
func (h *Handlers) StreamFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rawID := r.URL.Query().Get("id")
	if rawID == "" {
		h.writeError(w, "Message identifier required", http.StatusBadRequest)
		return
	}

	// Accepts decimal or prefixed hex ("0x123")
	id, err := strconv.ParseUint(rawID, 0, 32)
	if err != nil {
		h.writeError(w, "Invalid message identifier", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	frames, cancel, err := h.gateway.Subscribe(uint32(id), 0)
	if err != nil {
		h.writeError(w, "Failed to subscribe: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.log.WithFields(logrus.Fields{
		"id":     uint32(id),
		"client": GetClientID(r),
	}).Info("frame stream opened")

	keepalive := time.NewTicker(streamKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.WithField("id", uint32(id)).Debug("frame stream closed by client")
			return

		case entry, ok := <-frames:
			if !ok {
				// Gateway shut down
				return
			}
			record := FrameRecord{
				ID:        entry.Message.ID,
				Data:      entry.Message.Data(),
				Length:    entry.Message.Length,
				Offset:    entry.Offset,
				Timestamp: entry.Timestamp,
			}
			if err := h.writeSSE(w, record); err != nil {
				h.log.WithError(err).Debug("frame stream write failed")
				return
			}
			flusher.Flush()

		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSE writes one record as an SSE data event
func (h *Handlers) writeSSE(w http.ResponseWriter, record FrameRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal frame record: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// AdminGetStats handles GET /api/v1/admin/stats
func (h *Handlers) AdminGetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.gateway.Stats()

	h.writeJSON(w, StatsResponse{
		NodeID:           stats.NodeID,
		Routes:           stats.Routes,
		FramesSent:       stats.FramesSent,
		FramesDispatched: stats.FramesDispatched,
		FramesLogged:     stats.FramesLogged,
		Timestamp:        time.Now(),
	}, http.StatusOK)
}

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := h.gateway.Health()

	resp := HealthResponse{
		Status:          "healthy",
		NodeID:          h.gateway.NodeID(),
		RouterHealthy:   health.RouterHealthy,
		FrameLogHealthy: health.FrameLogHealthy,
		Routes:          health.Routes,
		Message:         health.Message,
		Timestamp:       time.Now(),
	}

	statusCode := http.StatusOK
	if !health.Healthy {
		resp.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	h.writeJSON(w, resp, statusCode)
}

// Helper methods

// writeError writes an error response as JSON
func (h *Handlers) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		// Status line is already on the wire; nothing to salvage here
		h.log.WithError(err).Error("Failed to encode error response")
	}
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.WithError(err).Error("Failed to encode JSON response")
	}
}
