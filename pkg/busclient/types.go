package busclient

import "time"

// Config holds client configuration
type Config struct {
	// ServerURL is the base URL of the canlink HTTP API (e.g., "http://localhost:8081")
	ServerURL string

	// ClientID is the identifier for this client
	ClientID string

	// Timeout for HTTP requests
	Timeout time.Duration

	// MaxRetries for failed requests
	MaxRetries int
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// AuthResponse represents the response from authentication
type AuthResponse struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"clientId"`
	IsAdmin   bool      `json:"isAdmin,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SendFrameRequest represents a frame transmission request
type SendFrameRequest struct {
	ID   uint32 `json:"id"`
	Data []byte `json:"data,omitempty"`
}

// SendFrameResponse represents a frame transmission response
type SendFrameResponse struct {
	ID        uint32    `json:"id"`
	Length    uint8     `json:"length"`
	Timestamp time.Time `json:"timestamp"`
}

// RouteRequest represents a request to watch a message identifier
type RouteRequest struct {
	ID uint32 `json:"id"`
}

// RouteResponse represents a single installed route
type RouteResponse struct {
	ID uint32 `json:"id"`
}

// RoutesResponse lists installed routes in insertion order
type RoutesResponse struct {
	Routes []RouteResponse `json:"routes"`
	Count  int             `json:"count"`
}

// FrameRecord represents one captured frame
type FrameRecord struct {
	ID        uint32    `json:"id"`
	Data      []byte    `json:"data,omitempty"`
	Length    uint8     `json:"length"`
	Offset    int64     `json:"offset"`
	Timestamp time.Time `json:"timestamp"`
}

// FramesResponse represents captured frames for one identifier
type FramesResponse struct {
	ID        uint32        `json:"id"`
	Frames    []FrameRecord `json:"frames"`
	Count     int           `json:"count"`
	EndOffset int64         `json:"endOffset"`
}

// StatsResponse represents gateway statistics (admin only)
type StatsResponse struct {
	NodeID           string    `json:"nodeId"`
	Routes           int       `json:"routes"`
	FramesSent       uint64    `json:"framesSent"`
	FramesDispatched uint64    `json:"framesDispatched"`
	FramesLogged     int       `json:"framesLogged"`
	Timestamp        time.Time `json:"timestamp"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status          string    `json:"status"`
	NodeID          string    `json:"nodeId"`
	RouterHealthy   bool      `json:"routerHealthy"`
	FrameLogHealthy bool      `json:"frameLogHealthy"`
	Routes          int       `json:"routes"`
	Message         string    `json:"message,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
