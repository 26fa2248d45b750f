package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencanbus/canlink/internal/gateway"
	"github.com/opencanbus/canlink/internal/transceiver"
	"github.com/opencanbus/canlink/pkg/can"
)

// newTestServer wires a gateway over a loopback transceiver behind the
// HTTP API and returns the test server plus the underlying pieces.
func newTestServer(t *testing.T) (*httptest.Server, *transceiver.Loopback, *gateway.Gateway) {
	t.Helper()

	bus := transceiver.NewLoopback()
	gw, err := gateway.NewGateway(gateway.NewConfig("test-node"), bus)
	require.NoError(t, err)
	require.NoError(t, gw.Start(context.Background()))

	srv := NewServer(gw, Config{Port: "0", SecretKey: "test-secret"}, nil)
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		ts.Close()
		_ = gw.Close()
	})

	return ts, bus, gw
}

// login obtains a JWT for the given client via the login endpoint.
func login(t *testing.T, ts *httptest.Server, clientID string) string {
	t.Helper()

	body, err := json.Marshal(AuthRequest{ClientID: clientID})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var auth AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&auth))
	require.NotEmpty(t, auth.Token)
	return auth.Token
}

// doRequest performs an authenticated JSON request against the test server.
func doRequest(t *testing.T, ts *httptest.Server, method, path, token string, payload interface{}) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestLogin(t *testing.T) {
	ts, _, _ := newTestServer(t)

	token := login(t, ts, "sensor-1")
	assert.NotEmpty(t, token)
}

func TestLogin_AdminClient(t *testing.T) {
	ts, _, _ := newTestServer(t)

	body, _ := json.Marshal(AuthRequest{ClientID: "admin"})
	resp, err := http.Post(ts.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var auth AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&auth))
	assert.True(t, auth.IsAdmin)
}

func TestLogin_MissingClientID(t *testing.T) {
	ts, _, _ := newTestServer(t)

	body, _ := json.Marshal(AuthRequest{})
	resp, err := http.Post(ts.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendFrame_RequiresAuth(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/v1/frames", "", SendFrameRequest{ID: 0x100})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSendFrame(t *testing.T) {
	ts, bus, _ := newTestServer(t)
	token := login(t, ts, "sensor-1")

	resp := doRequest(t, ts, http.MethodPost, "/api/v1/frames", token, SendFrameRequest{
		ID:   0x123,
		Data: []byte{0xDE, 0xAD},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sent SendFrameResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sent))
	assert.Equal(t, uint32(0x123), sent.ID)
	assert.Equal(t, uint8(2), sent.Length)

	last, ok := bus.LastSent()
	require.True(t, ok)
	assert.Equal(t, uint32(0x123), last.ID)
	assert.Equal(t, []byte{0xDE, 0xAD}, last.Data())
}

func TestSendFrame_InvalidIdentifier(t *testing.T) {
	ts, _, _ := newTestServer(t)
	token := login(t, ts, "sensor-1")

	resp := doRequest(t, ts, http.MethodPost, "/api/v1/frames", token, SendFrameRequest{ID: 0x20000000})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRoutes_CreateAndList(t *testing.T) {
	ts, _, _ := newTestServer(t)
	token := login(t, ts, "sensor-1")

	created := doRequest(t, ts, http.MethodPost, "/api/v1/routes", token, RouteRequest{ID: 0x100})
	defer created.Body.Close()
	require.Equal(t, http.StatusCreated, created.StatusCode)

	created2 := doRequest(t, ts, http.MethodPost, "/api/v1/routes", token, RouteRequest{ID: 0x120})
	defer created2.Body.Close()
	require.Equal(t, http.StatusCreated, created2.StatusCode)

	listed := doRequest(t, ts, http.MethodGet, "/api/v1/routes", token, nil)
	defer listed.Body.Close()
	require.Equal(t, http.StatusOK, listed.StatusCode)

	var routes RoutesResponse
	require.NoError(t, json.NewDecoder(listed.Body).Decode(&routes))
	require.Equal(t, 2, routes.Count)
	assert.Equal(t, uint32(0x100), routes.Routes[0].ID)
	assert.Equal(t, uint32(0x120), routes.Routes[1].ID)
}

func TestReadFrames(t *testing.T) {
	ts, bus, _ := newTestServer(t)
	token := login(t, ts, "sensor-1")

	created := doRequest(t, ts, http.MethodPost, "/api/v1/routes", token, RouteRequest{ID: 0x123})
	defer created.Body.Close()
	require.Equal(t, http.StatusCreated, created.StatusCode)

	for _, b := range []byte{1, 2, 3} {
		msg, err := can.NewMessage(0x123, []byte{b})
		require.NoError(t, err)
		bus.Inject(msg)
	}
	// A frame with no matching route is dropped, not captured.
	stray, err := can.NewMessage(0x999, nil)
	require.NoError(t, err)
	bus.Inject(stray)

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/frames/0x123", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var frames FramesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&frames))
	assert.Equal(t, uint32(0x123), frames.ID)
	require.Equal(t, 3, frames.Count)
	assert.Equal(t, []byte{1}, frames.Frames[0].Data)
	assert.Equal(t, int64(0), frames.Frames[0].Offset)
	assert.Equal(t, int64(3), frames.EndOffset)
}

func TestReadFrames_OffsetAndLimit(t *testing.T) {
	ts, bus, _ := newTestServer(t)
	token := login(t, ts, "sensor-1")

	created := doRequest(t, ts, http.MethodPost, "/api/v1/routes", token, RouteRequest{ID: 0x42})
	defer created.Body.Close()
	require.Equal(t, http.StatusCreated, created.StatusCode)

	for i := byte(0); i < 5; i++ {
		msg, err := can.NewMessage(0x42, []byte{i})
		require.NoError(t, err)
		bus.Inject(msg)
	}

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/frames/66?offset=1&limit=2", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var frames FramesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&frames))
	require.Equal(t, 2, frames.Count)
	assert.Equal(t, int64(1), frames.Frames[0].Offset)
	assert.Equal(t, []byte{1}, frames.Frames[0].Data)
}

func TestReadFrames_BadIdentifier(t *testing.T) {
	ts, _, _ := newTestServer(t)
	token := login(t, ts, "sensor-1")

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/frames/not-an-id", token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminStats_RequiresAdmin(t *testing.T) {
	ts, _, _ := newTestServer(t)
	token := login(t, ts, "sensor-1")

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/admin/stats", token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminStats(t *testing.T) {
	ts, _, _ := newTestServer(t)
	token := login(t, ts, "admin")

	sent := doRequest(t, ts, http.MethodPost, "/api/v1/frames", token, SendFrameRequest{ID: 0x100})
	defer sent.Body.Close()
	require.Equal(t, http.StatusCreated, sent.StatusCode)

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/admin/stats", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, "test-node", stats.NodeID)
	assert.Equal(t, uint64(1), stats.FramesSent)
}

func TestHealth(t *testing.T) {
	ts, _, gw := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test-node", health.NodeID)

	// A stopped gateway reports unhealthy with 503.
	require.NoError(t, gw.Stop(context.Background()))

	resp2, err := http.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
}

func TestRootInfo(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Contains(t, info, "endpoints")
}

func TestNoAuthMode(t *testing.T) {
	bus := transceiver.NewLoopback()
	gw, err := gateway.NewGateway(gateway.NewConfig("test-node"), bus)
	require.NoError(t, err)
	require.NoError(t, gw.Start(context.Background()))

	srv := NewServer(gw, Config{Port: "0", SecretKey: "test-secret", NoAuth: true}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = gw.Close()
	})

	// Frames endpoint is open without a token.
	resp := doRequest(t, ts, http.MethodPost, "/api/v1/frames", "", SendFrameRequest{ID: 0x100})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Admin endpoints still demand a real admin token.
	adminResp := doRequest(t, ts, http.MethodGet, "/api/v1/admin/stats", "", nil)
	defer adminResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, adminResp.StatusCode)
}

func TestStreamFrames(t *testing.T) {
	ts, bus, _ := newTestServer(t)
	token := login(t, ts, "sensor-1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/frames/stream?id=0x100", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Headers arrive only after the subscription is installed, so
	// frames injected from here on must show up on the stream.
	msg, err := can.NewMessage(0x100, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.NoError(t, err)
	bus.Inject(msg)

	scanner := bufio.NewScanner(resp.Body)
	var record FrameRecord
	found := false
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &record))
		found = true
		break
	}
	require.True(t, found, "no frame event received before stream ended")
	assert.Equal(t, uint32(0x100), record.ID)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, record.Data)
	assert.Equal(t, uint8(4), record.Length)
}

func TestStreamFrames_RequiresIdentifier(t *testing.T) {
	ts, _, _ := newTestServer(t)
	token := login(t, ts, "sensor-1")

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/frames/stream", token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	badResp := doRequest(t, ts, http.MethodGet, "/api/v1/frames/stream?id=banana", token, nil)
	defer badResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)
}

func TestAuth_TokenFromOtherGateway(t *testing.T) {
	ts, _, _ := newTestServer(t)

	// Mint a token with the same secret but for a different node.
	other := NewJWTAuth("test-secret", "other-node", 0)
	token, _, err := other.GenerateToken("sensor-1", false)
	require.NoError(t, err)

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/routes", token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
