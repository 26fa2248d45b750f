package busclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StreamClient tails live frames from the gateway over Server-Sent Events
type StreamClient struct {
	client     *Client
	httpClient *http.Client
	frames     chan FrameRecord
	errors     chan error
	done       chan struct{}
	cancel     context.CancelFunc
	response   *http.Response
}

// StreamConfig configures the streaming client
type StreamConfig struct {
	// ID is the message identifier to tail
	ID uint32

	// BufferSize for the frame channel
	BufferSize int

	// ReconnectDelay for automatic reconnection
	ReconnectDelay time.Duration

	// MaxReconnectAttempts (0 = infinite)
	MaxReconnectAttempts int
}

// SetDefaults sets reasonable default values for StreamConfig
func (sc *StreamConfig) SetDefaults() {
	if sc.BufferSize == 0 {
		sc.BufferSize = 100
	}
	if sc.ReconnectDelay == 0 {
		sc.ReconnectDelay = 2 * time.Second
	}
}

// Stream opens an SSE stream of live frames for a message identifier.
// The gateway installs a route for the identifier if none exists.
func (c *Client) Stream(ctx context.Context, config StreamConfig) (*StreamClient, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	config.SetDefaults()

	streamCtx, cancel := context.WithCancel(ctx)

	streamClient := &StreamClient{
		client: c,
		// The shared client carries a request timeout that would cut
		// long-lived streams short; cancellation comes from the context.
		httpClient: &http.Client{},
		frames:     make(chan FrameRecord, config.BufferSize),
		errors:     make(chan error, 10),
		done:       make(chan struct{}),
		cancel:     cancel,
	}

	go streamClient.startStreaming(streamCtx, config)

	return streamClient, nil
}

// Frames returns the channel for receiving live frames
func (sc *StreamClient) Frames() <-chan FrameRecord {
	return sc.frames
}

// Errors returns the channel for receiving errors
func (sc *StreamClient) Errors() <-chan error {
	return sc.errors
}

// Done returns a channel that's closed when streaming ends
func (sc *StreamClient) Done() <-chan struct{} {
	return sc.done
}

// Close stops the streaming client and cleans up resources
func (sc *StreamClient) Close() error {
	sc.cancel()

	if sc.response != nil {
		sc.response.Body.Close()
	}

	// Wait for streaming goroutine to finish
	<-sc.done

	return nil
}

// startStreaming handles the SSE streaming loop with reconnection
func (sc *StreamClient) startStreaming(ctx context.Context, config StreamConfig) {
	defer close(sc.done)
	defer close(sc.frames)
	defer close(sc.errors)

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := sc.connectAndStream(ctx, config)
		if err != nil {
			select {
			case sc.errors <- fmt.Errorf("streaming error: %w", err):
			case <-ctx.Done():
				return
			default:
			}
		}

		if config.MaxReconnectAttempts > 0 && attempts >= config.MaxReconnectAttempts {
			select {
			case sc.errors <- fmt.Errorf("max reconnect attempts (%d) exceeded", config.MaxReconnectAttempts):
			case <-ctx.Done():
			}
			return
		}

		attempts++

		// Wait before reconnecting
		select {
		case <-time.After(config.ReconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

// connectAndStream establishes the SSE connection and processes frames
func (sc *StreamClient) connectAndStream(ctx context.Context, config StreamConfig) error {
	streamURL := sc.client.baseURL.ResolveReference(&url.URL{Path: "/api/v1/frames/stream"})
	values := streamURL.Query()
	values.Set("id", fmt.Sprintf("%d", config.ID))
	streamURL.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", streamURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create streaming request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Authorization", "Bearer "+sc.client.token)

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to stream: %w", err)
	}

	sc.response = resp
	defer func() {
		resp.Body.Close()
		sc.response = nil
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("streaming failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	return sc.processSSEStream(ctx, resp.Body)
}

// processSSEStream reads and parses Server-Sent Events into frame records
func (sc *StreamClient) processSSEStream(ctx context.Context, reader io.Reader) error {
	scanner := bufio.NewScanner(reader)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Text()

		if strings.HasPrefix(line, "data: ") {
			jsonData := strings.TrimPrefix(line, "data: ")

			var record FrameRecord
			if err := json.Unmarshal([]byte(jsonData), &record); err != nil {
				// Report but keep the stream alive
				select {
				case sc.errors <- fmt.Errorf("failed to parse frame record: %w", err):
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				continue
			}

			select {
			case sc.frames <- record:
			case <-ctx.Done():
				return ctx.Err()
			default:
				// Channel full, drop the frame
			}
		}
		// Keepalive comments, blank separators and other SSE fields are skipped
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading frame stream: %w", err)
	}

	return nil
}
