// Package gemini is a streaming client for the Google Gemini API.
//
// The client speaks the raw HTTP SSE protocol
// (streamGenerateContent?alt=sse) rather than an SDK, so the coordinator
// sees exactly three things: ordered text fragments, a terminal close, or
// an error. Conversational state lives in ChatSession.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client issues streaming generateContent calls. It is stateless with
// respect to conversations and safe for concurrent use.
type Client struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	maxRetries      int
	retryBackoff    time.Duration
	httpClient      *http.Client
	logger          *zap.Logger
}

// NewClient creates a Gemini client. Zero-valued config fields fall back to
// DefaultConfig values.
func NewClient(config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig(config.APIKey)
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if strings.TrimSpace(config.Model) == "" {
		config.Model = defaults.Model
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = defaults.MaxOutputTokens
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = defaults.RetryBackoff
	}

	return &Client{
		apiKey:          config.APIKey,
		baseURL:         strings.TrimRight(config.BaseURL, "/"),
		model:           config.Model,
		maxOutputTokens: config.MaxOutputTokens,
		maxRetries:      config.MaxRetries,
		retryBackoff:    config.RetryBackoff,
		httpClient:      &http.Client{Timeout: config.Timeout},
		logger:          logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// StreamGenerate opens one streaming exchange. Contents must be the full
// transcript ending with the new user turn. Fragments arrive on the first
// channel in delivery order; at most one error arrives on the second.
// Both channels are closed when the exchange ends.
func (c *Client) StreamGenerate(ctx context.Context, systemInstruction string, contents []Content) (<-chan string, <-chan error) {
	fragments := make(chan string, 100)
	errs := make(chan error, 1)

	go func() {
		defer close(fragments)
		defer close(errs)

		// Apply the client timeout if the caller gave no deadline.
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
			defer cancel()
		}

		if c.apiKey == "" {
			errs <- fmt.Errorf("API key not configured")
			return
		}

		reqBody := Request{
			Contents: contents,
			GenerationConfig: &GenerationConfig{
				Temperature:     1.0,
				MaxOutputTokens: c.maxOutputTokens,
			},
		}
		if strings.TrimSpace(systemInstruction) != "" {
			reqBody.SystemInstruction = &Content{
				Parts: []Part{{Text: systemInstruction}},
			}
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			errs <- fmt.Errorf("failed to marshal request: %w", err)
			return
		}

		url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, c.model, c.apiKey)
		startTime := time.Now()

		var lastErr error
		for attempt := 0; attempt <= c.maxRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-time.After(c.retryBackoff * time.Duration(1<<uint(attempt-1))):
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}

			req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
			if err != nil {
				errs <- fmt.Errorf("failed to create request: %w", err)
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "text/event-stream")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				lastErr = fmt.Errorf("request failed: %w", err)
				c.logger.Debug("stream request failed, retrying",
					zap.Int("attempt", attempt), zap.Error(err))
				continue
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				lastErr = fmt.Errorf("rate limit exceeded (429): %s", strings.TrimSpace(string(body)))
				continue
			}
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				errs <- fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
				return
			}

			err = c.consumeStream(ctx, resp.Body, fragments)
			resp.Body.Close()
			if err != nil {
				c.logger.Warn("stream terminated with error",
					zap.Duration("elapsed", time.Since(startTime)), zap.Error(err))
				errs <- err
				return
			}
			c.logger.Debug("stream completed",
				zap.Duration("elapsed", time.Since(startTime)))
			return
		}

		c.logger.Warn("max retries exceeded",
			zap.Duration("elapsed", time.Since(startTime)), zap.Error(lastErr))
		errs <- fmt.Errorf("max retries exceeded: %w", lastErr)
	}()

	return fragments, errs
}

// consumeStream scans SSE lines from body and forwards text fragments in
// arrival order. Structurally invalid chunks are skipped rather than
// aborting the stream; only an embedded API error or a transport failure
// terminates it abnormally.
func (c *Client) consumeStream(ctx context.Context, body io.Reader, fragments chan<- string) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			if data == "[DONE]" {
				return nil
			}
			continue
		}

		var chunk Response
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return fmt.Errorf("API error: %s", chunk.Error.Message)
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		for _, part := range chunk.Candidates[0].Content.Parts {
			if part.Text == "" {
				continue
			}
			select {
			case fragments <- part.Text:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream error: %w", err)
	}
	return nil
}
