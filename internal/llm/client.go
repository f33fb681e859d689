// Package llm is the HTTP client for the vision generation endpoint.
//
// The endpoint speaks the Ollama generate protocol: a single
// non-streaming POST whose reply carries the generated text either in
// the provider-native flat shape or in an OpenAI-style chat shape. Both
// are normalized into one canonical Response before anything downstream
// sees them.
//
// Decoding options are pinned (temperature 0, fixed seed) so repeated
// generations from identical inputs are reproducible. The client never
// retries; a failed call surfaces once and the user re-triggers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrNotConfigured indicates no generation endpoint is set. Checked
	// before any network I/O so a misconfigured client fails instantly.
	ErrNotConfigured = errors.New("generation endpoint not configured")

	// ErrModelUnavailable wraps every transport, status, and parse
	// failure from the model endpoint. The cause message rides along
	// for the user notification.
	ErrModelUnavailable = errors.New("model unavailable")
)

// Pinned decoding options. Temperature 0 plus a fixed seed make the
// endpoint deterministic for identical prompts and images.
const (
	Temperature float64 = 0
	Seed        int     = 42
)

// maxResponseBytes caps how much of a reply body is read. Generated
// documents are single HTML files; anything near this size is garbage.
const maxResponseBytes = 32 << 20

// GenerateRequest is the wire format of the generation call.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Images  []string `json:"images,omitempty"`
	Stream  bool     `json:"stream"`
	Options Options  `json:"options"`
}

// Options carries the decoding parameters.
type Options struct {
	Temperature float64 `json:"temperature"`
	Seed        int     `json:"seed"`
}

// Response is the canonical shape every provider reply is normalized
// into before extraction.
type Response struct {
	Content string `json:"content"`
}

// Client performs generation calls. The endpoint and model are passed
// per call so settings changes take effect without rebuilding the
// client.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client. httpClient may be nil for a default with
// a generous timeout (vision generations are slow). logger may be nil.
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{httpClient: httpClient, logger: logger}
}

// Generate sends one non-streaming generation request and returns the
// normalized response.
//
// An empty endpoint returns ErrNotConfigured without touching the
// network. Every other failure mode wraps ErrModelUnavailable.
func (c *Client) Generate(ctx context.Context, endpoint, model, prompt, imageBase64 string) (Response, error) {
	if strings.TrimSpace(endpoint) == "" {
		return Response{}, ErrNotConfigured
	}

	body := GenerateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Options: Options{Temperature: Temperature, Seed: Seed},
	}
	if imageBase64 != "" {
		body.Images = []string{imageBase64}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("%w: encoding request: %v", ErrModelUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("%w: building request: %v", ErrModelUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("closing response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("%w: reading reply: %v", ErrModelUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, fmt.Errorf("%w: endpoint returned status %d: %s",
			ErrModelUnavailable, resp.StatusCode, truncate(string(raw), 200))
	}

	normalized, err := Normalize(raw)
	if err != nil {
		return Response{}, err
	}

	c.logger.Debug("generation round-trip complete",
		"model", model,
		"elapsed", time.Since(start),
		"reply_bytes", len(raw),
	)
	return normalized, nil
}

// Base64Payload strips the data-URL prefix from a canvas snapshot,
// returning the raw base64 the generate protocol expects. A string
// without a prefix is assumed to be bare base64 already.
func Base64Payload(imageDataURL string) string {
	if _, rest, ok := strings.Cut(imageDataURL, ","); ok {
		return rest
	}
	return imageDataURL
}

// truncate shortens s to at most n bytes, backing up to a rune
// boundary so a multi-byte character is never cut in half.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
