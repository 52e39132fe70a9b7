// Package transform calls the remote conversion service behind every tool.
// The service exposes POST <base>/encoder/<path> endpoints taking {text, secret}
// and answering {result} or, on failure, {detail}.
package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/umputun/toolkit/app/tools"
)

const maxResponseSize = 4 * 1024 * 1024

// Client talks to the remote transform service
type Client struct {
	Params
	http *http.Client
}

// Params to make new Client
type Params struct {
	BaseURL string
	Timeout time.Duration
}

// Request is a single transform call
type Request struct {
	Tool      tools.Descriptor
	Direction tools.Direction
	Text      string
	Secret    string
}

// GenerateRequest holds generator options, ignored by generators without options
type GenerateRequest struct {
	Paragraphs int
	UseLorem   bool
}

// RemoteError is a non-2xx answer from the service
type RemoteError struct {
	Status int
	Detail string
}

func (e *RemoteError) Error() string { return e.Detail }

// payload is the wire form of the request body
type payload struct {
	Text       string `json:"text"`
	Secret     string `json:"secret,omitempty"`
	Algorithm  string `json:"algorithm,omitempty"`
	Indent     int    `json:"indent,omitempty"`
	Paragraphs int    `json:"paragraphs,omitempty"`
	UseLorem   bool   `json:"use_lorem,omitempty"`
}

// New makes a client for the service at params.BaseURL
func New(params Params) *Client {
	if params.Timeout <= 0 {
		params.Timeout = 30 * time.Second
	}
	params.BaseURL = strings.TrimSuffix(params.BaseURL, "/")
	return &Client{Params: params, http: &http.Client{Timeout: params.Timeout}}
}

// Transform sends text (and secret for tools requiring one) to the tool endpoint and returns the result
func (c *Client) Transform(ctx context.Context, req Request) (string, error) {
	body := payload{Text: req.Text}
	if req.Tool.RequiresSecret {
		body.Secret = req.Secret
	}
	switch req.Tool.ID {
	case "jwt":
		body.Algorithm = "HS256"
	case "json-format":
		body.Indent = 2
	}
	return c.post(ctx, req.Tool.Endpoint(req.Direction), body)
}

// Generate calls a generator endpoint, text is always empty
func (c *Client) Generate(ctx context.Context, path string, req GenerateRequest) (string, error) {
	return c.post(ctx, path, payload{Paragraphs: req.Paragraphs, UseLorem: req.UseLorem})
}

func (c *Client) post(ctx context.Context, path string, body payload) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.BaseURL + "/encoder/" + strings.TrimPrefix(path, "/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	reqID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", reqID)

	st := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("transform request to %s failed: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	log.Printf("[DEBUG] transform %s, status %d, req %s, %v", path, resp.StatusCode, reqID, time.Since(st))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RemoteError{Status: resp.StatusCode, Detail: errorDetail(resp.StatusCode, respBody)}
	}

	var result struct {
		Result *string `json:"result"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Result == nil {
		return "", errors.New("response has no result")
	}
	return *result.Result, nil
}

// errorDetail extracts a string "detail" from the error body, falls back to the status text
func errorDetail(status int, body []byte) string {
	var e struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if s, ok := e.Detail.(string); ok && s != "" {
			return s
		}
	}
	if txt := http.StatusText(status); txt != "" {
		return txt
	}
	return fmt.Sprintf("status %d", status)
}

// Detail returns the message to show for a failed call, the remote detail when there is one
func Detail(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Detail
	}
	return err.Error()
}
