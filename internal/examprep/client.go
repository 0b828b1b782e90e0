// Package examprep is the HTTP client for the remote EXAMPREP taxonomy service
// and the question-generation endpoint.
package examprep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/xeipuuv/gojsonschema"
)

const defaultBaseURL = "https://ai.excelsoftcorp.com"

// Wire paths. These must match the remote service exactly.
const (
	pathLogin     = "/aiapps/AIToolKit/UnitPlanGen/check-user"
	pathGrades    = "/aiapps/EXAMPREP/get_classes"
	pathSubjects  = "/aiapps/EXAMPREP/get_subject"
	pathChapters  = "/aiapps/EXAMPREP/get_chapters"
	pathOutcomes  = "/aiapps/EXAMPREP/get-elo-details"
	pathGenerate  = "/ExcelAIQuizGen/generate-questions"
	maxErrBodyLen = 512
)

// Client talks to the EXAMPREP service.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the service base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// New creates a new EXAMPREP client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("examprep %s returned status %d: %s", e.Path, e.StatusCode, e.Body)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, schema *gojsonschema.Schema, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, path, schema, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, schema *gojsonschema.Schema, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, schema, out)
}

func (c *Client) do(req *http.Request, path string, schema *gojsonschema.Schema, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: truncate(string(respBody), maxErrBodyLen)}
	}

	if err := validate(path, schema, respBody); err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &DecodeError{Path: path, Problems: []string{err.Error()}}
	}

	slog.Debug("examprep request completed", "path", path, "status", resp.StatusCode, "bytes", len(respBody))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
