// Package qa is a client for the notes question-answering service.
package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrEmptyQuestion is returned for blank questions and queries.
var ErrEmptyQuestion = errors.New("question is empty")

// Client calls the QA service.
type Client struct {
	baseURL string
	topK    int
	client  *http.Client
	log     *zap.Logger
}

// NewClient creates a client for baseURL. topK <= 0 uses 5.
func NewClient(baseURL string, timeout time.Duration, topK int, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if topK <= 0 {
		topK = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		topK:    topK,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Health reports whether the service answers /health with status ok.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("qa service status %q", out.Status)
	}
	return nil
}

// Search returns the k best matching note chunks for q. k <= 0 uses the
// client default.
func (c *Client) Search(ctx context.Context, q string, k int) (*SearchResponse, error) {
	if strings.TrimSpace(q) == "" {
		return nil, ErrEmptyQuestion
	}
	if k <= 0 {
		k = c.topK
	}
	v := url.Values{"q": {q}, "k": {strconv.Itoa(k)}}
	var out SearchResponse
	if err := c.do(ctx, http.MethodGet, "/search?"+v.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask posts a question and returns the answer with its supporting contexts.
func (c *Client) Ask(ctx context.Context, question string, topK int) (*AskResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if topK <= 0 {
		topK = c.topK
	}
	var out AskResponse
	if err := c.do(ctx, http.MethodPost, "/ask", AskRequest{Question: question, TopK: topK}, &out); err != nil {
		return nil, err
	}
	c.log.Debug("qa answer", zap.Int("contexts", len(out.Contexts)))
	return &out, nil
}

// Uploads lists the files the service holds.
func (c *Client) Uploads(ctx context.Context) (*UploadList, error) {
	var out UploadList
	if err := c.do(ctx, http.MethodGet, "/uploads", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("qa request failed: %w", err)
	}
	defer resp.Body.Close()
	c.log.Debug("qa request", zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// StatusError is a non-200 reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("qa service returned status %d: %s", e.Code, e.Body)
}
