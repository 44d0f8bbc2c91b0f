// Package api is the HTTP client for the fixforge backend.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fixforge-client/pkg/middleware"
	"fixforge-client/pkg/models"

	"go.uber.org/zap"
)

var ErrSubmitFailed = errors.New("failed to submit bug")

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
	cause      error
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *HTTPError) Unwrap() error { return e.cause }

const maxErrorBody = 512

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient returns a client for the backend at baseURL. The default HTTP
// client uses the given timeout and stamps requests with X-Trace-Id.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &middleware.TraceTransport{},
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitBug posts the draft to /bugs/submit.
func (c *Client) SubmitBug(ctx context.Context, d models.BugReportDraft) (*models.SubmissionResult, error) {
	body, contentType, err := EncodeDraft(d)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bugs/submit", body)
	if err != nil {
		return nil, fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	var result models.SubmissionResult
	if err := c.do(req, "submit bug", ErrSubmitFailed, false, &result); err != nil {
		return nil, err
	}

	c.logger.Info("bug submitted",
		zap.String("bug_id", result.BugID.String()),
		zap.Bool("is_duplicate", result.IsDuplicate),
		zap.Bool("has_solutions", result.HasSolutions))
	return &result, nil
}

// ClusterSuggestions asks whether the bug resembles earlier reports. The body
// is read whatever the status code; only unreadable responses are errors.
func (c *Client) ClusterSuggestions(ctx context.Context, bugID string) (*models.ClusterSuggestion, error) {
	endpoint := c.baseURL + "/clusters/" + url.PathEscape(bugID) + "/suggestions"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build cluster request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var suggestion models.ClusterSuggestion
	if err := c.do(req, "cluster suggestions", nil, true, &suggestion); err != nil {
		return nil, err
	}
	return &suggestion, nil
}

// do sends req and decodes the JSON body into out. With anyStatus set, a
// non-2xx body that decodes is accepted; otherwise non-2xx is an *HTTPError.
func (c *Client) do(req *http.Request, op string, sentinel error, anyStatus bool, out interface{}) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if sentinel != nil {
			return fmt.Errorf("%s: %w: %w", op, sentinel, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend response",
		zap.String("op", op),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if anyStatus && json.Unmarshal(snippet, out) == nil {
			c.logger.Warn("using body of non-2xx response",
				zap.String("op", op),
				zap.Int("status", resp.StatusCode))
			return nil
		}
		return &HTTPError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
			cause:      sentinel,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if sentinel != nil {
			return fmt.Errorf("%s: decode response: %w: %w", op, sentinel, err)
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
