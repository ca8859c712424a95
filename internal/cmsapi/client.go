// Package cmsapi talks to the content backend and the media host.
package cmsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"firmsite/pkg/logger"
)

var ErrNotConfigured = errors.New("backend url is not configured")

// APIError is a non-2xx backend response.
type APIError struct {
	Operation string
	Status    int
	Message   string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Operation, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: backend returned %d", e.Operation, e.Status)
}

// UserMessage is the message the backend meant for the user, if any.
func (e *APIError) UserMessage() string {
	return e.Message
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Options struct {
	BaseURL        string
	MediaUploadURL string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

type Client struct {
	baseURL  string
	mediaURL string
	http     *http.Client
}

var (
	metricsOnce     sync.Once
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firmsite",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Requests sent to the content backend and media host",
		}, []string{"operation", "status"})

		requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "firmsite",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Latency of content backend and media host requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"})
	})
}

func New(opts Options) *Client {
	initMetrics()

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		mediaURL: strings.TrimSpace(opts.MediaUploadURL),
		http:     httpClient,
	}
}

type request struct {
	operation   string
	method      string
	url         string
	bearer      string
	body        io.Reader
	contentType string
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) endpoint(path string) (string, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}
	return c.baseURL + path, nil
}

func jsonBody(payload any) (io.Reader, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// send performs req and decodes a 2xx body into out when out is not nil.
func (c *Client) send(ctx context.Context, req request, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, req.body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", req.operation, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	requestDuration.WithLabelValues(req.operation).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(req.operation, "error").Inc()
		logger.Warn("Backend request failed", map[string]interface{}{
			"operation": req.operation,
			"error":     err.Error(),
		})
		return fmt.Errorf("%s: %w", req.operation, err)
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(req.operation, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", req.operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Operation: req.operation, Status: resp.StatusCode}
		var body errorBody
		if json.Unmarshal(data, &body) == nil {
			apiErr.Message = body.Message
			if apiErr.Message == "" {
				apiErr.Message = body.Error
			}
		}
		logger.Debug("Backend rejected request", map[string]interface{}{
			"operation": req.operation,
			"status":    resp.StatusCode,
			"message":   apiErr.Message,
		})
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", req.operation, err)
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, operation, method, path, bearer string, payload any, out any) error {
	url, err := c.endpoint(path)
	if err != nil {
		return err
	}

	req := request{operation: operation, method: method, url: url, bearer: bearer}
	if payload != nil {
		body, err := jsonBody(payload)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", operation, err)
		}
		req.body = body
		req.contentType = "application/json"
	}

	return c.send(ctx, req, out)
}
