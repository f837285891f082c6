package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/goliatone/go-assistant/chat"

// Client calls a remote chat endpoint speaking the Request/Response contract.
type Client struct {
	endpoint string
	http     *http.Client
	logger   assistant.Logger
	tracer   trace.Tracer
	headers  map[string]string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds a single HTTP exchange.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			cp := *c.http
			cp.Timeout = d
			c.http = &cp
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger assistant.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client posting to endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: strings.TrimSpace(endpoint),
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   assistant.NewFmtLogger(nil),
		tracer:   otel.Tracer(instrumentationName),
		headers:  map[string]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Reply posts req and decodes the reply. Every failure carries
// COLLABORATOR_UNAVAILABLE so callers can fall back.
func (c *Client) Reply(ctx context.Context, req Request) (Response, error) {
	ctx, span := c.tracer.Start(ctx, "chat.reply", trace.WithAttributes(
		attribute.String("chat.endpoint", c.endpoint),
		attribute.Int("chat.turns", len(req.Messages)),
	))
	defer span.End()

	resp, err := c.do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat reply failed")
		return Response{}, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request) (Response, error) {
	if c.endpoint == "" {
		return Response{}, unavailable("chat endpoint not configured", nil, nil)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, errors.Wrap(err, errors.CategoryInternal, "encode chat request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, unavailable("build chat request", err, nil)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, unavailable("chat request failed", err, map[string]any{"retryable": true})
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 4<<20))
	if err != nil {
		return Response{}, unavailable("read chat response", err, map[string]any{"retryable": true})
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		c.logger.Warn("chat collaborator returned status=%d", httpResp.StatusCode)
		return Response{}, unavailable(fmt.Sprintf("chat collaborator returned %d", httpResp.StatusCode), nil, map[string]any{
			"status":    httpResp.StatusCode,
			"body":      snippet(data),
			"retryable": httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests,
		})
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return Response{}, unavailable("decode chat response", err, map[string]any{"body": snippet(data)})
	}
	if strings.TrimSpace(out.Message) == "" && out.Component == nil {
		return Response{}, unavailable("chat collaborator returned an empty reply", nil, nil)
	}
	return out, nil
}

// Retryable reports whether err is worth another attempt: transport errors,
// 5xx and 429 replies.
func Retryable(err error) bool {
	var ge *errors.Error
	if !errors.As(err, &ge) {
		return true
	}
	if v, ok := ge.Metadata["retryable"].(bool); ok {
		return v
	}
	return false
}

func unavailable(message string, source error, meta map[string]any) *errors.Error {
	return assistant.NewError(assistant.ErrCollaboratorUnavailable, message, source, meta)
}

func snippet(data []byte) string {
	const max = 256
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max]
	}
	return s
}
