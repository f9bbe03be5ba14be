// Package apiclient is the authenticated JSON client of the remote business
// API, plus the typed endpoints the client core consumes.
//
// Do is the single request primitive: it attaches the bearer token, retries
// exactly once after a token refresh on 401, paces outbound calls with a
// token bucket, traces each request, and turns non-2xx answers into
// *APIError. Callers decide what a failure means through Classify.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// TokenSource supplies bearer tokens. Refresh is called once per request
// after a 401; returning an error ends the attempt with ErrUnauthorized.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that never refreshes.
type StaticToken string

// Token returns the token itself.
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Refresh always fails: a static token cannot be renewed.
func (s StaticToken) Refresh(context.Context) (string, error) {
	return "", fmt.Errorf("static token cannot be refreshed")
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RPS        float64 // <= 0 disables pacing
	Burst      int
	Tokens     TokenSource
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	tracer  trace.Tracer
	log     zerolog.Logger
}

// New builds a Client from opts.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		tokens:  opts.Tokens,
		tracer:  otel.Tracer("apiclient"),
		log:     log.With().Str("component", "apiclient").Logger(),
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return c
}

// Do sends a JSON request and decodes a 2xx body into out (when non-nil).
//
// Errors:
//   - wrapped ErrNetwork for transport failures
//   - wrapped ErrUnauthorized when a 401 survives one refresh
//   - *APIError for any other non-2xx status
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	err := c.do(ctx, method, path, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		payload = b
	}

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	status, respBody, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		if c.tokens == nil {
			return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
		}
		fresh, rerr := c.tokens.Refresh(ctx)
		if rerr != nil {
			return fmt.Errorf("%s %s: refresh: %v: %w", method, path, rerr, ErrUnauthorized)
		}
		c.log.Debug().Str("path", path).Msg("token refreshed; retrying")
		status, respBody, err = c.send(ctx, method, path, payload, fresh)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
		}
	}

	if status < 200 || status > 299 {
		return parseAPIError(status, respBody)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	t, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("token: %v: %w", err, ErrUnauthorized)
	}
	return t, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("%w: %w", ErrNetwork, err)
		}
	}

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return 0, nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	limit := int64(-1)
	if resp.StatusCode >= 300 {
		limit = maxErrorBody
	}
	var respBody []byte
	if limit > 0 {
		respBody, err = io.ReadAll(io.LimitReader(resp.Body, limit))
	} else {
		respBody, err = io.ReadAll(resp.Body)
	}
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read %s %s: %w", ErrNetwork, method, path, err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api call")
	return resp.StatusCode, respBody, nil
}

// parseAPIError extracts the server's message from {"error": "..."} or
// {"message": "..."} bodies, falling back to the status text.
func parseAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	var env struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Code    string          `json:"code"`
	}
	if json.Unmarshal(body, &env) == nil {
		e.Code = env.Code
		var s string
		if len(env.Error) > 0 && json.Unmarshal(env.Error, &s) == nil && s != "" {
			e.Message = s
		} else if env.Message != "" {
			e.Message = env.Message
		} else if len(env.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
				Code    string `json:"code"`
			}
			if json.Unmarshal(env.Error, &nested) == nil {
				e.Message = nested.Message
				if e.Code == "" {
					e.Code = nested.Code
				}
			}
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
