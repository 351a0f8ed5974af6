package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/keyxmakerx/adminconsole/internal/apperror"
	"github.com/keyxmakerx/adminconsole/internal/metrics"
	"github.com/keyxmakerx/adminconsole/internal/sanitize"
)

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 1 << 20

const tracerName = "github.com/keyxmakerx/adminconsole/internal/backend"

// Call outcomes recorded in metrics and spans.
const (
	outcomeOK        = "ok"
	outcomeRejected  = "rejected"
	outcomeUpstream  = "upstream"
	outcomeMalformed = "malformed"
)

// Client calls the backend API. It never retries: every failure is returned
// to the caller, classified as upstream, rejected or malformed.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithMetrics records call counts and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a backend client for the given base URL. The timeout
// bounds each call end to end.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckSession asks the backend whether a session token is still valid.
func (c *Client) CheckSession(ctx context.Context, token string) (*SessionCheck, error) {
	var out SessionCheck
	if err := c.do(ctx, "check_session", http.MethodPost, PathCheckSession, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login submits the first factor.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, "login", http.MethodPost, PathLogin, "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginVerify completes a two-step login with an OTP.
func (c *Client) LoginVerify(ctx context.Context, req LoginVerifyRequest) (*SessionGrant, error) {
	var out SessionGrant
	if err := c.do(ctx, "login_verify", http.MethodPost, PathLoginVerify, "", req, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, c.malformed("login_verify", errors.New("session grant without token"))
	}
	if out.ExpiresAt == "" {
		return nil, c.malformed("login_verify", errors.New("session grant without expiresAt"))
	}
	return &out, nil
}

// ForgotPassword starts a password reset for the given email.
func (c *Client) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*ForgotPasswordResult, error) {
	var out ForgotPasswordResult
	if err := c.do(ctx, "forgot_password", http.MethodPost, PathForgotPassword, "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPasswordVerify completes a password reset with an OTP.
func (c *Client) ForgotPasswordVerify(ctx context.Context, req ForgotPasswordVerifyRequest) error {
	return c.do(ctx, "forgot_password_verify", http.MethodPost, PathForgotPasswordVerify, "", req, nil)
}

// ResendOTP asks the backend to issue a fresh code.
func (c *Client) ResendOTP(ctx context.Context, req ResendOTPRequest) error {
	return c.do(ctx, "resend_otp", http.MethodPost, PathResendOTP, "", req, nil)
}

// Settings loads the backend's page configuration.
func (c *Client) Settings(ctx context.Context, token string) (Settings, error) {
	var out Settings
	if err := c.do(ctx, "settings", http.MethodGet, PathSettings, token, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Settings{}
	}
	return out, nil
}

// do performs one call and decodes the envelope. When out is non-nil and the
// envelope carries data, data is decoded into out.
func (c *Client) do(ctx context.Context, endpoint, method, path, token string, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "backend."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("backend.path", path),
		),
	)
	start := time.Now()
	defer func() {
		outcome := classify(err)
		span.SetAttributes(attribute.String("backend.outcome", outcome))
		if err != nil && outcome != outcomeRejected {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		c.metrics.ObserveBackendCall(endpoint, outcome, time.Since(start))
	}()

	var reader io.Reader
	if body != nil {
		buf, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return apperror.NewInternal(fmt.Errorf("encoding %s request: %w", endpoint, marshalErr))
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("building %s request: %w", endpoint, err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.NewUpstream(fmt.Errorf("calling %s: %w", endpoint, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperror.NewUpstream(fmt.Errorf("reading %s response: %w", endpoint, err))
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return apperror.NewUpstream(fmt.Errorf("%s returned HTTP %d", endpoint, resp.StatusCode))
		}
		return c.malformed(endpoint, fmt.Errorf("decoding %s envelope (HTTP %d): %w", endpoint, resp.StatusCode, err))
	}

	if !env.Success {
		return apperror.NewRejected(sanitize.Message(env.Msg))
	}

	if out != nil && env.hasData() {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return c.malformed(endpoint, fmt.Errorf("decoding %s data: %w", endpoint, err))
		}
	}
	return nil
}

// malformed logs and wraps a response that could not be interpreted.
func (c *Client) malformed(endpoint string, err error) error {
	slog.Warn("malformed backend response",
		slog.String("endpoint", endpoint),
		slog.Any("error", err),
	)
	return apperror.NewMalformed(err)
}

// classify maps a call error to its metrics outcome label.
func classify(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case apperror.IsType(err, apperror.TypeRejected):
		return outcomeRejected
	case apperror.IsType(err, apperror.TypeMalformed):
		return outcomeMalformed
	default:
		return outcomeUpstream
	}
}
