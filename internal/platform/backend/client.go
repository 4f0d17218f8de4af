// Package backend is the gateway's client for the lab backend REST API.
// Every call is signed with the session's bearer token; a 401 triggers one
// token refresh and one retry.
package backend

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

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/middleware"
	"github.com/akin/akin/internal/platform/session"
)

const (
	refreshPath      = "/auth/refresh"
	maxResponseBytes = 10 << 20
	refreshTimeout   = 10 * time.Second
)

// Credentials is the session a call runs as. *session.Store satisfies it.
type Credentials interface {
	Tokens() session.Tokens
	UpdateTokens(ctx context.Context, tokens session.Tokens) error
	Logout(ctx context.Context) error
}

// StaticToken signs calls with a fixed token, such as the akin-token cookie
// value when no stored session exists. It cannot refresh.
type StaticToken string

func (t StaticToken) Tokens() session.Tokens { return session.Tokens{AccessToken: string(t)} }

func (StaticToken) UpdateTokens(context.Context, session.Tokens) error {
	return errors.New("static token cannot be refreshed")
}

func (StaticToken) Logout(context.Context) error { return nil }

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RefreshSkew refreshes JWT access tokens that expire within this window
	// before sending. Zero disables proactive refresh.
	RefreshSkew time.Duration
	HTTPClient  *http.Client
	Logger      zerolog.Logger
	Metrics     *Metrics
}

// Client calls the lab backend.
type Client struct {
	base    *url.URL
	http    *http.Client
	logger  zerolog.Logger
	metrics *Metrics
	skew    time.Duration
	now     func() time.Time

	refreshes singleflight.Group
}

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		base:    base,
		http:    hc,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		skew:    cfg.RefreshSkew,
		now:     time.Now,
	}, nil
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// SkipRefresh returns a 401 as an *Error instead of refreshing.
	SkipRefresh bool
}

// Get decodes GET path into out.
func (c *Client) Get(ctx context.Context, creds Credentials, path string, query url.Values, out any) error {
	return c.Do(ctx, creds, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post sends body and decodes the response into out (nil to discard).
func (c *Client) Post(ctx context.Context, creds Credentials, path string, body, out any) error {
	return c.Do(ctx, creds, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Patch sends body and decodes the response into out (nil to discard).
func (c *Client) Patch(ctx context.Context, creds Credentials, path string, body, out any) error {
	return c.Do(ctx, creds, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

// Delete issues DELETE path.
func (c *Client) Delete(ctx context.Context, creds Credentials, path string) error {
	return c.Do(ctx, creds, Request{Method: http.MethodDelete, Path: path}, nil)
}

// Do performs req as creds. creds may be nil for unauthenticated endpoints.
// A 401 on the first attempt refreshes the tokens and retries exactly once;
// the attempt counter is local to this call.
func (c *Client) Do(ctx context.Context, creds Credentials, req Request, out any) error {
	var payload []byte
	if req.Body != nil {
		var err error
		if payload, err = json.Marshal(req.Body); err != nil {
			return fmt.Errorf("backend: encode %s %s: %w", req.Method, req.Path, err)
		}
	}

	if creds != nil && !req.SkipRefresh {
		c.refreshIfExpiring(ctx, creds)
	}

	retried := req.SkipRefresh
	for {
		var tokens session.Tokens
		if creds != nil {
			tokens = creds.Tokens()
		}

		status, body, err := c.send(ctx, req, payload, tokens.AccessToken)
		if err != nil {
			return err
		}

		if status == http.StatusUnauthorized && creds != nil && !retried {
			retried = true
			if err := c.refresh(ctx, creds, tokens); err != nil {
				return err
			}
			continue
		}

		if status < 200 || status > 299 {
			return &Error{StatusCode: status, Message: errorMessage(body), Method: req.Method, Path: req.Path}
		}
		if out == nil || len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("backend: decode %s %s: %w", req.Method, req.Path, err)
		}
		return nil
	}
}

func (c *Client) send(ctx context.Context, req Request, payload []byte, token string) (int, []byte, error) {
	// req.Path is already escaped; keep RawPath so ids are not escaped twice.
	u := *c.base
	u.RawPath = strings.TrimRight(c.base.EscapedPath(), "/") + "/" + strings.TrimLeft(req.Path, "/")
	p, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return 0, nil, fmt.Errorf("backend: bad path %q: %w", req.Path, err)
	}
	u.Path = p
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return 0, nil, fmt.Errorf("backend: build %s %s: %w", req.Method, req.Path, err)
	}
	hreq.Header.Set("Accept", "application/json")
	if payload != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		hreq.Header.Set("Authorization", "Bearer "+token)
	}
	rid := middleware.RequestIDFromContext(ctx)
	if rid == "" {
		rid = newCorrelationID()
	}
	hreq.Header.Set(middleware.RequestIDHeader, rid)

	start := c.now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		c.metrics.observe(req.Method, req.Path, "error", time.Since(start))
		c.logger.Warn().Err(err).Str("request_id", rid).Str("method", req.Method).Str("path", req.Path).Msg("backend call failed")
		if ctx.Err() != nil {
			return 0, nil, fmt.Errorf("backend: %s %s: %w", req.Method, req.Path, ctx.Err())
		}
		return 0, nil, &Error{StatusCode: http.StatusBadGateway, Method: req.Method, Path: req.Path}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("backend: read %s %s: %w", req.Method, req.Path, err)
	}

	c.metrics.observe(req.Method, req.Path, strconv.Itoa(resp.StatusCode), time.Since(start))
	c.logger.Debug().
		Str("request_id", rid).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend call")

	return resp.StatusCode, data, nil
}

// refresh obtains new tokens after a 401 on a request signed with used.
// Another request may already have rotated the tokens, in which case the
// retry simply uses them.
func (c *Client) refresh(ctx context.Context, creds Credentials, used session.Tokens) error {
	if cur := creds.Tokens(); cur.AccessToken != "" && cur.AccessToken != used.AccessToken {
		return nil
	}
	if used.RefreshToken == "" {
		c.expire(ctx, creds, "no refresh token")
		return ErrSessionExpired
	}

	v, err, shared := c.refreshes.Do(used.RefreshToken, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.Refresh(rctx, used.RefreshToken)
	})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("backend: refresh: %w", ctx.Err())
		}
		c.expire(ctx, creds, err.Error())
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	tokens := v.(session.Tokens)
	if err := creds.UpdateTokens(ctx, tokens); err != nil {
		return fmt.Errorf("backend: store refreshed tokens: %w", err)
	}
	c.logger.Debug().Bool("shared", shared).Msg("access token refreshed")
	return nil
}

// refreshIfExpiring refreshes a JWT access token that is about to expire.
// Failures are left for the 401 path to handle.
func (c *Client) refreshIfExpiring(ctx context.Context, creds Credentials) {
	if c.skew <= 0 {
		return
	}
	tokens := creds.Tokens()
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return
	}
	info, err := auth.InspectToken(tokens.AccessToken)
	if err != nil || !info.ExpiresWithin(c.now(), c.skew) {
		return
	}
	v, err, _ := c.refreshes.Do(tokens.RefreshToken, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.Refresh(rctx, tokens.RefreshToken)
	})
	if err != nil {
		c.logger.Debug().Err(err).Msg("proactive refresh failed")
		return
	}
	if err := creds.UpdateTokens(ctx, v.(session.Tokens)); err != nil {
		c.logger.Warn().Err(err).Msg("store proactively refreshed tokens")
	}
}

func (c *Client) expire(ctx context.Context, creds Credentials, reason string) {
	c.logger.Info().Str("reason", reason).Msg("backend session expired, logging out")
	if err := creds.Logout(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error().Err(err).Msg("logout after failed refresh")
	}
}
