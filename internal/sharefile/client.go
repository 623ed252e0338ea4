package sharefile

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
)

// Request defaults.
const (
	DefaultAPIHost   = "sf-api.com"
	DefaultUserAgent = "sharefile-go/0.1"
	apiPathPrefix    = "/sf/v3/"
)

// ErrNotJSON is returned by Response.Decode when the body is plain text.
var ErrNotJSON = errors.New("sharefile: response body is not JSON")

// TokenProvider supplies the current access token. Defined at the consumer
// per "accept interfaces, return structs"; *Authenticator implements it.
type TokenProvider interface {
	AccessToken(ctx context.Context) (*AccessToken, error)
}

// Client is an HTTP client for the ShareFile v3 API. It resolves the tenant
// base URL from the token on every request, authenticates requests and
// classifies failures. It never retries.
type Client struct {
	auth       TokenProvider
	httpClient *http.Client
	logger     *slog.Logger
	apiHost    string
	userAgent  string

	// nowFunc stamps upload metadata the source cannot provide.
	nowFunc func() time.Time
}

// NewClient creates a ShareFile API client. apiHost is the API domain
// (DefaultAPIHost when empty); a token's apicp claim takes precedence.
func NewClient(
	auth TokenProvider, httpClient *http.Client, logger *slog.Logger, apiHost, userAgent string,
) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if apiHost == "" {
		apiHost = DefaultAPIHost
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		auth:       auth,
		httpClient: httpClient,
		logger:     logger,
		apiHost:    apiHost,
		userAgent:  userAgent,
		nowFunc:    time.Now,
	}
}

// Response is a successful API response. The body is decoded as JSON when
// it is valid JSON and kept as text otherwise.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	value  any
	isJSON bool
}

func newResponse(resp *http.Response, body []byte) *Response {
	r := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}

	if len(body) > 0 && json.Valid(body) {
		if err := json.Unmarshal(body, &r.value); err == nil {
			r.isJSON = true
		}
	}

	return r
}

// IsJSON reports whether the body decoded as JSON.
func (r *Response) IsJSON() bool {
	return r.isJSON
}

// Text returns the raw body.
func (r *Response) Text() string {
	return string(r.Body)
}

// Value returns the generic JSON value (map[string]any, []any, string,
// float64, bool) or nil for text bodies.
func (r *Response) Value() any {
	return r.value
}

// Decode unmarshals a JSON body into v. Returns ErrNotJSON for text bodies.
func (r *Response) Decode(v any) error {
	if !r.isJSON {
		return ErrNotJSON
	}

	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("sharefile: decoding response: %w", err)
	}

	return nil
}

// BaseURL returns the API root for tok, e.g.
// "https://acme.sf-api.com/sf/v3/".
func (c *Client) BaseURL(tok *AccessToken) string {
	host := c.apiHost
	if tok.APIControlPlane != "" {
		host = tok.APIControlPlane
	}

	return "https://" + tok.Subdomain + "." + host + apiPathPrefix
}

// Do sends an authenticated request to endpoint (relative to the API root,
// query string included). A non-nil payload is sent as JSON.
func (c *Client) Do(ctx context.Context, method, endpoint string, payload any) (*Response, error) {
	tok, err := c.auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var (
		body        io.Reader
		contentType string
		length      int64
	)

	if payload != nil {
		data, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			return nil, fmt.Errorf("sharefile: encoding request body: %w", marshalErr)
		}

		body = bytes.NewReader(data)
		contentType = "application/json"
		length = int64(len(data))
	}

	c.logger.Debug("api request",
		slog.String("method", method),
		slog.String("endpoint", endpoint),
	)

	return c.execute(ctx, tok, method, c.BaseURL(tok)+endpoint, contentType, body, length)
}

// doURL sends an authenticated request to an absolute URL handed out by
// the API (chunk upload targets).
func (c *Client) doURL(
	ctx context.Context, method, rawURL, contentType string, body io.Reader, length int64,
) (*Response, error) {
	tok, err := c.auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	return c.execute(ctx, tok, method, rawURL, contentType, body, length)
}

// execute runs one request and classifies non-2xx responses.
func (c *Client) execute(
	ctx context.Context, tok *AccessToken, method, rawURL, contentType string, body io.Reader, length int64,
) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("sharefile: creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("User-Agent", c.userAgent)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
		req.ContentLength = length
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("request failed",
			slog.String("method", method),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("sharefile: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sharefile: reading response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Warn("request returned error status",
			slog.String("method", method),
			slog.Int("status", resp.StatusCode),
		)

		return nil, classifyResponse(resp.StatusCode, resp.Status, data)
	}

	c.logger.Debug("request succeeded",
		slog.String("method", method),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(data)),
	)

	return newResponse(resp, data), nil
}

// get, post, patch and del are shorthands for Do.
func (c *Client) get(ctx context.Context, endpoint string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, endpoint, nil)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, endpoint, payload)
}

func (c *Client) patch(ctx context.Context, endpoint string, payload any) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, endpoint, payload)
}

func (c *Client) del(ctx context.Context, endpoint string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, endpoint, nil)
}

// decodeInto runs a request and decodes its JSON body into v.
func decodeInto[T any](resp *Response, err error) (*T, error) {
	if err != nil {
		return nil, err
	}

	var v T
	if decErr := resp.Decode(&v); decErr != nil {
		return nil, decErr
	}

	return &v, nil
}
