package sharefile

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"
)

// mockResponse is one canned reply of mockTransport.
type mockResponse struct {
	status int
	body   string
	err    error // transport failure instead of a response
}

// recordedRequest is a request seen by mockTransport, body included.
type recordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// mockTransport replays queued responses in order and records every
// request it receives.
type mockTransport struct {
	mu        sync.Mutex
	responses []mockResponse
	history   []recordedRequest
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte

	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()

		if err != nil {
			return nil, err
		}

		body = data
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, recordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})

	if len(m.responses) == 0 {
		return nil, errors.New("mock transport: no responses queued")
	}

	next := m.responses[0]
	m.responses = m.responses[1:]

	if next.err != nil {
		return nil, next.err
	}

	return &http.Response{
		StatusCode: next.status,
		Status:     http.StatusText(next.status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(next.body)),
		Request:    req,
	}, nil
}

func (m *mockTransport) requests() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]recordedRequest(nil), m.history...)
}

func (m *mockTransport) last() recordedRequest {
	reqs := m.requests()

	return reqs[len(reqs)-1]
}

// reply queues a successful response.
func reply(status int, body string) mockResponse {
	return mockResponse{status: status, body: body}
}

// staticAuth is a TokenProvider returning a fixed token.
type staticAuth struct {
	tok *AccessToken
	err error
}

func (s staticAuth) AccessToken(context.Context) (*AccessToken, error) {
	return s.tok, s.err
}

func testToken() *AccessToken {
	return &AccessToken{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		TokenType:    "bearer",
		Subdomain:    "subdomain",
		Expiry:       time.Now().Add(time.Hour),
	}
}

// newMockClient returns a Client for subdomain.sf-api.com whose transport
// replays responses.
func newMockClient(t *testing.T, responses ...mockResponse) (*Client, *mockTransport) {
	t.Helper()

	mt := &mockTransport{responses: responses}
	c := NewClient(staticAuth{tok: testToken()}, &http.Client{Transport: mt}, testLogger(t), "", "test-agent")

	return c, mt
}

// testLogger returns a debug-level logger so client output shows up in test
// failures.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

const apiRoot = "https://subdomain.sf-api.com/sf/v3/"
