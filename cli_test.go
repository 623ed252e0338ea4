package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/sharefile-go/internal/config"
)

// Hosts the test profile talks to.
const (
	testTokenURL = "https://acme.sharefile.com/oauth/token"
	testAPIRoot  = "https://acme.sf-api.com/sf/v3/"
)

const testTokenBody = `{"access_token":"tok","refresh_token":"ref","token_type":"bearer",` +
	`"expires_in":28800,"subdomain":"acme","apicp":"sf-api.com","appcp":"sharefile.com"}`

// route answers one request. Returning status 0 means "not handled".
type route func(req *http.Request, body []byte) (int, string)

// recordedRequest is one request seen by routeTransport.
type recordedRequest struct {
	Method string
	URL    string
	Body   []byte
}

// routeTransport dispatches requests by "METHOD URL-without-query" and
// records them. Safe for the parallel requests of rm.
type routeTransport struct {
	mu      sync.Mutex
	routes  map[string]route
	history []recordedRequest
}

func newRouteTransport() *routeTransport {
	rt := &routeTransport{routes: make(map[string]route)}
	rt.handle(http.MethodPost, testTokenURL, 200, testTokenBody)

	return rt
}

// handle registers a fixed reply.
func (rt *routeTransport) handle(method, rawURL string, status int, body string) {
	rt.handleFunc(method, rawURL, func(*http.Request, []byte) (int, string) { return status, body })
}

func (rt *routeTransport) handleFunc(method, rawURL string, fn route) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.routes[method+" "+rawURL] = fn
}

func (rt *routeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte

	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()

		if err != nil {
			return nil, err
		}

		body = data
	}

	u := *req.URL
	u.RawQuery = ""

	rt.mu.Lock()
	rt.history = append(rt.history, recordedRequest{Method: req.Method, URL: req.URL.String(), Body: body})
	fn := rt.routes[req.Method+" "+u.String()]
	rt.mu.Unlock()

	status, respBody := http.StatusNotFound, `{"code":"NotFound","message":{"lang":"en-US","value":"no route"}}`
	if fn != nil {
		status, respBody = fn(req, body)
	}

	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(respBody)),
		Request:    req,
	}, nil
}

// requests returns the recorded requests whose URL starts with prefix.
func (rt *routeTransport) requests(method, prefix string) []recordedRequest {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var out []recordedRequest

	for _, r := range rt.history {
		if r.Method == method && strings.HasPrefix(r.URL, prefix) {
			out = append(out, r)
		}
	}

	return out
}

const testProfileConfig = `
[profile.default]
hostname = "acme.sharefile.com"
client_id = "cid"
client_secret = "csecret"
username = "user@acme.com"
`

// setupCLI writes a config with the given extra TOML, points the
// environment at it and installs rt as the HTTP transport.
func setupCLI(t *testing.T, rt *routeTransport, extra string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testProfileConfig+extra), 0o600))

	t.Setenv(config.EnvConfig, path)
	t.Setenv(config.EnvProfile, "")
	t.Setenv(config.EnvPassword, "pw")
	t.Setenv(config.EnvClientSecret, "")

	oldTransport := httpTransport
	httpTransport = func() http.RoundTripper { return rt }

	oldStderrTTY := stderrIsTerminal
	stderrIsTerminal = func() bool { return false }

	t.Cleanup(func() {
		httpTransport = oldTransport
		stderrIsTerminal = oldStderrTTY
	})

	return dir
}

// runCLI executes the root command with args and returns stdout and the
// status output.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}
