package sharefile

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenURL = "https://hostname/oauth/token"

var testCreds = Credentials{
	Hostname:     "hostname",
	ClientID:     "client_id",
	ClientSecret: "secret",
	Username:     "username",
	Password:     "password",
}

// memStore is an in-memory TokenStore with injectable failures.
type memStore struct {
	mu       sync.Mutex
	tokens   map[string]*AccessToken
	loadErr  error
	storeErr error
	stores   int
}

func newMemStore() *memStore {
	return &memStore{tokens: make(map[string]*AccessToken)}
}

func (m *memStore) LoadToken(_ context.Context, id string) (*AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return nil, m.loadErr
	}

	tok, ok := m.tokens[id]
	if !ok {
		return nil, ErrTokenNotFound
	}

	return tok, nil
}

func (m *memStore) StoreToken(_ context.Context, tok *AccessToken, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stores++

	if m.storeErr != nil {
		return m.storeErr
	}

	m.tokens[id] = tok

	return nil
}

func tokenReply(extra string) mockResponse {
	return reply(http.StatusOK, `{"access_token":"access_code","refresh_token":"refresh_code",`+
		`"token_type":"bearer","subdomain":"subdomain","appcp":"sharefile.com"`+extra+`}`)
}

func newTestAuthenticator(t *testing.T, store TokenStore, responses ...mockResponse) (*Authenticator, *mockTransport) {
	t.Helper()

	mt := &mockTransport{responses: responses}
	a := NewAuthenticator(testCreds, store, &http.Client{Transport: mt}, testLogger(t))

	return a, mt
}

func formOf(t *testing.T, req recordedRequest) url.Values {
	t.Helper()

	form, err := url.ParseQuery(string(req.Body))
	require.NoError(t, err)

	return form
}

func TestAccessToken_PasswordGrantThenCached(t *testing.T) {
	expires := time.Now().Add(time.Minute).Unix()
	a, mt := newTestAuthenticator(t, nil, tokenReply(`,"expires":`+strconv.FormatInt(expires, 10)))
	ctx := context.Background()

	tok, err := a.AccessToken(ctx)
	require.NoError(t, err)

	assert.Equal(t, "access_code", tok.AccessToken)
	assert.Equal(t, "refresh_code", tok.RefreshToken)
	assert.Equal(t, "subdomain", tok.Subdomain)
	assert.Equal(t, "sharefile.com", tok.AppControlPlane)
	assert.Equal(t, expires, tok.Expiry.Unix())

	again, err := a.AccessToken(ctx)
	require.NoError(t, err)
	assert.Same(t, tok, again)

	reqs := mt.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, tokenURL, reqs[0].URL)

	form := formOf(t, reqs[0])
	assert.Equal(t, "password", form.Get("grant_type"))
	assert.Equal(t, "username", form.Get("username"))
	assert.Equal(t, "password", form.Get("password"))
	assert.Equal(t, "client_id", form.Get("client_id"))
	assert.Equal(t, "secret", form.Get("client_secret"))
}

func TestAccessToken_RelativeExpires(t *testing.T) {
	a, _ := newTestAuthenticator(t, nil, tokenReply(`,"expires":3600`))
	now := time.Unix(1_700_000_000, 0)
	a.nowFunc = func() time.Time { return now }

	tok, err := a.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), tok.Expiry)
}

func TestAccessToken_ExpiresInWins(t *testing.T) {
	a, _ := newTestAuthenticator(t, nil, tokenReply(`,"expires_in":120,"expires":1`))

	tok, err := a.AccessToken(context.Background())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), tok.Expiry, 10*time.Second)
}

func TestAccessToken_RefreshesExpired(t *testing.T) {
	a, mt := newTestAuthenticator(t, nil,
		tokenReply(`,"expires":3600`),
		reply(http.StatusOK, `{"access_token":"second","token_type":"bearer","expires_in":3600}`),
	)

	now := time.Unix(1_700_000_000, 0)
	a.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	_, err := a.AccessToken(ctx)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)

	tok, err := a.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", tok.AccessToken)
	assert.Equal(t, "subdomain", tok.Subdomain, "subdomain inherited from the previous token")
	assert.Equal(t, "refresh_code", tok.RefreshToken)

	reqs := mt.requests()
	require.Len(t, reqs, 2)

	form := formOf(t, reqs[1])
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "refresh_code", form.Get("refresh_token"))
	assert.Equal(t, "client_id", form.Get("client_id"))
}

func TestAccessToken_ExpiredWithoutRefreshTokenLogsInAgain(t *testing.T) {
	store := newMemStore()
	store.tokens[TokenID("username")] = &AccessToken{
		AccessToken: "stale",
		Subdomain:   "subdomain",
		Expiry:      time.Now().Add(-time.Minute),
	}

	a, mt := newTestAuthenticator(t, store, tokenReply(""))

	tok, err := a.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access_code", tok.AccessToken)
	assert.Equal(t, "password", formOf(t, mt.last()).Get("grant_type"))
}

func TestAccessToken_LoadsFromStore(t *testing.T) {
	store := newMemStore()
	stored := &AccessToken{AccessToken: "cached", Subdomain: "acme", Expiry: time.Now().Add(time.Hour)}
	store.tokens["sf-username"] = stored

	a, mt := newTestAuthenticator(t, store)

	tok, err := a.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Same(t, stored, tok)
	assert.Empty(t, mt.requests())
	assert.Equal(t, 0, store.stores)
}

func TestAccessToken_PersistsNewToken(t *testing.T) {
	store := newMemStore()
	a, _ := newTestAuthenticator(t, store, tokenReply(""))

	tok, err := a.AccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, store.stores)
	assert.Same(t, tok, store.tokens["sf-username"])
}

func TestAccessToken_StoreFailuresAreBestEffort(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("corrupt cache")
	store.storeErr = errors.New("read-only filesystem")

	a, mt := newTestAuthenticator(t, store, tokenReply(""))

	tok, err := a.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access_code", tok.AccessToken)
	assert.Len(t, mt.requests(), 1)
	assert.Equal(t, 1, store.stores)
}

func TestAccessToken_IncompleteStoredTokenIgnored(t *testing.T) {
	store := newMemStore()
	store.tokens["sf-username"] = &AccessToken{AccessToken: "no-subdomain"}

	a, mt := newTestAuthenticator(t, store, tokenReply(""))

	tok, err := a.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access_code", tok.AccessToken)
	assert.Len(t, mt.requests(), 1)
}

func TestAccessToken_GrantRejected(t *testing.T) {
	a, _ := newTestAuthenticator(t, nil,
		reply(http.StatusBadRequest, `{"error":"invalid_grant","error_description":"bad password"}`))

	_, err := a.AccessToken(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, grantPassword, authErr.GrantType)
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestAccessToken_MissingSubdomain(t *testing.T) {
	a, _ := newTestAuthenticator(t, nil, reply(http.StatusOK, `{"access_token":"a","token_type":"bearer"}`))

	_, err := a.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrMissingClaims)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestAccessToken_TransportFailure(t *testing.T) {
	a, _ := newTestAuthenticator(t, nil, mockResponse{err: errors.New("dial tcp: no route to host")})

	_, err := a.AccessToken(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Zero(t, authErr.StatusCode)
}

func TestForget_ReloadsFromStore(t *testing.T) {
	store := newMemStore()
	a, mt := newTestAuthenticator(t, store, tokenReply(""))
	ctx := context.Background()

	first, err := a.AccessToken(ctx)
	require.NoError(t, err)

	a.Forget()

	second, err := a.AccessToken(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, mt.requests(), 1)
}

func TestAuthenticate(t *testing.T) {
	a, mt := newTestAuthenticator(t, nil, tokenReply(""))

	require.NoError(t, a.Authenticate(context.Background()))
	assert.Len(t, mt.requests(), 1)
	assert.Equal(t, "sf-username", a.TokenID())
}

func TestExpired(t *testing.T) {
	now := time.Now()

	assert.False(t, (&AccessToken{}).Expired(now))
	assert.False(t, (&AccessToken{Expiry: now.Add(time.Second)}).Expired(now))
	assert.True(t, (&AccessToken{Expiry: now}).Expired(now))
	assert.True(t, (&AccessToken{Expiry: now.Add(-time.Second)}).Expired(now))
}

// Authenticator and Client wired together the way the CLI does it.
func TestClient_EndToEndWithAuthenticator(t *testing.T) {
	mt := &mockTransport{responses: []mockResponse{
		tokenReply(`,"expires":` + strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10)),
		reply(http.StatusOK, `{"odata.type":"ShareFile.Api.Models.AccountUser","Email":"user@company.com"}`),
	}}
	httpClient := &http.Client{Transport: mt}

	auth := NewAuthenticator(testCreds, nil, httpClient, testLogger(t))
	c := NewClient(auth, httpClient, testLogger(t), "", "")

	user, err := c.GetUser(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "user@company.com", user.Email)

	reqs := mt.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, tokenURL, reqs[0].URL)
	assert.Equal(t, "https://subdomain.sf-api.com/sf/v3/Users()", reqs[1].URL)
	assert.Equal(t, "Bearer access_code", reqs[1].Header.Get("Authorization"))
	assert.Equal(t, DefaultUserAgent, reqs[1].Header.Get("User-Agent"))
}
