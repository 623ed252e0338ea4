package sharefile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Grant types used against the OAuth2 token endpoint.
const (
	grantPassword     = "password"
	grantRefreshToken = "refresh_token"
)

// unixTimestampFloor separates an absolute "expires" claim (unix seconds)
// from a relative one (seconds from now).
const unixTimestampFloor = 1_000_000_000

// Credentials identify the OAuth2 client and the ShareFile user.
// Immutable for the lifetime of an Authenticator.
type Credentials struct {
	Hostname     string // e.g. "acme.sharefile.com"
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// TokenURL returns the OAuth2 token endpoint for the account hostname.
func (c Credentials) TokenURL() string {
	return "https://" + c.Hostname + "/oauth/token"
}

// AccessToken is the bearer token plus the claims needed to address the
// tenant's API.
type AccessToken struct {
	AccessToken     string            `json:"access_token"`
	RefreshToken    string            `json:"refresh_token,omitempty"`
	TokenType       string            `json:"token_type,omitempty"`
	Expiry          time.Time         `json:"expiry,omitzero"`
	Subdomain       string            `json:"subdomain"`
	APIControlPlane string            `json:"apicp,omitempty"`
	AppControlPlane string            `json:"appcp,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// Expired reports whether the token must be refreshed before use at now.
// A zero expiry never expires.
func (t *AccessToken) Expired(now time.Time) bool {
	return !t.Expiry.IsZero() && !now.Before(t.Expiry)
}

// TokenID derives the token store key for a username.
func TokenID(username string) string {
	return "sf-" + username
}

// TokenStore persists access tokens between processes. LoadToken returns
// ErrTokenNotFound when nothing is stored under id.
type TokenStore interface {
	LoadToken(ctx context.Context, id string) (*AccessToken, error)
	StoreToken(ctx context.Context, tok *AccessToken, id string) error
}

// Authenticator acquires, caches, refreshes and persists the access token
// for one set of credentials.
type Authenticator struct {
	creds      Credentials
	oauth      *oauth2.Config
	store      TokenStore // optional
	httpClient *http.Client
	logger     *slog.Logger

	// nowFunc is injectable for deterministic expiry tests.
	nowFunc func() time.Time

	mu    sync.Mutex
	token *AccessToken
}

// NewAuthenticator creates an Authenticator. store may be nil to keep the
// token in memory only.
func NewAuthenticator(creds Credentials, store TokenStore, httpClient *http.Client, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Authenticator{
		creds: creds,
		oauth: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  creds.TokenURL(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:      store,
		httpClient: httpClient,
		logger:     logger,
		nowFunc:    time.Now,
	}
}

// TokenID returns the store key for this authenticator's user.
func (a *Authenticator) TokenID() string {
	return TokenID(a.creds.Username)
}

// Authenticate acquires a token now instead of on the first request.
func (a *Authenticator) Authenticate(ctx context.Context) error {
	_, err := a.AccessToken(ctx)

	return err
}

// Forget drops the in-memory token. The next call reloads or re-acquires.
func (a *Authenticator) Forget() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.token = nil
}

// AccessToken returns a usable token: the cached one, one loaded from the
// store, a fresh password grant, or a refresh of an expired token. At most
// one network exchange happens per call.
func (a *Authenticator) AccessToken(ctx context.Context) (*AccessToken, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token == nil {
		a.token = a.loadStored(ctx)
	}

	switch {
	case a.token == nil:
		tok, err := a.passwordGrant(ctx)
		if err != nil {
			return nil, err
		}

		a.token = tok
		a.persist(ctx, tok)

	case a.token.Expired(a.nowFunc()):
		a.logger.Info("access token expired, refreshing",
			slog.Time("expiry", a.token.Expiry),
		)

		tok, err := a.refresh(ctx, a.token)
		if err != nil {
			return nil, err
		}

		a.token = tok
		a.persist(ctx, tok)
	}

	return a.token, nil
}

// loadStored returns the stored token or nil. Store failures are treated as
// "absent" so a broken cache never blocks a fresh login.
func (a *Authenticator) loadStored(ctx context.Context) *AccessToken {
	if a.store == nil {
		return nil
	}

	tok, err := a.store.LoadToken(ctx, a.TokenID())
	if err != nil {
		if !errors.Is(err, ErrTokenNotFound) {
			a.logger.Warn("loading stored token failed, acquiring a new one",
				slog.String("token_id", a.TokenID()),
				slog.String("error", err.Error()),
			)
		}

		return nil
	}

	if tok == nil || tok.AccessToken == "" || tok.Subdomain == "" {
		a.logger.Warn("stored token incomplete, acquiring a new one",
			slog.String("token_id", a.TokenID()),
		)

		return nil
	}

	a.logger.Debug("loaded stored token",
		slog.String("token_id", a.TokenID()),
		slog.Time("expiry", tok.Expiry),
	)

	return tok
}

// persist writes tok to the store. Best-effort: the in-memory token stays
// valid whatever happens here.
func (a *Authenticator) persist(ctx context.Context, tok *AccessToken) {
	if a.store == nil {
		return
	}

	if err := a.store.StoreToken(ctx, tok, a.TokenID()); err != nil {
		a.logger.Warn("failed to persist token",
			slog.String("token_id", a.TokenID()),
			slog.String("error", err.Error()),
		)

		return
	}

	a.logger.Debug("persisted token", slog.String("token_id", a.TokenID()))
}

func (a *Authenticator) passwordGrant(ctx context.Context) (*AccessToken, error) {
	a.logger.Info("requesting access token",
		slog.String("grant_type", grantPassword),
		slog.String("hostname", a.creds.Hostname),
		slog.String("username", a.creds.Username),
	)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	tok, err := a.oauth.PasswordCredentialsToken(ctx, a.creds.Username, a.creds.Password)
	if err != nil {
		return nil, newAuthError(grantPassword, err)
	}

	at := a.convert(tok, nil)
	if at.AccessToken == "" || at.Subdomain == "" {
		return nil, &AuthError{GrantType: grantPassword, Err: ErrMissingClaims}
	}

	a.logger.Info("access token acquired",
		slog.String("subdomain", at.Subdomain),
		slog.Time("expiry", at.Expiry),
	)

	return at, nil
}

// refresh exchanges prev's refresh token. Without one it falls back to the
// password grant.
func (a *Authenticator) refresh(ctx context.Context, prev *AccessToken) (*AccessToken, error) {
	if prev.RefreshToken == "" {
		a.logger.Info("no refresh token available, using password grant")

		return a.passwordGrant(ctx)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	src := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: prev.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		return nil, newAuthError(grantRefreshToken, err)
	}

	at := a.convert(tok, prev)
	if at.AccessToken == "" || at.Subdomain == "" {
		return nil, &AuthError{GrantType: grantRefreshToken, Err: ErrMissingClaims}
	}

	a.logger.Info("access token refreshed", slog.Time("expiry", at.Expiry))

	return at, nil
}

// convert copies an oauth2 token and its ShareFile claims. Claims missing
// from a refresh response are inherited from prev.
func (a *Authenticator) convert(tok *oauth2.Token, prev *AccessToken) *AccessToken {
	at := &AccessToken{
		AccessToken:     tok.AccessToken,
		RefreshToken:    tok.RefreshToken,
		TokenType:       tok.TokenType,
		Expiry:          tok.Expiry,
		Subdomain:       extraString(tok, "subdomain"),
		APIControlPlane: extraString(tok, "apicp"),
		AppControlPlane: extraString(tok, "appcp"),
	}

	if at.Expiry.IsZero() {
		at.Expiry = a.expiresClaim(tok)
	}

	if prev != nil {
		if at.Subdomain == "" {
			at.Subdomain = prev.Subdomain
		}

		if at.APIControlPlane == "" {
			at.APIControlPlane = prev.APIControlPlane
		}

		if at.AppControlPlane == "" {
			at.AppControlPlane = prev.AppControlPlane
		}
	}

	return at
}

// expiresClaim reads the non-standard "expires" claim, either an absolute
// unix timestamp or seconds from now. Returns the zero time when absent.
func (a *Authenticator) expiresClaim(tok *oauth2.Token) time.Time {
	var secs int64

	switch v := tok.Extra("expires").(type) {
	case float64:
		secs = int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return time.Time{}
		}

		secs = n
	default:
		return time.Time{}
	}

	if secs <= 0 {
		return time.Time{}
	}

	if secs > unixTimestampFloor {
		return time.Unix(secs, 0)
	}

	return a.nowFunc().Add(time.Duration(secs) * time.Second)
}

func extraString(tok *oauth2.Token, key string) string {
	switch v := tok.Extra(key).(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func newAuthError(grant string, err error) *AuthError {
	ae := &AuthError{GrantType: grant, Err: err}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		ae.StatusCode = re.Response.StatusCode
	}

	return ae
}
