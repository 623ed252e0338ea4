package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/sharefile-go/internal/config"
	"github.com/tonimelisma/sharefile-go/internal/sharefile"
	"github.com/tonimelisma/sharefile-go/internal/tokendb"
	"github.com/tonimelisma/sharefile-go/internal/tokenfile"
)

// tokenStore is a sharefile.TokenStore that can also forget a token.
// Both the file and the SQLite stores satisfy it.
type tokenStore interface {
	sharefile.TokenStore
	DeleteToken(ctx context.Context, id string) error
}

// httpTransport is the round tripper of every client. Replaced in tests.
var httpTransport = func() http.RoundTripper { return http.DefaultTransport }

// Session holds the authenticator and clients for one resolved profile.
// Client is for metadata calls and carries the configured timeout; Transfer
// has no timeout so large uploads and downloads are bounded only by the
// command context.
type Session struct {
	Auth     *sharefile.Authenticator
	Client   *sharefile.Client
	Transfer *sharefile.Client
	Store    tokenStore // nil when tokens are not persisted

	closeStore func() error
}

// NewSession opens the configured token store and builds the clients.
func NewSession(ctx context.Context, rp *config.ResolvedProfile, logger *slog.Logger) (*Session, error) {
	store, closeStore, err := openTokenStore(ctx, rp, logger)
	if err != nil {
		return nil, err
	}

	metaHTTP := &http.Client{Transport: httpTransport(), Timeout: rp.Timeout}

	creds := sharefile.Credentials{
		Hostname:     rp.Hostname,
		ClientID:     rp.ClientID,
		ClientSecret: rp.ClientSecret,
		Username:     rp.Username,
		Password:     rp.Password,
	}

	var ts sharefile.TokenStore
	if store != nil {
		ts = store
	}

	auth := sharefile.NewAuthenticator(creds, ts, metaHTTP, logger)

	return &Session{
		Auth:       auth,
		Client:     sharefile.NewClient(auth, metaHTTP, logger, rp.APIHost, rp.UserAgent),
		Transfer:   sharefile.NewClient(auth, &http.Client{Transport: httpTransport()}, logger, rp.APIHost, rp.UserAgent),
		Store:      store,
		closeStore: closeStore,
	}, nil
}

// Close releases the token store.
func (s *Session) Close() error {
	if s.closeStore == nil {
		return nil
	}

	return s.closeStore()
}

// openTokenStore returns the store named by the profile, or nil for "none".
func openTokenStore(
	ctx context.Context, rp *config.ResolvedProfile, logger *slog.Logger,
) (tokenStore, func() error, error) {
	switch rp.TokenStore {
	case config.TokenStoreFile:
		if rp.TokenPath == "" {
			return nil, nil, errors.New("cannot determine token directory")
		}

		return tokenfile.New(rp.TokenPath), nil, nil

	case config.TokenStoreSQLite:
		if rp.TokenPath == "" {
			return nil, nil, errors.New("cannot determine token database path")
		}

		db, err := tokendb.Open(ctx, rp.TokenPath, logger)
		if err != nil {
			return nil, nil, err
		}

		return db, db.Close, nil

	case config.TokenStoreNone:
		return nil, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown token store %q", rp.TokenStore)
	}
}

// withSession builds a Session for the command, runs fn and closes it.
// Authentication failures get a hint to log in.
func withSession(ctx context.Context, fn func(cc *CLIContext, s *Session) error) error {
	cc, err := cliContextFrom(ctx)
	if err != nil {
		return err
	}

	s, err := NewSession(ctx, cc.Profile, cc.Logger)
	if err != nil {
		return err
	}
	defer s.Close()

	err = fn(cc, s)

	var authErr *sharefile.AuthError
	if errors.As(err, &authErr) && cc.Profile.Password == "" {
		return fmt.Errorf("%w (run 'sharefile-go login' or set %s)", err, config.EnvPassword)
	}

	return err
}
