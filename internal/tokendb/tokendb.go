// Package tokendb persists ShareFile access tokens in a SQLite database. It
// implements sharefile.TokenStore for setups that keep several profiles in
// one place.
package tokendb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/tonimelisma/sharefile-go/internal/sharefile"
)

// DirPerms is used when creating the database directory.
const DirPerms = 0o700

const (
	sqlLoadToken = `SELECT access_token, refresh_token, token_type, expiry,
		subdomain, apicp, appcp, extra
		FROM tokens WHERE id = ?`

	sqlUpsertToken = `INSERT INTO tokens
		(id, access_token, refresh_token, token_type, expiry,
		 subdomain, apicp, appcp, extra, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 access_token = excluded.access_token,
		 refresh_token = excluded.refresh_token,
		 token_type = excluded.token_type,
		 expiry = excluded.expiry,
		 subdomain = excluded.subdomain,
		 apicp = excluded.apicp,
		 appcp = excluded.appcp,
		 extra = excluded.extra,
		 updated_at = excluded.updated_at`

	sqlDeleteToken = `DELETE FROM tokens WHERE id = ?`

	sqlListIDs = `SELECT id FROM tokens ORDER BY id`
)

// Store is a SQLite-backed token store. Safe for concurrent use.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), DirPerms); err != nil {
		return nil, fmt.Errorf("tokendb: creating directory: %w", err)
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("tokendb: opening database %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("token database ready", slog.String("db_path", path))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadToken reads id's token. Returns sharefile.ErrTokenNotFound when no
// row exists.
func (s *Store) LoadToken(ctx context.Context, id string) (*sharefile.AccessToken, error) {
	var (
		tok    sharefile.AccessToken
		expiry int64
		extra  string
	)

	err := s.db.QueryRowContext(ctx, sqlLoadToken, id).Scan(
		&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &expiry,
		&tok.Subdomain, &tok.APIControlPlane, &tok.AppControlPlane, &extra,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sharefile.ErrTokenNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("tokendb: loading token: %w", err)
	}

	if expiry != 0 {
		tok.Expiry = time.Unix(0, expiry)
	}

	if extra != "" && extra != "{}" {
		if err := json.Unmarshal([]byte(extra), &tok.Extra); err != nil {
			return nil, fmt.Errorf("tokendb: decoding extra claims: %w", err)
		}
	}

	return &tok, nil
}

// StoreToken inserts or replaces id's token.
func (s *Store) StoreToken(ctx context.Context, tok *sharefile.AccessToken, id string) error {
	if tok == nil {
		return errors.New("tokendb: refusing to store nil token")
	}

	extra := []byte("{}")

	if len(tok.Extra) > 0 {
		var err error

		extra, err = json.Marshal(tok.Extra)
		if err != nil {
			return fmt.Errorf("tokendb: encoding extra claims: %w", err)
		}
	}

	var expiry int64
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.UnixNano()
	}

	_, err := s.db.ExecContext(ctx, sqlUpsertToken,
		id, tok.AccessToken, tok.RefreshToken, tok.TokenType, expiry,
		tok.Subdomain, tok.APIControlPlane, tok.AppControlPlane, string(extra),
		s.nowFunc().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("tokendb: storing token: %w", err)
	}

	s.logger.Debug("stored token", slog.String("token_id", id))

	return nil
}

// DeleteToken removes id's token. A missing row is not an error.
func (s *Store) DeleteToken(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, sqlDeleteToken, id); err != nil {
		return fmt.Errorf("tokendb: deleting token: %w", err)
	}

	return nil
}

// IDs lists the stored token ids in order.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, sqlListIDs)
	if err != nil {
		return nil, fmt.Errorf("tokendb: listing tokens: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("tokendb: scanning token id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tokendb: iterating tokens: %w", err)
	}

	return ids, nil
}
