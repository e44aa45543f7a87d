package catalog

import (
	"database/sql"
	"fmt"
	"time"
)

// AccessToken is a single-user, time-limited token. Multiple historical
// tokens may exist per user; validity checks delete expired rows on read.
type AccessToken struct {
	TokenID   string
	UserID    int64
	ExpiryUix int64
	CreatedAt time.Time
}

// InsertToken records a freshly issued token.
func (s *Store) InsertToken(t *AccessToken) error {
	_, err := s.db.Exec(
		"INSERT INTO tokens (token_id, user_id, expiry_unix) VALUES (?, ?, ?)",
		t.TokenID, t.UserID, t.ExpiryUix)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return nil
}

// GetToken retrieves a token by (token_id, user_id). Returns (nil, nil)
// when absent.
func (s *Store) GetToken(tokenID string, userID int64) (*AccessToken, error) {
	t := &AccessToken{}
	err := s.db.QueryRow(`
		SELECT token_id, user_id, expiry_unix, created_at
		FROM tokens WHERE token_id = ? AND user_id = ?`,
		tokenID, userID,
	).Scan(&t.TokenID, &t.UserID, &t.ExpiryUix, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return t, nil
}

// GetValidTokenForUser retrieves any token of the user expiring after now.
// Used to reuse a live token instead of minting another for link display.
// Returns (nil, nil) when none exists.
func (s *Store) GetValidTokenForUser(userID int64, now time.Time) (*AccessToken, error) {
	t := &AccessToken{}
	err := s.db.QueryRow(`
		SELECT token_id, user_id, expiry_unix, created_at
		FROM tokens WHERE user_id = ? AND expiry_unix > ?
		ORDER BY expiry_unix DESC LIMIT 1`,
		userID, now.Unix(),
	).Scan(&t.TokenID, &t.UserID, &t.ExpiryUix, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token for user: %w", err)
	}
	return t, nil
}

// DeleteToken removes a single token row.
func (s *Store) DeleteToken(tokenID string) error {
	_, err := s.db.Exec("DELETE FROM tokens WHERE token_id = ?", tokenID)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// DeleteExpiredTokens removes all tokens whose expiry has passed.
// Returns the number removed.
func (s *Store) DeleteExpiredTokens(now time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM tokens WHERE expiry_unix < ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// ExpireToken rewrites a token's expiry. Test and admin hook.
func (s *Store) ExpireToken(tokenID string, expiry time.Time) error {
	_, err := s.db.Exec("UPDATE tokens SET expiry_unix = ? WHERE token_id = ?",
		expiry.Unix(), tokenID)
	if err != nil {
		return fmt.Errorf("failed to expire token: %w", err)
	}
	return nil
}

// UpsertGrant creates or refreshes the authorization grant for a user.
// The expiry is stored as an RFC3339 UTC string.
func (s *Store) UpsertGrant(userID int64, expiry time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO grants (user_id, expiry) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET expiry = excluded.expiry`,
		userID, expiry.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert grant: %w", err)
	}
	return nil
}

// GetGrantExpiry returns the raw stored expiry for a user's grant.
// The value may be RFC3339 or a naive "2006-01-02 15:04:05" string from
// older rows; callers normalize. Returns ("", nil) when no grant exists.
func (s *Store) GetGrantExpiry(userID int64) (string, error) {
	var expiry string
	err := s.db.QueryRow("SELECT expiry FROM grants WHERE user_id = ?", userID).Scan(&expiry)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get grant: %w", err)
	}
	return expiry, nil
}

// SetGrantExpiryRaw writes a grant expiry string verbatim. Test hook for
// exercising the tolerant parser against legacy formats.
func (s *Store) SetGrantExpiryRaw(userID int64, raw string) error {
	_, err := s.db.Exec(`
		INSERT INTO grants (user_id, expiry) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET expiry = excluded.expiry`,
		userID, raw)
	return err
}

// Grant is one user's authorization row. Expiry is the raw stored string;
// older rows carry timezone-naive formats, so callers parse it tolerantly
// rather than comparing in SQL.
type Grant struct {
	UserID int64
	Expiry string
}

// ListGrants returns every grant row with its raw expiry string.
func (s *Store) ListGrants() ([]Grant, error) {
	rows, err := s.db.Query("SELECT user_id, expiry FROM grants")
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.UserID, &g.Expiry); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// DeleteGrant removes one user's grant.
func (s *Store) DeleteGrant(userID int64) error {
	_, err := s.db.Exec("DELETE FROM grants WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	return nil
}
