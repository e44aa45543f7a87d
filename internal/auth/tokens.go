// Package auth implements the access-token lifecycle: issuance, validity
// checks, grant redemption, and the periodic purge of expired rows.
package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/franz/media-indexer/internal/catalog"
	"github.com/franz/media-indexer/internal/util"
)

// TokenValidity is how long tokens and grants stay valid
const TokenValidity = 24 * time.Hour

// Service manages access tokens and authorization grants
type Service struct {
	store   *catalog.Store
	ownerID int64
}

// NewService creates a token service. ownerID is the admin identity that
// is always authorized.
func NewService(store *catalog.Store, ownerID int64) *Service {
	return &Service{store: store, ownerID: ownerID}
}

// Issue creates a fresh access token for the user, expiring in
// TokenValidity. Always mints a new record.
func (s *Service) Issue(userID int64) (string, error) {
	tokenID := uuid.NewString()
	err := s.store.InsertToken(&catalog.AccessToken{
		TokenID:   tokenID,
		UserID:    userID,
		ExpiryUix: time.Now().Add(TokenValidity).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return tokenID, nil
}

// ReusableToken returns an unexpired token for the user, minting one only
// when none exists. Used when rendering the verification link.
func (s *Service) ReusableToken(userID int64) (string, error) {
	t, err := s.store.GetValidTokenForUser(userID, time.Now())
	if err != nil {
		return "", err
	}
	if t != nil {
		return t.TokenID, nil
	}
	return s.Issue(userID)
}

// Validate reports whether (tokenID, userID) names a live token. A token
// found expired is deleted on the spot and reported invalid; a second
// Validate with the same id therefore also fails.
func (s *Service) Validate(tokenID string, userID int64) bool {
	t, err := s.store.GetToken(tokenID, userID)
	if err != nil {
		util.ErrorLog("token lookup failed: %v", err)
		return false
	}
	if t == nil {
		return false
	}
	if time.Unix(t.ExpiryUix, 0).Before(time.Now()) {
		if err := s.store.DeleteToken(tokenID); err != nil {
			util.WarnLog("failed to delete expired token: %v", err)
		}
		return false
	}
	return true
}

// Redeem grants the user TokenValidity of access, refreshing any existing
// grant. Called after a valid token has been presented.
func (s *Service) Redeem(userID int64) error {
	if err := s.store.UpsertGrant(userID, time.Now().Add(TokenValidity)); err != nil {
		return fmt.Errorf("failed to redeem: %w", err)
	}
	return nil
}

// IsAuthorized reports whether the user currently holds access. The owner
// identity is always authorized; everyone else needs an unexpired grant.
func (s *Service) IsAuthorized(userID int64) bool {
	if userID == s.ownerID {
		return true
	}

	raw, err := s.store.GetGrantExpiry(userID)
	if err != nil {
		util.ErrorLog("grant lookup failed: %v", err)
		return false
	}
	if raw == "" {
		return false
	}

	expiry, ok := parseExpiry(raw)
	if !ok {
		return false
	}
	return expiry.After(time.Now().UTC())
}

// parseExpiry normalizes a stored expiry to UTC. Historical grant rows
// carried both RFC3339 and timezone-naive strings.
func parseExpiry(raw string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
