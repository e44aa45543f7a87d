package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/franz/media-indexer/internal/catalog"
)

const ownerID = int64(1000)

func newTestService(t *testing.T) (*Service, *catalog.Store) {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewService(store, ownerID), store
}

func TestIssueAndValidate(t *testing.T) {
	svc, _ := newTestService(t)

	tokenID, err := svc.Issue(42)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if tokenID == "" {
		t.Fatal("expected non-empty token id")
	}

	if !svc.Validate(tokenID, 42) {
		t.Error("expected fresh token to validate")
	}
	if svc.Validate(tokenID, 43) {
		t.Error("token must not validate for another user")
	}
	if svc.Validate("no-such-token", 42) {
		t.Error("unknown token must not validate")
	}
}

func TestIssueAlwaysMintsNew(t *testing.T) {
	svc, _ := newTestService(t)

	first, _ := svc.Issue(42)
	second, _ := svc.Issue(42)
	if first == second {
		t.Error("expected distinct tokens from successive issues")
	}
	// Both stay valid until they expire
	if !svc.Validate(first, 42) || !svc.Validate(second, 42) {
		t.Error("both issued tokens should validate")
	}
}

func TestReusableToken(t *testing.T) {
	svc, _ := newTestService(t)

	first, err := svc.ReusableToken(42)
	if err != nil {
		t.Fatalf("reusable token failed: %v", err)
	}
	second, err := svc.ReusableToken(42)
	if err != nil {
		t.Fatalf("reusable token failed: %v", err)
	}
	if first != second {
		t.Errorf("expected the live token reused, got %q then %q", first, second)
	}
}

func TestValidateExpiredDeletesRow(t *testing.T) {
	svc, store := newTestService(t)

	tokenID, _ := svc.Issue(42)
	if err := store.ExpireToken(tokenID, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("expire failed: %v", err)
	}

	if svc.Validate(tokenID, 42) {
		t.Error("expired token must not validate")
	}
	// The expired row is deleted on read
	if tok, _ := store.GetToken(tokenID, 42); tok != nil {
		t.Error("expected expired token row removed")
	}
	if svc.Validate(tokenID, 42) {
		t.Error("second validation of a deleted token must fail")
	}
}

func TestRedeemGrantsAccess(t *testing.T) {
	svc, _ := newTestService(t)

	if svc.IsAuthorized(42) {
		t.Error("user should start unauthorized")
	}
	if err := svc.Redeem(42); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if !svc.IsAuthorized(42) {
		t.Error("user should be authorized after redeeming")
	}
}

func TestOwnerAlwaysAuthorized(t *testing.T) {
	svc, _ := newTestService(t)
	if !svc.IsAuthorized(ownerID) {
		t.Error("owner must be authorized without a grant")
	}
}

func TestIsAuthorizedExpiredGrant(t *testing.T) {
	svc, store := newTestService(t)

	if err := store.UpsertGrant(42, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if svc.IsAuthorized(42) {
		t.Error("expired grant must not authorize")
	}
}

func TestIsAuthorizedLegacyExpiryFormats(t *testing.T) {
	svc, store := newTestService(t)
	future := time.Now().UTC().Add(time.Hour)

	cases := []struct {
		name string
		raw  string
	}{
		{"rfc3339", future.Format(time.RFC3339)},
		{"naive T", future.Format("2006-01-02T15:04:05")},
		{"naive space", future.Format("2006-01-02 15:04:05")},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			userID := int64(100 + i)
			if err := store.SetGrantExpiryRaw(userID, tc.raw); err != nil {
				t.Fatalf("raw write failed: %v", err)
			}
			if !svc.IsAuthorized(userID) {
				t.Errorf("expected %q to authorize", tc.raw)
			}
		})
	}

	if err := store.SetGrantExpiryRaw(200, "not a timestamp"); err != nil {
		t.Fatalf("raw write failed: %v", err)
	}
	if svc.IsAuthorized(200) {
		t.Error("garbage expiry must not authorize")
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	svc, store := newTestService(t)
	now := time.Now()

	// One live grant, one expired
	if err := store.UpsertGrant(1, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertGrant(2, now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	// One live token, one expired
	live, _ := svc.Issue(1)
	dead, _ := svc.Issue(2)
	if err := store.ExpireToken(dead, now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	sw := NewSweeper(store, time.Hour, nil)
	sw.Sweep()

	if !svc.Validate(live, 1) {
		t.Error("live token should survive the sweep")
	}
	if tok, _ := store.GetToken(dead, 2); tok != nil {
		t.Error("expired token should be swept")
	}
	if raw, _ := store.GetGrantExpiry(1); raw == "" {
		t.Error("live grant should survive the sweep")
	}
	if raw, _ := store.GetGrantExpiry(2); raw != "" {
		t.Error("expired grant should be swept")
	}
}

func TestSweepTolerantOfLegacyGrantFormats(t *testing.T) {
	svc, store := newTestService(t)
	now := time.Now().UTC()

	// Naive-format rows sort before any RFC3339 string from the same day,
	// so a lexical SQL predicate would sweep the live one too.
	liveRaw := now.Add(2 * time.Hour).Format("2006-01-02 15:04:05")
	deadRaw := now.Add(-2 * time.Hour).Format("2006-01-02 15:04:05")
	if err := store.SetGrantExpiryRaw(10, liveRaw); err != nil {
		t.Fatal(err)
	}
	if err := store.SetGrantExpiryRaw(11, deadRaw); err != nil {
		t.Fatal(err)
	}
	if err := store.SetGrantExpiryRaw(12, "not a timestamp"); err != nil {
		t.Fatal(err)
	}

	NewSweeper(store, time.Hour, nil).Sweep()

	if !svc.IsAuthorized(10) {
		t.Error("live legacy-format grant must survive the sweep")
	}
	if raw, _ := store.GetGrantExpiry(11); raw != "" {
		t.Error("expired legacy-format grant should be swept")
	}
	// Unreadable rows are left in place for an operator and never authorize
	if raw, _ := store.GetGrantExpiry(12); raw == "" {
		t.Error("unreadable grant should be left for inspection")
	}
	if svc.IsAuthorized(12) {
		t.Error("unreadable grant must not authorize")
	}
}
