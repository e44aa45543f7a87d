// Package link encodes opaque file handles and builds the deep links
// embedded in user-facing messages.
package link

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/franz/media-indexer/internal/util"
)

// Encode packs a (source, item) pair into an opaque URL-safe handle.
// The handle is reversible base64 with the trailing padding stripped.
func Encode(sourceID, itemID int64) string {
	raw := fmt.Sprintf("%d_%d", sourceID, itemID)
	return strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(raw)), "=")
}

// Decode restores a handle produced by Encode back into its (source, item)
// pair. Returns util.ErrMalformedHandle for anything that is not a valid
// handle: bad base64, wrong separator count, non-integer halves.
func Decode(handle string) (sourceID, itemID int64, err error) {
	if handle == "" {
		return 0, 0, fmt.Errorf("%w: empty", util.ErrMalformedHandle)
	}

	// Restore padding to a multiple of 4
	padded := handle + strings.Repeat("=", (4-len(handle)%4)%4)

	raw, err := base64.URLEncoding.DecodeString(padded)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", util.ErrMalformedHandle, err)
	}

	parts := strings.Split(string(raw), "_")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: expected two fields, got %d", util.ErrMalformedHandle, len(parts))
	}

	sourceID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad source id %q", util.ErrMalformedHandle, parts[0])
	}
	itemID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad item id %q", util.ErrMalformedHandle, parts[1])
	}

	return sourceID, itemID, nil
}

// FileDeepLink builds the chat deep link that resolves a file handle.
func FileDeepLink(botUsername string, sourceID, itemID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=file_%s", botUsername, Encode(sourceID, itemID))
}

// TokenDeepLink builds the chat deep link that redeems an access token.
func TokenDeepLink(botUsername, tokenID string) string {
	return fmt.Sprintf("https://t.me/%s?start=token_%s", botUsername, tokenID)
}

// MessageLink builds a direct link to an item inside a private source.
// Source ids carry a -100 prefix on the wire which the link format drops.
func MessageLink(sourceID, itemID int64) string {
	s := strconv.FormatInt(sourceID, 10)
	s = strings.TrimPrefix(s, "-100")
	return fmt.Sprintf("https://t.me/c/%s/%d", s, itemID)
}

var messageLinkRe = regexp.MustCompile(`t\.me/c/(-?\d+)/(\d+)`)

// ParseMessageLink extracts the (source, item) pair from a message link.
// Only the /c/ form is supported; anything else is a malformed handle.
func ParseMessageLink(link string) (sourceID, itemID int64, err error) {
	m := messageLinkRe.FindStringSubmatch(link)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: only t.me/c/ links are supported", util.ErrMalformedHandle)
	}

	raw := m[1]
	if !strings.HasPrefix(raw, "-100") {
		raw = "-100" + raw
	}
	sourceID, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad source id", util.ErrMalformedHandle)
	}
	itemID, err = strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad item id", util.ErrMalformedHandle)
	}
	return sourceID, itemID, nil
}
