package link

import (
	"errors"
	"strings"
	"testing"

	"github.com/franz/media-indexer/internal/util"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		sourceID int64
		itemID   int64
	}{
		{"simple", 12345, 678},
		{"negative source", -1001234567890, 42},
		{"zero item", 777, 0},
		{"large ids", 9007199254740993, 9007199254740994},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handle := Encode(tc.sourceID, tc.itemID)
			if strings.ContainsAny(handle, "=+/") {
				t.Errorf("handle %q is not URL-safe unpadded base64", handle)
			}

			src, item, err := Decode(handle)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if src != tc.sourceID || item != tc.itemID {
				t.Errorf("round trip got (%d, %d), want (%d, %d)", src, item, tc.sourceID, tc.itemID)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []struct {
		name   string
		handle string
	}{
		{"empty", ""},
		{"not base64", "!!!!"},
		{"no separator", "MTIzNDU"},        // "12345"
		{"too many fields", "MV8yXzM"},     // "1_2_3"
		{"non numeric half", "YWJjX2RlZg"}, // "abc_def"
		{"whitespace", " "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Decode(tc.handle)
			if err == nil {
				t.Fatalf("expected error for %q", tc.handle)
			}
			if !errors.Is(err, util.ErrMalformedHandle) {
				t.Errorf("expected ErrMalformedHandle, got %v", err)
			}
		})
	}
}

func TestDeepLinks(t *testing.T) {
	fileLink := FileDeepLink("media_bot", 100, 7)
	if !strings.HasPrefix(fileLink, "https://t.me/media_bot?start=file_") {
		t.Errorf("unexpected file deep link %q", fileLink)
	}

	tokenLink := TokenDeepLink("media_bot", "abc-123")
	if tokenLink != "https://t.me/media_bot?start=token_abc-123" {
		t.Errorf("unexpected token deep link %q", tokenLink)
	}
}

func TestMessageLink(t *testing.T) {
	got := MessageLink(-1001234567890, 55)
	want := "https://t.me/c/1234567890/55"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseMessageLink(t *testing.T) {
	src, item, err := ParseMessageLink("https://t.me/c/1234567890/55")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if src != -1001234567890 {
		t.Errorf("expected -100 prefix restored, got %d", src)
	}
	if item != 55 {
		t.Errorf("expected item 55, got %d", item)
	}

	if _, _, err := ParseMessageLink("https://t.me/some_channel/55"); err == nil {
		t.Error("expected error for public-style link")
	}
}
