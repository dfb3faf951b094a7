package notifications

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPreviewKeepsShortContent(t *testing.T) {
	if got := preview("short comment"); got != "short comment" {
		t.Fatalf("short content must pass through, got %q", got)
	}
}

func TestPreviewTruncatesAtFiftyRunes(t *testing.T) {
	long := strings.Repeat("a", 80)
	got := preview(long)
	if utf8.RuneCountInString(got) != previewLimit+1 { // 50 runes + ellipsis
		t.Fatalf("expected %d runes, got %d", previewLimit+1, utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("truncated preview must end with ellipsis: %q", got)
	}
}

func TestPreviewCountsRunesNotBytes(t *testing.T) {
	long := strings.Repeat("é", 60)
	got := preview(long)
	if utf8.RuneCountInString(got) != previewLimit+1 {
		t.Fatalf("multibyte content truncated wrong: %d runes", utf8.RuneCountInString(got))
	}
}

func TestCommentLikedMessageIsDeterministic(t *testing.T) {
	a := commentLikedMessage("Ada", "great explanation")
	b := commentLikedMessage("Ada", "great explanation")
	if a != b {
		t.Fatalf("message building must be deterministic: %q vs %q", a, b)
	}
	if !strings.Contains(a, "Ada") || !strings.Contains(a, "great explanation") {
		t.Fatalf("unexpected message %q", a)
	}
}
