package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/artvision/snapvision/internal/capture"
)

func TestCaptionTitle(t *testing.T) {
	short := captionTitle(&capture.Result{Title: "Пластиковые окна"})
	if short != "Пластиковые окна" {
		t.Errorf("short title changed: %q", short)
	}

	empty := captionTitle(&capture.Result{URL: "https://example.com"})
	if empty != "https://example.com" {
		t.Errorf("expected URL fallback, got %q", empty)
	}
}

func TestCaptionTitleTruncatesRunes(t *testing.T) {
	long := strings.Repeat("я", 150)

	got := captionTitle(&capture.Result{Title: long})

	if !utf8.ValidString(got) {
		t.Fatalf("caption is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 100 {
		t.Errorf("expected 100 runes, got %d", n)
	}
	if !strings.HasSuffix(got, "я") {
		t.Errorf("caption ends mid-rune: %q", got)
	}
}
