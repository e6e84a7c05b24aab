package util

import (
	"strings"
	"testing"
)

func TestStripHTML(t *testing.T) {
	got := StripHTML("<p>Bitcoin &amp; Ether\n\n<b>rally</b></p>")
	if got != "Bitcoin & Ether rally" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	long := strings.Repeat("ä", 600)
	got := Truncate(long, 500)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("missing ellipsis")
	}
	if n := len([]rune(strings.TrimSuffix(got, "..."))); n != 500 {
		t.Fatalf("kept %d runes", n)
	}
}
