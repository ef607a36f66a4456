package util

import (
	"errors"
	"strings"
	"testing"
)

func TestHashKey(t *testing.T) {
	id := "session-123"
	got := HashKey(id)
	if got != HashKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	if got == HashKey("session-124") {
		t.Fatal("expected distinct hashes")
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "lab.pdf", want: "lab.pdf"},
		{in: "  lab results.pdf ", want: "lab results.pdf"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: `C:\Users\me\lab.pdf`, want: "lab.pdf"},
		{in: "lab\x00\n.pdf", want: "lab.pdf"},
	}
	for _, tc := range cases {
		got, err := SanitizeFileName(tc.in)
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "   ", "..", "/"} {
		if _, err := SanitizeFileName(bad); !errors.Is(err, ErrInvalidFileName) {
			t.Fatalf("SanitizeFileName(%q): expected ErrInvalidFileName, got %v", bad, err)
		}
	}

	long, err := SanitizeFileName(strings.Repeat("a", 300) + ".pdf")
	if err != nil || len(long) != 255 {
		t.Fatalf("expected 255-byte name, got %d err=%v", len(long), err)
	}
}
