package logutil

import (
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

func testFormatFormForLog_Properties(t *rapid.T) {
	secret := rapid.StringMatching(`[0-9]{8,24}`).Draw(t, "secret")
	title := rapid.StringMatching(`[a-zA-Zа-я ]{1,20}`).Draw(t, "title")
	form := url.Values{
		"title":                 []string{title},
		"password":              []string{secret},
		"password_confirmation": []string{secret},
	}

	out := FormatFormForLog(form, 0)
	if strings.Contains(out, secret) {
		t.Fatalf("password leaked into log line: %q", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Fatalf("missing redaction marker: %q", out)
	}
	if out != FormatFormForLog(form, 0) {
		t.Fatalf("output not stable across calls")
	}
}

func TestFormatFormForLog_Properties(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testFormatFormForLog_Properties)
}

func FuzzFormatFormForLog_Properties(f *testing.F) {
	f.Fuzz(rapid.MakeFuzz(testFormatFormForLog_Properties))
}

func testTruncateForLog_Properties(t *rapid.T) {
	value := rapid.String().Draw(t, "value")
	maxChars := rapid.IntRange(1, 64).Draw(t, "max")

	out := TruncateForLog(value, maxChars)
	if strings.Contains(out, "\n") {
		t.Fatalf("output has newline: %q", out)
	}
	if utf8.ValidString(value) && !utf8.ValidString(out) {
		t.Fatalf("truncation split a rune: %q", out)
	}
	body := strings.TrimSuffix(out, "... [truncated]")
	if utf8.RuneCountInString(body) > maxChars {
		t.Fatalf("output longer than limit: max=%d got=%q", maxChars, out)
	}
}

func TestTruncateForLog_Properties(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testTruncateForLog_Properties)
}

func TestIsSensitiveLogField(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"password":   true,
		"Password2":  true,
		"session_id": true,
		"Cookie":     true,
		"csrf-token": true,
		"title":      false,
		"slug":       false,
		"username":   false,
		"next":       false,
	}
	for key, want := range cases {
		if got := IsSensitiveLogField(key); got != want {
			t.Fatalf("IsSensitiveLogField(%q) mismatch: got=%v want=%v", key, got, want)
		}
	}
}
