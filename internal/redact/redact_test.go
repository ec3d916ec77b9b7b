package redact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRedactEmail(t *testing.T) {
	r := New()
	got := r.Redact("contact me at jane.doe-99@mail.example.co for details")
	want := "contact me at [REDACTED_EMAIL] for details"
	if got != want {
		t.Fatalf("Redact() = %q, want %q", got, want)
	}
}

func TestRedactLongNumber(t *testing.T) {
	r := New()
	got := r.Redact("my order is 123456789 thanks")
	if got != "my order is [REDACTED_NUMBER] thanks" {
		t.Fatalf("Redact() = %q", got)
	}
}

func TestShortNumberKept(t *testing.T) {
	r := New()
	in := "I ordered 3 items on day 12345"
	if got := r.Redact(in); got != in {
		t.Fatalf("Redact() = %q, want unchanged", got)
	}
}

func TestRedactMultiple(t *testing.T) {
	r := New()
	got := r.Redact("a@b.com called 5551234567 and c@d.org")
	want := "[REDACTED_EMAIL] called [REDACTED_NUMBER] and [REDACTED_EMAIL]"
	if got != want {
		t.Fatalf("Redact() = %q, want %q", got, want)
	}
}

func TestRedactIdempotent(t *testing.T) {
	r := New()
	once := r.Redact("reach me: foo@bar.io or 987654321")
	twice := r.Redact(once)
	if once != twice {
		t.Fatalf("second pass changed output: %q -> %q", once, twice)
	}
}

func TestEmailRuleWinsOverNumber(t *testing.T) {
	// The digits inside the address belong to the email span.
	r := New()
	got := r.Redact("mail 12345678@example.com now")
	if got != "mail [REDACTED_EMAIL] now" {
		t.Fatalf("Redact() = %q", got)
	}
}

func TestRedactEmptyAndClean(t *testing.T) {
	r := New()
	if got := r.Redact(""); got != "" {
		t.Fatalf("Redact(\"\") = %q", got)
	}
	in := "how do refunds work?"
	if got := r.Redact(in); got != in {
		t.Fatalf("Redact() = %q, want unchanged", got)
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `rules:
  - name: handle
    pattern: '@[A-Za-z0-9_]{3,}'
    replacement: '[REDACTED_HANDLE]'
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New()
	if err := r.LoadRules(path); err != nil {
		t.Fatalf("LoadRules() error: %v", err)
	}
	got := r.Redact("ping @support_team about this")
	if !strings.Contains(got, "[REDACTED_HANDLE]") {
		t.Fatalf("Redact() = %q, want handle redacted", got)
	}
}

func TestLoadRulesBadPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `rules:
  - name: broken
    pattern: '['
    replacement: '[X]'
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New()
	if err := r.LoadRules(path); err == nil {
		t.Fatal("LoadRules() succeeded with invalid pattern")
	}
}
