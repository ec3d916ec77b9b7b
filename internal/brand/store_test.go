package brand

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeBrandFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brand_info.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewStoreLoads(t *testing.T) {
	path := writeBrandFile(t, "  Acme sells widgets.\n")
	s, err := NewStore(path, 18000)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	snap := s.Current()
	if snap.Text != "Acme sells widgets." {
		t.Fatalf("Text = %q", snap.Text)
	}
	if snap.LoadedAt.IsZero() {
		t.Fatal("LoadedAt is zero")
	}
}

func TestNewStoreMissingFile(t *testing.T) {
	if _, err := NewStore(filepath.Join(t.TempDir(), "nope.txt"), 18000); err == nil {
		t.Fatal("NewStore() succeeded with missing file")
	}
}

func TestNewStoreEmptyFile(t *testing.T) {
	path := writeBrandFile(t, "   \n\t")
	if _, err := NewStore(path, 18000); err == nil {
		t.Fatal("NewStore() succeeded with empty document")
	}
}

func TestTruncation(t *testing.T) {
	path := writeBrandFile(t, strings.Repeat("x", 100))
	s, err := NewStore(path, 40)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	text := s.Current().Text
	if !strings.HasSuffix(text, "[TRUNCATED]") {
		t.Fatalf("truncated text missing marker: %q", text)
	}
	if !strings.HasPrefix(text, strings.Repeat("x", 40)) {
		t.Fatalf("truncated text = %q", text)
	}
}

func TestReloadKeepsSnapshotOnFailure(t *testing.T) {
	path := writeBrandFile(t, "original context")
	s, err := NewStore(path, 18000)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Reload(); err == nil {
		t.Fatal("Reload() succeeded after file removal")
	}
	if got := s.Current().Text; got != "original context" {
		t.Fatalf("Current().Text = %q, want previous snapshot", got)
	}
}

func TestReloadPicksUpChanges(t *testing.T) {
	path := writeBrandFile(t, "v1")
	s, err := NewStore(path, 18000)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	snap, err := s.Reload()
	if err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if snap.Text != "v2" || s.Current().Text != "v2" {
		t.Fatalf("snapshot not updated: %q / %q", snap.Text, s.Current().Text)
	}
}
