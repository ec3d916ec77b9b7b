package brand

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"supportbot/internal/domain"
)

// Store holds the current brand-context snapshot. Reads never block on
// reloads; a reload swaps in a fresh snapshot atomically.
type Store struct {
	path     string
	maxChars int
	current  atomic.Pointer[domain.BrandContext]
}

// NewStore loads the brand document once and fails if it cannot be read.
// Starting without brand context would silently degrade every answer.
func NewStore(path string, maxChars int) (*Store, error) {
	s := &Store{path: path, maxChars: maxChars}
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the last successfully loaded snapshot.
func (s *Store) Current() *domain.BrandContext {
	return s.current.Load()
}

// Reload re-reads the brand document. On failure the previous snapshot
// stays in place.
func (s *Store) Reload() (*domain.BrandContext, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("cannot read brand document %s: %w", s.path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("brand document %s is empty", s.path)
	}
	if len(text) > s.maxChars {
		text = text[:s.maxChars] + "\n[TRUNCATED]"
	}
	snap := &domain.BrandContext{
		Text:     text,
		Path:     s.path,
		LoadedAt: time.Now(),
	}
	s.current.Store(snap)
	return snap, nil
}
