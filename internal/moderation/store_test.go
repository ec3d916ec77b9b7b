package moderation

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewStore(filepath.Join(t.TempDir(), "moderation.db"), logger)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnqueueAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, Suggestion{
		Channel:  "discord",
		ChatID:   "42",
		Sender:   "jane",
		Question: "how do refunds work?",
		Answer:   "Refunds take 3 days.",
		Model:    "gemini-2.5-flash",
	})
	if err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}

	sug, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if sug.Status != StatusPending {
		t.Fatalf("Status = %q, want pending", sug.Status)
	}
	if sug.Answer != "Refunds take 3 days." || sug.ChatID != "42" {
		t.Fatalf("Get() = %+v", sug)
	}
}

func TestDecideApprove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, Suggestion{Channel: "discord", ChatID: "1", Question: "q", Answer: "a"})
	if err != nil {
		t.Fatal(err)
	}

	sug, err := s.Decide(ctx, id, StatusApproved, "a", "mod")
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if sug.Status != StatusApproved || sug.FinalAnswer != "a" || sug.Moderator != "mod" {
		t.Fatalf("Decide() = %+v", sug)
	}
	if !sug.DecidedAt.Valid {
		t.Fatal("DecidedAt not set")
	}
}

func TestDecideEditReplacesAnswer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, Suggestion{Channel: "discord", ChatID: "1", Question: "q", Answer: "draft"})
	if err != nil {
		t.Fatal(err)
	}

	sug, err := s.Decide(ctx, id, StatusEdited, "polished answer", "mod")
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if sug.FinalAnswer != "polished answer" || sug.Answer != "draft" {
		t.Fatalf("Decide() = %+v", sug)
	}
}

func TestDecideTwiceFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, Suggestion{Channel: "discord", ChatID: "1", Question: "q", Answer: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Decide(ctx, id, StatusRejected, "", "mod1"); err != nil {
		t.Fatalf("first Decide() error: %v", err)
	}
	if _, err := s.Decide(ctx, id, StatusApproved, "a", "mod2"); err == nil {
		t.Fatal("second Decide() succeeded, want error")
	}
}

func TestDecideInvalidStatus(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Decide(context.Background(), 1, "pending", "", "mod"); err == nil {
		t.Fatal("Decide() accepted invalid status")
	}
}

func TestDecideUnknownID(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Decide(context.Background(), 999, StatusApproved, "a", "mod"); err == nil {
		t.Fatal("Decide() succeeded for unknown id")
	}
}

func TestListPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Enqueue(ctx, Suggestion{Channel: "discord", ChatID: "1", Question: "q1", Answer: "a1"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Enqueue(ctx, Suggestion{Channel: "discord", ChatID: "2", Question: "q2", Answer: "a2"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Decide(ctx, first, StatusRejected, "", "mod"); err != nil {
		t.Fatal(err)
	}

	pending, err := s.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending() error: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second {
		t.Fatalf("ListPending() = %+v", pending)
	}
}
