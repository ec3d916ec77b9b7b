package pipeline

import (
	"context"
	"strings"
	"testing"

	"supportbot/internal/domain"
	"supportbot/internal/moderation"
)

func TestParseCommand(t *testing.T) {
	cmd := ParseCommand("!edit 7 use the portal instead")
	if cmd == nil {
		t.Fatal("ParseCommand() = nil")
	}
	if cmd.Name != "edit" || len(cmd.Args) != 5 || cmd.Args[0] != "7" {
		t.Fatalf("ParseCommand() = %+v", cmd)
	}

	if ParseCommand("just a normal message") != nil {
		t.Fatal("non-command parsed as command")
	}
	if ParseCommand("!") != nil {
		t.Fatal("bare bang parsed as command")
	}
	if got := ParseCommand("  !STATS today "); got == nil || got.Name != "stats" {
		t.Fatalf("ParseCommand() = %+v, want lowercased stats", got)
	}
}

func TestStatsCommand(t *testing.T) {
	h := newHarness(t, true)
	h.recorder.stats = &domain.Stats{
		Total: 12, Success: 9, Blocked: 1, Fallbacks: 1, Errors: 1,
		AvgLatencyMs:  850,
		TopCategories: []domain.CategoryCount{{Category: "billing", Count: 6}},
	}

	h.pipeline.handle(context.Background(), modMessage("!stats 7d"))

	sent := h.sent()
	if len(sent) != 1 || sent[0].ChatID != "mod-chat" {
		t.Fatalf("outbound = %+v", sent)
	}
	for _, want := range []string{"Handled: 12", "success 9", "850 ms", "billing (6)"} {
		if !strings.Contains(sent[0].Content, want) {
			t.Fatalf("stats reply missing %q:\n%s", want, sent[0].Content)
		}
	}
}

func TestStatsCommandBadWindow(t *testing.T) {
	h := newHarness(t, true)
	h.pipeline.handle(context.Background(), modMessage("!stats yesterday"))

	sent := h.sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Content, "Usage") {
		t.Fatalf("outbound = %+v", sent)
	}
}

func TestRefreshCommand(t *testing.T) {
	h := newHarness(t, true)
	h.pipeline.handle(context.Background(), modMessage("!refresh"))

	if h.answerer.refreshed != 1 {
		t.Fatalf("refreshed = %d, want 1", h.answerer.refreshed)
	}
	sent := h.sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Content, "Reloaded") {
		t.Fatalf("outbound = %+v", sent)
	}
}

func TestApproveCommandPostsToOrigin(t *testing.T) {
	h := newHarness(t, false)
	h.pipeline.handle(context.Background(), question("How do refunds work?"))
	h.mu.Lock()
	h.outbound = nil
	h.mu.Unlock()

	h.pipeline.handle(context.Background(), modMessage("!approve 1"))

	sent := h.sent()
	if len(sent) != 2 {
		t.Fatalf("outbound = %+v, want answer post and confirmation", sent)
	}
	var posted, confirmed bool
	for _, m := range sent {
		if m.ChatID == "chan-1" && m.Content == "Refunds take 3 days." {
			posted = true
		}
		if m.ChatID == "mod-chat" && strings.Contains(m.Content, "approved") {
			confirmed = true
		}
	}
	if !posted || !confirmed {
		t.Fatalf("outbound = %+v", sent)
	}

	sug, err := h.queue.Get(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if sug.Status != moderation.StatusApproved || sug.Moderator != "mod" {
		t.Fatalf("suggestion = %+v", sug)
	}
}

func TestEditCommandPostsReplacement(t *testing.T) {
	h := newHarness(t, false)
	h.pipeline.handle(context.Background(), question("How do refunds work?"))
	h.mu.Lock()
	h.outbound = nil
	h.mu.Unlock()

	h.pipeline.handle(context.Background(), modMessage("!edit 1 Refunds take 5 business days."))

	var posted string
	for _, m := range h.sent() {
		if m.ChatID == "chan-1" {
			posted = m.Content
		}
	}
	if posted != "Refunds take 5 business days." {
		t.Fatalf("posted = %q", posted)
	}

	sug, _ := h.queue.Get(context.Background(), 1)
	if sug.Status != moderation.StatusEdited || sug.Answer != "Refunds take 3 days." {
		t.Fatalf("suggestion = %+v", sug)
	}
}

func TestRejectCommandPostsNothing(t *testing.T) {
	h := newHarness(t, false)
	h.pipeline.handle(context.Background(), question("How do refunds work?"))
	h.mu.Lock()
	h.outbound = nil
	h.mu.Unlock()

	h.pipeline.handle(context.Background(), modMessage("!reject 1"))

	for _, m := range h.sent() {
		if m.ChatID == "chan-1" {
			t.Fatalf("rejected answer was posted: %+v", m)
		}
	}
	sug, _ := h.queue.Get(context.Background(), 1)
	if sug.Status != moderation.StatusRejected {
		t.Fatalf("suggestion = %+v", sug)
	}
}

func TestPendingCommand(t *testing.T) {
	h := newHarness(t, false)
	h.pipeline.handle(context.Background(), question("How do refunds work?"))
	h.mu.Lock()
	h.outbound = nil
	h.mu.Unlock()

	h.pipeline.handle(context.Background(), modMessage("!pending"))

	sent := h.sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Content, "#1") {
		t.Fatalf("outbound = %+v", sent)
	}
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t, true)
	h.pipeline.handle(context.Background(), modMessage("!frobnicate"))

	sent := h.sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Content, "Unknown command") {
		t.Fatalf("outbound = %+v", sent)
	}
}

func TestModeratorChatterIgnored(t *testing.T) {
	h := newHarness(t, true)
	h.pipeline.handle(context.Background(), modMessage("morning folks, how is the queue looking?"))

	if len(h.sent()) != 0 {
		t.Fatalf("outbound = %+v, want none", h.sent())
	}
}

func TestDecideCommandBadID(t *testing.T) {
	h := newHarness(t, false)
	h.pipeline.handle(context.Background(), modMessage("!approve seven"))

	sent := h.sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Content, "invalid suggestion id") {
		t.Fatalf("outbound = %+v", sent)
	}
}
