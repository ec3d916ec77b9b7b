package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"supportbot/internal/bus"
	"supportbot/internal/domain"
	"supportbot/internal/metrics"
	"supportbot/internal/moderation"
)

// OperatorCommand is a parsed "!" command from the moderator channel.
type OperatorCommand struct {
	Name string   // command name without "!"
	Args []string // arguments after the command
	Raw  string   // original full text
}

// CommandResult holds the response for a handled command.
type CommandResult struct {
	Response string
	Handled  bool
}

// ParseCommand checks if a message starts with "!" and parses it.
// Returns nil if the message is not a command.
func ParseCommand(text string) *OperatorCommand {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "!") {
		return nil
	}

	parts := strings.Fields(text)
	if len(parts) == 0 || parts[0] == "!" {
		return nil
	}

	name := strings.ToLower(strings.TrimPrefix(parts[0], "!"))

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return &OperatorCommand{Name: name, Args: args, Raw: text}
}

// HandleCommand processes an operator command from the moderator channel.
func (p *Pipeline) HandleCommand(ctx context.Context, cmd *OperatorCommand, msg domain.InboundMessage) CommandResult {
	switch cmd.Name {
	case "help":
		return CommandResult{Response: helpText(), Handled: true}

	case "stats":
		return p.statsCommand(cmd.Args)

	case "refresh":
		return p.refreshCommand(ctx)

	case "pending":
		return p.pendingCommand(ctx)

	case "approve":
		return p.decideCommand(ctx, cmd.Args, moderation.StatusApproved, msg.Sender)

	case "edit":
		return p.editCommand(ctx, cmd.Args, msg.Sender)

	case "reject":
		return p.decideCommand(ctx, cmd.Args, moderation.StatusRejected, msg.Sender)

	default:
		return CommandResult{
			Response: fmt.Sprintf("Unknown command `%s`. Try `!help`.", cmd.Raw),
			Handled:  true,
		}
	}
}

func helpText() string {
	return `**Operator commands**

!stats [today|7d|all] — interaction counts and latency
!refresh — reload the brand document and the model list
!pending — list suggestions awaiting a decision
!approve <id> — post a suggested answer as-is
!edit <id> <text> — post <text> instead of the suggestion
!reject <id> — discard a suggestion
!help — this message`
}

func (p *Pipeline) statsCommand(args []string) CommandResult {
	var since time.Time
	window := "all"
	if len(args) > 0 {
		window = strings.ToLower(args[0])
	}
	switch window {
	case "today":
		now := time.Now()
		since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "7d":
		since = time.Now().Add(-7 * 24 * time.Hour)
	case "all":
	default:
		return CommandResult{Response: "Usage: `!stats [today|7d|all]`", Handled: true}
	}

	stats, err := p.recorder.Stats(since)
	if err != nil {
		return CommandResult{Response: "Stats unavailable: " + err.Error(), Handled: true}
	}
	return CommandResult{Response: formatStats(window, stats), Handled: true}
}

func formatStats(window string, stats *domain.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Stats (%s)**\n", window)
	fmt.Fprintf(&sb, "Handled: %d (success %d, blocked %d, fallback %d, errors %d)\n",
		stats.Total, stats.Success, stats.Blocked, stats.Fallbacks, stats.Errors)
	if stats.AvgLatencyMs > 0 {
		fmt.Fprintf(&sb, "Avg latency: %.0f ms\n", stats.AvgLatencyMs)
	}
	if len(stats.TopCategories) > 0 {
		sb.WriteString("Top categories: ")
		parts := make([]string, 0, len(stats.TopCategories))
		for _, c := range stats.TopCategories {
			parts = append(parts, fmt.Sprintf("%s (%d)", c.Category, c.Count))
		}
		sb.WriteString(strings.Join(parts, ", "))
	}
	return strings.TrimRight(sb.String(), "\n ")
}

func (p *Pipeline) refreshCommand(ctx context.Context) CommandResult {
	snap, err := p.brand.Reload()
	if err != nil {
		return CommandResult{Response: "Brand reload failed, previous context kept: " + err.Error(), Handled: true}
	}

	selected, err := p.answerer.Refresh(ctx)
	if err != nil {
		return CommandResult{
			Response: fmt.Sprintf("Brand context reloaded (%d chars) but model refresh failed: %v", len(snap.Text), err),
			Handled:  true,
		}
	}

	p.events.Emit(bus.Event{
		Type:    bus.EventContextReloaded,
		Source:  "pipeline",
		Payload: map[string]any{"chars": len(snap.Text), "models": len(selected)},
	})

	return CommandResult{
		Response: fmt.Sprintf("Reloaded: brand context %d chars, model cascade %d candidates (primary %s).",
			len(snap.Text), len(selected), selected[0].Name),
		Handled: true,
	}
}

func (p *Pipeline) pendingCommand(ctx context.Context) CommandResult {
	pending, err := p.queue.ListPending(ctx, 10)
	if err != nil {
		return CommandResult{Response: "Cannot list pending suggestions: " + err.Error(), Handled: true}
	}
	if len(pending) == 0 {
		return CommandResult{Response: "No suggestions waiting.", Handled: true}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%d pending suggestion(s)**\n", len(pending))
	for _, sug := range pending {
		fmt.Fprintf(&sb, "#%d from %s: %s\n", sug.ID, sug.Sender, truncate(sug.Question, 120))
	}
	return CommandResult{Response: strings.TrimRight(sb.String(), "\n"), Handled: true}
}

// decideCommand handles !approve and !reject.
func (p *Pipeline) decideCommand(ctx context.Context, args []string, status, moderator string) CommandResult {
	id, err := parseID(args)
	if err != nil {
		return CommandResult{Response: err.Error(), Handled: true}
	}

	finalAnswer := ""
	if status == moderation.StatusApproved {
		sug, err := p.queue.Get(ctx, id)
		if err != nil {
			return CommandResult{Response: err.Error(), Handled: true}
		}
		finalAnswer = sug.Answer
	}

	sug, err := p.queue.Decide(ctx, id, status, finalAnswer, moderator)
	if err != nil {
		return CommandResult{Response: err.Error(), Handled: true}
	}
	metrics.PendingSuggestions.Dec()

	p.events.Emit(bus.Event{
		Type:    bus.EventModerationDecided,
		Source:  "pipeline",
		Payload: map[string]any{"suggestion": id, "status": status, "moderator": moderator},
	})

	if status == moderation.StatusRejected {
		return CommandResult{Response: fmt.Sprintf("Suggestion #%d rejected.", id), Handled: true}
	}

	p.postDecided(sug)
	return CommandResult{Response: fmt.Sprintf("Suggestion #%d approved and posted.", id), Handled: true}
}

func (p *Pipeline) editCommand(ctx context.Context, args []string, moderator string) CommandResult {
	if len(args) < 2 {
		return CommandResult{Response: "Usage: `!edit <id> <replacement text>`", Handled: true}
	}
	id, err := parseID(args[:1])
	if err != nil {
		return CommandResult{Response: err.Error(), Handled: true}
	}
	text := strings.Join(args[1:], " ")

	sug, err := p.queue.Decide(ctx, id, moderation.StatusEdited, text, moderator)
	if err != nil {
		return CommandResult{Response: err.Error(), Handled: true}
	}
	metrics.PendingSuggestions.Dec()

	p.events.Emit(bus.Event{
		Type:    bus.EventModerationDecided,
		Source:  "pipeline",
		Payload: map[string]any{"suggestion": id, "status": moderation.StatusEdited, "moderator": moderator},
	})

	p.postDecided(sug)
	return CommandResult{Response: fmt.Sprintf("Suggestion #%d posted with your edit.", id), Handled: true}
}

// postDecided delivers the final answer to the chat the question came from.
func (p *Pipeline) postDecided(sug *moderation.Suggestion) {
	metrics.AnswersTotal.Inc()
	p.msgBus.SendOutbound(domain.OutboundMessage{
		Channel: sug.Channel,
		ChatID:  sug.ChatID,
		Content: sug.FinalAnswer,
	})
}

func parseID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing suggestion id")
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid suggestion id %q", args[0])
	}
	return id, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
