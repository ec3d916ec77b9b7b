// Package pipeline turns inbound chat messages into moderated,
// brand-grounded answers: redact, filter, prompt, generate, deliver, log.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"supportbot/internal/bus"
	"supportbot/internal/domain"
	"supportbot/internal/metrics"
	"supportbot/internal/model"
	"supportbot/internal/moderation"
)

const (
	defaultConcurrency   = 5
	defaultAnswerTimeout = 2 * time.Minute
	chatQueueSize        = 32
)

// Answerer produces one answer per prompt, with whatever fallback walking
// it needs internally.
type Answerer interface {
	Answer(ctx context.Context, prompt string) (*domain.Answer, error)
	Refresh(ctx context.Context) ([]domain.ModelDescriptor, error)
}

// Recorder persists interaction records and serves stats over them.
type Recorder interface {
	Record(rec domain.InteractionRecord) error
	Stats(since time.Time) (*domain.Stats, error)
}

// SuggestionQueue is the pending-answer store behind the moderation flow.
type SuggestionQueue interface {
	Enqueue(ctx context.Context, sug moderation.Suggestion) (int64, error)
	Get(ctx context.Context, id int64) (*moderation.Suggestion, error)
	Decide(ctx context.Context, id int64, status, finalAnswer, moderator string) (*moderation.Suggestion, error)
	ListPending(ctx context.Context, limit int) ([]moderation.Suggestion, error)
}

// Redactor scrubs PII from message text.
type Redactor interface {
	Redact(text string) string
}

// ChatResolver maps a channel name on a gateway to its chat ID, used to
// post suggestions into the moderator channel unprompted.
type ChatResolver func(gateway, chatName string) (chatID string, ok bool)

// Config tunes the pipeline. Channel names are matched against
// InboundMessage.ChatName as the gateways resolved them.
type Config struct {
	TargetChannel     string
	ModeratorChannel  string
	AutoPost          bool
	MinQuestionLength int
	MaxQuestionChars  int
	Concurrency       int
	AnswerTimeout     time.Duration
}

// Pipeline consumes the message bus and runs the full answer flow.
type Pipeline struct {
	cfg      Config
	msgBus   domain.MessageBus
	events   *bus.EventBus
	redactor Redactor
	brand    domain.ContextStore
	prompt   *PromptBuilder
	answerer Answerer
	recorder Recorder
	queue    SuggestionQueue
	resolve  ChatResolver
	logger   *slog.Logger

	mu      sync.Mutex
	workers map[string]chan domain.InboundMessage
	wg      sync.WaitGroup
	sem     chan struct{}
}

// Deps carries the pipeline's collaborators.
type Deps struct {
	Bus      domain.MessageBus
	Events   *bus.EventBus
	Redactor Redactor
	Brand    domain.ContextStore
	Prompt   *PromptBuilder
	Answerer Answerer
	Recorder Recorder
	Queue    SuggestionQueue
	Resolve  ChatResolver
	Logger   *slog.Logger
}

func New(cfg Config, deps Deps) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.AnswerTimeout <= 0 {
		cfg.AnswerTimeout = defaultAnswerTimeout
	}
	return &Pipeline{
		cfg:      cfg,
		msgBus:   deps.Bus,
		events:   deps.Events,
		redactor: deps.Redactor,
		brand:    deps.Brand,
		prompt:   deps.Prompt,
		answerer: deps.Answerer,
		recorder: deps.Recorder,
		queue:    deps.Queue,
		resolve:  deps.Resolve,
		logger:   deps.Logger,
		workers:  make(map[string]chan domain.InboundMessage),
		sem:      make(chan struct{}, cfg.Concurrency),
	}
}

// Run consumes inbound messages until ctx is cancelled. Messages from the
// same chat are processed in arrival order; different chats run in
// parallel up to the configured concurrency.
func (p *Pipeline) Run(ctx context.Context) {
	p.logger.Info("pipeline started",
		"target", p.cfg.TargetChannel,
		"moderator", p.cfg.ModeratorChannel,
		"auto_post", p.cfg.AutoPost,
	)

	inbound := p.msgBus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping")
			p.closeWorkers()
			p.wg.Wait()
			return
		case msg, ok := <-inbound:
			if !ok {
				p.closeWorkers()
				p.wg.Wait()
				return
			}
			p.dispatch(ctx, msg)
		}
	}
}

// dispatch routes a message to its chat's worker, creating one lazily.
func (p *Pipeline) dispatch(ctx context.Context, msg domain.InboundMessage) {
	key := msg.Channel + "/" + msg.ChatID

	p.mu.Lock()
	queue, ok := p.workers[key]
	if !ok {
		queue = make(chan domain.InboundMessage, chatQueueSize)
		p.workers[key] = queue
		p.wg.Add(1)
		go p.worker(ctx, queue)
	}
	p.mu.Unlock()

	select {
	case queue <- msg:
	default:
		p.logger.Warn("chat queue full, dropping message", "chat", key, "sender", msg.SenderID)
	}
}

func (p *Pipeline) worker(ctx context.Context, queue <-chan domain.InboundMessage) {
	defer p.wg.Done()
	for msg := range queue {
		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		p.handle(ctx, msg)
		<-p.sem
	}
}

func (p *Pipeline) closeWorkers() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, q := range p.workers {
		close(q)
	}
	p.workers = make(map[string]chan domain.InboundMessage)
}

// handle runs the full flow for one message.
func (p *Pipeline) handle(ctx context.Context, msg domain.InboundMessage) {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return
	}

	if msg.ChatName == p.cfg.ModeratorChannel {
		if cmd := ParseCommand(content); cmd != nil {
			result := p.HandleCommand(ctx, cmd, msg)
			if result.Response != "" {
				p.reply(msg, result.Response)
			}
		}
		return
	}

	if msg.ChatName != p.cfg.TargetChannel {
		return
	}

	// Redaction comes first: nothing downstream, including this process's
	// own logs, sees the raw text.
	question := p.redactor.Redact(content)
	if question != content {
		metrics.RedactionsTotal.Inc()
	}

	if !ShouldAnswer(question, p.cfg.MinQuestionLength) {
		return
	}
	if len(question) > p.cfg.MaxQuestionChars {
		question = question[:p.cfg.MaxQuestionChars]
	}

	metrics.QuestionsTotal.Inc()
	p.events.Emit(bus.Event{
		Type:    bus.EventQuestionReceived,
		Source:  "pipeline",
		Payload: map[string]any{"channel": msg.Channel, "chat": msg.ChatID},
	})

	started := time.Now()
	prompt := p.prompt.Build(p.brand.Current(), question)

	answerCtx, cancel := context.WithTimeout(ctx, p.cfg.AnswerTimeout)
	answer, err := p.answerer.Answer(answerCtx, prompt)
	cancel()

	rec := domain.InteractionRecord{
		Channel:  msg.Channel,
		ChatID:   msg.ChatID,
		Sender:   msg.Sender,
		Question: question,
	}

	switch {
	case err == nil:
		metrics.ModelLatency.Observe(answer.Latency.Seconds())
		rec.Answer = answer.Text
		rec.Model = answer.ModelID
		rec.Outcome = domain.OutcomeSuccess
		if p.cfg.AutoPost {
			rec.Path = domain.PathDirect
			p.deliver(msg, answer)
		} else if qErr := p.enqueueSuggestion(ctx, msg, question, answer); qErr != nil {
			// The approval gate is down, so no model content may reach the
			// origin chat. The asker gets the fixed fallback instead.
			p.logger.Error("cannot queue suggestion", "chat", msg.ChatID, "error", qErr)
			rec.Outcome = domain.OutcomeError
			rec.Path = domain.PathFallback
			rec.Error = qErr.Error()
			p.sendFallback(msg)
		} else {
			rec.Path = domain.PathModeration
		}

	case model.IsBlocked(err):
		p.logger.Warn("answer blocked by provider safety", "chat", msg.ChatID, "error", err)
		metrics.BlockedTotal.Inc()
		rec.Outcome = domain.OutcomeBlocked
		rec.Path = domain.PathFallback
		rec.Error = err.Error()
		p.sendFallback(msg)

	default:
		p.logger.Error("answer generation failed", "chat", msg.ChatID, "error", err)
		rec.Outcome = domain.OutcomeFallback
		rec.Path = domain.PathFallback
		rec.Error = err.Error()
		p.sendFallback(msg)
	}

	rec.LatencyMs = time.Since(started).Milliseconds()
	if err := p.recorder.Record(rec); err != nil {
		p.logger.Error("cannot record interaction", "error", err)
	}
}

// deliver posts an answer straight to the origin chat.
func (p *Pipeline) deliver(msg domain.InboundMessage, answer *domain.Answer) {
	metrics.AnswersTotal.Inc()
	p.reply(msg, answer.Text)
	p.events.Emit(bus.Event{
		Type:    bus.EventAnswerDelivered,
		Source:  "pipeline",
		Payload: map[string]any{"chat": msg.ChatID, "model": answer.ModelID},
	})
}

// enqueueSuggestion stores the answer for moderation and announces it in
// the moderator channel. A missing moderator channel is not fatal: the
// suggestion stays queued and reachable through !pending. A store failure
// is returned; the caller must not post the answer anywhere.
func (p *Pipeline) enqueueSuggestion(ctx context.Context, msg domain.InboundMessage, question string, answer *domain.Answer) error {
	id, err := p.queue.Enqueue(ctx, moderation.Suggestion{
		Channel:  msg.Channel,
		ChatID:   msg.ChatID,
		Sender:   msg.Sender,
		Question: question,
		Answer:   answer.Text,
		Model:    answer.ModelID,
	})
	if err != nil {
		return fmt.Errorf("queue suggestion: %w", err)
	}

	metrics.PendingSuggestions.Inc()
	p.events.Emit(bus.Event{
		Type:    bus.EventModerationQueued,
		Source:  "pipeline",
		Payload: map[string]any{"suggestion": id, "chat": msg.ChatID},
	})

	modChat, ok := p.resolve(msg.Channel, p.cfg.ModeratorChannel)
	if !ok {
		p.logger.Warn("moderator channel not found, suggestion queued silently",
			"channel", p.cfg.ModeratorChannel, "suggestion", id)
		return nil
	}
	p.msgBus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  modChat,
		Content: formatSuggestion(id, msg, question, answer),
	})
	return nil
}

func formatSuggestion(id int64, msg domain.InboundMessage, question string, answer *domain.Answer) string {
	return fmt.Sprintf(
		"**Suggested answer #%d** (for %s in #%s)\n**Q:** %s\n**A:** %s\n\nModerate with `!approve %d`, `!edit %d <text>`, or `!reject %d`.",
		id, msg.Sender, msg.ChatName, question, answer.Text, id, id, id,
	)
}

const fallbackText = "Sorry, I can't help with that right now. A teammate will follow up as soon as possible."

// sendFallback posts the apologetic fallback to the origin chat. It is
// delivered directly even when auto-post is off: it carries no model
// content, so there is nothing to moderate.
func (p *Pipeline) sendFallback(msg domain.InboundMessage) {
	metrics.FallbacksTotal.Inc()
	p.reply(msg, fallbackText)
}

func (p *Pipeline) reply(msg domain.InboundMessage, content string) {
	p.msgBus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: content,
	})
}
