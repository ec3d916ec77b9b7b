package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"supportbot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

const (
	discordMaxMsgLen = 2000
)

// Discord implements domain.Channel for Discord. Inbound messages carry
// the resolved channel name so the pipeline can match the configured
// target and moderator channels without knowing Discord IDs.
type Discord struct {
	token   string
	guildID string
	session *discordgo.Session
	bus     domain.MessageBus
	logger  *slog.Logger
	onReady func()

	mu    sync.RWMutex
	names map[string]string // channel ID -> channel name
}

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	Token   string
	GuildID string
	Logger  *slog.Logger
	OnReady func() // called once the gateway session is ready
}

// NewDiscord creates a new Discord channel handler.
func NewDiscord(cfg DiscordConfig) *Discord {
	return &Discord{
		token:   cfg.Token,
		guildID: cfg.GuildID,
		logger:  cfg.Logger,
		onReady: cfg.OnReady,
		names:   make(map[string]string),
	}
}

func (d *Discord) Name() string { return "discord" }

// Start connects to Discord using a bot token and begins listening.
func (d *Discord) Start(ctx context.Context, bus domain.MessageBus) error {
	d.bus = bus

	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	d.session = session

	// Register outbound handler.
	bus.OnOutbound("discord", func(msg domain.OutboundMessage) {
		if msg.Content == "" {
			return
		}
		d.sendMessage(msg.ChatID, msg.Content)
	})

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		d.cacheChannelNames(s)
		d.logger.Info("discord gateway ready",
			"user", r.User.Username,
			"guilds", len(r.Guilds),
		)
		if d.onReady != nil {
			d.onReady()
		}
	})

	// Register message handler.
	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		// Ignore bot's own messages.
		if m.Author.ID == s.State.User.ID {
			return
		}

		// If guildID is set, filter messages.
		if d.guildID != "" && m.GuildID != d.guildID {
			return
		}

		chatName := d.channelName(s, m.ChannelID)

		d.logger.Info("discord message received",
			"author", m.Author.Username,
			"channel", chatName,
			"content_len", len(m.Content),
		)

		bus.Publish(domain.InboundMessage{
			Channel:   "discord",
			ChatID:    m.ChannelID,
			ChatName:  chatName,
			MessageID: m.ID,
			SenderID:  m.Author.ID,
			Sender:    m.Author.Username,
			Content:   m.Content,
			Timestamp: time.Now(),
		})
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}

	// Wait for context cancellation.
	<-ctx.Done()
	d.logger.Info("discord bot disconnecting")
	return session.Close()
}

func (d *Discord) Stop() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

// Send posts content to a channel, chunked to Discord's message limit.
func (d *Discord) Send(ctx context.Context, chatID string, content string) error {
	chunks := splitMessage(content, discordMaxMsgLen)
	for _, chunk := range chunks {
		if _, err := d.session.ChannelMessageSend(chatID, chunk); err != nil {
			return fmt.Errorf("discord send to %s: %w", chatID, err)
		}
	}
	return nil
}

func (d *Discord) sendMessage(channelID, content string) {
	if err := d.Send(context.Background(), channelID, content); err != nil {
		d.logger.Error("discord send failed", "channel", channelID, "err", err)
	}
}

// cacheChannelNames fills the ID-to-name map from every visible guild.
func (d *Discord) cacheChannelNames(s *discordgo.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, g := range s.State.Guilds {
		channels, err := s.GuildChannels(g.ID)
		if err != nil {
			d.logger.Warn("cannot list guild channels", "guild", g.ID, "err", err)
			continue
		}
		for _, ch := range channels {
			if ch.Type == discordgo.ChannelTypeGuildText {
				d.names[ch.ID] = ch.Name
			}
		}
	}
}

// ChannelIDByName looks up a channel ID by its resolved name. Used to
// post into the moderator channel without a triggering message.
func (d *Discord) ChannelIDByName(name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for id, n := range d.names {
		if n == name {
			return id, true
		}
	}
	return "", false
}

// channelName resolves a channel ID, falling back to an API lookup for
// channels created after the ready snapshot.
func (d *Discord) channelName(s *discordgo.Session, channelID string) string {
	d.mu.RLock()
	name, ok := d.names[channelID]
	d.mu.RUnlock()
	if ok {
		return name
	}

	ch, err := s.Channel(channelID)
	if err != nil {
		return ""
	}
	d.mu.Lock()
	d.names[channelID] = ch.Name
	d.mu.Unlock()
	return ch.Name
}

// splitMessage splits a message into chunks that fit within the max length,
// trying to split on newlines when possible.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	for len(msg) > 0 {
		if len(msg) <= maxLen {
			chunks = append(chunks, msg)
			break
		}

		// Try to split on a newline.
		cut := maxLen
		if idx := strings.LastIndex(msg[:maxLen], "\n"); idx > maxLen/2 {
			cut = idx + 1
		}

		chunks = append(chunks, msg[:cut])
		msg = msg[cut:]
	}
	return chunks
}
