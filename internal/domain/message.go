package domain

import "time"

// InboundMessage is a message received from a chat platform, before any
// pipeline processing. It is immutable once captured.
type InboundMessage struct {
	Channel   string // gateway name: "discord" | "telegram"
	ChatID    string // platform channel/chat identifier
	ChatName  string // resolved channel name ("product-questions", "moderator", ...)
	MessageID string
	SenderID  string
	Sender    string // display name, used in moderator annotations
	Content   string
	Timestamp time.Time
}

// OutboundMessage is a reply or notification carried back out by a gateway.
type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
	Format  string // text | markdown
}
