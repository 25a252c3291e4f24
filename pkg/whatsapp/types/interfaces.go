package types

import (
	"context"
	"time"
)

// EventHandler receives client events. Implementations must not block.
type EventHandler func(Event)

// Client is one protocol session bound to one account
type Client interface {
	Initialize(ctx context.Context) error
	Destroy(ctx context.Context) error
	SendMessage(ctx context.Context, chatID string, content OutgoingContent, opts SendOptions) (*SentMessage, error)
	GetChatByID(ctx context.Context, chatID string) (*Chat, error)
	GetContact(ctx context.Context, msg *Message) (*Contact, error)
	GetQuotedMessage(ctx context.Context, msg *Message) (*Message, error)
	// DownloadMedia returns nil without error when the attachment is unavailable.
	DownloadMedia(ctx context.Context, msg *Message) (*Media, error)
}

// ClientConfig configures a protocol client for one account
type ClientConfig struct {
	AccountID      string
	SessionName    string
	BridgeURL      string
	APIKey         string
	RequestTimeout time.Duration
	ReadLimitBytes int64
}

// ClientFactory builds a client that reports its events to handler
type ClientFactory func(cfg ClientConfig, handler EventHandler) Client
