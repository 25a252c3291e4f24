package types

import (
	"strings"
	"time"
)

// Message is an inbound message as reported by the bridge
type Message struct {
	ID           string      `json:"id"`
	From         string      `json:"from"`
	To           string      `json:"to"`
	Author       string      `json:"author,omitempty"`
	Body         string      `json:"body"`
	Caption      string      `json:"caption,omitempty"`
	Type         MessageType `json:"type"`
	FromMe       bool        `json:"fromMe"`
	HasMedia     bool        `json:"hasMedia"`
	HasQuotedMsg bool        `json:"hasQuotedMsg"`
	QuotedMsgID  string      `json:"quotedMsgId,omitempty"`
	Timestamp    int64       `json:"timestamp"`
}

// Content returns the body, falling back to the media caption
func (m *Message) Content() string {
	if m.Body != "" {
		return m.Body
	}
	return m.Caption
}

// IsRevoked reports whether the message is a deletion notice
func (m *Message) IsRevoked() bool {
	return m.Type == MessageTypeRevoked
}

// Time returns the message timestamp, or now when the bridge omitted it
func (m *Message) Time() time.Time {
	if m.Timestamp <= 0 {
		return time.Now()
	}
	return time.Unix(m.Timestamp, 0)
}

// Chat describes a conversation
type Chat struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsGroup bool   `json:"isGroup"`
}

// Contact describes the author of a message
type Contact struct {
	ID       string `json:"id"`
	Number   string `json:"number,omitempty"`
	Name     string `json:"name,omitempty"`
	PushName string `json:"pushname,omitempty"`
}

// DisplayName prefers the profile name, then the saved name, then fallback
func (c *Contact) DisplayName(fallback string) string {
	if c == nil {
		return fallback
	}
	if c.PushName != "" {
		return c.PushName
	}
	if c.Name != "" {
		return c.Name
	}
	return fallback
}

// Media is a downloaded attachment with base64 encoded data
type Media struct {
	MimeType string `json:"mimetype"`
	Data     string `json:"data"`
	Filename string `json:"filename,omitempty"`
}

// OutgoingContent is either text or media; media wins when both are set
type OutgoingContent struct {
	Text  string `json:"text,omitempty"`
	Media *Media `json:"media,omitempty"`
}

// IsEmpty reports whether there is nothing to send
func (c OutgoingContent) IsEmpty() bool {
	return c.Media == nil && strings.TrimSpace(c.Text) == ""
}

// SendOptions carries optional send parameters
type SendOptions struct {
	Caption         string `json:"caption,omitempty"`
	QuotedMessageID string `json:"quotedMessageId,omitempty"`
}

// SentMessage is the bridge acknowledgement of a sent message
type SentMessage struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Event is a lifecycle notification from a protocol client
type Event struct {
	Type    EventType `json:"type"`
	QRCode  string    `json:"qr,omitempty"`
	Message *Message  `json:"message,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Error   string    `json:"error,omitempty"`
}
