package routing

import (
	"fmt"
	"time"

	"whatsrelay/pkg/whatsapp/types"
)

const (
	attributionSeparator = "______________________________"
	// AttributionTimeLayout renders dd.mm.yyyy, hh:mm:ss
	AttributionTimeLayout = "02.01.2006, 15:04:05"
)

// MessageFormatter builds the content of a forwarded message
type MessageFormatter struct {
	location *time.Location
}

// NewMessageFormatter renders attribution times in loc, or local time when nil
func NewMessageFormatter(loc *time.Location) *MessageFormatter {
	if loc == nil {
		loc = time.Local
	}
	return &MessageFormatter{location: loc}
}

// Format returns the message content followed by the sender attribution.
// Replies carry the content only.
func (f *MessageFormatter) Format(msg *types.Message, senderName string, sentAt time.Time, isReply bool) string {
	content := msg.Content()
	if isReply {
		return content
	}
	return fmt.Sprintf("%s\n%s\n*Від:* %s\n*Час:* %s",
		content, attributionSeparator, senderName, f.FormatTime(sentAt))
}

// FormatTime renders t in the formatter's location
func (f *MessageFormatter) FormatTime(t time.Time) string {
	return t.In(f.location).Format(AttributionTimeLayout)
}
