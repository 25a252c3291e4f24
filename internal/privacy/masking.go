package privacy

import (
	"strings"

	"github.com/sirupsen/logrus"

	"whatsrelay/internal/constants"
)

// MaskChatID hides all but the last digits of the user part of a chat id
// Example: "380501234567@c.us" -> "********4567@c.us"
func MaskChatID(chatID string) string {
	if chatID == "" {
		return ""
	}

	if at := strings.Index(chatID, "@"); at >= 0 {
		return maskString(chatID[:at], constants.DefaultMaskKeepChars) + chatID[at:]
	}
	return maskString(chatID, constants.DefaultMaskKeepChars)
}

// MaskMessageID masks the chat and random parts of a serialized message id
// Example: "true_380501234567@c.us_3EB0A1B2C3D4" -> "true_********4567@c.us_********C3D4"
func MaskMessageID(messageID string) string {
	if messageID == "" {
		return ""
	}

	parts := strings.SplitN(messageID, "_", 3)
	if len(parts) == 3 && (parts[0] == "true" || parts[0] == "false") {
		return parts[0] + "_" + MaskChatID(parts[1]) + "_" + maskString(parts[2], constants.DefaultMaskKeepChars)
	}

	return maskString(messageID, constants.DefaultMessageIDLength)
}

// maskString masks a string showing only the last n characters
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

var chatFields = map[string]bool{
	"chat_id":             true,
	"source_chat_id":      true,
	"destination_chat_id": true,
	"source_id":           true,
	"destination_id":      true,
	"from":                true,
}

var messageFields = map[string]bool{
	"message_id":       true,
	"original_msg_id":  true,
	"forwarded_msg_id": true,
	"quoted_msg_id":    true,
}

// MaskFields returns a copy of fields with chat and message ids masked
func MaskFields(fields logrus.Fields) logrus.Fields {
	if fields == nil {
		return nil
	}

	masked := make(logrus.Fields, len(fields))
	for k, v := range fields {
		s, ok := v.(string)
		switch {
		case ok && chatFields[k]:
			masked[k] = MaskChatID(s)
		case ok && messageFields[k]:
			masked[k] = MaskMessageID(s)
		default:
			masked[k] = v
		}
	}
	return masked
}

// Hook masks identifiers on every log entry before it is formatted
type Hook struct{}

func (Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (Hook) Fire(entry *logrus.Entry) error {
	entry.Data = MaskFields(entry.Data)
	return nil
}
