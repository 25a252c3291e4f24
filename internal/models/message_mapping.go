package models

import "time"

// MessageMapping links an original message to the copy produced when it was forwarded.
// It is the only way a reply in the destination chat can be traced back to its source.
type MessageMapping struct {
	OriginalMsgID     string    `json:"originalMsgId"`
	ForwardedMsgID    string    `json:"forwardedMsgId"`
	SourceChatID      string    `json:"sourceChatId"`
	DestinationChatID string    `json:"destinationChatId"`
	AccountID         string    `json:"accountId"`
	Timestamp         time.Time `json:"timestamp"`
}
