package service

import (
	"github.com/sirupsen/logrus"

	"whatsrelay/pkg/whatsapp/types"
)

func accountEntry(logger *logrus.Logger, accountID string) *logrus.Entry {
	return logger.WithField(LogFieldAccountID, accountID)
}

// messageFields are the fields attached to every log line about msg
func messageFields(accountID string, msg *types.Message) logrus.Fields {
	return logrus.Fields{
		LogFieldAccountID:   accountID,
		LogFieldMessageID:   msg.ID,
		LogFieldChatID:      msg.From,
		LogFieldMessageType: string(msg.Type),
	}
}
