package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"whatsrelay/internal/metrics"
	"whatsrelay/internal/routing"
	"whatsrelay/internal/tracing"
	"whatsrelay/pkg/whatsapp/types"
)

// ReplyCorrelator sends replies made in a destination chat back to the
// source chat, quoting the original message
type ReplyCorrelator struct {
	mappings  MappingStore
	formatter *routing.MessageFormatter
	metrics   *metrics.Metrics
	logger    *logrus.Logger
}

func NewReplyCorrelator(mappings MappingStore, formatter *routing.MessageFormatter, m *metrics.Metrics, logger *logrus.Logger) *ReplyCorrelator {
	return &ReplyCorrelator{
		mappings:  mappings,
		formatter: formatter,
		metrics:   m,
		logger:    logger,
	}
}

// Correlate reports whether the reply was delivered to the source chat
func (c *ReplyCorrelator) Correlate(ctx context.Context, accountID string, client types.Client, msg *types.Message) bool {
	ctx, span := tracing.StartSpan(ctx, "correlate_reply", tracing.AttrAccountID.String(accountID))
	defer span.End()

	fields := messageFields(accountID, msg)

	quotedID := msg.QuotedMsgID
	if quotedID == "" {
		quoted, err := client.GetQuotedMessage(ctx, msg)
		if err != nil {
			c.fail(ctx, accountID, fields, err, "Failed to fetch quoted message")
			return false
		}
		if quoted != nil {
			quotedID = quoted.ID
		}
	}
	if quotedID == "" {
		c.metrics.Reply(accountID, metrics.ReplyUnmatched)
		c.logger.WithFields(fields).Debug("Quoted message id unavailable")
		return false
	}

	normalized := routing.NormalizeMessageID(quotedID)
	fields[LogFieldQuotedMsgID] = normalized

	mapping, err := c.mappings.GetOriginalMapping(ctx, normalized, msg.From, accountID)
	if err != nil {
		c.fail(ctx, accountID, fields, err, "Failed to look up message mapping")
		return false
	}
	if mapping == nil {
		c.metrics.Reply(accountID, metrics.ReplyUnmatched)
		c.logger.WithFields(fields).Debug("Reply does not quote a forwarded message")
		return false
	}

	fields[LogFieldOriginalMsgID] = mapping.OriginalMsgID
	fields[LogFieldSourceID] = mapping.SourceChatID

	content, opts, ok := c.buildReply(ctx, accountID, client, msg, fields)
	if !ok {
		c.metrics.Reply(accountID, metrics.ReplyFailed)
		return false
	}
	opts.QuotedMessageID = mapping.OriginalMsgID

	if _, err := client.SendMessage(ctx, mapping.SourceChatID, content, opts); err != nil {
		c.fail(ctx, accountID, fields, err, "Failed to send reply to source chat")
		return false
	}

	c.metrics.Reply(accountID, metrics.ReplyRouted)
	c.logger.WithFields(fields).Info("Reply routed to source chat")
	return true
}

// buildReply carries the media with the body as caption, or the text alone.
// Media that cannot be downloaded means no reply.
func (c *ReplyCorrelator) buildReply(ctx context.Context, accountID string, client types.Client, msg *types.Message, fields logrus.Fields) (types.OutgoingContent, types.SendOptions, bool) {
	text := c.formatter.Format(msg, "", msg.Time(), true)
	hasText := strings.TrimSpace(msg.Body) != ""

	if msg.HasMedia {
		media, err := client.DownloadMedia(ctx, msg)
		if err != nil {
			c.logger.WithError(err).WithFields(fields).Warn("Failed to download reply media")
			return types.OutgoingContent{}, types.SendOptions{}, false
		}
		if media == nil {
			c.logger.WithFields(fields).Warn("Reply media unavailable, reply not routed")
			return types.OutgoingContent{}, types.SendOptions{}, false
		}
		opts := types.SendOptions{}
		if hasText {
			opts.Caption = msg.Body
		}
		return types.OutgoingContent{Media: media}, opts, true
	}

	if strings.TrimSpace(text) == "" {
		c.logger.WithFields(fields).Warn("Reply has no content to send")
		return types.OutgoingContent{}, types.SendOptions{}, false
	}
	return types.OutgoingContent{Text: text}, types.SendOptions{}, true
}

func (c *ReplyCorrelator) fail(ctx context.Context, accountID string, fields logrus.Fields, err error, msg string) {
	tracing.RecordError(ctx, err)
	c.metrics.Reply(accountID, metrics.ReplyFailed)
	c.logger.WithError(err).WithFields(fields).Error(msg)
}
