package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"whatsrelay/internal/metrics"
	"whatsrelay/internal/models"
	"whatsrelay/internal/routing"
	"whatsrelay/internal/tracing"
	"whatsrelay/pkg/whatsapp/types"
)

// Failure stages reported to metrics
const (
	stageRules   = "rules"
	stageMedia   = "media"
	stageSend    = "send"
	stageMapping = "mapping"
	stageNoMedia = "no_media"
	stageNoID    = "no_id"
)

// MessageRouter forwards inbound messages according to the account's rules
// and hands quoted replies to the ReplyCorrelator
type MessageRouter struct {
	rules      RuleStore
	mappings   MappingStore
	groups     *GroupDirectory
	filter     *routing.FilterProcessor
	formatter  *routing.MessageFormatter
	correlator *ReplyCorrelator
	metrics    *metrics.Metrics
	logger     *logrus.Logger
	now        func() time.Time
}

func NewMessageRouter(
	store Store,
	filter *routing.FilterProcessor,
	formatter *routing.MessageFormatter,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *MessageRouter {
	return &MessageRouter{
		rules:      store,
		mappings:   store,
		groups:     NewGroupDirectory(store, m, logger),
		filter:     filter,
		formatter:  formatter,
		correlator: NewReplyCorrelator(store, formatter, m, logger),
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// Groups exposes the group directory used for destination names
func (r *MessageRouter) Groups() *GroupDirectory {
	return r.groups
}

// HandleMessage routes one inbound message. Errors are logged, never returned.
func (r *MessageRouter) HandleMessage(ctx context.Context, accountID string, client types.Client, msg *types.Message) {
	if msg == nil || msg.FromMe || msg.IsRevoked() {
		return
	}

	r.metrics.MessageReceived(accountID)
	ctx, span := tracing.StartSpan(ctx, "route_message",
		tracing.AttrAccountID.String(accountID),
		tracing.AttrMsgType.String(string(msg.Type)),
	)
	defer span.End()

	fields := messageFields(accountID, msg)

	if msg.HasQuotedMsg {
		r.correlator.Correlate(ctx, accountID, client, msg)
	}

	rule, err := r.matchRule(ctx, accountID, msg.From)
	if err != nil {
		tracing.RecordError(ctx, err)
		r.metrics.ForwardFailed(accountID, stageRules)
		r.logger.WithError(err).WithFields(fields).Error("Failed to load forwarding rules")
		return
	}
	if rule == nil {
		r.logger.WithFields(fields).Debug("No forwarding rule for source chat")
		return
	}

	fields[LogFieldRuleID] = rule.ID
	fields[LogFieldDestinationID] = rule.DestinationID
	tracing.AddSpanAttributes(ctx, tracing.AttrRuleID.Int64(rule.ID))

	destinationName := r.groups.ResolveName(ctx, accountID, client, rule.DestinationID)

	if !r.filter.Passes(msg, rule) {
		r.metrics.MessageFiltered(accountID, string(rule.FilterType))
		fields[LogFieldFilterType] = string(rule.FilterType)
		r.logger.WithFields(fields).Debug("Message rejected by rule filter")
		return
	}

	start := r.now()
	// replies carry no attribution
	var sender string
	if !msg.HasQuotedMsg {
		sender = r.senderName(ctx, accountID, client, msg)
	}
	text := r.formatter.Format(msg, sender, msg.Time(), msg.HasQuotedMsg)

	content := types.OutgoingContent{Text: text}
	var opts types.SendOptions
	if msg.HasMedia {
		media, err := client.DownloadMedia(ctx, msg)
		if err != nil {
			tracing.RecordError(ctx, err)
			r.metrics.ForwardFailed(accountID, stageMedia)
			r.logger.WithError(err).WithFields(fields).Error("Failed to download media")
			return
		}
		if media == nil {
			r.metrics.ForwardFailed(accountID, stageNoMedia)
			r.logger.WithFields(fields).Warn("Media unavailable, message not forwarded")
			return
		}
		content = types.OutgoingContent{Media: media}
		if msg.Type.AcceptsCaption() {
			opts.Caption = text
		}
	}

	sent, err := client.SendMessage(ctx, rule.DestinationID, content, opts)
	if err != nil {
		tracing.RecordError(ctx, err)
		r.metrics.ForwardFailed(accountID, stageSend)
		r.logger.WithError(err).WithFields(fields).Error("Failed to forward message")
		return
	}

	r.metrics.MessageForwarded(accountID, string(msg.Type), r.now().Sub(start))
	r.logger.WithFields(fields).WithField("destination_name", destinationName).Info("Message forwarded")

	if sent == nil || sent.ID == "" {
		r.metrics.ForwardFailed(accountID, stageNoID)
		r.logger.WithFields(fields).Warn("Forwarded message has no id, reply correlation unavailable")
		return
	}

	mapping := &models.MessageMapping{
		OriginalMsgID:     msg.ID,
		ForwardedMsgID:    sent.ID,
		SourceChatID:      msg.From,
		DestinationChatID: rule.DestinationID,
		AccountID:         accountID,
		Timestamp:         r.now(),
	}
	if err := r.mappings.SaveMapping(ctx, mapping); err != nil {
		tracing.RecordError(ctx, err)
		r.metrics.ForwardFailed(accountID, stageMapping)
		r.logger.WithError(err).WithFields(fields).Error("Failed to save message mapping")
	}
}

// matchRule returns the oldest active rule for the source chat
func (r *MessageRouter) matchRule(ctx context.Context, accountID, sourceID string) (*models.ForwardingRule, error) {
	rules, err := r.rules.ListActiveRulesByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if rule.SourceID == sourceID {
			return rule, nil
		}
	}
	return nil, nil
}

func (r *MessageRouter) senderName(ctx context.Context, accountID string, client types.Client, msg *types.Message) string {
	fallback := msg.From
	if msg.Author != "" {
		fallback = msg.Author
	}

	contact, err := client.GetContact(ctx, msg)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			LogFieldAccountID: accountID,
			LogFieldMessageID: msg.ID,
		}).Debug("Failed to resolve sender contact")
	}
	return contact.DisplayName(fallback)
}
