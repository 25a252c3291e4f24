package routing

import (
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"whatsrelay/internal/models"
	"whatsrelay/pkg/whatsapp/types"
)

// FilterProcessor decides whether a message satisfies a rule's filter
type FilterProcessor struct {
	logger *logrus.Logger

	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

func NewFilterProcessor(logger *logrus.Logger) *FilterProcessor {
	return &FilterProcessor{
		logger:   logger,
		patterns: make(map[string]*regexp.Regexp),
	}
}

// Passes evaluates the rule filter against the message. Inactive rules never
// pass; unknown filter kinds always pass.
func (f *FilterProcessor) Passes(msg *types.Message, rule *models.ForwardingRule) bool {
	if msg == nil || rule == nil || !rule.IsActive {
		return false
	}

	switch rule.FilterType {
	case models.FilterNone, "":
		return true
	case models.FilterTextContains:
		return f.textContains(msg, rule.FilterValue)
	case models.FilterRegex:
		return f.regexMatches(msg, rule)
	case models.FilterMediaOnly:
		return msg.HasMedia
	case models.FilterTextOnly:
		return msg.Type == types.MessageTypeChat && !msg.HasMedia
	case models.FilterIgnorePlusSign:
		return !(msg.Type == types.MessageTypeChat && strings.TrimSpace(msg.Body) == "+")
	default:
		f.logger.WithFields(logrus.Fields{
			"rule_id":     rule.ID,
			"account_id":  rule.AccountID,
			"filter_type": string(rule.FilterType),
		}).Warn("Unknown filter type, allowing message")
		return true
	}
}

func (f *FilterProcessor) textContains(msg *types.Message, value string) bool {
	if !msg.Type.IsTextBearing() {
		return false
	}
	return strings.Contains(strings.ToLower(msg.Content()), strings.ToLower(value))
}

func (f *FilterProcessor) regexMatches(msg *types.Message, rule *models.ForwardingRule) bool {
	if !msg.Type.IsTextBearing() {
		return false
	}
	re, err := f.compile(rule.FilterValue)
	if err != nil {
		f.logger.WithFields(logrus.Fields{
			"rule_id":    rule.ID,
			"account_id": rule.AccountID,
			"pattern":    rule.FilterValue,
			"error":      err.Error(),
		}).Error("Invalid regex filter, rejecting message")
		return false
	}
	return re.MatchString(msg.Content())
}

func (f *FilterProcessor) compile(pattern string) (*regexp.Regexp, error) {
	f.mu.RLock()
	re, ok := f.patterns[pattern]
	f.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.patterns[pattern] = re
	f.mu.Unlock()
	return re, nil
}
