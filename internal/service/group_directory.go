package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"whatsrelay/internal/metrics"
	"whatsrelay/internal/models"
	"whatsrelay/pkg/whatsapp/types"
)

const groupSuffix = "@g.us"

// GroupDirectory resolves destination chat names and keeps the group cache
// fresh. Lookup failures never block forwarding.
type GroupDirectory struct {
	store   GroupStore
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

func NewGroupDirectory(store GroupStore, m *metrics.Metrics, logger *logrus.Logger) *GroupDirectory {
	return &GroupDirectory{store: store, metrics: m, logger: logger}
}

// ResolveName returns a display name for chatID. Group chats are refreshed
// in the cache; when the client cannot answer, the cached name or the raw id
// is returned.
func (d *GroupDirectory) ResolveName(ctx context.Context, accountID string, client types.Client, chatID string) string {
	chat, err := client.GetChatByID(ctx, chatID)
	if err != nil || chat == nil {
		if err != nil {
			d.logger.WithError(err).WithFields(logrus.Fields{
				LogFieldAccountID: accountID,
				LogFieldChatID:    chatID,
			}).Warn("Failed to resolve destination chat")
		}
		return d.cachedName(ctx, accountID, chatID)
	}

	if chat.IsGroup || strings.HasSuffix(chat.ID, groupSuffix) {
		group := &models.Group{ID: chat.ID, Name: chat.Name, AccountID: accountID}
		if err := d.store.SaveOrUpdateGroup(ctx, group); err != nil {
			d.logger.WithError(err).WithFields(logrus.Fields{
				LogFieldAccountID: accountID,
				LogFieldChatID:    chat.ID,
			}).Warn("Failed to cache group")
		}
	}

	if chat.Name == "" {
		return chatID
	}
	return chat.Name
}

func (d *GroupDirectory) cachedName(ctx context.Context, accountID, chatID string) string {
	if !strings.HasSuffix(chatID, groupSuffix) {
		return chatID
	}
	group, err := d.store.GetGroup(ctx, chatID, accountID)
	if err != nil || group == nil || group.Name == "" {
		return chatID
	}
	return group.Name
}

// List returns the cached groups of an account
func (d *GroupDirectory) List(ctx context.Context, accountID string) ([]*models.Group, error) {
	groups, err := d.store.ListGroupsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// Cleanup removes groups not seen within the retention window
func (d *GroupDirectory) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	n, err := d.store.CleanupGroupsOlderThan(ctx, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old groups: %w", err)
	}
	d.metrics.RowsCleaned("whatsapp_groups", n)
	return n, nil
}
