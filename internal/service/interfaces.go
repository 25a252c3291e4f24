package service

import (
	"context"

	"whatsrelay/internal/models"
	"whatsrelay/pkg/whatsapp/types"
)

// AccountStore persists accounts and their connection status
type AccountStore interface {
	SaveOrUpdateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	UpdateAccountStatus(ctx context.Context, id string, status models.AccountStatus) error
	DeleteAccount(ctx context.Context, id string) (bool, error)
}

// RuleStore persists forwarding rules
type RuleStore interface {
	AddRule(ctx context.Context, rule *models.ForwardingRule) error
	GetRule(ctx context.Context, id int64) (*models.ForwardingRule, error)
	ListActiveRulesByAccount(ctx context.Context, accountID string) ([]*models.ForwardingRule, error)
	ListRulesByAccount(ctx context.Context, accountID string) ([]*models.ForwardingRule, error)
	UpdateRule(ctx context.Context, id int64, update models.RuleUpdate) (*models.ForwardingRule, error)
	DeleteRule(ctx context.Context, id int64) (bool, error)
}

// MappingStore persists original-to-forwarded message identities
type MappingStore interface {
	SaveMapping(ctx context.Context, mapping *models.MessageMapping) error
	GetOriginalMapping(ctx context.Context, forwardedMsgID, destinationChatID, accountID string) (*models.MessageMapping, error)
	CleanupMappingsOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// GroupStore caches group chats used as forwarding destinations
type GroupStore interface {
	SaveOrUpdateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id, accountID string) (*models.Group, error)
	ListGroupsByAccount(ctx context.Context, accountID string) ([]*models.Group, error)
	CleanupGroupsOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// Store is everything the service layer needs from the database
type Store interface {
	AccountStore
	RuleStore
	MappingStore
	GroupStore
	Ping(ctx context.Context) error
}

// MessageHandler consumes inbound messages of one account. Calls for the same
// account never overlap.
type MessageHandler interface {
	HandleMessage(ctx context.Context, accountID string, client types.Client, msg *types.Message)
}

// Notifier pushes operator alerts to a side channel
type Notifier interface {
	Notify(ctx context.Context, text string) error
	NotifyPairing(ctx context.Context, accountID string, png []byte) error
}
