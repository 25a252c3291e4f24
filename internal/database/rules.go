package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"whatsrelay/internal/models"
)

// AddRule inserts a rule and fills in its id and timestamps
func (d *Database) AddRule(ctx context.Context, rule *models.ForwardingRule) error {
	if rule.FilterType == "" {
		rule.FilterType = models.FilterNone
	}
	now := d.timestamp()

	res, err := d.db.ExecContext(ctx, InsertRuleQuery,
		rule.AccountID,
		rule.SourceID,
		rule.DestinationID,
		string(rule.FilterType),
		rule.FilterValue,
		rule.IsActive,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to add rule: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read rule id: %w", err)
	}
	rule.ID = id
	rule.CreatedAt = now
	rule.UpdatedAt = now
	return nil
}

func (d *Database) GetRule(ctx context.Context, id int64) (*models.ForwardingRule, error) {
	rule, err := scanRule(d.db.QueryRowContext(ctx, SelectRuleByIDQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// ListActiveRulesByAccount returns the active rules in creation order
func (d *Database) ListActiveRulesByAccount(ctx context.Context, accountID string) ([]*models.ForwardingRule, error) {
	return d.queryRules(ctx, SelectActiveRulesByAccountQuery, accountID)
}

func (d *Database) ListRulesByAccount(ctx context.Context, accountID string) ([]*models.ForwardingRule, error) {
	return d.queryRules(ctx, SelectRulesByAccountQuery, accountID)
}

// UpdateRule applies the non-nil fields of update. It returns the updated
// rule, or nil when no rule has that id.
func (d *Database) UpdateRule(ctx context.Context, id int64, update models.RuleUpdate) (*models.ForwardingRule, error) {
	rule, err := d.GetRule(ctx, id)
	if err != nil || rule == nil {
		return nil, err
	}

	if update.SourceID != nil {
		rule.SourceID = *update.SourceID
	}
	if update.DestinationID != nil {
		rule.DestinationID = *update.DestinationID
	}
	if update.FilterType != nil {
		rule.FilterType = *update.FilterType
	}
	if update.FilterValue != nil {
		rule.FilterValue = *update.FilterValue
	}
	if update.IsActive != nil {
		rule.IsActive = *update.IsActive
	}
	rule.UpdatedAt = d.timestamp()

	_, err = d.db.ExecContext(ctx, UpdateRuleQuery,
		rule.SourceID,
		rule.DestinationID,
		string(rule.FilterType),
		rule.FilterValue,
		rule.IsActive,
		rule.UpdatedAt,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}
	return rule, nil
}

// DeleteRule reports whether a rule was deleted
func (d *Database) DeleteRule(ctx context.Context, id int64) (bool, error) {
	res, err := d.db.ExecContext(ctx, DeleteRuleQuery, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read deleted rows: %w", err)
	}
	return affected > 0, nil
}

func (d *Database) queryRules(ctx context.Context, query, accountID string) ([]*models.ForwardingRule, error) {
	rows, err := d.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.ForwardingRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

func scanRule(row rowScanner) (*models.ForwardingRule, error) {
	var (
		rule       models.ForwardingRule
		filterType string
	)
	if err := row.Scan(
		&rule.ID,
		&rule.AccountID,
		&rule.SourceID,
		&rule.DestinationID,
		&filterType,
		&rule.FilterValue,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rule.FilterType = models.FilterKind(filterType)
	return &rule, nil
}
