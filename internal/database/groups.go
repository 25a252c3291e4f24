package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"whatsrelay/internal/models"
)

func (d *Database) SaveOrUpdateGroup(ctx context.Context, group *models.Group) error {
	group.LastUpdated = d.timestamp()
	_, err := d.db.ExecContext(ctx, UpsertGroupQuery, group.ID, group.Name, group.AccountID, group.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to save group: %w", err)
	}
	return nil
}

func (d *Database) GetGroup(ctx context.Context, id, accountID string) (*models.Group, error) {
	group, err := scanGroup(d.db.QueryRowContext(ctx, SelectGroupQuery, id, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

func (d *Database) ListGroupsByAccount(ctx context.Context, accountID string) ([]*models.Group, error) {
	rows, err := d.db.QueryContext(ctx, SelectGroupsByAccountQuery, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

func (d *Database) CleanupGroupsOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	return d.deleteOlderThan(ctx, DeleteGroupsOlderThanQuery, retentionDays, "groups")
}

func scanGroup(row rowScanner) (*models.Group, error) {
	var group models.Group
	if err := row.Scan(&group.ID, &group.Name, &group.AccountID, &group.LastUpdated); err != nil {
		return nil, err
	}
	return &group, nil
}
