package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"whatsrelay/internal/models"
)

// SaveMapping records a forward. A second forward of the same original
// message for the same account keeps the first mapping.
func (d *Database) SaveMapping(ctx context.Context, mapping *models.MessageMapping) error {
	if mapping.Timestamp.IsZero() {
		mapping.Timestamp = d.timestamp()
	}

	err := retryDBOperation(ctx, "save message mapping", func() error {
		_, err := d.db.ExecContext(ctx, InsertMappingQuery,
			mapping.OriginalMsgID,
			mapping.ForwardedMsgID,
			mapping.SourceChatID,
			mapping.DestinationChatID,
			mapping.AccountID,
			mapping.Timestamp.UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save message mapping: %w", err)
	}
	return nil
}

// GetOriginalMapping finds the forward that produced forwardedMsgID in destinationChatID
func (d *Database) GetOriginalMapping(ctx context.Context, forwardedMsgID, destinationChatID, accountID string) (*models.MessageMapping, error) {
	var mapping models.MessageMapping
	err := d.db.QueryRowContext(ctx, SelectOriginalMappingQuery, forwardedMsgID, destinationChatID, accountID).Scan(
		&mapping.OriginalMsgID,
		&mapping.ForwardedMsgID,
		&mapping.SourceChatID,
		&mapping.DestinationChatID,
		&mapping.AccountID,
		&mapping.Timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message mapping: %w", err)
	}
	return &mapping, nil
}

// CleanupMappingsOlderThan deletes mappings older than retentionDays and
// returns how many were removed
func (d *Database) CleanupMappingsOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	return d.deleteOlderThan(ctx, DeleteMappingsOlderThanQuery, retentionDays, "message mappings")
}

func (d *Database) deleteOlderThan(ctx context.Context, query string, retentionDays int, what string) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	cutoff := d.timestamp().AddDate(0, 0, -retentionDays)

	var deleted int64
	err := retryDBOperation(ctx, "cleanup "+what, func() error {
		res, err := d.db.ExecContext(ctx, query, cutoff)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup %s: %w", what, err)
	}
	return deleted, nil
}
