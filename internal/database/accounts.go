package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"whatsrelay/internal/models"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// SaveOrUpdateAccount inserts the account or updates its session path, status
// and last activity. A nil LastActivity keeps the stored value.
func (d *Database) SaveOrUpdateAccount(ctx context.Context, account *models.Account) error {
	now := d.timestamp()
	status := account.Status
	if status == "" {
		status = models.AccountStatusDisconnected
	}

	err := retryDBOperation(ctx, "save account", func() error {
		_, err := d.db.ExecContext(ctx, UpsertAccountQuery,
			account.ID,
			account.SessionPath,
			string(status),
			nullTime(account.LastActivity),
			now,
			now,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (d *Database) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := scanAccount(d.db.QueryRowContext(ctx, SelectAccountByIDQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (d *Database) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	rows, err := d.db.QueryContext(ctx, SelectAllAccountsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccountStatus returns an error when the status is not a known value.
// Updating a missing account is a no-op.
func (d *Database) UpdateAccountStatus(ctx context.Context, id string, status models.AccountStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid account status: %q", status)
	}

	err := retryDBOperation(ctx, "update account status", func() error {
		_, err := d.db.ExecContext(ctx, UpdateAccountStatusQuery, string(status), d.timestamp(), id)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	return nil
}

// DeleteAccount removes the account together with its rules, mappings and
// cached groups. It reports whether a row was deleted.
func (d *Database) DeleteAccount(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := retryDBOperation(ctx, "delete account", func() error {
		res, err := d.db.ExecContext(ctx, DeleteAccountQuery, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete account: %w", err)
	}
	return affected > 0, nil
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		account      models.Account
		status       string
		lastActivity sql.NullTime
	)
	if err := row.Scan(
		&account.ID,
		&account.SessionPath,
		&status,
		&lastActivity,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	account.Status = models.AccountStatus(status)
	if lastActivity.Valid {
		t := lastActivity.Time
		account.LastActivity = &t
	}
	return &account, nil
}
