package database

// Account queries
const (
	UpsertAccountQuery = `
		INSERT INTO accounts (id, session_path, status, last_activity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_path = excluded.session_path,
			status = excluded.status,
			last_activity = COALESCE(excluded.last_activity, accounts.last_activity),
			updated_at = excluded.updated_at
	`

	SelectAccountByIDQuery = `
		SELECT id, session_path, status, last_activity, created_at, updated_at
		FROM accounts
		WHERE id = ?
	`

	SelectAllAccountsQuery = `
		SELECT id, session_path, status, last_activity, created_at, updated_at
		FROM accounts
		ORDER BY created_at ASC, id ASC
	`

	UpdateAccountStatusQuery = `
		UPDATE accounts
		SET status = ?, updated_at = ?
		WHERE id = ?
	`

	DeleteAccountQuery = `DELETE FROM accounts WHERE id = ?`
)

// Forwarding rule queries
const (
	InsertRuleQuery = `
		INSERT INTO forwarding_rules (
			account_id, source_id, destination_id, filter_type, filter_value,
			is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	SelectRuleByIDQuery = `
		SELECT id, account_id, source_id, destination_id, filter_type, filter_value,
		       is_active, created_at, updated_at
		FROM forwarding_rules
		WHERE id = ?
	`

	SelectActiveRulesByAccountQuery = `
		SELECT id, account_id, source_id, destination_id, filter_type, filter_value,
		       is_active, created_at, updated_at
		FROM forwarding_rules
		WHERE account_id = ? AND is_active = 1
		ORDER BY id ASC
	`

	SelectRulesByAccountQuery = `
		SELECT id, account_id, source_id, destination_id, filter_type, filter_value,
		       is_active, created_at, updated_at
		FROM forwarding_rules
		WHERE account_id = ?
		ORDER BY id ASC
	`

	UpdateRuleQuery = `
		UPDATE forwarding_rules
		SET source_id = ?, destination_id = ?, filter_type = ?, filter_value = ?,
		    is_active = ?, updated_at = ?
		WHERE id = ?
	`

	DeleteRuleQuery = `DELETE FROM forwarding_rules WHERE id = ?`
)

// Message mapping queries
const (
	InsertMappingQuery = `
		INSERT INTO message_map (
			original_msg_id, forwarded_msg_id, source_chat_id,
			destination_chat_id, account_id, timestamp
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(original_msg_id, account_id) DO NOTHING
	`

	SelectOriginalMappingQuery = `
		SELECT original_msg_id, forwarded_msg_id, source_chat_id,
		       destination_chat_id, account_id, timestamp
		FROM message_map
		WHERE forwarded_msg_id = ? AND destination_chat_id = ? AND account_id = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	DeleteMappingsOlderThanQuery = `DELETE FROM message_map WHERE timestamp < ?`
)

// Group cache queries
const (
	UpsertGroupQuery = `
		INSERT INTO whatsapp_groups (id, name, account_id, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id, account_id) DO UPDATE SET
			name = excluded.name,
			last_updated = excluded.last_updated
	`

	SelectGroupQuery = `
		SELECT id, name, account_id, last_updated
		FROM whatsapp_groups
		WHERE id = ? AND account_id = ?
	`

	SelectGroupsByAccountQuery = `
		SELECT id, name, account_id, last_updated
		FROM whatsapp_groups
		WHERE account_id = ?
		ORDER BY name ASC, id ASC
	`

	DeleteGroupsOlderThanQuery = `DELETE FROM whatsapp_groups WHERE last_updated < ?`
)
