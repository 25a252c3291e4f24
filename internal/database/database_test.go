package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsrelay/internal/models"
)

func setupTestDB(t *testing.T) *Database {
	db, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createAccount(t *testing.T, db *Database, id string) *models.Account {
	account := &models.Account{ID: id, SessionPath: id + "-session", Status: models.AccountStatusDisconnected}
	require.NoError(t, db.SaveOrUpdateAccount(context.Background(), account))
	return account
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("../../escape.db")
	assert.Error(t, err)
}

func TestAccounts_CRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	missing, err := db.GetAccount(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	createAccount(t, db, "acc1")
	createAccount(t, db, "acc2")

	account, err := db.GetAccount(ctx, "acc1")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "acc1-session", account.SessionPath)
	assert.Equal(t, models.AccountStatusDisconnected, account.Status)
	assert.Nil(t, account.LastActivity)

	require.NoError(t, db.UpdateAccountStatus(ctx, "acc1", models.AccountStatusConnected))
	account, err = db.GetAccount(ctx, "acc1")
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusConnected, account.Status)

	accounts, err := db.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	deleted, err := db.DeleteAccount(ctx, "acc1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = db.DeleteAccount(ctx, "acc1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAccounts_LastActivityPreserved(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveOrUpdateAccount(ctx, &models.Account{
		ID: "acc1", SessionPath: "acc1-session", Status: models.AccountStatusConnected, LastActivity: &seen,
	}))

	require.NoError(t, db.SaveOrUpdateAccount(ctx, &models.Account{
		ID: "acc1", SessionPath: "acc1-session", Status: models.AccountStatusStopped,
	}))

	account, err := db.GetAccount(ctx, "acc1")
	require.NoError(t, err)
	require.NotNil(t, account.LastActivity)
	assert.True(t, seen.Equal(*account.LastActivity))
	assert.Equal(t, models.AccountStatusStopped, account.Status)
}

func TestAccounts_InvalidStatus(t *testing.T) {
	db := setupTestDB(t)
	createAccount(t, db, "acc1")
	assert.Error(t, db.UpdateAccountStatus(context.Background(), "acc1", "sleeping"))
}

func TestRules_FirstMatchOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createAccount(t, db, "acc1")

	r1 := &models.ForwardingRule{AccountID: "acc1", SourceID: "X", DestinationID: "D1", IsActive: true}
	r2 := &models.ForwardingRule{AccountID: "acc1", SourceID: "X", DestinationID: "D2", IsActive: true}
	inactive := &models.ForwardingRule{AccountID: "acc1", SourceID: "X", DestinationID: "D3", IsActive: false}
	require.NoError(t, db.AddRule(ctx, r1))
	require.NoError(t, db.AddRule(ctx, r2))
	require.NoError(t, db.AddRule(ctx, inactive))
	assert.Less(t, r1.ID, r2.ID)
	assert.Equal(t, models.FilterNone, r1.FilterType)

	active, err := db.ListActiveRulesByAccount(ctx, "acc1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, r1.ID, active[0].ID)
	assert.Equal(t, "D1", active[0].DestinationID)

	all, err := db.ListRulesByAccount(ctx, "acc1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRules_RequiresAccount(t *testing.T) {
	db := setupTestDB(t)
	err := db.AddRule(context.Background(), &models.ForwardingRule{AccountID: "ghost", SourceID: "X", DestinationID: "Y", IsActive: true})
	assert.Error(t, err)
}

func TestRules_UpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createAccount(t, db, "acc1")

	rule := &models.ForwardingRule{AccountID: "acc1", SourceID: "X", DestinationID: "Y", IsActive: true}
	require.NoError(t, db.AddRule(ctx, rule))

	kind := models.FilterTextContains
	value := "urgent"
	active := false
	updated, err := db.UpdateRule(ctx, rule.ID, models.RuleUpdate{FilterType: &kind, FilterValue: &value, IsActive: &active})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, models.FilterTextContains, updated.FilterType)
	assert.Equal(t, "Y", updated.DestinationID)

	stored, err := db.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "urgent", stored.FilterValue)
	assert.False(t, stored.IsActive)

	missing, err := db.UpdateRule(ctx, 9999, models.RuleUpdate{IsActive: &active})
	require.NoError(t, err)
	assert.Nil(t, missing)

	deleted, err := db.DeleteRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = db.DeleteRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMappings_SaveAndLookup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createAccount(t, db, "acc1")

	require.NoError(t, db.SaveMapping(ctx, &models.MessageMapping{
		OriginalMsgID:     "O1",
		ForwardedMsgID:    "F1",
		SourceChatID:      "A",
		DestinationChatID: "B",
		AccountID:         "acc1",
	}))

	mapping, err := db.GetOriginalMapping(ctx, "F1", "B", "acc1")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, "O1", mapping.OriginalMsgID)
	assert.Equal(t, "A", mapping.SourceChatID)

	wrongChat, err := db.GetOriginalMapping(ctx, "F1", "C", "acc1")
	require.NoError(t, err)
	assert.Nil(t, wrongChat)

	// duplicate original ids are ignored
	require.NoError(t, db.SaveMapping(ctx, &models.MessageMapping{
		OriginalMsgID: "O1", ForwardedMsgID: "F2", SourceChatID: "A", DestinationChatID: "B", AccountID: "acc1",
	}))
	dup, err := db.GetOriginalMapping(ctx, "F2", "B", "acc1")
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestMappings_Cleanup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createAccount(t, db, "acc1")

	old := time.Now().UTC().AddDate(0, 0, -40)
	require.NoError(t, db.SaveMapping(ctx, &models.MessageMapping{
		OriginalMsgID: "old", ForwardedMsgID: "F-old", SourceChatID: "A", DestinationChatID: "B", AccountID: "acc1", Timestamp: old,
	}))
	require.NoError(t, db.SaveMapping(ctx, &models.MessageMapping{
		OriginalMsgID: "new", ForwardedMsgID: "F-new", SourceChatID: "A", DestinationChatID: "B", AccountID: "acc1",
	}))

	deleted, err := db.CleanupMappingsOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	kept, err := db.GetOriginalMapping(ctx, "F-new", "B", "acc1")
	require.NoError(t, err)
	assert.NotNil(t, kept)

	_, err = db.CleanupMappingsOlderThan(ctx, 0)
	assert.Error(t, err)
}

func TestDeleteAccount_Cascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createAccount(t, db, "acc1")

	rule := &models.ForwardingRule{AccountID: "acc1", SourceID: "X", DestinationID: "Y", IsActive: true}
	require.NoError(t, db.AddRule(ctx, rule))
	require.NoError(t, db.SaveMapping(ctx, &models.MessageMapping{
		OriginalMsgID: "O1", ForwardedMsgID: "F1", SourceChatID: "X", DestinationChatID: "Y", AccountID: "acc1",
	}))
	require.NoError(t, db.SaveOrUpdateGroup(ctx, &models.Group{ID: "Y", Name: "Team", AccountID: "acc1"}))

	_, err := db.DeleteAccount(ctx, "acc1")
	require.NoError(t, err)

	stored, err := db.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	mapping, err := db.GetOriginalMapping(ctx, "F1", "Y", "acc1")
	require.NoError(t, err)
	assert.Nil(t, mapping)

	groups, err := db.ListGroupsByAccount(ctx, "acc1")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGroups_UpsertAndCleanup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createAccount(t, db, "acc1")

	require.NoError(t, db.SaveOrUpdateGroup(ctx, &models.Group{ID: "g1@g.us", Name: "Old name", AccountID: "acc1"}))
	require.NoError(t, db.SaveOrUpdateGroup(ctx, &models.Group{ID: "g1@g.us", Name: "New name", AccountID: "acc1"}))

	group, err := db.GetGroup(ctx, "g1@g.us", "acc1")
	require.NoError(t, err)
	require.NotNil(t, group)
	assert.Equal(t, "New name", group.Name)

	db.now = func() time.Time { return time.Now().AddDate(0, 0, -100) }
	require.NoError(t, db.SaveOrUpdateGroup(ctx, &models.Group{ID: "g2@g.us", Name: "Stale", AccountID: "acc1"}))
	db.now = time.Now

	deleted, err := db.CleanupGroupsOlderThan(ctx, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	groups, err := db.ListGroupsByAccount(ctx, "acc1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "g1@g.us", groups[0].ID)
}
