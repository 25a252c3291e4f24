package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsrelay/internal/errors"
	"whatsrelay/internal/models"
)

func TestValidateAccountID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "default_test_account", false},
		{"dashes and digits", "shop-01", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"slash", "../acc", true},
		{"space", "my acc", true},
		{"too long", strings.Repeat("a", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccountID(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeValidationFailed, errors.GetCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateChatID(t *testing.T) {
	assert.NoError(t, ValidateChatID("sourceId", "380501234567@c.us"))
	assert.NoError(t, ValidateChatID("sourceId", "120363012345678901@g.us"))
	assert.Error(t, ValidateChatID("sourceId", ""))
	assert.Error(t, ValidateChatID("sourceId", "380 50@c.us"))
	assert.Error(t, ValidateChatID("sourceId", strings.Repeat("1", 129)))
}

func TestValidateMessageID(t *testing.T) {
	assert.NoError(t, ValidateMessageID("true_380501234567@c.us_3EB0"))
	assert.Error(t, ValidateMessageID(""))
	assert.Error(t, ValidateMessageID("bad\nid"))
}

func TestValidateFilter(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.FilterKind
		value   string
		wantErr bool
	}{
		{"default none", "", "", false},
		{"none", models.FilterNone, "", false},
		{"media only", models.FilterMediaOnly, "", false},
		{"text only", models.FilterTextOnly, "", false},
		{"ignore plus", models.FilterIgnorePlusSign, "", false},
		{"text contains", models.FilterTextContains, "urgent", false},
		{"text contains empty", models.FilterTextContains, "", true},
		{"regex", models.FilterRegex, `^\d+$`, false},
		{"regex invalid", models.FilterRegex, "[abc", true},
		{"regex empty", models.FilterRegex, "", true},
		{"unknown", "keyword_blacklist", "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilter(tt.kind, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRule(t *testing.T) {
	rule := &models.ForwardingRule{AccountID: "acc1", SourceID: "a@g.us", DestinationID: "b@g.us"}
	assert.NoError(t, ValidateRule(rule))

	missing := &models.ForwardingRule{AccountID: "acc1", SourceID: "a@g.us"}
	err := ValidateRule(missing)
	require.Error(t, err)
	assert.Contains(t, errors.GetUserMessage(err), "destinationId")
}

func TestValidateRuleUpdate(t *testing.T) {
	current := &models.ForwardingRule{FilterType: models.FilterTextContains, FilterValue: "hi"}

	assert.Error(t, ValidateRuleUpdate(models.RuleUpdate{}, current))

	active := false
	assert.NoError(t, ValidateRuleUpdate(models.RuleUpdate{IsActive: &active}, current))

	regex := models.FilterRegex
	assert.NoError(t, ValidateRuleUpdate(models.RuleUpdate{FilterType: &regex}, current))

	bad := "[unclosed"
	assert.Error(t, ValidateRuleUpdate(models.RuleUpdate{FilterType: &regex, FilterValue: &bad}, current))

	empty := ""
	assert.Error(t, ValidateRuleUpdate(models.RuleUpdate{SourceID: &empty}, current))
}

func TestValidateNumericRange(t *testing.T) {
	assert.NoError(t, ValidateNumericRange(5, "n", 1, 10))
	assert.Error(t, ValidateNumericRange(0, "n", 1, 10))
	assert.Error(t, ValidateNumericRange(11, "n", 1, 10))
}
