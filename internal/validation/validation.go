package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"whatsrelay/internal/constants"
	"whatsrelay/internal/errors"
	"whatsrelay/internal/models"
)

// ValidateAccountID checks an account id. Ids become part of session and
// file names, so only letters, digits, '_' and '-' are accepted.
func ValidateAccountID(accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return errors.NewValidationError("accountId", accountID, "is required")
	}
	if len(accountID) > constants.MaxAccountIDLength {
		return errors.NewValidationError("accountId", accountID,
			fmt.Sprintf("too long (max %d characters)", constants.MaxAccountIDLength))
	}
	for _, char := range accountID {
		if !unicode.IsLetter(char) && !unicode.IsDigit(char) && char != '_' && char != '-' {
			return errors.NewValidationError("accountId", accountID,
				"must contain only letters, numbers, underscores, and dashes")
		}
	}
	return nil
}

// ValidateChatID checks a source or destination chat id such as
// "380501234567@c.us" or "120363012345678901@g.us"
func ValidateChatID(field, chatID string) error {
	if strings.TrimSpace(chatID) == "" {
		return errors.NewValidationError(field, chatID, "is required")
	}
	if len(chatID) > constants.MaxChatIDLength {
		return errors.NewValidationError(field, chatID,
			fmt.Sprintf("too long (max %d characters)", constants.MaxChatIDLength))
	}
	if strings.ContainsAny(chatID, " \x00\n\r\t") {
		return errors.NewValidationError(field, chatID, "contains invalid characters")
	}
	return nil
}

// ValidateMessageID validates message ID format and length
func ValidateMessageID(messageID string) error {
	if messageID == "" {
		return errors.NewValidationError("messageId", messageID, "is required")
	}
	if len(messageID) > constants.MaxMessageIDLength {
		return errors.NewValidationError("messageId", messageID,
			fmt.Sprintf("too long (max %d characters)", constants.MaxMessageIDLength))
	}
	if strings.ContainsAny(messageID, "\x00\n\r\t") {
		return errors.NewValidationError("messageId", messageID, "contains invalid characters")
	}
	return nil
}

// ValidateFilter checks a rule filter before it is stored. Unknown kinds are
// rejected here even though stored unknown kinds pass at evaluation time.
func ValidateFilter(kind models.FilterKind, value string) error {
	if kind == "" {
		kind = models.FilterNone
	}
	if !kind.IsKnown() {
		return errors.NewValidationError("filterType", string(kind), "unknown filter type")
	}
	if len(value) > constants.MaxFilterValueLength {
		return errors.NewValidationError("filterValue", "",
			fmt.Sprintf("too long (max %d characters)", constants.MaxFilterValueLength))
	}

	switch kind {
	case models.FilterTextContains:
		if value == "" {
			return errors.NewValidationError("filterValue", value, "is required for text_contains")
		}
	case models.FilterRegex:
		if value == "" {
			return errors.NewValidationError("filterValue", value, "is required for regex")
		}
		if _, err := regexp.Compile(value); err != nil {
			return errors.NewValidationError("filterValue", value, "is not a valid regular expression")
		}
	}
	return nil
}

// ValidateRule checks the fields required to create a rule
func ValidateRule(rule *models.ForwardingRule) error {
	if err := ValidateAccountID(rule.AccountID); err != nil {
		return err
	}
	if err := ValidateChatID("sourceId", rule.SourceID); err != nil {
		return err
	}
	if err := ValidateChatID("destinationId", rule.DestinationID); err != nil {
		return err
	}
	return ValidateFilter(rule.FilterType, rule.FilterValue)
}

// ValidateRuleUpdate checks the fields present in a partial update
func ValidateRuleUpdate(update models.RuleUpdate, current *models.ForwardingRule) error {
	if update.IsEmpty() {
		return errors.NewValidationError("body", "", "no fields to update")
	}
	if update.SourceID != nil {
		if err := ValidateChatID("sourceId", *update.SourceID); err != nil {
			return err
		}
	}
	if update.DestinationID != nil {
		if err := ValidateChatID("destinationId", *update.DestinationID); err != nil {
			return err
		}
	}

	if update.FilterType == nil && update.FilterValue == nil {
		return nil
	}
	kind, value := current.FilterType, current.FilterValue
	if update.FilterType != nil {
		kind = *update.FilterType
	}
	if update.FilterValue != nil {
		value = *update.FilterValue
	}
	return ValidateFilter(kind, value)
}

// ValidateNumericRange validates numeric values against bounds
func ValidateNumericRange(value int, fieldName string, min, max int) error {
	if value < min {
		return errors.NewValidationError(fieldName, fmt.Sprint(value), fmt.Sprintf("too small (min %d)", min))
	}
	if value > max {
		return errors.NewValidationError(fieldName, fmt.Sprint(value), fmt.Sprintf("too large (max %d)", max))
	}
	return nil
}
