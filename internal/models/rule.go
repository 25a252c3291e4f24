package models

import "time"

// FilterKind selects the predicate a forwarding rule applies before forwarding.
type FilterKind string

const (
	FilterNone           FilterKind = "none"
	FilterTextContains   FilterKind = "text_contains"
	FilterRegex          FilterKind = "regex"
	FilterMediaOnly      FilterKind = "media_only"
	FilterTextOnly       FilterKind = "text_only"
	FilterIgnorePlusSign FilterKind = "ignore_plus_sign"
)

// KnownFilterKinds returns the filter kinds the router can evaluate.
func KnownFilterKinds() []FilterKind {
	return []FilterKind{
		FilterNone,
		FilterTextContains,
		FilterRegex,
		FilterMediaOnly,
		FilterTextOnly,
		FilterIgnorePlusSign,
	}
}

func (k FilterKind) IsKnown() bool {
	for _, known := range KnownFilterKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// ForwardingRule routes messages from one source chat to one destination chat of the same account.
type ForwardingRule struct {
	ID            int64      `json:"id"`
	AccountID     string     `json:"accountId"`
	SourceID      string     `json:"sourceId"`
	DestinationID string     `json:"destinationId"`
	FilterType    FilterKind `json:"filterType"`
	FilterValue   string     `json:"filterValue"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// RuleUpdate carries the fields of a partial rule update. Nil fields are left untouched.
type RuleUpdate struct {
	SourceID      *string     `json:"sourceId,omitempty"`
	DestinationID *string     `json:"destinationId,omitempty"`
	FilterType    *FilterKind `json:"filterType,omitempty"`
	FilterValue   *string     `json:"filterValue,omitempty"`
	IsActive      *bool       `json:"isActive,omitempty"`
}

func (u RuleUpdate) IsEmpty() bool {
	return u.SourceID == nil && u.DestinationID == nil && u.FilterType == nil && u.FilterValue == nil && u.IsActive == nil
}
