package models

import "time"

// Group caches the display name of a group chat seen by an account.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AccountID   string    `json:"accountId"`
	LastUpdated time.Time `json:"lastUpdated"`
}
