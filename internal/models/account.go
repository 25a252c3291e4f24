package models

import "time"

// AccountStatus is the connection state of an account as persisted in the accounts table.
type AccountStatus string

const (
	AccountStatusDisconnected    AccountStatus = "disconnected"
	AccountStatusConnecting      AccountStatus = "connecting"
	AccountStatusQRRequired      AccountStatus = "qr_required"
	AccountStatusConnected       AccountStatus = "connected"
	AccountStatusReconnecting    AccountStatus = "reconnecting"
	AccountStatusReconnectFailed AccountStatus = "reconnect_failed"
	AccountStatusLoggedOut       AccountStatus = "logged_out"
	AccountStatusAuthFailed      AccountStatus = "auth_failed"
	AccountStatusFailedToConnect AccountStatus = "failed_to_connect"
	AccountStatusStopped         AccountStatus = "stopped"
)

// AllAccountStatuses lists every status an account can be in.
func AllAccountStatuses() []AccountStatus {
	return []AccountStatus{
		AccountStatusDisconnected,
		AccountStatusConnecting,
		AccountStatusQRRequired,
		AccountStatusConnected,
		AccountStatusReconnecting,
		AccountStatusReconnectFailed,
		AccountStatusLoggedOut,
		AccountStatusAuthFailed,
		AccountStatusFailedToConnect,
		AccountStatusStopped,
	}
}

func (s AccountStatus) IsValid() bool {
	for _, known := range AllAccountStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// RequiresOperator reports whether the account stays down until someone restarts or re-pairs it.
func (s AccountStatus) RequiresOperator() bool {
	switch s {
	case AccountStatusLoggedOut, AccountStatusAuthFailed, AccountStatusFailedToConnect, AccountStatusStopped:
		return true
	}
	return false
}

// Account is one operator-controlled session to the messaging network.
type Account struct {
	ID           string        `json:"id"`
	SessionPath  string        `json:"sessionPath"`
	Status       AccountStatus `json:"status"`
	LastActivity *time.Time    `json:"lastActivity,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// AccountState is the live view of a supervised account.
type AccountState struct {
	ID                string        `json:"id"`
	Status            AccountStatus `json:"status"`
	LastActivity      *time.Time    `json:"lastActivity,omitempty"`
	ReconnectAttempts int           `json:"reconnectAttempts"`
}
