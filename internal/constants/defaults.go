package constants

// Application defaults
const (
	DefaultServerPort = 3000
	DefaultAppEnv     = "development"
	DefaultTimeZone   = "Local"
)

// Account and connection defaults
const (
	DefaultSessionPrefix           = "whatsapp-pro-session-"
	DefaultSessionPathSuffix       = "-session"
	DefaultAccountID               = "default_test_account"
	DefaultReconnectMaxAttempts    = 30
	DefaultReconnectDelayMs        = 5000
	MinReconnectDelayMs            = 1000
	DefaultStartupConcurrency      = 4
	DefaultBridgeURL               = "ws://localhost:3001/ws"
	DefaultBridgeRequestTimeoutSec = 60
	DefaultBridgeReadLimitBytes    = 64 << 20
	DefaultMessageTimeoutSec       = 120
	DefaultNotifyTimeoutSec        = 10
)

// Database and retention defaults
const (
	DefaultDatabasePath            = "./data/whatsapp_automator.db"
	DefaultCleanupIntervalHours    = 168
	DefaultMessageMapRetentionDays = 30
	DefaultGroupsRetentionDays     = 90
	DefaultDatabaseRetryAttempts   = 3
	DefaultRetryBackoffMs          = 100
	DefaultMaxBackoffMs            = 2000
	DefaultDatabaseBusyTimeoutMs   = 5000
	DefaultSchedulerStopTimeoutSec = 30
)

// Logging defaults
const (
	DefaultLogLevel      = "info"
	DefaultLogDir        = "logs"
	DefaultLogMaxSizeMB  = 20
	DefaultLogMaxAgeDays = 7
	LogFilePrefix        = "app-"
	LogFileDateLayout    = "2006-01-02"
)

// HTTP server defaults
const (
	DefaultGracefulShutdownSec    = 30
	DefaultServerReadTimeoutSec   = 15
	DefaultServerWriteTimeoutSec  = 30
	DefaultServerIdleTimeoutSec   = 60
	DefaultMaxRequestBodyBytes    = 1 << 20
	DefaultRateLimitPerSecond     = 10.0
	DefaultRateLimitBurst         = 20
	DefaultRateLimiterIdleMinutes = 10
	ServerErrorChannelSize        = 1
	MinAPIKeyLength               = 16
	DefaultQRCodeSizePx           = 256
	DefaultHealthCheckTimeoutSec  = 2
	MaxGoroutines                 = 10000
)

// Validation limits
const (
	MaxAccountIDLength   = 64
	MaxChatIDLength      = 128
	MaxFilterValueLength = 1024
	MaxMessageIDLength   = 256
)

// Privacy settings
const (
	DefaultMaskKeepChars   = 4
	DefaultMessageIDLength = 8
)
