package models

// Config holds the application configuration
type Config struct {
	App           AppConfig           `json:"app" mapstructure:"app"`
	WhatsApp      WhatsAppConfig      `json:"whatsapp" mapstructure:"whatsapp"`
	Logging       LoggingConfig       `json:"logging" mapstructure:"logging"`
	Database      DatabaseConfig      `json:"database" mapstructure:"database"`
	API           APIConfig           `json:"api" mapstructure:"api"`
	Notifications NotificationsConfig `json:"notifications" mapstructure:"notifications"`
	Tracing       TracingConfig       `json:"tracing" mapstructure:"tracing"`
}

// AppConfig holds process level settings
type AppConfig struct {
	Port     int    `json:"port" mapstructure:"port"`
	Env      string `json:"env" mapstructure:"env"`
	TimeZone string `json:"timeZone" mapstructure:"timeZone"`
}

// WhatsAppConfig holds bridge and connection settings shared by all accounts
type WhatsAppConfig struct {
	BridgeURL            string          `json:"bridgeUrl" mapstructure:"bridgeUrl"`
	BridgeAPIKey         string          `json:"bridgeApiKey" mapstructure:"bridgeApiKey"`
	RequestTimeoutSec    int             `json:"requestTimeoutSec" mapstructure:"requestTimeoutSec"`
	SessionPrefix        string          `json:"sessionPrefix" mapstructure:"sessionPrefix"`
	DefaultAccountID     string          `json:"defaultAccountId" mapstructure:"defaultAccountId"`
	CreateDefaultAccount bool            `json:"createDefaultAccount" mapstructure:"createDefaultAccount"`
	StartupConcurrency   int             `json:"startupConcurrency" mapstructure:"startupConcurrency"`
	MessageTimeoutSec    int             `json:"messageTimeoutSec" mapstructure:"messageTimeoutSec"`
	Reconnect            ReconnectConfig `json:"reconnect" mapstructure:"reconnect"`
}

// ReconnectConfig bounds the fixed-delay reconnect loop of an account
type ReconnectConfig struct {
	MaxAttempts int `json:"maxAttempts" mapstructure:"maxAttempts"`
	DelayMs     int `json:"delayMs" mapstructure:"delayMs"`
}

// LoggingConfig holds log level and file rotation settings
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	LogToFile  bool   `json:"logToFile" mapstructure:"logToFile"`
	Dir        string `json:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `json:"maxSizeMB" mapstructure:"maxSizeMB"`
	MaxAgeDays int    `json:"maxAgeDays" mapstructure:"maxAgeDays"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// DatabaseConfig holds database related configurations
type DatabaseConfig struct {
	Path    string        `json:"path" mapstructure:"path"`
	Cleanup CleanupConfig `json:"cleanup" mapstructure:"cleanup"`
}

// CleanupConfig drives the retention scheduler
type CleanupConfig struct {
	Enabled                 bool `json:"enabled" mapstructure:"enabled"`
	IntervalHours           int  `json:"intervalHours" mapstructure:"intervalHours"`
	MessageMapRetentionDays int  `json:"messageMapRetentionDays" mapstructure:"messageMapRetentionDays"`
	GroupsRetentionDays     int  `json:"groupsRetentionDays" mapstructure:"groupsRetentionDays"`
}

// APIConfig holds the admin API credential and limits
type APIConfig struct {
	APIKey             string  `json:"apiKey" mapstructure:"apiKey"`
	RateLimitPerSecond float64 `json:"rateLimitPerSecond" mapstructure:"rateLimitPerSecond"`
	RateLimitBurst     int     `json:"rateLimitBurst" mapstructure:"rateLimitBurst"`
}

// NotificationsConfig groups operator notification channels
type NotificationsConfig struct {
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`
}

// TelegramConfig configures alerts sent through a Telegram bot
type TelegramConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	BotToken string `json:"botToken" mapstructure:"botToken"`
	ChatID   string `json:"chatId" mapstructure:"chatId"`
}

// TracingConfig holds OpenTelemetry tracing configuration
type TracingConfig struct {
	Enabled        bool    `json:"enabled" mapstructure:"enabled"`
	ServiceName    string  `json:"serviceName" mapstructure:"serviceName"`
	ServiceVersion string  `json:"serviceVersion" mapstructure:"serviceVersion"`
	Environment    string  `json:"environment" mapstructure:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint" mapstructure:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate" mapstructure:"sampleRate"`
	UseStdout      bool    `json:"useStdout" mapstructure:"useStdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
