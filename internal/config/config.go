package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"whatsrelay/internal/constants"
	"whatsrelay/internal/models"
	"whatsrelay/internal/security"
)

const envPrefix = "WHATSRELAY"

var (
	ErrMissingDBPath    = models.ConfigError{Message: "missing database path"}
	ErrMissingAPIKey    = models.ConfigError{Message: "missing API key (set api.apiKey or API_KEY)"}
	ErrMissingBridgeURL = models.ConfigError{Message: "missing WhatsApp bridge URL"}
)

var (
	validEnvironments = []string{"development", "production", "test"}
	validLogLevels    = []string{"error", "warn", "info", "debug"}
)

// Loader reads configuration from an optional file, a .env file and the
// environment, in increasing order of precedence
type Loader struct {
	v          *viper.Viper
	path       string
	dotenvPath string
}

// NewLoader creates a loader. An empty path searches for config.{yaml,json}
// in the working directory and ./config; a missing file is not an error then.
func NewLoader(path string) *Loader {
	return &Loader{
		v:          viper.New(),
		path:       path,
		dotenvPath: ".env",
	}
}

// Load is a shorthand for NewLoader(path).Load()
func Load(path string) (*models.Config, error) {
	return NewLoader(path).Load()
}

func (l *Loader) Load() (*models.Config, error) {
	if err := godotenv.Load(l.dotenvPath); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", l.dotenvPath, err)
	}

	setDefaults(l.v)

	if l.path != "" {
		if err := security.ValidateFilePath(l.path); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		l.v.SetConfigFile(l.path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		l.v.SetConfigName("config")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("./config")
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	l.v.SetEnvPrefix(envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
	if err := bindEnvVars(l.v); err != nil {
		return nil, err
	}

	return l.decode()
}

// ConfigFileUsed returns the file the configuration was read from, if any
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) decode() (*models.Config, error) {
	var cfg models.Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", constants.DefaultServerPort)
	v.SetDefault("app.env", constants.DefaultAppEnv)
	v.SetDefault("app.timeZone", constants.DefaultTimeZone)

	v.SetDefault("whatsapp.bridgeUrl", constants.DefaultBridgeURL)
	v.SetDefault("whatsapp.bridgeApiKey", "")
	v.SetDefault("whatsapp.requestTimeoutSec", constants.DefaultBridgeRequestTimeoutSec)
	v.SetDefault("whatsapp.sessionPrefix", constants.DefaultSessionPrefix)
	v.SetDefault("whatsapp.defaultAccountId", constants.DefaultAccountID)
	v.SetDefault("whatsapp.createDefaultAccount", true)
	v.SetDefault("whatsapp.startupConcurrency", constants.DefaultStartupConcurrency)
	v.SetDefault("whatsapp.messageTimeoutSec", constants.DefaultMessageTimeoutSec)
	v.SetDefault("whatsapp.reconnect.maxAttempts", constants.DefaultReconnectMaxAttempts)
	v.SetDefault("whatsapp.reconnect.delayMs", constants.DefaultReconnectDelayMs)

	v.SetDefault("logging.level", constants.DefaultLogLevel)
	v.SetDefault("logging.logToFile", true)
	v.SetDefault("logging.dir", constants.DefaultLogDir)
	v.SetDefault("logging.maxSizeMB", constants.DefaultLogMaxSizeMB)
	v.SetDefault("logging.maxAgeDays", constants.DefaultLogMaxAgeDays)
	v.SetDefault("logging.maxBackups", 0)
	v.SetDefault("logging.compress", true)

	v.SetDefault("database.path", constants.DefaultDatabasePath)
	v.SetDefault("database.cleanup.enabled", true)
	v.SetDefault("database.cleanup.intervalHours", constants.DefaultCleanupIntervalHours)
	v.SetDefault("database.cleanup.messageMapRetentionDays", constants.DefaultMessageMapRetentionDays)
	v.SetDefault("database.cleanup.groupsRetentionDays", constants.DefaultGroupsRetentionDays)

	v.SetDefault("api.apiKey", "")
	v.SetDefault("api.rateLimitPerSecond", constants.DefaultRateLimitPerSecond)
	v.SetDefault("api.rateLimitBurst", constants.DefaultRateLimitBurst)

	v.SetDefault("notifications.telegram.enabled", false)
	v.SetDefault("notifications.telegram.botToken", "")
	v.SetDefault("notifications.telegram.chatId", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "whatsrelay")
	v.SetDefault("tracing.serviceVersion", "dev")
	v.SetDefault("tracing.environment", constants.DefaultAppEnv)
	v.SetDefault("tracing.otlpEndpoint", "")
	v.SetDefault("tracing.sampleRate", 0.1)
	v.SetDefault("tracing.useStdout", false)
}

// bindEnvVars maps the short environment names used by deployments
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"app.port":                        {"PORT"},
		"app.env":                         {"APP_ENV", "NODE_ENV"},
		"app.timeZone":                    {"TZ_NAME"},
		"api.apiKey":                      {"API_KEY"},
		"logging.level":                   {"LOG_LEVEL"},
		"database.path":                   {"DB_PATH"},
		"whatsapp.bridgeUrl":              {"BRIDGE_URL"},
		"whatsapp.bridgeApiKey":           {"BRIDGE_API_KEY"},
		"notifications.telegram.botToken": {"TELEGRAM_BOT_TOKEN"},
		"notifications.telegram.chatId":   {"TELEGRAM_CHAT_ID"},
	}
	for key, names := range bindings {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks the decoded configuration
func Validate(c *models.Config) error {
	if c.App.Port < 1024 || c.App.Port > 65535 {
		return models.ConfigError{Message: fmt.Sprintf("app.port must be between 1024 and 65535, got %d", c.App.Port)}
	}
	if !contains(validEnvironments, c.App.Env) {
		return models.ConfigError{Message: fmt.Sprintf("app.env must be one of %v, got %q", validEnvironments, c.App.Env)}
	}
	if _, err := time.LoadLocation(c.App.TimeZone); err != nil {
		return models.ConfigError{Message: fmt.Sprintf("app.timeZone is not a known time zone: %q", c.App.TimeZone)}
	}

	if c.WhatsApp.BridgeURL == "" {
		return ErrMissingBridgeURL
	}
	if c.WhatsApp.Reconnect.MaxAttempts < 1 {
		return models.ConfigError{Message: "whatsapp.reconnect.maxAttempts must be at least 1"}
	}
	if c.WhatsApp.Reconnect.DelayMs < constants.MinReconnectDelayMs {
		return models.ConfigError{Message: fmt.Sprintf("whatsapp.reconnect.delayMs must be at least %d", constants.MinReconnectDelayMs)}
	}
	if c.WhatsApp.StartupConcurrency < 1 {
		return models.ConfigError{Message: "whatsapp.startupConcurrency must be at least 1"}
	}
	if c.WhatsApp.RequestTimeoutSec < 1 || c.WhatsApp.MessageTimeoutSec < 1 {
		return models.ConfigError{Message: "whatsapp timeouts must be at least 1 second"}
	}

	if !contains(validLogLevels, c.Logging.Level) {
		return models.ConfigError{Message: fmt.Sprintf("logging.level must be one of %v, got %q", validLogLevels, c.Logging.Level)}
	}
	if c.Logging.LogToFile {
		if err := security.ValidateFilePath(c.Logging.Dir); err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid logging.dir: %v", err)}
		}
	}

	if c.API.APIKey == "" {
		return ErrMissingAPIKey
	}
	if len(c.API.APIKey) < constants.MinAPIKeyLength {
		return models.ConfigError{Message: fmt.Sprintf("api.apiKey must be at least %d characters long", constants.MinAPIKeyLength)}
	}
	if c.API.RateLimitPerSecond <= 0 || c.API.RateLimitBurst < 1 {
		return models.ConfigError{Message: "api rate limit and burst must be positive"}
	}

	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if err := security.ValidateFilePath(c.Database.Path); err != nil {
		return models.ConfigError{Message: fmt.Sprintf("invalid database.path: %v", err)}
	}
	if c.Database.Cleanup.Enabled {
		cleanup := c.Database.Cleanup
		if cleanup.IntervalHours < 1 || cleanup.MessageMapRetentionDays < 1 || cleanup.GroupsRetentionDays < 1 {
			return models.ConfigError{Message: "database.cleanup interval and retention days must be at least 1"}
		}
	}

	if tg := c.Notifications.Telegram; tg.Enabled && (tg.BotToken == "" || tg.ChatID == "") {
		return models.ConfigError{Message: "notifications.telegram requires botToken and chatId when enabled"}
	}

	if c.Tracing.Enabled && (c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1) {
		return models.ConfigError{Message: "tracing.sampleRate must be between 0 and 1"}
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
