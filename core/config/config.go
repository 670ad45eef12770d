package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings that are common for all bots.
type TelegramConfig struct {
	Token   string `yaml:"bot_token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	Listen          string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port            int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	SecretToken     string `yaml:"secret_token" envconfig:"WEBHOOK_SECRET_TOKEN"`
	CertificatePath string `yaml:"certificate_path" envconfig:"WEBHOOK_CERTIFICATE_PATH"`
	KeyPath         string `yaml:"key_path" envconfig:"WEBHOOK_KEY_PATH"`
	URL             string `yaml:"webhook_url" envconfig:"WEBHOOK_URL"`
	URLPath         string `yaml:"url_path" envconfig:"WEBHOOK_URL_PATH"`
}

// PublicURL joins the webhook base URL with the optional url path.
func (w WebhookConfig) PublicURL() string {
	base := strings.TrimRight(strings.TrimSpace(w.URL), "/")
	path := strings.Trim(strings.TrimSpace(w.URLPath), "/")
	if path == "" {
		return base
	}
	return base + "/" + path
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level      string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format     string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder  string `yaml:"keys_order"`
	Dir        string `yaml:"dir" envconfig:"LOG_DIR"`
	InfoFile   string `yaml:"info_file"`
	ErrorsFile string `yaml:"errors_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// InfoPath returns the path of the info-level log file.
func (l LoggingConfig) InfoPath() string {
	return joinLogPath(l.Dir, l.InfoFile)
}

// ErrorsPath returns the path of the error-level log file.
func (l LoggingConfig) ErrorsPath() string {
	return joinLogPath(l.Dir, l.ErrorsFile)
}

func joinLogPath(dir, file string) string {
	dir = strings.TrimSpace(dir)
	file = strings.TrimSpace(file)
	if file == "" {
		return ""
	}
	if dir == "" || strings.HasPrefix(file, "/") {
		return file
	}
	return strings.TrimRight(dir, "/") + "/" + file
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for inbound and outbound rate limiting.
// ExcludeUpdates accepts update types to bypass the per-user limit:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
// OverallPerSecond caps outbound Bot API calls across the whole process.
type RateLimitConfig struct {
	IntervalMS       int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates   []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
	OverallPerSecond int      `yaml:"overall_per_second" envconfig:"RATE_LIMIT_OVERALL_PER_SECOND"`
}

// SenderConfig tunes the asynchronous outbound dispatcher.
type SenderConfig struct {
	QueueSize  int `yaml:"queue_size"`
	Workers    int `yaml:"workers"`
	MaxRetries int `yaml:"max_retries"`
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN         string `yaml:"dsn" envconfig:"SENTRY_DSN"`
	Environment string `yaml:"environment" envconfig:"SENTRY_ENVIRONMENT"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Sender    SenderConfig    `yaml:"sender"`
	Sentry    SentryConfig    `yaml:"sentry"`
}

// DefaultOverallRate matches the Bot API broadcast limit.
const DefaultOverallRate = 20

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode unmarshals a YAML document into out and overlays environment variables.
// A .env file in the working directory is loaded first when present.
func Decode(path string, out any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: .env not loaded: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", out); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.webhook_url is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
		if (cfg.Webhook.CertificatePath == "") != (cfg.Webhook.KeyPath == "") {
			return fmt.Errorf("webhook.certificate_path and webhook.key_path must be set together")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	if cfg.RateLimit.OverallPerSecond < 0 {
		return fmt.Errorf("rate_limit.overall_per_second must be >= 0")
	}
	if cfg.RateLimit.OverallPerSecond == 0 {
		cfg.RateLimit.OverallPerSecond = DefaultOverallRate
	}

	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.InfoFile == "" {
		cfg.Logging.InfoFile = "info.txt"
	}
	if cfg.Logging.ErrorsFile == "" {
		cfg.Logging.ErrorsFile = "errors.txt"
	}
	return nil
}
