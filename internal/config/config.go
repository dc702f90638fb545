// Package config loads and watches redwatch's configuration file.
//
// The file is YAML (or JSON); YAML is coerced to JSON so both formats
// share one strict decoder. Secrets can be supplied or overridden via
// environment variables so they stay out of the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Reddit   RedditConfig   `json:"reddit"`
	Monitor  MonitorConfig  `json:"monitor"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
}

type TelegramConfig struct {
	Token string `json:"token,omitempty"`
	// ChatID is the default destination: legacy single-destination data
	// files are migrated onto it, and it is the only chat the bot
	// accepts commands from when AllowAnyChat is false.
	ChatID       int64 `json:"chat_id,omitempty"`
	AllowAnyChat bool  `json:"allow_any_chat,omitempty"`
}

type RedditConfig struct {
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
}

// MonitorConfig fields are Go duration strings (e.g. "300s", "2s").
type MonitorConfig struct {
	CheckInterval    string `json:"check_interval,omitempty"`
	SearchLimit      int    `json:"search_limit,omitempty"`
	SendDelay        string `json:"send_delay,omitempty"`
	FetchDelay       string `json:"fetch_delay,omitempty"`
	StreamRetryDelay string `json:"stream_retry_delay,omitempty"`
	IdleDelay        string `json:"idle_delay,omitempty"`
	FlushInterval    string `json:"flush_interval,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console *bool         `json:"console,omitempty"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Timings is MonitorConfig with durations parsed and defaults applied.
type Timings struct {
	CheckInterval    time.Duration
	SearchLimit      int
	SendDelay        time.Duration
	FetchDelay       time.Duration
	StreamRetryDelay time.Duration
	IdleDelay        time.Duration
	FlushInterval    time.Duration
}

// applyEnv lets the environment supply or override credentials.
func (c *Config) applyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		c.Reddit.ClientID = v
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		c.Reddit.ClientSecret = v
	}
	if v := os.Getenv("REDDIT_USERNAME"); v != "" {
		c.Reddit.Username = v
	}
	if v := os.Getenv("REDDIT_PASSWORD"); v != "" {
		c.Reddit.Password = v
	}
	return nil
}

// Validate enforces the fatal configuration errors: monitoring must not
// be able to start without a notification destination.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required (or TELEGRAM_BOT_TOKEN)")
	}
	if c.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required (or TELEGRAM_CHAT_ID)")
	}
	if _, err := c.Timings(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Timings() (Timings, error) {
	var t Timings
	var err error
	if t.CheckInterval, err = parseDurationOrDefault("monitor.check_interval", c.Monitor.CheckInterval, 300*time.Second); err != nil {
		return t, err
	}
	if t.SendDelay, err = parseDurationOrDefault("monitor.send_delay", c.Monitor.SendDelay, 2*time.Second); err != nil {
		return t, err
	}
	if t.FetchDelay, err = parseDurationOrDefault("monitor.fetch_delay", c.Monitor.FetchDelay, 100*time.Millisecond); err != nil {
		return t, err
	}
	if t.StreamRetryDelay, err = parseDurationOrDefault("monitor.stream_retry_delay", c.Monitor.StreamRetryDelay, 30*time.Second); err != nil {
		return t, err
	}
	if t.IdleDelay, err = parseDurationOrDefault("monitor.idle_delay", c.Monitor.IdleDelay, 30*time.Second); err != nil {
		return t, err
	}
	if t.FlushInterval, err = parseDurationOrDefault("monitor.flush_interval", c.Monitor.FlushInterval, 5*time.Minute); err != nil {
		return t, err
	}
	t.SearchLimit = c.Monitor.SearchLimit
	if t.SearchLimit <= 0 {
		t.SearchLimit = 50
	}
	return t, nil
}

// ConsoleEnabled defaults console logging on unless explicitly disabled.
func (l LoggingConfig) ConsoleEnabled() bool {
	return l.Console == nil || *l.Console
}

// StoragePath defaults to a JSON file next to the process.
func (c *Config) StoragePath() string {
	if strings.TrimSpace(c.Storage.Path) != "" {
		return c.Storage.Path
	}
	if strings.EqualFold(strings.TrimSpace(c.Storage.Driver), "sqlite") {
		return "./redwatch.db"
	}
	return "./redwatch_data.json"
}

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
