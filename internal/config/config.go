// Package config loads application settings from a config file and
// environment variables, with a default for every key.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "HNC"

// Config holds the resolved application configuration.
type Config struct {
	BaseURL       string
	Username      string
	Password      string
	Frequency     time.Duration
	UserAgentBase string
	UserAgent     string

	DatabasePath string
	LogLevel     string

	Collections Collections
	Report      Report
	Telegram    Telegram
}

// Collections names the document collections used by the store.
type Collections struct {
	BlacklistedTitles string
	BlacklistedSites  string
	BlacklistedUsers  string
	CleansedItems     string
	ReportsLog        string
}

// Report holds the email digest settings.
type Report struct {
	Enabled        bool
	Frequency      time.Duration
	SMTPHost       string
	SMTPPort       int
	Sender         string
	SenderPassword string
	Recipients     []string
}

// Telegram holds the optional Telegram digest delivery settings.
type Telegram struct {
	Token  string
	ChatID int64
}

// Names returns the collection names in a fixed order, for tooling that
// iterates over every collection.
func (c Collections) Names() []string {
	return []string{
		c.BlacklistedTitles,
		c.BlacklistedSites,
		c.BlacklistedUsers,
		c.CleansedItems,
		c.ReportsLog,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("hackernews.base_url", "https://news.ycombinator.com")
	v.SetDefault("hackernews.username", "")
	v.SetDefault("hackernews.password", "")

	v.SetDefault("cleanser.frequency_minutes", 1)
	v.SetDefault("cleanser.user_agent_base", "HackerNewsCleanser/3.0")

	v.SetDefault("database.path", "./data/cleanser.db")
	v.SetDefault("log.level", "info")

	v.SetDefault("collections.blacklisted_titles", "blacklistedTitles")
	v.SetDefault("collections.blacklisted_sites", "blacklistedSites")
	v.SetDefault("collections.blacklisted_users", "blacklistedUsers")
	v.SetDefault("collections.cleansed_items", "cleansedItems")
	v.SetDefault("collections.reports_log", "weeklyReportsLog")

	v.SetDefault("report.enabled", false)
	v.SetDefault("report.frequency_days", 7)
	v.SetDefault("report.smtp_host", "smtp.gmail.com")
	v.SetDefault("report.smtp_port", 465)
	v.SetDefault("report.sender", "")
	v.SetDefault("report.sender_password", "")
	v.SetDefault("report.recipients", []string{})

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
}

// Load resolves configuration from the given YAML file (optional), HNC_*
// environment variables, and built-in defaults. Credentials are the only
// mandatory settings; their absence is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		BaseURL:       strings.TrimRight(v.GetString("hackernews.base_url"), "/"),
		Username:      v.GetString("hackernews.username"),
		Password:      v.GetString("hackernews.password"),
		Frequency:     time.Duration(v.GetInt("cleanser.frequency_minutes")) * time.Minute,
		UserAgentBase: v.GetString("cleanser.user_agent_base"),
		DatabasePath:  v.GetString("database.path"),
		LogLevel:      v.GetString("log.level"),
		Collections: Collections{
			BlacklistedTitles: v.GetString("collections.blacklisted_titles"),
			BlacklistedSites:  v.GetString("collections.blacklisted_sites"),
			BlacklistedUsers:  v.GetString("collections.blacklisted_users"),
			CleansedItems:     v.GetString("collections.cleansed_items"),
			ReportsLog:        v.GetString("collections.reports_log"),
		},
		Report: Report{
			Enabled:        v.GetBool("report.enabled"),
			Frequency:      time.Duration(v.GetInt("report.frequency_days")) * 24 * time.Hour,
			SMTPHost:       v.GetString("report.smtp_host"),
			SMTPPort:       v.GetInt("report.smtp_port"),
			Sender:         v.GetString("report.sender"),
			SenderPassword: v.GetString("report.sender_password"),
			Recipients:     v.GetStringSlice("report.recipients"),
		},
		Telegram: Telegram{
			Token:  v.GetString("telegram.token"),
			ChatID: v.GetInt64("telegram.chat_id"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Hacker News asks bots to identify the acting account in their UA.
	cfg.UserAgent = cfg.Username + " " + cfg.UserAgentBase

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Username == "" || c.Password == "" {
		return errors.New("hackernews.username and hackernews.password are required")
	}
	if c.Frequency <= 0 {
		return fmt.Errorf("cleanser.frequency_minutes must be positive, got %s", c.Frequency)
	}
	if c.Report.Enabled {
		if c.Report.Sender == "" || c.Report.SenderPassword == "" || len(c.Report.Recipients) == 0 {
			return errors.New("report.sender, report.sender_password and report.recipients are required when reports are enabled")
		}
	}
	return nil
}
