package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const defaultStateFile = "state.json"

// TelegramSettings holds the outbound notification credentials.
type TelegramSettings struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	BotToken string `toml:"bot_token" yaml:"bot_token"`
	ChatID   string `toml:"chat_id" yaml:"chat_id"`
}

// Config is the merged file + environment configuration for one watch pass.
type Config struct {
	SearchURL      string           `toml:"search_url" yaml:"search_url"`
	Authors        []string         `toml:"authors" yaml:"authors"`
	ResultSelector string           `toml:"result_selector" yaml:"result_selector"`
	TitleSelector  string           `toml:"title_selector" yaml:"title_selector"`
	LinkSelector   string           `toml:"link_selector" yaml:"link_selector"`
	StateFile      string           `toml:"state_file" yaml:"state_file"`
	Telegram       TelegramSettings `toml:"telegram" yaml:"telegram"`
}

// authorSeparators splits author lists supplied via environment; both ASCII
// and fullwidth separators are accepted.
var authorSeparators = regexp.MustCompile(`[,，、\n\r]+`)

// loadConfig reads the config file (TOML by default, YAML by extension) and
// applies environment overrides. A missing file is not an error: env-only
// configurations are valid.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{StateFile: defaultStateFile}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := decodeConfig(path, data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if cfg.StateFile == "" {
		cfg.StateFile = defaultStateFile
	}

	if len(trimmedAuthors(cfg.Authors)) == 0 && strings.TrimSpace(cfg.SearchURL) == "" {
		return nil, fmt.Errorf("either authors (multi-author mode) or search_url (single mode) must be configured")
	}

	return cfg, nil
}

func decodeConfig(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing config YAML: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing config TOML: %w", err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SEARCH_AUTHORS"); v != "" {
		cfg.Authors = splitAuthors(v)
	}
	if v := os.Getenv("SEARCH_URL"); v != "" {
		cfg.SearchURL = v
	}
	if v, ok := os.LookupEnv("RESULT_SELECTOR"); ok {
		cfg.ResultSelector = v
	}
	if v, ok := os.LookupEnv("TITLE_SELECTOR"); ok {
		cfg.TitleSelector = v
	}
	if v, ok := os.LookupEnv("LINK_SELECTOR"); ok {
		cfg.LinkSelector = v
	}
	if v, ok := os.LookupEnv("TELEGRAM_ENABLED"); ok {
		cfg.Telegram.Enabled = envBool(v)
	}
	if v, ok := os.LookupEnv("TELEGRAM_BOT_TOKEN"); ok {
		cfg.Telegram.BotToken = v
	}
	if v, ok := os.LookupEnv("TELEGRAM_CHAT_ID"); ok {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.StateFile = v
	}
}

func splitAuthors(raw string) []string {
	parts := authorSeparators.Split(raw, -1)
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}

// trimmedAuthors drops blank names while preserving configured order.
func trimmedAuthors(authors []string) []string {
	out := make([]string, 0, len(authors))
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func envBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Selectors returns the extraction selectors from the configuration.
func (c *Config) Selectors() Selectors {
	return Selectors{
		Result: c.ResultSelector,
		Title:  c.TitleSelector,
		Link:   c.LinkSelector,
	}
}
