package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Stockwatch Configuration

[monitor]
# Run checks at fixed times during US market hours (09:35, 10:30, 12:00,
# 14:00, 15:55 ET) instead of a flat interval
market_hours_schedule = true
# Interval between checks in minutes (used when market_hours_schedule = false)
check_interval_minutes = 60
# Concurrent quote fetches per cycle
fetch_concurrency = 4

[quotes]
# Quote provider base URL
base_url = "https://query1.finance.yahoo.com"
# Per-fetch timeout in seconds
timeout_seconds = 10
# Quote cache TTL in seconds
cache_ttl_seconds = 300

[storage]
# SQLite database path (defaults to the config directory)
# db_path = ""

[notifications]
# Print alerts to the terminal
terminal = true

[notifications.email]
enabled = false
smtp_host = ""
smtp_port = 587
username = ""
password = ""
from = ""
to = ""

[analysis]
# Model for AI-generated alert rationale (requires an OpenAI API key)
model = "gpt-4o-mini"
`

const credentialsTemplate = `# Stockwatch Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[openai]
api_key = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	// Defaults are usable as-is, so a fresh install continues without error.
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
