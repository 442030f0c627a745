package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBotNotConfigured is returned by ValidateBot when credentials are missing
var ErrBotNotConfigured = errors.New("telegram bot is not configured")

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.DSN == "" && c.Database.DataDir == "" {
			return fmt.Errorf("database: sqlite3 needs data_dir or dsn")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database: postgres needs dsn")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite3 or postgres (got %q)", c.Database.Driver)
	}

	switch strings.ToLower(c.Theme) {
	case "light", "dark":
	default:
		return fmt.Errorf("theme must be light or dark (got %q)", c.Theme)
	}

	if _, err := c.Reminder.Location(); err != nil {
		return err
	}
	return nil
}

// ValidateBot checks the settings the Telegram front-end needs
func (c *Config) ValidateBot() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN is not set", ErrBotNotConfigured)
	}
	if c.Telegram.OwnerID == 0 {
		return fmt.Errorf("%w: TELEGRAM_OWNER_ID is not set", ErrBotNotConfigured)
	}
	return nil
}
