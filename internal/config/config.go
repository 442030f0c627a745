package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Telegram TelegramConfig `yaml:"telegram"`
	Reminder ReminderConfig `yaml:"reminder"`
	Log      LogConfig      `yaml:"log"`
	// Theme of rendered reports: light or dark
	Theme string `yaml:"theme" env:"THEME" env-default:"light"`
}

// DatabaseConfig selects the storage engine.
type DatabaseConfig struct {
	Driver  string `yaml:"driver"   env:"DB_TYPE"      env-default:"sqlite3"`
	DSN     string `yaml:"dsn"      env:"DATABASE_DSN"`
	DataDir string `yaml:"data_dir" env:"DATA_DIR"     env-default:"data"`
}

// TelegramConfig holds the bot credentials. Only needed by the bot command.
type TelegramConfig struct {
	Token   string `yaml:"token"    env:"TELEGRAM_BOT_TOKEN"`
	OwnerID int64  `yaml:"owner_id" env:"TELEGRAM_OWNER_ID"`
}

// ReminderConfig holds reminder scheduling settings.
type ReminderConfig struct {
	// Timezone is an IANA name, or "Local" for the system zone
	Timezone string `yaml:"timezone" env:"REMINDER_TIMEZONE" env-default:"Local"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Location resolves the reminder timezone
func (r ReminderConfig) Location() (*time.Location, error) {
	if r.Timezone == "" || r.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("reminder.timezone: %w", err)
	}
	return loc, nil
}
