package bot

import (
	"time"

	"github.com/example/revtrack/internal/excel"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Telegram API token
	Token string
	// The only user allowed to talk to the bot
	OwnerID int64
	// Theme of exported dashboards
	Theme excel.Theme
	// Long polling timeout
	PollTimeout time.Duration
	// Limit for uploaded spreadsheets
	MaxUploadBytes int64
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		Theme:          excel.ThemeLight,
		PollTimeout:    60 * time.Second,
		MaxUploadBytes: 5 << 20,
	}
}
