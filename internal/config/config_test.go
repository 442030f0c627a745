package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory with an empty user
// config dir, so no stray revtrack.yaml or .env is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CONFIG_PATH", "")

	userDir := filepath.Join(dir, "home")
	prev := userConfigDir
	userConfigDir = func() (string, error) { return userDir, nil }
	t.Cleanup(func() { userConfigDir = prev })
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "data", cfg.Database.DataDir)
	assert.Equal(t, "light", cfg.Theme)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "Local", cfg.Reminder.Timezone)
}

func TestLoad_YAML(t *testing.T) {
	dir := inTempDir(t)
	path := writeFile(t, dir, "revtrack.yaml", `
database:
  driver: postgres
  dsn: "postgres://u:p@localhost:5432/revtrack?sslmode=disable"
telegram:
  token: "123:abc"
  owner_id: 42
reminder:
  timezone: "Europe/Berlin"
log:
  level: debug
  format: json
theme: dark
`)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, int64(42), cfg.Telegram.OwnerID)
	assert.Equal(t, "dark", cfg.Theme)
	assert.Equal(t, "json", cfg.Log.Format)
	require.NoError(t, cfg.ValidateBot())

	loc, err := cfg.Reminder.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := inTempDir(t)
	path := writeFile(t, dir, "revtrack.yaml", "theme: dark\n")
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("THEME", "light")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.Theme)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := inTempDir(t)
	writeFile(t, dir, ".env", "TELEGRAM_OWNER_ID=7\nREVTRACK_TEST_MARKER=from-dotenv\n")
	t.Cleanup(func() {
		os.Unsetenv("TELEGRAM_OWNER_ID")
		os.Unsetenv("REVTRACK_TEST_MARKER")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Telegram.OwnerID)
	assert.Equal(t, "from-dotenv", os.Getenv("REVTRACK_TEST_MARKER"))
}

func TestLoad_WorkingDirFile(t *testing.T) {
	dir := inTempDir(t)
	writeFile(t, dir, FileName, "theme: dark\n")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dark", cfg.Theme)
}

func TestLoad_UserConfigDirFile(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "home", "revtrack"), 0o755))
	writeFile(t, filepath.Join(dir, "home", "revtrack"), FileName, "theme: dark\n")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dark", cfg.Theme)

	writeFile(t, dir, FileName, "theme: light\n")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.Theme, "working directory comes first")
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := inTempDir(t)
	writeFile(t, dir, FileName, "theme: blue\n")

	_, err := Load()
	require.ErrorContains(t, err, "config:")
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	dir := inTempDir(t)
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{Driver: "sqlite3", DataDir: "data"},
			Reminder: ReminderConfig{Timezone: "Local"},
			Theme:    "light",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }, true},
		{"sqlite without location", func(c *Config) { c.Database.DataDir = "" }, true},
		{"bad theme", func(c *Config) { c.Theme = "blue" }, true},
		{"bad timezone", func(c *Config) { c.Reminder.Timezone = "Mars/Olympus" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateBot(t *testing.T) {
	cfg := Config{}
	require.ErrorIs(t, cfg.ValidateBot(), ErrBotNotConfigured)

	cfg.Telegram.Token = "123:abc"
	require.ErrorIs(t, cfg.ValidateBot(), ErrBotNotConfigured)

	cfg.Telegram.OwnerID = 1
	require.NoError(t, cfg.ValidateBot())
}

func TestLocationLocal(t *testing.T) {
	loc, err := ReminderConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}
