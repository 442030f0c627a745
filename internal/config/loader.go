package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// FileName is the config file looked up when CONFIG_PATH is unset
const FileName = "revtrack.yaml"

var userConfigDir = os.UserConfigDir

// Load builds the configuration. Values from .env in the working directory
// join the environment without replacing variables that are already set.
// Environment variables win over the YAML file, which wins over defaults.
//
// CONFIG_PATH names the YAML file and must exist when set. Otherwise
// revtrack.yaml is read from the working directory or from
// <user config dir>/revtrack/, and running without a file is fine.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}

	path, err := findFile()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if path == "" {
		err = cleanenv.ReadEnv(&cfg)
	} else {
		err = cleanenv.ReadConfig(path, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", describePath(path), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// findFile returns the YAML file to read, or "" when there is none
func findFile() (string, error) {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config: CONFIG_PATH: %w", err)
		}
		return path, nil
	}

	candidates := []string{FileName}
	if dir, err := userConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "revtrack", FileName))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

func describePath(path string) string {
	if path == "" {
		return "environment"
	}
	return path
}
