// ABOUTME: TUI preferences loaded from a TOML file
// ABOUTME: Controls sender label, color output, and history rendering limits

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Preferences holds display settings for the TUI. All fields have working
// defaults; the preferences file is optional.
type Preferences struct {
	Sender       string `toml:"sender"`
	Color        bool   `toml:"color"`
	HistoryLimit int    `toml:"history_limit"`
}

// defaultPreferences returns the settings used when no file exists.
func defaultPreferences() Preferences {
	return Preferences{
		Sender:       "parley-user",
		Color:        true,
		HistoryLimit: 50,
	}
}

// prefsPath returns the path to the TUI preferences file.
// Priority: PARLEY_TUI_PREFS env var > XDG_CONFIG_HOME/parley/tui.toml > ~/.config/parley/tui.toml
func prefsPath() string {
	if envPath := os.Getenv("PARLEY_TUI_PREFS"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "tui.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "parley", "tui.toml")
}

// loadPreferences reads the preferences file, falling back to defaults when
// it does not exist. A malformed file is an error.
func loadPreferences(path string) (Preferences, error) {
	prefs := defaultPreferences()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return prefs, nil
	}

	if _, err := toml.DecodeFile(path, &prefs); err != nil {
		return prefs, fmt.Errorf("parsing preferences file: %w", err)
	}

	if prefs.HistoryLimit <= 0 {
		prefs.HistoryLimit = defaultPreferences().HistoryLimit
	}

	return prefs, nil
}
