// Package config loads the application settings from expander.toml and the
// snippet definitions from the snippets file it points at.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Expander struct {
	// CommandDelayMs is the pause between post-expansion commands.
	CommandDelayMs int `toml:"command-delay-ms"`
	// Enabled gates the whole engine; snippets still load for inspection.
	Enabled bool `toml:"enabled"`
	// SnippetsFile is the snippet definitions path. Relative paths resolve
	// against the config directory.
	SnippetsFile string `toml:"snippets-file"`
	// ReloadIntervalMs is how often the snippets file is polled for changes.
	ReloadIntervalMs int `toml:"reload-interval-ms"`
}

type Theme struct {
	Foreground           string `toml:"foreground"`
	Background           string `toml:"background"`
	StatuslineForeground string `toml:"statusline-foreground"`
	StatuslineBackground string `toml:"statusline-background"`
	ErrorForeground      string `toml:"error-foreground"`
}

type Config struct {
	Expander Expander `toml:"expander"`
	Theme    Theme    `toml:"theme"`
	Debug    bool     `toml:"debug"`
}

func Default() Config {
	return Config{
		Expander: Expander{
			CommandDelayMs:   100,
			Enabled:          true,
			SnippetsFile:     "snippets.json",
			ReloadIntervalMs: 2000,
		},
		Theme: Theme{
			Foreground:           "#B3B1AD",
			Background:           "#0A0E14",
			StatuslineForeground: "#B3B1AD",
			StatuslineBackground: "#0F1419",
			ErrorForeground:      "#FF3333",
		},
	}
}

func Load() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var userCfg Config
	md, err := toml.Decode(string(data), &userCfg)
	if err != nil {
		return cfg, err
	}

	if userCfg.Expander.CommandDelayMs > 0 {
		cfg.Expander.CommandDelayMs = userCfg.Expander.CommandDelayMs
	}
	if md.IsDefined("expander", "enabled") {
		cfg.Expander.Enabled = userCfg.Expander.Enabled
	}
	if userCfg.Expander.SnippetsFile != "" {
		cfg.Expander.SnippetsFile = userCfg.Expander.SnippetsFile
	}
	if userCfg.Expander.ReloadIntervalMs > 0 {
		cfg.Expander.ReloadIntervalMs = userCfg.Expander.ReloadIntervalMs
	}
	if userCfg.Theme.Foreground != "" {
		cfg.Theme.Foreground = userCfg.Theme.Foreground
	}
	if userCfg.Theme.Background != "" {
		cfg.Theme.Background = userCfg.Theme.Background
	}
	if userCfg.Theme.StatuslineForeground != "" {
		cfg.Theme.StatuslineForeground = userCfg.Theme.StatuslineForeground
	}
	if userCfg.Theme.StatuslineBackground != "" {
		cfg.Theme.StatuslineBackground = userCfg.Theme.StatuslineBackground
	}
	if userCfg.Theme.ErrorForeground != "" {
		cfg.Theme.ErrorForeground = userCfg.Theme.ErrorForeground
	}
	cfg.Debug = cfg.Debug || userCfg.Debug

	return cfg, nil
}

// SnippetsPath resolves the configured snippets file, anchoring relative
// paths at the config directory.
func (c Config) SnippetsPath() (string, error) {
	if filepath.IsAbs(c.Expander.SnippetsFile) {
		return c.Expander.SnippetsFile, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Expander.SnippetsFile), nil
}

func ConfigDir() (string, error) {
	if v := os.Getenv("EXPANDER_CONFIG_HOME"); v != "" {
		return filepath.Join(v), nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "expander"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "expander"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "expander.toml"), nil
}
