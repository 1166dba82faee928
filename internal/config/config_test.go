package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestConfigDirEnv(t *testing.T) {
	t.Setenv("EXPANDER_CONFIG_HOME", "/tmp/expander-config")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/expander-config" {
		t.Fatalf("ConfigDir = %q, want %q", dir, "/tmp/expander-config")
	}

	t.Setenv("EXPANDER_CONFIG_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err = ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/xdg/expander" {
		t.Fatalf("ConfigDir = %q, want %q", dir, "/tmp/xdg/expander")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("EXPANDER_CONFIG_HOME", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	want := Default()
	if cfg.Expander != want.Expander {
		t.Fatalf("Expander = %+v, want defaults %+v", cfg.Expander, want.Expander)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EXPANDER_CONFIG_HOME", dir)

	writeFile(t, filepath.Join(dir, "expander.toml"), `
debug = true

[expander]
command-delay-ms = 250
enabled = false
snippets-file = "/etc/expander/snippets.json"

[theme]
background = "#222222"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Expander.CommandDelayMs != 250 {
		t.Fatalf("CommandDelayMs = %d", cfg.Expander.CommandDelayMs)
	}
	if cfg.Expander.Enabled {
		t.Fatalf("Enabled = true, want explicit false honored")
	}
	if cfg.Expander.SnippetsFile != "/etc/expander/snippets.json" {
		t.Fatalf("SnippetsFile = %q", cfg.Expander.SnippetsFile)
	}
	// Unset keys keep defaults.
	if cfg.Expander.ReloadIntervalMs != Default().Expander.ReloadIntervalMs {
		t.Fatalf("ReloadIntervalMs = %d", cfg.Expander.ReloadIntervalMs)
	}
	if cfg.Theme.Background != "#222222" || cfg.Theme.Foreground != Default().Theme.Foreground {
		t.Fatalf("theme merge = %+v", cfg.Theme)
	}
	if !cfg.Debug {
		t.Fatalf("Debug = false")
	}
}

func TestLoadEnabledDefaultsTrueWhenUnset(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EXPANDER_CONFIG_HOME", dir)

	writeFile(t, filepath.Join(dir, "expander.toml"), `
[expander]
command-delay-ms = 10
`)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.Expander.Enabled {
		t.Fatalf("Enabled = false, want default true when key absent")
	}
}

func TestSnippetsPathResolution(t *testing.T) {
	t.Setenv("EXPANDER_CONFIG_HOME", "/tmp/expander-config")

	cfg := Default()
	path, err := cfg.SnippetsPath()
	if err != nil {
		t.Fatalf("SnippetsPath error: %v", err)
	}
	if path != "/tmp/expander-config/snippets.json" {
		t.Fatalf("SnippetsPath = %q", path)
	}

	cfg.Expander.SnippetsFile = "/abs/snips.json"
	path, err = cfg.SnippetsPath()
	if err != nil {
		t.Fatalf("SnippetsPath error: %v", err)
	}
	if path != "/abs/snips.json" {
		t.Fatalf("SnippetsPath = %q", path)
	}
}

func TestParseSnippets(t *testing.T) {
	raws, err := ParseSnippets([]byte(`[
		{"trigger": "btw${0:instant}", "replacement": "by the way"},
		{"trigger": "addr", "replacement": ["line one", "line two"], "commands": "save"},
		{"trigger": "cmd${0:space}", "commands": ["save", "quit"]}
	]`))
	if err != nil {
		t.Fatalf("ParseSnippets error: %v", err)
	}
	if len(raws) != 3 {
		t.Fatalf("len = %d", len(raws))
	}
	if raws[0].Trigger != "btw${0:instant}" || len(raws[0].Replacement) != 1 || raws[0].Replacement[0] != "by the way" {
		t.Fatalf("raws[0] = %+v", raws[0])
	}
	if len(raws[1].Replacement) != 2 || raws[1].Replacement[1] != "line two" {
		t.Fatalf("raws[1] = %+v", raws[1])
	}
	if len(raws[1].Commands) != 1 || raws[1].Commands[0] != "save" {
		t.Fatalf("raws[1] commands = %+v", raws[1].Commands)
	}
	if len(raws[2].Commands) != 2 || raws[2].Replacement != nil {
		t.Fatalf("raws[2] = %+v", raws[2])
	}
}

func TestParseSnippetsRejectsBadDocuments(t *testing.T) {
	cases := []string{
		`not json`,
		`{"trigger": "x"}`,
		`[42]`,
		`[{"replacement": "no trigger"}]`,
		`[{"trigger": 7}]`,
	}
	for _, c := range cases {
		if _, err := ParseSnippets([]byte(c)); !errors.Is(err, ErrInvalidSnippets) {
			t.Fatalf("ParseSnippets(%q) err = %v, want ErrInvalidSnippets", c, err)
		}
	}
}

func TestLoadSnippetsFileMissingIsEmpty(t *testing.T) {
	raws, err := LoadSnippetsFile(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("LoadSnippetsFile error: %v", err)
	}
	if raws != nil {
		t.Fatalf("raws = %+v, want nil", raws)
	}
}
