package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/syuvi-tf/syuvi/pkg/logx"
)

func validConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			GuildID:           "1",
			SignupsChannelID:  "2",
			AnnounceChannelID: "3",
		},
		Sheets: SheetsConfig{
			SpreadsheetID:   "sheet",
			CredentialsFile: "creds.json",
		},
	}
}

func TestValidateDefaults(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Storage.Path != "./syuvi.db" {
		t.Errorf("storage path = %q, want default", cfg.Storage.Path)
	}
	if cfg.Server.Addr != ":3000" {
		t.Errorf("server addr = %q, want default", cfg.Server.Addr)
	}
	if got := cfg.SignupsEvery(); got != 5*time.Minute {
		t.Errorf("SignupsEvery = %v, want 5m", got)
	}
	if got := cfg.SheetsEvery(); got != 15*time.Minute {
		t.Errorf("SheetsEvery = %v, want 15m", got)
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing guild", func(c *Config) { c.Discord.GuildID = "" }},
		{"missing signups channel", func(c *Config) { c.Discord.SignupsChannelID = "" }},
		{"missing announce channel", func(c *Config) { c.Discord.AnnounceChannelID = "" }},
		{"missing spreadsheet", func(c *Config) { c.Sheets.SpreadsheetID = "" }},
		{"missing credentials", func(c *Config) { c.Sheets.CredentialsFile = "" }},
		{"bad busy timeout", func(c *Config) { c.Storage.BusyTimeout = "soon" }},
		{"bad refresh interval", func(c *Config) { c.Refresh.SignupsEvery = "-1x" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate: want error, got nil")
			}
		})
	}
}

func TestManagerParseYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
discord:
  guild_id: "10"
  signups_channel_id: "11"
  announce_channel_id: "12"
sheets:
  spreadsheet_id: abc
  credentials_file: creds.json
refresh:
  sheets_every: 30m
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path, logx.Nop())
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.GuildID != "10" {
		t.Errorf("guild = %q, want 10", cfg.Discord.GuildID)
	}
	if got := cfg.SheetsEvery(); got != 30*time.Minute {
		t.Errorf("SheetsEvery = %v, want 30m", got)
	}
	if m.Get() != cfg {
		t.Error("Get did not return committed config")
	}
}

func TestManagerParseRejectsUnknownField(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
discord:
  guild_id: "10"
  signups_channel_id: "11"
  announce_channel_id: "12"
  shard_count: 4
sheets:
  spreadsheet_id: abc
  credentials_file: creds.json
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path, logx.Nop())
	if _, err := m.Parse(); err == nil {
		t.Fatal("Parse: want error on unknown field, got nil")
	}
}
