package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Discord DiscordConfig `json:"discord"`
	Sheets  SheetsConfig  `json:"sheets"`
	Logging LoggingConfig `json:"logging"`
	Storage StorageConfig `json:"storage"`
	Server  ServerConfig  `json:"server,omitempty"`
	Refresh RefreshConfig `json:"refresh,omitempty"`
}

// DiscordConfig identifies the guild surface. The bot token is NOT part of
// the file; it comes from the DISCORD_TOKEN environment variable.
type DiscordConfig struct {
	GuildID           string `json:"guild_id"`
	SignupsChannelID  string `json:"signups_channel_id"`
	AnnounceChannelID string `json:"announce_channel_id"`
	SignupsMessageID  string `json:"signups_message_id,omitempty"`
	// DivisionRoles maps division names to role ids for role restoration.
	DivisionRoles map[string]string `json:"division_roles,omitempty"`
}

type SheetsConfig struct {
	SpreadsheetID   string `json:"spreadsheet_id"`
	CredentialsFile string `json:"credentials_file"`
	RatePerMin      int    `json:"rate_per_min,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	Path string `json:"path,omitempty"`
	// BusyTimeout is a Go duration string (e.g. "5s").
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type ServerConfig struct {
	Addr string `json:"addr,omitempty"`
}

// RefreshConfig sets the periodic refresh cadence while a tourney is open.
// Values are Go duration strings.
type RefreshConfig struct {
	SignupsEvery string `json:"signups_every,omitempty"`
	SheetsEvery  string `json:"sheets_every,omitempty"`
}

// Validate fills defaults and rejects configs the bot can't run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.GuildID) == "" {
		return errors.New("discord.guild_id is required")
	}
	if strings.TrimSpace(c.Discord.SignupsChannelID) == "" {
		return errors.New("discord.signups_channel_id is required")
	}
	if strings.TrimSpace(c.Discord.AnnounceChannelID) == "" {
		return errors.New("discord.announce_channel_id is required")
	}
	if strings.TrimSpace(c.Sheets.SpreadsheetID) == "" {
		return errors.New("sheets.spreadsheet_id is required")
	}
	if strings.TrimSpace(c.Sheets.CredentialsFile) == "" {
		return errors.New("sheets.credentials_file is required")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = "./syuvi.db"
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = ":3000"
	}
	for _, field := range []struct {
		path string
		raw  string
	}{
		{"storage.busy_timeout", c.Storage.BusyTimeout},
		{"refresh.signups_every", c.Refresh.SignupsEvery},
		{"refresh.sheets_every", c.Refresh.SheetsEvery},
	} {
		if _, err := ParseDurationField(field.path, field.raw); err != nil {
			return err
		}
	}
	return nil
}

// BusyTimeout returns the parsed storage busy timeout.
func (c *Config) BusyTimeout() time.Duration {
	d, _ := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	return d
}

// SignupsEvery returns the signup-refresh interval, defaulted.
func (c *Config) SignupsEvery() time.Duration {
	d, err := ParseDurationOrDefault("refresh.signups_every", c.Refresh.SignupsEvery, 5*time.Minute)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// SheetsEvery returns the sheet-refresh interval, defaulted.
func (c *Config) SheetsEvery() time.Duration {
	d, err := ParseDurationOrDefault("refresh.sheets_every", c.Refresh.SheetsEvery, 15*time.Minute)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

func (c *Config) String() string {
	return fmt.Sprintf("config{guild=%s sheet=%s db=%s}",
		c.Discord.GuildID, c.Sheets.SpreadsheetID, c.Storage.Path)
}
