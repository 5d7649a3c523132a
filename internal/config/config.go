// Package config loads the bot configuration from an optional YAML file
// with environment variables taking precedence. Configuration is immutable
// for the lifetime of the process.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"pantrybot/internal/schedule"
)

type Slot struct {
	Day  string `yaml:"day"`
	Hour int    `yaml:"hour"`
}

type Schedule struct {
	PromptDays []string `yaml:"prompt_days"`
	PromptHour int      `yaml:"prompt_hour"`
	// SummarySlots has no environment form; set it in the file.
	SummarySlots []Slot `yaml:"summary_slots"`
}

// unsetHour marks prompt_hour as absent before decoding, so an explicit
// prompt_hour: 0 (midnight) survives default application.
const unsetHour = -1

type Config struct {
	Token      string   `yaml:"token"`
	GuildID    string   `yaml:"guild_id"`
	TrackerURL string   `yaml:"tracker_url"`
	Secret     string   `yaml:"secret"`
	OperatorID string   `yaml:"operator_id"`
	MemberIDs  []string `yaml:"member_ids"`
	SheetURL   string   `yaml:"sheet_url"`
	ListenAddr string   `yaml:"listen_addr"`
	LogLevel   string   `yaml:"log_level"`
	Schedule   Schedule `yaml:"schedule"`
}

// Load reads the YAML file at path (skipped when path is empty or missing),
// then applies environment overrides and defaults, then validates.
func Load(path string) (*Config, error) {
	cfg := &Config{Schedule: Schedule{PromptHour: unsetHour}}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// fall through to env-only configuration
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			dec := yaml.NewDecoder(strings.NewReader(string(b)))
			dec.KnownFields(true)
			if err := dec.Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setStr(&c.Token, "BOT_TOKEN")
	setStr(&c.GuildID, "GUILD_ID")
	setStr(&c.TrackerURL, "TRACKER_URL")
	setStr(&c.Secret, "API_SECRET")
	setStr(&c.OperatorID, "OPERATOR_ID")
	setStr(&c.SheetURL, "SHEET_URL")
	setStr(&c.ListenAddr, "LISTEN_ADDR")
	setStr(&c.LogLevel, "LOG_LEVEL")
	if v := os.Getenv("MEMBER_IDS"); v != "" {
		c.MemberIDs = splitList(v)
	}
	if v := os.Getenv("PROMPT_DAYS"); v != "" {
		c.Schedule.PromptDays = splitList(v)
	}
	if v := os.Getenv("PROMPT_HOUR"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: PROMPT_HOUR %q is not an hour", v)
		}
		c.Schedule.PromptHour = h
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if len(c.Schedule.PromptDays) == 0 {
		c.Schedule.PromptDays = []string{"sunday", "wednesday"}
	}
	if c.Schedule.PromptHour == unsetHour {
		c.Schedule.PromptHour = 19
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("config: bot token is required")
	}
	if strings.TrimSpace(c.TrackerURL) == "" {
		return errors.New("config: tracker_url is required")
	}
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("config: secret is required")
	}
	if len(c.MemberIDs) == 0 && strings.TrimSpace(c.GuildID) == "" {
		return errors.New("config: either member_ids or guild_id must be set")
	}
	if c.Schedule.PromptHour < 0 || c.Schedule.PromptHour > 23 {
		return fmt.Errorf("config: prompt_hour %d out of range", c.Schedule.PromptHour)
	}
	if _, err := c.ScheduleConfig(); err != nil {
		return err
	}
	return nil
}

// ScheduleConfig converts the textual schedule tables into campaign windows.
func (c *Config) ScheduleConfig() (schedule.Config, error) {
	out := schedule.Config{PromptHour: c.Schedule.PromptHour}
	for _, d := range c.Schedule.PromptDays {
		wd, err := ParseWeekday(d)
		if err != nil {
			return schedule.Config{}, err
		}
		out.PromptDays = append(out.PromptDays, wd)
	}
	for _, s := range c.Schedule.SummarySlots {
		wd, err := ParseWeekday(s.Day)
		if err != nil {
			return schedule.Config{}, err
		}
		if s.Hour < 0 || s.Hour > 23 {
			return schedule.Config{}, fmt.Errorf("config: summary hour %d out of range", s.Hour)
		}
		out.SummarySlots = append(out.SummarySlots, schedule.Window{Day: wd, Hour: s.Hour})
	}
	return out, nil
}

// ParseWeekday accepts full weekday names, case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("config: unknown weekday %q", s)
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
