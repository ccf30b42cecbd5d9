package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings are the display preferences carried in snapshots.
type Settings struct {
	FontSize   string `yaml:"font_size" json:"fontSize" validate:"omitempty,oneof=large xlarge"`
	LineHeight string `yaml:"line_height" json:"lineHeight" validate:"omitempty,oneof=relaxed loose"`
	Theme      string `yaml:"theme" json:"theme" validate:"oneof=system light dark"`
	SnapOrth   *bool  `yaml:"snap_orth" json:"snapOrth,omitempty"`
}

func defaultSettings() Settings {
	return Settings{Theme: "system"}
}

// Normalize resets any field holding an unknown value to its default.
func (s *Settings) Normalize() {
	if validate.Var(s.FontSize, "omitempty,oneof=large xlarge") != nil {
		s.FontSize = ""
	}
	if validate.Var(s.LineHeight, "omitempty,oneof=relaxed loose") != nil {
		s.LineHeight = ""
	}
	if validate.Var(s.Theme, "oneof=system light dark") != nil {
		s.Theme = "system"
	}
}

// Orthogonal reports whether links are drawn as elbows. It defaults to true.
func (s Settings) Orthogonal() bool {
	return s.SnapOrth == nil || *s.SnapOrth
}

// BlockPadding is the number of blank rows added below block text.
func (s Settings) BlockPadding() int {
	switch s.LineHeight {
	case "relaxed":
		return 1
	case "loose":
		return 2
	}
	return 0
}

type Config struct {
	SaveDirectory  string       `yaml:"save_directory"`
	Database       string       `yaml:"database"`
	LogFile        string       `yaml:"log_file"`
	Confirmations  bool         `yaml:"confirmations"`
	RepaintFrameMS int          `yaml:"repaint_frame_ms"`
	ShareBaseURL   string       `yaml:"share_base_url"`
	Columns        ColumnLayout `yaml:"columns"`
	Settings       Settings     `yaml:"settings"`

	path string
}

func configDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".flowsheet"
	}
	return filepath.Join(homeDir, ".flowsheet")
}

func defaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func defaultConfig() *Config {
	dir := configDir()
	return &Config{
		SaveDirectory:  "",
		Database:       filepath.Join(dir, "flowsheet.db"),
		LogFile:        filepath.Join(dir, "flowsheet.log"),
		Confirmations:  true,
		RepaintFrameMS: 16,
		ShareBaseURL:   "https://flowsheet.local/",
		Columns:        defaultColumnLayout(),
		Settings:       defaultSettings(),
		path:           defaultConfigPath(),
	}
}

// loadConfig returns the defaults overridden by whatever the config file
// sets. A missing or unreadable file leaves the defaults in place.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()
	if path == "" {
		path = defaultConfigPath()
	}
	config.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return config, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return defaultConfigAt(path), fmt.Errorf("parsing config %s: %w", path, err)
	}
	config.normalize()
	return config, nil
}

func defaultConfigAt(path string) *Config {
	c := defaultConfig()
	c.path = path
	return c
}

func (c *Config) normalize() {
	c.SaveDirectory = expandHome(c.SaveDirectory)
	c.Database = expandHome(c.Database)
	c.LogFile = expandHome(c.LogFile)
	if c.RepaintFrameMS <= 0 {
		c.RepaintFrameMS = 16
	}
	if len(c.Columns.Affirmative) == 0 || len(c.Columns.Negative) == 0 {
		c.Columns = defaultColumnLayout()
	}
	c.Settings.Normalize()
}

func expandHome(value string) string {
	if !strings.HasPrefix(value, "~") {
		return value
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return value
	}
	return filepath.Join(homeDir, strings.TrimPrefix(value, "~"))
}

func (c *Config) Path() string {
	return c.path
}

func (c *Config) RepaintFrame() time.Duration {
	return time.Duration(c.RepaintFrameMS) * time.Millisecond
}

func (c *Config) GetSavePath(filename string) string {
	if c.SaveDirectory == "" {
		return filename
	}
	os.MkdirAll(c.SaveDirectory, 0755)
	return filepath.Join(c.SaveDirectory, filename)
}

// ImportDirectory is where the import picker looks for snapshots.
func (c *Config) ImportDirectory() string {
	if c.SaveDirectory == "" {
		return "."
	}
	return c.SaveDirectory
}
