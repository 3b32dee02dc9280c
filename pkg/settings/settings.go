// Package settings manages persistent user settings for the queuecheck CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Settings holds persistent user preferences
type Settings struct {
	// DefaultInterface is the device to check when none is given
	DefaultInterface string `json:"default_interface,omitempty"`

	// EthtoolPath overrides the ethtool binary
	EthtoolPath string `json:"ethtool_path,omitempty"`

	// CommandTimeout bounds each external command, e.g. "10s"
	CommandTimeout string `json:"command_timeout,omitempty"`

	// LinkBackend selects how the link is toggled: "netlink" or "ip"
	LinkBackend string `json:"link_backend,omitempty"`

	// ReportDir is where run reports are written
	ReportDir string `json:"report_dir,omitempty"`

	// RedisAddr is the results database to publish to
	RedisAddr string `json:"redis_addr,omitempty"`
}

// Keys lists the names accepted by Get and Set.
var Keys = []string{
	"default_interface",
	"ethtool_path",
	"command_timeout",
	"link_backend",
	"report_dir",
	"redis_addr",
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "queuecheck_settings.json"
	}
	return filepath.Join(home, ".queuecheck", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (s *Settings) field(key string) (*string, error) {
	switch key {
	case "default_interface":
		return &s.DefaultInterface, nil
	case "ethtool_path":
		return &s.EthtoolPath, nil
	case "command_timeout":
		return &s.CommandTimeout, nil
	case "link_backend":
		return &s.LinkBackend, nil
	case "report_dir":
		return &s.ReportDir, nil
	case "redis_addr":
		return &s.RedisAddr, nil
	}
	return nil, fmt.Errorf("unknown setting %q", key)
}

// Get returns the value stored under key.
func (s *Settings) Get(key string) (string, error) {
	f, err := s.field(key)
	if err != nil {
		return "", err
	}
	return *f, nil
}

// Set stores value under key. An empty value clears the setting.
func (s *Settings) Set(key, value string) error {
	f, err := s.field(key)
	if err != nil {
		return err
	}
	switch key {
	case "command_timeout":
		if value != "" {
			if d, err := time.ParseDuration(value); err != nil || d <= 0 {
				return fmt.Errorf("command_timeout: invalid duration %q", value)
			}
		}
	case "link_backend":
		if value != "" && value != "netlink" && value != "ip" {
			return fmt.Errorf("link_backend: must be netlink or ip, got %q", value)
		}
	}
	*f = value
	return nil
}

// GetCommandTimeout returns the command timeout (with fallback)
func (s *Settings) GetCommandTimeout(fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s.CommandTimeout); err == nil && d > 0 {
		return d
	}
	return fallback
}

// GetReportDir returns the report directory (with fallback)
func (s *Settings) GetReportDir() string {
	if s.ReportDir != "" {
		return s.ReportDir
	}
	return "queuecheck-reports"
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
