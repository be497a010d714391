// ABOUTME: Optional TOML settings file for the slack agent binaries.
// ABOUTME: Loads from an XDG path with ${VAR} environment expansion.

package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Settings is the on-disk configuration shared by both agent binaries. The
// file is optional; environment variables always win over file values for
// credentials.
type Settings struct {
	Slack   SlackSettings  `toml:"slack"`
	Agent   map[string]any `toml:"agent"`
	Logging LogSettings    `toml:"logging"`
}

// SlackSettings holds Slack credentials.
type SlackSettings struct {
	BotToken string `toml:"bot_token"`
	AppToken string `toml:"app_token"`
}

// LogSettings holds logging configuration.
type LogSettings struct {
	Level string `toml:"level"`
}

// DefaultPath returns the settings file location.
// Priority: MNEMNK_SLACK_CONFIG env var > XDG_CONFIG_HOME/mnemnk/slack.toml
// > ~/.config/mnemnk/slack.toml
func DefaultPath() string {
	if envPath := os.Getenv("MNEMNK_SLACK_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "slack.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "mnemnk", "slack.toml")
}

// Load reads settings from path, expanding environment variables. A missing
// file is not an error: the zero settings are returned and the environment
// carries the credentials.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	// Expand environment variables (${VAR} syntax)
	expanded := expandEnvVars(string(data))

	var s Settings
	if _, err := toml.Decode(expanded, &s); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validating settings: %w", err)
	}

	return &s, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Validate checks the fields that have a constrained value set.
func (s *Settings) Validate() error {
	switch s.Logging.Level {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", s.Logging.Level)
	}
}
