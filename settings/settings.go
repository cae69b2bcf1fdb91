// Package settings loads server configuration from an optional YAML or JSON
// file with MARSROVER_ environment overrides.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides. Nested keys use a double
// underscore: MARSROVER_NGROK__DOMAIN sets ngrok.domain.
const EnvPrefix = "MARSROVER_"

// Input policies accepted in configuration
const (
	PolicyAbort = "abort"
	PolicySkip  = "skip"
)

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Settings is the server configuration
type Settings struct {
	Host        string        `json:"host"`
	Port        int           `json:"port"`
	PlanDir     string        `json:"plan_dir"`
	LogLevel    string        `json:"log_level"`
	InputPolicy string        `json:"input_policy"`
	SessionTTL  time.Duration `json:"session_ttl"`
	Ngrok       NgrokSettings `json:"ngrok"`
}

// NgrokSettings controls the optional public tunnel
type NgrokSettings struct {
	Enabled   bool   `json:"enabled"`
	AuthToken string `json:"auth_token"`
	Domain    string `json:"domain"`
}

// Default returns the settings used when nothing is configured
func Default() *Settings {
	s := &Settings{}
	s.SetDefaults()
	return s
}

// SetDefaults fills every zero field
func (s *Settings) SetDefaults() {
	if s.Host == "" {
		s.Host = "localhost"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.PlanDir == "" {
		s.PlanDir = "plans"
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.InputPolicy == "" {
		s.InputPolicy = PolicyAbort
	}
	if s.SessionTTL == 0 {
		s.SessionTTL = 24 * time.Hour
	}
}

// Validate reports the first invalid field
func (s *Settings) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return fmt.Errorf("invalid log_level %q", s.LogLevel)
	}
	if s.InputPolicy != PolicyAbort && s.InputPolicy != PolicySkip {
		return fmt.Errorf("invalid input_policy %q: want %q or %q", s.InputPolicy, PolicyAbort, PolicySkip)
	}
	if s.SessionTTL < 0 {
		return errors.New("session_ttl must not be negative")
	}
	if s.Ngrok.Enabled && s.Ngrok.AuthToken == "" {
		return errors.New("ngrok enabled without auth_token")
	}
	return nil
}

// Load reads settings from path, then applies environment overrides. An
// empty path skips the file; a missing file is an error.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported settings format: %s", filepath.Ext(path))
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("settings file: %w", err)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, "__", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var s Settings
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.SetDefaults()
	if s.Ngrok.AuthToken == "" {
		s.Ngrok.AuthToken = NgrokTokenFromEnv()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// NgrokTokenFromEnv returns the token ngrok's own tooling reads
func NgrokTokenFromEnv() string {
	if token := os.Getenv("NGROK_AUTHTOKEN"); token != "" {
		return token
	}
	return os.Getenv("NGROK_AUTH_TOKEN")
}

// envKey maps MARSROVER_NGROK__AUTH_TOKEN to ngrok.auth_token
func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
