package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", s.Host)
	assert.Equal(t, 8080, s.Port)
	assert.Equal(t, "plans", s.PlanDir)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, PolicyAbort, s.InputPolicy)
	assert.Equal(t, 24*time.Hour, s.SessionTTL)
	assert.False(t, s.Ngrok.Enabled)
}

func TestLoad_YAML(t *testing.T) {
	path := writeSettings(t, "marsrover.yaml", `
host: 0.0.0.0
port: 9090
plan_dir: /srv/plans
log_level: debug
input_policy: skip
session_ttl: 2h
ngrok:
  enabled: true
  auth_token: secret
  domain: rovers.example.com
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", s.Host)
	assert.Equal(t, 9090, s.Port)
	assert.Equal(t, "/srv/plans", s.PlanDir)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, PolicySkip, s.InputPolicy)
	assert.Equal(t, 2*time.Hour, s.SessionTTL)
	assert.Equal(t, NgrokSettings{Enabled: true, AuthToken: "secret", Domain: "rovers.example.com"}, s.Ngrok)
}

func TestLoad_JSON(t *testing.T) {
	path := writeSettings(t, "marsrover.json", `{"port": 7070, "input_policy": "skip"}`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, s.Port)
	assert.Equal(t, PolicySkip, s.InputPolicy)
	assert.Equal(t, "localhost", s.Host)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeSettings(t, "marsrover.yml", "port: 9090\nlog_level: warn\n")
	t.Setenv("MARSROVER_PORT", "9191")
	t.Setenv("MARSROVER_PLAN_DIR", "/tmp/plans")
	t.Setenv("MARSROVER_NGROK__DOMAIN", "env.example.com")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, s.Port)
	assert.Equal(t, "warn", s.LogLevel)
	assert.Equal(t, "/tmp/plans", s.PlanDir)
	assert.Equal(t, "env.example.com", s.Ngrok.Domain)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("NGROK_AUTHTOKEN", "")
	t.Setenv("NGROK_AUTH_TOKEN", "")

	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr string
	}{
		{
			name:    "unsupported extension",
			path:    func(t *testing.T) string { return writeSettings(t, "marsrover.toml", "port = 1") },
			wantErr: "unsupported settings format",
		},
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") },
			wantErr: "settings file",
		},
		{
			name:    "bad policy",
			path:    func(t *testing.T) string { return writeSettings(t, "s.yaml", "input_policy: retry\n") },
			wantErr: "invalid input_policy",
		},
		{
			name:    "bad port",
			path:    func(t *testing.T) string { return writeSettings(t, "s.yaml", "port: 70000\n") },
			wantErr: "invalid port",
		},
		{
			name:    "bad level",
			path:    func(t *testing.T) string { return writeSettings(t, "s.yaml", "log_level: loud\n") },
			wantErr: "invalid log_level",
		},
		{
			name:    "ngrok without token",
			path:    func(t *testing.T) string { return writeSettings(t, "s.yaml", "ngrok:\n  enabled: true\n") },
			wantErr: "auth_token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_NgrokTokenFromEnv(t *testing.T) {
	t.Setenv("NGROK_AUTHTOKEN", "")
	t.Setenv("NGROK_AUTH_TOKEN", "from-env")
	path := writeSettings(t, "s.yaml", "ngrok:\n  enabled: true\n")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.Ngrok.AuthToken)
}

func TestValidate_NegativeTTL(t *testing.T) {
	s := Default()
	s.SessionTTL = -time.Minute
	assert.Error(t, s.Validate())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "port", envKey("MARSROVER_PORT"))
	assert.Equal(t, "ngrok.auth_token", envKey("MARSROVER_NGROK__AUTH_TOKEN"))
}
