package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte(`
base_url: https://mmm.example.com
http:
  addr: ":9000"
  base_path: /v1
auth:
  jwt_secret: sixteen-characters-at-least
  token_ttl_hours: 8
email:
  host: smtp.example.com
  port: 587
  username: mailer
  password: hunter2
  from: noreply@example.com
  skip_send: false
`))
	require.NoError(t, err)
	assert.Equal(t, "https://mmm.example.com", cfg.BaseURL)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "/v1", cfg.HTTP.BasePath)
	assert.Equal(t, 8, cfg.TokenTTLHoursOrDefault())
	assert.Equal(t, "smtp.example.com", cfg.Email.Host)
	assert.False(t, cfg.Email.SkipSend)
}

func TestFromYAMLRejectsUnknownFields(t *testing.T) {
	_, err := FromYAML([]byte("base_url: http://x\nbogus: true\n"))
	require.Error(t, err)
}

func TestValidateFailures(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Auth.JWTSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Email.From = "not-an-address"
	assert.Error(t, cfg.Validate())

	// Real sending requires a host.
	cfg = Default()
	cfg.Email.SkipSend = false
	cfg.Email.Host = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email.host")
}

func TestLoadOptional(t *testing.T) {
	cfg, err := LoadOptional("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8614", cfg.BaseURL)

	cfg, err = LoadOptional(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, ":8614", cfg.HTTP.Addr)

	path := filepath.Join(t.TempDir(), "maintline.yml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: https://mmm.example.com\n"), 0o644))
	cfg, err = LoadOptional(path)
	require.NoError(t, err)
	assert.Equal(t, "https://mmm.example.com", cfg.BaseURL)
}

func TestTokenTTLHoursOrDefault(t *testing.T) {
	cfg := Default()
	cfg.Auth.TokenTTLHours = 0
	assert.Equal(t, 24, cfg.TokenTTLHoursOrDefault())
}
