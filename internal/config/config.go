package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config models maintline.yml.
type Config struct {
	// BaseURL is the externally reachable root of the service; job detail
	// links in notification emails are built from it.
	BaseURL string `yaml:"base_url" validate:"required,url"`
	HTTP    struct {
		Addr     string `yaml:"addr" validate:"required"`
		BasePath string `yaml:"base_path"`
	} `yaml:"http"`
	Auth struct {
		JWTSecret     string `yaml:"jwt_secret" validate:"required,min=16"`
		TokenTTLHours int    `yaml:"token_ttl_hours" validate:"gte=0"`
	} `yaml:"auth"`
	Media struct {
		// Root is the directory private media files live under. Empty
		// means "derive from the workspace".
		Root string `yaml:"root"`
	} `yaml:"media"`
	Email Email `yaml:"email"`
}

// Email configures the notification transport.
type Email struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"gte=0,lte=65535"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from" validate:"required,email"`
	// SkipSend logs fully composed messages instead of dispatching them.
	SkipSend bool `yaml:"skip_send"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("config: field %s failed %q validation", f.Namespace(), f.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	if !c.Email.SkipSend && c.Email.Host == "" {
		return fmt.Errorf("config: email.host is required unless email.skip_send is set")
	}
	return nil
}

// Default returns a config suitable for local development.
func Default() *Config {
	c := &Config{}
	c.BaseURL = "http://localhost:8614"
	c.HTTP.Addr = ":8614"
	c.HTTP.BasePath = "/v0"
	c.Auth.JWTSecret = "dev-secret-change-me-please"
	c.Auth.TokenTTLHours = 24
	c.Email.From = "noreply@mmm.ar-ciel.org"
	c.Email.SkipSend = true
	return c
}

// FromYAML decodes a config with unknown fields rejected.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile loads and validates a config file.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional loads path if it exists, else returns defaults.
func LoadOptional(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// TokenTTLHoursOrDefault returns the configured token lifetime, defaulting
// to 24 hours.
func (c *Config) TokenTTLHoursOrDefault() int {
	if c.Auth.TokenTTLHours <= 0 {
		return 24
	}
	return c.Auth.TokenTTLHours
}
