// Package config holds the floedash configuration: the dev server settings and
// the client settings handed to the browser.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	ui "github.com/floeit/floedash"
)

// ClientScriptID is the id of the script element carrying the client
// configuration in index.html.
const ClientScriptID = "floedash-config"

// Config is the whole configuration file.
type Config struct {
	Server ServerConfig `toml:"server"`
	Client ClientConfig `toml:"client"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig configures the dev server.
type ServerConfig struct {
	Listen string `toml:"listen"`
	// Backend is the floe server the API and stream calls are proxied to.
	Backend   string `toml:"backend"`
	StaticDir string `toml:"static_dir"`
	// Watch enables live reload when a file in StaticDir changes.
	Watch    bool     `toml:"watch"`
	Debounce Duration `toml:"debounce"`
}

// ClientConfig configures the dashboard itself. It travels to the browser as
// JSON.
type ClientConfig struct {
	BasePath       string          `toml:"base_path"`
	APIPrefix      string          `toml:"api_prefix"`
	StreamPath     string          `toml:"stream_path"`
	SessionCookie  string          `toml:"session_cookie"`
	VerifyPath     string          `toml:"verify_path"`
	RequestTimeout Duration        `toml:"request_timeout"`
	Reconnect      ReconnectConfig `toml:"reconnect"`
	LogLevel       string          `toml:"-"`
}

// ReconnectConfig configures the live updates reconnection.
type ReconnectConfig struct {
	Enabled    bool     `toml:"enabled"`
	MinBackoff Duration `toml:"min_backoff"`
	MaxBackoff Duration `toml:"max_backoff"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:    "localhost:8080",
			Backend:   "http://localhost:8888",
			StaticDir: "static",
			Watch:     true,
			Debounce:  Duration{200 * time.Millisecond},
		},
		Client: DefaultClient(),
		Log:    LogConfig{Level: "info"},
	}
}

// DefaultClient returns the client settings matching a stock floe server.
func DefaultClient() ClientConfig {
	return ClientConfig{
		BasePath:       "/app",
		APIPrefix:      ui.DefaultAPIPrefix,
		StreamPath:     ui.DefaultStreamPath,
		SessionCookie:  ui.DefaultSessionCookie,
		VerifyPath:     ui.DefaultVerifyPath,
		RequestTimeout: Duration{ui.DefaultRequestTimeout},
		Reconnect: ReconnectConfig{
			Enabled:    true,
			MinBackoff: Duration{ui.DefaultMinBackoff},
			MaxBackoff: Duration{ui.DefaultMaxBackoff},
		},
		LogLevel: "info",
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if err := c.Client.Validate(); err != nil {
		return err
	}
	u, err := url.Parse(c.Server.Backend)
	if err != nil {
		return fmt.Errorf("server.backend: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.backend: %q is not an http(s) URL", c.Server.Backend)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Validate reports the first client setting that cannot work.
func (c ClientConfig) Validate() error {
	for name, p := range map[string]string{
		"client.base_path":   c.BasePath,
		"client.api_prefix":  c.APIPrefix,
		"client.stream_path": c.StreamPath,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s: %q must start with /", name, p)
		}
	}
	if c.BasePath == "/" {
		return errors.New("client.base_path: the dashboard needs its own prefix")
	}
	if c.Reconnect.MaxBackoff.Duration < c.Reconnect.MinBackoff.Duration {
		return errors.New("client.reconnect: max_backoff is below min_backoff")
	}
	return nil
}

// JSON encodes the client settings for the browser.
func (c ClientConfig) JSON() ([]byte, error) {
	return json.Marshal(c)
}

// ParseClient decodes client settings sent by the dev server. Missing fields
// keep their defaults.
func ParseClient(b []byte) (ClientConfig, error) {
	c := DefaultClient()
	if len(b) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("client config: %w", err)
	}
	return c, nil
}

// ParseLevel maps a level name onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, err
	}
	return l, nil
}
