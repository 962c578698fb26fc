package config

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the configuration at path. An empty path, or a missing file, gives
// the defaults. Environment overrides apply either way.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		applyEnvOverrides(cfg)
		return cfg, nil
	}
	return LoadFromFile(path)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader reads configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadDotEnv loads the given .env files into the environment. Missing files are
// not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FLOEDASH_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("FLOEDASH_BACKEND"); v != "" {
		cfg.Server.Backend = v
	}
	if v := os.Getenv("FLOEDASH_STATIC_DIR"); v != "" {
		cfg.Server.StaticDir = v
	}
	if v := os.Getenv("FLOEDASH_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Server.Watch = b
		}
	}
	if v := os.Getenv("FLOEDASH_BASE_PATH"); v != "" {
		cfg.Client.BasePath = v
	}
	if v := os.Getenv("FLOEDASH_API_PREFIX"); v != "" {
		cfg.Client.APIPrefix = v
	}
	if v := os.Getenv("FLOEDASH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	cfg.Client.LogLevel = cfg.Log.Level
}
