// Package config loads the imgtail service configuration.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/memohai/imgtail/internal/lark"
)

const (
	DefaultConfigPath          = "config.toml"
	DefaultHTTPAddr            = ":8080"
	DefaultFetchTimeoutSeconds = 30
)

type Config struct {
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
	Lark   LarkConfig   `toml:"lark"`
	Fetch  FetchConfig  `toml:"fetch"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LarkConfig struct {
	AppID     string `toml:"app_id" validate:"required"`
	AppSecret string `toml:"app_secret" validate:"required"`
	// Region and ReplyMode accept the gateway's aliases (cn, global, ...)
	// and are checked by lark.Config.Normalize rather than a tag.
	Region    string `toml:"region"`
	ReplyMode string `toml:"reply_mode"`
}

type FetchConfig struct {
	TimeoutSeconds int   `toml:"timeout_seconds" validate:"omitempty,min=1"`
	MaxBytes       int64 `toml:"max_bytes" validate:"omitempty,min=1"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Lark: LarkConfig{
			Region:    "feishu",
			ReplyMode: "stream_message",
		},
		Fetch: FetchConfig{
			TimeoutSeconds: DefaultFetchTimeoutSeconds,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return applyEnv(cfg), nil
}

// applyEnv lets secrets come from the environment rather than the file.
func applyEnv(cfg Config) Config {
	if v := os.Getenv("LARK_APP_ID"); v != "" {
		cfg.Lark.AppID = v
	}
	if v := os.Getenv("LARK_APP_SECRET"); v != "" {
		cfg.Lark.AppSecret = v
	}
	return cfg
}

// Validate checks constraint tags across the whole config, then runs the
// Lark settings through the gateway's own normalization.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := (lark.Config{
		AppID:     c.Lark.AppID,
		AppSecret: c.Lark.AppSecret,
		Region:    c.Lark.Region,
		ReplyMode: c.Lark.ReplyMode,
	}).Normalize(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
