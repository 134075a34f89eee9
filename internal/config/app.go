package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v9"
	"github.com/sandevgo/govorun/pkg/log"
)

// GetRuntimePath resolves the runtime directory before any config is
// parsed, so the .env file inside it can be loaded first.
func GetRuntimePath() string {
	if p := os.Getenv("GOVORUN_RUNTIME_PATH"); p != "" {
		return p
	}
	return ".govorun"
}

type AppConfig struct {
	RuntimePath string `env:"GOVORUN_RUNTIME_PATH" envDefault:".govorun"`
	ProfilePath string `env:"PROFILE_PATH"`

	// Transport Flags
	EnableTelegram bool `env:"ENABLE_TELEGRAM" envDefault:"false"`
	EnableHTTP     bool `env:"ENABLE_HTTP" envDefault:"false"`
	EnableCLI      bool `env:"ENABLE_CLI" envDefault:"true"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetProfilePath() string {
	if c.ProfilePath != "" {
		return c.ProfilePath
	}
	return filepath.Join(c.RuntimePath, "profile.json")
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "govorun.db")
}
