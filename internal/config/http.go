package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/govorun/pkg/log"
)

type HTTPConfig struct {
	Listen string `env:"HTTP_LISTEN" envDefault:"127.0.0.1:9098"`
}

func NewHTTPConfig(ctx context.Context) *HTTPConfig {
	c := &HTTPConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse HTTP config")
	}
	return c
}
