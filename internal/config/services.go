package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/govorun/pkg/log"
)

// GeneratorConfig points at the text-generation service.
type GeneratorConfig struct {
	BaseURL string        `env:"GENERATOR_URL,required,notEmpty"`
	Timeout time.Duration `env:"GENERATOR_TIMEOUT" envDefault:"120s"`
}

func NewGeneratorConfig(ctx context.Context) *GeneratorConfig {
	c := &GeneratorConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Generator config")
	}
	return c
}

// SemanticConfig points at the relevancy and synonymy scoring services.
type SemanticConfig struct {
	RelevancyURL string        `env:"RELEVANCY_URL,required,notEmpty"`
	SynonymyURL  string        `env:"SYNONYMY_URL,required,notEmpty"`
	Timeout      time.Duration `env:"SEMANTIC_TIMEOUT" envDefault:"30s"`
}

func NewSemanticConfig(ctx context.Context) *SemanticConfig {
	c := &SemanticConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Semantic config")
	}
	return c
}
