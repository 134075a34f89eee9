package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/govorun/internal/config"
	"github.com/sandevgo/govorun/internal/core"
	"github.com/sandevgo/govorun/internal/dialog"
	"github.com/sandevgo/govorun/internal/facts"
	"github.com/sandevgo/govorun/internal/providers/gen"
	"github.com/sandevgo/govorun/internal/providers/semantic"
	"github.com/sandevgo/govorun/internal/service/engine"
	"github.com/sandevgo/govorun/internal/storage/sqlite"
	"github.com/sandevgo/govorun/internal/transport/cli"
	"github.com/sandevgo/govorun/internal/transport/httpapi"
	"github.com/sandevgo/govorun/internal/transport/telegram"
	"github.com/sandevgo/govorun/pkg/log"
	"github.com/sandevgo/govorun/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)

	profile, err := initProfile(appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load profile")
	}

	// 2. Storage
	db, factsRepo, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	// 3. Fact catalog: seed premises + persistent facts
	catalog, err := initCatalog(profile, factsRepo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load premises")
	}

	// 4. Scoring and generation providers
	genCfg := config.NewGeneratorConfig(ctx)
	semCfg := config.NewSemanticConfig(ctx)

	generator := gen.NewClient(genCfg)
	relevancy := semantic.NewClient(semCfg.RelevancyURL, semCfg.Timeout)
	synonymy := semantic.NewClient(semCfg.SynonymyURL, semCfg.Timeout)

	// 5. Dialogue engine over shared session registry
	sessions := dialog.NewRegistry(profile, catalog)
	eng := engine.New(generator, relevancy, synonymy, nil)

	// 6. Transports
	transports, err := initTransports(ctx, appCfg, sessions, eng)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize transports")
	}
	services = append(services, transports...)

	return services
}

func initProfile(cfg *config.AppConfig) (*config.Profile, error) {
	path := cfg.GetProfilePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.DefaultProfile(), nil
	}
	return config.LoadProfile(path)
}

func initStorage(ctx context.Context, cfg *config.AppConfig) (*sql.DB, core.FactsRepository, error) {
	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, nil, err
	}
	return db, sqlite.NewFactsRepo(db), nil
}

func initCatalog(profile *config.Profile, repo core.FactsRepository) (*facts.Catalog, error) {
	var seed []core.Fact
	if profile.PremisesPath != "" {
		var err error
		seed, err = facts.LoadPremises(profile.PremisesPath)
		if err != nil {
			return nil, err
		}
	}
	return facts.NewCatalog(repo, seed), nil
}

func initTransports(
	ctx context.Context,
	cfg *config.AppConfig,
	sessions *dialog.Registry,
	eng *engine.Engine,
) ([]srv.Service, error) {
	var services []srv.Service

	if cfg.EnableTelegram {
		tgCfg := config.NewTelegramConfig(ctx)
		bot, err := telegram.NewBot(ctx, tgCfg, sessions, eng)
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	if cfg.EnableHTTP {
		httpCfg := config.NewHTTPConfig(ctx)
		services = append(services, httpapi.NewServer(httpCfg, sessions, eng))
	}

	if cfg.EnableCLI {
		console, err := cli.NewReadLine(cfg, sessions, eng)
		if err != nil {
			return nil, err
		}
		services = append(services, console)
	}

	return services, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
