package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"example.com/habittracker/internal/auth"
	"example.com/habittracker/internal/bootstrap"
	"example.com/habittracker/internal/cli"
	"example.com/habittracker/internal/config"
	"example.com/habittracker/internal/observability"
	"example.com/habittracker/internal/persistence/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := observability.SetupLogger(cfg.LogLevel, "console"); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := bootstrap.Open(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer store.Close()

	app := &cli.App{
		Activities: store.Repository,
		Tokens: auth.NewIssuer(auth.Config{
			Secret:     cfg.JWTSecret,
			Issuer:     cfg.JWTIssuer,
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
		}),
	}
	if store.Pool != nil {
		app.Migrate = func(ctx context.Context) ([]string, error) {
			return postgres.Migrate(ctx, store.Pool)
		}
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
