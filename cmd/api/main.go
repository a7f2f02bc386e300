package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"example.com/habittracker/internal/api"
	"example.com/habittracker/internal/auth"
	"example.com/habittracker/internal/bootstrap"
	"example.com/habittracker/internal/config"
	"example.com/habittracker/internal/domain"
	"example.com/habittracker/internal/observability"
	"example.com/habittracker/internal/outbox"
	httptransport "example.com/habittracker/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := observability.SetupLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("failed to configure logger")
	}
	logger := observability.Component("api-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	var dispatcher *outbox.Dispatcher
	if store.Pool != nil && cfg.OutboxEnabled {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		dispatcher = outbox.NewDispatcher(
			outbox.NewPGStore(store.Pool),
			producer,
			outbox.NewDLQWriter(store.Pool, outbox.WithRetryDelay(cfg.DLQBaseDelay)),
			cfg.OutboxPollInterval,
			cfg.OutboxBatchSize,
			outbox.WithDispatcherLogger(observability.Component("outbox")),
		)
		go dispatcher.Start(ctx)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Msg("outbox dispatcher started")
	}

	authCfg := auth.Config{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}
	service := domain.NewService(store.Repository)
	accounts := domain.NewAccountService(store.Repository, auth.NewIssuer(authCfg))

	handler := api.NewHandler(service, accounts,
		api.WithSecureCookies(cfg.SecureCookies),
		api.WithTokenTTLs(cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
	)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	authMiddleware := auth.NewMiddleware(authCfg, auth.PublicPaths(api.PublicPaths()...))
	chain := httptransport.CORS(cfg.CORSOrigin,
		httptransport.RequestLogger(observability.Component("http"), authMiddleware.Wrap(mux)))

	serverCfg := httptransport.DefaultServerConfig(cfg.HTTPAddress)
	server := httptransport.NewServer(serverCfg, chain)
	if err := httptransport.Serve(ctx, server, serverCfg.ShutdownTimeout, logger); err != nil {
		logger.Error().Err(err).Msg("server error")
	}

	stop()
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
