package main

import (
	"context"
	"errors"
	"net/http"

	"donations/internal/amqp"
	"donations/internal/analytics"
	"donations/internal/backend"
	"donations/internal/cli"
	apphttp "donations/internal/http"
	"donations/internal/log"
	"donations/internal/ports"
	"donations/internal/services"
)

type ServeCmd struct{}

func (cmd *ServeCmd) Run(a *app) error {
	cfg, logger := a.cfg, a.logger
	if cfg.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required to serve the API")
	}

	ctx := context.Background()
	store, cleanup, err := openStore(ctx, a)
	if err != nil {
		return err
	}
	defer cleanup()

	// Event publishing is best effort; the API runs without a broker.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	totals := services.NewTotalsMaintainer(store, logger)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Donors:             services.NewDonorService(store, logger),
		Campaigns:          services.NewCampaignService(store, store, logger),
		Donations:          services.NewDonationService(store, totals, publisher, logger),
		Analytics:          analytics.NewEngine(store, logger),
		Reconciler:         services.NewReconciler(store, logger),
		Store:              store,
		Auth:               apphttp.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer),
		Logger:             logger,
		Production:         cfg.IsProduction(),
		AllowedOrigins:     cfg.AllowedOrigins(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting donations server", "port", cfg.Port, "backend", cfg.DataBackend, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
	return nil
}

// openStore builds the configured backend.
func openStore(ctx context.Context, a *app) (ports.Store, func(), error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	return res.Store, func() {
		if err := res.Cleanup(); err != nil {
			a.logger.Error("Failed to close store", log.FieldError, err)
		}
	}, nil
}
