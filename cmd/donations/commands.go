package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"donations/internal/amqp"
	apphttp "donations/internal/http"
	"donations/internal/services"
	"donations/internal/storage"
)

type MigrateCmd struct{}

func (cmd *MigrateCmd) Run(a *app) error {
	if a.cfg.DataBackend != "sqlite" {
		return fmt.Errorf("migrate needs the sqlite backend, DATA_BACKEND is %q", a.cfg.DataBackend)
	}
	if err := storage.RunMigrations(a.cfg.SQLiteDBPath); err != nil {
		return err
	}
	a.logger.Info("Migrations applied", "db_path", a.cfg.SQLiteDBPath)
	return nil
}

type ReconcileCmd struct {
	Publish bool `help:"Ask the worker to reconcile through AMQP instead of running here."`
}

func (cmd *ReconcileCmd) Run(a *app) error {
	ctx := context.Background()

	if cmd.Publish {
		if a.cfg.AMQPURL == "" {
			return errors.New("--publish needs AMQP_URL")
		}
		client, err := amqp.NewClient(ctx, a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, a.logger)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := client.PublishReconcileRequest(ctx); err != nil {
			return err
		}
		a.logger.Info("Reconciliation requested", "queue", a.cfg.AMQPQueue)
		return nil
	}

	store, cleanup, err := openStore(ctx, a)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := services.NewReconciler(store, a.logger).Reconcile(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

type TokenCmd struct {
	Subject string        `arg:"" help:"User id recorded as organizer or processedBy."`
	Role    string        `enum:"manager,user" default:"user" help:"Role granted by the token (manager or user)."`
	TTL     time.Duration `name:"ttl" default:"24h" help:"Token lifetime."`
}

func (cmd *TokenCmd) Run(a *app) error {
	if a.cfg.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required to issue tokens")
	}
	token, err := apphttp.NewAuthenticator(a.cfg.JWTSecret, a.cfg.JWTIssuer).Sign(cmd.Subject, cmd.Role, cmd.TTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	_, err = fmt.Fprintln(a.stdout, token)
	return err
}
