package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"watch-registration/internal/common/camunda"
	"watch-registration/internal/common/config"
	"watch-registration/internal/trigger/httptrigger"
	watchregistration "watch-registration/internal/workers/tokenization/watch-registration"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP trigger and the Zeebe job worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
}

func serve(ctx context.Context, opts *rootOptions) error {
	rt, err := loadRuntime(opts.configPath)
	if err != nil {
		return err
	}
	a, err := bootstrap(ctx, rt)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	log := a.log
	log.Info("Starting watch registration service", nil)

	var ready httptrigger.ReadyFunc
	if cfg.Camunda.Enabled {
		client, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: cfg.Camunda.Plaintext,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				log.Error("Error closing Zeebe client", map[string]interface{}{"error": err.Error()})
			}
		}()

		handler, err := watchregistration.NewHandler(watchregistration.HandlerOptions{
			AppConfig:    cfg,
			Camunda:      client,
			Logger:       log,
			Dependencies: a.deps,
		})
		if err != nil {
			return err
		}
		if err := handler.Register(); err != nil {
			return err
		}
		defer handler.Close()
		ready = handler.HealthCheck
	}

	routerOpts := httptrigger.Options{
		Ready:        ready,
		MaxBodyBytes: cfg.Trigger.HTTP.MaxBodyBytes,
		Logger:       log,
	}
	addr := cfg.Observability.MetricsAddress
	if cfg.Trigger.HTTP.Enabled {
		service := watchregistration.NewService(a.deps, a.workerCfg)
		routerOpts.Trigger = watchregistration.NewAdapter(service, "http", log)
		addr = cfg.Trigger.HTTP.Address
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httptrigger.NewRouter(routerOpts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       config.GetDuration(cfg.Trigger.HTTP.ReadTimeout),
		WriteTimeout:      config.GetDuration(cfg.Trigger.HTTP.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", map[string]interface{}{
			"address": addr,
			"trigger": cfg.Trigger.HTTP.Enabled,
		})
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, stopping service...", nil)
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Watch registration service stopped gracefully", nil)
	return nil
}
