package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"watch-registration/internal/appraisal"
	"watch-registration/internal/attestation"
	"watch-registration/internal/common/aws"
	"watch-registration/internal/common/config"
	"watch-registration/internal/common/database"
	"watch-registration/internal/common/logger"
	"watch-registration/internal/common/observability"
	"watch-registration/internal/ledger"
	watchregistration "watch-registration/internal/workers/tokenization/watch-registration"
)

// runtime is the configuration and logging every command needs.
type runtime struct {
	cfg     *config.Config
	zapLog  *zap.Logger
	log     logger.Logger
	network ledger.Network
}

func loadRuntime(configPath string) (*runtime, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"app":     cfg.App.Name,
		"version": version,
	})

	evm, err := cfg.PrimaryEVM()
	if err != nil {
		return nil, err
	}
	network, err := ledger.GetNetwork(evm.ChainSelectorName, evm.IsTestnet)
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, zapLog: zapLog, log: log, network: network}, nil
}

// app holds the wired pipeline collaborators.
type app struct {
	*runtime
	obs       *observability.Observability
	workerCfg *watchregistration.Config
	deps      watchregistration.ServiceDependencies
	closers   []func()
}

func bootstrap(ctx context.Context, rt *runtime) (*app, error) {
	a := &app{runtime: rt}
	cfg := rt.cfg

	a.workerCfg = watchregistration.ConfigFromApp(cfg)
	if err := a.workerCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid worker configuration: %w", err)
	}

	a.obs = observability.New(cfg.Observability.ServiceName, cfg.Observability.TracingEnabled)
	a.closers = append(a.closers, a.obs.Shutdown)

	validator, err := a.newValidator(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	attestor, err := attestation.NewLocalQuorumSigner(cfg.Attestation, rt.log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("attestation setup failed: %w", err)
	}

	evm, _ := cfg.PrimaryEVM()
	writer, client, err := ledger.Dial(ctx, evm, rt.network, rt.log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ledger setup failed: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	a.deps = watchregistration.ServiceDependencies{
		Logger:        rt.log,
		Validator:     validator,
		Attestor:      attestor,
		Submitter:     writer,
		Network:       rt.network,
		Observability: a.obs,
	}

	if sns := cfg.Notifications.SNS; sns.Enabled {
		notifier, err := aws.NewOutcomeNotifier(ctx, sns.Region, sns.TopicARN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("sns setup failed: %w", err)
		}
		a.deps.Notifier = notifier
	}

	rt.log.Info("Watch registration pipeline ready", map[string]interface{}{
		"chainSelector": rt.network.Name,
		"chainId":       rt.network.ChainID,
		"receiver":      a.workerCfg.Receiver.Hex(),
		"transmitter":   writer.Transmitter().Hex(),
		"signers":       len(attestor.Signers()),
		"appraisal":     cfg.Appraisal.Source,
	})

	return a, nil
}

func (a *app) newValidator(ctx context.Context) (appraisal.Validator, error) {
	cfg := a.cfg
	if cfg.Appraisal.Source != "registry" {
		return appraisal.NewReferenceTable(), nil
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = pg.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pg.Ping(pingCtx); err != nil {
		return nil, err
	}

	rdb := database.NewRedis(cfg.Database.Redis)
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(pingCtx); err != nil {
		a.log.Warn("Appraisal cache unavailable, lookups will hit the registry", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return appraisal.NewRegistryValidator(pg.DB, rdb.Client, config.GetDuration(cfg.Appraisal.CacheTTL), a.log), nil
}

// Close releases collaborators in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.zapLog.Sync()
}
