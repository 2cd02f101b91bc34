package watchregistration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"watch-registration/internal/common/camunda"
	"watch-registration/internal/common/config"
	"watch-registration/internal/common/errors"
	"watch-registration/internal/common/logger"
	"watch-registration/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/ethereum/go-ethereum/common"
)

const (
	TaskType = "watch.registration.submit"

	// PayloadVariable holds the raw registration payload, either as a JSON
	// string or as an object.
	PayloadVariable = "payload"
)

var completeRetry = &camunda.RetryConfig{
	MaxRetries: 3,
	BaseDelay:  500 * time.Millisecond,
	MaxDelay:   5 * time.Second,
}

type Handler struct {
	config     *Config
	logger     logger.Logger
	camunda    *camunda.Client
	service    *Service
	adapter    *Adapter
	errHandler *errors.ErrorHandler
	jobWorker  worker.JobWorker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	CustomConfig *Config
	Logger       logger.Logger
	Dependencies ServiceDependencies
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", config.WorkerName, err)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.WithFields(map[string]interface{}{"worker": TaskType})

	deps := opts.Dependencies
	if deps.Logger == nil {
		deps.Logger = loggerInstance
	}
	if deps.Attestor == nil || deps.Submitter == nil {
		return nil, fmt.Errorf("attestor and submitter are required")
	}

	service := NewService(deps, workerConfig)

	return &Handler{
		config:     workerConfig,
		logger:     loggerInstance,
		camunda:    opts.Camunda,
		service:    service,
		adapter:    NewAdapter(service, "zeebe", loggerInstance),
		errHandler: errors.NewErrorHandler(loggerInstance),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing watch registration job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	output, err := h.process(ctx, job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// process runs the pipeline for one job without touching the engine.
func (h *Handler) process(ctx context.Context, job entities.Job) (*Output, error) {
	raw, err := h.parseInput(job)
	if err != nil {
		return nil, h.adapter.failed(err)
	}

	ctx = WithInvocationID(ctx, fmt.Sprintf("job-%d", job.GetKey()))
	req, result, err := h.adapter.Run(ctx, raw)
	if err != nil {
		return nil, err
	}

	return &Output{
		RegistrationSummary: Summary(req, result),
		TransactionHash:     result.TransactionID.Hex(),
		RegistrationStatus:  string(result.Status),
	}, nil
}

// parseInput extracts the raw payload from the job. Without a payload
// variable the whole variable document is used.
func (h *Handler) parseInput(job entities.Job) ([]byte, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("failed to parse job variables: %v", err))
	}

	value, ok := variables[PayloadVariable]
	if !ok {
		return []byte(job.GetVariables()), nil
	}

	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case map[string]interface{}:
		return json.Marshal(v)
	case nil:
		return nil, nil
	default:
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("%s variable must be a JSON string or object, got %T", PayloadVariable, value))
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	variables := map[string]interface{}{
		"registrationSummary": output.RegistrationSummary,
		"transactionHash":     output.TransactionHash,
		"registrationStatus":  output.RegistrationStatus,
	}

	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	err = camunda.Retry(ctx, completeRetry, "complete-job", func(ctx context.Context) error {
		_, sendErr := request.Send(ctx)
		return sendErr
	})
	if err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("Successfully completed watch registration", map[string]interface{}{
		"jobKey": job.GetKey(),
		"txHash": output.TransactionHash,
	})
}

func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", nil)
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("camunda client not configured")
	}

	h.jobWorker = h.camunda.GetClient().NewJobWorker().
		JobType(TaskType).
		Handler(h.Handle).
		MaxJobsActive(h.config.MaxJobsActive).
		Timeout(h.config.Timeout).
		Name(fmt.Sprintf("%s-worker", config.WorkerName)).
		Open()

	h.logger.Info("Watch registration worker registered with Camunda", map[string]interface{}{
		"taskType":      TaskType,
		"maxJobsActive": h.config.MaxJobsActive,
		"timeout":       h.config.Timeout.String(),
	})

	return nil
}

func (h *Handler) Close() {
	if h.jobWorker != nil {
		h.logger.Info("Shutting down worker gracefully", nil)
		h.jobWorker.Close()
		h.jobWorker.AwaitClose()
		h.jobWorker = nil
	}
}

func (h *Handler) HealthCheck(ctx context.Context) error {
	if h.camunda == nil {
		return fmt.Errorf("camunda client not configured")
	}
	if err := h.camunda.HealthCheck(ctx); err != nil {
		return fmt.Errorf("camunda health check failed: %w", err)
	}
	return nil
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

// Execute runs the trigger adapter directly on a raw payload.
func (h *Handler) Execute(ctx context.Context, raw []byte) (string, error) {
	return h.adapter.Handle(ctx, raw)
}

func extractErrorCode(err error) string {
	return string(errors.Normalize(err).Code)
}

// ConfigFromApp derives the worker settings from the application config.
func ConfigFromApp(appConfig *config.Config) *Config {
	return createConfigFromAppConfig(appConfig, nil)
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}

	workerCfg := config.GetWorkerConfig(appConfig, config.WorkerName)
	cfg.Enabled = workerCfg.Enabled
	if workerCfg.MaxJobsActive > 0 {
		cfg.MaxJobsActive = workerCfg.MaxJobsActive
	}
	if workerCfg.Timeout > 0 {
		cfg.Timeout = config.GetDuration(workerCfg.Timeout)
	}

	if evm, err := appConfig.PrimaryEVM(); err == nil {
		if common.IsHexAddress(evm.ConsumerAddress) {
			cfg.Receiver = common.HexToAddress(evm.ConsumerAddress)
		}
		if limit, err := evm.ParseGasLimit(); err == nil {
			cfg.GasLimit = limit
		}
	}

	return cfg
}
