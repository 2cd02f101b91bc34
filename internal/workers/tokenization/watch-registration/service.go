// Package watchregistration registers luxury watches for fractionalized
// tokenization: it checks authenticity, encodes the on-chain record, obtains
// a quorum attestation and writes the report to the consumer contract.
package watchregistration

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"watch-registration/internal/appraisal"
	"watch-registration/internal/attestation"
	"watch-registration/internal/codec"
	"watch-registration/internal/common/aws"
	"watch-registration/internal/common/errors"
	"watch-registration/internal/common/logger"
	"watch-registration/internal/common/metrics"
	"watch-registration/internal/common/observability"
	"watch-registration/internal/ledger"
	"watch-registration/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const notifyTimeout = 5 * time.Second

type Service struct {
	config    *Config
	logger    logger.Logger
	validator appraisal.Validator
	attestor  attestation.Attestor
	submitter ledger.Submitter
	network   ledger.Network
	obs       *observability.Observability
	notifier  Notifier
	recorder  Recorder
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	validator := deps.Validator
	if validator == nil {
		validator = appraisal.NewReferenceTable()
	}

	return &Service{
		config:    config,
		logger:    log,
		validator: validator,
		attestor:  deps.Attestor,
		submitter: deps.Submitter,
		network:   deps.Network,
		obs:       deps.Observability,
		notifier:  deps.Notifier,
		recorder:  deps.Recorder,
	}
}

// Register runs one registration through the state machine. On failure the
// returned error is a *StageError naming the stage that failed.
func (s *Service) Register(ctx context.Context, req *models.RegistrationRequest) (*models.SubmissionResult, error) {
	if req == nil {
		req = &models.RegistrationRequest{}
	}

	id := InvocationID(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = WithInvocationID(ctx, id)
	}

	run := &invocation{
		service: s,
		req:     req,
		stage:   StageReceived,
		started: time.Now(),
		logger: s.logger.WithFields(map[string]interface{}{
			"invocationId": id,
			"serial":       req.Serial,
		}),
	}

	run.logger.Info("Registration request received", map[string]interface{}{
		"brand":          req.Brand,
		"model":          req.Model,
		"totalFractions": req.TotalFractions.String(),
	})

	if err := req.Validate(); err != nil {
		return nil, run.fail(ctx, errors.NewInvalidRequestError(err.Error()))
	}

	var (
		verdict  models.AuthenticityVerdict
		record   models.EncodedRecord
		attested *models.AttestedRecord
		reply    *models.LedgerReply
	)

	err := run.step(ctx, StageValidating, StageValidated, func(ctx context.Context) *errors.StandardError {
		verdict = s.validator.Validate(ctx, req.Serial)
		run.logger.Info("Authenticity check completed", map[string]interface{}{
			"authenticated":       verdict.Authenticated,
			"estimatedValueUsd":   verdict.EstimatedValueUSD,
			"certifyingAuthority": verdict.CertifyingAuthority,
		})
		if !verdict.Authenticated {
			return errors.NewAppraisalRejectedError(req.Serial)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = run.step(ctx, StageEncoding, StageEncoded, func(context.Context) *errors.StandardError {
		var encErr error
		record, encErr = codec.EncodeRegistration(req)
		if encErr != nil {
			return errors.NewEncodingError(encErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = run.step(ctx, StageAttesting, StageAttested, func(ctx context.Context) *errors.StandardError {
		var attErr error
		attested, attErr = s.attestor.Attest(ctx, record, models.DefaultReportOptions)
		if attErr != nil {
			return errors.NewAttestationError(attErr)
		}
		if attested == nil {
			return errors.NewAttestationError(stderrors.New("attestor returned no report"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dest := models.Destination{Receiver: s.config.Receiver}
	gas := models.GasConfig{GasLimit: s.config.GasLimit}
	run.logger.Info("Submitting report", map[string]interface{}{
		"receiver": dest.Receiver.Hex(),
		"gasLimit": gas.GasLimit,
		"chain":    s.network.Name,
	})

	txID := common.Hash{}
	err = run.step(ctx, StageSubmitting, StageSubmitted, func(ctx context.Context) *errors.StandardError {
		var subErr error
		reply, subErr = s.submitter.Submit(ctx, attested, dest, gas)
		if subErr != nil {
			return errors.NewSubmissionFailedError(subErr.Error())
		}
		if reply == nil {
			return errors.NewSubmissionFailedError("ledger returned no reply")
		}
		if reply.Status != models.TxStatusSuccess {
			detail := reply.ErrorMessage
			if detail == "" {
				detail = string(reply.Status)
			}
			return errors.NewSubmissionFailedError(detail).WithMetadata("txStatus", string(reply.Status))
		}
		switch len(reply.TxHash) {
		case 0:
			run.logger.Warn("Ledger reported success without a transaction hash", nil)
		case common.HashLength:
			txID = common.BytesToHash(reply.TxHash)
		default:
			return errors.NewSubmissionFailedError(fmt.Sprintf("transaction hash has %d bytes, expected %d", len(reply.TxHash), common.HashLength))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"txHash":   txID.Hex(),
		"duration": time.Since(run.started).String(),
	}
	if url := s.network.TxURL(txID.Hex()); url != "" {
		fields["explorer"] = url
	}
	run.logger.Info("Watch registration submitted", fields)

	s.obs.RecordJobProcessed(ctx, "submitted")
	s.obs.RecordJobDuration(ctx, time.Since(run.started), "submitted")
	run.notify(ctx, "submitted", "", txID.Hex())

	return &models.SubmissionResult{
		Status:        models.TxStatusSuccess,
		TransactionID: txID,
	}, nil
}

// invocation carries the per-call state machine.
type invocation struct {
	service *Service
	req     *models.RegistrationRequest
	stage   Stage
	started time.Time
	logger  logger.Logger
}

func (r *invocation) advance(ctx context.Context, to Stage) {
	from := r.stage
	r.stage = to
	if r.service.recorder != nil {
		r.service.recorder.Transition(ctx, from, to)
	}
}

// step enters active, runs fn and moves to done, or fails in active.
func (r *invocation) step(ctx context.Context, active, done Stage, fn func(context.Context) *errors.StandardError) error {
	r.advance(ctx, active)

	spanCtx, span := r.service.obs.StartSpan(ctx, "watch_registration."+active.String(),
		attribute.String("watch.serial", r.req.Serial),
	)
	start := time.Now()
	stdErr := fn(spanCtx)
	metrics.StageDuration.WithLabelValues(active.String()).Observe(time.Since(start).Seconds())

	if stdErr != nil {
		span.SetStatus(codes.Error, string(stdErr.Code))
		span.End()
		return r.fail(ctx, stdErr)
	}
	span.End()

	r.advance(ctx, done)
	return nil
}

func (r *invocation) fail(ctx context.Context, stdErr *errors.StandardError) error {
	failed := r.stage
	stdErr.WithMetadata("stage", failed.String())

	metrics.StageFailures.WithLabelValues(failed.String(), string(stdErr.Code)).Inc()
	r.logger.Error("Watch registration failed", map[string]interface{}{
		"stage":     failed.String(),
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
	})

	r.advance(ctx, StageFailed)

	obs := r.service.obs
	obs.RecordJobProcessed(ctx, "failed")
	obs.RecordJobDuration(ctx, time.Since(r.started), "failed")
	r.notify(ctx, "failed", string(stdErr.Code), "")

	return &StageError{Stage: failed, Err: stdErr}
}

func (r *invocation) notify(ctx context.Context, outcome, code, txHash string) {
	if r.service.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	err := r.service.notifier.Notify(ctx, aws.RegistrationOutcome{
		InvocationID:    InvocationID(ctx),
		Serial:          r.req.Serial,
		Brand:           r.req.Brand,
		Model:           r.req.Model,
		Outcome:         outcome,
		ErrorCode:       code,
		TransactionHash: txHash,
		ChainSelector:   r.service.network.Name,
		Timestamp:       time.Now().UTC(),
	})
	if err != nil {
		r.logger.Warn("Outcome notification failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
