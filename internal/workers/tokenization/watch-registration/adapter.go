package watchregistration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"watch-registration/internal/common/errors"
	"watch-registration/internal/common/logger"
	"watch-registration/internal/common/metrics"
	"watch-registration/internal/common/validation"
	"watch-registration/internal/models"
)

// Registrar runs the registration pipeline.
type Registrar interface {
	Register(ctx context.Context, req *models.RegistrationRequest) (*models.SubmissionResult, error)
}

// ProcessingError is the single failure value returned to a trigger.
type ProcessingError struct {
	Cause error
}

func (e *ProcessingError) Error() string {
	return "Failed to process watch registration: " + e.Cause.Error()
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// Adapter turns raw trigger payloads into pipeline invocations.
type Adapter struct {
	registrar Registrar
	trigger   string
	logger    logger.Logger
}

// NewAdapter binds registrar to a trigger name used in logs and metrics.
func NewAdapter(registrar Registrar, trigger string, log logger.Logger) *Adapter {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Adapter{
		registrar: registrar,
		trigger:   trigger,
		logger:    log.WithFields(map[string]interface{}{"trigger": trigger}),
	}
}

// Handle decodes raw and registers the watch. It returns a human readable
// summary, or a *ProcessingError.
func (a *Adapter) Handle(ctx context.Context, raw []byte) (string, error) {
	req, result, err := a.Run(ctx, raw)
	if err != nil {
		return "", err
	}
	return Summary(req, result), nil
}

// Run is Handle without the summary rendering, for triggers that return
// structured results.
func (a *Adapter) Run(ctx context.Context, raw []byte) (*models.RegistrationRequest, *models.SubmissionResult, error) {
	start := time.Now()
	a.logger.Info("Watch registration triggered", map[string]interface{}{
		"payloadBytes": len(raw),
	})

	req, err := ParseRequest(raw)
	if err != nil {
		return nil, nil, a.failed(err)
	}

	result, err := a.registrar.Register(ctx, req)
	if err != nil {
		return nil, nil, a.failed(err)
	}

	metrics.RegistrationsTotal.WithLabelValues(a.trigger, "submitted").Inc()
	a.logger.Info("Watch registration completed", map[string]interface{}{
		"serial":   req.Serial,
		"txHash":   result.TransactionID.Hex(),
		"duration": time.Since(start).String(),
	})
	return req, result, nil
}

func (a *Adapter) failed(cause error) error {
	stdErr := errors.Normalize(cause)
	metrics.RegistrationsTotal.WithLabelValues(a.trigger, "failed").Inc()
	if stdErr.Code == errors.ErrCodeInvalidRequest {
		// the pipeline logs its own failures; rejected payloads never reach it
		a.logger.Warn("Watch registration payload rejected", map[string]interface{}{
			"details": stdErr.Details,
		})
	}
	return &ProcessingError{Cause: cause}
}

// Summary renders the success text returned to the caller.
func Summary(req *models.RegistrationRequest, result *models.SubmissionResult) string {
	return fmt.Sprintf("Watch registered and tokenized: %s %s (%s fractions) - TX: %s",
		req.Brand, req.Model, req.TotalFractions.String(), result.TransactionID.Hex())
}

// ParseRequest validates raw against the input schema and builds the typed
// request. Every failure is an INVALID_REQUEST StandardError.
func ParseRequest(raw []byte) (*models.RegistrationRequest, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.NewInvalidRequestError("HTTP trigger payload is required")
	}
	if !utf8.Valid(raw) {
		return nil, errors.NewInvalidRequestError("payload is not valid UTF-8")
	}

	result, err := validation.ValidateDocument(raw, GetInputSchema())
	if err != nil {
		return nil, errors.NewInvalidRequestError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidRequestError(strings.Join(result.GetErrorMessages(), "; "))
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var input Input
	if err := dec.Decode(&input); err != nil {
		return nil, errors.NewInvalidRequestError(err.Error())
	}

	return input.toRequest()
}

func (in *Input) toRequest() (*models.RegistrationRequest, error) {
	fractions, ok := new(big.Rat).SetString(in.TotalFractions.String())
	if !ok || !fractions.IsInt() {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("totalFractions %q is not an integer", in.TotalFractions))
	}
	price, ok := new(big.Int).SetString(in.PricePerFractionWei, 10)
	if !ok {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("pricePerFractionWei %q is not a decimal integer", in.PricePerFractionWei))
	}

	return &models.RegistrationRequest{
		Brand:            in.WatchBrand,
		Model:            in.WatchModel,
		Serial:           in.WatchSerial,
		TotalFractions:   new(big.Int).Set(fractions.Num()),
		PricePerFraction: price,
		AppraisalSource:  in.AppraisalSource,
	}, nil
}
