package watchregistration

import (
	"context"
	"encoding/json"

	"watch-registration/internal/appraisal"
	"watch-registration/internal/attestation"
	"watch-registration/internal/common/aws"
	"watch-registration/internal/common/logger"
	"watch-registration/internal/common/observability"
	"watch-registration/internal/ledger"
)

// Input is the inbound registration payload.
type Input struct {
	WatchBrand          string      `json:"watchBrand"`
	WatchModel          string      `json:"watchModel"`
	WatchSerial         string      `json:"watchSerial"`
	TotalFractions      json.Number `json:"totalFractions"`
	PricePerFractionWei string      `json:"pricePerFractionWei"`
	AppraisalSource     string      `json:"appraisalSource,omitempty"`
}

// Output is the set of variables a completed job carries back to the
// process instance.
type Output struct {
	RegistrationSummary string `json:"registrationSummary"`
	TransactionHash     string `json:"transactionHash"`
	RegistrationStatus  string `json:"registrationStatus"`
}

// Notifier receives the outcome of every invocation. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, outcome aws.RegistrationOutcome) error
}

type ServiceDependencies struct {
	Logger        logger.Logger
	Validator     appraisal.Validator
	Attestor      attestation.Attestor
	Submitter     ledger.Submitter
	Network       ledger.Network
	Observability *observability.Observability
	Notifier      Notifier
	Recorder      Recorder
}
