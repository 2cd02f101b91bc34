// Package ledger delivers attested registration reports to an EVM receiver
// contract and reports the transaction outcome.
package ledger

import (
	"context"

	"watch-registration/internal/models"
)

// Submitter writes an attested record to the ledger. A returned error means
// the submission could not be attempted or its outcome is unknown; ledger
// level failures are reported through LedgerReply.Status.
type Submitter interface {
	Submit(ctx context.Context, rec *models.AttestedRecord, dest models.Destination, gas models.GasConfig) (*models.LedgerReply, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, rec *models.AttestedRecord, dest models.Destination, gas models.GasConfig) (*models.LedgerReply, error)

func (f SubmitterFunc) Submit(ctx context.Context, rec *models.AttestedRecord, dest models.Destination, gas models.GasConfig) (*models.LedgerReply, error) {
	return f(ctx, rec, dest, gas)
}
