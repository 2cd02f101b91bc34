// Package appraisal decides whether a watch serial is authentic before it is
// tokenized.
package appraisal

import (
	"context"
	"sort"

	"watch-registration/internal/models"
)

// Validator checks a serial. Implementations never fail: lookup problems are
// expressed through the verdict.
type Validator interface {
	Validate(ctx context.Context, serial string) models.AuthenticityVerdict
}

// DefaultEstimatedValueUSD is the appraisal given to serials the reference
// table does not know.
const DefaultEstimatedValueUSD = 10000

var referenceVerdicts = map[string]models.AuthenticityVerdict{
	"RLX-116500-ABC123": {Authenticated: true, EstimatedValueUSD: 35000, CertifyingAuthority: "WatchCert Labs"},
	"AP-15500ST-XYZ789": {Authenticated: true, EstimatedValueUSD: 45000, CertifyingAuthority: "Horology Auth Inc"},
	"PP-5711A-DEF456":   {Authenticated: true, EstimatedValueUSD: 120000, CertifyingAuthority: "WatchCert Labs"},
}

// ReferenceTable is the stand-in oracle backed by a fixed table of certified
// watches. Unknown serials are approved at DefaultEstimatedValueUSD with no
// certifying authority.
type ReferenceTable struct{}

func NewReferenceTable() *ReferenceTable {
	return &ReferenceTable{}
}

func (ReferenceTable) Validate(_ context.Context, serial string) models.AuthenticityVerdict {
	if verdict, ok := referenceVerdicts[serial]; ok {
		return verdict
	}
	return models.AuthenticityVerdict{
		Authenticated:     true,
		EstimatedValueUSD: DefaultEstimatedValueUSD,
	}
}

// Lookup returns the stored verdict for serial, if any.
func (ReferenceTable) Lookup(serial string) (models.AuthenticityVerdict, bool) {
	verdict, ok := referenceVerdicts[serial]
	return verdict, ok
}

// KnownSerials lists the reference table keys in sorted order.
func KnownSerials() []string {
	serials := make([]string, 0, len(referenceVerdicts))
	for serial := range referenceVerdicts {
		serials = append(serials, serial)
	}
	sort.Strings(serials)
	return serials
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, serial string) models.AuthenticityVerdict

func (f ValidatorFunc) Validate(ctx context.Context, serial string) models.AuthenticityVerdict {
	return f(ctx, serial)
}
