package appraisal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"watch-registration/internal/models"
)

func TestReferenceTable_KnownSerials(t *testing.T) {
	tests := []struct {
		serial   string
		expected models.AuthenticityVerdict
	}{
		{
			serial:   "RLX-116500-ABC123",
			expected: models.AuthenticityVerdict{Authenticated: true, EstimatedValueUSD: 35000, CertifyingAuthority: "WatchCert Labs"},
		},
		{
			serial:   "AP-15500ST-XYZ789",
			expected: models.AuthenticityVerdict{Authenticated: true, EstimatedValueUSD: 45000, CertifyingAuthority: "Horology Auth Inc"},
		},
		{
			serial:   "PP-5711A-DEF456",
			expected: models.AuthenticityVerdict{Authenticated: true, EstimatedValueUSD: 120000, CertifyingAuthority: "WatchCert Labs"},
		},
	}

	table := NewReferenceTable()
	for _, tt := range tests {
		t.Run(tt.serial, func(t *testing.T) {
			assert.Equal(t, tt.expected, table.Validate(context.Background(), tt.serial))
		})
	}
}

func TestReferenceTable_UnknownSerialIsApproved(t *testing.T) {
	table := NewReferenceTable()

	for _, serial := range []string{"UNKNOWN-999", "", "rlx-116500-abc123"} {
		verdict := table.Validate(context.Background(), serial)

		assert.True(t, verdict.Authenticated, serial)
		assert.Equal(t, float64(DefaultEstimatedValueUSD), verdict.EstimatedValueUSD)
		assert.False(t, verdict.HasAuthority())
	}
}

func TestReferenceTable_VerdictsAreCopies(t *testing.T) {
	table := NewReferenceTable()

	verdict := table.Validate(context.Background(), "RLX-116500-ABC123")
	verdict.Authenticated = false
	verdict.CertifyingAuthority = "tampered"

	again, ok := table.Lookup("RLX-116500-ABC123")
	assert.True(t, ok)
	assert.True(t, again.Authenticated)
	assert.Equal(t, "WatchCert Labs", again.CertifyingAuthority)
}

func TestKnownSerials(t *testing.T) {
	assert.Equal(t, []string{"AP-15500ST-XYZ789", "PP-5711A-DEF456", "RLX-116500-ABC123"}, KnownSerials())
}

func TestValidatorFunc(t *testing.T) {
	var v Validator = ValidatorFunc(func(_ context.Context, serial string) models.AuthenticityVerdict {
		return models.AuthenticityVerdict{Authenticated: serial == "ok"}
	})

	assert.True(t, v.Validate(context.Background(), "ok").Authenticated)
	assert.False(t, v.Validate(context.Background(), "nope").Authenticated)
}
