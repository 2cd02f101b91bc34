// Package e2e drives the registration flow through the HTTP trigger with the
// real codec, reference table and quorum signer. Only the ledger is stubbed.
package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watch-registration/internal/appraisal"
	"watch-registration/internal/attestation"
	"watch-registration/internal/codec"
	"watch-registration/internal/common/config"
	"watch-registration/internal/common/logger"
	"watch-registration/internal/ledger"
	"watch-registration/internal/models"
	"watch-registration/internal/trigger/httptrigger"
	watchregistration "watch-registration/internal/workers/tokenization/watch-registration"
)

var (
	receiver = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	txHash   = common.HexToHash("0x3b7d1c0e9f8a6b5c4d3e2f1a0b9c8d7e6f5a4b3c2d1e0f9a8b7c6d5e4f3a2b1c")

	signerKeys = []string{
		"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
		"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
	}
	signerAddresses = []common.Address{
		common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
	}
)

// countingValidator wraps the reference table and records every serial.
type countingValidator struct {
	table   *appraisal.ReferenceTable
	calls   atomic.Int32
	verdict atomic.Value
}

func (v *countingValidator) Validate(ctx context.Context, serial string) models.AuthenticityVerdict {
	v.calls.Add(1)
	verdict := v.table.Validate(ctx, serial)
	v.verdict.Store(verdict)
	return verdict
}

type environment struct {
	server    *httptest.Server
	validator *countingValidator
	attests   atomic.Int32
	submits   atomic.Int32
	submitted atomic.Pointer[models.RegistrationRequest]
}

// newEnvironment wires the pipeline behind the HTTP trigger. reply decides
// what the ledger answers.
func newEnvironment(t *testing.T, reply func() (*models.LedgerReply, error)) *environment {
	t.Helper()
	log := logger.NewTestLogger(t)
	env := &environment{validator: &countingValidator{table: appraisal.NewReferenceTable()}}

	signer, err := attestation.NewLocalQuorumSigner(config.AttestationConfig{
		Mode:       "local",
		SignerKeys: signerKeys,
		Quorum:     2,
	}, log)
	require.NoError(t, err)

	attestor := attestation.AttestorFunc(func(ctx context.Context, record models.EncodedRecord, opts models.ReportOptions) (*models.AttestedRecord, error) {
		env.attests.Add(1)
		return signer.Attest(ctx, record, opts)
	})

	submitter := ledger.SubmitterFunc(func(_ context.Context, rec *models.AttestedRecord, dest models.Destination, gas models.GasConfig) (*models.LedgerReply, error) {
		env.submits.Add(1)

		recovered, err := attestation.RecoverSigners(rec)
		if err != nil {
			return nil, err
		}
		if len(recovered) != len(signerAddresses) || recovered[0] != signerAddresses[0] || recovered[1] != signerAddresses[1] {
			return &models.LedgerReply{Status: models.TxStatusFatal, ErrorMessage: "unexpected signers"}, nil
		}
		if dest.Receiver != receiver || gas.GasLimit != 500000 {
			return &models.LedgerReply{Status: models.TxStatusFatal, ErrorMessage: "unexpected destination"}, nil
		}

		decoded, err := codec.DecodeRegistration(rec.Payload)
		if err != nil {
			return nil, err
		}
		env.submitted.Store(decoded)
		return reply()
	})

	network, err := ledger.GetNetwork("ethereum-testnet-sepolia", true)
	require.NoError(t, err)

	service := watchregistration.NewService(watchregistration.ServiceDependencies{
		Logger:    log,
		Validator: env.validator,
		Attestor:  attestor,
		Submitter: submitter,
		Network:   network,
	}, &watchregistration.Config{
		Enabled:       true,
		MaxJobsActive: 1,
		Timeout:       time.Minute,
		Receiver:      receiver,
		GasLimit:      500000,
	})

	env.server = httptest.NewServer(httptrigger.NewRouter(httptrigger.Options{
		Trigger: watchregistration.NewAdapter(service, "http", log),
		Logger:  log,
	}))
	t.Cleanup(env.server.Close)
	return env
}

func (env *environment) register(t *testing.T, body string) (int, string) {
	t.Helper()
	resp, err := env.server.Client().Post(env.server.URL+httptrigger.RegistrationPath, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func success() (*models.LedgerReply, error) {
	return &models.LedgerReply{Status: models.TxStatusSuccess, TxHash: txHash.Bytes()}, nil
}

func payload(serial string) string {
	return `{"watchBrand":"Rolex","watchModel":"Submariner","watchSerial":"` + serial + `","totalFractions":1000,"pricePerFractionWei":"1000000000000000"}`
}

func TestScenarioA_ReferenceWatchIsTokenized(t *testing.T) {
	env := newEnvironment(t, success)

	status, body := env.register(t, payload("RLX-116500-ABC123"))

	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Rolex")
	assert.Contains(t, body, "Submariner")
	assert.Contains(t, body, "1000 fractions")
	assert.Contains(t, body, txHash.Hex())

	verdict := env.validator.verdict.Load().(models.AuthenticityVerdict)
	assert.True(t, verdict.Authenticated)
	assert.Equal(t, "WatchCert Labs", verdict.CertifyingAuthority)

	submitted := env.submitted.Load()
	require.NotNil(t, submitted)
	assert.Equal(t, "RLX-116500-ABC123", submitted.Serial)
	assert.Equal(t, int64(1000), submitted.TotalFractions.Int64())
	assert.Equal(t, "1000000000000000", submitted.PricePerFraction.String())
}

func TestScenarioB_UnknownSerialIsAutoApproved(t *testing.T) {
	env := newEnvironment(t, success)

	status, body := env.register(t, payload("UNKNOWN-999"))

	require.Equal(t, http.StatusOK, status, body)
	verdict := env.validator.verdict.Load().(models.AuthenticityVerdict)
	assert.True(t, verdict.Authenticated)
	assert.Equal(t, float64(appraisal.DefaultEstimatedValueUSD), verdict.EstimatedValueUSD)
	assert.False(t, verdict.HasAuthority())
	assert.Equal(t, int32(1), env.submits.Load())
}

func TestScenarioC_EmptyPayloadIsRejected(t *testing.T) {
	env := newEnvironment(t, success)

	status, body := env.register(t, "")

	assert.Equal(t, http.StatusBadRequest, status)

	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &apiErr))
	assert.Equal(t, "INVALID_REQUEST", apiErr.Code)
	assert.True(t, strings.HasPrefix(apiErr.Message, "Failed to process watch registration: "))

	assert.Equal(t, int32(0), env.validator.calls.Load())
	assert.Equal(t, int32(0), env.attests.Load())
	assert.Equal(t, int32(0), env.submits.Load())
}

func TestScenarioD_RevertedSubmissionSurfacesLedgerMessage(t *testing.T) {
	env := newEnvironment(t, func() (*models.LedgerReply, error) {
		return &models.LedgerReply{Status: models.TxStatusReverted, ErrorMessage: "gas exceeded"}, nil
	})

	status, body := env.register(t, payload("RLX-116500-ABC123"))

	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body, "gas exceeded")
	assert.Contains(t, body, "SUBMISSION_FAILED")
	assert.Equal(t, int32(1), env.attests.Load())
}

func TestConcurrentInvocationsAreIndependent(t *testing.T) {
	env := newEnvironment(t, success)

	serials := []string{"RLX-116500-ABC123", "AP-15500ST-XYZ789", "PP-5711A-DEF456", "UNKNOWN-1", "UNKNOWN-2"}
	statuses := make(chan int, len(serials))
	for _, serial := range serials {
		go func(serial string) {
			resp, err := env.server.Client().Post(env.server.URL+httptrigger.RegistrationPath, "application/json", strings.NewReader(payload(serial)))
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}(serial)
	}

	for range serials {
		assert.Equal(t, http.StatusOK, <-statuses)
	}
	assert.Equal(t, int32(len(serials)), env.submits.Load())
}
