package watchregistration

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"watch-registration/internal/common/errors"
	"watch-registration/internal/common/logger"
	"watch-registration/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRegistrar struct {
	calls  int
	got    *models.RegistrationRequest
	result *models.SubmissionResult
	err    error
}

func (s *stubRegistrar) Register(_ context.Context, req *models.RegistrationRequest) (*models.SubmissionResult, error) {
	s.calls++
	s.got = req
	return s.result, s.err
}

const scenarioA = `{"watchBrand":"Rolex","watchModel":"Submariner","watchSerial":"RLX-116500-ABC123","totalFractions":1000,"pricePerFractionWei":"1000000000000000"}`

func requireInvalidRequest(t *testing.T, err error) *errors.StandardError {
	t.Helper()
	require.Error(t, err)

	var procErr *ProcessingError
	require.True(t, stderrors.As(err, &procErr))
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to process watch registration: "))

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeInvalidRequest, stdErr.Code)
	return stdErr
}

func TestAdapter_Handle_Success(t *testing.T) {
	registrar := &stubRegistrar{result: &models.SubmissionResult{Status: models.TxStatusSuccess, TransactionID: testTxHash}}
	adapter := NewAdapter(registrar, "http", logger.NewTestLogger(t))

	summary, err := adapter.Handle(context.Background(), []byte(scenarioA))
	require.NoError(t, err)

	assert.Equal(t, "Watch registered and tokenized: Rolex Submariner (1000 fractions) - TX: "+testTxHash.Hex(), summary)
	assert.Equal(t, 1, registrar.calls)

	req := registrar.got
	assert.Equal(t, "Rolex", req.Brand)
	assert.Equal(t, "Submariner", req.Model)
	assert.Equal(t, "RLX-116500-ABC123", req.Serial)
	assert.Equal(t, "1000", req.TotalFractions.String())
	assert.Equal(t, "1000000000000000", req.PricePerFraction.String())
	assert.Empty(t, req.AppraisalSource)
}

func TestAdapter_Handle_EmptyPayload(t *testing.T) {
	for _, payload := range [][]byte{nil, {}, []byte("  \n\t")} {
		registrar := &stubRegistrar{}
		adapter := NewAdapter(registrar, "http", logger.NewTestLogger(t))

		summary, err := adapter.Handle(context.Background(), payload)

		assert.Empty(t, summary)
		stdErr := requireInvalidRequest(t, err)
		assert.Equal(t, "HTTP trigger payload is required", stdErr.Details)
		assert.Equal(t, 0, registrar.calls)
	}
}

func TestAdapter_Handle_MalformedJSONCarriesParserDiagnostic(t *testing.T) {
	registrar := &stubRegistrar{}
	adapter := NewAdapter(registrar, "http", logger.NewTestLogger(t))

	_, err := adapter.Handle(context.Background(), []byte(`{"watchBrand":`))

	stdErr := requireInvalidRequest(t, err)
	assert.Equal(t, "unexpected end of JSON input", stdErr.Details)
	assert.Equal(t, 0, registrar.calls)
}

func TestAdapter_Handle_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{
			name:    "zero fractions",
			payload: `{"watchBrand":"Rolex","watchModel":"Submariner","watchSerial":"S1","totalFractions":0,"pricePerFractionWei":"1"}`,
			field:   "totalFractions",
		},
		{
			name:    "negative fractions",
			payload: `{"watchBrand":"Rolex","watchModel":"Submariner","watchSerial":"S1","totalFractions":-3,"pricePerFractionWei":"1"}`,
			field:   "totalFractions",
		},
		{
			name:    "fractional fractions",
			payload: `{"watchBrand":"Rolex","watchModel":"Submariner","watchSerial":"S1","totalFractions":1.5,"pricePerFractionWei":"1"}`,
			field:   "totalFractions",
		},
		{
			name:    "fractions as string",
			payload: `{"watchBrand":"Rolex","watchModel":"Submariner","watchSerial":"S1","totalFractions":"1000","pricePerFractionWei":"1"}`,
			field:   "totalFractions",
		},
		{
			name:    "price as number",
			payload: `{"watchBrand":"Rolex","watchModel":"Submariner","watchSerial":"S1","totalFractions":10,"pricePerFractionWei":1000}`,
			field:   "pricePerFractionWei",
		},
		{
			name:    "non numeric price",
			payload: `{"watchBrand":"Rolex","watchModel":"Submariner","watchSerial":"S1","totalFractions":10,"pricePerFractionWei":"12abc"}`,
			field:   "pricePerFractionWei",
		},
		{
			name:    "negative price",
			payload: `{"watchBrand":"Rolex","watchModel":"Submariner","watchSerial":"S1","totalFractions":10,"pricePerFractionWei":"-1"}`,
			field:   "pricePerFractionWei",
		},
		{
			name:    "missing serial",
			payload: `{"watchBrand":"Rolex","watchModel":"Submariner","totalFractions":10,"pricePerFractionWei":"1"}`,
			field:   "watchSerial",
		},
		{
			name:    "empty brand",
			payload: `{"watchBrand":"","watchModel":"Submariner","watchSerial":"S1","totalFractions":10,"pricePerFractionWei":"1"}`,
			field:   "watchBrand",
		},
		{
			name:    "not an object",
			payload: `["Rolex"]`,
			field:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registrar := &stubRegistrar{}
			adapter := NewAdapter(registrar, "http", logger.NewTestLogger(t))

			_, err := adapter.Handle(context.Background(), []byte(tt.payload))

			stdErr := requireInvalidRequest(t, err)
			assert.Contains(t, stdErr.Details, tt.field)
			assert.Equal(t, 0, registrar.calls)
		})
	}
}

func TestAdapter_Handle_AcceptsLongTextFields(t *testing.T) {
	registrar := &stubRegistrar{result: &models.SubmissionResult{Status: models.TxStatusSuccess, TransactionID: testTxHash}}
	adapter := NewAdapter(registrar, "http", logger.NewTestLogger(t))

	brand := strings.Repeat("B", 300)
	serial := strings.Repeat("7", 200)
	source := strings.Repeat("s", 300)
	payload := `{"watchBrand":"` + brand + `","watchModel":"Submariner","watchSerial":"` + serial +
		`","totalFractions":10,"pricePerFractionWei":"1","appraisalSource":"` + source + `"}`

	_, err := adapter.Handle(context.Background(), []byte(payload))
	require.NoError(t, err)

	require.Equal(t, 1, registrar.calls)
	assert.Equal(t, brand, registrar.got.Brand)
	assert.Equal(t, serial, registrar.got.Serial)
	assert.Equal(t, source, registrar.got.AppraisalSource)
}

func TestParseRequest_AcceptsExponentIntegers(t *testing.T) {
	req, err := ParseRequest([]byte(`{"watchBrand":"Omega","watchModel":"Speedmaster","watchSerial":"OM-1","totalFractions":1e3,"pricePerFractionWei":"0","appraisalSource":"Christie's"}`))
	require.NoError(t, err)

	assert.Equal(t, "1000", req.TotalFractions.String())
	assert.Equal(t, "0", req.PricePerFraction.String())
	assert.Equal(t, "Christie's", req.AppraisalSource)
}

func TestParseRequest_IgnoresUnknownFields(t *testing.T) {
	req, err := ParseRequest([]byte(`{"watchBrand":"Rolex","watchModel":"Daytona","watchSerial":"S2","totalFractions":5,"pricePerFractionWei":"7","note":"vintage"}`))
	require.NoError(t, err)
	assert.Equal(t, "Daytona", req.Model)
}

func TestParseRequest_InvalidUTF8(t *testing.T) {
	_, err := ParseRequest([]byte{'{', 0xff, 0xfe, '}'})

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeInvalidRequest, stdErr.Code)
}

func TestAdapter_Handle_PipelineFailureIsComposed(t *testing.T) {
	cause := &StageError{
		Stage: StageSubmitting,
		Err:   errors.NewSubmissionFailedError("gas exceeded"),
	}
	registrar := &stubRegistrar{err: cause}
	adapter := NewAdapter(registrar, "http", logger.NewTestLogger(t))

	summary, err := adapter.Handle(context.Background(), []byte(scenarioA))

	assert.Empty(t, summary)
	require.Error(t, err)
	assert.Equal(t, "Failed to process watch registration: [SUBMISSION_FAILED] Failed to write report: gas exceeded", err.Error())

	var stageErr *StageError
	require.True(t, stderrors.As(err, &stageErr))
	assert.Equal(t, StageSubmitting, stageErr.Stage)
}
