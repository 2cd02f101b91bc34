package httptrigger

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watch-registration/internal/common/errors"
	"watch-registration/internal/common/logger"
	"watch-registration/internal/models"
	watchregistration "watch-registration/internal/workers/tokenization/watch-registration"
)

const validPayload = `{"watchBrand":"Rolex","watchModel":"Submariner","watchSerial":"RLX-116500-ABC123","totalFractions":1000,"pricePerFractionWei":"1000000000000000"}`

var txHash = common.HexToHash("0x5c1e4d2f3a6b7c8d9e0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f")

type triggerFunc func(ctx context.Context, raw []byte) (string, error)

func (f triggerFunc) Handle(ctx context.Context, raw []byte) (string, error) {
	return f(ctx, raw)
}

// registrarFunc lets a real Adapter drive a canned pipeline outcome.
type registrarFunc func(ctx context.Context, req *models.RegistrationRequest) (*models.SubmissionResult, error)

func (f registrarFunc) Register(ctx context.Context, req *models.RegistrationRequest) (*models.SubmissionResult, error) {
	return f(ctx, req)
}

func newServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logger.NewTestLogger(t)
	}
	srv := httptest.NewServer(NewRouter(opts))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+RegistrationPath, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestRegister_Success(t *testing.T) {
	var seenInvocation string
	adapter := watchregistration.NewAdapter(registrarFunc(func(ctx context.Context, _ *models.RegistrationRequest) (*models.SubmissionResult, error) {
		seenInvocation = watchregistration.InvocationID(ctx)
		return &models.SubmissionResult{Status: models.TxStatusSuccess, TransactionID: txHash}, nil
	}), "http", logger.NewTestLogger(t))

	srv := newServer(t, Options{Trigger: adapter})
	resp := post(t, srv, validPayload, http.Header{RequestIDHeader: []string{"req-42"}})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "req-42", resp.Header.Get(RequestIDHeader))
	assert.Equal(t, "req-42", seenInvocation)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Watch registered and tokenized: Rolex Submariner (1000 fractions) - TX: "+txHash.Hex(), string(body))
}

func TestRegister_AssignsRequestID(t *testing.T) {
	srv := newServer(t, Options{Trigger: triggerFunc(func(ctx context.Context, _ []byte) (string, error) {
		return watchregistration.InvocationID(ctx), nil
	})})

	resp := post(t, srv, validPayload, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	requestID := resp.Header.Get(RequestIDHeader)
	assert.Len(t, requestID, 36)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, requestID, string(body))
}

func TestRegister_Failures(t *testing.T) {
	tests := []struct {
		name       string
		cause      error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid request",
			cause:      errors.NewInvalidRequestError("HTTP trigger payload is required"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "appraisal rejected",
			cause:      errors.NewAppraisalRejectedError("FAKE-0001"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "APPRAISAL_REJECTED",
		},
		{
			name:       "encoding error",
			cause:      errors.NewEncodingError(stderrors.New("value out of range")),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "ENCODING_ERROR",
		},
		{
			name:       "attestation error",
			cause:      errors.NewAttestationError(stderrors.New("quorum unavailable")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "ATTESTATION_ERROR",
		},
		{
			name:       "submission failed",
			cause:      errors.NewSubmissionFailedError("gas exceeded"),
			wantStatus: http.StatusBadGateway,
			wantCode:   "SUBMISSION_FAILED",
		},
		{
			name:       "unclassified",
			cause:      stderrors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := &watchregistration.ProcessingError{Cause: tt.cause}
			srv := newServer(t, Options{Trigger: triggerFunc(func(context.Context, []byte) (string, error) {
				return "", wrapped
			})})

			resp := post(t, srv, validPayload, http.Header{RequestIDHeader: []string{"req-1"}})
			body := decodeError(t, resp)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "error", body.Status)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, wrapped.Error(), body.Message)
			assert.True(t, strings.HasPrefix(body.Message, "Failed to process watch registration: "))
			assert.Equal(t, "req-1", body.RequestID)
		})
	}
}

func TestRegister_EmptyBodyThroughAdapter(t *testing.T) {
	called := false
	adapter := watchregistration.NewAdapter(registrarFunc(func(context.Context, *models.RegistrationRequest) (*models.SubmissionResult, error) {
		called = true
		return nil, nil
	}), "http", logger.NewTestLogger(t))

	srv := newServer(t, Options{Trigger: adapter})
	resp := post(t, srv, "", nil)
	body := decodeError(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", body.Code)
	assert.Contains(t, body.Message, "HTTP trigger payload is required")
	assert.False(t, called, "pipeline must not run for an empty payload")
}

func TestRegister_BodyTooLarge(t *testing.T) {
	called := false
	srv := newServer(t, Options{
		MaxBodyBytes: 16,
		Trigger: triggerFunc(func(context.Context, []byte) (string, error) {
			called = true
			return "", nil
		}),
	})

	resp := post(t, srv, validPayload, nil)
	body := decodeError(t, resp)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", body.Code)
	assert.False(t, called)
}

func TestRegister_PanicIsRecovered(t *testing.T) {
	srv := newServer(t, Options{Trigger: triggerFunc(func(context.Context, []byte) (string, error) {
		panic("collaborator exploded")
	})})

	resp := post(t, srv, validPayload, nil)
	body := decodeError(t, resp)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
}

func TestProbes(t *testing.T) {
	ready := stderrors.New("zeebe unreachable")
	srv := newServer(t, Options{
		Trigger: triggerFunc(func(context.Context, []byte) (string, error) { return "", nil }),
		Ready:   func(context.Context) error { return ready },
	})

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/readyz")
	require.NoError(t, err)
	body := decodeError(t, resp)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "zeebe unreachable", body.Message)

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegister_MethodNotAllowed(t *testing.T) {
	srv := newServer(t, Options{Trigger: triggerFunc(func(context.Context, []byte) (string, error) { return "", nil })})

	resp, err := srv.Client().Get(srv.URL + RegistrationPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRouter_WithoutTrigger(t *testing.T) {
	srv := newServer(t, Options{})

	resp := post(t, srv, validPayload, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	health, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
