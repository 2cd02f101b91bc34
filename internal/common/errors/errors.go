// Package errors provides standardized error handling for the registration
// workflow and its BPMN/HTTP bindings.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Registration workflow taxonomy. Every code is terminal for the invocation.
const (
	ErrCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrCodeAppraisalRejected ErrorCode = "APPRAISAL_REJECTED"
	ErrCodeEncodingError     ErrorCode = "ENCODING_ERROR"
	ErrCodeAttestationError  ErrorCode = "ATTESTATION_ERROR"
	ErrCodeSubmissionFailed  ErrorCode = "SUBMISSION_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
}

// WithMetadata returns the error with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewInvalidRequestError rejects a malformed, empty or schema-violating payload.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid registration request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAppraisalRejectedError reports a negative authenticity verdict.
func NewAppraisalRejectedError(serial string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAppraisalRejected,
		Message:   "Watch failed authenticity check",
		Details:   fmt.Sprintf("serial: %s", serial),
		Retryable: false,
		Metadata:  map[string]interface{}{"serial": serial},
		Timestamp: time.Now().UTC(),
	}
}

// NewEncodingError reports a record that cannot be ABI encoded.
func NewEncodingError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEncodingError,
		Message:   "Failed to encode registration record",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAttestationError carries the attestation collaborator's diagnostic.
func NewAttestationError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAttestationError,
		Message:   "Failed to obtain report attestation",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionFailedError is used for non-success ledger statuses and
// transport failures. details is the collaborator message, or the status text
// when the collaborator supplied none.
func NewSubmissionFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionFailed,
		Message:   "Failed to write report",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the BPMN error codes caught by
// boundary events in the registration process model.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidRequest:    "WATCH_INVALID_REQUEST",
	ErrCodeAppraisalRejected: "WATCH_APPRAISAL_REJECTED",
	ErrCodeEncodingError:     "WATCH_ENCODING_ERROR",
	ErrCodeAttestationError:  "WATCH_ATTESTATION_ERROR",
	ErrCodeSubmissionFailed:  "WATCH_SUBMISSION_FAILED",
	ErrCodeInternal:          "WATCH_INTERNAL_ERROR",
}

// RetryCounts is the engine retry budget per code. The registration workflow
// never retries, so a submitted report is never delivered twice.
var RetryCounts = map[ErrorCode]int{
	ErrCodeInvalidRequest:    0,
	ErrCodeAppraisalRejected: 0,
	ErrCodeEncodingError:     0,
	ErrCodeAttestationError:  0,
	ErrCodeSubmissionFailed:  0,
	ErrCodeInternal:          0,
}

// GetRetryCount returns the retry budget for a code, 0 when unknown.
func GetRetryCount(code ErrorCode) int {
	if count, ok := RetryCounts[code]; ok {
		return count
	}
	return 0
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if stage, ok := stdErr.Metadata["stage"]; ok {
		vars["failedStage"] = stage
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "APPRAISAL"):
		return "AUTHENTICITY"
	case strings.Contains(codeStr, "ENCODING"):
		return "ENCODING"
	case strings.Contains(codeStr, "ATTESTATION"):
		return "CONSENSUS"
	case strings.Contains(codeStr, "SUBMISSION"):
		return "LEDGER"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error code to the status returned by the HTTP trigger.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeAppraisalRejected, ErrCodeEncodingError:
		return http.StatusUnprocessableEntity
	case ErrCodeAttestationError, ErrCodeSubmissionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
