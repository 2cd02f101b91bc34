package httptrigger

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"watch-registration/internal/common/errors"
	"watch-registration/internal/common/logger"
)

type handler struct {
	trigger      Trigger
	maxBodyBytes int64
	logger       logger.Logger
}

type errorResponse struct {
	Status    string `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, string(errors.ErrCodeInvalidRequest), "request body exceeds limit", requestID)
			return
		}
		writeError(w, http.StatusBadRequest, string(errors.ErrCodeInvalidRequest), err.Error(), requestID)
		return
	}

	summary, err := h.trigger.Handle(r.Context(), body)
	if err != nil {
		code := errors.Normalize(err).Code
		writeError(w, errors.HTTPStatus(code), string(code), err.Error(), requestID)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, summary); err != nil {
		h.logger.Warn("Failed to write response", map[string]interface{}{
			"requestId": requestID,
			"error":     err.Error(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, errorResponse{Status: "error", Code: code, Message: message, RequestID: requestID})
}
