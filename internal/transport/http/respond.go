package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"trust-service/internal/core/domain"
)

type errorResponse struct {
	Error        string `json:"error"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
	AttemptsLeft *int   `json:"attemptsLeft,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors onto HTTP statuses. Typed errors carry
// extra fields the client needs to render a useful message.
func writeError(w http.ResponseWriter, err error) {
	var codeActive *domain.CodeActiveError
	if errors.As(err, &codeActive) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:     codeActive.Error(),
			ExpiresAt: codeActive.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
		})
		return
	}
	var invalidCode *domain.InvalidCodeError
	if errors.As(err, &invalidCode) {
		left := invalidCode.AttemptsLeft
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:        invalidCode.Error(),
			AttemptsLeft: &left,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPhoneFormat),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrAttemptsExhausted),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrMissingFields),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrInvalidTag),
		errors.Is(err, domain.ErrTransactionNotCompleted):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrCodeAlreadyActive),
		errors.Is(err, domain.ErrDuplicateReview),
		errors.Is(err, domain.ErrResponseExists),
		errors.Is(err, domain.ErrAlreadyProcessing),
		errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotAParticipant),
		errors.Is(err, domain.ErrNotReviewee):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrPayloadTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrUnsupportedDocumentType):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrSMSProviderFailure),
		errors.Is(err, domain.ErrStorageFailure):
		status = http.StatusBadGateway
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Never leak internals to clients.
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
