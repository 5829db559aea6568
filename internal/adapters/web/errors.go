package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"repair-desk/internal/app"
	"repair-desk/internal/core"
)

type errorResponse struct {
	Error     string              `json:"error"`
	Code      string              `json:"code"`
	RequestID string              `json:"request_id,omitempty"`
	Fields    map[string][]string `json:"fields,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeCreated writes a JSON response with status 201.
func writeCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(v)
}

// fail maps a service error onto its HTTP status. Unexpected errors are
// logged and reported without detail.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr        *core.ValidationError
		statusErr   *core.InvalidStatusError
		amountErr   *core.InvalidAmountError
		conflictErr *core.UniquenessConflictError
		storeErr    *core.StoreUnavailableError
	)
	switch {
	case errors.As(err, &verr):
		writeErrorResponse(w, http.StatusUnprocessableEntity, errorResponse{
			Error:     verr.Summary(),
			Code:      "VALIDATION_ERROR",
			RequestID: requestIDFromContext(r.Context()),
			Fields:    verr.ByField(),
		})
	case errors.As(err, &statusErr):
		writeError(w, r, statusErr.Error(), "INVALID_STATUS", http.StatusBadRequest)
	case errors.As(err, &amountErr):
		writeError(w, r, amountErr.Error(), "INVALID_AMOUNT", http.StatusBadRequest)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.As(err, &conflictErr):
		writeError(w, r, conflictErr.Error(), "CONFLICT", http.StatusConflict)
	case errors.As(err, &storeErr):
		h.logger.Error("store unavailable", "error", err, "request_id", requestIDFromContext(r.Context()))
		writeError(w, r, "storage is unavailable, try again shortly", "STORE_UNAVAILABLE", http.StatusServiceUnavailable)
	case errors.Is(err, app.ErrAssistantDisabled):
		writeError(w, r, err.Error(), "AI_UNAVAILABLE", http.StatusServiceUnavailable)
	default:
		h.logger.Error("request failed", "error", err, "path", r.URL.Path, "request_id", requestIDFromContext(r.Context()))
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
