// internal/api/errors.go
package api

import (
	"encoding/json"
	"net/http"

	"propguard-workers/internal/common/errors"
	"propguard-workers/internal/common/logger"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// statusFor maps an error category to the HTTP status returned for it.
func statusFor(std *errors.StandardError) int {
	switch errors.GetErrorCategory(std.Code) {
	case "VALIDATION":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	std := errors.Normalize(err)
	status := statusFor(std)

	body := errorBody{Code: string(std.Code), Message: std.Message}
	if field, ok := std.Metadata["field"].(string); ok {
		body.Field = field
	}
	if status < http.StatusInternalServerError {
		body.Details = std.Details
	} else {
		log.Error("request failed", map[string]interface{}{
			"errorCode": std.Code,
			"details":   std.Details,
		})
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
