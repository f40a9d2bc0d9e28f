package middleware

import (
	"encoding/json"
	"net/http"

	"go-file-browser/internal/model"
)

// writeJSONError writes the error envelope the handlers use, for responses
// produced before a handler runs.
func writeJSONError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: code, Message: message},
	})
}
