package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hostbench/wsd/internal/core"
)

// ErrorResponse is the error body shape: {"error": "<message>"}.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError maps an error to its HTTP status and writes the error body.
// Unrecognized errors become opaque 500s so store internals don't leak.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *core.AppError
	if errors.As(err, &appErr) {
		WriteJSON(w, appErr.Code.HTTPStatus(), ErrorResponse{Error: appErr.Message})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
