package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// errResponse is the hard-failure envelope. "Zero macros logged" and
// "could not compute" must stay distinguishable, so failures never
// masquerade as empty summaries.
type errResponse struct {
	Status  string `json:"status" validate:"required"`
	Message string `json:"message" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Status: "error", Message: msg}
}
