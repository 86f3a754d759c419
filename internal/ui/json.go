package ui

import (
	"encoding/json"
	"net/http"
)

type errorJSON struct {
	Error string `json:"error"`
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("response encode failed", "error", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "status", status, "error", err)
	}
	a.writeJSON(w, status, errorJSON{Error: err.Error()})
}
