package api

import (
	"context"
	"encoding/json"
	"net/http"

	apperrors "github.com/guileen/finledger/errors"
	"github.com/guileen/finledger/logger"
)

// Response is the envelope of every API answer.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

func writeOK(w http.ResponseWriter, statusCode int, message string, data any) {
	writeJSON(w, statusCode, Response{Success: true, Message: message, Data: data})
}

// writeError answers with the status the error's code maps to. Server side
// failures are logged and their details withheld from the client.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		apperrors.LogError(ctx, err)
	} else {
		logger.DebugContext(ctx, "request rejected", logger.ErrorField(err), logger.Int("status", status))
	}
	writeJSON(w, status, Response{Success: false, Error: apperrors.PublicMessage(err)})
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Error: message})
}
