package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/matthewbaird/relplan/internal/wire"
)

// maxBodyBytes caps a plan document read from a request body.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Node       string `json:"node,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("writeJSON encode error")
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// writeFailure maps a parse, translate or execute error to a response. Plan
// errors and undecodable bodies are the client's fault; a query the engine
// refused is unprocessable.
func writeFailure(w http.ResponseWriter, err error) {
	data := wire.ErrorFrom(err)
	status := http.StatusBadRequest
	if data.Code == "EXECUTION_ERROR" {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorBody{
		Error:      data.Message,
		Code:       data.Code,
		Node:       data.Node,
		Suggestion: data.Suggestion,
	})
}

// readBody reads the request body up to maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return data, nil
}
