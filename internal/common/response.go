package common

import (
	"fmt"
	"io"
	"net/http"

	json "github.com/bytedance/sonic"
)

const maxRequestBody = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithDomainError picks the status code from the error chain. Errors
// that map to 500 are not echoed to the client.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	code := HTTPStatusFromError(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = ErrInternalServer.Error()
	}
	RespondWithError(w, code, msg)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// DecodeJSON reads at most 1 MiB of request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return fmt.Errorf("read body: %v: %w", err, ErrBadRequest)
	}
	if len(body) == 0 {
		return fmt.Errorf("empty request body: %w", ErrBadRequest)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid request payload: %v: %w", err, ErrBadRequest)
	}
	return nil
}
