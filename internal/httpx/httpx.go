// Package httpx holds the JSON request/response helpers shared by the record
// store server and its client.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// MaxBodyBytes caps request bodies accepted by ReadJSON.
const MaxBodyBytes = 1 << 20

// ErrEmptyBody is returned by ReadJSON when the request carries no JSON value.
var ErrEmptyBody = errors.New("empty request body")

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	RequestID string      `json:"request_id"`
	Error     ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func NewRequestID() string { return "req_" + uuid.NewString() }

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodes one JSON value from the request body into dst. Bodies over
// MaxBodyBytes, empty bodies and JSON null are rejected.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	raw, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return ErrEmptyBody
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}
	return nil
}

func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	WriteJSON(w, status, ErrorBody{
		RequestID: NewRequestID(),
		Error:     ErrorDetail{Code: code, Message: message, Details: details},
	})
}

// DecodeError reads an ErrorBody from r. It returns the zero value if the
// body is not in that shape.
func DecodeError(r io.Reader) ErrorBody {
	var out ErrorBody
	_ = json.NewDecoder(io.LimitReader(r, MaxBodyBytes)).Decode(&out)
	return out
}
