package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body shape every API response uses:
// {success:true, data} or {success:false, error:{message}}.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Meta    any        `json:"meta,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody carries the user-facing failure message.
type ErrorBody struct {
	Message string `json:"message"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK sends a success envelope.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// OKWithMeta sends a success envelope carrying pagination or other meta.
func OKWithMeta(w http.ResponseWriter, data, meta any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Meta: meta})
}

// Fail sends a failure envelope.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Error: &ErrorBody{Message: message}})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
