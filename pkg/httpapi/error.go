package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/atviriduomenys/katalogas-sub000/pkg/composables"
)

// ErrorEnvelope is the body of every JSON error under /api.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// RequestID returns the request id carried by the envelope, if any.
func (e ErrorEnvelope) RequestID() string {
	return e.Meta["request_id"]
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteRequestError writes an envelope with the request id of r in its meta.
// extra keys are merged in.
func WriteRequestError(w http.ResponseWriter, r *http.Request, status int, code, message string, extra map[string]string) error {
	var meta map[string]string
	if id := composables.UseRequestID(r.Context()); id != "" {
		meta = map[string]string{"request_id": id}
	}
	for k, v := range extra {
		if meta == nil {
			meta = make(map[string]string, len(extra))
		}
		meta[k] = v
	}
	return WriteError(w, status, code, message, meta)
}
