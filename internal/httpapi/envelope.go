// Copyright 2025 Certen Protocol
//
// Response envelope (C9/C8 HTTP surface, spec.md §6): every business
// response is `{status, data?, errorMessage?}`; status codes follow the
// table in §6/§7 — auth (401), wrong-input (400), malformed-body (422) and
// internal (500) failures get real HTTP status codes, everything else rides
// back as 200 with status=Error.

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/tonvault/gateway/internal/apierr"
)

// Envelope is the uniform business-response wire shape.
type Envelope struct {
	Status       string `json:"status"`
	Data         any    `json:"data,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Status: "Ok", Data: data})
}

// writeErr maps err into the envelope + status code spec.md §7 assigns it.
// Unrecognized errors are treated as internal failures.
func writeErr(w http.ResponseWriter, err error) {
	if apiErr, ok := apierr.As(err); ok {
		writeJSON(w, apiErr.StatusCode(), Envelope{Status: "Error", ErrorMessage: apiErr.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, Envelope{Status: "Error", ErrorMessage: err.Error()})
}

func writeMalformed(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, Envelope{Status: "Error", ErrorMessage: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
