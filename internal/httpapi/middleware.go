// Copyright 2025 Certen Protocol
//
// Auth middleware (C8, spec.md §4.1, §6): reads the api-key/timestamp/sign
// header triple plus the raw body, verifies, and stashes the resolved
// ServiceID on the request context for handlers.

package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/tonvault/gateway/internal/auth"
)

type ctxKey int

const serviceIDKey ctxKey = 0

func serviceIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(serviceIDKey).(uuid.UUID)
	return id
}

// withAuth wraps handler h, rejecting requests that fail C8 verification.
func withAuth(verifier *auth.Verifier, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeMalformed(w, "unreadable body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		sourceIP := r.Header.Get("x-real-ip")
		if sourceIP == "" {
			sourceIP = r.RemoteAddr
		}

		result, err := verifier.Verify(r.Context(), auth.Request{
			ApiKey:      r.Header.Get("api-key"),
			TimestampMs: r.Header.Get("timestamp"),
			Signature:   r.Header.Get("sign"),
			Path:        r.URL.Path,
			Body:        body,
			SourceIP:    sourceIP,
		})
		if err != nil {
			writeErr(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), serviceIDKey, result.ServiceID)
		h(w, r.WithContext(ctx))
	}
}
