// Copyright 2025 Certen Protocol

package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tonvault/gateway/internal/auth"
	"github.com/tonvault/gateway/internal/cryptoutil"
	"github.com/tonvault/gateway/internal/database"
)

type fakeKeyLookup struct {
	serviceID uuid.UUID
	secret    string
}

func (f *fakeKeyLookup) GetApiKeyByKey(ctx context.Context, key string) (*database.ApiKey, error) {
	if key != "good-key" {
		return nil, database.ErrApiKeyNotFound
	}
	return &database.ApiKey{ID: uuid.New(), ServiceID: f.serviceID, Key: key, Secret: f.secret}, nil
}

func TestWithAuthAllowsValidSignedRequest(t *testing.T) {
	serviceID := uuid.New()
	verifier := auth.NewVerifier(&fakeKeyLookup{serviceID: serviceID, secret: "s3cr3t"}, 10*time.Second)

	var capturedServiceID uuid.UUID
	handler := withAuth(verifier, func(w http.ResponseWriter, r *http.Request) {
		capturedServiceID = serviceIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	body := `{"x":1}`
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sig := cryptoutil.Sign([]byte("s3cr3t"), ts, "/ton/v3/address/create", []byte(body))

	req := httptest.NewRequest(http.MethodPost, "/ton/v3/address/create", strings.NewReader(body))
	req.Header.Set("api-key", "good-key")
	req.Header.Set("timestamp", ts)
	req.Header.Set("sign", sig)

	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if capturedServiceID != serviceID {
		t.Errorf("expected handler to see service id %s, got %s", serviceID, capturedServiceID)
	}
}

func TestWithAuthRejectsBadSignature(t *testing.T) {
	serviceID := uuid.New()
	verifier := auth.NewVerifier(&fakeKeyLookup{serviceID: serviceID, secret: "s3cr3t"}, 10*time.Second)

	called := false
	handler := withAuth(verifier, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req := httptest.NewRequest(http.MethodPost, "/ton/v3/address/create", strings.NewReader(`{"x":1}`))
	req.Header.Set("api-key", "good-key")
	req.Header.Set("timestamp", ts)
	req.Header.Set("sign", "totally-wrong-signature")

	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Error("expected wrapped handler not to be invoked on auth failure")
	}
}

func TestWithAuthPreservesBodyForHandler(t *testing.T) {
	serviceID := uuid.New()
	verifier := auth.NewVerifier(&fakeKeyLookup{serviceID: serviceID, secret: "s3cr3t"}, 10*time.Second)

	body := `{"hello":"world"}`
	var seenBody string
	handler := withAuth(verifier, func(w http.ResponseWriter, r *http.Request) {
		var v map[string]string
		_ = decodeBody(r, &v)
		seenBody = v["hello"]
		w.WriteHeader(http.StatusOK)
	})

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sig := cryptoutil.Sign([]byte("s3cr3t"), ts, "/p", []byte(body))

	req := httptest.NewRequest(http.MethodPost, "/p", strings.NewReader(body))
	req.Header.Set("api-key", "good-key")
	req.Header.Set("timestamp", ts)
	req.Header.Set("sign", sig)

	rec := httptest.NewRecorder()
	handler(rec, req)

	if seenBody != "world" {
		t.Errorf("expected handler to read the original body, got %q", seenBody)
	}
}
