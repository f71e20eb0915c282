// Copyright 2025 Certen Protocol

package auth

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tonvault/gateway/internal/apierr"
	"github.com/tonvault/gateway/internal/cryptoutil"
	"github.com/tonvault/gateway/internal/database"
)

type fakeLookup struct {
	keys map[string]*database.ApiKey
}

func (f *fakeLookup) GetApiKeyByKey(ctx context.Context, key string) (*database.ApiKey, error) {
	k, ok := f.keys[key]
	if !ok {
		return nil, database.ErrApiKeyNotFound
	}
	return k, nil
}

func newFixture(whitelist *database.KeyWhitelist) (*Verifier, uuid.UUID) {
	serviceID := uuid.New()
	lookup := &fakeLookup{keys: map[string]*database.ApiKey{
		"key-1": {ID: uuid.New(), ServiceID: serviceID, Key: "key-1", Secret: "shh-secret", Whitelist: whitelist},
	}}
	return NewVerifier(lookup, 10*time.Second), serviceID
}

func sign(ts string, path string, body []byte) string {
	return cryptoutil.Sign([]byte("shh-secret"), ts, path, body)
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	v, serviceID := newFixture(nil)
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	body := []byte(`{"a":1}`)

	res, err := v.Verify(context.Background(), Request{
		ApiKey:      "key-1",
		TimestampMs: ts,
		Signature:   sign(ts, "/ton/v3/address/create", body),
		Path:        "/ton/v3/address/create",
		Body:        body,
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.ServiceID != serviceID {
		t.Errorf("service id mismatch: got %s, want %s", res.ServiceID, serviceID)
	}
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	v, _ := newFixture(nil)
	_, err := v.Verify(context.Background(), Request{})
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.KindUnauthorized {
		t.Errorf("expected Unauthorized, got %v", err)
	}
}

func TestVerifyRejectsUnknownKey(t *testing.T) {
	v, _ := newFixture(nil)
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	_, err := v.Verify(context.Background(), Request{
		ApiKey:      "unknown-key",
		TimestampMs: ts,
		Signature:   "irrelevant",
		Path:        "/p",
	})
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.KindUnauthorized {
		t.Errorf("expected Unauthorized, got %v", err)
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	v, _ := newFixture(nil)
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	signedBody := []byte(`{"a":1}`)
	tamperedBody := []byte(`{"a":2}`)

	_, err := v.Verify(context.Background(), Request{
		ApiKey:      "key-1",
		TimestampMs: ts,
		Signature:   sign(ts, "/p", signedBody),
		Path:        "/p",
		Body:        tamperedBody,
	})
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.KindUnauthorized {
		t.Errorf("expected Unauthorized for tampered body, got %v", err)
	}
}

func TestVerifyAcceptsSkewWithinLimit(t *testing.T) {
	v, _ := newFixture(nil)
	ts := strconv.FormatInt(time.Now().Add(-9500*time.Millisecond).UnixMilli(), 10)
	body := []byte("")

	_, err := v.Verify(context.Background(), Request{
		ApiKey:      "key-1",
		TimestampMs: ts,
		Signature:   sign(ts, "/p", body),
		Path:        "/p",
		Body:        body,
	})
	if err != nil {
		t.Errorf("expected skew within the 10s limit to be accepted, got %v", err)
	}
}

func TestVerifyRejectsSkewBeyondLimit(t *testing.T) {
	v, _ := newFixture(nil)
	ts := strconv.FormatInt(time.Now().Add(-10500*time.Millisecond).UnixMilli(), 10)
	body := []byte("")

	_, err := v.Verify(context.Background(), Request{
		ApiKey:      "key-1",
		TimestampMs: ts,
		Signature:   sign(ts, "/p", body),
		Path:        "/p",
		Body:        body,
	})
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.KindUnauthorized {
		t.Errorf("expected Unauthorized for excessive skew, got %v", err)
	}
}

func TestVerifyRejectsUnwhitelistedSourceIP(t *testing.T) {
	v, _ := newFixture(&database.KeyWhitelist{SourceIPs: []string{"1.2.3.4"}})
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	body := []byte("")

	_, err := v.Verify(context.Background(), Request{
		ApiKey:      "key-1",
		TimestampMs: ts,
		Signature:   sign(ts, "/p", body),
		Path:        "/p",
		Body:        body,
		SourceIP:    "9.9.9.9",
	})
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.KindUnauthorized {
		t.Errorf("expected Unauthorized for unwhitelisted source ip, got %v", err)
	}
}

func TestVerifyAcceptsWhitelistedSourceIP(t *testing.T) {
	v, _ := newFixture(&database.KeyWhitelist{SourceIPs: []string{"1.2.3.4"}})
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	body := []byte("")

	_, err := v.Verify(context.Background(), Request{
		ApiKey:      "key-1",
		TimestampMs: ts,
		Signature:   sign(ts, "/p", body),
		Path:        "/p",
		Body:        body,
		SourceIP:    "1.2.3.4",
	})
	if err != nil {
		t.Errorf("expected whitelisted source ip to be accepted, got %v", err)
	}
}

func TestAuthorizeRecipientAllowsWhitelisted(t *testing.T) {
	v, _ := newFixture(&database.KeyWhitelist{RecipientAddresses: []string{"abc"}})
	if err := v.AuthorizeRecipient(context.Background(), "key-1", "abc"); err != nil {
		t.Errorf("expected whitelisted recipient to be authorized, got %v", err)
	}
}

func TestAuthorizeRecipientRejectsNonWhitelisted(t *testing.T) {
	v, _ := newFixture(&database.KeyWhitelist{RecipientAddresses: []string{"abc"}})
	err := v.AuthorizeRecipient(context.Background(), "key-1", "xyz")
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.KindWrongInput {
		t.Errorf("expected WrongInput, got %v", err)
	}
}

func TestAuthorizeRecipientAllowsAnyWhenNoWhitelist(t *testing.T) {
	v, _ := newFixture(nil)
	if err := v.AuthorizeRecipient(context.Background(), "key-1", "anything"); err != nil {
		t.Errorf("expected no whitelist to allow any recipient, got %v", err)
	}
}
