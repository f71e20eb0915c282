// Copyright 2025 Certen Protocol
//
// Signature & auth layer (C8, spec.md §4.1). Verifies the api-key/
// timestamp/sign header triple on every non-admin request, with a
// process-local, no-eviction key cache (key set is small, spec.md §5).
package auth

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tonvault/gateway/internal/apierr"
	"github.com/tonvault/gateway/internal/cryptoutil"
	"github.com/tonvault/gateway/internal/database"
)

type cachedKey struct {
	serviceID uuid.UUID
	secret    string
	whitelist *database.KeyWhitelist
}

// KeyLookup is the persistence dependency: reload-on-miss from the
// services/api_keys tables.
type KeyLookup interface {
	GetApiKeyByKey(ctx context.Context, key string) (*database.ApiKey, error)
}

// Verifier is the C8 signature & auth layer.
type Verifier struct {
	lookup       KeyLookup
	timestampSkew time.Duration

	mu    sync.Mutex
	cache map[string]cachedKey
}

func NewVerifier(lookup KeyLookup, timestampSkew time.Duration) *Verifier {
	return &Verifier{lookup: lookup, timestampSkew: timestampSkew, cache: make(map[string]cachedKey)}
}

// Request is the subset of an HTTP request the verifier needs.
type Request struct {
	ApiKey      string
	TimestampMs string
	Signature   string
	Path        string
	Body        []byte
	SourceIP    string
}

// Result is returned on successful verification.
type Result struct {
	ServiceID uuid.UUID
}

// Verify implements spec.md §4.1 steps 1-4. It fails with Unauthorized on
// any step and never reveals which one; storage outages surface as
// Internal instead.
func (v *Verifier) Verify(ctx context.Context, req Request) (*Result, error) {
	if req.ApiKey == "" || req.TimestampMs == "" || req.Signature == "" {
		return nil, apierr.Unauthorized("unauthorized")
	}

	key, err := v.resolve(ctx, req.ApiKey)
	if err != nil {
		if err == database.ErrApiKeyNotFound {
			return nil, apierr.Unauthorized("unauthorized")
		}
		return nil, apierr.Internal("auth lookup failed", err)
	}

	tsMs, err := strconv.ParseInt(req.TimestampMs, 10, 64)
	if err != nil {
		return nil, apierr.Unauthorized("unauthorized")
	}
	now := time.Now()
	skew := now.Sub(time.UnixMilli(tsMs))
	if skew < 0 {
		skew = -skew
	}
	if skew > v.timestampSkew {
		return nil, apierr.Unauthorized("unauthorized")
	}

	if !cryptoutil.Verify([]byte(key.secret), req.TimestampMs, req.Path, req.Body, req.Signature) {
		return nil, apierr.Unauthorized("unauthorized")
	}

	if key.whitelist != nil && len(key.whitelist.SourceIPs) > 0 && req.SourceIP != "" {
		if !containsIP(key.whitelist.SourceIPs, req.SourceIP) {
			return nil, apierr.Unauthorized("unauthorized")
		}
	}

	return &Result{ServiceID: key.serviceID}, nil
}

// AuthorizeRecipient enforces a key's optional recipient whitelist for
// send-family operations (spec.md §3 ApiKey "optional_whitelist").
func (v *Verifier) AuthorizeRecipient(ctx context.Context, apiKey, recipientHex string) error {
	key, err := v.resolve(ctx, apiKey)
	if err != nil {
		return apierr.Internal("auth lookup failed", err)
	}
	if key.whitelist == nil || len(key.whitelist.RecipientAddresses) == 0 {
		return nil
	}
	for _, a := range key.whitelist.RecipientAddresses {
		if a == recipientHex {
			return nil
		}
	}
	return apierr.WrongInput("recipient not whitelisted: " + recipientHex)
}

func (v *Verifier) resolve(ctx context.Context, key string) (cachedKey, error) {
	v.mu.Lock()
	ck, ok := v.cache[key]
	v.mu.Unlock()
	if ok {
		return ck, nil
	}

	apiKey, err := v.lookup.GetApiKeyByKey(ctx, key)
	if err != nil {
		return cachedKey{}, err
	}

	ck = cachedKey{serviceID: apiKey.ServiceID, secret: apiKey.Secret, whitelist: apiKey.Whitelist}
	v.mu.Lock()
	v.cache[key] = ck
	v.mu.Unlock()
	return ck, nil
}

func containsIP(list []string, ip string) bool {
	for _, s := range list {
		if s == ip {
			return true
		}
	}
	return false
}
