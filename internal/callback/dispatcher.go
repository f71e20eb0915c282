// Copyright 2025 Certen Protocol
//
// Callback dispatcher (C10, spec.md §4.8). For every event row with
// event_status=New, posts a signed HTTPS callback to the owning service's
// registered URL and advances event_status on the outcome. No automatic
// retry at this layer (spec.md §9 open question: a non-200 response is
// terminal Error; operators re-drive via mark_event).
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tonvault/gateway/internal/cryptoutil"
	"github.com/tonvault/gateway/internal/database"
)

// CallbackLookup resolves a service's registered callback URL/secret.
type CallbackLookup interface {
	GetCallbackURL(ctx context.Context, serviceID uuid.UUID) (*database.CallbackURL, error)
}

// Dispatcher is the C10 callback dispatcher.
type Dispatcher struct {
	lookup CallbackLookup
	client *http.Client
}

func NewDispatcher(lookup CallbackLookup, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{lookup: lookup, client: &http.Client{Timeout: timeout}}
}

// Payload is the wire format of an outgoing event callback (spec.md §6
// "Callback wire format").
type Payload struct {
	ID                   uuid.UUID      `json:"id"`
	TransactionID        uuid.UUID      `json:"transactionId"`
	MessageHash          string         `json:"messageHash"`
	Account              AccountPayload `json:"account"`
	BalanceChange        string         `json:"balanceChange,omitempty"`
	RootAddress          string         `json:"rootAddress,omitempty"`
	TransactionDirection string         `json:"transactionDirection"`
	TransactionStatus    string         `json:"transactionStatus"`
	EventStatus          string         `json:"eventStatus"`
	CreatedAt            int64          `json:"createdAt"`
	UpdatedAt            int64          `json:"updatedAt"`
}

type AccountPayload struct {
	WorkchainID int32  `json:"workchainId"`
	Hex         string `json:"hex"`
	Base64URL   string `json:"base64url"`
}

// Outcome reports what happened to one dispatch attempt, so the caller can
// advance event_status accordingly.
type Outcome struct {
	Notified bool
	Err      error
}

// Dispatch delivers a single event to its owning service, or marks it
// Notified as a no-op when the service has no callback URL registered
// (spec.md §4.8 step 1).
func (d *Dispatcher) Dispatch(ctx context.Context, serviceID uuid.UUID, payload Payload) Outcome {
	cb, err := d.lookup.GetCallbackURL(ctx, serviceID)
	if err == database.ErrCallbackURLNotFound {
		return Outcome{Notified: true}
	}
	if err != nil {
		return Outcome{Err: fmt.Errorf("resolve callback url: %w", err)}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{Err: fmt.Errorf("marshal callback payload: %w", err)}
	}

	u, err := url.Parse(cb.URL)
	if err != nil {
		return Outcome{Err: fmt.Errorf("parse callback url: %w", err)}
	}

	timestampMs := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sig := cryptoutil.Sign([]byte(cb.Secret), timestampMs, u.Path, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cb.URL, bytes.NewReader(body))
	if err != nil {
		return Outcome{Err: fmt.Errorf("build callback request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TIMESTAMP", timestampMs)
	req.Header.Set("SIGN", sig)

	resp, err := d.client.Do(req)
	if err != nil {
		return Outcome{Err: fmt.Errorf("callback request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Outcome{Err: fmt.Errorf("callback returned status %d", resp.StatusCode)}
	}
	return Outcome{Notified: true}
}
