// Copyright 2025 Certen Protocol

package callback

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/tonvault/gateway/internal/cryptoutil"
	"github.com/tonvault/gateway/internal/database"
)

type fakeCallbackLookup struct {
	urls map[uuid.UUID]*database.CallbackURL
}

func (f *fakeCallbackLookup) GetCallbackURL(ctx context.Context, serviceID uuid.UUID) (*database.CallbackURL, error) {
	cb, ok := f.urls[serviceID]
	if !ok {
		return nil, database.ErrCallbackURLNotFound
	}
	return cb, nil
}

func TestDispatchMarksNotifiedWhenNoCallbackRegistered(t *testing.T) {
	serviceID := uuid.New()
	d := NewDispatcher(&fakeCallbackLookup{urls: map[uuid.UUID]*database.CallbackURL{}}, 0)

	outcome := d.Dispatch(context.Background(), serviceID, Payload{ID: uuid.New()})
	if !outcome.Notified || outcome.Err != nil {
		t.Errorf("expected no-op Notified outcome, got %+v", outcome)
	}
}

func TestDispatchSendsSignedRequestAndMarksNotifiedOn200(t *testing.T) {
	var gotSig, gotTimestamp string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("SIGN")
		gotTimestamp = r.Header.Get("TIMESTAMP")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	serviceID := uuid.New()
	secret := "callback-secret"
	d := NewDispatcher(&fakeCallbackLookup{urls: map[uuid.UUID]*database.CallbackURL{
		serviceID: {ServiceID: serviceID, URL: server.URL + "/hook", Secret: secret},
	}}, 0)

	payload := Payload{ID: uuid.New(), MessageHash: "m1", TransactionStatus: "Done", EventStatus: "New"}
	outcome := d.Dispatch(context.Background(), serviceID, payload)

	if !outcome.Notified || outcome.Err != nil {
		t.Fatalf("expected Notified outcome, got %+v", outcome)
	}
	if gotSig == "" || gotTimestamp == "" {
		t.Error("expected SIGN and TIMESTAMP headers to be set")
	}
	if !cryptoutil.Verify([]byte(secret), gotTimestamp, "/hook", gotBody, gotSig) {
		t.Error("expected callback signature to verify against the sent body")
	}
}

func TestDispatchMarksErrorOnNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	serviceID := uuid.New()
	d := NewDispatcher(&fakeCallbackLookup{urls: map[uuid.UUID]*database.CallbackURL{
		serviceID: {ServiceID: serviceID, URL: server.URL, Secret: "s"},
	}}, 0)

	outcome := d.Dispatch(context.Background(), serviceID, Payload{ID: uuid.New()})
	if outcome.Notified || outcome.Err == nil {
		t.Errorf("expected Error outcome for non-200 response, got %+v", outcome)
	}
}
