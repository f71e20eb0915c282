// Copyright 2025 Certen Protocol
//
// Misc endpoints (spec.md §6): /read-contract, /encode-into-cell,
// /prepare-message, /send-signed-message, /send-message, /metrics (business
// JSON; Prometheus text exposition is served separately on the metrics
// listener), /, /swagger.yaml, /healthcheck.

package httpapi

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/tonvault/gateway/internal/apierr"
	"github.com/tonvault/gateway/internal/database"
	"github.com/tonvault/gateway/internal/orchestration"
	"github.com/tonvault/gateway/internal/walletmsg"
)

type readContractRequest struct {
	Account accountRef `json:"account"`
}

func handleReadContract(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req readContractRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		state, err := svc.ReadContract(r.Context(), req.Account.toAccountID())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, state)
	}
}

type cellFieldRequest struct {
	Kind    walletmsg.CellFieldKind `json:"kind"`
	Uint    uint64                  `json:"uint,omitempty"`
	Bytes   []byte                  `json:"bytes,omitempty"`
	Str     string                  `json:"str,omitempty"`
	Address accountRef              `json:"address,omitempty"`
}

type encodeIntoCellRequest struct {
	Fields []cellFieldRequest `json:"fields"`
}

func handleEncodeIntoCell(w http.ResponseWriter, r *http.Request) {
	var req encodeIntoCellRequest
	if err := decodeBody(r, &req); err != nil {
		writeMalformed(w, "malformed body")
		return
	}
	fields := make([]walletmsg.CellField, len(req.Fields))
	for i, f := range req.Fields {
		fields[i] = walletmsg.CellField{
			Kind: f.Kind, Uint: f.Uint, Bytes: f.Bytes, Str: f.Str, Address: f.Address.toAccountID(),
		}
	}
	body := walletmsg.EncodeCell(fields)
	writeOK(w, map[string]any{"body": base64.StdEncoding.EncodeToString(body)})
}

type prepareMessageRequest struct {
	Sender      accountRef           `json:"sender"`
	AccountType database.AccountType `json:"accountType"`
	PublicKey   string               `json:"publicKey"`
	Outputs     []sendOutputRequest  `json:"outputs"`
	Body        []byte               `json:"body"`
	ExpireAfter int64                `json:"expireAfterSeconds"`
	Custodians  int32                `json:"custodians"`
}

func handlePrepareMessage(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req prepareMessageRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		pub, err := decodeHexPublicKeyREST(req.PublicKey)
		if err != nil {
			writeErr(w, apierr.WrongInput(err.Error()))
			return
		}
		outputs := make([]orchestration.SendOutput, len(req.Outputs))
		for i, o := range req.Outputs {
			amount, err := parseAmount(o.Amount)
			if err != nil {
				writeErr(w, err)
				return
			}
			outputs[i] = orchestration.SendOutput{Recipient: o.Recipient.toAccountID(), Amount: amount, Bounce: o.Bounce}
		}
		hash, err := svc.PrepareGenericMessage(r.Context(), orchestration.PrepareGenericMessageRequest{
			Sender: req.Sender.toAccountID(), AccountType: req.AccountType, PublicKey: pub,
			Outputs: outputs, Body: req.Body, ExpireAfter: parseSeconds(req.ExpireAfter), Custodians: req.Custodians,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, map[string]string{"unsignedMessageHash": hash})
	}
}

type sendSignedMessageRequest struct {
	UnsignedMessageHash string `json:"unsignedMessageHash"`
	Signature           []byte `json:"signature"`
}

func handleSendSignedMessage(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendSignedMessageRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		hash, err := svc.SendSignedMessage(r.Context(), orchestration.SendSignedMessageRequest{
			UnsignedMessageHash: req.UnsignedMessageHash, Signature: req.Signature,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, map[string]string{"signedMessageHash": hash})
	}
}

type sendMessageRequest struct {
	Account     accountRef `json:"account"`
	MessageBoc  []byte     `json:"messageBoc"`
	MessageHash string     `json:"messageHash"`
	ExpireAfter int64      `json:"expireAfterSeconds"`
}

func handleSendMessage(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		expireAfter := parseSeconds(req.ExpireAfter)
		if expireAfter <= 0 {
			expireAfter = 60 * time.Second
		}
		hash, err := svc.SendRawMessage(r.Context(), orchestration.SendRawMessageRequest{
			Account: req.Account.toAccountID(), MessageBoc: req.MessageBoc,
			MessageHash: req.MessageHash, ExpiresAt: time.Now().Add(expireAfter).Unix(),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, map[string]string{"messageHash": hash})
	}
}

func handleGetMetrics(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.GetMetrics(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, m)
	}
}

func handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{"epochMs": time.Now().UnixMilli()})
}

// decodeHexPublicKeyREST accepts either hex or base64-encoded public keys
// on the wire, since prepare-message is a caller-facing entry point.
func decodeHexPublicKeyREST(s string) (ed25519.PublicKey, error) {
	if b, err := hex.DecodeString(s); err == nil && len(b) == ed25519.PublicKeySize {
		return ed25519.PublicKey(b), nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes", ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(b), nil
}
