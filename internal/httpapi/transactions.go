// Copyright 2025 Certen Protocol
//
// Transaction endpoints (spec.md §6): /transactions (search), /create,
// /confirm, /id/{id}, /h/{hash}, /mh/{message_hash}.

package httpapi

import (
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tonvault/gateway/internal/apierr"
	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/orchestration"
)

type accountRef struct {
	Workchain int32  `json:"workchainId"`
	Hex       string `json:"hex"`
}

func (a accountRef) toAccountID() chainclient.AccountID {
	return chainclient.AccountID{Workchain: a.Workchain, Hex: a.Hex}
}

type searchTransactionRequest struct {
	Account accountRef `json:"account"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
}

func handleTransactionSearch(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchTransactionRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		out, err := svc.SearchTransaction(r.Context(), serviceIDFromContext(r.Context()), orchestration.SearchTransactionFilter{
			Account: req.Account.toAccountID(), Limit: req.Limit, Offset: req.Offset,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, out)
	}
}

type sendOutputRequest struct {
	Recipient accountRef `json:"recipient"`
	Amount    string     `json:"amount"`
	Bounce    bool       `json:"bounce"`
}

type createTransactionRequest struct {
	Sender      accountRef          `json:"sender"`
	Outputs     []sendOutputRequest `json:"outputs"`
	Body        []byte              `json:"body"`
	ExpireAfter int64               `json:"expireAfterSeconds"`
}

func parseSeconds(n int64) time.Duration {
	return time.Duration(n) * time.Second
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, apierr.WrongInput("malformed amount: " + s)
	}
	return v, nil
}

func handleTransactionCreate(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTransactionRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
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
		txn, err := svc.CreateSendTransaction(r.Context(), serviceIDFromContext(r.Context()), orchestration.CreateSendTransactionRequest{
			Sender: req.Sender.toAccountID(), Outputs: outputs, Body: req.Body,
			ExpireAfter: time.Duration(req.ExpireAfter) * time.Second,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, txn)
	}
}

type confirmTransactionRequest struct {
	Sender                accountRef `json:"sender"`
	MultisigTransactionID int64      `json:"multisigTransactionId"`
	ExpireAfter           int64      `json:"expireAfterSeconds"`
}

func handleTransactionConfirm(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmTransactionRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		txn, err := svc.CreateConfirmTransaction(r.Context(), serviceIDFromContext(r.Context()), orchestration.CreateConfirmTransactionRequest{
			Sender: req.Sender.toAccountID(), MultisigTransactionID: req.MultisigTransactionID,
			ExpireAfter: time.Duration(req.ExpireAfter) * time.Second,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, txn)
	}
}

func handleTransactionGetByID(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/ton/v3/transactions/id/")
		id, err := uuid.Parse(idStr)
		if err != nil {
			writeErr(w, apierr.WrongInput("malformed transaction id"))
			return
		}
		txn, err := svc.GetTransactionByID(r.Context(), serviceIDFromContext(r.Context()), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, txn)
	}
}

func handleTransactionGetByHash(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := strings.TrimPrefix(r.URL.Path, "/ton/v3/transactions/h/")
		txn, err := svc.GetTransactionByTransactionHash(r.Context(), serviceIDFromContext(r.Context()), hash)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, txn)
	}
}

func handleTransactionGetByMessageHash(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := strings.TrimPrefix(r.URL.Path, "/ton/v3/transactions/mh/")
		txn, err := svc.GetTransactionByMessageHash(r.Context(), serviceIDFromContext(r.Context()), hash)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, txn)
	}
}
