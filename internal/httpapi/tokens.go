// Copyright 2025 Certen Protocol
//
// Token endpoints (spec.md §6): /tokens/address/{address}, /transactions/
// create|burn|mint, /transactions/id/{id}, /transactions/mh/{mh}.

package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tonvault/gateway/internal/apierr"
	"github.com/tonvault/gateway/internal/database"
	"github.com/tonvault/gateway/internal/orchestration"
)

func handleTokenTransactionsByAddress(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.URL.Path, "/ton/v3/tokens/address/")
		wc, hex, err := resolveAddress(raw)
		if err != nil {
			writeErr(w, err)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		out, err := svc.GetTokenTransactionsByAddress(r.Context(), serviceIDFromContext(r.Context()),
			accountRef{Workchain: wc, Hex: hex}.toAccountID(), limit, offset)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, out)
	}
}

type createTokenTransactionRequest struct {
	Owner       accountRef `json:"owner"`
	RootAddress string     `json:"rootAddress"`
	Destination accountRef `json:"destination"`
	Amount      string     `json:"amount"`
	GasAmount   string     `json:"gasAmount"`
	ForwardBody []byte     `json:"forwardBody"`
	ExpireAfter int64      `json:"expireAfterSeconds"`
}

func handleTokenTransactionCreate(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTokenTransactionRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			writeErr(w, err)
			return
		}
		gas, err := parseAmount(req.GasAmount)
		if err != nil {
			writeErr(w, err)
			return
		}
		txn, err := svc.CreateSendTokenTransaction(r.Context(), serviceIDFromContext(r.Context()), orchestration.CreateSendTokenTransactionRequest{
			Owner: req.Owner.toAccountID(), RootAddress: req.RootAddress, Destination: req.Destination.toAccountID(),
			Amount: amount, GasAmount: gas, ForwardBody: req.ForwardBody,
			ExpireAfter: parseSeconds(req.ExpireAfter),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, txn)
	}
}

type createTokenBurnRequest struct {
	Owner           accountRef `json:"owner"`
	RootAddress     string     `json:"rootAddress"`
	Amount          string     `json:"amount"`
	GasAmount       string     `json:"gasAmount"`
	ResponseAddress accountRef `json:"responseAddress"`
	ExpireAfter     int64      `json:"expireAfterSeconds"`
}

func handleTokenTransactionBurn(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTokenBurnRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			writeErr(w, err)
			return
		}
		gas, err := parseAmount(req.GasAmount)
		if err != nil {
			writeErr(w, err)
			return
		}
		txn, err := svc.CreateSendTokenBurn(r.Context(), serviceIDFromContext(r.Context()), orchestration.CreateSendTokenBurnRequest{
			Owner: req.Owner.toAccountID(), RootAddress: req.RootAddress, Amount: amount, GasAmount: gas,
			ResponseAddress: req.ResponseAddress.toAccountID(), ExpireAfter: parseSeconds(req.ExpireAfter),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, txn)
	}
}

type createTokenMintRequest struct {
	Root        accountRef `json:"root"`
	Destination accountRef `json:"destination"`
	Amount      string     `json:"amount"`
	GasAmount   string     `json:"gasAmount"`
	ExpireAfter int64      `json:"expireAfterSeconds"`
}

func handleTokenTransactionMint(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTokenMintRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			writeErr(w, err)
			return
		}
		gas, err := parseAmount(req.GasAmount)
		if err != nil {
			writeErr(w, err)
			return
		}
		txn, err := svc.CreateSendTokenMint(r.Context(), serviceIDFromContext(r.Context()), orchestration.CreateSendTokenMintRequest{
			Root: req.Root.toAccountID(), Destination: req.Destination.toAccountID(),
			Amount: amount, GasAmount: gas, ExpireAfter: parseSeconds(req.ExpireAfter),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, txn)
	}
}

func handleTokenTransactionGetByID(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/ton/v3/tokens/transactions/id/")
		id, err := uuid.Parse(idStr)
		if err != nil {
			writeErr(w, apierr.WrongInput("malformed token transaction id"))
			return
		}
		txn, err := svc.GetTokenTransactionByID(r.Context(), serviceIDFromContext(r.Context()), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, txn)
	}
}

func handleTokenTransactionGetByOwnerMessageHash(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := strings.TrimPrefix(r.URL.Path, "/ton/v3/tokens/transactions/mh/")
		txn, err := svc.GetTokenTransactionByOwnerMessageHash(r.Context(), serviceIDFromContext(r.Context()), hash)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, txn)
	}
}

type searchTokenEventsRequest struct {
	Limit int `json:"limit"`
}

func handleTokenEventSearch(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchTokenEventsRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		out, err := svc.ListNewTokenEvents(r.Context(), req.Limit)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, out)
	}
}

type markTokenEventRequest struct {
	ID     uuid.UUID            `json:"id"`
	Status database.EventStatus `json:"status"`
}

func handleTokenEventMark(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markTokenEventRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		if err := svc.MarkTokenEvent(r.Context(), req.ID, req.Status); err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, map[string]any{"id": req.ID, "status": req.Status})
	}
}
