// Copyright 2025 Certen Protocol
//
// Address endpoints (spec.md §6): /address/check, /address/create,
// /address/add, /address/{address}, /address/{address}/info.

package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/tonvault/gateway/internal/apierr"
	"github.com/tonvault/gateway/internal/database"
	"github.com/tonvault/gateway/internal/orchestration"
	"github.com/tonvault/gateway/internal/tonaddr"
)

// resolveAddress accepts either "workchain:hex" or a packed base64url form.
func resolveAddress(raw string) (int32, string, error) {
	if wc, hex, ok := strings.Cut(raw, ":"); ok {
		n, err := strconv.ParseInt(wc, 10, 32)
		if err != nil {
			return 0, "", apierr.WrongInput("malformed workchain")
		}
		return int32(n), hex, nil
	}
	wc, hex, err := tonaddr.Unpack(raw)
	if err != nil {
		return 0, "", apierr.WrongInput("malformed address: " + err.Error())
	}
	return wc, hex, nil
}

type checkAddressRequest struct {
	Address string `json:"address"`
}

func handleAddressCheck(w http.ResponseWriter, r *http.Request) {
	var req checkAddressRequest
	if err := decodeBody(r, &req); err != nil {
		writeMalformed(w, "malformed body")
		return
	}
	wc, hex, err := resolveAddress(req.Address)
	if err != nil {
		writeErr(w, err)
		return
	}
	packed, err := tonaddr.Pack(wc, hex)
	if err != nil {
		writeErr(w, apierr.WrongInput(err.Error()))
		return
	}
	writeOK(w, map[string]any{
		"workchainId": wc, "hex": hex, "base64url": packed, "valid": true,
	})
}

type createAddressRequest struct {
	Workchain            int32                `json:"workchainId"`
	AccountType          database.AccountType `json:"accountType"`
	Confirmations        int32                `json:"confirmations"`
	CustodiansPublicKeys []string             `json:"custodiansPublicKeys"`
}

func handleAddressCreate(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAddressRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		addr, err := svc.CreateAddress(r.Context(), serviceIDFromContext(r.Context()), orchestration.CreateAddressRequest{
			Workchain: req.Workchain, AccountType: req.AccountType,
			Confirmations: req.Confirmations, CustodiansPublicKeys: req.CustodiansPublicKeys,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, addr)
	}
}

type addAddressRequest struct {
	Workchain            int32                `json:"workchainId"`
	HexAddress           string               `json:"hex"`
	PublicKey            string               `json:"publicKey"`
	EncryptedPrivateKey  []byte               `json:"encryptedPrivateKey"`
	AccountType          database.AccountType `json:"accountType"`
	Custodians           *int32               `json:"custodians"`
	Confirmations        *int32               `json:"confirmations"`
	CustodiansPublicKeys []string             `json:"custodiansPublicKeys"`
}

func handleAddressAdd(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addAddressRequest
		if err := decodeBody(r, &req); err != nil {
			writeMalformed(w, "malformed body")
			return
		}
		addr, err := svc.AddAddress(r.Context(), serviceIDFromContext(r.Context()), orchestration.AddAddressRequest{
			Workchain: req.Workchain, HexAddress: req.HexAddress, PublicKey: req.PublicKey,
			EncryptedPrivateKey: req.EncryptedPrivateKey, AccountType: req.AccountType,
			Custodians: req.Custodians, Confirmations: req.Confirmations,
			CustodiansPublicKeys: req.CustodiansPublicKeys,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, addr)
	}
}

func handleAddressGet(svc *orchestration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.URL.Path, "/ton/v3/address/")
		raw = strings.TrimSuffix(raw, "/info")
		wc, hex, err := resolveAddress(raw)
		if err != nil {
			writeErr(w, err)
			return
		}
		addr, err := svc.GetAddress(r.Context(), serviceIDFromContext(r.Context()), wc, hex)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeOK(w, addr)
	}
}
