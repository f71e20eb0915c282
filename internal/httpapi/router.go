// Copyright 2025 Certen Protocol
//
// HTTP surface (C11, spec.md §4/§6). Routes, auth wiring, error mapping;
// the request/response shapes and dispatch logic itself live in the
// per-resource handler files in this package.

package httpapi

import (
	"net/http"

	"github.com/tonvault/gateway/internal/auth"
	"github.com/tonvault/gateway/internal/metrics"
	"github.com/tonvault/gateway/internal/orchestration"
)

const apiPrefix = "/ton/v3"

// NewRouter builds the complete HTTP surface described in spec.md §6.
func NewRouter(svc *orchestration.Service, verifier *auth.Verifier, reg *metrics.Registry, openapiYAML []byte) http.Handler {
	mux := http.NewServeMux()

	auth := func(h http.HandlerFunc) http.HandlerFunc { return withAuth(verifier, h) }

	// Addresses
	mux.HandleFunc(apiPrefix+"/address/check", auth(handleAddressCheck))
	mux.HandleFunc(apiPrefix+"/address/create", auth(handleAddressCreate(svc)))
	mux.HandleFunc(apiPrefix+"/address/add", auth(handleAddressAdd(svc)))
	mux.HandleFunc(apiPrefix+"/address/", auth(handleAddressGet(svc))) // also matches /{address}/info

	// Transactions
	mux.HandleFunc(apiPrefix+"/transactions", auth(handleTransactionSearch(svc)))
	mux.HandleFunc(apiPrefix+"/transactions/create", auth(handleTransactionCreate(svc)))
	mux.HandleFunc(apiPrefix+"/transactions/confirm", auth(handleTransactionConfirm(svc)))
	mux.HandleFunc(apiPrefix+"/transactions/id/", auth(handleTransactionGetByID(svc)))
	mux.HandleFunc(apiPrefix+"/transactions/h/", auth(handleTransactionGetByHash(svc)))
	mux.HandleFunc(apiPrefix+"/transactions/mh/", auth(handleTransactionGetByMessageHash(svc)))

	// Events
	mux.HandleFunc(apiPrefix+"/events", auth(handleEventSearch(svc)))
	mux.HandleFunc(apiPrefix+"/events/mark", auth(handleEventMark(svc)))
	mux.HandleFunc(apiPrefix+"/events/mark/all", auth(handleEventMarkAll(svc)))
	mux.HandleFunc(apiPrefix+"/events/id/", auth(handleEventGetByID(svc)))

	// Tokens
	mux.HandleFunc(apiPrefix+"/tokens/address/", auth(handleTokenTransactionsByAddress(svc)))
	mux.HandleFunc(apiPrefix+"/tokens/transactions/create", auth(handleTokenTransactionCreate(svc)))
	mux.HandleFunc(apiPrefix+"/tokens/transactions/burn", auth(handleTokenTransactionBurn(svc)))
	mux.HandleFunc(apiPrefix+"/tokens/transactions/mint", auth(handleTokenTransactionMint(svc)))
	mux.HandleFunc(apiPrefix+"/tokens/transactions/id/", auth(handleTokenTransactionGetByID(svc)))
	mux.HandleFunc(apiPrefix+"/tokens/transactions/mh/", auth(handleTokenTransactionGetByOwnerMessageHash(svc)))
	mux.HandleFunc(apiPrefix+"/tokens/events", auth(handleTokenEventSearch(svc)))
	mux.HandleFunc(apiPrefix+"/tokens/events/mark", auth(handleTokenEventMark(svc)))

	// Misc
	mux.HandleFunc(apiPrefix+"/read-contract", auth(handleReadContract(svc)))
	mux.HandleFunc(apiPrefix+"/encode-into-cell", auth(handleEncodeIntoCell))
	mux.HandleFunc(apiPrefix+"/prepare-message", auth(handlePrepareMessage(svc)))
	mux.HandleFunc(apiPrefix+"/send-signed-message", auth(handleSendSignedMessage(svc)))
	mux.HandleFunc(apiPrefix+"/send-message", auth(handleSendMessage(svc)))
	mux.HandleFunc(apiPrefix+"/metrics", auth(handleGetMetrics(svc)))

	// Unauthenticated surface.
	mux.HandleFunc(apiPrefix+"/healthcheck", handleHealthcheck)
	mux.HandleFunc("/healthcheck", handleHealthcheck)
	mux.HandleFunc("/swagger.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openapiYAML)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openapiYAML)
	})

	return withMetricsMiddleware(reg, mux)
}
