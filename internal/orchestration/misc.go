// Copyright 2025 Certen Protocol
//
// read_contract / send_message (C9, spec.md §6 "Misc"): thin C2
// pass-throughs for callers that already hold a fully-built, externally
// signed message (per-contract ABI encoding itself is an assumed external
// primitive, spec.md §1).

package orchestration

import (
	"context"

	"github.com/tonvault/gateway/internal/apierr"
	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/pending"
)

// ReadContract fetches an account's current on-chain state.
func (s *Service) ReadContract(ctx context.Context, account chainclient.AccountID) (*chainclient.AccountState, error) {
	state, err := s.chain.GetContractState(ctx, account)
	if err == chainclient.ErrAccountNotFound {
		return nil, apierr.ChainErr("AccountNotFound", account.Hex)
	}
	if err != nil {
		return nil, apierr.Internal("get contract state", err)
	}
	return state, nil
}

// SendRawMessageRequest is the input to SendRawMessage.
type SendRawMessageRequest struct {
	Account    chainclient.AccountID
	MessageBoc []byte
	MessageHash string
	ExpiresAt  int64
}

// SendRawMessage broadcasts a message the caller already built and signed
// end-to-end (spec.md §6 POST /send-message), bypassing C6/C7 entirely but
// still registering a C3 waiter so its eventual observation resolves like
// any other send.
func (s *Service) SendRawMessage(ctx context.Context, req SendRawMessageRequest) (string, error) {
	waiter, err := s.pending.Add(pending.Key{Workchain: req.Account.Workchain, Hex: req.Account.Hex, MsgHash: req.MessageHash}, req.ExpiresAt)
	if err != nil {
		return "", apierr.Internal("register pending waiter", err)
	}

	result, err := s.chain.BroadcastExternalMessage(ctx, req.Account, req.MessageBoc)
	if err != nil || !result.Accepted {
		s.pending.Deliver(pending.Key{Workchain: req.Account.Workchain, Hex: req.Account.Hex, MsgHash: req.MessageHash})
		reason := "broadcast rejected"
		if err != nil {
			reason = err.Error()
		}
		return "", apierr.ChainErr("BroadcastRejected", reason)
	}

	go func() { <-waiter }()

	return req.MessageHash, nil
}
