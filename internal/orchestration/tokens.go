// Copyright 2025 Certen Protocol
//
// Jetton (TON token) send/burn/mint operations (C9, spec.md §4.7) and the
// token-wallet transaction-observer callback that turns C5's token
// classification into TokenTransaction rows and events.

package orchestration

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/tonvault/gateway/internal/apierr"
	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/database"
	"github.com/tonvault/gateway/internal/pending"
	"github.com/tonvault/gateway/internal/txparser"
	"github.com/tonvault/gateway/internal/walletmsg"
)

// CreateSendTokenTransactionRequest is the input to CreateSendTokenTransaction.
type CreateSendTokenTransactionRequest struct {
	Owner       chainclient.AccountID
	RootAddress string
	Destination chainclient.AccountID
	Amount      *big.Int
	GasAmount   *big.Int
	ForwardBody []byte
	ExpireAfter time.Duration
}

// CreateSendTokenTransaction rejects sends against an unknown root up
// front (spec.md §8 "Unknown root rejected"), then follows the same
// decrypt/sign/broadcast/register pipeline as a native send, inserting a
// native Send row that the token wallet's own observer later joins to a
// TokenTransaction by owner_message_hash.
func (s *Service) CreateSendTokenTransaction(ctx context.Context, serviceID uuid.UUID, req CreateSendTokenTransactionRequest) (*database.Transaction, error) {
	if _, err := s.repos.Whitelist.GetTokenWhitelist(ctx, req.RootAddress); err == database.ErrTokenNotWhitelisted {
		return nil, apierr.WrongInput(fmt.Sprintf("InvalidRootToken:%s", req.RootAddress))
	} else if err != nil {
		return nil, apierr.Internal("get token whitelist", err)
	}

	addr, err := s.repos.Addresses.GetAddressByWorkchainHex(ctx, req.Owner.Workchain, req.Owner.Hex)
	if err == database.ErrAddressNotFound {
		return nil, apierr.NotFound("owner address not found")
	}
	if err != nil {
		return nil, apierr.Internal("get owner address", err)
	}

	msg := walletmsg.BuildTokenTransfer(walletmsg.TokenTransferRequest{
		Owner: req.Owner, RootAddress: req.RootAddress, Destination: req.Destination,
		Amount: req.Amount, GasAmount: req.GasAmount, ForwardBody: req.ForwardBody,
	}, req.ExpireAfter, time.Now())

	signed, err := s.signMessage(addr, msg)
	if err != nil {
		return nil, err
	}

	msgRefs := []database.MessageRef{{Value: req.Amount.String(), Recipient: fmt.Sprintf("%d:%s", req.Destination.Workchain, req.Destination.Hex)}}
	return s.broadcastAndInsertToken(ctx, serviceID, addr, msg, signed, msgRefs)
}

// CreateSendTokenBurnRequest is the input to CreateSendTokenBurn.
type CreateSendTokenBurnRequest struct {
	Owner           chainclient.AccountID
	RootAddress     string
	Amount          *big.Int
	GasAmount       *big.Int
	ResponseAddress chainclient.AccountID
	ExpireAfter     time.Duration
}

func (s *Service) CreateSendTokenBurn(ctx context.Context, serviceID uuid.UUID, req CreateSendTokenBurnRequest) (*database.Transaction, error) {
	if _, err := s.repos.Whitelist.GetTokenWhitelist(ctx, req.RootAddress); err == database.ErrTokenNotWhitelisted {
		return nil, apierr.WrongInput(fmt.Sprintf("InvalidRootToken:%s", req.RootAddress))
	} else if err != nil {
		return nil, apierr.Internal("get token whitelist", err)
	}

	addr, err := s.repos.Addresses.GetAddressByWorkchainHex(ctx, req.Owner.Workchain, req.Owner.Hex)
	if err == database.ErrAddressNotFound {
		return nil, apierr.NotFound("owner address not found")
	}
	if err != nil {
		return nil, apierr.Internal("get owner address", err)
	}

	msg := walletmsg.BuildTokenBurn(walletmsg.TokenBurnRequest{
		Owner: req.Owner, RootAddress: req.RootAddress, Amount: req.Amount,
		GasAmount: req.GasAmount, ResponseAddress: req.ResponseAddress,
	}, req.ExpireAfter, time.Now())

	signed, err := s.signMessage(addr, msg)
	if err != nil {
		return nil, err
	}

	msgRefs := []database.MessageRef{{Value: req.Amount.String(), Recipient: req.RootAddress}}
	return s.broadcastAndInsertToken(ctx, serviceID, addr, msg, signed, msgRefs)
}

// CreateSendTokenMintRequest is the input to CreateSendTokenMint. The
// signer is the root contract's own custodial key, not the recipient's
// (spec.md §4.2: "mint (from root; source is root, not owner)").
type CreateSendTokenMintRequest struct {
	Root        chainclient.AccountID
	Destination chainclient.AccountID
	Amount      *big.Int
	GasAmount   *big.Int
	ExpireAfter time.Duration
}

func (s *Service) CreateSendTokenMint(ctx context.Context, serviceID uuid.UUID, req CreateSendTokenMintRequest) (*database.Transaction, error) {
	addr, err := s.repos.Addresses.GetAddressByWorkchainHex(ctx, req.Root.Workchain, req.Root.Hex)
	if err == database.ErrAddressNotFound {
		return nil, apierr.NotFound("root address not found")
	}
	if err != nil {
		return nil, apierr.Internal("get root address", err)
	}

	msg := walletmsg.BuildTokenMint(walletmsg.TokenMintRequest{
		RootAddress: req.Root, Destination: req.Destination, Amount: req.Amount, GasAmount: req.GasAmount,
	}, req.ExpireAfter, time.Now())

	signed, err := s.signMessage(addr, msg)
	if err != nil {
		return nil, err
	}

	msgRefs := []database.MessageRef{{Value: req.Amount.String(), Recipient: fmt.Sprintf("%d:%s", req.Destination.Workchain, req.Destination.Hex)}}
	return s.broadcastAndInsertToken(ctx, serviceID, addr, msg, signed, msgRefs)
}

// broadcastAndInsertToken mirrors broadcastAndInsert for token operations:
// the inserted row is the native Send that carried the jetton instruction,
// keyed by the owner/root's own account rather than the token wallet.
func (s *Service) broadcastAndInsertToken(
	ctx context.Context, serviceID uuid.UUID, addr *database.Address,
	msg *walletmsg.UnsignedMessage, signed *walletmsg.SignedMessage, msgRefs []database.MessageRef,
) (*database.Transaction, error) {
	account := chainclient.AccountID{Workchain: addr.Workchain, Hex: addr.HexAddress}
	hashHex := msg.HashHex()

	waiter, err := s.pending.Add(pending.Key{Workchain: account.Workchain, Hex: account.Hex, MsgHash: hashHex}, msg.ExpiresAt())
	if err != nil {
		return nil, apierr.Internal("register pending waiter", err)
	}

	txn, err := s.repos.Transactions.CreateTransaction(ctx, &database.NewTransaction{
		ServiceID: serviceID, MessageHash: hashHex, TransactionTimeout: ptrInt64(msg.ExpiresAt()),
		AccountWorkchain: account.Workchain, AccountHex: account.Hex,
		Messages: msgRefs, Direction: database.DirectionSend,
	})
	if err != nil {
		return nil, apierr.Internal("insert token transfer transaction", err)
	}

	if _, err := s.repos.Events.CreateTransactionEvent(ctx, nil, &database.NewTransactionEvent{
		ServiceID: serviceID, ParentTransactionID: txn.ID, MessageHash: hashHex,
		AccountWorkchain: account.Workchain, AccountHex: account.Hex,
		TransactionDirection: database.DirectionSend, TransactionStatus: database.TransactionStatusNew,
	}); err != nil {
		s.logger.Printf("create token transfer event for %s: %v", txn.ID, err)
	}

	result, err := s.chain.BroadcastExternalMessage(ctx, account, signed.Boc)
	if err != nil || !result.Accepted {
		s.pending.Deliver(pending.Key{Workchain: account.Workchain, Hex: account.Hex, MsgHash: hashHex})
		reason := "broadcast rejected"
		if err != nil {
			reason = err.Error()
		}
		if markErr := s.failTransaction(ctx, txn.ID, reason); markErr != nil {
			s.logger.Printf("mark token transfer transaction %s failed: %v", txn.ID, markErr)
		}
		return nil, apierr.ChainErr("BroadcastRejected", reason)
	}

	go s.awaitExpiry(txn.ID, waiter)

	return txn, nil
}

// GetTokenTransactionsByAddress lists the token transfers observed against
// a service-owned address, most-recent first, bounded like search_transaction.
func (s *Service) GetTokenTransactionsByAddress(ctx context.Context, serviceID uuid.UUID, account chainclient.AccountID, limit, offset int) ([]*database.TokenTransaction, error) {
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	out, err := s.repos.TokenTransactions.ListTokenTransactionsByAddress(ctx, serviceID, account.Workchain, account.Hex, limit, offset)
	if err != nil {
		return nil, apierr.Internal("list token transactions", err)
	}
	return out, nil
}

// GetTokenTransactionByID fetches a single service-owned token transaction.
func (s *Service) GetTokenTransactionByID(ctx context.Context, serviceID uuid.UUID, id uuid.UUID) (*database.TokenTransaction, error) {
	txn, err := s.repos.TokenTransactions.GetTokenTransactionByID(ctx, id)
	if err == database.ErrTokenTransactionNotFound {
		return nil, apierr.NotFound("token transaction not found")
	}
	if err != nil {
		return nil, apierr.Internal("get token transaction", err)
	}
	if txn.ServiceID != serviceID {
		return nil, apierr.NotFound("token transaction not found")
	}
	return txn, nil
}

// GetTokenTransactionByOwnerMessageHash resolves a token transfer by the
// owner-side message hash that originated it.
func (s *Service) GetTokenTransactionByOwnerMessageHash(ctx context.Context, serviceID uuid.UUID, hash string) (*database.TokenTransaction, error) {
	txn, err := s.repos.TokenTransactions.GetTokenTransactionByOwnerMessageHash(ctx, serviceID, hash)
	if err == database.ErrTokenTransactionNotFound {
		return nil, apierr.NotFound("token transaction not found")
	}
	if err != nil {
		return nil, apierr.Internal("get token transaction", err)
	}
	return txn, nil
}

// onTokenTransaction is the C4 transaction-observer callback registered for
// an owner's derived jetton wallet contract. It runs C5's token classifier
// and folds the result into the TokenTransaction/Event tables.
func (s *Service) onTokenTransaction(addr *database.Address, txCtx txparser.TxContext) {
	ctx := context.Background()
	result, err := txparser.ParseToken(txCtx)
	if err == database.ErrTokenNotWhitelisted {
		s.logger.Printf("token transaction for unwhitelisted root on %s:%s", addr.Workchain, addr.HexAddress)
		return
	}
	if err != nil {
		s.logger.Printf("parse token transaction for %s:%s: %v", addr.Workchain, addr.HexAddress, err)
		return
	}
	if result == nil {
		return
	}

	var ownerMessageHash *string
	if result.OwnerMessageHash != "" {
		// result.OwnerMessageHash is this token wallet's own inbound message
		// hash, which equals the *out*-message hash of the native Send that
		// carried the jetton instruction; join on that, not on the native
		// row's own top-level message_hash.
		if native, err := s.repos.Transactions.GetTransactionByOutMessageHash(ctx, addr.ServiceID, result.OwnerMessageHash, database.DirectionSend); err == nil {
			ownerMessageHash = &native.MessageHash
		}
	}

	txn, err := s.repos.TokenTransactions.CreateTokenTransaction(ctx, &database.NewTokenTransaction{
		ServiceID: addr.ServiceID, TransactionTimestamp: result.TransactionTimestamp,
		MessageHash: result.MessageHash, OwnerMessageHash: ownerMessageHash,
		AccountWorkchain: result.AccountWorkchain, AccountHex: result.AccountHex,
		Value: valueOrZero(result.Value), RootAddress: result.RootAddress, Payload: result.Payload,
		Direction: result.Direction,
	})
	if err != nil {
		s.logger.Printf("insert token transaction %s: %v", result.MessageHash, err)
		return
	}

	status := database.TokenTransactionStatusDone
	if result.Action == txparser.ActionTransferBounced || result.Action == txparser.ActionSwapBackBounced {
		status = database.TokenTransactionStatusError
	}
	errStr := ""
	if status == database.TokenTransactionStatusError {
		errStr = "bounced"
	}
	var errPtr *string
	if errStr != "" {
		errPtr = &errStr
	}
	if err := s.repos.TokenTransactions.ApplyTokenConfirmation(ctx, txn.ID, &database.TokenConfirmation{
		TransactionHash: result.TransactionHash, BlockHash: txCtx.BlockHash, BlockTime: int32(txCtx.BlockGenUtime),
		Status: status, Error: errPtr, InMessageHash: &result.InMessageHash,
	}); err != nil {
		s.logger.Printf("apply token confirmation %s: %v", txn.ID, err)
		return
	}

	if _, err := s.repos.Events.CreateTokenTransactionEvent(ctx, &database.NewTokenTransactionEvent{
		ServiceID: addr.ServiceID, ParentTransactionID: txn.ID, MessageHash: result.MessageHash,
		AccountWorkchain: result.AccountWorkchain, AccountHex: result.AccountHex,
		RootAddress: result.RootAddress, Value: valueOrZero(result.Value),
		TransactionDirection: result.Direction, TransactionStatus: status,
	}); err != nil {
		s.logger.Printf("create token transaction event %s: %v", txn.ID, err)
	}
}

func valueOrZero(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
