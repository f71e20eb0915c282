// Copyright 2025 Certen Protocol
//
// Native-currency send/confirm/search operations (C9, spec.md §4.7) and the
// transaction-observer callback that turns C5's parsed output into rows and
// events.

package orchestration

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
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

// SendOutput is one recipient of an outgoing transaction.
type SendOutput struct {
	Recipient chainclient.AccountID
	Amount    *big.Int
	Bounce    bool
}

// CreateSendTransactionRequest is the input to CreateSendTransaction.
type CreateSendTransactionRequest struct {
	Sender      chainclient.AccountID
	Outputs     []SendOutput
	Body        []byte
	ExpireAfter time.Duration
}

// CreateSendTransaction validates outputs, decrypts the sender's key,
// builds and signs the wallet message via C6, registers a C3 waiter,
// inserts the Transaction row and then its Event row, and broadcasts via
// C2 (spec.md §4.7). The two inserts are separate statements, not one
// database transaction: if the Event insert fails, the error is only
// logged and the Transaction row is kept without an Event.
func (s *Service) CreateSendTransaction(ctx context.Context, serviceID uuid.UUID, req CreateSendTransactionRequest) (*database.Transaction, error) {
	if len(req.Outputs) == 0 {
		return nil, apierr.WrongInput("outputs must not be empty")
	}
	outputs := make([]walletmsg.Output, len(req.Outputs))
	msgRefs := make([]database.MessageRef, len(req.Outputs))
	for i, o := range req.Outputs {
		if o.Amount == nil || o.Amount.Sign() <= 0 {
			return nil, apierr.WrongInput(fmt.Sprintf("output %d: value must be > 0", i))
		}
		outputs[i] = walletmsg.Output{Recipient: o.Recipient, Amount: o.Amount, Bounce: o.Bounce}
		msgRefs[i] = database.MessageRef{Value: o.Amount.String(), Recipient: fmt.Sprintf("%d:%s", o.Recipient.Workchain, o.Recipient.Hex)}
	}

	addr, err := s.repos.Addresses.GetAddressByWorkchainHex(ctx, req.Sender.Workchain, req.Sender.Hex)
	if err == database.ErrAddressNotFound {
		return nil, apierr.NotFound("sender address not found")
	}
	if err != nil {
		return nil, apierr.Internal("get sender address", err)
	}

	return s.buildSignBroadcastAndInsert(ctx, serviceID, addr, outputs, msgRefs, req.Body, req.ExpireAfter, nil)
}

// CreateConfirmTransactionRequest is the input to CreateConfirmTransaction.
type CreateConfirmTransactionRequest struct {
	Sender                chainclient.AccountID
	MultisigTransactionID int64
	ExpireAfter           time.Duration
}

// CreateConfirmTransaction is the multisig confirmation path: it builds a
// `multisig.confirm` body instead of a transfer, otherwise following the
// same decrypt/sign/broadcast/register pipeline as CreateSendTransaction
// (spec.md §4.7).
func (s *Service) CreateConfirmTransaction(ctx context.Context, serviceID uuid.UUID, req CreateConfirmTransactionRequest) (*database.Transaction, error) {
	addr, err := s.repos.Addresses.GetAddressByWorkchainHex(ctx, req.Sender.Workchain, req.Sender.Hex)
	if err == database.ErrAddressNotFound {
		return nil, apierr.NotFound("sender address not found")
	}
	if err != nil {
		return nil, apierr.Internal("get sender address", err)
	}
	if addr.AccountType != database.AccountTypeSafeMultisig {
		return nil, apierr.WrongInput("confirm requires a SafeMultisig address")
	}

	expireAfter := req.ExpireAfter
	if expireAfter <= 0 {
		expireAfter = s.defaultExpiry
	}
	account := chainclient.AccountID{Workchain: addr.Workchain, Hex: addr.HexAddress}
	msg := walletmsg.BuildConfirmation(account, req.MultisigTransactionID, expireAfter, time.Now())

	signed, err := s.signMessage(addr, msg)
	if err != nil {
		return nil, err
	}

	return s.broadcastAndInsert(ctx, serviceID, addr, msg, signed, nil, nil, &req.MultisigTransactionID)
}

func (s *Service) buildSignBroadcastAndInsert(
	ctx context.Context, serviceID uuid.UUID, addr *database.Address,
	outputs []walletmsg.Output, msgRefs []database.MessageRef, body []byte,
	expireAfter time.Duration, multisigTransactionID *int64,
) (*database.Transaction, error) {
	account := chainclient.AccountID{Workchain: addr.Workchain, Hex: addr.HexAddress}

	pub, err := decodeHexPublicKey(addr.PublicKey)
	if err != nil {
		return nil, apierr.Internal("decode stored public key", err)
	}

	var state *chainclient.AccountState
	if addr.AccountType != database.AccountTypeSafeMultisig {
		state, err = s.chain.GetContractState(ctx, account)
		if err == chainclient.ErrAccountNotFound {
			return nil, apierr.ChainErr("AccountNotFound", account.Hex)
		}
		if err != nil {
			return nil, apierr.Internal("get contract state", err)
		}
		if !state.Deployed {
			return nil, apierr.ChainErr("NotDeployed", account.Hex)
		}
	}

	custodians := int32(0)
	if addr.Custodians.Valid {
		custodians = addr.Custodians.Int32
	}

	buildReq := walletmsg.BuildRequest{
		Sender: account, AccountType: addr.AccountType, PublicKey: pub,
		Outputs: outputs, Body: body, ExpireAfter: expireAfter, State: state, Custodians: custodians,
	}
	msg, err := walletmsg.Build(buildReq, time.Now())
	if err != nil {
		return nil, apierr.WrongInput(err.Error())
	}

	signed, err := s.signMessage(addr, msg)
	if err != nil {
		return nil, err
	}

	return s.broadcastAndInsert(ctx, serviceID, addr, msg, signed, msgRefs, nil, multisigTransactionID)
}

// signMessage decrypts the address's private key and signs the message's
// hash, the exact payload an external signer would be handed by
// prepare_generic_message (spec.md §4.3).
func (s *Service) signMessage(addr *database.Address, msg *walletmsg.UnsignedMessage) (*walletmsg.SignedMessage, error) {
	seed, err := s.keystore.Decrypt(addr.ID, addr.EncryptedPrivateKey)
	if err != nil {
		return nil, apierr.Internal("decrypt private key", err)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	hash := msg.Hash()
	sig := ed25519.Sign(priv, hash[:])

	signed, err := msg.Sign(sig)
	if err != nil {
		return nil, apierr.Internal("sign message", err)
	}
	return signed, nil
}

func (s *Service) broadcastAndInsert(
	ctx context.Context, serviceID uuid.UUID, addr *database.Address,
	msg *walletmsg.UnsignedMessage, signed *walletmsg.SignedMessage,
	msgRefs []database.MessageRef, originalValue *string, multisigTransactionID *int64,
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
		Messages: msgRefs, OriginalValue: originalValue, Direction: database.DirectionSend,
		MultisigTransactionID: multisigTransactionID,
	})
	if err != nil {
		return nil, apierr.Internal("insert transaction", err)
	}

	if _, err := s.repos.Events.CreateTransactionEvent(ctx, nil, &database.NewTransactionEvent{
		ServiceID: serviceID, ParentTransactionID: txn.ID, MessageHash: hashHex,
		AccountWorkchain: account.Workchain, AccountHex: account.Hex,
		TransactionDirection: database.DirectionSend, TransactionStatus: database.TransactionStatusNew,
	}); err != nil {
		s.logger.Printf("create transaction event for %s: %v", txn.ID, err)
	}

	result, err := s.chain.BroadcastExternalMessage(ctx, account, signed.Boc)
	if err != nil || !result.Accepted {
		s.pending.Deliver(pending.Key{Workchain: account.Workchain, Hex: account.Hex, MsgHash: hashHex})
		reason := "broadcast rejected"
		if err != nil {
			reason = err.Error()
		}
		if markErr := s.failTransaction(ctx, txn.ID, reason); markErr != nil {
			s.logger.Printf("mark transaction %s failed: %v", txn.ID, markErr)
		}
		return nil, apierr.ChainErr("BroadcastRejected", reason)
	}

	go s.awaitExpiry(txn.ID, waiter)

	return txn, nil
}

// awaitExpiry watches a just-broadcast message's C3 waiter; a Delivered
// outcome needs no action here (the subscriber's confirmation path already
// updates the row), an Expired outcome transitions it to Error.
func (s *Service) awaitExpiry(txID uuid.UUID, waiter <-chan pending.Outcome) {
	outcome := <-waiter
	if outcome != pending.Expired {
		return
	}
	if err := s.failTransaction(context.Background(), txID, "message expired without on-chain confirmation"); err != nil {
		s.logger.Printf("mark transaction %s expired: %v", txID, err)
	}
}

func (s *Service) failTransaction(ctx context.Context, id uuid.UUID, reason string) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	txn, err := s.repos.Transactions.GetTransactionByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repos.Transactions.ApplyConfirmation(ctx, tx, id, &database.Confirmation{
		Status: database.TransactionStatusError, Error: &reason,
	}); err != nil {
		return err
	}
	if _, err := s.repos.Events.CreateTransactionEvent(ctx, tx, &database.NewTransactionEvent{
		ServiceID: txn.ServiceID, ParentTransactionID: id, MessageHash: txn.MessageHash,
		AccountWorkchain: txn.AccountWorkchain, AccountHex: txn.AccountHex,
		TransactionDirection: database.DirectionSend, TransactionStatus: database.TransactionStatusError,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// PrepareGenericMessageRequest is the input to PrepareGenericMessage.
type PrepareGenericMessageRequest struct {
	Sender      chainclient.AccountID
	AccountType database.AccountType
	PublicKey   ed25519.PublicKey
	Outputs     []SendOutput
	Body        []byte
	ExpireAfter time.Duration
	Custodians  int32
	State       *chainclient.AccountState
}

// PrepareGenericMessage builds an unsigned message and stores it in C7
// without broadcasting, for callers who sign externally (spec.md §4.3).
func (s *Service) PrepareGenericMessage(ctx context.Context, req PrepareGenericMessageRequest) (string, error) {
	outputs := make([]walletmsg.Output, len(req.Outputs))
	for i, o := range req.Outputs {
		outputs[i] = walletmsg.Output{Recipient: o.Recipient, Amount: o.Amount, Bounce: o.Bounce}
	}
	buildReq := walletmsg.BuildRequest{
		Sender: req.Sender, AccountType: req.AccountType, PublicKey: req.PublicKey,
		Outputs: outputs, Body: req.Body, ExpireAfter: req.ExpireAfter, State: req.State, Custodians: req.Custodians,
	}
	msg, err := walletmsg.Build(buildReq, time.Now())
	if err != nil {
		return "", apierr.WrongInput(err.Error())
	}
	s.unsigned.Put(msg)
	return msg.HashHex(), nil
}

// SendSignedMessageRequest is the input to SendSignedMessage.
type SendSignedMessageRequest struct {
	UnsignedMessageHash string
	Signature           []byte
}

// SendSignedMessage retrieves a previously prepared message from C7,
// applies the caller's signature, broadcasts it, and registers a C3 waiter
// (spec.md §4.3).
func (s *Service) SendSignedMessage(ctx context.Context, req SendSignedMessageRequest) (string, error) {
	msg, ok := s.unsigned.Get(time.Now(), req.UnsignedMessageHash)
	if !ok {
		return "", apierr.NotFound("unsigned message not found or expired")
	}
	if len(req.Signature) != ed25519.SignatureSize {
		return "", apierr.WrongInput(fmt.Sprintf("signature length %d, want %d", len(req.Signature), ed25519.SignatureSize))
	}

	signed, err := msg.Sign(req.Signature)
	if err != nil {
		return "", apierr.WrongInput(err.Error())
	}

	waiter, err := s.pending.Add(pending.Key{Workchain: msg.Sender().Workchain, Hex: msg.Sender().Hex, MsgHash: msg.HashHex()}, msg.ExpiresAt())
	if err != nil {
		return "", apierr.Internal("register pending waiter", err)
	}

	result, err := s.chain.BroadcastExternalMessage(ctx, msg.Sender(), signed.Boc)
	if err != nil || !result.Accepted {
		s.pending.Deliver(pending.Key{Workchain: msg.Sender().Workchain, Hex: msg.Sender().Hex, MsgHash: msg.HashHex()})
		reason := "broadcast rejected"
		if err != nil {
			reason = err.Error()
		}
		return "", apierr.ChainErr("BroadcastRejected", reason)
	}

	go func() { <-waiter }()

	return msg.HashHex(), nil
}

// SearchTransactionFilter bounds search_transaction per spec.md §4.7
// ("bounded paginated search; default/max limit 100").
type SearchTransactionFilter struct {
	Account chainclient.AccountID
	Limit   int
	Offset  int
}

const maxSearchLimit = 100

func (s *Service) SearchTransaction(ctx context.Context, serviceID uuid.UUID, filter SearchTransactionFilter) ([]*database.Transaction, error) {
	limit := filter.Limit
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	out, err := s.repos.Transactions.ListTransactionsByAddress(ctx, serviceID, filter.Account.Workchain, filter.Account.Hex, limit, filter.Offset)
	if err != nil {
		return nil, apierr.Internal("search transactions", err)
	}
	return out, nil
}

// GetTransactionByID fetches a single service-owned transaction by id.
func (s *Service) GetTransactionByID(ctx context.Context, serviceID uuid.UUID, id uuid.UUID) (*database.Transaction, error) {
	txn, err := s.repos.Transactions.GetTransactionByID(ctx, id)
	if err == database.ErrTransactionNotFound {
		return nil, apierr.NotFound("transaction not found")
	}
	if err != nil {
		return nil, apierr.Internal("get transaction", err)
	}
	if txn.ServiceID != serviceID {
		return nil, apierr.NotFound("transaction not found")
	}
	return txn, nil
}

// GetTransactionByTransactionHash fetches a transaction by its on-chain hash.
func (s *Service) GetTransactionByTransactionHash(ctx context.Context, serviceID uuid.UUID, hash string) (*database.Transaction, error) {
	txn, err := s.repos.Transactions.GetTransactionByTransactionHash(ctx, serviceID, hash)
	if err == database.ErrTransactionNotFound {
		return nil, apierr.NotFound("transaction not found")
	}
	if err != nil {
		return nil, apierr.Internal("get transaction", err)
	}
	return txn, nil
}

// GetTransactionByMessageHash fetches a Send-direction transaction by its
// unsigned-message hash.
func (s *Service) GetTransactionByMessageHash(ctx context.Context, serviceID uuid.UUID, hash string) (*database.Transaction, error) {
	txn, err := s.repos.Transactions.GetTransactionByMessageHash(ctx, serviceID, hash, database.DirectionSend)
	if err == database.ErrTransactionNotFound {
		return nil, apierr.NotFound("transaction not found")
	}
	if err != nil {
		return nil, apierr.Internal("get transaction", err)
	}
	return txn, nil
}

// onNativeTransaction is the C4 transaction-observer callback registered
// for every custodial address's own account. It runs C5's native parser
// and folds the result into the Transaction/Event tables and the address's
// cached balance.
func (s *Service) onNativeTransaction(addr *database.Address, txCtx txparser.TxContext) {
	ctx := context.Background()
	result, err := txparser.ParseNative(txCtx)
	if err != nil {
		s.logger.Printf("parse native transaction for %s:%s: %v", addr.Workchain, addr.HexAddress, err)
		return
	}

	switch result.Kind {
	case txparser.KindCreate:
		s.applyReceive(ctx, addr, result.Create)
	case txparser.KindUpdateSent:
		s.applySendCompletion(ctx, addr, result.UpdateSent)
	}
}

func (s *Service) applyReceive(ctx context.Context, addr *database.Address, row *txparser.ReceiveRow) {
	txn, err := s.repos.Transactions.CreateTransaction(ctx, &database.NewTransaction{
		ServiceID: addr.ServiceID, MessageHash: row.MessageHash,
		AccountWorkchain: row.AccountWorkchain, AccountHex: row.AccountHex,
		Messages: row.Messages, Direction: database.DirectionReceive,
		MultisigTransactionID: row.MultisigTransactionID,
	})
	if err == database.ErrDuplicateTransaction {
		return
	}
	if err != nil {
		s.logger.Printf("insert receive transaction %s: %v", row.MessageHash, err)
		return
	}

	dbTx, err := s.db.BeginTx(ctx)
	if err != nil {
		s.logger.Printf("begin receive confirmation tx: %v", err)
		return
	}
	defer dbTx.Rollback()

	value := row.Value.String()
	balanceChange := row.BalanceChange.String()
	if err := s.repos.Transactions.ApplyConfirmation(ctx, dbTx, txn.ID, &database.Confirmation{
		TransactionHash: row.TransactionHash, TransactionLt: fmt.Sprintf("%d", row.TransactionLt),
		SenderWorkchain: &row.SenderWorkchain, SenderHex: &row.SenderHex,
		Value: &value, Fee: ptrString(row.Fee.String()), BalanceChange: &balanceChange,
		Status: database.TransactionStatusDone, Aborted: row.Aborted, Bounce: row.Bounce,
	}); err != nil {
		s.logger.Printf("apply receive confirmation %s: %v", txn.ID, err)
		return
	}
	if _, err := s.repos.Events.CreateTransactionEvent(ctx, dbTx, &database.NewTransactionEvent{
		ServiceID: addr.ServiceID, ParentTransactionID: txn.ID, MessageHash: row.MessageHash,
		AccountWorkchain: row.AccountWorkchain, AccountHex: row.AccountHex,
		TransactionDirection: database.DirectionReceive, TransactionStatus: database.TransactionStatusDone,
		BalanceChange: &balanceChange,
	}); err != nil {
		s.logger.Printf("create receive event %s: %v", txn.ID, err)
		return
	}

	// Lock the address row within this same transaction so a concurrently
	// observed transaction against the same account can't read the same
	// stale balance and lose an update (spec.md §5 row-level locking).
	locked, err := s.repos.Addresses.GetAddressForUpdate(ctx, dbTx, addr.Workchain, addr.HexAddress)
	if err != nil {
		s.logger.Printf("lock address for receive balance update %s: %v", addr.ID, err)
		return
	}
	newBalance := new(big.Int).Add(parseBalance(locked.Balance), row.BalanceChange)
	if err := s.repos.Addresses.UpdateBalance(ctx, dbTx, addr.ID, newBalance.String()); err != nil {
		s.logger.Printf("update balance for %s: %v", addr.ID, err)
		return
	}

	if err := dbTx.Commit(); err != nil {
		s.logger.Printf("commit receive confirmation %s: %v", txn.ID, err)
		return
	}

	if addr.AccountStatus == database.AccountStatusUnInit {
		if err := s.repos.Addresses.UpdateAccountStatus(ctx, addr.ID, database.AccountStatusActive); err != nil {
			s.logger.Printf("activate address %s: %v", addr.ID, err)
		}
	}
}

func (s *Service) applySendCompletion(ctx context.Context, addr *database.Address, row *txparser.SendCompletion) {
	s.pending.Deliver(pending.Key{Workchain: addr.Workchain, Hex: addr.HexAddress, MsgHash: row.MessageHash})

	dbTx, err := s.db.BeginTx(ctx)
	if err != nil {
		s.logger.Printf("begin send completion tx: %v", err)
		return
	}
	defer dbTx.Rollback()

	txn, err := s.repos.Transactions.GetTransactionByMessageHashForUpdate(ctx, dbTx, addr.ServiceID, row.MessageHash, database.DirectionSend)
	if err != nil {
		s.logger.Printf("find send transaction for completion %s: %v", row.MessageHash, err)
		return
	}

	status := database.TransactionStatusDone
	var errPtr *string
	if row.Error != "" {
		status = database.TransactionStatusError
		errPtr = &row.Error
	}
	value := row.Value.String()
	balanceChange := row.BalanceChange.String()
	fee := row.Fee.String()
	if err := s.repos.Transactions.ApplyConfirmation(ctx, dbTx, txn.ID, &database.Confirmation{
		TransactionHash: row.TransactionHash, TransactionLt: fmt.Sprintf("%d", row.TransactionLt),
		Value: &value, Fee: &fee, BalanceChange: &balanceChange,
		Status: status, Error: errPtr, Aborted: row.Aborted, Bounce: row.Bounce,
	}); err != nil {
		s.logger.Printf("apply send completion %s: %v", txn.ID, err)
		return
	}
	if _, err := s.repos.Events.CreateTransactionEvent(ctx, dbTx, &database.NewTransactionEvent{
		ServiceID: addr.ServiceID, ParentTransactionID: txn.ID, MessageHash: row.MessageHash,
		AccountWorkchain: addr.Workchain, AccountHex: addr.HexAddress,
		TransactionDirection: database.DirectionSend, TransactionStatus: status, BalanceChange: &balanceChange,
	}); err != nil {
		s.logger.Printf("create send completion event %s: %v", txn.ID, err)
		return
	}

	locked, err := s.repos.Addresses.GetAddressForUpdate(ctx, dbTx, addr.Workchain, addr.HexAddress)
	if err != nil {
		s.logger.Printf("lock address for send-completion balance update %s: %v", addr.ID, err)
		return
	}
	newBalance := new(big.Int).Add(parseBalance(locked.Balance), row.BalanceChange)
	if err := s.repos.Addresses.UpdateBalance(ctx, dbTx, addr.ID, newBalance.String()); err != nil {
		s.logger.Printf("update balance for %s: %v", addr.ID, err)
		return
	}

	if err := dbTx.Commit(); err != nil {
		s.logger.Printf("commit send completion %s: %v", txn.ID, err)
		return
	}
}

func parseBalance(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

func ptrInt64(v int64) *int64    { return &v }
func ptrString(v string) *string { return &v }

func decodeHexPublicKey(s string) (ed25519.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return ed25519.PublicKey(b), nil
}
