// Copyright 2025 Certen Protocol
//
// Transaction parser (C5, spec.md §4.6). Classifies an observed transaction
// into native-in / native-out-completion / token-* variants and extracts
// value, fee, counterparty, and (for multisig) the submit/confirm id.
package txparser

import (
	"fmt"
	"math/big"

	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/database"
)

// ParseNative classifies the native-currency side of a transaction.
// It returns ErrInvalidStructure if the inbound message slot is neither
// internal nor external-in (spec.md §4.6: "External-out in the inbound slot
// is ill-formed").
func ParseNative(ctx TxContext) (*CaughtTonTransaction, error) {
	tx := ctx.Transaction
	fee := sumFees(tx.StorageFee, tx.ComputeFee, tx.ActionFee)
	balanceChange := parseBig(tx.BalanceChange)
	messages := messagesOf(tx.OutMessages)

	if tx.InboundMessage == nil {
		return nil, ErrInvalidStructure
	}

	switch tx.InboundMessage.Kind {
	case chainclient.MessageKindInternal:
		value := parseBig(tx.InboundMessage.Value)
		for _, m := range tx.OutMessages {
			value.Add(value, parseBig(m.Value))
		}
		return &CaughtTonTransaction{
			Kind: KindCreate,
			Create: &ReceiveRow{
				MessageHash:           tx.InboundMessage.Hash,
				TransactionHash:       tx.TransactionHash,
				TransactionLt:         tx.Lt,
				SenderWorkchain:       tx.InboundMessage.SourceWorkchain,
				SenderHex:             tx.InboundMessage.SourceHex,
				AccountWorkchain:      ctx.Account.Workchain,
				AccountHex:            ctx.Account.Hex,
				Messages:              messages,
				Value:                 value,
				Fee:                   fee,
				BalanceChange:         balanceChange,
				Aborted:               tx.Aborted,
				Bounce:                tx.Bounce,
				MultisigTransactionID: tx.MultisigTransactionID,
			},
		}, nil

	case chainclient.MessageKindExternalIn:
		value := big.NewInt(0)
		for _, m := range tx.OutMessages {
			value.Add(value, parseBig(m.Value))
		}
		var errMsg string
		if tx.Aborted {
			errMsg = "aborted"
		}
		return &CaughtTonTransaction{
			Kind: KindUpdateSent,
			UpdateSent: &SendCompletion{
				MessageHash:           tx.InboundMessage.Hash,
				TransactionHash:       tx.TransactionHash,
				TransactionLt:         tx.Lt,
				Messages:              messages,
				Value:                 value,
				Fee:                   fee,
				BalanceChange:         balanceChange,
				Aborted:               tx.Aborted,
				Bounce:                tx.Bounce,
				Error:                 errMsg,
				MultisigTransactionID: tx.MultisigTransactionID,
			},
		}, nil

	default:
		return nil, ErrInvalidStructure
	}
}

// ParseToken classifies the jetton-wallet side of a transaction, when the
// account is a recognized token wallet contract. It returns (nil, nil) when
// the transaction carries no token action (e.g. a plain gas top-up), and
// database.ErrTokenNotWhitelisted when the token wallet's root is absent
// from the whitelist — per spec.md §4.6 the caller should log a warning and
// drop the event rather than treat this as fatal.
func ParseToken(ctx TxContext) (*CreateTokenTransaction, error) {
	if ctx.TokenWallet == nil {
		return nil, nil
	}
	action, ok := classifyTokenAction(ctx.Transaction)
	if !ok {
		return nil, nil
	}
	if !ctx.TokenWallet.IsWhitelisted {
		return nil, database.ErrTokenNotWhitelisted
	}

	tx := ctx.Transaction
	out := &CreateTokenTransaction{
		Action:               action,
		TransactionHash:      tx.TransactionHash,
		TransactionTimestamp: ctx.BlockGenUtime,
		AccountWorkchain:     ctx.Account.Workchain,
		AccountHex:           ctx.Account.Hex,
		RootAddress:          ctx.TokenWallet.RootAddress,
	}
	if tx.InboundMessage != nil {
		out.InMessageHash = tx.InboundMessage.Hash
		out.MessageHash = tx.InboundMessage.Hash
		out.Value = parseBig(tx.InboundMessage.Value)
		out.Payload = tx.InboundMessage.Body
	}

	switch action {
	case ActionIncomingTransfer:
		out.Direction = database.DirectionReceive
	case ActionAccept:
		out.Direction = database.DirectionReceive
	case ActionOutgoingTransfer, ActionSwapBack:
		out.Direction = database.DirectionSend
		if len(tx.OutMessages) > 0 {
			out.MessageHash = tx.OutMessages[0].Hash
			out.Value = parseBig(tx.OutMessages[0].Value)
		}
		// The join key toward the native Send row is this token wallet's own
		// *inbound* message hash (the owner's wallet sent it as an out-message),
		// not the hash of the message this transaction itself just emitted.
		out.OwnerMessageHash = out.InMessageHash
	case ActionTransferBounced, ActionSwapBackBounced:
		out.Direction = database.DirectionSend
	}

	return out, nil
}

// classifyTokenAction inspects the inbound message body's leading opcode
// to determine which jetton-wallet operation produced this transaction.
// Opcode values follow the standard jetton wallet ABI (TEP-74): the first
// 4 bytes of the message body are the operation selector.
func classifyTokenAction(tx chainclient.AccountTransaction) (TokenAction, bool) {
	if tx.InboundMessage == nil || len(tx.InboundMessage.Body) < 4 {
		return 0, false
	}
	op := opcodeOf(tx.InboundMessage.Body)
	switch op {
	case opTransfer:
		return ActionIncomingTransfer, true
	case opInternalTransfer:
		return ActionAccept, true
	case opTransferBounced:
		return ActionTransferBounced, true
	case opBurnBounced:
		return ActionSwapBackBounced, true
	case opBurnNotification:
		return ActionSwapBack, true
	default:
		if len(tx.OutMessages) > 0 {
			return ActionOutgoingTransfer, true
		}
		return 0, false
	}
}

const (
	opTransfer         uint32 = 0x0f8a7ea5
	opInternalTransfer uint32 = 0x178d4519
	opTransferBounced  uint32 = 0x7362d09c
	opBurnNotification uint32 = 0x7bdd97de
	opBurnBounced      uint32 = 0xbe4c3e5d
)

func opcodeOf(body []byte) uint32 {
	return uint32(body[0])<<24 | uint32(body[1])<<16 | uint32(body[2])<<8 | uint32(body[3])
}

func messagesOf(msgs []chainclient.MessageInfo) []database.MessageRef {
	out := make([]database.MessageRef, len(msgs))
	for i, m := range msgs {
		out[i] = database.MessageRef{Fee: m.Fee, Value: m.Value, Recipient: fmt.Sprintf("%d:%s", m.DestWorkchain, m.DestHex), MessageHash: m.Hash}
	}
	return out
}

func sumFees(parts ...string) *big.Int {
	total := big.NewInt(0)
	for _, p := range parts {
		total.Add(total, parseBig(p))
	}
	return total
}

func parseBig(s string) *big.Int {
	if s == "" {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}
