// Copyright 2025 Certen Protocol
//
// Sum types for the transaction parser (C5, spec.md §4.6, §9). The source
// system's deep inheritance hierarchy for observed-transaction kinds is
// replaced here by two closed sum types, each with an explicit Kind tag and
// one populated payload field per variant.
package txparser

import (
	"math/big"

	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/database"
)

// TxContext is everything C4 gathers about one observed transaction before
// handing it to the parser: the raw transaction plus enough chain state to
// resolve fees, counterparties, and (for multisig) the submit/confirm id.
type TxContext struct {
	Account        chainclient.AccountID
	AccountType    database.AccountType
	Transaction    chainclient.AccountTransaction
	State          *chainclient.AccountState
	BlockGenUtime  int64
	BlockHash      string

	// TokenWallet is non-nil when the account is a recognized jetton wallet
	// contract; RootAddress is its resolved root, and IsWhitelisted reports
	// whether that root appears in the token whitelist (spec.md §4.6: "the
	// root address is mandatory-whitelisted; if absent the event is
	// dropped").
	TokenWallet    *TokenWalletContext
}

type TokenWalletContext struct {
	RootAddress   string
	OwnerWorkchain int32
	OwnerHex      string
	IsWhitelisted bool
}

// CaughtTonTransactionKind tags which variant of CaughtTonTransaction is
// populated.
type CaughtTonTransactionKind int

const (
	KindCreate CaughtTonTransactionKind = iota
	KindUpdateSent
)

// CaughtTonTransaction is the parser's output for a native-currency
// transaction: either a brand new Receive row (Create) or the completion of
// a previously broadcast Send (UpdateSent).
type CaughtTonTransaction struct {
	Kind       CaughtTonTransactionKind
	Create     *ReceiveRow
	UpdateSent *SendCompletion
}

// ReceiveRow is the data needed to insert a new Transaction row with
// direction=Receive, status=Done.
type ReceiveRow struct {
	MessageHash           string
	TransactionHash       string
	TransactionLt         uint64
	SenderWorkchain       int32
	SenderHex             string
	AccountWorkchain      int32
	AccountHex            string
	Messages              []database.MessageRef
	Value                 *big.Int
	Fee                    *big.Int
	BalanceChange         *big.Int
	Aborted               bool
	Bounce                bool
	MultisigTransactionID *int64
}

// SendCompletion carries the chain-observed facts that complete a
// previously broadcast Send row, matched by message_hash.
type SendCompletion struct {
	MessageHash           string
	TransactionHash       string
	TransactionLt         uint64
	Messages              []database.MessageRef
	Value                 *big.Int
	Fee                   *big.Int
	BalanceChange         *big.Int
	Aborted               bool
	Bounce                bool
	Error                 string
	MultisigTransactionID *int64
}

// TokenAction tags the jetton-wallet operation a token transaction
// represents (spec.md §9).
type TokenAction int

const (
	ActionIncomingTransfer TokenAction = iota
	ActionAccept
	ActionOutgoingTransfer
	ActionSwapBack
	ActionTransferBounced
	ActionSwapBackBounced
)

// CreateTokenTransaction is the parser's output for a jetton-wallet
// transaction, tagged by the TokenAction that produced it.
type CreateTokenTransaction struct {
	Action             TokenAction
	MessageHash        string
	TransactionHash    string
	InMessageHash      string
	TransactionTimestamp int64
	AccountWorkchain   int32
	AccountHex         string
	Value              *big.Int
	RootAddress        string
	Payload            []byte
	Direction          database.TransactionDirection
	// OwnerMessageHash links a send-side echo back to the native out-message
	// that carried it (populated only for OutgoingTransfer/SwapBack).
	OwnerMessageHash   string
}

// ErrInvalidStructure is returned when the inbound message slot of an
// ordinary transaction is neither internal nor external-in (spec.md §4.6:
// "External-out in the inbound slot is ill-formed").
var ErrInvalidStructure = invalidStructureError{}

type invalidStructureError struct{}

func (invalidStructureError) Error() string { return "invalid transaction structure" }
