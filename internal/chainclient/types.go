// Copyright 2025 Certen Protocol
//
// Wire types returned by the lite-server JSON-RPC bridge (C2, spec.md §4.5).

package chainclient

import "math/big"

// AccountID identifies an account by its standard (workchain, hex) address.
type AccountID struct {
	Workchain int32
	Hex       string
}

// AccountState is the subset of get_contract_state the builder and parser
// need: current balance, last transaction pointer, and the raw data/code
// cells used to estimate seqno / query-id for HighloadWallet and Wallet v3.
type AccountState struct {
	Workchain      int32
	Hex            string
	Balance        *big.Int
	LastTxHash     string
	LastTxLt       uint64
	Deployed       bool
	DataBoc        []byte
	CodeBoc        []byte
	GenUtime       int64
}

// BroadcastResult is returned by broadcast_external_message.
type BroadcastResult struct {
	MessageHash string
	Accepted    bool
}

// MasterchainBlock carries the fields C4 needs from a masterchain block
// notification: its gen_utime (the system's chain-time clock) and whether
// it is a key block (resume anchor, spec.md §3 LastKeyBlock).
type MasterchainBlock struct {
	BlockID  string
	SeqNo    uint64
	GenUtime int64
	KeyBlock bool
}

// ShardBlock carries a shard block and the accounts whose transactions
// changed within it, in the order the subscriber should walk them.
type ShardBlock struct {
	BlockID   string
	Workchain int32
	SeqNo     uint64
	GenUtime  int64
	Accounts  []AccountID
}

// AccountTransaction is one transaction entry from a shard block's
// account-block tree, in logical-time order for its account. The bridge
// node is responsible for decoding the transaction cell; the gateway only
// consumes the parsed ordinary-description fields below (wire ABI decoding
// is treated as a primitive the chain node provides, not re-implemented
// here).
type AccountTransaction struct {
	Account         AccountID
	TransactionHash string
	Lt              uint64

	InboundMessage  *MessageInfo
	OutMessages     []MessageInfo
	StorageFee      string
	ComputeFee      string
	ActionFee       string
	BalanceChange   string
	Aborted         bool
	Bounce          bool

	// Present only when the inbound message body was recognized as a
	// multisig submit/confirm call.
	MultisigTransactionID *int64
}

// MessageKind distinguishes how a message entered or left a transaction.
type MessageKind string

const (
	MessageKindInternal    MessageKind = "internal"
	MessageKindExternalIn  MessageKind = "external_in"
	MessageKindExternalOut MessageKind = "external_out"
)

// MessageInfo is a decoded message attached to a transaction, either the
// single inbound message or one of possibly several out-messages.
type MessageInfo struct {
	Kind              MessageKind
	Hash              string
	Value             string
	Fee               string
	SourceWorkchain   int32
	SourceHex         string
	DestWorkchain     int32
	DestHex           string
	Body              []byte
}
