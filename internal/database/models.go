// Copyright 2025 Certen Protocol
//
// Database Types for the TON wallet gateway.
// These map directly onto the tables in migrations/0001_init.sql and mirror
// the original source's (original_source/src/models/*.rs) field names, with
// camelCase JSON tags for the HTTP wire format.

package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// ENUMS
// ============================================================================

type AccountType string

const (
	AccountTypeHighloadWallet AccountType = "HighloadWallet"
	AccountTypeWallet         AccountType = "Wallet"
	AccountTypeSafeMultisig   AccountType = "SafeMultisig"
)

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "Active"
	AccountStatusUnInit AccountStatus = "UnInit"
)

type TransactionStatus string

const (
	TransactionStatusNew           TransactionStatus = "New"
	TransactionStatusDone          TransactionStatus = "Done"
	TransactionStatusPartiallyDone TransactionStatus = "PartiallyDone"
	TransactionStatusError         TransactionStatus = "Error"
)

type TokenTransactionStatus string

const (
	TokenTransactionStatusNew   TokenTransactionStatus = "New"
	TokenTransactionStatusDone  TokenTransactionStatus = "Done"
	TokenTransactionStatusError TokenTransactionStatus = "Error"
)

type EventStatus string

const (
	EventStatusNew      EventStatus = "New"
	EventStatusNotified EventStatus = "Notified"
	EventStatusError    EventStatus = "Error"
)

type TransactionDirection string

const (
	DirectionSend    TransactionDirection = "Send"
	DirectionReceive TransactionDirection = "Receive"
)

// ============================================================================
// SERVICE / KEY
// ============================================================================

// Service is a client tenant of the gateway.
type Service struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// KeyWhitelist restricts what an ApiKey credential may be used for.
type KeyWhitelist struct {
	SourceIPs         []string `json:"sourceIps,omitempty"`
	RecipientAddresses []string `json:"recipientAddresses,omitempty"`
}

// ApiKey is an HMAC credential belonging to a Service.
type ApiKey struct {
	ID        uuid.UUID     `json:"id"`
	ServiceID uuid.UUID     `json:"serviceId"`
	Key       string        `json:"key"`
	Secret    string        `json:"-"`
	Whitelist *KeyWhitelist `json:"whitelist,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

func (k *ApiKey) scanWhitelist(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	k.Whitelist = &KeyWhitelist{}
	return json.Unmarshal(raw, k.Whitelist)
}

// ============================================================================
// ADDRESS
// ============================================================================

// Address is a custodial account managed on behalf of a Service.
type Address struct {
	ID                   uuid.UUID       `json:"id"`
	ServiceID            uuid.UUID       `json:"-"`
	Workchain            int32           `json:"workchainId"`
	HexAddress           string          `json:"hex"`
	Base64URLAddress     string          `json:"base64url"`
	PublicKey            string          `json:"publicKey"`
	EncryptedPrivateKey  []byte          `json:"-"`
	AccountType          AccountType     `json:"accountType"`
	AccountStatus        AccountStatus   `json:"accountStatus"`
	Custodians           sql.NullInt32   `json:"custodians,omitempty"`
	Confirmations        sql.NullInt32   `json:"confirmations,omitempty"`
	CustodiansPublicKeys []string        `json:"custodiansPublicKeys,omitempty"`
	Balance              string          `json:"balance"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

func (a *Address) scanCustodiansPublicKeys(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, &a.CustodiansPublicKeys)
}

// ============================================================================
// TRANSACTION (native currency)
// ============================================================================

type MessageRef struct {
	Fee           string `json:"fee"`
	Value         string `json:"value"`
	Recipient     string `json:"recipient"`
	MessageHash   string `json:"messageHash"`
}

// Transaction is a native-currency transaction row.
type Transaction struct {
	ID                    uuid.UUID            `json:"id"`
	ServiceID             uuid.UUID            `json:"-"`
	MessageHash           string               `json:"messageHash"`
	TransactionHash       sql.NullString       `json:"transactionHash,omitempty"`
	TransactionLt         sql.NullString       `json:"transactionLt,omitempty"`
	TransactionTimeout    sql.NullInt64        `json:"transactionTimeout,omitempty"`
	TransactionScanLt     sql.NullInt64        `json:"transactionScanLt,omitempty"`
	SenderWorkchain       sql.NullInt32        `json:"-"`
	SenderHex             sql.NullString       `json:"-"`
	AccountWorkchain      int32                `json:"accountWorkchainId"`
	AccountHex            string               `json:"accountHex"`
	Messages              []MessageRef        `json:"messages,omitempty"`
	OriginalValue         sql.NullString       `json:"originalValue,omitempty"`
	OriginalOutputs       json.RawMessage      `json:"originalOutputs,omitempty"`
	Value                 sql.NullString       `json:"value,omitempty"`
	Fee                   sql.NullString       `json:"fee,omitempty"`
	BalanceChange         sql.NullString       `json:"balanceChange,omitempty"`
	Direction             TransactionDirection `json:"direction"`
	Status                TransactionStatus    `json:"status"`
	Error                 sql.NullString       `json:"error,omitempty"`
	Aborted               bool                 `json:"aborted"`
	Bounce                bool                 `json:"bounce"`
	MultisigTransactionID sql.NullInt64        `json:"multisigTransactionId,omitempty"`
	CreatedAt             time.Time            `json:"createdAt"`
	UpdatedAt             time.Time            `json:"updatedAt"`
}

// Sender returns the sender address in workchain:hex form, if known.
func (t *Transaction) Sender() (int32, string, bool) {
	if !t.SenderHex.Valid {
		return 0, "", false
	}
	wc := int32(0)
	if t.SenderWorkchain.Valid {
		wc = t.SenderWorkchain.Int32
	}
	return wc, t.SenderHex.String, true
}

// ============================================================================
// TOKEN TRANSACTION
// ============================================================================

type TokenTransaction struct {
	ID                 uuid.UUID              `json:"id"`
	ServiceID          uuid.UUID              `json:"-"`
	TransactionHash    sql.NullString         `json:"transactionHash,omitempty"`
	TransactionTimestamp int64                `json:"transactionTimestamp"`
	MessageHash        string                 `json:"messageHash"`
	OwnerMessageHash   sql.NullString         `json:"ownerMessageHash,omitempty"`
	AccountWorkchain   int32                  `json:"accountWorkchainId"`
	AccountHex         string                 `json:"accountHex"`
	Value              string                 `json:"value"`
	RootAddress        string                 `json:"rootAddress"`
	Payload            []byte                 `json:"payload,omitempty"`
	Error              sql.NullString         `json:"error,omitempty"`
	BlockHash          sql.NullString         `json:"blockHash,omitempty"`
	BlockTime          sql.NullInt32          `json:"blockTime,omitempty"`
	Direction          TransactionDirection   `json:"direction"`
	Status             TokenTransactionStatus `json:"status"`
	InMessageHash      sql.NullString         `json:"inMessageHash,omitempty"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

// ============================================================================
// EVENTS
// ============================================================================

type TransactionEvent struct {
	ID                  uuid.UUID            `json:"id"`
	ServiceID           uuid.UUID            `json:"-"`
	ParentTransactionID uuid.UUID            `json:"transactionId"`
	MessageHash         string               `json:"messageHash"`
	AccountWorkchain    int32                `json:"-"`
	AccountHex          string               `json:"-"`
	TransactionDirection TransactionDirection `json:"transactionDirection"`
	TransactionStatus   TransactionStatus    `json:"transactionStatus"`
	EventStatus         EventStatus          `json:"eventStatus"`
	BalanceChange       sql.NullString       `json:"balanceChange,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

type TokenTransactionEvent struct {
	ID                   uuid.UUID              `json:"id"`
	ServiceID            uuid.UUID              `json:"-"`
	ParentTransactionID  uuid.UUID              `json:"transactionId"`
	MessageHash          string                 `json:"messageHash"`
	AccountWorkchain     int32                  `json:"-"`
	AccountHex           string                 `json:"-"`
	RootAddress          string                 `json:"rootAddress"`
	Value                string                 `json:"value"`
	TransactionDirection TransactionDirection   `json:"transactionDirection"`
	TransactionStatus    TokenTransactionStatus `json:"transactionStatus"`
	EventStatus          EventStatus            `json:"eventStatus"`
	CreatedAt            time.Time              `json:"createdAt"`
	UpdatedAt            time.Time              `json:"updatedAt"`
}

// ============================================================================
// TOKEN WHITELIST
// ============================================================================

type TokenWhitelist struct {
	RootAddress         string `json:"rootAddress"`
	Name                string `json:"name"`
	Version             int32  `json:"version"`
	CachedContractState []byte `json:"-"`
}

// ============================================================================
// CALLBACK URL
// ============================================================================

type CallbackURL struct {
	ServiceID uuid.UUID `json:"serviceId"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
}

// ============================================================================
// LAST KEY BLOCK
// ============================================================================

type LastKeyBlock struct {
	BlockID string `json:"blockId"`
}

// ============================================================================
// TOKEN OWNER CACHE (supplemented feature, original_source/src/models/owners_cache.rs)
// ============================================================================

type TokenOwner struct {
	TokenWalletAddress string    `json:"tokenWalletAddress"`
	OwnerWorkchain     int32     `json:"ownerWorkchainId"`
	OwnerHex           string    `json:"ownerHex"`
	RootAddress        string    `json:"rootAddress"`
	CodeHash           string    `json:"codeHash"`
	CreatedAt          time.Time `json:"createdAt"`
}
