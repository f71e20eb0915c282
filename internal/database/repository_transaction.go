// Copyright 2025 Certen Protocol
//
// Native-currency transaction repository (C1, spec.md §3/§5 Transaction).
// Transactions are keyed by (service_id, message_hash, direction) so a send
// and its eventual receive-side echo never collide.

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TransactionRepository struct {
	client *Client
}

func NewTransactionRepository(client *Client) *TransactionRepository {
	return &TransactionRepository{client: client}
}

// NewTransaction is the input to CreateTransaction, issued at send time
// before the chain has confirmed anything.
type NewTransaction struct {
	ServiceID          uuid.UUID
	MessageHash        string
	TransactionTimeout *int64
	AccountWorkchain   int32
	AccountHex         string
	Messages           []MessageRef
	OriginalValue      *string
	OriginalOutputs    json.RawMessage
	Direction          TransactionDirection
	MultisigTransactionID *int64
}

func (r *TransactionRepository) CreateTransaction(ctx context.Context, in *NewTransaction) (*Transaction, error) {
	now := time.Now()
	t := &Transaction{
		ID: uuid.New(), ServiceID: in.ServiceID, MessageHash: in.MessageHash,
		AccountWorkchain: in.AccountWorkchain, AccountHex: in.AccountHex,
		Messages: in.Messages, OriginalOutputs: in.OriginalOutputs,
		Direction: in.Direction, Status: TransactionStatusNew,
		CreatedAt: now, UpdatedAt: now,
	}
	if in.TransactionTimeout != nil {
		t.TransactionTimeout = sql.NullInt64{Int64: *in.TransactionTimeout, Valid: true}
	}
	if in.OriginalValue != nil {
		t.OriginalValue = sql.NullString{String: *in.OriginalValue, Valid: true}
	}
	if in.MultisigTransactionID != nil {
		t.MultisigTransactionID = sql.NullInt64{Int64: *in.MultisigTransactionID, Valid: true}
	}

	messagesJSON, err := json.Marshal(in.Messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}

	query := `INSERT INTO transactions (
		id, service_id, message_hash, transaction_timeout, account_workchain_id, account_hex,
		messages, original_value, original_outputs, direction, status, multisig_transaction_id,
		created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err = r.client.ExecContext(ctx, query,
		t.ID, t.ServiceID, t.MessageHash, t.TransactionTimeout, t.AccountWorkchain, t.AccountHex,
		messagesJSON, t.OriginalValue, []byte(t.OriginalOutputs), t.Direction, t.Status, t.MultisigTransactionID,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

const transactionColumns = `id, service_id, message_hash, transaction_hash, transaction_lt,
	transaction_timeout, transaction_scan_lt, sender_workchain_id, sender_hex,
	account_workchain_id, account_hex, messages, original_value, original_outputs,
	value, fee, balance_change, direction, status, error, aborted, bounce,
	multisig_transaction_id, created_at, updated_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (*Transaction, error) {
	t := &Transaction{}
	var messagesRaw []byte
	err := row.Scan(
		&t.ID, &t.ServiceID, &t.MessageHash, &t.TransactionHash, &t.TransactionLt,
		&t.TransactionTimeout, &t.TransactionScanLt, &t.SenderWorkchain, &t.SenderHex,
		&t.AccountWorkchain, &t.AccountHex, &messagesRaw, &t.OriginalValue, &t.OriginalOutputs,
		&t.Value, &t.Fee, &t.BalanceChange, &t.Direction, &t.Status, &t.Error, &t.Aborted, &t.Bounce,
		&t.MultisigTransactionID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(messagesRaw) > 0 {
		if err := json.Unmarshal(messagesRaw, &t.Messages); err != nil {
			return nil, fmt.Errorf("decode messages: %w", err)
		}
	}
	return t, nil
}

func (r *TransactionRepository) GetTransactionByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	t, err := scanTransaction(r.client.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// GetTransactionByTransactionHash finds a transaction by its on-chain
// transaction hash, set once C4/C5 observe the message landing in a block.
func (r *TransactionRepository) GetTransactionByTransactionHash(ctx context.Context, serviceID uuid.UUID, transactionHash string) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE service_id = $1 AND transaction_hash = $2`
	t, err := scanTransaction(r.client.QueryRowContext(ctx, query, serviceID, transactionHash))
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by transaction hash: %w", err)
	}
	return t, nil
}

// GetTransactionByMessageHash finds the transaction matching the given
// message hash and direction. Backs the by-message-hash transaction lookup
// of the HTTP surface.
func (r *TransactionRepository) GetTransactionByMessageHash(ctx context.Context, serviceID uuid.UUID, messageHash string, direction TransactionDirection) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE service_id = $1 AND message_hash = $2 AND direction = $3`
	t, err := scanTransaction(r.client.QueryRowContext(ctx, query, serviceID, messageHash, direction))
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by message hash: %w", err)
	}
	return t, nil
}

// GetTransactionByOutMessageHash finds the Send transaction whose *out*-message
// hash matches the given hash, the join a token wallet's observer needs to
// reach the native Send that carried its jetton instruction, since the token
// wallet's own inbound message hash equals that out-message's hash, not the
// native row's own top-level message_hash (spec.md §3 TokenTransaction
// invariant).
func (r *TransactionRepository) GetTransactionByOutMessageHash(ctx context.Context, serviceID uuid.UUID, outMessageHash string, direction TransactionDirection) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE service_id = $1 AND direction = $2
		AND messages @> $3::jsonb`
	needle, err := json.Marshal([]map[string]string{{"messageHash": outMessageHash}})
	if err != nil {
		return nil, fmt.Errorf("marshal out-message hash needle: %w", err)
	}
	t, err := scanTransaction(r.client.QueryRowContext(ctx, query, serviceID, direction, []byte(needle)))
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by out-message hash: %w", err)
	}
	return t, nil
}

// GetTransactionByMessageHashForUpdate locks the row until tx ends, so
// concurrent send-completion writes for the same message are serialized.
// The expiry path in orchestration reads the row by id and does not take
// this lock.
func (r *TransactionRepository) GetTransactionByMessageHashForUpdate(ctx context.Context, tx *Tx, serviceID uuid.UUID, messageHash string, direction TransactionDirection) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE service_id = $1 AND message_hash = $2 AND direction = $3 FOR UPDATE`
	t, err := scanTransaction(tx.Raw().QueryRowContext(ctx, query, serviceID, messageHash, direction))
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction for update: %w", err)
	}
	return t, nil
}

// Confirmation carries the on-chain facts the subscriber learns once a
// message lands in a block, to be merged onto the pending transaction row.
type Confirmation struct {
	TransactionHash   string
	TransactionLt     string
	TransactionScanLt int64
	SenderWorkchain   *int32
	SenderHex         *string
	Value             *string
	Fee               *string
	BalanceChange     *string
	Status            TransactionStatus
	Error             *string
	Aborted           bool
	Bounce            bool
}

// ApplyConfirmation merges chain-observed facts onto a transaction row
// within the caller's transaction (see GetTransactionByMessageHashForUpdate).
func (r *TransactionRepository) ApplyConfirmation(ctx context.Context, tx *Tx, id uuid.UUID, c *Confirmation) error {
	var senderWc sql.NullInt32
	var senderHex, value, fee, balanceChange, errStr sql.NullString
	if c.SenderWorkchain != nil {
		senderWc = sql.NullInt32{Int32: *c.SenderWorkchain, Valid: true}
	}
	if c.SenderHex != nil {
		senderHex = sql.NullString{String: *c.SenderHex, Valid: true}
	}
	if c.Value != nil {
		value = sql.NullString{String: *c.Value, Valid: true}
	}
	if c.Fee != nil {
		fee = sql.NullString{String: *c.Fee, Valid: true}
	}
	if c.BalanceChange != nil {
		balanceChange = sql.NullString{String: *c.BalanceChange, Valid: true}
	}
	if c.Error != nil {
		errStr = sql.NullString{String: *c.Error, Valid: true}
	}

	query := `UPDATE transactions SET
		transaction_hash = $2, transaction_lt = $3, transaction_scan_lt = $4,
		sender_workchain_id = $5, sender_hex = $6, value = $7, fee = $8, balance_change = $9,
		status = $10, error = $11, aborted = $12, bounce = $13, updated_at = $14
		WHERE id = $1`

	_, err := tx.Raw().ExecContext(ctx, query,
		id, c.TransactionHash, c.TransactionLt, c.TransactionScanLt,
		senderWc, senderHex, value, fee, balanceChange,
		c.Status, errStr, c.Aborted, c.Bounce, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("apply confirmation: %w", err)
	}
	return nil
}

func (r *TransactionRepository) ListTransactionsByAddress(ctx context.Context, serviceID uuid.UUID, workchain int32, hex string, limit, offset int) ([]*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE service_id = $1 AND account_workchain_id = $2 AND account_hex = $3
		ORDER BY created_at DESC LIMIT $4 OFFSET $5`
	rows, err := r.client.QueryContext(ctx, query, serviceID, workchain, hex, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
