// Copyright 2025 Certen Protocol
//
// Jetton (TON token) transaction repository (C1, spec.md §3/§5 TokenTransaction).

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TokenTransactionRepository struct {
	client *Client
}

func NewTokenTransactionRepository(client *Client) *TokenTransactionRepository {
	return &TokenTransactionRepository{client: client}
}

type NewTokenTransaction struct {
	ServiceID            uuid.UUID
	TransactionTimestamp int64
	MessageHash          string
	OwnerMessageHash      *string
	AccountWorkchain     int32
	AccountHex           string
	Value                string
	RootAddress          string
	Payload              []byte
	Direction            TransactionDirection
}

func (r *TokenTransactionRepository) CreateTokenTransaction(ctx context.Context, in *NewTokenTransaction) (*TokenTransaction, error) {
	now := time.Now()
	t := &TokenTransaction{
		ID: uuid.New(), ServiceID: in.ServiceID, TransactionTimestamp: in.TransactionTimestamp,
		MessageHash: in.MessageHash, AccountWorkchain: in.AccountWorkchain, AccountHex: in.AccountHex,
		Value: in.Value, RootAddress: in.RootAddress, Payload: in.Payload,
		Direction: in.Direction, Status: TokenTransactionStatusNew,
		CreatedAt: now, UpdatedAt: now,
	}
	if in.OwnerMessageHash != nil {
		t.OwnerMessageHash = sql.NullString{String: *in.OwnerMessageHash, Valid: true}
	}

	query := `INSERT INTO token_transactions (
		id, service_id, transaction_timestamp, message_hash, owner_message_hash,
		account_workchain_id, account_hex, value, root_address, payload, direction, status,
		created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err := r.client.ExecContext(ctx, query,
		t.ID, t.ServiceID, t.TransactionTimestamp, t.MessageHash, t.OwnerMessageHash,
		t.AccountWorkchain, t.AccountHex, t.Value, t.RootAddress, t.Payload, t.Direction, t.Status,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create token transaction: %w", err)
	}
	return t, nil
}

const tokenTransactionColumns = `id, service_id, transaction_hash, transaction_timestamp, message_hash,
	owner_message_hash, account_workchain_id, account_hex, value, root_address, payload, error,
	block_hash, block_time, direction, status, in_message_hash, created_at, updated_at`

func scanTokenTransaction(row interface{ Scan(...interface{}) error }) (*TokenTransaction, error) {
	t := &TokenTransaction{}
	err := row.Scan(
		&t.ID, &t.ServiceID, &t.TransactionHash, &t.TransactionTimestamp, &t.MessageHash,
		&t.OwnerMessageHash, &t.AccountWorkchain, &t.AccountHex, &t.Value, &t.RootAddress, &t.Payload, &t.Error,
		&t.BlockHash, &t.BlockTime, &t.Direction, &t.Status, &t.InMessageHash, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TokenTransactionRepository) GetTokenTransactionByID(ctx context.Context, id uuid.UUID) (*TokenTransaction, error) {
	query := `SELECT ` + tokenTransactionColumns + ` FROM token_transactions WHERE id = $1`
	t, err := scanTokenTransaction(r.client.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrTokenTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token transaction: %w", err)
	}
	return t, nil
}

// GetTokenTransactionByOwnerMessageHash finds the jetton-wallet-side
// transaction originating from a given owner-initiated out-message, used to
// join a token transfer back to the native message that carried it.
func (r *TokenTransactionRepository) GetTokenTransactionByOwnerMessageHash(ctx context.Context, serviceID uuid.UUID, ownerMessageHash string) (*TokenTransaction, error) {
	query := `SELECT ` + tokenTransactionColumns + ` FROM token_transactions WHERE service_id = $1 AND owner_message_hash = $2`
	t, err := scanTokenTransaction(r.client.QueryRowContext(ctx, query, serviceID, ownerMessageHash))
	if err == sql.ErrNoRows {
		return nil, ErrTokenTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token transaction by owner message hash: %w", err)
	}
	return t, nil
}

// ApplyTokenConfirmation merges chain-observed facts onto a token
// transaction row once its carrying message is confirmed.
type TokenConfirmation struct {
	TransactionHash string
	BlockHash       string
	BlockTime       int32
	Status          TokenTransactionStatus
	Error           *string
	InMessageHash   *string
}

func (r *TokenTransactionRepository) ApplyTokenConfirmation(ctx context.Context, id uuid.UUID, c *TokenConfirmation) error {
	var errStr, inMsgHash sql.NullString
	if c.Error != nil {
		errStr = sql.NullString{String: *c.Error, Valid: true}
	}
	if c.InMessageHash != nil {
		inMsgHash = sql.NullString{String: *c.InMessageHash, Valid: true}
	}

	query := `UPDATE token_transactions SET
		transaction_hash = $2, block_hash = $3, block_time = $4, status = $5, error = $6,
		in_message_hash = $7, updated_at = $8
		WHERE id = $1`
	_, err := r.client.ExecContext(ctx, query,
		id, c.TransactionHash, c.BlockHash, c.BlockTime, c.Status, errStr, inMsgHash, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("apply token confirmation: %w", err)
	}
	return nil
}

func (r *TokenTransactionRepository) ListTokenTransactionsByAddress(ctx context.Context, serviceID uuid.UUID, workchain int32, hex string, limit, offset int) ([]*TokenTransaction, error) {
	query := `SELECT ` + tokenTransactionColumns + ` FROM token_transactions
		WHERE service_id = $1 AND account_workchain_id = $2 AND account_hex = $3
		ORDER BY created_at DESC LIMIT $4 OFFSET $5`
	rows, err := r.client.QueryContext(ctx, query, serviceID, workchain, hex, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list token transactions: %w", err)
	}
	defer rows.Close()

	var out []*TokenTransaction
	for rows.Next() {
		t, err := scanTokenTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
