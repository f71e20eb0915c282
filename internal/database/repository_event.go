// Copyright 2025 Certen Protocol
//
// Transaction event repositories (C1, spec.md §3/§9 events + callback
// dispatch). Events are the units the C10 callback dispatcher drains.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventRepository struct {
	client *Client
}

func NewEventRepository(client *Client) *EventRepository {
	return &EventRepository{client: client}
}

type NewTransactionEvent struct {
	ServiceID            uuid.UUID
	ParentTransactionID  uuid.UUID
	MessageHash          string
	AccountWorkchain     int32
	AccountHex           string
	TransactionDirection TransactionDirection
	TransactionStatus    TransactionStatus
	BalanceChange        *string
}

func (r *EventRepository) CreateTransactionEvent(ctx context.Context, tx *Tx, in *NewTransactionEvent) (*TransactionEvent, error) {
	now := time.Now()
	e := &TransactionEvent{
		ID: uuid.New(), ServiceID: in.ServiceID, ParentTransactionID: in.ParentTransactionID,
		MessageHash: in.MessageHash, AccountWorkchain: in.AccountWorkchain, AccountHex: in.AccountHex,
		TransactionDirection: in.TransactionDirection, TransactionStatus: in.TransactionStatus,
		EventStatus: EventStatusNew, CreatedAt: now, UpdatedAt: now,
	}
	if in.BalanceChange != nil {
		e.BalanceChange = sql.NullString{String: *in.BalanceChange, Valid: true}
	}

	query := `INSERT INTO transaction_events (
		id, service_id, parent_transaction_id, message_hash, account_workchain_id, account_hex,
		transaction_direction, transaction_status, event_status, balance_change, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	exec := r.client.ExecContext
	args := []interface{}{
		e.ID, e.ServiceID, e.ParentTransactionID, e.MessageHash, e.AccountWorkchain, e.AccountHex,
		e.TransactionDirection, e.TransactionStatus, e.EventStatus, e.BalanceChange, e.CreatedAt, e.UpdatedAt,
	}
	var err error
	if tx != nil {
		_, err = tx.Raw().ExecContext(ctx, query, args...)
	} else {
		_, err = exec(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("create transaction event: %w", err)
	}
	return e, nil
}

const transactionEventColumns = `id, service_id, parent_transaction_id, message_hash,
	account_workchain_id, account_hex, transaction_direction, transaction_status, event_status,
	balance_change, created_at, updated_at`

func scanTransactionEvent(row interface{ Scan(...interface{}) error }) (*TransactionEvent, error) {
	e := &TransactionEvent{}
	err := row.Scan(
		&e.ID, &e.ServiceID, &e.ParentTransactionID, &e.MessageHash,
		&e.AccountWorkchain, &e.AccountHex, &e.TransactionDirection, &e.TransactionStatus, &e.EventStatus,
		&e.BalanceChange, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EventRepository) GetTransactionEvent(ctx context.Context, id uuid.UUID) (*TransactionEvent, error) {
	query := `SELECT ` + transactionEventColumns + ` FROM transaction_events WHERE id = $1`
	e, err := scanTransactionEvent(r.client.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction event: %w", err)
	}
	return e, nil
}

// ListNewTransactionEvents returns pending events for delivery, oldest first.
func (r *EventRepository) ListNewTransactionEvents(ctx context.Context, limit int) ([]*TransactionEvent, error) {
	query := `SELECT ` + transactionEventColumns + ` FROM transaction_events WHERE event_status = $1 ORDER BY created_at ASC LIMIT $2`
	rows, err := r.client.QueryContext(ctx, query, EventStatusNew, limit)
	if err != nil {
		return nil, fmt.Errorf("list new transaction events: %w", err)
	}
	defer rows.Close()

	var out []*TransactionEvent
	for rows.Next() {
		e, err := scanTransactionEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EventRepository) MarkTransactionEvent(ctx context.Context, id uuid.UUID, status EventStatus) error {
	query := `UPDATE transaction_events SET event_status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.client.ExecContext(ctx, query, id, status, time.Now()); err != nil {
		return fmt.Errorf("mark transaction event: %w", err)
	}
	return nil
}

// MarkAllTransactionEvents bulk-transitions every event belonging to a
// service that is still New to the given status. Events in any other
// status are left unchanged.
func (r *EventRepository) MarkAllTransactionEvents(ctx context.Context, serviceID uuid.UUID, status EventStatus) (int64, error) {
	query := `UPDATE transaction_events SET event_status = $2, updated_at = $3 WHERE service_id = $1 AND event_status = $4`
	res, err := r.client.ExecContext(ctx, query, serviceID, status, time.Now(), EventStatusNew)
	if err != nil {
		return 0, fmt.Errorf("mark all transaction events: %w", err)
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------------------------
// Token transaction events
// ---------------------------------------------------------------------------

type NewTokenTransactionEvent struct {
	ServiceID            uuid.UUID
	ParentTransactionID  uuid.UUID
	MessageHash          string
	AccountWorkchain     int32
	AccountHex           string
	RootAddress          string
	Value                string
	TransactionDirection TransactionDirection
	TransactionStatus    TokenTransactionStatus
}

func (r *EventRepository) CreateTokenTransactionEvent(ctx context.Context, in *NewTokenTransactionEvent) (*TokenTransactionEvent, error) {
	now := time.Now()
	e := &TokenTransactionEvent{
		ID: uuid.New(), ServiceID: in.ServiceID, ParentTransactionID: in.ParentTransactionID,
		MessageHash: in.MessageHash, AccountWorkchain: in.AccountWorkchain, AccountHex: in.AccountHex,
		RootAddress: in.RootAddress, Value: in.Value,
		TransactionDirection: in.TransactionDirection, TransactionStatus: in.TransactionStatus,
		EventStatus: EventStatusNew, CreatedAt: now, UpdatedAt: now,
	}

	query := `INSERT INTO token_transaction_events (
		id, service_id, parent_transaction_id, message_hash, account_workchain_id, account_hex,
		root_address, value, transaction_direction, transaction_status, event_status, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	_, err := r.client.ExecContext(ctx, query,
		e.ID, e.ServiceID, e.ParentTransactionID, e.MessageHash, e.AccountWorkchain, e.AccountHex,
		e.RootAddress, e.Value, e.TransactionDirection, e.TransactionStatus, e.EventStatus, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create token transaction event: %w", err)
	}
	return e, nil
}

const tokenTransactionEventColumns = `id, service_id, parent_transaction_id, message_hash,
	account_workchain_id, account_hex, root_address, value, transaction_direction, transaction_status,
	event_status, created_at, updated_at`

func scanTokenTransactionEvent(row interface{ Scan(...interface{}) error }) (*TokenTransactionEvent, error) {
	e := &TokenTransactionEvent{}
	err := row.Scan(
		&e.ID, &e.ServiceID, &e.ParentTransactionID, &e.MessageHash,
		&e.AccountWorkchain, &e.AccountHex, &e.RootAddress, &e.Value, &e.TransactionDirection, &e.TransactionStatus,
		&e.EventStatus, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EventRepository) GetTokenTransactionEvent(ctx context.Context, id uuid.UUID) (*TokenTransactionEvent, error) {
	query := `SELECT ` + tokenTransactionEventColumns + ` FROM token_transaction_events WHERE id = $1`
	e, err := scanTokenTransactionEvent(r.client.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token transaction event: %w", err)
	}
	return e, nil
}

func (r *EventRepository) ListNewTokenTransactionEvents(ctx context.Context, limit int) ([]*TokenTransactionEvent, error) {
	query := `SELECT ` + tokenTransactionEventColumns + ` FROM token_transaction_events WHERE event_status = $1 ORDER BY created_at ASC LIMIT $2`
	rows, err := r.client.QueryContext(ctx, query, EventStatusNew, limit)
	if err != nil {
		return nil, fmt.Errorf("list new token transaction events: %w", err)
	}
	defer rows.Close()

	var out []*TokenTransactionEvent
	for rows.Next() {
		e, err := scanTokenTransactionEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token transaction event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EventRepository) MarkTokenTransactionEvent(ctx context.Context, id uuid.UUID, status EventStatus) error {
	query := `UPDATE token_transaction_events SET event_status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.client.ExecContext(ctx, query, id, status, time.Now()); err != nil {
		return fmt.Errorf("mark token transaction event: %w", err)
	}
	return nil
}
