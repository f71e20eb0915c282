// Copyright 2025 Certen Protocol
//
// Address repository — custodial account CRUD (C1, spec.md §3 Address).

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AddressRepository struct {
	client *Client
}

func NewAddressRepository(client *Client) *AddressRepository {
	return &AddressRepository{client: client}
}

// NewAddress is the input to CreateAddress.
type NewAddress struct {
	ID                   uuid.UUID
	ServiceID            uuid.UUID
	Workchain            int32
	HexAddress           string
	Base64URLAddress     string
	PublicKey            string
	EncryptedPrivateKey  []byte
	AccountType          AccountType
	AccountStatus        AccountStatus
	Custodians           *int32
	Confirmations        *int32
	CustodiansPublicKeys []string
}

func (r *AddressRepository) CreateAddress(ctx context.Context, in *NewAddress) (*Address, error) {
	now := time.Now()
	a := &Address{
		ID: in.ID, ServiceID: in.ServiceID, Workchain: in.Workchain,
		HexAddress: in.HexAddress, Base64URLAddress: in.Base64URLAddress,
		PublicKey: in.PublicKey, EncryptedPrivateKey: in.EncryptedPrivateKey,
		AccountType: in.AccountType, AccountStatus: in.AccountStatus,
		Balance: "0", CreatedAt: now, UpdatedAt: now,
	}
	if in.Custodians != nil {
		a.Custodians = sql.NullInt32{Int32: *in.Custodians, Valid: true}
	}
	if in.Confirmations != nil {
		a.Confirmations = sql.NullInt32{Int32: *in.Confirmations, Valid: true}
	}
	a.CustodiansPublicKeys = in.CustodiansPublicKeys

	var custodiansPubKeysJSON []byte
	if len(in.CustodiansPublicKeys) > 0 {
		var err error
		custodiansPubKeysJSON, err = json.Marshal(in.CustodiansPublicKeys)
		if err != nil {
			return nil, fmt.Errorf("marshal custodians public keys: %w", err)
		}
	}

	query := `INSERT INTO addresses (
		id, service_id, workchain_id, hex_address, base64url_address, public_key,
		encrypted_private_key, account_type, account_status, custodians, confirmations,
		custodians_public_keys, balance, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	_, err := r.client.ExecContext(ctx, query,
		a.ID, a.ServiceID, a.Workchain, a.HexAddress, a.Base64URLAddress, a.PublicKey,
		a.EncryptedPrivateKey, a.AccountType, a.AccountStatus, a.Custodians, a.Confirmations,
		custodiansPubKeysJSON, a.Balance, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create address: %w", err)
	}
	return a, nil
}

const addressColumns = `id, service_id, workchain_id, hex_address, base64url_address, public_key,
	encrypted_private_key, account_type, account_status, custodians, confirmations,
	custodians_public_keys, balance, created_at, updated_at`

func scanAddress(row interface{ Scan(...interface{}) error }) (*Address, error) {
	a := &Address{}
	var custodiansPubKeysRaw []byte
	err := row.Scan(
		&a.ID, &a.ServiceID, &a.Workchain, &a.HexAddress, &a.Base64URLAddress, &a.PublicKey,
		&a.EncryptedPrivateKey, &a.AccountType, &a.AccountStatus, &a.Custodians, &a.Confirmations,
		&custodiansPubKeysRaw, &a.Balance, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := a.scanCustodiansPublicKeys(custodiansPubKeysRaw); err != nil {
		return nil, fmt.Errorf("decode custodians public keys: %w", err)
	}
	return a, nil
}

func (r *AddressRepository) GetAddressByID(ctx context.Context, id uuid.UUID) (*Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1`
	a, err := scanAddress(r.client.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	return a, nil
}

func (r *AddressRepository) GetAddressByWorkchainHex(ctx context.Context, workchain int32, hex string) (*Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE workchain_id = $1 AND hex_address = $2`
	a, err := scanAddress(r.client.QueryRowContext(ctx, query, workchain, hex))
	if err == sql.ErrNoRows {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get address by workchain/hex: %w", err)
	}
	return a, nil
}

// GetAddressForUpdate locks the address row for the duration of the caller's
// transaction; used when applying a balance/status change that must not
// race a concurrent observation.
func (r *AddressRepository) GetAddressForUpdate(ctx context.Context, tx *Tx, workchain int32, hex string) (*Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE workchain_id = $1 AND hex_address = $2 FOR UPDATE`
	a, err := scanAddress(tx.Raw().QueryRowContext(ctx, query, workchain, hex))
	if err == sql.ErrNoRows {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get address for update: %w", err)
	}
	return a, nil
}

func (r *AddressRepository) ListAddressesByService(ctx context.Context, serviceID uuid.UUID, limit, offset int) ([]*Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE service_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.client.QueryContext(ctx, query, serviceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	var out []*Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAllAddresses returns every address across every service, for C4
// subscription resume after a process restart.
func (r *AddressRepository) ListAllAddresses(ctx context.Context) ([]*Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses ORDER BY created_at ASC`
	rows, err := r.client.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all addresses: %w", err)
	}
	defer rows.Close()

	var out []*Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateBalance sets an address's cached balance (maintained by the chain
// subscriber as transactions are observed).
func (r *AddressRepository) UpdateBalance(ctx context.Context, tx *Tx, addressID uuid.UUID, balance string) error {
	query := `UPDATE addresses SET balance = $2, updated_at = $3 WHERE id = $1`
	execer := r.client.ExecContext
	var err error
	if tx != nil {
		_, err = tx.Raw().ExecContext(ctx, query, addressID, balance, time.Now())
	} else {
		_, err = execer(ctx, query, addressID, balance, time.Now())
	}
	if err != nil {
		return fmt.Errorf("update address balance: %w", err)
	}
	return nil
}

// UpdateAccountStatus transitions an address between UnInit and Active
// (observed once the account's first transaction appears on-chain).
func (r *AddressRepository) UpdateAccountStatus(ctx context.Context, addressID uuid.UUID, status AccountStatus) error {
	query := `UPDATE addresses SET account_status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.client.ExecContext(ctx, query, addressID, status, time.Now()); err != nil {
		return fmt.Errorf("update account status: %w", err)
	}
	return nil
}
