// Copyright 2025 Certen Protocol
//
// Unit tests for AddressRepository, isolated from a real PostgreSQL
// instance via go-sqlmock (driver-level fake backing a real *sql.DB).

package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Client{db: db}, mock
}

func addressRow(a *Address) *sqlmock.Rows {
	return sqlmock.NewRows(
		[]string{"id", "service_id", "workchain_id", "hex_address", "base64url_address", "public_key",
			"encrypted_private_key", "account_type", "account_status", "custodians", "confirmations",
			"custodians_public_keys", "balance", "created_at", "updated_at"},
	).AddRow(
		a.ID, a.ServiceID, a.Workchain, a.HexAddress, a.Base64URLAddress, a.PublicKey,
		a.EncryptedPrivateKey, a.AccountType, a.AccountStatus, a.Custodians, a.Confirmations,
		[]byte(nil), a.Balance, a.CreatedAt, a.UpdatedAt,
	)
}

func TestCreateAddressInsertsRowAndFillsDefaults(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewAddressRepository(client)

	id := uuid.New()
	serviceID := uuid.New()
	mock.ExpectExec("INSERT INTO addresses").WithArgs(
		id, serviceID, int32(0), "abc", "packed", "pubkey",
		sqlmock.AnyArg(), AccountTypeWallet, AccountStatusUnInit, sqlmock.AnyArg(), sqlmock.AnyArg(),
		sqlmock.AnyArg(), "0", sqlmock.AnyArg(), sqlmock.AnyArg(),
	).WillReturnResult(sqlmock.NewResult(1, 1))

	addr, err := repo.CreateAddress(context.Background(), &NewAddress{
		ID: id, ServiceID: serviceID, Workchain: 0, HexAddress: "abc",
		Base64URLAddress: "packed", PublicKey: "pubkey",
		AccountType: AccountTypeWallet, AccountStatus: AccountStatusUnInit,
	})
	require.NoError(t, err)
	assert.Equal(t, "0", addr.Balance)
	assert.False(t, addr.Custodians.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAddressMultisigSetsCustodiansAndConfirmations(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewAddressRepository(client)

	id := uuid.New()
	serviceID := uuid.New()
	custodians := int32(3)
	confirmations := int32(2)

	mock.ExpectExec("INSERT INTO addresses").WillReturnResult(sqlmock.NewResult(1, 1))

	addr, err := repo.CreateAddress(context.Background(), &NewAddress{
		ID: id, ServiceID: serviceID, Workchain: 0, HexAddress: "abc",
		Base64URLAddress: "packed", PublicKey: "pubkey",
		AccountType: AccountTypeSafeMultisig, AccountStatus: AccountStatusUnInit,
		Custodians: &custodians, Confirmations: &confirmations,
		CustodiansPublicKeys: []string{"k1", "k2", "k3"},
	})
	require.NoError(t, err)
	assert.True(t, addr.Custodians.Valid)
	assert.EqualValues(t, 3, addr.Custodians.Int32)
	assert.True(t, addr.Confirmations.Valid)
	assert.EqualValues(t, 2, addr.Confirmations.Int32)
	assert.Equal(t, []string{"k1", "k2", "k3"}, addr.CustodiansPublicKeys)
}

func TestGetAddressByIDReturnsNotFoundOnNoRows(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewAddressRepository(client)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM addresses WHERE id = \\$1").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetAddressByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestGetAddressByIDReturnsRow(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewAddressRepository(client)

	now := time.Now()
	want := &Address{
		ID: uuid.New(), ServiceID: uuid.New(), Workchain: 0,
		HexAddress: "abc", Base64URLAddress: "packed", PublicKey: "pubkey",
		AccountType: AccountTypeWallet, AccountStatus: AccountStatusActive,
		Balance: "1500000000", CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectQuery("SELECT (.+) FROM addresses WHERE id = \\$1").
		WithArgs(want.ID).
		WillReturnRows(addressRow(want))

	got, err := repo.GetAddressByID(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Balance, got.Balance)
	assert.Equal(t, want.AccountType, got.AccountType)
}

func TestGetAddressByWorkchainHexQueriesCorrectColumns(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewAddressRepository(client)

	want := &Address{
		ID: uuid.New(), ServiceID: uuid.New(), Workchain: -1,
		HexAddress: "masterchain-hex", Base64URLAddress: "packed",
		AccountType: AccountTypeHighloadWallet, AccountStatus: AccountStatusActive,
		Balance: "0", CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	mock.ExpectQuery("SELECT (.+) FROM addresses WHERE workchain_id = \\$1 AND hex_address = \\$2").
		WithArgs(int32(-1), "masterchain-hex").
		WillReturnRows(addressRow(want))

	got, err := repo.GetAddressByWorkchainHex(context.Background(), -1, "masterchain-hex")
	require.NoError(t, err)
	assert.Equal(t, want.HexAddress, got.HexAddress)
}

func TestListAllAddressesScansEveryRow(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewAddressRepository(client)

	a1 := &Address{ID: uuid.New(), ServiceID: uuid.New(), HexAddress: "a1", AccountType: AccountTypeWallet, Balance: "0", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	a2 := &Address{ID: uuid.New(), ServiceID: uuid.New(), HexAddress: "a2", AccountType: AccountTypeWallet, Balance: "0", CreatedAt: time.Now(), UpdatedAt: time.Now()}

	rows := sqlmock.NewRows(
		[]string{"id", "service_id", "workchain_id", "hex_address", "base64url_address", "public_key",
			"encrypted_private_key", "account_type", "account_status", "custodians", "confirmations",
			"custodians_public_keys", "balance", "created_at", "updated_at"},
	)
	for _, a := range []*Address{a1, a2} {
		rows.AddRow(a.ID, a.ServiceID, a.Workchain, a.HexAddress, a.Base64URLAddress, a.PublicKey,
			a.EncryptedPrivateKey, a.AccountType, a.AccountStatus, a.Custodians, a.Confirmations,
			[]byte(nil), a.Balance, a.CreatedAt, a.UpdatedAt)
	}

	mock.ExpectQuery("SELECT (.+) FROM addresses ORDER BY created_at ASC").WillReturnRows(rows)

	out, err := repo.ListAllAddresses(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a1", out[0].HexAddress)
	assert.Equal(t, "a2", out[1].HexAddress)
}

func TestUpdateBalanceExecutesUpdate(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewAddressRepository(client)

	id := uuid.New()
	mock.ExpectExec("UPDATE addresses SET balance").
		WithArgs(id, "2000000000", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateBalance(context.Background(), nil, id, "2000000000")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
