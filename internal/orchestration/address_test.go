// Copyright 2025 Certen Protocol

package orchestration

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/tonvault/gateway/internal/apierr"
	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/cryptoutil"
	"github.com/tonvault/gateway/internal/database"
	"github.com/tonvault/gateway/internal/pending"
	"github.com/tonvault/gateway/internal/subscriber"
)

// fakeChain is a no-op ChainClient sufficient to construct a Subscriber
// for orchestration tests that never need to observe real blocks.
type fakeChain struct{}

func (fakeChain) GetContractState(ctx context.Context, account chainclient.AccountID) (*chainclient.AccountState, error) {
	return nil, chainclient.ErrAccountNotFound
}
func (fakeChain) BroadcastExternalMessage(ctx context.Context, account chainclient.AccountID, boc []byte) (*chainclient.BroadcastResult, error) {
	return &chainclient.BroadcastResult{Accepted: true}, nil
}
func (fakeChain) CurrentUTime() int64 { return 0 }
func (fakeChain) Subscribe(onMasterchain func(chainclient.MasterchainBlock), onShard func(chainclient.ShardBlock), onTransactions func(chainclient.ShardBlock, []chainclient.AccountTransaction)) func() {
	return func() {}
}
func (fakeChain) Close() error { return nil }

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	client := database.NewClientForTesting(db)
	repos := database.NewRepositories(client)
	sub := subscriber.New(fakeChain{}, pending.NewQueue())
	ks, err := cryptoutil.NewKeyStore(make([]byte, chacha20poly1305.KeySize))
	require.NoError(t, err)

	svc := New(Config{
		DB: client, Repos: repos, Chain: fakeChain{}, Subscriber: sub,
		Pending: pending.NewQueue(), KeyStore: ks,
		Logger: log.New(io.Discard, "", 0),
	})
	return svc, mock
}

func TestCreateAddressRejectsMultisigWithoutConfirmations(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateAddress(context.Background(), uuid.New(), CreateAddressRequest{
		AccountType:   database.AccountTypeSafeMultisig,
		Confirmations: 0,
	})
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindWrongInput, apiErr.Kind)
}

func TestCreateAddressRejectsCustodiansOnSingleSignerType(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateAddress(context.Background(), uuid.New(), CreateAddressRequest{
		AccountType:          database.AccountTypeWallet,
		CustodiansPublicKeys: []string{"k1"},
	})
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindWrongInput, apiErr.Kind)
}

func TestCreateAddressWalletPersistsWithNullCustodianFields(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("INSERT INTO addresses").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT root_address, name, version, cached_contract_state FROM token_whitelist").
		WillReturnRows(sqlmock.NewRows([]string{"root_address", "name", "version", "cached_contract_state"}))

	addr, err := svc.CreateAddress(context.Background(), uuid.New(), CreateAddressRequest{
		Workchain:   0,
		AccountType: database.AccountTypeWallet,
	})
	require.NoError(t, err)
	assert.False(t, addr.Custodians.Valid)
	assert.False(t, addr.Confirmations.Valid)
	assert.Empty(t, addr.CustodiansPublicKeys)
	assert.Equal(t, database.AccountStatusUnInit, addr.AccountStatus)
}

func TestCreateAddressMultisigAppendsServerPublicKey(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("INSERT INTO addresses").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT root_address, name, version, cached_contract_state FROM token_whitelist").
		WillReturnRows(sqlmock.NewRows([]string{"root_address", "name", "version", "cached_contract_state"}))

	addr, err := svc.CreateAddress(context.Background(), uuid.New(), CreateAddressRequest{
		Workchain:            0,
		AccountType:          database.AccountTypeSafeMultisig,
		Confirmations:        2,
		CustodiansPublicKeys: []string{"custodian-a", "custodian-b"},
	})
	require.NoError(t, err)
	require.True(t, addr.Custodians.Valid)
	assert.EqualValues(t, 3, addr.Custodians.Int32) // 2 supplied + the server-held key
	assert.Len(t, addr.CustodiansPublicKeys, 3)
	assert.Equal(t, "custodian-a", addr.CustodiansPublicKeys[0])
	assert.Equal(t, "custodian-b", addr.CustodiansPublicKeys[1])
	assert.True(t, addr.Confirmations.Valid)
	assert.EqualValues(t, 2, addr.Confirmations.Int32)
}

func TestGetAddressRejectsOtherServicesAddress(t *testing.T) {
	svc, mock := newTestService(t)

	owner := uuid.New()
	requester := uuid.New()
	addrID := uuid.New()
	mockTime := time.Now()

	rows := sqlmock.NewRows(
		[]string{"id", "service_id", "workchain_id", "hex_address", "base64url_address", "public_key",
			"encrypted_private_key", "account_type", "account_status", "custodians", "confirmations",
			"custodians_public_keys", "balance", "created_at", "updated_at"},
	).AddRow(addrID, owner, int32(0), "hex", "packed", "pub", []byte(nil),
		database.AccountTypeWallet, database.AccountStatusActive, nil, nil, []byte(nil), "0",
		mockTime, mockTime)

	mock.ExpectQuery("SELECT (.+) FROM addresses WHERE workchain_id = \\$1 AND hex_address = \\$2").
		WithArgs(int32(0), "hex").
		WillReturnRows(rows)

	_, err := svc.GetAddress(context.Background(), requester, 0, "hex")
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindNotFound, apiErr.Kind)
}
