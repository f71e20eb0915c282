// Copyright 2025 Certen Protocol

package walletmsg

import (
	"math/big"
	"testing"
	"time"

	"github.com/tonvault/gateway/internal/chainclient"
)

func TestTokenWalletAddressIsDeterministic(t *testing.T) {
	owner := chainclient.AccountID{Workchain: 0, Hex: "owner-hex"}
	a := TokenWalletAddress("root-a", owner)
	b := TokenWalletAddress("root-a", owner)
	if a != b {
		t.Error("expected same (root, owner) to derive the same token wallet address")
	}

	c := TokenWalletAddress("root-b", owner)
	if a == c {
		t.Error("expected different roots to derive different token wallet addresses")
	}
}

func TestBuildTokenTransferDefaultsGasRecipientToOwner(t *testing.T) {
	owner := chainclient.AccountID{Workchain: 0, Hex: "owner-hex"}
	req := TokenTransferRequest{
		Owner:       owner,
		RootAddress: "root-a",
		Destination: chainclient.AccountID{Workchain: 0, Hex: "dest-hex"},
		Amount:      big.NewInt(1_000_000_000),
		GasAmount:   big.NewInt(50_000_000),
	}
	msg := BuildTokenTransfer(req, time.Minute, fixedNow)

	if msg.Sender() != owner {
		t.Errorf("expected message sender to be the real owner account, got %+v", msg.Sender())
	}
	if msg.ExpiresAt() != fixedNow.Add(time.Minute).Unix() {
		t.Errorf("expiry mismatch: got %d", msg.ExpiresAt())
	}
}

func TestBuildTokenTransferHonorsExplicitGasRecipient(t *testing.T) {
	owner := chainclient.AccountID{Workchain: 0, Hex: "owner-hex"}
	other := chainclient.AccountID{Workchain: 0, Hex: "other-hex"}
	base := TokenTransferRequest{
		Owner:       owner,
		RootAddress: "root-a",
		Destination: chainclient.AccountID{Workchain: 0, Hex: "dest-hex"},
		Amount:      big.NewInt(1_000_000_000),
		GasAmount:   big.NewInt(50_000_000),
	}
	withOwnerGas := base
	withOtherGas := base
	withOtherGas.SendGasTo = &other

	msgOwnerGas := BuildTokenTransfer(withOwnerGas, time.Minute, fixedNow)
	msgOtherGas := BuildTokenTransfer(withOtherGas, time.Minute, fixedNow)

	if msgOwnerGas.HashHex() == msgOtherGas.HashHex() {
		t.Error("expected different gas recipients to produce different message bodies")
	}
}

func TestBuildTokenBurnUsesResponseAddress(t *testing.T) {
	owner := chainclient.AccountID{Workchain: 0, Hex: "owner-hex"}
	req := TokenBurnRequest{
		Owner:           owner,
		RootAddress:     "root-a",
		Amount:          big.NewInt(500),
		GasAmount:       big.NewInt(10),
		ResponseAddress: chainclient.AccountID{Workchain: 0, Hex: "callback-hex"},
	}
	msg := BuildTokenBurn(req, time.Minute, fixedNow)
	if msg.Sender() != owner {
		t.Errorf("expected burn sender to be the real owner account, got %+v", msg.Sender())
	}
}

func TestBuildTokenMintSenderIsRootNotOwner(t *testing.T) {
	root := chainclient.AccountID{Workchain: -1, Hex: "root-hex"}
	req := TokenMintRequest{
		RootAddress: root,
		Destination: chainclient.AccountID{Workchain: 0, Hex: "dest-hex"},
		Amount:      big.NewInt(1000),
		GasAmount:   big.NewInt(10),
	}
	msg := BuildTokenMint(req, time.Minute, fixedNow)
	if msg.Sender() != root {
		t.Errorf("expected mint sender to be the root contract, got %+v", msg.Sender())
	}
}
