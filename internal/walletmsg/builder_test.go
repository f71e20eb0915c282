// Copyright 2025 Certen Protocol

package walletmsg

import (
	"math/big"
	"testing"
	"time"

	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/database"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func testOutput(amount int64) Output {
	return Output{
		Recipient: chainclient.AccountID{Workchain: 0, Hex: "recipient-hex"},
		Amount:    big.NewInt(amount),
	}
}

func deployedState() *chainclient.AccountState {
	return &chainclient.AccountState{Deployed: true, LastTxLt: 42}
}

func TestBuildRejectsEmptyOutputs(t *testing.T) {
	req := BuildRequest{
		Sender:      chainclient.AccountID{Workchain: 0, Hex: "sender"},
		AccountType: database.AccountTypeWallet,
		State:       deployedState(),
	}
	if _, err := Build(req, fixedNow); err == nil {
		t.Error("expected error for empty outputs")
	}
}

func TestBuildRejectsNonPositiveAmount(t *testing.T) {
	req := BuildRequest{
		Sender:      chainclient.AccountID{Workchain: 0, Hex: "sender"},
		AccountType: database.AccountTypeWallet,
		State:       deployedState(),
		Outputs:     []Output{testOutput(0)},
	}
	if _, err := Build(req, fixedNow); err == nil {
		t.Error("expected error for zero-value output")
	}
}

func TestBuildRejectsUnknownAccountType(t *testing.T) {
	req := BuildRequest{
		Sender:      chainclient.AccountID{Workchain: 0, Hex: "sender"},
		AccountType: database.AccountType("Unknown"),
		Outputs:     []Output{testOutput(100)},
	}
	_, err := Build(req, fixedNow)
	if _, ok := err.(InvalidAccountType); !ok {
		t.Errorf("expected InvalidAccountType, got %T: %v", err, err)
	}
}

func TestBuildWalletV3RequiresDeployedState(t *testing.T) {
	req := BuildRequest{
		Sender:      chainclient.AccountID{Workchain: 0, Hex: "sender"},
		AccountType: database.AccountTypeWallet,
		Outputs:     []Output{testOutput(100)},
	}
	_, err := Build(req, fixedNow)
	if _, ok := err.(AccountNotDeployed); !ok {
		t.Errorf("expected AccountNotDeployed, got %T: %v", err, err)
	}
}

func TestBuildWalletV3UsesOnlyFirstOutput(t *testing.T) {
	req := BuildRequest{
		Sender:      chainclient.AccountID{Workchain: 0, Hex: "sender"},
		AccountType: database.AccountTypeWallet,
		State:       deployedState(),
		Outputs:     []Output{testOutput(100), testOutput(200)},
	}
	msg, err := Build(req, fixedNow)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if msg.Sender().Hex != "sender" {
		t.Errorf("sender mismatch: got %s", msg.Sender().Hex)
	}
	if msg.ExpiresAt() != fixedNow.Add(defaultExpiry).Unix() {
		t.Errorf("expiry mismatch: got %d", msg.ExpiresAt())
	}

	firstOnly := req
	firstOnly.Outputs = req.Outputs[:1]
	firstMsg, err := Build(firstOnly, fixedNow)
	if err != nil {
		t.Fatalf("build with first output only failed: %v", err)
	}
	if msg.HashHex() != firstMsg.HashHex() {
		t.Error("expected outputs after the first to be left out of the message body")
	}
}

func TestBuildHighloadRequiresDeployedState(t *testing.T) {
	req := BuildRequest{
		Sender:      chainclient.AccountID{Workchain: 0, Hex: "sender"},
		AccountType: database.AccountTypeHighloadWallet,
		Outputs:     []Output{testOutput(100)},
	}
	_, err := Build(req, fixedNow)
	if _, ok := err.(AccountNotDeployed); !ok {
		t.Errorf("expected AccountNotDeployed, got %T: %v", err, err)
	}
}

func TestBuildHighloadSupportsManyOutputs(t *testing.T) {
	req := BuildRequest{
		Sender:      chainclient.AccountID{Workchain: 0, Hex: "sender"},
		AccountType: database.AccountTypeHighloadWallet,
		State:       deployedState(),
		Outputs:     []Output{testOutput(100), testOutput(200), testOutput(300)},
	}
	msg, err := Build(req, fixedNow)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if msg == nil {
		t.Fatal("expected non-nil message")
	}
}

func TestBuildMultisigRequiresCustodians(t *testing.T) {
	req := BuildRequest{
		Sender:      chainclient.AccountID{Workchain: 0, Hex: "sender"},
		AccountType: database.AccountTypeSafeMultisig,
		Outputs:     []Output{testOutput(100)},
		Custodians:  0,
	}
	if _, err := Build(req, fixedNow); err != ErrCustodiansNotFound {
		t.Errorf("expected ErrCustodiansNotFound, got %v", err)
	}
}

func TestBuildMultisigDoesNotRequireState(t *testing.T) {
	req := BuildRequest{
		Sender:      chainclient.AccountID{Workchain: 0, Hex: "sender"},
		AccountType: database.AccountTypeSafeMultisig,
		Outputs:     []Output{testOutput(100)},
		Custodians:  1,
	}
	if _, err := Build(req, fixedNow); err != nil {
		t.Fatalf("expected single-custodian multisig build to succeed without state, got %v", err)
	}
}

func TestBuildMultisigForksOnCustodianCount(t *testing.T) {
	single := BuildRequest{
		Sender:      chainclient.AccountID{Workchain: 0, Hex: "sender"},
		AccountType: database.AccountTypeSafeMultisig,
		Outputs:     []Output{testOutput(100)},
		Custodians:  1,
	}
	multi := single
	multi.Custodians = 3

	singleMsg, err := Build(single, fixedNow)
	if err != nil {
		t.Fatalf("single-custodian build failed: %v", err)
	}
	multiMsg, err := Build(multi, fixedNow)
	if err != nil {
		t.Fatalf("multi-custodian build failed: %v", err)
	}
	if singleMsg.HashHex() == multiMsg.HashHex() {
		t.Error("expected different encodings for transfer vs. submit paths")
	}
}

func TestSignRejectsWrongSignatureLength(t *testing.T) {
	req := BuildRequest{
		Sender:      chainclient.AccountID{Workchain: 0, Hex: "sender"},
		AccountType: database.AccountTypeSafeMultisig,
		Outputs:     []Output{testOutput(100)},
		Custodians:  1,
	}
	msg, err := Build(req, fixedNow)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if _, err := msg.Sign(make([]byte, 10)); err == nil {
		t.Error("expected error for wrong-length signature")
	}
}

func TestSignProducesStableHash(t *testing.T) {
	req := BuildRequest{
		Sender:      chainclient.AccountID{Workchain: 0, Hex: "sender"},
		AccountType: database.AccountTypeSafeMultisig,
		Outputs:     []Output{testOutput(100)},
		Custodians:  1,
	}
	msg, err := Build(req, fixedNow)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	sig := make([]byte, 64)
	signed1, err := msg.Sign(sig)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	signed2, err := msg.Sign(sig)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if signed1.Hash != signed2.Hash {
		t.Error("expected signing the same message twice to produce the same hash")
	}
	if signed1.ExpiresAt != msg.ExpiresAt() {
		t.Error("expected signed message to carry the unsigned message's expiry")
	}
}

func TestBuildConfirmationDoesNotRequireOutputs(t *testing.T) {
	sender := chainclient.AccountID{Workchain: 0, Hex: "sender"}
	msg := BuildConfirmation(sender, 7, time.Minute, fixedNow)
	if msg.Sender().Hex != "sender" {
		t.Errorf("sender mismatch: got %s", msg.Sender().Hex)
	}
	if msg.ExpiresAt() != fixedNow.Add(time.Minute).Unix() {
		t.Errorf("expiry mismatch: got %d", msg.ExpiresAt())
	}
}

func TestBuildUsesDefaultExpiryWhenUnset(t *testing.T) {
	sender := chainclient.AccountID{Workchain: 0, Hex: "sender"}
	msg := BuildConfirmation(sender, 1, 0, fixedNow)
	if msg.ExpiresAt() != fixedNow.Add(defaultExpiry).Unix() {
		t.Errorf("expected default expiry, got %d", msg.ExpiresAt())
	}
}
