// Copyright 2025 Certen Protocol
//
// Token (jetton) operation body builder (spec.md §4.2). The message body
// targets the owner's token wallet contract, derived deterministically from
// the root and owner (see TokenWalletAddress), but the message itself is
// broadcast and signed from the owner's own custodial account; the token
// wallet address is never a real externally-signable account. An attached
// TON amount covers execution gas; the "send-gas-to" address defaults to
// the owner.

package walletmsg

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"time"

	"github.com/tonvault/gateway/internal/chainclient"
)

// TokenWalletAddress derives a jetton wallet's address from its root and
// owner. Real TON state-init derivation hashes a contract's code+data
// cell; this package treats that derivation as the same assumed chain
// primitive as cell encoding (spec.md §1 Out of scope) and exposes the
// canonical (root, owner) binding as a stable, deterministic identifier
// the chain node bridge resolves to the actual on-chain address.
func TokenWalletAddress(rootAddress string, owner chainclient.AccountID) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("jetton-wallet:%s:%d:%s", rootAddress, owner.Workchain, owner.Hex)))
	return fmt.Sprintf("%x", h)
}

// TokenTransferRequest builds a jetton transfer body, sent to the owner's
// own token wallet (spec.md §4.2: "transfer (to owner-address variant with
// deploy-grams, or to token-wallet variant)").
type TokenTransferRequest struct {
	Owner        chainclient.AccountID
	RootAddress  string
	Destination  chainclient.AccountID
	Amount       *big.Int
	GasAmount    *big.Int
	ForwardBody  []byte
	SendGasTo    *chainclient.AccountID
}

func BuildTokenTransfer(req TokenTransferRequest, expireAfter time.Duration, now time.Time) *UnsignedMessage {
	gasRecipient := req.Owner
	if req.SendGasTo != nil {
		gasRecipient = *req.SendGasTo
	}

	buf := make([]byte, 0, 256)
	buf = appendString(buf, "jetton.transfer")
	buf = appendString(buf, req.RootAddress)
	buf = appendUint32(buf, uint32(req.Owner.Workchain))
	buf = appendString(buf, req.Owner.Hex)
	buf = appendUint32(buf, uint32(req.Destination.Workchain))
	buf = appendString(buf, req.Destination.Hex)
	buf = appendBigInt(buf, req.Amount)
	buf = appendBigInt(buf, req.GasAmount)
	buf = appendUint32(buf, uint32(gasRecipient.Workchain))
	buf = appendString(buf, gasRecipient.Hex)
	buf = appendBytes(buf, req.ForwardBody)

	d := expireAfter
	if d <= 0 {
		d = defaultExpiry
	}
	exp := now.Add(d).Unix()
	buf = appendUint64(buf, uint64(exp))

	return &UnsignedMessage{body: buf, expiresAt: exp, sender: req.Owner}
}

// TokenBurnRequest builds a jetton burn body with a callback recipient.
type TokenBurnRequest struct {
	Owner           chainclient.AccountID
	RootAddress     string
	Amount          *big.Int
	GasAmount       *big.Int
	ResponseAddress chainclient.AccountID
}

func BuildTokenBurn(req TokenBurnRequest, expireAfter time.Duration, now time.Time) *UnsignedMessage {
	buf := make([]byte, 0, 192)
	buf = appendString(buf, "jetton.burn")
	buf = appendString(buf, req.RootAddress)
	buf = appendUint32(buf, uint32(req.Owner.Workchain))
	buf = appendString(buf, req.Owner.Hex)
	buf = appendBigInt(buf, req.Amount)
	buf = appendBigInt(buf, req.GasAmount)
	buf = appendUint32(buf, uint32(req.ResponseAddress.Workchain))
	buf = appendString(buf, req.ResponseAddress.Hex)

	d := expireAfter
	if d <= 0 {
		d = defaultExpiry
	}
	exp := now.Add(d).Unix()
	buf = appendUint64(buf, uint64(exp))

	return &UnsignedMessage{body: buf, expiresAt: exp, sender: req.Owner}
}

// TokenMintRequest builds a jetton mint body. The sender is the root
// contract itself, not the owner (spec.md §4.2: "mint (from root; source
// is root, not owner)").
type TokenMintRequest struct {
	RootAddress chainclient.AccountID
	Destination chainclient.AccountID
	Amount      *big.Int
	GasAmount   *big.Int
}

func BuildTokenMint(req TokenMintRequest, expireAfter time.Duration, now time.Time) *UnsignedMessage {
	buf := make([]byte, 0, 160)
	buf = appendString(buf, "jetton.mint")
	buf = appendUint32(buf, uint32(req.RootAddress.Workchain))
	buf = appendString(buf, req.RootAddress.Hex)
	buf = appendUint32(buf, uint32(req.Destination.Workchain))
	buf = appendString(buf, req.Destination.Hex)
	buf = appendBigInt(buf, req.Amount)
	buf = appendBigInt(buf, req.GasAmount)

	d := expireAfter
	if d <= 0 {
		d = defaultExpiry
	}
	exp := now.Add(d).Unix()
	buf = appendUint64(buf, uint64(exp))

	return &UnsignedMessage{body: buf, expiresAt: exp, sender: req.RootAddress}
}
