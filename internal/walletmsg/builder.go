// Copyright 2025 Certen Protocol
//
// Wallet message builder (C6, spec.md §4.2). Produces unsigned message
// payloads for the three wallet families and token operations.
//
// Message bodies are assembled as a canonical, deterministic byte encoding
// rather than a hand-rolled TON cell/BOC writer — the wire-level cell ABI
// is the "build function call body" primitive the specification scopes out
// (spec.md §1 Out of scope); this package owns the domain logic of what
// goes into that body (which fields, in which order, under which contract
// family) and leaves actual cell serialization to the chain node bridge
// when the signed message is broadcast.
package walletmsg

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/database"
)

// Output is one recipient of a send (spec.md §4.2 "outputs").
type Output struct {
	Recipient chainclient.AccountID
	Amount    *big.Int
	Bounce    bool
}

// BuildRequest is the common input to every account-type builder.
type BuildRequest struct {
	Sender      chainclient.AccountID
	AccountType database.AccountType
	PublicKey   ed25519.PublicKey
	Outputs     []Output
	Body        []byte // optional attached payload cell
	ExpireAfter time.Duration

	// State is the sender's current on-chain state, required for
	// HighloadWallet (rolling query id) and Wallet v3 (seqno). Nil is
	// valid for SafeMultisig, which does not require it.
	State *chainclient.AccountState

	// Custodians is required when AccountType == SafeMultisig.
	Custodians int32
}

const defaultExpiry = 60 * time.Second

// UnsignedMessage is produced by a Build* call: it exposes its hash and
// expiry so the caller can register a C3 waiter before the caller's
// external signature arrives, and a Sign finalizer once it does.
type UnsignedMessage struct {
	body      []byte
	expiresAt int64
	sender    chainclient.AccountID
}

func (m *UnsignedMessage) Hash() [32]byte   { return sha256.Sum256(m.body) }
func (m *UnsignedMessage) HashHex() string  { h := m.Hash(); return fmt.Sprintf("%x", h) }
func (m *UnsignedMessage) ExpiresAt() int64 { return m.expiresAt }
func (m *UnsignedMessage) Sender() chainclient.AccountID { return m.sender }

// SignedMessage is the result of applying a 64-byte Ed25519 signature to an
// UnsignedMessage.
type SignedMessage struct {
	Boc       []byte
	Hash      [32]byte
	ExpiresAt int64
}

// Sign finalizes an unsigned message with a caller-supplied signature.
// sig must be exactly 64 bytes (spec.md §7: "signature length != 64" is a
// WrongInput case, enforced by the caller before invoking Sign).
func (m *UnsignedMessage) Sign(sig []byte) (*SignedMessage, error) {
	if len(sig) != ed25519.SignatureSize {
		return nil, ParseBigUintError{Input: fmt.Sprintf("signature length %d", len(sig))}
	}
	boc := make([]byte, 0, len(sig)+len(m.body))
	boc = append(boc, sig...)
	boc = append(boc, m.body...)
	return &SignedMessage{Boc: boc, Hash: sha256.Sum256(boc), ExpiresAt: m.expiresAt}, nil
}

func expiresAt(req BuildRequest, now time.Time) int64 {
	d := req.ExpireAfter
	if d <= 0 {
		d = defaultExpiry
	}
	return now.Add(d).Unix()
}

// encodeOutputs is the shared canonical encoding for a list of outputs:
// count, then per-output (workchain, hex address, amount, bounce flag).
func encodeOutputs(buf []byte, outputs []Output) []byte {
	buf = appendUint32(buf, uint32(len(outputs)))
	for _, o := range outputs {
		buf = appendUint32(buf, uint32(o.Recipient.Workchain))
		buf = appendString(buf, o.Recipient.Hex)
		buf = appendBigInt(buf, o.Amount)
		if o.Bounce {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	return buf
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendBigInt(buf []byte, v *big.Int) []byte {
	if v == nil {
		v = big.NewInt(0)
	}
	b := v.Bytes()
	buf = appendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func appendBytes(buf []byte, b []byte) []byte {
	buf = appendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

// Build dispatches to the correct account-type builder (spec.md §4.2).
func Build(req BuildRequest, now time.Time) (*UnsignedMessage, error) {
	if len(req.Outputs) == 0 {
		return nil, ParseBigDecimalError{Input: "outputs: empty"}
	}
	for _, o := range req.Outputs {
		if o.Amount == nil || o.Amount.Sign() <= 0 {
			return nil, ParseBigDecimalError{Input: o.Amount.String()}
		}
	}

	switch req.AccountType {
	case database.AccountTypeHighloadWallet:
		return buildHighload(req, now)
	case database.AccountTypeWallet:
		return buildWalletV3(req, now)
	case database.AccountTypeSafeMultisig:
		return buildMultisigTransfer(req, now)
	default:
		return nil, InvalidAccountType{AccountType: string(req.AccountType), Operation: "build"}
	}
}
