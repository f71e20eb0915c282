// Copyright 2025 Certen Protocol
//
// SafeMultisig builder (spec.md §4.2): forks on custodians > 1 — a
// "submit transaction" payload when true, a plain transfer when false.
// Contract state is not required. A separate builder confirms an existing
// pending multisig transaction by (address, multisig_transaction_id).

package walletmsg

import (
	"time"

	"github.com/tonvault/gateway/internal/chainclient"
)

func buildMultisigTransfer(req BuildRequest, now time.Time) (*UnsignedMessage, error) {
	if req.Custodians <= 0 {
		return nil, ErrCustodiansNotFound
	}

	output := req.Outputs[0]
	buf := make([]byte, 0, 192)
	exp := expiresAt(req, now)

	if req.Custodians > 1 {
		buf = appendString(buf, "multisig.submit")
		buf = appendUint32(buf, uint32(req.Sender.Workchain))
		buf = appendString(buf, req.Sender.Hex)
		buf = appendUint32(buf, uint32(now.UnixNano())) // proposal id, unique per submission
		buf = encodeOutputs(buf, req.Outputs)
		buf = appendBytes(buf, req.Body)
	} else {
		buf = appendString(buf, "multisig.transfer")
		buf = appendUint32(buf, uint32(req.Sender.Workchain))
		buf = appendString(buf, req.Sender.Hex)
		buf = appendUint32(buf, uint32(output.Recipient.Workchain))
		buf = appendString(buf, output.Recipient.Hex)
		buf = appendBigInt(buf, output.Amount)
		buf = appendBytes(buf, req.Body)
	}
	buf = appendUint64(buf, uint64(exp))

	return &UnsignedMessage{body: buf, expiresAt: exp, sender: req.Sender}, nil
}

// BuildConfirmation builds a confirmation for an existing pending multisig
// transaction. Unlike a transfer, this never requires outputs or contract
// state — only the sender address and the target transaction id.
func BuildConfirmation(sender chainclient.AccountID, multisigTransactionID int64, expireAfter time.Duration, now time.Time) *UnsignedMessage {
	d := expireAfter
	if d <= 0 {
		d = defaultExpiry
	}
	exp := now.Add(d).Unix()

	buf := make([]byte, 0, 96)
	buf = appendString(buf, "multisig.confirm")
	buf = appendUint32(buf, uint32(sender.Workchain))
	buf = appendString(buf, sender.Hex)
	buf = appendUint64(buf, uint64(multisigTransactionID))
	buf = appendUint64(buf, uint64(exp))

	return &UnsignedMessage{body: buf, expiresAt: exp, sender: sender}
}
