// Copyright 2025 Certen Protocol
//
// Wallet v3 builder (spec.md §4.2): requires current contract state for
// seqno estimation; exactly one output is used for send (the first),
// excess outputs are ignored here but recorded by the caller in
// original_outputs.

package walletmsg

import "time"

func buildWalletV3(req BuildRequest, now time.Time) (*UnsignedMessage, error) {
	if req.State == nil || !req.State.Deployed {
		return nil, AccountNotDeployed{Address: req.Sender.Hex}
	}

	seqno := uint32(req.State.LastTxLt)
	output := req.Outputs[0]

	buf := make([]byte, 0, 192)
	buf = appendString(buf, "wallet.v3r2")
	buf = appendUint32(buf, uint32(req.Sender.Workchain))
	buf = appendString(buf, req.Sender.Hex)
	buf = appendUint32(buf, seqno)
	buf = appendUint32(buf, uint32(output.Recipient.Workchain))
	buf = appendString(buf, output.Recipient.Hex)
	buf = appendBigInt(buf, output.Amount)
	buf = appendBytes(buf, req.Body)
	exp := expiresAt(req, now)
	buf = appendUint64(buf, uint64(exp))

	return &UnsignedMessage{body: buf, expiresAt: exp, sender: req.Sender}, nil
}
