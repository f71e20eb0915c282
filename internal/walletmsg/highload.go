// Copyright 2025 Certen Protocol
//
// HighloadWallet builder (spec.md §4.2): requires current on-chain contract
// state for the rolling query id, and supports many outputs per message.

package walletmsg

import "time"

func buildHighload(req BuildRequest, now time.Time) (*UnsignedMessage, error) {
	if req.State == nil || !req.State.Deployed {
		return nil, AccountNotDeployed{Address: req.Sender.Hex}
	}

	queryID := nextQueryID(req.State.LastTxLt, now)

	buf := make([]byte, 0, 256)
	buf = appendString(buf, "highload.v2")
	buf = appendUint32(buf, uint32(req.Sender.Workchain))
	buf = appendString(buf, req.Sender.Hex)
	buf = appendUint64(buf, queryID)
	buf = encodeOutputs(buf, req.Outputs)
	buf = appendBytes(buf, req.Body)
	exp := expiresAt(req, now)
	buf = appendUint64(buf, uint64(exp))

	return &UnsignedMessage{body: buf, expiresAt: exp, sender: req.Sender}, nil
}

// nextQueryID derives the rolling query id from the account's last known
// logical time and the current wall clock, per the highload wallet's
// (shift, timestamp-bound) query-id scheme.
func nextQueryID(lastLt uint64, now time.Time) uint64 {
	shift := uint64(now.Unix()) << 32
	return shift | (lastLt & 0xffffffff)
}
