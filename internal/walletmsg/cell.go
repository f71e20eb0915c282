// Copyright 2025 Certen Protocol
//
// Generic cell field encoding (spec.md §6 POST /encode-into-cell). Exposed
// for callers that need the same canonical byte encoding C6 uses
// internally without going through a full message builder — e.g. building
// a custom forward payload for a token transfer.

package walletmsg

import "github.com/tonvault/gateway/internal/chainclient"

// CellFieldKind selects how CellField.Value is interpreted.
type CellFieldKind string

const (
	CellFieldUint   CellFieldKind = "uint"
	CellFieldInt    CellFieldKind = "int"
	CellFieldBytes  CellFieldKind = "bytes"
	CellFieldString CellFieldKind = "string"
	CellFieldAddr   CellFieldKind = "address"
)

// CellField is one value to append to an encoded cell.
type CellField struct {
	Kind    CellFieldKind
	Uint    uint64
	Bytes   []byte
	Str     string
	Address chainclient.AccountID
}

// EncodeCell appends each field to a canonical byte body in order, the
// same convention BuildRequest bodies use (length-prefixed strings/bytes,
// big-endian fixed-width integers).
func EncodeCell(fields []CellField) []byte {
	var buf []byte
	for _, f := range fields {
		switch f.Kind {
		case CellFieldUint, CellFieldInt:
			buf = appendUint64(buf, f.Uint)
		case CellFieldBytes:
			buf = appendBytes(buf, f.Bytes)
		case CellFieldString:
			buf = appendString(buf, f.Str)
		case CellFieldAddr:
			buf = appendUint32(buf, uint32(f.Address.Workchain))
			buf = appendString(buf, f.Address.Hex)
		}
	}
	return buf
}
