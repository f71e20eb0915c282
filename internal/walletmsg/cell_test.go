// Copyright 2025 Certen Protocol

package walletmsg

import (
	"testing"

	"github.com/tonvault/gateway/internal/chainclient"
)

func TestEncodeCellAppendsFieldsInOrder(t *testing.T) {
	fields := []CellField{
		{Kind: CellFieldUint, Uint: 42},
		{Kind: CellFieldString, Str: "hello"},
		{Kind: CellFieldBytes, Bytes: []byte{1, 2, 3}},
		{Kind: CellFieldAddr, Address: chainclient.AccountID{Workchain: 0, Hex: "deadbeef"}},
	}
	out := EncodeCell(fields)
	if len(out) == 0 {
		t.Fatal("expected non-empty encoding")
	}

	// Same fields, same order, must be deterministic.
	again := EncodeCell(fields)
	if string(out) != string(again) {
		t.Error("expected EncodeCell to be deterministic for identical input")
	}
}

func TestEncodeCellEmptyFieldsProducesEmptyBuffer(t *testing.T) {
	out := EncodeCell(nil)
	if len(out) != 0 {
		t.Errorf("expected empty encoding for no fields, got %d bytes", len(out))
	}
}

func TestEncodeCellFieldOrderAffectsOutput(t *testing.T) {
	a := EncodeCell([]CellField{{Kind: CellFieldUint, Uint: 1}, {Kind: CellFieldUint, Uint: 2}})
	b := EncodeCell([]CellField{{Kind: CellFieldUint, Uint: 2}, {Kind: CellFieldUint, Uint: 1}})
	if string(a) == string(b) {
		t.Error("expected different field order to produce different encodings")
	}
}
