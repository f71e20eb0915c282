// Copyright 2025 Certen Protocol
//
// Package tonaddr packs and unpacks the three equivalent address encodings
// a TON-family account is known by (spec.md GLOSSARY "Workchain/hex/
// base64url"): raw workchain:hex, and the base64url "user-friendly" packed
// form (tag byte + workchain + address hash + CRC16).
package tonaddr

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const (
	tagBounceable    byte = 0x11
	tagNonBounceable byte = 0x51
)

// Pack derives the base64url packed address from (workchain, hexAddress),
// using the bounceable tag (spec.md §3 invariant (a)).
func Pack(workchain int32, hexAddress string) (string, error) {
	raw, err := hex.DecodeString(hexAddress)
	if err != nil {
		return "", fmt.Errorf("decode hex address: %w", err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("address hash must be 32 bytes, got %d", len(raw))
	}

	buf := make([]byte, 0, 36)
	buf = append(buf, tagBounceable)
	buf = append(buf, byte(int8(workchain)))
	buf = append(buf, raw...)

	crc := crc16(buf)
	var crcBytes [2]byte
	binary.BigEndian.PutUint16(crcBytes[:], crc)
	buf = append(buf, crcBytes[:]...)

	return base64.URLEncoding.EncodeToString(buf), nil
}

// Unpack recovers (workchain, hexAddress) from a base64url packed address,
// verifying its CRC16.
func Unpack(packed string) (int32, string, error) {
	buf, err := base64.URLEncoding.DecodeString(packed)
	if err != nil {
		return 0, "", fmt.Errorf("decode base64url address: %w", err)
	}
	if len(buf) != 36 {
		return 0, "", fmt.Errorf("packed address must be 36 bytes, got %d", len(buf))
	}

	tag := buf[0]
	if tag != tagBounceable && tag != tagNonBounceable {
		return 0, "", fmt.Errorf("unrecognized address tag %x", tag)
	}

	gotCRC := binary.BigEndian.Uint16(buf[34:36])
	wantCRC := crc16(buf[:34])
	if gotCRC != wantCRC {
		return 0, "", fmt.Errorf("address crc mismatch")
	}

	workchain := int32(int8(buf[1]))
	return workchain, hex.EncodeToString(buf[2:34]), nil
}

// crc16 computes CRC16/XMODEM over data, the checksum scheme TON's
// user-friendly address format uses.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
