// Copyright 2025 Certen Protocol

package unsignedstore

import (
	"testing"
	"time"

	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/walletmsg"
)

func newUnsignedMessage(sender chainclient.AccountID, expireIn time.Duration, now time.Time) *walletmsg.UnsignedMessage {
	return walletmsg.BuildConfirmation(sender, 1, expireIn, now)
}

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	now := time.Unix(1_700_000_000, 0)
	sender := chainclient.AccountID{Workchain: 0, Hex: "aa"}

	msg := newUnsignedMessage(sender, time.Minute, now)
	s.Put(msg)

	got, ok := s.Get(now, msg.HashHex())
	if !ok {
		t.Fatal("expected to find message")
	}
	if got.HashHex() != msg.HashHex() {
		t.Errorf("hash mismatch: got %s, want %s", got.HashHex(), msg.HashHex())
	}
}

func TestGetConsumesEntry(t *testing.T) {
	s := New()
	now := time.Unix(1_700_000_000, 0)
	sender := chainclient.AccountID{Workchain: 0, Hex: "bb"}

	msg := newUnsignedMessage(sender, time.Minute, now)
	s.Put(msg)

	if _, ok := s.Get(now, msg.HashHex()); !ok {
		t.Fatal("expected first get to find message")
	}
	if _, ok := s.Get(now, msg.HashHex()); ok {
		t.Error("expected second get to miss; entry should have been consumed")
	}
}

func TestGetSweepsExpiredEntries(t *testing.T) {
	s := New()
	now := time.Unix(1_700_000_000, 0)
	sender := chainclient.AccountID{Workchain: 0, Hex: "cc"}

	msg := newUnsignedMessage(sender, time.Second, now)
	s.Put(msg)

	later := now.Add(time.Hour)
	if _, ok := s.Get(later, msg.HashHex()); ok {
		t.Error("expected expired message to be swept and not returned")
	}
}

func TestGetUnknownHashReturnsFalse(t *testing.T) {
	s := New()
	if _, ok := s.Get(time.Unix(1_700_000_000, 0), "deadbeef"); ok {
		t.Error("expected miss for unknown hash")
	}
}
