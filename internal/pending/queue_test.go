// Copyright 2025 Certen Protocol

package pending

import "testing"

func TestAddDeliverResolvesWaiter(t *testing.T) {
	q := NewQueue()
	key := Key{Workchain: 0, Hex: "abc", MsgHash: "m1"}

	ch, err := q.Add(key, 1000)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if !q.Deliver(key) {
		t.Fatal("expected deliver to succeed")
	}

	outcome := <-ch
	if outcome != Delivered {
		t.Errorf("outcome mismatch: got %v, want Delivered", outcome)
	}

	if q.Len() != 0 {
		t.Errorf("expected queue to be empty after delivery, got %d", q.Len())
	}
}

func TestAddRejectsDuplicateKey(t *testing.T) {
	q := NewQueue()
	key := Key{Workchain: 0, Hex: "abc", MsgHash: "m1"}

	if _, err := q.Add(key, 1000); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if _, err := q.Add(key, 2000); err != ErrDuplicateMessage {
		t.Errorf("expected ErrDuplicateMessage, got %v", err)
	}
}

func TestDeliverIsIdempotent(t *testing.T) {
	q := NewQueue()
	key := Key{Workchain: 0, Hex: "abc", MsgHash: "m1"}

	ch, _ := q.Add(key, 1000)
	if !q.Deliver(key) {
		t.Fatal("expected first deliver to succeed")
	}
	<-ch

	if q.Deliver(key) {
		t.Error("expected second deliver to be a no-op")
	}
}

func TestDeliverUnknownKeyReturnsFalse(t *testing.T) {
	q := NewQueue()
	if q.Deliver(Key{Workchain: 0, Hex: "ghost", MsgHash: "nope"}) {
		t.Error("expected deliver of unknown key to return false")
	}
}

func TestSweepExpiresOnlyStaleEntriesInWorkchain(t *testing.T) {
	q := NewQueue()
	stale := Key{Workchain: 0, Hex: "a", MsgHash: "stale"}
	fresh := Key{Workchain: 0, Hex: "b", MsgHash: "fresh"}
	otherWorkchain := Key{Workchain: -1, Hex: "c", MsgHash: "mc"}

	staleCh, _ := q.Add(stale, 100)
	freshCh, _ := q.Add(fresh, 500)
	otherCh, _ := q.Add(otherWorkchain, 50)

	q.Sweep(0, 200)

	if outcome := <-staleCh; outcome != Expired {
		t.Errorf("stale entry outcome: got %v, want Expired", outcome)
	}

	select {
	case outcome := <-freshCh:
		t.Errorf("fresh entry should not resolve yet, got %v", outcome)
	default:
	}

	select {
	case outcome := <-otherCh:
		t.Errorf("other-workchain entry should not resolve on this sweep, got %v", outcome)
	default:
	}

	if q.Len() != 2 {
		t.Errorf("expected 2 remaining entries, got %d", q.Len())
	}
}

func TestDeliverAfterExpiryIsNoOp(t *testing.T) {
	q := NewQueue()
	key := Key{Workchain: 0, Hex: "a", MsgHash: "m"}
	ch, _ := q.Add(key, 100)

	q.Sweep(0, 200)
	<-ch

	if q.Deliver(key) {
		t.Error("expected deliver after expiry to be a no-op")
	}
}
