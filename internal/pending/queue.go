// Copyright 2025 Certen Protocol
//
// Pending-messages queue (C3, spec.md §4.4): an at-most-once map from
// (account, msg_hash) to a waiter that resolves when the message is
// observed on-chain or its expiration passes. Internal synchronization is
// transparent to callers: add/deliver/sweep are serialized by a single
// mutex over the map and resolve each waiter exactly once.
package pending

import (
	"errors"
	"sync"
)

// ErrDuplicateMessage is returned by Add when an entry already exists for
// the given (account, msg_hash) key.
var ErrDuplicateMessage = errors.New("duplicate pending message")

// Outcome is the variant a waiter's channel carries.
type Outcome int

const (
	Delivered Outcome = iota
	Expired
)

// Key identifies a pending message by the account it belongs to and its
// message hash.
type Key struct {
	Workchain int32
	Hex       string
	MsgHash   string
}

type entry struct {
	expireAt int64
	ch       chan Outcome
	resolved bool
}

// Queue is the C3 pending-messages map.
type Queue struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

func NewQueue() *Queue {
	return &Queue{entries: make(map[Key]*entry)}
}

// Add installs a waiter for key, expiring at expireAt (unix seconds). It
// returns ErrDuplicateMessage if an entry already exists for this key.
func (q *Queue) Add(key Key, expireAt int64) (<-chan Outcome, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.entries[key]; exists {
		return nil, ErrDuplicateMessage
	}
	ch := make(chan Outcome, 1)
	q.entries[key] = &entry{expireAt: expireAt, ch: ch}
	return ch, nil
}

// Deliver resolves the waiter for key with Delivered, if present, and
// removes the entry. Returns false if no entry was found (already
// delivered, expired, or never registered) — delivery is idempotent.
func (q *Queue) Deliver(key Key) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[key]
	if !ok || e.resolved {
		return false
	}
	e.resolved = true
	e.ch <- Delivered
	close(e.ch)
	delete(q.entries, key)
	return true
}

// Sweep resolves and removes every entry belonging to workchain whose
// expireAt is strictly before blockUtime. Called by C4 on each shard block
// covering the account, with the block's gen_utime.
func (q *Queue) Sweep(workchain int32, blockUtime int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for key, e := range q.entries {
		if key.Workchain != workchain || e.resolved {
			continue
		}
		if e.expireAt < blockUtime {
			e.resolved = true
			e.ch <- Expired
			close(e.ch)
			delete(q.entries, key)
		}
	}
}

// Len reports the number of outstanding waiters, for the get_metrics gauge
// (C9, spec.md §4.7).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
