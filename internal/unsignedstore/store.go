// Copyright 2025 Certen Protocol
//
// In-memory unsigned-message store (C7, spec.md §4.3). A concurrent map
// keyed by hex-encoded message hash, holding an unsigned message until
// either send-signed-message consumes it or an opportunistic sweep on each
// Get removes expired entries. No disk backing: a restart drops unsigned
// messages, which is fine because the matching external signature would
// also fail the expiry check.
package unsignedstore

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/tonvault/gateway/internal/walletmsg"
)

const shardCount = 16

type shard struct {
	mu      sync.Mutex
	entries map[string]*walletmsg.UnsignedMessage
}

// Store is the C7 sharded concurrent map.
type Store struct {
	shards [shardCount]*shard
}

func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*walletmsg.UnsignedMessage)}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

// Put stores an unsigned message under its hex message hash.
func (s *Store) Put(msg *walletmsg.UnsignedMessage) {
	key := msg.HashHex()
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.entries[key] = msg
}

// Get retrieves and removes the unsigned message for hexHash, sweeping any
// expired entries from the same shard along the way. Returns false if the
// hash is unknown or its entry had already expired.
func (s *Store) Get(now time.Time, hexHash string) (*walletmsg.UnsignedMessage, bool) {
	sh := s.shardFor(hexHash)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	nowUnix := now.Unix()
	for k, m := range sh.entries {
		if m.ExpiresAt() < nowUnix {
			delete(sh.entries, k)
		}
	}

	msg, ok := sh.entries[hexHash]
	if !ok {
		return nil, false
	}
	delete(sh.entries, hexHash)
	return msg, true
}
